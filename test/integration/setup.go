package integration

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/purefi/playground-sdk-go/config"
	"github.com/purefi/playground-sdk-go/services"
	"github.com/purefi/playground-sdk-go/wallet"
)

// 集成测试环境变量
const (
	// EnvRPCURL 开发节点（例如 anvil --chain-id 137 --fork-url ...）
	EnvRPCURL = "PUREFI_IT_RPC_URL"
	// EnvChainID 开发节点的链 ID，需为受支持的链
	EnvChainID = "PUREFI_IT_CHAIN_ID"
	// EnvSignerKey 有余额的测试私钥
	EnvSignerKey = "PUREFI_IT_SIGNER_KEY"
	// EnvIssuerURL Issuer stage 地址
	EnvIssuerURL = "PUREFI_IT_ISSUER_URL"
)

const (
	// DefaultTimeout 默认超时时间
	DefaultTimeout = 30 * time.Second
	// ReceiptTimeout 交易确认超时时间
	ReceiptTimeout = 60 * time.Second
	// ReceiptInterval 交易确认轮询间隔
	ReceiptInterval = time.Second
)

// TestConfig 测试配置
type TestConfig struct {
	RPCURL    string
	ChainID   uint64
	SignerKey string
	IssuerURL string
}

// LoadTestConfig 从环境变量读取测试配置
func LoadTestConfig(t *testing.T) *TestConfig {
	cfg := &TestConfig{
		RPCURL:    os.Getenv(EnvRPCURL),
		ChainID:   137,
		SignerKey: os.Getenv(EnvSignerKey),
		IssuerURL: os.Getenv(EnvIssuerURL),
	}
	if v := os.Getenv(EnvChainID); v != "" {
		id, err := strconv.ParseUint(v, 0, 64)
		require.NoError(t, err, "invalid %s", EnvChainID)
		cfg.ChainID = id
	}
	return cfg
}

// EnsureIssuer 未配置 Issuer 时跳过测试
func EnsureIssuer(t *testing.T) *TestConfig {
	cfg := LoadTestConfig(t)
	if cfg.IssuerURL == "" || cfg.SignerKey == "" {
		t.Skipf("set %s and %s to run issuer integration tests", EnvIssuerURL, EnvSignerKey)
	}
	return cfg
}

// EnsureNodeRunning 未配置节点时跳过；配置了但不可达时失败
func EnsureNodeRunning(t *testing.T) *TestConfig {
	cfg := EnsureIssuer(t)
	if cfg.RPCURL == "" {
		t.Skipf("set %s to run contract integration tests", EnvRPCURL)
	}
	require.True(t, config.IsChainSupported(cfg.ChainID), "chain %d is not supported", cfg.ChainID)

	svc := SetupServices(t, cfg)
	defer TeardownServices(t, svc)

	c, err := svc.EVMClient(cfg.ChainID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := c.ChainID(ctx)
	require.NoError(t, err, "node is not running: %s", cfg.RPCURL)
	require.Equal(t, cfg.ChainID, got, "node chain id mismatch")
	return cfg
}

// SetupServices 按测试配置构建服务集合
func SetupServices(t *testing.T, tc *TestConfig) *services.Services {
	app := config.DefaultConfig()
	app.Issuer.StageURL = tc.IssuerURL
	app.Signer.PrivateKey = tc.SignerKey
	if tc.RPCURL != "" {
		app.RPC.Endpoints = map[uint64]string{tc.ChainID: tc.RPCURL}
	}
	require.NoError(t, app.Validate())

	svc, err := services.New(services.Config{App: app})
	require.NoError(t, err, "create services failed")
	require.NotNil(t, svc.Wallet, "signer wallet not loaded")
	return svc
}

// TeardownServices 关闭节点连接
func TeardownServices(t *testing.T, svc *services.Services) {
	if svc == nil {
		return
	}
	if err := svc.Close(); err != nil {
		t.Logf("close services: %v", err)
	}
}

// CreateTestWallet 创建一次性钱包（无余额）
func CreateTestWallet(t *testing.T) wallet.Wallet {
	w, err := wallet.NewWallet()
	require.NoError(t, err, "create test wallet failed")
	return w
}
