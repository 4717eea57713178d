package services

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/purefi/playground-sdk-go/client"
	"github.com/purefi/playground-sdk-go/config"
	"github.com/purefi/playground-sdk-go/services/contract"
	"github.com/purefi/playground-sdk-go/services/kyc"
	"github.com/purefi/playground-sdk-go/services/payload"
	"github.com/purefi/playground-sdk-go/services/signer"
	"github.com/purefi/playground-sdk-go/services/verification"
	"github.com/purefi/playground-sdk-go/wallet"
)

// Config 业务服务运行时配置，用于一次性构建 Playground 需要的全部 Service。
//
// **说明**：
// - App 为必填，其余字段可选
// - Wallet 为空时按 App.Signer 加载（私钥或 keystore），两者都未配置则不启用本地签名
// - Presets 为空时创建独立的注册表，不修改 payload.DefaultRegistry
type Config struct {
	App     *config.Config
	Logger  client.Logger
	Wallet  wallet.Wallet
	Presets *payload.Registry
}

// Services 已装配的业务服务
type Services struct {
	Signer       signer.Service
	Verification verification.Service
	Presets      *payload.Registry
	Widget       *kyc.Settings

	// Wallet 本地签名钱包，可能为 nil
	Wallet wallet.Wallet

	app    *config.Config
	logger client.Logger

	mu  sync.Mutex
	evm map[uint64]client.EVMClient
}

// New 根据配置创建服务集合
func New(cfg Config) (*Services, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("app config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = client.NopLogger()
	}

	// 1. 本地钱包
	w := cfg.Wallet
	if w == nil {
		loaded, err := LoadWallet(cfg.App.Signer, os.Getenv(config.EnvKeystorePassword))
		if err != nil {
			return nil, err
		}
		w = loaded
	}

	// 2. 预设
	presets := cfg.Presets
	if presets == nil {
		presets = payload.NewRegistry()
	}
	if path := cfg.App.Server.PresetsFile; path != "" {
		n, err := presets.LoadInto(path)
		if err != nil {
			return nil, fmt.Errorf("load presets: %w", err)
		}
		logger.Info("Presets loaded", "file", path, "count", n)
	}

	// 3. Issuer 与签名后端客户端
	issuer, err := client.NewIssuerClient(cfg.App.IssuerClientConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("create issuer client: %w", err)
	}
	backend, err := client.NewSignerClient(cfg.App.IssuerClientConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("create signer client: %w", err)
	}

	return &Services{
		Signer:       signer.NewServiceWithWallet(backend, w),
		Verification: verification.NewService(issuer, logger),
		Presets:      presets,
		Widget:       kyc.NewSettings(),
		Wallet:       w,
		app:          cfg.App,
		logger:       logger,
		evm:          make(map[uint64]client.EVMClient),
	}, nil
}

// LoadWallet 按签名配置加载钱包；未配置时返回 (nil, nil)
func LoadWallet(sc config.SignerConfig, password string) (wallet.Wallet, error) {
	switch {
	case sc.PrivateKey != "":
		w, err := wallet.NewWalletFromPrivateKey(sc.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("load signer key: %w", err)
		}
		return w, nil
	case sc.KeystorePath != "":
		if password == "" {
			return nil, fmt.Errorf("keystore password is required (set %s)", config.EnvKeystorePassword)
		}
		w, err := wallet.LoadKeystoreFile(sc.KeystorePath, password)
		if err != nil {
			return nil, fmt.Errorf("load keystore: %w", err)
		}
		return w, nil
	}
	return nil, nil
}

// App 应用配置
func (s *Services) App() *config.Config {
	return s.app
}

// DashboardURL 需要额外验证时的跳转地址
func (s *Services) DashboardURL() string {
	if s.app.Issuer.DashboardURL != "" {
		return s.app.Issuer.DashboardURL
	}
	return verification.DefaultDashboardURL
}

// EVMClient 返回链对应的节点客户端（按链缓存）
func (s *Services) EVMClient(chainID uint64) (client.EVMClient, error) {
	if !config.IsChainSupported(chainID) {
		return nil, fmt.Errorf("chain %d is not supported", chainID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.evm[chainID]; ok {
		return c, nil
	}

	rpcCfg, err := s.app.RPCClientConfig(chainID, s.logger)
	if err != nil {
		return nil, err
	}
	c, err := client.NewEVMClient(rpcCfg)
	if err != nil {
		return nil, fmt.Errorf("connect rpc for chain %d: %w", chainID, err)
	}
	s.evm[chainID] = c
	return c, nil
}

// Contract 返回链对应的合约服务；已配置本地钱包时作为默认 Wallet
func (s *Services) Contract(chainID uint64) (contract.Service, error) {
	c, err := s.EVMClient(chainID)
	if err != nil {
		return nil, err
	}
	if s.Wallet != nil {
		return contract.NewServiceWithWallet(c, s.Wallet, s.logger), nil
	}
	return contract.NewService(c, s.logger), nil
}

// Close 关闭已创建的节点连接
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for id, c := range s.evm {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("chain %d: %w", id, err))
		}
		delete(s.evm, id)
	}
	return errors.Join(errs...)
}
