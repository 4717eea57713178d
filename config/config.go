package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/purefi/playground-sdk-go/client"
	"github.com/purefi/playground-sdk-go/types"
)

// 环境变量
const (
	EnvIssuerURLStage = "PUREFI_ISSUER_URL_STAGE"
	EnvIssuerURLProd  = "PUREFI_ISSUER_URL_PROD"
	EnvRPCURL         = "PUREFI_RPC_URL"
	EnvServerAddr     = "PUREFI_SERVER_ADDR"
	EnvSignerKey      = "PUREFI_SIGNER_KEY"
	EnvLogLevel       = "PUREFI_LOG_LEVEL"

	// EnvKeystorePassword keystore 密码只从环境变量读取，不写入配置文件
	EnvKeystorePassword = "PUREFI_KEYSTORE_PASSWORD"
)

// Config Playground 配置
type Config struct {
	Issuer  IssuerConfig  `yaml:"issuer"`
	Signer  SignerConfig  `yaml:"signer"`
	RPC     RPCConfig     `yaml:"rpc"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// IssuerConfig Issuer 验证服务
type IssuerConfig struct {
	StageURL      string              `yaml:"stage_url"`
	ProdURL       string              `yaml:"prod_url"`
	DashboardURL  string              `yaml:"dashboard_url"`
	SignatureType types.SignatureType `yaml:"signature_type"`
	Timeout       int                 `yaml:"timeout"` // 秒
}

// SignerConfig 签名相关
type SignerConfig struct {
	// CustomURL 合作方签名后端
	CustomURL string `yaml:"custom_url"`
	// PrivateKey 本地签名私钥（hex），也用于 /sign 演示后端
	PrivateKey string `yaml:"private_key"`
	// KeystorePath 可选：v3 keystore 文件，与 PrivateKey 二选一
	KeystorePath string `yaml:"keystore_path"`
}

// RPCConfig EVM 节点
type RPCConfig struct {
	// Endpoints 链 ID -> 节点地址
	Endpoints map[uint64]string `yaml:"endpoints"`
	// Default 未配置链时使用
	Default  string          `yaml:"default"`
	Protocol client.Protocol `yaml:"protocol"`
	Timeout  int             `yaml:"timeout"` // 秒
}

// ServerConfig Playground HTTP 服务
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	PresetsFile string `yaml:"presets_file"`
	// SessionLimit 内存中最多保留的会话数
	SessionLimit int `yaml:"session_limit"`
}

// LoggingConfig 日志
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Issuer: IssuerConfig{
			DashboardURL:  "https://dashboard.purefi.io",
			SignatureType: types.SignatureTypeECDSA,
			Timeout:       30,
		},
		Signer: SignerConfig{
			CustomURL: "http://localhost:5000/sign",
		},
		RPC: RPCConfig{
			Endpoints: map[uint64]string{},
			Protocol:  client.ProtocolHTTP,
			Timeout:   30,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			SessionLimit: 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load 读取 YAML 配置；文件不存在时返回默认配置。环境变量优先。
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvIssuerURLStage); v != "" {
		c.Issuer.StageURL = v
	}
	if v := os.Getenv(EnvIssuerURLProd); v != "" {
		c.Issuer.ProdURL = v
	}
	if v := os.Getenv(EnvRPCURL); v != "" {
		c.RPC.Default = v
	}
	if v := os.Getenv(EnvServerAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvSignerKey); v != "" {
		c.Signer.PrivateKey = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Issuer.SignatureType == "" {
		c.Issuer.SignatureType = types.SignatureTypeECDSA
	}
	if !c.Issuer.SignatureType.Valid() {
		return fmt.Errorf("invalid issuer.signature_type: %q", c.Issuer.SignatureType)
	}
	switch c.RPC.Protocol {
	case "", client.ProtocolHTTP, client.ProtocolWebSocket:
	default:
		return fmt.Errorf("invalid rpc.protocol: %q", c.RPC.Protocol)
	}
	for id := range c.RPC.Endpoints {
		if !IsChainSupported(id) {
			return fmt.Errorf("rpc.endpoints: unsupported chain id %d", id)
		}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	if c.Signer.PrivateKey != "" && c.Signer.KeystorePath != "" {
		return fmt.Errorf("signer.private_key and signer.keystore_path are mutually exclusive")
	}
	return nil
}

// IssuerURL 选择 Issuer 环境
func (c *Config) IssuerURL(prod bool) string {
	if prod {
		return c.Issuer.ProdURL
	}
	return c.Issuer.StageURL
}

// RPCEndpoint 链对应的节点地址
func (c *Config) RPCEndpoint(chainID uint64) (string, error) {
	if ep, ok := c.RPC.Endpoints[chainID]; ok && ep != "" {
		return ep, nil
	}
	if c.RPC.Default != "" {
		return c.RPC.Default, nil
	}
	return "", fmt.Errorf("no rpc endpoint configured for chain %d (set rpc.endpoints or %s)", chainID, EnvRPCURL)
}

// RPCClientConfig 构建节点客户端配置
func (c *Config) RPCClientConfig(chainID uint64, logger client.Logger) (*client.Config, error) {
	endpoint, err := c.RPCEndpoint(chainID)
	if err != nil {
		return nil, err
	}
	protocol := c.RPC.Protocol
	if protocol == "" {
		protocol = client.ProtocolHTTP
	}
	if strings.HasPrefix(endpoint, "ws://") || strings.HasPrefix(endpoint, "wss://") {
		protocol = client.ProtocolWebSocket
	}
	return &client.Config{
		Endpoint: endpoint,
		Protocol: protocol,
		Timeout:  c.RPC.Timeout,
		Retry:    client.DefaultRetryConfig(),
		Debug:    strings.EqualFold(c.Logging.Level, "debug"),
		Logger:   logger,
	}, nil
}

// IssuerClientConfig 构建 Issuer / 签名后端客户端配置
func (c *Config) IssuerClientConfig(logger client.Logger) *client.Config {
	return &client.Config{
		Timeout: c.Issuer.Timeout,
		Retry:   client.DefaultRetryConfig(),
		Debug:   strings.EqualFold(c.Logging.Level, "debug"),
		Logger:  logger,
	}
}

// Save 写入 YAML 配置
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ParseChainID 解析十进制或 0x 前缀的链 ID
func ParseChainID(s string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chain id %q: %w", s, err)
	}
	return id, nil
}
