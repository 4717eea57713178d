package wallet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// KeystoreManager Keystore 管理器（Web3 Secret Storage v3，scrypt + aes-128-ctr）
type KeystoreManager struct {
	keystoreDir string
	scryptN     int
	scryptP     int
}

// KeystoreOption Keystore 选项
type KeystoreOption func(*KeystoreManager)

// WithLightScrypt 使用轻量 scrypt 参数（测试、本地开发）
func WithLightScrypt() KeystoreOption {
	return func(km *KeystoreManager) {
		km.scryptN = keystore.LightScryptN
		km.scryptP = keystore.LightScryptP
	}
}

// NewKeystoreManager 创建Keystore管理器
func NewKeystoreManager(keystoreDir string, opts ...KeystoreOption) (*KeystoreManager, error) {
	if err := os.MkdirAll(keystoreDir, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}

	km := &KeystoreManager{
		keystoreDir: keystoreDir,
		scryptN:     keystore.StandardScryptN,
		scryptP:     keystore.StandardScryptP,
	}
	for _, opt := range opts {
		opt(km)
	}
	return km, nil
}

// Save 加密保存钱包私钥，返回文件路径
func (km *KeystoreManager) Save(w Wallet, password string) (string, error) {
	key := &keystore.Key{
		Id:         uuid.New(),
		Address:    w.Address(),
		PrivateKey: w.PrivateKey(),
	}

	data, err := keystore.EncryptKey(key, password, km.scryptN, km.scryptP)
	if err != nil {
		return "", fmt.Errorf("encrypt private key: %w", err)
	}

	keystorePath := km.path(w.Address())
	if err := os.WriteFile(keystorePath, data, 0600); err != nil {
		return "", fmt.Errorf("write keystore file: %w", err)
	}
	return keystorePath, nil
}

// Load 按地址加载并解密钱包
func (km *KeystoreManager) Load(address common.Address, password string) (Wallet, error) {
	return LoadKeystoreFile(km.path(address), password)
}

// List 列出 Keystore 目录中的地址
func (km *KeystoreManager) List() ([]common.Address, error) {
	entries, err := os.ReadDir(km.keystoreDir)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}

	var addrs []common.Address
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		hexAddr := strings.TrimSuffix(name, ".json")
		if common.IsHexAddress(hexAddr) {
			addrs = append(addrs, common.HexToAddress(hexAddr))
		}
	}
	return addrs, nil
}

func (km *KeystoreManager) path(address common.Address) string {
	return filepath.Join(km.keystoreDir, strings.ToLower(address.Hex())+".json")
}

// LoadKeystoreFile 解密任意 v3 keystore 文件（geth / MetaMask 导出格式）
func LoadKeystoreFile(path, password string) (Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore file: %w", err)
	}

	key, err := keystore.DecryptKey(data, password)
	if err != nil {
		if errors.Is(err, keystore.ErrDecrypt) {
			return nil, fmt.Errorf("invalid password")
		}
		return nil, fmt.Errorf("decrypt keystore: %w", err)
	}
	return NewWalletFromECDSA(key.PrivateKey), nil
}
