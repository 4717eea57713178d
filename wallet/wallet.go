package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Wallet 钱包接口
type Wallet interface {
	// Address 获取钱包地址
	Address() common.Address

	// SignTransaction 签名 EVM 交易（EIP-155 / EIP-1559 由交易类型决定）
	SignTransaction(tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error)

	// SignMessage EIP-191 personal_sign，V 为 27/28
	SignMessage(msg []byte) ([]byte, error)

	// SignTypedData EIP-712 签名，V 为 27/28（与 eth_signTypedData_v4 一致）
	SignTypedData(typedData apitypes.TypedData) ([]byte, error)

	// SignHash 签名给定 32 字节哈希，V 为 0/1（供高级调用方使用）
	SignHash(hash []byte) ([]byte, error)

	// PrivateKey 获取私钥（谨慎使用）
	PrivateKey() *ecdsa.PrivateKey
}

// SimpleWallet 简单钱包实现（用于测试、CLI 和签名后端演示）
type SimpleWallet struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	createdAt  time.Time
}

// NewWallet 创建新钱包
func NewWallet() (Wallet, error) {
	privateKey, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate private key: %w", err)
	}
	return newSimpleWallet(privateKey), nil
}

// NewWalletFromPrivateKey 从私钥创建钱包
func NewWalletFromPrivateKey(privateKeyHex string) (Wallet, error) {
	privateKeyHex = hexRemovePrefix(strings.TrimSpace(privateKeyHex))

	privateKeyBytes, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}

	// secp256k1 私钥为 32 字节
	if len(privateKeyBytes) != 32 {
		return nil, fmt.Errorf("invalid private key length: expected 32 bytes, got %d", len(privateKeyBytes))
	}

	privateKey, err := parsePrivateKey(privateKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return newSimpleWallet(privateKey), nil
}

// NewWalletFromECDSA 包装已有私钥
func NewWalletFromECDSA(privateKey *ecdsa.PrivateKey) Wallet {
	return newSimpleWallet(privateKey)
}

func newSimpleWallet(privateKey *ecdsa.PrivateKey) *SimpleWallet {
	return &SimpleWallet{
		privateKey: privateKey,
		address:    ethcrypto.PubkeyToAddress(privateKey.PublicKey),
		createdAt:  time.Now(),
	}
}

// Address 获取钱包地址
func (w *SimpleWallet) Address() common.Address {
	return w.address
}

// SignTransaction 签名交易
func (w *SimpleWallet) SignTransaction(tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction is nil")
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("invalid chain id: %v", chainID)
	}
	signer := ethtypes.LatestSignerForChainID(chainID)
	signed, err := ethtypes.SignTx(tx, signer, w.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return signed, nil
}

// SignHash 签名哈希值
func (w *SimpleWallet) SignHash(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("invalid hash length: expected 32 bytes, got %d", len(hash))
	}
	sig, err := ethcrypto.Sign(hash, w.privateKey)
	if err != nil {
		return nil, fmt.Errorf("ecdsa sign: %w", err)
	}
	return sig, nil
}

// SignMessage 签名消息
func (w *SimpleWallet) SignMessage(msg []byte) ([]byte, error) {
	sig, err := w.SignHash(accounts.TextHash(msg))
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

// SignTypedData 签名 EIP-712 结构化数据
func (w *SimpleWallet) SignTypedData(typedData apitypes.TypedData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("hash typed data: %w", err)
	}
	sig, err := w.SignHash(hash)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

// PrivateKey 获取私钥
func (w *SimpleWallet) PrivateKey() *ecdsa.PrivateKey {
	return w.privateKey
}

// RecoverTypedDataSigner 从 EIP-712 签名恢复签名者地址
//
// 接受 V 为 0/1 或 27/28 的 65 字节签名。
func RecoverTypedDataSigner(typedData apitypes.TypedData, signature []byte) (common.Address, error) {
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return common.Address{}, fmt.Errorf("hash typed data: %w", err)
	}
	return recoverHash(hash, signature)
}

// RecoverMessageSigner 从 personal_sign 签名恢复签名者地址
func RecoverMessageSigner(msg []byte, signature []byte) (common.Address, error) {
	return recoverHash(accounts.TextHash(msg), signature)
}

func recoverHash(hash []byte, signature []byte) (common.Address, error) {
	if len(signature) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length: expected 65 bytes, got %d", len(signature))
	}
	sig := make([]byte, 65)
	copy(sig, signature)
	if sig[64] == 27 || sig[64] == 28 {
		sig[64] -= 27
	}
	pub, err := ethcrypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// parsePrivateKey 使用 go-ethereum/crypto 解析 secp256k1 私钥
func parsePrivateKey(privateKeyBytes []byte) (*ecdsa.PrivateKey, error) {
	privateKey, err := ethcrypto.ToECDSA(privateKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("parse secp256k1 private key failed: %w", err)
	}
	return privateKey, nil
}

// hexRemovePrefix 移除十六进制字符串的0x前缀
func hexRemovePrefix(hexStr string) string {
	if len(hexStr) >= 2 && (hexStr[:2] == "0x" || hexStr[:2] == "0X") {
		return hexStr[2:]
	}
	return hexStr
}
