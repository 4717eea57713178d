package signer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/purefi/playground-sdk-go/client"
	"github.com/purefi/playground-sdk-go/types"
	"github.com/purefi/playground-sdk-go/wallet"
)

// Service 载荷签名服务接口
type Service interface {
	// Sign 使用本地钱包对 RuleV5Data 做 EIP-712 签名
	// wallet 参数可选：如果提供则使用，否则使用服务实例的默认 Wallet
	Sign(ctx context.Context, data types.RuleV5Data, wallets ...wallet.Wallet) (*types.PureFIRuleV5Payload, error)

	// SignWithBackend 将 typed data 交给合作方签名后端签名
	SignWithBackend(ctx context.Context, url string, data types.RuleV5Data) (*types.PureFIRuleV5Payload, error)
}

// signerService Service 实现
type signerService struct {
	backend client.SignerClient
	wallet  wallet.Wallet // 可选：默认 Wallet
}

// NewService 创建签名服务（backend 可为 nil，此时不支持 SignWithBackend）
func NewService(backend client.SignerClient) Service {
	return &signerService{backend: backend}
}

// NewServiceWithWallet 创建带默认 Wallet 的签名服务
func NewServiceWithWallet(backend client.SignerClient, w wallet.Wallet) Service {
	return &signerService{backend: backend, wallet: w}
}

func (s *signerService) getWallet(wallets ...wallet.Wallet) wallet.Wallet {
	if len(wallets) > 0 && wallets[0] != nil {
		return wallets[0]
	}
	return s.wallet
}

// Sign 本地签名
func (s *signerService) Sign(ctx context.Context, data types.RuleV5Data, wallets ...wallet.Wallet) (*types.PureFIRuleV5Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 1. 获取 Wallet
	w := s.getWallet(wallets...)
	if w == nil {
		return nil, &types.RemoteSigningError{Message: "wallet is required"}
	}

	// 2. 验证地址匹配
	if !common.IsHexAddress(data.Account.Address) || common.HexToAddress(data.Account.Address) != w.Address() {
		return nil, &types.RemoteSigningError{Message: "wallet address does not match account address"}
	}

	// 3. 构建 typed data
	chainID, err := parseChainID(data.Chain.ID)
	if err != nil {
		return nil, &types.RemoteSigningError{Message: "invalid chain id", Err: err}
	}
	typedData, err := BuildTypedData(data, chainID)
	if err != nil {
		return nil, &types.RemoteSigningError{Message: "build typed data failed", Err: err}
	}

	// 4. 签名
	sig, err := w.SignTypedData(typedData)
	if err != nil {
		return nil, &types.RemoteSigningError{Message: "sign typed data failed", Err: err}
	}

	return &types.PureFIRuleV5Payload{
		Message:   data,
		Signature: hexutil.Encode(sig),
	}, nil
}

// SignWithBackend 合作方签名后端签名
func (s *signerService) SignWithBackend(ctx context.Context, url string, data types.RuleV5Data) (*types.PureFIRuleV5Payload, error) {
	if s.backend == nil {
		return nil, &types.RemoteSigningError{Message: "custom signer is not configured"}
	}
	chainID, err := parseChainID(data.Chain.ID)
	if err != nil {
		return nil, &types.RemoteSigningError{Message: "invalid chain id", Err: err}
	}
	if err := checkSignable(data); err != nil {
		return nil, &types.RemoteSigningError{Message: "payload is not ready", Err: err}
	}
	return s.backend.Sign(ctx, url, BuildSignRequest(data, chainID))
}

// RecoverSigner 从已签名载荷恢复签名者地址
func RecoverSigner(payload *types.PureFIRuleV5Payload) (common.Address, error) {
	if payload == nil {
		return common.Address{}, fmt.Errorf("payload is nil")
	}
	chainID, err := parseChainID(payload.Message.Chain.ID)
	if err != nil {
		return common.Address{}, err
	}
	typedData, err := BuildTypedData(payload.Message, chainID)
	if err != nil {
		return common.Address{}, err
	}
	sig, err := hexutil.Decode(payload.Signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("decode signature: %w", err)
	}
	return wallet.RecoverTypedDataSigner(typedData, sig)
}

// VerifySignature 检查载荷是否由 account.address 签名
func VerifySignature(payload *types.PureFIRuleV5Payload) (bool, error) {
	signer, err := RecoverSigner(payload)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(signer.Hex(), payload.Message.Account.Address), nil
}

func parseChainID(id string) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid chain id: %q", id)
	}
	return n, nil
}
