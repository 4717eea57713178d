package contract

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/purefi/playground-sdk-go/client"
	"github.com/purefi/playground-sdk-go/config"
	"github.com/purefi/playground-sdk-go/utils"
	"github.com/purefi/playground-sdk-go/wallet"
)

// 估算 gas 的放大系数（百分比）
const gasLimitBufferPercent = 120

// 节点不支持 eth_maxPriorityFeePerGas 时的默认小费（1.5 gwei）
var defaultTipCap = big.NewInt(1_500_000_000)

// Service Contract 业务服务接口
type Service interface {
	// Write 调用合约写方法：构建、签名（EIP-1559）并提交交易
	// wallet 参数可选：如果提供则使用，否则使用服务实例的默认 Wallet
	Write(ctx context.Context, req *WriteRequest, wallets ...wallet.Wallet) (*WriteResult, error)

	// Query 调用合约只读方法（eth_call）并解码返回值
	Query(ctx context.Context, req *QueryRequest) ([]interface{}, error)

	// WaitForReceipt 等待交易上链；WebSocket 传输时订阅 newHeads，否则轮询
	WaitForReceipt(ctx context.Context, txHash common.Hash, opts *WaitOptions) (*client.Receipt, error)
}

// contractService Contract 服务实现
type contractService struct {
	client client.EVMClient
	wallet wallet.Wallet // 可选：默认 Wallet
	logger client.Logger
}

// NewService 创建 Contract 服务（不带 Wallet）
func NewService(c client.EVMClient, logger client.Logger) Service {
	if logger == nil {
		logger = client.NopLogger()
	}
	return &contractService{client: c, logger: logger}
}

// NewServiceWithWallet 创建带默认 Wallet 的 Contract 服务
func NewServiceWithWallet(c client.EVMClient, w wallet.Wallet, logger client.Logger) Service {
	if logger == nil {
		logger = client.NopLogger()
	}
	return &contractService{client: c, wallet: w, logger: logger}
}

// getWallet 获取 Wallet（优先使用参数，其次使用默认 Wallet）
func (s *contractService) getWallet(wallets ...wallet.Wallet) wallet.Wallet {
	if len(wallets) > 0 && wallets[0] != nil {
		return wallets[0]
	}
	return s.wallet
}

// WriteRequest 合约写调用请求
type WriteRequest struct {
	ContractAddress string   // 0x 地址
	ABI             *abi.ABI // nil 时使用 PureFi 演示合约 ABI
	Method          string   // 方法名或 0x 选择器
	Args            []string // 表单字符串参数，按 ABI 转换
	Value           *big.Int // 可选：附带的原生币（wei）
	GasLimit        uint64   // 可选：0 表示估算
}

// WriteResult 合约写调用结果
type WriteResult struct {
	TxHash  common.Hash `json:"txHash"`
	ChainID uint64      `json:"chainId"`
	Nonce   uint64      `json:"nonce"`
	Link    string      `json:"link"` // 区块浏览器链接
}

// QueryRequest 合约只读调用请求
type QueryRequest struct {
	ContractAddress string
	ABI             *abi.ABI
	Method          string
	Args            []string
	From            string // 可选
}

// WaitOptions 等待收据选项
type WaitOptions struct {
	// PollInterval 轮询间隔（默认 2s）
	PollInterval time.Duration
	// Timeout 总超时（默认 3 分钟）
	Timeout time.Duration
}

// Write 调用合约写方法
func (s *contractService) Write(ctx context.Context, req *WriteRequest, wallets ...wallet.Wallet) (*WriteResult, error) {
	// 1. 参数验证
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}
	to, err := utils.ParseAddress(req.ContractAddress)
	if err != nil {
		return nil, fmt.Errorf("Smart Contract (Address) Invalid")
	}
	parsed := req.ABI
	if parsed == nil {
		parsed = DemoABI()
	}
	method, err := FindMethod(parsed, req.Method)
	if err != nil {
		return nil, err
	}
	if isViewMethod(method) {
		return nil, fmt.Errorf("method %s is read-only, use Query", method.RawName)
	}

	// 2. 获取 Wallet
	w := s.getWallet(wallets...)
	if w == nil {
		return nil, fmt.Errorf("wallet is required for contract invocation")
	}

	// 3. 编码调用数据
	data, err := PackCall(parsed, method, req.Args)
	if err != nil {
		return nil, err
	}

	// 4. 链与 nonce
	chainID, err := s.client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id failed: %w", err)
	}
	if !config.IsChainSupported(chainID) {
		return nil, fmt.Errorf("chain %d is not supported", chainID)
	}
	nonce, err := s.client.PendingNonce(ctx, w.Address())
	if err != nil {
		return nil, fmt.Errorf("get nonce failed: %w", err)
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	// 5. gas
	gasLimit := req.GasLimit
	if gasLimit == 0 {
		estimated, err := s.client.EstimateGas(ctx, client.CallMsg{From: w.Address(), To: &to, Data: data, Value: value})
		if err != nil {
			return nil, fmt.Errorf("estimate gas failed: %w", err)
		}
		gasLimit = estimated * gasLimitBufferPercent / 100
	}

	// 6. 构建交易
	tx, err := s.buildTx(ctx, chainID, nonce, to, value, gasLimit, data)
	if err != nil {
		return nil, err
	}

	// 7. 使用 Wallet 签名交易
	signed, err := w.SignTransaction(tx, new(big.Int).SetUint64(chainID))
	if err != nil {
		return nil, fmt.Errorf("sign transaction failed: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode transaction failed: %w", err)
	}

	// 8. 提交交易
	hash, err := s.client.SendRawTransaction(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("send raw transaction failed: %w", err)
	}

	s.logger.Info("Contract transaction submitted", "method", method.RawName, "txHash", hash.Hex(), "chainId", chainID)
	return &WriteResult{
		TxHash:  hash,
		ChainID: chainID,
		Nonce:   nonce,
		Link:    TransactionLink(hash.Hex(), chainID),
	}, nil
}

// buildTx 有 baseFee 时构建 EIP-1559 交易，否则构建 legacy 交易
func (s *contractService) buildTx(ctx context.Context, chainID, nonce uint64, to common.Address, value *big.Int, gas uint64, data []byte) (*ethtypes.Transaction, error) {
	header, err := s.client.LatestHeader(ctx)
	if err != nil {
		return nil, fmt.Errorf("get latest block failed: %w", err)
	}

	if header.BaseFee == nil {
		gasPrice, err := s.client.GasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("get gas price failed: %w", err)
		}
		return ethtypes.NewTx(&ethtypes.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gas,
			To:       &to,
			Value:    value,
			Data:     data,
		}), nil
	}

	tip, err := s.client.MaxPriorityFeePerGas(ctx)
	if err != nil {
		s.logger.Debug("eth_maxPriorityFeePerGas unavailable, using default tip", "error", err)
		tip = new(big.Int).Set(defaultTipCap)
	}
	// feeCap = 2 * baseFee + tip
	feeCap := new(big.Int).Add(new(big.Int).Mul(header.BaseFee, big.NewInt(2)), tip)

	return ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   new(big.Int).SetUint64(chainID),
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      data,
	}), nil
}

// Query 只读调用
func (s *contractService) Query(ctx context.Context, req *QueryRequest) ([]interface{}, error) {
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}
	to, err := utils.ParseAddress(req.ContractAddress)
	if err != nil {
		return nil, fmt.Errorf("Smart Contract (Address) Invalid")
	}
	parsed := req.ABI
	if parsed == nil {
		parsed = DemoABI()
	}
	method, err := FindMethod(parsed, req.Method)
	if err != nil {
		return nil, err
	}
	data, err := PackCall(parsed, method, req.Args)
	if err != nil {
		return nil, err
	}

	msg := client.CallMsg{To: &to, Data: data}
	if req.From != "" {
		from, err := utils.ParseAddress(req.From)
		if err != nil {
			return nil, err
		}
		msg.From = from
	}

	out, err := s.client.CallContract(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("query contract failed: %w", err)
	}
	values, err := method.Outputs.Unpack(out)
	if err != nil {
		return nil, fmt.Errorf("decode %s result failed: %w", method.RawName, err)
	}
	return values, nil
}

// WaitForReceipt 等待交易收据
func (s *contractService) WaitForReceipt(ctx context.Context, txHash common.Hash, opts *WaitOptions) (*client.Receipt, error) {
	interval := 2 * time.Second
	timeout := 3 * time.Minute
	if opts != nil {
		if opts.PollInterval > 0 {
			interval = opts.PollInterval
		}
		if opts.Timeout > 0 {
			timeout = opts.Timeout
		}
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// 先查一次，已上链则直接返回
	if r, err := s.client.GetTransactionReceipt(ctx, txHash); err != nil || r != nil {
		return r, err
	}

	var heads <-chan *client.BlockHeader
	if s.client.SupportsSubscriptions() {
		ch, err := s.client.SubscribeNewHeads(ctx)
		if err != nil {
			s.logger.Debug("newHeads subscription failed, falling back to polling", "error", err)
		} else {
			heads = ch
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for receipt %s: %w", txHash.Hex(), ctx.Err())
		case _, ok := <-heads:
			if !ok {
				heads = nil
				continue
			}
		case <-ticker.C:
		}

		r, err := s.client.GetTransactionReceipt(ctx, txHash)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("wait for receipt %s: %w", txHash.Hex(), ctx.Err())
			}
			s.logger.Warn("get receipt failed", "txHash", txHash.Hex(), "error", err)
			continue
		}
		if r != nil {
			return r, nil
		}
	}
}

// TransactionLink 交易在区块浏览器中的链接；未知链返回哈希本身
func TransactionLink(hash string, chainID uint64) string {
	return config.TransactionLink(hash, chainID)
}
