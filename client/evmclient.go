package client

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EVMClient EVM 节点客户端接口
// 提供类型化的 RPC 封装，避免直接使用 Call(method, params)
type EVMClient interface {
	// 链信息
	ChainID(ctx context.Context) (uint64, error)
	BlockNumber(ctx context.Context) (uint64, error)
	LatestHeader(ctx context.Context) (*BlockHeader, error)

	// 账户
	PendingNonce(ctx context.Context, account common.Address) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)

	// 费用
	GasPrice(ctx context.Context) (*big.Int, error)
	MaxPriorityFeePerGas(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg CallMsg) (uint64, error)

	// 合约
	CallContract(ctx context.Context, msg CallMsg) ([]byte, error)

	// 交易
	SendRawTransaction(ctx context.Context, rawTx []byte) (common.Hash, error)
	GetTransactionReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error)

	// 订阅（仅 WebSocket）
	SupportsSubscriptions() bool
	SubscribeNewHeads(ctx context.Context) (<-chan *BlockHeader, error)

	// 底层通道（不推荐上层直接使用）
	Call(ctx context.Context, method string, params interface{}) (interface{}, error)

	// 连接管理
	Close() error
}

// evmClientImpl EVMClient 实现类
type evmClientImpl struct {
	client        Client
	subscriptions bool
}

// NewEVMClient 创建 EVMClient 实例
func NewEVMClient(config *Config) (EVMClient, error) {
	if config == nil {
		config = DefaultConfig()
	}
	client, err := NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &evmClientImpl{
		client:        client,
		subscriptions: config.Protocol == ProtocolWebSocket,
	}, nil
}

// NewEVMClientFromClient 从现有 Client 创建 EVMClient
func NewEVMClientFromClient(client Client, subscriptions bool) EVMClient {
	return &evmClientImpl{
		client:        client,
		subscriptions: subscriptions,
	}
}

// Call 底层 JSON-RPC 调用
func (c *evmClientImpl) Call(ctx context.Context, method string, params interface{}) (interface{}, error) {
	return c.client.Call(ctx, method, params)
}

// Close 关闭连接
func (c *evmClientImpl) Close() error {
	return c.client.Close()
}

// SupportsSubscriptions 底层传输是否支持 eth_subscribe
func (c *evmClientImpl) SupportsSubscriptions() bool {
	return c.subscriptions
}

// quantity 调用返回 QUANTITY 的方法
func (c *evmClientImpl) quantity(ctx context.Context, method string, params ...interface{}) (*big.Int, error) {
	raw, err := c.client.Call(ctx, method, nonNilParams(params))
	if err != nil {
		return nil, wrapRPCError(method, err)
	}
	return decodeBig(method, raw)
}

// ChainID eth_chainId
func (c *evmClientImpl) ChainID(ctx context.Context) (uint64, error) {
	v, err := c.quantity(ctx, "eth_chainId")
	if err != nil {
		return 0, err
	}
	return bigToUint64("eth_chainId", v)
}

// BlockNumber eth_blockNumber
func (c *evmClientImpl) BlockNumber(ctx context.Context) (uint64, error) {
	v, err := c.quantity(ctx, "eth_blockNumber")
	if err != nil {
		return 0, err
	}
	return bigToUint64("eth_blockNumber", v)
}

// LatestHeader eth_getBlockByNumber("latest", false)
func (c *evmClientImpl) LatestHeader(ctx context.Context) (*BlockHeader, error) {
	raw, err := c.client.Call(ctx, "eth_getBlockByNumber", []interface{}{"latest", false})
	if err != nil {
		return nil, wrapRPCError("eth_getBlockByNumber", err)
	}
	if raw == nil {
		return nil, &EVMClientError{Code: EVMErrCodeNotFound, Message: "latest block not found"}
	}
	return decodeHeader(raw)
}

// PendingNonce eth_getTransactionCount(account, "pending")
func (c *evmClientImpl) PendingNonce(ctx context.Context, account common.Address) (uint64, error) {
	v, err := c.quantity(ctx, "eth_getTransactionCount", account.Hex(), "pending")
	if err != nil {
		return 0, err
	}
	return bigToUint64("eth_getTransactionCount", v)
}

// BalanceAt eth_getBalance(account, "latest")
func (c *evmClientImpl) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	return c.quantity(ctx, "eth_getBalance", account.Hex(), "latest")
}

// GasPrice eth_gasPrice
func (c *evmClientImpl) GasPrice(ctx context.Context) (*big.Int, error) {
	return c.quantity(ctx, "eth_gasPrice")
}

// MaxPriorityFeePerGas eth_maxPriorityFeePerGas
func (c *evmClientImpl) MaxPriorityFeePerGas(ctx context.Context) (*big.Int, error) {
	return c.quantity(ctx, "eth_maxPriorityFeePerGas")
}

// EstimateGas eth_estimateGas
func (c *evmClientImpl) EstimateGas(ctx context.Context, msg CallMsg) (uint64, error) {
	v, err := c.quantity(ctx, "eth_estimateGas", toCallArg(msg))
	if err != nil {
		return 0, err
	}
	return bigToUint64("eth_estimateGas", v)
}

// CallContract eth_call（latest）
func (c *evmClientImpl) CallContract(ctx context.Context, msg CallMsg) ([]byte, error) {
	raw, err := c.client.Call(ctx, "eth_call", []interface{}{toCallArg(msg), "latest"})
	if err != nil {
		return nil, wrapRPCError("eth_call", err)
	}
	s, ok := raw.(string)
	if !ok {
		return nil, &EVMClientError{Code: EVMErrCodeDecodeFailed, Message: "invalid eth_call result: expected hex string"}
	}
	data, err := hexutil.Decode(s)
	if err != nil {
		return nil, &EVMClientError{Code: EVMErrCodeDecodeFailed, Message: "invalid eth_call result", Cause: err}
	}
	return data, nil
}

// SendRawTransaction eth_sendRawTransaction
func (c *evmClientImpl) SendRawTransaction(ctx context.Context, rawTx []byte) (common.Hash, error) {
	if len(rawTx) == 0 {
		return common.Hash{}, &EVMClientError{Code: EVMErrCodeInvalidParams, Message: "raw transaction is empty"}
	}

	result, err := c.client.SendRawTransaction(ctx, hexutil.Encode(rawTx))
	if err != nil {
		return common.Hash{}, wrapRPCError("eth_sendRawTransaction", err)
	}
	if !result.Accepted {
		return common.Hash{}, &EVMClientError{
			Code:    EVMErrCodeTxRejected,
			Message: fmt.Sprintf("transaction rejected: %s", result.Reason),
		}
	}
	return common.HexToHash(result.TxHash), nil
}

// GetTransactionReceipt eth_getTransactionReceipt；交易尚未打包时返回 (nil, nil)
func (c *evmClientImpl) GetTransactionReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error) {
	raw, err := c.client.Call(ctx, "eth_getTransactionReceipt", []interface{}{txHash.Hex()})
	if err != nil {
		return nil, wrapRPCError("eth_getTransactionReceipt", err)
	}
	if raw == nil {
		return nil, nil
	}
	return decodeReceipt(raw)
}

// SubscribeNewHeads 订阅新区块头
func (c *evmClientImpl) SubscribeNewHeads(ctx context.Context) (<-chan *BlockHeader, error) {
	if !c.subscriptions {
		return nil, &EVMClientError{Code: EVMErrCodeNotSupported, Message: "subscriptions require a websocket transport"}
	}

	events, err := c.client.Subscribe(ctx, &SubscriptionFilter{Kind: SubscriptionNewHeads})
	if err != nil {
		return nil, wrapRPCError("eth_subscribe", err)
	}

	heads := make(chan *BlockHeader, 16)
	go func() {
		defer close(heads)
		for ev := range events {
			var raw interface{}
			if err := json.Unmarshal(ev.Data, &raw); err != nil {
				continue
			}
			header, err := decodeHeader(raw)
			if err != nil {
				continue
			}
			select {
			case heads <- header:
			case <-ctx.Done():
				return
			}
		}
	}()
	return heads, nil
}

// ========== 编解码 ==========

func nonNilParams(params []interface{}) []interface{} {
	if params == nil {
		return []interface{}{}
	}
	return params
}

// toCallArg CallMsg -> JSON-RPC 交易对象
func toCallArg(msg CallMsg) map[string]interface{} {
	arg := map[string]interface{}{
		"from": msg.From.Hex(),
	}
	if msg.To != nil {
		arg["to"] = msg.To.Hex()
	}
	if len(msg.Data) > 0 {
		arg["input"] = hexutil.Encode(msg.Data)
	}
	if msg.Value != nil && msg.Value.Sign() > 0 {
		arg["value"] = hexutil.EncodeBig(msg.Value)
	}
	if msg.Gas != 0 {
		arg["gas"] = hexutil.EncodeUint64(msg.Gas)
	}
	return arg
}

func decodeBig(method string, raw interface{}) (*big.Int, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, &EVMClientError{
			Code:    EVMErrCodeDecodeFailed,
			Message: fmt.Sprintf("invalid %s result: expected hex quantity", method),
		}
	}
	v, err := hexutil.DecodeBig(s)
	if err != nil {
		return nil, &EVMClientError{
			Code:    EVMErrCodeDecodeFailed,
			Message: fmt.Sprintf("invalid %s result %q", method, s),
			Cause:   err,
		}
	}
	return v, nil
}

func bigToUint64(method string, v *big.Int) (uint64, error) {
	if !v.IsUint64() {
		return 0, &EVMClientError{
			Code:    EVMErrCodeDecodeFailed,
			Message: fmt.Sprintf("%s result %s overflows uint64", method, v.String()),
		}
	}
	return v.Uint64(), nil
}

func getQuantity(m map[string]interface{}, key string) (uint64, error) {
	s, ok := m[key].(string)
	if !ok {
		return 0, fmt.Errorf("missing field %s", key)
	}
	v, err := hexutil.DecodeUint64(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func decodeHeader(raw interface{}) (*BlockHeader, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, &EVMClientError{Code: EVMErrCodeDecodeFailed, Message: "invalid block format: expected map"}
	}

	number, err := getQuantity(m, "number")
	if err != nil {
		return nil, &EVMClientError{Code: EVMErrCodeDecodeFailed, Message: "invalid block", Cause: err}
	}
	header := &BlockHeader{Number: number}
	if h, ok := m["hash"].(string); ok {
		header.Hash = common.HexToHash(h)
	}
	if ts, err := getQuantity(m, "timestamp"); err == nil {
		header.Timestamp = ts
	}
	if fee, ok := m["baseFeePerGas"].(string); ok {
		if v, err := hexutil.DecodeBig(fee); err == nil {
			header.BaseFee = v
		}
	}
	return header, nil
}

func decodeReceipt(raw interface{}) (*Receipt, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, &EVMClientError{Code: EVMErrCodeDecodeFailed, Message: "invalid receipt format: expected map"}
	}

	r := &Receipt{}
	if h, ok := m["transactionHash"].(string); ok {
		r.TxHash = common.HexToHash(h)
	}
	if h, ok := m["blockHash"].(string); ok {
		r.BlockHash = common.HexToHash(h)
	}

	var err error
	if r.BlockNumber, err = getQuantity(m, "blockNumber"); err != nil {
		return nil, &EVMClientError{Code: EVMErrCodeDecodeFailed, Message: "invalid receipt", Cause: err}
	}
	if r.Status, err = getQuantity(m, "status"); err != nil {
		return nil, &EVMClientError{Code: EVMErrCodeDecodeFailed, Message: "invalid receipt", Cause: err}
	}
	if gas, err := getQuantity(m, "gasUsed"); err == nil {
		r.GasUsed = gas
	}
	if price, ok := m["effectiveGasPrice"].(string); ok {
		if v, err := hexutil.DecodeBig(price); err == nil {
			r.EffectiveGasPrice = v
		}
	}
	if addr, ok := m["contractAddress"].(string); ok && addr != "" {
		a := common.HexToAddress(addr)
		r.ContractAddress = &a
	}

	logs, _ := m["logs"].([]interface{})
	for _, item := range logs {
		lm, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		l := &Log{}
		if a, ok := lm["address"].(string); ok {
			l.Address = common.HexToAddress(a)
		}
		if topics, ok := lm["topics"].([]interface{}); ok {
			for _, t := range topics {
				if ts, ok := t.(string); ok {
					l.Topics = append(l.Topics, common.HexToHash(ts))
				}
			}
		}
		if d, ok := lm["data"].(string); ok {
			l.Data, _ = hexutil.Decode(d)
		}
		if idx, err := getQuantity(lm, "logIndex"); err == nil {
			l.Index = idx
		}
		r.Logs = append(r.Logs, l)
	}

	return r, nil
}
