package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// Client EVM 节点 JSON-RPC 客户端接口
type Client interface {
	// Call 调用 JSON-RPC 方法
	Call(ctx context.Context, method string, params interface{}) (interface{}, error)

	// SendRawTransaction 发送已签名的原始交易（0x 前缀十六进制）
	SendRawTransaction(ctx context.Context, signedTxHex string) (*SendTxResult, error)

	// Subscribe 订阅节点推送（仅 WebSocket 支持）
	Subscribe(ctx context.Context, filter *SubscriptionFilter) (<-chan *Event, error)

	// Close 关闭连接
	Close() error
}

// 订阅类型（eth_subscribe 的第一个参数）
const (
	SubscriptionNewHeads = "newHeads"
	SubscriptionLogs     = "logs"
)

// SubscriptionFilter 订阅过滤器
type SubscriptionFilter struct {
	// Kind newHeads | logs
	Kind string
	// Addresses logs 订阅的合约地址（0x 十六进制）
	Addresses []string
	// Topics logs 订阅的 topic 过滤
	Topics []string
}

// Event 订阅推送
type Event struct {
	Subscription string
	Data         json.RawMessage
}

// SendTxResult 交易提交结果
type SendTxResult struct {
	TxHash   string `json:"tx_hash"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"` // 拒绝原因
}

// NewClient 创建新的客户端
func NewClient(config *Config) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Protocol {
	case ProtocolHTTP, "":
		return NewHTTPClient(config)
	case ProtocolWebSocket:
		return NewWebSocketClient(config)
	default:
		return nil, fmt.Errorf("unsupported protocol: %s", config.Protocol)
	}
}

// subscribeParams 构建 eth_subscribe 参数
func subscribeParams(filter *SubscriptionFilter) ([]interface{}, error) {
	if filter == nil || filter.Kind == "" {
		return []interface{}{SubscriptionNewHeads}, nil
	}
	switch filter.Kind {
	case SubscriptionNewHeads:
		return []interface{}{SubscriptionNewHeads}, nil
	case SubscriptionLogs:
		criteria := map[string]interface{}{}
		if len(filter.Addresses) > 0 {
			criteria["address"] = filter.Addresses
		}
		if len(filter.Topics) > 0 {
			criteria["topics"] = filter.Topics
		}
		return []interface{}{SubscriptionLogs, criteria}, nil
	}
	return nil, fmt.Errorf("unsupported subscription kind: %s", filter.Kind)
}
