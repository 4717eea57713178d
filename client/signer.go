package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/purefi/playground-sdk-go/types"
)

// SignerClient 合作方自定义签名后端客户端
//
// 后端接收 EIP-712 typed data（domain/types/primaryType/message），
// 返回 {message, signature} 形式的已签名载荷。
type SignerClient interface {
	Sign(ctx context.Context, url string, typedData interface{}) (*types.PureFIRuleV5Payload, error)
}

// signerClient SignerClient 实现
type signerClient struct {
	client *http.Client
	logger Logger
	debug  bool
	retry  *RetryConfig
}

// NewSignerClient 创建签名后端客户端（Endpoint 不使用，地址由调用方传入）
func NewSignerClient(config *Config) (SignerClient, error) {
	if config == nil {
		config = DefaultConfig()
	}
	httpCli, err := newStdHTTPClient(config)
	if err != nil {
		return nil, err
	}
	return &signerClient{
		client: httpCli,
		logger: config.logger(),
		debug:  config.Debug,
		retry:  retryConfigFor(config),
	}, nil
}

// Sign 请求签名后端签名
func (c *signerClient) Sign(ctx context.Context, url string, typedData interface{}) (*types.PureFIRuleV5Payload, error) {
	if url == "" {
		return nil, &types.RemoteSigningError{Message: "custom signer url is empty"}
	}

	body, err := json.Marshal(typedData)
	if err != nil {
		return nil, fmt.Errorf("marshal typed data: %w", err)
	}

	status, respBody, err := postJSON(ctx, c.client, c.retry, url, body)
	if err != nil {
		return nil, &types.RemoteSigningError{Message: "custom signer unreachable", Err: err}
	}

	if c.debug {
		c.logger.Debug("Custom signer response", "url", url, "status", status, "body", string(respBody))
	}

	if status < 200 || status >= 300 {
		return nil, parseSignerError(status, respBody)
	}

	var signed types.PureFIRuleV5Payload
	if err := json.Unmarshal(respBody, &signed); err != nil {
		return nil, &types.RemoteSigningError{Message: "invalid signer response", Err: err}
	}
	if signed.Signature == "" {
		return nil, &types.RemoteSigningError{Message: "signer response has no signature"}
	}
	return &signed, nil
}
