package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"
)

// httpClient HTTP客户端实现
type httpClient struct {
	endpoint string
	client   *http.Client
	logger   Logger
	debug    bool
	nextID   atomic.Uint64
	retry    *RetryConfig
}

// NewHTTPClient 创建HTTP客户端
func NewHTTPClient(config *Config) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	httpCli, err := newStdHTTPClient(config)
	if err != nil {
		return nil, err
	}

	return &httpClient{
		endpoint: config.Endpoint,
		client:   httpCli,
		logger:   config.logger(),
		debug:    config.Debug,
		retry:    retryConfigFor(config),
	}, nil
}

// newStdHTTPClient 按配置创建 *http.Client（超时与 TLS）
func newStdHTTPClient(config *Config) (*http.Client, error) {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30
	}
	httpCli := &http.Client{
		Timeout: time.Duration(timeout) * time.Second,
	}

	if config.TLS != nil {
		tlsConfig := &tls.Config{
			InsecureSkipVerify: config.TLS.Insecure, //nolint:gosec // 仅用于开发环境
		}
		if config.TLS.CAFile != "" {
			pem, err := os.ReadFile(config.TLS.CAFile)
			if err != nil {
				return nil, fmt.Errorf("read CA file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("no certificates found in %s", config.TLS.CAFile)
			}
			tlsConfig.RootCAs = pool
		}
		httpCli.Transport = &http.Transport{TLSClientConfig: tlsConfig}
	}
	return httpCli, nil
}

// retryConfigFor 返回配置的重试策略（调试模式下记录重试日志）
func retryConfigFor(config *Config) *RetryConfig {
	retryConfig := config.Retry
	if retryConfig == nil {
		retryConfig = DefaultRetryConfig()
		if config.Debug && config.Logger != nil {
			retryConfig.OnRetry = func(attempt int, err error) {
				config.Logger.Warn("Retrying request", "attempt", attempt, "error", err)
			}
		}
	}
	return retryConfig
}

// postJSON 发送 JSON POST 请求（带重试），返回状态码与响应体
//
// 5xx/429 响应与网络错误会重试；其他状态码原样返回给调用方处理。
func postJSON(ctx context.Context, cli *http.Client, retry *RetryConfig, url string, body []byte) (int, []byte, error) {
	var status int
	var respBody []byte

	err := withRetry(ctx, func() error {
		status, respBody = 0, nil
		// 每次重试都创建新的请求（因为 Body 只能读取一次）
		httpReq, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if reqErr != nil {
			return fmt.Errorf("create request failed: %w", reqErr)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "application/json")

		httpResp, reqErr := cli.Do(httpReq)
		if reqErr != nil {
			return NewNetworkError(reqErr)
		}
		defer httpResp.Body.Close()

		data, reqErr := io.ReadAll(httpResp.Body)
		if reqErr != nil {
			return NewNetworkError(reqErr)
		}

		status = httpResp.StatusCode
		respBody = data
		if isRetryableHTTPError(httpResp.StatusCode) {
			return &retryableStatusError{status: httpResp.StatusCode}
		}
		return nil
	}, retry)

	// 重试耗尽时仍返回最后一次响应，由调用方解析错误体
	if err != nil && status != 0 && isRetryableHTTPError(status) {
		return status, respBody, nil
	}
	return status, respBody, err
}

// Call 调用JSON-RPC方法
func (c *httpClient) Call(ctx context.Context, method string, params interface{}) (interface{}, error) {
	if params == nil {
		params = []interface{}{}
	}
	req := &jsonrpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	if c.debug {
		c.logger.Debug("JSON-RPC request", "method", method, "body", string(reqBody))
	}

	status, respBody, err := postJSON(ctx, c.client, c.retry, c.endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("send request failed: %w", err)
	}

	if c.debug {
		c.logger.Debug("JSON-RPC response", "status", status, "body", string(respBody))
	}

	if status != http.StatusOK {
		return nil, NewHTTPStatusError(status, string(respBody))
	}

	var jsonResp jsonrpcResponse
	if err := json.Unmarshal(respBody, &jsonResp); err != nil {
		return nil, NewInvalidResponseError(fmt.Sprintf("unmarshal response failed: %v", err))
	}

	if jsonResp.Error != nil {
		return nil, NewRPCError(jsonResp.Error.Code, jsonResp.Error.Message, jsonResp.Error.Data)
	}

	return decodeResult(jsonResp.Result)
}

// SendRawTransaction 发送已签名的原始交易
func (c *httpClient) SendRawTransaction(ctx context.Context, signedTxHex string) (*SendTxResult, error) {
	return sendRawTransaction(ctx, c, signedTxHex)
}

// Subscribe 订阅事件（HTTP不支持，需要使用WebSocket）
func (c *httpClient) Subscribe(ctx context.Context, filter *SubscriptionFilter) (<-chan *Event, error) {
	return nil, NewNotSupportedError("subscribe over HTTP, use WebSocket client instead")
}

// Close 关闭连接（HTTP客户端无需特殊处理）
func (c *httpClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// sendRawTransaction eth_sendRawTransaction；节点拒绝时返回 Accepted=false
func sendRawTransaction(ctx context.Context, c Client, signedTxHex string) (*SendTxResult, error) {
	result, err := c.Call(ctx, "eth_sendRawTransaction", []interface{}{signedTxHex})
	if err != nil {
		if rpcErr, ok := AsRPCError(err); ok {
			return &SendTxResult{
				Accepted: false,
				Reason:   rpcErr.Message,
			}, nil
		}
		return nil, err
	}

	txHash, ok := result.(string)
	if !ok || txHash == "" {
		return &SendTxResult{
			Accepted: false,
			Reason:   "invalid response format",
		}, nil
	}
	return &SendTxResult{
		TxHash:   txHash,
		Accepted: true,
	}, nil
}

// decodeResult 将 result 解码为通用结构（map / slice / string / nil）
func decodeResult(raw json.RawMessage) (interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var result interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, NewInvalidResponseError(fmt.Sprintf("unmarshal result: %v", err))
	}
	return result, nil
}

// jsonrpcRequest JSON-RPC 请求
type jsonrpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      uint64      `json:"id"`
}

// jsonrpcResponse JSON-RPC 响应
type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      uint64          `json:"id"`
}
