package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/purefi/playground-sdk-go/types"
)

// IssuerRuleV5Path Issuer 的 Rule V5 验证接口
const IssuerRuleV5Path = "/v5/rule"

// IssuerClient PureFi Issuer（验证服务）客户端
type IssuerClient interface {
	// VerifyRuleV5 提交已签名载荷，成功时返回 Issuer 签发的 package
	//
	// baseURL 为空时使用配置中的 Endpoint。
	VerifyRuleV5(ctx context.Context, baseURL string, payload *types.PureFIRuleV5Payload, signatureType types.SignatureType) (string, error)
}

// issuerClient IssuerClient 实现
type issuerClient struct {
	endpoint string
	client   *http.Client
	logger   Logger
	debug    bool
	retry    *RetryConfig
}

// issuerRequest Issuer 请求体
type issuerRequest struct {
	Message       types.RuleV5Data    `json:"message"`
	Signature     string              `json:"signature"`
	SignatureType types.SignatureType `json:"signatureType"`
}

// NewIssuerClient 创建 Issuer 客户端
func NewIssuerClient(config *Config) (IssuerClient, error) {
	if config == nil {
		config = DefaultConfig()
	}
	httpCli, err := newStdHTTPClient(config)
	if err != nil {
		return nil, err
	}
	return &issuerClient{
		endpoint: config.Endpoint,
		client:   httpCli,
		logger:   config.logger(),
		debug:    config.Debug,
		retry:    retryConfigFor(config),
	}, nil
}

// VerifyRuleV5 提交验证请求
func (c *issuerClient) VerifyRuleV5(ctx context.Context, baseURL string, payload *types.PureFIRuleV5Payload, signatureType types.SignatureType) (string, error) {
	// 1. 参数验证
	if payload == nil {
		return "", fmt.Errorf("payload is required")
	}
	if signatureType == "" {
		signatureType = types.SignatureTypeECDSA
	}
	if !signatureType.Valid() {
		return "", fmt.Errorf("unsupported signature type: %q", signatureType)
	}
	if baseURL == "" {
		baseURL = c.endpoint
	}
	if baseURL == "" {
		return "", fmt.Errorf("issuer url is required")
	}

	// 2. 构建请求
	body, err := json.Marshal(&issuerRequest{
		Message:       payload.Message,
		Signature:     payload.Signature,
		SignatureType: signatureType,
	})
	if err != nil {
		return "", fmt.Errorf("marshal verification request: %w", err)
	}
	url := strings.TrimRight(baseURL, "/") + IssuerRuleV5Path

	if c.debug {
		c.logger.Debug("Issuer request", "url", url, "body", string(body))
	}

	// 3. 发送请求
	status, respBody, err := postJSON(ctx, c.client, c.retry, url, body)
	if err != nil {
		return "", &types.RemoteVerificationError{
			Code:    types.VerificationCodeNetwork,
			Message: "issuer unreachable",
			Err:     err,
		}
	}

	if c.debug {
		c.logger.Debug("Issuer response", "status", status, "body", string(respBody))
	}

	// 4. 解析响应
	if status < 200 || status >= 300 {
		verr := parseIssuerError(status, respBody)
		c.logger.Warn("Issuer rejected verification", "code", verr.Code, "status", verr.Status, "traceId", verr.TraceID)
		return "", verr
	}

	pkg, err := decodePackage(respBody)
	if err != nil {
		return "", types.NewDefaultVerificationError(status, "invalid issuer response", err)
	}
	return pkg, nil
}

// decodePackage 解析 Issuer 的成功响应
//
// 支持三种形式：JSON 字符串、{"package": "..."} / {"data": ...}、纯文本。
func decodePackage(body []byte) (string, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "", fmt.Errorf("empty response body")
	}

	var s string
	if err := json.Unmarshal([]byte(trimmed), &s); err == nil {
		return s, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
		for _, key := range []string{"package", "data"} {
			raw, ok := obj[key]
			if !ok {
				continue
			}
			if err := json.Unmarshal(raw, &s); err == nil {
				return s, nil
			}
			return string(raw), nil
		}
		return trimmed, nil
	}

	return trimmed, nil
}
