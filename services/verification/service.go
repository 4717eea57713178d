package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/purefi/playground-sdk-go/client"
	"github.com/purefi/playground-sdk-go/services/payload"
	"github.com/purefi/playground-sdk-go/types"
	"github.com/purefi/playground-sdk-go/utils"
)

// DefaultDashboardURL 需要额外验证时引导用户前往的页面
const DefaultDashboardURL = "https://dashboard.purefi.io"

// Service Issuer 验证服务接口
type Service interface {
	// Verify 提交单个已签名载荷
	Verify(ctx context.Context, req *Request) (*Result, error)

	// VerifyBatch 并发提交多个已签名载荷，结果与输入顺序一致
	VerifyBatch(ctx context.Context, reqs []*Request, config *utils.BatchConfig) (*utils.BatchQueryResult[*Result], error)
}

// Request 验证请求
type Request struct {
	// IssuerURL Issuer 基础地址（为空时使用客户端配置的 Endpoint）
	IssuerURL string
	// Payload 已签名载荷
	Payload *types.PureFIRuleV5Payload
	// SignatureType package 的签名算法，默认 ecdsa
	SignatureType types.SignatureType
}

// Result 验证结果
type Result struct {
	Package string
}

// verificationService Service 实现
type verificationService struct {
	issuer client.IssuerClient
	logger client.Logger
}

// NewService 创建验证服务
func NewService(issuer client.IssuerClient, logger client.Logger) Service {
	if logger == nil {
		logger = client.NopLogger()
	}
	return &verificationService{issuer: issuer, logger: logger}
}

// Verify 提交验证
func (s *verificationService) Verify(ctx context.Context, req *Request) (*Result, error) {
	if req == nil || req.Payload == nil {
		return nil, fmt.Errorf("signed payload is required")
	}
	if req.Payload.Signature == "" {
		return nil, fmt.Errorf("payload is not signed")
	}

	pkg, err := s.issuer.VerifyRuleV5(ctx, req.IssuerURL, req.Payload, req.SignatureType)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Verification succeeded", "ruleId", req.Payload.Message.Payload.RuleID, "account", req.Payload.Message.Account.Address)
	return &Result{Package: pkg}, nil
}

// VerifyBatch 批量验证
func (s *verificationService) VerifyBatch(ctx context.Context, reqs []*Request, config *utils.BatchConfig) (*utils.BatchQueryResult[*Result], error) {
	return utils.BatchQuery(ctx, reqs, func(ctx context.Context, req *Request, _ int) (*Result, error) {
		return s.Verify(ctx, req)
	}, config)
}

// Outcome 面向用户的验证结果
type Outcome struct {
	Package string `json:"package,omitempty"`
	// Message 错误消息（成功时为空）
	Message string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"traceId,omitempty"`
	// AdditionalVerificationRequired Issuer 返回 FORBIDDEN，用户需先在 Dashboard 完成验证
	AdditionalVerificationRequired bool   `json:"additionalVerificationRequired"`
	DashboardURL                   string `json:"dashboardUrl,omitempty"`
}

// Failed 是否失败
func (o Outcome) Failed() bool {
	return o.Message != ""
}

// Classify 将验证结果/错误转换为面向用户的 Outcome
func Classify(res *Result, err error, dashboardURL string) Outcome {
	if err == nil {
		if res == nil {
			return Outcome{Message: "empty verification result", Code: types.VerificationCodeUnknown}
		}
		return Outcome{Package: res.Package}
	}
	if dashboardURL == "" {
		dashboardURL = DefaultDashboardURL
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Outcome{Message: "verification request cancelled", Code: types.VerificationCodeNetwork}
	}

	if verr, ok := types.IsRemoteVerificationError(err); ok {
		out := Outcome{Message: verr.Message, Code: verr.Code, TraceID: verr.TraceID}
		if out.Message == "" {
			out.Message = verr.Error()
		}
		if verr.IsForbidden() {
			out.AdditionalVerificationRequired = true
			out.DashboardURL = dashboardURL
		}
		return out
	}

	return Outcome{Message: err.Error(), Code: types.VerificationCodeUnknown}
}

// SessionEvent 将验证结果转换为会话事件，revision 为发起验证时的会话版本
func SessionEvent(revision uint64, outcome Outcome) payload.Event {
	if outcome.Failed() {
		return payload.VerificationFailed{
			Revision:  revision,
			Message:   outcome.Message,
			Forbidden: outcome.AdditionalVerificationRequired,
		}
	}
	return payload.VerificationSucceeded{Revision: revision, Package: outcome.Package}
}
