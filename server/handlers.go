package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi/v5"

	"github.com/purefi/playground-sdk-go/config"
	"github.com/purefi/playground-sdk-go/services/kyc"
	"github.com/purefi/playground-sdk-go/services/payload"
	"github.com/purefi/playground-sdk-go/services/signer"
	"github.com/purefi/playground-sdk-go/services/verification"
	"github.com/purefi/playground-sdk-go/types"
	"github.com/purefi/playground-sdk-go/utils"
)

// sessionView 会话的 JSON 视图
type sessionView struct {
	ID              string              `json:"id"`
	Account         string              `json:"account,omitempty"`
	ChainID         uint64              `json:"chainId,omitempty"`
	IssuerURL       string              `json:"issuerUrl"`
	CustomSigner    bool                `json:"customSigner"`
	CustomSignerURL string              `json:"customSignerUrl,omitempty"`
	SignatureType   types.SignatureType `json:"signatureType"`
	Preview         payload.Preview     `json:"preview"`
}

func viewOf(s payload.Session) sessionView {
	return sessionView{
		ID:              s.ID,
		Account:         s.Account,
		ChainID:         s.ChainID,
		IssuerURL:       s.IssuerURL,
		CustomSigner:    s.CustomSigner,
		CustomSignerURL: s.CustomSignerURL,
		SignatureType:   s.SignatureType,
		Preview:         payload.Derive(s),
	}
}

// pushMessage WebSocket 推送消息
type pushMessage struct {
	Type    string      `json:"type"`
	Session sessionView `json:"session"`
}

func (s *Server) publish(session payload.Session) sessionView {
	view := viewOf(session)
	s.hub.broadcast(session.ID, pushMessage{Type: "preview", Session: view})
	return view
}

// ========== 基础 ==========

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.store.Len(),
		"clients":  s.hub.count(),
	})
}

func (s *Server) handleChains(w http.ResponseWriter, r *http.Request) {
	chains := config.SupportedChains()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"chains":  chains,
		"count":   len(chains),
		"default": config.DefaultChainID,
	})
}

type packageTypeInfo struct {
	Code       types.PackageType  `json:"code"`
	Groups     []types.FieldGroup `json:"groups"`
	Visibility types.Visibility   `json:"visibility"`
}

func (s *Server) handlePackageTypes(w http.ResponseWriter, r *http.Request) {
	codes := types.AllPackageTypes()
	out := make([]packageTypeInfo, 0, len(codes))
	for _, code := range codes {
		groups, _ := types.GroupsRequiredFor(code)
		v, _ := types.VisibilityFor(code)
		out = append(out, packageTypeInfo{Code: code, Groups: groups, Visibility: v})
	}
	writeJSON(w, http.StatusOK, out)
}

type presetView struct {
	payload.Preset
	Locked []payload.FieldName `json:"locked"`
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	presets := s.svc.Presets.List()
	out := make([]presetView, 0, len(presets))
	for _, p := range presets {
		_, locks, err := s.svc.Presets.Apply(p.ID)
		if err != nil {
			continue
		}
		out = append(out, presetView{Preset: p, Locked: locks.Names()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

// ========== 会话 ==========

type createSessionRequest struct {
	// IssuerURL 为空时按 Prod 选择配置中的环境
	IssuerURL string `json:"issuerUrl"`
	Prod      bool   `json:"prod"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	issuerURL := strings.TrimSpace(req.IssuerURL)
	if issuerURL == "" {
		issuerURL = s.svc.App().IssuerURL(req.Prod)
	}

	session := s.store.Create(issuerURL)
	s.stats.RecordSession()
	s.logger.Info("Session created", "session", session.ID, "issuer", issuerURL)
	writeJSON(w, http.StatusCreated, viewOf(session))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, codeNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, viewOf(session))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.store.Delete(chi.URLParam(r, "id")) {
		writeError(w, r, http.StatusNotFound, codeNotFound, ErrSessionNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionEvents 接受单个事件或事件数组，按顺序应用；任一失败则停止
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var batch eventBatch
	if err := readJSON(r, &batch); err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if len(batch) == 0 {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, "event is required")
		return
	}

	session, err := s.applyEvents(id, batch)
	if err != nil {
		// 批量中已生效的事件仍需推送
		if cur, gerr := s.store.Get(id); gerr == nil {
			s.publish(cur)
		}
		s.writeTransitionError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, s.publish(session))
}

func (s *Server) writeTransitionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		writeError(w, r, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, payload.ErrFieldLocked), errors.Is(err, payload.ErrStaleResult):
		writeError(w, r, http.StatusConflict, codeConflict, err.Error())
	default:
		writeError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
	}
}

// handleSessionSign 服务端签名：自定义签名后端优先，其次本地钱包
func (s *Server) handleSessionSign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, err := s.store.Get(id)
	if err != nil {
		writeError(w, r, http.StatusNotFound, codeNotFound, err.Error())
		return
	}

	preview := payload.Derive(session)
	if !preview.Ready {
		msg := "connect a wallet first"
		if session.WalletConnected() {
			msg = preview.Errors.AsError().Error()
		}
		writeError(w, r, http.StatusUnprocessableEntity, codeNotReady, msg)
		return
	}

	var signed *types.PureFIRuleV5Payload
	switch {
	case session.CustomSigner:
		signed, err = s.svc.Signer.SignWithBackend(r.Context(), session.CustomSignerURL, preview.Data)
	case s.svc.Wallet != nil:
		signed, err = s.svc.Signer.Sign(r.Context(), preview.Data)
	default:
		writeError(w, r, http.StatusBadRequest, codeBadRequest,
			"no server-side signer: enable a custom signer or sign in the wallet and post a signatureObtained event")
		return
	}
	if err != nil {
		s.logger.Warn("Signing failed", "session", id, "error", err)
		writeError(w, r, http.StatusBadGateway, codeSigning, err.Error())
		return
	}

	session, err = s.store.Apply(id, payload.SignatureObtained{Revision: session.Revision, Payload: *signed})
	if err != nil {
		s.writeTransitionError(w, r, err)
		return
	}
	s.stats.RecordSignature()
	writeJSON(w, http.StatusOK, s.publish(session))
}

type verifyResponse struct {
	Outcome verification.Outcome `json:"outcome"`
	Session sessionView          `json:"session"`
}

// handleSessionVerify 提交已签名载荷到会话选择的 Issuer
func (s *Server) handleSessionVerify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, err := s.store.Get(id)
	if err != nil {
		writeError(w, r, http.StatusNotFound, codeNotFound, err.Error())
		return
	}
	if session.Signed == nil {
		writeError(w, r, http.StatusConflict, codeNotReady, "payload is not signed")
		return
	}
	if session.IssuerURL == "" {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, "issuer url is not configured")
		return
	}

	res, verr := s.svc.Verification.Verify(r.Context(), &verification.Request{
		IssuerURL:     session.IssuerURL,
		Payload:       session.Signed,
		SignatureType: session.SignatureType,
	})
	outcome := verification.Classify(res, verr, s.svc.DashboardURL())
	s.stats.RecordVerification(session.Signed.Message.Payload.RuleID, outcome.Failed(), outcome.AdditionalVerificationRequired)

	session, err = s.store.Apply(id, verification.SessionEvent(session.Revision, outcome))
	if err != nil {
		s.writeTransitionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Outcome: outcome, Session: s.publish(session)})
}

// ========== KYC 组件 ==========

type widgetSettingsResponse struct {
	Variables []kyc.Variable    `json:"variables"`
	Values    map[string]string `json:"values"`
}

func (s *Server) handleGetWidgetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, widgetSettingsResponse{
		Variables: kyc.Variables(),
		Values:    s.svc.Widget.Values(),
	})
}

func (s *Server) handlePutWidgetSettings(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := readJSON(r, &values); err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if err := s.svc.Widget.ApplyAll(values); err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	s.handleGetWidgetSettings(w, r)
}

func (s *Server) handleWidgetCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(s.svc.Widget.CSS()))
}

// ========== 签名后端演示 ==========

// handleDemoSign 以服务端钱包充当合作方签名后端（POST /sign）
func (s *Server) handleDemoSign(w http.ResponseWriter, r *http.Request) {
	if s.svc.Wallet == nil {
		writeError(w, r, http.StatusServiceUnavailable, codeUnavail, "signer key is not configured")
		return
	}

	var req signer.SignRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if req.Domain.ChainID == 0 {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, "domain.chainId is required")
		return
	}

	typedData, err := signer.BuildTypedData(req.Message, req.Domain.ChainID)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	// 演示后端不拒绝，但签名不会恢复为消息中的账户
	if signerAddr := s.svc.Wallet.Address().Hex(); !utils.EqualAddresses(req.Message.Account.Address, signerAddr) {
		s.logger.Warn("Demo signer address differs from message account", "account", req.Message.Account.Address, "signer", signerAddr)
	}
	sig, err := s.svc.Wallet.SignTypedData(typedData)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, types.PureFIRuleV5Payload{
		Message:   req.Message,
		Signature: hexutil.Encode(sig),
	})
}
