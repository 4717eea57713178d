package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/purefi/playground-sdk-go/config"
	"github.com/purefi/playground-sdk-go/services"
	"github.com/purefi/playground-sdk-go/services/contract"
	"github.com/purefi/playground-sdk-go/services/payload"
	"github.com/purefi/playground-sdk-go/services/signer"
	"github.com/purefi/playground-sdk-go/types"
	"github.com/purefi/playground-sdk-go/wallet"
)

const (
	testKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAccount = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

type testEnv struct {
	ts     *httptest.Server
	srv    *Server
	issuer *httptest.Server
}

// newFakeIssuer ruleId 431050 通过，731 返回 FORBIDDEN
func newFakeIssuer(t *testing.T) *httptest.Server {
	t.Helper()
	issuer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v5/rule" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req struct {
			Message types.RuleV5Data `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch req.Message.Payload.RuleID {
		case "431050":
			_, _ = w.Write([]byte(`"0xpackage"`))
		case "731":
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"code":"FORBIDDEN","message":"KYC required","traceId":"t-1"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":400,"message":"unknown rule"}`))
		}
	}))
	t.Cleanup(issuer.Close)
	return issuer
}

func newTestEnv(t *testing.T, signerKey string) *testEnv {
	t.Helper()
	issuer := newFakeIssuer(t)

	cfg := config.DefaultConfig()
	cfg.Issuer.StageURL = issuer.URL
	cfg.Signer.PrivateKey = signerKey
	cfg.Server.SessionLimit = 8

	svc, err := services.New(services.Config{App: cfg})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	srv := New(svc, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, srv: srv, issuer: issuer}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	resp, err := e.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func (e *testEnv) createSession(t *testing.T) sessionView {
	t.Helper()
	status, body := e.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, status, string(body))
	var view sessionView
	require.NoError(t, json.Unmarshal(body, &view))
	return view
}

func (e *testEnv) postEvents(t *testing.T, id string, events interface{}) (int, sessionView, types.ProblemDetails) {
	t.Helper()
	status, body := e.do(t, http.MethodPost, "/api/sessions/"+id+"/events", events)
	var view sessionView
	var pd types.ProblemDetails
	if status == http.StatusOK {
		require.NoError(t, json.Unmarshal(body, &view))
	} else {
		require.NoError(t, json.Unmarshal(body, &pd))
	}
	return status, view, pd
}

func connectAndPreset(preset string) []payload.EventEnvelope {
	return []payload.EventEnvelope{
		{Type: payload.EventConnectWallet, Address: testAccount, ChainID: 1},
		{Type: payload.EventSelectPreset, Preset: preset},
	}
}

func TestHealthAndCatalog(t *testing.T) {
	env := newTestEnv(t, "")

	status, body := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"ok"`)

	status, body = env.do(t, http.MethodGet, "/api/chains", nil)
	require.Equal(t, http.StatusOK, status)
	var chains struct {
		Chains []config.Chain `json:"chains"`
		Count  int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(body, &chains))
	if diff := cmp.Diff(config.SupportedChains(), chains.Chains); diff != "" {
		t.Errorf("chains mismatch (-want +got):\n%s", diff)
	}

	status, body = env.do(t, http.MethodGet, "/api/presets", nil)
	require.Equal(t, http.StatusOK, status)
	var presets []presetView
	require.NoError(t, json.Unmarshal(body, &presets))
	require.Len(t, presets, 3)
	assert.Equal(t, payload.PresetCustom, presets[0].ID)
	assert.Empty(t, presets[0].Locked)
	assert.NotContains(t, presets[1].Locked, payload.FieldFromAddress)
	assert.Contains(t, presets[1].Locked, payload.FieldRuleID)

	status, body = env.do(t, http.MethodGet, "/api/package-types", nil)
	require.Equal(t, http.StatusOK, status)
	var pts []packageTypeInfo
	require.NoError(t, json.Unmarshal(body, &pts))
	assert.Len(t, pts, len(types.AllPackageTypes()))
}

func TestSessionFlow_AML(t *testing.T) {
	env := newTestEnv(t, testKey)
	view := env.createSession(t)
	assert.Equal(t, env.issuer.URL, view.IssuerURL)
	assert.False(t, view.Preview.Ready)

	status, view, _ := env.postEvents(t, view.ID, connectAndPreset(payload.PresetAML))
	require.Equal(t, http.StatusOK, status)
	require.True(t, view.Preview.Ready, "errors: %v", view.Preview.Errors)
	assert.Equal(t, "431050", view.Preview.Data.Payload.RuleID)
	assert.Equal(t, testAccount, view.Preview.Data.Payload.From)

	// 预设锁定的字段不可编辑
	status, _, pd := env.postEvents(t, view.ID, payload.EventEnvelope{Type: payload.EventSetField, Field: payload.FieldRuleID, Value: "1"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, codeConflict, pd.Code)

	status, body := env.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/sign", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	require.NoError(t, json.Unmarshal(body, &view))
	require.NotNil(t, view.Preview.Signed)

	ok, err := signer.VerifySignature(view.Preview.Signed)
	require.NoError(t, err)
	assert.True(t, ok)

	status, body = env.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/verify", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var vr verifyResponse
	require.NoError(t, json.Unmarshal(body, &vr))
	assert.Equal(t, "0xpackage", vr.Outcome.Package)
	assert.False(t, vr.Outcome.Failed())
	assert.Equal(t, "0xpackage", vr.Session.Preview.Package)

	snap := env.srv.Stats().Snapshot()
	assert.Equal(t, uint64(1), snap.UniqueWallets)
	assert.Equal(t, int64(1), snap.Signatures)
	assert.Equal(t, int64(1), snap.VerificationsByRule["431050"])
}

func TestSessionFlow_KYCForbidden(t *testing.T) {
	env := newTestEnv(t, testKey)
	view := env.createSession(t)

	status, _, _ := env.postEvents(t, view.ID, connectAndPreset(payload.PresetKYC))
	require.Equal(t, http.StatusOK, status)

	status, body := env.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/sign", nil)
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = env.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/verify", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var vr verifyResponse
	require.NoError(t, json.Unmarshal(body, &vr))
	assert.True(t, vr.Outcome.Failed())
	assert.True(t, vr.Outcome.AdditionalVerificationRequired)
	assert.Equal(t, "https://dashboard.purefi.io", vr.Outcome.DashboardURL)
	assert.Equal(t, "t-1", vr.Outcome.TraceID)
	assert.True(t, vr.Session.Preview.AdditionalVerificationRequired)
	assert.Equal(t, int64(1), env.srv.Stats().Snapshot().Forbidden)
}

func TestSessionFlow_CustomSignerBackend(t *testing.T) {
	env := newTestEnv(t, testKey)
	view := env.createSession(t)

	events := append(connectAndPreset(payload.PresetAML),
		payload.EventEnvelope{Type: payload.EventSetCustomSigner, Enabled: true, URL: env.ts.URL + "/sign"})
	status, view, _ := env.postEvents(t, view.ID, events)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, view.CustomSigner)

	status, body := env.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/sign", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	require.NoError(t, json.Unmarshal(body, &view))

	recovered, err := signer.RecoverSigner(view.Preview.Signed)
	require.NoError(t, err)
	assert.Equal(t, testAccount, recovered.Hex())
}

func TestSessionSign_Errors(t *testing.T) {
	env := newTestEnv(t, "")
	view := env.createSession(t)

	// 未连接钱包
	status, body := env.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/sign", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status, string(body))

	// 没有服务端签名方式
	status, _, _ = env.postEvents(t, view.ID, connectAndPreset(payload.PresetAML))
	require.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/sign", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// 未签名不能验证
	status, _ = env.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/verify", nil)
	assert.Equal(t, http.StatusConflict, status)

	// /sign 演示后端需要私钥
	status, _ = env.do(t, http.MethodPost, "/sign", signer.SignRequest{})
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestSessionEvents_Errors(t *testing.T) {
	env := newTestEnv(t, "")
	view := env.createSession(t)

	status, _, pd := env.postEvents(t, "missing", payload.EventEnvelope{Type: payload.EventResetFields})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, codeNotFound, pd.Code)
	assert.NotEmpty(t, pd.TraceID)

	status, _, _ = env.postEvents(t, view.ID, payload.EventEnvelope{Type: "teleport"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _, _ = env.postEvents(t, view.ID, payload.EventEnvelope{Type: payload.EventSetField, Field: payload.FieldPackageType, Value: "99"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _, _ = env.postEvents(t, view.ID, "[]")
	assert.Equal(t, http.StatusBadRequest, status)

	// 过期的签名结果
	stale := payload.EventEnvelope{
		Type:     payload.EventSignatureObtained,
		Revision: 42,
		Payload:  &types.PureFIRuleV5Payload{Signature: "0x01"},
	}
	status, _, _ = env.postEvents(t, view.ID, stale)
	assert.Equal(t, http.StatusConflict, status)

	status, body := env.do(t, http.MethodDelete, "/api/sessions/"+view.ID, nil)
	assert.Equal(t, http.StatusNoContent, status, string(body))
	status, _ = env.do(t, http.MethodGet, "/api/sessions/"+view.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSessionWebSocket(t *testing.T) {
	env := newTestEnv(t, "")
	view := env.createSession(t)

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/api/sessions/" + view.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() pushMessage {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg pushMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	first := read()
	assert.Equal(t, "preview", first.Type)
	assert.Equal(t, view.ID, first.Session.ID)

	// HTTP 事件推送到订阅者
	status, _, _ := env.postEvents(t, view.ID, payload.EventEnvelope{Type: payload.EventSetField, Field: payload.FieldRuleID, Value: "431050"})
	require.Equal(t, http.StatusOK, status)
	pushed := read()
	assert.Equal(t, "431050", pushed.Session.Preview.Fields.RuleID)
	assert.Greater(t, pushed.Session.Preview.Revision, first.Session.Preview.Revision)

	// 通过 WebSocket 发送事件
	require.NoError(t, conn.WriteJSON(payload.EventEnvelope{Type: payload.EventSetField, Field: payload.FieldToAddress, Value: testAccount}))
	pushed = read()
	assert.Equal(t, testAccount, pushed.Session.Preview.Fields.ToAddress)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
}

func TestDemoSign(t *testing.T) {
	env := newTestEnv(t, testKey)

	data := types.RuleV5Data{
		Account: types.RuleV5Account{Address: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"},
		Chain:   types.RuleV5Chain{ID: "137"},
		Payload: types.RuleV5Payload{
			PackageType: "0",
			RuleID:      "431050",
			From:        "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
			To:          payload.PureFiDemoContract,
		},
	}
	status, body := env.do(t, http.MethodPost, "/sign", signer.BuildSignRequest(data, 137))
	require.Equal(t, http.StatusOK, status, string(body))

	var signed types.PureFIRuleV5Payload
	require.NoError(t, json.Unmarshal(body, &signed))
	recovered, err := signer.RecoverSigner(&signed)
	require.NoError(t, err)

	w, err := wallet.NewWalletFromPrivateKey(testKey)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), recovered)

	status, _ = env.do(t, http.MethodPost, "/sign", `{"domain":{"chainId":0}}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestContractMethods(t *testing.T) {
	env := newTestEnv(t, "")

	status, body := env.do(t, http.MethodPost, "/api/contract/methods", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var resp contractMethodsResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	if diff := cmp.Diff(contract.MethodOptions(contract.DemoABI()), resp.Methods); diff != "" {
		t.Errorf("methods mismatch (-want +got):\n%s", diff)
	}

	status, _ = env.do(t, http.MethodPost, "/api/contract/methods", map[string]string{"abi": "{broken"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/api/contract/write", map[string]interface{}{"chainId": 1})
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestWidgetSettings(t *testing.T) {
	env := newTestEnv(t, "")

	status, body := env.do(t, http.MethodPut, "/api/kyc/settings", map[string]string{
		"--purefi_font_size":       "16",
		"--purefi_button_bg_color": "#00FF00",
	})
	require.Equal(t, http.StatusOK, status, string(body))
	var resp widgetSettingsResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "16px", resp.Values["--purefi_font_size"])

	status, _ = env.do(t, http.MethodPut, "/api/kyc/settings", map[string]string{"--purefi_font_size": "40"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = env.do(t, http.MethodGet, "/kyc/widget.css", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "--purefi_font_size: 16px;")
	assert.Contains(t, string(body), "--purefi_button_bg_color: #00ff00;")
}
