package verification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purefi/playground-sdk-go/client"
	"github.com/purefi/playground-sdk-go/services/payload"
	"github.com/purefi/playground-sdk-go/types"
	"github.com/purefi/playground-sdk-go/utils"
)

// newFakeIssuer ruleId 431050 通过，731 需要 KYC，其余 400
func newFakeIssuer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Message types.RuleV5Data `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch req.Message.Payload.RuleID {
		case "431050":
			_, _ = w.Write([]byte(`"0xpackage-` + req.Message.Account.Address + `"`))
		case "731":
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"code":"FORBIDDEN","message":"KYC required"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":400,"message":"unknown rule"}`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newRequest(url, ruleID, account string) *Request {
	return &Request{
		IssuerURL: url,
		Payload: &types.PureFIRuleV5Payload{
			Message: types.RuleV5Data{
				Account: types.RuleV5Account{Address: account},
				Chain:   types.RuleV5Chain{ID: "1"},
				Payload: types.RuleV5Payload{PackageType: "0", RuleID: ruleID, From: account, To: account},
			},
			Signature: "0xsig",
		},
	}
}

func newTestService(t *testing.T) Service {
	t.Helper()
	issuer, err := client.NewIssuerClient(&client.Config{Retry: client.NoRetry()})
	require.NoError(t, err)
	return NewService(issuer, nil)
}

func TestService_Verify(t *testing.T) {
	server := newFakeIssuer(t)
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		req       *Request
		checkFunc func(*testing.T, *Result, error)
	}{
		{
			name: "package issued",
			req:  newRequest(server.URL, "431050", "0xaa"),
			checkFunc: func(t *testing.T, res *Result, err error) {
				require.NoError(t, err)
				assert.Equal(t, "0xpackage-0xaa", res.Package)

				out := Classify(res, err, "")
				assert.False(t, out.Failed())
				assert.Equal(t, "0xpackage-0xaa", out.Package)
			},
		},
		{
			name: "forbidden",
			req:  newRequest(server.URL, "731", "0xaa"),
			checkFunc: func(t *testing.T, res *Result, err error) {
				require.Error(t, err)
				out := Classify(res, err, "https://dashboard.example")
				assert.True(t, out.Failed())
				assert.True(t, out.AdditionalVerificationRequired)
				assert.Equal(t, "https://dashboard.example", out.DashboardURL)
				assert.Equal(t, "KYC required", out.Message)
			},
		},
		{
			name: "rejected",
			req:  newRequest(server.URL, "1", "0xaa"),
			checkFunc: func(t *testing.T, res *Result, err error) {
				out := Classify(res, err, "")
				assert.Equal(t, types.VerificationCodeBadRequest, out.Code)
				assert.False(t, out.AdditionalVerificationRequired)
				assert.Empty(t, out.DashboardURL)
			},
		},
		{
			name: "unsigned payload",
			req: func() *Request {
				r := newRequest(server.URL, "431050", "0xaa")
				r.Payload.Signature = ""
				return r
			}(),
			checkFunc: func(t *testing.T, res *Result, err error) {
				assert.Error(t, err)
				assert.Nil(t, res)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Verify(ctx, tt.req)
			tt.checkFunc(t, res, err)
		})
	}
}

func TestService_VerifyBatch(t *testing.T) {
	server := newFakeIssuer(t)
	svc := newTestService(t)

	reqs := []*Request{
		newRequest(server.URL, "431050", "0x01"),
		newRequest(server.URL, "731", "0x02"),
		newRequest(server.URL, "431050", "0x03"),
	}

	res, err := svc.VerifyBatch(context.Background(), reqs, &utils.BatchConfig{Concurrency: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Success)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, "0xpackage-0x01", res.Items[0].Value.Package)
	assert.Equal(t, "0xpackage-0x03", res.Items[2].Value.Package)

	out := Classify(nil, res.Items[1].Err, "")
	assert.True(t, out.AdditionalVerificationRequired)
	assert.Equal(t, DefaultDashboardURL, out.DashboardURL)
}

func TestClassify_GenericErrors(t *testing.T) {
	out := Classify(nil, context.DeadlineExceeded, "")
	assert.Equal(t, types.VerificationCodeNetwork, out.Code)

	out = Classify(nil, errors.New("boom"), "")
	assert.Equal(t, "boom", out.Message)
	assert.Equal(t, types.VerificationCodeUnknown, out.Code)
}

func TestSessionEvent(t *testing.T) {
	ev := SessionEvent(7, Outcome{Package: "0xpkg"})
	assert.Equal(t, payload.VerificationSucceeded{Revision: 7, Package: "0xpkg"}, ev)

	ev = SessionEvent(8, Outcome{Message: "KYC required", AdditionalVerificationRequired: true})
	assert.Equal(t, payload.VerificationFailed{Revision: 8, Message: "KYC required", Forbidden: true}, ev)
}
