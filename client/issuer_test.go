package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purefi/playground-sdk-go/types"
)

func testSignedPayload() *types.PureFIRuleV5Payload {
	return &types.PureFIRuleV5Payload{
		Message: types.RuleV5Data{
			Account: types.RuleV5Account{Address: "0x1111111111111111111111111111111111111111"},
			Chain:   types.RuleV5Chain{ID: "1"},
			Payload: types.RuleV5Payload{PackageType: "0", RuleID: "431050"},
		},
		Signature: "0xsig",
	}
}

func TestIssuerClient_VerifyRuleV5(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantPackage  string
		checkErrFunc func(*testing.T, error)
	}{
		{
			name:        "json string package",
			status:      200,
			body:        `"0xpackage"`,
			wantPackage: "0xpackage",
		},
		{
			name:        "object package",
			status:      200,
			body:        `{"package":"0xobj"}`,
			wantPackage: "0xobj",
		},
		{
			name:        "plain text package",
			status:      200,
			body:        `0xplain`,
			wantPackage: "0xplain",
		},
		{
			name:   "forbidden requires additional verification",
			status: 403,
			body:   `{"code": 403, "message": "KYC verification required"}`,
			checkErrFunc: func(t *testing.T, err error) {
				verr, ok := types.IsRemoteVerificationError(err)
				require.True(t, ok)
				assert.True(t, verr.IsForbidden())
				assert.Equal(t, "KYC verification required", verr.Message)
				assert.Equal(t, 403, verr.Status)
			},
		},
		{
			name:   "rfc7807 bad request",
			status: 400,
			body:   `{"type":"about:blank","title":"Bad Request","status":400,"detail":"invalid signature"}`,
			checkErrFunc: func(t *testing.T, err error) {
				verr, ok := types.IsRemoteVerificationError(err)
				require.True(t, ok)
				assert.Equal(t, types.VerificationCodeBadRequest, verr.Code)
				assert.Equal(t, "invalid signature", verr.Message)
				assert.NotEmpty(t, verr.TraceID)
			},
		},
		{
			name:   "unparseable server error",
			status: 500,
			body:   `<html>oops</html>`,
			checkErrFunc: func(t *testing.T, err error) {
				verr, ok := types.IsRemoteVerificationError(err)
				require.True(t, ok)
				assert.Equal(t, types.VerificationCodeInternalError, verr.Code)
				assert.Equal(t, "<html>oops</html>", verr.Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, IssuerRuleV5Path, r.URL.Path)
				var req map[string]interface{}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "0xsig", req["signature"])
				assert.Equal(t, "ecdsa", req["signatureType"])
				assert.Contains(t, req, "message")

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c, err := NewIssuerClient(&Config{Retry: NoRetry()})
			require.NoError(t, err)

			pkg, err := c.VerifyRuleV5(context.Background(), server.URL+"/", testSignedPayload(), "")
			if tt.checkErrFunc != nil {
				require.Error(t, err)
				tt.checkErrFunc(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPackage, pkg)
		})
	}
}

func TestIssuerClient_Validation(t *testing.T) {
	c, err := NewIssuerClient(&Config{Retry: NoRetry()})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.VerifyRuleV5(ctx, "http://issuer", nil, types.SignatureTypeECDSA)
	assert.Error(t, err)

	_, err = c.VerifyRuleV5(ctx, "http://issuer", testSignedPayload(), "rsa")
	assert.Error(t, err)

	_, err = c.VerifyRuleV5(ctx, "", testSignedPayload(), types.SignatureTypeECDSA)
	assert.Error(t, err)
}

func TestIssuerClient_NetworkError(t *testing.T) {
	c, err := NewIssuerClient(&Config{Retry: NoRetry()})
	require.NoError(t, err)

	_, err = c.VerifyRuleV5(context.Background(), "http://127.0.0.1:1", testSignedPayload(), types.SignatureTypeBabyJubJub)
	verr, ok := types.IsRemoteVerificationError(err)
	require.True(t, ok)
	assert.Equal(t, types.VerificationCodeNetwork, verr.Code)
}
