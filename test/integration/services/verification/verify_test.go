package verification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purefi/playground-sdk-go/services/payload"
	svcverification "github.com/purefi/playground-sdk-go/services/verification"
	integration "github.com/purefi/playground-sdk-go/test/integration"
)

// TestVerify_AMLPreset AML 预设签名后提交 stage Issuer
func TestVerify_AMLPreset(t *testing.T) {
	tc := integration.EnsureIssuer(t)

	svc := integration.SetupServices(t, tc)
	defer integration.TeardownServices(t, svc)

	s := integration.BuildSession(t, svc, tc, payload.PresetAML)
	signed := integration.SignSession(t, svc, s)

	outcome := integration.VerifySigned(t, svc, tc, signed)
	if outcome.AdditionalVerificationRequired {
		t.Logf("account needs dashboard verification: %s", outcome.DashboardURL)
		return
	}
	require.False(t, outcome.Failed(), "verification failed: %s (%s)", outcome.Message, outcome.Code)
	assert.NotEmpty(t, outcome.Package)
	t.Logf("package: %s", outcome.Package)
}

// TestVerify_KYCPresetFreshWallet 新钱包未完成 KYC，Issuer 应要求额外验证
func TestVerify_KYCPresetFreshWallet(t *testing.T) {
	tc := integration.EnsureIssuer(t)

	svc := integration.SetupServices(t, tc)
	defer integration.TeardownServices(t, svc)

	fresh := integration.CreateTestWallet(t)
	s := integration.BuildSession(t, svc, tc, payload.PresetKYC)
	s, err := payload.TransitionWith(svc.Presets, s, payload.ConnectWallet{Address: fresh.Address().Hex(), ChainID: tc.ChainID})
	require.NoError(t, err)

	signed, err := svc.Signer.Sign(t.Context(), payload.Derive(s).Data, fresh)
	require.NoError(t, err)

	outcome := integration.VerifySigned(t, svc, tc, signed)
	require.True(t, outcome.Failed())
	assert.True(t, outcome.AdditionalVerificationRequired, "unexpected failure: %s (%s)", outcome.Message, outcome.Code)
	assert.Equal(t, svc.DashboardURL(), outcome.DashboardURL)
}

// TestVerify_Batch 并发提交多个载荷，结果与输入顺序一致
func TestVerify_Batch(t *testing.T) {
	tc := integration.EnsureIssuer(t)

	svc := integration.SetupServices(t, tc)
	defer integration.TeardownServices(t, svc)

	aml := integration.SignSession(t, svc, integration.BuildSession(t, svc, tc, payload.PresetAML))
	kyc := integration.SignSession(t, svc, integration.BuildSession(t, svc, tc, payload.PresetKYC))

	res, err := svc.Verification.VerifyBatch(t.Context(), []*svcverification.Request{
		{IssuerURL: tc.IssuerURL, Payload: aml},
		{IssuerURL: tc.IssuerURL, Payload: kyc},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
}
