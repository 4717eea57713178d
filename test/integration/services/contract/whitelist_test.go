package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purefi/playground-sdk-go/services/contract"
	"github.com/purefi/playground-sdk-go/services/payload"
	integration "github.com/purefi/playground-sdk-go/test/integration"
)

// TestWhitelist_WithPackage AML 验证得到 package 后调用演示合约 whitelist
func TestWhitelist_WithPackage(t *testing.T) {
	tc := integration.EnsureNodeRunning(t)

	svc := integration.SetupServices(t, tc)
	defer integration.TeardownServices(t, svc)

	s := integration.BuildSession(t, svc, tc, payload.PresetAML)
	outcome := integration.VerifySigned(t, svc, tc, integration.SignSession(t, svc, s))
	if outcome.AdditionalVerificationRequired {
		t.Skipf("signer account needs dashboard verification: %s", outcome.DashboardURL)
	}
	require.False(t, outcome.Failed(), "verification failed: %s", outcome.Message)

	cs, err := svc.Contract(tc.ChainID)
	require.NoError(t, err)

	res, err := cs.Write(t.Context(), &contract.WriteRequest{
		ContractAddress: payload.PureFiDemoContract,
		Method:          "whitelist",
		Args:            []string{outcome.Package},
	})
	require.NoError(t, err, "write whitelist failed")
	assert.Equal(t, tc.ChainID, res.ChainID)
	t.Logf("tx: %s", res.Link)

	receipt := integration.WaitForReceiptWithTest(t, cs, res.TxHash)
	integration.VerifyTransactionSuccess(t, receipt)
}

// TestWrite_MissingPackage 空 _purefidata 在提交前被拒绝
func TestWrite_MissingPackage(t *testing.T) {
	tc := integration.EnsureNodeRunning(t)

	svc := integration.SetupServices(t, tc)
	defer integration.TeardownServices(t, svc)

	cs, err := svc.Contract(tc.ChainID)
	require.NoError(t, err)

	_, err = cs.Write(t.Context(), &contract.WriteRequest{
		ContractAddress: payload.PureFiDemoContract,
		Method:          "whitelist",
		Args:            []string{""},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Please enter _purefidata")
}

// TestQuery_NodeBalance 查询签名账户余额
func TestQuery_NodeBalance(t *testing.T) {
	tc := integration.EnsureNodeRunning(t)

	svc := integration.SetupServices(t, tc)
	defer integration.TeardownServices(t, svc)

	c, err := svc.EVMClient(tc.ChainID)
	require.NoError(t, err)

	balance, err := c.BalanceAt(t.Context(), svc.Wallet.Address())
	require.NoError(t, err)
	assert.Positive(t, balance.Sign(), "signer account has no balance")
}
