package integration

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purefi/playground-sdk-go/client"
	"github.com/purefi/playground-sdk-go/services"
	"github.com/purefi/playground-sdk-go/services/contract"
	"github.com/purefi/playground-sdk-go/services/payload"
	"github.com/purefi/playground-sdk-go/services/signer"
	"github.com/purefi/playground-sdk-go/services/verification"
	"github.com/purefi/playground-sdk-go/types"
)

// BuildSession 连接测试钱包并选择预设
func BuildSession(t *testing.T, svc *services.Services, tc *TestConfig, presetID string, events ...payload.Event) payload.Session {
	s := payload.NewSession("it", tc.IssuerURL)
	all := append([]payload.Event{
		payload.ConnectWallet{Address: svc.Wallet.Address().Hex(), ChainID: tc.ChainID},
		payload.SelectPreset{ID: presetID},
	}, events...)
	for _, ev := range all {
		var err error
		s, err = payload.TransitionWith(svc.Presets, s, ev)
		require.NoError(t, err, "event %T", ev)
	}
	p := payload.Derive(s)
	require.True(t, p.Ready, "payload not ready: %v", p.Errors)
	return s
}

// SignSession 用本地钱包签名并校验签名者
func SignSession(t *testing.T, svc *services.Services, s payload.Session) *types.PureFIRuleV5Payload {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	signed, err := svc.Signer.Sign(ctx, payload.Derive(s).Data)
	require.NoError(t, err, "sign payload failed")

	ok, err := signer.VerifySignature(signed)
	require.NoError(t, err)
	require.True(t, ok, "signature does not recover to the account")
	return signed
}

// VerifySigned 提交 Issuer 并分类结果
func VerifySigned(t *testing.T, svc *services.Services, tc *TestConfig, signed *types.PureFIRuleV5Payload) verification.Outcome {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	res, err := svc.Verification.Verify(ctx, &verification.Request{
		IssuerURL: tc.IssuerURL,
		Payload:   signed,
	})
	return verification.Classify(res, err, svc.DashboardURL())
}

// WaitForReceiptWithTest 等待交易确认
func WaitForReceiptWithTest(t *testing.T, cs contract.Service, txHash common.Hash) *client.Receipt {
	ctx, cancel := context.WithTimeout(context.Background(), ReceiptTimeout)
	defer cancel()

	r, err := cs.WaitForReceipt(ctx, txHash, &contract.WaitOptions{PollInterval: ReceiptInterval, Timeout: ReceiptTimeout})
	require.NoError(t, err, "wait for receipt failed: %s", txHash.Hex())
	require.NotNil(t, r)
	return r
}

// VerifyTransactionSuccess 校验交易已打包且执行成功
func VerifyTransactionSuccess(t *testing.T, r *client.Receipt) {
	require.NotNil(t, r, "receipt is nil")
	assert.NotEqual(t, common.Hash{}, r.TxHash, "empty transaction hash")
	assert.True(t, r.Succeeded(), "transaction reverted")
	assert.Greater(t, r.BlockNumber, uint64(0), "transaction not mined")
}
