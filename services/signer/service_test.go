package signer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purefi/playground-sdk-go/client"
	"github.com/purefi/playground-sdk-go/types"
	"github.com/purefi/playground-sdk-go/wallet"
)

const testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func testWallet(t *testing.T) wallet.Wallet {
	t.Helper()
	w, err := wallet.NewWalletFromPrivateKey(testPrivateKey)
	require.NoError(t, err)
	return w
}

func amlData(account string) types.RuleV5Data {
	return types.RuleV5Data{
		Account: types.RuleV5Account{Address: account},
		Chain:   types.RuleV5Chain{ID: "1"},
		Payload: types.RuleV5Payload{
			PackageType: "32",
			RuleID:      "431050",
			From:        account,
			To:          "0xd9f7c12906af9fd2264967fc7d4faa8a08d09dfa",
			TokenData0: &types.TokenData{
				Address:  "0x0000000000000000000000000000000000000000",
				Value:    "1000000000000000",
				Decimals: "18",
			},
		},
	}
}

func TestCreateRuleV5Types(t *testing.T) {
	data := amlData("0x01")

	tt := CreateRuleV5Types(data.Payload)
	assert.Contains(t, tt, "TokenData")
	names := make([]string, 0, len(tt["Payload"]))
	for _, f := range tt["Payload"] {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"packageType", "ruleId", "from", "to", "tokenData0"}, names)

	data.Payload.TokenData0 = nil
	tt = CreateRuleV5Types(data.Payload)
	assert.NotContains(t, tt, "TokenData")
	assert.Len(t, tt["Payload"], 4)
}

func TestBuildTypedData_Placeholder(t *testing.T) {
	data := amlData("0x01")
	data.Payload.TokenData0.Value = ""

	_, err := BuildTypedData(data, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tokenData0.value")
}

func TestService_SignAndRecover(t *testing.T) {
	w := testWallet(t)
	svc := NewServiceWithWallet(nil, w)
	data := amlData(w.Address().Hex())

	signed, err := svc.Sign(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, data, signed.Message)
	assert.Len(t, signed.Signature, 2+65*2)

	recovered, err := RecoverSigner(signed)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), recovered)

	ok, err := VerifySignature(signed)
	require.NoError(t, err)
	assert.True(t, ok)

	// 不同链上签名不可复用
	signed.Message.Chain.ID = "137"
	ok, err = VerifySignature(signed)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_SignErrors(t *testing.T) {
	w := testWallet(t)
	ctx := context.Background()

	tests := []struct {
		name string
		svc  Service
		data types.RuleV5Data
	}{
		{name: "no wallet", svc: NewService(nil), data: amlData(w.Address().Hex())},
		{name: "account mismatch", svc: NewServiceWithWallet(nil, w), data: amlData("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")},
		{
			name: "bad chain id",
			svc:  NewServiceWithWallet(nil, w),
			data: func() types.RuleV5Data {
				d := amlData(w.Address().Hex())
				d.Chain.ID = "mainnet"
				return d
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.Sign(ctx, tt.data)
			_, ok := types.IsRemoteSigningError(err)
			assert.True(t, ok, "got %v", err)
		})
	}
}

func TestService_SignWithBackend(t *testing.T) {
	w := testWallet(t)
	local := NewServiceWithWallet(nil, w)

	// 签名后端用同一私钥本地签名，模拟合作方服务
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var req SignRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, PrimaryType, req.PrimaryType)
		assert.Equal(t, DomainName, req.Domain.Name)
		assert.Equal(t, uint64(1), req.Domain.ChainID)

		signed, err := local.Sign(r.Context(), req.Message)
		require.NoError(t, err)
		_ = json.NewEncoder(rw).Encode(signed)
	}))
	defer server.Close()

	backend, err := client.NewSignerClient(&client.Config{Retry: client.NoRetry()})
	require.NoError(t, err)
	svc := NewService(backend)

	signed, err := svc.SignWithBackend(context.Background(), server.URL, amlData(w.Address().Hex()))
	require.NoError(t, err)

	recovered, err := RecoverSigner(signed)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), recovered)

	_, err = NewService(nil).SignWithBackend(context.Background(), server.URL, amlData(w.Address().Hex()))
	_, ok := types.IsRemoteSigningError(err)
	assert.True(t, ok)
}
