package contract

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mixedABI = `[
  {"type":"function","name":"balanceOf","stateMutability":"view",
   "inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"configure","stateMutability":"nonpayable",
   "inputs":[
     {"name":"level","type":"uint8"},
     {"name":"delta","type":"int64"},
     {"name":"amount","type":"uint24"},
     {"name":"enabled","type":"bool"},
     {"name":"salt","type":"bytes32"},
     {"name":"label","type":"string"}
   ],"outputs":[]},
  {"type":"function","name":"legacyRead","constant":true,
   "inputs":[],"outputs":[{"name":"","type":"bool"}]},
  {"type":"event","name":"Configured","inputs":[]}
]`

func selector(sig string) string {
	return hexutil.Encode(crypto.Keccak256([]byte(sig))[:4])
}

func TestMethodOptions_DemoABI(t *testing.T) {
	options := MethodOptions(DemoABI())
	require.Len(t, options, 3)

	want := []string{
		fmt.Sprintf("deposit (%s)", selector("deposit(uint256,address,bytes)")),
		fmt.Sprintf("whitelist (%s)", selector("whitelist(bytes)")),
		fmt.Sprintf("withdraw (%s)", selector("withdraw(uint256,address,address,bytes)")),
	}
	for i, opt := range options {
		assert.Equal(t, want[i], opt.Label)
	}

	assert.Equal(t, "0xfaa9bce9", options[0].Selector)
	assert.Equal(t, []InputParam{
		{Name: "assets", Type: "uint256"},
		{Name: "receiver", Type: "address"},
		{Name: "_purefidata", Type: "bytes"},
	}, options[0].Inputs)
}

func TestMethodOptions_SkipsViews(t *testing.T) {
	parsed, err := ParseABI(mixedABI)
	require.NoError(t, err)

	options := MethodOptions(parsed)
	require.Len(t, options, 1)
	assert.Equal(t, "configure", options[0].Name)
}

func TestParseABI_Invalid(t *testing.T) {
	_, err := ParseABI("")
	assert.Error(t, err)
	_, err = ParseABI("{not json")
	assert.Error(t, err)
}

func TestFindMethod(t *testing.T) {
	parsed := DemoABI()

	m, err := FindMethod(parsed, "whitelist")
	require.NoError(t, err)
	assert.Equal(t, "whitelist", m.Name)

	m, err = FindMethod(parsed, "0xfaa9bce9")
	require.NoError(t, err)
	assert.Equal(t, "deposit", m.Name)

	_, err = FindMethod(parsed, "0xdeadbeef")
	assert.Error(t, err)
	_, err = FindMethod(parsed, "mint")
	assert.Error(t, err)
}

func TestCoerceArgs(t *testing.T) {
	parsed, err := ParseABI(mixedABI)
	require.NoError(t, err)
	method := parsed.Methods["configure"]

	tests := []struct {
		name      string
		values    []string
		wantErr   string
		checkFunc func(*testing.T, []interface{})
	}{
		{
			name:   "all types",
			values: []string{"7", "-42", "0x10", "false", "0x01", "hello"},
			checkFunc: func(t *testing.T, args []interface{}) {
				assert.Equal(t, uint8(7), args[0])
				assert.Equal(t, int64(-42), args[1])
				assert.Equal(t, big.NewInt(16), args[2])
				assert.Equal(t, false, args[3])
				var salt [32]byte
				salt[0] = 0x01
				assert.Equal(t, salt, args[4])
				assert.Equal(t, "hello", args[5])
			},
		},
		{
			name:   "bool zero is false, anything else true",
			values: []string{"1", "1", "1", "0", "0x", "x"},
			checkFunc: func(t *testing.T, args []interface{}) {
				assert.Equal(t, false, args[3])
			},
		},
		{
			name:   "bool yes is true",
			values: []string{"1", "1", "1", "yes", "0x", "x"},
			checkFunc: func(t *testing.T, args []interface{}) {
				assert.Equal(t, true, args[3])
			},
		},
		{name: "empty value", values: []string{"", "1", "1", "true", "0x", "x"}, wantErr: "Please enter level"},
		{name: "uint overflow", values: []string{"256", "1", "1", "true", "0x", "x"}, wantErr: "level overflows uint8"},
		{name: "negative uint", values: []string{"-1", "1", "1", "true", "0x", "x"}, wantErr: "level must be non-negative"},
		{name: "not numeric", values: []string{"abc", "1", "1", "true", "0x", "x"}, wantErr: "level must be numeric"},
		{name: "bad hex", values: []string{"1", "1", "1", "true", "zz", "x"}, wantErr: "salt must be valid hex"},
		{name: "wrong count", values: []string{"1"}, wantErr: "expects 6 arguments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := CoerceArgs(method, tt.values)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.checkFunc(t, args)
		})
	}
}

func TestPackCall_Deposit(t *testing.T) {
	parsed := DemoABI()
	method, err := FindMethod(parsed, "deposit")
	require.NoError(t, err)

	receiver := "0xd9f7c12906af9fd2264967fc7d4faa8a08d09dfa"
	data, err := PackCall(parsed, method, []string{"1000", receiver, "0xcafe"})
	require.NoError(t, err)

	assert.Equal(t, "0xfaa9bce9", hexutil.Encode(data[:4]))

	decoded, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), decoded[0])
	assert.Equal(t, common.HexToAddress(receiver), decoded[1])
	assert.Equal(t, []byte{0xca, 0xfe}, decoded[2])

	_, err = PackCall(parsed, method, []string{"1000", "0x1234", "0xcafe"})
	assert.ErrorContains(t, err, "receiver Invalid")
}
