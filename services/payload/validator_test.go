package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purefi/playground-sdk-go/types"
)

func TestValidateRuleID(t *testing.T) {
	tests := []struct {
		value string
		want  []string
	}{
		{"431050", nil},
		{" 731 ", nil},
		{"", []string{"Please enter Rule Id"}},
		{"0", []string{"Rule Id must be positive numeric string"}},
		{"-1", []string{"Rule Id must be positive numeric string"}},
		{"1.5", []string{"Rule Id must be positive numeric string"}},
		{"abc", []string{"Rule Id must be positive numeric string"}},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateRuleID(tt.value))
		})
	}
}

func TestValidateAddress(t *testing.T) {
	assert.Nil(t, ValidateAddress(FieldToAddress, PureFiDemoContract, true))
	assert.Equal(t, []string{"To (Address) Invalid"}, ValidateAddress(FieldToAddress, "0x12", true))
	assert.Equal(t, []string{"Please enter To (Address)"}, ValidateAddress(FieldToAddress, "", true))
	assert.Nil(t, ValidateAddress(FieldPayeeAddress, "", false))
	assert.Equal(t, []string{"Token Payment (Address) Invalid"}, ValidateAddress(FieldTokenPaymentAddress, "zz", false))
}

func TestValidateValue(t *testing.T) {
	assert.Nil(t, ValidateValue("0.001", true))
	assert.Nil(t, ValidateValue("", false))
	assert.Equal(t, []string{"Please enter Value"}, ValidateValue("", true))
	assert.Equal(t, []string{"Value must be positive. Min value is 0.001"}, ValidateValue("0", true))
	assert.Equal(t, []string{"Value must be positive. Min value is 0.001"}, ValidateValue("NaN", true))
}

func TestValidateDecimals(t *testing.T) {
	assert.Nil(t, ValidateDecimals("0", true))
	assert.Nil(t, ValidateDecimals("1000", true))
	assert.Nil(t, ValidateDecimals("", false))
	assert.Equal(t, []string{"Please enter Decimals"}, ValidateDecimals("", true))
	assert.Equal(t, []string{"Decimals must be a non-negative integer"}, ValidateDecimals("-1", true))
	assert.Equal(t, []string{"Decimals must be a non-negative integer"}, ValidateDecimals("1.5", true))
}

func TestValidate_RequiredFollowsVisibility(t *testing.T) {
	fields := DefaultFieldValues(testAccount)
	fields.RuleID = "1"
	fields.ToAddress = PureFiDemoContract

	v0, err := types.VisibilityFor(types.PackageType0)
	require.NoError(t, err)
	assert.True(t, Validate(fields, v0).Empty())

	fields.PackageType = "112"
	v112, err := types.VisibilityFor(types.PackageType112)
	require.NoError(t, err)
	errs := Validate(fields, v112)

	for _, name := range []FieldName{
		FieldPayeeAddress,
		FieldToken0Address, FieldToken0Value,
		FieldToken1Address, FieldToken1Value,
		FieldTokenPaymentAddress, FieldTokenPaymentValue,
	} {
		assert.True(t, errs.Has(name), "expected error for %s", name)
	}
	// decimals 默认 18，已填写
	assert.False(t, errs.Has(FieldToken0Decimals))
	assert.False(t, errs.Has(FieldIntermediaryAddress))
}

func TestValidate_ValueBelowMinimumUnit(t *testing.T) {
	fields := DefaultFieldValues(testAccount)
	fields.PackageType = "32"
	fields.RuleID = "1"
	fields.ToAddress = PureFiDemoContract
	fields.Token0Address = PureFiDemoContract
	fields.Token0Decimals = "18"

	v, err := types.VisibilityFor(types.PackageType32)
	require.NoError(t, err)

	fields.Token0Value = "0.0000000000000000001"
	errs := Validate(fields, v)
	assert.Equal(t, []string{"Value is smaller than the token's minimum unit"}, errs[FieldToken0Value])

	fields.Token0Value = "0.000000000000000001"
	assert.True(t, Validate(fields, v).Empty())

	// decimals 为 0 时小数无法表示
	fields.Token0Value = "0.4"
	fields.Token0Decimals = "0"
	assert.True(t, Validate(fields, v).Has(FieldToken0Value))
}

func TestValidate_HiddenGroupsSkipped(t *testing.T) {
	fields := DefaultFieldValues(testAccount)
	fields.RuleID = "1"
	fields.ToAddress = PureFiDemoContract
	fields.IntermediaryAddress = "0xbad"
	fields.PayeeAddress = "zz"
	fields.Token1Address = "nope"
	fields.TokenPaymentValue = "-1"

	v0, err := types.VisibilityFor(types.PackageType0)
	require.NoError(t, err)
	assert.True(t, Validate(fields, v0).Empty())

	v128, err := types.VisibilityFor(types.PackageType128)
	require.NoError(t, err)
	assert.Equal(t, []string{"Intermediary (Address) Invalid"}, Validate(fields, v128)[FieldIntermediaryAddress])
}

func TestFieldErrors_AsError(t *testing.T) {
	assert.NoError(t, FieldErrors{}.AsError())

	err := FieldErrors{FieldRuleID: {"Please enter Rule Id"}}.AsError()
	require.Error(t, err)
	fve, ok := types.IsFieldValidationError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"Please enter Rule Id"}, fve.Fields["ruleId"])
	assert.Contains(t, err.Error(), "ruleId: Please enter Rule Id")
}
