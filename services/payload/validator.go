package payload

import (
	"math/big"
	"regexp"
	"strings"

	"github.com/purefi/playground-sdk-go/types"
	"github.com/purefi/playground-sdk-go/utils"
)

// 校验消息
const (
	msgPackageTypeRequired = "Please select Package Type"
	msgPackageTypeInvalid  = "Package Type Invalid"
	msgRuleIDRequired      = "Please enter Rule Id"
	msgRuleIDInvalid       = "Rule Id must be positive numeric string"
	msgValueRequired       = "Please enter Value"
	msgValueInvalid        = "Value must be positive. Min value is 0.001"
	msgValueTooSmall       = "Value is smaller than the token's minimum unit"
	msgDecimalsRequired    = "Please enter Decimals"
	msgDecimalsInvalid     = "Decimals must be a non-negative integer"
)

var decimalsPattern = regexp.MustCompile(`^[0-9]+$`)

// addressLabels 地址字段在错误消息中的名称
var addressLabels = map[FieldName]string{
	FieldFromAddress:         "From",
	FieldToAddress:           "To",
	FieldIntermediaryAddress: "Intermediary",
	FieldPayeeAddress:        "Payee",
	FieldToken0Address:       "Token0",
	FieldToken1Address:       "Token1",
	FieldTokenPaymentAddress: "Token Payment",
}

// ValidatePackageType 必填且属于封闭集合
func ValidatePackageType(value string) []string {
	if strings.TrimSpace(value) == "" {
		return []string{msgPackageTypeRequired}
	}
	if _, err := types.ParsePackageType(value); err != nil {
		return []string{msgPackageTypeInvalid}
	}
	return nil
}

// ValidateRuleID 必填的正整数
func ValidateRuleID(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{msgRuleIDRequired}
	}
	n, ok := new(big.Int).SetString(value, 10)
	if !ok || n.Sign() <= 0 {
		return []string{msgRuleIDInvalid}
	}
	return nil
}

// ValidateAddress 校验地址字段（required 为 false 时空值合法）
func ValidateAddress(name FieldName, value string, required bool) []string {
	label := addressLabels[name]
	if label == "" {
		label = string(name)
	}
	if value == "" {
		if required {
			return []string{"Please enter " + label + " (Address)"}
		}
		return nil
	}
	if !utils.IsHexAddress(value) {
		return []string{label + " (Address) Invalid"}
	}
	return nil
}

// ValidateValue 代币数量：字段组可见时必填，且为正的十进制数
func ValidateValue(value string, required bool) []string {
	if !required {
		return nil
	}
	if strings.TrimSpace(value) == "" {
		return []string{msgValueRequired}
	}
	if _, err := utils.ParsePositiveDecimal(value); err != nil {
		return []string{msgValueInvalid}
	}
	return nil
}

// ValidateDecimals 代币精度：字段组可见时必填，非负整数，不设上限
func ValidateDecimals(value string, required bool) []string {
	if !required {
		return nil
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{msgDecimalsRequired}
	}
	if !decimalsPattern.MatchString(value) {
		return []string{msgDecimalsInvalid}
	}
	return nil
}

// Validate 对全部字段运行校验，返回有错误的字段
//
// 隐藏字段组中的字段不参与任何校验：它们不会进入载荷，残留的旧值不能阻止签名。
func Validate(fields FieldValues, v types.Visibility) FieldErrors {
	errs := FieldErrors{}
	add := func(name FieldName, msgs []string) {
		if len(msgs) > 0 {
			errs[name] = msgs
		}
	}

	add(FieldPackageType, ValidatePackageType(fields.PackageType))
	add(FieldRuleID, ValidateRuleID(fields.RuleID))
	add(FieldFromAddress, ValidateAddress(FieldFromAddress, fields.FromAddress, true))
	add(FieldToAddress, ValidateAddress(FieldToAddress, fields.ToAddress, true))

	if v.Required(types.GroupIntermediary) {
		add(FieldIntermediaryAddress, ValidateAddress(FieldIntermediaryAddress, fields.IntermediaryAddress, true))
	}
	if v.Required(types.GroupPayee) {
		add(FieldPayeeAddress, ValidateAddress(FieldPayeeAddress, fields.PayeeAddress, true))
	}

	token := func(group types.FieldGroup, address, value, decimals tokenInput) {
		if !v.Required(group) {
			return
		}
		add(address.name, ValidateAddress(address.name, address.value, true))
		add(value.name, ValidateValue(value.value, true))
		add(decimals.name, ValidateDecimals(decimals.value, true))
		if !errs.Has(value.name) && !errs.Has(decimals.name) {
			add(value.name, validateScaledValue(value.value, decimals.value))
		}
	}
	token(types.GroupToken0,
		tokenInput{FieldToken0Address, fields.Token0Address},
		tokenInput{FieldToken0Value, fields.Token0Value},
		tokenInput{FieldToken0Decimals, fields.Token0Decimals})
	token(types.GroupToken1,
		tokenInput{FieldToken1Address, fields.Token1Address},
		tokenInput{FieldToken1Value, fields.Token1Value},
		tokenInput{FieldToken1Decimals, fields.Token1Decimals})
	token(types.GroupPaymentData,
		tokenInput{FieldTokenPaymentAddress, fields.TokenPaymentAddress},
		tokenInput{FieldTokenPaymentValue, fields.TokenPaymentValue},
		tokenInput{FieldTokenPaymentDecimals, fields.TokenPaymentDecimals})

	return errs
}

// validateScaledValue 换算后为 0 个 base unit 的数量不可用。
// decimals 超出 maxScaleDecimals 时不换算，交给组装阶段占位。
func validateScaledValue(value, decimals string) []string {
	exp, ok := scaleExponent(decimals)
	if !ok {
		return nil
	}
	base, err := utils.ParseUnits(value, exp)
	if err != nil || base.Sign() > 0 {
		return nil
	}
	return []string{msgValueTooSmall}
}
