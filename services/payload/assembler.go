package payload

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/purefi/playground-sdk-go/types"
	"github.com/purefi/playground-sdk-go/utils"
)

// Assemble 根据字段值、可见性与字段错误组装 Rule V5 载荷
//
// **规则**：
//   - 标量字段有错误时输出空字符串占位，不中断组装
//   - 隐藏的可选字段组整体省略
//   - 代币 value 仅在 value 与 decimals 均已填写且无错误时换算为 base units
//
// 相同输入总是得到相同输出。
func Assemble(code types.PackageType, fields FieldValues, fieldErrors FieldErrors) types.RuleV5Payload {
	v, err := types.VisibilityFor(code)
	if err != nil {
		// 非法编码：不输出任何可选字段组
		v = types.Visibility{
			IntermediaryHidden: true,
			PayeeHidden:        true,
			Token0Hidden:       true,
			Token1Hidden:       true,
			PaymentHidden:      true,
		}
	}

	scalar := func(name FieldName, value string) string {
		if fieldErrors.Has(name) {
			return ""
		}
		return value
	}

	p := types.RuleV5Payload{
		PackageType: code.String(),
		RuleID:      scalar(FieldRuleID, canonicalInteger(fields.RuleID)),
		From:        scalar(FieldFromAddress, fields.FromAddress),
		To:          scalar(FieldToAddress, fields.ToAddress),
	}

	if !v.IntermediaryHidden {
		p.Intermediary = types.StringPtr(scalar(FieldIntermediaryAddress, fields.IntermediaryAddress))
	}
	if !v.PayeeHidden {
		p.Payee = types.StringPtr(scalar(FieldPayeeAddress, fields.PayeeAddress))
	}
	if !v.Token0Hidden {
		p.TokenData0 = assembleToken(fieldErrors,
			tokenInput{FieldToken0Address, fields.Token0Address},
			tokenInput{FieldToken0Value, fields.Token0Value},
			tokenInput{FieldToken0Decimals, fields.Token0Decimals})
	}
	if !v.Token1Hidden {
		p.TokenData1 = assembleToken(fieldErrors,
			tokenInput{FieldToken1Address, fields.Token1Address},
			tokenInput{FieldToken1Value, fields.Token1Value},
			tokenInput{FieldToken1Decimals, fields.Token1Decimals})
	}
	if !v.PaymentHidden {
		p.PaymentData = assembleToken(fieldErrors,
			tokenInput{FieldTokenPaymentAddress, fields.TokenPaymentAddress},
			tokenInput{FieldTokenPaymentValue, fields.TokenPaymentValue},
			tokenInput{FieldTokenPaymentDecimals, fields.TokenPaymentDecimals})
	}

	return p
}

// maxScaleDecimals 换算 base units 的精度上限；decimals 本身不设上限，
// 超出时 decimals 照常输出，value 保持占位
const maxScaleDecimals = 1 << 10

type tokenInput struct {
	name  FieldName
	value string
}

// scaleExponent decimals 可用于换算时返回指数
func scaleExponent(decimals string) (int, bool) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(decimals), 10)
	if !ok || n.Sign() < 0 || n.Cmp(big.NewInt(maxScaleDecimals)) > 0 {
		return 0, false
	}
	return int(n.Int64()), true
}

// canonicalInteger "007"、"+5" 之类的写法统一为十进制规范形式；无法解析时原样返回
func canonicalInteger(value string) string {
	value = strings.TrimSpace(value)
	if n, ok := new(big.Int).SetString(value, 10); ok {
		return n.String()
	}
	return value
}

func assembleToken(fieldErrors FieldErrors, address, value, decimals tokenInput) *types.TokenData {
	td := &types.TokenData{}

	if !fieldErrors.Has(address.name) {
		td.Address = address.value
	}

	if strings.TrimSpace(decimals.value) == "" || fieldErrors.Has(decimals.name) {
		return td
	}
	n, ok := new(big.Int).SetString(strings.TrimSpace(decimals.value), 10)
	if !ok || n.Sign() < 0 {
		return td
	}
	td.Decimals = n.String()

	exp, ok := scaleExponent(decimals.value)
	if !ok || strings.TrimSpace(value.value) == "" || fieldErrors.Has(value.name) {
		return td
	}
	if base, err := utils.ParseUnits(value.value, exp); err == nil {
		td.Value = base.String()
	}
	return td
}

// AssembleData 将载荷与签名账户、链 ID 组合为待签名消息
func AssembleData(account string, chainID uint64, p types.RuleV5Payload) types.RuleV5Data {
	return types.RuleV5Data{
		Account: types.RuleV5Account{Address: account},
		Chain:   types.RuleV5Chain{ID: strconv.FormatUint(chainID, 10)},
		Payload: p,
	}
}
