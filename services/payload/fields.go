package payload

import (
	"fmt"
	"maps"
	"sort"

	"github.com/purefi/playground-sdk-go/types"
)

// FieldName 表单字段名
type FieldName string

const (
	FieldPackageType          FieldName = "packageType"
	FieldRuleID               FieldName = "ruleId"
	FieldFromAddress          FieldName = "fromAddress"
	FieldToAddress            FieldName = "toAddress"
	FieldIntermediaryAddress  FieldName = "intermediaryAddress"
	FieldPayeeAddress         FieldName = "payeeAddress"
	FieldToken0Address        FieldName = "token0Address"
	FieldToken0Value          FieldName = "token0Value"
	FieldToken0Decimals       FieldName = "token0Decimals"
	FieldToken1Address        FieldName = "token1Address"
	FieldToken1Value          FieldName = "token1Value"
	FieldToken1Decimals       FieldName = "token1Decimals"
	FieldTokenPaymentAddress  FieldName = "tokenPaymentAddress"
	FieldTokenPaymentValue    FieldName = "tokenPaymentValue"
	FieldTokenPaymentDecimals FieldName = "tokenPaymentDecimals"
)

// AllFields 全部字段（表单顺序）
var AllFields = []FieldName{
	FieldPackageType,
	FieldRuleID,
	FieldFromAddress,
	FieldToAddress,
	FieldIntermediaryAddress,
	FieldPayeeAddress,
	FieldToken0Address,
	FieldToken0Value,
	FieldToken0Decimals,
	FieldToken1Address,
	FieldToken1Value,
	FieldToken1Decimals,
	FieldTokenPaymentAddress,
	FieldTokenPaymentValue,
	FieldTokenPaymentDecimals,
}

// DefaultDecimals 代币精度字段的默认值
const DefaultDecimals = "18"

// FieldValues 表单字段的原始输入
//
// 所有字段均保存为用户输入的字符串，校验与换算在 Validate / Assemble 中完成。
type FieldValues struct {
	PackageType          string `json:"packageType"`
	RuleID               string `json:"ruleId"`
	FromAddress          string `json:"fromAddress"`
	ToAddress            string `json:"toAddress"`
	IntermediaryAddress  string `json:"intermediaryAddress"`
	PayeeAddress         string `json:"payeeAddress"`
	Token0Address        string `json:"token0Address"`
	Token0Value          string `json:"token0Value"`
	Token0Decimals       string `json:"token0Decimals"`
	Token1Address        string `json:"token1Address"`
	Token1Value          string `json:"token1Value"`
	Token1Decimals       string `json:"token1Decimals"`
	TokenPaymentAddress  string `json:"tokenPaymentAddress"`
	TokenPaymentValue    string `json:"tokenPaymentValue"`
	TokenPaymentDecimals string `json:"tokenPaymentDecimals"`
}

// DefaultFieldValues 自定义模式下的初始值（fromAddress 默认为当前连接的钱包）
func DefaultFieldValues(account string) FieldValues {
	return FieldValues{
		PackageType:          types.PackageType0.String(),
		FromAddress:          account,
		Token0Decimals:       DefaultDecimals,
		Token1Decimals:       DefaultDecimals,
		TokenPaymentDecimals: DefaultDecimals,
	}
}

// ref 返回字段对应的存储位置
func (f *FieldValues) ref(name FieldName) (*string, error) {
	switch name {
	case FieldPackageType:
		return &f.PackageType, nil
	case FieldRuleID:
		return &f.RuleID, nil
	case FieldFromAddress:
		return &f.FromAddress, nil
	case FieldToAddress:
		return &f.ToAddress, nil
	case FieldIntermediaryAddress:
		return &f.IntermediaryAddress, nil
	case FieldPayeeAddress:
		return &f.PayeeAddress, nil
	case FieldToken0Address:
		return &f.Token0Address, nil
	case FieldToken0Value:
		return &f.Token0Value, nil
	case FieldToken0Decimals:
		return &f.Token0Decimals, nil
	case FieldToken1Address:
		return &f.Token1Address, nil
	case FieldToken1Value:
		return &f.Token1Value, nil
	case FieldToken1Decimals:
		return &f.Token1Decimals, nil
	case FieldTokenPaymentAddress:
		return &f.TokenPaymentAddress, nil
	case FieldTokenPaymentValue:
		return &f.TokenPaymentValue, nil
	case FieldTokenPaymentDecimals:
		return &f.TokenPaymentDecimals, nil
	}
	return nil, fmt.Errorf("unknown field: %q", name)
}

// Get 读取字段值
func (f FieldValues) Get(name FieldName) (string, error) {
	p, err := f.ref(name)
	if err != nil {
		return "", err
	}
	return *p, nil
}

// With 返回修改了单个字段后的副本（接收者本身不变）
func (f FieldValues) With(name FieldName, value string) (FieldValues, error) {
	p, err := f.ref(name)
	if err != nil {
		return f, err
	}
	*p = value
	return f, nil
}

// FieldErrors 字段名 -> 错误消息（没有错误的字段不出现）
type FieldErrors map[FieldName][]string

// Has 字段是否有错误
func (e FieldErrors) Has(name FieldName) bool {
	return len(e[name]) > 0
}

// Empty 是否没有任何错误
func (e FieldErrors) Empty() bool {
	for _, msgs := range e {
		if len(msgs) > 0 {
			return false
		}
	}
	return true
}

// AsError 转换为 *types.FieldValidationError，没有错误时返回 nil
func (e FieldErrors) AsError() error {
	if e.Empty() {
		return nil
	}
	fields := make(map[string][]string, len(e))
	for name, msgs := range e {
		if len(msgs) == 0 {
			continue
		}
		fields[string(name)] = append([]string(nil), msgs...)
	}
	return &types.FieldValidationError{Fields: fields}
}

// LockSet 预设锁定（只读）的字段
type LockSet map[FieldName]bool

// Has 字段是否被锁定
func (l LockSet) Has(name FieldName) bool {
	return l[name]
}

// Clone 复制锁定集合
func (l LockSet) Clone() LockSet {
	if l == nil {
		return LockSet{}
	}
	return maps.Clone(l)
}

// Names 排序后的锁定字段名
func (l LockSet) Names() []FieldName {
	names := make([]FieldName, 0, len(l))
	for name, locked := range l {
		if locked {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
