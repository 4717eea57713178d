package types

import (
	"strconv"
	"strings"
)

// PackageType Rule V5 载荷的 package type 编码
//
// **取值**：封闭集合 {0, 32, 48, 64, 96, 112, 128, 160, 176, 192, 224, 240}
//
// 每个编码唯一对应一组必填的可选字段组（intermediary/payee/token0/token1/paymentData），
// 对应关系见 packageTypeRegistry，运行期不可修改。
type PackageType uint8

const (
	PackageType0   PackageType = 0
	PackageType32  PackageType = 32
	PackageType48  PackageType = 48
	PackageType64  PackageType = 64
	PackageType96  PackageType = 96
	PackageType112 PackageType = 112
	PackageType128 PackageType = 128
	PackageType160 PackageType = 160
	PackageType176 PackageType = 176
	PackageType192 PackageType = 192
	PackageType224 PackageType = 224
	PackageType240 PackageType = 240
)

// FieldGroup 载荷中的可选字段组
type FieldGroup string

const (
	GroupIntermediary FieldGroup = "intermediary"
	GroupPayee        FieldGroup = "payee"
	GroupToken0       FieldGroup = "token0"
	GroupToken1       FieldGroup = "token1"
	GroupPaymentData  FieldGroup = "paymentData"
)

// FieldGroups 字段组的规范顺序（同时也是载荷中的输出顺序）
var FieldGroups = []FieldGroup{
	GroupIntermediary,
	GroupPayee,
	GroupToken0,
	GroupToken1,
	GroupPaymentData,
}

// groupSet 一个 package type 所需字段组
type groupSet struct {
	intermediary bool
	payee        bool
	token0       bool
	token1       bool
	paymentData  bool
}

// packageTypeRegistry package type -> 必填字段组
var packageTypeRegistry = map[PackageType]groupSet{
	PackageType0:   {},
	PackageType32:  {token0: true},
	PackageType48:  {token0: true, token1: true},
	PackageType64:  {payee: true, paymentData: true},
	PackageType96:  {payee: true, token0: true, paymentData: true},
	PackageType112: {payee: true, token0: true, token1: true, paymentData: true},
	PackageType128: {intermediary: true},
	PackageType160: {intermediary: true, token0: true},
	PackageType176: {intermediary: true, token0: true, token1: true},
	PackageType192: {intermediary: true, payee: true, paymentData: true},
	PackageType224: {intermediary: true, payee: true, token0: true, paymentData: true},
	PackageType240: {intermediary: true, payee: true, token0: true, token1: true, paymentData: true},
}

// allPackageTypes 升序排列的全部合法编码
var allPackageTypes = []PackageType{
	PackageType0, PackageType32, PackageType48, PackageType64,
	PackageType96, PackageType112, PackageType128, PackageType160,
	PackageType176, PackageType192, PackageType224, PackageType240,
}

// AllPackageTypes 返回全部合法 package type（升序，调用方可修改返回的切片）
func AllPackageTypes() []PackageType {
	out := make([]PackageType, len(allPackageTypes))
	copy(out, allPackageTypes)
	return out
}

// PackageTypeFromCode 将整数编码转换为 PackageType
func PackageTypeFromCode(code int) (PackageType, error) {
	if code < 0 || code > 255 {
		return 0, &InvalidPackageTypeError{Value: strconv.Itoa(code)}
	}
	pt := PackageType(code)
	if !pt.Valid() {
		return 0, &InvalidPackageTypeError{Value: strconv.Itoa(code)}
	}
	return pt, nil
}

// ParsePackageType 解析十进制字符串形式的 package type
func ParsePackageType(s string) (PackageType, error) {
	code, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &InvalidPackageTypeError{Value: s}
	}
	return PackageTypeFromCode(code)
}

// Valid 是否属于封闭集合
func (p PackageType) Valid() bool {
	_, ok := packageTypeRegistry[p]
	return ok
}

// String 十进制字符串（载荷中的 packageType 字段即为该形式）
func (p PackageType) String() string {
	return strconv.Itoa(int(p))
}

// GroupsRequiredFor 返回 package type 所需的字段组（规范顺序）
func GroupsRequiredFor(code PackageType) ([]FieldGroup, error) {
	set, ok := packageTypeRegistry[code]
	if !ok {
		return nil, &InvalidPackageTypeError{Value: code.String()}
	}

	groups := make([]FieldGroup, 0, len(FieldGroups))
	if set.intermediary {
		groups = append(groups, GroupIntermediary)
	}
	if set.payee {
		groups = append(groups, GroupPayee)
	}
	if set.token0 {
		groups = append(groups, GroupToken0)
	}
	if set.token1 {
		groups = append(groups, GroupToken1)
	}
	if set.paymentData {
		groups = append(groups, GroupPaymentData)
	}
	return groups, nil
}

// Visibility 字段组的隐藏标记
//
// 字段组隐藏 <=> 不在 GroupsRequiredFor 结果中；未隐藏的字段组即为必填。
type Visibility struct {
	IntermediaryHidden bool `json:"intermediaryHidden"`
	PayeeHidden        bool `json:"payeeHidden"`
	Token0Hidden       bool `json:"token0Hidden"`
	Token1Hidden       bool `json:"token1Hidden"`
	PaymentHidden      bool `json:"paymentHidden"`
}

// VisibilityFor 计算 package type 对应的可见性
func VisibilityFor(code PackageType) (Visibility, error) {
	groups, err := GroupsRequiredFor(code)
	if err != nil {
		return Visibility{}, err
	}

	v := Visibility{
		IntermediaryHidden: true,
		PayeeHidden:        true,
		Token0Hidden:       true,
		Token1Hidden:       true,
		PaymentHidden:      true,
	}
	for _, g := range groups {
		switch g {
		case GroupIntermediary:
			v.IntermediaryHidden = false
		case GroupPayee:
			v.PayeeHidden = false
		case GroupToken0:
			v.Token0Hidden = false
		case GroupToken1:
			v.Token1Hidden = false
		case GroupPaymentData:
			v.PaymentHidden = false
		}
	}
	return v, nil
}

// Hidden 指定字段组是否隐藏
func (v Visibility) Hidden(g FieldGroup) bool {
	switch g {
	case GroupIntermediary:
		return v.IntermediaryHidden
	case GroupPayee:
		return v.PayeeHidden
	case GroupToken0:
		return v.Token0Hidden
	case GroupToken1:
		return v.Token1Hidden
	case GroupPaymentData:
		return v.PaymentHidden
	}
	return true
}

// Required 指定字段组是否必填
func (v Visibility) Required(g FieldGroup) bool {
	return !v.Hidden(g)
}
