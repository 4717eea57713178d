package types

// TokenData 代币数据（tokenData0 / tokenData1 / paymentData）
//
// Value 为按 Decimals 缩放后的整数字符串（base units）；未就绪的字段为空字符串。
type TokenData struct {
	Address  string `json:"address"`
	Value    string `json:"value"`
	Decimals string `json:"decimals"`
}

// RuleV5Payload Rule V5 载荷
//
// 字段顺序即 JSON 输出顺序；隐藏的可选字段组为 nil，序列化时整体省略，
// 可见但未就绪的字段以空字符串占位。
type RuleV5Payload struct {
	PackageType  string     `json:"packageType"`
	RuleID       string     `json:"ruleId"`
	From         string     `json:"from"`
	To           string     `json:"to"`
	Intermediary *string    `json:"intermediary,omitempty"`
	Payee        *string    `json:"payee,omitempty"`
	TokenData0   *TokenData `json:"tokenData0,omitempty"`
	TokenData1   *TokenData `json:"tokenData1,omitempty"`
	PaymentData  *TokenData `json:"paymentData,omitempty"`
}

// RuleV5Account 签名账户
type RuleV5Account struct {
	Address string `json:"address"`
}

// RuleV5Chain 链信息（ID 为十进制字符串）
type RuleV5Chain struct {
	ID string `json:"id"`
}

// RuleV5Data 待签名的完整消息
type RuleV5Data struct {
	Account RuleV5Account `json:"account"`
	Chain   RuleV5Chain   `json:"chain"`
	Payload RuleV5Payload `json:"payload"`
}

// PureFIRuleV5Payload 已签名载荷（提交给 Issuer）
type PureFIRuleV5Payload struct {
	Message   RuleV5Data `json:"message"`
	Signature string     `json:"signature"`
}

// SignatureType Issuer 签发 package 使用的签名算法
type SignatureType string

const (
	SignatureTypeECDSA      SignatureType = "ecdsa"
	SignatureTypeBabyJubJub SignatureType = "babyjubjub"
)

// Valid 是否为支持的签名算法
func (s SignatureType) Valid() bool {
	return s == SignatureTypeECDSA || s == SignatureTypeBabyJubJub
}

// StringPtr 返回字符串指针
func StringPtr(s string) *string {
	return &s
}
