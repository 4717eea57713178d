package signer

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/purefi/playground-sdk-go/types"
)

// EIP-712 常量
const (
	DomainName    = "PureFi"
	DomainVersion = "1"
	PrimaryType   = "Data"
)

// Domain EIP-712 域（JSON 形态与浏览器钱包 / 签名后端一致，chainId 为数字）
type Domain struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	ChainID uint64 `json:"chainId"`
}

// TypedDataDomain 转换为 apitypes 域
func (d Domain) TypedDataDomain() apitypes.TypedDataDomain {
	chainID := math.HexOrDecimal256(*new(big.Int).SetUint64(d.ChainID))
	return apitypes.TypedDataDomain{
		Name:    d.Name,
		Version: d.Version,
		ChainId: &chainID,
	}
}

// SignRequest 发送给合作方签名后端的请求体
type SignRequest struct {
	Domain      Domain           `json:"domain"`
	Types       apitypes.Types   `json:"types"`
	PrimaryType string           `json:"primaryType"`
	Message     types.RuleV5Data `json:"message"`
}

// CreateDomain 创建 EIP-712 域
func CreateDomain(name string, chainID uint64) Domain {
	return Domain{Name: name, Version: DomainVersion, ChainID: chainID}
}

// CreateRuleV5Types 按载荷中实际存在的字段生成类型表
//
// 隐藏的字段组不出现在 Payload 类型中，否则哈希时会因缺少值而失败。
func CreateRuleV5Types(p types.RuleV5Payload) apitypes.Types {
	payloadType := []apitypes.Type{
		{Name: "packageType", Type: "uint8"},
		{Name: "ruleId", Type: "uint256"},
		{Name: "from", Type: "address"},
		{Name: "to", Type: "address"},
	}
	if p.Intermediary != nil {
		payloadType = append(payloadType, apitypes.Type{Name: "intermediary", Type: "address"})
	}
	if p.Payee != nil {
		payloadType = append(payloadType, apitypes.Type{Name: "payee", Type: "address"})
	}

	hasToken := false
	for _, tok := range []struct {
		name string
		data *types.TokenData
	}{
		{"tokenData0", p.TokenData0},
		{"tokenData1", p.TokenData1},
		{"paymentData", p.PaymentData},
	} {
		if tok.data != nil {
			payloadType = append(payloadType, apitypes.Type{Name: tok.name, Type: "TokenData"})
			hasToken = true
		}
	}

	t := apitypes.Types{
		"EIP712Domain": {
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
		},
		"Data": {
			{Name: "account", Type: "Account"},
			{Name: "chain", Type: "Chain"},
			{Name: "payload", Type: "Payload"},
		},
		"Account": {{Name: "address", Type: "address"}},
		"Chain":   {{Name: "id", Type: "uint256"}},
		"Payload": payloadType,
	}
	if hasToken {
		t["TokenData"] = []apitypes.Type{
			{Name: "address", Type: "address"},
			{Name: "value", Type: "uint256"},
			{Name: "decimals", Type: "uint256"},
		}
	}
	return t
}

// BuildTypedData 构建 RuleV5Data 的 EIP-712 结构化数据
func BuildTypedData(data types.RuleV5Data, chainID uint64) (apitypes.TypedData, error) {
	if err := checkSignable(data); err != nil {
		return apitypes.TypedData{}, err
	}
	return apitypes.TypedData{
		Types:       CreateRuleV5Types(data.Payload),
		PrimaryType: PrimaryType,
		Domain:      CreateDomain(DomainName, chainID).TypedDataDomain(),
		Message:     messageFor(data),
	}, nil
}

// BuildSignRequest 构建签名后端请求
func BuildSignRequest(data types.RuleV5Data, chainID uint64) *SignRequest {
	return &SignRequest{
		Domain:      CreateDomain(DomainName, chainID),
		Types:       CreateRuleV5Types(data.Payload),
		PrimaryType: PrimaryType,
		Message:     data,
	}
}

// messageFor apitypes 要求嵌套结构为 map[string]interface{}
func messageFor(data types.RuleV5Data) apitypes.TypedDataMessage {
	p := data.Payload
	payload := map[string]interface{}{
		"packageType": p.PackageType,
		"ruleId":      p.RuleID,
		"from":        p.From,
		"to":          p.To,
	}
	if p.Intermediary != nil {
		payload["intermediary"] = *p.Intermediary
	}
	if p.Payee != nil {
		payload["payee"] = *p.Payee
	}
	if p.TokenData0 != nil {
		payload["tokenData0"] = tokenMessage(p.TokenData0)
	}
	if p.TokenData1 != nil {
		payload["tokenData1"] = tokenMessage(p.TokenData1)
	}
	if p.PaymentData != nil {
		payload["paymentData"] = tokenMessage(p.PaymentData)
	}

	return apitypes.TypedDataMessage{
		"account": map[string]interface{}{"address": data.Account.Address},
		"chain":   map[string]interface{}{"id": data.Chain.ID},
		"payload": payload,
	}
}

func tokenMessage(t *types.TokenData) map[string]interface{} {
	return map[string]interface{}{
		"address":  t.Address,
		"value":    t.Value,
		"decimals": t.Decimals,
	}
}

// signableField 待签名字段（名称 + 值）
type signableField struct {
	name  string
	value string
}

// checkSignable 占位符（空字符串）无法编码为 EIP-712 值
func checkSignable(data types.RuleV5Data) error {
	p := data.Payload
	fields := []signableField{
		{"account.address", data.Account.Address},
		{"chain.id", data.Chain.ID},
		{"packageType", p.PackageType},
		{"ruleId", p.RuleID},
		{"from", p.From},
		{"to", p.To},
	}
	if p.Intermediary != nil {
		fields = append(fields, signableField{"intermediary", *p.Intermediary})
	}
	if p.Payee != nil {
		fields = append(fields, signableField{"payee", *p.Payee})
	}
	for _, tok := range []struct {
		name string
		data *types.TokenData
	}{
		{"tokenData0", p.TokenData0},
		{"tokenData1", p.TokenData1},
		{"paymentData", p.PaymentData},
	} {
		if tok.data == nil {
			continue
		}
		fields = append(fields,
			signableField{tok.name + ".address", tok.data.Address},
			signableField{tok.name + ".value", tok.data.Value},
			signableField{tok.name + ".decimals", tok.data.Decimals},
		)
	}

	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("cannot sign payload: %s is empty", f.name)
		}
	}
	return nil
}
