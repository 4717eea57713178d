package payload

import (
	"encoding/json"
	"fmt"

	"github.com/purefi/playground-sdk-go/types"
)

// 事件类型名（JSON 编码中的 type 字段）
const (
	EventSetField              = "setField"
	EventSelectPreset          = "selectPreset"
	EventConnectWallet         = "connectWallet"
	EventResetFields           = "resetFields"
	EventSetIssuer             = "setIssuer"
	EventSetCustomSigner       = "setCustomSigner"
	EventSetSignatureType      = "setSignatureType"
	EventSignatureObtained     = "signatureObtained"
	EventVerificationSucceeded = "verificationSucceeded"
	EventVerificationFailed    = "verificationFailed"
)

// EventEnvelope 事件的 JSON 编码
type EventEnvelope struct {
	Type string `json:"type"`

	Field     FieldName                  `json:"field,omitempty"`
	Value     string                     `json:"value,omitempty"`
	Preset    string                     `json:"preset,omitempty"`
	Address   string                     `json:"address,omitempty"`
	ChainID   uint64                     `json:"chainId,omitempty"`
	URL       string                     `json:"url,omitempty"`
	Enabled   bool                       `json:"enabled,omitempty"`
	Signature types.SignatureType        `json:"signatureType,omitempty"`
	Revision  uint64                     `json:"revision,omitempty"`
	Payload   *types.PureFIRuleV5Payload `json:"payload,omitempty"`
	Package   string                     `json:"package,omitempty"`
	Message   string                     `json:"message,omitempty"`
	Forbidden bool                       `json:"forbidden,omitempty"`
}

// DecodeEvent 解析 JSON 编码的事件
func DecodeEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return env.Event()
}

// Event 将信封转换为具体事件
func (env EventEnvelope) Event() (Event, error) {
	switch env.Type {
	case EventSetField:
		if env.Field == "" {
			return nil, fmt.Errorf("setField: field is required")
		}
		return SetField{Name: env.Field, Value: env.Value}, nil
	case EventSelectPreset:
		return SelectPreset{ID: env.Preset}, nil
	case EventConnectWallet:
		return ConnectWallet{Address: env.Address, ChainID: env.ChainID}, nil
	case EventResetFields:
		return ResetFields{}, nil
	case EventSetIssuer:
		return SetIssuer{URL: env.URL}, nil
	case EventSetCustomSigner:
		return SetCustomSigner{Enabled: env.Enabled, URL: env.URL}, nil
	case EventSetSignatureType:
		return SetSignatureType{Type: env.Signature}, nil
	case EventSignatureObtained:
		if env.Payload == nil {
			return nil, fmt.Errorf("signatureObtained: payload is required")
		}
		return SignatureObtained{Revision: env.Revision, Payload: *env.Payload}, nil
	case EventVerificationSucceeded:
		return VerificationSucceeded{Revision: env.Revision, Package: env.Package}, nil
	case EventVerificationFailed:
		return VerificationFailed{Revision: env.Revision, Message: env.Message, Forbidden: env.Forbidden}, nil
	case "":
		return nil, fmt.Errorf("event type is required")
	}
	return nil, fmt.Errorf("unknown event type: %q", env.Type)
}
