package payload

import (
	"errors"
	"fmt"
	"strings"

	"github.com/purefi/playground-sdk-go/types"
)

// DefaultCustomSignerURL 打开自定义签名后端时填入的默认地址
const DefaultCustomSignerURL = "http://localhost:5000/sign"

var (
	// ErrFieldLocked 预设锁定的字段不可编辑
	ErrFieldLocked = errors.New("field is locked by preset")

	// ErrStaleResult 签名/验证结果对应的会话版本已失效
	ErrStaleResult = errors.New("result belongs to an outdated session revision")
)

// Session 单个编辑会话的不可变快照
//
// 所有修改都通过 Transition 产生新快照；Revision 在每次使签名失效的修改后递增，
// 异步返回的签名与验证结果必须携带发起时的 Revision。
type Session struct {
	ID       string
	Revision uint64

	PresetID string
	Fields   FieldValues
	Locks    LockSet

	// 钱包
	Account string
	ChainID uint64

	// 基础设置
	IssuerURL       string
	CustomSigner    bool
	CustomSignerURL string
	SignatureType   types.SignatureType

	// 签名与验证结果（任何输入变化后清空）
	Signed                         *types.PureFIRuleV5Payload
	Package                        string
	VerificationError              string
	AdditionalVerificationRequired bool
}

// NewSession 创建自定义模式的初始会话
func NewSession(id, issuerURL string) Session {
	return Session{
		ID:            id,
		PresetID:      PresetCustom,
		Fields:        DefaultFieldValues(""),
		Locks:         LockSet{},
		IssuerURL:     issuerURL,
		SignatureType: types.SignatureTypeECDSA,
	}
}

// WalletConnected 是否已连接钱包
func (s Session) WalletConnected() bool {
	return s.Account != "" && s.ChainID != 0
}

// Event 会话事件
type Event interface {
	apply(s Session, registry *Registry) (Session, error)
}

// SetField 编辑单个字段
type SetField struct {
	Name  FieldName
	Value string
}

// SelectPreset 切换预设
type SelectPreset struct {
	ID string
}

// ConnectWallet 连接（或切换）钱包；Address 为空表示断开
type ConnectWallet struct {
	Address string
	ChainID uint64
}

// ResetFields 恢复字段默认值（保留当前预设的锁定字段）
type ResetFields struct{}

// SetIssuer 切换 Issuer 地址
type SetIssuer struct {
	URL string
}

// SetCustomSigner 开关自定义签名后端；URL 为空时使用默认地址
type SetCustomSigner struct {
	Enabled bool
	URL     string
}

// SetSignatureType 切换 Issuer 签名算法
type SetSignatureType struct {
	Type types.SignatureType
}

// SignatureObtained 签名完成
type SignatureObtained struct {
	Revision uint64
	Payload  types.PureFIRuleV5Payload
}

// VerificationSucceeded Issuer 返回 package
type VerificationSucceeded struct {
	Revision uint64
	Package  string
}

// VerificationFailed Issuer 验证失败
type VerificationFailed struct {
	Revision  uint64
	Message   string
	Forbidden bool
}

// Transition 对会话应用事件，返回新快照（old 不变）
func Transition(old Session, event Event) (Session, error) {
	return TransitionWith(DefaultRegistry, old, event)
}

// TransitionWith 使用指定的预设注册表应用事件
func TransitionWith(registry *Registry, old Session, event Event) (Session, error) {
	if event == nil {
		return old, fmt.Errorf("event is nil")
	}
	if registry == nil {
		registry = DefaultRegistry
	}
	next := old
	next.Locks = old.Locks.Clone()
	if old.Signed != nil {
		signed := *old.Signed
		next.Signed = &signed
	}
	return event.apply(next, registry)
}

// invalidate 清空签名与验证结果并推进版本
func (s Session) invalidate() Session {
	s.Revision++
	s.Signed = nil
	s.Package = ""
	s.VerificationError = ""
	s.AdditionalVerificationRequired = false
	return s
}

func (e SetField) apply(s Session, _ *Registry) (Session, error) {
	if s.Locks.Has(e.Name) {
		return s, fmt.Errorf("%w: %s", ErrFieldLocked, e.Name)
	}
	if e.Name == FieldPackageType {
		if _, err := types.ParsePackageType(e.Value); err != nil {
			return s, err
		}
	}
	current, err := s.Fields.Get(e.Name)
	if err != nil {
		return s, err
	}
	if current == e.Value {
		return s, nil
	}
	if s.Fields, err = s.Fields.With(e.Name, e.Value); err != nil {
		return s, err
	}
	return s.invalidate(), nil
}

func (e SelectPreset) apply(s Session, registry *Registry) (Session, error) {
	fields, locks, err := registry.Apply(e.ID)
	if err != nil {
		return s, err
	}
	fields.FromAddress = s.Fields.FromAddress
	if fields.FromAddress == "" {
		fields.FromAddress = s.Account
	}
	s.PresetID = strings.ToLower(strings.TrimSpace(e.ID))
	s.Fields = fields
	s.Locks = locks
	return s.invalidate(), nil
}

func (e ConnectWallet) apply(s Session, _ *Registry) (Session, error) {
	if e.Address != "" && e.ChainID == 0 {
		return s, fmt.Errorf("chain id is required when connecting a wallet")
	}
	// fromAddress 跟随钱包，除非用户已手动改为其他地址
	if s.Fields.FromAddress == "" || strings.EqualFold(s.Fields.FromAddress, s.Account) {
		s.Fields.FromAddress = e.Address
	}
	s.Account = e.Address
	s.ChainID = e.ChainID
	if e.Address == "" {
		s.ChainID = 0
	}
	return s.invalidate(), nil
}

func (ResetFields) apply(s Session, registry *Registry) (Session, error) {
	fields, locks, err := registry.Apply(s.PresetID)
	if err != nil {
		fields, locks = DefaultFieldValues(""), LockSet{}
		s.PresetID = PresetCustom
	}
	fields.FromAddress = s.Account
	s.Fields = fields
	s.Locks = locks
	return s.invalidate(), nil
}

func (e SetIssuer) apply(s Session, _ *Registry) (Session, error) {
	url := strings.TrimSpace(e.URL)
	if url == "" {
		return s, fmt.Errorf("issuer url is required")
	}
	s.IssuerURL = url
	return s.invalidate(), nil
}

func (e SetCustomSigner) apply(s Session, _ *Registry) (Session, error) {
	s.CustomSigner = e.Enabled
	switch {
	case !e.Enabled:
		s.CustomSignerURL = ""
	case strings.TrimSpace(e.URL) != "":
		s.CustomSignerURL = strings.TrimSpace(e.URL)
	default:
		s.CustomSignerURL = DefaultCustomSignerURL
	}
	return s.invalidate(), nil
}

func (e SetSignatureType) apply(s Session, _ *Registry) (Session, error) {
	if !e.Type.Valid() {
		return s, fmt.Errorf("unsupported signature type: %q", e.Type)
	}
	if s.SignatureType == e.Type {
		return s, nil
	}
	s.SignatureType = e.Type
	// 签名本身仍然有效，只需重新验证
	s.Package = ""
	s.VerificationError = ""
	s.AdditionalVerificationRequired = false
	return s, nil
}

func (e SignatureObtained) apply(s Session, _ *Registry) (Session, error) {
	if e.Revision != s.Revision {
		return s, ErrStaleResult
	}
	signed := e.Payload
	s.Signed = &signed
	s.Package = ""
	s.VerificationError = ""
	s.AdditionalVerificationRequired = false
	return s, nil
}

func (e VerificationSucceeded) apply(s Session, _ *Registry) (Session, error) {
	if e.Revision != s.Revision {
		return s, ErrStaleResult
	}
	s.Package = e.Package
	s.VerificationError = ""
	s.AdditionalVerificationRequired = false
	return s, nil
}

func (e VerificationFailed) apply(s Session, _ *Registry) (Session, error) {
	if e.Revision != s.Revision {
		return s, ErrStaleResult
	}
	s.Package = ""
	s.VerificationError = e.Message
	s.AdditionalVerificationRequired = e.Forbidden
	return s, nil
}

// Preview 会话的派生视图
type Preview struct {
	Revision   uint64                     `json:"revision"`
	PresetID   string                     `json:"presetId"`
	Visibility types.Visibility           `json:"visibility"`
	Errors     FieldErrors                `json:"errors"`
	Locked     []FieldName                `json:"locked"`
	Fields     FieldValues                `json:"fields"`
	Data       types.RuleV5Data           `json:"data"`
	Ready      bool                       `json:"ready"`
	Signed     *types.PureFIRuleV5Payload `json:"signed,omitempty"`
	Package    string                     `json:"package,omitempty"`

	VerificationError              string `json:"verificationError,omitempty"`
	AdditionalVerificationRequired bool   `json:"additionalVerificationRequired"`
}

// Derive 计算会话的可见性、字段错误与载荷预览
//
// Ready 表示钱包已连接且没有字段错误，此时载荷可以签名。
func Derive(s Session) Preview {
	code, err := types.ParsePackageType(s.Fields.PackageType)
	if err != nil {
		code = types.PackageType0
	}
	v, _ := types.VisibilityFor(code)
	errs := Validate(s.Fields, v)
	p := Assemble(code, s.Fields, errs)

	return Preview{
		Revision:                       s.Revision,
		PresetID:                       s.PresetID,
		Visibility:                     v,
		Errors:                         errs,
		Locked:                         s.Locks.Names(),
		Fields:                         s.Fields,
		Data:                           AssembleData(s.Account, s.ChainID, p),
		Ready:                          s.WalletConnected() && errs.Empty(),
		Signed:                         s.Signed,
		Package:                        s.Package,
		VerificationError:              s.VerificationError,
		AdditionalVerificationRequired: s.AdditionalVerificationRequired,
	}
}
