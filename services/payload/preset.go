package payload

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/muhammadmuzzammil1998/jsonc"

	"github.com/purefi/playground-sdk-go/types"
	"github.com/purefi/playground-sdk-go/utils"
)

// PureFiDemoContract PureFi 演示合约地址（内置预设的 to 字段）
const PureFiDemoContract = "0xd9f7c12906af9fd2264967fc7d4faa8a08d09dfa"

// 内置预设 ID
const (
	PresetCustom = "custom"
	PresetAML    = "aml"
	PresetKYC    = "kyc"
)

// Preset 命名的固定字段值集合
//
// Values 只包含预设覆盖的字段；应用预设时其余字段恢复默认值。
type Preset struct {
	ID     string               `json:"id"`
	Label  string               `json:"label"`
	Values map[FieldName]string `json:"values"`
}

// builtinPresets PureFi AML / KYC 演示预设
var builtinPresets = []Preset{
	{ID: PresetCustom, Label: "Custom"},
	demoPreset(PresetAML, "PureFi AML", "431050"),
	demoPreset(PresetKYC, "PureFi KYC", "731"),
}

func demoPreset(id, label, ruleID string) Preset {
	return Preset{
		ID:    id,
		Label: label,
		Values: map[FieldName]string{
			FieldPackageType:    types.PackageType32.String(),
			FieldRuleID:         ruleID,
			FieldToAddress:      PureFiDemoContract,
			FieldToken0Address:  utils.ZeroAddress,
			FieldToken0Value:    "0.001",
			FieldToken0Decimals: DefaultDecimals,
		},
	}
}

// Registry 预设注册表（并发安全）
type Registry struct {
	mu      sync.RWMutex
	presets map[string]Preset
	order   []string
}

// NewRegistry 创建只包含内置预设的注册表
func NewRegistry() *Registry {
	r := &Registry{presets: make(map[string]Preset)}
	for _, p := range builtinPresets {
		r.presets[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	return r
}

// DefaultRegistry 包级默认注册表
var DefaultRegistry = NewRegistry()

// Register 注册或替换一个预设（custom 不可替换）
func (r *Registry) Register(p Preset) error {
	p.ID = strings.ToLower(strings.TrimSpace(p.ID))
	if p.ID == "" {
		return fmt.Errorf("preset id is required")
	}
	if p.ID == PresetCustom {
		return fmt.Errorf("preset %q is reserved", PresetCustom)
	}
	for name, value := range p.Values {
		if _, err := (&FieldValues{}).ref(name); err != nil {
			return fmt.Errorf("preset %q: %w", p.ID, err)
		}
		if name == FieldPackageType {
			if _, err := types.ParsePackageType(value); err != nil {
				return fmt.Errorf("preset %q: %w", p.ID, err)
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.presets[p.ID]; !ok {
		r.order = append(r.order, p.ID)
	}
	r.presets[p.ID] = p
	return nil
}

// Get 按 ID 查找预设
func (r *Registry) Get(id string) (Preset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.presets[strings.ToLower(strings.TrimSpace(id))]
	return p, ok
}

// List 按注册顺序返回全部预设
func (r *Registry) List() []Preset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Preset, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.presets[id])
	}
	return out
}

// Apply 返回预设对应的字段值与锁定集合
//
// custom 返回可编辑的默认值与空锁定集合；其他预设在默认值之上覆盖预设字段，
// 并锁定除 fromAddress 外的全部字段。
func (r *Registry) Apply(id string) (FieldValues, LockSet, error) {
	p, ok := r.Get(id)
	if !ok {
		return FieldValues{}, nil, fmt.Errorf("unknown preset: %q", id)
	}

	fields := DefaultFieldValues("")
	if p.ID == PresetCustom {
		return fields, LockSet{}, nil
	}

	names := make([]FieldName, 0, len(p.Values))
	for name := range p.Values {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	for _, name := range names {
		var err error
		if fields, err = fields.With(name, p.Values[name]); err != nil {
			return FieldValues{}, nil, fmt.Errorf("preset %q: %w", p.ID, err)
		}
	}

	locks := make(LockSet, len(AllFields))
	for _, name := range AllFields {
		if name != FieldFromAddress {
			locks[name] = true
		}
	}
	return fields, locks, nil
}

// ApplyPreset 使用默认注册表应用预设
func ApplyPreset(id string) (FieldValues, LockSet, error) {
	return DefaultRegistry.Apply(id)
}

// LoadPresets 从带注释的 JSON（.jsonc）文件读取预设列表
//
// 文件内容为 Preset 数组，例如：
//
//	// 自定义 AML 规则
//	[{"id": "aml-usdc", "label": "AML USDC", "values": {"packageType": "32", "ruleId": "431050"}}]
func LoadPresets(path string) ([]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets file: %w", err)
	}
	return ParsePresets(data)
}

// ParsePresets 解析 .jsonc 内容
func ParsePresets(data []byte) ([]Preset, error) {
	if !jsonc.Valid(data) {
		return nil, fmt.Errorf("invalid presets file: malformed jsonc")
	}
	var presets []Preset
	if err := json.Unmarshal(jsonc.ToJSON(data), &presets); err != nil {
		return nil, fmt.Errorf("failed to decode presets: %w", err)
	}
	return presets, nil
}

// LoadInto 读取预设文件并注册到注册表
func (r *Registry) LoadInto(path string) (int, error) {
	presets, err := LoadPresets(path)
	if err != nil {
		return 0, err
	}
	for _, p := range presets {
		if err := r.Register(p); err != nil {
			return 0, err
		}
	}
	return len(presets), nil
}
