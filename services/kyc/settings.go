// Package kyc 管理 PureFi KYC 组件的外观设置（--purefi_* CSS 变量）。
package kyc

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Kind 变量取值类型
type Kind string

const (
	KindPx    Kind = "px"
	KindColor Kind = "color"
)

// 像素变量取值范围（滑块 1..20）
const (
	MinPx = 1
	MaxPx = 20
)

// Variable 可配置的 CSS 变量
type Variable struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Group   string `json:"group"`
	Kind    Kind   `json:"kind"`
	Default string `json:"default"`
}

var variables = []Variable{
	{Name: "--purefi_font_size", Label: "Font size (px)", Group: "Common", Kind: KindPx, Default: "14px"},
	{Name: "--purefi_primary_font_color", Label: "Primary font color", Group: "Common", Kind: KindColor, Default: "#1f1f1f"},
	{Name: "--purefi_title_color", Label: "Title color", Group: "Common", Kind: KindColor, Default: "#000000"},

	{Name: "--purefi_card_border_radius", Label: "Card border radius (px)", Group: "Card", Kind: KindPx, Default: "8px"},
	{Name: "--purefi_card_border_width", Label: "Card border width (px)", Group: "Card", Kind: KindPx, Default: "1px"},
	{Name: "--purefi_card_border_color", Label: "Card border color", Group: "Card", Kind: KindColor, Default: "#d9d9d9"},
	{Name: "--purefi_card_label", Label: "Card label font color", Group: "Card", Kind: KindColor, Default: "#595959"},
	{Name: "--purefi_card_bg_color", Label: "Card bg color", Group: "Card", Kind: KindColor, Default: "#ffffff"},

	{Name: "--purefi_button_border_radius", Label: "Button border radius (px)", Group: "Button", Kind: KindPx, Default: "6px"},
	{Name: "--purefi_button_font_color", Label: "Button font color", Group: "Button", Kind: KindColor, Default: "#ffffff"},
	{Name: "--purefi_button_font_color_hover", Label: "Button font hover color", Group: "Button", Kind: KindColor, Default: "#ffffff"},
	{Name: "--purefi_button_bg_color", Label: "Button bg color", Group: "Button", Kind: KindColor, Default: "#1677ff"},
	{Name: "--purefi_button_bg_color_hover", Label: "Button bg hover color", Group: "Button", Kind: KindColor, Default: "#4096ff"},

	{Name: "--purefi_modal_border_radius", Label: "Modal border radius (px)", Group: "Modal", Kind: KindPx, Default: "8px"},
	{Name: "--purefi_modal_font_color", Label: "Modal font color", Group: "Modal", Kind: KindColor, Default: "#1f1f1f"},
	{Name: "--purefi_modal_bg_color", Label: "Modal bg color", Group: "Modal", Kind: KindColor, Default: "#ffffff"},
}

var byName = func() map[string]Variable {
	m := make(map[string]Variable, len(variables))
	for _, v := range variables {
		m[v.Name] = v
	}
	return m
}()

// Variables 返回全部可配置变量（按分组顺序）
func Variables() []Variable {
	out := make([]Variable, len(variables))
	copy(out, variables)
	return out
}

// LookupVariable 按名称查找变量
func LookupVariable(name string) (Variable, bool) {
	v, ok := byName[name]
	return v, ok
}

// Settings 当前外观设置，并发安全
type Settings struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewSettings 使用默认值创建设置
func NewSettings() *Settings {
	s := &Settings{}
	s.Reset()
	return s
}

// Reset 恢复默认值
func (s *Settings) Reset() {
	values := make(map[string]string, len(variables))
	for _, v := range variables {
		values[v.Name] = v.Default
	}
	s.mu.Lock()
	s.values = values
	s.mu.Unlock()
}

// Apply 校验并设置单个变量
func (s *Settings) Apply(name, value string) error {
	normalized, err := Normalize(name, value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.values[name] = normalized
	s.mu.Unlock()
	return nil
}

// ApplyAll 批量设置；任一值无效时不做任何修改
func (s *Settings) ApplyAll(values map[string]string) error {
	normalized := make(map[string]string, len(values))
	for _, name := range sortedKeys(values) {
		v, err := Normalize(name, values[name])
		if err != nil {
			return err
		}
		normalized[name] = v
	}
	s.mu.Lock()
	for name, v := range normalized {
		s.values[name] = v
	}
	s.mu.Unlock()
	return nil
}

// Get 读取变量当前值
func (s *Settings) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

// Values 当前值快照
func (s *Settings) Values() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// CSS 渲染 :root 块，变量顺序与 Variables() 一致
func (s *Settings) CSS() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	b.WriteString(":root {\n")
	for _, v := range variables {
		fmt.Fprintf(&b, "  %s: %s;\n", v.Name, s.values[v.Name])
	}
	b.WriteString("}\n")
	return b.String()
}

// Normalize 校验变量值并返回规范形式（像素值统一为 "Npx"，颜色转小写）
func Normalize(name, value string) (string, error) {
	v, ok := byName[name]
	if !ok {
		return "", fmt.Errorf("unknown widget variable %q", name)
	}
	value = strings.TrimSpace(value)
	switch v.Kind {
	case KindPx:
		n, err := parsePx(value)
		if err != nil {
			return "", fmt.Errorf("%s: %w", v.Label, err)
		}
		return strconv.Itoa(n) + "px", nil
	case KindColor:
		if !IsColor(value) {
			return "", fmt.Errorf("%s: invalid color %q", v.Label, value)
		}
		return strings.ToLower(value), nil
	}
	return "", fmt.Errorf("unsupported variable kind %q", v.Kind)
}

func parsePx(value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSuffix(value, "px"))
	if err != nil {
		return 0, fmt.Errorf("invalid px value %q", value)
	}
	if n < MinPx || n > MaxPx {
		return 0, fmt.Errorf("px value must be between %d and %d", MinPx, MaxPx)
	}
	return n, nil
}

var (
	hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	rgbColorRe = regexp.MustCompile(`^rgba?\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})\s*(?:,\s*([0-9]*\.?[0-9]+)\s*)?\)$`)
)

// IsColor #rgb、#rrggbb、#rrggbbaa 或 rgb()/rgba()
func IsColor(value string) bool {
	if hexColorRe.MatchString(value) {
		return true
	}
	m := rgbColorRe.FindStringSubmatch(value)
	if m == nil {
		return false
	}
	// rgb() 不带 alpha，rgba() 必须带
	if strings.HasPrefix(value, "rgba") != (m[4] != "") {
		return false
	}
	for _, c := range m[1:4] {
		if n, _ := strconv.Atoi(c); n > 255 {
			return false
		}
	}
	if m[4] != "" {
		a, err := strconv.ParseFloat(m[4], 64)
		if err != nil || a > 1 {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
