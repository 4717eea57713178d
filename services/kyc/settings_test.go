package kyc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		varName string
		value   string
		want    string
		wantErr bool
	}{
		{name: "px bare", varName: "--purefi_font_size", value: "16", want: "16px"},
		{name: "px suffix", varName: "--purefi_font_size", value: " 20px ", want: "20px"},
		{name: "px min", varName: "--purefi_card_border_width", value: "1", want: "1px"},
		{name: "px zero", varName: "--purefi_card_border_width", value: "0", wantErr: true},
		{name: "px too big", varName: "--purefi_font_size", value: "21px", wantErr: true},
		{name: "px fraction", varName: "--purefi_font_size", value: "12.5", wantErr: true},
		{name: "short hex", varName: "--purefi_title_color", value: "#FFF", want: "#fff"},
		{name: "long hex", varName: "--purefi_title_color", value: "#1677ff", want: "#1677ff"},
		{name: "hex alpha", varName: "--purefi_title_color", value: "#1677ff80", want: "#1677ff80"},
		{name: "rgb", varName: "--purefi_card_bg_color", value: "rgb(22, 119, 255)", want: "rgb(22, 119, 255)"},
		{name: "rgba", varName: "--purefi_card_bg_color", value: "rgba(0,0,0,0.5)", want: "rgba(0,0,0,0.5)"},
		{name: "rgb out of range", varName: "--purefi_card_bg_color", value: "rgb(256,0,0)", wantErr: true},
		{name: "rgb with alpha", varName: "--purefi_card_bg_color", value: "rgb(0,0,0,0.5)", wantErr: true},
		{name: "rgba alpha > 1", varName: "--purefi_card_bg_color", value: "rgba(0,0,0,1.5)", wantErr: true},
		{name: "named color", varName: "--purefi_card_bg_color", value: "red", wantErr: true},
		{name: "bad hex length", varName: "--purefi_card_bg_color", value: "#12345", wantErr: true},
		{name: "unknown variable", varName: "--purefi_spinner_color", value: "#fff", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.varName, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettings_ApplyAndCSS(t *testing.T) {
	s := NewSettings()
	require.NoError(t, s.Apply("--purefi_font_size", "18"))
	require.NoError(t, s.Apply("--purefi_button_bg_color", "#FF0000"))

	v, ok := s.Get("--purefi_font_size")
	require.True(t, ok)
	assert.Equal(t, "18px", v)

	css := s.CSS()
	assert.True(t, strings.HasPrefix(css, ":root {\n  --purefi_font_size: 18px;\n"))
	assert.Contains(t, css, "  --purefi_button_bg_color: #ff0000;\n")
	assert.Equal(t, len(Variables())+2, strings.Count(css, "\n"))

	s.Reset()
	v, _ = s.Get("--purefi_font_size")
	assert.Equal(t, "14px", v)
}

func TestSettings_ApplyAllIsAtomic(t *testing.T) {
	s := NewSettings()
	before := s.Values()

	err := s.ApplyAll(map[string]string{
		"--purefi_font_size":   "12",
		"--purefi_title_color": "not-a-color",
	})
	assert.Error(t, err)
	assert.Equal(t, before, s.Values())

	require.NoError(t, s.ApplyAll(map[string]string{
		"--purefi_font_size":   "12",
		"--purefi_title_color": "#abc",
	}))
	v, _ := s.Get("--purefi_title_color")
	assert.Equal(t, "#abc", v)
}

func TestDefaultsAreValid(t *testing.T) {
	for _, v := range Variables() {
		got, err := Normalize(v.Name, v.Default)
		require.NoError(t, err, v.Name)
		assert.Equal(t, v.Default, got, v.Name)
	}
}
