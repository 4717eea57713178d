package utils

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseUnits 将十进制金额按 decimals 缩放为整数 base units
//
// **语义**：baseUnits = round(value × 10^decimals)
//
// **注意**：
//   - 使用 shopspring/decimal 做精确十进制运算，不经过浮点数
//   - 小数位超过 decimals 时四舍五入（half away from zero）
//   - decimals 没有业务上限，仅受 int32 表示范围限制
func ParseUnits(value string, decimals int) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("value is empty")
	}
	if decimals < 0 {
		return nil, fmt.Errorf("decimals must be non-negative, got %d", decimals)
	}
	if decimals > math.MaxInt32 {
		return nil, fmt.Errorf("decimals %d exceeds supported range", decimals)
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal value %q: %w", value, err)
	}

	return d.Shift(int32(decimals)).Round(0).BigInt(), nil
}

// FormatUnits 将整数 base units 还原为十进制字符串（去掉多余的尾随 0）
func FormatUnits(baseUnits *big.Int, decimals int) (string, error) {
	if baseUnits == nil {
		return "", fmt.Errorf("base units is nil")
	}
	if decimals < 0 || decimals > math.MaxInt32 {
		return "", fmt.Errorf("decimals %d out of range", decimals)
	}
	return decimal.NewFromBigInt(baseUnits, -int32(decimals)).String(), nil
}

// ParsePositiveDecimal 解析并校验正的十进制数
func ParsePositiveDecimal(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal value %q: %w", value, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("value must be positive, got %s", d.String())
	}
	return d, nil
}
