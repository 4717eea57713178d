package utils

import (
	"fmt"
	"regexp"

	"github.com/ethereum/go-ethereum/common"
)

// ZeroAddress 全零地址，在代币字段中表示原生币（ETH、POL 等）
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// hexAddressPattern 表单使用的严格地址格式：0x 前缀 + 40 位十六进制
var hexAddressPattern = regexp.MustCompile(`^(0x)[0-9a-fA-F]{40}$`)

// IsHexAddress 检查字符串是否为严格格式的十六进制地址
//
// **注意**：
//   - 必须带小写 0x 前缀（与 common.IsHexAddress 不同，后者接受无前缀与 0X）
//   - 不校验 EIP-55 大小写校验和
func IsHexAddress(s string) bool {
	return hexAddressPattern.MatchString(s)
}

// ParseAddress 解析严格格式的十六进制地址
func ParseAddress(s string) (common.Address, error) {
	if !IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid hex address: %q", s)
	}
	return common.HexToAddress(s), nil
}

// ChecksumAddress 返回 EIP-55 校验和格式地址
func ChecksumAddress(s string) (string, error) {
	addr, err := ParseAddress(s)
	if err != nil {
		return "", err
	}
	return addr.Hex(), nil
}

// EqualAddresses 忽略大小写比较两个地址
func EqualAddresses(a, b string) bool {
	if !IsHexAddress(a) || !IsHexAddress(b) {
		return false
	}
	return common.HexToAddress(a) == common.HexToAddress(b)
}
