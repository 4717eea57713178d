// Package contract provides contract service implementation.
//
// ABI Helper：解析 ABI、列出可写方法、把表单字符串参数转换为 ABI 编码所需的 Go 类型。

package contract

import (
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/purefi/playground-sdk-go/utils"
)

// MethodOption 可写方法选项（label 形如 "deposit (0x6e553f65)"）
type MethodOption struct {
	Label    string       `json:"label"`
	Selector string       `json:"selector"`
	Name     string       `json:"name"`
	Inputs   []InputParam `json:"inputs"`
}

// InputParam 方法参数
type InputParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ParseABI 解析 JSON ABI
func ParseABI(abiJSON string) (*abi.ABI, error) {
	if strings.TrimSpace(abiJSON) == "" {
		return nil, fmt.Errorf("abi is required")
	}
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parse abi failed: %w", err)
	}
	return &parsed, nil
}

// MethodOptions 列出非 view 方法，按 label 排序
func MethodOptions(parsed *abi.ABI) []MethodOption {
	if parsed == nil {
		return nil
	}
	options := make([]MethodOption, 0, len(parsed.Methods))
	for _, m := range parsed.Methods {
		if isViewMethod(m) {
			continue
		}
		selector := hexutil.Encode(m.ID)
		inputs := make([]InputParam, 0, len(m.Inputs))
		for i, in := range m.Inputs {
			inputs = append(inputs, InputParam{Name: argName(in, i), Type: in.Type.String()})
		}
		options = append(options, MethodOption{
			Label:    fmt.Sprintf("%s (%s)", m.RawName, selector),
			Selector: selector,
			Name:     m.Name,
			Inputs:   inputs,
		})
	}
	sort.Slice(options, func(i, j int) bool { return options[i].Label < options[j].Label })
	return options
}

func isViewMethod(m abi.Method) bool {
	return m.StateMutability == "view" || (m.StateMutability == "" && m.Constant)
}

// FindMethod 按方法名或 4 字节选择器查找
func FindMethod(parsed *abi.ABI, nameOrSelector string) (abi.Method, error) {
	if parsed == nil {
		return abi.Method{}, fmt.Errorf("abi is nil")
	}
	if m, ok := parsed.Methods[nameOrSelector]; ok {
		return m, nil
	}
	if strings.HasPrefix(nameOrSelector, "0x") {
		id, err := hexutil.Decode(nameOrSelector)
		if err == nil && len(id) == 4 {
			if m, err := parsed.MethodById(id); err == nil {
				return *m, nil
			}
		}
	}
	return abi.Method{}, fmt.Errorf("method %q not found in abi", nameOrSelector)
}

// CoerceArgs 把字符串参数转换为方法参数
//
// uint/int -> 定长整数或 *big.Int；bool 中 "0"/"false" 为 false，其余为 true；
// address / bytes 需为 0x 前缀 hex；string 原样传递。
func CoerceArgs(method abi.Method, values []string) ([]interface{}, error) {
	if len(values) != len(method.Inputs) {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", method.RawName, len(method.Inputs), len(values))
	}
	args := make([]interface{}, 0, len(values))
	for i, in := range method.Inputs {
		v, err := coerceArg(in.Type, argName(in, i), strings.TrimSpace(values[i]))
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

// PackCall 编码调用数据
func PackCall(parsed *abi.ABI, method abi.Method, values []string) ([]byte, error) {
	args, err := CoerceArgs(method, values)
	if err != nil {
		return nil, err
	}
	data, err := parsed.Pack(method.Name, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s failed: %w", method.RawName, err)
	}
	return data, nil
}

func argName(in abi.Argument, i int) string {
	if in.Name != "" {
		return in.Name
	}
	return fmt.Sprintf("arg%d", i)
}

func coerceArg(t abi.Type, label, value string) (interface{}, error) {
	if value == "" {
		return nil, fmt.Errorf("Please enter %s", label)
	}

	switch t.T {
	case abi.UintTy, abi.IntTy:
		n, ok := new(big.Int).SetString(value, 0)
		if !ok {
			return nil, fmt.Errorf("%s must be numeric", label)
		}
		if t.T == abi.UintTy && n.Sign() < 0 {
			return nil, fmt.Errorf("%s must be non-negative", label)
		}
		return sizedInt(t, label, n)

	case abi.BoolTy:
		return !(value == "0" || value == "false"), nil

	case abi.AddressTy:
		if !utils.IsHexAddress(value) {
			return nil, fmt.Errorf("%s Invalid", label)
		}
		return common.HexToAddress(value), nil

	case abi.BytesTy:
		b, err := hexutil.Decode(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be valid hex", label)
		}
		return b, nil

	case abi.FixedBytesTy:
		b, err := hexutil.Decode(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be valid hex", label)
		}
		if len(b) > t.Size {
			return nil, fmt.Errorf("%s exceeds %d bytes", label, t.Size)
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil

	case abi.StringTy:
		return value, nil
	}
	return nil, fmt.Errorf("%s: unsupported parameter type %s", label, t.String())
}

// sizedInt go-ethereum 对 8/16/32/64 位整数要求对应的 Go 定长类型
func sizedInt(t abi.Type, label string, n *big.Int) (interface{}, error) {
	bits := n.BitLen()
	if t.T == abi.IntTy && n.Sign() < 0 {
		bits = new(big.Int).Add(n, big.NewInt(1)).BitLen()
	}
	limit := t.Size
	if t.T == abi.IntTy {
		limit--
	}
	if bits > limit {
		return nil, fmt.Errorf("%s overflows %s", label, t.String())
	}

	if t.T == abi.UintTy {
		switch t.Size {
		case 8:
			return uint8(n.Uint64()), nil
		case 16:
			return uint16(n.Uint64()), nil
		case 32:
			return uint32(n.Uint64()), nil
		case 64:
			return n.Uint64(), nil
		}
		return n, nil
	}
	switch t.Size {
	case 8:
		return int8(n.Int64()), nil
	case 16:
		return int16(n.Int64()), nil
	case 32:
		return int32(n.Int64()), nil
	case 64:
		return n.Int64(), nil
	}
	return n, nil
}
