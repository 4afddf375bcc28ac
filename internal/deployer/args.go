package deployer

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// EncodeArgs ABI-encodes constructor arguments, the form explorers expect in
// constructorArguements.
func EncodeArgs(contractABI abi.ABI, args []any) ([]byte, error) {
	values, err := CoerceArgs(contractABI.Constructor.Inputs, args)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	return contractABI.Pack("", values...)
}

// CoerceArgs converts loosely typed values (usually strings from config) to
// the Go types the ABI packer requires.
func CoerceArgs(inputs abi.Arguments, args []any) ([]any, error) {
	if len(inputs) != len(args) {
		return nil, fmt.Errorf("%w: constructor takes %d, got %d", ErrArgumentCount, len(inputs), len(args))
	}

	out := make([]any, len(args))
	for i, in := range inputs {
		v, err := coerce(in.Type, args[i])
		if err != nil {
			name := in.Name
			if name == "" {
				name = strconv.Itoa(i)
			}
			return nil, fmt.Errorf("%w %s (%s): %v", ErrInvalidArgument, name, in.Type.String(), err)
		}
		out[i] = v
	}
	return out, nil
}

func coerce(t abi.Type, v any) (any, error) {
	switch t.T {
	case abi.AddressTy:
		switch a := v.(type) {
		case common.Address:
			return a, nil
		case string:
			if !common.IsHexAddress(a) {
				return nil, fmt.Errorf("%q is not a hex address", a)
			}
			return common.HexToAddress(a), nil
		}
	case abi.BoolTy:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			return strconv.ParseBool(b)
		}
	case abi.StringTy:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case abi.IntTy, abi.UintTy:
		n, err := toBig(v)
		if err != nil {
			return nil, err
		}
		if t.T == abi.UintTy && n.Sign() < 0 {
			return nil, fmt.Errorf("negative value for %s", t.String())
		}
		if t.Size > 64 {
			return n, nil
		}
		goType := t.GetType()
		if t.T == abi.UintTy {
			if n.BitLen() > t.Size {
				return nil, fmt.Errorf("%s overflows %s", n, t.String())
			}
			return reflect.ValueOf(n.Uint64()).Convert(goType).Interface(), nil
		}
		if n.BitLen() >= t.Size {
			return nil, fmt.Errorf("%s overflows %s", n, t.String())
		}
		return reflect.ValueOf(n.Int64()).Convert(goType).Interface(), nil
	}

	// Anything else must already have the packer's type
	return v, nil
}

func toBig(v any) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		return n, nil
	case int:
		return big.NewInt(int64(n)), nil
	case int64:
		return big.NewInt(n), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case string:
		s := strings.TrimSpace(n)
		base := 10
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			s, base = s[2:], 16
		}
		b, ok := new(big.Int).SetString(s, base)
		if !ok {
			return nil, fmt.Errorf("%q is not an integer", n)
		}
		return b, nil
	}
	return nil, fmt.Errorf("unsupported integer value %T", v)
}
