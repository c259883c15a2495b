package foreign

import (
	"errors"
	"fmt"
	"math"
)

type ElemType string

const (
	ElemInt32  ElemType = "int32"
	ElemInt64  ElemType = "int64"
	ElemString ElemType = "string"
)

// ErrElement is returned by NewArray when an item cannot be stored in the
// requested element type.
var ErrElement = errors.New("foreign: array element not representable")

// Array is a typed foreign array. Items hold int32, int64 or string values
// matching Elem.
type Array struct {
	Elem  ElemType
	Items []any
}

func (a Array) Len() int { return len(a.Items) }

func (a Array) Int32s() ([]int32, error) {
	if a.Elem != ElemInt32 {
		return nil, fmt.Errorf("foreign: want %s array, got %s", ElemInt32, a.Elem)
	}
	out := make([]int32, len(a.Items))
	for i, it := range a.Items {
		out[i] = it.(int32)
	}
	return out, nil
}

func (a Array) Int64s() ([]int64, error) {
	if a.Elem != ElemInt64 {
		return nil, fmt.Errorf("foreign: want %s array, got %s", ElemInt64, a.Elem)
	}
	out := make([]int64, len(a.Items))
	for i, it := range a.Items {
		out[i] = it.(int64)
	}
	return out, nil
}

func (a Array) Strings() ([]string, error) {
	if a.Elem != ElemString {
		return nil, fmt.Errorf("foreign: want %s array, got %s", ElemString, a.Elem)
	}
	out := make([]string, len(a.Items))
	for i, it := range a.Items {
		out[i] = it.(string)
	}
	return out, nil
}

// NewArray converts a local slice into a foreign array of the given element
// type. Integer slices of any width are accepted for the integer element
// types as long as every item fits.
func NewArray(elem ElemType, items any) (Array, error) {
	arr := Array{Elem: elem}
	switch elem {
	case ElemInt32, ElemInt64:
		ints, err := toInt64s(items)
		if err != nil {
			return Array{}, err
		}
		arr.Items = make([]any, len(ints))
		for i, v := range ints {
			if elem == ElemInt32 {
				if v < math.MinInt32 || v > math.MaxInt32 {
					return Array{}, fmt.Errorf("%w: %d overflows int32 at index %d", ErrElement, v, i)
				}
				arr.Items[i] = int32(v)
			} else {
				arr.Items[i] = v
			}
		}
	case ElemString:
		strs, ok := items.([]string)
		if !ok {
			return Array{}, fmt.Errorf("%w: want []string, got %T", ErrElement, items)
		}
		arr.Items = make([]any, len(strs))
		for i, s := range strs {
			arr.Items[i] = s
		}
	default:
		return Array{}, fmt.Errorf("%w: unknown element type %q", ErrElement, elem)
	}
	return arr, nil
}

func toInt64s(items any) ([]int64, error) {
	switch v := items.(type) {
	case []int:
		out := make([]int64, len(v))
		for i, x := range v {
			out[i] = int64(x)
		}
		return out, nil
	case []int32:
		out := make([]int64, len(v))
		for i, x := range v {
			out[i] = int64(x)
		}
		return out, nil
	case []int64:
		return append([]int64(nil), v...), nil
	case []uint32:
		out := make([]int64, len(v))
		for i, x := range v {
			out[i] = int64(x)
		}
		return out, nil
	case []any:
		out := make([]int64, len(v))
		for i, x := range v {
			n, ok := AsInt64(x)
			if !ok {
				return nil, fmt.Errorf("%w: item %d is %T", ErrElement, i, x)
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: want integer slice, got %T", ErrElement, items)
	}
}

// AsInt64 widens any signed or unsigned Go integer that fits in int64.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}
