package transport

import (
	"errors"
	"fmt"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"

	"tablebridge/foreign"
)

var ErrUnsupportedValue = errors.New("transport: value cannot cross the wire")

// Values without a natural JSON form travel as objects tagged with "$t".
const (
	tagKey    = "$t"
	tagInt32  = "i32"
	tagInt64  = "i64"
	tagHandle = "handle"
	tagProps  = "props"
	tagArray  = "array"
)

// Encode converts a foreign value to its wire form.
func Encode(v any) (*structpb.Value, error) {
	switch x := v.(type) {
	case nil:
		return structpb.NewNullValue(), nil
	case bool:
		return structpb.NewBoolValue(x), nil
	case string:
		return structpb.NewStringValue(x), nil
	case float64:
		return structpb.NewNumberValue(x), nil
	case int32:
		return tagged(tagInt32, map[string]*structpb.Value{"v": structpb.NewStringValue(strconv.FormatInt(int64(x), 10))}), nil
	case int64:
		return tagged(tagInt64, map[string]*structpb.Value{"v": structpb.NewStringValue(strconv.FormatInt(x, 10))}), nil
	case foreign.Handle:
		return tagged(tagHandle, map[string]*structpb.Value{
			"id":   structpb.NewStringValue(x.ID),
			"type": structpb.NewStringValue(x.Type),
		}), nil
	case foreign.Properties:
		fields := make(map[string]*structpb.Value, len(x))
		for k, s := range x {
			fields[k] = structpb.NewStringValue(s)
		}
		return tagged(tagProps, map[string]*structpb.Value{"v": structpb.NewStructValue(&structpb.Struct{Fields: fields})}), nil
	case foreign.Array:
		items, err := encodeList(x.Items)
		if err != nil {
			return nil, err
		}
		return tagged(tagArray, map[string]*structpb.Value{
			"elem": structpb.NewStringValue(string(x.Elem)),
			"v":    structpb.NewListValue(items),
		}), nil
	case []any:
		items, err := encodeList(x)
		if err != nil {
			return nil, err
		}
		return structpb.NewListValue(items), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

func tagged(tag string, fields map[string]*structpb.Value) *structpb.Value {
	fields[tagKey] = structpb.NewStringValue(tag)
	return structpb.NewStructValue(&structpb.Struct{Fields: fields})
}

func encodeList(items []any) (*structpb.ListValue, error) {
	out := &structpb.ListValue{Values: make([]*structpb.Value, len(items))}
	for i, it := range items {
		v, err := Encode(it)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out.Values[i] = v
	}
	return out, nil
}

// Decode is the inverse of Encode.
func Decode(v *structpb.Value) (any, error) {
	switch k := v.GetKind().(type) {
	case nil, *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_BoolValue:
		return k.BoolValue, nil
	case *structpb.Value_StringValue:
		return k.StringValue, nil
	case *structpb.Value_NumberValue:
		return k.NumberValue, nil
	case *structpb.Value_ListValue:
		return decodeList(k.ListValue)
	case *structpb.Value_StructValue:
		return decodeTagged(k.StructValue.GetFields())
	}
	return nil, fmt.Errorf("%w: kind %T", ErrUnsupportedValue, v.GetKind())
}

func decodeList(l *structpb.ListValue) ([]any, error) {
	out := make([]any, len(l.GetValues()))
	for i, it := range l.GetValues() {
		v, err := Decode(it)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func decodeTagged(f map[string]*structpb.Value) (any, error) {
	switch tag := f[tagKey].GetStringValue(); tag {
	case tagInt32:
		n, err := strconv.ParseInt(f["v"].GetStringValue(), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: int32: %v", ErrUnsupportedValue, err)
		}
		return int32(n), nil
	case tagInt64:
		n, err := strconv.ParseInt(f["v"].GetStringValue(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: int64: %v", ErrUnsupportedValue, err)
		}
		return n, nil
	case tagHandle:
		return foreign.Handle{ID: f["id"].GetStringValue(), Type: f["type"].GetStringValue()}, nil
	case tagProps:
		src := f["v"].GetStructValue().GetFields()
		p := make(foreign.Properties, len(src))
		for k, s := range src {
			p[k] = s.GetStringValue()
		}
		return p, nil
	case tagArray:
		items, err := decodeList(f["v"].GetListValue())
		if err != nil {
			return nil, err
		}
		elem := foreign.ElemType(f["elem"].GetStringValue())
		for i, it := range items {
			if !elemMatches(elem, it) {
				return nil, fmt.Errorf("%w: %s array item %d is %T", ErrUnsupportedValue, elem, i, it)
			}
		}
		return foreign.Array{Elem: elem, Items: items}, nil
	default:
		return nil, fmt.Errorf("%w: struct tagged %q", ErrUnsupportedValue, tag)
	}
}

func elemMatches(elem foreign.ElemType, v any) bool {
	switch elem {
	case foreign.ElemInt32:
		_, ok := v.(int32)
		return ok
	case foreign.ElemInt64:
		_, ok := v.(int64)
		return ok
	case foreign.ElemString:
		_, ok := v.(string)
		return ok
	}
	return false
}

func encodeArgs(args []any) (*structpb.Value, error) {
	l, err := encodeList(args)
	if err != nil {
		return nil, err
	}
	return structpb.NewListValue(l), nil
}
