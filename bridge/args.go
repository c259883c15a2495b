package bridge

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"tablebridge/foreign"
)

// Constant names published by the foreign Kafka namespace.
const (
	AllPartitions                = "ALL_PARTITIONS"
	AllPartitionsDontSeek        = "ALL_PARTITIONS_DONT_SEEK"
	AllPartitionsSeekToBeginning = "ALL_PARTITIONS_SEEK_TO_BEGINNING"
	AllPartitionsSeekToEnd       = "ALL_PARTITIONS_SEEK_TO_END"
	DirectMapping                = "DIRECT_MAPPING"
)

type SpecKind int

const (
	// SpecConstant selects a named constant of the foreign namespace.
	SpecConstant SpecKind = iota
	// SpecExplicit carries explicit partitions (and offsets).
	SpecExplicit
)

func (k SpecKind) String() string {
	if k == SpecExplicit {
		return "explicit"
	}
	return "constant"
}

// PartitionFilterSpec selects the partitions to consume.
type PartitionFilterSpec struct {
	Kind       SpecKind
	Name       string
	Partitions []int32
	// Value is what the foreign runtime returned for this spec.
	Value any
}

// PartitionOffsetSpec selects where each partition starts.
type PartitionOffsetSpec struct {
	Kind       SpecKind
	Name       string
	Partitions []int32
	Offsets    []int64
	Value      any
}

// ConsumeArgs is the normalized argument tuple of a consume call.
type ConsumeArgs struct {
	Properties       foreign.Properties
	Topic            string
	PartitionFilter  PartitionFilterSpec
	PartitionOffsets PartitionOffsetSpec
}

// Values returns the tuple in the order the foreign consume call expects.
func (a ConsumeArgs) Values() []any {
	return []any{a.Properties, a.Topic, a.PartitionFilter.Value, a.PartitionOffsets.Value}
}

// explicitValues lists the foreign values built from explicit partitions or
// offsets. Constants are not included.
func (a ConsumeArgs) explicitValues() []any {
	var out []any
	if a.PartitionFilter.Kind == SpecExplicit {
		out = append(out, a.PartitionFilter.Value)
	}
	if a.PartitionOffsets.Kind == SpecExplicit {
		out = append(out, a.PartitionOffsets.Value)
	}
	return out
}

func toProperties(op string, m any) (foreign.Properties, error) {
	switch v := m.(type) {
	case foreign.Properties:
		return v.Clone(), nil
	case map[string]string:
		return foreign.Properties(v).Clone(), nil
	case map[string]any:
		return stringProperties(op, v)
	case map[string]int:
		return stringProperties(op, v)
	case map[string]int32:
		return stringProperties(op, v)
	case map[string]int64:
		return stringProperties(op, v)
	case map[string]bool:
		return stringProperties(op, v)
	case map[string]float64:
		return stringProperties(op, v)
	case nil:
		return nil, coercion(op, "properties", "mapping required, got nil")
	default:
		return nil, coercion(op, "properties", "string-keyed mapping of string, integer, bool, float or any values required, got %T", m)
	}
}

func stringProperties[V any](op string, m map[string]V) (foreign.Properties, error) {
	out := make(foreign.Properties, len(m))
	for k, raw := range m {
		s, err := propertyValue(raw)
		if err != nil {
			return nil, coercion(op, "property "+strconv.Quote(k), "%v", err)
		}
		out[k] = s
	}
	return out, nil
}

func propertyValue(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	if n, ok := foreign.AsInt64(v); ok {
		return strconv.FormatInt(n, 10), nil
	}
	if u, ok := v.(uint64); ok {
		return strconv.FormatUint(u, 10), nil
	}
	return "", fmt.Errorf("value of type %T is not representable as a string", v)
}

type integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32
}

func sortedPairs[K, V integer](m map[K]V) ([]int64, []int64) {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]int64, len(keys))
	offs := make([]int64, len(keys))
	for i, k := range keys {
		parts[i], offs[i] = int64(k), int64(m[k])
	}
	return parts, offs
}

// offsetPairs turns a partition→offset mapping into parallel arrays ordered
// by partition. ok is false when m is not a mapping at all.
func offsetPairs(op string, m any) (parts, offs []int64, ok bool, err error) {
	switch v := m.(type) {
	case map[int]int64:
		parts, offs = sortedPairs(v)
	case map[int]int:
		parts, offs = sortedPairs(v)
	case map[int32]int64:
		parts, offs = sortedPairs(v)
	case map[int32]int:
		parts, offs = sortedPairs(v)
	case map[int64]int64:
		parts, offs = sortedPairs(v)
	case map[string]int64:
		conv, err := partitionKeys(op, v)
		if err != nil {
			return nil, nil, true, err
		}
		parts, offs = sortedPairs(conv)
	case map[string]int:
		conv, err := partitionKeys(op, v)
		if err != nil {
			return nil, nil, true, err
		}
		parts, offs = sortedPairs(conv)
	case map[any]any:
		conv := make(map[int64]int64, len(v))
		for k, o := range v {
			pk, okK := foreign.AsInt64(k)
			po, okV := foreign.AsInt64(o)
			if !okK || !okV {
				return nil, nil, true, coercion(op, "partition offsets", "integer keys and values required, got %T→%T", k, o)
			}
			conv[pk] = po
		}
		parts, offs = sortedPairs(conv)
	default:
		return nil, nil, false, nil
	}
	return parts, offs, true, nil
}

// partitionKeys parses the decimal partition keys of m.
func partitionKeys[V integer](op string, m map[string]V) (map[int64]int64, error) {
	out := make(map[int64]int64, len(m))
	for k, off := range m {
		p, err := strconv.ParseInt(strings.TrimSpace(k), 10, 64)
		if err != nil {
			return nil, coercion(op, "partition offsets", "partition %q is not an integer", k)
		}
		out[p] = int64(off)
	}
	return out, nil
}

func int32Slice(a foreign.Array) []int32 {
	out, _ := a.Int32s()
	return out
}

func int64Slice(a foreign.Array) []int64 {
	out, _ := a.Int64s()
	return out
}
