package kafka

import (
	"fmt"
	"slices"
)

// Offsets with special meaning returned by a PartitionOffsets function.
const (
	SeekToBeginning int64 = -1
	DontSeek        int64 = -2
	SeekToEnd       int64 = -3
)

// PartitionFilter selects partitions to consume.
type PartitionFilter func(partition int32) bool

func (PartitionFilter) TypeName() string { return "IntPredicate" }

// PartitionOffsets maps a partition to its initial offset.
type PartitionOffsets func(partition int32) int64

func (PartitionOffsets) TypeName() string { return "IntToLongFunction" }

// FieldNameMapping maps an Avro field name to a column name.
type FieldNameMapping func(field string) string

func (FieldNameMapping) TypeName() string { return "Function" }

var (
	allPartitions  PartitionFilter  = func(int32) bool { return true }
	directMapping  FieldNameMapping = func(f string) string { return f }
	constOffset                     = func(off int64) PartitionOffsets { return func(int32) int64 { return off } }
	namedConstants                  = map[string]any{
		"ALL_PARTITIONS":                   allPartitions,
		"ALL_PARTITIONS_DONT_SEEK":         constOffset(DontSeek),
		"ALL_PARTITIONS_SEEK_TO_BEGINNING": constOffset(SeekToBeginning),
		"ALL_PARTITIONS_SEEK_TO_END":       constOffset(SeekToEnd),
		"DIRECT_MAPPING":                   directMapping,
	}
)

func partitionFilterFromArray(partitions []int32) PartitionFilter {
	set := slices.Clone(partitions)
	slices.Sort(set)
	return func(p int32) bool {
		_, ok := slices.BinarySearch(set, p)
		return ok
	}
}

// partitionToOffsetFromParallelArrays seeks listed partitions to their
// offsets; unlisted partitions are not seeked.
func partitionToOffsetFromParallelArrays(partitions []int32, offsets []int64) (PartitionOffsets, error) {
	if len(partitions) != len(offsets) {
		return nil, fmt.Errorf("partitions and offsets differ in length: %d != %d", len(partitions), len(offsets))
	}
	m := make(map[int32]int64, len(partitions))
	for i, p := range partitions {
		m[p] = offsets[i]
	}
	return func(p int32) int64 {
		if off, ok := m[p]; ok {
			return off
		}
		return DontSeek
	}, nil
}

// fieldNameMappingFromParallelArrays renames listed fields and keeps the
// others as they are.
func fieldNameMappingFromParallelArrays(fields, columns []string) (FieldNameMapping, error) {
	if len(fields) != len(columns) {
		return nil, fmt.Errorf("field and column names differ in length: %d != %d", len(fields), len(columns))
	}
	m := make(map[string]string, len(fields))
	for i, f := range fields {
		m[f] = columns[i]
	}
	return func(f string) string {
		if c, ok := m[f]; ok {
			return c
		}
		return f
	}, nil
}
