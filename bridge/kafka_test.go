package bridge

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"tablebridge/foreign"
)

func readyTools(t *testing.T) (*KafkaTools, *fakeRuntime) {
	t.Helper()
	rt := newFakeRuntime(true)
	k := NewKafkaTools(rt)
	require.True(t, k.Resolver().Bound())
	return k, rt
}

func TestKafkaTools_EveryOperationRequiresReadyRuntime(t *testing.T) {
	ctx := context.Background()
	k := NewKafkaTools(newFakeRuntime(false))
	props := map[string]string{"bootstrap.servers": "b:9092"}

	ops := map[string]func() error{
		"toPropertySet": func() error { _, err := k.ToPropertySet(ctx, props); return err },
		"schemaToColumnDefinitions": func() error {
			_, err := k.SchemaToColumnDefinitions(ctx, "schema")
			return err
		},
		"commonArgsNormalize": func() error { _, err := k.CommonArgsNormalize(ctx, props, "t"); return err },
		"consumeToTable":      func() error { _, err := k.ConsumeToTable(ctx, []any{props, "t"}); return err },
		"getAvroSchema":       func() error { _, err := k.GetAvroSchema(ctx, "http://sr", "s", "1"); return err },
		"partitionFilterFromArray": func() error {
			_, err := k.PartitionFilterFromArray(ctx, []int{0})
			return err
		},
		"partitionToOffsetFromParallelArrays": func() error {
			_, err := k.PartitionToOffsetFromParallelArrays(ctx, []int{0}, []int64{1})
			return err
		},
		"fieldNameMappingFromParallelArrays": func() error {
			_, err := k.FieldNameMappingFromParallelArrays(ctx, []string{"a"}, []string{"A"})
			return err
		},
		"constant": func() error { _, err := k.Constant(ctx, AllPartitions); return err },
		"release":  func() error { return k.Release(ctx, foreign.Handle{ID: "h", Type: "T"}) },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, op(), ErrEnvironmentNotReady)
		})
	}
}

func TestKafkaTools_RepeatedCallsDoNotReResolve(t *testing.T) {
	k, rt := readyTools(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := k.CommonArgsNormalize(ctx, map[string]string{}, "t")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, rt.resolveCount())
}

func TestToPropertySet_RoundTrip(t *testing.T) {
	k, _ := readyTools(t)
	rapid.Check(t, func(rt *rapid.T) {
		m := rapid.MapOf(rapid.String(), rapid.String()).Draw(rt, "props")
		got, err := k.ToPropertySet(context.Background(), m)
		if err != nil {
			rt.Fatalf("ToPropertySet: %v", err)
		}
		if len(got) != len(m) {
			rt.Fatalf("want %d keys, got %d", len(m), len(got))
		}
		for key, want := range m {
			if got[key] != want {
				rt.Fatalf("key %q: want %q, got %q", key, want, got[key])
			}
		}
	})
}

type kafkaVersion struct{ major, minor int }

func (v kafkaVersion) String() string { return fmt.Sprintf("%d.%d", v.major, v.minor) }

func TestToPropertySet_ScalarValues(t *testing.T) {
	k, _ := readyTools(t)
	got, err := k.ToPropertySet(context.Background(), map[string]any{
		"enable.auto.commit": false,
		"fetch.min.bytes":    1024,
		"ratio":              0.5,
		"kafka.version":      kafkaVersion{3, 7},
	})
	require.NoError(t, err)
	assert.Equal(t, foreign.Properties{
		"enable.auto.commit": "false",
		"fetch.min.bytes":    "1024",
		"ratio":              "0.5",
		"kafka.version":      "3.7",
	}, got)
}

func TestToPropertySet_TypedMaps(t *testing.T) {
	k, _ := readyTools(t)
	ctx := context.Background()

	got, err := k.ToPropertySet(ctx, map[string]int{"fetch.min.bytes": 1024})
	require.NoError(t, err)
	assert.Equal(t, foreign.Properties{"fetch.min.bytes": "1024"}, got)

	got, err = k.ToPropertySet(ctx, map[string]bool{"enable.auto.commit": false})
	require.NoError(t, err)
	assert.Equal(t, foreign.Properties{"enable.auto.commit": "false"}, got)

	_, err = k.ToPropertySet(ctx, map[int]string{1: "x"})
	require.ErrorIs(t, err, ErrTypeCoercion)
	assert.Contains(t, err.Error(), "string-keyed mapping")
}

func TestCommonArgsNormalize_StringKeyedOffsets(t *testing.T) {
	k, rt := readyTools(t)
	got, err := k.CommonArgsNormalize(context.Background(), map[string]string{}, "t", nil, map[string]int64{"2": 7, "0": 100})
	require.NoError(t, err)
	assert.Equal(t, SpecExplicit, got.PartitionOffsets.Kind)
	assert.Equal(t, []int32{0, 2}, got.PartitionOffsets.Partitions)
	assert.Equal(t, []int64{100, 7}, got.PartitionOffsets.Offsets)
	require.Len(t, rt.invocations("partitionToOffsetFromParallelArrays"), 1)

	_, err = k.CommonArgsNormalize(context.Background(), map[string]string{}, "t", nil, map[string]int64{"p0": 1})
	require.ErrorIs(t, err, ErrTypeCoercion)
	assert.Contains(t, err.Error(), `partition "p0" is not an integer`)
}

func TestToPropertySet_RejectsUnrepresentable(t *testing.T) {
	k, _ := readyTools(t)
	_, err := k.ToPropertySet(context.Background(), map[string]any{"brokers": []string{"a", "b"}})
	require.ErrorIs(t, err, ErrTypeCoercion)

	_, err = k.ToPropertySet(context.Background(), []string{"not", "a", "map"})
	require.ErrorIs(t, err, ErrTypeCoercion)
}

func TestSchemaToColumnDefinitions_Arity(t *testing.T) {
	k, _ := readyTools(t)
	ctx := context.Background()

	_, err := k.SchemaToColumnDefinitions(ctx)
	require.ErrorIs(t, err, ErrArity)
	assert.Contains(t, err.Error(), "not enough arguments")

	_, err = k.SchemaToColumnDefinitions(ctx, "s", map[string]string{}, "extra")
	require.ErrorIs(t, err, ErrArity)
	assert.Contains(t, err.Error(), "too many arguments")
}

func TestSchemaToColumnDefinitions_SchemaOnly(t *testing.T) {
	k, rt := readyTools(t)
	_, err := k.SchemaToColumnDefinitions(context.Background(), "schema-handle")
	require.NoError(t, err)

	calls := rt.invocations("avroSchemaToColumnDefinitions")
	require.Len(t, calls, 1)
	assert.Equal(t, []any{"schema-handle"}, calls[0].args)
	assert.Empty(t, rt.invocations("fieldNameMappingFromParallelArrays"))
}

func TestSchemaToColumnDefinitions_WithMapping(t *testing.T) {
	k, rt := readyTools(t)
	mapping := map[string]string{"userId": "UserId", "amount": "Amount", "ts": "Timestamp"}
	_, err := k.SchemaToColumnDefinitions(context.Background(), "schema-handle", mapping)
	require.NoError(t, err)

	fm := rt.invocations("fieldNameMappingFromParallelArrays")
	require.Len(t, fm, 1)
	fields, err := fm[0].args[0].(foreign.Array).Strings()
	require.NoError(t, err)
	columns, err := fm[0].args[1].(foreign.Array).Strings()
	require.NoError(t, err)
	require.Len(t, columns, len(fields))
	for i, f := range fields {
		assert.Equal(t, mapping[f], columns[i], "field %q", f)
	}

	defs := rt.invocations("avroSchemaToColumnDefinitions")
	require.Len(t, defs, 1)
	require.Len(t, defs[0].args, 2)
	assert.Equal(t, "schema-handle", defs[0].args[0])
	assert.Equal(t, foreign.Handle{ID: "fieldNameMappingFromParallelArrays", Type: "fieldNameMappingFromParallelArrays"}, defs[0].args[1])
}

func TestSchemaToColumnDefinitions_NilMappingIsAbsent(t *testing.T) {
	k, rt := readyTools(t)
	_, err := k.SchemaToColumnDefinitions(context.Background(), "schema-handle", nil)
	require.NoError(t, err)

	calls := rt.invocations("avroSchemaToColumnDefinitions")
	require.Len(t, calls, 1)
	assert.Equal(t, []any{"schema-handle"}, calls[0].args)
	assert.Empty(t, rt.invocations("fieldNameMappingFromParallelArrays"))
}

func TestSchemaToColumnDefinitions_ReleasesInternalMapping(t *testing.T) {
	k, rt := readyTools(t)
	_, err := k.SchemaToColumnDefinitions(context.Background(), "schema-handle", map[string]string{"px": "Price"})
	require.NoError(t, err)
	assert.Equal(t, []string{"fieldNameMappingFromParallelArrays"}, rt.releasedIDs())
}

func TestSchemaToColumnDefinitions_MappingType(t *testing.T) {
	k, _ := readyTools(t)
	_, err := k.SchemaToColumnDefinitions(context.Background(), "s", []string{"a"})
	require.ErrorIs(t, err, ErrTypeCoercion)
}

func TestCommonArgsNormalize_Arity(t *testing.T) {
	k, _ := readyTools(t)
	ctx := context.Background()
	props := map[string]string{"bootstrap.servers": "b:9092"}

	_, err := k.CommonArgsNormalize(ctx, props)
	require.ErrorIs(t, err, ErrArity)

	_, err = k.CommonArgsNormalize(ctx, props, "t", AllPartitions, AllPartitionsDontSeek, "extra")
	require.ErrorIs(t, err, ErrArity)
	assert.Contains(t, err.Error(), "too many arguments")
}

func TestCommonArgsNormalize_Defaults(t *testing.T) {
	k, rt := readyTools(t)
	props := map[string]string{"bootstrap.servers": "b:9092"}

	got, err := k.CommonArgsNormalize(context.Background(), props, "topicA")
	require.NoError(t, err)

	assert.Equal(t, foreign.Properties(props), got.Properties)
	assert.Equal(t, "topicA", got.Topic)
	assert.Equal(t, SpecConstant, got.PartitionFilter.Kind)
	assert.Equal(t, AllPartitions, got.PartitionFilter.Name)
	assert.Equal(t, rt.constants[AllPartitions], got.PartitionFilter.Value)
	assert.Equal(t, SpecConstant, got.PartitionOffsets.Kind)
	assert.Equal(t, AllPartitionsDontSeek, got.PartitionOffsets.Name)
	assert.Equal(t, rt.constants[AllPartitionsDontSeek], got.PartitionOffsets.Value)
}

func TestCommonArgsNormalize_ExplicitFilter(t *testing.T) {
	k, rt := readyTools(t)
	got, err := k.CommonArgsNormalize(context.Background(), map[string]string{}, "topicA", []int{0, 1, 2})
	require.NoError(t, err)

	assert.Equal(t, SpecExplicit, got.PartitionFilter.Kind)
	assert.Equal(t, []int32{0, 1, 2}, got.PartitionFilter.Partitions)

	calls := rt.invocations("partitionFilterFromArray")
	require.Len(t, calls, 1)
	parts, err := calls[0].args[0].(foreign.Array).Int32s()
	require.NoError(t, err)
	assert.ElementsMatch(t, []int32{0, 1, 2}, parts)
}

func TestCommonArgsNormalize_NamedFilter(t *testing.T) {
	k, rt := readyTools(t)
	got, err := k.CommonArgsNormalize(context.Background(), map[string]string{}, "t", AllPartitionsSeekToEnd)
	require.NoError(t, err)
	assert.Equal(t, rt.constants[AllPartitionsSeekToEnd], got.PartitionFilter.Value)

	_, err = k.CommonArgsNormalize(context.Background(), map[string]string{}, "t", "NO_SUCH_CONSTANT")
	require.ErrorIs(t, err, ErrSymbolResolution)
}

func TestCommonArgsNormalize_OffsetMapping(t *testing.T) {
	k, rt := readyTools(t)
	got, err := k.CommonArgsNormalize(context.Background(),
		map[string]string{}, "topicA", []int{0, 1}, map[int]int64{1: 200, 0: 100})
	require.NoError(t, err)

	assert.Equal(t, SpecExplicit, got.PartitionOffsets.Kind)
	assert.Equal(t, []int32{0, 1}, got.PartitionOffsets.Partitions)
	assert.Equal(t, []int64{100, 200}, got.PartitionOffsets.Offsets)

	calls := rt.invocations("partitionToOffsetFromParallelArrays")
	require.Len(t, calls, 1)
	pa := calls[0].args[0].(foreign.Array)
	oa := calls[0].args[1].(foreign.Array)
	assert.Equal(t, 2, pa.Len())
	assert.Equal(t, pa.Len(), oa.Len())
}

func TestCommonArgsNormalize_NamedOffsets(t *testing.T) {
	k, rt := readyTools(t)
	got, err := k.CommonArgsNormalize(context.Background(), map[string]string{}, "t", nil, AllPartitionsSeekToBeginning)
	require.NoError(t, err)
	assert.Equal(t, AllPartitions, got.PartitionFilter.Name)
	assert.Equal(t, rt.constants[AllPartitionsSeekToBeginning], got.PartitionOffsets.Value)
}

func TestCommonArgsNormalize_BadShapes(t *testing.T) {
	k, _ := readyTools(t)
	ctx := context.Background()

	_, err := k.CommonArgsNormalize(ctx, map[string]string{}, "t", AllPartitions, []int64{5})
	require.ErrorIs(t, err, ErrTypeCoercion)
	assert.Contains(t, err.Error(), "string or mapping allowed")

	_, err = k.CommonArgsNormalize(ctx, map[string]string{}, 42)
	require.ErrorIs(t, err, ErrTypeCoercion)

	_, err = k.CommonArgsNormalize(ctx, map[string]string{}, "t", map[string]int{"a": 1})
	require.ErrorIs(t, err, ErrTypeCoercion)
}

func TestConsumeToTable_WithoutSchemas(t *testing.T) {
	k, rt := readyTools(t)
	_, err := k.ConsumeToTable(context.Background(), []any{map[string]string{"bootstrap.servers": "b"}, "t"})
	require.NoError(t, err)

	calls := rt.invocations("consumeToTable")
	require.Len(t, calls, 1)
	require.Len(t, calls[0].args, 4)
	assert.Equal(t, "t", calls[0].args[1])
}

func TestConsumeToTable_WithSchemasInsertsDirectMapping(t *testing.T) {
	k, rt := readyTools(t)
	_, err := k.ConsumeToTable(context.Background(),
		[]any{map[string]string{}, "t"},
		WithValueAvroSchema("value-schema"))
	require.NoError(t, err)

	calls := rt.invocations("consumeToTable")
	require.Len(t, calls, 1)
	args := calls[0].args
	require.Len(t, args, 8)
	direct := rt.constants[DirectMapping]
	assert.Nil(t, args[4])
	assert.Equal(t, direct, args[5])
	assert.Equal(t, "value-schema", args[6])
	assert.Equal(t, direct, args[7])
}

func TestConsumeToTable_ReleasesExplicitArguments(t *testing.T) {
	k, rt := readyTools(t)
	ctx := context.Background()

	_, err := k.ConsumeToTable(ctx, []any{map[string]string{}, "t", []int{0, 1}, map[int]int64{0: 5}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"partitionFilterFromArray", "partitionToOffsetFromParallelArrays"}, rt.releasedIDs())

	_, err = k.ConsumeToTable(ctx, []any{map[string]string{}, "t"})
	require.NoError(t, err)
	assert.Len(t, rt.releasedIDs(), 2, "constants are never released")
}

func TestCommonArgsNormalize_ReleasesFilterWhenOffsetsFail(t *testing.T) {
	k, rt := readyTools(t)
	_, err := k.CommonArgsNormalize(context.Background(), map[string]string{}, "t", []int{0}, []int64{5})
	require.ErrorIs(t, err, ErrTypeCoercion)
	assert.Equal(t, []string{"partitionFilterFromArray"}, rt.releasedIDs())
}

func TestKafkaTools_Release(t *testing.T) {
	k, rt := readyTools(t)
	h := foreign.Handle{ID: "t-1", Type: "io.tablebridge.table.StreamTable"}
	require.NoError(t, k.Release(context.Background(), h))
	assert.Equal(t, []string{"t-1"}, rt.releasedIDs())
}

func TestConsumeToTable_PropagatesNormalizeErrors(t *testing.T) {
	k, rt := readyTools(t)
	_, err := k.ConsumeToTable(context.Background(), []any{map[string]string{}})
	require.ErrorIs(t, err, ErrArity)
	assert.Empty(t, rt.invocations("consumeToTable"))
}

func TestParallelArrays_LengthMismatch(t *testing.T) {
	k, _ := readyTools(t)
	ctx := context.Background()

	_, err := k.PartitionToOffsetFromParallelArrays(ctx, []int{0, 1}, []int64{5})
	require.ErrorIs(t, err, ErrArity)

	_, err = k.FieldNameMappingFromParallelArrays(ctx, []string{"a"}, nil)
	require.ErrorIs(t, err, ErrArity)
}

func TestPartitionFilterFromArray_Overflow(t *testing.T) {
	k, _ := readyTools(t)
	_, err := k.PartitionFilterFromArray(context.Background(), []int{1 << 40})
	require.ErrorIs(t, err, ErrTypeCoercion)
}

func TestGetAvroSchema_PassesThrough(t *testing.T) {
	k, rt := readyTools(t)
	_, err := k.GetAvroSchema(context.Background(), "http://registry:8081", "orders-value", "latest")
	require.NoError(t, err)
	calls := rt.invocations("getAvroSchema")
	require.Len(t, calls, 1)
	assert.Equal(t, []any{"http://registry:8081", "orders-value", "latest"}, calls[0].args)
}
