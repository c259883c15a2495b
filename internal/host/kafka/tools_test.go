package kafka

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablebridge/foreign"
)

func mustArray(t *testing.T, elem foreign.ElemType, items any) foreign.Array {
	t.Helper()
	a, err := foreign.NewArray(elem, items)
	require.NoError(t, err)
	return a
}

func TestTools_Constants(t *testing.T) {
	tools := NewTools()
	for _, name := range []string{
		"ALL_PARTITIONS",
		"ALL_PARTITIONS_DONT_SEEK",
		"ALL_PARTITIONS_SEEK_TO_BEGINNING",
		"ALL_PARTITIONS_SEEK_TO_END",
		"DIRECT_MAPPING",
	} {
		_, ok := tools.Constant(name)
		assert.True(t, ok, name)
	}
	_, ok := tools.Constant("ALL_THE_THINGS")
	assert.False(t, ok)

	v, _ := tools.Constant("ALL_PARTITIONS_SEEK_TO_BEGINNING")
	assert.Equal(t, SeekToBeginning, v.(PartitionOffsets)(3))
	v, _ = tools.Constant("ALL_PARTITIONS_SEEK_TO_END")
	assert.Equal(t, SeekToEnd, v.(PartitionOffsets)(3))
	v, _ = tools.Constant("DIRECT_MAPPING")
	assert.Equal(t, "Price", v.(FieldNameMapping)("Price"))
}

func TestTools_PartitionHelpers(t *testing.T) {
	ctx := context.Background()
	tools := NewTools()

	v, err := tools.Call(ctx, "partitionFilterFromArray", []any{mustArray(t, foreign.ElemInt32, []int{4, 1})})
	require.NoError(t, err)
	filter := v.(PartitionFilter)
	assert.True(t, filter(1))
	assert.True(t, filter(4))
	assert.False(t, filter(2))

	v, err = tools.Call(ctx, "partitionToOffsetFromParallelArrays", []any{
		mustArray(t, foreign.ElemInt32, []int{0, 2}),
		mustArray(t, foreign.ElemInt64, []int64{100, SeekToEnd}),
	})
	require.NoError(t, err)
	offsets := v.(PartitionOffsets)
	assert.Equal(t, int64(100), offsets(0))
	assert.Equal(t, SeekToEnd, offsets(2))
	assert.Equal(t, DontSeek, offsets(1))

	_, err = tools.Call(ctx, "partitionToOffsetFromParallelArrays", []any{
		mustArray(t, foreign.ElemInt32, []int{0, 2}),
		mustArray(t, foreign.ElemInt64, []int64{100}),
	})
	require.ErrorContains(t, err, "differ in length")
}

func TestTools_FieldNameMapping(t *testing.T) {
	v, err := NewTools().Call(context.Background(), "fieldNameMappingFromParallelArrays", []any{
		mustArray(t, foreign.ElemString, []string{"px"}),
		mustArray(t, foreign.ElemString, []string{"Price"}),
	})
	require.NoError(t, err)
	fn := v.(FieldNameMapping)
	assert.Equal(t, "Price", fn("px"))
	assert.Equal(t, "qty", fn("qty"))
}

func TestTools_ArgumentErrors(t *testing.T) {
	ctx := context.Background()
	tools := NewTools()

	cases := map[string][]any{
		"partitionFilterFromArray":            {mustArray(t, foreign.ElemInt64, []int64{1})},
		"partitionToOffsetFromParallelArrays": {mustArray(t, foreign.ElemInt32, []int{1})},
		"parseAvroSchema":                     {42},
		"avroSchemaToColumnDefinitions":       {"not a schema"},
		"getAvroSchema":                       {"http://sr", "s", 1},
		"consumeToTable":                      {foreign.Properties{}, "t", allPartitions},
		"tableSize":                           {"t"},
	}
	for method, args := range cases {
		t.Run(method, func(t *testing.T) {
			_, err := tools.Call(ctx, method, args)
			require.Error(t, err)
		})
	}

	_, err := tools.Call(ctx, "consumeToTable", []any{
		foreign.Properties{}, "t", allPartitions, constOffset(DontSeek),
	})
	require.ErrorIs(t, err, ErrMissingBootstrap)

	_, err = tools.Call(ctx, "reticulate", nil)
	require.ErrorIs(t, err, foreign.ErrNotFound)
}

func TestTools_SchemaRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(registryVersion{Subject: "orders-value", Version: 1, ID: 5, Schema: ordersSchema})
	}))
	t.Cleanup(srv.Close)

	ctx := context.Background()
	tools := NewTools(WithHTTPClient(srv.Client()))

	v, err := tools.Call(ctx, "getAvroSchema", []any{srv.URL, "orders-value", "1"})
	require.NoError(t, err)
	schema := v.(*Schema)

	cols, err := tools.Call(ctx, "avroSchemaToColumnDefinitions", []any{schema})
	require.NoError(t, err)
	require.Len(t, cols, 6)
	assert.Equal(t, foreign.Properties{"name": "id", "type": TypeLong, "field": "id"}, cols.([]any)[0])

	parsed, err := tools.Call(ctx, "parseAvroSchema", []any{schema.String()})
	require.NoError(t, err)
	cols, err = tools.Call(ctx, "avroSchemaToColumnDefinitions", []any{parsed, directMapping})
	require.NoError(t, err)
	assert.Len(t, cols, 6)
}
