// Package bridge exposes the foreign table engine's Kafka ingestion entry
// points to Go callers.
//
// Every exported KafkaTools operation first makes sure the foreign symbol is
// bound (see Resolver), then normalizes its Go arguments into the shapes the
// foreign overloads expect, and finally delegates to the foreign runtime.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"tablebridge/foreign"
	"tablebridge/internal/logging"
	"tablebridge/internal/telemetry"
)

// KafkaToolsSymbol is the fully-qualified name of the foreign namespace.
const KafkaToolsSymbol = "io.tablebridge.kafka.KafkaTools"

type KafkaTools struct {
	rt     foreign.Runtime
	symbol string
	res    *Resolver
	log    *slog.Logger
}

type Option func(*KafkaTools)

// WithSymbol overrides the foreign namespace name.
func WithSymbol(name string) Option { return func(k *KafkaTools) { k.symbol = name } }

// WithResolver shares an existing resolver. Its runtime must be rt.
func WithResolver(r *Resolver) Option { return func(k *KafkaTools) { k.res = r } }

// NewKafkaTools returns a call adapter over rt. It tries to bind right away;
// if the runtime is not ready yet the failure is only logged and every
// operation retries the binding.
func NewKafkaTools(rt foreign.Runtime, opts ...Option) *KafkaTools {
	k := &KafkaTools{rt: rt, symbol: KafkaToolsSymbol, log: logging.With("bridge")}
	for _, o := range opts {
		o(k)
	}
	if k.res == nil {
		k.res = NewResolver(rt, k.symbol)
	}
	if _, err := k.res.EnsureBound(context.Background()); err != nil {
		k.log.Debug("binding deferred", "symbol", k.res.Symbol(), "err", err)
	}
	return k
}

func (k *KafkaTools) Resolver() *Resolver { return k.res }

// guarded runs fn once the namespace is bound and records the outcome.
func guarded[T any](ctx context.Context, k *KafkaTools, op string, fn func(ns foreign.Handle) (T, error)) (T, error) {
	var zero T
	b, err := k.res.EnsureBound(ctx)
	if err == nil {
		var v T
		if v, err = fn(b.Namespace); err == nil {
			telemetry.ObserveCall(op, nil)
			return v, nil
		}
	}
	telemetry.ObserveCall(op, err)
	k.log.Debug("call failed", "op", op, "err", err)
	return zero, err
}

func (k *KafkaTools) invoke(ctx context.Context, ns foreign.Handle, method string, args ...any) (any, error) {
	v, err := k.rt.Invoke(ctx, ns, method, args...)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", k.res.Symbol(), method, err)
	}
	return v, nil
}

func (k *KafkaTools) constant(ctx context.Context, ns foreign.Handle, name string) (any, error) {
	v, err := k.rt.Constant(ctx, ns, name)
	if err != nil {
		if errors.Is(err, foreign.ErrNotFound) {
			return nil, &SymbolError{Name: k.res.Symbol() + "." + name, Err: err}
		}
		return nil, fmt.Errorf("%s.%s: %w", k.res.Symbol(), name, err)
	}
	return v, nil
}

// Constant looks up a named constant of the namespace.
func (k *KafkaTools) Constant(ctx context.Context, name string) (any, error) {
	return guarded(ctx, k, "constant", func(ns foreign.Handle) (any, error) {
		return k.constant(ctx, ns, name)
	})
}

// ToPropertySet converts a string-keyed mapping into foreign properties.
func (k *KafkaTools) ToPropertySet(ctx context.Context, m any) (foreign.Properties, error) {
	return guarded(ctx, k, "toPropertySet", func(foreign.Handle) (foreign.Properties, error) {
		return toProperties("toPropertySet", m)
	})
}

// SchemaToColumnDefinitions accepts (schema) or (schema, fieldName→columnName).
func (k *KafkaTools) SchemaToColumnDefinitions(ctx context.Context, args ...any) (any, error) {
	const op = "schemaToColumnDefinitions"
	return guarded(ctx, k, op, func(ns foreign.Handle) (any, error) {
		switch len(args) {
		case 0:
			return nil, notEnough(op, 0)
		case 1:
			return k.invoke(ctx, ns, "avroSchemaToColumnDefinitions", args[0])
		case 2:
			if args[1] == nil {
				return k.invoke(ctx, ns, "avroSchemaToColumnDefinitions", args[0])
			}
			mapping, ok := args[1].(map[string]string)
			if !ok {
				return nil, coercion(op, "field name mapping", "map[string]string required, got %T", args[1])
			}
			fields := make([]string, 0, len(mapping))
			for f := range mapping {
				fields = append(fields, f)
			}
			slices.Sort(fields)
			columns := make([]string, len(fields))
			for i, f := range fields {
				columns[i] = mapping[f]
			}
			fn, err := k.fieldNameMapping(ctx, ns, op, fields, columns)
			if err != nil {
				return nil, err
			}
			defer k.discard(ctx, fn)
			return k.invoke(ctx, ns, "avroSchemaToColumnDefinitions", args[0], fn)
		default:
			return nil, tooMany(op, len(args))
		}
	})
}

// CommonArgsNormalize normalizes
// (properties, topic[, partitionFilter[, partitionOffsets]]).
//
// The filter is a constant name or a slice of partition indices and defaults
// to ALL_PARTITIONS. The offsets are a constant name or a partition→offset
// mapping and default to ALL_PARTITIONS_DONT_SEEK. A nil optional argument
// counts as absent.
func (k *KafkaTools) CommonArgsNormalize(ctx context.Context, args ...any) (ConsumeArgs, error) {
	return guarded(ctx, k, "commonArgsNormalize", func(ns foreign.Handle) (ConsumeArgs, error) {
		return k.normalize(ctx, ns, "commonArgsNormalize", args)
	})
}

func (k *KafkaTools) normalize(ctx context.Context, ns foreign.Handle, op string, args []any) (ConsumeArgs, error) {
	var out ConsumeArgs
	if len(args) < 2 {
		return out, notEnough(op, len(args))
	}
	if len(args) > 4 {
		return out, tooMany(op, len(args))
	}

	props, err := toProperties(op, args[0])
	if err != nil {
		return out, err
	}
	topic, ok := args[1].(string)
	if !ok {
		return out, coercion(op, "topic", "string required, got %T", args[1])
	}
	out.Properties, out.Topic = props, topic

	var filterArg, offsetArg any
	if len(args) >= 3 {
		filterArg = args[2]
	}
	if len(args) == 4 {
		offsetArg = args[3]
	}
	if out.PartitionFilter, err = k.partitionFilter(ctx, ns, op, filterArg); err != nil {
		return out, err
	}
	if out.PartitionOffsets, err = k.partitionOffsets(ctx, ns, op, offsetArg); err != nil {
		if out.PartitionFilter.Kind == SpecExplicit {
			k.discard(ctx, out.PartitionFilter.Value)
		}
		return out, err
	}
	return out, nil
}

func (k *KafkaTools) partitionFilter(ctx context.Context, ns foreign.Handle, op string, arg any) (PartitionFilterSpec, error) {
	switch v := arg.(type) {
	case nil:
		return k.constantFilter(ctx, ns, AllPartitions)
	case string:
		return k.constantFilter(ctx, ns, v)
	default:
		arr, err := foreign.NewArray(foreign.ElemInt32, v)
		if err != nil {
			return PartitionFilterSpec{}, coercion(op, "partition filter", "%v", err)
		}
		val, err := k.invoke(ctx, ns, "partitionFilterFromArray", arr)
		if err != nil {
			return PartitionFilterSpec{}, err
		}
		return PartitionFilterSpec{Kind: SpecExplicit, Partitions: int32Slice(arr), Value: val}, nil
	}
}

func (k *KafkaTools) constantFilter(ctx context.Context, ns foreign.Handle, name string) (PartitionFilterSpec, error) {
	val, err := k.constant(ctx, ns, name)
	if err != nil {
		return PartitionFilterSpec{}, err
	}
	return PartitionFilterSpec{Kind: SpecConstant, Name: name, Value: val}, nil
}

func (k *KafkaTools) partitionOffsets(ctx context.Context, ns foreign.Handle, op string, arg any) (PartitionOffsetSpec, error) {
	name := AllPartitionsDontSeek
	switch v := arg.(type) {
	case nil:
	case string:
		name = v
	default:
		parts, offs, ok, err := offsetPairs(op, v)
		if err != nil {
			return PartitionOffsetSpec{}, err
		}
		if !ok {
			return PartitionOffsetSpec{}, coercion(op, "partition offsets", "wrong type: string or mapping allowed, got %T", arg)
		}
		return k.explicitOffsets(ctx, ns, op, parts, offs)
	}
	val, err := k.constant(ctx, ns, name)
	if err != nil {
		return PartitionOffsetSpec{}, err
	}
	return PartitionOffsetSpec{Kind: SpecConstant, Name: name, Value: val}, nil
}

func (k *KafkaTools) explicitOffsets(ctx context.Context, ns foreign.Handle, op string, parts, offs []int64) (PartitionOffsetSpec, error) {
	if len(parts) != len(offs) {
		return PartitionOffsetSpec{}, &ArityError{Op: op, Got: len(offs), Msg: fmt.Sprintf("%d partitions but %d offsets", len(parts), len(offs))}
	}
	pa, err := foreign.NewArray(foreign.ElemInt32, parts)
	if err != nil {
		return PartitionOffsetSpec{}, coercion(op, "partitions", "%v", err)
	}
	oa, err := foreign.NewArray(foreign.ElemInt64, offs)
	if err != nil {
		return PartitionOffsetSpec{}, coercion(op, "offsets", "%v", err)
	}
	val, err := k.invoke(ctx, ns, "partitionToOffsetFromParallelArrays", pa, oa)
	if err != nil {
		return PartitionOffsetSpec{}, err
	}
	return PartitionOffsetSpec{
		Kind:       SpecExplicit,
		Partitions: int32Slice(pa),
		Offsets:    int64Slice(oa),
		Value:      val,
	}, nil
}

type consumeOptions struct {
	keySchema, valueSchema any
	withSchemas            bool
}

type ConsumeOption func(*consumeOptions)

// WithKeyAvroSchema decodes record keys with schema.
func WithKeyAvroSchema(schema any) ConsumeOption {
	return func(o *consumeOptions) { o.keySchema, o.withSchemas = schema, true }
}

// WithValueAvroSchema decodes record values with schema.
func WithValueAvroSchema(schema any) ConsumeOption {
	return func(o *consumeOptions) { o.valueSchema, o.withSchemas = schema, true }
}

// ConsumeToTable starts a foreign stream table fed from a Kafka topic. args
// follow CommonArgsNormalize. When any Avro schema option is given the
// foreign overload taking (schema, mapping) pairs is used, with DIRECT_MAPPING
// for both.
func (k *KafkaTools) ConsumeToTable(ctx context.Context, args []any, opts ...ConsumeOption) (any, error) {
	const op = "consumeToTable"
	var o consumeOptions
	for _, fn := range opts {
		fn(&o)
	}
	return guarded(ctx, k, op, func(ns foreign.Handle) (any, error) {
		ca, err := k.normalize(ctx, ns, op, args)
		if err != nil {
			return nil, err
		}
		defer k.discard(ctx, ca.explicitValues()...)
		if !o.withSchemas {
			return k.invoke(ctx, ns, "consumeToTable", ca.Values()...)
		}
		mapping, err := k.constant(ctx, ns, DirectMapping)
		if err != nil {
			return nil, err
		}
		call := append(ca.Values(), o.keySchema, mapping, o.valueSchema, mapping)
		return k.invoke(ctx, ns, "consumeToTable", call...)
	})
}

// Release lets the foreign runtime drop the object behind h. Handles
// returned by the other operations stay valid until released.
func (k *KafkaTools) Release(ctx context.Context, h foreign.Handle) error {
	_, err := guarded(ctx, k, "release", func(foreign.Handle) (struct{}, error) {
		if err := k.rt.Release(ctx, h); err != nil {
			return struct{}{}, fmt.Errorf("%s: release %s: %w", k.res.Symbol(), h, err)
		}
		return struct{}{}, nil
	})
	return err
}

// discard releases the handles among vals that the adapter created for its
// own use. Failures are only logged.
func (k *KafkaTools) discard(ctx context.Context, vals ...any) {
	ctx = context.WithoutCancel(ctx)
	for _, v := range vals {
		h, ok := v.(foreign.Handle)
		if !ok || h.IsZero() {
			continue
		}
		if err := k.rt.Release(ctx, h); err != nil {
			k.log.Debug("release failed", "handle", h.String(), "err", err)
		}
	}
}

// GetAvroSchema fetches a schema from a schema registry.
func (k *KafkaTools) GetAvroSchema(ctx context.Context, schemaServerURL, resourceName, version string) (any, error) {
	return guarded(ctx, k, "getAvroSchema", func(ns foreign.Handle) (any, error) {
		return k.invoke(ctx, ns, "getAvroSchema", schemaServerURL, resourceName, version)
	})
}

func (k *KafkaTools) PartitionFilterFromArray(ctx context.Context, partitions []int) (any, error) {
	const op = "partitionFilterFromArray"
	return guarded(ctx, k, op, func(ns foreign.Handle) (any, error) {
		arr, err := foreign.NewArray(foreign.ElemInt32, partitions)
		if err != nil {
			return nil, coercion(op, "partitions", "%v", err)
		}
		return k.invoke(ctx, ns, op, arr)
	})
}

func (k *KafkaTools) PartitionToOffsetFromParallelArrays(ctx context.Context, partitions []int, offsets []int64) (any, error) {
	const op = "partitionToOffsetFromParallelArrays"
	return guarded(ctx, k, op, func(ns foreign.Handle) (any, error) {
		parts := make([]int64, len(partitions))
		for i, p := range partitions {
			parts[i] = int64(p)
		}
		spec, err := k.explicitOffsets(ctx, ns, op, parts, offsets)
		if err != nil {
			return nil, err
		}
		return spec.Value, nil
	})
}

func (k *KafkaTools) FieldNameMappingFromParallelArrays(ctx context.Context, fieldNames, columnNames []string) (any, error) {
	const op = "fieldNameMappingFromParallelArrays"
	return guarded(ctx, k, op, func(ns foreign.Handle) (any, error) {
		return k.fieldNameMapping(ctx, ns, op, fieldNames, columnNames)
	})
}

func (k *KafkaTools) fieldNameMapping(ctx context.Context, ns foreign.Handle, op string, fields, columns []string) (any, error) {
	if len(fields) != len(columns) {
		return nil, &ArityError{Op: op, Got: len(columns), Msg: fmt.Sprintf("%d field names but %d column names", len(fields), len(columns))}
	}
	fa, err := foreign.NewArray(foreign.ElemString, fields)
	if err != nil {
		return nil, coercion(op, "field names", "%v", err)
	}
	ca, err := foreign.NewArray(foreign.ElemString, columns)
	if err != nil {
		return nil, coercion(op, "column names", "%v", err)
	}
	return k.invoke(ctx, ns, "fieldNameMappingFromParallelArrays", fa, ca)
}
