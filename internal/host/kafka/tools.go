// Package kafka hosts the io.tablebridge.kafka.KafkaTools namespace: partition
// and field-name helper functions, Avro schema handling, and stream tables
// fed by sarama partition consumers.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/IBM/sarama"

	"tablebridge/foreign"
	"tablebridge/internal/logging"
)

const Namespace = "io.tablebridge.kafka.KafkaTools"

type Tools struct {
	registry    RegistryClient
	newConsumer ConsumerFactory
	ingestCtx   context.Context
	log         *slog.Logger
}

type Option func(*Tools)

func WithHTTPClient(c *http.Client) Option { return func(t *Tools) { t.registry.HTTP = c } }

func WithConsumerFactory(f ConsumerFactory) Option { return func(t *Tools) { t.newConsumer = f } }

// WithIngestContext makes consumeToTable start ingestion immediately, bound
// to ctx. Without it tables are returned idle and callers run them.
func WithIngestContext(ctx context.Context) Option { return func(t *Tools) { t.ingestCtx = ctx } }

func NewTools(opts ...Option) *Tools {
	t := &Tools{
		newConsumer: sarama.NewConsumer,
		log:         logging.With("kafka-tools"),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (*Tools) Name() string { return Namespace }

func (*Tools) Constant(name string) (any, bool) {
	v, ok := namedConstants[name]
	return v, ok
}

func (t *Tools) Call(ctx context.Context, method string, args []any) (any, error) {
	switch method {
	case "partitionFilterFromArray":
		if err := arity(method, args, 1); err != nil {
			return nil, err
		}
		parts, err := int32sArg(method, args, 0)
		if err != nil {
			return nil, err
		}
		return partitionFilterFromArray(parts), nil

	case "partitionToOffsetFromParallelArrays":
		if err := arity(method, args, 2); err != nil {
			return nil, err
		}
		parts, err := int32sArg(method, args, 0)
		if err != nil {
			return nil, err
		}
		offs, err := int64sArg(method, args, 1)
		if err != nil {
			return nil, err
		}
		return partitionToOffsetFromParallelArrays(parts, offs)

	case "fieldNameMappingFromParallelArrays":
		if err := arity(method, args, 2); err != nil {
			return nil, err
		}
		fields, err := stringsArg(method, args, 0)
		if err != nil {
			return nil, err
		}
		cols, err := stringsArg(method, args, 1)
		if err != nil {
			return nil, err
		}
		return fieldNameMappingFromParallelArrays(fields, cols)

	case "getAvroSchema":
		if err := arity(method, args, 3); err != nil {
			return nil, err
		}
		var s [3]string
		for i := range s {
			v, ok := args[i].(string)
			if !ok {
				return nil, argError(method, i, "string", args[i])
			}
			s[i] = v
		}
		return t.registry.Fetch(ctx, s[0], s[1], s[2])

	case "parseAvroSchema":
		if err := arity(method, args, 1); err != nil {
			return nil, err
		}
		text, ok := args[0].(string)
		if !ok {
			return nil, argError(method, 0, "string", args[0])
		}
		return ParseSchema(text)

	case "avroSchemaToColumnDefinitions":
		if err := arity(method, args, 1, 2); err != nil {
			return nil, err
		}
		schema, ok := args[0].(*Schema)
		if !ok {
			return nil, argError(method, 0, "avro schema", args[0])
		}
		var mapping FieldNameMapping
		if len(args) == 2 {
			if mapping, ok = args[1].(FieldNameMapping); !ok {
				return nil, argError(method, 1, "field name mapping", args[1])
			}
		}
		return columnList(schema.Columns(mapping)), nil

	case "consumeToTable":
		return t.consumeToTable(args)

	case "tableColumns":
		tbl, err := tableArg(method, args)
		if err != nil {
			return nil, err
		}
		return columnList(tbl.Columns()), nil

	case "tableSize":
		tbl, err := tableArg(method, args)
		if err != nil {
			return nil, err
		}
		return int64(tbl.Size()), nil
	}
	return nil, fmt.Errorf("%w: method %s.%s", foreign.ErrNotFound, Namespace, method)
}

// consumeToTable takes (properties, topic, partitionFilter, partitionOffsets)
// optionally followed by (keySchema, keyMapping, valueSchema, valueMapping)
// where either schema may be nil.
func (t *Tools) consumeToTable(args []any) (*StreamTable, error) {
	const method = "consumeToTable"
	if err := arity(method, args, 4, 8); err != nil {
		return nil, err
	}
	props, ok := args[0].(foreign.Properties)
	if !ok {
		return nil, argError(method, 0, "properties", args[0])
	}
	topic, ok := args[1].(string)
	if !ok || topic == "" {
		return nil, argError(method, 1, "topic name", args[1])
	}
	filter, ok := args[2].(PartitionFilter)
	if !ok {
		return nil, argError(method, 2, "partition filter", args[2])
	}
	offsets, ok := args[3].(PartitionOffsets)
	if !ok {
		return nil, argError(method, 3, "partition offsets", args[3])
	}
	key := recordFormat{rawCol: ColKey}
	value := recordFormat{rawCol: ColValue}
	if len(args) == 8 {
		var err error
		if key, err = formatArgs(method, args, 4, ColKey); err != nil {
			return nil, err
		}
		if value, err = formatArgs(method, args, 6, ColValue); err != nil {
			return nil, err
		}
	}

	settings, err := settingsFromProperties(props)
	if err != nil {
		return nil, err
	}
	tbl := newStreamTable(topic, settings, filter, offsets, key, value, t.newConsumer)
	if t.ingestCtx != nil {
		go func() {
			err := tbl.Run(t.ingestCtx)
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrTableClosed) {
				t.log.Error("ingestion stopped", "topic", topic, "err", err)
			}
		}()
	}
	t.log.Info("stream table created", "topic", topic, "brokers", settings.brokers, "started", t.ingestCtx != nil)
	return tbl, nil
}

func formatArgs(method string, args []any, i int, rawCol string) (recordFormat, error) {
	f := recordFormat{rawCol: rawCol}
	if args[i] != nil {
		s, ok := args[i].(*Schema)
		if !ok {
			return f, argError(method, i, "avro schema or nil", args[i])
		}
		f.schema = s
	}
	if args[i+1] != nil {
		m, ok := args[i+1].(FieldNameMapping)
		if !ok {
			return f, argError(method, i+1, "field name mapping or nil", args[i+1])
		}
		f.mapping = m
	}
	return f, nil
}

func columnList(cols []ColumnDefinition) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		p := foreign.Properties{"name": c.Name, "type": c.Type}
		if c.Field != "" {
			p["field"] = c.Field
		}
		out[i] = p
	}
	return out
}

func tableArg(method string, args []any) (*StreamTable, error) {
	if err := arity(method, args, 1); err != nil {
		return nil, err
	}
	tbl, ok := args[0].(*StreamTable)
	if !ok {
		return nil, argError(method, 0, "stream table", args[0])
	}
	return tbl, nil
}
