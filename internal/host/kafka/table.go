package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"

	"tablebridge/internal/logging"
	"tablebridge/internal/telemetry"
)

var (
	ErrNoPartitions = errors.New("kafka: partition filter selected no partitions")
	ErrTableClosed  = errors.New("kafka: stream table closed")
)

// Metadata columns present in every stream table.
const (
	ColPartition = "KafkaPartition"
	ColOffset    = "KafkaOffset"
	ColTimestamp = "KafkaTimestamp"
	ColKey       = "KafkaKey"
	ColValue     = "KafkaValue"
)

// Row is one consumed record.
type Row struct {
	Partition int32
	Offset    int64
	Timestamp time.Time
	Values    map[string]any
}

// ConsumerFactory opens a partition-level consumer.
type ConsumerFactory func(brokers []string, cfg *sarama.Config) (sarama.Consumer, error)

// recordFormat decodes the key or the value half of a record. A nil schema
// keeps the raw bytes in a single column.
type recordFormat struct {
	schema  *Schema
	mapping FieldNameMapping
	rawCol  string
}

func (f recordFormat) columns() []ColumnDefinition {
	if f.schema == nil {
		return []ColumnDefinition{{Name: f.rawCol, Type: TypeBytes}}
	}
	return f.schema.Columns(f.mapping)
}

func (f recordFormat) decode(b []byte, into map[string]any) error {
	if f.schema == nil {
		into[f.rawCol] = b
		return nil
	}
	if b == nil {
		return nil
	}
	vals, err := f.schema.Decode(b, f.mapping)
	if err != nil {
		return err
	}
	for k, v := range vals {
		into[k] = v
	}
	return nil
}

// StreamTable is an append-only table fed from one Kafka topic.
type StreamTable struct {
	Topic string

	settings    consumerSettings
	filter      PartitionFilter
	offsets     PartitionOffsets
	key, value  recordFormat
	newConsumer ConsumerFactory
	log         *slog.Logger

	running atomic.Bool

	mu     sync.RWMutex
	rows   []Row
	errs   []error
	cancel context.CancelFunc
	closed bool
}

func (*StreamTable) TypeName() string { return "io.tablebridge.table.StreamTable" }

func (t *StreamTable) String() string {
	return fmt.Sprintf("StreamTable{topic=%s rows=%d}", t.Topic, t.Size())
}

func (t *StreamTable) Columns() []ColumnDefinition {
	cols := []ColumnDefinition{
		{Name: ColPartition, Type: TypeInt},
		{Name: ColOffset, Type: TypeLong},
		{Name: ColTimestamp, Type: TypeDateTime},
	}
	cols = append(cols, t.key.columns()...)
	return append(cols, t.value.columns()...)
}

func (t *StreamTable) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Snapshot copies the rows appended so far.
func (t *StreamTable) Snapshot() []Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Row(nil), t.rows...)
}

// Errors returns decode and consumer errors seen so far.
func (t *StreamTable) Errors() []error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]error(nil), t.errs...)
}

func (t *StreamTable) startOffset(p int32) int64 {
	switch off := t.offsets(p); off {
	case SeekToBeginning:
		return sarama.OffsetOldest
	case SeekToEnd:
		return sarama.OffsetNewest
	case DontSeek:
		return t.settings.sarama.Consumer.Offsets.Initial
	default:
		return off
	}
}

// Run consumes every selected partition until ctx is done.
func (t *StreamTable) Run(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		return fmt.Errorf("kafka: table for %s is already running", t.Topic)
	}
	defer t.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTableClosed, t.Topic)
	}
	t.cancel = cancel
	t.mu.Unlock()

	consumer, err := t.newConsumer(t.settings.brokers, t.settings.sarama)
	if err != nil {
		return fmt.Errorf("kafka: open consumer: %w", err)
	}
	defer consumer.Close()

	parts, err := consumer.Partitions(t.Topic)
	if err != nil {
		return fmt.Errorf("kafka: partitions of %s: %w", t.Topic, err)
	}

	var pcs []sarama.PartitionConsumer
	closeAll := func() {
		for _, pc := range pcs {
			_ = pc.Close()
		}
	}
	for _, p := range parts {
		if !t.filter(p) {
			continue
		}
		off := t.startOffset(p)
		pc, err := consumer.ConsumePartition(t.Topic, p, off)
		if err != nil {
			closeAll()
			return fmt.Errorf("kafka: consume %s/%d at %d: %w", t.Topic, p, off, err)
		}
		t.log.Debug("partition consumer started", "partition", p, "offset", off)
		pcs = append(pcs, pc)
	}
	if len(pcs) == 0 {
		return fmt.Errorf("%w: topic %s", ErrNoPartitions, t.Topic)
	}

	bp := NewController(t.settings.ingest.capacity, t.settings.ingest.refill, t.settings.ingest.tick)
	defer bp.Close()

	stop := context.AfterFunc(ctx, bp.Wake)
	defer stop()

	var wg sync.WaitGroup
	for _, pc := range pcs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			t.consume(ctx, pc, bp)
		}()
	}
	<-ctx.Done()
	closeAll()
	wg.Wait()
	t.log.Info("stream table stopped", "rows", t.Size())
	return ctx.Err()
}

// Close stops ingestion. A closed table keeps its rows but cannot run again.
func (t *StreamTable) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if t.cancel != nil {
		t.cancel()
	}
	return nil
}

func (t *StreamTable) consume(ctx context.Context, pc sarama.PartitionConsumer, bp *Controller) {
	for {
		select {
		case <-ctx.Done():
			return
		case cerr, ok := <-pc.Errors():
			if !ok {
				return
			}
			t.log.Warn("consumer error", "partition", cerr.Partition, "err", cerr.Err)
			t.recordErr(cerr)
		case msg, ok := <-pc.Messages():
			if !ok {
				return
			}
			if err := bp.Acquire(ctx); err != nil {
				return
			}
			t.append(msg)
		}
	}
}

func (t *StreamTable) append(msg *sarama.ConsumerMessage) {
	row := Row{
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Timestamp,
		Values:    make(map[string]any),
	}
	if err := t.key.decode(msg.Key, row.Values); err != nil {
		t.skip(msg, err)
		return
	}
	if err := t.value.decode(msg.Value, row.Values); err != nil {
		t.skip(msg, err)
		return
	}
	t.mu.Lock()
	t.rows = append(t.rows, row)
	t.mu.Unlock()
	telemetry.IngestedRows.WithLabelValues(t.Topic).Inc()
}

func (t *StreamTable) skip(msg *sarama.ConsumerMessage, err error) {
	t.log.Warn("record skipped", "partition", msg.Partition, "offset", msg.Offset, "err", err)
	t.recordErr(fmt.Errorf("%s/%d@%d: %w", msg.Topic, msg.Partition, msg.Offset, err))
}

func (t *StreamTable) recordErr(err error) {
	t.mu.Lock()
	t.errs = append(t.errs, err)
	t.mu.Unlock()
}

func newStreamTable(topic string, s consumerSettings, filter PartitionFilter, offsets PartitionOffsets, key, value recordFormat, f ConsumerFactory) *StreamTable {
	return &StreamTable{
		Topic:       topic,
		settings:    s,
		filter:      filter,
		offsets:     offsets,
		key:         key,
		value:       value,
		newConsumer: f,
		log:         logging.With("stream-table").With("topic", topic),
	}
}
