package kafka

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"tablebridge/foreign"
)

var ErrMissingBootstrap = errors.New("kafka: bootstrap.servers is required")

// consumerSettings is what a property set resolves to.
type consumerSettings struct {
	brokers []string
	sarama  *sarama.Config
	ingest  ingestLimits
}

type ingestLimits struct {
	capacity int64
	refill   int64
	tick     time.Duration
}

var defaultIngest = ingestLimits{capacity: 30_000, refill: 3_000, tick: 100 * time.Millisecond}

// settingsFromProperties reads Kafka client properties. Keys it does not
// know are ignored.
func settingsFromProperties(p foreign.Properties) (consumerSettings, error) {
	out := consumerSettings{sarama: sarama.NewConfig(), ingest: defaultIngest}
	sc := out.sarama
	sc.Consumer.Return.Errors = true

	for _, b := range strings.Split(p["bootstrap.servers"], ",") {
		if b = strings.TrimSpace(b); b != "" {
			out.brokers = append(out.brokers, b)
		}
	}
	if len(out.brokers) == 0 {
		return out, ErrMissingBootstrap
	}

	if v := p["client.id"]; v != "" {
		sc.ClientID = v
	}
	if v := p["kafka.version"]; v != "" {
		ver, err := sarama.ParseKafkaVersion(v)
		if err != nil {
			return out, fmt.Errorf("kafka.version: %w", err)
		}
		sc.Version = ver
	}

	switch proto := strings.ToUpper(p["security.protocol"]); proto {
	case "", "PLAINTEXT":
	case "SSL":
		sc.Net.TLS.Enable = true
	case "SASL_PLAINTEXT", "SASL_SSL":
		sc.Net.TLS.Enable = proto == "SASL_SSL"
		sc.Net.SASL.Enable = true
		sc.Net.SASL.User, sc.Net.SASL.Password = p["sasl.username"], p["sasl.password"]
		switch mech := strings.ToUpper(p["sasl.mechanism"]); mech {
		case "", sarama.SASLTypePlaintext:
			sc.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		default:
			return out, fmt.Errorf("sasl.mechanism %q is not supported", mech)
		}
	default:
		return out, fmt.Errorf("security.protocol %q is not supported", proto)
	}

	switch v := p["auto.offset.reset"]; v {
	case "", "latest":
		sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	case "earliest":
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	default:
		return out, fmt.Errorf("auto.offset.reset %q is not supported", v)
	}

	ints := []struct {
		key string
		set func(int64)
	}{
		{"fetch.min.bytes", func(n int64) { sc.Consumer.Fetch.Min = int32(n) }},
		{"max.partition.fetch.bytes", func(n int64) { sc.Consumer.Fetch.Default = int32(n) }},
		{"fetch.max.wait.ms", func(n int64) { sc.Consumer.MaxWaitTime = time.Duration(n) * time.Millisecond }},
		{"ingest.capacity", func(n int64) { out.ingest.capacity = n }},
		{"ingest.refill", func(n int64) { out.ingest.refill = n }},
		{"ingest.tick.ms", func(n int64) { out.ingest.tick = time.Duration(n) * time.Millisecond }},
	}
	for _, it := range ints {
		v, ok := p[it.key]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n <= 0 {
			return out, fmt.Errorf("%s: want a positive integer, got %q", it.key, v)
		}
		it.set(n)
	}

	if err := sc.Validate(); err != nil {
		return out, fmt.Errorf("kafka config: %w", err)
	}
	return out, nil
}
