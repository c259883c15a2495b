package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tablebridge/bridge"
	"tablebridge/foreign"
)

type consumeOptions struct {
	propsFile    string
	props        map[string]string
	topic        string
	partitions   []int
	offsets      map[string]int64
	seek         string
	registry     string
	keySubject   string
	valueSubject string
}

func newConsumeCommand(root *rootOptions) *cobra.Command {
	opts := &consumeOptions{}
	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Start a stream table fed from a Kafka topic",
		Long: `Start a stream table on the bridge host fed from a Kafka topic and print
its handle and columns. Consumer properties come from a YAML file, from
repeated --prop flags, or both; flags win.

Example:
  bridgectl consume --prop bootstrap.servers=localhost:9092 --topic orders
  bridgectl consume --props-file kafka.yml --topic orders --partitions 0,2 --offsets 0=100,2=5
  bridgectl consume --props-file kafka.yml --topic orders --registry http://localhost:8081 --value-subject orders-value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			props, err := opts.properties()
			if err != nil {
				return err
			}
			offsets, err := opts.offsetArg()
			if err != nil {
				return err
			}

			s, err := root.connect()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := s.callContext(cmd.Context())
			defer cancel()

			var filter any
			if len(opts.partitions) > 0 {
				filter = opts.partitions
			}
			schemaOpts, err := opts.schemaOptions(ctx, s)
			if err != nil {
				return err
			}
			v, err := s.tools.ConsumeToTable(ctx, []any{props, opts.topic, filter, offsets}, schemaOpts...)
			if err != nil {
				return fmt.Errorf("consume %s: %w", opts.topic, err)
			}
			h, ok := v.(foreign.Handle)
			if !ok {
				return fmt.Errorf("unexpected table value %T", v)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "table %s (%s) topic=%s\n", h.ID, h.Type, opts.topic)

			ns, err := s.client.Resolve(ctx, s.cfg.Runtime.Symbol)
			if err != nil {
				return err
			}
			cols, err := s.client.Invoke(ctx, ns, "tableColumns", h)
			if err != nil {
				return fmt.Errorf("table columns: %w", err)
			}
			return printColumns(cmd.OutOrStdout(), cols)
		},
	}
	cmd.Flags().StringVar(&opts.propsFile, "props-file", "", "YAML file of Kafka consumer properties")
	cmd.Flags().StringToStringVarP(&opts.props, "prop", "p", nil, "Kafka consumer property key=value")
	cmd.Flags().StringVar(&opts.topic, "topic", "", "topic to consume")
	cmd.Flags().IntSliceVar(&opts.partitions, "partitions", nil, "partitions to consume (default all)")
	cmd.Flags().StringToInt64Var(&opts.offsets, "offsets", nil, "partition=offset starting positions")
	cmd.Flags().StringVar(&opts.seek, "seek", "", "offset constant: "+bridge.AllPartitionsDontSeek+", "+bridge.AllPartitionsSeekToBeginning+" or "+bridge.AllPartitionsSeekToEnd)
	cmd.Flags().StringVar(&opts.registry, "registry", "", "schema registry base URL")
	cmd.Flags().StringVar(&opts.keySubject, "key-subject", "", "Avro subject for record keys")
	cmd.Flags().StringVar(&opts.valueSubject, "value-subject", "", "Avro subject for record values")
	cmd.MarkFlagsMutuallyExclusive("offsets", "seek")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func (o *consumeOptions) properties() (map[string]any, error) {
	out := map[string]any{}
	if o.propsFile != "" {
		raw, err := os.ReadFile(o.propsFile)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", o.propsFile, err)
		}
		if err := yaml.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("parse %s: %w", o.propsFile, err)
		}
	}
	for k, v := range o.props {
		out[k] = v
	}
	return out, nil
}

// offsetArg converts --offsets into a partition→offset mapping, or returns
// the --seek constant name. nil selects the default.
func (o *consumeOptions) offsetArg() (any, error) {
	if o.seek != "" {
		return o.seek, nil
	}
	if len(o.offsets) == 0 {
		return nil, nil
	}
	out := make(map[int]int64, len(o.offsets))
	for k, off := range o.offsets {
		p, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("offsets: partition %q is not an integer", k)
		}
		out[p] = off
	}
	return out, nil
}

func (o *consumeOptions) schemaOptions(ctx context.Context, s *session) ([]bridge.ConsumeOption, error) {
	if o.keySubject == "" && o.valueSubject == "" {
		return nil, nil
	}
	if o.registry == "" {
		return nil, fmt.Errorf("--registry is required with --key-subject or --value-subject")
	}
	var out []bridge.ConsumeOption
	if o.keySubject != "" {
		schema, err := s.tools.GetAvroSchema(ctx, o.registry, o.keySubject, "latest")
		if err != nil {
			return nil, fmt.Errorf("key schema: %w", err)
		}
		out = append(out, bridge.WithKeyAvroSchema(schema))
	}
	if o.valueSubject != "" {
		schema, err := s.tools.GetAvroSchema(ctx, o.registry, o.valueSubject, "latest")
		if err != nil {
			return nil, fmt.Errorf("value schema: %w", err)
		}
		out = append(out, bridge.WithValueAvroSchema(schema))
	}
	return out, nil
}
