package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tablebridge/bridge"
	"tablebridge/internal/config"
	"tablebridge/internal/transport"
)

type rootOptions struct {
	configPath string
	addr       string
}

// session is one connection to a bridge host.
type session struct {
	cfg    config.Config
	addr   string
	client *transport.Client
	tools  *bridge.KafkaTools
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "bridgectl",
		Short: "Drive a tablebridge host from the command line",
		Long: `bridgectl talks to a running bridgehost over gRPC and exposes the
Kafka table tools and the plugin registry as subcommands.

Example:
  bridgectl ready --addr localhost:7070
  bridgectl schema --registry http://localhost:8081 --subject orders-value
  bridgectl consume --props-file kafka.yml --topic orders --partitions 0,1`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "tablebridge.yml", "config file (optional)")
	root.PersistentFlags().StringVar(&opts.addr, "addr", "", "bridge host address (overrides runtime.address)")

	root.AddCommand(
		newReadyCommand(opts),
		newConsumeCommand(opts),
		newSchemaCommand(opts),
		newPluginsCommand(opts),
	)
	return root
}

func (o *rootOptions) connect() (*session, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	addr := cfg.Runtime.Address
	if o.addr != "" {
		addr = o.addr
	}
	c, err := transport.Dial(addr, transport.WithReadyTimeout(cfg.Runtime.ReadyTimeout))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &session{
		cfg:    cfg,
		addr:   addr,
		client: c,
		tools:  bridge.NewKafkaTools(c, bridge.WithSymbol(cfg.Runtime.Symbol)),
	}, nil
}

func (s *session) Close() error { return s.client.Close() }

// callContext bounds a single command by runtime.call_timeout.
func (s *session) callContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.cfg.Runtime.CallTimeout)
}

func newReadyCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check that the bridge host is up and initialized",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.connect()
			if err != nil {
				return err
			}
			defer s.Close()

			if !s.client.Ready() {
				return fmt.Errorf("bridge host at %s is not ready", s.addr)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ready %s\n", s.addr)
			return nil
		},
	}
}
