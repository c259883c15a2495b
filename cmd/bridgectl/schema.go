package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type schemaOptions struct {
	registry string
	subject  string
	version  string
	mapping  map[string]string
}

func newSchemaCommand(root *rootOptions) *cobra.Command {
	opts := &schemaOptions{}
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Fetch an Avro schema and show the columns it maps to",
		Long: `Fetch an Avro schema from a schema registry through the bridge host and
print the table columns derived from it.

Example:
  bridgectl schema --registry http://localhost:8081 --subject orders-value
  bridgectl schema --registry http://localhost:8081 --subject orders-value --map qty=Quantity`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := root.connect()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := s.callContext(cmd.Context())
			defer cancel()

			schema, err := s.tools.GetAvroSchema(ctx, opts.registry, opts.subject, opts.version)
			if err != nil {
				return fmt.Errorf("fetch schema: %w", err)
			}
			args := []any{schema}
			if len(opts.mapping) > 0 {
				args = append(args, opts.mapping)
			}
			cols, err := s.tools.SchemaToColumnDefinitions(ctx, args...)
			if err != nil {
				return fmt.Errorf("column definitions: %w", err)
			}
			return printColumns(cmd.OutOrStdout(), cols)
		},
	}
	cmd.Flags().StringVar(&opts.registry, "registry", "", "schema registry base URL")
	cmd.Flags().StringVar(&opts.subject, "subject", "", "schema subject")
	cmd.Flags().StringVar(&opts.version, "version", "latest", "schema version")
	cmd.Flags().StringToStringVar(&opts.mapping, "map", nil, "field=Column renames")
	_ = cmd.MarkFlagRequired("registry")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
