package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tablebridge/foreign"
	"tablebridge/internal/host/plugins"
)

func newPluginsCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List object types and JS plugins registered on the bridge host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := root.connect()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := s.callContext(cmd.Context())
			defer cancel()

			ns, err := s.client.Resolve(ctx, plugins.Namespace)
			if err != nil {
				return err
			}
			types, err := s.client.Invoke(ctx, ns, "objectTypes")
			if err != nil {
				return err
			}
			js, err := s.client.Invoke(ctx, ns, "jsPlugins")
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			typeList, _ := types.([]any)
			fmt.Fprintf(w, "Object types (%d)\n", len(typeList))
			tbl := newTable(w, "NAME")
			for _, t := range typeList {
				tbl.AddRow(t)
			}
			tbl.Print()

			jsList, _ := js.([]any)
			fmt.Fprintf(w, "\nJS plugins (%d)\n", len(jsList))
			tbl = newTable(w, "NAME", "VERSION", "MAIN")
			for _, item := range jsList {
				p, ok := item.(foreign.Properties)
				if !ok {
					return fmt.Errorf("unexpected plugin entry %T", item)
				}
				tbl.AddRow(p["name"], p["version"], p["main"])
			}
			tbl.Print()
			return nil
		},
	}
}
