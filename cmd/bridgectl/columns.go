package main

import (
	"fmt"
	"io"

	"github.com/rodaine/table"

	"tablebridge/foreign"
)

func newTable(w io.Writer, headers ...any) table.Table {
	return table.New(headers...).WithWriter(w).WithPadding(2)
}

// printColumns renders a foreign column definition list.
func printColumns(w io.Writer, v any) error {
	list, ok := v.([]any)
	if !ok {
		return fmt.Errorf("unexpected column list %T", v)
	}
	tbl := newTable(w, "NAME", "TYPE", "FIELD")
	for _, item := range list {
		p, ok := item.(foreign.Properties)
		if !ok {
			return fmt.Errorf("unexpected column definition %T", item)
		}
		tbl.AddRow(p["name"], p["type"], p["field"])
	}
	tbl.Print()
	return nil
}
