// Copyright © 2018 One Concern

package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/oneconcern/podbundle/pkg/errors"
	"github.com/oneconcern/podbundle/pkg/model"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// tabular data can be printed as a table. Other formats print the raw data.
type tabular interface {
	header() []interface{}
	rows() [][]interface{}
}

func addFormatFlag(cmd *cobra.Command) {
	cmd.Flags().String("format", formatTable, "output format: table, json or yaml")
}

func render(cmd *cobra.Command, data tabular) error {
	format, _ := cmd.Flags().GetString("format")
	return renderTo(cmd.OutOrStdout(), format, data)
}

func renderTo(w io.Writer, format string, data tabular) error {
	switch format {
	case formatTable, "":
		table := uitable.New()
		table.MaxColWidth = 80
		table.Wrap = true

		bold := color.New(color.Bold).SprintFunc()
		header := data.header()
		for i := range header {
			header[i] = bold(header[i])
		}
		table.AddRow(header...)
		for _, row := range data.rows() {
			table.AddRow(row...)
		}
		_, err := fmt.Fprintln(w, table)
		return err
	case formatJSON:
		b, err := model.JSON.MarshalIndent(data, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case formatYAML:
		b, err := yaml.Marshal(data)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	default:
		return errors.New("unknown format").WrapMessage("%q: expected table, json or yaml", format)
	}
}
