// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/codebook/internal/codebook"
	"github.com/pdiddy/codebook/pkg/types"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a codebook into code, definition and ids",
	Long: `Parse reads a codebook (from a file, or stdin when the file is omitted
or "-") and prints one row per line that starts with a numeric code.
Lines that cannot be read are skipped; an empty result is not an error.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().String("format", "table", "output format: table, json, yaml, or csv")

	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	var path string
	if len(args) > 0 {
		path = args[0]
	}
	text, err := readText(path)
	if err != nil {
		return err
	}

	cb := codebook.NewParser(slog.Default()).Parse(text)
	return writeCodebook(os.Stdout, cb, format)
}

func writeCodebook(w io.Writer, cb types.Codebook, format string) error {
	switch format {
	case "table", "":
		return writeCodebookTable(w, cb)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cb)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cb); err != nil {
			return err
		}
		return enc.Close()
	case "csv":
		return writeCodebookCSV(w, cb)
	default:
		return fmt.Errorf("unsupported format %q: use table, json, yaml, or csv", format)
	}
}

func writeCodebookTable(w io.Writer, cb types.Codebook) error {
	if cb.IsEmpty() {
		fmt.Fprintln(w, "No entries found.")
		return nil
	}

	fmt.Fprintf(w, "%-6s  %-50s  %s\n", "Code", "Definition", "IDs")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, e := range cb.Entries() {
		def := e.Definition
		if r := []rune(def); len(r) > 50 {
			def = string(r[:47]) + "..."
		}
		fmt.Fprintf(w, "%-6s  %-50s  %s\n", e.Code, def, joinIDs(e.IDs))
	}
	fmt.Fprintf(w, "\n%d entries, %d ids\n", cb.Len(), cb.IDCount())
	return nil
}

func writeCodebookCSV(w io.Writer, cb types.Codebook) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"code", "definition", "ids"}); err != nil {
		return err
	}
	for _, e := range cb.Entries() {
		if err := cw.Write([]string{e.Code, e.Definition, joinIDs(e.IDs)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func joinIDs(ids []types.ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		if id.IsNumeric() {
			parts[i] = id.String()
		} else {
			parts[i] = strconv.Quote(id.String())
		}
	}
	return strings.Join(parts, ", ")
}
