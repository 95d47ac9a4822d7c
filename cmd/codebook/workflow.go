// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/codebook/internal/codebook"
	"github.com/pdiddy/codebook/internal/logging"
	"github.com/pdiddy/codebook/internal/match"
	"github.com/pdiddy/codebook/internal/sheet"
	"github.com/pdiddy/codebook/internal/workflow"
	"github.com/pdiddy/codebook/pkg/types"
)

// --- stage subcommand ---

var stageCmd = &cobra.Command{
	Use:   "stage <sheet files...>",
	Short: "Start a coding session over one or more sheets",
	Long: `Stage checks that every sheet can be read with the configured id and
text columns, then replaces the workflow with one unit per sheet and sets
the cursor on the first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStage,
}

func runStage(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	question, _ := cmd.Flags().GetString("question")
	if d, _ := cmd.Flags().GetString("delimiter"); d != "" {
		cfg.Sheet.Delimiter = d
	}

	units := make([]types.Unit, 0, len(args))
	for _, path := range args {
		sh, err := sheet.Load(path, cfg.Sheet)
		if err != nil {
			return err
		}
		units = append(units, types.Unit{
			Name:       sh.Name,
			Question:   question,
			Source:     sh.Path,
			IDColumn:   sh.IDColumn,
			TextColumn: sh.TextColumn,
		})
		fmt.Fprintf(os.Stdout, "staged  %s (%d records)\n", sh.Name, len(sh.Records))
	}

	store, err := workflow.Open(cfg.Workflow)
	if err != nil {
		return err
	}
	defer store.Close()

	runID, err := store.Stage(context.Background(), units)
	if err != nil {
		return err
	}
	slog.Info("workflow staged", "run_id", runID, "units", len(units), "db", store.Path())
	return nil
}

// --- status subcommand ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show staged units and the cursor",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	store, err := workflow.Open(loadConfig().Workflow)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	units, err := store.Units(ctx)
	if err != nil {
		return err
	}
	if len(units) == 0 {
		fmt.Println("No units staged.")
		return nil
	}
	cursor, err := store.Cursor(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "%-2s  %-4s  %-30s  %-10s  %-8s  %s\n",
		"", "Unit", "Name", "Status", "Entries", "Coded")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 72))
	for _, u := range units {
		marker := ""
		if u.Index == cursor {
			marker = "->"
		}
		coded := 0
		for _, a := range u.Assignments {
			if len(a.Codes) > 0 {
				coded++
			}
		}
		name := u.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-2s  %-4d  %-30s  %-10s  %-8d  %d/%d\n",
			marker, u.Index, name, u.Status, u.Codebook.Len(), coded, len(u.Assignments))
	}
	if cursor < 0 {
		fmt.Println("\nAll units processed.")
	}
	return nil
}

// --- apply subcommand ---

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Parse a codebook and apply it to the current unit",
	Long: `Apply parses the codebook text, assigns codes to every record of the
unit's sheet whose id the codebook lists, and stores both in the workflow.
Applying again replaces the previous result for that unit.`,
	RunE: runApply,
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	codebookPath, _ := cmd.Flags().GetString("codebook")
	if d, _ := cmd.Flags().GetString("delimiter"); d != "" {
		cfg.Sheet.Delimiter = d
	}
	if codebookPath == "" {
		return fmt.Errorf("--codebook is required (use - for stdin)")
	}
	text, err := readText(codebookPath)
	if err != nil {
		return err
	}

	store, err := workflow.Open(cfg.Workflow)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	unit, err := targetUnit(ctx, cmd, store)
	if err != nil {
		return err
	}
	runID, err := store.RunID(ctx)
	if err != nil {
		return err
	}
	ctx = logging.NewContext(ctx, logging.WithFields(ctx, "unit", unit.Index, "run_id", runID))

	sh, err := sheet.Load(unit.Source, types.SheetConfig{
		IDColumn:   unit.IDColumn,
		TextColumn: unit.TextColumn,
		Delimiter:  cfg.Sheet.Delimiter,
	})
	if err != nil {
		return err
	}

	cb := codebook.NewParser(logging.FromContext(ctx)).Parse(text)
	if cb.IsEmpty() {
		logging.FromContext(ctx).Warn("no codebook entries found", "codebook", codebookPath)
	}

	res := match.AutoTreat(sh.Records, cb, cfg.Match.MaxCodes)
	if err := store.SaveResult(ctx, unit.Index, cb, res.Assignments); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "unit %d (%s): %d entries, %d ids\n", unit.Index, unit.Name, cb.Len(), cb.IDCount())
	fmt.Fprintf(os.Stdout, "coded: %d, uncoded: %d, truncated: %d, unmatched ids: %d\n",
		res.Coded(), res.Uncoded, res.Truncated, len(res.Unmatched))
	for _, u := range res.Unmatched {
		fmt.Fprintf(os.Stdout, "  unmatched  code %s  id %s\n", u.Code, u.ID)
	}
	logging.FromContext(ctx).Info("codebook applied", "entries", cb.Len(), "coded", res.Coded())
	return nil
}

// --- validate subcommand ---

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Mark the current unit processed and move to the next",
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	store, err := workflow.Open(loadConfig().Workflow)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	unit, err := targetUnit(ctx, cmd, store)
	if err != nil {
		return err
	}

	next, done, err := store.Validate(ctx, unit.Index)
	if err != nil {
		return err
	}
	if done {
		processed, err := store.Processed(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("All units processed: %s\n", strings.Join(processed, ", "))
		return nil
	}
	nextUnit, err := store.Unit(ctx, next)
	if err != nil {
		return err
	}
	fmt.Printf("validated %s; current unit is now %d (%s)\n", unit.Name, next, nextUnit.Name)
	return nil
}

// --- goto subcommand ---

var gotoCmd = &cobra.Command{
	Use:   "goto <unit>",
	Short: "Move the cursor to another unit",
	Args:  cobra.ExactArgs(1),
	RunE:  runGoto,
}

func runGoto(cmd *cobra.Command, args []string) error {
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("unit must be an index: %w", err)
	}

	store, err := workflow.Open(loadConfig().Workflow)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Goto(context.Background(), idx); err != nil {
		return err
	}
	fmt.Printf("current unit is now %d\n", idx)
	return nil
}

// --- export subcommand ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the workflow to YAML or JSON",
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")

	store, err := workflow.Open(loadConfig().Workflow)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	switch format {
	case "yaml", "":
		if out == "" {
			out = "export.yaml"
		}
		err = store.ExportYAML(ctx, out)
	case "json":
		if out == "" {
			out = "export.json"
		}
		err = store.ExportJSON(ctx, out)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", out)
	return nil
}

// --- shared helpers ---

// targetUnit returns the unit named by --unit, or the current unit.
func targetUnit(ctx context.Context, cmd *cobra.Command, store *workflow.Store) (types.Unit, error) {
	if cmd.Flags().Changed("unit") {
		idx, _ := cmd.Flags().GetInt("unit")
		return store.Unit(ctx, idx)
	}
	unit, err := store.Current(ctx)
	if errors.Is(err, workflow.ErrFinished) {
		return unit, fmt.Errorf("%w: use --unit or goto to revisit a unit", err)
	}
	if errors.Is(err, workflow.ErrNoUnits) {
		return unit, fmt.Errorf("%w: run stage first", err)
	}
	return unit, err
}

func init() {
	stageCmd.Flags().String("id-column", "ID", "header of the record id column")
	stageCmd.Flags().String("text-column", "texte", "header of the free-text column")
	stageCmd.Flags().String("delimiter", "", "field separator (default: tab for .tsv, comma otherwise)")
	stageCmd.Flags().String("question", "", "question or label recorded with each unit")

	applyCmd.Flags().String("codebook", "", "codebook text file (- for stdin)")
	applyCmd.Flags().Int("unit", 0, "unit index (default: current unit)")
	applyCmd.Flags().Int("max-codes", 2, "maximum codes kept per record")
	applyCmd.Flags().String("delimiter", "", "field separator override for the sheet")

	validateCmd.Flags().Int("unit", 0, "unit index (default: current unit)")

	exportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	exportCmd.Flags().String("out", "", "output file (default: export.yaml or export.json)")

	for key, cmd := range map[string]*cobra.Command{
		"id-column":   stageCmd,
		"text-column": stageCmd,
		"max-codes":   applyCmd,
	} {
		viper.BindPFlag(key, cmd.Flags().Lookup(key))
	}

	rootCmd.AddCommand(stageCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(gotoCmd)
	rootCmd.AddCommand(exportCmd)
}
