// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the codebook CLI.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/codebook/internal/logging"
	"github.com/pdiddy/codebook/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the codebook CLI.
var rootCmd = &cobra.Command{
	Use:   "codebook",
	Short: "Parse hand-typed codebooks and apply them to survey sheets",
	Long: `codebook turns a numbered list of codes, definitions and record ids
into a structured table, and applies it to source sheets (CSV or TSV files
with an id column and a free-text column).

Use parse on its own to inspect a codebook. For a coding session, stage the
sheets, apply a codebook to the current sheet, review, then validate to move
to the next sheet. State is kept in a local SQLite database.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup(loadConfig().Logging)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./codebook.yaml or ~/.config/codebook/codebook.yaml)")
	rootCmd.PersistentFlags().String("db", "codebook.db", "workflow state database")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")

	for _, key := range []string{"db", "log-level", "log-format"} {
		viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key))
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("codebook")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "codebook"))
		}
	}

	viper.SetEnvPrefix("CODEBOOK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig assembles settings from flags, environment and config file.
func loadConfig() types.Config {
	return types.Config{
		Logging: types.LoggingConfig{
			Level:  viper.GetString("log-level"),
			Format: viper.GetString("log-format"),
		},
		Sheet: types.SheetConfig{
			IDColumn:   viper.GetString("id-column"),
			TextColumn: viper.GetString("text-column"),
			Delimiter:  viper.GetString("delimiter"),
		},
		Match: types.MatchConfig{
			MaxCodes: viper.GetInt("max-codes"),
		},
		Workflow: types.WorkflowConfig{
			DBPath: viper.GetString("db"),
		},
	}
}

// newlines maps CRLF and lone CR line endings to LF.
var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// readText reads a text file, or stdin when path is empty or "-", and
// normalizes its line endings.
func readText(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading codebook: %w", err)
	}
	return newlines.Replace(string(data)), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
