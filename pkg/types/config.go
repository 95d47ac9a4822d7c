// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level"`

	// Format is text or json (default text).
	Format string `json:"format" yaml:"format"`
}

// SheetConfig holds settings for reading source tables.
type SheetConfig struct {
	// IDColumn is the header of the identifier column (default "ID").
	IDColumn string `json:"id_column" yaml:"id_column"`

	// TextColumn is the header of the free-text column (default "texte").
	TextColumn string `json:"text_column" yaml:"text_column"`

	// Delimiter overrides the field separator. Empty selects tab for .tsv
	// files and comma otherwise.
	Delimiter string `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`
}

// MatchConfig holds settings for auto-treatment.
type MatchConfig struct {
	// MaxCodes caps the number of codes kept per record (default 2).
	MaxCodes int `json:"max_codes" yaml:"max_codes"`
}

// WorkflowConfig holds settings for the workflow state store.
type WorkflowConfig struct {
	// DBPath is the SQLite database file (default "codebook.db").
	DBPath string `json:"db_path" yaml:"db_path"`
}

// Config groups all settings.
type Config struct {
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
	Sheet    SheetConfig    `json:"sheet" yaml:"sheet"`
	Match    MatchConfig    `json:"match" yaml:"match"`
	Workflow WorkflowConfig `json:"workflow" yaml:"workflow"`
}
