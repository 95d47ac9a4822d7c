// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sheet reads source tables: delimited files with a header row,
// an identifier column and a free-text column. Identifiers are coerced
// with the same rule the codebook parser applies to id tokens, so a
// numeric cell matches a numeric codebook id.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/codebook/pkg/types"
)

const (
	DefaultIDColumn   = "ID"
	DefaultTextColumn = "texte"
)

// ErrColumnNotFound is returned when a configured column is missing from
// the header row.
var ErrColumnNotFound = errors.New("column not found")

// Sheet is a loaded source table.
type Sheet struct {
	Name       string
	Path       string
	IDColumn   string
	TextColumn string
	Records    []types.Record
}

// Load reads the file at path. The sheet is named after the file without
// its extension.
func Load(path string, cfg types.SheetConfig) (*Sheet, error) {
	cfg = withDefaults(cfg)

	comma, err := delimiter(path, cfg.Delimiter)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening sheet: %w", err)
	}
	defer f.Close()

	records, err := Read(f, comma, cfg)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", path, err)
	}

	base := filepath.Base(path)
	return &Sheet{
		Name:       strings.TrimSuffix(base, filepath.Ext(base)),
		Path:       path,
		IDColumn:   cfg.IDColumn,
		TextColumn: cfg.TextColumn,
		Records:    records,
	}, nil
}

// Read parses delimited rows from r. Rows with a blank id cell are skipped.
func Read(r io.Reader, comma rune, cfg types.SheetConfig) ([]types.Record, error) {
	cfg = withDefaults(cfg)

	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file has no %q header", ErrColumnNotFound, cfg.IDColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	idIdx, err := columnIndex(header, cfg.IDColumn)
	if err != nil {
		return nil, err
	}
	textIdx, err := columnIndex(header, cfg.TextColumn)
	if err != nil {
		return nil, err
	}

	records := []types.Record{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		if idIdx >= len(row) {
			continue
		}
		idCell := strings.TrimSpace(row[idIdx])
		if idCell == "" {
			continue
		}
		var text string
		if textIdx < len(row) {
			text = strings.TrimSpace(row[textIdx])
		}
		records = append(records, types.Record{ID: types.ParseID(idCell), Text: text})
	}
	return records, nil
}

// Lookup indexes record positions by id. Duplicate ids map to several rows.
func (s *Sheet) Lookup() map[types.ID][]int {
	idx := make(map[types.ID][]int, len(s.Records))
	for i, rec := range s.Records {
		idx[rec.ID] = append(idx[rec.ID], i)
	}
	return idx
}

func withDefaults(cfg types.SheetConfig) types.SheetConfig {
	if cfg.IDColumn == "" {
		cfg.IDColumn = DefaultIDColumn
	}
	if cfg.TextColumn == "" {
		cfg.TextColumn = DefaultTextColumn
	}
	return cfg
}

// delimiter resolves the field separator: an explicit setting wins, then
// the .tsv extension selects tab, then comma.
func delimiter(path, setting string) (rune, error) {
	switch setting {
	case "":
		if strings.EqualFold(filepath.Ext(path), ".tsv") {
			return '\t', nil
		}
		return ',', nil
	case "tab", `\t`:
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(setting)
	if size != len(setting) || r == utf8.RuneError {
		return 0, fmt.Errorf("delimiter %q must be a single character", setting)
	}
	return r, nil
}

func columnIndex(header []string, name string) (int, error) {
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if strings.EqualFold(h, name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q (have %s)", ErrColumnNotFound, name, strings.Join(header, ", "))
}
