// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codebook

import (
	"regexp"
	"strings"

	"github.com/pdiddy/codebook/pkg/types"
)

// strictCodeRe requires a line to start with a digit code.
var strictCodeRe = regexp.MustCompile(`^\s*(\d+)\s*(.*)$`)

// idDensityThreshold is the minimum share of numeric tokens a trailing run
// needs before the strict pass reads it as an id list. "version 2" style
// definitions fall below it.
const idDensityThreshold = 0.6

// separators are tried in order; the first one present with a digit on
// its right is split at its last occurrence.
var separators = []string{"|", "=>", " - ", " : ", ":", ";"}

// leadingSeparators are stripped between the code and the definition.
const leadingSeparators = "-|:,;>"

// strictPass parses lines of the form
// "<code><whitespace><definition>[separator]<id-list>".
func strictPass(text string) ([]types.Entry, bool) {
	var entries []types.Entry
	for _, raw := range splitLines(text) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		m := strictCodeRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		rest := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(m[2]), leadingSeparators))
		definition, idText := splitDefinition(rest)
		entries = append(entries, types.Entry{
			Code:       m[1],
			Definition: definition,
			IDs:        tokenizeIDs(idText),
		})
	}
	return entries, len(entries) > 0
}

// splitDefinition separates the definition from the id list, preferring a
// mostly numeric trailing run, then the separator list, then nothing.
func splitDefinition(rest string) (definition, ids string) {
	if def, run, ok := splitTrailingIDs(rest); ok && numericDensity(run) >= idDensityThreshold {
		return trimDefinition(def), strings.TrimSpace(run)
	}
	for _, sep := range separators {
		i := strings.LastIndex(rest, sep)
		if i < 0 {
			continue
		}
		if right := rest[i+len(sep):]; containsDigit(right) {
			return strings.TrimSpace(rest[:i]), strings.TrimSpace(right)
		}
	}
	return rest, ""
}
