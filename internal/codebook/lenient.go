// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codebook

import (
	"regexp"
	"strings"

	"github.com/pdiddy/codebook/pkg/types"
)

var (
	// leadingCodeRe matches a digit code, an optional -, : or | separator,
	// and the rest of the line.
	leadingCodeRe = regexp.MustCompile(`^\s*(\d+)(?:\s*[-:|]\s*|\s+)(.*)$`)

	// looseSplitRe splits a line on a tab, a run of two or more spaces,
	// " - " or " | ".
	looseSplitRe = regexp.MustCompile(`\t|\s{2,}|\s-\s|\s\|\s`)
)

// normalizer maps non-breaking spaces and full-width commas to ASCII.
// Tabs are left alone; they delimit columns.
var normalizer = strings.NewReplacer("\u00a0", " ", "\uff0c", ",")

// lenientPass parses lines of the form "<code> <definition> <ids>" with
// tab, loose spacing or punctuation between the parts.
func lenientPass(text string) ([]types.Entry, bool) {
	var entries []types.Entry
	for _, raw := range splitLines(text) {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if e, ok := lenientLine(raw); ok {
			entries = append(entries, e)
		}
	}
	return entries, len(entries) > 0
}

func lenientLine(raw string) (types.Entry, bool) {
	line := normalizer.Replace(raw)

	var code, rest string
	if m := leadingCodeRe.FindStringSubmatch(line); m != nil {
		code, rest = m[1], m[2]
	} else {
		parts := looseSplitRe.Split(raw, -1)
		head := strings.TrimSpace(parts[0])
		if !types.IsDigits(head) {
			return types.Entry{}, false
		}
		code = head
		if len(parts) > 1 {
			rest = normalizer.Replace(parts[1])
		}
	}
	rest = strings.TrimSpace(rest)

	definition, idText := rest, ""
	if tab := strings.LastIndexByte(rest, '\t'); tab >= 0 {
		if tail := rest[tab+1:]; containsDigit(tail) {
			definition, idText = rest[:tab], tail
		}
	}
	if idText == "" {
		if def, ids, ok := splitTrailingIDs(rest); ok {
			definition, idText = def, ids
		}
	}

	return types.Entry{
		Code:       code,
		Definition: trimDefinition(definition),
		IDs:        tokenizeIDs(idText),
	}, true
}
