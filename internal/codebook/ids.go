// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codebook

import (
	"regexp"
	"strings"

	"github.com/pdiddy/codebook/pkg/types"
)

// tokenSplitRe separates id tokens.
var tokenSplitRe = regexp.MustCompile(`[;,\s]+`)

// definitionCutset is trimmed from the end of a definition once the id
// list has been cut away.
const definitionCutset = " \t,;:|->="

// tokenizeIDs splits an id list into tokens. Numeric tokens become numeric
// ids; anything else is kept as a raw id rather than dropped. The result is
// never nil.
func tokenizeIDs(s string) []types.ID {
	ids := []types.ID{}
	for _, tok := range tokenSplitRe.Split(s, -1) {
		if tok == "" {
			continue
		}
		ids = append(ids, types.ParseID(tok))
	}
	return ids
}

// numericDensity returns the share of id tokens made only of digits.
func numericDensity(s string) float64 {
	var total, digits int
	for _, tok := range tokenSplitRe.Split(s, -1) {
		if tok == "" {
			continue
		}
		total++
		if types.IsDigits(tok) {
			digits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(digits) / float64(total)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

func isDelim(b byte) bool { return b == ',' || b == ';' }

// isIDByte reports whether b may appear in a run of numeric ids.
func isIDByte(b byte) bool { return isDigit(b) || isDelim(b) || isSpace(b) }

func containsDigit(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' }) >= 0
}

// trailingRun finds the longest suffix of s[:end] made of digits, commas,
// semicolons and whitespace. It returns where that suffix starts and the
// offset of its first digit, or first < 0 when it holds no digit.
func trailingRun(s string, end int) (start, first int) {
	start = end
	for start > 0 && isIDByte(s[start-1]) {
		start--
	}
	for first = start; first < end; first++ {
		if isDigit(s[first]) {
			return start, first
		}
	}
	return start, -1
}

// splitTrailingIDs cuts the trailing id list off rest. The list is the
// trailing run of numeric tokens, extended leftwards over single
// non-numeric words that sit between two numeric tokens of a comma or
// semicolon separated list, so "5, 31, abc, 76" stays one list. ok is
// false when rest does not end in a digit run.
func splitTrailingIDs(rest string) (definition, ids string, ok bool) {
	runStart, first := trailingRun(rest, len(rest))
	if first < 0 {
		return rest, "", false
	}
	for runStart > 0 && strings.ContainsAny(rest[runStart:first], ",;") {
		wordStart := runStart
		for wordStart > 0 && !isIDByte(rest[wordStart-1]) {
			wordStart--
		}
		prevStart, prevFirst := trailingRun(rest, wordStart)
		if prevFirst < 0 {
			break
		}
		lead := strings.TrimRight(rest[prevFirst:wordStart], " \t\n\r\f\v")
		if lead == "" || !isDelim(lead[len(lead)-1]) {
			break
		}
		runStart, first = prevStart, prevFirst
	}
	return rest[:first], rest[first:], true
}

// trimDefinition strips whitespace and the separator punctuation that
// introduced the id list.
func trimDefinition(s string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), definitionCutset))
}
