// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package codebook turns a human-typed codebook, a numbered list mapping a
// code to a definition and the ids of the records it covers, into a
// types.Codebook.
//
// Parsing is best effort. A lenient pass runs first; when it finds nothing
// a strict separator-based pass runs; when that also finds nothing the
// lenient pass is retried. Lines that no pass understands are skipped.
// Parse never fails: the worst case is an empty codebook.
package codebook

import (
	"io"
	"log/slog"
	"strings"

	"github.com/pdiddy/codebook/pkg/types"
)

// pass is one parsing strategy. It reports false when it recognised no entry.
type pass struct {
	name  string
	parse func(text string) ([]types.Entry, bool)
}

// passes run in order until one yields entries.
var passes = []pass{
	{name: "lenient", parse: lenientPass},
	{name: "strict", parse: strictPass},
	{name: "lenient-retry", parse: lenientPass},
}

// Parser parses codebook text. It holds no state between calls and is safe
// for concurrent use.
type Parser struct {
	logger *slog.Logger
}

// NewParser returns a Parser that reports pass outcomes to logger.
// A nil logger discards them.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Parser{logger: logger}
}

// Parse parses text with a Parser that does not log.
func Parse(text string) types.Codebook {
	return NewParser(nil).Parse(text)
}

// Parse returns the entries of text in input order. It never panics.
func (p *Parser) Parse(text string) types.Codebook {
	for _, ps := range passes {
		entries, ok := p.run(ps, text)
		if !ok {
			p.logger.Debug("codebook pass found no entries", "pass", ps.name)
			continue
		}
		p.logger.Debug("codebook parsed", "pass", ps.name, "entries", len(entries))
		return types.NewCodebook(entries)
	}
	return types.NewCodebook(nil)
}

// run executes one pass. A panic inside the pass is reported as "no entries".
func (p *Parser) run(ps pass, text string) (entries []types.Entry, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("codebook pass aborted", "pass", ps.name, "panic", r)
			entries, ok = nil, false
		}
	}()
	return ps.parse(text)
}

// splitLines splits text on newlines, dropping a trailing carriage return
// from each line.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
