// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match applies a parsed codebook to a source table: every record
// whose id appears in an entry's id list receives that entry's code.
package match

import (
	"github.com/pdiddy/codebook/pkg/types"
)

// DefaultMaxCodes is the number of codes kept per record when none is configured.
const DefaultMaxCodes = 2

// UnmatchedID is a codebook id with no record in the source table.
type UnmatchedID struct {
	Code string   `json:"code" yaml:"code"`
	ID   types.ID `json:"id" yaml:"id"`
}

// Result is the output of AutoTreat.
type Result struct {
	// Assignments has one element per record, in record order.
	Assignments []types.Assignment `json:"assignments" yaml:"assignments"`

	// Unmatched lists codebook ids absent from the table, in codebook order.
	Unmatched []UnmatchedID `json:"unmatched" yaml:"unmatched"`

	// Uncoded counts records that received no code.
	Uncoded int `json:"uncoded" yaml:"uncoded"`

	// Truncated counts records that matched more than the code limit.
	Truncated int `json:"truncated" yaml:"truncated"`
}

// Coded returns the number of records with at least one code.
func (r Result) Coded() int {
	return len(r.Assignments) - r.Uncoded
}

// AutoTreat assigns codes to records. For each record the codes of every
// entry listing its id are collected in codebook order, a code is counted
// once per record, and at most maxCodes are kept (DefaultMaxCodes when
// maxCodes <= 0).
func AutoTreat(records []types.Record, cb types.Codebook, maxCodes int) Result {
	if maxCodes <= 0 {
		maxCodes = DefaultMaxCodes
	}

	present := make(map[types.ID]bool, len(records))
	for _, rec := range records {
		present[rec.ID] = true
	}

	// codesByID preserves codebook order for each id.
	codesByID := make(map[types.ID][]string)
	res := Result{Unmatched: []UnmatchedID{}}
	for _, e := range cb.Entries() {
		for _, id := range e.IDs {
			if !present[id] {
				res.Unmatched = append(res.Unmatched, UnmatchedID{Code: e.Code, ID: id})
				continue
			}
			codesByID[id] = appendUnique(codesByID[id], e.Code)
		}
	}

	res.Assignments = make([]types.Assignment, len(records))
	for i, rec := range records {
		codes := codesByID[rec.ID]
		a := types.Assignment{RecordID: rec.ID, Text: rec.Text, Codes: []string{}}
		if len(codes) > maxCodes {
			codes = codes[:maxCodes]
			a.Truncated = true
			res.Truncated++
		}
		a.Codes = append(a.Codes, codes...)
		if len(a.Codes) == 0 {
			res.Uncoded++
		}
		res.Assignments[i] = a
	}
	return res
}

func appendUnique(codes []string, code string) []string {
	for _, c := range codes {
		if c == code {
			return codes
		}
	}
	return append(codes, code)
}
