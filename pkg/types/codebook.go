// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for codebooks and coding
// sessions.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"go.yaml.in/yaml/v3"
)

// IDKind tags the variant held by an ID.
type IDKind int

const (
	// IDNumeric is an identifier made only of ASCII digits.
	IDNumeric IDKind = iota
	// IDRaw is any other token, kept verbatim for human review.
	IDRaw
)

// ID is a record identifier taken from a codebook line or a source table.
// It holds either an integer or the raw token text. The zero value is the
// numeric id 0. IDs are comparable and can be used as map keys.
type ID struct {
	kind IDKind
	num  int64
	raw  string
}

// NumericID returns an integer identifier.
func NumericID(n int64) ID {
	return ID{kind: IDNumeric, num: n}
}

// RawID returns a textual identifier.
func RawID(s string) ID {
	return ID{kind: IDRaw, raw: s}
}

// ParseID classifies a token: ASCII digits that fit in an int64 become a
// numeric id, anything else is kept as a raw id.
func ParseID(tok string) ID {
	if IsDigits(tok) {
		if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
			return NumericID(n)
		}
	}
	return RawID(tok)
}

// IsDigits reports whether s is non-empty and made only of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Kind returns the variant held by the id.
func (id ID) Kind() IDKind { return id.kind }

// IsNumeric reports whether the id holds an integer.
func (id ID) IsNumeric() bool { return id.kind == IDNumeric }

// Int returns the integer value and true for numeric ids.
func (id ID) Int() (int64, bool) {
	if id.kind != IDNumeric {
		return 0, false
	}
	return id.num, true
}

// String returns the id as it would be written in a codebook.
func (id ID) String() string {
	if id.kind == IDNumeric {
		return strconv.FormatInt(id.num, 10)
	}
	return id.raw
}

// MarshalJSON encodes numeric ids as JSON numbers and raw ids as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.kind == IDNumeric {
		return strconv.AppendInt(nil, id.num, 10), nil
	}
	return json.Marshal(id.raw)
}

// UnmarshalJSON accepts a JSON integer or string.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RawID(s)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("id %s is neither an integer nor a string", data)
	}
	*id = NumericID(n)
	return nil
}

// MarshalYAML encodes numeric ids as YAML integers and raw ids as strings.
func (id ID) MarshalYAML() (any, error) {
	if id.kind == IDNumeric {
		return id.num, nil
	}
	return id.raw, nil
}

// UnmarshalYAML accepts a YAML integer or string scalar.
func (id *ID) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: id must be a scalar", value.Line)
	}
	if value.Tag == "!!int" {
		n, err := strconv.ParseInt(value.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: %w", value.Line, err)
		}
		*id = NumericID(n)
		return nil
	}
	*id = RawID(value.Value)
	return nil
}

// Entry is one row of a codebook.
type Entry struct {
	// Code is the leading label of the line, kept as text so leading zeros survive.
	Code string `json:"code" yaml:"code"`

	// Definition is the trimmed free text describing the code.
	Definition string `json:"definition" yaml:"definition"`

	// IDs lists the referenced record identifiers in source order.
	IDs []ID `json:"ids" yaml:"ids"`
}

// Codebook is the ordered, read-only result of parsing one text blob.
// Duplicate codes are kept as separate entries.
type Codebook struct {
	entries []Entry
}

// NewCodebook builds a codebook from entries. The slice is copied.
func NewCodebook(entries []Entry) Codebook {
	return Codebook{entries: cloneEntries(entries)}
}

// Len returns the number of entries.
func (c Codebook) Len() int { return len(c.entries) }

// IsEmpty reports whether no entry was parsed.
func (c Codebook) IsEmpty() bool { return len(c.entries) == 0 }

// At returns the i-th entry. It panics when i is out of range.
func (c Codebook) At(i int) Entry {
	e := c.entries[i]
	e.IDs = append([]ID{}, e.IDs...)
	return e
}

// Entries returns a copy of the entries in input order.
func (c Codebook) Entries() []Entry {
	return cloneEntries(c.entries)
}

// IDCount returns the total number of ids across all entries.
func (c Codebook) IDCount() int {
	n := 0
	for _, e := range c.entries {
		n += len(e.IDs)
	}
	return n
}

func cloneEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e
		out[i].IDs = append([]ID{}, e.IDs...)
	}
	return out
}

// MarshalJSON encodes the codebook as a list of entries.
func (c Codebook) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Entries())
}

// UnmarshalJSON decodes a list of entries.
func (c *Codebook) UnmarshalJSON(data []byte) error {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*c = NewCodebook(entries)
	return nil
}

// MarshalYAML encodes the codebook as a list of entries.
func (c Codebook) MarshalYAML() (any, error) {
	return c.Entries(), nil
}

// UnmarshalYAML decodes a list of entries.
func (c *Codebook) UnmarshalYAML(value *yaml.Node) error {
	var entries []Entry
	if err := value.Decode(&entries); err != nil {
		return err
	}
	*c = NewCodebook(entries)
	return nil
}
