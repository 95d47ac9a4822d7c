// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Record is one row of a source table: an identifier and the free text
// the codebook classifies.
type Record struct {
	ID   ID     `json:"id" yaml:"id"`
	Text string `json:"text" yaml:"text"`
}

// Assignment holds the codes given to one record by auto-treatment.
type Assignment struct {
	// RecordID is the source record identifier.
	RecordID ID `json:"record_id" yaml:"record_id"`

	// Text is the record's free text, copied for review.
	Text string `json:"text" yaml:"text"`

	// Codes lists matched codes in codebook order, capped at the max-codes setting.
	Codes []string `json:"codes" yaml:"codes"`

	// Truncated is set when more codes matched than were kept.
	Truncated bool `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}

// UnitStatus tracks a table-processing unit through the workflow.
type UnitStatus string

const (
	UnitPending   UnitStatus = "pending"
	UnitProcessed UnitStatus = "processed"
)

// Unit is one table-processing unit of a workflow: a source sheet, the
// codebook parsed for it, and the resulting assignments.
type Unit struct {
	// Index is the zero-based position of the unit in the staged workflow.
	Index int `json:"index" yaml:"index"`

	// Name identifies the sheet (file base name by default).
	Name string `json:"name" yaml:"name"`

	// Question is the survey question or label the sheet answers.
	Question string `json:"question,omitempty" yaml:"question,omitempty"`

	// Source is the path of the sheet file.
	Source string `json:"source" yaml:"source"`

	// IDColumn and TextColumn name the header cells read from Source.
	IDColumn   string `json:"id_column" yaml:"id_column"`
	TextColumn string `json:"text_column" yaml:"text_column"`

	Status UnitStatus `json:"status" yaml:"status"`

	// Codebook is the last codebook applied to the unit.
	Codebook Codebook `json:"codebook" yaml:"codebook"`

	// Assignments is the auto-treatment output for the unit.
	Assignments []Assignment `json:"assignments" yaml:"assignments"`
}
