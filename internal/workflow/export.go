// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/codebook/pkg/types"
)

// Export is the on-disk snapshot of a workflow.
type Export struct {
	RunID     string       `json:"run_id" yaml:"run_id"`
	StagedAt  string       `json:"staged_at" yaml:"staged_at"`
	Cursor    int          `json:"cursor" yaml:"cursor"`
	Processed []string     `json:"processed" yaml:"processed"`
	Units     []types.Unit `json:"units" yaml:"units"`
}

// Snapshot collects the whole workflow state.
func (s *Store) Snapshot(ctx context.Context) (Export, error) {
	var (
		exp Export
		err error
	)
	if exp.RunID, err = s.RunID(ctx); err != nil {
		return exp, err
	}
	if exp.StagedAt, err = getState(ctx, s.db, keyStagedAt); err != nil {
		return exp, err
	}
	if exp.Cursor, err = s.Cursor(ctx); err != nil {
		return exp, err
	}
	if exp.Processed, err = s.Processed(ctx); err != nil {
		return exp, err
	}
	if exp.Units, err = s.Units(ctx); err != nil {
		return exp, err
	}
	return exp, nil
}

// ExportYAML writes the workflow snapshot to path as YAML.
func (s *Store) ExportYAML(ctx context.Context, path string) error {
	exp, err := s.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("collecting workflow for export: %w", err)
	}
	data, err := yaml.Marshal(&exp)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the workflow snapshot to path as indented JSON.
func (s *Store) ExportJSON(ctx context.Context, path string) error {
	exp, err := s.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("collecting workflow for export: %w", err)
	}
	data, err := json.MarshalIndent(&exp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
