package workflow

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/codebook/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.WorkflowConfig{DBPath: filepath.Join(t.TempDir(), "state", "codebook.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleUnits(names ...string) []types.Unit {
	units := make([]types.Unit, len(names))
	for i, name := range names {
		units[i] = types.Unit{
			Index:      99,
			Name:       name,
			Question:   "Q" + name,
			Source:     name + ".csv",
			IDColumn:   "ID",
			TextColumn: "texte",
		}
	}
	return units
}

func stage(t *testing.T, s *Store, names ...string) string {
	t.Helper()
	runID, err := s.Stage(context.Background(), sampleUnits(names...))
	require.NoError(t, err)
	return runID
}

// --- tests ---

func TestEmptyStore(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.Current(ctx)
	assert.ErrorIs(t, err, ErrNoUnits)

	units, err := s.Units(ctx)
	require.NoError(t, err)
	assert.Empty(t, units)

	_, err = s.Stage(ctx, nil)
	assert.ErrorIs(t, err, ErrNoUnits)
}

func TestStage(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	runID := stage(t, s, "a", "b", "c")
	assert.Len(t, runID, 36)

	got, err := s.RunID(ctx)
	require.NoError(t, err)
	assert.Equal(t, runID, got)

	units, err := s.Units(ctx)
	require.NoError(t, err)
	require.Len(t, units, 3)
	for i, u := range units {
		assert.Equal(t, i, u.Index)
		assert.Equal(t, types.UnitPending, u.Status)
		assert.True(t, u.Codebook.IsEmpty())
		assert.Empty(t, u.Assignments)
	}
	assert.Equal(t, "Qb", units[1].Question)

	cur, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", cur.Name)

	// Restaging replaces everything.
	second := stage(t, s, "z")
	assert.NotEqual(t, runID, second)
	units, err = s.Units(ctx)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "z", units[0].Name)
}

func TestSaveResult(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	stage(t, s, "a", "b")

	cb := types.NewCodebook([]types.Entry{
		{Code: "7", Definition: "Facturation", IDs: []types.ID{types.NumericID(5), types.RawID("abc")}},
	})
	assignments := []types.Assignment{
		{RecordID: types.NumericID(5), Text: "facture", Codes: []string{"7"}},
	}
	require.NoError(t, s.SaveResult(ctx, 1, cb, assignments))

	u, err := s.Unit(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, cb, u.Codebook)
	assert.Equal(t, assignments, u.Assignments)

	err = s.SaveResult(ctx, 5, cb, nil)
	assert.ErrorIs(t, err, ErrUnitOutOfRange)
}

func TestValidateAdvancesCursor(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	stage(t, s, "a", "b", "c")

	next, done, err := s.Validate(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, next)
	assert.False(t, done)

	// Validating the last unit wraps to the first pending one.
	next, done, err = s.Validate(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, next)
	assert.False(t, done)

	cur, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", cur.Name)

	next, done, err = s.Validate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, -1, next)
	assert.True(t, done)

	_, err = s.Current(ctx)
	assert.ErrorIs(t, err, ErrFinished)

	processed, err := s.Processed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, processed)

	_, _, err = s.Validate(ctx, 9)
	assert.ErrorIs(t, err, ErrUnitOutOfRange)
}

func TestGoto(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	stage(t, s, "a", "b")

	require.NoError(t, s.Goto(ctx, 1))
	cur, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", cur.Name)

	assert.ErrorIs(t, s.Goto(ctx, 2), ErrUnitOutOfRange)
	assert.ErrorIs(t, s.Goto(ctx, -1), ErrUnitOutOfRange)

	// A finished workflow can be reopened.
	_, _, err = s.Validate(ctx, 0)
	require.NoError(t, err)
	_, _, err = s.Validate(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, s.Goto(ctx, 0))
	cur, err = s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.UnitProcessed, cur.Status)
}

func TestStatePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codebook.db")
	ctx := context.Background()

	s, err := Open(types.WorkflowConfig{DBPath: path})
	require.NoError(t, err)
	_, err = s.Stage(ctx, sampleUnits("a", "b"))
	require.NoError(t, err)
	_, _, err = s.Validate(ctx, 0)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(types.WorkflowConfig{DBPath: path})
	require.NoError(t, err)
	defer s.Close()

	cursor, err := s.Cursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cursor)
}

func TestExport(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	runID := stage(t, s, "a", "b")

	cb := types.NewCodebook([]types.Entry{
		{Code: "1", Definition: "Réseau", IDs: []types.ID{types.NumericID(3), types.RawID("x")}},
	})
	require.NoError(t, s.SaveResult(ctx, 0, cb, nil))
	_, _, err := s.Validate(ctx, 0)
	require.NoError(t, err)

	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "export.json")
	require.NoError(t, s.ExportJSON(ctx, jsonPath))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)

	var fromJSON Export
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Equal(t, runID, fromJSON.RunID)
	assert.Equal(t, 1, fromJSON.Cursor)
	assert.Equal(t, []string{"a"}, fromJSON.Processed)
	require.Len(t, fromJSON.Units, 2)
	assert.Equal(t, cb, fromJSON.Units[0].Codebook)

	yamlPath := filepath.Join(dir, "export.yaml")
	require.NoError(t, s.ExportYAML(ctx, yamlPath))
	data, err = os.ReadFile(yamlPath)
	require.NoError(t, err)

	var fromYAML Export
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	assert.Equal(t, fromJSON.RunID, fromYAML.RunID)
	assert.Equal(t, cb, fromYAML.Units[0].Codebook)
	assert.Equal(t, types.UnitProcessed, fromYAML.Units[0].Status)
}
