// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workflow persists the state of a coding session: the staged
// table-processing units, the codebook and assignments produced for each,
// and a cursor naming the current unit.
package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/codebook/pkg/types"
)

// DefaultDBPath is used when no database path is configured.
const DefaultDBPath = "codebook.db"

const (
	keyCursor   = "cursor"
	keyRunID    = "run_id"
	keyStagedAt = "staged_at"

	// finished is the cursor value once every unit is processed.
	finished = -1
)

var (
	// ErrNoUnits is returned when nothing has been staged.
	ErrNoUnits = errors.New("no units staged")

	// ErrUnitOutOfRange is returned for an index that names no unit.
	ErrUnitOutOfRange = errors.New("unit index out of range")

	// ErrFinished is returned by Current once every unit is processed.
	ErrFinished = errors.New("all units processed")
)

// Store manages the workflow SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the workflow database at cfg.DBPath and creates
// the schema if it does not exist.
func Open(cfg types.WorkflowConfig) (*Store, error) {
	path := cfg.DBPath
	if path == "" {
		path = DefaultDBPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS units (
			idx INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			question TEXT,
			source TEXT NOT NULL,
			id_column TEXT,
			text_column TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			codebook TEXT NOT NULL DEFAULT '[]',
			assignments TEXT NOT NULL DEFAULT '[]',
			updated_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_units_status ON units(status)`,
		`CREATE TABLE IF NOT EXISTS state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Stage replaces every unit with units, resets the cursor to the first
// one and stamps a new run id, which it returns. Unit indexes are
// reassigned from their position.
func (s *Store) Stage(ctx context.Context, units []types.Unit) (string, error) {
	if len(units) == 0 {
		return "", ErrNoUnits
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM units`); err != nil {
		return "", fmt.Errorf("clearing units: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO units (idx, name, question, source, id_column, text_column, status, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := timestamp()
	for i, u := range units {
		_, err := stmt.ExecContext(ctx,
			i, u.Name, u.Question, u.Source, u.IDColumn, u.TextColumn,
			string(types.UnitPending), now,
		)
		if err != nil {
			return "", fmt.Errorf("inserting unit %s: %w", u.Name, err)
		}
	}

	runID := uuid.NewString()
	for key, value := range map[string]string{
		keyCursor:   "0",
		keyRunID:    runID,
		keyStagedAt: now,
	} {
		if err := setState(ctx, tx, key, value); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing stage: %w", err)
	}
	return runID, nil
}

// RunID returns the id stamped by the last Stage, or "" when nothing is staged.
func (s *Store) RunID(ctx context.Context) (string, error) {
	return getState(ctx, s.db, keyRunID)
}

// Cursor returns the current unit index, -1 once every unit is processed.
func (s *Store) Cursor(ctx context.Context) (int, error) {
	v, err := getState(ctx, s.db, keyCursor)
	if err != nil {
		return 0, err
	}
	if v == "" {
		return 0, ErrNoUnits
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("corrupt cursor %q: %w", v, err)
	}
	return n, nil
}

// Units returns every unit in index order.
func (s *Store) Units(ctx context.Context) ([]types.Unit, error) {
	rows, err := s.db.QueryContext(ctx, selectUnits+` ORDER BY idx`)
	if err != nil {
		return nil, fmt.Errorf("querying units: %w", err)
	}
	defer rows.Close()

	var units []types.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// Unit returns the unit at idx.
func (s *Store) Unit(ctx context.Context, idx int) (types.Unit, error) {
	u, err := scanUnit(s.db.QueryRowContext(ctx, selectUnits+` WHERE idx = ?`, idx))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Unit{}, fmt.Errorf("%w: %d", ErrUnitOutOfRange, idx)
	}
	return u, err
}

// Current returns the unit under the cursor.
func (s *Store) Current(ctx context.Context) (types.Unit, error) {
	cursor, err := s.Cursor(ctx)
	if err != nil {
		return types.Unit{}, err
	}
	if cursor == finished {
		return types.Unit{}, ErrFinished
	}
	return s.Unit(ctx, cursor)
}

// Goto moves the cursor to idx. Processed units may be revisited.
func (s *Store) Goto(ctx context.Context, idx int) error {
	if _, err := s.Unit(ctx, idx); err != nil {
		return err
	}
	return setState(ctx, s.db, keyCursor, strconv.Itoa(idx))
}

// SaveResult stores the codebook and assignments produced for unit idx.
func (s *Store) SaveResult(ctx context.Context, idx int, cb types.Codebook, assignments []types.Assignment) error {
	cbJSON, err := json.Marshal(cb)
	if err != nil {
		return fmt.Errorf("encoding codebook: %w", err)
	}
	if assignments == nil {
		assignments = []types.Assignment{}
	}
	asJSON, err := json.Marshal(assignments)
	if err != nil {
		return fmt.Errorf("encoding assignments: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE units SET codebook = ?, assignments = ?, updated_at = ? WHERE idx = ?`,
		string(cbJSON), string(asJSON), timestamp(), idx,
	)
	if err != nil {
		return fmt.Errorf("saving unit %d: %w", idx, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrUnitOutOfRange, idx)
	}
	return nil
}

// Validate marks unit idx processed and moves the cursor to the next
// pending unit after it, wrapping around. done reports that no pending
// unit remains, in which case next is -1.
func (s *Store) Validate(ctx context.Context, idx int) (next int, done bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE units SET status = ?, updated_at = ? WHERE idx = ?`,
		string(types.UnitProcessed), timestamp(), idx,
	)
	if err != nil {
		return 0, false, fmt.Errorf("marking unit %d processed: %w", idx, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, false, fmt.Errorf("%w: %d", ErrUnitOutOfRange, idx)
	}

	next = finished
	err = tx.QueryRowContext(ctx,
		`SELECT idx FROM units WHERE status = ?
		 ORDER BY CASE WHEN idx > ? THEN 0 ELSE 1 END, idx LIMIT 1`,
		string(types.UnitPending), idx,
	).Scan(&next)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("finding next unit: %w", err)
	}

	if err := setState(ctx, tx, keyCursor, strconv.Itoa(next)); err != nil {
		return 0, false, err
	}
	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("committing validation: %w", err)
	}
	return next, next == finished, nil
}

// Processed returns the names of processed units in index order.
func (s *Store) Processed(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM units WHERE status = ? ORDER BY idx`, string(types.UnitProcessed))
	if err != nil {
		return nil, fmt.Errorf("querying processed units: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning unit name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

const selectUnits = `SELECT idx, name, question, source, id_column, text_column,
	status, codebook, assignments FROM units`

type scanner interface {
	Scan(dest ...any) error
}

func scanUnit(sc scanner) (types.Unit, error) {
	var (
		u                    types.Unit
		question, idCol, txt sql.NullString
		status, cbJSON, asJS string
	)
	if err := sc.Scan(&u.Index, &u.Name, &question, &u.Source, &idCol, &txt,
		&status, &cbJSON, &asJS); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return u, err
		}
		return u, fmt.Errorf("scanning unit: %w", err)
	}
	u.Question = question.String
	u.IDColumn = idCol.String
	u.TextColumn = txt.String
	u.Status = types.UnitStatus(status)

	if err := json.Unmarshal([]byte(cbJSON), &u.Codebook); err != nil {
		return u, fmt.Errorf("decoding codebook of unit %d: %w", u.Index, err)
	}
	if err := json.Unmarshal([]byte(asJS), &u.Assignments); err != nil {
		return u, fmt.Errorf("decoding assignments of unit %d: %w", u.Index, err)
	}
	return u, nil
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getState(ctx context.Context, q execQuerier, key string) (string, error) {
	var v string
	err := q.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return v, nil
}

func setState(ctx context.Context, q execQuerier, key, value string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
