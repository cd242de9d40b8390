package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/firegraph/internal/ir"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded run.
type Run struct {
	ID            string    `json:"id"`
	Seq           int64     `json:"seq"`
	Dag           string    `json:"dag"`
	Catalog       string    `json:"catalog"`
	GenomeHash    string    `json:"genome_hash"`
	Strategy      string    `json:"strategy"`
	EngineVersion string    `json:"engine_version"`
	Status        string    `json:"status"`
	OK            bool      `json:"ok"`
	Combinations  int       `json:"combinations"`
	Evaluations   int       `json:"evaluations"`
	Message       string    `json:"message,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	EndedAt       time.Time `json:"ended_at,omitzero"`
}

// Column is one captured node of a run.
type Column struct {
	Position int    `json:"position"`
	Key      string `json:"key"`
	Index    int    `json:"index"`
	Input    bool   `json:"input"`
	Units    string `json:"units,omitempty"`
}

// Table is a run with its columns and rows.
type Table struct {
	Run     Run          `json:"run"`
	Columns []Column     `json:"columns"`
	Rows    [][]ir.Value `json:"rows"`
}

const runColumns = `id, seq, dag, catalog, genome_hash, strategy, engine_version,
	status, ok, combinations, evaluations, message, started_at, ended_at`

// ReadRun returns one run. Returns an error wrapping ErrRunNotFound when the
// id is unknown.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %q: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %q: %w", id, err)
	}
	return run, nil
}

// LatestRun returns the run with the highest seq, optionally restricted to
// one graph name. An empty store returns ErrRunNotFound.
func (s *Store) LatestRun(ctx context.Context, dag string) (Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if dag != "" {
		query += ` WHERE dag = ?`
		args = append(args, dag)
	}
	query += ` ORDER BY seq DESC LIMIT 1`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("latest run: %w", ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs ordered by seq ASC. An empty dag lists every run.
//
// Returns an empty slice (not nil) if there are no runs.
func (s *Store) ListRuns(ctx context.Context, dag string) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if dag != "" {
		query += ` WHERE dag = ?`
		args = append(args, dag)
	}
	query += ` ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadColumns returns the captured nodes of a run in position order.
func (s *Store) ReadColumns(ctx context.Context, runID string) ([]Column, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, node_key, node_index, is_input, units
		FROM run_nodes
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run nodes: %w", err)
	}
	defer rows.Close()

	cols := []Column{}
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Position, &c.Key, &c.Index, &c.Input, &c.Units); err != nil {
			return nil, fmt.Errorf("scan run node: %w", err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run nodes: %w", err)
	}
	return cols, nil
}

// ReadCombinations returns the recorded combinations of a run in the order
// they were stored. Each row aligns with ReadColumns.
func (s *Store) ReadCombinations(ctx context.Context, runID string) ([][]ir.Value, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT vals
		FROM combinations
		WHERE run_id = ?
		ORDER BY ordinal ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query combinations: %w", err)
	}
	defer rows.Close()

	out := [][]ir.Value{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan combination: %w", err)
		}
		values, err := unmarshalValues(text)
		if err != nil {
			return nil, err
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate combinations: %w", err)
	}
	return out, nil
}

// ReadTable returns a run with its columns and rows.
func (s *Store) ReadTable(ctx context.Context, runID string) (Table, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return Table{}, err
	}
	cols, err := s.ReadColumns(ctx, runID)
	if err != nil {
		return Table{}, err
	}
	rows, err := s.ReadCombinations(ctx, runID)
	if err != nil {
		return Table{}, err
	}
	return Table{Run: run, Columns: cols, Rows: rows}, nil
}

// CountMatching returns how many combinations across all runs recorded
// exactly these values. Values are compared by canonical hash.
func (s *Store) CountMatching(ctx context.Context, values []ir.Value) (int, error) {
	hash, err := ir.ValuesHash(values)
	if err != nil {
		return 0, fmt.Errorf("count matching: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM combinations WHERE values_hash = ?`, hash).Scan(&n); err != nil {
		return 0, fmt.Errorf("count matching: %w", err)
	}
	return n, nil
}

// DeleteRun removes a run and its columns and combinations.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run %q: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete run %q: %w", id, ErrRunNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r                  Run
		started, endedText string
	)
	err := row.Scan(
		&r.ID, &r.Seq, &r.Dag, &r.Catalog, &r.GenomeHash, &r.Strategy, &r.EngineVersion,
		&r.Status, &r.OK, &r.Combinations, &r.Evaluations, &r.Message, &started, &endedText,
	)
	if err != nil {
		return Run{}, err
	}
	if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if endedText != "" {
		if r.EndedAt, err = time.Parse(time.RFC3339Nano, endedText); err != nil {
			return Run{}, fmt.Errorf("parse ended_at: %w", err)
		}
	}
	return r, nil
}
