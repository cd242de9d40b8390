package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/firegraph/internal/engine"
	"github.com/roach88/firegraph/internal/ir"
)

// Run status values.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusAborted  = "aborted" // run limit exceeded
	StatusFailed   = "failed"
)

// Clock supplies run timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Sink records runs into a Store. It implements engine.Sink.
//
// Each run is written in one transaction: Init opens it, Store appends a
// combination, End records the summary and commits. A Sink handles one run
// at a time and may be reused for the next run afterwards.
type Sink struct {
	store *Store
	ctx   context.Context
	ids   RunIDGenerator
	clock Clock

	runID   string
	tx      *sql.Tx
	insert  *sql.Stmt
	nodes   []*engine.Node
	row     []ir.Value
	ordinal int
}

// SinkOption configures a Sink.
type SinkOption func(*Sink)

// WithRunIDGenerator sets the run id generator (default UUIDv7Generator).
func WithRunIDGenerator(g RunIDGenerator) SinkOption {
	return func(s *Sink) { s.ids = g }
}

// WithClock sets the timestamp source (default wall clock, UTC).
func WithClock(c Clock) SinkOption {
	return func(s *Sink) { s.clock = c }
}

// NewSink creates a Sink writing to s. The context bounds every statement
// the sink issues.
func (s *Store) NewSink(ctx context.Context, opts ...SinkOption) *Sink {
	sink := &Sink{
		store: s,
		ctx:   ctx,
		ids:   UUIDv7Generator{},
		clock: systemClock{},
	}
	for _, opt := range opts {
		opt(sink)
	}
	return sink
}

// RunID returns the id of the current or most recent run.
func (k *Sink) RunID() string { return k.runID }

// Init implements engine.Sink.
func (k *Sink) Init(info engine.RunInfo) error {
	if k.tx != nil {
		return errors.New("store sink: previous run still open")
	}

	tx, err := k.store.db.BeginTx(k.ctx, nil)
	if err != nil {
		return fmt.Errorf("store sink: begin tx: %w", err)
	}

	runID := k.ids.Generate()
	cat := info.Dag.Catalog()
	_, err = tx.ExecContext(k.ctx, `
		INSERT INTO runs
		(id, seq, dag, catalog, genome_hash, strategy, engine_version, status, started_at)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		info.Dag.Name(),
		cat.Name(),
		cat.Hash(),
		info.Strategy,
		ir.EngineVersion,
		StatusRunning,
		formatTime(k.clock.Now()),
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("store sink: insert run: %w", err)
	}

	for pos, n := range info.Nodes {
		_, err := tx.ExecContext(k.ctx, `
			INSERT INTO run_nodes (run_id, position, node_key, node_index, is_input, units)
			VALUES (?, ?, ?, ?, ?, ?)
		`, runID, pos, n.Key(), n.Index(), n.IsInput(), n.Units())
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("store sink: insert run node %q: %w", n.Key(), err)
		}
	}

	insert, err := tx.PrepareContext(k.ctx, `
		INSERT INTO combinations (run_id, ordinal, vals, values_hash)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("store sink: prepare insert: %w", err)
	}

	k.runID = runID
	k.tx = tx
	k.insert = insert
	k.nodes = info.Nodes
	k.row = make([]ir.Value, len(info.Nodes))
	k.ordinal = 0

	slog.Debug("run started", "run_id", runID, "dag", info.Dag.Name(), "columns", len(info.Nodes))
	return nil
}

// Store implements engine.Sink.
func (k *Sink) Store() error {
	if k.tx == nil {
		return errors.New("store sink: no open run")
	}
	for i, n := range k.nodes {
		k.row[i] = n.Value()
	}
	text, hash, err := marshalValues(k.row)
	if err != nil {
		return fmt.Errorf("store sink: combination %d: %w", k.ordinal, err)
	}
	if _, err := k.insert.ExecContext(k.ctx, k.runID, k.ordinal, text, hash); err != nil {
		return fmt.Errorf("store sink: insert combination %d: %w", k.ordinal, err)
	}
	k.ordinal++
	return nil
}

// End implements engine.Sink.
func (k *Sink) End(summary engine.RunSummary) error {
	if k.tx == nil {
		return errors.New("store sink: no open run")
	}
	tx := k.tx
	defer func() {
		k.insert.Close()
		k.tx = nil
		k.insert = nil
		k.nodes = nil
	}()

	status := StatusComplete
	switch {
	case summary.OK:
	case summary.Message != "":
		status = StatusAborted
	default:
		status = StatusFailed
	}

	_, err := tx.ExecContext(k.ctx, `
		UPDATE runs
		SET status = ?, ok = ?, combinations = ?, evaluations = ?, message = ?, ended_at = ?
		WHERE id = ?
	`,
		status,
		summary.OK,
		summary.Combinations,
		summary.NodeEvaluations,
		summary.Message,
		formatTime(k.clock.Now()),
		k.runID,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("store sink: update run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store sink: commit: %w", err)
	}

	slog.Debug("run stored", "run_id", k.runID, "status", status, "combinations", k.ordinal)
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
