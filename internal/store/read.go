package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/bapdd/internal/ir"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ReadRun returns the run with the given ID, or ErrNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (ir.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, config, seq, engine_version, schema_version
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.RunRecord{}, fmt.Errorf("run %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.RunRecord{}, err
	}
	return run, nil
}

// ListRuns returns every run ordered by seq.
//
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) ListRuns(ctx context.Context) ([]ir.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, config, seq, engine_version, schema_version
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.RunRecord{}
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

// ReadRounds returns all rounds of a run ordered by seq.
//
// Returns an empty slice (not nil) if the run has no rounds.
func (s *Store) ReadRounds(ctx context.Context, runID string) ([]ir.RoundRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, round, opinions, timestamps, weights, drift, consensus, hash
		FROM rounds
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	defer rows.Close()

	rounds := []ir.RoundRecord{}
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rounds: %w", err)
	}

	return rounds, nil
}

// ReadElections returns all elections of a run ordered by seq.
//
// Returns an empty slice (not nil) if the run has no elections.
func (s *Store) ReadElections(ctx context.Context, runID string) ([]ir.ElectionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, subgroups, leaders, winner, hash
		FROM elections
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query elections: %w", err)
	}
	defer rows.Close()

	elections := []ir.ElectionRecord{}
	for rows.Next() {
		e, err := scanElection(rows)
		if err != nil {
			return nil, err
		}
		elections = append(elections, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate elections: %w", err)
	}

	return elections, nil
}

func scanRun(row rowScanner) (ir.RunRecord, error) {
	var run ir.RunRecord
	var cfgJSON string
	if err := row.Scan(&run.ID, &cfgJSON, &run.Seq, &run.EngineVersion, &run.SchemaVersion); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return run, err
		}
		return run, fmt.Errorf("scan run: %w", err)
	}
	if err := unmarshalJSON("config", cfgJSON, &run.Config); err != nil {
		return run, err
	}
	return run, nil
}

func scanRound(row rowScanner) (ir.RoundRecord, error) {
	var r ir.RoundRecord
	var opinions, timestamps, weights, drift string
	err := row.Scan(&r.RunID, &r.Seq, &r.Round, &opinions, &timestamps, &weights, &drift, &r.Consensus, &r.Hash)
	if err != nil {
		return r, fmt.Errorf("scan round: %w", err)
	}

	cols := []struct {
		name string
		data string
		dst  any
	}{
		{"opinions", opinions, &r.Opinions},
		{"timestamps", timestamps, &r.Timestamps},
		{"weights", weights, &r.Weights},
		{"drift", drift, &r.Drift},
	}
	for _, c := range cols {
		if err := unmarshalJSON(c.name, c.data, c.dst); err != nil {
			return r, err
		}
	}
	return r, nil
}

func scanElection(row rowScanner) (ir.ElectionRecord, error) {
	var e ir.ElectionRecord
	var groups, leaders string
	if err := row.Scan(&e.RunID, &e.Seq, &groups, &leaders, &e.Winner, &e.Hash); err != nil {
		return e, fmt.Errorf("scan election: %w", err)
	}
	if err := unmarshalJSON("subgroups", groups, &e.Subgroups); err != nil {
		return e, err
	}
	if err := unmarshalJSON("leaders", leaders, &e.Leaders); err != nil {
		return e, err
	}
	return e, nil
}
