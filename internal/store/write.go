package store

import (
	"context"
	"fmt"

	"github.com/roach88/bapdd/internal/ir"
)

// WriteRun inserts a run record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, run ir.RunRecord) error {
	cfgJSON, err := marshalJSON("config", run.Config)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, config, seq, engine_version, schema_version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		cfgJSON,
		run.Seq,
		run.EngineVersion,
		run.SchemaVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	return nil
}

// WriteRound inserts a round record. The hash is computed here when the
// caller left it empty.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
// Note: A second row for the same (run_id, seq) is silently ignored; a second
// row for the same (run_id, round) at a different seq is an error.
func (s *Store) WriteRound(ctx context.Context, r ir.RoundRecord) error {
	if r.Hash == "" {
		h, err := ir.RoundHash(r)
		if err != nil {
			return fmt.Errorf("write round: %w", err)
		}
		r.Hash = h
	}

	cols := []struct {
		name string
		v    any
	}{
		{"opinions", r.Opinions},
		{"timestamps", r.Timestamps},
		{"weights", r.Weights},
		{"drift", r.Drift},
	}
	encoded := make([]string, len(cols))
	for i, c := range cols {
		data, err := marshalJSON(c.name, c.v)
		if err != nil {
			return fmt.Errorf("write round: %w", err)
		}
		encoded[i] = data
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rounds
		(run_id, seq, round, opinions, timestamps, weights, drift, consensus, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		r.RunID,
		r.Seq,
		r.Round,
		encoded[0],
		encoded[1],
		encoded[2],
		encoded[3],
		r.Consensus,
		r.Hash,
	)
	if err != nil {
		return fmt.Errorf("write round: %w", err)
	}

	return nil
}

// WriteElection inserts an election record. The hash is computed here when
// the caller left it empty.
func (s *Store) WriteElection(ctx context.Context, e ir.ElectionRecord) error {
	if e.Hash == "" {
		h, err := ir.ElectionHash(e)
		if err != nil {
			return fmt.Errorf("write election: %w", err)
		}
		e.Hash = h
	}

	groupsJSON, err := marshalJSON("subgroups", e.Subgroups)
	if err != nil {
		return fmt.Errorf("write election: %w", err)
	}
	leadersJSON, err := marshalJSON("leaders", e.Leaders)
	if err != nil {
		return fmt.Errorf("write election: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO elections (run_id, seq, subgroups, leaders, winner, hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		e.RunID,
		e.Seq,
		groupsJSON,
		leadersJSON,
		e.Winner,
		e.Hash,
	)
	if err != nil {
		return fmt.Errorf("write election: %w", err)
	}

	return nil
}
