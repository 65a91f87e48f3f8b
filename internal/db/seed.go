package db

import (
	"context"
	"database/sql"
	"fmt"
)

// StateSeed describes a workflow state to create on first run.
type StateSeed struct {
	Name     string
	Label    string
	Initial  bool
	Terminal bool
}

// SeedStates inserts seeds when workflow_states is empty and reports how
// many rows were written. Existing state tables are left alone.
func SeedStates(ctx context.Context, database *sql.DB, seeds []StateSeed) (int, error) {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed states: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM workflow_states").Scan(&count); err != nil {
		return 0, fmt.Errorf("seed states: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	for _, s := range seeds {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO workflow_states (name, label, is_initial, is_terminal) VALUES (?, ?, ?, ?)",
			s.Name, s.Label, s.Initial, s.Terminal,
		); err != nil {
			return 0, fmt.Errorf("seed state %s: %w", s.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed states: %w", err)
	}
	return len(seeds), nil
}
