// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/example/verflow/internal/apperr"
	"github.com/example/verflow/internal/metrics"
)

// DefaultTxTimeout bounds a write transaction when none is configured.
const DefaultTxTimeout = 5 * time.Second

// txSettings is shared by every repository.
type txSettings struct {
	timeout time.Duration
	metrics *metrics.Collector
}

// Option configures a repository.
type Option func(*txSettings)

// WithTxTimeout sets the deadline applied to each write transaction.
func WithTxTimeout(d time.Duration) Option {
	return func(s *txSettings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMetrics records transaction durations on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *txSettings) { s.metrics = m }
}

func newTxSettings(opts []Option) txSettings {
	s := txSettings{timeout: DefaultTxTimeout}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// inTx runs fn inside one transaction with the configured deadline. Any
// error from fn, including a deadline, rolls the whole transaction back.
func (s txSettings) inTx(ctx context.Context, db *sql.DB, op string, fn func(ctx context.Context, tx *sql.Tx) error) error {
	start := time.Now()
	defer func() { s.metrics.ObserveTx(op, time.Since(start).Seconds()) }()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(op, err)
	}
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return mapError(op, err)
	}
	if err := tx.Commit(); err != nil {
		return mapError(op, err)
	}
	return nil
}

// mapError classifies driver errors into the apperr taxonomy. Errors that
// already carry a kind pass through.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &apperr.Error{Kind: apperr.KindNotFound, Op: op, Err: err}
	}

	var se sqlite3.Error
	if errors.As(err, &se) {
		switch {
		case se.Code == sqlite3.ErrBusy, se.Code == sqlite3.ErrLocked:
			return &apperr.Error{Kind: apperr.KindConflict, Op: op, Msg: "database is busy", Err: err}
		case se.ExtendedCode == sqlite3.ErrConstraintUnique,
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return &apperr.Error{Kind: apperr.KindConflict, Op: op, Msg: "duplicate key", Err: err}
		case se.ExtendedCode == sqlite3.ErrConstraintForeignKey,
			se.ExtendedCode == sqlite3.ErrConstraintCheck,
			se.ExtendedCode == sqlite3.ErrConstraintNotNull:
			return &apperr.Error{Kind: apperr.KindValidation, Op: op, Msg: "constraint violated", Err: err}
		}
	}
	return apperr.Storage(op, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int64) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: n != 0}
}

// now returns the current time in UTC, truncated to microseconds so values
// survive a round trip through the driver unchanged.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
