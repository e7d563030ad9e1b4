package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// TxOptions tunes the exclusive-transaction retry wrapper.
type TxOptions struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Backoff is the fixed wait between attempts.
	Backoff time.Duration
}

const (
	defaultTxAttempts = 3
	defaultTxBackoff  = 400 * time.Millisecond
)

func (o TxOptions) withDefaults() TxOptions {
	if o.Attempts <= 0 {
		o.Attempts = defaultTxAttempts
	}
	if o.Backoff <= 0 {
		o.Backoff = defaultTxBackoff
	}
	return o
}

// isLockContention reports whether err is SQLite lock contention worth
// retrying, as opposed to a business-logic failure.
func isLockContention(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code {
	case sqlite3.ErrBusy, sqlite3.ErrLocked:
		return true
	default:
		return false
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WithImmediateTx runs fn inside a write transaction, retrying from scratch
// on lock contention up to the configured budget. It is the only sanctioned
// way to perform multi-statement atomic writes; single-statement writes rely
// on SQLite's own per-statement atomicity.
//
// Exhausting the budget returns ErrTxRetryExhausted wrapping the last driver
// error, distinguishable from fn's own failures.
func (s *Store) WithImmediateTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= s.txOpts.Attempts; attempt++ {
		err := s.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isLockContention(err) {
			return err
		}
		lastErr = err
		if attempt < s.txOpts.Attempts {
			s.logger.Warn("database locked, retrying transaction",
				"attempt", attempt, "backoff", s.txOpts.Backoff)
			if serr := sleepWithContext(ctx, s.txOpts.Backoff); serr != nil {
				return serr
			}
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrTxRetryExhausted, s.txOpts.Attempts, lastErr)
}

func (s *Store) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	// The DSN carries _txlock=immediate, so BeginTx takes the write lock
	// up front and contention surfaces here rather than mid-transaction.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}
