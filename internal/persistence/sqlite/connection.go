package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/bsmanager/internal/persistence"
	"github.com/example/bsmanager/internal/persistence/sqlite/migration"
)

// ConnectionPool owns the *sql.DB shared by the to-do repository and the
// migration executor.
type ConnectionPool struct {
	db *sql.DB
}

// NewConnectionPool opens the database described by config with its pragmas applied.
func NewConnectionPool(config migration.SQLiteConfig) (*ConnectionPool, error) {
	db, err := migration.NewConnectionManager(config).GetConnection()
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", config.DSN, err)
	}
	return &ConnectionPool{db: db}, nil
}

func (cp *ConnectionPool) DB() *sql.DB {
	return cp.db
}

func (cp *ConnectionPool) Close() error {
	if cp == nil || cp.db == nil {
		return nil
	}
	return cp.db.Close()
}

func (cp *ConnectionPool) Ping(ctx context.Context) error {
	return cp.db.PingContext(ctx)
}

// TransactionFunc is the body of a transaction.
type TransactionFunc func(tx *sql.Tx) error

// WithTransaction runs fn in a transaction, committing only when fn succeeds.
// A panic in fn rolls back and is re-raised.
func (cp *ConnectionPool) WithTransaction(ctx context.Context, fn TransactionFunc) (err error) {
	tx, err := cp.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		rbErr := tx.Rollback()
		if p := recover(); p != nil {
			panic(p)
		}
		if rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	committed = true
	return nil
}

// constraintRule maps a fragment of a driver error message to a sentinel.
type constraintRule struct {
	fragments []string
	sentinel  error
}

var constraintRules = []constraintRule{
	{fragments: []string{"UNIQUE constraint failed", "PRIMARY KEY"}, sentinel: persistence.ErrDuplicate},
	{fragments: []string{"FOREIGN KEY constraint failed"}, sentinel: persistence.ErrForeignKeyViolation},
	{fragments: []string{"CHECK constraint failed", "NOT NULL constraint failed"}, sentinel: persistence.ErrConstraintViolation},
}

// ErrorMapper translates driver errors into persistence sentinels.
type ErrorMapper struct{}

func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{}
}

// MapError wraps err with the matching persistence sentinel. Unrecognised
// errors pass through unchanged.
func (em *ErrorMapper) MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}
	msg := err.Error()
	for _, rule := range constraintRules {
		if containsAny(msg, rule.fragments...) {
			return fmt.Errorf("%w: %v", rule.sentinel, err)
		}
	}
	return err
}

func containsAny(s string, substrings ...string) bool {
	for _, substr := range substrings {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

// RetryConfig bounds the backoff applied to writes that hit a busy database.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig allows three retries starting at 50ms, capped at one second.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}
}

func (c RetryConfig) next(delay time.Duration) time.Duration {
	delay = time.Duration(float64(delay) * c.BackoffFactor)
	if delay > c.MaxDelay {
		return c.MaxDelay
	}
	return delay
}

// RetryHelper reruns writes that failed because another connection held the lock.
type RetryHelper struct {
	config RetryConfig
	mapper *ErrorMapper
}

func NewRetryHelper(config RetryConfig) *RetryHelper {
	return &RetryHelper{config: config, mapper: NewErrorMapper()}
}

// RetryableFunc is one attempt of a write.
type RetryableFunc func() error

// WithRetry runs fn until it succeeds, fails with a non-lock error, or the
// retry budget is spent. Returned errors are already mapped.
func (rh *RetryHelper) WithRetry(ctx context.Context, fn RetryableFunc) error {
	delay := rh.config.InitialDelay
	err := rh.mapper.MapError(fn())

	for attempt := 1; err != nil && isRetryableError(err); attempt++ {
		if attempt > rh.config.MaxRetries {
			return fmt.Errorf("sqlite: gave up after %d retries: %w", rh.config.MaxRetries, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = rh.config.next(delay)
		err = rh.mapper.MapError(fn())
	}
	return err
}

// isRetryableError reports whether err is a transient lock condition.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	return containsAny(err.Error(), "database is locked", "database table is locked", "SQLITE_BUSY", "database is busy")
}
