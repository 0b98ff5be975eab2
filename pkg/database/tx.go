package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/zjoart/go-invest-ledger/pkg/logger"
)

// ErrStoreConflict is returned when a transaction keeps conflicting with
// concurrent writers after every attempt.
var ErrStoreConflict = errors.New("store conflict: transaction retries exhausted")

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// WithTx runs fn inside a transaction.
// It commits if fn returns nil, otherwise it rolls back. Serialization
// failures and deadlocks are retried up to attempts times.
func WithTx(ctx context.Context, db *gorm.DB, attempts int, fn func(tx *gorm.DB) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = db.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		logger.Warn("Transaction conflicted, retrying", logger.Fields{
			"attempt": attempt,
			"error":   err.Error(),
		})
	}

	return fmt.Errorf("%w: %v", ErrStoreConflict, err)
}

// IsRetryable reports whether err is a write conflict the database expects
// the client to retry.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
	}
	return false
}

// IsDuplicateKey reports whether err is a unique constraint violation.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeUniqueViolation
	}
	return false
}
