package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"teamcoin/internal/teamerr"
)

// maxTxRetries bounds the transparent retries on transient write conflicts
// before ErrConflictRetry is surfaced to the caller.
const maxTxRetries = 3

// withRetry runs fn inside a transaction, retrying on transient conflicts
// (duplicate-key races on the unique constraints, serialization failures).
// Business errors returned by fn pass through unchanged.
func withRetry(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= maxTxRetries; attempt++ {
		err = db.Transaction(fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		log.Printf("[withRetry] attempt %d/%d hit write conflict: %v", attempt, maxTxRetries, err)
	}
	return fmt.Errorf("giving up after %d attempts (%v): %w", maxTxRetries, err, teamerr.ErrConflictRetry)
}

// isRetryable reports whether err is a transient conflict worth retrying.
func isRetryable(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	// Postgres serialization failure / deadlock, sqlite writer contention.
	return strings.Contains(msg, "SQLSTATE 40001") ||
		strings.Contains(msg, "SQLSTATE 40P01") ||
		strings.Contains(msg, "database is locked")
}

// forUpdate adds a row-level lock on postgres. sqlite serializes writers on
// its own and does not accept the FOR UPDATE syntax.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// dayKey renders t as the UTC calendar day used in vote and leader rows.
func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
