package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ─────────────────────────────────────────────
// sqlLedger implements Ledger on GORM/Postgres
// ─────────────────────────────────────────────

// sqlLedger relies on the primary-key constraint on identity for its
// insert-if-absent semantics, so idempotency holds across processes and
// restarts. The DB must be opened with TranslateError so a duplicate key
// surfaces as gorm.ErrDuplicatedKey.
type sqlLedger struct {
	db *gorm.DB
}

// NewSQLLedger creates a Ledger backed by the given DB.
func NewSQLLedger(db *gorm.DB) Ledger {
	return &sqlLedger{db: db}
}

// HasReceived reports whether a RewardRecord exists for identity.
func (l *sqlLedger) HasReceived(ctx context.Context, identity string) (bool, error) {
	rec, err := l.Get(ctx, identity)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// Get returns the record for identity, or nil if none exists.
func (l *sqlLedger) Get(ctx context.Context, identity string) (*RewardRecord, error) {
	var rec RewardRecord
	err := l.db.WithContext(ctx).Where("identity = ?", identity).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger lookup: %w", err)
	}
	return &rec, nil
}

// MarkRewarded inserts the record. The conditional insert is the atomic
// check-and-set: a concurrent insert for the same identity loses on the
// primary-key constraint and gets ErrAlreadyRewarded.
func (l *sqlLedger) MarkRewarded(ctx context.Context, identity, transactionID string) (*RewardRecord, error) {
	rec := RewardRecord{
		Identity:      identity,
		TransactionID: transactionID,
		CreatedAt:     time.Now(),
	}
	if err := l.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyRewarded
		}
		return nil, fmt.Errorf("ledger insert: %w", err)
	}
	return &rec, nil
}

// List returns the most recent records, newest first.
func (l *sqlLedger) List(ctx context.Context, limit int) ([]RewardRecord, error) {
	var recs []RewardRecord
	err := l.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("ledger list: %w", err)
	}
	return recs, nil
}
