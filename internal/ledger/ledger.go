package ledger

import (
	"context"
	"errors"
	"time"
)

// ─────────────────────────────────────────────
// Reward Ledger
//
// Durable record of which identities have been
// paid. At most one RewardRecord ever exists per
// identity; this is the invariant the whole
// payout path leans on.
// ─────────────────────────────────────────────

// ErrAlreadyRewarded is returned when marking an identity that already has
// a record. With correct call ordering it is unreachable, but it must stay
// a defined, non-silent failure: it is the enforcement mechanism of the
// one-payout invariant, not a convenience check.
var ErrAlreadyRewarded = errors.New("identity already rewarded")

// RewardRecord is created exactly once per identity that is ever paid.
// It is the only entity in the system that must survive restarts.
type RewardRecord struct {
	Identity      string    `json:"identity" gorm:"primaryKey"`
	TransactionID string    `json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// Ledger is the reward bookkeeping interface. Implementations must offer
// conditional-insert semantics keyed by identity: two concurrent
// MarkRewarded calls for the same identity yield exactly one record and
// one ErrAlreadyRewarded.
type Ledger interface {
	// HasReceived reports whether a RewardRecord exists for identity.
	HasReceived(ctx context.Context, identity string) (bool, error)

	// MarkRewarded creates the record, failing with ErrAlreadyRewarded
	// if one already exists.
	MarkRewarded(ctx context.Context, identity, transactionID string) (*RewardRecord, error)

	// Get returns the record for identity, or nil if none exists.
	Get(ctx context.Context, identity string) (*RewardRecord, error)

	// List returns the most recent records, newest first.
	List(ctx context.Context, limit int) ([]RewardRecord, error)
}
