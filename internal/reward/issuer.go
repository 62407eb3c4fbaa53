package reward

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/promptcraft/server/internal/ledger"
	"github.com/promptcraft/server/internal/treasury"
)

// ─────────────────────────────────────────────
// Reward Issuer
//
// Serializes the check → transfer → mark path
// per identity. The ordering is the point:
// HasReceived strictly before Transfer, and
// MarkRewarded strictly after Transfer succeeds.
// Marking first would let a failed transfer
// silently block every future payout attempt.
// ─────────────────────────────────────────────

// Issuer pays each identity at most once.
type Issuer struct {
	ledger    ledger.Ledger
	disburser treasury.Disburser
	amount    int64 // whole reward tokens per payout

	mu    sync.Mutex
	locks map[string]*identityLock // per-identity, unrelated identities never serialize
}

// identityLock is refcounted so the map entry is pruned once no Award
// holds or waits on it; the map stays bounded by concurrent awards, not
// by every wallet ever seen.
type identityLock struct {
	mu   sync.Mutex
	refs int
}

// NewIssuer creates an Issuer paying amount tokens per qualifying identity.
func NewIssuer(l ledger.Ledger, d treasury.Disburser, amount int64) *Issuer {
	return &Issuer{
		ledger:    l,
		disburser: d,
		amount:    amount,
		locks:     make(map[string]*identityLock),
	}
}

// Award pays identity once. It returns the settlement transaction ID, or
// already=true when the identity was previously rewarded (a no-op, not an
// error). A transfer failure leaves the ledger unmarked, so a later
// qualifying evaluation retries the payout.
func (i *Issuer) Award(ctx context.Context, identity string) (txID string, already bool, err error) {
	lock := i.acquire(identity)
	defer i.release(identity, lock)

	received, err := i.ledger.HasReceived(ctx, identity)
	if err != nil {
		return "", false, fmt.Errorf("reward check: %w", err)
	}
	if received {
		log.Printf("[reward] identity %s already rewarded, skipping", identity)
		return "", true, nil
	}

	txID, err = i.disburser.Transfer(ctx, identity, i.amount)
	if err != nil {
		return "", false, err
	}

	if _, err := i.ledger.MarkRewarded(ctx, identity, txID); err != nil {
		if errors.Is(err, ledger.ErrAlreadyRewarded) {
			// Another process won the conditional insert between our check
			// and mark. The transfer went out twice; that must never pass
			// silently.
			log.Printf("[reward] DOUBLE PAYOUT for identity %s tx=%s: %v", identity, txID, err)
			return txID, false, err
		}
		return txID, false, fmt.Errorf("reward mark: %w", err)
	}

	log.Printf("[reward] identity %s rewarded, tx=%s", identity, txID)
	return txID, false, nil
}

// acquire takes the lock for identity, creating it on first use.
func (i *Issuer) acquire(identity string) *identityLock {
	i.mu.Lock()
	lock, ok := i.locks[identity]
	if !ok {
		lock = &identityLock{}
		i.locks[identity] = lock
	}
	lock.refs++
	i.mu.Unlock()

	lock.mu.Lock()
	return lock
}

// release unlocks and drops the map entry once nobody else holds or
// waits on it.
func (i *Issuer) release(identity string, lock *identityLock) {
	lock.mu.Unlock()

	i.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(i.locks, identity)
	}
	i.mu.Unlock()
}
