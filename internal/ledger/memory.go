package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

// ─────────────────────────────────────────────
// memoryLedger implements Ledger in-process
// ─────────────────────────────────────────────

// memoryLedger is a mutex-guarded map. It satisfies the same contract as
// the SQL ledger but does not survive restarts; suitable for single-process
// deployments and tests.
type memoryLedger struct {
	mu      sync.Mutex
	records map[string]RewardRecord
}

// NewMemoryLedger creates an in-memory Ledger.
func NewMemoryLedger() Ledger {
	return &memoryLedger{records: make(map[string]RewardRecord)}
}

func (l *memoryLedger) HasReceived(_ context.Context, identity string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.records[identity]
	return ok, nil
}

func (l *memoryLedger) Get(_ context.Context, identity string) (*RewardRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[identity]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (l *memoryLedger) MarkRewarded(_ context.Context, identity, transactionID string) (*RewardRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.records[identity]; ok {
		return nil, ErrAlreadyRewarded
	}

	rec := RewardRecord{
		Identity:      identity,
		TransactionID: transactionID,
		CreatedAt:     time.Now(),
	}
	l.records[identity] = rec
	return &rec, nil
}

func (l *memoryLedger) List(_ context.Context, limit int) ([]RewardRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	recs := make([]RewardRecord, 0, len(l.records))
	for _, rec := range l.records {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}
