package ledger

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedger_MarkOnce(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	got, err := l.HasReceived(ctx, "wallet-1")
	require.NoError(t, err)
	assert.False(t, got)

	rec, err := l.MarkRewarded(ctx, "wallet-1", "tx-1")
	require.NoError(t, err)
	assert.Equal(t, "wallet-1", rec.Identity)
	assert.Equal(t, "tx-1", rec.TransactionID)
	assert.False(t, rec.CreatedAt.IsZero())

	got, err = l.HasReceived(ctx, "wallet-1")
	require.NoError(t, err)
	assert.True(t, got)

	_, err = l.MarkRewarded(ctx, "wallet-1", "tx-2")
	require.ErrorIs(t, err, ErrAlreadyRewarded)

	// the losing mark must not overwrite the original transaction
	rec, err = l.Get(ctx, "wallet-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "tx-1", rec.TransactionID)
}

func TestMemoryLedger_GetUnknown(t *testing.T) {
	l := NewMemoryLedger()
	rec, err := l.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestMemoryLedger_ConcurrentMark(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	const workers = 32
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := l.MarkRewarded(ctx, "wallet-1", fmt.Sprintf("tx-%d", n)); err == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load(), "exactly one mark may win")
}

func TestMemoryLedger_List(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	for i := 0; i < 5; i++ {
		_, err := l.MarkRewarded(ctx, fmt.Sprintf("wallet-%d", i), fmt.Sprintf("tx-%d", i))
		require.NoError(t, err)
	}

	recs, err := l.List(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	recs, err = l.List(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, recs, 5)
	for i := 1; i < len(recs); i++ {
		assert.False(t, recs[i].CreatedAt.After(recs[i-1].CreatedAt), "newest first")
	}
}
