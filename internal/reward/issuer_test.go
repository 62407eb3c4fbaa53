package reward

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptcraft/server/internal/ledger"
	"github.com/promptcraft/server/internal/treasury"
)

// fakeDisburser counts transfers and can be told to fail.
type fakeDisburser struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (d *fakeDisburser) Transfer(_ context.Context, identity string, _ int64) (string, error) {
	n := d.calls.Add(1)
	if d.fail.Load() {
		return "", fmt.Errorf("%w: sidecar unreachable", treasury.ErrTransfer)
	}
	return fmt.Sprintf("tx-%s-%d", identity, n), nil
}

func TestAward_PaysOnce(t *testing.T) {
	ctx := context.Background()
	disb := &fakeDisburser{}
	issuer := NewIssuer(ledger.NewMemoryLedger(), disb, 1)

	txID, already, err := issuer.Award(ctx, "wallet-1")
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, "tx-wallet-1-1", txID)

	// the second qualifying award is a silent skip
	txID, already, err = issuer.Award(ctx, "wallet-1")
	require.NoError(t, err)
	assert.True(t, already)
	assert.Empty(t, txID)

	assert.Equal(t, int32(1), disb.calls.Load())
}

func TestAward_DistinctIdentities(t *testing.T) {
	ctx := context.Background()
	disb := &fakeDisburser{}
	issuer := NewIssuer(ledger.NewMemoryLedger(), disb, 1)

	_, _, err := issuer.Award(ctx, "wallet-1")
	require.NoError(t, err)
	_, _, err = issuer.Award(ctx, "wallet-2")
	require.NoError(t, err)

	assert.Equal(t, int32(2), disb.calls.Load())
}

func TestAward_TransferFailureLeavesLedgerUnmarked(t *testing.T) {
	ctx := context.Background()
	disb := &fakeDisburser{}
	disb.fail.Store(true)
	ledg := ledger.NewMemoryLedger()
	issuer := NewIssuer(ledg, disb, 1)

	_, _, err := issuer.Award(ctx, "wallet-1")
	require.ErrorIs(t, err, treasury.ErrTransfer)

	received, err := ledg.HasReceived(ctx, "wallet-1")
	require.NoError(t, err)
	assert.False(t, received, "a failed transfer must not burn the identity's payout")

	// the next qualifying award retries the transfer and succeeds
	disb.fail.Store(false)
	txID, already, err := issuer.Award(ctx, "wallet-1")
	require.NoError(t, err)
	assert.False(t, already)
	assert.NotEmpty(t, txID)
	assert.Equal(t, int32(2), disb.calls.Load())
}

func TestAward_Concurrent(t *testing.T) {
	ctx := context.Background()
	disb := &fakeDisburser{}
	issuer := NewIssuer(ledger.NewMemoryLedger(), disb, 1)

	const workers = 16
	var paid atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, already, err := issuer.Award(ctx, "wallet-1")
			require.NoError(t, err)
			if !already {
				paid.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), paid.Load())
	assert.Equal(t, int32(1), disb.calls.Load())
}

func TestAward_ReleasesIdentityLocks(t *testing.T) {
	ctx := context.Background()
	disb := &fakeDisburser{}
	issuer := NewIssuer(ledger.NewMemoryLedger(), disb, 1)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _, err := issuer.Award(ctx, fmt.Sprintf("wallet-%d", n%4))
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	issuer.mu.Lock()
	defer issuer.mu.Unlock()
	assert.Empty(t, issuer.locks, "lock entries must not outlive their awards")
}

// raceLedger simulates another process winning the conditional insert
// between the check and the mark.
type raceLedger struct {
	ledger.Ledger
}

func (l *raceLedger) HasReceived(context.Context, string) (bool, error) {
	return false, nil
}

func (l *raceLedger) MarkRewarded(context.Context, string, string) (*ledger.RewardRecord, error) {
	return nil, ledger.ErrAlreadyRewarded
}

func TestAward_LostInsertRaceSurfaces(t *testing.T) {
	disb := &fakeDisburser{}
	issuer := NewIssuer(&raceLedger{Ledger: ledger.NewMemoryLedger()}, disb, 1)

	txID, already, err := issuer.Award(context.Background(), "wallet-1")
	require.True(t, errors.Is(err, ledger.ErrAlreadyRewarded))
	assert.False(t, already)
	assert.NotEmpty(t, txID, "the duplicate transaction id must be reported")
}
