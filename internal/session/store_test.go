package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptcraft/server/internal/model"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewStore(rdb, time.Hour), mr
}

func TestStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	round := &model.Round{
		ID:          "r1",
		Identity:    "wallet-1",
		ContentType: model.ContentTypeImage,
		State:       model.StateGeneratedReady,
		Content:     "a red bicycle leaning on a brick wall",
		CreatedAt:   time.Now(),
	}
	require.NoError(t, s.Save(ctx, round))
	assert.False(t, round.UpdatedAt.IsZero())

	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, round.ID, got.ID)
	assert.Equal(t, round.Identity, got.Identity)
	assert.Equal(t, round.State, got.State)
	assert.Equal(t, round.Content, got.Content)
}

func TestStore_GetUnknown(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	round := &model.Round{ID: "r1", State: model.StateIdle}
	require.NoError(t, s.Save(ctx, round))

	ttl := mr.TTL(model.RoundKey("r1"))
	assert.Equal(t, time.Hour, ttl)

	mr.FastForward(2 * time.Hour)
	_, err := s.Get(ctx, "r1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SaveRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	round := &model.Round{ID: "r1", State: model.StateIdle}
	require.NoError(t, s.Save(ctx, round))

	mr.FastForward(30 * time.Minute)
	round.State = model.StateGeneratedReady
	require.NoError(t, s.Save(ctx, round))

	assert.Equal(t, time.Hour, mr.TTL(model.RoundKey("r1")))
}
