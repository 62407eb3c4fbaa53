package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/promptcraft/server/internal/model"
)

// ErrNotFound means no round exists for the given ID (never created,
// or expired).
var ErrNotFound = errors.New("round not found")

// Store keeps rounds in Redis. Rounds are ephemeral session state: every
// save refreshes the TTL, and an expired round simply disappears. Only
// the reward ledger is durable.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore creates a round store with the given per-round TTL.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Save writes the round and refreshes its TTL.
func (s *Store) Save(ctx context.Context, round *model.Round) error {
	round.UpdatedAt = time.Now()

	data, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("encode round: %w", err)
	}
	if err := s.rdb.Set(ctx, model.RoundKey(round.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save round: %w", err)
	}
	return nil
}

// Get loads a round by ID.
func (s *Store) Get(ctx context.Context, roundID string) (*model.Round, error) {
	data, err := s.rdb.Get(ctx, model.RoundKey(roundID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load round: %w", err)
	}

	var round model.Round
	if err := json.Unmarshal(data, &round); err != nil {
		return nil, fmt.Errorf("decode round: %w", err)
	}
	return &round, nil
}
