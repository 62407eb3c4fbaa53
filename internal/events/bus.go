package events

import (
	"log"
	"sync"

	"github.com/promptcraft/server/internal/model"
)

// ─────────────────────────────────────────────
// Round Event Bus: service → WebSocket bridge
// ─────────────────────────────────────────────

// subscriberBuf is the per-subscriber channel depth. A subscriber that
// falls this far behind starts losing intermediate transitions.
const subscriberBuf = 16

// Bus fans round state changes out to WebSocket subscribers. Publishing
// never blocks the orchestration path: slow subscribers drop events.
type Bus struct {
	mu   sync.Mutex
	subs map[string][]chan *model.StateChange
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]chan *model.StateChange)}
}

// Subscribe returns a channel receiving every state change of the given
// round until Unsubscribe is called.
func (b *Bus) Subscribe(roundID string) <-chan *model.StateChange {
	ch := make(chan *model.StateChange, subscriberBuf)
	b.mu.Lock()
	b.subs[roundID] = append(b.subs[roundID], ch)
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a specific channel so abandoned WebSocket
// connections do not leak.
func (b *Bus) Unsubscribe(roundID string, ch <-chan *model.StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	chs := b.subs[roundID]
	for i, c := range chs {
		if c == ch {
			b.subs[roundID] = append(chs[:i], chs[i+1:]...)
			if len(b.subs[roundID]) == 0 {
				delete(b.subs, roundID)
			}
			close(c)
			break
		}
	}
}

// Publish delivers a state change to all subscribers of the round. The
// sends happen under the mutex: they cannot block, and holding the lock
// keeps Unsubscribe's close from racing an in-flight send.
func (b *Bus) Publish(roundID string, change *model.StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs[roundID] {
		select {
		case ch <- change:
		default:
			log.Printf("[events] subscriber buffer full for round %s, dropping %s", roundID, change.State)
		}
	}
}
