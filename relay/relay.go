// Package relay carries the last-seen callsign between the page poller and
// whatever context survives page reloads.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/coreybb/callcheck/models"
)

// ErrUnknownMessage is returned for message types the relay does not handle.
var ErrUnknownMessage = errors.New("unknown relay message type")

// Store holds the single last-seen slot.
type Store interface {
	// Get returns the stored value and whether one has ever been set.
	Get(ctx context.Context) (string, bool, error)
	Set(ctx context.Context, callsign string) error
}

// Relay is the single owner of a last-seen slot. Consumers receive it explicitly;
// there is no package-level instance.
type Relay struct {
	store Store
}

// New creates a Relay over store. A nil store falls back to a MemoryStore.
func New(store Store) *Relay {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Relay{store: store}
}

// Handle answers one relay message. For getLastCallsign it returns the stored
// value, or nil before any set. For setLastCallsign it always returns nil.
func (r *Relay) Handle(ctx context.Context, msg models.RelayMessage) (*string, error) {
	switch msg.Type {
	case models.RelayGetLastCallsign:
		return r.LastCallsign(ctx)
	case models.RelaySetLastCallsign:
		return nil, r.SetLastCallsign(ctx, msg.Callsign)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
}

// LastCallsign returns the stored value, or nil if nothing was set yet.
// An empty stored value reads back as nil too.
func (r *Relay) LastCallsign(ctx context.Context) (*string, error) {
	value, ok, err := r.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read last callsign: %w", err)
	}
	if !ok || value == "" {
		return nil, nil
	}
	return &value, nil
}

func (r *Relay) SetLastCallsign(ctx context.Context, callsign string) error {
	if err := r.store.Set(ctx, callsign); err != nil {
		return fmt.Errorf("failed to store last callsign %q: %w", callsign, err)
	}
	log.Printf("INFO (Relay): Last callsign set to %q", callsign)
	return nil
}

// MemoryStore keeps the slot for the lifetime of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	value string
	set   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(_ context.Context) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value, m.set, nil
}

func (m *MemoryStore) Set(_ context.Context, callsign string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = callsign
	m.set = true
	return nil
}
