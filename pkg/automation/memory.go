package automation

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/flowforge/pkg/wire"
)

// MemoryStore is an in-memory Store for tests and standalone mode.
// Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Automation
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]Automation),
		now:   time.Now,
	}
}

// SetClock overrides the store's clock. Tests use this for deterministic
// timestamps.
func (s *MemoryStore) SetClock(now func() time.Time) { s.now = now }

// Get retrieves an automation by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Automation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

// List returns all automations, most recently updated first.
func (s *MemoryStore) List(ctx context.Context) ([]Automation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Automation, 0, len(s.items))
	for _, a := range s.items {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b Automation) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return out, nil
}

// Create stores a new automation with a fresh ID.
func (s *MemoryStore) Create(ctx context.Context, name string, flowData wire.Graph) (*Automation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	a := Automation{
		ID:        uuid.NewString(),
		Name:      name,
		FlowData:  flowData,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.items[a.ID] = a
	return &a, nil
}

// Update applies a partial update to an existing automation.
func (s *MemoryStore) Update(ctx context.Context, id string, upd Update) (*Automation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Name != nil {
		a.Name = *upd.Name
	}
	if upd.FlowData != nil {
		a.FlowData = *upd.FlowData
	}
	a.UpdatedAt = s.now()
	s.items[id] = a
	return &a, nil
}

// Delete removes an automation.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
