package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/flowforge/pkg/wire"
)

// FileStore is a file-based Store for standalone deployments without a
// database. Each automation is stored as one JSON file in a directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
	now     func() time.Time
}

// NewFileStore creates a file-based store rooted at baseDir.
// If baseDir is empty, defaults to ~/.config/flowforge/automations/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".config", "flowforge", "automations")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create automation dir: %w", err)
	}
	return &FileStore{baseDir: baseDir, now: time.Now}, nil
}

// SetClock overrides the store's clock for deterministic timestamps.
func (s *FileStore) SetClock(now func() time.Time) { s.now = now }

func (s *FileStore) path(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

// Get retrieves an automation by ID.
func (s *FileStore) Get(ctx context.Context, id string) (*Automation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(id)
}

// read loads one automation file. Callers hold the lock.
func (s *FileStore) read(id string) (*Automation, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read automation file: %w", err)
	}

	var a Automation
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse automation %s: %w", id, err)
	}
	return &a, nil
}

// List returns all automations, most recently updated first.
func (s *FileStore) List(ctx context.Context) ([]Automation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("list automation dir: %w", err)
	}

	out := make([]Automation, 0, len(entries))
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), ".json")
		if e.IsDir() || !ok {
			continue
		}
		a, err := s.read(id)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	slices.SortFunc(out, func(a, b Automation) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return out, nil
}

// Create stores a new automation with a fresh ID.
func (s *FileStore) Create(ctx context.Context, name string, flowData wire.Graph) (*Automation, error) {
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
	if err := s.write(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Update applies a partial update to an existing automation.
func (s *FileStore) Update(ctx context.Context, id string, upd Update) (*Automation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.read(id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		a.Name = *upd.Name
	}
	if upd.FlowData != nil {
		a.FlowData = *upd.FlowData
	}
	a.UpdatedAt = s.now()
	if err := s.write(a); err != nil {
		return nil, err
	}
	return a, nil
}

// Delete removes an automation.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

func (s *FileStore) write(a *Automation) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal automation: %w", err)
	}
	if err := os.WriteFile(s.path(a.ID), data, 0600); err != nil {
		return fmt.Errorf("write automation file: %w", err)
	}
	return nil
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)
