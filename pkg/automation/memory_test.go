package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matzehuels/flowforge/pkg/wire"
)

// testClock returns a clock that advances one minute per call.
func testClock() func() time.Time {
	t := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func testFlowData() wire.Graph {
	return wire.Graph{
		Nodes: []wire.Node{
			{ID: "start-1", Type: "start"},
			{ID: "end-1", Type: "end"},
		},
		Edges: []wire.Edge{
			{ID: "e-start-end", Source: "start-1", Target: "end-1"},
		},
	}
}

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.SetClock(testClock())

	created, err := s.Create(ctx, "Welcome flow", testFlowData())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Create assigned no ID")
	}
	if created.CreatedAt.IsZero() || !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Errorf("timestamps = %v / %v", created.CreatedAt, created.UpdatedAt)
	}

	got, err := s.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Welcome flow" {
		t.Errorf("Name = %q", got.Name)
	}
	if len(got.FlowData.Nodes) != 2 {
		t.Errorf("FlowData nodes = %d, want 2", len(got.FlowData.Nodes))
	}

	name := "Renamed flow"
	updated, err := s.Update(ctx, created.ID, Update{Name: &name})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != name {
		t.Errorf("Name = %q, want %q", updated.Name, name)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Errorf("UpdatedAt %v not after CreatedAt %v", updated.UpdatedAt, updated.CreatedAt)
	}
	// Partial update: flow data untouched.
	if len(updated.FlowData.Edges) != 1 {
		t.Errorf("FlowData edges = %d, want 1", len(updated.FlowData.Edges))
	}

	if err := s.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
	if _, err := s.Update(ctx, "missing", Update{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreListOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.SetClock(testClock())

	first, _ := s.Create(ctx, "first", testFlowData())
	second, _ := s.Create(ctx, "second", testFlowData())
	third, _ := s.Create(ctx, "third", testFlowData())

	// Touch the oldest so it becomes the most recently updated.
	if _, err := s.Update(ctx, first.ID, Update{}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len(list) = %d, want 3", len(list))
	}
	wantOrder := []string{first.ID, third.ID, second.ID}
	for i, want := range wantOrder {
		if list[i].ID != want {
			t.Errorf("list[%d] = %s, want %s", i, list[i].Name, want)
		}
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "Welcome flow", false},
		{"exactly minimum", "abc", false},
		{"too short", "ab", true},
		{"empty", "", true},
		{"whitespace only", "     ", true},
		{"short after trimming", "  a  ", true},
		{"valid after trimming", "  abc  ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
