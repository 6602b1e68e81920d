package server

import (
	"sync"

	"github.com/matzehuels/flowforge/pkg/engine"
)

// maxRunsPerAutomation bounds the in-memory run history per automation.
const maxRunsPerAutomation = 50

// runHistory keeps recent test runs per automation, newest first.
type runHistory struct {
	mu    sync.Mutex
	limit int
	runs  map[string][]engine.RunLog
}

func newRunHistory(limit int) *runHistory {
	return &runHistory{limit: limit, runs: make(map[string][]engine.RunLog)}
}

// Add records a run, evicting the oldest entry past the limit.
func (h *runHistory) Add(rl engine.RunLog) {
	h.mu.Lock()
	defer h.mu.Unlock()
	logs := append([]engine.RunLog{rl}, h.runs[rl.AutomationID]...)
	if len(logs) > h.limit {
		logs = logs[:h.limit]
	}
	h.runs[rl.AutomationID] = logs
}

// For returns the recorded runs for one automation, newest first. The
// slice is a copy.
func (h *runHistory) For(automationID string) []engine.RunLog {
	h.mu.Lock()
	defer h.mu.Unlock()
	logs := h.runs[automationID]
	out := make([]engine.RunLog, len(logs))
	copy(out, logs)
	return out
}

// Drop removes all runs for one automation.
func (h *runHistory) Drop(automationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.runs, automationID)
}
