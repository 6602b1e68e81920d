package engine

import "time"

// Run statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunLog is the persisted record of one test run.
type RunLog struct {
	ID           string    `json:"id"`
	AutomationID string    `json:"automationId"`
	Input        Input     `json:"input"`
	Steps        []Step    `json:"steps"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"startedAt"`
}
