// Package automation defines the named, persisted wrapper around a flow
// graph and the storage contract for automations.
package automation

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/matzehuels/flowforge/pkg/errors"
	"github.com/matzehuels/flowforge/pkg/wire"
)

// ErrNotFound is returned by stores when no automation has the given ID.
var ErrNotFound = errors.New("automation not found")

// MinNameLength is the minimum trimmed length of an automation name.
const MinNameLength = 3

// Automation is the persisted unit containing one flow graph. ID and the
// timestamps are owned by the store; ID is empty for not-yet-created
// automations.
type Automation struct {
	ID        string     `json:"id" bson:"_id,omitempty"`
	Name      string     `json:"name" bson:"name"`
	FlowData  wire.Graph `json:"flowData" bson:"flowData"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// Update is a partial update: nil fields are left unchanged.
type Update struct {
	Name     *string
	FlowData *wire.Graph
}

// Store is the persistence contract for automations.
type Store interface {
	// Get retrieves an automation by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*Automation, error)

	// List returns all automations, most recently updated first.
	List(ctx context.Context) ([]Automation, error)

	// Create stores a new automation and assigns its ID and timestamps.
	Create(ctx context.Context, name string, flowData wire.Graph) (*Automation, error)

	// Update applies a partial update. Returns ErrNotFound if absent.
	Update(ctx context.Context, id string, upd Update) (*Automation, error)

	// Delete removes an automation. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
}

// ValidateName checks the save-dialog name rule: at least MinNameLength
// characters after trimming. This is separate from graph validation.
func ValidateName(name string) error {
	if len(strings.TrimSpace(name)) < MinNameLength {
		return apperrors.New(apperrors.ErrCodeInvalidName,
			"automation name must be at least %d characters", MinNameLength)
	}
	return nil
}
