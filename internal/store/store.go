// Package store defines the keyed storage interface for lead relay state.
package store

import (
	"context"
	"encoding/json"

	"github.com/alfredjeanlab/leadrelay/internal/model"
)

// Store is the persistence interface for per-lead relay state: one
// last-write-wins dashboard snapshot and an append-only status update log.
//
// Callers treat every write as fire-and-forget: the webhook ingress logs a
// failed write and still acknowledges the request, since live fan-out is the
// primary contract and durability is best-effort.
type Store interface {
	// SetDashboard stores or overwrites the dashboard snapshot for a lead.
	SetDashboard(ctx context.Context, leadID string, data json.RawMessage) error

	// Dashboard returns the latest snapshot for a lead, or nil if none exists.
	Dashboard(ctx context.Context, leadID string) (json.RawMessage, error)

	// AddStatusUpdate appends an update to the lead's status log, creating the
	// log if absent. Ordering is arrival order; duplicates are kept.
	AddStatusUpdate(ctx context.Context, leadID string, update *model.StatusUpdate) error

	// StatusUpdates returns the lead's status log in arrival order.
	StatusUpdates(ctx context.Context, leadID string) ([]*model.StatusUpdate, error)

	// LeadIDs returns every lead id with stored state, for debug surfaces.
	LeadIDs(ctx context.Context) ([]string, error)

	// Lifecycle
	Close() error
}
