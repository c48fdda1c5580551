package model

import "time"

// Status is the lifecycle state of a single workflow step.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// StatusCompleteAlias is the legacy producer spelling of StatusCompleted.
// The dashboard webhook emits it verbatim; consumers normalize on arrival.
const StatusCompleteAlias Status = "complete"

// NormalizeStatus maps producer status vocabulary onto the canonical Status
// set. Unknown values pass through unchanged so callers can log them.
func NormalizeStatus(s string) Status {
	if Status(s) == StatusCompleteAlias {
		return StatusCompleted
	}
	return Status(s)
}

// Valid reports whether s is one of the canonical statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusError:
		return true
	}
	return false
}

// StatusUpdate is one step transition for a lead. Updates are append-only per
// lead; ordering is arrival order and duplicates are not collapsed.
type StatusUpdate struct {
	Step      string    `json:"step"`
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
