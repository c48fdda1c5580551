// Package progress consumes the relay's event stream and maintains the
// consumer-side view of a lead's automation run: seven fixed workflow steps,
// the latest dashboard payload, and the running status log.
package progress

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/leadrelay/internal/model"
)

// StepState is the tracked status of one workflow step.
type StepState struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Status    model.Status  `json:"status"`
	Message   string        `json:"message,omitempty"`
	Timestamp time.Time     `json:"timestamp,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`

	startedAt time.Time
}

// Debug is a point-in-time introspection snapshot of the tracker.
type Debug struct {
	Complete       bool
	Err            string
	SinceStart     time.Duration
	SinceLastEvent time.Duration
	EventsSeen     int
}

// Tracker holds the consumer-side state for one lead. All methods are safe
// for concurrent use; the runner feeds it from the stream goroutine while a
// renderer reads snapshots.
type Tracker struct {
	mu        sync.Mutex
	steps     []*StepState
	index     map[string]*StepState
	log       []*model.StatusUpdate
	dashboard map[string]any
	errMsg    string

	started   time.Time
	lastEvent time.Time
	seen      int

	now func() time.Time
}

// NewTracker returns a tracker with all seven workflow steps pending.
func NewTracker() *Tracker {
	t := &Tracker{
		index: make(map[string]*StepState),
		now:   time.Now,
	}
	for _, ws := range model.WorkflowSteps() {
		st := &StepState{ID: ws.ID, Name: ws.Name, Status: model.StatusPending}
		t.steps = append(t.steps, st)
		t.index[ws.ID] = st
	}
	t.started = t.now()
	t.lastEvent = t.started
	return t
}

// Apply dispatches one stream event into the tracker.
func (t *Tracker) Apply(evt *model.Event) {
	switch evt.Type {
	case model.EventStatusUpdate:
		var u model.StatusUpdate
		if err := json.Unmarshal(evt.Payload, &u); err != nil {
			slog.Warn("undecodable status update", "error", err)
			return
		}
		t.UpdateStepStatus(u.Step, string(u.Status), u.Message)
	case model.EventDashboardData, model.EventDashboardUpdate:
		var data map[string]any
		if err := json.Unmarshal(evt.Payload, &data); err != nil {
			slog.Warn("undecodable dashboard payload", "error", err)
			return
		}
		t.SetDashboard(data)
	case model.EventError:
		var p model.ErrorPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			slog.Warn("undecodable error payload", "error", err)
			return
		}
		t.SetError(p.Message)
	default:
		slog.Warn("unknown event type", "type", evt.Type)
	}
}

// UpdateStepStatus applies one raw step transition. The producer id is
// remapped to its workflow step; an id that maps to no known step is a
// logged no-op. Producer "complete" is normalized to "completed", and the
// step's duration is computed on that transition.
func (t *Tracker) UpdateStepStatus(stepID, status, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.lastEvent = now
	t.seen++

	normalized := model.NormalizeStatus(status)
	t.log = append(t.log, &model.StatusUpdate{
		Step:      stepID,
		Status:    normalized,
		Message:   message,
		Timestamp: now,
	})

	mapped := model.MapStepID(stepID)
	st, ok := t.index[mapped]
	if !ok {
		slog.Warn("status update for unknown step", "step", stepID, "mapped", mapped)
		return
	}

	if normalized == model.StatusInProgress && st.startedAt.IsZero() {
		st.startedAt = now
	}
	if normalized == model.StatusCompleted && st.Status != model.StatusCompleted {
		from := st.startedAt
		if from.IsZero() {
			from = t.started
		}
		st.Duration = now.Sub(from)
	}

	st.Status = normalized
	st.Message = message
	st.Timestamp = now
}

// SetDashboard stores the latest dashboard payload.
func (t *Tracker) SetDashboard(data map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dashboard = data
	t.lastEvent = t.now()
	t.seen++
}

// SetError records a hook-level error message.
func (t *Tracker) SetError(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errMsg = msg
	t.lastEvent = t.now()
	t.seen++
}

// IsComplete reports whether every workflow step has completed.
func (t *Tracker) IsComplete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, st := range t.steps {
		if st.Status != model.StatusCompleted {
			return false
		}
	}
	return true
}

// Steps returns a snapshot of all step states, in workflow order.
func (t *Tracker) Steps() []StepState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]StepState, len(t.steps))
	for i, st := range t.steps {
		out[i] = *st
	}
	return out
}

// Dashboard returns the latest dashboard payload, or nil.
func (t *Tracker) Dashboard() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dashboard
}

// Err returns the current hook-level error message, if any.
func (t *Tracker) Err() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errMsg
}

// StatusLog returns the append-only log of raw updates, oldest first.
func (t *Tracker) StatusLog() []*model.StatusUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*model.StatusUpdate, len(t.log))
	copy(out, t.log)
	return out
}

// DebugState returns introspection data for the debug overlay.
func (t *Tracker) DebugState() Debug {
	t.mu.Lock()
	defer t.mu.Unlock()
	complete := true
	for _, st := range t.steps {
		if st.Status != model.StatusCompleted {
			complete = false
			break
		}
	}
	now := t.now()
	return Debug{
		Complete:       complete,
		Err:            t.errMsg,
		SinceStart:     now.Sub(t.started),
		SinceLastEvent: now.Sub(t.lastEvent),
		EventsSeen:     t.seen,
	}
}

// Reset returns every step to pending and clears the log, dashboard, and
// error. The clock baseline restarts.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, st := range t.steps {
		st.Status = model.StatusPending
		st.Message = ""
		st.Timestamp = time.Time{}
		st.Duration = 0
		st.startedAt = time.Time{}
	}
	t.log = nil
	t.dashboard = nil
	t.errMsg = ""
	t.started = t.now()
	t.lastEvent = t.started
	t.seen = 0
}
