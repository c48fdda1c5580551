package model

import "encoding/json"

// Event type constants. These are the values carried in the "type" field of
// every bus and SSE message.
const (
	EventStatusUpdate    = "status-update"
	EventDashboardUpdate = "dashboard-update"
	EventDashboardData   = "dashboard-data"
	EventError           = "error"
)

// Event is the envelope published on the bus and written to SSE streams.
// Payload is kept raw so the relay never re-interprets producer JSON.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into an Event envelope.
func NewEvent(eventType string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{Type: eventType, Payload: data}, nil
}

// ErrorPayload is the payload of an EventError event.
type ErrorPayload struct {
	LeadID  string `json:"leadId"`
	Message string `json:"message"`
}
