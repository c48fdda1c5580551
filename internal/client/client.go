// Package client provides a transport-agnostic interface for the leadrelay
// service and an HTTP/JSON implementation that talks to its webhook and
// streaming endpoints.
package client

import (
	"context"

	"github.com/alfredjeanlab/leadrelay/internal/model"
)

// RelayClient is the interface that all leadrelay CLI commands use to
// communicate with the relay server. It is implemented by HTTPClient
// (default) and can be backed by any transport.
type RelayClient interface {
	// Webhook ingress
	SendDashboardUpdate(ctx context.Context, leadID string, payload map[string]any) (*DashboardResponse, error)
	SendStatusUpdate(ctx context.Context, leadID string, req *StatusUpdateRequest) (*StatusResponse, error)

	// Read side
	LeadStatus(ctx context.Context, leadID string) (*LeadStatusResponse, error)
	DebugRequests(ctx context.Context, limit int) (*DebugRequestsResponse, error)

	// StreamEvents opens the SSE stream for a lead and sends each decoded
	// event on the returned channel. The channel closes when the stream ends
	// or ctx is canceled.
	StreamEvents(ctx context.Context, leadID string) (<-chan *model.Event, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// StatusUpdateRequest is the body of a status-update webhook post.
type StatusUpdateRequest struct {
	Step    string `json:"step"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// DashboardResponse is the acknowledgment from a dashboard-update post.
type DashboardResponse struct {
	Success            bool    `json:"success"`
	LeadID             string  `json:"leadId"`
	DashboardProcessed bool    `json:"dashboardProcessed"`
	LeadScore          float64 `json:"leadScore"`
	LeadName           string  `json:"leadName,omitempty"`
	Timestamp          string  `json:"timestamp"`
}

// StatusResponse is the acknowledgment from a status-update post.
type StatusResponse struct {
	Success   bool   `json:"success"`
	LeadID    string `json:"leadId"`
	Step      string `json:"step"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// LeadStatusResponse is the durable view of one lead.
type LeadStatusResponse struct {
	LeadID        string                `json:"leadId"`
	Dashboard     map[string]any        `json:"dashboard,omitempty"`
	StatusUpdates []*model.StatusUpdate `json:"statusUpdates"`
}

// DebugRequestsResponse is the recent webhook request log.
type DebugRequestsResponse struct {
	Requests []map[string]any `json:"requests"`
	Total    int              `json:"total"`
}
