package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/leadrelay/internal/events"
	"github.com/alfredjeanlab/leadrelay/internal/model"
	"github.com/alfredjeanlab/leadrelay/internal/store"
)

const (
	defaultKeepaliveInterval = 15 * time.Second
	defaultAccessLogCap      = 256
)

// RelayServer receives lead-automation webhooks and fans the resulting events
// out to SSE subscribers, the event store, and the optional NATS mirror.
//
// Both collaborators are injected: the store and publisher are constructed by
// the caller, never package-level singletons, so tests and future
// multi-instance deployments can swap them.
type RelayServer struct {
	store     store.Store
	publisher events.Publisher
	hub       *sseHub
	accessLog *accessLog

	// KeepaliveInterval is how often SSE keepalive comments are written.
	// Set before serving; the default matches browser proxy timeouts.
	KeepaliveInterval time.Duration
}

// NewRelayServer returns a RelayServer backed by the given store and publisher.
func NewRelayServer(s store.Store, p events.Publisher) *RelayServer {
	return &RelayServer{
		store:             s,
		publisher:         p,
		hub:               newSSEHub(),
		accessLog:         newAccessLog(defaultAccessLogCap),
		KeepaliveInterval: defaultKeepaliveInterval,
	}
}

// SetAccessLogCap resizes the in-memory request log. Call before serving.
func (s *RelayServer) SetAccessLogCap(n int) {
	s.accessLog = newAccessLog(n)
}

// relayEvent delivers an event to live SSE subscribers for the lead, then
// mirrors it to NATS. Hub fan-out is synchronous and in-order per lead; the
// NATS publish is best-effort and never blocks the caller's response.
func (s *RelayServer) relayEvent(ctx context.Context, leadID string, evt *model.Event) {
	s.hub.broadcast(leadID, evt)
	if err := s.publisher.Publish(ctx, events.LeadTopic(leadID), evt); err != nil {
		slog.Warn("failed to mirror event to bus", "lead_id", leadID, "type", evt.Type, "error", err)
	}
}

// inputError indicates invalid user input. Transport maps this to 400.
type inputError string

func (e inputError) Error() string { return string(e) }
