package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alfredjeanlab/leadrelay/internal/model"
)

// sseClientBuffer is the per-connection event buffer. A client that falls
// further behind than this has its events dropped rather than blocking the
// webhook handler.
const sseClientBuffer = 64

// sseClient is a single connected SSE consumer, bound to one lead.
type sseClient struct {
	leadID string
	ch     chan *model.Event
}

// sseHub fans out relay events to connected SSE clients, keyed by lead id.
//
// Delivery is transient: an event published while a lead has no subscribers
// is simply dropped. Durability lives in the store, which the ingress writes
// independently, and the stream handler replays the stored snapshot on
// connect so late subscribers still see the final dashboard state.
type sseHub struct {
	mu   sync.RWMutex
	subs map[string]map[*sseClient]struct{}
}

func newSSEHub() *sseHub {
	return &sseHub{subs: make(map[string]map[*sseClient]struct{})}
}

// subscribe registers a new client for a lead. Call unsubscribe when done.
func (h *sseHub) subscribe(leadID string) *sseClient {
	c := &sseClient{
		leadID: leadID,
		ch:     make(chan *model.Event, sseClientBuffer),
	}
	h.mu.Lock()
	set, ok := h.subs[leadID]
	if !ok {
		set = make(map[*sseClient]struct{})
		h.subs[leadID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
	return c
}

// unsubscribe removes a client from the hub.
func (h *sseHub) unsubscribe(c *sseClient) {
	h.mu.Lock()
	if set, ok := h.subs[c.leadID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, c.leadID)
		}
	}
	h.mu.Unlock()
}

// broadcast delivers evt to every current subscriber for leadID, in emission
// order. No subscribers means the event is dropped.
func (h *sseHub) broadcast(leadID string, evt *model.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.subs[leadID] {
		select {
		case c.ch <- evt:
		default:
			// Drop if client is slow — prevents blocking the publisher.
		}
	}
}

// subscriberCount returns the number of live subscribers for a lead.
func (h *sseHub) subscriberCount(leadID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[leadID])
}

// handleLeadStream handles GET /api/leads/{leadId}/stream (SSE endpoint).
func (s *RelayServer) handleLeadStream(w http.ResponseWriter, r *http.Request) {
	leadID := r.PathValue("leadId")
	if leadID == "" {
		writeError(w, http.StatusBadRequest, "leadId is required")
		return
	}

	// Ensure response supports flushing (required for SSE).
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	client := s.hub.subscribe(leadID)
	defer s.hub.unsubscribe(client)

	// Set SSE headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", corsAllowOrigin)
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Replay the durable snapshot so a subscriber that connected after the
	// dashboard webhook still renders the final state.
	if snap, err := s.store.Dashboard(r.Context(), leadID); err == nil && snap != nil {
		writeSSEEvent(w, &model.Event{Type: model.EventDashboardData, Payload: snap})
		flusher.Flush()
	}

	// Stream events until the client disconnects.
	ctx := r.Context()
	keepalive := time.NewTicker(s.KeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-client.ch:
			writeSSEEvent(w, evt)
			flusher.Flush()
		case <-keepalive.C:
			// Comment line keeps idle connections from timing out.
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes a single event as an SSE data line. The internal
// dashboard-update type is rewritten to dashboard-data, the name browser
// clients dispatch on.
func writeSSEEvent(w http.ResponseWriter, evt *model.Event) {
	wire := evt
	if evt.Type == model.EventDashboardUpdate {
		wire = &model.Event{Type: model.EventDashboardData, Payload: evt.Payload}
	}
	data, err := json.Marshal(wire)
	if err != nil {
		slog.Warn("failed to marshal SSE event", "type", evt.Type, "error", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
