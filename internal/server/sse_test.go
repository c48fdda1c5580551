package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/leadrelay/internal/model"
)

func mustEvent(t *testing.T, eventType string, payload any) *model.Event {
	t.Helper()
	evt, err := model.NewEvent(eventType, payload)
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	return evt
}

func TestSSEHub_Broadcast(t *testing.T) {
	hub := newSSEHub()
	c1 := hub.subscribe("lead_1")
	c2 := hub.subscribe("lead_1")
	defer hub.unsubscribe(c1)
	defer hub.unsubscribe(c2)

	evt := mustEvent(t, model.EventStatusUpdate, &model.StatusUpdate{Step: model.StepLeadCapture})
	hub.broadcast("lead_1", evt)

	for _, c := range []*sseClient{c1, c2} {
		select {
		case got := <-c.ch:
			if got != evt {
				t.Errorf("received wrong event: %+v", got)
			}
		default:
			t.Error("subscriber did not receive broadcast")
		}
	}
}

func TestSSEHub_LeadIsolation(t *testing.T) {
	hub := newSSEHub()
	c1 := hub.subscribe("lead_a")
	c2 := hub.subscribe("lead_b")
	defer hub.unsubscribe(c1)
	defer hub.unsubscribe(c2)

	hub.broadcast("lead_a", mustEvent(t, model.EventStatusUpdate, &model.StatusUpdate{}))

	if len(c1.ch) != 1 {
		t.Errorf("lead_a subscriber got %d events, want 1", len(c1.ch))
	}
	if len(c2.ch) != 0 {
		t.Errorf("lead_b subscriber got %d events, want 0", len(c2.ch))
	}
}

func TestSSEHub_Unsubscribe(t *testing.T) {
	hub := newSSEHub()
	c := hub.subscribe("lead_u")
	if hub.subscriberCount("lead_u") != 1 {
		t.Fatalf("subscriberCount = %d", hub.subscriberCount("lead_u"))
	}
	hub.unsubscribe(c)
	if hub.subscriberCount("lead_u") != 0 {
		t.Fatalf("subscriberCount after unsubscribe = %d", hub.subscriberCount("lead_u"))
	}

	// Broadcasting after unsubscribe delivers nothing.
	hub.broadcast("lead_u", mustEvent(t, model.EventStatusUpdate, &model.StatusUpdate{}))
	if len(c.ch) != 0 {
		t.Errorf("unsubscribed client received %d events", len(c.ch))
	}
}

func TestSSEHub_NoSubscriberDrops(t *testing.T) {
	hub := newSSEHub()
	// Must not panic or block when nobody is listening.
	hub.broadcast("lead_none", mustEvent(t, model.EventStatusUpdate, &model.StatusUpdate{}))
}

func TestSSEHub_SlowClientDoesNotBlock(t *testing.T) {
	hub := newSSEHub()
	c := hub.subscribe("lead_slow")
	defer hub.unsubscribe(c)

	evt := mustEvent(t, model.EventStatusUpdate, &model.StatusUpdate{})
	done := make(chan struct{})
	go func() {
		// One more than the buffer: the overflow event is dropped, not queued.
		for i := 0; i < sseClientBuffer+1; i++ {
			hub.broadcast("lead_slow", evt)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow client")
	}
	if len(c.ch) != sseClientBuffer {
		t.Errorf("buffered %d events, want %d", len(c.ch), sseClientBuffer)
	}
}

// readSSELines consumes `data:` lines from an open SSE response, sending each
// JSON payload on the returned channel until the body closes.
func readSSELines(t *testing.T, body *bufio.Scanner, out chan<- string) {
	t.Helper()
	for body.Scan() {
		line := body.Text()
		if strings.HasPrefix(line, "data: ") {
			out <- strings.TrimPrefix(line, "data: ")
		}
	}
	close(out)
}

func TestHandleLeadStream(t *testing.T) {
	srv, ms, handler := newTestServer()
	srv.KeepaliveInterval = time.Hour // keep keepalives out of the test

	// Pre-store a snapshot: the stream must replay it on connect.
	_ = ms.SetDashboard(context.Background(), "lead_sse",
		json.RawMessage(`{"leadId":"lead_sse","leadScore":42}`))

	ts := httptest.NewServer(handler)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", ts.URL+"/api/leads/lead_sse/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header on stream")
	}

	lines := make(chan string, 16)
	go readSSELines(t, bufio.NewScanner(resp.Body), lines)

	waitLine := func() string {
		t.Helper()
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed early")
			}
			return line
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for SSE line")
			return ""
		}
	}

	// First frame: the replayed snapshot, typed dashboard-data.
	var replay model.Event
	if err := json.Unmarshal([]byte(waitLine()), &replay); err != nil {
		t.Fatalf("unmarshal replay frame: %v", err)
	}
	if replay.Type != model.EventDashboardData {
		t.Errorf("replay type = %q, want dashboard-data", replay.Type)
	}

	// Wait for the subscription to be live, then broadcast through the hub.
	deadline := time.Now().Add(2 * time.Second)
	for srv.hub.subscriberCount("lead_sse") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// A dashboard-update broadcast is rewritten to dashboard-data on the wire.
	srv.hub.broadcast("lead_sse", mustEvent(t, model.EventDashboardUpdate,
		map[string]any{"leadId": "lead_sse", "leadScore": 90}))
	var evt model.Event
	if err := json.Unmarshal([]byte(waitLine()), &evt); err != nil {
		t.Fatalf("unmarshal event frame: %v", err)
	}
	if evt.Type != model.EventDashboardData {
		t.Errorf("wire type = %q, want dashboard-data rewrite", evt.Type)
	}

	// A status-update passes through untouched.
	srv.hub.broadcast("lead_sse", mustEvent(t, model.EventStatusUpdate,
		&model.StatusUpdate{Step: model.StepLeadCapture, Status: model.StatusCompleted}))
	if err := json.Unmarshal([]byte(waitLine()), &evt); err != nil {
		t.Fatalf("unmarshal status frame: %v", err)
	}
	if evt.Type != model.EventStatusUpdate {
		t.Errorf("wire type = %q", evt.Type)
	}

	// Disconnect; the hub entry is cleaned up.
	cancel()
	deadline = time.Now().Add(2 * time.Second)
	for srv.hub.subscriberCount("lead_sse") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber not removed after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandleLeadStream_NoSnapshot(t *testing.T) {
	srv, _, handler := newTestServer()
	srv.KeepaliveInterval = 20 * time.Millisecond

	ts := httptest.NewServer(handler)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", ts.URL+"/api/leads/lead_fresh/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect stream: %v", err)
	}
	defer resp.Body.Close()

	// With no stored snapshot there is no replay frame; the first thing on the
	// wire is a keepalive comment.
	scanner := bufio.NewScanner(resp.Body)
	lineCh := make(chan string, 1)
	go func() {
		for scanner.Scan() {
			if line := scanner.Text(); line != "" {
				lineCh <- line
				return
			}
		}
	}()

	select {
	case line := <-lineCh:
		if !strings.HasPrefix(line, ":") {
			t.Errorf("first line = %q, want keepalive comment", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no keepalive received")
	}
}
