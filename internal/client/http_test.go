package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alfredjeanlab/leadrelay/internal/model"
)

// testHandler captures the incoming request details and returns a canned response.
type testHandler struct {
	// captured from the request
	method      string
	path        string
	query       string
	body        string
	contentType string

	// canned response
	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.method = r.Method
	h.path = r.URL.EscapedPath()
	h.query = r.URL.RawQuery
	h.contentType = r.Header.Get("Content-Type")
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}

	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

// newTestClient creates an HTTPClient pointed at a test server with the given handler.
func newTestClient(h http.Handler) (*HTTPClient, *httptest.Server) {
	srv := httptest.NewServer(h)
	c := NewHTTPClient(srv.URL)
	return c, srv
}

func TestHTTPClient_SendDashboardUpdate(t *testing.T) {
	h := &testHandler{
		responseBody: `{
			"success": true,
			"leadId": "lead_abc",
			"dashboardProcessed": true,
			"leadScore": 72,
			"leadName": "Jane Doe",
			"timestamp": "2026-08-31T10:00:00Z"
		}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	resp, err := c.SendDashboardUpdate(context.Background(), "lead_abc",
		map[string]any{"leadScore": 72, "leadData": map[string]any{"name": "Jane Doe"}})
	if err != nil {
		t.Fatalf("SendDashboardUpdate() error = %v", err)
	}

	if h.method != http.MethodPost {
		t.Errorf("method = %q, want POST", h.method)
	}
	if h.path != "/api/webhook/dashboard-update/lead_abc" {
		t.Errorf("path = %q", h.path)
	}
	if h.contentType != "application/json" {
		t.Errorf("content-type = %q", h.contentType)
	}

	var reqBody map[string]any
	if err := json.Unmarshal([]byte(h.body), &reqBody); err != nil {
		t.Fatalf("unmarshaling request body: %v", err)
	}
	if reqBody["leadScore"] != 72.0 {
		t.Errorf("request leadScore = %v", reqBody["leadScore"])
	}

	if !resp.Success || !resp.DashboardProcessed {
		t.Errorf("resp = %+v", resp)
	}
	if resp.LeadScore != 72 || resp.LeadName != "Jane Doe" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHTTPClient_SendStatusUpdate(t *testing.T) {
	h := &testHandler{
		responseBody: `{"success":true,"leadId":"lead_s","step":"ai-complete","status":"completed","timestamp":"2026-08-31T10:00:00Z"}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	resp, err := c.SendStatusUpdate(context.Background(), "lead_s", &StatusUpdateRequest{
		Step:    "ai-complete",
		Status:  "completed",
		Message: "scored 85",
	})
	if err != nil {
		t.Fatalf("SendStatusUpdate() error = %v", err)
	}

	if h.path != "/api/webhook/status-update/lead_s" {
		t.Errorf("path = %q", h.path)
	}
	var reqBody map[string]any
	_ = json.Unmarshal([]byte(h.body), &reqBody)
	if reqBody["step"] != "ai-complete" || reqBody["message"] != "scored 85" {
		t.Errorf("request body = %v", reqBody)
	}
	if resp.Step != "ai-complete" || resp.Status != "completed" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHTTPClient_LeadStatus(t *testing.T) {
	h := &testHandler{
		responseBody: `{
			"leadId": "lead_v",
			"dashboard": {"leadScore": 42},
			"statusUpdates": [{"step": "lead-capture", "status": "completed"}]
		}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	resp, err := c.LeadStatus(context.Background(), "lead_v")
	if err != nil {
		t.Fatalf("LeadStatus() error = %v", err)
	}
	if h.method != http.MethodGet || h.path != "/api/leads/lead_v" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
	if resp.Dashboard["leadScore"] != 42.0 {
		t.Errorf("dashboard = %v", resp.Dashboard)
	}
	if len(resp.StatusUpdates) != 1 || resp.StatusUpdates[0].Step != model.StepLeadCapture {
		t.Errorf("statusUpdates = %v", resp.StatusUpdates)
	}
}

func TestHTTPClient_DebugRequests(t *testing.T) {
	h := &testHandler{
		responseBody: `{"requests":[{"endpoint":"/api/webhook/dashboard-update"}],"total":1}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	resp, err := c.DebugRequests(context.Background(), 5)
	if err != nil {
		t.Fatalf("DebugRequests() error = %v", err)
	}
	if h.path != "/api/debug/requests" || h.query != "limit=5" {
		t.Errorf("request = %s?%s", h.path, h.query)
	}
	if resp.Total != 1 {
		t.Errorf("total = %d", resp.Total)
	}
}

func TestHTTPClient_Health(t *testing.T) {
	h := &testHandler{responseBody: `{"status":"ok"}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	status, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if status != "ok" {
		t.Errorf("status = %q", status)
	}
}

func TestHTTPClient_APIError(t *testing.T) {
	h := &testHandler{
		statusCode:   http.StatusBadRequest,
		responseBody: `{"error":"leadScore must be a number"}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	_, err := c.SendDashboardUpdate(context.Background(), "lead_e",
		map[string]any{"leadScore": "abc"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != 400 || apiErr.Message != "leadScore must be a number" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestHTTPClient_LeadIDEscaped(t *testing.T) {
	h := &testHandler{responseBody: `{"success":true}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	_, err := c.SendDashboardUpdate(context.Background(), "lead/../x",
		map[string]any{"leadScore": 1})
	if err != nil {
		t.Fatalf("SendDashboardUpdate() error = %v", err)
	}
	if h.path == "/api/webhook/dashboard-update/lead/../x" {
		t.Errorf("lead id was not path-escaped: %q", h.path)
	}
}

func TestHTTPClient_StreamEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/leads/lead_sse/stream" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, ": keepalive\n\n")
		fmt.Fprint(w, `data: {"type":"dashboard-data","payload":{"leadId":"lead_sse","leadScore":72}}`+"\n\n")
		fmt.Fprint(w, `data:{"type":"status-update","payload":{"step":"lead-capture","status":"completed"}}`+"\n\n")
		flusher.Flush()
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, err := c.StreamEvents(ctx, "lead_sse")
	if err != nil {
		t.Fatalf("StreamEvents() error = %v", err)
	}

	var got []*model.Event
	for evt := range events {
		got = append(got, evt)
	}

	// Keepalive comment is skipped; both data frames decode, including the
	// no-space "data:" form.
	if len(got) != 2 {
		t.Fatalf("received %d events, want 2", len(got))
	}
	if got[0].Type != model.EventDashboardData {
		t.Errorf("first event = %q", got[0].Type)
	}
	if got[1].Type != model.EventStatusUpdate {
		t.Errorf("second event = %q", got[1].Type)
	}
}

func TestHTTPClient_StreamEvents_HTTPError(t *testing.T) {
	h := &testHandler{statusCode: http.StatusBadRequest, responseBody: `{"error":"leadId is required"}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	_, err := c.StreamEvents(context.Background(), "lead_x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != 400 {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
}

func TestParseSSELine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantOK   bool
		wantType string
	}{
		{"DataWithSpace", `data: {"type":"status-update","payload":{}}`, true, "status-update"},
		{"DataNoSpace", `data:{"type":"error","payload":{}}`, true, "error"},
		{"Comment", ": keepalive", false, ""},
		{"Blank", "", false, ""},
		{"BadJSON", "data: {nope", false, ""},
		{"MissingType", `data: {"payload":{}}`, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, ok := parseSSELine(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && evt.Type != tt.wantType {
				t.Errorf("type = %q, want %q", evt.Type, tt.wantType)
			}
		})
	}
}
