package server

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RequestRecord is one handled webhook request, success or failure. Every
// outcome is recorded — the demo's debug overlay reads these back through
// GET /api/debug/requests.
type RequestRecord struct {
	Time         time.Time         `json:"time"`
	Endpoint     string            `json:"endpoint"`
	LeadID       string            `json:"leadId"`
	Method       string            `json:"method"`
	Headers      map[string]string `json:"headers"`
	Body         string            `json:"body,omitempty"`
	DurationMS   int64             `json:"durationMs"`
	Success      bool              `json:"success"`
	Error        string            `json:"error,omitempty"`
	EventEmitted bool              `json:"eventEmitted"`
	Status       int               `json:"status"`
	ResponseBody string            `json:"responseBody,omitempty"`
	UserAgent    string            `json:"userAgent,omitempty"`
	RemoteAddr   string            `json:"remoteAddr,omitempty"`
}

// accessLog keeps the most recent webhook requests in a bounded buffer and
// mirrors each entry to slog.
type accessLog struct {
	mu      sync.Mutex
	cap     int
	entries []*RequestRecord
}

func newAccessLog(capacity int) *accessLog {
	if capacity < 1 {
		capacity = 1
	}
	return &accessLog{cap: capacity}
}

// record appends a finished request, evicting the oldest beyond capacity.
func (l *accessLog) record(rec *RequestRecord) {
	l.mu.Lock()
	l.entries = append(l.entries, rec)
	if len(l.entries) > l.cap {
		l.entries = l.entries[len(l.entries)-l.cap:]
	}
	l.mu.Unlock()

	slog.Info("webhook request",
		"endpoint", rec.Endpoint,
		"lead_id", rec.LeadID,
		"method", rec.Method,
		"status", rec.Status,
		"success", rec.Success,
		"event_emitted", rec.EventEmitted,
		"duration_ms", rec.DurationMS,
		"error", rec.Error,
		"remote_addr", rec.RemoteAddr,
	)
}

// recent returns up to n records, oldest first. n <= 0 returns all.
func (l *accessLog) recent(n int) []*RequestRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := l.entries
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	out := make([]*RequestRecord, len(entries))
	copy(out, entries)
	return out
}

// flattenHeaders collapses an http.Header to single values for logging.
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vals := range h {
		out[k] = strings.Join(vals, ", ")
	}
	return out
}

// clientIP extracts the caller's address, preferring X-Forwarded-For.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the original client.
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
