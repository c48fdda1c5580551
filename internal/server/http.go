package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/alfredjeanlab/leadrelay/internal/model"
)

// Permissive CORS: the webhook endpoints are called cross-origin by demo
// pages and external automation tools alike.
const (
	corsAllowOrigin  = "*"
	corsAllowMethods = "POST, OPTIONS"
	corsAllowHeaders = "Content-Type"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
func (s *RelayServer) NewHTTPHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/webhook/dashboard-update/{leadId}", s.handleDashboardWebhook)
	mux.HandleFunc("OPTIONS /api/webhook/dashboard-update/{leadId}", s.handlePreflight)
	mux.HandleFunc("POST /api/webhook/status-update/{leadId}", s.handleStatusWebhook)
	mux.HandleFunc("OPTIONS /api/webhook/status-update/{leadId}", s.handlePreflight)

	// Trailing-slash subtree patterns catch requests whose leadId segment is
	// empty. These must reject before any body parsing happens.
	mux.HandleFunc("POST /api/webhook/dashboard-update/", s.handleMissingLeadID)
	mux.HandleFunc("POST /api/webhook/status-update/", s.handleMissingLeadID)

	mux.HandleFunc("GET /api/leads/{leadId}/stream", s.handleLeadStream)
	mux.HandleFunc("GET /api/leads/{leadId}", s.handleGetLead)
	mux.HandleFunc("GET /api/debug/requests", s.handleDebugRequests)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	return mux
}

// handleHealth handles GET /api/health.
func (s *RelayServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGetLead handles GET /api/leads/{leadId}: the durable view of one
// lead — latest dashboard snapshot plus the ordered status log.
func (s *RelayServer) handleGetLead(w http.ResponseWriter, r *http.Request) {
	leadID := r.PathValue("leadId")
	if leadID == "" {
		writeError(w, http.StatusBadRequest, "leadId is required")
		return
	}

	snap, err := s.store.Dashboard(r.Context(), leadID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read dashboard snapshot")
		return
	}
	updates, err := s.store.StatusUpdates(r.Context(), leadID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read status updates")
		return
	}

	// Ensure updates is never null in JSON output.
	if updates == nil {
		updates = []*model.StatusUpdate{}
	}

	resp := map[string]any{
		"leadId":        leadID,
		"statusUpdates": updates,
	}
	if snap != nil {
		resp["dashboard"] = json.RawMessage(snap)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDebugRequests handles GET /api/debug/requests.
func (s *RelayServer) handleDebugRequests(w http.ResponseWriter, r *http.Request) {
	n := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			n = parsed
		}
	}
	records := s.accessLog.recent(n)
	writeJSON(w, http.StatusOK, map[string]any{
		"requests": records,
		"total":    len(records),
	})
}

// handlePreflight answers CORS preflight for the webhook endpoints.
func (s *RelayServer) handlePreflight(w http.ResponseWriter, _ *http.Request) {
	setCORSHeaders(w)
	w.WriteHeader(http.StatusOK)
}

// handleMissingLeadID rejects webhook posts whose leadId segment is empty,
// before any body parsing.
func (s *RelayServer) handleMissingLeadID(w http.ResponseWriter, _ *http.Request) {
	setCORSHeaders(w)
	writeError(w, http.StatusBadRequest, "leadId is required")
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", corsAllowOrigin)
	w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
	w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
