package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alfredjeanlab/leadrelay/internal/model"
)

// webhookReply writes exactly one JSON response for a webhook request and
// records the outcome — every path through the ingress, success or failure,
// ends in one record call.
type webhookReply struct {
	w         http.ResponseWriter
	rec       *RequestRecord
	log       *accessLog
	started   time.Time
	responded bool
}

func (s *RelayServer) newWebhookReply(w http.ResponseWriter, r *http.Request, endpoint, leadID string) *webhookReply {
	return &webhookReply{
		w:   w,
		log: s.accessLog,
		rec: &RequestRecord{
			Time:       time.Now().UTC(),
			Endpoint:   endpoint,
			LeadID:     leadID,
			Method:     r.Method,
			Headers:    flattenHeaders(r.Header),
			UserAgent:  r.UserAgent(),
			RemoteAddr: clientIP(r),
		},
		started: time.Now(),
	}
}

func (wr *webhookReply) respond(status int, body any, success bool, errText string) {
	if wr.responded {
		return
	}
	wr.responded = true

	respBody, _ := json.Marshal(body)
	wr.rec.Status = status
	wr.rec.ResponseBody = string(respBody)
	wr.rec.Success = success
	wr.rec.Error = errText
	wr.rec.DurationMS = time.Since(wr.started).Milliseconds()
	wr.log.record(wr.rec)

	wr.w.Header().Set("Content-Type", "application/json")
	wr.w.WriteHeader(status)
	_, _ = wr.w.Write(respBody)
	_, _ = wr.w.Write([]byte("\n"))
}

// handleDashboardWebhook handles POST /api/webhook/dashboard-update/{leadId}.
//
// One request walks: parse body → unwrap → coerce leadScore → default
// leadData → validate → emit dashboard-update → persist snapshot → emit
// dashboard-complete status → 200. The two persistence writes and the second
// emit are each best-effort: the primary contract is acknowledging receipt
// and notifying live subscribers, so a store failure logs and moves on.
func (s *RelayServer) handleDashboardWebhook(w http.ResponseWriter, r *http.Request) {
	leadID := r.PathValue("leadId")
	setCORSHeaders(w)
	reply := s.newWebhookReply(w, r, "/api/webhook/dashboard-update", leadID)

	// Outermost boundary: any panic in the body below answers 500 and emits
	// a best-effort error event instead of killing the connection.
	defer func() {
		if p := recover(); p != nil {
			s.respondServerError(r.Context(), reply, leadID, fmt.Sprintf("%v", p))
		}
	}()

	if leadID == "" {
		reply.respond(http.StatusBadRequest, map[string]string{"error": "leadId is required"},
			false, "leadId is required")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		reply.respond(http.StatusBadRequest, map[string]string{"error": "failed to read request body"},
			false, err.Error())
		return
	}
	reply.rec.Body = string(body)

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		reply.respond(http.StatusBadRequest, map[string]string{"error": "Invalid JSON in request body"},
			false, err.Error())
		return
	}

	now := time.Now().UTC()
	update, err := model.NormalizeDashboard(leadID, raw, now)
	if err != nil {
		var scoreErr *model.ScoreError
		var validationErr *model.DashboardValidationError
		switch {
		case errors.As(err, &scoreErr):
			reply.respond(http.StatusBadRequest, map[string]any{
				"error":    "leadScore must be a number",
				"received": map[string]any{"leadScore": scoreErr.Received},
				"leadId":   leadID,
			}, false, err.Error())
		case errors.As(err, &validationErr):
			reply.respond(http.StatusBadRequest, map[string]any{
				"error":            "Validation failed",
				"validationErrors": validationErr.Errors,
				"leadId":           leadID,
			}, false, err.Error())
		default:
			s.respondServerError(r.Context(), reply, leadID, err.Error())
		}
		return
	}

	snapshot := update.Snapshot()
	evt, err := model.NewEvent(model.EventDashboardUpdate, snapshot)
	if err != nil {
		s.respondServerError(r.Context(), reply, leadID, err.Error())
		return
	}

	// Live subscribers see the raw dashboard-update strictly before the
	// synthetic completion status below; consumers rely on that pair order.
	s.relayEvent(r.Context(), leadID, evt)
	reply.rec.EventEmitted = true

	if data, err := json.Marshal(snapshot); err != nil {
		slog.Warn("failed to marshal dashboard snapshot", "lead_id", leadID, "error", err)
	} else if err := s.store.SetDashboard(r.Context(), leadID, data); err != nil {
		slog.Warn("failed to persist dashboard snapshot", "lead_id", leadID, "error", err)
	}

	completion := &model.StatusUpdate{
		Step:      "dashboard-complete",
		Status:    model.StatusCompleteAlias,
		Timestamp: now,
	}
	if sevt, err := model.NewEvent(model.EventStatusUpdate, completion); err != nil {
		slog.Warn("failed to build completion status event", "lead_id", leadID, "error", err)
	} else {
		s.relayEvent(r.Context(), leadID, sevt)
	}
	if err := s.store.AddStatusUpdate(r.Context(), leadID, completion); err != nil {
		slog.Warn("failed to persist completion status", "lead_id", leadID, "error", err)
	}

	resp := map[string]any{
		"success":            true,
		"leadId":             leadID,
		"dashboardProcessed": true,
		"leadScore":          update.LeadScore,
		"timestamp":          now.Format(time.RFC3339),
	}
	if name := update.LeadName(); name != "" {
		resp["leadName"] = name
	}
	reply.respond(http.StatusOK, resp, true, "")
}

// statusWebhookInput is the body of POST /api/webhook/status-update/{leadId}.
type statusWebhookInput struct {
	Step    string `json:"step"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// handleStatusWebhook handles POST /api/webhook/status-update/{leadId}: the
// producer path for individual workflow step transitions.
func (s *RelayServer) handleStatusWebhook(w http.ResponseWriter, r *http.Request) {
	leadID := r.PathValue("leadId")
	setCORSHeaders(w)
	reply := s.newWebhookReply(w, r, "/api/webhook/status-update", leadID)

	defer func() {
		if p := recover(); p != nil {
			s.respondServerError(r.Context(), reply, leadID, fmt.Sprintf("%v", p))
		}
	}()

	if leadID == "" {
		reply.respond(http.StatusBadRequest, map[string]string{"error": "leadId is required"},
			false, "leadId is required")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		reply.respond(http.StatusBadRequest, map[string]string{"error": "failed to read request body"},
			false, err.Error())
		return
	}
	reply.rec.Body = string(body)

	var in statusWebhookInput
	if err := json.Unmarshal(body, &in); err != nil {
		reply.respond(http.StatusBadRequest, map[string]string{"error": "Invalid JSON in request body"},
			false, err.Error())
		return
	}

	if err := validateStatusInput(in); err != nil {
		reply.respond(http.StatusBadRequest, map[string]any{
			"error":  err.Error(),
			"leadId": leadID,
		}, false, err.Error())
		return
	}

	now := time.Now().UTC()
	update := &model.StatusUpdate{
		Step:      in.Step,
		Status:    model.Status(in.Status), // producer vocabulary kept verbatim
		Message:   in.Message,
		Timestamp: now,
	}

	evt, err := model.NewEvent(model.EventStatusUpdate, update)
	if err != nil {
		s.respondServerError(r.Context(), reply, leadID, err.Error())
		return
	}
	s.relayEvent(r.Context(), leadID, evt)
	reply.rec.EventEmitted = true

	if err := s.store.AddStatusUpdate(r.Context(), leadID, update); err != nil {
		slog.Warn("failed to persist status update", "lead_id", leadID, "step", in.Step, "error", err)
	}

	reply.respond(http.StatusOK, map[string]any{
		"success":   true,
		"leadId":    leadID,
		"step":      in.Step,
		"status":    in.Status,
		"timestamp": now.Format(time.RFC3339),
	}, true, "")
}

func validateStatusInput(in statusWebhookInput) error {
	if in.Step == "" {
		return inputError("step is required")
	}
	if in.Status == "" {
		return inputError("status is required")
	}
	if !model.NormalizeStatus(in.Status).Valid() {
		return inputError(fmt.Sprintf("invalid status %q", in.Status))
	}
	return nil
}

// respondServerError answers 500 and attempts a best-effort error event so
// live subscribers see the failure. A failed emit is itself swallowed.
func (s *RelayServer) respondServerError(ctx context.Context, reply *webhookReply, leadID, details string) {
	if leadID != "" {
		if evt, err := model.NewEvent(model.EventError, model.ErrorPayload{
			LeadID:  leadID,
			Message: details,
		}); err == nil {
			s.relayEvent(ctx, leadID, evt)
		}
	}

	slog.Error("webhook handler failure", "lead_id", leadID, "error", details)
	reply.respond(http.StatusInternalServerError, map[string]any{
		"error":     "Server error",
		"details":   details,
		"leadId":    leadID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, false, details)
}
