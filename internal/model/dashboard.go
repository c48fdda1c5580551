package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultLeadData is substituted when an inbound dashboard payload carries no
// leadData object. Missing leadData is repaired rather than rejected — callers
// with partial payloads are a known shape — while a missing or non-numeric
// leadScore always rejects. The asymmetry is deliberate; do not unify.
func DefaultLeadData() map[string]any {
	return map[string]any{
		"name":    "Demo Lead",
		"email":   "",
		"phone":   "",
		"message": "",
	}
}

// DashboardUpdate is the normalized form of an inbound dashboard webhook
// payload. One snapshot is retained per lead, last-write-wins.
type DashboardUpdate struct {
	LeadID    string
	LeadScore float64
	LeadData  map[string]any
	Extra     map[string]any // passthrough fields other than leadScore/leadData
	Timestamp time.Time
}

// LeadName returns leadData.name, or "" when absent.
func (d *DashboardUpdate) LeadName() string {
	name, _ := d.LeadData["name"].(string)
	return name
}

// Snapshot renders the update as the JSON object persisted to the store and
// published as the dashboard-update event payload.
func (d *DashboardUpdate) Snapshot() map[string]any {
	snap := make(map[string]any, len(d.Extra)+4)
	for k, v := range d.Extra {
		snap[k] = v
	}
	snap["leadId"] = d.LeadID
	snap["leadScore"] = d.LeadScore
	snap["leadData"] = d.LeadData
	snap["timestamp"] = d.Timestamp.UTC().Format(time.RFC3339)
	return snap
}

// ScoreError reports a leadScore that failed numeric coercion. Received holds
// the value exactly as it arrived so the caller can echo it back.
type ScoreError struct {
	Received any
}

func (e *ScoreError) Error() string {
	return fmt.Sprintf("leadScore must be a number, got %v", e.Received)
}

// DashboardValidationError aggregates every violated rule in one error; the
// ingress responds with the full list rather than failing fast.
type DashboardValidationError struct {
	Errors []string
}

func (e *DashboardValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// NormalizeDashboard turns a raw decoded webhook body into a DashboardUpdate.
//
// The body may arrive either flat or wrapped under a "dashboard" key (two
// caller shapes exist); both normalize identically. Errors are *ScoreError
// when leadScore fails coercion, or *DashboardValidationError listing every
// violated rule after defaulting.
func NormalizeDashboard(leadID string, body map[string]any, now time.Time) (*DashboardUpdate, error) {
	raw := body
	if wrapped, ok := body["dashboard"].(map[string]any); ok {
		raw = wrapped
	}

	var (
		score    float64
		hasScore bool
	)
	if v, ok := raw["leadScore"]; ok {
		n, err := coerceScore(v)
		if err != nil {
			return nil, &ScoreError{Received: v}
		}
		score = n
		hasScore = true
	}

	leadData, hasLeadData := raw["leadData"]
	if !hasLeadData || leadData == nil {
		leadData = DefaultLeadData()
	}

	// Second pass over the defaulted payload: aggregate all violations.
	var verrs []string
	if !hasScore {
		verrs = append(verrs, "leadScore is required")
	}
	dataMap, isObject := leadData.(map[string]any)
	if !isObject {
		verrs = append(verrs, "leadData must be an object")
	}
	if len(verrs) > 0 {
		return nil, &DashboardValidationError{Errors: verrs}
	}

	extra := make(map[string]any)
	for k, v := range raw {
		switch k {
		case "leadScore", "leadData", "leadId", "timestamp":
		default:
			extra[k] = v
		}
	}

	return &DashboardUpdate{
		LeadID:    leadID,
		LeadScore: score,
		LeadData:  dataMap,
		Extra:     extra,
		Timestamp: now,
	}, nil
}

// coerceScore accepts JSON numbers and numeric strings. NaN and infinities
// are rejected along with everything non-numeric.
func coerceScore(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("not a finite number")
		}
		return n, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("not a numeric string")
		}
		return f, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
