package model

import "testing"

func TestWorkflowSteps_FixedSet(t *testing.T) {
	steps := WorkflowSteps()
	if len(steps) != 7 {
		t.Fatalf("expected 7 workflow steps, got %d", len(steps))
	}

	want := []string{
		StepLeadCapture,
		StepDataEnrichment,
		StepAIQualification,
		StepCRMIntegration,
		StepTaskCreation,
		StepNotification,
		StepDashboardUpdate,
	}
	for i, s := range steps {
		if s.ID != want[i] {
			t.Errorf("step %d = %q, want %q", i, s.ID, want[i])
		}
	}
}

func TestWorkflowSteps_ReturnsCopy(t *testing.T) {
	steps := WorkflowSteps()
	steps[0].ID = "mutated"
	if WorkflowSteps()[0].ID != StepLeadCapture {
		t.Error("WorkflowSteps returned shared backing array")
	}
}

func TestMapStepID(t *testing.T) {
	for _, tc := range []struct {
		in, want string
	}{
		{"ai-complete", StepAIQualification},
		{"crm-complete", StepCRMIntegration},
		{"dashboard-complete", StepDashboardUpdate},
		{"lead-captured", StepLeadCapture},
		{"enrichment-complete", StepDataEnrichment},
		{"task-complete", StepTaskCreation},
		{"notification-sent", StepNotification},
		// Canonical ids and unknown ids map to themselves.
		{StepLeadCapture, StepLeadCapture},
		{"totally-unknown", "totally-unknown"},
	} {
		t.Run(tc.in, func(t *testing.T) {
			if got := MapStepID(tc.in); got != tc.want {
				t.Errorf("MapStepID(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestKnownStep(t *testing.T) {
	if !KnownStep(StepAIQualification) {
		t.Error("ai-qualification should be known")
	}
	if KnownStep("ai-complete") {
		t.Error("producer id should not be known without remapping")
	}
	if KnownStep("") {
		t.Error("empty id should not be known")
	}
}
