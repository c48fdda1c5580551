package model

// Canonical workflow step ids. The set is fixed: both the webhook producer and
// the progress tracker know exactly these seven stages, and the UI always
// renders all of them regardless of which producer ids actually arrive.
const (
	StepLeadCapture     = "lead-capture"
	StepDataEnrichment  = "data-enrichment"
	StepAIQualification = "ai-qualification"
	StepCRMIntegration  = "crm-integration"
	StepTaskCreation    = "task-creation"
	StepNotification    = "notification"
	StepDashboardUpdate = "dashboard-update"
)

// WorkflowStep is one fixed stage of the automation demo.
type WorkflowStep struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// workflowSteps is the fixed, ordered step list. Do not reorder; the tracker's
// completion check and the UI both assume this order.
var workflowSteps = []WorkflowStep{
	{ID: StepLeadCapture, Name: "Lead Capture"},
	{ID: StepDataEnrichment, Name: "Data Enrichment"},
	{ID: StepAIQualification, Name: "AI Qualification"},
	{ID: StepCRMIntegration, Name: "CRM Integration"},
	{ID: StepTaskCreation, Name: "Task Creation"},
	{ID: StepNotification, Name: "Notification"},
	{ID: StepDashboardUpdate, Name: "Dashboard Update"},
}

// WorkflowSteps returns a copy of the canonical step list.
func WorkflowSteps() []WorkflowStep {
	steps := make([]WorkflowStep, len(workflowSteps))
	copy(steps, workflowSteps)
	return steps
}

// stepRemap translates producer-side step ids onto the canonical id space.
// The producer (webhook sender) and consumer vocabularies drifted apart; this
// table is a compatibility shim, not an extension point. Ids absent from the
// table map to themselves, and ids that still aren't canonical after mapping
// are dropped by the tracker with a diagnostic.
var stepRemap = map[string]string{
	"lead-captured":       StepLeadCapture,
	"enrichment-complete": StepDataEnrichment,
	"ai-complete":         StepAIQualification,
	"crm-complete":        StepCRMIntegration,
	"task-complete":       StepTaskCreation,
	"notification-sent":   StepNotification,
	"dashboard-complete":  StepDashboardUpdate,
}

// MapStepID applies the static remap table. Identity for unmapped ids.
func MapStepID(id string) string {
	if mapped, ok := stepRemap[id]; ok {
		return mapped
	}
	return id
}

// KnownStep reports whether id is one of the seven canonical step ids.
func KnownStep(id string) bool {
	for _, s := range workflowSteps {
		if s.ID == id {
			return true
		}
	}
	return false
}
