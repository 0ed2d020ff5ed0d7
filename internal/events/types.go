package events

import "time"

// EventType identifies the kind of state mutation pushed to the sink (§6).
type EventType string

const (
	EventBranchCreated       EventType = "branch_created"
	EventBranchStatusChanged EventType = "branch_status_changed"
	EventPapersFound         EventType = "papers_found"
	EventSummaryValidated    EventType = "summary_validated"
	EventSummariesValidated  EventType = "summaries_validated"
	EventHypothesisGenerated EventType = "hypothesis_generated"
	EventHypothesesGenerated EventType = "hypotheses_generated"
	EventIterationCompleted  EventType = "iteration_completed"
)

// Event is one state-transition notification, keyed by SessionID and
// optionally scoped to a branch (§6: "events:emit {session_id, event_type,
// payload, branch_id?}").
type Event struct {
	Type      EventType
	SessionID string
	BranchID  string // empty for session-scoped events
	Payload   interface{}
	Timestamp time.Time
}

// BranchCreatedPayload accompanies EventBranchCreated.
type BranchCreatedPayload struct {
	BranchID       string
	Query          string
	Mode           string
	ParentBranchID string
}

// BranchStatusChangedPayload accompanies EventBranchStatusChanged.
type BranchStatusChangedPayload struct {
	BranchID  string
	OldStatus string
	NewStatus string
}

// PapersFoundPayload accompanies EventPapersFound.
type PapersFoundPayload struct {
	BranchID        string
	IterationNumber int
	PaperIDs        []string
}

// SummariesValidatedPayload accompanies EventSummaryValidated (one paper)
// and EventSummariesValidated (a batch).
type SummariesValidatedPayload struct {
	BranchID        string
	IterationNumber int
	PaperID         string // set only for the single-summary event
	PaperIDs        []string
	Groundedness    float64
}

// HypothesesGeneratedPayload accompanies EventHypothesisGenerated (one
// hypothesis) and EventHypothesesGenerated (a batch).
type HypothesesGeneratedPayload struct {
	BranchID      string
	HypothesisIDs []string
}

// IterationCompletedPayload accompanies EventIterationCompleted.
type IterationCompletedPayload struct {
	BranchID          string
	IterationNumber   int
	PapersFound       int
	SummariesAdded    int
	ContextTokensUsed int
	Empty             bool
}
