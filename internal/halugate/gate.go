// Package halugate provides the HaluGate external collaborator (§6): a
// groundedness/hallucination check the Summarize/Validate stage gates
// acceptance on.
package halugate

import "context"

// Span is a hallucinated substring flagged within an answer.
type Span struct {
	Text     string
	Severity string
}

// ValidateResult is the result of one validate() call.
type ValidateResult struct {
	FactCheckNeeded       bool
	HallucinationDetected bool
	Spans                 []Span
	MaxSeverity           string
	NLIContradictions     int
	Groundedness          float64
}

// Gate is the HaluGate contract consumed by internal/summarize.
type Gate interface {
	Validate(ctx context.Context, contextText, question, answer string) (ValidateResult, error)
	ComputeGroundedness(ctx context.Context, result ValidateResult, answer string) (float64, error)
}
