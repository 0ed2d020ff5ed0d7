package domain

import "time"

// Default groundedness thresholds (§4.2, §9 — kept independent per the
// spec's open question about the dual-threshold ambiguity).
const (
	DefaultStrictThreshold = 0.95
	DefaultLooseThreshold  = 0.70
)

// ValidatedSummary is a per-paper summary that has passed the
// groundedness gate, either at the strict threshold or, as a fallback,
// the looser floor.
type ValidatedSummary struct {
	PaperID      string
	PaperTitle   string
	SummaryText  string
	Groundedness float64
	Strict       bool // true if accepted at the strict threshold
	Timestamp    time.Time
}

// Validate enforces the ValidatedSummary invariant against the given
// thresholds: groundedness must clear the loose floor, and a summary
// marked strict must clear the strict bar.
func (s ValidatedSummary) Validate(strictThreshold, looseThreshold float64) error {
	if s.Groundedness < looseThreshold {
		return NewInvariantError("ValidatedSummary", "groundedness below loose threshold")
	}
	if s.Strict && s.Groundedness < strictThreshold {
		return NewInvariantError("ValidatedSummary", "marked strict but below strict threshold")
	}
	return nil
}

// ResearchHypothesis is a hypothesis grounded in one or more accepted
// summaries.
type ResearchHypothesis struct {
	ID                 string
	Text               string
	SupportingPaperIDs []string
	Confidence         float64
	SourceBranchID     string
	Timestamp          time.Time
}

// Validate enforces the ResearchHypothesis invariant: at least one
// supporting paper.
func (h ResearchHypothesis) Validate() error {
	if len(h.SupportingPaperIDs) == 0 {
		return NewInvariantError("ResearchHypothesis", "must have at least one supporting paper")
	}
	return nil
}

// IterationResult is the output of one inner-loop cycle against a branch.
type IterationResult struct {
	IterationNumber   int
	PapersFound       []PaperDetails
	Summaries         []ValidatedSummary
	Hypotheses        []ResearchHypothesis
	ContextTokensUsed int
	Timestamp         time.Time
}

// Empty reports whether this iteration found no new papers (used by
// stall detection, §4.6/§5).
func (r IterationResult) Empty() bool {
	return len(r.PapersFound) == 0
}
