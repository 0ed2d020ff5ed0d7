package domain

import (
	"fmt"
	"time"
)

// Mode is a branch's research mode. It only ever transitions forward:
// SEARCH_SUMMARIZE -> HYPOTHESIS.
type Mode string

const (
	ModeSearchSummarize Mode = "SEARCH_SUMMARIZE"
	ModeHypothesis      Mode = "HYPOTHESIS"
)

// validModeTransitions enumerates the only legal Mode state changes.
var validModeTransitions = map[Mode]map[Mode]bool{
	ModeSearchSummarize: {ModeHypothesis: true},
	ModeHypothesis:      {},
}

// CanTransitionMode reports whether from -> to is an allowed mode change.
func CanTransitionMode(from, to Mode) bool {
	if from == to {
		return true
	}
	return validModeTransitions[from][to]
}

// Status is a branch's lifecycle status.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusPaused    Status = "PAUSED"
	StatusCompleted Status = "COMPLETED"
	StatusPruned    Status = "PRUNED"
)

// IsTerminal reports whether the status is one of the two terminal states.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusPruned
}

// validStatusTransitions enumerates the allowed Status state changes.
var validStatusTransitions = map[Status]map[Status]bool{
	StatusPending:   {StatusRunning: true, StatusPaused: true, StatusPruned: true, StatusCompleted: true},
	StatusRunning:   {StatusPending: true, StatusPaused: true, StatusCompleted: true, StatusPruned: true},
	StatusPaused:    {StatusRunning: true, StatusPending: true, StatusPruned: true, StatusCompleted: true},
	StatusCompleted: {},
	StatusPruned:    {},
}

// CanTransitionStatus reports whether from -> to is an allowed status change.
func CanTransitionStatus(from, to Status) bool {
	if from == to {
		return true
	}
	return validStatusTransitions[from][to]
}

// Branch is the central accumulator entity: a research direction with its
// own query, mode, and accumulated evidence.
type Branch struct {
	ID             string
	Query          string
	Mode           Mode
	Status         Status
	ParentBranchID string
	Filters        *Filters

	Iterations []IterationResult

	AccumulatedPapers    map[string]PaperDetails
	AccumulatedSummaries map[string]ValidatedSummary

	ContextWindowUsed int
	MaxContextWindow  int

	CreatedAt time.Time
	UpdatedAt time.Time

	// ConsecutiveEmptyIterations tracks the stall counter (§5/§4.6).
	ConsecutiveEmptyIterations int
}

// NewBranch constructs a fresh PENDING branch. Callers normally go through
// branch.Manager.CreateBranch rather than calling this directly.
func NewBranch(id, query string, mode Mode, parentBranchID string, filters *Filters, maxContextWindow int, now time.Time) *Branch {
	return &Branch{
		ID:                   id,
		Query:                query,
		Mode:                 mode,
		Status:               StatusPending,
		ParentBranchID:       parentBranchID,
		Filters:              filters,
		Iterations:           nil,
		AccumulatedPapers:    make(map[string]PaperDetails),
		AccumulatedSummaries: make(map[string]ValidatedSummary),
		MaxContextWindow:     maxContextWindow,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// ContextUtilization is the derived fraction of the context budget consumed.
func (b *Branch) ContextUtilization() float64 {
	if b.MaxContextWindow <= 0 {
		return 0
	}
	return float64(b.ContextWindowUsed) / float64(b.MaxContextWindow)
}

// NextIterationNumber is the iteration number the next AppendIteration call
// must use to keep numbering contiguous from 1.
func (b *Branch) NextIterationNumber() int {
	return len(b.Iterations) + 1
}

// AppendIteration adds an iteration result, folding its papers/summaries
// into the accumulated maps. It enforces: no iterations on a terminal
// branch, and contiguous iteration numbering.
func (b *Branch) AppendIteration(result IterationResult, now time.Time) error {
	if b.Status.IsTerminal() {
		return NewInvariantError("Branch", fmt.Sprintf("branch %s is terminal (%s), cannot append iteration", b.ID, b.Status))
	}
	if result.IterationNumber != b.NextIterationNumber() {
		return NewInvariantError("Branch", fmt.Sprintf("iteration number %d is not contiguous (expected %d)", result.IterationNumber, b.NextIterationNumber()))
	}

	for _, p := range result.PapersFound {
		if err := p.Validate(); err != nil {
			return err
		}
		b.AccumulatedPapers[p.PaperID] = p
	}
	for _, s := range result.Summaries {
		if _, ok := b.AccumulatedPapers[s.PaperID]; !ok {
			return NewInvariantError("Branch", fmt.Sprintf("summary for unknown paper %s", s.PaperID))
		}
		b.AccumulatedSummaries[s.PaperID] = s
	}

	b.Iterations = append(b.Iterations, result)
	b.ContextWindowUsed += result.ContextTokensUsed

	if result.Empty() {
		b.ConsecutiveEmptyIterations++
	} else {
		b.ConsecutiveEmptyIterations = 0
	}

	b.UpdatedAt = now
	return nil
}

// SetMode attempts a mode transition, enforcing the forward-only invariant.
func (b *Branch) SetMode(mode Mode, now time.Time) error {
	if !CanTransitionMode(b.Mode, mode) {
		return NewInvariantError("Branch", fmt.Sprintf("illegal mode transition %s -> %s", b.Mode, mode))
	}
	b.Mode = mode
	b.UpdatedAt = now
	return nil
}

// SetStatus attempts a status transition, enforcing the allowed-transition
// invariant.
func (b *Branch) SetStatus(status Status, now time.Time) error {
	if !CanTransitionStatus(b.Status, status) {
		return NewInvariantError("Branch", fmt.Sprintf("illegal status transition %s -> %s", b.Status, status))
	}
	b.Status = status
	b.UpdatedAt = now
	return nil
}

// CheckInvariants validates the testable properties from §8 that apply to
// a single branch in isolation (invariants 1-3, 7). Invariant 4 is not
// checked here; AppendIteration enforces it when an iteration is added.
func (b *Branch) CheckInvariants(strictThreshold, looseThreshold float64) error {
	unionPapers := make(map[string]bool)
	unionSummaries := make(map[string]bool)
	for i, it := range b.Iterations {
		if it.IterationNumber != i+1 {
			return NewInvariantError("Branch", "iteration numbers not contiguous from 1")
		}
		for _, p := range it.PapersFound {
			unionPapers[p.PaperID] = true
		}
		for _, s := range it.Summaries {
			unionSummaries[s.PaperID] = true
			if err := s.Validate(strictThreshold, looseThreshold); err != nil {
				return err
			}
		}
	}
	if len(unionPapers) != len(b.AccumulatedPapers) {
		return NewInvariantError("Branch", "accumulated_papers does not equal union of iterations.papers_found")
	}
	for id := range unionPapers {
		if _, ok := b.AccumulatedPapers[id]; !ok {
			return NewInvariantError("Branch", "accumulated_papers missing a paper present in an iteration")
		}
	}
	if len(unionSummaries) != len(b.AccumulatedSummaries) {
		return NewInvariantError("Branch", "accumulated_summaries does not equal union of iterations.summaries")
	}
	for id := range b.AccumulatedSummaries {
		if _, ok := b.AccumulatedPapers[id]; !ok {
			return NewInvariantError("Branch", "accumulated_summaries.keys is not a subset of accumulated_papers.keys")
		}
	}
	return nil
}
