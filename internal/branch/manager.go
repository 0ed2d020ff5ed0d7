// Package branch implements the Branch Manager (§4.4) and Splitter (§4.5):
// a pure state operator over a domain.LoopState's branches, plus the
// deterministic grouping strategies a split can use.
package branch

import (
	"log"
	"time"

	"github.com/google/uuid"

	"go-litresearch/internal/domain"
)

// Config holds the Branch Manager's tunable knobs (§4.4).
type Config struct {
	SplitThreshold         float64
	MinPapersForHypothesis int
	MaxBranches            int
}

// DefaultConfig returns the spec §4.4 default knob values.
func DefaultConfig() Config {
	return Config{
		SplitThreshold:         0.80,
		MinPapersForHypothesis: 10,
		MaxBranches:            10,
	}
}

// Manager is the Branch Manager: a pure state operator over branches.
// Grounded on core/domain/aggregate.ResearchState's "explicit status enum,
// invariant-checked mutator" shape, adapted from a single aggregate to a
// map of domain.Branch values living in a domain.LoopState.
type Manager struct {
	cfg      Config
	splitter *Splitter
}

func NewManager(cfg Config, splitter *Splitter) *Manager {
	d := DefaultConfig()
	if cfg.SplitThreshold <= 0 {
		cfg.SplitThreshold = d.SplitThreshold
	}
	if cfg.MinPapersForHypothesis <= 0 {
		cfg.MinPapersForHypothesis = d.MinPapersForHypothesis
	}
	if cfg.MaxBranches <= 0 {
		cfg.MaxBranches = d.MaxBranches
	}
	if splitter == nil {
		splitter = NewSplitter()
	}
	return &Manager{cfg: cfg, splitter: splitter}
}

// now is a seam for deterministic tests.
var now = func() time.Time { return time.Now() }

func newBranchID() string {
	return uuid.NewString()[:8]
}

// CreateBranch builds a fresh PENDING branch and registers it in state.
func (m *Manager) CreateBranch(state *domain.LoopState, query string, mode domain.Mode, parentBranchID string, filters *domain.Filters, maxCtx int) *domain.Branch {
	b := domain.NewBranch(newBranchID(), query, mode, parentBranchID, filters, maxCtx, now())
	state.Branches[b.ID] = b
	state.UpdatedAt = now()
	return b
}

// SplitBranch runs the deterministic Splitter for strategy and materializes
// its groups as child branches (§4.4/§4.7 "external tool form"). The parent
// transitions to COMPLETED; children inherit mode and filters, copying (not
// moving) the papers/summaries named in their group.
func (m *Manager) SplitBranch(state *domain.LoopState, branch *domain.Branch, strategy domain.SplitStrategy, numSplits int) ([]*domain.Branch, error) {
	groups, err := m.splitter.Split(branch, strategy, numSplits)
	if err != nil {
		return nil, err
	}

	paperGroups := make([][]string, len(groups))
	for i, g := range groups {
		paperGroups[i] = g.PaperIDs
	}
	paperGroups = dedupeAcrossGroups(paperGroups)

	children := make([]*domain.Branch, 0, len(groups))
	for i, g := range groups {
		child := m.materializeChild(state, branch, g.Query, paperGroups[i])
		children = append(children, child)
		_ = g
	}

	if err := branch.SetStatus(domain.StatusCompleted, now()); err != nil {
		return nil, err
	}
	state.UpdatedAt = now()
	return children, nil
}

// ApplySplitRecommendation materializes a Managing-Agent-authored
// SplitRecommendation (§4.6/§4.7: "SPLIT -> §4.5 using given groups").
// Unlike SplitBranch, the paper groups are already chosen by the agent and
// may overlap; the earlier group wins (§4.4 precedence rule).
func (m *Manager) ApplySplitRecommendation(state *domain.LoopState, branch *domain.Branch, rec domain.SplitRecommendation) ([]*domain.Branch, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if rec.Action != domain.ActionSplit {
		return nil, domain.NewInvariantError("Manager", "ApplySplitRecommendation requires a SPLIT recommendation")
	}

	groups := dedupeAcrossGroups(rec.PaperGroups)
	children := make([]*domain.Branch, 0, len(groups))
	for i, paperIDs := range groups {
		children = append(children, m.materializeChild(state, branch, rec.GroupQueries[i], paperIDs))
	}

	if err := branch.SetStatus(domain.StatusCompleted, now()); err != nil {
		return nil, err
	}
	state.UpdatedAt = now()
	return children, nil
}

func (m *Manager) materializeChild(state *domain.LoopState, parent *domain.Branch, query string, paperIDs []string) *domain.Branch {
	child := domain.NewBranch(newBranchID(), query, parent.Mode, parent.ID, parent.Filters, parent.MaxContextWindow, now())
	for _, pid := range paperIDs {
		if p, ok := parent.AccumulatedPapers[pid]; ok {
			child.AccumulatedPapers[pid] = p
		}
		if s, ok := parent.AccumulatedSummaries[pid]; ok {
			child.AccumulatedSummaries[pid] = s
		}
	}
	state.Branches[child.ID] = child
	return child
}

// PruneBranch transitions branch to PRUNED. reason is logged for
// traceability; it has no field on domain.Branch itself (the event sink
// carries it onward, §6).
func (m *Manager) PruneBranch(branch *domain.Branch, reason string) error {
	if err := branch.SetStatus(domain.StatusPruned, now()); err != nil {
		return err
	}
	log.Printf("branch %s pruned: %s", branch.ID, reason)
	return nil
}

// UpdateStatus applies the §3 transition invariant.
func (m *Manager) UpdateStatus(branch *domain.Branch, status domain.Status) error {
	return branch.SetStatus(status, now())
}

// ShouldSplit reports whether branch's context utilization has crossed the
// split threshold.
func (m *Manager) ShouldSplit(branch *domain.Branch) bool {
	return branch.ContextUtilization() >= m.cfg.SplitThreshold
}

// GetContextWarning returns a human-readable warning string for context
// utilization at or above 0.70/0.80/0.90, or nil below that.
func (m *Manager) GetContextWarning(branch *domain.Branch) *string {
	u := branch.ContextUtilization()
	var msg string
	switch {
	case u >= 0.90:
		msg = "critical: context window nearly exhausted, split or wrap up immediately"
	case u >= 0.80:
		msg = "high: context window filling up, consider splitting"
	case u >= 0.70:
		msg = "moderate: context window usage elevated"
	default:
		return nil
	}
	return &msg
}

// ShouldEnableHypothesisMode reports whether branch is ready to transition
// from SEARCH_SUMMARIZE to HYPOTHESIS mode.
func (m *Manager) ShouldEnableHypothesisMode(branch *domain.Branch) bool {
	return branch.Mode == domain.ModeSearchSummarize && len(branch.AccumulatedPapers) >= m.cfg.MinPapersForHypothesis
}

// CanCreateMoreBranches reports whether state is below the active-branch cap.
func (m *Manager) CanCreateMoreBranches(state *domain.LoopState) bool {
	return len(state.ActiveBranches()) < m.cfg.MaxBranches
}

// GetNextBranch returns the first RUNNING branch (by creation order), else
// the first PENDING branch, else nil.
func (m *Manager) GetNextBranch(state *domain.LoopState) *domain.Branch {
	var running, pending []*domain.Branch
	for _, b := range state.Branches {
		switch b.Status {
		case domain.StatusRunning:
			running = append(running, b)
		case domain.StatusPending:
			pending = append(pending, b)
		}
	}
	if len(running) > 0 {
		return earliest(running)
	}
	if len(pending) > 0 {
		return earliest(pending)
	}
	return nil
}

func earliest(branches []*domain.Branch) *domain.Branch {
	best := branches[0]
	for _, b := range branches[1:] {
		if b.CreatedAt.Before(best.CreatedAt) {
			best = b
		}
	}
	return best
}

// dedupeAcrossGroups enforces the §4.4 precedence rule: a paper ID kept by
// an earlier group is dropped from every later group it also appears in.
func dedupeAcrossGroups(groups [][]string) [][]string {
	seen := make(map[string]bool)
	out := make([][]string, len(groups))
	for i, g := range groups {
		kept := make([]string, 0, len(g))
		for _, id := range g {
			if seen[id] {
				continue
			}
			seen[id] = true
			kept = append(kept, id)
		}
		out[i] = kept
	}
	return out
}
