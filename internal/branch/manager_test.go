package branch

import (
	"testing"
	"time"

	"go-litresearch/internal/domain"
)

func newTestManager() *Manager {
	return NewManager(DefaultConfig(), NewSplitter())
}

func newTestState() *domain.LoopState {
	return domain.NewLoopState("loop-1", 1, nil, time.Now())
}

func TestManager_CreateBranchRegistersInState(t *testing.T) {
	m := newTestManager()
	state := newTestState()
	b := m.CreateBranch(state, "deep learning", domain.ModeSearchSummarize, "", nil, 100000)

	if state.Branches[b.ID] != b {
		t.Fatal("expected created branch to be registered in state")
	}
	if b.Status != domain.StatusPending {
		t.Fatalf("expected new branch to be PENDING, got %s", b.Status)
	}
}

func TestManager_ShouldSplitRespectsThreshold(t *testing.T) {
	m := newTestManager()
	b := domain.NewBranch("b1", "q", domain.ModeSearchSummarize, "", nil, 1000, time.Now())
	b.ContextWindowUsed = 500
	if m.ShouldSplit(b) {
		t.Fatal("expected no split at 50% utilization")
	}
	b.ContextWindowUsed = 850
	if !m.ShouldSplit(b) {
		t.Fatal("expected split recommended at 85% utilization")
	}
}

func TestManager_GetContextWarningThresholds(t *testing.T) {
	m := newTestManager()
	b := domain.NewBranch("b1", "q", domain.ModeSearchSummarize, "", nil, 1000, time.Now())

	b.ContextWindowUsed = 500
	if m.GetContextWarning(b) != nil {
		t.Fatal("expected no warning below 0.70")
	}
	b.ContextWindowUsed = 750
	if m.GetContextWarning(b) == nil {
		t.Fatal("expected a warning at 0.75")
	}
	b.ContextWindowUsed = 950
	warn := m.GetContextWarning(b)
	if warn == nil || !containsSubstr(*warn, "critical") {
		t.Fatalf("expected a critical warning at 0.95, got %v", warn)
	}
}

func containsSubstr(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func TestManager_ShouldEnableHypothesisMode(t *testing.T) {
	m := newTestManager()
	b := domain.NewBranch("b1", "q", domain.ModeSearchSummarize, "", nil, 100000, time.Now())
	if m.ShouldEnableHypothesisMode(b) {
		t.Fatal("expected false with no accumulated papers")
	}
	for i := 0; i < 10; i++ {
		id := string(rune('a' + i))
		b.AccumulatedPapers[id] = domain.PaperDetails{PaperRef: domain.PaperRef{PaperID: id}}
	}
	if !m.ShouldEnableHypothesisMode(b) {
		t.Fatal("expected true at 10 accumulated papers")
	}
}

func TestManager_CanCreateMoreBranchesRespectsCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBranches = 2
	m := NewManager(cfg, NewSplitter())
	state := newTestState()
	m.CreateBranch(state, "q1", domain.ModeSearchSummarize, "", nil, 100000)
	if !m.CanCreateMoreBranches(state) {
		t.Fatal("expected room for a second branch")
	}
	m.CreateBranch(state, "q2", domain.ModeSearchSummarize, "", nil, 100000)
	if m.CanCreateMoreBranches(state) {
		t.Fatal("expected cap reached at 2 active branches")
	}
}

func TestManager_GetNextBranchPrefersRunningOverPending(t *testing.T) {
	m := newTestManager()
	state := newTestState()
	pending := m.CreateBranch(state, "q1", domain.ModeSearchSummarize, "", nil, 100000)
	running := m.CreateBranch(state, "q2", domain.ModeSearchSummarize, "", nil, 100000)
	if err := running.SetStatus(domain.StatusRunning, time.Now()); err != nil {
		t.Fatalf("set running: %v", err)
	}

	next := m.GetNextBranch(state)
	if next != running {
		t.Fatalf("expected RUNNING branch to take priority, got %v", next)
	}

	if err := running.SetStatus(domain.StatusCompleted, time.Now()); err != nil {
		t.Fatalf("complete running: %v", err)
	}
	next = m.GetNextBranch(state)
	if next != pending {
		t.Fatalf("expected PENDING branch once no RUNNING remain, got %v", next)
	}
}

func TestManager_SplitBranchCompletesParentAndCopiesPapers(t *testing.T) {
	m := newTestManager()
	state := newTestState()
	parent := m.CreateBranch(state, "transformers", domain.ModeSearchSummarize, "", nil, 100000)
	parent.AccumulatedPapers["p1"] = paperDetails("p1", "A", 2020, 1, []string{"Biology"})
	parent.AccumulatedPapers["p2"] = paperDetails("p2", "B", 2020, 1, []string{"Chemistry"})
	parent.AccumulatedSummaries["p1"] = domain.ValidatedSummary{PaperID: "p1", SummaryText: "s1", Groundedness: 0.9}

	children, err := m.SplitBranch(state, parent, domain.StrategyByField, 2)
	if err != nil {
		t.Fatalf("split branch: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(children))
	}
	if parent.Status != domain.StatusCompleted {
		t.Fatalf("expected parent to complete after split, got %s", parent.Status)
	}
	for _, c := range children {
		if c.ParentBranchID != parent.ID {
			t.Fatalf("expected child parent_branch_id %s, got %s", parent.ID, c.ParentBranchID)
		}
		if state.Branches[c.ID] != c {
			t.Fatal("expected child registered in state")
		}
	}

	totalCopied := 0
	for _, c := range children {
		totalCopied += len(c.AccumulatedPapers)
	}
	if totalCopied != 2 {
		t.Fatalf("expected both papers copied exactly once across children, got %d", totalCopied)
	}
}

func TestManager_ApplySplitRecommendationDeduplicatesOverlap(t *testing.T) {
	m := newTestManager()
	state := newTestState()
	parent := m.CreateBranch(state, "transformers", domain.ModeSearchSummarize, "", nil, 100000)
	parent.AccumulatedPapers["p1"] = paperDetails("p1", "A", 2020, 1, nil)
	parent.AccumulatedPapers["p2"] = paperDetails("p2", "B", 2020, 1, nil)

	rec := domain.SplitRecommendation{
		Action:       domain.ActionSplit,
		NumBranches:  2,
		PaperGroups:  [][]string{{"p1", "p2"}, {"p2"}},
		GroupQueries: []string{"transformers (group A)", "transformers (group B)"},
		GroupLabels:  []string{"group A", "group B"},
		Criteria:     domain.CriteriaByTopic,
		Reasoning:    "split on overlapping relevance",
	}

	children, err := m.ApplySplitRecommendation(state, parent, rec)
	if err != nil {
		t.Fatalf("apply split recommendation: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(children))
	}
	if len(children[0].AccumulatedPapers) != 2 {
		t.Fatalf("expected first group to keep both papers, got %d", len(children[0].AccumulatedPapers))
	}
	if len(children[1].AccumulatedPapers) != 0 {
		t.Fatalf("expected second group's p2 dropped (earlier group wins), got %d", len(children[1].AccumulatedPapers))
	}
}

func TestManager_ApplySplitRecommendationRejectsNonSplitAction(t *testing.T) {
	m := newTestManager()
	state := newTestState()
	parent := m.CreateBranch(state, "q", domain.ModeSearchSummarize, "", nil, 100000)
	rec := domain.SplitRecommendation{Action: domain.ActionContinue}
	if _, err := m.ApplySplitRecommendation(state, parent, rec); err == nil {
		t.Fatal("expected error for a non-SPLIT recommendation")
	}
}

func TestManager_PruneBranchTransitionsToPruned(t *testing.T) {
	m := newTestManager()
	b := domain.NewBranch("b1", "q", domain.ModeSearchSummarize, "", nil, 100000, time.Now())
	if err := m.PruneBranch(b, "citation graph exhausted"); err != nil {
		t.Fatalf("prune branch: %v", err)
	}
	if b.Status != domain.StatusPruned {
		t.Fatalf("expected PRUNED, got %s", b.Status)
	}
}
