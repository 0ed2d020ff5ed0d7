package domain

import (
	"testing"
	"time"
)

func TestBranchAppendIteration_Contiguous(t *testing.T) {
	now := time.Now()
	b := NewBranch("b1", "transformers", ModeSearchSummarize, "", nil, 1000, now)

	if err := b.AppendIteration(IterationResult{IterationNumber: 1}, now); err != nil {
		t.Fatalf("first iteration should succeed: %v", err)
	}
	if err := b.AppendIteration(IterationResult{IterationNumber: 3}, now); err == nil {
		t.Fatal("expected error for non-contiguous iteration number")
	}
	if err := b.AppendIteration(IterationResult{IterationNumber: 2}, now); err != nil {
		t.Fatalf("second iteration should succeed: %v", err)
	}
}

func TestBranchAppendIteration_TerminalRejectsFurtherWork(t *testing.T) {
	now := time.Now()
	b := NewBranch("b1", "q", ModeSearchSummarize, "", nil, 1000, now)
	if err := b.SetStatus(StatusCompleted, now); err != nil {
		t.Fatalf("transition to completed: %v", err)
	}
	if err := b.AppendIteration(IterationResult{IterationNumber: 1}, now); err == nil {
		t.Fatal("expected error appending iteration to terminal branch")
	}
}

func TestBranchAppendIteration_AccumulatesAndCountsEmpty(t *testing.T) {
	now := time.Now()
	b := NewBranch("b1", "q", ModeSearchSummarize, "", nil, 1000, now)

	paper := PaperDetails{PaperRef: PaperRef{PaperID: "p1"}}
	summary := ValidatedSummary{PaperID: "p1", Groundedness: 0.9}

	if err := b.AppendIteration(IterationResult{
		IterationNumber:   1,
		PapersFound:       []PaperDetails{paper},
		Summaries:         []ValidatedSummary{summary},
		ContextTokensUsed: 50,
	}, now); err != nil {
		t.Fatalf("iteration 1: %v", err)
	}
	if len(b.AccumulatedPapers) != 1 || len(b.AccumulatedSummaries) != 1 {
		t.Fatalf("expected 1 accumulated paper and summary, got %d/%d", len(b.AccumulatedPapers), len(b.AccumulatedSummaries))
	}
	if b.ContextWindowUsed != 50 {
		t.Fatalf("expected context window used 50, got %d", b.ContextWindowUsed)
	}
	if b.ConsecutiveEmptyIterations != 0 {
		t.Fatalf("expected 0 consecutive empty iterations, got %d", b.ConsecutiveEmptyIterations)
	}

	if err := b.AppendIteration(IterationResult{IterationNumber: 2}, now); err != nil {
		t.Fatalf("iteration 2: %v", err)
	}
	if b.ConsecutiveEmptyIterations != 1 {
		t.Fatalf("expected 1 consecutive empty iteration, got %d", b.ConsecutiveEmptyIterations)
	}
	// accumulated_* unchanged by an empty iteration
	if len(b.AccumulatedPapers) != 1 {
		t.Fatalf("expected accumulated papers unchanged, got %d", len(b.AccumulatedPapers))
	}
}

func TestBranchAppendIteration_SummaryForUnknownPaperIsInvariantError(t *testing.T) {
	now := time.Now()
	b := NewBranch("b1", "q", ModeSearchSummarize, "", nil, 1000, now)
	err := b.AppendIteration(IterationResult{
		IterationNumber: 1,
		Summaries:       []ValidatedSummary{{PaperID: "unknown", Groundedness: 0.9}},
	}, now)
	if err == nil {
		t.Fatal("expected invariant error for summary referencing unknown paper")
	}
}

func TestModeTransition_ForwardOnly(t *testing.T) {
	if !CanTransitionMode(ModeSearchSummarize, ModeHypothesis) {
		t.Fatal("expected SEARCH_SUMMARIZE -> HYPOTHESIS to be legal")
	}
	if CanTransitionMode(ModeHypothesis, ModeSearchSummarize) {
		t.Fatal("expected HYPOTHESIS -> SEARCH_SUMMARIZE to be illegal")
	}
}

func TestBranchSetMode_RejectsIllegalTransition(t *testing.T) {
	now := time.Now()
	b := NewBranch("b1", "q", ModeHypothesis, "", nil, 1000, now)
	if err := b.SetMode(ModeSearchSummarize, now); err == nil {
		t.Fatal("expected error transitioning HYPOTHESIS -> SEARCH_SUMMARIZE")
	}
}

func TestBranchContextUtilization(t *testing.T) {
	now := time.Now()
	b := NewBranch("b1", "q", ModeSearchSummarize, "", nil, 1000, now)
	b.ContextWindowUsed = 800
	if got := b.ContextUtilization(); got != 0.8 {
		t.Fatalf("expected utilization 0.8, got %f", got)
	}
}

func TestValidatedSummary_Validate(t *testing.T) {
	tests := []struct {
		name      string
		s         ValidatedSummary
		wantError bool
	}{
		{"below loose threshold", ValidatedSummary{Groundedness: 0.5}, true},
		{"loose accepted, not strict", ValidatedSummary{Groundedness: 0.82}, false},
		{"strict marked but below strict bar", ValidatedSummary{Groundedness: 0.82, Strict: true}, true},
		{"strict accepted", ValidatedSummary{Groundedness: 0.97, Strict: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate(DefaultStrictThreshold, DefaultLooseThreshold)
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestSplitRecommendation_Validate(t *testing.T) {
	tests := []struct {
		name      string
		r         SplitRecommendation
		wantError bool
	}{
		{"continue needs no groups", SplitRecommendation{Action: ActionContinue}, false},
		{
			"split with mismatched groups",
			SplitRecommendation{Action: ActionSplit, NumBranches: 2, PaperGroups: [][]string{{"p1"}}},
			true,
		},
		{
			"split with matching groups",
			SplitRecommendation{
				Action:       ActionSplit,
				NumBranches:  2,
				PaperGroups:  [][]string{{"p1"}, {"p2"}},
				GroupQueries: []string{"q1", "q2"},
				GroupLabels:  []string{"l1", "l2"},
			},
			false,
		},
		{
			"split with fewer than 2 branches",
			SplitRecommendation{Action: ActionSplit, NumBranches: 1, PaperGroups: [][]string{{"p1"}}, GroupQueries: []string{"q1"}, GroupLabels: []string{"l1"}},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestLoopStateTotals(t *testing.T) {
	now := time.Now()
	s := NewLoopState("loop1", 1, nil, now)
	b1 := NewBranch("b1", "q1", ModeSearchSummarize, "", nil, 1000, now)
	b2 := NewBranch("b2", "q2", ModeSearchSummarize, "", nil, 1000, now)
	b1.AccumulatedPapers["p1"] = PaperDetails{PaperRef: PaperRef{PaperID: "p1"}}
	b1.AccumulatedPapers["p2"] = PaperDetails{PaperRef: PaperRef{PaperID: "p2"}}
	b2.AccumulatedPapers["p2"] = PaperDetails{PaperRef: PaperRef{PaperID: "p2"}} // shared paper
	b1.AccumulatedSummaries["p1"] = ValidatedSummary{PaperID: "p1"}
	s.Branches["b1"] = b1
	s.Branches["b2"] = b2

	if got := s.TotalPapers(); got != 2 {
		t.Fatalf("expected 2 unique papers, got %d", got)
	}
	if got := s.TotalSummaries(); got != 1 {
		t.Fatalf("expected 1 unique summary, got %d", got)
	}
}

func TestCreatePruneRoundTrip_NoOpOnTotals(t *testing.T) {
	now := time.Now()
	s := NewLoopState("loop1", 1, nil, now)
	b := NewBranch("b1", "q", ModeSearchSummarize, "", nil, 1000, now)
	s.Branches["b1"] = b
	before := s.TotalPapers()
	if err := b.SetStatus(StatusPruned, now); err != nil {
		t.Fatalf("prune: %v", err)
	}
	after := s.TotalPapers()
	if before != after {
		t.Fatalf("expected totals unchanged by prune, got %d -> %d", before, after)
	}
}
