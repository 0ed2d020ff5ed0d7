package iteration

import (
	"context"
	"testing"
	"time"

	"go-litresearch/internal/domain"
	"go-litresearch/internal/halugate"
	"go-litresearch/internal/innerloop"
	"go-litresearch/internal/llm"
	"go-litresearch/internal/papers"
	"go-litresearch/internal/summarize"
)

func newTestIterationLoop(provider *papers.MockProvider, summarizerClient llm.ChatClient, gate halugate.Gate, cfg Config) *Loop {
	validator := summarize.NewValidator(summarizerClient, gate, 0, 0)
	hyp := summarize.NewHypothesisGenerator(summarizerClient)
	selector := innerloop.NewSelector(summarizerClient)
	inner := innerloop.NewLoop(provider, validator, hyp, selector, innerloop.DefaultConfig())
	return NewLoop(provider, validator, hyp, inner, NewEstimator(4.0), cfg)
}

func TestRunIteration_FirstIterationDelegatesToInnerLoop(t *testing.T) {
	provider := papers.NewMockProvider()
	provider.SearchResults = []domain.PaperRef{{PaperID: "p1", Title: "T1"}}
	provider.Details = map[string]domain.PaperDetails{
		"p1": {PaperRef: domain.PaperRef{PaperID: "p1", Title: "T1", Abstract: "content"}},
	}
	gate := halugate.NewMockGate(halugate.ValidateResult{Groundedness: 0.97, NLIContradictions: 0})
	l := newTestIterationLoop(provider, llm.NewMockClient("a summary"), gate, DefaultConfig())

	branch := domain.NewBranch("b1", "query", domain.ModeSearchSummarize, "", nil, 100000, time.Now())
	result, err := l.RunIteration(context.Background(), branch)
	if err != nil {
		t.Fatalf("run iteration: %v", err)
	}
	if result.IterationNumber != 1 {
		t.Fatalf("expected iteration 1, got %d", result.IterationNumber)
	}
	if len(result.Summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(result.Summaries))
	}
	if result.ContextTokensUsed == 0 {
		t.Fatal("expected non-zero context tokens used")
	}
}

func buildBranchAfterIteration1(t *testing.T, providerPaperID string) *domain.Branch {
	t.Helper()
	branch := domain.NewBranch("b1", "query", domain.ModeSearchSummarize, "", nil, 100000, time.Now())
	err := branch.AppendIteration(domain.IterationResult{
		IterationNumber: 1,
		PapersFound: []domain.PaperDetails{
			{PaperRef: domain.PaperRef{PaperID: providerPaperID, Title: "T1"}},
		},
		Timestamp: time.Now(),
	}, time.Now())
	if err != nil {
		t.Fatalf("append iteration 1: %v", err)
	}
	return branch
}

func TestRunIteration_SecondIterationExpandsFrontierSortedByCitationCount(t *testing.T) {
	provider := papers.NewMockProvider()
	provider.Citations = map[string][]domain.PaperRef{
		"p1": {
			{PaperID: "p2", Title: "low cited", CitationCount: 5},
			{PaperID: "p3", Title: "high cited", CitationCount: 50},
		},
	}
	provider.Details = map[string]domain.PaperDetails{
		"p2": {PaperRef: domain.PaperRef{PaperID: "p2", Title: "low cited", Abstract: "abs"}},
		"p3": {PaperRef: domain.PaperRef{PaperID: "p3", Title: "high cited", Abstract: "abs"}},
	}
	gate := halugate.NewMockGate(halugate.ValidateResult{Groundedness: 0.97})
	l := newTestIterationLoop(provider, llm.NewMockClient("a summary"), gate, DefaultConfig())

	branch := buildBranchAfterIteration1(t, "p1")
	result, err := l.RunIteration(context.Background(), branch)
	if err != nil {
		t.Fatalf("run iteration: %v", err)
	}
	if result.IterationNumber != 2 {
		t.Fatalf("expected iteration 2, got %d", result.IterationNumber)
	}
	if len(result.PapersFound) != 2 {
		t.Fatalf("expected 2 frontier papers, got %d", len(result.PapersFound))
	}
	if result.PapersFound[0].PaperID != "p3" {
		t.Fatalf("expected higher-cited paper first, got %s", result.PapersFound[0].PaperID)
	}
}

func TestRunIteration_FrontierExcludesAlreadyAccumulated(t *testing.T) {
	provider := papers.NewMockProvider()
	provider.Citations = map[string][]domain.PaperRef{
		"p1": {{PaperID: "p1", Title: "self-citation", CitationCount: 1}},
	}
	l := newTestIterationLoop(provider, llm.NewMockClient("x"), halugate.NewMockGate(), DefaultConfig())

	branch := buildBranchAfterIteration1(t, "p1")
	result, err := l.RunIteration(context.Background(), branch)
	if err != nil {
		t.Fatalf("run iteration: %v", err)
	}
	if !result.Empty() {
		t.Fatalf("expected empty frontier when all neighbours already accumulated, got %+v", result.PapersFound)
	}
}

func TestRunUntilThreshold_StopsOnEmptyFrontier(t *testing.T) {
	provider := papers.NewMockProvider()
	provider.SearchResults = []domain.PaperRef{{PaperID: "p1", Title: "T1"}}
	provider.Details = map[string]domain.PaperDetails{
		"p1": {PaperRef: domain.PaperRef{PaperID: "p1", Title: "T1", Abstract: "content"}},
	}
	// No citations registered for p1 -> iteration 2's frontier is empty.
	gate := halugate.NewMockGate(halugate.ValidateResult{Groundedness: 0.97})
	l := newTestIterationLoop(provider, llm.NewMockClient("a summary"), gate, DefaultConfig())

	branch := domain.NewBranch("b1", "query", domain.ModeSearchSummarize, "", nil, 100000, time.Now())
	if err := l.RunUntilThreshold(context.Background(), branch, 0.99); err != nil {
		t.Fatalf("run until threshold: %v", err)
	}
	if len(branch.Iterations) != 2 {
		t.Fatalf("expected exactly 2 iterations (1 productive, 1 empty-stop), got %d", len(branch.Iterations))
	}
	if !branch.Iterations[1].Empty() {
		t.Fatal("expected second iteration to be empty")
	}
}

func TestRunUntilThreshold_StopsAtMaxIterationsPerBranch(t *testing.T) {
	provider := papers.NewMockProvider()
	provider.SearchResults = []domain.PaperRef{{PaperID: "p1", Title: "T1"}}
	provider.Details = map[string]domain.PaperDetails{
		"p1": {PaperRef: domain.PaperRef{PaperID: "p1", Title: "T1", Abstract: "content"}},
	}
	provider.Citations = map[string][]domain.PaperRef{
		"p1": {{PaperID: "p2", Title: "T2", CitationCount: 1}},
	}
	provider.References = map[string][]domain.PaperRef{}
	gate := halugate.NewMockGate(halugate.ValidateResult{Groundedness: 0.97})

	cfg := DefaultConfig()
	cfg.MaxIterationsPerBranch = 1
	l := newTestIterationLoop(provider, llm.NewMockClient("a summary"), gate, cfg)

	branch := domain.NewBranch("b1", "query", domain.ModeSearchSummarize, "", nil, 100000, time.Now())
	if err := l.RunUntilThreshold(context.Background(), branch, 0.99); err != nil {
		t.Fatalf("run until threshold: %v", err)
	}
	if len(branch.Iterations) != 1 {
		t.Fatalf("expected exactly 1 iteration (max_iterations_per_branch=1), got %d", len(branch.Iterations))
	}
}
