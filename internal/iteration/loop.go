// Package iteration implements the Iteration Loop (§4.3): iteration 1
// delegates to the Inner Loop, iteration n>=2 expands the citation-graph
// frontier from the previous iteration's papers.
package iteration

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"go-litresearch/internal/domain"
	"go-litresearch/internal/innerloop"
	"go-litresearch/internal/papers"
	"go-litresearch/internal/summarize"
)

// Config holds the Iteration Loop's tunable knobs (§4.3/§5).
type Config struct {
	MaxCitationsPerPaper        int
	MaxReferencesPerPaper       int
	MaxPapersPerIteration       int
	MaxSummarizationConcurrency int
	FetchReferences             bool
	MaxIterationsPerBranch      int
}

// DefaultConfig returns sensible defaults for knobs the spec names but
// doesn't pin a number to (max_citations_per_paper, max_references_per_paper,
// max_iterations_per_branch).
func DefaultConfig() Config {
	return Config{
		MaxCitationsPerPaper:        20,
		MaxReferencesPerPaper:       20,
		MaxPapersPerIteration:       20,
		MaxSummarizationConcurrency: 5,
		FetchReferences:             true,
		MaxIterationsPerBranch:      10,
	}
}

// Loop is the Iteration Loop. Grounded on
// orchestrator.DeepOrchestrator.executeDAG's cancellation-aware polling
// shape, simplified to a single non-DAG frontier expansion per iteration.
type Loop struct {
	provider   papers.Provider
	validator  *summarize.Validator
	hypotheses *summarize.HypothesisGenerator
	innerLoop  *innerloop.Loop
	estimator  *Estimator
	cfg        Config
}

func NewLoop(provider papers.Provider, validator *summarize.Validator, hypotheses *summarize.HypothesisGenerator, inner *innerloop.Loop, estimator *Estimator, cfg Config) *Loop {
	d := DefaultConfig()
	if cfg.MaxCitationsPerPaper <= 0 {
		cfg.MaxCitationsPerPaper = d.MaxCitationsPerPaper
	}
	if cfg.MaxReferencesPerPaper <= 0 {
		cfg.MaxReferencesPerPaper = d.MaxReferencesPerPaper
	}
	if cfg.MaxPapersPerIteration <= 0 {
		cfg.MaxPapersPerIteration = d.MaxPapersPerIteration
	}
	if cfg.MaxSummarizationConcurrency <= 0 {
		cfg.MaxSummarizationConcurrency = d.MaxSummarizationConcurrency
	}
	if cfg.MaxIterationsPerBranch <= 0 {
		cfg.MaxIterationsPerBranch = d.MaxIterationsPerBranch
	}
	if estimator == nil {
		estimator = NewEstimator(0)
	}
	return &Loop{
		provider:   provider,
		validator:  validator,
		hypotheses: hypotheses,
		innerLoop:  inner,
		estimator:  estimator,
		cfg:        cfg,
	}
}

// nowFn is a seam for deterministic tests.
var nowFn = func() time.Time { return time.Now() }

// RunIteration implements the §4.3 contract: run_iteration(branch) -> IterationResult.
func (l *Loop) RunIteration(ctx context.Context, branch *domain.Branch) (domain.IterationResult, error) {
	iterNum := branch.NextIterationNumber()

	if iterNum == 1 {
		papersOut, summaries, hyps, err := l.innerLoop.Run(ctx, branch.Query, branch.ID, branch.Filters, branch.Mode, l.cfg.MaxPapersPerIteration, existingSummaries(branch))
		if err != nil {
			return domain.IterationResult{}, err
		}
		return l.buildResult(iterNum, papersOut, summaries, hyps), nil
	}

	prev := branch.Iterations[len(branch.Iterations)-1]
	prevIDs := make([]string, len(prev.PapersFound))
	for i, p := range prev.PapersFound {
		prevIDs[i] = p.PaperID
	}

	citations, err := l.provider.GetCitationsBatch(ctx, prevIDs, l.cfg.MaxCitationsPerPaper)
	if err != nil {
		log.Printf("iteration loop citations (branch %s): %v", branch.ID, err)
		citations = nil
	}

	var references map[string][]domain.PaperRef
	if l.cfg.FetchReferences {
		references, err = l.provider.GetReferencesBatch(ctx, prevIDs, l.cfg.MaxReferencesPerPaper)
		if err != nil {
			log.Printf("iteration loop references (branch %s): %v", branch.ID, err)
			references = nil
		}
	}

	frontier := mergeFrontier(citations, references, branch.AccumulatedPapers, l.cfg.MaxPapersPerIteration)
	if len(frontier) == 0 {
		return domain.IterationResult{IterationNumber: iterNum, Timestamp: nowFn()}, nil
	}

	candidates := l.fetchDetails(ctx, frontier)

	summaryResults := innerloop.GatherWithLimit(ctx, candidates, l.cfg.MaxSummarizationConcurrency, func(ctx context.Context, p domain.PaperDetails) (*domain.ValidatedSummary, error) {
		s, err := l.validator.Summarize(ctx, p)
		if err != nil {
			log.Printf("iteration loop summarize %s (branch %s): %v", p.PaperID, branch.ID, err)
			return nil, err
		}
		return s, nil
	})
	summaries := make([]domain.ValidatedSummary, 0, len(candidates))
	for _, s := range summaryResults {
		if s != nil {
			summaries = append(summaries, *s)
		}
	}

	var hyps []domain.ResearchHypothesis
	if branch.Mode == domain.ModeHypothesis && l.hypotheses != nil {
		h, err := l.hypotheses.Generate(ctx, branch.ID, summaries)
		if err != nil {
			log.Printf("iteration loop hypothesis generation (branch %s): %v", branch.ID, err)
		} else {
			hyps = h
		}
	}

	return l.buildResult(iterNum, candidates, summaries, hyps), nil
}

// RunUntilThreshold repeats RunIteration, appending each result to branch,
// until context_utilization clears ctxThreshold, an iteration finds no new
// papers, or max_iterations_per_branch is reached (§4.3).
func (l *Loop) RunUntilThreshold(ctx context.Context, branch *domain.Branch, ctxThreshold float64) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if branch.ContextUtilization() >= ctxThreshold {
			return nil
		}
		if len(branch.Iterations) >= l.cfg.MaxIterationsPerBranch {
			return nil
		}

		result, err := l.RunIteration(ctx, branch)
		if err != nil {
			return fmt.Errorf("run_until_threshold (branch %s): %w", branch.ID, err)
		}
		if err := branch.AppendIteration(result, nowFn()); err != nil {
			return err
		}
		if result.Empty() {
			return nil
		}
	}
}

func (l *Loop) buildResult(iterNum int, papersFound []domain.PaperDetails, summaries []domain.ValidatedSummary, hyps []domain.ResearchHypothesis) domain.IterationResult {
	tokens := l.estimator.EstimatePapers(papersFound) + l.estimator.EstimateSummaries(summaries)
	return domain.IterationResult{
		IterationNumber:   iterNum,
		PapersFound:       papersFound,
		Summaries:         summaries,
		Hypotheses:        hyps,
		ContextTokensUsed: tokens,
		Timestamp:         nowFn(),
	}
}

// fetchDetails mirrors innerloop.Loop.fetchDetails: request details for the
// frontier refs, falling back to the bare ref on a per-paper miss.
func (l *Loop) fetchDetails(ctx context.Context, refs []domain.PaperRef) []domain.PaperDetails {
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.PaperID
	}

	details, err := l.provider.FetchPapers(ctx, ids)
	if err != nil {
		log.Printf("iteration loop detail fetch: %v", err)
		details = nil
	}

	byID := make(map[string]domain.PaperDetails, len(details))
	for _, d := range details {
		byID[d.PaperID] = d
	}

	out := make([]domain.PaperDetails, len(refs))
	for i, r := range refs {
		if d, ok := byID[r.PaperID]; ok {
			out[i] = d
		} else {
			out[i] = domain.PaperDetails{PaperRef: r}
		}
	}
	return out
}

// mergeFrontier merges citing/referenced papers across the previous
// iteration's papers, drops anything already accumulated, dedupes, and
// keeps up to limit sorted by citation_count descending (§4.3).
func mergeFrontier(citationsByPaper, referencesByPaper map[string][]domain.PaperRef, accumulated map[string]domain.PaperDetails, limit int) []domain.PaperRef {
	seen := make(map[string]domain.PaperRef)
	addAll := func(byPaper map[string][]domain.PaperRef) {
		for _, refs := range byPaper {
			for _, r := range refs {
				if _, known := accumulated[r.PaperID]; known {
					continue
				}
				if _, dup := seen[r.PaperID]; dup {
					continue
				}
				seen[r.PaperID] = r
			}
		}
	}
	addAll(citationsByPaper)
	addAll(referencesByPaper)

	merged := make([]domain.PaperRef, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].CitationCount > merged[j].CitationCount
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func existingSummaries(branch *domain.Branch) []domain.ValidatedSummary {
	if len(branch.AccumulatedSummaries) == 0 {
		return nil
	}
	out := make([]domain.ValidatedSummary, 0, len(branch.AccumulatedSummaries))
	for _, s := range branch.AccumulatedSummaries {
		out = append(out, s)
	}
	return out
}
