// Package innerloop implements the Inner Loop (§4.1): one atomic
// search -> select -> summarize -> validate cycle against a Paper
// Provider, gated by the Summarize/Validate groundedness check.
package innerloop

import (
	"context"
	"fmt"
	"log"
	"strings"

	"go-litresearch/internal/domain"
	"go-litresearch/internal/papers"
	"go-litresearch/internal/summarize"
)

// existingContextExcerptChars bounds the excerpt of each already-accepted
// summary shown to the selector as existing context.
const existingContextExcerptChars = 280

// Config holds the Inner Loop's tunable knobs (§4.1/§5), all with spec
// defaults.
type Config struct {
	CandidateFetchLimit         int
	MaxPapersPerIteration       int
	MaxSummarizationConcurrency int
	FetchFullText               bool
}

// DefaultConfig returns the spec §4.1 default knob values.
func DefaultConfig() Config {
	return Config{
		CandidateFetchLimit:         50,
		MaxPapersPerIteration:       20,
		MaxSummarizationConcurrency: 5,
		FetchFullText:               false,
	}
}

// Loop is the Inner Loop. Grounded on agents.SearchAgent.SearchWithWorkerNum
// for the overall stage shape (generate -> execute -> extract -> iterate),
// restructured to the spec's single-pass contract: the teacher's
// multi-iteration gap-filling belongs to the Iteration Loop here, not the
// Inner Loop.
type Loop struct {
	provider   papers.Provider
	validator  *summarize.Validator
	hypotheses *summarize.HypothesisGenerator
	selector   *Selector
	cfg        Config
}

func NewLoop(provider papers.Provider, validator *summarize.Validator, hypotheses *summarize.HypothesisGenerator, selector *Selector, cfg Config) *Loop {
	if cfg.CandidateFetchLimit <= 0 {
		cfg.CandidateFetchLimit = DefaultConfig().CandidateFetchLimit
	}
	if cfg.MaxPapersPerIteration <= 0 {
		cfg.MaxPapersPerIteration = DefaultConfig().MaxPapersPerIteration
	}
	if cfg.MaxSummarizationConcurrency <= 0 {
		cfg.MaxSummarizationConcurrency = DefaultConfig().MaxSummarizationConcurrency
	}
	return &Loop{
		provider:   provider,
		validator:  validator,
		hypotheses: hypotheses,
		selector:   selector,
		cfg:        cfg,
	}
}

// Run implements the §4.1 contract:
// run(query, branch_id, filters?, mode, paper_limit?, existing_summaries?) -> (papers, summaries, hypotheses?).
func (l *Loop) Run(
	ctx context.Context,
	query string,
	branchID string,
	filters *domain.Filters,
	mode domain.Mode,
	paperLimit int,
	existingSummaries []domain.ValidatedSummary,
) ([]domain.PaperDetails, []domain.ValidatedSummary, []domain.ResearchHypothesis, error) {
	if paperLimit <= 0 {
		paperLimit = l.cfg.MaxPapersPerIteration
	}

	// Stage 1: search.
	refs, err := l.provider.SearchPapers(ctx, query, filters, l.cfg.CandidateFetchLimit)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("inner loop search (branch %s): %w", branchID, err)
	}
	if len(refs) == 0 {
		return nil, nil, nil, nil
	}

	// Stage 2: detail fetch, falling back to the search-result record on
	// per-paper detail failure.
	candidates := l.fetchDetails(ctx, refs)

	// Stage 2b: optional full-text extraction, bounded the same as
	// summarization concurrency.
	if l.cfg.FetchFullText {
		l.fetchFullText(ctx, candidates)
	}

	// Stage 3: agent selection, skipped if candidates already fit the
	// working limit (§8 boundary: exactly at the limit still skips).
	working := candidates
	if len(candidates) > paperLimit {
		selected, err := l.selector.Select(ctx, candidates, buildExistingContext(existingSummaries), paperLimit)
		if err != nil {
			log.Printf("inner loop selection (branch %s): %v", branchID, err)
			selected = firstN(candidates, paperLimit)
		}
		working = selected
	}

	// Stage 4: summarize + validate, bounded parallelism.
	summaryResults := GatherWithLimit(ctx, working, l.cfg.MaxSummarizationConcurrency, func(ctx context.Context, p domain.PaperDetails) (*domain.ValidatedSummary, error) {
		s, err := l.validator.Summarize(ctx, p)
		if err != nil {
			log.Printf("inner loop summarize %s (branch %s): %v", p.PaperID, branchID, err)
			return nil, err
		}
		return s, nil
	})

	summaries := make([]domain.ValidatedSummary, 0, len(working))
	for _, s := range summaryResults {
		if s != nil {
			summaries = append(summaries, *s)
		}
	}

	// Stage 5: hypothesis generation, only in HYPOTHESIS mode.
	var hypotheses []domain.ResearchHypothesis
	if mode == domain.ModeHypothesis && l.hypotheses != nil {
		h, err := l.hypotheses.Generate(ctx, branchID, summaries)
		if err != nil {
			log.Printf("inner loop hypothesis generation (branch %s): %v", branchID, err)
		} else {
			hypotheses = h
		}
	}

	return working, summaries, hypotheses, nil
}

// fetchDetails requests detail records for the given refs, falling back to
// the bare search-result record for any ref the provider didn't resolve.
func (l *Loop) fetchDetails(ctx context.Context, refs []domain.PaperRef) []domain.PaperDetails {
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.PaperID
	}

	details, err := l.provider.FetchPapers(ctx, ids)
	if err != nil {
		log.Printf("inner loop detail fetch: %v", err)
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

// fetchFullText extracts PDF text in place for any candidate that has an
// open-access PDF URL but no full text yet.
func (l *Loop) fetchFullText(ctx context.Context, candidates []domain.PaperDetails) {
	texts := GatherWithLimit(ctx, candidates, l.cfg.MaxSummarizationConcurrency, func(ctx context.Context, p domain.PaperDetails) (string, error) {
		if p.OpenAccessPDFURL == "" || p.FullText != "" {
			return p.FullText, nil
		}
		text, err := l.provider.ExtractText(ctx, p.OpenAccessPDFURL)
		if err != nil {
			log.Printf("inner loop pdf extract %s: %v", p.PaperID, err)
			return "", nil
		}
		return text, nil
	})
	for i := range candidates {
		if texts[i] != "" {
			candidates[i].FullText = texts[i]
		}
	}
}

// buildExistingContext renders bounded excerpts of already-accepted
// summaries for the selector prompt (§4.1 step 3).
func buildExistingContext(summaries []domain.ValidatedSummary) string {
	if len(summaries) == 0 {
		return ""
	}
	var b strings.Builder
	for _, s := range summaries {
		text := s.SummaryText
		if len(text) > existingContextExcerptChars {
			text = text[:existingContextExcerptChars]
		}
		fmt.Fprintf(&b, "- [%s] %s\n", s.PaperID, text)
	}
	return b.String()
}
