package papers

import (
	"context"
	"strings"
	"sync"

	"go-litresearch/internal/domain"
)

// Strategy selects how CompositeProvider fans a search out across its
// sub-providers.
type Strategy string

const (
	StrategySingle   Strategy = "single"   // only the first sub-provider is queried
	StrategyParallel Strategy = "parallel" // all sub-providers queried, results merged and deduplicated
	StrategyFallback Strategy = "fallback" // sub-providers tried in order until one succeeds
)

// CompositeProvider composes N sub-providers behind one Provider, per §6.
type CompositeProvider struct {
	providers []Provider
	strategy  Strategy
}

// NewCompositeProvider builds a composite over the given sub-providers in
// priority order (used by StrategyFallback and as the StrategySingle pick).
func NewCompositeProvider(strategy Strategy, providers ...Provider) *CompositeProvider {
	return &CompositeProvider{providers: providers, strategy: strategy}
}

func (c *CompositeProvider) SearchPapers(ctx context.Context, query string, filters *domain.Filters, limit int) ([]domain.PaperRef, error) {
	switch c.strategy {
	case StrategySingle:
		if len(c.providers) == 0 {
			return nil, nil
		}
		return c.providers[0].SearchPapers(ctx, query, filters, limit)

	case StrategyFallback:
		var lastErr error
		for _, p := range c.providers {
			refs, err := p.SearchPapers(ctx, query, filters, limit)
			if err == nil {
				return refs, nil
			}
			lastErr = err
		}
		return nil, lastErr

	default: // StrategyParallel
		type result struct {
			refs []domain.PaperRef
			err  error
		}
		results := make(chan result, len(c.providers))
		var wg sync.WaitGroup
		for _, p := range c.providers {
			wg.Add(1)
			go func(p Provider) {
				defer wg.Done()
				refs, err := p.SearchPapers(ctx, query, filters, limit)
				results <- result{refs: refs, err: err}
			}(p)
		}
		go func() {
			wg.Wait()
			close(results)
		}()

		var merged []domain.PaperRef
		var lastErr error
		for res := range results {
			if res.err != nil {
				lastErr = res.err
				continue
			}
			merged = append(merged, res.refs...)
		}
		if len(merged) == 0 && lastErr != nil {
			return nil, lastErr
		}
		return dedupe(merged), nil
	}
}

// dedupe applies the §6 duplicate-detection rules, in order: same
// normalized arxiv_id, same doi, else title-similarity > 0.9 and same
// year and overlapping author set. Earlier entries win ties (first-seen
// kept).
func dedupe(refs []domain.PaperRef) []domain.PaperRef {
	var kept []domain.PaperRef
	for _, ref := range refs {
		if idx := findDuplicate(kept, ref); idx >= 0 {
			continue
		}
		kept = append(kept, ref)
	}
	return kept
}

func findDuplicate(kept []domain.PaperRef, candidate domain.PaperRef) int {
	candArxiv := normalizedExternalID(candidate, "arxiv_id")
	candDOI := normalizedExternalID(candidate, "doi")

	for i, k := range kept {
		if candArxiv != "" && candArxiv == normalizedExternalID(k, "arxiv_id") {
			return i
		}
		if candDOI != "" && candDOI == normalizedExternalID(k, "doi") {
			return i
		}
		if titleSimilarity(k.Title, candidate.Title) > 0.9 &&
			k.Year == candidate.Year && k.Year != 0 &&
			overlappingAuthors(k.Authors, candidate.Authors) {
			return i
		}
	}
	return -1
}

func normalizedExternalID(ref domain.PaperRef, key string) string {
	if ref.ExternalIDs == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(ref.ExternalIDs[key]))
}

func overlappingAuthors(a, b []domain.Author) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	names := make(map[string]bool, len(a))
	for _, author := range a {
		names[strings.ToLower(author.Name)] = true
	}
	for _, author := range b {
		if names[strings.ToLower(author.Name)] {
			return true
		}
	}
	return false
}

// titleSimilarity is a Jaccard token-overlap ratio, used as the dedup
// heuristic in place of a real string-distance library (the pack carries
// none for fuzzy title matching).
func titleSimilarity(a, b string) float64 {
	ta := tokenize(a)
	tb := tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	setB := make(map[string]bool, len(tb))
	for _, t := range tb {
		setB[t] = true
	}
	overlap := 0
	for _, t := range ta {
		if setB[t] {
			overlap++
		}
	}
	union := len(ta) + len(tb) - overlap
	if union == 0 {
		return 0
	}
	return float64(overlap) / float64(union)
}

func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	seen := make(map[string]bool, len(fields))
	var out []string
	for _, f := range fields {
		f = strings.Trim(f, ".,:;!?()\"'")
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func (c *CompositeProvider) FetchPapers(ctx context.Context, paperIDs []string) ([]domain.PaperDetails, error) {
	return c.primary().FetchPapers(ctx, paperIDs)
}

func (c *CompositeProvider) FetchPapersWithText(ctx context.Context, paperIDs []string) ([]domain.PaperDetails, error) {
	return c.primary().FetchPapersWithText(ctx, paperIDs)
}

func (c *CompositeProvider) ExtractText(ctx context.Context, pdfURL string) (string, error) {
	return c.primary().ExtractText(ctx, pdfURL)
}

func (c *CompositeProvider) GetCitations(ctx context.Context, paperID string, limit int) ([]domain.PaperRef, error) {
	return c.primary().GetCitations(ctx, paperID, limit)
}

func (c *CompositeProvider) GetReferences(ctx context.Context, paperID string, limit int) ([]domain.PaperRef, error) {
	return c.primary().GetReferences(ctx, paperID, limit)
}

func (c *CompositeProvider) GetCitationsBatch(ctx context.Context, paperIDs []string, limit int) (map[string][]domain.PaperRef, error) {
	return c.primary().GetCitationsBatch(ctx, paperIDs, limit)
}

func (c *CompositeProvider) GetReferencesBatch(ctx context.Context, paperIDs []string, limit int) (map[string][]domain.PaperRef, error) {
	return c.primary().GetReferencesBatch(ctx, paperIDs, limit)
}

// primary is the sub-provider fetch/extract/citation operations delegate
// to: these operations are keyed on a specific paper_id rather than a
// broad query, so parallel fan-out doesn't apply the way it does to search.
func (c *CompositeProvider) primary() Provider {
	return c.providers[0]
}
