package iteration

import (
	"go-litresearch/internal/domain"
)

// defaultCharsPerToken is the char/4 ratio used when no exact tokenizer is
// configured (§4.3: "the estimator uses an exact tokenizer when available;
// otherwise a character-per-token ratio").
const defaultCharsPerToken = 4.0

// Estimator is the Context Estimator (§4.3). Grounded on
// context.Manager's estimateTokens helper, trimmed to the one operation
// the spec needs — no folding/compression subsystem is carried over.
type Estimator struct {
	charsPerToken float64
}

// NewEstimator builds an Estimator. A zero ratio falls back to 4.0.
func NewEstimator(charsPerToken float64) *Estimator {
	if charsPerToken <= 0 {
		charsPerToken = defaultCharsPerToken
	}
	return &Estimator{charsPerToken: charsPerToken}
}

// EstimateTokens approximates the token count of s.
func (e *Estimator) EstimateTokens(s string) int {
	if len(s) == 0 {
		return 0
	}
	return int(float64(len(s)) / e.charsPerToken)
}

// EstimatePapers sums the estimated token cost of the content (full text or
// abstract) presented to the LLM for each paper.
func (e *Estimator) EstimatePapers(ps []domain.PaperDetails) int {
	total := 0
	for _, p := range ps {
		total += e.EstimateTokens(p.Content())
	}
	return total
}

// EstimateSummaries sums the estimated token cost of accepted summary text.
func (e *Estimator) EstimateSummaries(summaries []domain.ValidatedSummary) int {
	total := 0
	for _, s := range summaries {
		total += e.EstimateTokens(s.SummaryText)
	}
	return total
}
