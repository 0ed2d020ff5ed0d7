package iteration

import (
	"testing"

	"go-litresearch/internal/domain"
)

func TestEstimator_CharsPerTokenRatio(t *testing.T) {
	e := NewEstimator(4.0)
	if got := e.EstimateTokens("12345678"); got != 2 {
		t.Fatalf("expected 8 chars / 4.0 = 2 tokens, got %d", got)
	}
}

func TestEstimator_EmptyStringIsZero(t *testing.T) {
	e := NewEstimator(0)
	if got := e.EstimateTokens(""); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestEstimator_DefaultsToFourCharsPerToken(t *testing.T) {
	e := NewEstimator(0)
	if got := e.EstimateTokens("abcdefgh"); got != 2 {
		t.Fatalf("expected default 4.0 ratio, got %d", got)
	}
}

func TestEstimator_EstimatePapersSumsContent(t *testing.T) {
	e := NewEstimator(4.0)
	ps := []domain.PaperDetails{
		{PaperRef: domain.PaperRef{PaperID: "p1", Abstract: "12345678"}},
		{PaperRef: domain.PaperRef{PaperID: "p2"}, FullText: "1234"},
	}
	if got := e.EstimatePapers(ps); got != 3 {
		t.Fatalf("expected 2+1=3 tokens, got %d", got)
	}
}

func TestEstimator_EstimateSummariesSumsText(t *testing.T) {
	e := NewEstimator(4.0)
	summaries := []domain.ValidatedSummary{
		{PaperID: "p1", SummaryText: "12345678"},
	}
	if got := e.EstimateSummaries(summaries); got != 2 {
		t.Fatalf("expected 2 tokens, got %d", got)
	}
}
