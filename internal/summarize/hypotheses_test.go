package summarize

import (
	"context"
	"testing"

	"go-litresearch/internal/domain"
	"go-litresearch/internal/llm"
)

func TestHypothesisGenerator_DropsHypothesesWithNoSupportingPaper(t *testing.T) {
	client := llm.NewMockClient(`[
		{"text": "well supported", "supporting_paper_ids": ["p1"], "confidence": 0.8},
		{"text": "unsupported", "supporting_paper_ids": ["unknown"], "confidence": 0.5},
		{"text": "", "supporting_paper_ids": ["p1"], "confidence": 0.5}
	]`)
	g := NewHypothesisGenerator(client)

	summaries := []domain.ValidatedSummary{{PaperID: "p1", PaperTitle: "T1", SummaryText: "s1"}}
	got, err := g.Generate(context.Background(), "branch1", summaries)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 valid hypothesis, got %d: %+v", len(got), got)
	}
	if got[0].Text != "well supported" || len(got[0].SupportingPaperIDs) != 1 {
		t.Fatalf("unexpected hypothesis: %+v", got[0])
	}
}

func TestHypothesisGenerator_EmptySummariesShortCircuits(t *testing.T) {
	client := llm.NewMockClient("should not be called")
	g := NewHypothesisGenerator(client)
	got, err := g.Generate(context.Background(), "branch1", nil)
	if err != nil || got != nil {
		t.Fatalf("expected nil,nil for no summaries, got %v, %v", got, err)
	}
	if len(client.Requests) != 0 {
		t.Fatal("expected no LLM call for empty summaries")
	}
}

func TestParseRawHypotheses_MalformedJSONReturnsNil(t *testing.T) {
	if got := parseRawHypotheses("not json at all"); got != nil {
		t.Fatalf("expected nil for malformed content, got %v", got)
	}
}
