package innerloop

import (
	"context"
	"testing"

	"go-litresearch/internal/domain"
	"go-litresearch/internal/llm"
)

func fiveCandidates() []domain.PaperDetails {
	out := make([]domain.PaperDetails, 5)
	for i := range out {
		out[i] = domain.PaperDetails{PaperRef: domain.PaperRef{PaperID: "p", Title: "T"}}
	}
	return out
}

func TestSelector_ParsesStructuredJSON(t *testing.T) {
	client := llm.NewMockClient(`{"selected_indices": [1, 3, 5], "reasoning": "most relevant"}`)
	s := NewSelector(client)

	got, err := s.Select(context.Background(), fiveCandidates(), "", 5)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 selected, got %d", len(got))
	}
}

func TestSelector_ParsesFencedJSON(t *testing.T) {
	client := llm.NewMockClient("Here is my pick:\n```json\n{\"selected_indices\": [2, 3, 4]}\n```\n")
	s := NewSelector(client)

	got, err := s.Select(context.Background(), fiveCandidates(), "", 5)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 selected from fenced JSON, got %d", len(got))
	}
}

func TestSelector_FallsBackToLooseReferences(t *testing.T) {
	client := llm.NewMockClient("I'd pick paper 1, paper 2, and #4 as most relevant.")
	s := NewSelector(client)

	got, err := s.Select(context.Background(), fiveCandidates(), "", 5)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 selected from loose references, got %d", len(got))
	}
}

func TestSelector_FewerThanThreeFallsBackToFirstN(t *testing.T) {
	client := llm.NewMockClient(`{"selected_indices": [1]}`)
	s := NewSelector(client)

	got, err := s.Select(context.Background(), fiveCandidates(), "", 3)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected fallback to first 3 candidates, got %d", len(got))
	}
}

func TestSelector_OutOfRangeIndicesAreDropped(t *testing.T) {
	client := llm.NewMockClient(`{"selected_indices": [1, 2, 99, 2]}`)
	s := NewSelector(client)

	got, err := s.Select(context.Background(), fiveCandidates(), "", 5)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	// out-of-range (99) and duplicate (2) dropped -> only [1, 2] remain, which
	// is fewer than 3 -> falls back to first 5.
	if len(got) != 5 {
		t.Fatalf("expected fallback to first 5 after dropping invalid indices, got %d", len(got))
	}
}

func TestSelector_LLMErrorFallsBackToFirstN(t *testing.T) {
	client := llm.NewMockClient("x")
	client.ChatErr = errBoom{}
	s := NewSelector(client)

	got, err := s.Select(context.Background(), fiveCandidates(), "", 2)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected fallback to first 2 candidates on LLM error, got %d", len(got))
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
