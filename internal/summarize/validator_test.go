package summarize

import (
	"context"
	"strings"
	"testing"

	"go-litresearch/internal/domain"
	"go-litresearch/internal/halugate"
	"go-litresearch/internal/llm"
)

func paperWithAbstract(id, abstract string) domain.PaperDetails {
	return domain.PaperDetails{PaperRef: domain.PaperRef{PaperID: id, Title: "t-" + id, Abstract: abstract}}
}

func TestValidator_EmptyContentReturnsNil(t *testing.T) {
	v := NewValidator(llm.NewMockClient("summary"), halugate.NewMockGate(), 0, 0)
	got, err := v.Summarize(context.Background(), domain.PaperDetails{PaperRef: domain.PaperRef{PaperID: "p1"}})
	if err != nil || got != nil {
		t.Fatalf("expected nil,nil for empty content, got %v, %v", got, err)
	}
}

func TestValidator_AcceptsOnFirstAttemptWhenStrictAndNoContradictions(t *testing.T) {
	client := llm.NewMockClient("a strong summary")
	gate := halugate.NewMockGate(halugate.ValidateResult{Groundedness: 0.97, NLIContradictions: 0})

	v := NewValidator(client, gate, 0, 0)
	got, err := v.Summarize(context.Background(), paperWithAbstract("p1", "some abstract content"))
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got == nil || !got.Strict {
		t.Fatalf("expected strict-accepted summary, got %+v", got)
	}
}

func TestValidator_FallsBackToLooseAcceptanceAfterTwoAttempts(t *testing.T) {
	client := llm.NewMockClient("ok summary")
	gate := halugate.NewMockGate(
		halugate.ValidateResult{Groundedness: 0.80, NLIContradictions: 1},
		halugate.ValidateResult{Groundedness: 0.75, NLIContradictions: 0},
	)

	v := NewValidator(client, gate, 0, 0)
	got, err := v.Summarize(context.Background(), paperWithAbstract("p1", "content"))
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got == nil {
		t.Fatal("expected loose-accepted summary, got nil")
	}
	if got.Strict {
		t.Fatal("expected non-strict acceptance")
	}
}

func TestValidator_RejectsBelowLooseThreshold(t *testing.T) {
	client := llm.NewMockClient("weak summary")
	gate := halugate.NewMockGate(halugate.ValidateResult{Groundedness: 0.3})

	v := NewValidator(client, gate, 0, 0)
	got, err := v.Summarize(context.Background(), paperWithAbstract("p1", "content"))
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got != nil {
		t.Fatalf("expected rejection below loose threshold, got %+v", got)
	}
}

func TestValidator_SecondAttemptUsesStricterPrompt(t *testing.T) {
	client := llm.NewMockClient("first pass", "second pass")
	gate := halugate.NewMockGate(
		halugate.ValidateResult{Groundedness: 0.80},
		halugate.ValidateResult{Groundedness: 0.80},
	)
	v := NewValidator(client, gate, 0, 0)
	if _, err := v.Summarize(context.Background(), paperWithAbstract("p1", "content")); err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if len(client.Requests) != 2 {
		t.Fatalf("expected 2 LLM calls, got %d", len(client.Requests))
	}
	secondPrompt := client.Requests[1][0].Content
	if !strings.Contains(secondPrompt, "Only claims directly supported") {
		t.Fatalf("expected strict guidance in second-attempt prompt, got: %s", secondPrompt)
	}
}
