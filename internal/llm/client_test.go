package llm

import (
	"context"
	"testing"
)

func TestMockClient_ChatReturnsScriptedResponsesInOrder(t *testing.T) {
	m := NewMockClient("first", "second")
	ctx := context.Background()

	r1, err := m.Chat(ctx, nil, CompleteOptions{})
	if err != nil || r1.Content != "first" {
		t.Fatalf("expected first response, got %v err=%v", r1, err)
	}
	r2, err := m.Chat(ctx, nil, CompleteOptions{})
	if err != nil || r2.Content != "second" {
		t.Fatalf("expected second response, got %v err=%v", r2, err)
	}
	// exhausted: repeats last response rather than panicking
	r3, err := m.Chat(ctx, nil, CompleteOptions{})
	if err != nil || r3.Content != "second" {
		t.Fatalf("expected repeated last response, got %v err=%v", r3, err)
	}
}

func TestMockClient_RecordsRequests(t *testing.T) {
	m := NewMockClient("ok")
	ctx := context.Background()
	messages := []Message{{Role: "user", Content: "hello"}}
	if _, err := m.Chat(ctx, messages, CompleteOptions{}); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(m.Requests) != 1 || m.Requests[0][0].Content != "hello" {
		t.Fatalf("expected recorded request, got %v", m.Requests)
	}
}
