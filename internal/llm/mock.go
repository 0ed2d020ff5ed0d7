package llm

import "context"

// MockClient is a scripted ToolClient for unit tests across the inner loop,
// summarizer, and managing agent packages. Grounded on the teacher's test
// fakes for agents.search/supervisor (a queue of canned responses consumed
// in call order).
type MockClient struct {
	model string

	ChatResponses []ChatResponse
	ChatErr       error
	chatCalls     int

	ToolResponses []ToolCompletion
	ToolErr       error
	toolCalls     int

	// Requests records every message slice passed to Chat/CompleteWithTools,
	// in call order, for assertions.
	Requests [][]Message
}

// NewMockClient returns a MockClient with the given canned plain-chat
// responses, returned in order and reused past the end of the slice.
func NewMockClient(responses ...string) *MockClient {
	m := &MockClient{model: DefaultModel}
	for _, r := range responses {
		m.ChatResponses = append(m.ChatResponses, ChatResponse{Content: r})
	}
	return m
}

func (m *MockClient) GetModel() string      { return m.model }
func (m *MockClient) SetModel(model string) { m.model = model }

func (m *MockClient) Chat(ctx context.Context, messages []Message, opts CompleteOptions) (*ChatResponse, error) {
	m.Requests = append(m.Requests, messages)
	if m.ChatErr != nil {
		return nil, m.ChatErr
	}
	if len(m.ChatResponses) == 0 {
		return &ChatResponse{Content: ""}, nil
	}
	idx := m.chatCalls
	if idx >= len(m.ChatResponses) {
		idx = len(m.ChatResponses) - 1
	}
	m.chatCalls++
	resp := m.ChatResponses[idx]
	return &resp, nil
}

func (m *MockClient) CompleteWithTools(ctx context.Context, messages []Message, tools []ToolSpec, opts CompleteOptions) (*ToolCompletion, error) {
	m.Requests = append(m.Requests, messages)
	if m.ToolErr != nil {
		return nil, m.ToolErr
	}
	if len(m.ToolResponses) == 0 {
		return &ToolCompletion{Content: "", StopReason: "stop"}, nil
	}
	idx := m.toolCalls
	if idx >= len(m.ToolResponses) {
		idx = len(m.ToolResponses) - 1
	}
	m.toolCalls++
	resp := m.ToolResponses[idx]
	return &resp, nil
}
