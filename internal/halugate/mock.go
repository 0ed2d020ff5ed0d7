package halugate

import "context"

// MockGate is a scripted Gate for unit tests across internal/summarize and
// internal/innerloop.
type MockGate struct {
	Results   []ValidateResult
	Err       error
	callCount int

	// Calls records every (context, question, answer) triple passed to
	// Validate, in order, for assertions.
	Calls []struct{ Context, Question, Answer string }
}

func NewMockGate(results ...ValidateResult) *MockGate {
	return &MockGate{Results: results}
}

func (g *MockGate) Validate(ctx context.Context, contextText, question, answer string) (ValidateResult, error) {
	g.Calls = append(g.Calls, struct{ Context, Question, Answer string }{contextText, question, answer})
	if g.Err != nil {
		return ValidateResult{}, g.Err
	}
	if len(g.Results) == 0 {
		return ValidateResult{Groundedness: 1.0}, nil
	}
	idx := g.callCount
	if idx >= len(g.Results) {
		idx = len(g.Results) - 1
	}
	g.callCount++
	return g.Results[idx], nil
}

func (g *MockGate) ComputeGroundedness(ctx context.Context, result ValidateResult, answer string) (float64, error) {
	return result.Groundedness, nil
}

var (
	_ Gate = (*LocalGate)(nil)
	_ Gate = (*HTTPGate)(nil)
	_ Gate = (*MockGate)(nil)
)
