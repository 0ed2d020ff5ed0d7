package halugate

import (
	"context"
	"strings"
)

// LocalGate is a standalone, dependency-free groundedness approximation
// used by the "local" HaluGate profile: it scores an answer by how much
// of its token vocabulary also appears in the source context. The pack
// carries no NLI/embedding library, so this is a lexical-overlap
// heuristic rather than a real entailment model — it is the mock-tier
// backend named in §6, not a production HaluGate.
type LocalGate struct{}

func NewLocalGate() *LocalGate { return &LocalGate{} }

func (g *LocalGate) Validate(ctx context.Context, contextText, question, answer string) (ValidateResult, error) {
	score := overlapRatio(contextText, answer)

	result := ValidateResult{
		Groundedness: score,
	}
	if score < 0.5 {
		result.HallucinationDetected = true
		result.FactCheckNeeded = true
		result.MaxSeverity = "high"
		result.Spans = append(result.Spans, Span{Text: answer, Severity: "high"})
	} else if score < 0.8 {
		result.FactCheckNeeded = true
		result.MaxSeverity = "low"
	}
	return result, nil
}

func (g *LocalGate) ComputeGroundedness(ctx context.Context, result ValidateResult, answer string) (float64, error) {
	return result.Groundedness, nil
}

func overlapRatio(contextText, answer string) float64 {
	contextTokens := tokenSet(contextText)
	answerTokens := tokenize(answer)
	if len(answerTokens) == 0 {
		return 0
	}
	covered := 0
	for _, t := range answerTokens {
		if contextTokens[t] {
			covered++
		}
	}
	return float64(covered) / float64(len(answerTokens))
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range tokenize(s) {
		set[t] = true
	}
	return set
}

func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,:;!?()\"'")
		if len(f) < 3 { // drop stopword-length noise
			continue
		}
		out = append(out, f)
	}
	return out
}
