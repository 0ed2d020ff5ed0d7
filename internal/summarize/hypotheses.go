package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go-litresearch/internal/domain"
	"go-litresearch/internal/llm"
)

// HypothesisGenerator implements §4.1 step 5: present accepted summaries to
// the summarizer and expect a list of candidate hypotheses, each linked to
// at least one supporting paper.
type HypothesisGenerator struct {
	llmClient llm.ChatClient
}

func NewHypothesisGenerator(llmClient llm.ChatClient) *HypothesisGenerator {
	return &HypothesisGenerator{llmClient: llmClient}
}

type rawHypothesis struct {
	Text               string   `json:"text"`
	SupportingPaperIDs []string `json:"supporting_paper_ids"`
	Confidence         float64  `json:"confidence"`
}

// Generate asks the summarizer for hypotheses grounded in the given
// summaries, dropping any candidate that names no supporting paper (§3
// ResearchHypothesis invariant).
func (g *HypothesisGenerator) Generate(ctx context.Context, branchID string, summaries []domain.ValidatedSummary) ([]domain.ResearchHypothesis, error) {
	if len(summaries) == 0 {
		return nil, nil
	}

	var summaryText strings.Builder
	for _, s := range summaries {
		fmt.Fprintf(&summaryText, "[%s] %s\n%s\n\n", s.PaperID, s.PaperTitle, s.SummaryText)
	}

	prompt := fmt.Sprintf(`Based on the following paper summaries, propose candidate research hypotheses
that connect findings across multiple papers where possible.

%s

Return a JSON array:
[
  {"text": "hypothesis statement", "supporting_paper_ids": ["id1", "id2"], "confidence": 0.7}
]
Every hypothesis must name at least one supporting_paper_id from the summaries above.
Return an empty array if no well-supported hypothesis emerges.`, summaryText.String())

	resp, err := g.llmClient.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, llm.CompleteOptions{Temperature: 0.5, MaxTokens: 1024})
	if err != nil {
		return nil, fmt.Errorf("hypothesis generation chat: %w", err)
	}

	raws := parseRawHypotheses(resp.Content)
	knownPapers := make(map[string]bool, len(summaries))
	for _, s := range summaries {
		knownPapers[s.PaperID] = true
	}

	out := make([]domain.ResearchHypothesis, 0, len(raws))
	for i, r := range raws {
		var supporting []string
		for _, id := range r.SupportingPaperIDs {
			if knownPapers[id] {
				supporting = append(supporting, id)
			}
		}
		if len(supporting) == 0 || strings.TrimSpace(r.Text) == "" {
			continue
		}
		out = append(out, domain.ResearchHypothesis{
			ID:                 fmt.Sprintf("%s-hyp-%d", branchID, i+1),
			Text:               r.Text,
			SupportingPaperIDs: supporting,
			Confidence:         r.Confidence,
			SourceBranchID:     branchID,
			Timestamp:          time.Now(),
		})
	}
	return out, nil
}

// parseRawHypotheses extracts the JSON array from LLM response text,
// grounded on agents.parseValidatedFacts's bracket-find idiom.
func parseRawHypotheses(content string) []rawHypothesis {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]") + 1
	if start < 0 || end <= start {
		return nil
	}
	var raws []rawHypothesis
	if err := json.Unmarshal([]byte(content[start:end]), &raws); err != nil {
		return nil
	}
	return raws
}
