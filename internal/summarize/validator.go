// Package summarize implements the summarize-and-validate algorithm (§4.2):
// generate a summary from a paper's content, gate it through HaluGate, and
// retry once with stricter guidance before falling back to a looser
// acceptance bar.
package summarize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-litresearch/internal/domain"
	"go-litresearch/internal/halugate"
	"go-litresearch/internal/llm"
)

// maxContextChars truncates paper content before prompting, per §4.2.
const maxContextChars = 30000

// Validator is the Summarize/Validate stage. Grounded on
// agents.AnalysisAgent's shape (LLM call, then structure the result), but
// the judgement itself is delegated to halugate.Gate rather than decided
// in-process.
type Validator struct {
	llmClient       llm.ChatClient
	gate            halugate.Gate
	strictThreshold float64
	looseThreshold  float64
}

// NewValidator builds a Validator. Zero thresholds fall back to the spec
// defaults (0.95 strict, 0.70 loose).
func NewValidator(llmClient llm.ChatClient, gate halugate.Gate, strictThreshold, looseThreshold float64) *Validator {
	if strictThreshold == 0 {
		strictThreshold = domain.DefaultStrictThreshold
	}
	if looseThreshold == 0 {
		looseThreshold = domain.DefaultLooseThreshold
	}
	return &Validator{
		llmClient:       llmClient,
		gate:            gate,
		strictThreshold: strictThreshold,
		looseThreshold:  looseThreshold,
	}
}

// Summarize runs the two-attempt summarize-and-validate algorithm for one
// paper. It returns (nil, nil) when no summary clears the loose threshold
// — this is the §4.2 "return null" path, not an error.
func (v *Validator) Summarize(ctx context.Context, paper domain.PaperDetails) (*domain.ValidatedSummary, error) {
	content := paper.Content()
	if content == "" {
		return nil, nil
	}
	if len(content) > maxContextChars {
		content = content[:maxContextChars]
	}

	var best *domain.ValidatedSummary
	var bestGroundedness float64

	for attempt := 1; attempt <= 2; attempt++ {
		prompt := buildPrompt(paper, content, attempt)

		resp, err := v.llmClient.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, llm.CompleteOptions{
			Temperature: 0.3,
			MaxTokens:   1024,
		})
		if err != nil {
			return nil, fmt.Errorf("summarizer chat (attempt %d): %w", attempt, err)
		}
		summaryText := strings.TrimSpace(resp.Content)
		if summaryText == "" {
			continue
		}

		question := fmt.Sprintf("Summarize the paper %q", paper.Title)
		validated, err := v.gate.Validate(ctx, content, question, summaryText)
		if err != nil {
			return nil, fmt.Errorf("halugate validate (attempt %d): %w", attempt, err)
		}

		if validated.Groundedness > bestGroundedness || best == nil {
			bestGroundedness = validated.Groundedness
			best = &domain.ValidatedSummary{
				PaperID:      paper.PaperID,
				PaperTitle:   paper.Title,
				SummaryText:  summaryText,
				Groundedness: validated.Groundedness,
				Timestamp:    now(),
			}
		}

		if validated.Groundedness >= v.strictThreshold && validated.NLIContradictions == 0 {
			best.Strict = true
			return best, nil
		}
	}

	if best != nil && bestGroundedness >= v.looseThreshold {
		best.Strict = bestGroundedness >= v.strictThreshold
		return best, nil
	}
	return nil, nil
}

func buildPrompt(paper domain.PaperDetails, content string, attempt int) string {
	var b strings.Builder
	if attempt >= 2 {
		b.WriteString("Only claims directly supported by the provided content. Prefer omission over speculation.\n\n")
	}
	fmt.Fprintf(&b, "Title: %s\n", paper.Title)
	if paper.Venue != "" {
		fmt.Fprintf(&b, "Venue: %s\n", paper.Venue)
	}
	if paper.Year != 0 {
		fmt.Fprintf(&b, "Year: %d\n", paper.Year)
	}
	b.WriteString("\nContent:\n")
	b.WriteString(content)
	b.WriteString("\n\nWrite a concise, accurate summary of this paper's contribution and findings.")
	return b.String()
}

// now is a seam for deterministic tests; production code always uses
// time.Now.
var now = func() time.Time { return time.Now() }
