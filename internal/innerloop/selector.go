package innerloop

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go-litresearch/internal/domain"
	"go-litresearch/internal/llm"
)

// abstractExcerptChars bounds how much of a candidate's abstract is shown
// in the selection prompt.
const abstractExcerptChars = 300

// Selector implements §4.1 step 3: agent-driven pruning of a candidate set
// to a working subset. Only invoked when the candidate count exceeds the
// working limit.
type Selector struct {
	llmClient llm.ChatClient
}

func NewSelector(llmClient llm.ChatClient) *Selector {
	return &Selector{llmClient: llmClient}
}

type selectionResponse struct {
	SelectedIndices []int  `json:"selected_indices"`
	Reasoning       string `json:"reasoning"`
}

// Select asks the summarizer LLM to name between 3 and maxPapers 1-based
// indices into candidates. Parsing tolerates fenced JSON and loose
// references like "paper 3"/"#5" (§4.1.3). If fewer than 3 valid indices
// survive parsing, or the LLM call itself fails, it falls back to the
// first maxPapers candidates.
func (s *Selector) Select(ctx context.Context, candidates []domain.PaperDetails, existingContext string, maxPapers int) ([]domain.PaperDetails, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	prompt := buildSelectionPrompt(candidates, existingContext, maxPapers)
	resp, err := s.llmClient.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, llm.CompleteOptions{
		Temperature: 0.2,
		MaxTokens:   512,
	})
	if err != nil {
		return firstN(candidates, maxPapers), nil
	}

	indices := parseSelectionIndices(resp.Content, len(candidates))
	if len(indices) < 3 {
		return firstN(candidates, maxPapers), nil
	}
	if len(indices) > maxPapers {
		indices = indices[:maxPapers]
	}

	out := make([]domain.PaperDetails, 0, len(indices))
	for _, idx := range indices {
		out = append(out, candidates[idx-1])
	}
	return out, nil
}

func buildSelectionPrompt(candidates []domain.PaperDetails, existingContext string, maxPapers int) string {
	var b strings.Builder
	b.WriteString("Select the most relevant papers to investigate next for this research branch.\n\n")
	if existingContext != "" {
		fmt.Fprintf(&b, "Already-accepted context:\n%s\n\n", existingContext)
	}
	b.WriteString("Candidates:\n")
	for i, c := range candidates {
		abstract := c.Abstract
		if len(abstract) > abstractExcerptChars {
			abstract = abstract[:abstractExcerptChars]
		}
		fmt.Fprintf(&b, "%d. %s (%d) - %s\n", i+1, c.Title, c.Year, abstract)
	}
	fmt.Fprintf(&b, "\nReturn JSON: {\"selected_indices\": [...], \"reasoning\": \"...\"} naming between 3 and %d indices.\n", maxPapers)
	return b.String()
}

var looseIndexRegex = regexp.MustCompile(`(?i)(?:paper\s*#?|#)\s*(\d+)`)

// parseSelectionIndices tries the structured JSON shape first, then falls
// back to loose "paper 3"/"#5" references anywhere in the text. Grounded
// on agents.parseStringArray/parseFactsArray's bracket-find idiom,
// extended with a regex fallback for the unstructured case the spec names.
func parseSelectionIndices(content string, numCandidates int) []int {
	if sel, ok := parseSelectionJSON(content); ok {
		return sanitizeIndices(sel.SelectedIndices, numCandidates)
	}

	var loose []int
	for _, m := range looseIndexRegex.FindAllStringSubmatch(content, -1) {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			loose = append(loose, n)
		}
	}
	return sanitizeIndices(loose, numCandidates)
}

func parseSelectionJSON(content string) (selectionResponse, bool) {
	body := content
	if idx := strings.Index(body, "```"); idx >= 0 {
		rest := strings.TrimPrefix(body[idx+3:], "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			body = rest[:end]
		}
	}

	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}") + 1
	if start < 0 || end <= start {
		return selectionResponse{}, false
	}

	var sel selectionResponse
	if err := json.Unmarshal([]byte(body[start:end]), &sel); err != nil {
		return selectionResponse{}, false
	}
	return sel, true
}

func sanitizeIndices(raw []int, numCandidates int) []int {
	seen := make(map[int]bool, len(raw))
	out := make([]int, 0, len(raw))
	for _, n := range raw {
		if n < 1 || n > numCandidates || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func firstN(items []domain.PaperDetails, n int) []domain.PaperDetails {
	if n <= 0 || n >= len(items) {
		return items
	}
	return items[:n]
}
