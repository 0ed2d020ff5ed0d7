// Package managing implements the Managing Agent (§4.6): the agentic
// tool-calling loop that decides, on every eligible evaluation, whether a
// branch should continue, split, or wrap up.
package managing

import (
	"sort"

	"go-litresearch/internal/domain"
)

// ContextStatus buckets a branch's context utilization into the
// qualitative labels the agent's prompt uses (§4.6 thresholds 0.70/0.80/0.90).
func ContextStatus(utilization float64) string {
	switch {
	case utilization >= 0.90:
		return "Critical"
	case utilization >= 0.80:
		return "High"
	case utilization >= 0.70:
		return "Moderate"
	default:
		return "Low"
	}
}

// IsStalled reports whether at least 2 of the last 3 iterations were empty
// (§4.6 "stall flag").
func IsStalled(branch *domain.Branch) bool {
	n := len(branch.Iterations)
	if n == 0 {
		return false
	}
	start := n - 3
	if start < 0 {
		start = 0
	}
	empty := 0
	for _, it := range branch.Iterations[start:] {
		if it.Empty() {
			empty++
		}
	}
	return empty >= 2
}

// PaperMiniRecord is one paper's compressed representation in the branch
// snapshot fed to the agent.
type PaperMiniRecord struct {
	PaperID      string   `json:"paper_id"`
	Title        string   `json:"title"`
	Year         int      `json:"year"`
	Citations    int      `json:"citations"`
	TopFields    []string `json:"top_fields"`
	SummaryExcer string   `json:"summary_excerpt,omitempty"`
}

// BranchSnapshot is the full input the Managing Agent reasons over (§4.6
// "Inputs").
type BranchSnapshot struct {
	BranchID          string            `json:"branch_id"`
	Query             string            `json:"query"`
	IterationCount    int               `json:"iteration_count"`
	PaperCount        int               `json:"paper_count"`
	ContextUtilization float64          `json:"context_utilization"`
	ContextStatus     string            `json:"context_status"`
	FieldHistogram    map[string]int    `json:"field_histogram"`
	YearRangeMin      int               `json:"year_range_min"`
	YearRangeMax      int               `json:"year_range_max"`
	Stalled           bool              `json:"stalled"`
	ParentBranchID    string            `json:"parent_branch_id,omitempty"`
	Papers            []PaperMiniRecord `json:"papers"`
}

const summaryExcerptChars = 200

// BuildSnapshot renders branch into the agent-facing snapshot shape.
func BuildSnapshot(branch *domain.Branch) BranchSnapshot {
	s := BranchSnapshot{
		BranchID:           branch.ID,
		Query:              branch.Query,
		IterationCount:     len(branch.Iterations),
		PaperCount:         len(branch.AccumulatedPapers),
		ContextUtilization: branch.ContextUtilization(),
		ContextStatus:      ContextStatus(branch.ContextUtilization()),
		FieldHistogram:     fieldHistogram(branch),
		Stalled:            IsStalled(branch),
		ParentBranchID:     branch.ParentBranchID,
	}
	s.YearRangeMin, s.YearRangeMax = yearRange(branch)

	ids := make([]string, 0, len(branch.AccumulatedPapers))
	for id := range branch.AccumulatedPapers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		p := branch.AccumulatedPapers[id]
		rec := PaperMiniRecord{
			PaperID:   p.PaperID,
			Title:     p.Title,
			Year:      p.Year,
			Citations: p.CitationCount,
			TopFields: topFields(p.FieldsOfStudy, 3),
		}
		if sum, ok := branch.AccumulatedSummaries[id]; ok {
			rec.SummaryExcer = excerpt(sum.SummaryText, summaryExcerptChars)
		}
		s.Papers = append(s.Papers, rec)
	}
	return s
}

func fieldHistogram(branch *domain.Branch) map[string]int {
	h := map[string]int{}
	for _, p := range branch.AccumulatedPapers {
		for _, f := range p.FieldsOfStudy {
			h[f]++
		}
	}
	return h
}

func yearRange(branch *domain.Branch) (int, int) {
	min, max := 0, 0
	first := true
	for _, p := range branch.AccumulatedPapers {
		if p.Year == 0 {
			continue
		}
		if first {
			min, max, first = p.Year, p.Year, false
			continue
		}
		if p.Year < min {
			min = p.Year
		}
		if p.Year > max {
			max = p.Year
		}
	}
	return min, max
}

func topFields(fields []string, n int) []string {
	if len(fields) <= n {
		return fields
	}
	return fields[:n]
}

func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
