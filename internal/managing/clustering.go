package managing

import (
	"sort"
	"strings"

	"go-litresearch/internal/domain"
)

// ClusterCriterion is the cluster_papers tool's criterion parameter
// (§4.6): distinct from both domain.SplitCriteria (the agent's own
// decision-output enum) and domain.SplitStrategy (the Splitter's
// materializing-split enum) — cluster_papers is read-only exploration, it
// never produces branches by itself.
type ClusterCriterion string

const (
	ClusterByTopic           ClusterCriterion = "topic"
	ClusterByMethodology     ClusterCriterion = "methodology"
	ClusterByTimePeriod      ClusterCriterion = "time_period"
	ClusterByApplication     ClusterCriterion = "application"
	ClusterByCitationNetwork ClusterCriterion = "citation_network"
)

// ClusterGroup is one bucket of a cluster_papers call.
type ClusterGroup struct {
	Label    string   `json:"label"`
	Count    int      `json:"count"`
	PaperIDs []string `json:"paper_ids"`
}

// clusterKeywords mirrors internal/branch's topic keyword heuristic
// (kept in sync deliberately rather than imported, since managing's
// cluster_papers is exploratory-only and must not depend on the
// materializing Splitter).
var clusterKeywords = []string{"survey", "theory", "experiment", "benchmark", "dataset", "framework"}

// ClusterPapers implements the five fixed clustering rules named in §4.6:
// topic -> keyword heuristic, methodology -> secondary field, time_period
// -> decade, application -> primary field, citation_network -> a citation
// co-occurrence placeholder (median-split, since the spec itself marks
// this rule as a placeholder).
func ClusterPapers(branch *domain.Branch, criterion ClusterCriterion) []ClusterGroup {
	papers := make([]domain.PaperDetails, 0, len(branch.AccumulatedPapers))
	for _, p := range branch.AccumulatedPapers {
		papers = append(papers, p)
	}
	sort.Slice(papers, func(i, j int) bool { return papers[i].PaperID < papers[j].PaperID })

	switch criterion {
	case ClusterByTopic:
		return bucketBy(papers, func(p domain.PaperDetails) string { return classifyKeyword(p.Title) })
	case ClusterByMethodology:
		return bucketBy(papers, func(p domain.PaperDetails) string { return fieldAt(p.FieldsOfStudy, 1) })
	case ClusterByTimePeriod:
		return bucketBy(papers, func(p domain.PaperDetails) string { return decadeLabel(p.Year) })
	case ClusterByApplication:
		return bucketBy(papers, func(p domain.PaperDetails) string { return fieldAt(p.FieldsOfStudy, 0) })
	case ClusterByCitationNetwork:
		return citationCoOccurrence(papers)
	default:
		return nil
	}
}

func bucketBy(papers []domain.PaperDetails, key func(domain.PaperDetails) string) []ClusterGroup {
	byLabel := map[string][]string{}
	var order []string
	for _, p := range papers {
		label := key(p)
		if _, ok := byLabel[label]; !ok {
			order = append(order, label)
		}
		byLabel[label] = append(byLabel[label], p.PaperID)
	}
	sort.Strings(order)
	groups := make([]ClusterGroup, len(order))
	for i, label := range order {
		groups[i] = ClusterGroup{Label: label, Count: len(byLabel[label]), PaperIDs: byLabel[label]}
	}
	return groups
}

func classifyKeyword(title string) string {
	lower := strings.ToLower(title)
	for _, kw := range clusterKeywords {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return "general"
}

func fieldAt(fields []string, idx int) string {
	if idx >= len(fields) {
		return "unknown"
	}
	return fields[idx]
}

func decadeLabel(year int) string {
	if year == 0 {
		return "unknown"
	}
	decade := (year / 10) * 10
	return itoa(decade) + "s"
}

// itoa avoids pulling in fmt for a single int conversion used by
// decadeLabel; kept tiny and local.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

// citationCoOccurrence is a placeholder rule (named as such in §4.6): it
// splits papers into "above-median" and "at-or-below-median" citation
// bands rather than any real co-citation graph analysis.
func citationCoOccurrence(papers []domain.PaperDetails) []ClusterGroup {
	if len(papers) == 0 {
		return nil
	}
	counts := make([]int, len(papers))
	for i, p := range papers {
		counts[i] = p.CitationCount
	}
	sorted := append([]int{}, counts...)
	sort.Ints(sorted)
	median := sorted[(len(sorted)-1)/2]

	var low, high []string
	for _, p := range papers {
		if p.CitationCount > median {
			high = append(high, p.PaperID)
		} else {
			low = append(low, p.PaperID)
		}
	}
	var groups []ClusterGroup
	if len(low) > 0 {
		groups = append(groups, ClusterGroup{Label: "at-or-below-median", Count: len(low), PaperIDs: low})
	}
	if len(high) > 0 {
		groups = append(groups, ClusterGroup{Label: "above-median", Count: len(high), PaperIDs: high})
	}
	return groups
}
