package branch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"

	"go-litresearch/internal/domain"
)

// Group is one output bucket of a Splitter.Split call: a label, refined
// query, and the paper IDs assigned to it.
type Group struct {
	Label    string
	Query    string
	PaperIDs []string
}

// topicKeywords is the keyword heuristic for BY_TOPIC, grounded on
// internal/planning/perspectives.go's lowercase-substring-matching idiom
// (there used to classify a perspective's name; here to classify a title).
var topicKeywords = []string{"survey", "theory", "experiment", "benchmark", "dataset", "framework"}

// Splitter implements §4.5: given a branch and a strategy, partition its
// accumulated papers into K groups, each with a label and refined query.
type Splitter struct{}

func NewSplitter() *Splitter { return &Splitter{} }

// Split runs strategy against branch.AccumulatedPapers. BY_CITATION_COUNT
// and RANDOM always return exactly numSplits groups, some of which may be
// empty. BY_FIELD, BY_TIME and BY_TOPIC return one group per distinct key,
// merged down to at most numSplits; they never split a key, so fewer
// distinct keys than numSplits yields fewer groups.
func (s *Splitter) Split(branch *domain.Branch, strategy domain.SplitStrategy, numSplits int) ([]Group, error) {
	if numSplits < 2 {
		return nil, domain.NewInvariantError("Splitter", "num_splits must be >= 2")
	}
	papers := sortedPapers(branch)
	if len(papers) == 0 {
		return nil, domain.NewInvariantError("Splitter", "cannot split a branch with no accumulated papers")
	}

	switch strategy {
	case domain.StrategyByField:
		return splitByField(branch.Query, papers, numSplits), nil
	case domain.StrategyByTime:
		return splitByTime(branch.Query, papers, numSplits), nil
	case domain.StrategyByCitationCount:
		return splitByCitationCount(branch.Query, papers, numSplits)
	case domain.StrategyByTopic:
		return splitByTopic(branch.Query, papers, numSplits), nil
	case domain.StrategyRandom:
		return splitRoundRobin(branch.Query, papers, numSplits), nil
	default:
		return nil, domain.NewInvariantError("Splitter", fmt.Sprintf("unknown split strategy %q", strategy))
	}
}

func sortedPapers(branch *domain.Branch) []domain.PaperDetails {
	out := make([]domain.PaperDetails, 0, len(branch.AccumulatedPapers))
	for _, p := range branch.AccumulatedPapers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaperID < out[j].PaperID })
	return out
}

func refineQuery(baseQuery, label string) string {
	return fmt.Sprintf("%s (%s)", baseQuery, label)
}

func toGroups(baseQuery string, labels []string, buckets [][]string) []Group {
	out := make([]Group, len(labels))
	for i, label := range labels {
		out[i] = Group{Label: label, Query: refineQuery(baseQuery, label), PaperIDs: buckets[i]}
	}
	return out
}

// mergeSmallestBuckets repeatedly combines the two smallest buckets (by
// paper count) until at most numSplits remain, per BY_FIELD/BY_TOPIC's
// "merge smallest keys until <= K buckets" rule.
func mergeSmallestBuckets(buckets [][]string, labels []string, numSplits int) ([][]string, []string) {
	for len(buckets) > numSplits {
		si, sj := twoSmallest(buckets)
		if si > sj {
			si, sj = sj, si
		}
		merged := append(append([]string{}, buckets[si]...), buckets[sj]...)
		mergedLabel := labels[si] + "+" + labels[sj]

		newBuckets := make([][]string, 0, len(buckets)-1)
		newLabels := make([]string, 0, len(labels)-1)
		for idx := range buckets {
			if idx == si || idx == sj {
				continue
			}
			newBuckets = append(newBuckets, buckets[idx])
			newLabels = append(newLabels, labels[idx])
		}
		newBuckets = append(newBuckets, merged)
		newLabels = append(newLabels, mergedLabel)
		buckets, labels = newBuckets, newLabels
	}
	return buckets, labels
}

func twoSmallest(buckets [][]string) (int, int) {
	type sizeIdx struct{ idx, size int }
	sizes := make([]sizeIdx, len(buckets))
	for i, b := range buckets {
		sizes[i] = sizeIdx{i, len(b)}
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i].size < sizes[j].size })
	return sizes[0].idx, sizes[1].idx
}

// splitByField buckets papers by their primary field of study, merging the
// smallest buckets together until at most numSplits remain.
func splitByField(baseQuery string, papers []domain.PaperDetails, numSplits int) []Group {
	bucketOf := map[string][]string{}
	var order []string
	for _, p := range papers {
		key := "unknown"
		if len(p.FieldsOfStudy) > 0 {
			key = p.FieldsOfStudy[0]
		}
		if _, ok := bucketOf[key]; !ok {
			order = append(order, key)
		}
		bucketOf[key] = append(bucketOf[key], p.PaperID)
	}
	sort.Strings(order)

	buckets := make([][]string, len(order))
	for i, k := range order {
		buckets[i] = bucketOf[k]
	}
	buckets, labels := mergeSmallestBuckets(buckets, order, numSplits)
	return toGroups(baseQuery, labels, buckets)
}

// splitByTime buckets papers into decades, merging the adjacent pair with
// the smallest combined size until at most numSplits decades remain.
func splitByTime(baseQuery string, papers []domain.PaperDetails, numSplits int) []Group {
	bucketOf := map[int][]string{}
	for _, p := range papers {
		decade := (p.Year / 10) * 10
		bucketOf[decade] = append(bucketOf[decade], p.PaperID)
	}
	decades := make([]int, 0, len(bucketOf))
	for d := range bucketOf {
		decades = append(decades, d)
	}
	sort.Ints(decades)

	for len(decades) > numSplits {
		bestIdx, bestSize := 0, -1
		for k := 0; k < len(decades)-1; k++ {
			size := len(bucketOf[decades[k]]) + len(bucketOf[decades[k+1]])
			if bestSize == -1 || size < bestSize {
				bestSize, bestIdx = size, k
			}
		}
		lo, hi := decades[bestIdx], decades[bestIdx+1]
		bucketOf[lo] = append(bucketOf[lo], bucketOf[hi]...)
		delete(bucketOf, hi)
		decades = append(decades[:bestIdx+1], decades[bestIdx+2:]...)
	}

	labels := make([]string, len(decades))
	buckets := make([][]string, len(decades))
	for i, d := range decades {
		labels[i] = fmt.Sprintf("%ds", d)
		buckets[i] = bucketOf[d]
	}
	return toGroups(baseQuery, labels, buckets)
}

// splitByCitationCount bands papers by citation_count percentile, using
// montanaflynn/stats.Percentile to compute the numSplits-1 internal
// thresholds.
func splitByCitationCount(baseQuery string, papers []domain.PaperDetails, numSplits int) ([]Group, error) {
	counts := make([]float64, len(papers))
	for i, p := range papers {
		counts[i] = float64(p.CitationCount)
	}
	data := stats.LoadRawData(counts)

	thresholds := make([]float64, numSplits-1)
	for i := 1; i < numSplits; i++ {
		pct := float64(i) / float64(numSplits) * 100
		v, err := stats.Percentile(data, pct)
		if err != nil {
			return nil, fmt.Errorf("citation-count percentile banding: %w", err)
		}
		thresholds[i-1] = v
	}

	labels := make([]string, numSplits)
	for i := range labels {
		switch {
		case numSplits == 1:
			labels[i] = "all citations"
		case i == 0:
			labels[i] = fmt.Sprintf("citations<=%.0f", thresholds[0])
		case i == numSplits-1:
			labels[i] = fmt.Sprintf("citations>%.0f", thresholds[len(thresholds)-1])
		default:
			labels[i] = fmt.Sprintf("citations(%.0f,%.0f]", thresholds[i-1], thresholds[i])
		}
	}

	buckets := make([][]string, numSplits)
	for _, p := range papers {
		band := bandFor(float64(p.CitationCount), thresholds)
		buckets[band] = append(buckets[band], p.PaperID)
	}
	return toGroups(baseQuery, labels, buckets), nil
}

func bandFor(v float64, thresholds []float64) int {
	for i, t := range thresholds {
		if v <= t {
			return i
		}
	}
	return len(thresholds)
}

// splitByTopic classifies each paper's title against a small keyword list
// and merges the smallest resulting buckets down to numSplits.
func splitByTopic(baseQuery string, papers []domain.PaperDetails, numSplits int) []Group {
	bucketOf := map[string][]string{}
	var order []string
	for _, p := range papers {
		key := classifyTopic(p.Title)
		if _, ok := bucketOf[key]; !ok {
			order = append(order, key)
		}
		bucketOf[key] = append(bucketOf[key], p.PaperID)
	}
	sort.Strings(order)

	buckets := make([][]string, len(order))
	for i, k := range order {
		buckets[i] = bucketOf[k]
	}
	buckets, labels := mergeSmallestBuckets(buckets, order, numSplits)
	return toGroups(baseQuery, labels, buckets)
}

func classifyTopic(title string) string {
	lower := strings.ToLower(title)
	for _, kw := range topicKeywords {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return "general"
}

// splitRoundRobin deals papers into numSplits groups in round-robin order.
func splitRoundRobin(baseQuery string, papers []domain.PaperDetails, numSplits int) []Group {
	buckets := make([][]string, numSplits)
	for i, p := range papers {
		idx := i % numSplits
		buckets[idx] = append(buckets[idx], p.PaperID)
	}
	labels := make([]string, numSplits)
	for i := range labels {
		labels[i] = fmt.Sprintf("group-%d", i+1)
	}
	return toGroups(baseQuery, labels, buckets)
}
