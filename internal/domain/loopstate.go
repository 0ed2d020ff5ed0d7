package domain

import "time"

// LoopState is one top-level run: a collection of branches plus any
// loop-level hypotheses, optionally seeded from a prior loop's hypotheses.
type LoopState struct {
	LoopID            string
	LoopNumber        int
	SessionFilters    *Filters
	Branches          map[string]*Branch
	Hypotheses        []ResearchHypothesis
	SeedingHypotheses []ResearchHypothesis // populated when LoopNumber >= 2
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewLoopState constructs an empty loop state.
func NewLoopState(loopID string, loopNumber int, sessionFilters *Filters, now time.Time) *LoopState {
	return &LoopState{
		LoopID:         loopID,
		LoopNumber:     loopNumber,
		SessionFilters: sessionFilters,
		Branches:       make(map[string]*Branch),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// TotalPapers is the cardinality of the union of accumulated_papers keys
// across all branches (§8 invariant 6).
func (s *LoopState) TotalPapers() int {
	seen := make(map[string]bool)
	for _, b := range s.Branches {
		for id := range b.AccumulatedPapers {
			seen[id] = true
		}
	}
	return len(seen)
}

// TotalSummaries is the cardinality of the union of accumulated_summaries
// keys across all branches.
func (s *LoopState) TotalSummaries() int {
	seen := make(map[string]bool)
	for _, b := range s.Branches {
		for id := range b.AccumulatedSummaries {
			seen[id] = true
		}
	}
	return len(seen)
}

// ActiveBranches returns branches in PENDING or RUNNING status.
func (s *LoopState) ActiveBranches() []*Branch {
	var out []*Branch
	for _, b := range s.Branches {
		if b.Status == StatusPending || b.Status == StatusRunning {
			out = append(out, b)
		}
	}
	return out
}

// SplitAction is the Managing Agent's recommended action for a branch.
type SplitAction string

const (
	ActionContinue SplitAction = "CONTINUE"
	ActionSplit    SplitAction = "SPLIT"
	ActionWrapUp   SplitAction = "WRAP_UP"
)

// SplitCriteria enumerates the grouping strategies a split can use.
type SplitCriteria string

const (
	CriteriaByTopic                SplitCriteria = "BY_TOPIC"
	CriteriaByMethodology          SplitCriteria = "BY_METHODOLOGY"
	CriteriaByTimePeriod           SplitCriteria = "BY_TIME_PERIOD"
	CriteriaByApplication          SplitCriteria = "BY_APPLICATION"
	CriteriaByTheoreticalFramework SplitCriteria = "BY_THEORETICAL_FRAMEWORK"
	CriteriaByDataType             SplitCriteria = "BY_DATA_TYPE"
	CriteriaCustom                 SplitCriteria = "CUSTOM"
)

// SplitStrategy is the Branch Manager's deterministic grouping strategy for
// split_branch(branch, strategy, num_splits) (§4.4/§4.5) — distinct from
// SplitCriteria, which tags a Managing-Agent-authored SplitRecommendation
// whose paper groups the agent has already chosen by hand.
type SplitStrategy string

const (
	StrategyByField         SplitStrategy = "BY_FIELD"
	StrategyByTime          SplitStrategy = "BY_TIME"
	StrategyByCitationCount SplitStrategy = "BY_CITATION_COUNT"
	StrategyByTopic         SplitStrategy = "BY_TOPIC"
	StrategyRandom          SplitStrategy = "RANDOM"
)

// SplitRecommendation is the Managing Agent's decision about a branch.
type SplitRecommendation struct {
	Action         SplitAction
	NumBranches    int
	PaperGroups    [][]string
	GroupQueries   []string
	GroupLabels    []string
	Criteria       SplitCriteria
	Reasoning      string
	ContextWarning string
}

// Validate enforces the SplitRecommendation invariant from §3: when
// Action is SPLIT, the three per-group lists must be the same length as
// NumBranches >= 2.
func (r SplitRecommendation) Validate() error {
	if r.Action != ActionSplit {
		return nil
	}
	if r.NumBranches < 2 {
		return NewInvariantError("SplitRecommendation", "num_branches must be >= 2 for SPLIT")
	}
	if len(r.PaperGroups) != r.NumBranches || len(r.GroupQueries) != r.NumBranches || len(r.GroupLabels) != r.NumBranches {
		return NewInvariantError("SplitRecommendation", "paper_groups/group_queries/group_labels must each have num_branches entries")
	}
	return nil
}
