package domain

// Filters narrows a paper search. All fields are optional.
type Filters struct {
	Year             string // range string, e.g. "2018-2023"
	StartDate        string // ISO partial date
	EndDate          string // ISO partial date
	FieldsOfStudy    []string
	MinCitationCount int
	PublicationTypes []string
	OpenAccessOnly   bool
}

// SearchPlan is the optional output of a query planner.
type SearchPlan struct {
	KeyConcepts            []string
	TimeRangeStart          string
	TimeRangeEnd            string
	InitialPaperTarget      int
	DiversityDimensions     []string
	SaturationCriteria      []string
	SaturationThreshold     float64
	AlternativeQueries      []string
	ExclusionTerms          []string
	RequiredFieldsOfStudy   []string
}

// Validate enforces the SearchPlan invariants from §3.
func (p SearchPlan) Validate() error {
	if len(p.KeyConcepts) == 0 {
		return NewInvariantError("SearchPlan", "key_concepts must be non-empty")
	}
	if p.InitialPaperTarget < 1 {
		return NewInvariantError("SearchPlan", "initial_paper_target must be >= 1")
	}
	if p.SaturationThreshold < 0 || p.SaturationThreshold > 1 {
		return NewInvariantError("SearchPlan", "saturation_threshold must be in [0,1]")
	}
	return nil
}
