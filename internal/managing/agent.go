package managing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go-litresearch/internal/domain"
	"go-litresearch/internal/llm"
)

// Config holds the Managing Agent's tunable knobs (§4.6).
type Config struct {
	MinPapersBeforeEvaluation int
	EvaluationInterval        int
	MaxTurns                  int
}

// DefaultConfig returns the spec §4.6 default knob values.
func DefaultConfig() Config {
	return Config{MinPapersBeforeEvaluation: 5, EvaluationInterval: 2, MaxTurns: 5}
}

// Decision is the Managing Agent's output for one evaluation: a
// SplitRecommendation in all but name (§4.6 "Output").
type Decision struct {
	Action         domain.SplitAction
	Reasoning      string
	ContextWarning string
	Split          *domain.SplitRecommendation
}

// Agent is the Managing Agent: an agentic tool-calling loop over a
// reasoning LLM, grounded on agents.SupervisorAgent.Coordinate's
// system-prompt-once/turn-loop/terminal-tool shape, with the tool
// registry narrowed to the three fixed tools of §4.6.
type Agent struct {
	client llm.ToolClient
	cfg    Config
}

func NewAgent(client llm.ToolClient, cfg Config) *Agent {
	d := DefaultConfig()
	if cfg.MinPapersBeforeEvaluation <= 0 {
		cfg.MinPapersBeforeEvaluation = d.MinPapersBeforeEvaluation
	}
	if cfg.EvaluationInterval <= 0 {
		cfg.EvaluationInterval = d.EvaluationInterval
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = d.MaxTurns
	}
	return &Agent{client: client, cfg: cfg}
}

// ShouldEvaluate implements §4.6's eligibility gate: the agent only
// evaluates once min_papers_before_evaluation is met, then once every
// evaluation_interval iterations. A Master-forced evaluation overrides both
// the floor and the interval; an empty last iteration (with at least 2
// iterations) overrides only the interval.
func (a *Agent) ShouldEvaluate(branch *domain.Branch, forcedByMaster bool) bool {
	if forcedByMaster {
		return true
	}
	if len(branch.AccumulatedPapers) < a.cfg.MinPapersBeforeEvaluation {
		return false
	}
	n := len(branch.Iterations)
	if n >= 2 && branch.Iterations[n-1].Empty() {
		return true
	}
	if n == 0 {
		return false
	}
	return n%a.cfg.EvaluationInterval == 0
}

// Decide runs the agentic tool loop for one branch evaluation. contextWarning
// is the Branch Manager's advisory string (possibly empty) carried into the
// prompt as context, never as a forced action (§4.6 "Guardrail semantics").
func (a *Agent) Decide(ctx context.Context, branch *domain.Branch, state *domain.LoopState, contextWarning string) (Decision, error) {
	messages := []llm.Message{{Role: "user", Content: a.buildInitialPrompt(branch, contextWarning)}}

	for turn := 0; turn < a.cfg.MaxTurns; turn++ {
		resp, err := a.client.CompleteWithTools(ctx, messages, toolSpecs, llm.CompleteOptions{
			System:      managingAgentSystemPrompt,
			Temperature: 0.2,
			MaxTokens:   1024,
		})
		if err != nil {
			return Decision{}, fmt.Errorf("managing agent turn %d: %w", turn, err)
		}

		calls := llm.MergeToolCalls(resp.ToolCalls, resp.Content)
		if len(calls) == 0 {
			break
		}
		messages = append(messages, llm.Message{Role: "assistant", Content: resp.Content})

		for _, call := range calls {
			if call.Name == "make_branch_decision" {
				return a.parseDecision(call, contextWarning)
			}
		}

		var toolResults strings.Builder
		for _, call := range calls {
			toolResults.WriteString(a.executeTool(branch, state, call))
			toolResults.WriteString("\n")
		}
		messages = append(messages, llm.Message{Role: "user", Content: toolResults.String()})
	}

	return Decision{
		Action:         domain.ActionContinue,
		Reasoning:      "no decision reached within max_turns, defaulting to continue",
		ContextWarning: contextWarning,
	}, nil
}

const managingAgentSystemPrompt = "You manage one branch of a literature research loop. " +
	"Use cluster_papers and get_branch_context to understand the branch, then call " +
	"make_branch_decision exactly once with continue, split, or wrap_up."

func (a *Agent) buildInitialPrompt(branch *domain.Branch, contextWarning string) string {
	snap := BuildSnapshot(branch)
	body, _ := json.Marshal(snap)
	var sb strings.Builder
	sb.WriteString("Evaluate this branch and decide its next action.\n")
	sb.WriteString(string(body))
	if contextWarning != "" {
		sb.WriteString("\ncontext_warning: ")
		sb.WriteString(contextWarning)
	}
	return sb.String()
}

func (a *Agent) executeTool(branch *domain.Branch, state *domain.LoopState, call llm.ToolCall) string {
	switch call.Name {
	case "cluster_papers":
		criterion, _ := call.Input["criterion"].(string)
		groups := ClusterPapers(branch, ClusterCriterion(criterion))
		body, _ := json.Marshal(groups)
		return string(body)
	case "get_branch_context":
		includeSiblings, _ := call.Input["include_siblings"].(bool)
		out := struct {
			Branch   BranchSnapshot   `json:"branch"`
			Siblings []BranchSnapshot `json:"siblings,omitempty"`
		}{Branch: BuildSnapshot(branch)}
		if includeSiblings && state != nil {
			out.Siblings = siblingSnapshots(branch, state)
		}
		body, _ := json.Marshal(out)
		return string(body)
	default:
		return fmt.Sprintf(`{"error": "unknown tool %q"}`, call.Name)
	}
}

func siblingSnapshots(branch *domain.Branch, state *domain.LoopState) []BranchSnapshot {
	if branch.ParentBranchID == "" {
		return nil
	}
	var out []BranchSnapshot
	for _, b := range state.Branches {
		if b.ID == branch.ID || b.ParentBranchID != branch.ParentBranchID {
			continue
		}
		out = append(out, BuildSnapshot(b))
	}
	return out
}

func (a *Agent) parseDecision(call llm.ToolCall, contextWarning string) (Decision, error) {
	actionStr, _ := call.Input["action"].(string)
	reasoning, _ := call.Input["reasoning"].(string)

	action, err := parseAction(actionStr)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{Action: action, Reasoning: reasoning, ContextWarning: contextWarning}
	if action != domain.ActionSplit {
		return d, nil
	}

	rec, err := parseSplitConfig(call.Input["split_config"], reasoning, contextWarning)
	if err != nil {
		return Decision{}, err
	}
	d.Split = &rec
	return d, nil
}

func parseAction(s string) (domain.SplitAction, error) {
	switch strings.ToLower(s) {
	case "continue":
		return domain.ActionContinue, nil
	case "split":
		return domain.ActionSplit, nil
	case "wrap_up", "wrap up", "wrapup":
		return domain.ActionWrapUp, nil
	default:
		return "", fmt.Errorf("managing agent: unrecognized action %q", s)
	}
}

func parseSplitConfig(raw interface{}, reasoning, contextWarning string) (domain.SplitRecommendation, error) {
	cfg, ok := raw.(map[string]interface{})
	if !ok {
		return domain.SplitRecommendation{}, fmt.Errorf("managing agent: split action requires split_config")
	}

	numBranches := toInt(cfg["num_branches"])
	criteria := parseCriteria(toString(cfg["criteria"]))

	branchesRaw, _ := cfg["branches"].([]interface{})
	rec := domain.SplitRecommendation{
		Action:         domain.ActionSplit,
		NumBranches:    numBranches,
		Criteria:       criteria,
		Reasoning:      reasoning,
		ContextWarning: contextWarning,
	}
	for _, item := range branchesRaw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		rec.GroupLabels = append(rec.GroupLabels, toString(m["label"]))
		rec.GroupQueries = append(rec.GroupQueries, toString(m["query"]))
		rec.PaperGroups = append(rec.PaperGroups, toStringSlice(m["paper_ids"]))
	}
	if rec.NumBranches == 0 {
		rec.NumBranches = len(rec.PaperGroups)
	}
	if err := rec.Validate(); err != nil {
		return domain.SplitRecommendation{}, err
	}
	return rec, nil
}

func parseCriteria(s string) domain.SplitCriteria {
	switch strings.ToUpper(s) {
	case "BY_METHODOLOGY", "METHODOLOGY":
		return domain.CriteriaByMethodology
	case "BY_TIME_PERIOD", "TIME_PERIOD":
		return domain.CriteriaByTimePeriod
	case "BY_APPLICATION", "APPLICATION":
		return domain.CriteriaByApplication
	case "BY_THEORETICAL_FRAMEWORK", "THEORETICAL_FRAMEWORK":
		return domain.CriteriaByTheoreticalFramework
	case "BY_DATA_TYPE", "DATA_TYPE":
		return domain.CriteriaByDataType
	case "BY_TOPIC", "TOPIC", "":
		return domain.CriteriaByTopic
	default:
		return domain.CriteriaCustom
	}
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func toStringSlice(v interface{}) []string {
	raw, _ := v.([]interface{})
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
