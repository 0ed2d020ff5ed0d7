package master

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go-litresearch/internal/branch"
	"go-litresearch/internal/domain"
	"go-litresearch/internal/events"
	"go-litresearch/internal/iteration"
	"go-litresearch/internal/managing"
)

// Config holds the Master Agent's tunable knobs (§4.7/§5).
type Config struct {
	AutoSplit            bool
	AutoHypothesis       bool
	DefaultSplitStrategy domain.SplitStrategy
	DefaultNumSplits     int
	MaxContextWindow     int
	MaxIterations        int
	StopOnHypotheses     int
	MaxConsecutiveEmpty  int
}

// DefaultConfig returns the spec §4.7/§5 default knob values.
func DefaultConfig() Config {
	return Config{
		AutoSplit:            true,
		AutoHypothesis:       true,
		DefaultSplitStrategy: domain.StrategyByField,
		DefaultNumSplits:     2,
		MaxContextWindow:     100000,
		MaxIterations:        20,
		StopOnHypotheses:     0,
		MaxConsecutiveEmpty:  3,
	}
}

// Agent is the Master Agent (§4.7): the single-threaded cooperative
// orchestrator that advances one branch at a time through the Iteration
// Loop and performs auto-management afterward, either deferring to a
// Managing Agent or applying the default auto_split/auto_hypothesis rules.
// Grounded on cmd/research/main.go's top-level wiring shape and
// orchestrator.DeepOrchestrator's event-emission-around-stage pattern.
type Agent struct {
	cfg           Config
	branchMgr     *branch.Manager
	managingAgent *managing.Agent // nil disables agent-based auto-management
	iterLoop      *iteration.Loop
	sink          events.Sink
}

// NewAgent wires the Master Agent from its already-constructed
// collaborators. managingAgent may be nil (the run was started with
// --use-managing-agent off): auto-management then falls back to the
// default rules.
func NewAgent(cfg Config, branchMgr *branch.Manager, managingAgent *managing.Agent, iterLoop *iteration.Loop, sink events.Sink) *Agent {
	d := DefaultConfig()
	if cfg.DefaultNumSplits <= 0 {
		cfg.DefaultNumSplits = d.DefaultNumSplits
	}
	if cfg.DefaultSplitStrategy == "" {
		cfg.DefaultSplitStrategy = d.DefaultSplitStrategy
	}
	if cfg.MaxContextWindow <= 0 {
		cfg.MaxContextWindow = d.MaxContextWindow
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = d.MaxIterations
	}
	if cfg.MaxConsecutiveEmpty <= 0 {
		cfg.MaxConsecutiveEmpty = d.MaxConsecutiveEmpty
	}
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Agent{cfg: cfg, branchMgr: branchMgr, managingAgent: managingAgent, iterLoop: iterLoop, sink: sink}
}

// now is a seam for deterministic tests.
var now = func() time.Time { return time.Now() }

// StartLoop implements §4.7's start_loop: creates a fresh LoopState with one
// PENDING branch, registers it as sessionID's current loop, and emits
// branch_created.
func (a *Agent) StartLoop(ctx context.Context, store *Store, sessionID, query string, loopNumber int, seeding []domain.ResearchHypothesis, filters *domain.Filters) (*domain.LoopState, error) {
	if loopNumber < 1 {
		loopNumber = 1
	}
	store.GetOrCreate(sessionID, query, now())
	store.SetStatus(sessionID, SessionRunning)

	loopID := fmt.Sprintf("%s-loop-%d", sessionID, loopNumber)
	state := domain.NewLoopState(loopID, loopNumber, filters, now())
	state.SeedingHypotheses = seeding

	b := a.branchMgr.CreateBranch(state, query, domain.ModeSearchSummarize, "", filters, a.cfg.MaxContextWindow)
	store.AddLoop(sessionID, state)

	a.emit(ctx, sessionID, b.ID, events.EventBranchCreated, events.BranchCreatedPayload{
		BranchID: b.ID, Query: b.Query, Mode: string(b.Mode), ParentBranchID: b.ParentBranchID,
	})
	return state, nil
}

// RunIteration implements §4.7's run_iteration(branch_id, mode_override?):
// sets the branch RUNNING, awaits the Iteration Loop, appends the
// iteration, then performs auto-management.
func (a *Agent) RunIteration(ctx context.Context, state *domain.LoopState, sessionID, branchID string, modeOverride *domain.Mode) (domain.IterationResult, error) {
	b, ok := state.Branches[branchID]
	if !ok {
		return domain.IterationResult{}, domain.NewInvariantError("Agent", fmt.Sprintf("unknown branch %s", branchID))
	}

	if modeOverride != nil {
		if err := b.SetMode(*modeOverride, now()); err != nil {
			return domain.IterationResult{}, err
		}
	}

	oldStatus := b.Status
	if err := a.branchMgr.UpdateStatus(b, domain.StatusRunning); err != nil {
		return domain.IterationResult{}, err
	}

	result, err := a.iterLoop.RunIteration(ctx, b)
	if err != nil {
		return domain.IterationResult{}, fmt.Errorf("run_iteration (branch %s): %w", b.ID, err)
	}
	if err := b.AppendIteration(result, now()); err != nil {
		return domain.IterationResult{}, err
	}
	state.Hypotheses = append(state.Hypotheses, result.Hypotheses...)
	state.UpdatedAt = now()

	a.emitIterationEvents(ctx, sessionID, b, result)
	a.autoManage(ctx, state, sessionID, b)

	if b.Status != oldStatus {
		a.emit(ctx, sessionID, b.ID, events.EventBranchStatusChanged, events.BranchStatusChangedPayload{
			BranchID: b.ID, OldStatus: string(oldStatus), NewStatus: string(b.Status),
		})
	}
	return result, nil
}

// autoManage implements §4.7's post-iteration branch: defer to the Managing
// Agent when configured (force-evaluated on a zero-paper iteration),
// otherwise apply the default auto_split/auto_hypothesis rules.
func (a *Agent) autoManage(ctx context.Context, state *domain.LoopState, sessionID string, b *domain.Branch) {
	if b.Status.IsTerminal() {
		return
	}

	if a.managingAgent != nil {
		n := len(b.Iterations)
		forced := n >= 2 && b.Iterations[n-1].Empty()
		if a.managingAgent.ShouldEvaluate(b, forced) {
			warning := ""
			if w := a.branchMgr.GetContextWarning(b); w != nil {
				warning = *w
			}
			decision, err := a.managingAgent.Decide(ctx, b, state, warning)
			if err != nil {
				log.Printf("managing agent decide (branch %s): %v, defaulting to continue", b.ID, err)
				return
			}
			a.applyDecision(ctx, state, sessionID, b, decision)
			return
		}
	}

	a.applyDefaultAutoManagement(ctx, state, sessionID, b)
}

// applyDecision executes the Managing Agent's recommendation (§4.6:
// "CONTINUE -> no-op; SPLIT -> §4.5 using given groups; WRAP_UP -> mark
// COMPLETED").
func (a *Agent) applyDecision(ctx context.Context, state *domain.LoopState, sessionID string, b *domain.Branch, decision managing.Decision) {
	switch decision.Action {
	case domain.ActionContinue:
		// no-op
	case domain.ActionSplit:
		if decision.Split == nil {
			log.Printf("managing agent decide (branch %s): SPLIT action carried no split_config", b.ID)
			return
		}
		children, err := a.branchMgr.ApplySplitRecommendation(state, b, *decision.Split)
		if err != nil {
			log.Printf("apply split recommendation (branch %s): %v", b.ID, err)
			return
		}
		a.emitChildrenCreated(ctx, sessionID, children)
	case domain.ActionWrapUp:
		if err := a.branchMgr.UpdateStatus(b, domain.StatusCompleted); err != nil {
			log.Printf("wrap up branch %s: %v", b.ID, err)
		}
	}
}

// applyDefaultAutoManagement implements §4.7's fallback when no Managing
// Agent is configured: a default BY_FIELD split past the context-warning
// threshold, and an immediate follow-up iteration after switching into
// HYPOTHESIS mode so hypothesis generation happens before the outer budget
// runs out.
func (a *Agent) applyDefaultAutoManagement(ctx context.Context, state *domain.LoopState, sessionID string, b *domain.Branch) {
	if a.cfg.AutoSplit && a.branchMgr.ShouldSplit(b) {
		children, err := a.branchMgr.SplitBranch(state, b, a.cfg.DefaultSplitStrategy, a.cfg.DefaultNumSplits)
		if err != nil {
			log.Printf("default split (branch %s): %v", b.ID, err)
		} else {
			a.emitChildrenCreated(ctx, sessionID, children)
		}
		return
	}

	if a.cfg.AutoHypothesis && a.branchMgr.ShouldEnableHypothesisMode(b) {
		if err := b.SetMode(domain.ModeHypothesis, now()); err != nil {
			log.Printf("switch to hypothesis mode (branch %s): %v", b.ID, err)
			return
		}
		if b.Status.IsTerminal() {
			return
		}

		extra, err := a.iterLoop.RunIteration(ctx, b)
		if err != nil {
			log.Printf("hypothesis-mode follow-up iteration (branch %s): %v", b.ID, err)
			return
		}
		if err := b.AppendIteration(extra, now()); err != nil {
			log.Printf("append hypothesis-mode iteration (branch %s): %v", b.ID, err)
			return
		}
		state.Hypotheses = append(state.Hypotheses, extra.Hypotheses...)
		a.emitIterationEvents(ctx, sessionID, b, extra)
	}
}

// SplitBranch implements §4.7's external tool form split_branch(branch_id,
// criteria): maps criteria onto the nearest Splitter strategy (§4.5) and
// splits into DefaultNumSplits groups.
func (a *Agent) SplitBranch(ctx context.Context, state *domain.LoopState, sessionID, branchID string, criteria domain.SplitCriteria) ([]*domain.Branch, error) {
	b, ok := state.Branches[branchID]
	if !ok {
		return nil, domain.NewInvariantError("Agent", fmt.Sprintf("unknown branch %s", branchID))
	}
	oldStatus := b.Status

	children, err := a.branchMgr.SplitBranch(state, b, criteriaToStrategy(criteria), a.cfg.DefaultNumSplits)
	if err != nil {
		return nil, err
	}
	a.emitChildrenCreated(ctx, sessionID, children)
	if b.Status != oldStatus {
		a.emit(ctx, sessionID, b.ID, events.EventBranchStatusChanged, events.BranchStatusChangedPayload{
			BranchID: b.ID, OldStatus: string(oldStatus), NewStatus: string(b.Status),
		})
	}
	return children, nil
}

// criteriaToStrategy maps a Managing-Agent-vocabulary SplitCriteria onto the
// Splitter's five concrete strategies (§4.5 defines fewer strategies than
// §4.6 defines criteria; BY_TOPIC and BY_TIME_PERIOD map directly, anything
// else falls back to BY_FIELD as the closest deterministic grouping).
func criteriaToStrategy(c domain.SplitCriteria) domain.SplitStrategy {
	switch c {
	case domain.CriteriaByTopic:
		return domain.StrategyByTopic
	case domain.CriteriaByTimePeriod:
		return domain.StrategyByTime
	default:
		return domain.StrategyByField
	}
}

// SwitchMode implements §4.7's switch_mode(branch_id, mode).
func (a *Agent) SwitchMode(state *domain.LoopState, branchID string, mode domain.Mode) error {
	b, ok := state.Branches[branchID]
	if !ok {
		return domain.NewInvariantError("Agent", fmt.Sprintf("unknown branch %s", branchID))
	}
	return b.SetMode(mode, now())
}

// PruneBranch implements §4.7's prune_branch(branch_id, reason?).
func (a *Agent) PruneBranch(ctx context.Context, state *domain.LoopState, sessionID, branchID, reason string) error {
	b, ok := state.Branches[branchID]
	if !ok {
		return domain.NewInvariantError("Agent", fmt.Sprintf("unknown branch %s", branchID))
	}
	oldStatus := b.Status
	if err := a.branchMgr.PruneBranch(b, reason); err != nil {
		return err
	}
	a.emit(ctx, sessionID, b.ID, events.EventBranchStatusChanged, events.BranchStatusChangedPayload{
		BranchID: b.ID, OldStatus: string(oldStatus), NewStatus: string(b.Status),
	})
	return nil
}

// LaunchResearchLoop implements §4.7's launch_research_loop(hypothesis_ids):
// collects the referenced hypotheses, synthesizes a combined query, and
// starts a fresh loop numbered loop_number + 1 carrying them as seeding
// hypotheses.
func (a *Agent) LaunchResearchLoop(ctx context.Context, store *Store, sessionID string, priorState *domain.LoopState, hypothesisIDs []string) (*domain.LoopState, error) {
	if len(hypothesisIDs) == 0 {
		return nil, domain.NewInvariantError("Agent", "launch_research_loop requires at least one hypothesis id")
	}

	byID := make(map[string]domain.ResearchHypothesis, len(priorState.Hypotheses))
	for _, h := range priorState.Hypotheses {
		byID[h.ID] = h
	}
	seeding := make([]domain.ResearchHypothesis, 0, len(hypothesisIDs))
	for _, id := range hypothesisIDs {
		h, ok := byID[id]
		if !ok {
			return nil, domain.NewInvariantError("Agent", fmt.Sprintf("unresolvable hypothesis id %s", id))
		}
		seeding = append(seeding, h)
	}

	return a.StartLoop(ctx, store, sessionID, synthesizeQuery(seeding), priorState.LoopNumber+1, seeding, priorState.SessionFilters)
}

func synthesizeQuery(hyps []domain.ResearchHypothesis) string {
	var sb strings.Builder
	sb.WriteString("follow-up research on: ")
	for i, h := range hyps {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(h.Text)
	}
	return sb.String()
}

// GetStatus implements §4.7's get_status(branch_id?): a pure snapshot read.
func (a *Agent) GetStatus(store *Store, sessionID, branchID string) (Snapshot, bool) {
	return store.Snapshot(sessionID, branchID)
}

// RunAuto implements §4.7's run_auto scheduler (§5): a single-threaded
// cooperative loop that repeatedly selects the next branch via the Branch
// Manager's priority (RUNNING > PENDING), advances it one iteration, and
// re-selects, until max_iterations total iterations have run,
// stop_on_hypotheses hypotheses have accumulated (when > 0), or no branch
// remains eligible. A branch whose consecutive empty iterations reach
// max_consecutive_empty is completed with a "stalled" reason (§5 "Stall
// detection"). Any PENDING branch left when the budget expires transitions
// to PAUSED.
func (a *Agent) RunAuto(ctx context.Context, state *domain.LoopState, sessionID string, maxIterations, stopOnHypotheses, maxConsecutiveEmpty int) error {
	if maxIterations <= 0 {
		maxIterations = a.cfg.MaxIterations
	}
	if maxConsecutiveEmpty <= 0 {
		maxConsecutiveEmpty = a.cfg.MaxConsecutiveEmpty
	}

	ran := 0
	for ran < maxIterations {
		if err := ctx.Err(); err != nil {
			break
		}
		b := a.branchMgr.GetNextBranch(state)
		if b == nil {
			break
		}

		if _, err := a.RunIteration(ctx, state, sessionID, b.ID, nil); err != nil {
			log.Printf("run_auto: iteration failed on branch %s, pruning: %v", b.ID, err)
			_ = a.PruneBranch(ctx, state, sessionID, b.ID, err.Error())
			continue
		}
		ran++

		if !b.Status.IsTerminal() && b.ConsecutiveEmptyIterations >= maxConsecutiveEmpty {
			oldStatus := b.Status
			if err := a.branchMgr.UpdateStatus(b, domain.StatusCompleted); err != nil {
				log.Printf("run_auto: stall completion (branch %s): %v", b.ID, err)
			} else {
				log.Printf("branch %s completed: stalled after %d consecutive empty iterations", b.ID, b.ConsecutiveEmptyIterations)
				a.emit(ctx, sessionID, b.ID, events.EventBranchStatusChanged, events.BranchStatusChangedPayload{
					BranchID: b.ID, OldStatus: string(oldStatus), NewStatus: string(b.Status),
				})
			}
		}

		if stopOnHypotheses > 0 && len(state.Hypotheses) >= stopOnHypotheses {
			break
		}
	}

	for _, b := range state.Branches {
		if b.Status != domain.StatusPending {
			continue
		}
		if err := a.branchMgr.UpdateStatus(b, domain.StatusPaused); err != nil {
			log.Printf("run_auto: pause on budget expiry (branch %s): %v", b.ID, err)
			continue
		}
		a.emit(ctx, sessionID, b.ID, events.EventBranchStatusChanged, events.BranchStatusChangedPayload{
			BranchID: b.ID, OldStatus: string(domain.StatusPending), NewStatus: string(domain.StatusPaused),
		})
	}
	return nil
}

func (a *Agent) emitChildrenCreated(ctx context.Context, sessionID string, children []*domain.Branch) {
	for _, c := range children {
		a.emit(ctx, sessionID, c.ID, events.EventBranchCreated, events.BranchCreatedPayload{
			BranchID: c.ID, Query: c.Query, Mode: string(c.Mode), ParentBranchID: c.ParentBranchID,
		})
	}
}

// emitIterationEvents emits the per-iteration detail events in the §5
// ordering guarantee: papers_found, summary_validated (or
// summaries_validated batch), hypothesis_generated (if any),
// iteration_completed.
func (a *Agent) emitIterationEvents(ctx context.Context, sessionID string, b *domain.Branch, result domain.IterationResult) {
	if len(result.PapersFound) > 0 {
		ids := make([]string, len(result.PapersFound))
		for i, p := range result.PapersFound {
			ids[i] = p.PaperID
		}
		a.emit(ctx, sessionID, b.ID, events.EventPapersFound, events.PapersFoundPayload{
			BranchID: b.ID, IterationNumber: result.IterationNumber, PaperIDs: ids,
		})
	}

	switch len(result.Summaries) {
	case 0:
	case 1:
		s := result.Summaries[0]
		a.emit(ctx, sessionID, b.ID, events.EventSummaryValidated, events.SummariesValidatedPayload{
			BranchID: b.ID, IterationNumber: result.IterationNumber, PaperID: s.PaperID, Groundedness: s.Groundedness,
		})
	default:
		ids := make([]string, len(result.Summaries))
		var total float64
		for i, s := range result.Summaries {
			ids[i] = s.PaperID
			total += s.Groundedness
		}
		a.emit(ctx, sessionID, b.ID, events.EventSummariesValidated, events.SummariesValidatedPayload{
			BranchID: b.ID, IterationNumber: result.IterationNumber, PaperIDs: ids, Groundedness: total / float64(len(ids)),
		})
	}

	switch len(result.Hypotheses) {
	case 0:
	case 1:
		a.emit(ctx, sessionID, b.ID, events.EventHypothesisGenerated, events.HypothesesGeneratedPayload{
			BranchID: b.ID, HypothesisIDs: []string{result.Hypotheses[0].ID},
		})
	default:
		ids := make([]string, len(result.Hypotheses))
		for i, h := range result.Hypotheses {
			ids[i] = h.ID
		}
		a.emit(ctx, sessionID, b.ID, events.EventHypothesesGenerated, events.HypothesesGeneratedPayload{
			BranchID: b.ID, HypothesisIDs: ids,
		})
	}

	a.emit(ctx, sessionID, b.ID, events.EventIterationCompleted, events.IterationCompletedPayload{
		BranchID: b.ID, IterationNumber: result.IterationNumber, PapersFound: len(result.PapersFound),
		SummariesAdded: len(result.Summaries), ContextTokensUsed: result.ContextTokensUsed, Empty: result.Empty(),
	})
}

// emit is best-effort (§6): a sink error is logged and execution proceeds.
func (a *Agent) emit(ctx context.Context, sessionID, branchID string, t events.EventType, payload interface{}) {
	if err := a.sink.Emit(ctx, events.Event{
		Type: t, SessionID: sessionID, BranchID: branchID, Payload: payload, Timestamp: now(),
	}); err != nil {
		log.Printf("event sink error (%s): %v", t, err)
	}
}
