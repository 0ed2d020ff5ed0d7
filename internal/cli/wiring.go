// Package cli implements the subcommands and flags of §6's external
// interface, grounded on cmd/research/main.go's top-level wiring shape
// and internal/repl.REPL's readline-driven interactive loop.
package cli

import (
	"go-litresearch/internal/branch"
	"go-litresearch/internal/config"
	"go-litresearch/internal/domain"
	"go-litresearch/internal/events"
	"go-litresearch/internal/halugate"
	"go-litresearch/internal/innerloop"
	"go-litresearch/internal/iteration"
	"go-litresearch/internal/llm"
	"go-litresearch/internal/managing"
	"go-litresearch/internal/master"
	"go-litresearch/internal/papers"
	"go-litresearch/internal/summarize"
)

// Engine bundles every wired collaborator behind the Master Agent, the
// shape cmd/research/main.go assembled once at startup in the teacher.
// Built from a *config.Config by newEngine.
type Engine struct {
	Config   *config.Config
	Provider papers.Provider
	LLM      llm.ChatClient
	Tools    llm.ToolClient
	Gate     halugate.Gate
	Bus      *events.Bus
	Sink     events.Sink
	Master   *master.Agent
	Store    *master.Store
}

// newEngine wires every collaborator named in SPEC_FULL.md §F.0/§F.6 from
// cfg's profile selections. It runs cfg.Validate() first, so an unknown
// profile or a profile without credentials is rejected before any client
// is built.
func newEngine(cfg *config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider := buildProvider(cfg)
	chatClient, toolClient := buildLLMClients(cfg)
	gate := buildHaluGate(cfg)

	bus := events.NewBus(100)
	sink := events.NewBusSink(bus)

	selector := innerloop.NewSelector(chatClient)
	validator := summarize.NewValidator(chatClient, gate, cfg.Thresholds.Strict, cfg.Thresholds.Loose)
	hypotheses := summarize.NewHypothesisGenerator(chatClient)

	innerCfg := innerloop.Config{
		CandidateFetchLimit:         cfg.InnerLoop.CandidateFetchLimit,
		MaxPapersPerIteration:       cfg.InnerLoop.MaxPapersPerIteration,
		MaxSummarizationConcurrency: cfg.InnerLoop.MaxSummarizationConcurrency,
		FetchFullText:               cfg.InnerLoop.FetchFullText,
	}
	innerLoop := innerloop.NewLoop(provider, validator, hypotheses, selector, innerCfg)

	estimator := iteration.NewEstimator(4.0)
	iterCfg := iteration.Config{
		MaxCitationsPerPaper:        cfg.Iteration.MaxCitationsPerPaper,
		MaxReferencesPerPaper:       cfg.Iteration.MaxReferencesPerPaper,
		MaxPapersPerIteration:       cfg.Iteration.MaxPapersPerIteration,
		MaxSummarizationConcurrency: cfg.Iteration.MaxSummarizationConcurrency,
		FetchReferences:             cfg.Iteration.FetchReferences,
		MaxIterationsPerBranch:      cfg.Iteration.MaxIterationsPerBranch,
	}
	iterLoop := iteration.NewLoop(provider, validator, hypotheses, innerLoop, estimator, iterCfg)

	splitter := branch.NewSplitter()
	branchCfg := branch.Config{
		SplitThreshold:         cfg.Branch.SplitThreshold,
		MinPapersForHypothesis: cfg.Branch.MinPapersForHypothesis,
		MaxBranches:            cfg.Branch.MaxBranches,
	}
	branchMgr := branch.NewManager(branchCfg, splitter)

	var managingAgent *managing.Agent
	if toolClient != nil {
		managingCfg := managing.Config{
			MinPapersBeforeEvaluation: cfg.Managing.MinPapersBeforeEvaluation,
			EvaluationInterval:        cfg.Managing.EvaluationInterval,
			MaxTurns:                  cfg.Managing.MaxTurns,
		}
		managingAgent = managing.NewAgent(toolClient, managingCfg)
	}

	masterCfg := master.Config{
		AutoSplit:            cfg.Master.AutoSplit,
		AutoHypothesis:       cfg.Master.AutoHypothesis,
		DefaultSplitStrategy: splitStrategyFromString(cfg.Master.DefaultSplitStrategy),
		DefaultNumSplits:     cfg.Master.DefaultNumSplits,
		MaxContextWindow:     cfg.Master.MaxContextWindow,
		MaxIterations:        cfg.Master.MaxIterations,
		StopOnHypotheses:     cfg.Master.StopOnHypotheses,
		MaxConsecutiveEmpty:  cfg.Master.MaxConsecutiveEmpty,
	}
	masterAgent := master.NewAgent(masterCfg, branchMgr, managingAgent, iterLoop, sink)

	return &Engine{
		Config:   cfg,
		Provider: provider,
		LLM:      chatClient,
		Tools:    toolClient,
		Gate:     gate,
		Bus:      bus,
		Sink:     sink,
		Master:   masterAgent,
		Store:    master.NewStore(),
	}, nil
}

func buildProvider(cfg *config.Config) papers.Provider {
	return buildProviderWithStrategy(cfg, papers.StrategyFallback)
}

func buildProviderWithStrategy(cfg *config.Config, strategy papers.Strategy) papers.Provider {
	ss := papers.NewSemanticScholarProvider(cfg.SemanticScholarAPIKey)
	ax := papers.NewArxivProvider()
	return papers.NewCompositeProvider(strategy, ss, ax)
}

// buildLLMClients returns the ChatClient every component uses plus a
// ToolClient for the Managing Agent. Each profile returns one client in
// both roles; the mock profile (and any unrecognized profile) gets a single
// llm.MockClient with one canned response.
func buildLLMClients(cfg *config.Config) (llm.ChatClient, llm.ToolClient) {
	switch cfg.LLMProfile {
	case config.LLMProfileOpenRouter:
		c := llm.NewOpenRouterClient(cfg.OpenRouterAPIKey, cfg.Model)
		return c, c
	case config.LLMProfileAnthropic:
		c := llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.Model)
		return c, c
	default:
		c := llm.NewMockClient("mock profile: no LLM backend configured")
		return c, c
	}
}

func buildHaluGate(cfg *config.Config) halugate.Gate {
	switch cfg.HaluGateProfile {
	case config.HaluGateProfileHTTP:
		return halugate.NewHTTPGate(cfg.HaluGateURL, cfg.SemanticScholarAPIKey)
	case config.HaluGateProfileLocal:
		return halugate.NewLocalGate()
	default:
		return halugate.NewMockGate()
	}
}

// splitStrategyFromString maps the config string onto a domain.SplitStrategy,
// falling back to BY_FIELD for an unrecognized value rather than erroring at
// startup over a cosmetic typo in a profile file.
func splitStrategyFromString(s string) domain.SplitStrategy {
	switch domain.SplitStrategy(s) {
	case domain.StrategyByField, domain.StrategyByTime, domain.StrategyByCitationCount, domain.StrategyByTopic, domain.StrategyRandom:
		return domain.SplitStrategy(s)
	default:
		return domain.StrategyByField
	}
}
