// Package config loads the profile-aware configuration for the research
// engine: a YAML file with ${VAR} environment expansion, falling back to
// .env-sourced environment variables exactly as the teacher's flat
// Load() did, now carrying every knob named in §4/§5 instead of a
// handful of API keys and paths.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"go-litresearch/internal/domain"
)

// LLMProfile selects which ChatClient/ToolClient implementation the CLI
// wires up (§F.6.2).
type LLMProfile string

const (
	LLMProfileOpenRouter LLMProfile = "openrouter"
	LLMProfileAnthropic  LLMProfile = "anthropic"
	LLMProfileMock       LLMProfile = "mock"
)

// HaluGateProfile selects which Gate implementation the CLI wires up.
type HaluGateProfile string

const (
	HaluGateProfileLocal HaluGateProfile = "local"
	HaluGateProfileHTTP  HaluGateProfile = "http"
	HaluGateProfileMock  HaluGateProfile = "mock"
)

// InnerLoopConfig mirrors internal/innerloop.Config (§4.1).
type InnerLoopConfig struct {
	CandidateFetchLimit         int  `yaml:"candidate_fetch_limit"`
	MaxPapersPerIteration       int  `yaml:"max_papers_per_iteration"`
	MaxSummarizationConcurrency int  `yaml:"max_summarization_concurrency"`
	FetchFullText               bool `yaml:"fetch_full_text"`
}

// IterationConfig mirrors internal/iteration.Config (§4.3/§5).
type IterationConfig struct {
	MaxCitationsPerPaper        int  `yaml:"max_citations_per_paper"`
	MaxReferencesPerPaper       int  `yaml:"max_references_per_paper"`
	MaxPapersPerIteration       int  `yaml:"max_papers_per_iteration"`
	MaxSummarizationConcurrency int  `yaml:"max_summarization_concurrency"`
	FetchReferences             bool `yaml:"fetch_references"`
	MaxIterationsPerBranch      int  `yaml:"max_iterations_per_branch"`
}

// BranchConfig mirrors internal/branch.Config (§4.4).
type BranchConfig struct {
	SplitThreshold         float64 `yaml:"split_threshold"`
	MinPapersForHypothesis int     `yaml:"min_papers_for_hypothesis"`
	MaxBranches            int     `yaml:"max_branches"`
}

// ManagingConfig mirrors internal/managing.Config (§4.6).
type ManagingConfig struct {
	MinPapersBeforeEvaluation int `yaml:"min_papers_before_evaluation"`
	EvaluationInterval        int `yaml:"evaluation_interval"`
	MaxTurns                  int `yaml:"max_turns"`
}

// MasterConfig mirrors internal/master.Config (§4.7/§5).
type MasterConfig struct {
	AutoSplit            bool   `yaml:"auto_split"`
	AutoHypothesis       bool   `yaml:"auto_hypothesis"`
	DefaultSplitStrategy string `yaml:"default_split_strategy"`
	DefaultNumSplits     int    `yaml:"default_num_splits"`
	MaxContextWindow     int    `yaml:"max_context_window"`
	MaxIterations        int    `yaml:"max_iterations"`
	StopOnHypotheses     int    `yaml:"stop_on_hypotheses"`
	MaxConsecutiveEmpty  int    `yaml:"max_consecutive_empty"`
}

// ThresholdConfig mirrors the summarize groundedness thresholds (§9).
type ThresholdConfig struct {
	Strict float64 `yaml:"strict"`
	Loose  float64 `yaml:"loose"`
}

// RateLimitConfig mirrors internal/papers's token-bucket/interval limiters (§5).
type RateLimitConfig struct {
	SemanticScholarRatePerSecond float64       `yaml:"semantic_scholar_rate_per_second"`
	SemanticScholarBurst         int           `yaml:"semantic_scholar_burst"`
	ArxivInterval                time.Duration `yaml:"arxiv_interval"`
}

// Config is the root of the YAML document. Field names follow the
// teacher's flat-struct style; nested knob groups are broken out by
// owning component the way SPEC_FULL.md's F.0 dependency table does.
type Config struct {
	// API keys / profile selection. Keys never come from YAML (`yaml:"-"`)
	// so a committed profile file can't carry a secret literally — they
	// are read straight from the environment, same as the teacher.
	OpenRouterAPIKey      string          `yaml:"-"`
	AnthropicAPIKey       string          `yaml:"-"`
	BraveAPIKey           string          `yaml:"-"`
	SemanticScholarAPIKey string          `yaml:"-"`
	LLMProfile            LLMProfile      `yaml:"llm_profile"`
	HaluGateProfile       HaluGateProfile `yaml:"halugate_profile"`
	HaluGateURL           string          `yaml:"halugate_url"`
	Model                 string          `yaml:"model"`

	// Paths
	VaultPath     string `yaml:"vault_path"`
	HistoryFile   string `yaml:"history_file"`
	StateFile     string `yaml:"state_file"`
	EventStoreDir string `yaml:"event_store_dir"`

	// Timeouts
	WorkerTimeout  time.Duration `yaml:"worker_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Agent settings (top-level, kept from the teacher's flat shape)
	MaxIterations int `yaml:"max_iterations"`
	MaxTokens     int `yaml:"max_tokens"`
	MaxWorkers    int `yaml:"max_workers"`

	Verbose bool `yaml:"verbose"`

	// Component knob groups (§F.6.2)
	InnerLoop  InnerLoopConfig `yaml:"inner_loop"`
	Iteration  IterationConfig `yaml:"iteration"`
	Branch     BranchConfig    `yaml:"branch"`
	Managing   ManagingConfig  `yaml:"managing"`
	Master     MasterConfig    `yaml:"master"`
	Thresholds ThresholdConfig `yaml:"thresholds"`
	RateLimit  RateLimitConfig `yaml:"rate_limit"`
}

// Default returns the built-in defaults, matching each component's own
// DefaultConfig() so a Config zero value never silently disagrees with
// the packages it configures.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		LLMProfile:      LLMProfileMock,
		HaluGateProfile: HaluGateProfileMock,
		Model:           "alibaba/tongyi-deepresearch-30b-a3b",

		VaultPath:     filepath.Join(home, "research-vault"),
		HistoryFile:   filepath.Join(home, ".research_history"),
		StateFile:     filepath.Join(home, ".research_state"),
		EventStoreDir: filepath.Join(home, ".research_events"),

		WorkerTimeout:  30 * time.Minute,
		RequestTimeout: 5 * time.Minute,

		MaxIterations: 20,
		MaxTokens:     50000,
		MaxWorkers:    5,

		InnerLoop: InnerLoopConfig{
			CandidateFetchLimit:         50,
			MaxPapersPerIteration:       20,
			MaxSummarizationConcurrency: 5,
		},
		Iteration: IterationConfig{
			MaxCitationsPerPaper:        20,
			MaxReferencesPerPaper:       20,
			MaxPapersPerIteration:       20,
			MaxSummarizationConcurrency: 5,
			FetchReferences:             true,
			MaxIterationsPerBranch:      10,
		},
		Branch: BranchConfig{
			SplitThreshold:         0.80,
			MinPapersForHypothesis: 10,
			MaxBranches:            10,
		},
		Managing: ManagingConfig{
			MinPapersBeforeEvaluation: 5,
			EvaluationInterval:        2,
			MaxTurns:                  5,
		},
		Master: MasterConfig{
			AutoSplit:            true,
			AutoHypothesis:       true,
			DefaultSplitStrategy: "BY_FIELD",
			DefaultNumSplits:     2,
			MaxContextWindow:     100000,
			MaxIterations:        20,
			MaxConsecutiveEmpty:  3,
		},
		Thresholds: ThresholdConfig{Strict: 0.95, Loose: 0.70},
		RateLimit: RateLimitConfig{
			SemanticScholarRatePerSecond: 1,
			SemanticScholarBurst:         1,
			ArxivInterval:                3 * time.Second,
		},
	}
}

// Load reads configuration the same way the teacher's Load() did — .env
// first, silently ignored if absent — then layers a YAML profile file on
// top if path is non-empty. ${VAR} references in the raw YAML bytes are
// expanded against the environment (via .env) before unmarshalling, so a
// committed profile file never carries a secret literally.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	cfg.applyAPIKeysFromEnv()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		expanded := os.ExpandEnv(string(raw))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if v := os.Getenv("RESEARCH_VERBOSE"); v != "" {
		cfg.Verbose = v == "true"
	}

	return cfg, nil
}

func (c *Config) applyAPIKeysFromEnv() {
	c.OpenRouterAPIKey = os.Getenv("OPENROUTER_API_KEY")
	c.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	c.BraveAPIKey = os.Getenv("BRAVE_API_KEY")
	c.SemanticScholarAPIKey = os.Getenv("SEMANTIC_SCHOLAR_API_KEY")
}

// Validate checks the profile/key combinations the CLI needs before
// wiring clients — a ConfigError (§7) if a selected profile has no
// credentials to back it.
func (c *Config) Validate() error {
	switch c.LLMProfile {
	case LLMProfileOpenRouter:
		if c.OpenRouterAPIKey == "" {
			return domain.NewConfigError(fmt.Sprintf("llm_profile %q requires OPENROUTER_API_KEY", c.LLMProfile))
		}
	case LLMProfileAnthropic:
		if c.AnthropicAPIKey == "" {
			return domain.NewConfigError(fmt.Sprintf("llm_profile %q requires ANTHROPIC_API_KEY", c.LLMProfile))
		}
	case LLMProfileMock:
	default:
		return domain.NewConfigError(fmt.Sprintf("unknown llm_profile %q", c.LLMProfile))
	}

	switch c.HaluGateProfile {
	case HaluGateProfileHTTP:
		if c.HaluGateURL == "" {
			return domain.NewConfigError(fmt.Sprintf("halugate_profile %q requires halugate_url", c.HaluGateProfile))
		}
	case HaluGateProfileLocal, HaluGateProfileMock:
	default:
		return domain.NewConfigError(fmt.Sprintf("unknown halugate_profile %q", c.HaluGateProfile))
	}
	return nil
}
