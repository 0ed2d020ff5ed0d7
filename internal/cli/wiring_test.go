package cli

import (
	"testing"

	"go-litresearch/internal/config"
	"go-litresearch/internal/domain"
	"go-litresearch/internal/llm"
)

func TestSplitStrategyFromString_KnownValuesPassThrough(t *testing.T) {
	cases := map[string]domain.SplitStrategy{
		"BY_FIELD":          domain.StrategyByField,
		"BY_TIME":           domain.StrategyByTime,
		"BY_CITATION_COUNT": domain.StrategyByCitationCount,
		"BY_TOPIC":          domain.StrategyByTopic,
		"RANDOM":            domain.StrategyRandom,
	}
	for in, want := range cases {
		if got := splitStrategyFromString(in); got != want {
			t.Errorf("splitStrategyFromString(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitStrategyFromString_UnknownFallsBackToByField(t *testing.T) {
	if got := splitStrategyFromString("BY_METHODOLOGY"); got != domain.StrategyByField {
		t.Fatalf("expected fallback to BY_FIELD, got %q", got)
	}
}

func TestBuildLLMClients_MockProfileReturnsWorkingToolClient(t *testing.T) {
	cfg := config.Default()
	cfg.LLMProfile = config.LLMProfileMock
	chat, tools := buildLLMClients(cfg)
	if chat == nil || tools == nil {
		t.Fatal("expected non-nil chat and tool clients for the mock profile")
	}
	if _, ok := chat.(*llm.MockClient); !ok {
		t.Fatalf("expected *llm.MockClient, got %T", chat)
	}
}

func TestBuildLLMClients_OpenRouterProfileReturnsOpenRouterClient(t *testing.T) {
	cfg := config.Default()
	cfg.LLMProfile = config.LLMProfileOpenRouter
	cfg.OpenRouterAPIKey = "sk-or-test"
	chat, _ := buildLLMClients(cfg)
	if chat.GetModel() != cfg.Model {
		t.Fatalf("expected model %q, got %q", cfg.Model, chat.GetModel())
	}
}

func TestBuildHaluGate_ProfileSelection(t *testing.T) {
	cfg := config.Default()
	cfg.HaluGateProfile = config.HaluGateProfileLocal
	if buildHaluGate(cfg) == nil {
		t.Fatal("expected a non-nil local gate")
	}
	cfg.HaluGateProfile = config.HaluGateProfileMock
	if buildHaluGate(cfg) == nil {
		t.Fatal("expected a non-nil mock gate")
	}
}

func TestNewEngine_MockProfileWiresEveryCollaborator(t *testing.T) {
	cfg := config.Default()
	engine, err := newEngine(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine.Provider == nil || engine.LLM == nil || engine.Gate == nil || engine.Master == nil || engine.Store == nil {
		t.Fatal("expected every Engine collaborator to be wired")
	}
}

func TestNewEngine_InvalidProfileErrors(t *testing.T) {
	cfg := config.Default()
	cfg.LLMProfile = config.LLMProfileOpenRouter
	cfg.OpenRouterAPIKey = ""
	if _, err := newEngine(cfg); err == nil {
		t.Fatal("expected an error when the selected profile has no credentials")
	}
}
