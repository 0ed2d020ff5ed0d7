package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_MatchesComponentDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Branch.SplitThreshold != 0.80 {
		t.Fatalf("expected split threshold 0.80, got %v", cfg.Branch.SplitThreshold)
	}
	if cfg.Managing.MinPapersBeforeEvaluation != 5 {
		t.Fatalf("expected min papers before evaluation 5, got %d", cfg.Managing.MinPapersBeforeEvaluation)
	}
	if cfg.Thresholds.Strict != 0.95 || cfg.Thresholds.Loose != 0.70 {
		t.Fatalf("expected strict/loose 0.95/0.70, got %v/%v", cfg.Thresholds.Strict, cfg.Thresholds.Loose)
	}
}

func TestLoad_NoPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLMProfile != LLMProfileMock {
		t.Fatalf("expected default llm profile mock, got %s", cfg.LLMProfile)
	}
}

func TestLoad_ExpandsEnvVarsBeforeYAMLParse(t *testing.T) {
	t.Setenv("TEST_MODEL_NAME", "some/model-v2")
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	yamlBody := "model: \"${TEST_MODEL_NAME}\"\nllm_profile: mock\nbranch:\n  split_threshold: 0.9\n"
	if err := os.WriteFile(path, []byte(yamlBody), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model != "some/model-v2" {
		t.Fatalf("expected expanded model name, got %q", cfg.Model)
	}
	if cfg.Branch.SplitThreshold != 0.9 {
		t.Fatalf("expected overridden split threshold 0.9, got %v", cfg.Branch.SplitThreshold)
	}
	// Defaults not mentioned in the profile must survive the overlay.
	if cfg.Managing.MaxTurns != 5 {
		t.Fatalf("expected default max turns to survive, got %d", cfg.Managing.MaxTurns)
	}
}

func TestLoad_MissingProfilePathErrors(t *testing.T) {
	if _, err := Load("/nonexistent/profile.yaml"); err == nil {
		t.Fatal("expected an error for a missing profile path")
	}
}

func TestValidate_OpenRouterProfileRequiresAPIKey(t *testing.T) {
	cfg := Default()
	cfg.LLMProfile = LLMProfileOpenRouter
	cfg.OpenRouterAPIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error when openrouter profile has no API key")
	}
	cfg.OpenRouterAPIKey = "sk-or-test"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_HTTPHaluGateRequiresURL(t *testing.T) {
	cfg := Default()
	cfg.HaluGateProfile = HaluGateProfileHTTP
	cfg.HaluGateURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error when http halugate profile has no URL")
	}
}

func TestValidate_UnknownProfileErrors(t *testing.T) {
	cfg := Default()
	cfg.LLMProfile = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unknown llm profile")
	}
}
