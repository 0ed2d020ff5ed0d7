package llm

// Model configurations - centralized for easy changes.
// The spec (§1) distinguishes a smaller summarizer model (Inner Loop,
// §4.1-4.2) from a larger reasoning model (Managing Agent, §4.6).
const (
	DefaultSummarizerModel = "alibaba/tongyi-deepresearch-30b-a3b"
	DefaultReasoningModel  = "anthropic/claude-3.5-sonnet"

	// DefaultModel is kept as an alias for callers that don't care which
	// role they need (e.g. a single-model mock profile).
	DefaultModel = DefaultSummarizerModel
)

// ModelConfig holds model-specific settings
type ModelConfig struct {
	ID          string
	MaxTokens   int
	Temperature float64
}

// DefaultModelConfig returns the default model configuration
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		ID:          DefaultModel,
		MaxTokens:   8192,
		Temperature: 0.7,
	}
}
