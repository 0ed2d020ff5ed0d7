package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const anthropicURL = "https://api.anthropic.com/v1/messages"
const anthropicVersion = "2023-06-01"

// AnthropicClient drives chat completions through the Anthropic Messages
// API. Same request-building idiom as OpenRouterClient, adapted to
// Anthropic's system/messages split and its native tool_use content blocks.
type AnthropicClient struct {
	apiKey     string
	httpClient *http.Client
	model      string
}

// NewAnthropicClient builds a client for the given API key and model.
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	if model == "" {
		model = DefaultReasoningModel
	}
	return &AnthropicClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		model:      model,
	}
}

func (c *AnthropicClient) GetModel() string      { return c.model }
func (c *AnthropicClient) SetModel(model string) { c.model = model }

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []requestMessage   `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	Tools       []anthropicToolDef `json:"tools,omitempty"`
}

type anthropicToolDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type anthropicContentBlock struct {
	Type  string                 `json:"type"`
	Text  string                 `json:"text,omitempty"`
	ID    string                 `json:"id,omitempty"`
	Name  string                 `json:"name,omitempty"`
	Input map[string]interface{} `json:"input,omitempty"`
}

type anthropicResponse struct {
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *AnthropicClient) do(ctx context.Context, req anthropicRequest) (*anthropicResponse, error) {
	if req.MaxTokens == 0 {
		req.MaxTokens = 4096
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", anthropicURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, classifyStatus(resp.StatusCode, resp.Header.Get("Retry-After"), string(raw))
	}

	var parsed anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &parsed, nil
}

func (c *AnthropicClient) Chat(ctx context.Context, messages []Message, opts CompleteOptions) (*ChatResponse, error) {
	req := anthropicRequest{
		Model:       c.model,
		System:      opts.System,
		Messages:    withSystem(messages, ""),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	parsed, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	return &ChatResponse{
		Content: joinTextBlocks(parsed.Content),
		Usage: Usage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
	}, nil
}

func (c *AnthropicClient) CompleteWithTools(ctx context.Context, messages []Message, tools []ToolSpec, opts CompleteOptions) (*ToolCompletion, error) {
	toolDefs := make([]anthropicToolDef, 0, len(tools))
	for _, t := range tools {
		toolDefs = append(toolDefs, anthropicToolDef{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}

	req := anthropicRequest{
		Model:       c.model,
		System:      opts.System,
		Messages:    withSystem(messages, ""),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Tools:       toolDefs,
	}
	parsed, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var calls []ToolCall
	for _, block := range parsed.Content {
		if block.Type == "tool_use" {
			calls = append(calls, ToolCall{ID: block.ID, Name: block.Name, Input: block.Input})
		}
	}

	return &ToolCompletion{
		Content:    joinTextBlocks(parsed.Content),
		ToolCalls:  calls,
		StopReason: parsed.StopReason,
	}, nil
}

func joinTextBlocks(blocks []anthropicContentBlock) string {
	var out string
	for _, b := range blocks {
		if b.Type == "text" {
			out += b.Text
		}
	}
	return out
}
