package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
)

const openRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// OpenRouterClient drives chat completions through OpenRouter. Grounded on
// the teacher's llm.Client: same request-building and auth-header idiom,
// widened to carry tool specs and parse tool calls out of the response.
type OpenRouterClient struct {
	apiKey     string
	httpClient *http.Client
	model      string
}

// NewOpenRouterClient builds a client for the given API key and model. A
// zero model falls back to DefaultReasoningModel since OpenRouterClient is
// normally used for the Managing Agent's reasoning calls.
func NewOpenRouterClient(apiKey, model string) *OpenRouterClient {
	if model == "" {
		model = DefaultReasoningModel
	}
	return &OpenRouterClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		model:      model,
	}
}

func (c *OpenRouterClient) GetModel() string      { return c.model }
func (c *OpenRouterClient) SetModel(model string) { c.model = model }

type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []requestMessage `json:"messages"`
	Temperature float64          `json:"temperature,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Tools       []requestTool    `json:"tools,omitempty"`
}

type requestMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type requestTool struct {
	Type     string          `json:"type"`
	Function requestToolFunc `json:"function"`
}

type requestToolFunc struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type chatAPIResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func withSystem(messages []Message, system string) []requestMessage {
	out := make([]requestMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, requestMessage{Role: "system", Content: system})
	}
	for _, m := range messages {
		out = append(out, requestMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func (c *OpenRouterClient) do(ctx context.Context, req chatRequest) (*chatAPIResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", openRouterURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", "https://github.com/go-litresearch/go-litresearch")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, classifyStatus(resp.StatusCode, resp.Header.Get("Retry-After"), string(raw))
	}

	var parsed chatAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &parsed, nil
}

// Chat sends a plain (tool-free) completion request.
func (c *OpenRouterClient) Chat(ctx context.Context, messages []Message, opts CompleteOptions) (*ChatResponse, error) {
	req := chatRequest{
		Model:       c.model,
		Messages:    withSystem(messages, opts.System),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	parsed, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openrouter: empty choices in response")
	}
	return &ChatResponse{
		Content: parsed.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}, nil
}

// CompleteWithTools sends a completion request offering the given tools,
// parsing any tool calls OpenRouter returns in the structured tool_calls
// field. If the model instead emits the call as plain text (some
// OpenRouter-hosted models do not support tools but still describe a call
// in prose), the managing agent layer falls back to ParseToolCallsFromText
// on Content via MergeToolCalls (§9 F.9.1).
func (c *OpenRouterClient) CompleteWithTools(ctx context.Context, messages []Message, tools []ToolSpec, opts CompleteOptions) (*ToolCompletion, error) {
	reqTools := make([]requestTool, 0, len(tools))
	for _, t := range tools {
		reqTools = append(reqTools, requestTool{
			Type: "function",
			Function: requestToolFunc{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}

	req := chatRequest{
		Model:       c.model,
		Messages:    withSystem(messages, opts.System),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Tools:       reqTools,
	}
	parsed, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openrouter: empty choices in response")
	}

	choice := parsed.Choices[0]
	calls := make([]ToolCall, 0, len(choice.Message.ToolCalls))
	for _, tc := range choice.Message.ToolCalls {
		var input map[string]interface{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
				input = map[string]interface{}{"_raw": tc.Function.Arguments}
			}
		}
		calls = append(calls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Input: input})
	}

	return &ToolCompletion{
		Content:    choice.Message.Content,
		ToolCalls:  calls,
		StopReason: choice.FinishReason,
	}, nil
}

var retryAfterSeconds = regexp.MustCompile(`^\d+$`)

// classifyStatus maps a non-200 HTTP status to an error: 429/5xx become a
// transientStatusError carrying the status and the raw Retry-After value,
// everything else a plain error. Neither is a domain remote-error type, and
// the LLM clients do not retry either kind.
func classifyStatus(status int, retryAfter, body string) error {
	msg := fmt.Sprintf("openrouter API error %d: %s", status, strings.TrimSpace(body))
	if status == http.StatusTooManyRequests || status >= 500 {
		return &transientStatusError{status: status, retryAfterRaw: retryAfter, msg: msg}
	}
	return fmt.Errorf("%s", msg)
}

type transientStatusError struct {
	status        int
	retryAfterRaw string
	msg           string
}

func (e *transientStatusError) Error() string { return e.msg }

func (e *transientStatusError) StatusCode() int { return e.status }

// RetryAfterSeconds parses a Retry-After header value expressed in seconds,
// returning ok=false for anything else (e.g. an HTTP-date).
func (e *transientStatusError) RetryAfterSeconds() (int, bool) {
	if e.retryAfterRaw == "" || !retryAfterSeconds.MatchString(e.retryAfterRaw) {
		return 0, false
	}
	var n int
	fmt.Sscanf(e.retryAfterRaw, "%d", &n)
	return n, true
}
