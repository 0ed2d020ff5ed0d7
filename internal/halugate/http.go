package halugate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go-litresearch/internal/domain"
)

// HTTPGate calls a remote HaluGate service. Grounded on the same
// request-building idiom as internal/llm.OpenRouterClient and
// internal/papers.SemanticScholarProvider: JSON POST, auth header,
// status-based transient/permanent classification.
type HTTPGate struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPGate(baseURL, apiKey string) *HTTPGate {
	return &HTTPGate{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type validateRequest struct {
	Context  string `json:"context"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type validateResponse struct {
	FactCheckNeeded       bool    `json:"fact_check_needed"`
	HallucinationDetected bool    `json:"hallucination_detected"`
	Spans                 []Span  `json:"spans"`
	MaxSeverity           string  `json:"max_severity"`
	NLIContradictions     int     `json:"nli_contradictions"`
	Groundedness          float64 `json:"groundedness"`
}

func (g *HTTPGate) Validate(ctx context.Context, contextText, question, answer string) (ValidateResult, error) {
	body, err := json.Marshal(validateRequest{Context: contextText, Question: question, Answer: answer})
	if err != nil {
		return ValidateResult{}, fmt.Errorf("marshal validate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/validate", bytes.NewReader(body))
	if err != nil {
		return ValidateResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return ValidateResult{}, &domain.TransientRemoteError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return ValidateResult{}, &domain.TransientRemoteError{Err: fmt.Errorf("status %d", resp.StatusCode), StatusCode: resp.StatusCode}
		}
		return ValidateResult{}, domain.WrapPermanentRemote(fmt.Sprintf("halugate error %d", resp.StatusCode), fmt.Errorf("%s", string(raw)))
	}

	var parsed validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ValidateResult{}, domain.WrapPermanentRemote("decode halugate response", err)
	}

	return ValidateResult{
		FactCheckNeeded:       parsed.FactCheckNeeded,
		HallucinationDetected: parsed.HallucinationDetected,
		Spans:                 parsed.Spans,
		MaxSeverity:           parsed.MaxSeverity,
		NLIContradictions:     parsed.NLIContradictions,
		Groundedness:          parsed.Groundedness,
	}, nil
}

func (g *HTTPGate) ComputeGroundedness(ctx context.Context, result ValidateResult, answer string) (float64, error) {
	return result.Groundedness, nil
}
