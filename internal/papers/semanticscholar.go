package papers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go-litresearch/internal/domain"
)

const semanticScholarBaseURL = "https://api.semanticscholar.org/graph/v1"

const ssFields = "paperId,title,abstract,authors,year,citationCount,fieldsOfStudy,publicationTypes,externalIds,openAccessPdf,venue"

// SemanticScholarProvider implements Provider against the Semantic Scholar
// Graph API. Grounded on the teacher's tools.SearchTool request-building
// shape (URL query params + header auth + json.Decoder), generalized to
// the Paper Provider's richer operation set and wrapped by a rate limiter
// and retry policy per §5.
type SemanticScholarProvider struct {
	apiKey     string
	httpClient *http.Client
	limiter    *TokenBucketLimiter
}

// NewSemanticScholarProvider builds a provider. An empty apiKey selects
// the slower anonymous rate (§5).
func NewSemanticScholarProvider(apiKey string) *SemanticScholarProvider {
	return &SemanticScholarProvider{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    NewSemanticScholarLimiter(apiKey != ""),
	}
}

type ssPaper struct {
	PaperID          string            `json:"paperId"`
	Title            string            `json:"title"`
	Abstract         string            `json:"abstract"`
	Year             int               `json:"year"`
	CitationCount    int               `json:"citationCount"`
	FieldsOfStudy    []string          `json:"fieldsOfStudy"`
	PublicationTypes []string          `json:"publicationTypes"`
	Venue            string            `json:"venue"`
	ExternalIDs      map[string]string `json:"externalIds"`
	OpenAccessPDF    *struct {
		URL string `json:"url"`
	} `json:"openAccessPdf"`
	Authors []struct {
		AuthorID string `json:"authorId"`
		Name     string `json:"name"`
	} `json:"authors"`
}

func (p ssPaper) toRef() domain.PaperRef {
	ref := domain.PaperRef{
		PaperID:          "s2:" + p.PaperID,
		Title:            p.Title,
		Abstract:         p.Abstract,
		Year:             p.Year,
		CitationCount:    p.CitationCount,
		FieldsOfStudy:    p.FieldsOfStudy,
		PublicationTypes: p.PublicationTypes,
		ExternalIDs:      p.ExternalIDs,
	}
	if p.OpenAccessPDF != nil {
		ref.OpenAccessPDFURL = p.OpenAccessPDF.URL
	}
	for _, a := range p.Authors {
		ref.Authors = append(ref.Authors, domain.Author{ID: a.AuthorID, Name: a.Name})
	}
	return ref
}

func (p ssPaper) toDetails() domain.PaperDetails {
	return domain.PaperDetails{PaperRef: p.toRef(), Venue: p.Venue}
}

func (c *SemanticScholarProvider) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := semanticScholarBaseURL + path
	if params != nil {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransientRemoteError{Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &domain.TransientRemoteError{
			Err:        fmt.Errorf("semantic scholar API error %d: %s", resp.StatusCode, string(body)),
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	default:
		return nil, domain.WrapPermanentRemote(fmt.Sprintf("semantic scholar API error %d", resp.StatusCode), fmt.Errorf("%s", string(body)))
	}
}

func parseRetryAfter(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func (c *SemanticScholarProvider) SearchPapers(ctx context.Context, query string, filters *domain.Filters, limit int) ([]domain.PaperRef, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("fields", ssFields)
	if limit <= 0 {
		limit = 20
	}
	params.Set("limit", strconv.Itoa(limit))
	applyFilters(params, filters)

	body, err := withRetry(ctx, func() ([]byte, error) { return c.get(ctx, "/paper/search", params) })
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data []ssPaper `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, domain.WrapPermanentRemote("decode search response", err)
	}
	out := make([]domain.PaperRef, 0, len(parsed.Data))
	for _, p := range parsed.Data {
		out = append(out, p.toRef())
	}
	return out, nil
}

func applyFilters(params url.Values, filters *domain.Filters) {
	if filters == nil {
		return
	}
	if filters.Year != "" {
		params.Set("year", filters.Year)
	}
	if len(filters.FieldsOfStudy) > 0 {
		params.Set("fieldsOfStudy", strings.Join(filters.FieldsOfStudy, ","))
	}
	if len(filters.PublicationTypes) > 0 {
		params.Set("publicationTypes", strings.Join(filters.PublicationTypes, ","))
	}
	if filters.OpenAccessOnly {
		params.Set("openAccessPdf", "")
	}
}

func stripPrefix(paperID string) string {
	if idx := strings.Index(paperID, ":"); idx >= 0 {
		return paperID[idx+1:]
	}
	return paperID
}

func (c *SemanticScholarProvider) FetchPapers(ctx context.Context, paperIDs []string) ([]domain.PaperDetails, error) {
	return c.fetchBatch(ctx, paperIDs)
}

func (c *SemanticScholarProvider) FetchPapersWithText(ctx context.Context, paperIDs []string) ([]domain.PaperDetails, error) {
	details, err := c.fetchBatch(ctx, paperIDs)
	if err != nil {
		return nil, err
	}
	for i, d := range details {
		if d.OpenAccessPDFURL == "" {
			continue
		}
		text, err := c.ExtractText(ctx, d.OpenAccessPDFURL)
		if err != nil {
			continue // per-paper swallow: §7, full text is best-effort
		}
		details[i].FullText = text
	}
	return details, nil
}

func (c *SemanticScholarProvider) fetchBatch(ctx context.Context, paperIDs []string) ([]domain.PaperDetails, error) {
	if len(paperIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, len(paperIDs))
	for i, id := range paperIDs {
		ids[i] = stripPrefix(id)
	}

	reqBody, err := json.Marshal(map[string]interface{}{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("marshal batch request: %w", err)
	}

	fetch := func() ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, "POST", semanticScholarBaseURL+"/paper/batch?fields="+ssFields, strings.NewReader(string(reqBody)))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("x-api-key", c.apiKey)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &domain.TransientRemoteError{Err: err}
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusOK {
			return body, nil
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, &domain.TransientRemoteError{Err: fmt.Errorf("status %d", resp.StatusCode), StatusCode: resp.StatusCode, RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
		}
		return nil, domain.WrapPermanentRemote(fmt.Sprintf("semantic scholar batch error %d", resp.StatusCode), fmt.Errorf("%s", string(body)))
	}

	body, err := withRetry(ctx, fetch)
	if err != nil {
		return nil, err
	}

	var parsed []ssPaper
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, domain.WrapPermanentRemote("decode batch response", err)
	}
	out := make([]domain.PaperDetails, 0, len(parsed))
	for _, p := range parsed {
		out = append(out, p.toDetails())
	}
	return out, nil
}

func (c *SemanticScholarProvider) GetCitations(ctx context.Context, paperID string, limit int) ([]domain.PaperRef, error) {
	return c.fetchRelated(ctx, "citations", paperID, limit)
}

func (c *SemanticScholarProvider) GetReferences(ctx context.Context, paperID string, limit int) ([]domain.PaperRef, error) {
	return c.fetchRelated(ctx, "references", paperID, limit)
}

func (c *SemanticScholarProvider) fetchRelated(ctx context.Context, kind, paperID string, limit int) ([]domain.PaperRef, error) {
	if limit <= 0 {
		limit = 50
	}
	params := url.Values{}
	params.Set("fields", ssFields)
	params.Set("limit", strconv.Itoa(limit))

	path := fmt.Sprintf("/paper/%s/%s", stripPrefix(paperID), kind)
	body, err := withRetry(ctx, func() ([]byte, error) { return c.get(ctx, path, params) })
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data []struct {
			CitingPaper *ssPaper `json:"citingPaper"`
			CitedPaper  *ssPaper `json:"citedPaper"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, domain.WrapPermanentRemote("decode "+kind+" response", err)
	}

	out := make([]domain.PaperRef, 0, len(parsed.Data))
	for _, entry := range parsed.Data {
		switch kind {
		case "citations":
			if entry.CitingPaper != nil {
				out = append(out, entry.CitingPaper.toRef())
			}
		case "references":
			if entry.CitedPaper != nil {
				out = append(out, entry.CitedPaper.toRef())
			}
		}
	}
	return out, nil
}

func (c *SemanticScholarProvider) GetCitationsBatch(ctx context.Context, paperIDs []string, limit int) (map[string][]domain.PaperRef, error) {
	return c.relatedBatch(ctx, paperIDs, limit, c.GetCitations)
}

func (c *SemanticScholarProvider) GetReferencesBatch(ctx context.Context, paperIDs []string, limit int) (map[string][]domain.PaperRef, error) {
	return c.relatedBatch(ctx, paperIDs, limit, c.GetReferences)
}

func (c *SemanticScholarProvider) relatedBatch(ctx context.Context, paperIDs []string, limit int, fn func(context.Context, string, int) ([]domain.PaperRef, error)) (map[string][]domain.PaperRef, error) {
	out := make(map[string][]domain.PaperRef, len(paperIDs))
	for _, id := range paperIDs {
		refs, err := fn(ctx, id, limit)
		if err != nil {
			if errors.Is(err, domain.ErrPermanentRemote) {
				continue // per-paper swallow: §7
			}
			return nil, err
		}
		out[id] = refs
	}
	return out, nil
}
