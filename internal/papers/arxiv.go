package papers

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"go-litresearch/internal/domain"
)

const arxivBaseURL = "http://export.arxiv.org/api/query"

// ArxivProvider implements Provider against the arxiv API export endpoint.
// arxiv carries no citation graph, so GetCitations/GetReferences return an
// empty result rather than erroring (a fallback/single-strategy composite
// never routes citation calls here in practice — the batch variants do the
// same). Grounded on the same request-building idiom as
// SemanticScholarProvider. The transport is configured for HTTP/2
// (golang.org/x/net/http2, per F.0), which applies only over TLS; arxivBaseURL
// is plain http, so these requests use HTTP/1.1.
type ArxivProvider struct {
	httpClient *http.Client
	limiter    *IntervalLimiter
}

// NewArxivProvider builds a provider enforcing the 3s minimum interval
// between requests named in §5.
func NewArxivProvider() *ArxivProvider {
	transport := &http.Transport{}
	_ = http2.ConfigureTransport(transport)
	return &ArxivProvider{
		httpClient: &http.Client{Timeout: 30 * time.Second, Transport: transport},
		limiter:    NewArxivLimiter(),
	}
}

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Categories []struct {
		Term string `xml:"term,attr"`
	} `xml:"category"`
	Links []struct {
		Href  string `xml:"href,attr"`
		Title string `xml:"title,attr"`
	} `xml:"link"`
}

func arxivID(rawID string) string {
	// rawID looks like http://arxiv.org/abs/2301.01234v2
	parts := strings.Split(rawID, "/abs/")
	if len(parts) != 2 {
		return rawID
	}
	id := parts[1]
	if idx := strings.LastIndex(id, "v"); idx > 0 {
		if _, err := strconv.Atoi(id[idx+1:]); err == nil {
			id = id[:idx]
		}
	}
	return id
}

func (e arxivEntry) toRef() domain.PaperRef {
	id := arxivID(e.ID)
	ref := domain.PaperRef{
		PaperID:     "arxiv:" + id,
		Title:       strings.TrimSpace(e.Title),
		Abstract:    strings.TrimSpace(e.Summary),
		ExternalIDs: map[string]string{"arxiv_id": id},
	}
	if len(e.Published) >= 4 {
		if year, err := strconv.Atoi(e.Published[:4]); err == nil {
			ref.Year = year
		}
	}
	for _, c := range e.Categories {
		ref.FieldsOfStudy = append(ref.FieldsOfStudy, c.Term)
	}
	for _, a := range e.Authors {
		ref.Authors = append(ref.Authors, domain.Author{Name: a.Name})
	}
	for _, l := range e.Links {
		if l.Title == "pdf" {
			ref.OpenAccessPDFURL = l.Href
		}
	}
	return ref
}

func (c *ArxivProvider) SearchPapers(ctx context.Context, query string, filters *domain.Filters, limit int) ([]domain.PaperRef, error) {
	if limit <= 0 {
		limit = 20
	}
	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("max_results", strconv.Itoa(limit))

	body, err := withRetry(ctx, func() ([]byte, error) { return c.get(ctx, params) })
	if err != nil {
		return nil, err
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, domain.WrapPermanentRemote("decode arxiv feed", err)
	}

	out := make([]domain.PaperRef, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		ref := e.toRef()
		if passesFilters(ref, filters) {
			out = append(out, ref)
		}
	}
	return out, nil
}

func passesFilters(ref domain.PaperRef, filters *domain.Filters) bool {
	if filters == nil {
		return true
	}
	if filters.MinCitationCount > 0 && ref.CitationCount < filters.MinCitationCount {
		return false
	}
	if filters.OpenAccessOnly && ref.OpenAccessPDFURL == "" {
		return false
	}
	if len(filters.FieldsOfStudy) > 0 && !overlaps(ref.FieldsOfStudy, filters.FieldsOfStudy) {
		return false
	}
	return true
}

func overlaps(a, b []string) bool {
	set := make(map[string]bool, len(b))
	for _, v := range b {
		set[strings.ToLower(v)] = true
	}
	for _, v := range a {
		if set[strings.ToLower(v)] {
			return true
		}
	}
	return false
}

func (c *ArxivProvider) get(ctx context.Context, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "GET", arxivBaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
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
	return nil, domain.WrapPermanentRemote(fmt.Sprintf("arxiv API error %d", resp.StatusCode), fmt.Errorf("%s", string(body)))
}

// FetchPapers re-fetches each paper by id via a single-id search against
// arxiv's id_list query parameter.
func (c *ArxivProvider) FetchPapers(ctx context.Context, paperIDs []string) ([]domain.PaperDetails, error) {
	out := make([]domain.PaperDetails, 0, len(paperIDs))
	for _, id := range paperIDs {
		params := url.Values{}
		params.Set("id_list", stripPrefix(id))
		body, err := withRetry(ctx, func() ([]byte, error) { return c.get(ctx, params) })
		if err != nil {
			if errors.Is(err, domain.ErrPermanentRemote) {
				continue
			}
			return nil, err
		}
		var feed arxivFeed
		if err := xml.Unmarshal(body, &feed); err != nil {
			continue
		}
		for _, e := range feed.Entries {
			out = append(out, domain.PaperDetails{PaperRef: e.toRef()})
		}
	}
	return out, nil
}

func (c *ArxivProvider) FetchPapersWithText(ctx context.Context, paperIDs []string) ([]domain.PaperDetails, error) {
	details, err := c.FetchPapers(ctx, paperIDs)
	if err != nil {
		return nil, err
	}
	for i, d := range details {
		if d.OpenAccessPDFURL == "" {
			continue
		}
		text, err := c.ExtractText(ctx, d.OpenAccessPDFURL)
		if err != nil {
			continue
		}
		details[i].FullText = text
	}
	return details, nil
}

// GetCitations and GetReferences are unsupported by arxiv's API; a
// CompositeProvider should route citation-graph traversal to a provider
// that supports it (e.g. Semantic Scholar).
func (c *ArxivProvider) GetCitations(ctx context.Context, paperID string, limit int) ([]domain.PaperRef, error) {
	return nil, nil
}

func (c *ArxivProvider) GetReferences(ctx context.Context, paperID string, limit int) ([]domain.PaperRef, error) {
	return nil, nil
}

func (c *ArxivProvider) GetCitationsBatch(ctx context.Context, paperIDs []string, limit int) (map[string][]domain.PaperRef, error) {
	return map[string][]domain.PaperRef{}, nil
}

func (c *ArxivProvider) GetReferencesBatch(ctx context.Context, paperIDs []string, limit int) (map[string][]domain.PaperRef, error) {
	return map[string][]domain.PaperRef{}, nil
}
