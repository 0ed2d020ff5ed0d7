package papers

import (
	"context"

	"go-litresearch/internal/domain"
)

// MockProvider is a scripted Provider for unit tests.
type MockProvider struct {
	SearchResults []domain.PaperRef
	SearchErr     error
	Details       map[string]domain.PaperDetails
	Citations     map[string][]domain.PaperRef
	References    map[string][]domain.PaperRef
	ExtractedText string
	ExtractErr    error
	SearchCalls   int
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		Details:    make(map[string]domain.PaperDetails),
		Citations:  make(map[string][]domain.PaperRef),
		References: make(map[string][]domain.PaperRef),
	}
}

func (m *MockProvider) SearchPapers(ctx context.Context, query string, filters *domain.Filters, limit int) ([]domain.PaperRef, error) {
	m.SearchCalls++
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	if limit > 0 && limit < len(m.SearchResults) {
		return m.SearchResults[:limit], nil
	}
	return m.SearchResults, nil
}

func (m *MockProvider) FetchPapers(ctx context.Context, paperIDs []string) ([]domain.PaperDetails, error) {
	out := make([]domain.PaperDetails, 0, len(paperIDs))
	for _, id := range paperIDs {
		if d, ok := m.Details[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *MockProvider) FetchPapersWithText(ctx context.Context, paperIDs []string) ([]domain.PaperDetails, error) {
	return m.FetchPapers(ctx, paperIDs)
}

func (m *MockProvider) ExtractText(ctx context.Context, pdfURL string) (string, error) {
	if m.ExtractErr != nil {
		return "", m.ExtractErr
	}
	return m.ExtractedText, nil
}

func (m *MockProvider) GetCitations(ctx context.Context, paperID string, limit int) ([]domain.PaperRef, error) {
	return m.Citations[paperID], nil
}

func (m *MockProvider) GetReferences(ctx context.Context, paperID string, limit int) ([]domain.PaperRef, error) {
	return m.References[paperID], nil
}

func (m *MockProvider) GetCitationsBatch(ctx context.Context, paperIDs []string, limit int) (map[string][]domain.PaperRef, error) {
	out := make(map[string][]domain.PaperRef, len(paperIDs))
	for _, id := range paperIDs {
		out[id] = m.Citations[id]
	}
	return out, nil
}

func (m *MockProvider) GetReferencesBatch(ctx context.Context, paperIDs []string, limit int) (map[string][]domain.PaperRef, error) {
	out := make(map[string][]domain.PaperRef, len(paperIDs))
	for _, id := range paperIDs {
		out[id] = m.References[id]
	}
	return out, nil
}
