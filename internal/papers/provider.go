// Package papers implements the Paper Provider external collaborator
// (§6): search, fetch, citation/reference traversal, and PDF text
// extraction, plus a composite provider that fans out over several
// sub-providers.
package papers

import (
	"context"

	"go-litresearch/internal/domain"
)

// Provider is the Paper Provider contract consumed by the Inner Loop and
// Iteration Loop.
type Provider interface {
	SearchPapers(ctx context.Context, query string, filters *domain.Filters, limit int) ([]domain.PaperRef, error)
	FetchPapers(ctx context.Context, paperIDs []string) ([]domain.PaperDetails, error)
	FetchPapersWithText(ctx context.Context, paperIDs []string) ([]domain.PaperDetails, error)
	ExtractText(ctx context.Context, pdfURL string) (string, error)
	GetCitations(ctx context.Context, paperID string, limit int) ([]domain.PaperRef, error)
	GetReferences(ctx context.Context, paperID string, limit int) ([]domain.PaperRef, error)
	GetCitationsBatch(ctx context.Context, paperIDs []string, limit int) (map[string][]domain.PaperRef, error)
	GetReferencesBatch(ctx context.Context, paperIDs []string, limit int) (map[string][]domain.PaperRef, error)
}

var (
	_ Provider = (*SemanticScholarProvider)(nil)
	_ Provider = (*ArxivProvider)(nil)
	_ Provider = (*CompositeProvider)(nil)
	_ Provider = (*MockProvider)(nil)
)
