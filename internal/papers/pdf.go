package papers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"go-litresearch/internal/domain"
)

// maxExtractPages mirrors the teacher's tools.PDFReadTool default: the
// first 50 pages are extracted, the rest truncated.
const maxExtractPages = 50

// maxExtractLen mirrors the teacher's 100000-byte result cap.
const maxExtractLen = 100000

var pdfHTTPClient = &http.Client{Timeout: 60 * time.Second} // §5: 60s PDF download timeout

// ExtractText downloads pdfURL to a temp file and extracts its text,
// grounded on the teacher's tools.PDFReadTool page-extraction loop
// (ledongthuc/pdf), adapted from a local path argument to a remote URL.
func (c *SemanticScholarProvider) ExtractText(ctx context.Context, pdfURL string) (string, error) {
	return extractTextFromURL(ctx, pdfURL)
}

// ExtractText is the same operation for ArxivProvider; both providers
// share the download+extract implementation since neither has a provider-
// specific PDF format.
func (c *ArxivProvider) ExtractText(ctx context.Context, pdfURL string) (string, error) {
	return extractTextFromURL(ctx, pdfURL)
}

func extractTextFromURL(ctx context.Context, pdfURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pdfURL, nil)
	if err != nil {
		return "", fmt.Errorf("create pdf request: %w", err)
	}
	resp, err := pdfHTTPClient.Do(req)
	if err != nil {
		return "", &domain.TransientRemoteError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", &domain.TransientRemoteError{Err: fmt.Errorf("status %d", resp.StatusCode), StatusCode: resp.StatusCode}
		}
		return "", domain.WrapPermanentRemote(fmt.Sprintf("pdf download error %d", resp.StatusCode), nil)
	}

	tmp, err := os.CreateTemp("", "litresearch-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		return "", fmt.Errorf("write pdf to disk: %w", err)
	}

	f, r, err := pdf.Open(tmp.Name())
	if err != nil {
		return "", domain.WrapPermanentRemote("open pdf", err)
	}
	defer f.Close()

	var text strings.Builder
	numPages := r.NumPage()
	pages := maxExtractPages
	if pages <= 0 || pages > numPages {
		pages = numPages
	}

	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		text.WriteString(content)
		text.WriteString("\n\n")
	}

	result := text.String()
	if len(result) > maxExtractLen {
		result = result[:maxExtractLen] + "\n...[truncated]"
	}
	return result, nil
}
