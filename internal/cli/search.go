package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"go-litresearch/internal/domain"
	"go-litresearch/internal/papers"
)

func runSearch(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		profilePath string
		source      string
		strategy    string
		limit       int
		yearStart   string
		yearEnd     string
		format      string
	)
	fs.StringVar(&profilePath, "profile", "", "path to a YAML configuration profile")
	fs.StringVar(&source, "source", "", "restrict to a single provider (unused by the composite provider; reserved)")
	fs.StringVar(&strategy, "strategy", "fallback", "composite provider strategy: single|parallel|fallback")
	fs.IntVar(&limit, "limit", 20, "maximum number of results")
	fs.StringVar(&yearStart, "year-start", "", "earliest publication year")
	fs.StringVar(&yearEnd, "year-end", "", "latest publication year")
	fs.StringVar(&format, "format", "text", "output format: text|json")
	if err := fs.Parse(args); err != nil {
		return ExitError
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "search: a query is required")
		return ExitError
	}
	query := strings.Join(fs.Args(), " ")

	cfg, err := loadConfig(profilePath)
	if err != nil {
		fmt.Fprintf(stderr, "search: %v\n", err)
		return ExitError
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "search: %v\n", err)
		return ExitError
	}
	provider := buildProviderWithStrategy(cfg, papers.Strategy(strategy))

	var filters *domain.Filters
	if yearStart != "" || yearEnd != "" {
		filters = &domain.Filters{StartDate: yearStart, EndDate: yearEnd}
	}

	results, err := provider.SearchPapers(context.Background(), query, filters, limit)
	if err != nil {
		fmt.Fprintf(stderr, "search: %v\n", err)
		return ExitError
	}

	if format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			fmt.Fprintf(stderr, "search: encoding results: %v\n", err)
			return ExitError
		}
		return ExitOK
	}

	for i, p := range results {
		fmt.Fprintf(stdout, "%d. [%s] %s (%d, %d citations)\n", i+1, p.PaperID, p.Title, p.Year, p.CitationCount)
	}
	return ExitOK
}
