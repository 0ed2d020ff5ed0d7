package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
)

func runFetch(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		profilePath string
		withText    bool
		format      string
	)
	fs.StringVar(&profilePath, "profile", "", "path to a YAML configuration profile")
	fs.BoolVar(&withText, "with-text", false, "also extract full text from the paper's PDF")
	fs.StringVar(&format, "format", "text", "output format: text|json")
	if err := fs.Parse(args); err != nil {
		return ExitError
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "fetch: at least one paper id is required")
		return ExitError
	}
	ids := fs.Args()

	cfg, err := loadConfig(profilePath)
	if err != nil {
		fmt.Fprintf(stderr, "fetch: %v\n", err)
		return ExitError
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "fetch: %v\n", err)
		return ExitError
	}
	provider := buildProvider(cfg)

	var details []interface{}
	ctx := context.Background()
	if withText {
		papers, err := provider.FetchPapersWithText(ctx, ids)
		if err != nil {
			fmt.Fprintf(stderr, "fetch: %v\n", err)
			return ExitError
		}
		for _, p := range papers {
			details = append(details, p)
		}
	} else {
		papers, err := provider.FetchPapers(ctx, ids)
		if err != nil {
			fmt.Fprintf(stderr, "fetch: %v\n", err)
			return ExitError
		}
		for _, p := range papers {
			details = append(details, p)
		}
	}

	if format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(details); err != nil {
			fmt.Fprintf(stderr, "fetch: encoding results: %v\n", err)
			return ExitError
		}
		return ExitOK
	}

	for _, d := range details {
		fmt.Fprintf(stdout, "%+v\n", d)
	}
	return ExitOK
}
