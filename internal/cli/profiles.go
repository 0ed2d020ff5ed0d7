package cli

import (
	"flag"
	"fmt"
	"io"

	"go-litresearch/internal/config"
)

func runProfiles(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("profiles", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var profilePath string
	fs.StringVar(&profilePath, "profile", "", "path to a YAML configuration profile")
	if err := fs.Parse(args); err != nil {
		return ExitError
	}

	cfg, err := loadConfig(profilePath)
	if err != nil {
		fmt.Fprintf(stderr, "profiles: %v\n", err)
		return ExitError
	}

	fmt.Fprintf(stdout, "llm_profile:      %s\n", cfg.LLMProfile)
	fmt.Fprintf(stdout, "halugate_profile: %s\n", cfg.HaluGateProfile)
	fmt.Fprintf(stdout, "model:            %s\n", cfg.Model)
	fmt.Fprintln(stdout, "\navailable llm profiles:", config.LLMProfileOpenRouter, config.LLMProfileAnthropic, config.LLMProfileMock)
	fmt.Fprintln(stdout, "available halugate profiles:", config.HaluGateProfileLocal, config.HaluGateProfileHTTP, config.HaluGateProfileMock)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stdout, "\nwarning: %v\n", err)
	}
	return ExitOK
}
