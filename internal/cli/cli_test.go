package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestRun_NoArgsPrintsUsageAndErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := Run(nil, &stdout, &stderr); code != ExitError {
		t.Fatalf("expected ExitError, got %d", code)
	}
	if !strings.Contains(stderr.String(), "usage:") {
		t.Fatalf("expected usage text on stderr, got %q", stderr.String())
	}
}

func TestRun_UnknownSubcommandErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := Run([]string{"bogus"}, &stdout, &stderr); code != ExitError {
		t.Fatalf("expected ExitError, got %d", code)
	}
	if !strings.Contains(stderr.String(), "unknown subcommand") {
		t.Fatalf("expected unknown-subcommand message, got %q", stderr.String())
	}
}

func TestRun_HelpPrintsUsageAndSucceeds(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := Run([]string{"help"}, &stdout, &stderr); code != ExitOK {
		t.Fatalf("expected ExitOK, got %d", code)
	}
	if !strings.Contains(stdout.String(), "search") {
		t.Fatalf("expected usage to mention subcommands, got %q", stdout.String())
	}
}

func TestRun_ProfilesSucceedsAgainstDefaults(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := Run([]string{"profiles"}, &stdout, &stderr); code != ExitOK {
		t.Fatalf("expected ExitOK, got %d (stderr: %s)", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "llm_profile") {
		t.Fatalf("expected profile info in output, got %q", stdout.String())
	}
}

func TestRun_SearchWithoutQueryErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := Run([]string{"search"}, &stdout, &stderr); code != ExitError {
		t.Fatalf("expected ExitError, got %d", code)
	}
}

func TestRun_FetchWithoutIDsErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := Run([]string{"fetch"}, &stdout, &stderr); code != ExitError {
		t.Fatalf("expected ExitError, got %d", code)
	}
}

func TestRun_RunWithoutQueryErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := Run([]string{"run"}, &stdout, &stderr); code != ExitError {
		t.Fatalf("expected ExitError, got %d", code)
	}
}
