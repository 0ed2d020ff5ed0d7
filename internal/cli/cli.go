package cli

import (
	"fmt"
	"io"

	"go-litresearch/internal/config"
)

// Exit codes (§6): 0 success, 1 error, 130 interrupted (SIGINT).
const (
	ExitOK          = 0
	ExitError       = 1
	ExitInterrupted = 130
)

// Run is the entry point cmd/research/main.go calls with os.Args[1:]. It
// dispatches to a subcommand the way the teacher's single REPL command
// set is now split into `search`/`fetch`/`profiles`/`run`.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return ExitError
	}

	sub := args[0]
	rest := args[1:]

	switch sub {
	case "search":
		return runSearch(rest, stdout, stderr)
	case "fetch":
		return runFetch(rest, stdout, stderr)
	case "profiles":
		return runProfiles(rest, stdout, stderr)
	case "run":
		return runInteractive(rest, stdout, stderr)
	case "-h", "--help", "help":
		printUsage(stdout)
		return ExitOK
	default:
		fmt.Fprintf(stderr, "research: unknown subcommand %q\n", sub)
		printUsage(stderr)
		return ExitError
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `usage: research <subcommand> [flags]

subcommands:
  search <query>   search for papers (--source, --strategy, --limit, --year-start, --year-end, --format)
  fetch <paper-id>...  fetch full paper details (--with-text, --format)
  profiles         list the configured LLM/HaluGate profiles
  run <query>      run a research loop (--profile, --iterations, --use-managing-agent, --start-date, --end-date, --year)`)
}

// loadConfig reads --profile (if set) the same way every subcommand does.
func loadConfig(profilePath string) (*config.Config, error) {
	return config.Load(profilePath)
}
