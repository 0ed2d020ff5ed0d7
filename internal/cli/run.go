package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/google/uuid"

	"go-litresearch/internal/domain"
	"go-litresearch/internal/events"
)

var (
	colorGreen  = color.New(color.FgGreen)
	colorYellow = color.New(color.FgYellow)
	colorRed    = color.New(color.FgRed)
	colorCyan   = color.New(color.FgCyan)
	colorDim    = color.New(color.Faint)
)

// runInteractive implements the `run` subcommand (§6): start a loop, drive
// it with run_auto, then drop into a readline prompt offering follow-up
// launch_research_loop calls, the same shape internal/repl.REPL wraps
// chzyer/readline in.
func runInteractive(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		profilePath        string
		iterations         int
		useManagingAgent   bool
		startDate, endDate string
		year               string
	)
	fs.StringVar(&profilePath, "profile", "", "path to a YAML configuration profile")
	fs.IntVar(&iterations, "iterations", 0, "maximum iterations for run_auto (0 = profile default)")
	fs.BoolVar(&useManagingAgent, "use-managing-agent", false, "reserved: profile already wires the Managing Agent when a tool-capable LLM profile is selected")
	fs.StringVar(&startDate, "start-date", "", "earliest publication date filter")
	fs.StringVar(&endDate, "end-date", "", "latest publication date filter")
	fs.StringVar(&year, "year", "", "publication year range filter, e.g. 2018-2023")
	if err := fs.Parse(args); err != nil {
		return ExitError
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "run: a query is required")
		return ExitError
	}
	query := fs.Arg(0)

	cfg, err := loadConfig(profilePath)
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return ExitError
	}
	engine, err := newEngine(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return ExitError
	}

	var filters *domain.Filters
	if startDate != "" || endDate != "" || year != "" {
		filters = &domain.Filters{StartDate: startDate, EndDate: endDate, Year: year}
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		colorYellow.Fprintln(stdout, "\ninterrupt received, cancelling...")
		cancel()
	}()
	defer signal.Stop(sigCh)

	sessionID := uuid.NewString()
	go streamProgress(ctx, stdout, engine.Bus, sessionID)

	state, err := engine.Master.StartLoop(ctx, engine.Store, sessionID, query, 1, nil, filters)
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return ExitError
	}

	if err := engine.Master.RunAuto(ctx, state, sessionID, iterations, cfg.Master.StopOnHypotheses, cfg.Master.MaxConsecutiveEmpty); err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return ExitError
	}
	if ctx.Err() != nil {
		return ExitInterrupted
	}

	renderStatus(stdout, engine, sessionID)
	return interactiveFollowUp(ctx, stdout, stderr, engine, sessionID, state, cfg.HistoryFile)
}

// interactiveFollowUp offers launch_research_loop/get_status follow-ups
// after the initial run_auto pass completes, reading lines with readline
// the way internal/repl.REPL does.
func interactiveFollowUp(ctx context.Context, stdout, stderr io.Writer, engine *Engine, sessionID string, state *domain.LoopState, historyFile string) int {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[36mresearch>\033[0m ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		// Non-interactive environment (no TTY) — the run_auto pass already
		// completed and its status has been printed, so this is not fatal.
		return ExitOK
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			return ExitOK
		}
		switch line {
		case "", "status":
			renderStatus(stdout, engine, sessionID)
		case "exit", "quit":
			return ExitOK
		default:
			fmt.Fprintln(stdout, "commands: status | exit")
		}
		if ctx.Err() != nil {
			return ExitInterrupted
		}
	}
}

// streamProgress prints one dim line per session event as run_auto drives
// the loop, subscribed through Bus.SubscribeSession so events from any
// other session sharing the same Bus never interleave with this one's
// output. It exits when ctx is cancelled or the Bus is closed.
func streamProgress(ctx context.Context, w io.Writer, bus *events.Bus, sessionID string) {
	ch := bus.SubscribeSession(sessionID,
		events.EventBranchCreated, events.EventBranchStatusChanged, events.EventPapersFound,
		events.EventSummaryValidated, events.EventSummariesValidated,
		events.EventHypothesisGenerated, events.EventHypothesesGenerated,
		events.EventIterationCompleted)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			colorDim.Fprintf(w, "  [%s] %s branch=%s\n", ev.Timestamp.Format("15:04:05"), ev.Type, ev.BranchID)
		}
	}
}

// renderStatus prints a get_status snapshot with a qualitative
// context-utilization banner the way the teacher's Renderer colors its
// progress lines: green below 0.70, yellow from 0.70, red from 0.90.
func renderStatus(w io.Writer, engine *Engine, sessionID string) {
	snap, ok := engine.Master.GetStatus(engine.Store, sessionID, "")
	if !ok {
		colorRed.Fprintln(w, "no status available")
		return
	}
	colorCyan.Fprintf(w, "session %s: %s (loop %d, %d papers, %d summaries)\n",
		snap.SessionID, snap.Status, snap.LoopNumber, snap.TotalPapers, snap.TotalSummaries)
	for _, b := range snap.Branches {
		banner := colorGreen
		switch {
		case b.ContextUtilization >= 0.90:
			banner = colorRed
		case b.ContextUtilization >= 0.70:
			banner = colorYellow
		}
		banner.Fprintf(w, "  branch %s [%s/%s] papers=%d summaries=%d iterations=%d ctx=%.0f%%\n",
			b.BranchID, b.Mode, b.Status, b.PaperCount, b.SummaryCount, b.IterationCount, b.ContextUtilization*100)
	}
}
