// Package main is the entry point for nau, the new-api usage reporter.
// It runs one-shot report commands or the Bubble Tea dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/newapi-usage-tui/internal/advisory"
	"github.com/j-veylop/newapi-usage-tui/internal/app"
	"github.com/j-veylop/newapi-usage-tui/internal/config"
	"github.com/j-veylop/newapi-usage-tui/internal/fallback"
	"github.com/j-veylop/newapi-usage-tui/internal/logger"
	"github.com/j-veylop/newapi-usage-tui/internal/services"
	"github.com/j-veylop/newapi-usage-tui/internal/services/report"
	"github.com/j-veylop/newapi-usage-tui/internal/ui/tabs/account"
	"github.com/j-veylop/newapi-usage-tui/internal/ui/tabs/advice"
	"github.com/j-veylop/newapi-usage-tui/internal/ui/tabs/logs"
	"github.com/j-veylop/newapi-usage-tui/internal/ui/tabs/usage"
	"github.com/j-veylop/newapi-usage-tui/internal/upstream"
	"github.com/j-veylop/newapi-usage-tui/internal/version"
)

// errUsage marks a malformed command line.
var errUsage = errors.New("invalid arguments")

func main() {
	args := os.Args[1:]

	if len(args) > 0 {
		switch args[0] {
		case "-v", "--version":
			fmt.Println(version.Info())
			return
		case "-h", "--help", "help":
			printUsage(os.Stdout)
			return
		}
	}

	if err := run(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
		}
		os.Exit(1)
	}
}

// run dispatches a command. Only configuration and usage errors are returned;
// report failures are printed as diagnostics.
func run(args []string) error {
	cmd := "dashboard"
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	switch cmd {
	case "dashboard", "stats", "logs", "user", "advise":
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	arg, err := optionalInt(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cmd == "dashboard" {
		return runDashboard(cfg)
	}

	logger.Configure(os.Stderr, logger.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runReport(ctx, os.Stdout, cfg, cmd, arg)
}

// optionalInt parses the single optional numeric argument of a command.
func optionalInt(args []string) (int, error) {
	switch len(args) {
	case 0:
		return 0, nil
	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%w: %q is not a positive number", errUsage, args[0])
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: too many arguments", errUsage)
	}
}

func runReport(ctx context.Context, w io.Writer, cfg *config.Config, cmd string, arg int) error {
	store, err := fallback.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open fallback store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("error closing fallback store", "error", closeErr)
		}
	}()

	svc := report.NewService(cfg, upstream.NewClient(cfg), store, advisory.New(cfg, nil))
	f := report.NewFormatter(cfg.DisplayLocation, cfg.TopN, cfg.QuotaPerUnit)

	var (
		text   string
		single bool
	)

	switch cmd {
	case "stats":
		res, err := svc.Stats(ctx, arg)
		if err != nil {
			return diagnostic(w, err)
		}
		text, single = f.Stats(res), cfg.UseForward

	case "logs":
		res, err := svc.Logs(ctx, arg)
		if err != nil {
			return diagnostic(w, err)
		}
		text, single = f.Logs(res), cfg.LogUseForward

	case "user":
		res, err := svc.User(ctx)
		if err != nil {
			return diagnostic(w, err)
		}
		text, single = f.User(res), cfg.UserUseForward

	case "advise":
		res, err := svc.Advise(ctx, arg)
		if err != nil {
			return diagnostic(w, err)
		}
		text, single = res.Text, cfg.UseForward

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	return report.Deliver(w, text, single, cfg.PageChars)
}

// diagnostic prints a report failure. It never fails the process.
func diagnostic(w io.Writer, err error) error {
	var diag *report.DiagnosticError
	if errors.As(err, &diag) {
		_, werr := fmt.Fprintln(w, diag.Message())
		return werr
	}
	_, werr := fmt.Fprintf(w, "Request failed: %v\n", err)
	return werr
}

func runDashboard(cfg *config.Config) error {
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	logger.Configure(logFile, logger.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	svcManager, err := services.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if closeErr := svcManager.Close(); closeErr != nil {
			logger.Warn("error closing services", "error", closeErr)
		}
	}()

	model := app.NewModel(svcManager)
	state := model.GetState()
	model.SetTabs([]app.Tab{
		usage.New(state, cfg),
		logs.New(state, cfg),
		account.New(state, svcManager.Config),
		advice.New(state, func() bool { return svcManager.Service().AdvisoryConfigured() }),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	go func() {
		<-sigChan
		p.Send(tea.Quit())
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `nau - new-api usage reporter

Usage:
  nau [command] [n]

Commands:
  dashboard         Interactive dashboard (default)
  stats [hours]     Usage totals, rates and top models (default: WINDOW_MINUTES)
  logs [page_size]  Recent calls with failed and slow call detection
  user              Account summary and balance
  advise [hours]    LLM narrative over the usage window

Flags:
  -h, --help        Show this help message
  -v, --version     Show version information

Dashboard keys:
  1-4               Switch tabs (Usage, Logs, Account, Advice)
  Tab/Shift+Tab     Next/previous tab
  r                 Refresh data
  ?                 Toggle help
  q, Ctrl+C         Quit

Environment Variables:
  BASE_DOMAIN       Upstream new-api base URL
  AUTHORIZATION     Access token sent as the Authorization header
  NEW_API_USER      User id sent as the New-Api-User header
  WINDOW_MINUTES    Stats window (default: 1440)
  FALLBACK_BACKEND  json or sqlite
  CONFIG_FILE       YAML file with providers and probe paths
  LLM_ENABLED       Enable the advisory (with LLM_BASE_URL, LLM_API_KEY, LLM_MODEL)

Configuration:
  .env files are read from the current directory and ~/.config/nau/.env.`)
}
