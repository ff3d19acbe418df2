package main

import (
	"fmt"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"cinebook-cli/auth"
	"cinebook-cli/booking"
	"cinebook-cli/config"
	"cinebook-cli/logging"
	"cinebook-cli/service"
	"cinebook-cli/store"
	"cinebook-cli/tui"
)

const appName = "cinebook-cli"

var (
	version = "dev"
	commit  = "none"
)

func printUsage(out *os.File) {
	fmt.Fprintf(out, "Usage: %s [--version]\n", appName)
}

func printVersion() {
	fmt.Printf("%s %s", appName, version)
	if commit != "none" && commit != "" {
		fmt.Printf(" (%s)", commit)
	}
	fmt.Println()
}

func handleArgs(args []string) bool {
	if len(args) == 0 {
		return true
	}

	for _, arg := range args {
		switch arg {
		case "-h", "--help", "help":
			printUsage(os.Stdout)
			return false
		case "-v", "--version", "version":
			printVersion()
			return false
		default:
			fmt.Fprintf(os.Stderr, "Unknown argument: %s\n", arg)
			printUsage(os.Stderr)
			os.Exit(2)
		}
	}

	return false
}

func main() {
	if !handleArgs(os.Args[1:]) {
		return
	}

	cfg := config.Load()

	log, err := logging.New(cfg.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open log file:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	accountID := cfg.AccountID
	if accountID == "" {
		accountID = "guest"
	}
	session, err := auth.NewSession(accountID, cfg.AccountToken)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	opts := []service.Option{
		service.WithSession(session),
		service.WithLogger(logging.WithComponent(log, "api")),
	}
	if cfg.APIBaseURL != "" {
		opts = append(opts, service.WithBaseURL(cfg.APIBaseURL))
	}
	client := service.NewClient(&http.Client{Timeout: cfg.RequestTimeout}, opts...)
	backend := store.NewCachedCatalog(client, logging.WithComponent(log, "store"))

	coordinator := booking.NewCoordinator(backend, session,
		booking.Config{MaxSeatsPerOrder: cfg.MaxSeatsPerOrder},
		logging.WithComponent(log, "booking"))

	if _, err := tea.NewProgram(tui.New(coordinator), tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
