package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"mailsweep/internal/config"
	"mailsweep/internal/store"
	"mailsweep/internal/tui"
)

func main() {
	configDir := flag.String("config", "", "config directory (default ~/.config/mailsweep)")
	limit := flag.Int("limit", -1, "cap on how many inbox emails to scan, 0 for no cap")
	flag.Parse()

	dir := *configDir
	if dir == "" {
		var err error
		dir, err = config.DefaultDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot determine config directory: %v\n", err)
			os.Exit(1)
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "Cannot create config directory: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot load config: %v\n", err)
		os.Exit(1)
	}
	if *limit >= 0 {
		cfg.FetchLimit = *limit
	}

	logger, logFile, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	manifest, err := store.NewManifest(filepath.Join(dir, "exports.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot open export manifest: %v\n", err)
		os.Exit(1)
	}
	defer manifest.Close()

	appModel := tui.NewAppModel(dir, manifest, cfg, logger)
	p := tea.NewProgram(&appModel, tea.WithAltScreen())
	appModel.SetProgram(p)
	finalModel, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Alas, there's been an error: %v\n", err)
		os.Exit(1)
	}
	if m, ok := finalModel.(*tui.AppModel); ok && m.Err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", m.Err)
		os.Exit(1)
	}
}

// newLogger writes to the configured log file, truncating it on every run so
// the file holds exactly one session.
func newLogger(cfg *config.Config) (*log.Logger, *os.File, error) {
	f, err := os.Create(cfg.LogFile)
	if err != nil {
		return nil, nil, err
	}
	lvl, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = log.InfoLevel
	}
	logger := log.NewWithOptions(f, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
	})
	return logger, f, nil
}
