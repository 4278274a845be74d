package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/tasys/internal/app"
	"github.com/nhle/tasys/internal/credential"
	"github.com/nhle/tasys/internal/model"
	"github.com/nhle/tasys/internal/notify"
	"github.com/nhle/tasys/internal/store"
	appsync "github.com/nhle/tasys/internal/sync"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tasys: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to the config file")
	flag.Parse()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	logFile, err := tea.LogToFile(cfg.Log.File, "tasys")
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	kv, err := store.Open(cfg.State)
	if err != nil {
		return err
	}
	defer func() {
		if err := kv.Close(); err != nil {
			log.Printf("closing state store: %v", err)
		}
	}()

	token, err := credential.Token()
	if err != nil {
		// The dashboard still works against an API without auth.
		log.Printf("reading API token: %v", err)
	}

	client := app.NewClient(cfg, token)
	marks := notify.LoadWatermarks(context.Background(), kv)
	refresher := appsync.New(client)

	p := tea.NewProgram(
		app.New(app.Options{
			Config:     cfg,
			ConfigPath: *configPath,
			Token:      token,
			API:        client,
			Watermarks: marks,
			Refresher:  refresher,
		}),
		tea.WithAltScreen(),
	)
	_, err = p.Run()
	refresher.Stop()
	return err
}
