package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/altossa/deckgen/pkg/manifest"
)

// cmdFetch downloads the remote manifest, persists the raw CSV and a
// parsed gob snapshot next to it, and records the outcome in the
// sources database. The server then works fully offline from the
// snapshot.
func cmdFetch(args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	logger := newLogger()
	cfg := loadConfig(*cfgPath, logger)

	if cfg.Manifest.URL == "" {
		fmt.Fprintln(os.Stderr, "no manifest URL configured; nothing to fetch")
		os.Exit(1)
	}
	csvPath := cfg.Manifest.Path
	if csvPath == "" {
		csvPath = filepath.Join(cfg.DataDir, "manifest.csv")
	}

	sources, err := manifest.OpenSourceDB(filepath.Join(cfg.DataDir, "sources.db"))
	if err != nil {
		logger.Error("failed to open sources db", "error", err)
		os.Exit(1)
	}
	defer sources.Close()
	if err := sources.Seed(cfg.Manifest.Name, cfg.Manifest.URL); err != nil {
		logger.Error("failed to seed sources db", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	body, status, err := cfg.Manifest.Fetch(ctx)
	if err != nil {
		sources.RecordFetch(cfg.Manifest.Name, status, err.Error(), 0)
		logger.Error("manifest fetch failed", "url", cfg.Manifest.URL, "status", status, "error", err)
		os.Exit(1)
	}
	defer body.Close()

	payload, err := io.ReadAll(body)
	if err != nil {
		sources.RecordFetch(cfg.Manifest.Name, status, err.Error(), 0)
		logger.Error("manifest read failed", "error", err)
		os.Exit(1)
	}

	rows, err := manifest.ParseCSV(bytes.NewReader(payload), cfg.Manifest.Format)
	if err != nil {
		// Keep what parsed; a truncated manifest beats none.
		logger.Warn("manifest parsed partially", "rows", len(rows), "error", err)
	}

	if err := os.WriteFile(csvPath, payload, 0o644); err != nil {
		logger.Error("write manifest csv", "path", csvPath, "error", err)
		os.Exit(1)
	}
	if err := manifest.SaveSnapshot(rows, manifest.SnapshotPath(csvPath)); err != nil {
		logger.Error("write manifest snapshot", "error", err)
		os.Exit(1)
	}
	if err := sources.RecordFetch(cfg.Manifest.Name, status, "", len(rows)); err != nil {
		logger.Warn("record fetch failed", "error", err)
	}

	fmt.Printf("fetched %s: %d rows -> %s\n", cfg.Manifest.Name, len(rows), csvPath)
}
