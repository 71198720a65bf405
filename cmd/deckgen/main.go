// Command deckgen resolves catalog keys to product images and builds
// slide decks from them. It serves the HTTP API, fetches the manifest,
// builds decks from a spreadsheet in one shot, or speaks MCP on stdio.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/altossa/deckgen/pkg/api"
	"github.com/altossa/deckgen/pkg/catalog"
	"github.com/altossa/deckgen/pkg/deck"
	"github.com/altossa/deckgen/pkg/manifest"
)

type config struct {
	Addr       string            `yaml:"addr"`
	DataDir    string            `yaml:"data_dir"`
	ImagesRoot string            `yaml:"images_root"`
	StaticDir  string            `yaml:"static_dir"`
	FetchRPS   float64           `yaml:"fetch_rps"`
	CheckEvery time.Duration     `yaml:"check_interval"`
	Manifest   manifest.Source   `yaml:"manifest"`
	Deck       deckConfig        `yaml:"deck"`
	Upload     deck.UploadConfig `yaml:"upload"`
}

type deckConfig struct {
	IncludeFirstLast bool   `yaml:"include_first_last"`
	FirstImage       string `yaml:"first_image"`
	LastImage        string `yaml:"last_image"`
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "fetch":
		cmdFetch(os.Args[2:])
	case "build":
		cmdBuild(os.Args[2:])
	case "mcp":
		cmdMCP(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: deckgen <command>

Commands:
  serve   Start the HTTP server
  fetch   Download the manifest and refresh the local snapshot
  build   Build a deck from a spreadsheet in one shot
  mcp     Serve the MCP tools on stdio
`)
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	logger := newLogger()
	cfg := loadConfig(*cfgPath, logger)

	store, err := deck.OpenStore(filepath.Join(cfg.DataDir, "slides.db"))
	if err != nil {
		logger.Error("failed to open staging store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	lib := catalog.NewLibrary(&cfg.Manifest, cfg.ImagesRoot, logger)
	if err := lib.Load(context.Background()); err != nil {
		// Already logged; serve with whatever loaded.
		logger.Warn("starting with a degraded catalog")
	}

	fetcher := deck.NewFetcher("", cfg.FetchRPS)
	builder := deck.NewBuilder(fetcher, cfg.StaticDir, logger)

	var uploader *deck.Uploader
	if cfg.Upload.Endpoint != "" {
		uploader, err = deck.NewUploader(cfg.Upload, logger)
		if err != nil {
			logger.Error("upload target misconfigured", "error", err)
			os.Exit(1)
		}
	}

	// Background availability probes against the manifest URL.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Manifest.URL != "" && cfg.CheckEvery > 0 {
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
		go manifest.NewChecker(sources, logger, cfg.CheckEvery).Start(ctx)
	}

	router := api.NewRouter(api.Config{
		Library:  lib,
		Store:    store,
		Builder:  builder,
		Fetcher:  fetcher,
		Uploader: uploader,
		Deck:     cfg.Deck.buildOptions(),
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	// SIGHUP: hot reload the manifest index.
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for range sighup {
			logger.Info("SIGHUP received, reloading manifest")
			if err := lib.Reload(context.Background()); err != nil {
				logger.Error("reload failed", "error", err)
			} else {
				logger.Info("manifest reloaded", "entries", lib.Index().Len())
			}
		}
	}()

	go func() {
		logger.Info("deckgen listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	srv.Shutdown(context.Background())
}

func (d deckConfig) buildOptions() deck.BuildOptions {
	return deck.BuildOptions{
		IncludeFirstLast: d.IncludeFirstLast,
		FirstImage:       d.FirstImage,
		LastImage:        d.LastImage,
	}
}

func loadConfig(path string, logger *slog.Logger) config {
	cfg := config{
		Addr:    ":8410",
		DataDir: "data",
		Manifest: manifest.Source{
			Name: "catalog",
			Path: filepath.Join("data", "manifest.csv"),
		},
	}

	// Secrets come from the environment (.env in dev), never the
	// config file checked into the repo.
	godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("no config file, using defaults", "path", path)
		} else {
			logger.Error("read config", "error", err)
			os.Exit(1)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		logger.Error("parse config", "error", err)
		os.Exit(1)
	}

	if cfg.Upload.AccessKey == "" {
		cfg.Upload.AccessKey = os.Getenv("DECKGEN_S3_ACCESS_KEY")
	}
	if cfg.Upload.SecretKey == "" {
		cfg.Upload.SecretKey = os.Getenv("DECKGEN_S3_SECRET_KEY")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("create data dir", "error", err)
		os.Exit(1)
	}
	return cfg
}
