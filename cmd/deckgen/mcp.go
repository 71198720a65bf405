package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/altossa/deckgen/pkg/api"
	"github.com/altossa/deckgen/pkg/catalog"
	"github.com/altossa/deckgen/pkg/deck"
)

// cmdMCP serves the resolve/catalog/staging tools over MCP on stdio,
// for editor and agent integrations. Logs go to stderr; stdout is the
// protocol stream.
func cmdMCP(args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
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
		logger.Warn("serving tools against a degraded catalog")
	}

	srv := server.NewMCPServer("deckgen", "1.0.0")
	api.RegisterMCPTools(srv, lib, store)

	logger.Info("mcp tools on stdio", "entries", lib.Index().Len())
	if err := server.ServeStdio(srv); err != nil {
		logger.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
