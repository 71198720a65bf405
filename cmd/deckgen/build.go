package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/altossa/deckgen/pkg/catalog"
	"github.com/altossa/deckgen/pkg/deck"
	"github.com/altossa/deckgen/pkg/sheet"
)

// cmdBuild is the one-shot pipeline: read the selection spreadsheet,
// resolve every (company, product, type) row against the manifest, and
// assemble one slide per resolved row. Rows without images are reported
// and skipped, never fatal.
func cmdBuild(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	sheetPath := fs.String("sheet", "", "selection spreadsheet (.xlsx)")
	outPath := fs.String("out", "deck.pptx", "output deck path")
	upload := fs.Bool("upload", false, "upload the deck instead of writing it locally")
	fs.Parse(args)

	logger := newLogger()
	cfg := loadConfig(*cfgPath, logger)

	if *sheetPath == "" {
		fmt.Fprintln(os.Stderr, "missing --sheet")
		os.Exit(1)
	}
	entries, err := sheet.ReadWorkbook(*sheetPath)
	if err != nil {
		logger.Error("read spreadsheet", "path", *sheetPath, "error", err)
		os.Exit(1)
	}

	lib := catalog.NewLibrary(&cfg.Manifest, cfg.ImagesRoot, logger)
	if err := lib.Load(context.Background()); err != nil {
		logger.Warn("building against a degraded catalog")
	}

	var slides []deck.Slide
	tiers := map[string]int{}
	var misses []sheet.Entry
	for _, e := range entries {
		res := lib.Resolve(e.Company, e.Product, e.Type)
		tiers[res.Tier.String()]++
		if len(res.Images) == 0 {
			misses = append(misses, e)
			continue
		}
		for _, img := range res.Images {
			slides = append(slides, deck.Slide{
				Title:    e.Type,
				Link:     e.Link,
				ImageURL: img,
				Company:  e.Company,
			})
		}
	}

	fmt.Printf("spreadsheet rows: %d, slides: %d\n", len(entries), len(slides))
	for _, tier := range sortedKeys(tiers) {
		fmt.Printf("  %-14s %d\n", tier, tiers[tier])
	}
	for _, m := range misses {
		fmt.Printf("  no images: %s / %s / %s\n", m.Company, m.Product, m.Type)
	}
	if len(slides) == 0 {
		fmt.Fprintln(os.Stderr, "nothing to build")
		os.Exit(1)
	}

	fetcher := deck.NewFetcher("", cfg.FetchRPS)
	builder := deck.NewBuilder(fetcher, cfg.StaticDir, logger)

	out, err := os.Create(*outPath)
	if err != nil {
		logger.Error("create output", "path", *outPath, "error", err)
		os.Exit(1)
	}
	if err := builder.Build(context.Background(), out, slides, cfg.Deck.buildOptions()); err != nil {
		out.Close()
		logger.Error("build deck", "error", err)
		os.Exit(1)
	}
	if err := out.Close(); err != nil {
		logger.Error("close output", "error", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", *outPath)

	if *upload {
		uploader, err := deck.NewUploader(cfg.Upload, logger)
		if err != nil {
			logger.Error("upload target misconfigured", "error", err)
			os.Exit(1)
		}
		f, err := os.Open(*outPath)
		if err != nil {
			logger.Error("reopen deck", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			logger.Error("stat deck", "error", err)
			os.Exit(1)
		}
		url, err := uploader.Upload(context.Background(), info.Name(), f, info.Size())
		if err != nil {
			logger.Error("upload deck", "error", err)
			os.Exit(1)
		}
		fmt.Printf("uploaded: %s\n", url)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
