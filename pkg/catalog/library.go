package catalog

import (
	"context"
	"log/slog"
	"sync"

	"github.com/altossa/deckgen/pkg/manifest"
)

// Library owns the cached manifest index for a session. The index is
// built once at startup and replaced wholesale on reload (SIGHUP or the
// reload endpoint); lookups never mutate it, so readers never observe a
// half-built index.
type Library struct {
	mu         sync.RWMutex
	idx        *Index
	src        *manifest.Source
	imagesRoot string
	normalize  Normalizer
	logger     *slog.Logger
}

// NewLibrary creates an empty library over the given manifest source.
// imagesRoot ("" to disable) is the root of the local image tree used
// by the filesystem fallback tier.
func NewLibrary(src *manifest.Source, imagesRoot string, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{
		idx:        BuildIndex(nil),
		src:        src,
		imagesRoot: imagesRoot,
		normalize:  Normalize,
		logger:     logger,
	}
}

// Load fetches the manifest and rebuilds the index from whatever rows
// the source produced. A source failure still installs the recovered
// rows (possibly none) and is returned for logging; serving continues
// either way — the worst outcome is an empty index.
func (l *Library) Load(ctx context.Context) error {
	rows, err := l.src.Load(ctx)

	idx := BuildIndexWith(rows, l.normalize)
	l.mu.Lock()
	l.idx = idx
	l.mu.Unlock()

	if err != nil {
		l.logger.Warn("manifest load degraded", "rows", len(rows), "error", err)
	} else {
		l.logger.Info("manifest loaded", "entries", idx.Len(), "dropped", idx.Dropped())
	}
	return err
}

// Reload rebuilds the index from the source (hot reload).
func (l *Library) Reload(ctx context.Context) error {
	return l.Load(ctx)
}

// Index returns the current index snapshot. The snapshot is immutable;
// callers may keep using it across a concurrent reload.
func (l *Library) Index() *Index {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.idx
}

// Resolve maps a catalog key to its best available image list via the
// matching cascade. Deterministic for a fixed index snapshot; an empty
// result is a normal outcome.
func (l *Library) Resolve(company, product, ptype string) Resolution {
	res := Resolve(l.Index(), l.imagesRoot, Key{Company: company, Product: product, Type: ptype})
	l.logger.Debug("catalog resolve",
		"company", res.Key.Company,
		"product", res.Key.Product,
		"type", res.Key.Type,
		"tier", res.Tier.String(),
		"images", len(res.Images),
	)
	return res
}
