package catalog

import (
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/altossa/deckgen/pkg/manifest"
)

// imageExts is the fixed allow-list shared by manifest reference
// cleanup and the filesystem fallback tier.
var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

// Entry is one indexed manifest row: its normalized key, the raw labels
// it came from, and its ordered image references.
type Entry struct {
	Key    NormalizedKey
	Raw    Key
	Images []string
}

type pairKey struct{ company, product string }

// Index maps normalized catalog keys to image lists. It is built once
// from manifest rows, preserves manifest order, and is read-only
// thereafter; a reload builds a fresh Index and swaps it in wholesale.
//
// Storage is canonical: one entry per accepted row. The swapped-field
// alias is served by an explicit second lookup with product and type
// exchanged rather than by doubling every entry.
type Index struct {
	entries   []Entry
	byKey     map[NormalizedKey]int
	byPair    map[pairKey][]int
	normalize Normalizer
	dropped   int
}

// BuildIndex builds an Index from manifest rows with the default
// normalizer.
func BuildIndex(rows []manifest.Row) *Index {
	return BuildIndexWith(rows, Normalize)
}

// BuildIndexWith builds an Index using the given normalizer.
//
// A row is indexed only if all three fields normalize to non-empty
// strings and at least one image reference survives trimming. Rejected
// rows are counted, never surfaced as entries. When two rows normalize
// to the same key the later one wins.
func BuildIndexWith(rows []manifest.Row, n Normalizer) *Index {
	idx := &Index{
		byKey:     make(map[NormalizedKey]int),
		byPair:    make(map[pairKey][]int),
		normalize: n,
	}

	var collisions int
	for _, row := range rows {
		raw := Key{Company: row.Company, Product: row.Product, Type: row.Type}
		nk := raw.Normalized(n)

		images := make([]string, 0, len(row.Images))
		for _, ref := range row.Images {
			ref = strings.TrimSpace(ref)
			if ref == "" {
				continue
			}
			images = append(images, cleanImageRef(ref))
		}

		if nk.Incomplete() || len(images) == 0 {
			idx.dropped++
			continue
		}

		if i, exists := idx.byKey[nk]; exists {
			collisions++
			idx.entries[i] = Entry{Key: nk, Raw: raw, Images: images}
			continue
		}

		i := len(idx.entries)
		idx.entries = append(idx.entries, Entry{Key: nk, Raw: raw, Images: images})
		idx.byKey[nk] = i
		p := pairKey{nk.Company, nk.Product}
		idx.byPair[p] = append(idx.byPair[p], i)
	}

	if collisions > 0 {
		slog.Warn("manifest key collisions after normalization", "collisions", collisions)
	}
	return idx
}

// cleanImageRef strips stray trailing slashes that follow a known image
// extension (a URL accidentally suffixed with "/").
func cleanImageRef(ref string) string {
	trimmed := strings.TrimRight(ref, "/")
	if imageExts[strings.ToLower(path.Ext(trimmed))] {
		return trimmed
	}
	return ref
}

// lookup returns the image list for nk, trying the canonical key first
// and the swapped-field alias second.
func (idx *Index) lookup(nk NormalizedKey) ([]string, bool) {
	if i, ok := idx.byKey[nk]; ok {
		return idx.entries[i].Images, true
	}
	if i, ok := idx.byKey[nk.Swapped()]; ok {
		return idx.entries[i].Images, true
	}
	return nil, false
}

// pairEntries returns, in manifest order, every entry sharing the given
// normalized company and product.
func (idx *Index) pairEntries(company, product string) []Entry {
	ids := idx.byPair[pairKey{company, product}]
	if len(ids) == 0 {
		return nil
	}
	out := make([]Entry, 0, len(ids))
	for _, i := range ids {
		out = append(out, idx.entries[i])
	}
	return out
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int { return len(idx.entries) }

// Dropped returns the number of rows rejected during the build.
// Diagnostic only; rejection is silent per-row.
func (idx *Index) Dropped() int { return idx.dropped }

// Companies returns the distinct raw company labels, sorted.
func (idx *Index) Companies() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range idx.entries {
		if !seen[e.Key.Company] {
			seen[e.Key.Company] = true
			out = append(out, e.Raw.Company)
		}
	}
	sort.Strings(out)
	return out
}

// ProductsFor returns the distinct raw product labels for a company,
// sorted. The company is matched after normalization.
func (idx *Index) ProductsFor(company string) []string {
	c := idx.normalize(company)
	seen := make(map[string]bool)
	var out []string
	for _, e := range idx.entries {
		if e.Key.Company != c || seen[e.Key.Product] {
			continue
		}
		seen[e.Key.Product] = true
		out = append(out, e.Raw.Product)
	}
	sort.Strings(out)
	return out
}

// TypesFor returns the distinct raw type labels for a company+product,
// sorted.
func (idx *Index) TypesFor(company, product string) []string {
	c, p := idx.normalize(company), idx.normalize(product)
	seen := make(map[string]bool)
	var out []string
	for _, e := range idx.pairEntries(c, p) {
		if seen[e.Key.Type] {
			continue
		}
		seen[e.Key.Type] = true
		out = append(out, e.Raw.Type)
	}
	sort.Strings(out)
	return out
}
