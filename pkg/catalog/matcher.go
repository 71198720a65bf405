package catalog

import "strings"

// Tier identifies the cascade stage that produced a resolution.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierSoftType
	TierTokenOverlap
	TierPairFallback
	TierSwapped
	TierFilesystem
)

var tierNames = [...]string{
	TierNone:         "none",
	TierExact:        "exact",
	TierSoftType:     "soft_type",
	TierTokenOverlap: "token_overlap",
	TierPairFallback: "pair_fallback",
	TierSwapped:      "swapped",
	TierFilesystem:   "filesystem",
}

func (t Tier) String() string {
	if int(t) < len(tierNames) {
		return tierNames[t]
	}
	return "unknown"
}

// MarshalText renders the tier name in JSON responses.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Resolution is the outcome of a catalog lookup. An empty image list is
// a normal, expected state, never an error.
type Resolution struct {
	Key    NormalizedKey `json:"key"`
	Images []string      `json:"images"`
	Tier   Tier          `json:"tier"`
}

// Resolve runs the full cascade against a fixed index snapshot:
// manifest tiers 1-4, the same tiers with product and type swapped, and
// finally the local image tree under imagesRoot ("" disables the
// filesystem tier). Deterministic for a given index.
func Resolve(idx *Index, imagesRoot string, key Key) Resolution {
	nk := key.Normalized(idx.normalize)

	images, tier := matchIndex(idx, nk)
	if tier == TierNone {
		if swapped, t := matchIndex(idx, nk.Swapped()); t != TierNone {
			images, tier = swapped, TierSwapped
		}
	}
	if tier == TierNone && imagesRoot != "" {
		if files := ListImages(imagesRoot, key.Company, key.Product, key.Type); len(files) > 0 {
			images, tier = files, TierFilesystem
		}
	}

	if images == nil {
		images = []string{}
	}
	return Resolution{Key: nk, Images: images, Tier: tier}
}

// matchIndex runs cascade tiers 1-4 against the index. Each tier is
// attempted only when the previous one yields nothing.
func matchIndex(idx *Index, nk NormalizedKey) ([]string, Tier) {
	// 1. Exact: canonical key, then the swapped-field alias.
	if images, ok := idx.lookup(nk); ok {
		return images, TierExact
	}

	group := idx.pairEntries(nk.Company, nk.Product)

	// 2. Soft type: equal, prefix or substring in either direction.
	// Contains covers equality and prefixes. An empty query type
	// matches nothing here; it falls through to the pair fallback.
	if nk.Type != "" {
		for _, e := range group {
			if strings.Contains(e.Key.Type, nk.Type) || strings.Contains(nk.Type, e.Key.Type) {
				return e.Images, TierSoftType
			}
		}
	}

	// 3. Token overlap: strictly highest positive score wins. Ties go
	// to the lexicographically smallest normalized type, then manifest
	// order.
	qTokens := Tokenize(nk.Type)
	best, bestType := 0, ""
	var bestImages []string
	for _, e := range group {
		score := overlap(qTokens, Tokenize(e.Key.Type))
		if score == 0 {
			continue
		}
		if score > best || (score == best && e.Key.Type < bestType) {
			best, bestType, bestImages = score, e.Key.Type, e.Images
		}
	}
	if best > 0 {
		return bestImages, TierTokenOverlap
	}

	// 4. Last manifest resort: any entry for the company+product.
	if len(group) > 0 {
		return group[0].Images, TierPairFallback
	}

	return nil, TierNone
}
