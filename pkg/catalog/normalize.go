package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer canonicalizes a free-text label before indexing or lookup.
type Normalizer func(string) string

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize is the default key normalizer: NFKC fold, trim, collapse
// internal whitespace runs to a single space, lower-case. Total: any
// input (including empty) yields a string, and an empty result never
// matches a non-empty manifest key.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(strings.Join(fields, " "))
}

// NormalizeASCII is Normalize plus accent stripping
// (e.g. "Ditré  Italia" -> "ditre italia").
func NormalizeASCII(s string) string {
	out, _, err := transform.String(stripAccents, Normalize(s))
	if err != nil {
		return Normalize(s)
	}
	return out
}

// NormalizeNone returns the label unchanged.
func NormalizeNone(s string) string {
	return s
}

// GetNormalizer returns the normalizer for the given mode.
// Default is nfkc_lower.
func GetNormalizer(mode string) Normalizer {
	switch mode {
	case "nfkc_lower":
		return Normalize
	case "lowercase_ascii":
		return NormalizeASCII
	case "none":
		return NormalizeNone
	default:
		return Normalize
	}
}

var tokenSeparators = strings.NewReplacer("-", " ", "_", " ")

// Tokenize splits a type label into its set of words, normalizing first
// and treating hyphens and underscores as separators. Duplicates
// collapse; empty input yields an empty set. Used only for the
// token-overlap match tier, never for exact equality.
func Tokenize(s string) map[string]struct{} {
	words := strings.Fields(tokenSeparators.Replace(Normalize(s)))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// overlap counts the tokens shared by two sets.
func overlap(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}
