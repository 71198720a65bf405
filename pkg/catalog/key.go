package catalog

// Key is the (company, product, type) triple identifying a product
// variant, as it appears in the spreadsheet or manifest.
type Key struct {
	Company string `json:"company"`
	Product string `json:"product"`
	Type    string `json:"type"`
}

// NormalizedKey is a Key with every field normalized. Equality on
// NormalizedKey is the index lookup identity.
type NormalizedKey struct {
	Company string `json:"company"`
	Product string `json:"product"`
	Type    string `json:"type"`
}

// Normalized derives the lookup identity of k using n.
func (k Key) Normalized(n Normalizer) NormalizedKey {
	return NormalizedKey{
		Company: n(k.Company),
		Product: n(k.Product),
		Type:    n(k.Type),
	}
}

// Swapped exchanges the product and type fields. Upstream data
// sometimes populates the Product and Type columns in the opposite
// order; the matcher retries lookups through this alias.
func (k NormalizedKey) Swapped() NormalizedKey {
	return NormalizedKey{Company: k.Company, Product: k.Type, Type: k.Product}
}

// Incomplete reports whether any field normalized to empty. Incomplete
// keys are never indexed and never match.
func (k NormalizedKey) Incomplete() bool {
	return k.Company == "" || k.Product == "" || k.Type == ""
}
