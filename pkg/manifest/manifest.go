// Package manifest reads the image manifest: CSV rows mapping a
// (company, product, type) triple to a |-delimited list of image
// references. Parsing is forgiving; acceptance rules live in the index
// builder.
package manifest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Row is one raw manifest record handed to the index builder.
type Row struct {
	Company string
	Product string
	Type    string
	Images  []string
}

// FormatSpec describes the manifest CSV layout.
type FormatSpec struct {
	Delimiter string `yaml:"delimiter"`
	Encoding  string `yaml:"encoding"`
}

// Column names expected in the manifest header, matched
// case-insensitively.
const (
	colCompany = "company"
	colProduct = "product"
	colType    = "type"
	colImages  = "imageurls"
)

// ParseCSV reads manifest rows from r. A header row naming the
// Company/Product/Type/ImageURLs columns is required; column order is
// free. On a read error mid-stream the rows parsed so far are returned
// together with the error, so a truncated payload degrades instead of
// discarding everything.
func ParseCSV(r io.Reader, spec FormatSpec) ([]Row, error) {
	// Transcode non-UTF-8 encodings declared for the source.
	if enc := spec.Encoding; enc != "" && !isUTF8(enc) {
		e, err := htmlindex.Get(enc)
		if err != nil {
			return nil, fmt.Errorf("unsupported encoding %q: %w", enc, err)
		}
		r = transform.NewReader(r, e.NewDecoder())
	}

	cr := csv.NewReader(r)
	if spec.Delimiter != "" {
		cr.Comma = []rune(spec.Delimiter)[0]
	}
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, want := range []string{colCompany, colProduct, colType, colImages} {
		if _, ok := cols[want]; !ok {
			return nil, fmt.Errorf("manifest header missing column %q (got %v)", want, header)
		}
	}

	var rows []Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, fmt.Errorf("read manifest row: %w", err)
		}
		rows = append(rows, Row{
			Company: field(record, cols[colCompany]),
			Product: field(record, cols[colProduct]),
			Type:    field(record, cols[colType]),
			Images:  SplitImages(field(record, cols[colImages])),
		})
	}
}

// SplitImages splits a |-delimited reference list, trimming each part
// and dropping empties.
func SplitImages(s string) []string {
	var out []string
	for _, part := range strings.Split(s, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func isUTF8(enc string) bool {
	e := strings.ToLower(strings.ReplaceAll(enc, "-", ""))
	return e == "utf8" || e == ""
}
