// Package sheet reads the catalog spreadsheet: tabular rows naming a
// Company, Product and Type, with an optional product Link. The
// spreadsheet is reference data maintained by the sales team; no schema
// validation beyond locating the columns.
package sheet

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Entry is one catalog spreadsheet row.
type Entry struct {
	Company string `json:"company"`
	Product string `json:"product"`
	Type    string `json:"type"`
	Link    string `json:"link,omitempty"`
}

// ReadWorkbook reads catalog entries from the first sheet of an xlsx
// workbook. Header cells are matched case-insensitively; Link is
// optional. Rows with an empty Company cell are skipped.
func ReadWorkbook(path string) ([]Entry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	name := f.GetSheetName(0)
	if name == "" {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols := map[string]int{"company": -1, "product": -1, "type": -1, "link": -1}
	for i, h := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, tracked := cols[key]; tracked {
			cols[key] = i
		}
	}
	for _, required := range []string{"company", "product", "type"} {
		if cols[required] < 0 {
			return nil, fmt.Errorf("workbook %s: missing %q column", path, required)
		}
	}

	var entries []Entry
	for _, row := range rows[1:] {
		e := Entry{
			Company: cell(row, cols["company"]),
			Product: cell(row, cols["product"]),
			Type:    cell(row, cols["type"]),
			Link:    cell(row, cols["link"]),
		}
		if e.Company == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
