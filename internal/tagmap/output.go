package tagmap

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ansel1/merry"
	"github.com/opgrid/rtacgen/internal/colmap"
)

// OutputRow is one generated CSV row before final rendering. SortKey carries
// the fractional slot ordering of multi slot server tag types; it only
// stabilizes the sort and is never written.
type OutputRow struct {
	Columns colmap.Columns
	SortKey float64
}

// RenderTable renders one output group: rows sorted numerically ascending by
// the sorting column (plus the fractional sort key), then each output column
// filled from the row's own value ({RECORD} replaced with the 1-based row
// ordinal within the group) or, when blank, from the prototype defaults.
// The returned records include the header line.
func RenderTable(header []string, defaultsText string, sortingColumn int, rows []OutputRow) ([][]string, error) {
	defaults := ParseDefaults(defaultsText)

	type keyedRow struct {
		row OutputRow
		key float64
	}
	keyed := make([]keyedRow, len(rows))
	for i, row := range rows {
		v, err := sortValue(row, sortingColumn, defaults)
		if err != nil {
			return nil, err
		}
		keyed[i] = keyedRow{row: row, key: v}
	}
	sort.SliceStable(keyed, func(i, j int) bool { return keyed[i].key < keyed[j].key })

	records := make([][]string, 0, len(keyed)+1)
	records = append(records, header)
	for n, kr := range keyed {
		ordinal := strconv.Itoa(n + 1)
		rec := make([]string, len(header))
		for col := range header {
			v := kr.row.Columns[col]
			if strings.TrimSpace(v) != "" {
				rec[col] = strings.ReplaceAll(v, TokenRecord, ordinal)
				continue
			}
			if col < len(defaults) {
				rec[col] = defaults[col]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func sortValue(row OutputRow, sortingColumn int, defaults []string) (float64, error) {
	cell := strings.TrimSpace(row.Columns[sortingColumn])
	if cell == "" && sortingColumn < len(defaults) {
		cell = defaults[sortingColumn]
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, merry.Errorf("sorting column %d holds %q which is not a number", sortingColumn, cell)
	}
	return v + row.SortKey, nil
}

// ParseDefaults splits a comma separated defaults line into per column
// values. Each token is auto detected: numbers stay as written, anything
// else is read as a string with optional surrounding double quotes.
func ParseDefaults(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	tokens := strings.Split(text, ",")
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if _, err := strconv.ParseFloat(tok, 64); err == nil {
			out[i] = tok
			continue
		}
		out[i] = strings.Trim(tok, `"`)
	}
	return out
}
