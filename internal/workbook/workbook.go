// Package workbook reads the input xlsx file into plain rows of trimmed cell
// text. All schema interpretation happens above it.
package workbook

import (
	"strings"

	"github.com/ansel1/merry"
	"github.com/tealeg/xlsx/v3"
)

// Sheet is one worksheet flattened to a dense cell grid.
type Sheet struct {
	Name  string
	Cells [][]string
}

// Cell returns the trimmed text at (row, col), "" when out of range.
func (s *Sheet) Cell(row, col int) string {
	if row < 0 || row >= len(s.Cells) {
		return ""
	}
	r := s.Cells[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// RowCount is the number of rows read from the worksheet.
func (s *Sheet) RowCount() int { return len(s.Cells) }

// Workbook is the opened input file.
type Workbook struct {
	Path   string
	Sheets []*Sheet
	byName map[string]*Sheet
}

// Load opens an xlsx workbook and reads every sheet completely. The file is
// not kept open: generation works on the in memory copy.
func Load(path string) (*Workbook, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, merry.Prependf(err, "open workbook %s", path)
	}
	w := &Workbook{Path: path, byName: map[string]*Sheet{}}
	for _, sh := range f.Sheets {
		grid := make([][]string, sh.MaxRow)
		for r := 0; r < sh.MaxRow; r++ {
			cells := make([]string, sh.MaxCol)
			for c := 0; c < sh.MaxCol; c++ {
				cell, err := sh.Cell(r, c)
				if err != nil {
					return nil, merry.Prependf(err, "sheet %s cell (%d,%d)", sh.Name, r, c)
				}
				cells[c] = strings.TrimSpace(cell.String())
			}
			grid[r] = cells
		}
		sh.Close()
		w.AddSheet(&Sheet{Name: sh.Name, Cells: grid})
	}
	return w, nil
}

// AddSheet appends a sheet to the workbook.
func (w *Workbook) AddSheet(s *Sheet) {
	if w.byName == nil {
		w.byName = map[string]*Sheet{}
	}
	w.Sheets = append(w.Sheets, s)
	w.byName[s.Name] = s
}

// Sheet looks a worksheet up by name.
func (w *Workbook) Sheet(name string) (*Sheet, error) {
	s, f := w.byName[name]
	if !f {
		return nil, merry.Errorf("workbook has no sheet named %q", name)
	}
	return s, nil
}
