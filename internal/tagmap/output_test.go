package tagmap

import (
	"testing"

	"github.com/opgrid/rtacgen/internal/colmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTableSorting(t *testing.T) {
	header := []string{"Tag", "Address"}
	rows := []OutputRow{
		{Columns: colmap.Columns{0: "C", 1: "10"}},
		{Columns: colmap.Columns{0: "A", 1: "2"}},
		{Columns: colmap.Columns{0: "B", 1: "9"}},
	}
	records, err := RenderTable(header, "", 1, rows)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		header,
		{"A", "2"},
		{"B", "9"},
		{"C", "10"},
	}, records)
}

func TestRenderTableSortKey(t *testing.T) {
	// array slots share an address; the fractional key keeps slot order
	header := []string{"Tag", "Address"}
	rows := []OutputRow{
		{Columns: colmap.Columns{0: "X.q", 1: "3"}, SortKey: 0.5},
		{Columns: colmap.Columns{0: "X.instMag", 1: "3"}, SortKey: 0},
		{Columns: colmap.Columns{0: "Y.instMag", 1: "1"}, SortKey: 0},
	}
	records, err := RenderTable(header, "", 1, rows)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		header,
		{"Y.instMag", "1"},
		{"X.instMag", "3"},
		{"X.q", "3"},
	}, records)
}

func TestRenderTableRecordTokenAndDefaults(t *testing.T) {
	header := []string{"Tag", "Address", "Class"}
	rows := []OutputRow{
		{Columns: colmap.Columns{0: "B_{RECORD}", 1: "7"}},
		{Columns: colmap.Columns{0: "A_{RECORD}", 1: "4", 2: "override"}},
	}
	records, err := RenderTable(header, `"", 0, fill`, 1, rows)
	require.NoError(t, err)
	// the ordinal reflects the sorted position, blanks fall back to defaults
	assert.Equal(t, [][]string{
		header,
		{"A_1", "4", "override"},
		{"B_2", "7", "fill"},
	}, records)
}

func TestRenderTableBadSortCell(t *testing.T) {
	rows := []OutputRow{{Columns: colmap.Columns{0: "A", 1: "addr"}}}
	_, err := RenderTable([]string{"Tag", "Address"}, "", 1, rows)
	assert.Error(t, err)

	// a blank sort cell with no default is an error too
	rows = []OutputRow{{Columns: colmap.Columns{0: "A"}}}
	_, err = RenderTable([]string{"Tag", "Address"}, "", 1, rows)
	assert.Error(t, err)
}

func TestRenderTableSortDefault(t *testing.T) {
	// the sorting column may come from the defaults line
	rows := []OutputRow{
		{Columns: colmap.Columns{0: "A"}, SortKey: 0.5},
		{Columns: colmap.Columns{0: "B"}},
	}
	records, err := RenderTable([]string{"Tag", "Address"}, "x, 5", 1, rows)
	require.NoError(t, err)
	assert.Equal(t, "B", records[1][0])
	assert.Equal(t, "A", records[2][0])
}

func TestParseDefaults(t *testing.T) {
	assert.Nil(t, ParseDefaults(""))
	assert.Nil(t, ParseDefaults("   "))
	assert.Equal(t, []string{"1", "2.5", "text", "quoted text", ""},
		ParseDefaults(`1, 2.5, text, "quoted text", ""`))
}
