package tagmap

import (
	"testing"

	"github.com/opgrid/rtacgen/internal/colmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSourceExpression(t *testing.T) {
	cases := []struct {
		expr   string
		device string
		tag    string
	}{
		{"IED1.MMXU1.A.instMag", "IED1", "IED1.MMXU1"},
		{"IED1.GGIO1", "IED1", "IED1.GGIO1"},
		{"DNPC_BIN_003", "", ""},
		{"ELSE", "", ""},
		{"", "", ""},
	}
	for _, c := range cases {
		var e MapEntry
		e.SetSourceExpression(c.expr)
		assert.Equal(t, c.expr, e.SourceExpression(), c.expr)
		assert.Equal(t, c.device, e.ParsedDeviceName, c.expr)
		assert.Equal(t, c.tag, e.ParsedTagName, c.expr)
	}

	// re-setting recomputes the parsed names
	var e MapEntry
	e.SetSourceExpression("IED1.MMXU1.A")
	e.SetSourceExpression("END_IF")
	assert.Equal(t, "", e.ParsedDeviceName)
	assert.Equal(t, "", e.ParsedTagName)
}

func nominalEntry(t *testing.T, typeName string, cols [2]int, row colmap.Columns) *MapEntry {
	pt, err := ParsePointType(typeName)
	require.NoError(t, err)
	return &MapEntry{
		DestTag:           "Tag1",
		PointType:         pt,
		NominalColumns:    cols,
		HasNominalColumns: true,
		ScadaRow:          row,
	}
}

func TestNominalValueBinary(t *testing.T) {
	cases := []struct {
		cell string
		want string
	}{
		{"1", "TRUE"},
		{"0", "FALSE"},
		{"-1", "FALSE"},
		{"", "FALSE"},
	}
	for _, c := range cases {
		e := nominalEntry(t, StatusBinary, [2]int{5, 5}, colmap.Columns{5: c.cell})
		v, err := e.NominalValue()
		require.NoError(t, err, c.cell)
		assert.Equal(t, c.want, v, c.cell)
	}

	e := nominalEntry(t, StatusBinary, [2]int{5, 5}, colmap.Columns{5: "yes"})
	_, err := e.NominalValue()
	assert.Error(t, err)
}

func TestNominalValueAnalog(t *testing.T) {
	// mean of the two middle ranked limit values
	e := nominalEntry(t, StatusAnalog, [2]int{10, 11}, colmap.Columns{10: "5", 11: "15"})
	v, err := e.NominalValue()
	require.NoError(t, err)
	assert.Equal(t, "10", v)

	// nested alarm pairs: the innermost pair brackets the nominal range
	e = nominalEntry(t, StatusAnalog, [2]int{10, 13},
		colmap.Columns{10: "0", 11: "40", 12: "60", 13: "100"})
	v, err = e.NominalValue()
	require.NoError(t, err)
	assert.Equal(t, "50", v)

	// blank limit cells are skipped
	e = nominalEntry(t, StatusAnalog, [2]int{10, 13}, colmap.Columns{11: "40", 12: "60"})
	v, err = e.NominalValue()
	require.NoError(t, err)
	assert.Equal(t, "50", v)

	// fewer than two values default to zero
	e = nominalEntry(t, StatusAnalog, [2]int{10, 11}, colmap.Columns{10: "7"})
	v, err = e.NominalValue()
	require.NoError(t, err)
	assert.Equal(t, "0", v)

	e = nominalEntry(t, StatusAnalog, [2]int{10, 11}, colmap.Columns{10: "a", 11: "1"})
	_, err = e.NominalValue()
	assert.Error(t, err)
}

func TestNominalValueWithoutColumns(t *testing.T) {
	e := &MapEntry{DestTag: "Tag1"}
	_, err := e.NominalValue()
	assert.Error(t, err)
}

func TestTagProcessorLayoutRender(t *testing.T) {
	layout := DefaultTagProcessorLayout()

	e := &MapEntry{
		DestTag:          "Alias1",
		DestType:         "BIN",
		SourceType:       "SPS",
		TimeSourceTag:    "IED1.GGIO1.t",
		QualitySourceTag: "IED1.GGIO1.q",
	}
	e.SetSourceExpression("IED1.GGIO1.Ind1")

	records := layout.Render([]*MapEntry{e})
	require.Len(t, records, 2)
	assert.Equal(t, layout.Header, records[0])
	assert.Equal(t, []string{
		"Alias1", "BIN", "IED1.GGIO1.Ind1", "SPS", "IED1.GGIO1.t", "IED1.GGIO1.q",
	}, records[1])
}

func TestTagProcessorLayoutRenderCustom(t *testing.T) {
	// a narrow layout drops the fields mapped outside the header
	layout := TagProcessorLayout{
		Header:           []string{"Expr", "Dest"},
		DestTagCol:       1,
		DestTypeCol:      -1,
		SourceExprCol:    0,
		SourceTypeCol:    -1,
		TimeSourceCol:    -1,
		QualitySourceCol: -1,
	}
	e := &MapEntry{DestTag: "Alias1", DestType: "BIN"}
	e.SetSourceExpression("IED1.GGIO1.Ind1")

	records := layout.Render([]*MapEntry{e})
	require.Len(t, records, 2)
	assert.Equal(t, []string{"IED1.GGIO1.Ind1", "Alias1"}, records[1])
}
