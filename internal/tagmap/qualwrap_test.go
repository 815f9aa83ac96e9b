package tagmap

import (
	"testing"

	"github.com/opgrid/rtacgen/internal/colmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wrappableEntry(t *testing.T, device, tag, dest string) *MapEntry {
	pt, err := ParsePointType(StatusBinary)
	require.NoError(t, err)
	e := &MapEntry{
		DestTag:                dest,
		DestType:               "BIN",
		PointType:              pt,
		PerformQualityWrapping: true,
		NominalColumns:         [2]int{5, 5},
		HasNominalColumns:      true,
		ScadaRow:               colmap.Columns{5: "1"},
	}
	e.SetSourceExpression(device + "." + tag + ".stVal")
	return e
}

func sourceExpressions(entries []*MapEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.SourceExpression()
	}
	return out
}

func TestQualityWrapNone(t *testing.T) {
	g := QualityWrapGenerator{Mode: WrapNone}
	in := []*MapEntry{wrappableEntry(t, "IED1", "GGIO1", "A1")}
	out, err := g.Apply(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestQualityWrapGenerate(t *testing.T) {
	g := QualityWrapGenerator{Mode: WrapGroupAllByDevice}
	e1 := wrappableEntry(t, "IED1", "GGIO1", "A1")
	e2 := wrappableEntry(t, "IED1", "GGIO2", "A2")

	out, err := g.Generate([]*MapEntry{e1, e2})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"IF (IED1.GGIO1.q.validity <> good) THEN",
		"TRUE",
		"TRUE",
		"ELSE",
		e1.SourceExpression(),
		e2.SourceExpression(),
		"END_IF",
	}, sourceExpressions(out))

	// the nominal substitution entries source their time and quality from
	// the wrapped tag itself
	assert.Equal(t, "A1", out[1].DestTag)
	assert.Equal(t, "IED1.GGIO1.t", out[1].TimeSourceTag)
	assert.Equal(t, "IED1.GGIO1.q", out[1].QualitySourceTag)
	// the originals pass through verbatim
	assert.Same(t, e1, out[4])
	assert.Same(t, e2, out[5])
}

func TestQualityWrapCustomTemplate(t *testing.T) {
	g := QualityWrapGenerator{
		Mode:          WrapIndividually,
		CheckTemplate: "IF (NOT {TAG}.q.good) THEN",
	}
	out, err := g.Generate([]*MapEntry{wrappableEntry(t, "IED1", "GGIO1", "A1")})
	require.NoError(t, err)
	assert.Equal(t, "IF (NOT IED1.GGIO1.q.good) THEN", out[0].SourceExpression())
}

func TestQualityWrapApplyGroupAllByDevice(t *testing.T) {
	g := QualityWrapGenerator{Mode: WrapGroupAllByDevice}
	e1 := wrappableEntry(t, "IED1", "GGIO1", "A1")
	e2 := wrappableEntry(t, "IED2", "GGIO1", "B1")
	e3 := wrappableEntry(t, "IED1", "GGIO2", "A2")
	plain := &MapEntry{DestTag: "C1"}
	plain.SetSourceExpression("IED3.GGIO1.Ind1")

	out, err := g.Apply([]*MapEntry{e1, e2, e3, plain})
	require.NoError(t, err)
	// IED1 group of two, IED2 group of one, then the unwrapped entry
	assert.Equal(t, []string{
		"IF (IED1.GGIO1.q.validity <> good) THEN",
		"TRUE", "TRUE",
		"ELSE",
		e1.SourceExpression(), e3.SourceExpression(),
		"END_IF",
		"IF (IED2.GGIO1.q.validity <> good) THEN",
		"TRUE",
		"ELSE",
		e2.SourceExpression(),
		"END_IF",
		"IED3.GGIO1.Ind1",
	}, sourceExpressions(out))
}

func TestQualityWrapApplyFirstGroupRestByDevice(t *testing.T) {
	g := QualityWrapGenerator{Mode: WrapFirstGroupRestByDevice}
	e1 := wrappableEntry(t, "IED1", "GGIO1", "A1")
	e2 := wrappableEntry(t, "IED1", "GGIO2", "A2")
	e3 := wrappableEntry(t, "IED1", "GGIO3", "A3")

	out, err := g.Apply([]*MapEntry{e1, e2, e3})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"IF (IED1.GGIO1.q.validity <> good) THEN",
		"TRUE",
		"ELSE",
		e1.SourceExpression(),
		"END_IF",
		"IF (IED1.GGIO2.q.validity <> good) THEN",
		"TRUE", "TRUE",
		"ELSE",
		e2.SourceExpression(), e3.SourceExpression(),
		"END_IF",
	}, sourceExpressions(out))

	// a device with a single tag gets just the first block
	out, err = g.Apply([]*MapEntry{wrappableEntry(t, "IED2", "GGIO1", "B1")})
	require.NoError(t, err)
	assert.Len(t, out, 5)
}

func TestQualityWrapApplyIndividually(t *testing.T) {
	g := QualityWrapGenerator{Mode: WrapIndividually}
	e1 := wrappableEntry(t, "IED1", "GGIO1", "A1")
	e2 := wrappableEntry(t, "IED1", "GGIO2", "A2")

	out, err := g.Apply([]*MapEntry{e1, e2})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"IF (IED1.GGIO1.q.validity <> good) THEN",
		"TRUE",
		"ELSE",
		e1.SourceExpression(),
		"END_IF",
		"IF (IED1.GGIO2.q.validity <> good) THEN",
		"TRUE",
		"ELSE",
		e2.SourceExpression(),
		"END_IF",
	}, sourceExpressions(out))
}

func TestParseQualityWrapMode(t *testing.T) {
	for text, want := range qualityWrapModeNames {
		m, err := ParseQualityWrapMode(text)
		assert.NoError(t, err, text)
		assert.Equal(t, want, m, text)
		assert.Equal(t, text, m.String(), text)
	}
	_, err := ParseQualityWrapMode("sometimes")
	assert.Error(t, err)
}
