package colmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSerializeRoundTrip(t *testing.T) {
	for _, s := range []string{
		"[0,ABC]",
		"[2,{NAME}];[5,12.5]",
		"[1,a,b];[3, spaced ]",
	} {
		cols, err := Parse(s)
		assert.NoError(t, err, s)
		again, err := Parse(cols.Serialize())
		assert.NoError(t, err, s)
		assert.Equal(t, cols, again, s)
	}
}

func TestParseValues(t *testing.T) {
	cols, err := Parse("[3,{NAME} X];[10,7]")
	assert.NoError(t, err)
	assert.Equal(t, Columns{3: "{NAME} X", 10: "7"}, cols)

	cols, err = Parse("  ")
	assert.NoError(t, err)
	assert.Empty(t, cols)

	// the value keeps everything after the first comma
	cols, err = Parse("[1,a,b,c]")
	assert.NoError(t, err)
	assert.Equal(t, "a,b,c", cols[1])
}

func TestParseErrors(t *testing.T) {
	for _, s := range []string{
		"[0,a];;[1,b]",
		"0,a",
		"[0,a];[x,b]",
		"[]",
		"[0,a];[1,b];",
	} {
		_, err := Parse(s)
		assert.Error(t, err, s)
	}

	_, err := Parse("[4,a];[4,b]")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate columns")
}

func TestMerge(t *testing.T) {
	base, _ := Parse("[0,a];[1,b]")
	custom, _ := Parse("[2,c]")
	m, err := Merge(base, custom)
	assert.NoError(t, err)
	assert.Equal(t, Columns{0: "a", 1: "b", 2: "c"}, m)

	clash, _ := Parse("[1,x]")
	_, err = Merge(base, clash)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate columns")
}

func TestReplaceKeywords(t *testing.T) {
	cols := Columns{0: "{NAME}_{ADDRESS}", 1: "plain", 2: "{ADDRESS}{ADDRESS}"}
	out := ReplaceKeywords(cols, []Replacement{
		{"{NAME}", "BAY1"},
		{"{ADDRESS}", "42"},
	})
	assert.Equal(t, Columns{0: "BAY1_42", 1: "plain", 2: "4242"}, out)
	// input untouched
	assert.Equal(t, "{NAME}_{ADDRESS}", cols[0])
}

func TestReplaceKeywordsSinglePass(t *testing.T) {
	cols := Columns{0: "{A}"}
	out := ReplaceKeywords(cols, []Replacement{
		{"{A}", "{B}"},
		{"{B}", "final"},
	})
	// insertion order: {A} -> {B} first, then the {B} it produced is
	// rewritten by the later token within the same pass
	assert.Equal(t, "final", out[0])

	out = ReplaceKeywords(cols, []Replacement{
		{"{B}", "final"},
		{"{A}", "{B}"},
	})
	// no second pass: the {B} produced last stays as is
	assert.Equal(t, "{B}", out[0])
}
