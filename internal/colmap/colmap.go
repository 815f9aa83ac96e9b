// Package colmap implements the sparse column map mini-language used by the
// point templates: strings of the form "[col,value];[col,value]" where col is
// a zero based output column index and value is arbitrary text that may carry
// placeholder tokens.
package colmap

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ansel1/merry"
)

// Columns is a sparse mapping of output column index to cell text.
type Columns map[int]string

// Parse parses a "[col,value];[col,value]" string. A blank string yields an
// empty map. A segment without its bracket delimiters, with a non numeric
// column index or with nothing between the brackets is a format error.
func Parse(s string) (Columns, error) {
	cols := Columns{}
	s = strings.TrimSpace(s)
	if s == "" {
		return cols, nil
	}
	for _, seg := range strings.Split(s, ";") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			return nil, merry.Errorf("empty column pair segment in %q", s)
		}
		if !strings.HasPrefix(seg, "[") || !strings.HasSuffix(seg, "]") {
			return nil, merry.Errorf("column pair %q: expected [col,value]", seg)
		}
		inner := seg[1 : len(seg)-1]
		parts := strings.SplitN(inner, ",", 2)
		if len(parts) != 2 {
			return nil, merry.Errorf("column pair %q: expected [col,value]", seg)
		}
		col, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, merry.Errorf("column pair %q: column index %q is not a number", seg, parts[0])
		}
		if _, f := cols[col]; f {
			return nil, merry.Errorf("duplicate columns: column %d occurs twice in %q", col, s)
		}
		cols[col] = parts[1]
	}
	return cols, nil
}

// Serialize renders the map back to the "[col,value];[col,value]" form,
// ordered by column index.
func (c Columns) Serialize() string {
	idx := make([]int, 0, len(c))
	for i := range c {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	var b strings.Builder
	for n, i := range idx {
		if n > 0 {
			b.WriteByte(';')
		}
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(i))
		b.WriteByte(',')
		b.WriteString(c[i])
		b.WriteByte(']')
	}
	return b.String()
}

// Merge combines base defaults with custom overrides. A column present in
// both is a configuration error: overrides must target columns the defaults
// leave free.
func Merge(base, overrides Columns) (Columns, error) {
	out := make(Columns, len(base)+len(overrides))
	for i, v := range base {
		out[i] = v
	}
	for i, v := range overrides {
		if old, f := out[i]; f {
			return nil, merry.Errorf("duplicate columns: column %d set to both %q and %q", i, old, v)
		}
		out[i] = v
	}
	return out, nil
}

// Clone returns an independent copy of c.
func (c Columns) Clone() Columns {
	out := make(Columns, len(c))
	for i, v := range c {
		out[i] = v
	}
	return out
}

// Replacement is one placeholder token and the text substituted for it.
type Replacement struct {
	Token string
	Value string
}

// ReplaceKeywords substitutes every token of reps in every value of c,
// in reps order, as a single literal non recursive pass. Returns a new map.
func ReplaceKeywords(c Columns, reps []Replacement) Columns {
	out := make(Columns, len(c))
	for i, v := range c {
		for _, r := range reps {
			v = strings.ReplaceAll(v, r.Token, r.Value)
		}
		out[i] = v
	}
	return out
}
