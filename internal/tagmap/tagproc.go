package tagmap

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ansel1/merry"
	"github.com/opgrid/rtacgen/internal/colmap"
	"github.com/opgrid/rtacgen/internal/pkg"
)

// MapEntry is one line of the generated tag processor script. Status points
// flow IED to SCADA, control points SCADA to IED. The quality wrap generator
// also emits synthetic entries (IF/ELSE/END_IF conditionals and nominal
// substitutions) reusing this structure with only the source expression and
// point type populated.
type MapEntry struct {
	DestTag  string
	DestType string

	sourceExpression string
	SourceType       string

	TimeSourceTag    string
	QualitySourceTag string

	// ParsedDeviceName is the text before the source expression's first
	// dot, ParsedTagName the text through its second dot. Both recomputed
	// by SetSourceExpression; they drive quality wrap grouping.
	ParsedDeviceName string
	ParsedTagName    string

	PointType              PointType
	PerformQualityWrapping bool
	NominalColumns         [2]int
	HasNominalColumns      bool

	// ScadaRow is a read only back reference to the generated SCADA row,
	// used solely for nominal value derivation.
	ScadaRow colmap.Columns
}

var sourceExprRe = regexp.MustCompile(`(\w+)\.(\w+)`)

// SetSourceExpression sets the expression and recomputes the parsed device
// and tag names. This is the only mutation path for the source expression.
func (e *MapEntry) SetSourceExpression(expr string) {
	e.sourceExpression = expr
	e.ParsedDeviceName = ""
	e.ParsedTagName = ""
	if m := sourceExprRe.FindStringSubmatch(expr); m != nil {
		e.ParsedDeviceName = m[1]
		e.ParsedTagName = m[1] + "." + m[2]
	}
}

func (e *MapEntry) SourceExpression() string { return e.sourceExpression }

// NominalValue derives the safe placeholder substituted for the point while
// its source quality is bad. Binary points render the nominal indicator
// SCADA column as an IEC 61131-3 TRUE/FALSE literal, defaulting to FALSE.
// Analog points take the arithmetic mean of the two middle ranked limit
// values: with nested alarm limit pairs the innermost pair brackets the true
// nominal range. Fewer than two limit values default to "0".
func (e *MapEntry) NominalValue() (string, error) {
	if !e.HasNominalColumns {
		return "", merry.Errorf("tag %s has no nominal columns to derive a nominal value from", e.DestTag)
	}

	if e.PointType.IsBinary() {
		v := strings.TrimSpace(e.ScadaRow[e.NominalColumns[0]])
		if v == "" {
			return "FALSE", nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return "", merry.Errorf("tag %s: binary nominal %q is not a number", e.DestTag, v)
		}
		if n == 1 {
			return "TRUE", nil
		}
		return "FALSE", nil
	}

	var vals []float64
	for c := e.NominalColumns[0]; c <= e.NominalColumns[1]; c++ {
		s := strings.TrimSpace(e.ScadaRow[c])
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return "", merry.Errorf("tag %s: nominal limit column %d holds %q which is not a number",
				e.DestTag, c, s)
		}
		vals = append(vals, v)
	}
	if len(vals) < 2 {
		return "0", nil
	}
	sort.Float64s(vals)
	i := len(vals)/2 - 1
	return pkg.FormatFloat((vals[i]+vals[i+1])/2, 6), nil
}

// TagProcessorLayout maps tag processor fields to output CSV columns, as
// declared on the RTAC sheet.
type TagProcessorLayout struct {
	Header           []string
	DestTagCol       int
	DestTypeCol      int
	SourceExprCol    int
	SourceTypeCol    int
	TimeSourceCol    int
	QualitySourceCol int
}

// DefaultTagProcessorLayout is used when the workbook declares no layout.
func DefaultTagProcessorLayout() TagProcessorLayout {
	return TagProcessorLayout{
		Header: []string{
			"Destination Tag", "Destination Type", "Source Expression",
			"Source Type", "Time Source", "Quality Source",
		},
		DestTagCol:       0,
		DestTypeCol:      1,
		SourceExprCol:    2,
		SourceTypeCol:    3,
		TimeSourceCol:    4,
		QualitySourceCol: 5,
	}
}

// Render produces the tag processor CSV records, header included, in entry
// order: the tag processor is a script, its line order is its semantics.
func (l TagProcessorLayout) Render(entries []*MapEntry) [][]string {
	records := make([][]string, 0, len(entries)+1)
	records = append(records, l.Header)
	for _, e := range entries {
		rec := make([]string, len(l.Header))
		set := func(col int, v string) {
			if col >= 0 && col < len(rec) {
				rec[col] = v
			}
		}
		set(l.DestTagCol, e.DestTag)
		set(l.DestTypeCol, e.DestType)
		set(l.SourceExprCol, e.SourceExpression())
		set(l.SourceTypeCol, e.SourceType)
		set(l.TimeSourceCol, e.TimeSourceTag)
		set(l.QualitySourceCol, e.QualitySourceTag)
		records = append(records, rec)
	}
	return records
}
