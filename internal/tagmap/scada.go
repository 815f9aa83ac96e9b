package tagmap

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/ansel1/merry"
	"github.com/opgrid/rtacgen/internal/colmap"
)

// ScadaTagPrototype describes the shape of all SCADA tags of one point type:
// CSV header, per column defaults, key formatting and the address offset
// applied to every generated address.
type ScadaTagPrototype struct {
	PointTypeName  string
	Header         []string
	DefaultsText   string
	DefaultColumns colmap.Columns
	KeyFormat      string
	SortingColumn  int
	AddressOffset  int
}

// ReplaceKeywords substitutes the tag name, offset adjusted address and
// formatted key into a merged SCADA row. keyAddress, when given, is the
// linked status point's address a control point keys off; it receives the
// same offset. Nil keyAddress keys off the point's own adjusted address.
func (p *ScadaTagPrototype) ReplaceKeywords(row colmap.Columns, name string, address int, keyAddress *int) colmap.Columns {
	adjusted := address + p.AddressOffset
	keyAddr := adjusted
	if keyAddress != nil {
		keyAddr = *keyAddress + p.AddressOffset
	}
	return colmap.ReplaceKeywords(row, []colmap.Replacement{
		{Token: TokenName, Value: name},
		{Token: TokenAddress, Value: strconv.Itoa(adjusted)},
		{Token: TokenKey, Value: p.formatKey(keyAddr)},
	})
}

func (p *ScadaTagPrototype) formatKey(addr int) string {
	if p.KeyFormat == "" {
		return strconv.Itoa(addr)
	}
	return fmt.Sprintf(p.KeyFormat, addr)
}

// ScadaTemplate holds the per point type SCADA prototypes and accumulates
// the generated SCADA rows, grouped by point type name.
type ScadaTemplate struct {
	prototypes    map[string]*ScadaTagPrototype
	typeOrder     []string
	rows          map[string][]OutputRow
	MaxNameLength int
	longestName   string
}

func NewScadaTemplate(maxNameLength int) *ScadaTemplate {
	return &ScadaTemplate{
		prototypes:    map[string]*ScadaTagPrototype{},
		rows:          map[string][]OutputRow{},
		MaxNameLength: maxNameLength,
	}
}

// AddPrototype registers the prototype of one point type. The sorting column
// is required up front, stricter than the RTAC side's deferred validation.
func (t *ScadaTemplate) AddPrototype(pointTypeName string, header []string, defaultsText,
	defaultColumnsText, keyFormat string, sortingColumn, addressOffset int) error {

	if _, err := ParsePointType(pointTypeName); err != nil {
		return err
	}
	if _, f := t.prototypes[pointTypeName]; f {
		return merry.Errorf("SCADA prototype for point type %s declared twice", pointTypeName)
	}
	if sortingColumn < 0 {
		return merry.Errorf("SCADA prototype %s: sorting column not set", pointTypeName)
	}
	defaultColumns, err := colmap.Parse(defaultColumnsText)
	if err != nil {
		return merry.Prependf(err, "SCADA prototype %s default columns", pointTypeName)
	}
	t.prototypes[pointTypeName] = &ScadaTagPrototype{
		PointTypeName:  pointTypeName,
		Header:         header,
		DefaultsText:   defaultsText,
		DefaultColumns: defaultColumns,
		KeyFormat:      keyFormat,
		SortingColumn:  sortingColumn,
		AddressOffset:  addressOffset,
	}
	t.typeOrder = append(t.typeOrder, pointTypeName)
	return nil
}

// Prototype looks up the prototype of one point type.
func (t *ScadaTemplate) Prototype(pointTypeName string) (*ScadaTagPrototype, error) {
	p, f := t.prototypes[pointTypeName]
	if !f {
		return nil, merry.Errorf("no SCADA prototype for point type %s", pointTypeName)
	}
	return p, nil
}

// PointTypeNames returns the registered point type names in declaration order.
func (t *ScadaTemplate) PointTypeNames() []string { return t.typeOrder }

var scadaTagNameRe = regexp.MustCompile(`^[A-Za-z0-9 ]+$`)

// ValidateTagName rejects SCADA tag names the master database would refuse,
// and tracks the longest accepted name for the end of run summary.
func (t *ScadaTemplate) ValidateTagName(name string) error {
	if !scadaTagNameRe.MatchString(name) {
		return merry.Errorf("invalid SCADA tag name %q: only letters, digits and spaces allowed", name)
	}
	if t.MaxNameLength > 0 && len(name) > t.MaxNameLength {
		return merry.Errorf("SCADA tag name %q is %d characters long, limit is %d",
			name, len(name), t.MaxNameLength)
	}
	if len(name) > len(t.longestName) {
		t.longestName = name
	}
	return nil
}

// LongestValidatedName is the longest SCADA tag name seen across the run.
func (t *ScadaTemplate) LongestValidatedName() string { return t.longestName }

// AddRow appends a generated SCADA row for the given point type.
func (t *ScadaTemplate) AddRow(pointTypeName string, row OutputRow) {
	t.rows[pointTypeName] = append(t.rows[pointTypeName], row)
}

// Rows returns the generated SCADA rows of one point type.
func (t *ScadaTemplate) Rows(pointTypeName string) []OutputRow { return t.rows[pointTypeName] }
