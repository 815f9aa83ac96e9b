package tagmap

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ansel1/merry"
	"github.com/hashicorp/go-multierror"
	"github.com/opgrid/rtacgen/internal/colmap"
)

// ServerTagType identifies one concrete server tag slot: a root type name
// plus an array index, 0 for scalar types. Parsed from "NAME" or "NAME[N]".
type ServerTagType struct {
	Root  string
	Index int
}

func (t ServerTagType) String() string {
	if t.Index == 0 {
		return t.Root
	}
	return t.Root + "[" + strconv.Itoa(t.Index) + "]"
}

var serverTagTypeRe = regexp.MustCompile(`^(\w+)(?:\[(\d+)\])?$`)

// ParseServerTagType parses "DNPC" or "DNPC[2]".
func ParseServerTagType(text string) (ServerTagType, error) {
	m := serverTagTypeRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return ServerTagType{}, merry.Errorf("invalid server tag type %q: expected NAME or NAME[N]", text)
	}
	t := ServerTagType{Root: m[1]}
	if m[2] != "" {
		t.Index, _ = strconv.Atoi(m[2])
	}
	return t, nil
}

// ServerTagPrototypeEntry describes one array slot of a root server tag
// type: the slot's address templated tag name and its default columns.
type ServerTagPrototypeEntry struct {
	NameTemplate   string
	DefaultColumns colmap.Columns
}

// ArraySuffix returns the per field sub path of the slot's name template:
// the text from the second literal dot on (".operLatchOn"). Empty when the
// template has fewer than two dots.
func (e *ServerTagPrototypeEntry) ArraySuffix() string {
	first := strings.IndexByte(e.NameTemplate, '.')
	if first < 0 {
		return ""
	}
	second := strings.IndexByte(e.NameTemplate[first+1:], '.')
	if second < 0 {
		return ""
	}
	return e.NameTemplate[first+1+second:]
}

// ServerTagRootPrototype is the registry entry for one root server tag type.
// Array types hold more than one slot entry. BaseAddress is the running per
// type address offset advanced once per expanded device instance.
type ServerTagRootPrototype struct {
	RootType          string
	Entries           []*ServerTagPrototypeEntry
	SortingColumn     int
	PointType         PointType
	NominalColumns    [2]int
	HasNominalColumns bool
	Header            []string
	DefaultsText      string
	BaseAddress       int
}

// SlotCount is the number of declared array slots, 1 for scalar types.
func (p *ServerTagRootPrototype) SlotCount() int { return len(p.Entries) }

// RtacTemplate holds the server tag prototype registry, the IED tag type to
// server tag type map, alias generation settings and the accumulated server
// tag output rows.
type RtacTemplate struct {
	prototypes  map[string]*ServerTagRootPrototype
	rootOrder   []string
	iedTagTypes map[string]ServerTagType

	AliasTemplate        string
	ControlSuffix        string
	AliasSubstitutions   []colmap.Replacement
	QualityCheckTemplate string

	rows map[string][]OutputRow
}

func NewRtacTemplate() *RtacTemplate {
	return &RtacTemplate{
		prototypes:  map[string]*ServerTagRootPrototype{},
		iedTagTypes: map[string]ServerTagType{},
		rows:        map[string][]OutputRow{},
	}
}

// AddTagPrototypeEntry registers one prototype row. The first row for a root
// type creates it (sorting column -1, base address 0); later rows for the
// same root may leave the shared metadata texts blank and only contribute
// further array slots.
func (t *RtacTemplate) AddTagPrototypeEntry(tagTypeText, nameTemplate, defaultColumnsText,
	sortingColumnText, pointTypeText, nominalColumnsText, headerText, defaultsText string) error {

	tagType, err := ParseServerTagType(tagTypeText)
	if err != nil {
		return err
	}
	defaultColumns, err := colmap.Parse(defaultColumnsText)
	if err != nil {
		return merry.Prependf(err, "server tag type %s default columns", tagType)
	}

	p, f := t.prototypes[tagType.Root]
	if !f {
		p = &ServerTagRootPrototype{
			RootType:      tagType.Root,
			SortingColumn: -1,
		}
		t.prototypes[tagType.Root] = p
		t.rootOrder = append(t.rootOrder, tagType.Root)
	}

	for len(p.Entries) <= tagType.Index {
		p.Entries = append(p.Entries, nil)
	}
	if p.Entries[tagType.Index] != nil {
		return merry.Errorf("server tag type %s: slot %d declared twice", tagType.Root, tagType.Index)
	}
	p.Entries[tagType.Index] = &ServerTagPrototypeEntry{
		NameTemplate:   nameTemplate,
		DefaultColumns: defaultColumns,
	}

	if s := strings.TrimSpace(sortingColumnText); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return merry.Errorf("server tag type %s: invalid sorting column %q", tagType.Root, sortingColumnText)
		}
		p.SortingColumn = n
	}
	if s := strings.TrimSpace(pointTypeText); s != "" {
		pt, err := ParsePointType(s)
		if err != nil {
			return merry.Prependf(err, "server tag type %s", tagType.Root)
		}
		p.PointType = pt
	}
	if s := strings.TrimSpace(nominalColumnsText); s != "" {
		rng, err := parseNominalColumns(s)
		if err != nil {
			return merry.Prependf(err, "server tag type %s", tagType.Root)
		}
		p.NominalColumns = rng
		p.HasNominalColumns = true
	}
	if s := strings.TrimSpace(headerText); s != "" {
		p.Header = splitHeader(s)
	}
	if s := strings.TrimSpace(defaultsText); s != "" {
		p.DefaultsText = s
	}
	return nil
}

func splitHeader(text string) []string {
	cols := strings.Split(text, ",")
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	return cols
}

// parseNominalColumns accepts a single column "23" or a bracketed range
// "[11,20]". A two value range must span an odd difference: analog limit
// columns come in symmetric pairs around a center.
func parseNominalColumns(text string) ([2]int, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '[' || r == ']' || r == ',' || r == '.'
	})
	var nums []int
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return [2]int{}, merry.Errorf("invalid nominal columns %q: %q is not a number", text, f)
		}
		nums = append(nums, n)
	}
	switch len(nums) {
	case 1:
		return [2]int{nums[0], nums[0]}, nil
	case 2:
		lower, upper := nums[0], nums[1]
		if upper < lower {
			return [2]int{}, merry.Errorf("invalid nominal columns %q: upper bound below lower", text)
		}
		if (upper-lower)%2 == 0 {
			return [2]int{}, merry.Errorf(
				"invalid nominal columns %q: range difference must be odd, limit columns come in pairs", text)
		}
		return [2]int{lower, upper}, nil
	}
	return [2]int{}, merry.Errorf("invalid nominal columns %q: expected one column or [lower,upper]", text)
}

// ValidateTagPrototypes runs after all prototype rows are loaded and reports
// every root type with missing metadata at once.
func (t *RtacTemplate) ValidateTagPrototypes() error {
	var result *multierror.Error
	for _, root := range t.rootOrder {
		p := t.prototypes[root]
		if p.SortingColumn < 0 {
			result = multierror.Append(result, merry.Errorf("server tag type %s: sorting column not set", root))
		}
		if !p.PointType.Valid() {
			result = multierror.Append(result, merry.Errorf("server tag type %s: point type not set", root))
		}
		if p.PointType.IsStatus() && !p.HasNominalColumns {
			result = multierror.Append(result, merry.Errorf("server tag type %s: status type without nominal columns", root))
		}
		if len(p.Header) == 0 {
			result = multierror.Append(result, merry.Errorf("server tag type %s: output header not set", root))
		}
		for i, e := range p.Entries {
			if e == nil {
				result = multierror.Append(result, merry.Errorf("server tag type %s: slot %d never declared", root, i))
			}
		}
	}
	return result.ErrorOrNil()
}

// Prototype looks up a root type.
func (t *RtacTemplate) Prototype(root string) (*ServerTagRootPrototype, error) {
	p, f := t.prototypes[root]
	if !f {
		return nil, merry.Errorf("no server tag prototype for root type %s", root)
	}
	return p, nil
}

// RootTypes returns the root type names in declaration order.
func (t *RtacTemplate) RootTypes() []string { return t.rootOrder }

// IncrementBaseAddress advances the running per type address offset. Called
// by the expansion driver once per device instance, after all of the
// instance's points were laid out.
func (t *RtacTemplate) IncrementBaseAddress(root string, delta int) error {
	p, f := t.prototypes[root]
	if !f {
		return merry.Errorf("cannot advance base address: no server tag prototype for root type %s", root)
	}
	p.BaseAddress += delta
	return nil
}

// RegisterIedTagType binds an IED side tag type name to a server tag type.
func (t *RtacTemplate) RegisterIedTagType(iedTypeName, serverTypeText string) error {
	st, err := ParseServerTagType(serverTypeText)
	if err != nil {
		return merry.Prependf(err, "IED tag type %q", iedTypeName)
	}
	if old, f := t.iedTagTypes[iedTypeName]; f {
		if old == st {
			return nil
		}
		return merry.Errorf("IED tag type %q mapped to both %s and %s", iedTypeName, old, st)
	}
	t.iedTagTypes[iedTypeName] = st
	return nil
}

// ResolveIedTagType resolves an IED tag type name to its server tag type.
func (t *RtacTemplate) ResolveIedTagType(iedTypeName string) (ServerTagType, error) {
	st, f := t.iedTagTypes[iedTypeName]
	if !f {
		return ServerTagType{}, merry.Errorf("unknown IED tag type %q", iedTypeName)
	}
	return st, nil
}

// RtacAlias derives the RTAC alias for a SCADA tag name: controls get the
// control suffix appended, the alias substitutions are applied (typically
// mapping spaces to underscores) and the result is substituted into the
// alias name template.
func (t *RtacTemplate) RtacAlias(scadaName string, pt PointType) string {
	name := scadaName
	if pt.IsControl() {
		name += t.ControlSuffix
	}
	for _, r := range t.AliasSubstitutions {
		name = strings.ReplaceAll(name, r.Token, r.Value)
	}
	template := t.AliasTemplate
	if template == "" {
		template = TokenName
	}
	return strings.ReplaceAll(template, TokenName, name)
}

var tagAliasRe = regexp.MustCompile(`^[A-Za-z0-9_]+\s*$`)

// ValidateTagAlias rejects aliases the RTAC would refuse to load.
func ValidateTagAlias(alias string) error {
	if !tagAliasRe.MatchString(alias) {
		return merry.Errorf("invalid RTAC alias %q: only letters, digits and underscores allowed", alias)
	}
	return nil
}

// AddRow appends a generated server tag row for the given root type.
func (t *RtacTemplate) AddRow(root string, row OutputRow) {
	t.rows[root] = append(t.rows[root], row)
}

// Rows returns the generated server tag rows of one root type.
func (t *RtacTemplate) Rows(root string) []OutputRow { return t.rows[root] }
