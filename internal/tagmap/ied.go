package tagmap

import (
	"strconv"
	"strings"

	"github.com/ansel1/merry"
	"github.com/opgrid/rtacgen/internal/colmap"
)

// NoScadaPoint is the SCADA point name sentinel marking a point that maps
// into the RTAC only, with no SCADA tag generated.
const NoScadaPoint = "--"

// IedTagPair is one device side tag contributing to a logical point. Several
// pairs may share one address when an array server tag type splits a point
// into sub fields (value, quality, ...).
type IedTagPair struct {
	Name     string
	TypeName string
}

// IedTagEntry is one logical point of a device template, keyed uniquely by
// (point number, root server tag type, filter). It is mutated in place while
// raw template rows stream in and read only during expansion.
type IedTagEntry struct {
	Filter           Filter
	PointNumber      int
	Absolute         bool
	Tags             []IedTagPair
	RtacColumnsText  string
	ScadaColumnsText string
	ScadaPointName   string
}

// RootType resolves the root server tag type of the point via its first tag.
func (e *IedTagEntry) RootType(rtac *RtacTemplate) (string, error) {
	if len(e.Tags) == 0 {
		return "", merry.Errorf("point %d filter %s has no IED tags", e.PointNumber, e.Filter)
	}
	st, err := rtac.ResolveIedTagType(e.Tags[0].TypeName)
	if err != nil {
		return "", merry.Prependf(err, "point %d", e.PointNumber)
	}
	return st.Root, nil
}

// Address is the concrete absolute address of the point given the root
// prototype's current running base address.
func (e *IedTagEntry) Address(proto *ServerTagRootPrototype) int {
	if e.Absolute {
		return e.PointNumber
	}
	return proto.BaseAddress + e.PointNumber
}

// IedScadaNamePair is one concrete device instance: the IED device name and
// the SCADA device name it publishes under.
type IedScadaNamePair struct {
	IedName   string
	ScadaName string
}

// IedTemplate is one device template sheet: per root type address offsets,
// the device instances, and the logical point list. The same point list is
// expanded against every device instance.
type IedTemplate struct {
	Name    string
	Offsets map[string]int
	Devices []IedScadaNamePair
	Points  []*IedTagEntry
}

func NewIedTemplate(name string) *IedTemplate {
	return &IedTemplate{Name: name, Offsets: map[string]int{}}
}

// GetOrCreateTagEntry finds the logical point a raw template row contributes
// to: same point number, structurally equal filter, and at least one
// existing tag resolving to the same root server tag type. More than one
// match is a duplicate point; no match registers a new entry.
func (t *IedTemplate) GetOrCreateTagEntry(iedTagType string, filter Filter, pointNumber int,
	absolute bool, rtac *RtacTemplate) (*IedTagEntry, error) {

	st, err := rtac.ResolveIedTagType(iedTagType)
	if err != nil {
		return nil, merry.Prependf(err, "template %s point %d", t.Name, pointNumber)
	}

	var found *IedTagEntry
	for _, p := range t.Points {
		if p.PointNumber != pointNumber || p.Absolute != absolute || !p.Filter.Equal(filter) {
			continue
		}
		match := false
		for _, pair := range p.Tags {
			pst, err := rtac.ResolveIedTagType(pair.TypeName)
			if err != nil {
				return nil, merry.Prependf(err, "template %s point %d", t.Name, pointNumber)
			}
			if pst.Root == st.Root {
				match = true
				break
			}
		}
		if !match {
			continue
		}
		if found != nil {
			return nil, merry.Errorf("template %s: duplicate point %d of type %s with filter %s",
				t.Name, pointNumber, st.Root, filter)
		}
		found = p
	}
	if found != nil {
		return found, nil
	}

	e := &IedTagEntry{Filter: filter, PointNumber: pointNumber, Absolute: absolute}
	t.Points = append(t.Points, e)
	return e, nil
}

// Validate runs the template's structural checks against the loaded RTAC
// template. Fails fast on the first violation.
func (t *IedTemplate) Validate(rtac *RtacTemplate) error {
	if err := t.validateUniqueServerTypes(rtac); err != nil {
		return err
	}
	if err := t.validateOffsets(rtac); err != nil {
		return err
	}
	if err := t.validateNominals(rtac); err != nil {
		return err
	}
	if err := t.validateFilters(); err != nil {
		return err
	}
	return t.validateControlLinks(rtac)
}

// No root type group of one logical point may hold two tags resolving to the
// same full server tag type: each array slot takes at most one device tag.
func (t *IedTemplate) validateUniqueServerTypes(rtac *RtacTemplate) error {
	for _, p := range t.Points {
		seen := map[ServerTagType]string{}
		for _, pair := range p.Tags {
			st, err := rtac.ResolveIedTagType(pair.TypeName)
			if err != nil {
				return merry.Prependf(err, "template %s point %d", t.Name, p.PointNumber)
			}
			if other, f := seen[st]; f {
				return merry.Errorf("template %s: point %d filter %s: tags %q and %q both resolve to server tag type %s",
					t.Name, p.PointNumber, p.Filter, other, pair.Name, st)
			}
			seen[st] = pair.Name
		}
	}
	return nil
}

// Relative point numbers must stay below the per device offset of their root
// type, or a device's points would overflow into the next device's block.
func (t *IedTemplate) validateOffsets(rtac *RtacTemplate) error {
	for _, p := range t.Points {
		if p.Absolute {
			continue
		}
		root, err := p.RootType(rtac)
		if err != nil {
			return merry.Prependf(err, "template %s", t.Name)
		}
		offset, f := t.Offsets[root]
		if !f {
			return merry.Errorf("template %s: no address offset configured for server tag type %s", t.Name, root)
		}
		if p.PointNumber >= offset {
			return merry.Errorf("template %s: point %d of type %s does not fit the per device offset %d",
				t.Name, p.PointNumber, root, offset)
		}
	}
	return nil
}

// Status points must carry usable nominal data: analog limit columns come in
// low/high pairs with no repeated values, binary nominals are -1, 0 or 1.
func (t *IedTemplate) validateNominals(rtac *RtacTemplate) error {
	for _, p := range t.Points {
		if len(p.Tags) == 0 {
			continue
		}
		root, err := p.RootType(rtac)
		if err != nil {
			return merry.Prependf(err, "template %s", t.Name)
		}
		proto, err := rtac.Prototype(root)
		if err != nil {
			return merry.Prependf(err, "template %s point %d", t.Name, p.PointNumber)
		}
		if !proto.PointType.IsStatus() || !proto.HasNominalColumns {
			continue
		}
		cols, err := colmap.Parse(p.ScadaColumnsText)
		if err != nil {
			return merry.Prependf(err, "template %s point %d SCADA columns", t.Name, p.PointNumber)
		}
		lo, hi := proto.NominalColumns[0], proto.NominalColumns[1]

		if proto.PointType.IsAnalog() {
			var vals []string
			dup := map[string]struct{}{}
			for c := lo; c <= hi; c++ {
				v := strings.TrimSpace(cols[c])
				if v == "" {
					continue
				}
				if _, f := dup[v]; f {
					return merry.Errorf("template %s: point %d: duplicate nominal limit value %q",
						t.Name, p.PointNumber, v)
				}
				dup[v] = struct{}{}
				vals = append(vals, v)
			}
			if len(vals)%2 != 0 {
				return merry.Errorf("template %s: point %d: %d nominal limit values, limits must come in low/high pairs",
					t.Name, p.PointNumber, len(vals))
			}
			continue
		}

		v := strings.TrimSpace(cols[lo])
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < -1 || n > 1 {
			return merry.Errorf("template %s: point %d: binary nominal %q must be -1, 0 or 1",
				t.Name, p.PointNumber, v)
		}
	}
	return nil
}

// Every filter's explicit device list may only name devices this template
// actually declares.
func (t *IedTemplate) validateFilters() error {
	known := map[string]struct{}{}
	for _, d := range t.Devices {
		known[d.IedName] = struct{}{}
	}
	for _, p := range t.Points {
		for _, d := range p.Filter.Devices {
			if _, f := known[d]; !f {
				return merry.Errorf("template %s: point %d filter %s references unknown device %q",
					t.Name, p.PointNumber, p.Filter, d)
			}
		}
	}
	return nil
}

// Every SCADA visible control point must link to a status point with the
// same SCADA name: controls derive their key address from that status point.
func (t *IedTemplate) validateControlLinks(rtac *RtacTemplate) error {
	for _, p := range t.Points {
		if len(p.Tags) == 0 || p.ScadaPointName == "" || p.ScadaPointName == NoScadaPoint {
			continue
		}
		root, err := p.RootType(rtac)
		if err != nil {
			return merry.Prependf(err, "template %s", t.Name)
		}
		proto, err := rtac.Prototype(root)
		if err != nil {
			return merry.Prependf(err, "template %s point %d", t.Name, p.PointNumber)
		}
		if !proto.PointType.IsControl() {
			continue
		}
		found := false
		for _, q := range t.Points {
			if q == p || len(q.Tags) == 0 || q.ScadaPointName != p.ScadaPointName {
				continue
			}
			qroot, err := q.RootType(rtac)
			if err != nil {
				return merry.Prependf(err, "template %s", t.Name)
			}
			qproto, err := rtac.Prototype(qroot)
			if err != nil {
				return merry.Prependf(err, "template %s point %d", t.Name, q.PointNumber)
			}
			if qproto.PointType.IsStatus() {
				found = true
				break
			}
		}
		if !found {
			return merry.Errorf("template %s: control point %d %q has no status point with the same SCADA name",
				t.Name, p.PointNumber, p.ScadaPointName)
		}
	}
	return nil
}

// LinkedStatusPoint finds the single status point sharing scadaName and
// generated for the given device. Anything other than exactly one match is
// an internal consistency failure: Validate already vouched for the link.
func (t *IedTemplate) LinkedStatusPoint(iedName, scadaName string, rtac *RtacTemplate) (*IedTagEntry, error) {
	var found *IedTagEntry
	for _, p := range t.Points {
		if p.ScadaPointName != scadaName || len(p.Tags) == 0 || !p.Filter.ShouldGenerate(iedName) {
			continue
		}
		root, err := p.RootType(rtac)
		if err != nil {
			return nil, merry.Prependf(err, "template %s", t.Name)
		}
		proto, err := rtac.Prototype(root)
		if err != nil {
			return nil, merry.Prependf(err, "template %s point %d", t.Name, p.PointNumber)
		}
		if !proto.PointType.IsStatus() {
			continue
		}
		if found != nil {
			return nil, merry.Errorf("template %s: device %s: more than one status point named %q",
				t.Name, iedName, scadaName)
		}
		found = p
	}
	if found == nil {
		return nil, merry.Errorf("template %s: device %s: no status point named %q",
			t.Name, iedName, scadaName)
	}
	return found, nil
}
