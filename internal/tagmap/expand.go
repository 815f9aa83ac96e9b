package tagmap

import (
	"strconv"
	"strings"

	"github.com/ansel1/merry"
	"github.com/opgrid/rtacgen/internal/colmap"
	"github.com/powerman/structlog"
)

// Expander drives the multiplicative expansion of logical points against
// device instances: every point passing its filter yields SCADA rows, RTAC
// server tag rows and tag processor map entries for each device.
type Expander struct {
	Rtac  *RtacTemplate
	Scada *ScadaTemplate
}

// ExpandTemplate expands one device template. Per type running base
// addresses are advanced after each device instance, strictly before the
// next instance of the same template: later instances' relative addresses
// depend on it.
func (x *Expander) ExpandTemplate(t *IedTemplate) ([]*MapEntry, error) {
	var entries []*MapEntry
	for _, dev := range t.Devices {
		n := 0
		for _, p := range t.Points {
			if !p.Filter.ShouldGenerate(dev.IedName) {
				continue
			}
			es, err := x.expandPoint(t, dev, p)
			if err != nil {
				return nil, merry.Prependf(err, "template %s device %s", t.Name, dev.IedName)
			}
			entries = append(entries, es...)
			n++
		}
		log.Debug("expanded device instance",
			"template", t.Name, "ied", dev.IedName, "scada", dev.ScadaName, "points", n)

		for root, offset := range t.Offsets {
			if err := x.Rtac.IncrementBaseAddress(root, offset); err != nil {
				return nil, merry.Prependf(err, "template %s", t.Name)
			}
		}
	}
	return entries, nil
}

func (x *Expander) expandPoint(t *IedTemplate, dev IedScadaNamePair, p *IedTagEntry) ([]*MapEntry, error) {
	root, err := p.RootType(x.Rtac)
	if err != nil {
		return nil, err
	}
	proto, err := x.Rtac.Prototype(root)
	if err != nil {
		return nil, merry.Prependf(err, "point %d", p.PointNumber)
	}
	address := p.Address(proto)

	var scadaRow colmap.Columns
	var alias string
	if p.ScadaPointName != "" && p.ScadaPointName != NoScadaPoint {
		scadaRow, alias, err = x.expandScada(t, dev, p, proto, address)
		if err != nil {
			return nil, err
		}
	}

	customRtac, err := colmap.Parse(p.RtacColumnsText)
	if err != nil {
		return nil, merry.Prependf(err, "point %d RTAC columns", p.PointNumber)
	}

	var entries []*MapEntry
	slotCount := proto.SlotCount()
	for i, slot := range proto.Entries {
		if slot == nil {
			return nil, merry.Errorf("server tag type %s: slot %d never declared", root, i)
		}
		merged, err := colmap.Merge(slot.DefaultColumns, customRtac)
		if err != nil {
			return nil, merry.Prependf(err, "point %d RTAC columns", p.PointNumber)
		}
		tagName := replaceTagTokens(slot.NameTemplate, dev.IedName, address, alias)
		x.Rtac.AddRow(root, OutputRow{
			Columns: colmap.ReplaceKeywords(merged, tagTokens(tagName, address, alias)),
			// fractional key keeps the slots of one address in declared
			// order once the output is sorted by address
			SortKey: float64(i) / float64(slotCount),
		})

		pair := findSlotTag(x.Rtac, p, root, i)
		if pair == nil {
			continue
		}

		destBase := tagName
		if alias != "" {
			destBase = alias
			if slotCount > 1 {
				destBase += slot.ArraySuffix()
			}
		}
		iedTag := dev.IedName + "." + pair.Name
		fullType := ServerTagType{Root: root, Index: i}.String()

		e := &MapEntry{
			PointType:         proto.PointType,
			NominalColumns:    proto.NominalColumns,
			HasNominalColumns: proto.HasNominalColumns,
			ScadaRow:          scadaRow,
		}
		switch {
		case proto.PointType.IsStatus():
			e.DestTag = destBase
			e.DestType = fullType
			e.SourceType = pair.TypeName
			e.SetSourceExpression(iedTag)
			e.PerformQualityWrapping = proto.HasNominalColumns && scadaRow != nil
		case proto.PointType.IsControl():
			e.DestTag = iedTag
			e.DestType = pair.TypeName
			e.SourceType = fullType
			e.SetSourceExpression(destBase)
		default:
			return nil, merry.Errorf("point %d of type %s: invalid direction: point type not set",
				p.PointNumber, root)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (x *Expander) expandScada(t *IedTemplate, dev IedScadaNamePair, p *IedTagEntry,
	proto *ServerTagRootPrototype, address int) (colmap.Columns, string, error) {

	scadaProto, err := x.Scada.Prototype(proto.PointType.Name())
	if err != nil {
		return nil, "", merry.Prependf(err, "point %d", p.PointNumber)
	}

	fullName := dev.ScadaName + " " + p.ScadaPointName
	if err := x.Scada.ValidateTagName(fullName); err != nil {
		return nil, "", merry.Prependf(err, "point %d", p.PointNumber)
	}
	alias := x.Rtac.RtacAlias(fullName, proto.PointType)
	if err := ValidateTagAlias(alias); err != nil {
		return nil, "", merry.Prependf(err, "SCADA tag %q", fullName)
	}

	custom, err := colmap.Parse(p.ScadaColumnsText)
	if err != nil {
		return nil, "", merry.Prependf(err, "point %d SCADA columns", p.PointNumber)
	}
	merged, err := colmap.Merge(scadaProto.DefaultColumns, custom)
	if err != nil {
		return nil, "", merry.Prependf(err, "point %d SCADA columns", p.PointNumber)
	}
	merged = colmap.ReplaceKeywords(merged, []colmap.Replacement{{Token: TokenAlias, Value: alias}})

	// controls key off their linked status point's address
	var keyAddress *int
	if proto.PointType.IsControl() {
		linked, err := t.LinkedStatusPoint(dev.IedName, p.ScadaPointName, x.Rtac)
		if err != nil {
			return nil, "", err
		}
		lroot, err := linked.RootType(x.Rtac)
		if err != nil {
			return nil, "", err
		}
		lproto, err := x.Rtac.Prototype(lroot)
		if err != nil {
			return nil, "", err
		}
		ka := linked.Address(lproto)
		keyAddress = &ka
	}

	row := scadaProto.ReplaceKeywords(merged, fullName, address, keyAddress)
	x.Scada.AddRow(proto.PointType.Name(), OutputRow{Columns: row})
	return row, alias, nil
}

// findSlotTag locates the single IED tag of the point mapping to the given
// array slot; validation already excluded duplicates.
func findSlotTag(rtac *RtacTemplate, p *IedTagEntry, root string, slot int) *IedTagPair {
	for j := range p.Tags {
		st, err := rtac.ResolveIedTagType(p.Tags[j].TypeName)
		if err != nil {
			continue
		}
		if st.Root == root && st.Index == slot {
			return &p.Tags[j]
		}
	}
	return nil
}

func tagTokens(tagName string, address int, alias string) []colmap.Replacement {
	return []colmap.Replacement{
		{Token: TokenName, Value: tagName},
		{Token: TokenAddress, Value: strconv.Itoa(address)},
		{Token: TokenAlias, Value: alias},
	}
}

func replaceTagTokens(template, iedName string, address int, alias string) string {
	for _, r := range []colmap.Replacement{
		{Token: TokenName, Value: iedName},
		{Token: TokenAddress, Value: strconv.Itoa(address)},
		{Token: TokenAlias, Value: alias},
	} {
		template = strings.ReplaceAll(template, r.Token, r.Value)
	}
	return template
}

var log = structlog.New()
