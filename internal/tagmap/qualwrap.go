package tagmap

import (
	"strings"

	"github.com/ansel1/merry"
)

// QualityWrapMode selects how tag processor entries are grouped into bad
// quality substitution blocks.
type QualityWrapMode int

const (
	// WrapNone passes entries through unmodified.
	WrapNone QualityWrapMode = iota
	// WrapGroupAllByDevice emits one wrapper covering each device's tags.
	WrapGroupAllByDevice
	// WrapFirstGroupRestByDevice emits a one tag wrapper for the first
	// entry of each device, then one wrapper for the rest of that device.
	// Trades per tag granularity for total script length.
	WrapFirstGroupRestByDevice
	// WrapIndividually emits one wrapper per entry.
	WrapIndividually
)

var qualityWrapModeNames = map[string]QualityWrapMode{
	"none":                            WrapNone,
	"group_all_by_device":             WrapGroupAllByDevice,
	"wrap_first_group_rest_by_device": WrapFirstGroupRestByDevice,
	"wrap_individually":               WrapIndividually,
}

// ParseQualityWrapMode parses the configuration text form of a wrap mode.
func ParseQualityWrapMode(text string) (QualityWrapMode, error) {
	m, f := qualityWrapModeNames[strings.TrimSpace(text)]
	if !f {
		return WrapNone, merry.Errorf("invalid quality wrap mode %q", text)
	}
	return m, nil
}

func (m QualityWrapMode) String() string {
	for s, v := range qualityWrapModeNames {
		if v == m {
			return s
		}
	}
	return "none"
}

// DefaultQualityCheckTemplate is the conditional guarding a wrapped block;
// {TAG} is replaced with the group's first parsed tag name.
const DefaultQualityCheckTemplate = "IF ({TAG}.q.validity <> good) THEN"

const (
	elseStatement  = "ELSE"
	endIfStatement = "END_IF"
)

// QualityWrapGenerator wraps tag processor entries in IEC 61131-3
// conditional blocks substituting nominal values while the source quality
// is bad, shielding the protocol layer from transient startup garbage.
type QualityWrapGenerator struct {
	Mode          QualityWrapMode
	CheckTemplate string
}

// Apply groups the wrapping eligible entries by parsed device name in first
// seen order, wraps each group per the configured mode, and appends the
// entries excluded from wrapping unchanged after all wrapped groups.
func (g QualityWrapGenerator) Apply(entries []*MapEntry) ([]*MapEntry, error) {
	if g.Mode == WrapNone {
		return entries, nil
	}

	var order []string
	groups := map[string][]*MapEntry{}
	var passthrough []*MapEntry
	for _, e := range entries {
		if !e.PerformQualityWrapping {
			passthrough = append(passthrough, e)
			continue
		}
		if _, f := groups[e.ParsedDeviceName]; !f {
			order = append(order, e.ParsedDeviceName)
		}
		groups[e.ParsedDeviceName] = append(groups[e.ParsedDeviceName], e)
	}

	var out []*MapEntry
	for _, device := range order {
		group := groups[device]
		switch g.Mode {
		case WrapGroupAllByDevice:
			wrapped, err := g.Generate(group)
			if err != nil {
				return nil, err
			}
			out = append(out, wrapped...)
		case WrapFirstGroupRestByDevice:
			wrapped, err := g.Generate(group[:1])
			if err != nil {
				return nil, err
			}
			out = append(out, wrapped...)
			if len(group) > 1 {
				wrapped, err = g.Generate(group[1:])
				if err != nil {
					return nil, err
				}
				out = append(out, wrapped...)
			}
		case WrapIndividually:
			for _, e := range group {
				wrapped, err := g.Generate([]*MapEntry{e})
				if err != nil {
					return nil, err
				}
				out = append(out, wrapped...)
			}
		}
	}
	return append(out, passthrough...), nil
}

// Generate synthesizes one substitution block around tagsToWrap:
//
//	IF (<first tag>.q.validity <> good) THEN
//	    <dest> := <nominal>  (time/quality sourced from the wrapped tag)
//	ELSE
//	    <the original entries, verbatim>
//	END_IF
func (g QualityWrapGenerator) Generate(tagsToWrap []*MapEntry) ([]*MapEntry, error) {
	if len(tagsToWrap) == 0 {
		return nil, nil
	}
	first := tagsToWrap[0]
	template := g.CheckTemplate
	if template == "" {
		template = DefaultQualityCheckTemplate
	}

	cond := &MapEntry{PointType: first.PointType}
	cond.SetSourceExpression(strings.ReplaceAll(template, TokenTag, first.ParsedTagName))
	out := []*MapEntry{cond}

	for _, e := range tagsToWrap {
		nominal, err := e.NominalValue()
		if err != nil {
			return nil, err
		}
		sub := &MapEntry{
			DestTag:          e.DestTag,
			DestType:         e.DestType,
			PointType:        e.PointType,
			TimeSourceTag:    e.ParsedTagName + ".t",
			QualitySourceTag: e.ParsedTagName + ".q",
		}
		sub.SetSourceExpression(nominal)
		out = append(out, sub)
	}

	elseEntry := &MapEntry{PointType: first.PointType}
	elseEntry.SetSourceExpression(elseStatement)
	out = append(out, elseEntry)
	out = append(out, tagsToWrap...)

	endIf := &MapEntry{PointType: first.PointType}
	endIf.SetSourceExpression(endIfStatement)
	return append(out, endIf), nil
}
