// Package tagmap implements the point mapping engine: SCADA, RTAC server and
// IED device templates, their structural validation, the per device instance
// expansion of logical points into concrete tag rows, and the synthesis of
// the tag processor script with optional bad quality nominal substitution.
package tagmap

import "github.com/ansel1/merry"

// Canonical point type names.
const (
	StatusBinary  = "StatusBinary"
	StatusAnalog  = "StatusAnalog"
	ControlBinary = "ControlBinary"
	ControlAnalog = "ControlAnalog"
)

// PointType classifies a point as status or control, binary or analog.
// The zero value is "not set"; a set value always holds exactly one of
// status/control and one of binary/analog.
type PointType struct {
	valid    bool
	isStatus bool
	isBinary bool
}

// ParsePointType accepts one of the four canonical names.
func ParsePointType(text string) (PointType, error) {
	switch text {
	case StatusBinary:
		return PointType{valid: true, isStatus: true, isBinary: true}, nil
	case StatusAnalog:
		return PointType{valid: true, isStatus: true}, nil
	case ControlBinary:
		return PointType{valid: true, isBinary: true}, nil
	case ControlAnalog:
		return PointType{valid: true}, nil
	}
	return PointType{}, merry.Errorf("invalid point type %q: must be one of %s, %s, %s, %s",
		text, StatusBinary, StatusAnalog, ControlBinary, ControlAnalog)
}

func (pt PointType) Valid() bool     { return pt.valid }
func (pt PointType) IsStatus() bool  { return pt.valid && pt.isStatus }
func (pt PointType) IsControl() bool { return pt.valid && !pt.isStatus }
func (pt PointType) IsBinary() bool  { return pt.valid && pt.isBinary }
func (pt PointType) IsAnalog() bool  { return pt.valid && !pt.isBinary }

// Name returns the canonical text form, or "" for the zero value.
func (pt PointType) Name() string {
	if !pt.valid {
		return ""
	}
	switch {
	case pt.isStatus && pt.isBinary:
		return StatusBinary
	case pt.isStatus:
		return StatusAnalog
	case pt.isBinary:
		return ControlBinary
	}
	return ControlAnalog
}
