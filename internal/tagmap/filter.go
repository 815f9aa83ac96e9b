package tagmap

import (
	"strings"

	"github.com/ansel1/merry"
)

// FilterPredicate selects how a filter's device list is interpreted.
type FilterPredicate int

const (
	FilterAll  FilterPredicate = iota // every device
	FilterSome                        // only the listed devices
	FilterNot                         // every device except the listed ones
)

// Filter decides, per concrete device instance, whether a logical point is
// materialized for that device. Immutable once parsed.
type Filter struct {
	Predicate FilterPredicate
	Devices   []string
}

// ParseFilter parses a filter expression: "ALL", "NOT a,b" or "a,b".
func ParseFilter(text string) (Filter, error) {
	s := strings.TrimSpace(text)
	switch {
	case s == "ALL":
		return Filter{Predicate: FilterAll}, nil
	case s == "":
		return Filter{}, merry.New("empty filter expression")
	case s == "NOT" || strings.HasPrefix(s, "NOT "):
		devices, err := parseDeviceList(strings.TrimPrefix(s, "NOT"))
		if err != nil {
			return Filter{}, merry.Prependf(err, "filter %q", text)
		}
		return Filter{Predicate: FilterNot, Devices: devices}, nil
	}
	devices, err := parseDeviceList(s)
	if err != nil {
		return Filter{}, merry.Prependf(err, "filter %q", text)
	}
	return Filter{Predicate: FilterSome, Devices: devices}, nil
}

func parseDeviceList(s string) ([]string, error) {
	var devices []string
	for _, d := range strings.Split(s, ",") {
		d = strings.TrimSpace(d)
		if d == "" {
			return nil, merry.New("empty device name in device list")
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// ShouldGenerate reports whether a point carrying this filter is generated
// for the given device.
func (f Filter) ShouldGenerate(device string) bool {
	switch f.Predicate {
	case FilterAll:
		return true
	case FilterSome:
		return f.contains(device)
	default:
		return !f.contains(device)
	}
}

func (f Filter) contains(device string) bool {
	for _, d := range f.Devices {
		if d == device {
			return true
		}
	}
	return false
}

// Equal is structural: same predicate and same device list in the same order.
func (f Filter) Equal(o Filter) bool {
	if f.Predicate != o.Predicate || len(f.Devices) != len(o.Devices) {
		return false
	}
	for i := range f.Devices {
		if f.Devices[i] != o.Devices[i] {
			return false
		}
	}
	return true
}

func (f Filter) String() string {
	switch f.Predicate {
	case FilterAll:
		return "ALL"
	case FilterNot:
		return "NOT " + strings.Join(f.Devices, ",")
	default:
		return strings.Join(f.Devices, ",")
	}
}
