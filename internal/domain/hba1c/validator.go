package hba1c

import "fmt"

// Physiologic plausibility bounds. The IFCC and DCCT ranges are disjoint
// except for the interval (20, 20.4), so the magnitude of an
// unknown-unit value almost always identifies its true scale.
const (
	ifccMin = 20.0
	ifccMax = 200.0
	dcctMin = 4.0
	dcctMax = 20.4
)

// Fault is a fatal data-quality error: the classification or conversion
// assumptions have been violated by the input data. The run aborts and
// the condition needs manual investigation; it is never auto-resolved.
type Fault struct {
	Stage    string // validation step that detected the condition
	Category UnitCategory
	Value    float64
}

func (f *Fault) Error() string {
	return fmt.Sprintf("data-quality fault at %s: %s value %g violates scale assumptions", f.Stage, f.Category, f.Value)
}

// Validate enforces the physiologic range for the measurement's category
// and resolves Unknown categories by value magnitude. It returns false
// for ordinary out-of-range discards. IU/L-labelled DCCT values are
// rewritten onto the percent scale before their range is checked.
func Validate(m *Measurement) (bool, error) {
	switch m.Category {
	case UnitIFCC:
		return m.Value >= ifccMin && m.Value <= ifccMax, nil

	case UnitDCCT:
		if m.Unit == "iu/l" {
			m.Value = IUPerLToPercent(m.Value)
		}
		return m.Value >= dcctMin && m.Value <= dcctMax, nil

	default:
		v := m.Value
		if v > 20 && v < 20.4 {
			// Inside the gap neither scale claims: unresolvable.
			return false, &Fault{Stage: "resolve-unknown", Category: UnitUnknown, Value: v}
		}
		switch {
		case v >= ifccMin && v <= ifccMax:
			m.Category = UnitIFCC
			return true, nil
		case v >= dcctMin && v < 20:
			m.Category = UnitDCCT
			return true, nil
		}
		return false, nil
	}
}
