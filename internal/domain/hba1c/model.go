package hba1c

import (
	"time"

	"github.com/google/uuid"
)

// UnitCategory identifies the reporting scale of an HbA1c measurement.
// The ordering matters: IFCC sorts before DCCT when a submission group
// is collapsed to a single record.
type UnitCategory int

const (
	UnitIFCC UnitCategory = iota // mmol/mol
	UnitDCCT                     // percent
	UnitUnknown
)

func (c UnitCategory) String() string {
	switch c {
	case UnitIFCC:
		return "ifcc"
	case UnitDCCT:
		return "dcct"
	default:
		return "unknown"
	}
}

// ParseUnitCategory maps the persisted category string back to a UnitCategory.
func ParseUnitCategory(s string) UnitCategory {
	switch s {
	case "ifcc":
		return UnitIFCC
	case "dcct":
		return UnitDCCT
	default:
		return UnitUnknown
	}
}

// Observation is one raw input row after the upstream code-list filter.
// Value and Date are pointers because source data routinely omits both;
// records missing either never reach classification.
type Observation struct {
	PatientID string
	GroupID   string // parent group id linking co-submitted sub-records
	Date      *time.Time
	Value     *float64
	Unit      string // resolved free-text unit description
}

// Measurement is an observation that survived classification. Unit holds
// the lower-cased raw unit string; Value is on the scale implied by
// Category until Convert rewrites it to mmol/mol.
type Measurement struct {
	PatientID string
	GroupID   string
	Date      time.Time
	Value     float64
	Unit      string
	Category  UnitCategory
}

// DailyAggregate summarises every surviving converted value for one
// patient on one calendar date.
type DailyAggregate struct {
	PatientID      string
	Date           time.Time
	Values         []float64
	Min            float64
	Max            float64
	Mean           float64
	Representative float64
	Category       UnitCategory // provenance only; the value is always mmol/mol
}

// Result is the terminal artifact of the pipeline: one canonical HbA1c
// reading per patient per day, on the IFCC scale.
type Result struct {
	PatientID string
	Date      time.Time
	Value     float64      // mmol/mol
	Category  UnitCategory // original reporting scale
}

// Report summarises one pipeline run.
type Report struct {
	RunID      uuid.UUID
	Partitions int
	Records    int // observations read, pre-classification

	// Non-fatal discards, by reason.
	MissingFields int // value or date absent
	ExcludedUnit  int // different-analyte vocabulary
	UnmatchedUnit int // no inclusion-vocabulary match
	OutOfRange    int // outside the physiologic range for the category
	Unresolved    int // unknown-unit value outside both ranges

	// Reconciliation outcomes.
	Superseded   int // non-IFCC records dropped by within-group precedence
	Duplicates   int // exact (patient, date, value) duplicates collapsed
	SpreadDays   int // patient-days rejected for excessive spread
	SpreadValues int // values discarded with those days

	Emitted int
}
