package hba1c

import (
	"testing"
	"time"
)

var testDay = time.Date(2019, 3, 14, 0, 0, 0, 0, time.UTC)

func meas(patient, group string, value float64, cat UnitCategory) Measurement {
	return Measurement{
		PatientID: patient,
		GroupID:   group,
		Date:      testDay,
		Value:     value,
		Category:  cat,
	}
}

// A submission group reporting both scales keeps only its IFCC value.
func TestReconcile_GroupPrecedence(t *testing.T) {
	results, stats := Reconcile([]Measurement{
		meas("1", "g1", 55, UnitIFCC),
		meas("1", "g1", 58, UnitDCCT), // converted mmol/mol from a co-reported percent
	})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Value != 55 {
		t.Errorf("value = %g, want 55 (IFCC wins inside a group)", results[0].Value)
	}
	if results[0].Category != UnitIFCC {
		t.Errorf("category = %s, want ifcc", results[0].Category)
	}
	if stats.Superseded != 1 {
		t.Errorf("superseded = %d, want 1", stats.Superseded)
	}
}

// Precedence must not reach across groups: a DCCT value in another group
// still participates in the day's spread statistics.
func TestReconcile_PrecedenceIsPerGroup(t *testing.T) {
	results, stats := Reconcile([]Measurement{
		meas("1", "g1", 55, UnitIFCC),
		meas("1", "g2", 60, UnitDCCT),
	})

	if stats.Superseded != 0 {
		t.Fatalf("superseded = %d, want 0", stats.Superseded)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	// spread 5 <= 22, mean of 55 and 60 rounds to 58.
	if results[0].Value != 58 {
		t.Errorf("value = %g, want 58", results[0].Value)
	}
}

func TestReconcile_UngroupedRecordsNeverSuperseded(t *testing.T) {
	_, stats := Reconcile([]Measurement{
		meas("1", "", 55, UnitIFCC),
		meas("1", "", 60, UnitDCCT),
	})
	if stats.Superseded != 0 {
		t.Errorf("superseded = %d, want 0 for records without a group", stats.Superseded)
	}
}

func TestReconcile_ExactDuplicatesCollapse(t *testing.T) {
	results, stats := Reconcile([]Measurement{
		meas("1", "g1", 55, UnitIFCC),
		meas("1", "g2", 55, UnitIFCC),
		meas("1", "g3", 55, UnitDCCT),
	})

	if stats.Duplicates != 2 {
		t.Errorf("duplicates = %d, want 2", stats.Duplicates)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Value != 55 {
		t.Errorf("value = %g, want 55", results[0].Value)
	}
	// IFCC sorts first, so the kept instance carries IFCC provenance.
	if results[0].Category != UnitIFCC {
		t.Errorf("category = %s, want ifcc", results[0].Category)
	}
}

func TestReconcile_ToleratedSpreadAverages(t *testing.T) {
	results, _ := Reconcile([]Measurement{
		meas("1", "g1", 50, UnitIFCC),
		meas("1", "g2", 72, UnitIFCC), // spread exactly 22: still reconcilable
	})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Value != 61 {
		t.Errorf("value = %g, want mean 61", results[0].Value)
	}
}

func TestReconcile_ExcessiveSpreadDropsDay(t *testing.T) {
	results, stats := Reconcile([]Measurement{
		meas("2", "g1", 40, UnitIFCC),
		meas("2", "g2", 90, UnitIFCC),
	})

	if len(results) != 0 {
		t.Fatalf("expected no result for an unreconcilable day, got %d", len(results))
	}
	if stats.SpreadDays != 1 {
		t.Errorf("spread days = %d, want 1", stats.SpreadDays)
	}
	if stats.SpreadValues != 2 {
		t.Errorf("spread values = %d, want 2", stats.SpreadValues)
	}
}

func TestReconcile_IndependentPatientDays(t *testing.T) {
	otherDay := testDay.AddDate(0, 0, 1)
	ms := []Measurement{
		meas("1", "g1", 55, UnitIFCC),
		meas("2", "g2", 48, UnitDCCT),
		{PatientID: "1", GroupID: "g3", Date: otherDay, Value: 60, Category: UnitIFCC},
	}
	results, _ := Reconcile(ms)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	// Output is ordered by patient, then date.
	if results[0].PatientID != "1" || !results[0].Date.Equal(testDay) {
		t.Errorf("results[0] = %s/%s", results[0].PatientID, results[0].Date)
	}
	if results[1].PatientID != "1" || !results[1].Date.Equal(otherDay) {
		t.Errorf("results[1] = %s/%s", results[1].PatientID, results[1].Date)
	}
	if results[2].PatientID != "2" {
		t.Errorf("results[2] patient = %s, want 2", results[2].PatientID)
	}
}

func TestAggregateDaily_Summary(t *testing.T) {
	aggs := AggregateDaily([]Measurement{
		meas("1", "g1", 50, UnitIFCC),
		meas("1", "g2", 60, UnitIFCC),
		meas("1", "g3", 70, UnitDCCT),
	})

	if len(aggs) != 1 {
		t.Fatalf("expected 1 aggregate, got %d", len(aggs))
	}
	agg := aggs[0]
	if agg.Min != 50 || agg.Max != 70 {
		t.Errorf("min/max = %g/%g, want 50/70", agg.Min, agg.Max)
	}
	if agg.Mean != 60 {
		t.Errorf("mean = %g, want 60", agg.Mean)
	}
	if agg.Representative != 60 {
		t.Errorf("representative = %g, want 60", agg.Representative)
	}
	if agg.Category != UnitIFCC {
		t.Errorf("category = %s, want ifcc", agg.Category)
	}
}
