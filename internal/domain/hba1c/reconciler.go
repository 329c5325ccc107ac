package hba1c

import "sort"

// spreadTolerance is the widest same-day disagreement, in mmol/mol,
// that averaging is allowed to resolve.
const spreadTolerance = 22.0

// ReconcileStats counts the records each reconciliation step removed.
type ReconcileStats struct {
	Superseded   int
	Duplicates   int
	SpreadDays   int
	SpreadValues int
}

type dayKey struct {
	patient string
	date    string
}

type groupKey struct {
	patient string
	date    string
	group   string
}

func dateKey(m Measurement) string {
	return m.Date.Format("2006-01-02")
}

// Reconcile collapses converted measurements to at most one result per
// patient-day. The step order is load-bearing: within-group IFCC
// precedence must run before spread statistics are computed, otherwise a
// co-submitted DCCT/IFCC pair inflates the spread before it is
// collapsed.
func Reconcile(ms []Measurement) ([]Result, ReconcileStats) {
	var stats ReconcileStats

	// Deterministic processing order: patient, date, group, then IFCC
	// before DCCT so precedence and provenance never depend on input
	// order.
	sorted := make([]Measurement, len(ms))
	copy(sorted, ms)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.PatientID != b.PatientID {
			return a.PatientID < b.PatientID
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.GroupID != b.GroupID {
			return a.GroupID < b.GroupID
		}
		return a.Value < b.Value
	})

	kept := applyGroupPrecedence(sorted, &stats)
	kept = dedupExact(kept, &stats)
	aggs := AggregateDaily(kept)

	var results []Result
	for _, agg := range aggs {
		if agg.Max-agg.Min > spreadTolerance {
			stats.SpreadDays++
			stats.SpreadValues += len(agg.Values)
			continue
		}
		results = append(results, Result{
			PatientID: agg.PatientID,
			Date:      agg.Date,
			Value:     agg.Representative,
			Category:  agg.Category,
		})
	}
	return results, stats
}

// applyGroupPrecedence drops non-IFCC records from any submission group
// that also reported an IFCC value on the same date. Records without a
// parent group id form singleton groups and are never superseded.
func applyGroupPrecedence(ms []Measurement, stats *ReconcileStats) []Measurement {
	hasIFCC := make(map[groupKey]bool)
	for _, m := range ms {
		if m.GroupID == "" || m.Category != UnitIFCC {
			continue
		}
		hasIFCC[groupKey{m.PatientID, dateKey(m), m.GroupID}] = true
	}

	kept := ms[:0]
	for _, m := range ms {
		if m.GroupID != "" && m.Category != UnitIFCC && hasIFCC[groupKey{m.PatientID, dateKey(m), m.GroupID}] {
			stats.Superseded++
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

// dedupExact collapses repeated (patient, date, value) tuples to one
// instance. Input is sorted IFCC-first, so a value reported on both
// scales keeps IFCC provenance.
func dedupExact(ms []Measurement, stats *ReconcileStats) []Measurement {
	type valueKey struct {
		patient string
		date    string
		value   float64
	}
	seen := make(map[valueKey]bool)
	kept := ms[:0]
	for _, m := range ms {
		k := valueKey{m.PatientID, dateKey(m), m.Value}
		if seen[k] {
			stats.Duplicates++
			continue
		}
		seen[k] = true
		kept = append(kept, m)
	}
	return kept
}

// AggregateDaily groups measurements by patient-day and computes the
// per-day summary. The representative value is the mean, subject to the
// pipeline rounding rule; the day's category is IFCC when any
// contributing measurement was directly reported IFCC.
func AggregateDaily(ms []Measurement) []DailyAggregate {
	idx := make(map[dayKey]int)
	var aggs []DailyAggregate

	for _, m := range ms {
		k := dayKey{m.PatientID, dateKey(m)}
		i, ok := idx[k]
		if !ok {
			i = len(aggs)
			idx[k] = i
			aggs = append(aggs, DailyAggregate{
				PatientID: m.PatientID,
				Date:      m.Date,
				Category:  m.Category,
			})
		}
		agg := &aggs[i]
		agg.Values = append(agg.Values, m.Value)
		if m.Category == UnitIFCC {
			agg.Category = UnitIFCC
		}
	}

	for i := range aggs {
		agg := &aggs[i]
		min, max, sum := agg.Values[0], agg.Values[0], 0.0
		for _, v := range agg.Values {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
			sum += v
		}
		agg.Min = min
		agg.Max = max
		agg.Mean = sum / float64(len(agg.Values))
		agg.Representative = RoundValue(agg.Mean)
	}
	return aggs
}
