package hba1c

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

// Service orchestrates the full pipeline: source -> classify -> validate ->
// convert -> reconcile -> sink. Classification through conversion runs
// per-partition in parallel; reconciliation needs every record for a
// patient-day in one place and runs after the join.
type Service struct {
	source  Source
	sink    Sink
	workers int
	log     zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithWorkers bounds partition-level parallelism.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger attaches a logger for progress and discard accounting.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func NewService(source Source, sink Sink, opts ...Option) *Service {
	s := &Service{
		source:  source,
		sink:    sink,
		workers: defaultWorkers,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// stageCounts accumulates non-fatal discards from the per-partition
// stages.
type stageCounts struct {
	records       int
	missingFields int
	excludedUnit  int
	unmatchedUnit int
	outOfRange    int
	unresolved    int
}

func (c *stageCounts) add(o stageCounts) {
	c.records += o.records
	c.missingFields += o.missingFields
	c.excludedUnit += o.excludedUnit
	c.unmatchedUnit += o.unmatchedUnit
	c.outOfRange += o.outOfRange
	c.unresolved += o.unresolved
}

// Run executes one pipeline pass. It aborts on the first fatal
// data-quality fault; ordinary discards are counted on the returned
// Report. Given identical inputs the run is deterministic.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.New()}

	partitions, err := s.source.Partitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}
	report.Partitions = len(partitions)

	var (
		mu       sync.Mutex
		prepared []Measurement
		counts   stageCounts
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, name := range partitions {
		name := name
		g.Go(func() error {
			obs, err := s.source.ReadPartition(gctx, name)
			if err != nil {
				return fmt.Errorf("read partition %s: %w", name, err)
			}
			ms, c, err := s.prepare(obs)
			if err != nil {
				return fmt.Errorf("partition %s: %w", name, err)
			}
			s.log.Debug().Str("partition", name).
				Int("records", c.records).
				Int("prepared", len(ms)).
				Msg("partition prepared")

			mu.Lock()
			prepared = append(prepared, ms...)
			counts.add(c)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.Records = counts.records
	report.MissingFields = counts.missingFields
	report.ExcludedUnit = counts.excludedUnit
	report.UnmatchedUnit = counts.unmatchedUnit
	report.OutOfRange = counts.outOfRange
	report.Unresolved = counts.unresolved

	results, rstats := Reconcile(prepared)
	report.Superseded = rstats.Superseded
	report.Duplicates = rstats.Duplicates
	report.SpreadDays = rstats.SpreadDays
	report.SpreadValues = rstats.SpreadValues
	report.Emitted = len(results)

	if err := s.sink.Write(ctx, results); err != nil {
		return nil, fmt.Errorf("write results: %w", err)
	}

	s.log.Info().
		Str("run_id", report.RunID.String()).
		Int("partitions", report.Partitions).
		Int("records", report.Records).
		Int("missing", report.MissingFields).
		Int("excluded_unit", report.ExcludedUnit).
		Int("unmatched_unit", report.UnmatchedUnit).
		Int("out_of_range", report.OutOfRange).
		Int("unresolved", report.Unresolved).
		Int("superseded", report.Superseded).
		Int("duplicates", report.Duplicates).
		Int("spread_days", report.SpreadDays).
		Int("emitted", report.Emitted).
		Msg("pipeline run complete")

	return report, nil
}

// prepare runs classification, the missing-field gate, range validation
// and unit conversion over one partition. A Fault from validation or
// conversion aborts the whole run.
func (s *Service) prepare(obs []Observation) ([]Measurement, stageCounts, error) {
	var (
		ms []Measurement
		c  stageCounts
	)
	for _, o := range obs {
		c.records++

		if o.Value == nil || o.Date == nil {
			c.missingFields++
			continue
		}

		cat, keep := Classify(o.Unit)
		if !keep {
			// Classification rejects on two grounds; recount the
			// exclusion pass for the report.
			if excludedAnalyte(o.Unit) {
				c.excludedUnit++
			} else {
				c.unmatchedUnit++
			}
			continue
		}

		m := Measurement{
			PatientID: o.PatientID,
			GroupID:   o.GroupID,
			Date:      *o.Date,
			Value:     *o.Value,
			Unit:      normalizeUnit(o.Unit),
			Category:  cat,
		}

		ok, err := Validate(&m)
		if err != nil {
			return nil, c, err
		}
		if !ok {
			if m.Category == UnitUnknown {
				c.unresolved++
			} else {
				c.outOfRange++
			}
			continue
		}

		if err := Convert(&m); err != nil {
			return nil, c, err
		}
		ms = append(ms, m)
	}
	return ms, c, nil
}
