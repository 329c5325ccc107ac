package hba1c

import "context"

// Source supplies observation records, already restricted to the HbA1c
// code list and (optionally) a patient-inclusion list by the adapter.
// Partitions of a sharded input carry no shared state, so the pipeline
// may read and prepare them in parallel.
type Source interface {
	Partitions(ctx context.Context) ([]string, error)
	ReadPartition(ctx context.Context, name string) ([]Observation, error)
}

// Sink receives the final per-patient-day series.
type Sink interface {
	Write(ctx context.Context, results []Result) error
}
