package hba1c

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// observationSourcePG reads HbA1c observations from the clinical_event
// table, resolving unit codes through unit_lookup and restricting to the
// hba1c_code analyte list. When cohortFilter is set, rows are further
// restricted to patients present in the cohort table. The whole table is
// one logical partition; sharded inputs are a file-source concern.
type observationSourcePG struct {
	pool         *pgxpool.Pool
	cohortFilter bool
}

func NewObservationSourcePG(pool *pgxpool.Pool, cohortFilter bool) Source {
	return &observationSourcePG{pool: pool, cohortFilter: cohortFilter}
}

func (r *observationSourcePG) Partitions(ctx context.Context) ([]string, error) {
	return []string{"clinical_event"}, nil
}

func (r *observationSourcePG) ReadPartition(ctx context.Context, name string) ([]Observation, error) {
	query := `
		SELECT ce.patid, ce.parent_id, ce.event_date, ce.value,
		       COALESCE(ul.description, ce.unit_code, '')
		FROM clinical_event ce
		JOIN hba1c_code hc ON hc.read_code = ce.read_code
		LEFT JOIN unit_lookup ul ON ul.code = ce.unit_code`
	if r.cohortFilter {
		query += `
		JOIN cohort c ON c.patid = ce.patid`
	}
	query += `
		ORDER BY ce.patid, ce.event_date`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var obs []Observation
	for rows.Next() {
		var (
			o     Observation
			group *string
		)
		if err := rows.Scan(&o.PatientID, &group, &o.Date, &o.Value, &o.Unit); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		if group != nil {
			o.GroupID = *group
		}
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	return obs, nil
}

// resultSinkPG writes the canonical series into hba1c_reading. Writes
// are upserts keyed by (patid, event_date) so a re-run over identical
// input leaves the table unchanged.
type resultSinkPG struct {
	pool *pgxpool.Pool
}

func NewResultSinkPG(pool *pgxpool.Pool) Sink {
	return &resultSinkPG{pool: pool}
}

func (r *resultSinkPG) Write(ctx context.Context, results []Result) error {
	batch := &pgx.Batch{}
	for _, res := range results {
		batch.Queue(`
			INSERT INTO hba1c_reading (patid, event_date, value_mmol_mol, unit_category)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (patid, event_date)
			DO UPDATE SET value_mmol_mol = EXCLUDED.value_mmol_mol,
			              unit_category  = EXCLUDED.unit_category`,
			res.PatientID, res.Date, res.Value, res.Category.String())
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range results {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert hba1c reading: %w", err)
		}
	}
	return nil
}
