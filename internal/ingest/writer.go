package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/hba1c/hba1c/internal/domain/hba1c"
)

// CSVSink writes the per-patient-day series to a flat CSV file. The
// file is rewritten in full each run, keeping runs idempotent.
type CSVSink struct {
	path string
}

func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

func (s *CSVSink) Write(_ context.Context, results []hba1c.Result) error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"patid", "date", "hba1c_mmol_mol", "unit"}); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range results {
		row := []string{
			r.PatientID,
			r.Date.Format("2006-01-02"),
			strconv.FormatFloat(r.Value, 'f', -1, 64),
			r.Category.String(),
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("write row for %s: %w", r.PatientID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush output: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}
