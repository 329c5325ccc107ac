// Package ingest holds the thin I/O collaborators around the HbA1c
// pipeline: sharded CSV observation sources, the code-list and
// unit-description lookups, and the flat-file result writer. The core
// pipeline only ever sees the Source and Sink interfaces.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hba1c/hba1c/internal/domain/hba1c"
)

// Column names recognised in partition headers.
const (
	colPatient = "patid"
	colGroup   = "group_id"
	colDate    = "date"
	colValue   = "value"
	colUnit    = "unit_code"
	colCode    = "code"
)

var dateLayouts = []string{"2006-01-02", "02/01/2006"}

// CSVSource reads observation shards matched by a glob pattern. Each
// shard file is one partition. The analyte code list and the optional
// patient-inclusion list are applied while reading; unit codes are
// resolved to free-text descriptions through the unit lookup.
type CSVSource struct {
	glob     string
	units    map[string]string
	codes    map[string]struct{}
	patients map[string]struct{} // nil means no inclusion filter
}

func NewCSVSource(glob string, units map[string]string, codes, patients map[string]struct{}) *CSVSource {
	return &CSVSource{glob: glob, units: units, codes: codes, patients: patients}
}

func (s *CSVSource) Partitions(_ context.Context) ([]string, error) {
	matches, err := filepath.Glob(s.glob)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", s.glob, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no input files match %s", s.glob)
	}
	sort.Strings(matches)
	return matches, nil
}

func (s *CSVSource) ReadPartition(ctx context.Context, name string) ([]hba1c.Observation, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open partition: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if strings.HasSuffix(name, ".tsv") {
		r.Comma = '\t'
	}
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{colPatient, colDate, colValue} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("partition %s: missing column %q", name, required)
		}
	}

	var obs []hba1c.Observation
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		field := func(col string) string {
			i, ok := cols[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		if s.codes != nil {
			if _, ok := s.codes[field(colCode)]; !ok {
				continue
			}
		}
		patient := field(colPatient)
		if s.patients != nil {
			if _, ok := s.patients[patient]; !ok {
				continue
			}
		}

		o := hba1c.Observation{
			PatientID: patient,
			GroupID:   field(colGroup),
			Date:      parseDate(field(colDate)),
			Value:     parseValue(field(colValue)),
			Unit:      s.describeUnit(field(colUnit)),
		}
		obs = append(obs, o)
	}
	return obs, nil
}

// describeUnit resolves a unit code to its free-text description. Codes
// absent from the lookup pass through as-is; the classifier's inclusion
// vocabulary decides their fate.
func (s *CSVSource) describeUnit(code string) string {
	if desc, ok := s.units[code]; ok {
		return desc
	}
	return code
}

// parseDate accepts the date layouts seen in source extracts and
// returns nil for anything else, so malformed dates count as missing.
func parseDate(s string) *time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// parseValue treats unparseable numerics as missing values.
func parseValue(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
