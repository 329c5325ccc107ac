package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadUnitLookup reads a two-column CSV (code, description) mapping
// observation unit codes to their free-text descriptions. A header row
// is expected and skipped.
func LoadUnitLookup(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open unit lookup: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("read unit lookup header: %w", err)
	}

	units := make(map[string]string)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read unit lookup row: %w", err)
		}
		if len(row) < 2 {
			continue
		}
		units[strings.TrimSpace(row[0])] = strings.TrimSpace(row[1])
	}
	return units, nil
}

// LoadCodeList reads the analyte code list restricting observations to
// HbA1c. One code per line, first CSV column if the file has several; a
// header row named "code" is skipped.
func LoadCodeList(path string) (map[string]struct{}, error) {
	return loadIDSet(path, "code")
}

// LoadPatientList reads an optional patient-inclusion list, one patient
// id per line. A header row named "patid" is skipped.
func LoadPatientList(path string) (map[string]struct{}, error) {
	return loadIDSet(path, "patid")
}

func loadIDSet(path, headerName string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s list: %w", headerName, err)
	}
	defer f.Close()

	set := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if i := strings.IndexByte(line, ','); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if first && strings.EqualFold(line, headerName) {
			first = false
			continue
		}
		first = false
		set[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s list: %w", headerName, err)
	}
	return set, nil
}
