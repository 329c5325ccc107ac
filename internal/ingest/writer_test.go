package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hba1c/hba1c/internal/domain/hba1c"
)

func TestCSVSink_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	day := time.Date(2019, 3, 14, 0, 0, 0, 0, time.UTC)

	sink := NewCSVSink(path)
	err := sink.Write(context.Background(), []hba1c.Result{
		{PatientID: "100", Date: day, Value: 55, Category: hba1c.UnitIFCC},
		{PatientID: "200", Date: day, Value: 53, Category: hba1c.UnitDCCT},
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := "patid,date,hba1c_mmol_mol,unit\n" +
		"100,2019-03-14,55,ifcc\n" +
		"200,2019-03-14,53,dcct\n"
	if string(data) != want {
		t.Errorf("output mismatch:\ngot:\n%s\nwant:\n%s", data, want)
	}
}

func TestCSVSink_RewriteIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	day := time.Date(2019, 3, 14, 0, 0, 0, 0, time.UTC)
	results := []hba1c.Result{{PatientID: "100", Date: day, Value: 55, Category: hba1c.UnitIFCC}}

	sink := NewCSVSink(path)
	for i := 0; i < 2; i++ {
		if err := sink.Write(context.Background(), results); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := "patid,date,hba1c_mmol_mol,unit\n100,2019-03-14,55,ifcc\n"
	if string(data) != want {
		t.Errorf("second write not idempotent:\n%s", data)
	}
}
