package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndList(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	times := []float64{0, 0.5, 1.0}
	series := [][]float64{{10, 6.07, 3.68}}
	id, err := s.Save("decay", []string{"y"}, times, series)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty run id")
	}

	runs, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Model != "decay" || runs[0].Tn != 1.0 {
		t.Errorf("unexpected metadata: %+v", runs[0])
	}
	if runs[0].Interval != 0.5 {
		t.Errorf("expected interval 0.5, got %g", runs[0].Interval)
	}
}

func TestSampleFileContents(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	id, err := s.Save("oscillator", []string{"x", "v"},
		[]float64{0, 1}, [][]float64{{1, 0.54}, {0, -0.84}})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, id, "samples.csv"))
	if err != nil {
		t.Fatalf("open samples: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "t" || rows[0][1] != "x" || rows[0][2] != "v" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != "1" {
		t.Errorf("expected x(0)=1, got %s", rows[1][1])
	}
}

func TestSaveShapeMismatch(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Save("decay", []string{"y"}, []float64{0, 1}, [][]float64{{1}}); err == nil {
		t.Error("expected error for misaligned series")
	}
	if _, err := s.Save("decay", []string{"y", "z"}, []float64{0}, [][]float64{{1}}); err == nil {
		t.Error("expected error for missing series")
	}
}

func TestListEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing"))
	runs, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if runs != nil {
		t.Errorf("expected nil for missing dir, got %v", runs)
	}
}
