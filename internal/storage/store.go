// Package storage persists sampled solve output for the CLI: one
// directory per run holding metadata.json and samples.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
	T0        float64   `json:"t0"`
	Tn        float64   `json:"tn"`
	Interval  float64   `json:"interval"`
	Columns   []string  `json:"columns"`
}

// Save writes one sampled run. Columns name the series in order; series
// holds one value sequence per column, each aligned with times.
func (s *Store) Save(model string, columns []string, times []float64, series [][]float64) (string, error) {
	if len(series) != len(columns) {
		return "", fmt.Errorf("store: %d series for %d columns", len(series), len(columns))
	}
	for i, seq := range series {
		if len(seq) != len(times) {
			return "", fmt.Errorf("store: series %s has %d samples, grid has %d",
				columns[i], len(seq), len(times))
		}
	}
	if len(times) == 0 {
		return "", fmt.Errorf("store: empty sample grid")
	}

	runID := fmt.Sprintf("%s_%d", model, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	interval := 0.0
	if len(times) > 1 {
		interval = times[1] - times[0]
	}
	meta := RunMetadata{
		ID:        runID,
		Model:     model,
		Timestamp: time.Now(),
		T0:        times[0],
		Tn:        times[len(times)-1],
		Interval:  interval,
		Columns:   columns,
	}
	if err := s.writeMetadata(runDir, meta); err != nil {
		return "", err
	}
	if err := s.writeSamples(runDir, columns, times, series); err != nil {
		return "", err
	}
	return runID, nil
}

func (s *Store) writeMetadata(runDir string, meta RunMetadata) error {
	f, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func (s *Store) writeSamples(runDir string, columns []string, times []float64, series [][]float64) error {
	f, err := os.Create(filepath.Join(runDir, "samples.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"t"}, columns...)
	if err := w.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for k := range times {
		row[0] = strconv.FormatFloat(times[k], 'g', -1, 64)
		for i := range series {
			row[i+1] = strconv.FormatFloat(series[i][k], 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns metadata for all stored runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var runs []RunMetadata
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}
