package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urizennnn/swebench-contributions/classify"
	"github.com/urizennnn/swebench-contributions/dataset"
)

type Mode string

const (
	ModeOffline   Mode = "offline"
	ModeGithubAPI Mode = "github_api"
)

const DateLayout = "2006-01-02 15:04:05"

// Output is the document written to the results file.
type Output struct {
	Metadata Metadata          `json:"metadata"`
	Results  []classify.Record `json:"results"`
}

type Metadata struct {
	Username      string               `json:"username"`
	AnalysisMode  Mode                 `json:"analysis_mode"`
	DateAnalyzed  string               `json:"date_analyzed"`
	Count         int                  `json:"count"`
	Datasets      []dataset.Name       `json:"datasets,omitempty"`
	DatasetCounts map[dataset.Name]int `json:"dataset_counts,omitempty"`
	RunID         string               `json:"run_id,omitempty"`
	CacheStats    *CacheStats          `json:"cache_stats,omitempty"`
	Performance   *Performance         `json:"performance,omitempty"`
}

type CacheStats struct {
	Enabled bool   `json:"enabled"`
	Hits    int    `json:"hits"`
	Misses  int    `json:"misses"`
	HitRate string `json:"hit_rate"`
}

type Performance struct {
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	RemoteCalls    int64   `json:"remote_calls"`
}

// WriteFile writes out as indented JSON, replacing path atomically.
func WriteFile(path string, out *Output) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// LoadFile reads a results file. Files holding only the results array are
// accepted too; their metadata is rebuilt from the records.
func LoadFile(path string) (*Output, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading results: %w", err)
	}
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '[' {
		var records []classify.Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		agg := NewAggregator()
		for _, rec := range records {
			agg.Add(rec)
		}
		return agg.Finish(Metadata{}), nil
	}

	var out Output
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if out.Results == nil {
		out.Results = []classify.Record{}
	}
	return &out, nil
}
