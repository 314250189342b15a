// Package sink publishes finished grading runs outside the process.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sregrade/internal/conductor/model"
)

// Record is one finished run.
type Record struct {
	Stamp      string            `json:"stamp"`
	ProblemID  string            `json:"problem_id"`
	Kind       string            `json:"kind"`
	Error      string            `json:"error,omitempty"`
	FinishedAt time.Time         `json:"finished_at"`
	Columns    []string          `json:"columns"`
	Fields     map[string]string `json:"fields"`
	Results    *model.Results    `json:"results"`
}

// Key identifies the record within a sweep.
func (r Record) Key() string {
	return fmt.Sprintf("%s:%s:%s", r.Stamp, r.ProblemID, r.Kind)
}

func (r Record) encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode record %s failed: %w", r.Key(), err)
	}
	return data, nil
}

// RunSink receives each run as soon as it finishes.
type RunSink interface {
	Name() string
	PublishRun(ctx context.Context, rec Record) error
}

// ArtifactSink receives exported result files.
type ArtifactSink interface {
	Name() string
	PutArtifact(ctx context.Context, name string, data []byte) error
}
