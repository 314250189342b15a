package driver

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"sregrade/internal/conductor/model"
	"sregrade/internal/conductor/sink"
	"sregrade/pkg/utils/logger"

	"go.uber.org/zap"
)

// fielder is implemented by verdicts that flatten into named fields.
type fielder interface {
	Fields() map[string]any
}

// Flatten turns results into a single-level map keyed "<result key>.<field>".
// Nested verdicts, such as compounded sub-results, extend the key path.
func Flatten(results *model.Results) (map[string]string, []string) {
	out := make(map[string]string)
	var order []string
	for key, value := range results.All() {
		flatten(key, value, out, &order)
	}
	return out, order
}

func flatten(prefix string, value any, out map[string]string, order *[]string) {
	switch v := value.(type) {
	case fielder:
		flatten(prefix, v.Fields(), out, order)
		return
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			flatten(prefix+"."+k, v[k], out, order)
		}
		return
	}
	if _, seen := out[prefix]; !seen {
		*order = append(*order, prefix)
	}
	out[prefix] = formatValue(value)
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// WriteCSV writes one row per run to path. Columns are problem_id, kind, error, then every
// flattened result key in first-seen order.
func WriteCSV(path string, runs []Run) error {
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, runs); err != nil {
		return err
	}
	return writeFile(path, buf.Bytes())
}

// EncodeCSV is WriteCSV to an arbitrary writer.
func EncodeCSV(out io.Writer, runs []Run) error {
	rows := make([]map[string]string, len(runs))
	var columns []string
	seen := make(map[string]struct{})
	for i, run := range runs {
		flat, order := Flatten(run.Results)
		rows[i] = flat
		for _, col := range order {
			if _, ok := seen[col]; ok {
				continue
			}
			seen[col] = struct{}{}
			columns = append(columns, col)
		}
	}

	w := csv.NewWriter(out)
	header := append([]string{"problem_id", "kind", "error"}, columns...)
	if err := w.Write(header); err != nil {
		return err
	}
	for i, run := range runs {
		record := []string{run.ProblemID, run.Kind, errText(run.Err)}
		for _, col := range columns {
			record = append(record, rows[i][col])
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create results dir failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write results file failed: %w", err)
	}
	return nil
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// record converts a finished run for the run sinks.
func (d *Driver) record(stamp string, run Run) sink.Record {
	fields, columns := Flatten(run.Results)
	return sink.Record{
		Stamp:      stamp,
		ProblemID:  run.ProblemID,
		Kind:       run.Kind,
		Error:      errText(run.Err),
		FinishedAt: d.cfg.Now().UTC(),
		Columns:    columns,
		Fields:     fields,
		Results:    run.Results,
	}
}

// publish hands a finished run to every run sink. Sink failures are logged and never stop the sweep.
func (d *Driver) publish(ctx context.Context, stamp string, run Run) {
	if len(d.cfg.RunSinks) == 0 {
		return
	}
	rec := d.record(stamp, run)
	for _, s := range d.cfg.RunSinks {
		if err := s.PublishRun(ctx, rec); err != nil {
			logger.Error(ctx, "publish run failed", zap.String("sink", s.Name()), zap.String("problem_id", run.ProblemID), zap.Error(err))
		}
	}
}

func (d *Driver) export(ctx context.Context, stamp string, runs []Run) {
	if len(runs) == 0 || (d.cfg.ResultsDir == "" && len(d.cfg.ArtifactSinks) == 0) {
		return
	}
	for _, run := range runs {
		d.writeArtifact(ctx, fmt.Sprintf("%s_%s_%s.csv", stamp, run.ProblemID, run.Kind), []Run{run})
	}
	if d.writeArtifact(ctx, stamp+"_all_results.csv", runs) {
		logger.Info(ctx, "results exported", zap.String("stamp", stamp), zap.Int("runs", len(runs)))
	}
}

func (d *Driver) writeArtifact(ctx context.Context, name string, runs []Run) bool {
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, runs); err != nil {
		logger.Error(ctx, "encode results failed", zap.String("name", name), zap.Error(err))
		return false
	}
	ok := true
	if d.cfg.ResultsDir != "" {
		path := filepath.Join(d.cfg.ResultsDir, name)
		if err := writeFile(path, buf.Bytes()); err != nil {
			logger.Error(ctx, "write results failed", zap.String("path", path), zap.Error(err))
			ok = false
		}
	}
	for _, s := range d.cfg.ArtifactSinks {
		if err := s.PutArtifact(ctx, name, buf.Bytes()); err != nil {
			logger.Error(ctx, "upload results failed", zap.String("sink", s.Name()), zap.String("name", name), zap.Error(err))
			ok = false
		}
	}
	return ok
}
