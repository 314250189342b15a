// Package driver sweeps registered problems through the conductor one at a time.
package driver

import (
	"context"
	"fmt"
	"slices"
	"time"

	"sregrade/internal/conductor/model"
	"sregrade/internal/conductor/problem"
	"sregrade/internal/conductor/sink"
	appErr "sregrade/pkg/errors"
	"sregrade/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	defaultPollInterval   = time.Second
	defaultProblemTimeout = 30 * time.Minute

	stampLayout = "20060102T150405Z"
)

// Run kinds.
const (
	KindFaulty = "faulty"
	KindNoop   = "noop"
)

// Conductor is the part of the conductor the driver drives.
type Conductor interface {
	StartProblem(ctx context.Context, id string) error
	Stage() (model.Stage, error)
	Results() *model.Results
	Abort(ctx context.Context, reason string) error
	CurrentApp() problem.Application
}

// Config holds sweep settings.
type Config struct {
	Conductor Conductor
	Registry  *problem.Registry
	// ProblemIDs limits the sweep to these ids; empty means every registered non-noop id.
	ProblemIDs     []string
	Filter         string
	PollInterval   time.Duration
	ProblemTimeout time.Duration
	// RunNoop grades the matching noop control after each faulty problem.
	RunNoop bool
	// ResultsDir receives per-problem and aggregate CSV files; empty disables export.
	ResultsDir string
	// RunSinks receive every run as soon as it finishes.
	RunSinks []sink.RunSink
	// ArtifactSinks receive the same CSV files written to ResultsDir.
	ArtifactSinks []sink.ArtifactSink
	Now           func() time.Time
}

// Run is one graded session.
type Run struct {
	ProblemID string
	Kind      string
	Results   *model.Results
	Err       error
}

// Driver runs a sequential sweep.
type Driver struct {
	cfg Config
}

// New creates a driver.
func New(cfg Config) (*Driver, error) {
	if cfg.Conductor == nil {
		return nil, fmt.Errorf("conductor is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("problem registry is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.ProblemTimeout <= 0 {
		cfg.ProblemTimeout = defaultProblemTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Driver{cfg: cfg}, nil
}

// IDs returns the problem ids the sweep will visit, in order.
func (d *Driver) IDs() []string {
	if len(d.cfg.ProblemIDs) > 0 {
		return slices.Clone(d.cfg.ProblemIDs)
	}
	var ids []string
	for id := range d.cfg.Registry.GetProblemIDs(d.cfg.Filter) {
		if problem.IsNoop(id) {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Run grades every selected problem. Per-problem failures are logged and recorded; a
// configuration error or a failed deployment stops the sweep and is returned.
func (d *Driver) Run(ctx context.Context) ([]Run, error) {
	ids := d.IDs()
	stamp := d.cfg.Now().UTC().Format(stampLayout)
	logger.Info(ctx, "sweep started", zap.Int("problems", len(ids)), zap.String("stamp", stamp))

	var runs []Run
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return runs, err
		}
		logger.Info(ctx, "running problem", zap.String("problem_id", id), zap.Int("index", i+1), zap.Int("total", len(ids)))

		run, app := d.runOne(ctx, id, KindFaulty)
		runs = append(runs, run)
		d.publish(ctx, stamp, run)
		if fatal(run.Err) {
			d.export(ctx, stamp, runs)
			return runs, run.Err
		}

		if d.cfg.RunNoop && run.Err == nil {
			if noop, ok := d.noopRun(ctx, id, app); ok {
				runs = append(runs, noop)
				d.publish(ctx, stamp, noop)
				if fatal(noop.Err) {
					d.export(ctx, stamp, runs)
					return runs, noop.Err
				}
			}
		}
	}

	d.export(ctx, stamp, runs)
	logger.Info(ctx, "sweep finished", zap.Int("runs", len(runs)))
	return runs, nil
}

func (d *Driver) noopRun(ctx context.Context, faultyID string, app problem.Application) (Run, bool) {
	noopID, ok := d.cfg.Registry.GetMatchingNoopID(app)
	if !ok {
		return Run{}, false
	}
	logger.Info(ctx, "running noop control", zap.String("problem_id", noopID), zap.String("for", faultyID))
	run, _ := d.runOne(ctx, noopID, KindNoop)
	return run, true
}

// runOne starts id, waits for it to finish and returns the run plus the application it deployed.
func (d *Driver) runOne(ctx context.Context, id, kind string) (Run, problem.Application) {
	pctx := logger.WithProblem(ctx, id)
	run := Run{ProblemID: id, Kind: kind}

	if err := d.cfg.Conductor.StartProblem(pctx, id); err != nil {
		logger.Error(pctx, "start problem failed", zap.Error(err))
		run.Err = err
		run.Results = d.cfg.Conductor.Results()
		return run, nil
	}
	app := d.cfg.Conductor.CurrentApp()

	if err := d.waitDone(pctx); err != nil {
		reason := fmt.Sprintf("problem did not finish: %v", err)
		logger.Warn(pctx, "aborting problem", zap.String("reason", reason))
		// the parent context may already be cancelled; teardown must still run
		if abortErr := d.cfg.Conductor.Abort(context.WithoutCancel(pctx), reason); abortErr != nil {
			logger.Error(pctx, "abort failed", zap.Error(abortErr))
		}
		run.Err = appErr.Wrapf(err, appErr.Timeout, "%s", reason)
	}
	run.Results = d.cfg.Conductor.Results()
	return run, app
}

func (d *Driver) waitDone(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.ProblemTimeout)
	defer cancel()

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	for {
		stage, err := d.cfg.Conductor.Stage()
		if err == nil && stage == model.StageDone {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func fatal(err error) bool {
	return appErr.Is(err, appErr.ConfigurationError) || appErr.Is(err, appErr.DeployFailed)
}
