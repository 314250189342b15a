package service

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"sregrade/internal/conductor/critical"
	"sregrade/internal/conductor/metrics"
	"sregrade/internal/conductor/model"
	"sregrade/internal/conductor/problem"
	appErr "sregrade/pkg/errors"
	"sregrade/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultRequiredBinaries are checked before any problem is deployed.
var DefaultRequiredBinaries = []string{"kubectl", "helm"}

// Conductor owns the active problem and drives the grading stages.
type Conductor struct {
	registry         *problem.Registry
	guard            *critical.Guard
	metrics          *metrics.Metrics
	requiredBinaries []string
	lookPath         func(string) (string, error)
	now              func() time.Time

	mu   sync.Mutex
	idle *sync.Cond

	started   bool
	sessionID string
	problemID string
	problem   *problem.Problem
	appInfo   model.AppInfo
	stage     model.Stage
	results   *model.Results
	startedAt time.Time
	section   *critical.Section

	// version changes on every committed mutation; submit re-validates it before committing.
	version uint64
	// pending is set while a transition runs slow side effects outside the lock.
	pending      bool
	cleanedUp    bool
	invalidNoops int
}

// Config holds conductor dependencies and settings.
type Config struct {
	Registry         *problem.Registry
	Guard            *critical.Guard
	Metrics          *metrics.Metrics
	RequiredBinaries []string
	LookPath         func(string) (string, error)
	Clock            func() time.Time
}

// NewConductor creates a conductor with no active problem.
func NewConductor(cfg Config) (*Conductor, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("problem registry is required")
	}
	guard := cfg.Guard
	if guard == nil {
		guard = critical.Default()
	}
	required := cfg.RequiredBinaries
	if required == nil {
		required = DefaultRequiredBinaries
	}
	lookPath := cfg.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	c := &Conductor{
		registry:         cfg.Registry,
		guard:            guard,
		metrics:          cfg.Metrics,
		requiredBinaries: append([]string(nil), required...),
		lookPath:         lookPath,
		now:              now,
		stage:            model.StageSetup,
		results:          model.NewResults(),
	}
	c.idle = sync.NewCond(&c.mu)
	return c, nil
}

// Registry returns the problem registry the conductor draws from.
func (c *Conductor) Registry() *problem.Registry {
	return c.registry
}

// CheckDependencies verifies every required binary is on PATH.
func (c *Conductor) CheckDependencies() error {
	var missing []string
	for _, bin := range c.requiredBinaries {
		if _, err := c.lookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	if len(missing) > 0 {
		return appErr.Newf(appErr.ConfigurationError, "Required binaries not found on PATH: %v", missing).
			WithDetail("missing", missing)
	}
	return nil
}

// StartProblem deploys a fresh instance of problem id and leaves the session at the noop stage.
func (c *Conductor) StartProblem(ctx context.Context, id string) error {
	if err := c.CheckDependencies(); err != nil {
		return err
	}

	p, err := c.registry.GetProblemInstance(id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	for c.pending {
		c.idle.Wait()
	}
	if c.problem != nil && c.stage != model.StageDone {
		prev := c.problemID
		c.results.Insert(model.KeyAborted, "superseded by "+id)
		c.pending = true
		c.mu.Unlock()
		logger.Warn(ctx, "tearing down unfinished session", zap.String("problem_id", prev))
		c.finalize(logger.WithProblem(ctx, prev), "aborted")
		c.mu.Lock()
	}

	c.started = true
	c.sessionID = uuid.NewString()
	c.problemID = id
	c.problem = p
	c.appInfo = appInfoOf(p)
	c.results = model.NewResults()
	c.startedAt = c.now()
	c.section = nil
	c.cleanedUp = false
	c.invalidNoops = 0
	prevStage := c.stage
	c.stage = model.StageSetup
	c.pending = true
	c.version++
	c.mu.Unlock()

	if prevStage != model.StageSetup {
		c.metrics.RecordTransition(prevStage.String(), model.StageSetup.String())
	}

	ctx = logger.WithProblem(ctx, id)
	logger.Info(ctx, "problem session started",
		zap.String("session_id", c.sessionID),
		zap.String("namespace", p.Namespace()),
	)

	app := p.App()
	if err := app.Cleanup(ctx); err != nil {
		logger.Warn(ctx, "stale deployment cleanup failed", zap.Error(err))
	}
	if err := app.Deploy(ctx); err != nil {
		return c.failSetup(ctx, appErr.Wrapf(err, appErr.DeployFailed, "deploy %s: %v", app.AppName(), err))
	}
	if err := app.StartWorkload(ctx); err != nil {
		return c.failSetup(ctx, appErr.Wrapf(err, appErr.DeployFailed, "start workload for %s: %v", app.AppName(), err))
	}

	c.mu.Lock()
	c.stage = model.StageNoop
	c.release()
	c.mu.Unlock()
	c.metrics.RecordTransition(model.StageSetup.String(), model.StageNoop.String())
	logger.Info(ctx, "application deployed", zap.String("stage", model.StageNoop.String()))
	return nil
}

func (c *Conductor) failSetup(ctx context.Context, err error) error {
	logger.Error(ctx, "problem setup failed", zap.Error(err))
	c.mu.Lock()
	c.results.Insert(model.KeyAborted, err.Error())
	c.mu.Unlock()
	c.finalize(ctx, "aborted")
	return err
}

// Stage returns the current stage, or NoActiveProblem before the first StartProblem.
func (c *Conductor) Stage() (model.Stage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return "", appErr.NoActiveProblemError()
	}
	return c.stage, nil
}

// Results returns an independent copy of the accumulated results.
func (c *Conductor) Results() *model.Results {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results.Clone()
}

// ProblemID returns the id of the current or last session.
func (c *Conductor) ProblemID() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return "", appErr.NoActiveProblemError()
	}
	return c.problemID, nil
}

// AppInfo describes the application of the current or last session.
func (c *Conductor) AppInfo() (model.AppInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return model.AppInfo{}, appErr.NoActiveProblemError()
	}
	return c.appInfo, nil
}

// CurrentApp returns the application of the active problem, if any.
func (c *Conductor) CurrentApp() problem.Application {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.problem == nil {
		return nil
	}
	return c.problem.App()
}

// release ends an in-flight transition. Caller holds c.mu.
func (c *Conductor) release() {
	c.pending = false
	c.version++
	c.idle.Broadcast()
}

func appInfoOf(p *problem.Problem) model.AppInfo {
	app := p.App()
	if app == nil {
		return model.AppInfo{Namespace: p.Namespace()}
	}
	return model.AppInfo{
		AppName:      app.AppName(),
		Namespace:    p.Namespace(),
		Descriptions: app.Description(),
	}
}
