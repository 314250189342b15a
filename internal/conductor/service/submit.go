package service

import (
	"context"
	"fmt"
	"time"

	"sregrade/internal/conductor/metrics"
	"sregrade/internal/conductor/model"
	"sregrade/internal/conductor/oracle"
	"sregrade/internal/conductor/parser"
	"sregrade/internal/conductor/problem"
	appErr "sregrade/pkg/errors"
	"sregrade/pkg/utils/logger"

	"go.uber.org/zap"
)

// Submit grades one textual submit(...) call against the current stage and returns a snapshot
// of the results. The stage is read under the lock, the oracle runs without it, and the commit
// is rejected if another submission changed the session in the meantime.
func (c *Conductor) Submit(ctx context.Context, raw string) (*model.Results, error) {
	call, err := parser.Parse(raw)
	if err != nil {
		c.metrics.RecordSubmission(c.stageLabel(), metrics.OutcomeInvalid)
		return nil, err
	}

	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil, appErr.NoActiveProblemError()
	}
	stage := c.stage
	if !stage.Submittable() || c.pending || c.problem == nil {
		c.mu.Unlock()
		c.metrics.RecordSubmission(stage.String(), metrics.OutcomeRejected)
		return nil, appErr.StageViolationError(stage.String())
	}
	version := c.version
	p := c.problem
	id := c.problemID
	c.mu.Unlock()

	ctx = logger.WithStage(logger.WithProblem(ctx, id), stage.String())
	res := c.evaluate(ctx, stage, p, call.Solution())

	c.mu.Lock()
	if c.version != version || c.pending || c.stage != stage {
		current := c.stage
		c.mu.Unlock()
		c.metrics.RecordSubmission(stage.String(), metrics.OutcomeRejected)
		logger.Warn(ctx, "submission superseded", zap.String("current_stage", current.String()))
		return nil, appErr.StageViolationError(current.String()).
			WithMessagef("Submission superseded by a concurrent submit; stage is now %q", current)
	}

	if stage == model.StageNoop {
		return c.commitNoop(ctx, p, id, res)
	}

	elapsed := c.now().Sub(c.startedAt).Seconds()
	var next model.Stage
	switch stage {
	case model.StageDetection:
		c.results.Insert(model.KeyDetection, res)
		c.results.Insert(model.KeyTTD, elapsed)
		switch {
		case p.HasLocalization():
			next = model.StageLocalization
		case p.HasMitigation():
			next = model.StageMitigation
		default:
			next = model.StageDone
		}
	case model.StageLocalization:
		c.results.Insert(model.KeyLocalization, res)
		c.results.Insert(model.KeyTTL, elapsed)
		next = model.StageDone
		if p.HasMitigation() {
			next = model.StageMitigation
		}
	case model.StageMitigation:
		c.results.Insert(model.KeyMitigation, res)
		c.results.Insert(model.KeyTTM, elapsed)
		next = model.StageDone
	}
	snapshot := c.results.Clone()

	if next == model.StageDone {
		c.pending = true
		c.mu.Unlock()
		c.metrics.RecordSubmission(stage.String(), metrics.OutcomeAccepted)
		logger.Info(ctx, "submission graded", zap.Bool("success", res.Success), zap.String("next_stage", next.String()))
		c.finalize(ctx, "done")
		return snapshot, nil
	}

	c.stage = next
	c.version++
	c.mu.Unlock()
	c.metrics.RecordSubmission(stage.String(), metrics.OutcomeAccepted)
	c.metrics.RecordTransition(stage.String(), next.String())
	logger.Info(ctx, "submission graded", zap.Bool("success", res.Success), zap.String("next_stage", next.String()))
	return snapshot, nil
}

// commitNoop records the control verdict. A malformed answer keeps the session at noop;
// any valid answer injects the fault and opens detection. If injection fails the session is
// finalized with an Aborted reason. Caller holds c.mu; it is released here.
func (c *Conductor) commitNoop(ctx context.Context, p *problem.Problem, id string, res oracle.Result) (*model.Results, error) {
	if res.InvalidFormat() {
		c.invalidNoops++
		c.results.Insert(fmt.Sprintf("%s Invalid #%d", model.KeyNoopDetection, c.invalidNoops), res)
		c.version++
		snapshot := c.results.Clone()
		c.mu.Unlock()
		c.metrics.RecordSubmission(model.StageNoop.String(), metrics.OutcomeInvalid)
		logger.Info(ctx, "malformed noop answer, staying at noop")
		return snapshot, nil
	}

	c.results.Insert(model.KeyNoopDetection, res)
	c.pending = true
	snapshot := c.results.Clone()
	c.mu.Unlock()
	c.metrics.RecordSubmission(model.StageNoop.String(), metrics.OutcomeAccepted)

	if err := c.injectFault(ctx, p, id); err != nil {
		logger.Error(ctx, "fault injection failed, ending session", zap.Error(err))
		c.mu.Lock()
		c.results.Insert(model.KeyAborted, fmt.Sprintf("Fault injection failed: %v", err))
		c.mu.Unlock()
		c.finalize(ctx, "aborted")
		return nil, err
	}

	c.mu.Lock()
	c.stage = model.StageDetection
	c.release()
	c.mu.Unlock()
	c.metrics.RecordTransition(model.StageNoop.String(), model.StageDetection.String())
	logger.Info(ctx, "fault injected, detection open", zap.Bool("noop_success", res.Success))
	return snapshot, nil
}

// injectFault arms the critical section before touching the cluster. A failed injection is
// still marked on the problem, so the caller's finalize recovers the partial fault.
func (c *Conductor) injectFault(ctx context.Context, p *problem.Problem, id string) error {
	section, err := c.guard.Enter("fault:"+id, func() {
		p.RecoverFault(context.Background())
	})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.section = section
	c.mu.Unlock()

	err = p.InjectFault(ctx)
	c.metrics.RecordInjection(err)
	return err
}

// evaluate runs the stage's oracle and converts oracle failures into a failed verdict.
func (c *Conductor) evaluate(ctx context.Context, stage model.Stage, p *problem.Problem, solution any) oracle.Result {
	var o oracle.Oracle
	switch stage {
	case model.StageNoop:
		o = oracle.NewDetection("No")
	case model.StageDetection:
		o = p.Detection()
		if o == nil {
			o = oracle.NewDetection("Yes")
		}
	case model.StageLocalization:
		o = p.Localization()
	case model.StageMitigation:
		o = p.Mitigation()
		solution = nil
	}
	if o == nil {
		return oracle.Failed(fmt.Errorf("no %s oracle configured", stage))
	}

	begin := time.Now()
	res, err := oracle.Run(ctx, o, solution)
	c.metrics.ObserveOracle(stage.String(), time.Since(begin))
	if err != nil {
		logger.Warn(ctx, "oracle evaluation failed", zap.String("oracle", o.Name()), zap.Error(err))
	}
	return res
}

func (c *Conductor) stageLabel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage.String()
}
