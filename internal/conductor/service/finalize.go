package service

import (
	"context"

	"sregrade/internal/conductor/model"
	"sregrade/pkg/utils/logger"

	"go.uber.org/zap"
)

// Abort ends the active session early, recording reason under the Aborted key.
// It is a no-op when no session is active or the session is already done.
func (c *Conductor) Abort(ctx context.Context, reason string) error {
	c.mu.Lock()
	for c.pending {
		c.idle.Wait()
	}
	if c.problem == nil || c.stage == model.StageDone {
		c.mu.Unlock()
		return nil
	}
	id := c.problemID
	c.results.Insert(model.KeyAborted, reason)
	c.pending = true
	c.mu.Unlock()

	ctx = logger.WithProblem(ctx, id)
	logger.Warn(ctx, "aborting problem session", zap.String("reason", reason))
	c.finalize(ctx, "aborted")
	return nil
}

// finalize recovers the fault, disarms the critical section and tears the application down
// exactly once, then moves the session to done. The caller must hold the pending flag.
func (c *Conductor) finalize(ctx context.Context, outcome string) {
	c.mu.Lock()
	p := c.problem
	section := c.section
	cleaned := c.cleanedUp
	c.cleanedUp = true
	c.mu.Unlock()

	if p != nil && p.FaultInjected() {
		p.RecoverFault(ctx)
	}
	section.Exit()
	if p != nil && !cleaned && p.App() != nil {
		if err := p.App().Cleanup(ctx); err != nil {
			logger.Error(ctx, "application teardown failed", zap.Error(err))
		} else {
			logger.Info(ctx, "application torn down", zap.String("namespace", p.Namespace()))
		}
	}

	c.mu.Lock()
	prev := c.stage
	c.stage = model.StageDone
	c.problem = nil
	c.section = nil
	c.release()
	c.mu.Unlock()

	c.metrics.RecordTransition(prev.String(), model.StageDone.String())
	c.metrics.RecordFinished(outcome)
	logger.Info(ctx, "problem session finished", zap.String("outcome", outcome))
}
