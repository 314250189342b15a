// Package problem binds an application, a fault and the oracles grading it.
package problem

import (
	"context"
	"fmt"
	"sync"

	"sregrade/internal/conductor/oracle"
	"sregrade/pkg/errors"
	"sregrade/pkg/utils/logger"

	"go.uber.org/zap"
)

// Application is the externally owned system under test.
type Application interface {
	Deploy(ctx context.Context) error
	StartWorkload(ctx context.Context) error
	Cleanup(ctx context.Context) error
	Namespace() string
	AppName() string
	Description() string
}

// FaultInjector creates and removes the incident for one problem.
type FaultInjector interface {
	Inject(ctx context.Context) error
	Recover(ctx context.Context) error
}

// Problem is one graded scenario. Oracle slots left nil skip the matching stage.
type Problem struct {
	app       Application
	injector  FaultInjector
	namespace string

	detection    oracle.Oracle
	localization oracle.Oracle
	mitigation   oracle.Oracle

	mu       sync.Mutex
	injected bool
}

// Option configures a Problem.
type Option func(*Problem)

// WithDetection sets the detection oracle.
func WithDetection(o oracle.Oracle) Option {
	return func(p *Problem) { p.detection = o }
}

// WithLocalization sets the localization oracle.
func WithLocalization(o oracle.Oracle) Option {
	return func(p *Problem) { p.localization = o }
}

// WithMitigation sets the mitigation oracle.
func WithMitigation(o oracle.Oracle) Option {
	return func(p *Problem) { p.mitigation = o }
}

// WithNamespace overrides the namespace reported by the application.
func WithNamespace(ns string) Option {
	return func(p *Problem) { p.namespace = ns }
}

// New creates a problem. It never deploys the application or injects the fault.
func New(app Application, injector FaultInjector, opts ...Option) *Problem {
	p := &Problem{app: app, injector: injector}
	if app != nil {
		p.namespace = app.Namespace()
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Problem) App() Application {
	return p.app
}

func (p *Problem) Namespace() string {
	return p.namespace
}

func (p *Problem) Detection() oracle.Oracle    { return p.detection }
func (p *Problem) Localization() oracle.Oracle { return p.localization }
func (p *Problem) Mitigation() oracle.Oracle   { return p.mitigation }

func (p *Problem) HasDetection() bool    { return p.detection != nil }
func (p *Problem) HasLocalization() bool { return p.localization != nil }
func (p *Problem) HasMitigation() bool   { return p.mitigation != nil }

// FaultInjected reports whether an injection was started and not yet recovered.
func (p *Problem) FaultInjected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.injected
}

// InjectFault creates the incident. Injecting twice without RecoverFault is an error.
// The flag is set before the injector runs so a partial injection is still recovered.
func (p *Problem) InjectFault(ctx context.Context) error {
	p.mu.Lock()
	if p.injected {
		p.mu.Unlock()
		return errors.New(errors.FaultAlreadyInjected).WithDetail("namespace", p.namespace)
	}
	p.injected = true
	p.mu.Unlock()

	if p.injector == nil {
		return nil
	}
	if err := p.injector.Inject(ctx); err != nil {
		return errors.Wrapf(err, errors.FaultInjectionError, "inject fault in %s: %v", p.namespace, err)
	}
	logger.Info(ctx, "fault injected", zap.String("namespace", p.namespace))
	return nil
}

// RecoverFault removes the incident on a best-effort basis. It never fails and is safe to call
// when InjectFault never ran or failed halfway.
func (p *Problem) RecoverFault(ctx context.Context) {
	p.mu.Lock()
	was := p.injected
	p.injected = false
	p.mu.Unlock()

	if p.injector == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "fault recovery panicked", zap.String("namespace", p.namespace), zap.Any("panic", r))
		}
	}()
	if err := p.injector.Recover(ctx); err != nil {
		logger.Warn(ctx, "fault recovery failed", zap.String("namespace", p.namespace), zap.Bool("was_injected", was), zap.Error(err))
		return
	}
	logger.Info(ctx, "fault recovered", zap.String("namespace", p.namespace), zap.Bool("was_injected", was))
}

func (p *Problem) String() string {
	name := ""
	if p.app != nil {
		name = p.app.AppName()
	}
	return fmt.Sprintf("%s/%s", name, p.namespace)
}
