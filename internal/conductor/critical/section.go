// Package critical brackets fault-mutating work with a recovery hook that also runs on exit.
//
// Only one section may be armed per Guard. The package-level functions use a process-wide
// Guard; tests create their own with NewGuard.
package critical

import (
	"context"
	stderrors "errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"sregrade/pkg/errors"
	"sregrade/pkg/utils/logger"

	"go.uber.org/zap"
)

// ErrAlreadyArmed is returned when a section is entered while another is armed.
var ErrAlreadyArmed = stderrors.New("critical section already armed")

// Guard owns the exit hook table.
type Guard struct {
	mu    sync.Mutex
	armed *Section
	exit  func(code int)
}

// Option configures a Guard.
type Option func(*Guard)

// WithExit replaces os.Exit, which Watch calls after running the hook.
func WithExit(exit func(code int)) Option {
	return func(g *Guard) { g.exit = exit }
}

// NewGuard creates a guard with no armed section.
func NewGuard(opts ...Option) *Guard {
	g := &Guard{exit: os.Exit}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Section is an armed recovery hook.
type Section struct {
	guard *Guard
	name  string
	hook  func()
	once  sync.Once
}

// Enter arms a section whose hook runs if the process terminates before Exit.
func (g *Guard) Enter(name string, hook func()) (*Section, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.armed != nil {
		return nil, errors.Wrapf(ErrAlreadyArmed, errors.SectionAlreadyArmed,
			"cannot enter %q: section %q is already armed", name, g.armed.name).WithDetail("armed", g.armed.name)
	}
	s := &Section{guard: g, name: name, hook: hook}
	g.armed = s
	logger.Debug(context.Background(), "critical section armed", zap.String("section", name))
	return s, nil
}

// Armed returns the name of the armed section, if any.
func (g *Guard) Armed() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.armed == nil {
		return "", false
	}
	return g.armed.name, true
}

// RunHooks fires the armed hook, at most once, and disarms it. main defers this for normal termination.
func (g *Guard) RunHooks() {
	g.mu.Lock()
	s := g.armed
	g.armed = nil
	g.mu.Unlock()
	if s != nil {
		s.fire()
	}
}

// Watch runs the armed hook on SIGINT or SIGTERM and then exits with 128+signo.
// It stops listening when ctx is done.
func (g *Guard) Watch(ctx context.Context) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(ch)
		g.watch(ctx, ch)
	}()
}

func (g *Guard) watch(ctx context.Context, ch <-chan os.Signal) {
	select {
	case <-ctx.Done():
		return
	case sig := <-ch:
		logger.Warn(ctx, "received signal, running critical section hook", zap.String("signal", sig.String()))
		g.RunHooks()
		code := 1
		if s, ok := sig.(syscall.Signal); ok {
			code = 128 + int(s)
		}
		_ = logger.Sync()
		g.exit(code)
	}
}

// Name returns the section name.
func (s *Section) Name() string {
	return s.name
}

// Exit disarms the section without running its hook. Calling it again is a no-op.
func (s *Section) Exit() {
	if s == nil {
		return
	}
	g := s.guard
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.armed == s {
		g.armed = nil
		logger.Debug(context.Background(), "critical section disarmed", zap.String("section", s.name))
	}
}

func (s *Section) fire() {
	s.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(context.Background(), "critical section hook panicked",
					zap.String("section", s.name), zap.Any("panic", r))
			}
		}()
		logger.Info(context.Background(), "running critical section hook", zap.String("section", s.name))
		if s.hook != nil {
			s.hook()
		}
	})
}

var defaultGuard = NewGuard()

// Default returns the process-wide guard.
func Default() *Guard {
	return defaultGuard
}

// Enter arms a section on the process-wide guard.
func Enter(name string, hook func()) (*Section, error) {
	return defaultGuard.Enter(name, hook)
}

// RunHooks fires the process-wide guard's armed hook.
func RunHooks() {
	defaultGuard.RunHooks()
}

// Watch installs signal handling for the process-wide guard.
func Watch(ctx context.Context) {
	defaultGuard.Watch(ctx)
}
