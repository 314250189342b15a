// Package cmdexec runs configured shell-style command lines without a shell.
package cmdexec

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"os/exec"
	"strings"
	"time"

	appErr "sregrade/pkg/errors"
	"sregrade/pkg/utils/logger"

	"github.com/google/shlex"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 5 * time.Minute
	maxErrTail     = 512
	waitDelay      = 5 * time.Second
)

// Output captures one finished command.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Config holds runner settings.
type Config struct {
	Timeout time.Duration
	Dir     string
	// Env is appended to the current process environment.
	Env []string
}

// Runner executes command templates.
type Runner struct {
	timeout time.Duration
	dir     string
	env     []string
}

// NewRunner creates a runner.
func NewRunner(cfg Config) *Runner {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Runner{timeout: timeout, dir: cfg.Dir, env: append([]string(nil), cfg.Env...)}
}

// Expand replaces {name} placeholders in template with vars.
func Expand(template string, vars map[string]string) string {
	expanded := template
	for name, value := range vars {
		expanded = strings.ReplaceAll(expanded, "{"+name+"}", value)
	}
	return expanded
}

// Split tokenizes a command line with shell quoting rules.
func Split(command string) ([]string, error) {
	fields, err := shlex.Split(command)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InvalidParams, "parse command template failed")
	}
	if len(fields) == 0 {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("command is empty after expansion")
	}
	return fields, nil
}

// Run expands and executes template. A non-zero exit is a CommandFailed error; hitting the
// runner timeout is a Timeout error.
func (r *Runner) Run(ctx context.Context, template string, vars map[string]string) (Output, error) {
	fields, err := Split(Expand(template, vars))
	if err != nil {
		return Output{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	setProcessGroup(cmd)
	cmd.WaitDelay = waitDelay
	cmd.Dir = r.dir
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	out := Output{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}

	logger.Debug(ctx, "command finished",
		zap.Strings("argv", fields),
		zap.Int("exit_code", out.ExitCode),
		zap.Duration("duration", out.Duration),
	)

	if runErr == nil {
		return out, nil
	}
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return out, appErr.Wrapf(runErr, appErr.Timeout, "command %s timed out after %s", fields[0], r.timeout).
			WithDetail("argv", fields)
	}
	return out, appErr.Wrapf(runErr, appErr.CommandFailed, "command %s failed: %v: %s", fields[0], runErr, tail(out.Stderr)).
		WithDetail("argv", fields).
		WithDetail("exit_code", out.ExitCode)
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrTail {
		return s
	}
	return "..." + s[len(s)-maxErrTail:]
}
