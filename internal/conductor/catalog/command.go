package catalog

import (
	"context"
	"fmt"
	"strings"

	"sregrade/internal/common/cmdexec"
	"sregrade/internal/conductor/oracle"
	appErr "sregrade/pkg/errors"
)

// commandApp deploys and tears down an application through configured command lines.
type commandApp struct {
	spec   AppSpec
	runner *cmdexec.Runner
	vars   map[string]string
}

func (a *commandApp) Deploy(ctx context.Context) error {
	_, err := a.runner.Run(ctx, a.spec.Deploy, a.vars)
	return err
}

func (a *commandApp) StartWorkload(ctx context.Context) error {
	if a.spec.Workload == "" {
		return nil
	}
	_, err := a.runner.Run(ctx, a.spec.Workload, a.vars)
	return err
}

func (a *commandApp) Cleanup(ctx context.Context) error {
	_, err := a.runner.Run(ctx, a.spec.Cleanup, a.vars)
	return err
}

func (a *commandApp) Namespace() string   { return a.spec.Namespace }
func (a *commandApp) AppName() string     { return a.spec.Name }
func (a *commandApp) Description() string { return a.spec.Description }

type commandInjector struct {
	spec   FaultSpec
	runner *cmdexec.Runner
	vars   map[string]string
}

func (f *commandInjector) Inject(ctx context.Context) error {
	_, err := f.runner.Run(ctx, f.spec.Inject, f.vars)
	return err
}

func (f *commandInjector) Recover(ctx context.Context) error {
	_, err := f.runner.Run(ctx, f.spec.Recover, f.vars)
	return err
}

// commandCheck grades live state: exit 0 is healthy, any other exit is unhealthy.
// Only a command that cannot run at all is an oracle error.
func commandCheck(check CheckSpec, runner *cmdexec.Runner, vars map[string]string) oracle.Oracle {
	return oracle.NewStateOracle(check.Name, func(ctx context.Context) (bool, string, error) {
		out, err := runner.Run(ctx, check.Command, vars)
		switch {
		case err == nil:
			return true, fmt.Sprintf("%s passed", check.Name), nil
		case appErr.Is(err, appErr.CommandFailed) && out.ExitCode > 0:
			msg := strings.TrimSpace(out.Stderr)
			if msg == "" {
				msg = strings.TrimSpace(out.Stdout)
			}
			return false, fmt.Sprintf("%s failed (exit %d): %s", check.Name, out.ExitCode, msg), nil
		default:
			return false, "", err
		}
	})
}
