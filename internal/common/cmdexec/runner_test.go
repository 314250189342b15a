package cmdexec_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"sregrade/internal/common/cmdexec"
	appErr "sregrade/pkg/errors"

	"github.com/google/go-cmp/cmp"
)

func TestExpandAndSplit(t *testing.T) {
	cmd := cmdexec.Expand(`kubectl -n {namespace} delete pod -l 'app={service}'`, map[string]string{
		"namespace": "hotel-reservation",
		"service":   "geo",
	})
	fields, err := cmdexec.Split(cmd)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	want := []string{"kubectl", "-n", "hotel-reservation", "delete", "pod", "-l", "app=geo"}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if _, err := cmdexec.Split("   "); !appErr.Is(err, appErr.InvalidParams) {
		t.Fatalf("expected empty command to be rejected, got %v", err)
	}
}

func TestRunCapturesOutput(t *testing.T) {
	r := cmdexec.NewRunner(cmdexec.Config{Timeout: 5 * time.Second})
	out, err := r.Run(context.Background(), "echo {word}", map[string]string{"word": "ready"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if strings.TrimSpace(out.Stdout) != "ready" || out.ExitCode != 0 {
		t.Fatalf("unexpected output %+v", out)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	r := cmdexec.NewRunner(cmdexec.Config{Timeout: 5 * time.Second})
	out, err := r.Run(context.Background(), `sh -c "echo broken >&2; exit 3"`, nil)
	if !appErr.Is(err, appErr.CommandFailed) {
		t.Fatalf("expected CommandFailed, got %v", err)
	}
	if out.ExitCode != 3 || !strings.Contains(err.Error(), "broken") {
		t.Fatalf("unexpected result %+v err=%v", out, err)
	}
}

func TestRunTimeout(t *testing.T) {
	r := cmdexec.NewRunner(cmdexec.Config{Timeout: 50 * time.Millisecond})
	_, err := r.Run(context.Background(), "sleep 5", nil)
	if !appErr.Is(err, appErr.Timeout) {
		t.Fatalf("expected Timeout, got %v", err)
	}
}

func TestRunMissingBinary(t *testing.T) {
	r := cmdexec.NewRunner(cmdexec.Config{})
	_, err := r.Run(context.Background(), "definitely-not-a-real-binary-sregrade", nil)
	if !appErr.Is(err, appErr.CommandFailed) {
		t.Fatalf("expected CommandFailed, got %v", err)
	}
}
