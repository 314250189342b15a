//go:build unix

package cmdexec_test

import (
	"context"
	"testing"
	"time"

	"sregrade/internal/common/cmdexec"
	appErr "sregrade/pkg/errors"
)

func TestTimeoutStopsChildProcesses(t *testing.T) {
	r := cmdexec.NewRunner(cmdexec.Config{Timeout: 100 * time.Millisecond})
	start := time.Now()
	_, err := r.Run(context.Background(), `sh -c "sleep 30 & wait"`, nil)
	if !appErr.Is(err, appErr.Timeout) {
		t.Fatalf("expected Timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("child process outlived the timeout: run took %v", elapsed)
	}
}
