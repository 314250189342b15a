//go:build !unix

package cmdexec

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}
