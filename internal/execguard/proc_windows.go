//go:build windows

package execguard

import "os/exec"

func setPlatformAttrs(cmd *exec.Cmd) {}

// terminate has no graceful signal on Windows; fall through to kill.
func terminate(cmd *exec.Cmd) {
	kill(cmd)
}

func kill(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	cmd.Process.Kill()
}

func signalDeath(exitErr *exec.ExitError) (string, bool) {
	return "", false
}
