//go:build !unix

package exec

import "os/exec"

func configureProcessGroup(cmd *exec.Cmd) {}

func killProcess(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

// Windows has no SIGINT for arbitrary processes.
func interruptProcess(cmd *exec.Cmd) error {
	return killProcess(cmd)
}
