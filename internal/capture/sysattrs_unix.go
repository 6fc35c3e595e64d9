//go:build !windows

package capture

import (
	"os"
	"os/exec"
	"syscall"
)

// configureSysProcAttr places the child in its own process group so Kill can
// take down anything it forked.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcess(p *os.Process) error {
	if err := syscall.Kill(-p.Pid, syscall.SIGKILL); err != nil {
		return p.Kill()
	}
	return nil
}
