//go:build windows

package capture

import (
	"os"
	"os/exec"
	"syscall"
)

// CREATE_NO_WINDOW keeps the console tool from opening a visible window.
const CREATE_NO_WINDOW = 0x08000000

func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: CREATE_NO_WINDOW,
		HideWindow:    true,
	}
}

func killProcess(p *os.Process) error { return p.Kill() }
