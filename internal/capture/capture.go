// Package capture launches and supervises the external frame-capture tool.
package capture

import (
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/loykin/fpsmon/internal/logger"
)

// Args returns the fixed PresentMon arguments for a target process: CSV on
// stdout, take over any existing ETW session, exit when the target exits.
func Args(processName string) []string {
	return []string{
		"--output_stdout",
		"--stop_existing_session",
		"--terminate_on_proc_exit",
		"--process_name",
		processName,
	}
}

// Launcher starts capture processes.
type Launcher struct {
	// Log optionally retains the tool's stderr in a rotating file. When it
	// declares no stderr destination the stream is discarded.
	Log    logger.FileConfig
	Logger *slog.Logger
	// ArgsFunc overrides Args; used by tests and alternative tools.
	ArgsFunc func(processName string) []string
}

// Launch starts path for processName with stdout and stderr piped.
func (l *Launcher) Launch(path, processName string) (*Handle, error) {
	lg := l.Logger
	if lg == nil {
		lg = slog.Default()
	}
	argsFn := l.ArgsFunc
	if argsFn == nil {
		argsFn = Args
	}

	// #nosec G204 -- path comes from Locator, args are fixed
	cmd := exec.Command(path, argsFn(processName)...)
	configureSysProcAttr(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	lg.Info("launching capture", "path", path, "process_name", processName)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w; try running with administrator privileges", path, err)
	}

	h := &Handle{cmd: cmd, stdout: stdout, logger: lg, errDone: make(chan struct{})}

	var sink io.WriteCloser
	if _, errW, _ := l.Log.ProcessWriters("capture"); errW != nil {
		sink = errW
	}
	go h.drainStderr(stderr, sink)
	return h, nil
}

// Handle owns a running capture process.
type Handle struct {
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	logger  *slog.Logger
	errDone chan struct{}

	waitOnce sync.Once
	waitErr  error
}

// Stdout is the capture tool's output stream.
func (h *Handle) Stdout() io.Reader { return h.stdout }

// PID returns the capture process id.
func (h *Handle) PID() int {
	if h.cmd == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Kill forcibly terminates the capture process. Errors (including "already
// exited") are swallowed.
func (h *Handle) Kill() {
	if h == nil || h.cmd == nil || h.cmd.Process == nil {
		return
	}
	if err := killProcess(h.cmd.Process); err != nil {
		h.logger.Debug("capture kill", "pid", h.cmd.Process.Pid, "error", err)
	}
}

// Wait reaps the process once stdout has been fully consumed. Safe to call
// more than once.
func (h *Handle) Wait() error {
	h.waitOnce.Do(func() {
		<-h.errDone
		h.waitErr = h.cmd.Wait()
	})
	return h.waitErr
}

// drainStderr keeps the stderr pipe from filling; the content is only kept
// when a rotating sink is configured.
func (h *Handle) drainStderr(r io.Reader, sink io.WriteCloser) {
	defer close(h.errDone)
	var w io.Writer = io.Discard
	if sink != nil {
		w = sink
		defer func() { _ = sink.Close() }()
	}
	_, _ = io.Copy(w, r)
}
