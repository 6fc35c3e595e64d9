// Package monitor runs the streaming ingest loop for one capture session at
// a time and exposes the start/stop/status control surface.
package monitor

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/loykin/fpsmon/internal/capture"
	"github.com/loykin/fpsmon/internal/event"
	"github.com/loykin/fpsmon/internal/fps"
	"github.com/loykin/fpsmon/internal/frame"
	"github.com/loykin/fpsmon/internal/metrics"
	"github.com/loykin/fpsmon/internal/session"
)

// DefaultStatusFrames is the number of recent samples behind Status().CurrentFPS.
const DefaultStatusFrames = 60

// headerLogColumns caps how many header columns are logged.
const headerLogColumns = 10

// ErrInvalidProcessName is returned by Start for an empty process name.
var ErrInvalidProcessName = errors.New("process name must not be empty")

// Locator resolves the capture binary path.
type Locator interface {
	Resolve() (string, error)
}

// Handle is a running capture process.
type Handle interface {
	Stdout() io.Reader
	Kill()
	Wait() error
}

// Launcher spawns the capture binary for a process name.
type Launcher interface {
	Launch(path, processName string) (Handle, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(path, processName string) (Handle, error)

func (f LauncherFunc) Launch(path, processName string) (Handle, error) { return f(path, processName) }

// FromCapture adapts a capture.Launcher.
func FromCapture(l *capture.Launcher) Launcher {
	return LauncherFunc(func(path, processName string) (Handle, error) {
		h, err := l.Launch(path, processName)
		if err != nil {
			return nil, err
		}
		return h, nil
	})
}

// Options configures a Monitor. Zero values select the PresentMon defaults.
type Options struct {
	Locator       Locator
	Launcher      Launcher
	Emitter       event.Emitter
	Logger        *slog.Logger
	FlushInterval time.Duration
	StatusFrames  int
	Now           func() time.Time
}

// Monitor owns the session state and the ingest goroutine.
type Monitor struct {
	locator       Locator
	launcher      Launcher
	emit          event.Emitter
	logger        *slog.Logger
	flushInterval time.Duration
	statusFrames  int
	now           func() time.Time

	state *session.State

	mu   sync.Mutex
	done chan struct{}
}

// New returns an idle Monitor.
func New(opts Options) *Monitor {
	m := &Monitor{
		locator:       opts.Locator,
		launcher:      opts.Launcher,
		emit:          opts.Emitter,
		logger:        opts.Logger,
		flushInterval: opts.FlushInterval,
		statusFrames:  opts.StatusFrames,
		now:           opts.Now,
		state:         session.New(),
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.locator == nil {
		m.locator = capture.NewLocator("", "", "")
	}
	if m.launcher == nil {
		m.launcher = FromCapture(&capture.Launcher{Logger: m.logger})
	}
	if m.emit == nil {
		m.emit = event.Nop
	}
	if m.flushInterval <= 0 {
		m.flushInterval = fps.DefaultInterval
	}
	if m.statusFrames <= 0 {
		m.statusFrames = DefaultStatusFrames
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Start begins monitoring processName in the background. It fails with a
// *session.AlreadyRunningError while another session is starting, running
// or draining. Resolution and spawn failures are reported as fps-error
// events, not returned.
func (m *Monitor) Start(processName string) error {
	name := strings.TrimSpace(processName)
	if name == "" {
		return ErrInvalidProcessName
	}
	ticket, err := m.state.Reserve(name)
	if err != nil {
		return err
	}
	m.logger.Info("start requested", "process_name", name)

	done := make(chan struct{})
	m.mu.Lock()
	m.done = done
	m.mu.Unlock()

	go m.run(ticket, name, done)
	return nil
}

// Stop asks the running session to end and terminates the capture process.
// It does not wait for the drain and is a no-op when idle.
func (m *Monitor) Stop() error {
	if m.state.Stop() {
		m.logger.Info("stop requested", "process_name", m.state.Target())
	}
	return nil
}

// Status reports the current session state.
func (m *Monitor) Status() session.Status {
	return m.state.Status(m.statusFrames)
}

// Phase returns the lifecycle stage of the session.
func (m *Monitor) Phase() session.Phase { return m.state.Phase() }

// Wait blocks until the most recently started ingest goroutine has finished,
// or ctx is done. It returns immediately if nothing was ever started.
func (m *Monitor) Wait(ctx context.Context) error {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Monitor) run(ticket session.Ticket, name string, done chan struct{}) {
	defer close(done)

	path, err := m.locator.Resolve()
	if err != nil {
		m.fail(ticket, err)
		return
	}
	m.logger.Info("capture binary resolved", "path", path)

	h, err := m.launcher.Launch(path, name)
	if err != nil {
		m.fail(ticket, err)
		return
	}

	start := m.now()
	if err := m.state.Activate(ticket, h, start); err != nil {
		m.logger.Info("start cancelled", "process_name", name)
		h.Kill()
		_ = h.Wait()
		return
	}
	m.emit.Emit(event.StartedEvent(name))

	m.ingest(h.Stdout(), name, start)

	res := m.state.Finish(ticket, m.now())
	_ = h.Wait()
	if summary, ok := fps.Summarize(name, res.History, res.Duration); ok {
		m.logger.Info("session complete", "process_name", name, "avg_fps", summary.AvgFPS,
			"fps_1_low", summary.FPS1Low, "duration_secs", summary.DurationSecs)
		m.emit.Emit(event.SessionEvent(summary))
	}
	m.emit.Emit(event.StoppedEvent(name))
	m.logger.Info("monitoring stopped", "process_name", name)
	m.state.Close(ticket)
}

// fail ends a start attempt. A revoked attempt only logs, so its error
// cannot land inside a newer session's event sequence.
func (m *Monitor) fail(ticket session.Ticket, err error) {
	if !m.state.Release(ticket) {
		m.logger.Info("start cancelled", "error", err)
		return
	}
	m.logger.Error("start failed", "error", err)
	m.emit.Emit(event.ErrorEvent(err.Error()))
}

// ingest reads r line by line until EOF or until the session is no longer
// active. The first non-empty line is the header.
func (m *Monitor) ingest(r io.Reader, name string, start time.Time) {
	br := bufio.NewReader(r)
	win := fps.NewWindow(m.flushInterval, start)
	var (
		header frame.Header
		seen   bool
	)
	for {
		line, err := br.ReadString('\n')
		if !m.state.Active() {
			return
		}
		if text := strings.TrimSpace(line); text != "" {
			if !seen {
				header = frame.ParseHeader(text)
				seen = true
				cols := header.Columns()
				if len(cols) > headerLogColumns {
					cols = cols[:headerLogColumns]
				}
				m.logger.Info("capture header", "columns", cols)
			} else {
				m.handle(header, text, name, win)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				m.logger.Debug("capture stream closed", "error", err)
			}
			return
		}
	}
}

func (m *Monitor) handle(header frame.Header, line, name string, win *fps.Window) {
	rec, ok := header.Parse(line)
	if !ok {
		metrics.IncRejected()
		return
	}
	m.state.Record(rec.FrameTimeMs)
	metrics.IncFrames(name)

	now := m.now()
	if !win.Due(now) {
		return
	}
	window := m.state.TakeWindow()
	if snap, ok := fps.NewSnapshot(window, rec.CPUBusyMs, rec.GPUBusyMs, name, m.state.Elapsed(now)); ok {
		m.emit.Emit(event.UpdateEvent(snap))
	}
	win.Reset(now)
}
