// Package session holds the shared state of the single monitoring session.
//
// Every method takes the lock for the duration of one field read or update
// and never across I/O, so status queries are not blocked behind the
// capture stream.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/loykin/fpsmon/internal/fps"
)

// Phase is the lifecycle stage of the session.
type Phase int

const (
	Idle Phase = iota
	Starting
	Running
	Draining
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Draining:
		return "draining"
	}
	return "unknown"
}

var (
	// ErrAlreadyRunning matches any *AlreadyRunningError via errors.Is.
	ErrAlreadyRunning = errors.New("already monitoring")
	// ErrCancelled is returned by Activate when the ticket was revoked by Stop.
	ErrCancelled = errors.New("monitoring cancelled before capture started")
)

// AlreadyRunningError reports a start request that collided with an
// existing session.
type AlreadyRunningError struct {
	Name string
}

func (e *AlreadyRunningError) Error() string { return "already monitoring " + e.Name }

func (e *AlreadyRunningError) Is(target error) bool { return target == ErrAlreadyRunning }

// Terminator is the capture handle owned by a session.
type Terminator interface {
	Kill()
}

// Ticket identifies one start attempt.
type Ticket uint64

// State is the lock-guarded monitoring session.
type State struct {
	mu      sync.Mutex
	phase   Phase
	active  bool
	ticket  Ticket
	target  string
	window  []float64
	history []float64
	started time.Time
	handle  Terminator
}

// New returns an idle session.
func New() *State { return &State{} }

// Reserve claims the session for a start attempt on name.
func (s *State) Reserve(name string) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != Idle {
		return 0, &AlreadyRunningError{Name: s.target}
	}
	s.ticket++
	s.phase = Starting
	s.target = name
	return s.ticket, nil
}

// Release returns a reservation that never became active to Idle. It reports
// false when the ticket was already revoked by Stop or superseded.
func (s *State) Release(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticket != t || s.phase != Starting {
		return false
	}
	s.phase = Idle
	return true
}

// Activate makes the reserved session active: window and history are reset,
// the start time recorded and h stored as the owned capture handle.
func (s *State) Activate(t Ticket, h Terminator, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticket != t || s.phase != Starting {
		return ErrCancelled
	}
	s.phase = Running
	s.active = true
	s.window = s.window[:0]
	s.history = nil
	s.started = now
	s.handle = h
	return nil
}

// Active reports whether a capture is running and has not been asked to stop.
func (s *State) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Phase returns the current lifecycle stage.
func (s *State) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Target returns the monitored process name.
func (s *State) Target() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Record appends one frame time to the window and the history.
func (s *State) Record(frameTimeMs float64) {
	s.mu.Lock()
	s.window = append(s.window, frameTimeMs)
	s.history = append(s.history, frameTimeMs)
	s.mu.Unlock()
}

// TakeWindow returns the current window and clears it.
func (s *State) TakeWindow() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.window))
	copy(out, s.window)
	s.window = s.window[:0]
	return out
}

// Elapsed returns the time since the session started, or 0 before start.
func (s *State) Elapsed(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started.IsZero() {
		return 0
	}
	return now.Sub(s.started)
}

// Stop clears the active flag and terminates the owned handle. A pending
// reservation is revoked. It reports whether anything was stopped.
func (s *State) Stop() bool {
	s.mu.Lock()
	switch s.phase {
	case Starting:
		s.phase = Idle
		s.mu.Unlock()
		return true
	case Running:
		if !s.active {
			s.mu.Unlock()
			return false
		}
		s.active = false
		h := s.handle
		s.handle = nil
		s.mu.Unlock()
		if h != nil {
			h.Kill()
		}
		return true
	}
	s.mu.Unlock()
	return false
}

// Result is the data needed to summarise a finished session.
type Result struct {
	Target   string
	History  []float64
	Duration time.Duration
}

// Finish moves a running session to Draining, releases the capture handle
// (killing it if still owned) and returns a copy of the history. The history
// itself is kept until the next Activate.
func (s *State) Finish(t Ticket, now time.Time) Result {
	s.mu.Lock()
	if s.ticket != t {
		s.mu.Unlock()
		return Result{}
	}
	s.active = false
	s.phase = Draining
	h := s.handle
	s.handle = nil
	res := Result{Target: s.target, Duration: now.Sub(s.started)}
	res.History = make([]float64, len(s.history))
	copy(res.History, s.history)
	s.mu.Unlock()

	if h != nil {
		h.Kill()
	}
	return res
}

// Close ends the drain; a new Reserve may follow.
func (s *State) Close(t Ticket) {
	s.mu.Lock()
	if s.ticket == t && s.phase == Draining {
		s.phase = Idle
	}
	s.mu.Unlock()
}

// Status is the externally visible state of the session.
type Status struct {
	Running     bool     `json:"running"`
	ProcessName *string  `json:"process_name"`
	CurrentFPS  *float64 `json:"current_fps"`
}

// Status reports whether a capture is active and the mean FPS over the most
// recent frames samples of the history. CurrentFPS is set whenever history
// is non-empty; ProcessName only while running.
func (s *State) Status(frames int) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Running: s.active}
	if s.active {
		name := s.target
		st.ProcessName = &name
	}
	if n := len(s.history); n > 0 {
		if frames <= 0 || frames > n {
			frames = n
		}
		var sum float64
		for _, ft := range s.history[n-frames:] {
			sum += ft
		}
		v := fps.Round1(fps.FromFrameTime(sum / float64(frames)))
		st.CurrentFPS = &v
	}
	return st
}

// String implements fmt.Stringer for logging.
func (s Status) String() string {
	name, cur := "-", "-"
	if s.ProcessName != nil {
		name = *s.ProcessName
	}
	if s.CurrentFPS != nil {
		cur = fmt.Sprintf("%.1f", *s.CurrentFPS)
	}
	return fmt.Sprintf("running=%t process=%s fps=%s", s.Running, name, cur)
}
