// Package event defines what the monitor publishes and how it is delivered.
package event

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/loykin/fpsmon/internal/fps"
)

// Type names the event, matching the wire names consumed by front ends.
type Type string

const (
	Started         Type = "fps-started"
	Update          Type = "fps-update"
	SessionComplete Type = "fps-session-complete"
	Stopped         Type = "fps-stopped"
	Error           Type = "fps-error"
)

// Event is a tagged union: exactly one payload field is meaningful for a
// given Type. Started/Stopped use Process, Update uses Snapshot,
// SessionComplete uses Session and Error uses Message.
type Event struct {
	Type     Type
	Process  string
	Snapshot *fps.Snapshot
	Session  *fps.Session
	Message  string
}

// Payload returns the value carried for e.Type.
func (e Event) Payload() any {
	switch e.Type {
	case Update:
		return e.Snapshot
	case SessionComplete:
		return e.Session
	case Error:
		return e.Message
	default:
		return e.Process
	}
}

// MarshalJSON encodes the event as {"event": <type>, "payload": <payload>}.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Event   Type `json:"event"`
		Payload any  `json:"payload"`
	}{e.Type, e.Payload()})
}

func StartedEvent(process string) Event { return Event{Type: Started, Process: process} }
func StoppedEvent(process string) Event { return Event{Type: Stopped, Process: process} }
func ErrorEvent(msg string) Event       { return Event{Type: Error, Message: msg} }
func UpdateEvent(s fps.Snapshot) Event  { return Event{Type: Update, Snapshot: &s} }
func SessionEvent(s fps.Session) Event  { return Event{Type: SessionComplete, Session: &s} }

// Emitter receives events. Emit is called from the ingest goroutine only and
// must not block for long.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(e Event) { f(e) }

// Nop discards events.
var Nop Emitter = EmitterFunc(func(Event) {})

// Multi fans an event out to every non-nil emitter in order.
func Multi(emitters ...Emitter) Emitter {
	out := make([]Emitter, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	return multi(out)
}

type multi []Emitter

func (m multi) Emit(e Event) {
	for _, em := range m {
		em.Emit(e)
	}
}

// LogSink logs every event. Errors are logged at error level.
type LogSink struct {
	Logger *slog.Logger
}

func (l LogSink) Emit(e Event) {
	lg := l.Logger
	if lg == nil {
		lg = slog.Default()
	}
	switch e.Type {
	case Update:
		s := e.Snapshot
		lg.Info(string(e.Type), "process", s.ProcessName, "fps", s.FPS, "fps_1_low", s.FPS1Low,
			"fps_01_low", s.FPS01Low, "frametime_ms", s.FrameTimeMs, "cpu_busy_ms", s.CPUBusyMs,
			"gpu_busy_ms", s.GPUBusyMs, "elapsed_secs", s.ElapsedSecs)
	case SessionComplete:
		s := e.Session
		lg.Info(string(e.Type), "process", s.ProcessName, "avg_fps", s.AvgFPS, "fps_1_low", s.FPS1Low,
			"fps_01_low", s.FPS01Low, "max_fps", s.MaxFPS, "min_fps", s.MinFPS,
			"total_frames", s.TotalFrames, "duration_secs", s.DurationSecs)
	case Error:
		lg.Error(string(e.Type), "error", e.Message)
	default:
		lg.Info(string(e.Type), "process", e.Process)
	}
}

// Recorder keeps every event in memory. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	notify chan struct{}
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{notify: make(chan struct{}, 1)} }

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Events returns a copy of the received events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the received event types in order.
func (r *Recorder) Types() []Type {
	evs := r.Events()
	out := make([]Type, len(evs))
	for i, e := range evs {
		out[i] = e.Type
	}
	return out
}

// Notify fires (coalesced) after each Emit.
func (r *Recorder) Notify() <-chan struct{} { return r.notify }
