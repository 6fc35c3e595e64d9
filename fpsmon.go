package fpsmon

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/fpsmon/internal/capture"
	cfg "github.com/loykin/fpsmon/internal/config"
	"github.com/loykin/fpsmon/internal/event"
	"github.com/loykin/fpsmon/internal/fps"
	"github.com/loykin/fpsmon/internal/logger"
	"github.com/loykin/fpsmon/internal/metrics"
	"github.com/loykin/fpsmon/internal/monitor"
	iapi "github.com/loykin/fpsmon/internal/server"
	"github.com/loykin/fpsmon/internal/session"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Options = monitor.Options

type Status = session.Status

type Snapshot = fps.Snapshot

type Session = fps.Session

type Event = event.Event

type EventType = event.Type

type Emitter = event.Emitter

type EmitterFunc = event.EmitterFunc

type Config = cfg.Config

type Hub = iapi.Hub

const (
	EventStarted         = event.Started
	EventUpdate          = event.Update
	EventSessionComplete = event.SessionComplete
	EventStopped         = event.Stopped
	EventError           = event.Error
)

var (
	ErrAlreadyRunning     = session.ErrAlreadyRunning
	ErrBinaryNotFound     = capture.ErrBinaryNotFound
	ErrInvalidProcessName = monitor.ErrInvalidProcessName
)

// Monitor is a thin facade over internal/monitor.Monitor.
// It provides a stable public API for embedding.
type Monitor struct{ inner *monitor.Monitor }

func New(opts Options) *Monitor { return &Monitor{inner: monitor.New(opts)} }

// NewFromConfig builds a Monitor from loaded configuration. Events go to emit
// and to the Prometheus collectors.
func NewFromConfig(c Config, emit Emitter, lg *slog.Logger) *Monitor {
	return New(Options{
		Locator: c.Locator(),
		Launcher: monitor.FromCapture(&capture.Launcher{
			Log:    c.CaptureLog(),
			Logger: lg,
		}),
		Emitter:       event.Multi(emit, metrics.Emitter{}),
		Logger:        lg,
		FlushInterval: c.Monitor.FlushInterval,
		StatusFrames:  c.Monitor.StatusFrames,
	})
}

func (m *Monitor) Start(processName string) error { return m.inner.Start(processName) }
func (m *Monitor) Stop() error                    { return m.inner.Stop() }
func (m *Monitor) Status() Status                 { return m.inner.Status() }

// Wait blocks until the current session has emitted its final event or ctx is done.
func (m *Monitor) Wait(ctx context.Context) error { return m.inner.Wait(ctx) }

// Emitters

func MultiEmitter(emitters ...Emitter) Emitter { return event.Multi(emitters...) }
func LogEmitter(lg *slog.Logger) Emitter       { return event.LogSink{Logger: lg} }
func MetricsEmitter() Emitter                  { return metrics.Emitter{} }

func LoadConfig(path string) (Config, error) { return cfg.Load(path) }
func DefaultConfig() Config                  { return cfg.Default() }

// NewLogger builds the application logger described by c.Log, writing to w.
func NewLogger(c Config, w io.Writer) (*slog.Logger, io.Closer, error) {
	return logger.New(c.LoggerConfig(), w)
}

// NewHub returns a websocket event hub; pass it as an Emitter and to NewRouter.
func NewHub(lg *slog.Logger) *Hub { return iapi.NewHub(lg) }

// NewRouter returns the control API handler mounted at basePath. hub may be nil.
func NewRouter(m *Monitor, hub *Hub, basePath string) http.Handler {
	return iapi.NewRouter(m, hub, basePath).Handler()
}

// NewHTTPServer returns an unstarted server exposing the control API.
func NewHTTPServer(addr, basePath string, m *Monitor, hub *Hub) *http.Server {
	return iapi.NewServer(addr, iapi.NewRouter(m, hub, basePath))
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }
func MetricsHandler() http.Handler                  { return metrics.Handler() }

// NewMetricsServer returns an unstarted server exposing /metrics using the default registry.
func NewMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// ServeMetrics runs a metrics server on addr in the caller goroutine.
func ServeMetrics(addr string) error { return NewMetricsServer(addr).ListenAndServe() }
