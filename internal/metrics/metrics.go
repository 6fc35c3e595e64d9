package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loykin/fpsmon/internal/event"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	captureFPS = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fpsmon",
			Subsystem: "capture",
			Name:      "fps",
			Help:      "Average FPS of the most recent window.",
		}, []string{"process"},
	)
	captureFPS1Low = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fpsmon",
			Subsystem: "capture",
			Name:      "fps_1_low",
			Help:      "1% low FPS of the most recent window.",
		}, []string{"process"},
	)
	captureFPS01Low = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fpsmon",
			Subsystem: "capture",
			Name:      "fps_01_low",
			Help:      "0.1% low FPS of the most recent window.",
		}, []string{"process"},
	)
	captureFrameTime = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fpsmon",
			Subsystem: "capture",
			Name:      "frametime_ms",
			Help:      "Mean frame time of the most recent window in milliseconds.",
		}, []string{"process"},
	)
	sessionActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fpsmon",
			Subsystem: "session",
			Name:      "active",
			Help:      "1 while a capture session is running.",
		},
	)

	sessionStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fpsmon",
			Subsystem: "session",
			Name:      "starts_total",
			Help:      "Number of capture sessions that reached running.",
		}, []string{"process"},
	)
	sessionErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fpsmon",
			Subsystem: "session",
			Name:      "errors_total",
			Help:      "Number of fps-error events.",
		},
	)
	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fpsmon",
			Name:      "frames_total",
			Help:      "Accepted frame records.",
		}, []string{"process"},
	)
	recordsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fpsmon",
			Name:      "records_rejected_total",
			Help:      "Data lines discarded by the CSV parser.",
		},
	)
	sessionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fpsmon",
			Subsystem: "session",
			Name:      "duration_seconds",
			Help:      "Duration of completed capture sessions.",
			Buckets:   []float64{10, 30, 60, 300, 900, 1800, 3600, 7200},
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{
		captureFPS, captureFPS1Low, captureFPS01Low, captureFrameTime, sessionActive,
		sessionStarts, sessionErrors, framesTotal, recordsRejected, sessionDuration,
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncFrames(process string) {
	if regOK.Load() {
		framesTotal.WithLabelValues(process).Inc()
	}
}

func IncRejected() {
	if regOK.Load() {
		recordsRejected.Inc()
	}
}

func IncError() {
	if regOK.Load() {
		sessionErrors.Inc()
	}
}

func ObserveSessionDuration(seconds float64) {
	if regOK.Load() {
		sessionDuration.Observe(seconds)
	}
}

func SetActive(process string, active bool) {
	if !regOK.Load() {
		return
	}
	if active {
		sessionActive.Set(1)
		sessionStarts.WithLabelValues(process).Inc()
		return
	}
	sessionActive.Set(0)
}

// Emitter mirrors monitor events into the collectors.
type Emitter struct{}

func (Emitter) Emit(e event.Event) {
	if !regOK.Load() {
		return
	}
	switch e.Type {
	case event.Started:
		SetActive(e.Process, true)
	case event.Stopped:
		SetActive(e.Process, false)
	case event.Error:
		IncError()
	case event.Update:
		s := e.Snapshot
		captureFPS.WithLabelValues(s.ProcessName).Set(s.FPS)
		captureFPS1Low.WithLabelValues(s.ProcessName).Set(s.FPS1Low)
		captureFPS01Low.WithLabelValues(s.ProcessName).Set(s.FPS01Low)
		captureFrameTime.WithLabelValues(s.ProcessName).Set(s.FrameTimeMs)
	case event.SessionComplete:
		ObserveSessionDuration(e.Session.DurationSecs)
	}
}
