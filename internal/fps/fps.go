// Package fps turns frame times into live snapshots and session summaries.
//
// All math runs at full precision; rounding happens only when a Snapshot or
// Session value is built for emission.
package fps

import (
	"math"
	"sort"
	"time"
)

// Percentiles used for the "1% low" and "0.1% low" figures.
const (
	Low1  = 1.0
	Low01 = 0.1
)

// Snapshot is the periodic live reading for one window.
type Snapshot struct {
	FPS         float64 `json:"fps"`
	FPS1Low     float64 `json:"fps_1_low"`
	FPS01Low    float64 `json:"fps_01_low"`
	FrameTimeMs float64 `json:"frametime_ms"`
	CPUBusyMs   float64 `json:"cpu_busy_ms"`
	GPUBusyMs   float64 `json:"gpu_busy_ms"`
	ProcessName string  `json:"process_name"`
	ElapsedSecs float64 `json:"elapsed_secs"`
}

// Session is the summary of a whole monitoring run.
type Session struct {
	ProcessName  string  `json:"process_name"`
	AvgFPS       float64 `json:"avg_fps"`
	FPS1Low      float64 `json:"fps_1_low"`
	FPS01Low     float64 `json:"fps_01_low"`
	MaxFPS       float64 `json:"max_fps"`
	MinFPS       float64 `json:"min_fps"`
	TotalFrames  uint64  `json:"total_frames"`
	DurationSecs float64 `json:"duration_secs"`
}

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// PercentileLow averages the worst (largest) percentile% of frame times and
// converts the result to FPS. At least one sample is always selected. It
// returns 0 for empty input or a non-positive average.
func PercentileLow(frameTimes []float64, percentile float64) float64 {
	n := len(frameTimes)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, frameTimes)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	count := int(math.Ceil(percentile / 100 * float64(n)))
	if count < 1 {
		count = 1
	}
	if count > n {
		count = n
	}

	avg := Mean(sorted[:count])
	if avg <= 0 {
		return 0
	}
	return 1000 / avg
}

// FromFrameTime converts a frame time in milliseconds to FPS.
func FromFrameTime(ms float64) float64 {
	if ms <= 0 {
		return 0
	}
	return 1000 / ms
}

// NewSnapshot builds a rounded snapshot from a window of frame times. The
// cpu/gpu busy values are taken as given (the sample that closed the window).
// It reports false for an empty window.
func NewSnapshot(window []float64, cpuBusy, gpuBusy float64, process string, elapsed time.Duration) (Snapshot, bool) {
	if len(window) == 0 {
		return Snapshot{}, false
	}
	avg := Mean(window)
	return Snapshot{
		FPS:         Round1(FromFrameTime(avg)),
		FPS1Low:     Round1(PercentileLow(window, Low1)),
		FPS01Low:    Round1(PercentileLow(window, Low01)),
		FrameTimeMs: Round2(avg),
		CPUBusyMs:   Round2(cpuBusy),
		GPUBusyMs:   Round2(gpuBusy),
		ProcessName: process,
		ElapsedSecs: Round1(elapsed.Seconds()),
	}, true
}

// Summarize builds the session summary from the full frame-time history. It
// reports false when no samples were recorded.
func Summarize(process string, history []float64, duration time.Duration) (Session, bool) {
	if len(history) == 0 {
		return Session{}, false
	}
	minFT, maxFT := math.Inf(1), 0.0
	for _, ft := range history {
		minFT = math.Min(minFT, ft)
		maxFT = math.Max(maxFT, ft)
	}
	return Session{
		ProcessName:  process,
		AvgFPS:       Round1(FromFrameTime(Mean(history))),
		FPS1Low:      Round1(PercentileLow(history, Low1)),
		FPS01Low:     Round1(PercentileLow(history, Low01)),
		MaxFPS:       Round1(FromFrameTime(minFT)),
		MinFPS:       Round1(FromFrameTime(maxFT)),
		TotalFrames:  uint64(len(history)),
		DurationSecs: Round1(duration.Seconds()),
	}, true
}

// Round1 rounds to one decimal digit (FPS scale).
func Round1(v float64) float64 { return math.Round(v*10) / 10 }

// Round2 rounds to two decimal digits (millisecond scale).
func Round2(v float64) float64 { return math.Round(v*100) / 100 }
