package frame

import (
	"strconv"
	"strings"
)

// Column names understood by the parser. PresentMon renamed its frame time
// column between major versions, so both spellings are accepted.
const (
	ColApplication       = "Application"
	ColFrameTime         = "FrameTime"
	ColMsBetweenPresents = "MsBetweenPresents"
	ColCPUBusy           = "CPUBusy"
	ColGPUBusy           = "GPUBusy"
	ColGPUTime           = "GPUTime"
)

// MinFields is the smallest number of raw fields a data row may have.
const MinFields = 5

// MaxFrameTimeMs bounds accepted frame times; (0, MaxFrameTimeMs) is open.
const MaxFrameTimeMs = 1000.0

// Record is one decoded frame-timing sample.
type Record struct {
	Application string
	FrameTimeMs float64
	CPUBusyMs   float64
	GPUBusyMs   float64
}

// Header holds the column names declared by the first line of the stream.
type Header struct {
	columns []string
}

// ParseHeader splits a comma-delimited header row into trimmed column names.
func ParseHeader(line string) Header {
	parts := strings.Split(line, ",")
	cols := make([]string, len(parts))
	for i, p := range parts {
		cols[i] = strings.TrimSpace(p)
	}
	return Header{columns: cols}
}

// Columns returns a copy of the column names.
func (h Header) Columns() []string {
	out := make([]string, len(h.columns))
	copy(out, h.columns)
	return out
}

// Len returns the number of declared columns.
func (h Header) Len() int { return len(h.columns) }

func (h Header) index(names ...string) int {
	for i, c := range h.columns {
		for _, n := range names {
			if c == n {
				return i
			}
		}
	}
	return -1
}

// Parse decodes a data row against the header. It reports false when the row
// is too short, a mandatory column is missing, the frame time does not parse,
// or the frame time falls outside (0, MaxFrameTimeMs).
//
// Optional CPU/GPU values are 0 when the header does not declare their
// column.
func (h Header) Parse(line string) (Record, bool) {
	fields := strings.Split(line, ",")
	if len(fields) < MinFields {
		return Record{}, false
	}

	appIdx := h.index(ColApplication)
	if appIdx < 0 {
		return Record{}, false
	}
	ftIdx := h.index(ColFrameTime, ColMsBetweenPresents)
	if ftIdx < 0 {
		return Record{}, false
	}
	cpuIdx := h.index(ColCPUBusy)
	gpuIdx := h.index(ColGPUBusy, ColGPUTime)

	if appIdx >= len(fields) || ftIdx >= len(fields) {
		return Record{}, false
	}
	ft, err := parseFloat(fields[ftIdx])
	if err != nil {
		return Record{}, false
	}
	if !(ft > 0 && ft < MaxFrameTimeMs) {
		return Record{}, false
	}

	return Record{
		Application: fields[appIdx],
		FrameTimeMs: ft,
		CPUBusyMs:   optionalFloat(fields, cpuIdx),
		GPUBusyMs:   optionalFloat(fields, gpuIdx),
	}, true
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func optionalFloat(fields []string, idx int) float64 {
	if idx < 0 || idx >= len(fields) {
		return 0
	}
	v, err := parseFloat(fields[idx])
	if err != nil {
		return 0
	}
	return v
}
