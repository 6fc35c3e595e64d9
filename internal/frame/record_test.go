package frame

import (
	"testing"
)

const v2Header = "Application,ProcessID,SwapChainAddress,Runtime,SyncInterval,PresentFlags,AllowsTearing,PresentMode,CPUStartTime,FrameTime,CPUBusy,CPUWait,GPULatency,GPUTime,GPUBusy"

func TestParseHeaderTrimsColumns(t *testing.T) {
	h := ParseHeader(" Application , FrameTime ,CPUBusy")
	cols := h.Columns()
	want := []string{"Application", "FrameTime", "CPUBusy"}
	if len(cols) != len(want) {
		t.Fatalf("expected %d columns, got %d", len(want), len(cols))
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Fatalf("column %d: expected %q, got %q", i, want[i], cols[i])
		}
	}
}

func TestParseV2Record(t *testing.T) {
	h := ParseHeader(v2Header)
	line := "game.exe,1234,0x1,DXGI,0,0,1,Hardware: Independent Flip,1.5,16.667,4.25,12.4,0.1,8.5,7.75"
	rec, ok := h.Parse(line)
	if !ok {
		t.Fatalf("expected record to parse")
	}
	if rec.Application != "game.exe" {
		t.Fatalf("unexpected application %q", rec.Application)
	}
	if rec.FrameTimeMs != 16.667 || rec.CPUBusyMs != 4.25 {
		t.Fatalf("unexpected timings: %+v", rec)
	}
	// GPUBusy is declared after GPUTime; the first declared match wins.
	if rec.GPUBusyMs != 8.5 {
		t.Fatalf("expected GPUTime column to be used, got %v", rec.GPUBusyMs)
	}
}

func TestParseLegacyColumnOrder(t *testing.T) {
	h := ParseHeader("ProcessID,Application,Runtime,SyncInterval,MsBetweenPresents,Dropped")
	rec, ok := h.Parse("42,legacy.exe,D3D11,1,33.3,0")
	if !ok {
		t.Fatalf("expected legacy record to parse")
	}
	if rec.Application != "legacy.exe" || rec.FrameTimeMs != 33.3 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.CPUBusyMs != 0 || rec.GPUBusyMs != 0 {
		t.Fatalf("absent busy columns must read as zero: %+v", rec)
	}
}

func TestParseAbsentBusyIgnoresNumericFirstColumn(t *testing.T) {
	h := ParseHeader("TimeInSeconds,ProcessID,Application,Runtime,FrameTime,GPUTime")
	rec, ok := h.Parse("12.5,42,game.exe,DXGI,16.7,7.25")
	if !ok {
		t.Fatalf("expected record to parse")
	}
	if rec.CPUBusyMs != 0 {
		t.Fatalf("cpu busy must not be read from column 0, got %v", rec.CPUBusyMs)
	}
	if rec.GPUBusyMs != 7.25 {
		t.Fatalf("unexpected gpu busy %v", rec.GPUBusyMs)
	}
}

func TestParseFrameTimeBounds(t *testing.T) {
	h := ParseHeader("Application,A,B,C,FrameTime")
	cases := []struct {
		ft string
		ok bool
	}{
		{"0", false},
		{"1000", false},
		{"-5", false},
		{"1500", false},
		{"0.001", true},
		{"999.999", true},
		{"NaN", false},
		{"+Inf", false},
		{"abc", false},
		{"", false},
	}
	for _, c := range cases {
		_, ok := h.Parse("g.exe,1,2,3," + c.ft)
		if ok != c.ok {
			t.Errorf("frame time %q: expected ok=%v, got %v", c.ft, c.ok, ok)
		}
	}
}

func TestParseRejectsShortAndMissingColumns(t *testing.T) {
	h := ParseHeader(v2Header)
	if _, ok := h.Parse("game.exe,1,2,3"); ok {
		t.Fatalf("expected rows with fewer than 5 fields to be rejected")
	}
	if _, ok := h.Parse("single"); ok {
		t.Fatalf("expected single-field row to be rejected")
	}

	noApp := ParseHeader("Name,A,B,C,FrameTime")
	if _, ok := noApp.Parse("g.exe,1,2,3,16"); ok {
		t.Fatalf("expected missing Application column to reject")
	}
	noFT := ParseHeader("Application,A,B,C,D")
	if _, ok := noFT.Parse("g.exe,1,2,3,16"); ok {
		t.Fatalf("expected missing frame time column to reject")
	}

	// header declares a column beyond the row's width
	wide := ParseHeader("Application,A,B,C,D,E,FrameTime")
	if _, ok := wide.Parse("g.exe,1,2,3,4"); ok {
		t.Fatalf("expected out-of-range frame time column to reject")
	}
}

func TestParseUnparsableBusyDefaultsToZero(t *testing.T) {
	h := ParseHeader("Application,A,B,FrameTime,CPUBusy,GPUBusy")
	rec, ok := h.Parse("g.exe,1,2,10,n/a,")
	if !ok {
		t.Fatalf("expected record to parse")
	}
	if rec.CPUBusyMs != 0 || rec.GPUBusyMs != 0 {
		t.Fatalf("expected zero busy values, got %+v", rec)
	}
}
