package fpsmon

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func requireUnix(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires Unix-like environment")
	}
}

type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) Emit(e Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

func (c *collector) types() []EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]EventType, len(c.events))
	for i, e := range c.events {
		out[i] = e.Type
	}
	return out
}

func fakePresentMon(t *testing.T, frames int) string {
	t.Helper()
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("echo 'Application,ProcessID,SwapChainAddress,Runtime,SyncInterval,PresentFlags,MsBetweenPresents,CPUBusy,GPUBusy'\n")
	for i := 0; i < frames; i++ {
		b.WriteString("echo 'game.exe,1,0x0,DXGI,0,0,10.0,3.0,7.0'\n")
	}
	path := filepath.Join(dir, "PresentMon.exe")
	if err := os.WriteFile(path, []byte(b.String()), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMonitorFacadeFromConfig(t *testing.T) {
	requireUnix(t)
	c := DefaultConfig()
	c.Capture.DevPath = fakePresentMon(t, 30)
	c.Monitor.FlushInterval = time.Hour

	col := &collector{}
	m := NewFromConfig(c, col, nil)
	if err := m.Start("game.exe"); err != nil {
		t.Fatalf("start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	got := col.types()
	want := []EventType{EventStarted, EventSessionComplete, EventStopped}
	if len(got) != len(want) {
		t.Fatalf("events: want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events: want %v, got %v", want, got)
		}
	}
	st := m.Status()
	if st.Running || st.CurrentFPS == nil || *st.CurrentFPS != 100 {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestMonitorFacadeMissingBinary(t *testing.T) {
	c := DefaultConfig()
	c.Capture.Binary = "definitely-not-present-fpsmon.exe"
	c.Capture.DevPath = filepath.Join(t.TempDir(), "missing.exe")
	c.Capture.ResourceDir = t.TempDir()

	col := &collector{}
	m := NewFromConfig(c, col, nil)
	if err := m.Start("game.exe"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := col.types()
	if len(got) != 1 || got[0] != EventError {
		t.Fatalf("expected a single error event, got %v", got)
	}
	if !strings.Contains(col.events[0].Message, "PresentMon/releases") {
		t.Fatalf("error should carry download guidance: %q", col.events[0].Message)
	}
}

func TestAlreadyRunningFacade(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	m := New(Options{
		Locator: staticLocator{},
		Launcher: launcherFunc(func() {
			<-block
		}),
	})
	if err := m.Start("a.exe"); err != nil {
		t.Fatal(err)
	}
	if err := m.Start("b.exe"); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if err := m.Start(""); !errors.Is(err, ErrInvalidProcessName) {
		t.Fatalf("expected ErrInvalidProcessName, got %v", err)
	}
	_ = m.Stop()
}

func TestRouterFacade(t *testing.T) {
	m := New(Options{Locator: staticLocator{}, Launcher: launcherFunc(func() {})})
	srv := httptest.NewServer(NewRouter(m, NewHub(nil), "/api"))
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 || !strings.Contains(string(b), `"running":false`) {
		t.Fatalf("unexpected status response %d: %s", resp.StatusCode, b)
	}
}

func TestMetricsFacade(t *testing.T) {
	if err := RegisterMetrics(prometheus.NewRegistry()); err != nil {
		t.Fatal(err)
	}
	if err := RegisterMetricsDefault(); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(NewMetricsServer(":0").Handler)
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("metrics status %d", resp.StatusCode)
	}
}

func TestNewLogger(t *testing.T) {
	c := DefaultConfig()
	c.Log.Format = "json"
	var b strings.Builder
	lg, closer, err := NewLogger(c, &b)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = closer.Close() }()
	LogEmitter(lg).Emit(Event{Type: EventStarted, Process: "game.exe"})
	if !strings.Contains(b.String(), `"msg":"fps-started"`) {
		t.Fatalf("unexpected log output %q", b.String())
	}
}
