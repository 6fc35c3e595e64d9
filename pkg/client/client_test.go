package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/fpsmon/internal/server"
	"github.com/loykin/fpsmon/internal/session"
)

type stubController struct {
	running string
}

func (s *stubController) Start(name string) error {
	if s.running != "" {
		return &session.AlreadyRunningError{Name: s.running}
	}
	s.running = name
	return nil
}

func (s *stubController) Stop() error { s.running = ""; return nil }

func (s *stubController) Status() session.Status {
	if s.running == "" {
		return session.Status{}
	}
	name, cur := s.running, 120.0
	return session.Status{Running: true, ProcessName: &name, CurrentFPS: &cur}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := server.NewRouter(&stubController{}, nil, "/api")
	srv := httptest.NewServer(r.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestClientRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	c := New(Config{BaseURL: srv.URL + "/api/", Timeout: 2 * time.Second})
	ctx := context.Background()

	if !c.IsReachable(ctx) {
		t.Fatal("expected server to be reachable")
	}
	if err := c.Start(ctx, "game.exe"); err != nil {
		t.Fatalf("start: %v", err)
	}
	err := c.Start(ctx, "other.exe")
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusConflict || apiErr.Message != "already monitoring game.exe" {
		t.Fatalf("unexpected api error: %#v", err)
	}

	st, err := c.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.Running || st.ProcessName == nil || *st.ProcessName != "game.exe" || st.CurrentFPS == nil || *st.CurrentFPS != 120 {
		t.Fatalf("unexpected status: %+v", st)
	}

	if err := c.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	st, err = c.Status(ctx)
	if err != nil || st.Running || st.ProcessName != nil {
		t.Fatalf("expected idle status, got %+v err=%v", st, err)
	}
}

func TestClientBadRequest(t *testing.T) {
	srv := newTestServer(t)
	c := New(Config{BaseURL: srv.URL + "/api"})
	err := c.Start(context.Background(), "../x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 APIError, got %v", err)
	}
	if errors.Is(err, ErrAlreadyRunning) {
		t.Fatal("400 must not match ErrAlreadyRunning")
	}
}

func TestClientUndecodableError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()
	err := New(Config{BaseURL: srv.URL}).Stop(context.Background())
	if err == nil || err.Error() != "HTTP 500" {
		t.Fatalf("expected HTTP 500, got %v", err)
	}
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c := New(Config{BaseURL: url, Timeout: 500 * time.Millisecond})
	if c.IsReachable(context.Background()) {
		t.Fatal("closed server should be unreachable")
	}
	if _, err := c.Status(context.Background()); err == nil {
		t.Fatal("expected error from closed server")
	}
}

func TestStatusDecodesNulls(t *testing.T) {
	var st Status
	if err := json.Unmarshal([]byte(`{"running":false,"process_name":null,"current_fps":null}`), &st); err != nil {
		t.Fatal(err)
	}
	if st.Running || st.ProcessName != nil || st.CurrentFPS != nil {
		t.Fatalf("unexpected %+v", st)
	}
}
