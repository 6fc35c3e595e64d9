package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/loykin/fpsmon"
	"github.com/loykin/fpsmon/pkg/client"
)

// drainTimeout bounds how long shutdown waits for fps-stopped.
const drainTimeout = 10 * time.Second

// command carries what the local commands share: configuration, the
// application logger and the output stream.
type command struct {
	cfg    fpsmon.Config
	logger *slog.Logger
	closer io.Closer
	out    io.Writer
}

func loadCommand(cmd *cobra.Command, configPath string) (*command, error) {
	cfg, err := fpsmon.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	lg, closer, err := fpsmon.NewLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("error creating logger: %w", err)
	}
	return &command{cfg: cfg, logger: lg, closer: closer, out: cmd.OutOrStdout()}, nil
}

func (c *command) close() { _ = c.closer.Close() }

// printer writes events as JSON lines and remembers the last error event.
type printer struct {
	out     io.Writer
	quiet   bool
	lastErr string
}

func (p *printer) Emit(e fpsmon.Event) {
	if e.Type == fpsmon.EventError {
		p.lastErr = e.Message
	}
	if p.quiet && e.Type != fpsmon.EventSessionComplete {
		return
	}
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintln(p.out, string(b))
}

// Watch runs one session in the foreground until the capture ends or the
// process is interrupted.
func (c *command) Watch(ctx context.Context, processName string, quiet bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := &printer{out: c.out, quiet: quiet}
	m := fpsmon.NewFromConfig(c.cfg, fpsmon.MultiEmitter(p, fpsmon.LogEmitter(c.logger)), c.logger)
	if err := m.Start(processName); err != nil {
		return err
	}

	if err := m.Wait(ctx); err != nil {
		c.logger.Info("interrupted, stopping capture")
		_ = m.Stop()
		wctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := m.Wait(wctx); err != nil {
			return fmt.Errorf("capture did not drain: %w", err)
		}
	}
	if p.lastErr != "" {
		return errors.New(p.lastErr)
	}
	return nil
}

// Serve runs the control API and the optional metrics endpoint until ctx is
// cancelled or a signal arrives. ready, when set, receives the bound
// addresses (metrics is empty when disabled).
func (c *command) Serve(ctx context.Context, ready func(apiAddr, metricsAddr string)) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := fpsmon.NewHub(c.logger)
	m := fpsmon.NewFromConfig(c.cfg, hub, c.logger)

	apiSrv := fpsmon.NewHTTPServer(c.cfg.Server.Listen, c.cfg.Server.BasePath, m, hub)
	apiLn, err := net.Listen("tcp", apiSrv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", apiSrv.Addr, err)
	}

	var metricsSrv *http.Server
	var metricsLn net.Listener
	if c.cfg.Metrics.Enabled {
		if err := fpsmon.RegisterMetricsDefault(); err != nil {
			c.logger.Warn("failed to register metrics", "error", err)
		}
		metricsSrv = fpsmon.NewMetricsServer(c.cfg.Metrics.Listen)
		metricsLn, err = net.Listen("tcp", metricsSrv.Addr)
		if err != nil {
			_ = apiLn.Close()
			return fmt.Errorf("listen %s: %w", metricsSrv.Addr, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serveUntilClosed(apiSrv, apiLn) })
	if metricsSrv != nil {
		g.Go(func() error { return serveUntilClosed(metricsSrv, metricsLn) })
	}
	g.Go(func() error {
		<-gctx.Done()
		c.logger.Info("shutting down")
		_ = m.Stop()
		sctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := m.Wait(sctx); err != nil {
			c.logger.Warn("capture did not drain", "error", err)
		}
		hub.Close()
		_ = apiSrv.Shutdown(sctx)
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(sctx)
		}
		return nil
	})

	metricsAddr := ""
	if metricsLn != nil {
		metricsAddr = metricsLn.Addr().String()
	}
	c.logger.Info("fpsmon server started", "listen", apiLn.Addr().String(), "base_path", c.cfg.Server.BasePath, "metrics", metricsAddr)
	if ready != nil {
		ready(apiLn.Addr().String(), metricsAddr)
	}
	return g.Wait()
}

func serveUntilClosed(srv *http.Server, ln net.Listener) error {
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Locate prints the resolved capture binary path.
func (c *command) Locate() error {
	loc := c.cfg.Locator()
	path, err := loc.Resolve()
	if err != nil {
		for _, cand := range loc.Candidates() {
			c.logger.Debug("candidate missing", "path", cand)
		}
		return err
	}
	_, _ = fmt.Fprintln(c.out, path)
	return nil
}

// remote drives a daemon through pkg/client.
type remote struct {
	out io.Writer
}

func (r remote) client(ctx context.Context, f APIFlags) (*client.Client, error) {
	url := f.APIUrl
	if url == "" {
		url = defaultAPIURL
	}
	cl := client.New(client.Config{BaseURL: url, Timeout: f.APITimeout})
	if !cl.IsReachable(ctx) {
		return nil, fmt.Errorf("daemon not reachable at %s - please start daemon first with 'fpsmon serve'", url)
	}
	return cl, nil
}

func (r remote) Start(ctx context.Context, f APIFlags, processName string) error {
	cl, err := r.client(ctx, f)
	if err != nil {
		return err
	}
	if err := cl.Start(ctx, processName); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(r.out, "monitoring %s\n", processName)
	return nil
}

func (r remote) Stop(ctx context.Context, f APIFlags) error {
	cl, err := r.client(ctx, f)
	if err != nil {
		return err
	}
	if err := cl.Stop(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(r.out, "stopped")
	return nil
}

func (r remote) Status(ctx context.Context, f APIFlags) error {
	cl, err := r.client(ctx, f)
	if err != nil {
		return err
	}
	st, err := cl.Status(ctx)
	if err != nil {
		return err
	}
	printJSON(r.out, st)
	return nil
}

func printJSON(w io.Writer, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	_, _ = fmt.Fprintln(w, string(b))
}
