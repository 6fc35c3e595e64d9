package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRoot creates the root command and its subcommands
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	watchFlags := &WatchFlags{}
	serveFlags := &ServeFlags{}
	apiFlags := &APIFlags{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createWatchCommand(globalFlags, watchFlags),
		createServeCommand(globalFlags, serveFlags),
		createStartCommand(apiFlags),
		createStopCommand(apiFlags),
		createStatusCommand(apiFlags),
		createLocateCommand(globalFlags),
	)
	return root
}

// createRootCommand creates the root command with minimal persistent flags
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "fpsmon",
		Short: "Real-time frame-timing telemetry via PresentMon",
		Long: `fpsmon launches PresentMon against a target process and reports rolling
FPS, 1% low and 0.1% low figures, plus CPU and GPU busy time.

Examples:
  fpsmon watch game.exe                   # foreground session, events on stdout
  fpsmon serve                            # control API + websocket event stream
  fpsmon start game.exe --api-url=http://127.0.0.1:8080/api
  fpsmon status
  fpsmon locate                           # show which PresentMon binary would run`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	return root
}

func createWatchCommand(globalFlags *GlobalFlags, flags *WatchFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <process>",
		Short: "Monitor a process in the foreground",
		Long: `Monitor a process in the foreground. Each event is printed to stdout as
one JSON object per line. Ctrl-C stops the capture and waits for the
final fps-stopped event.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCommand(cmd, globalFlags.ConfigPath)
			if err != nil {
				return err
			}
			defer c.close()
			if flags.Interval > 0 {
				c.cfg.Monitor.FlushInterval = flags.Interval
			}
			return c.Watch(cmd.Context(), args[0], flags.Quiet)
		},
	}
	cmd.Flags().DurationVar(&flags.Interval, "interval", 0, "snapshot interval (overrides monitor.flush_interval)")
	cmd.Flags().BoolVar(&flags.Quiet, "quiet", false, "only print the session summary")
	return cmd
}

func createServeCommand(globalFlags *GlobalFlags, flags *ServeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the control API daemon",
		Long: `Run the HTTP control API (start, stop, status, websocket events) and,
when enabled, the Prometheus metrics endpoint. SIGINT or SIGTERM stop any
running session before exiting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCommand(cmd, globalFlags.ConfigPath)
			if err != nil {
				return err
			}
			defer c.close()
			if flags.Listen != "" {
				c.cfg.Server.Listen = flags.Listen
			}
			if flags.MetricsListen != "" {
				c.cfg.Metrics.Listen = flags.MetricsListen
				c.cfg.Metrics.Enabled = true
			}
			return c.Serve(cmd.Context(), nil)
		},
	}
	cmd.Flags().StringVar(&flags.Listen, "listen", "", "API listen address (overrides server.listen)")
	cmd.Flags().StringVar(&flags.MetricsListen, "metrics-listen", "", "metrics listen address; enables metrics")
	return cmd
}

func addAPIFlags(cmd *cobra.Command, flags *APIFlags) {
	cmd.Flags().StringVar(&flags.APIUrl, "api-url", defaultAPIURL, "daemon URL (e.g. http://host:8080/api)")
	cmd.Flags().DurationVar(&flags.APITimeout, "api-timeout", 10*time.Second, "request timeout")
}

func createStartCommand(flags *APIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <process>",
		Short: "Start monitoring on a running daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return remote{out: cmd.OutOrStdout()}.Start(cmd.Context(), *flags, args[0])
		},
	}
	addAPIFlags(cmd, flags)
	return cmd
}

func createStopCommand(flags *APIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop monitoring on a running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return remote{out: cmd.OutOrStdout()}.Stop(cmd.Context(), *flags)
		},
	}
	addAPIFlags(cmd, flags)
	return cmd
}

func createStatusCommand(flags *APIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the daemon's monitoring status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return remote{out: cmd.OutOrStdout()}.Status(cmd.Context(), *flags)
		},
	}
	addAPIFlags(cmd, flags)
	return cmd
}

func createLocateCommand(globalFlags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "locate",
		Short: "Print the capture binary that would be launched",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCommand(cmd, globalFlags.ConfigPath)
			if err != nil {
				return err
			}
			defer c.close()
			return c.Locate()
		},
	}
}
