package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	httpAdapter "github.com/cardlink/cardlink/internal/adapters/http"
	"github.com/cardlink/cardlink/internal/cliconfig"
	"github.com/cardlink/cardlink/pkg/log"
	"github.com/cardlink/cardlink/pkg/metrics"
	"github.com/cardlink/cardlink/pkg/protocol"
	"github.com/cardlink/cardlink/pkg/session"
	"github.com/cardlink/cardlink/plugins/configwatcher"
)

const helpDescription = `
Headless client for the KIV/UPS two-player card game.

Connects to a game server, enters the queue and reads moves from stdin.
Server messages are printed as they arrive. A dropped connection is
recovered automatically and the player re-enters the game.
`

var exampleUsage = strings.TrimSpace(`
  cardlink --server localhost:7777 --username bob
  cardlink --config $HOME/.cardlink/config.toml --metrics-addr 127.0.0.1:9090
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "cardlink",
		Short:         "Headless client for the KIV/UPS card game",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first (default $HOME/.cardlink/config.toml), then apply flag overrides
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			haveFile := cfgFile != "" && cliconfig.FileExists(cfgFile)
			if haveFile {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// These override file config but are overridden by flags (checked via changed map)
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, closer, err := cliconfig.NewLogger(cfg)
			if err != nil {
				return err
			}
			defer closer.Close()

			if !haveFile {
				cfgFile = ""
			}
			return run(cmd.Context(), cfg, cfgFile, changed, logger, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.cardlink/config.toml)")
	root.Flags().StringVar(&cfg.Server, "server", cfg.Server, "game server host:port")
	root.Flags().StringVar(&cfg.Username, "username", cfg.Username, "player name")

	root.Flags().DurationVar(&cfg.LivenessThreshold, "liveness-threshold", cfg.LivenessThreshold, "longest tolerated server silence")
	root.Flags().DurationVar(&cfg.MonitorInterval, "monitor-interval", cfg.MonitorInterval, "liveness check period")
	root.Flags().BoolVar(&cfg.HeartbeatCountsAsLiveness, "heartbeat-liveness", cfg.HeartbeatCountsAsLiveness, "count echoed heartB frames as liveness")
	root.Flags().BoolVar(&cfg.AutoHeartbeat, "auto-heartbeat", cfg.AutoHeartbeat, "answer server heartbeats")

	root.Flags().DurationVar(&cfg.RetryDelay, "retry-delay", cfg.RetryDelay, "delay before each reconnection attempt")
	root.Flags().DurationVar(&cfg.RetryMaxDelay, "retry-max-delay", cfg.RetryMaxDelay, "cap on the delay when retry-multiplier > 1")
	root.Flags().Float64Var(&cfg.RetryMultiplier, "retry-multiplier", cfg.RetryMultiplier, "delay growth per failed attempt (1 = fixed)")
	root.Flags().IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "reconnection attempts before giving up")
	root.Flags().DurationVar(&cfg.DialTimeout, "dial-timeout", cfg.DialTimeout, "timeout per dial (0 = OS default)")
	root.Flags().StringVar(&cfg.ReentryAction, "reentry", cfg.ReentryAction, "frame sent after reconnecting: reconnect, enter or none")

	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	root.Flags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "console or json")
	root.Flags().StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "write JSON logs to a rotated file instead of stderr")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve /healthz and /metrics on this address")
	root.Flags().BoolVar(&cfg.WatchConfig, "watch-config", cfg.WatchConfig, "re-tune the session when the config file changes")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cardlink:", err)
		os.Exit(1)
	}
}

// run drives one session until stdin ends, the user quits, a signal arrives
// or reconnection gives up.
func run(ctx context.Context, cfg cliconfig.Config, cfgFile string, changed map[string]bool, logger log.Logger, in io.Reader, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.New(metrics.WithRegistry(reg))

	failed := make(chan error, 1)
	s, err := session.New(cfg.SessionConfig(),
		session.WithLogger(logger),
		session.WithMetrics(collector),
		session.WithNotifier(session.NotifierFunc(func(err error) {
			failed <- err
		})),
	)
	if err != nil {
		return err
	}

	s.SetMessageHandler(func(ev protocol.Event) {
		if ev.Kind == protocol.EventHeartbeat {
			return
		}
		fmt.Fprintln(out, formatEvent(ev))
	})

	if cfg.MetricsAddr != "" {
		status, err := httpAdapter.NewStatusServer(cfg.MetricsAddr, httpAdapter.NewRouter(s, reg), logger)
		if err != nil {
			return fmt.Errorf("status server: %w", err)
		}
		status.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = status.Shutdown(shutdownCtx)
		}()
	}

	if cfg.WatchConfig && cfgFile != "" {
		watcher := configwatcher.New(configwatcher.Config{Path: cfgFile, Changed: changed})
		if err := watcher.Start(ctx, s, logger); err != nil {
			logger.Warn("config watcher not started", log.Err(err))
		} else {
			defer watcher.Shutdown()
		}
	}

	if err := s.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		s.Disconnect()
		if err := s.Wait(2 * time.Second); err != nil {
			logger.Warn("session did not stop cleanly", log.Err(err))
		}
	}()
	s.SendAction(protocol.ActionEnter)

	go func() {
		for ev := range s.Events() {
			switch ev.Kind {
			case session.EventReconnectAttempt:
				fmt.Fprintf(errOut, "-- reconnecting (attempt %d)\n", ev.Attempt)
			case session.EventReconnected:
				fmt.Fprintln(errOut, "-- reconnected")
			}
		}
	}()

	lines := readLines(ctx, in)

	for {
		select {
		case <-ctx.Done():
			logger.Info("received signal, stopping")
			return nil

		case err := <-failed:
			fmt.Fprintln(errOut, "-- connection lost for good:", err)
			return err

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			c, err := parseCommand(line)
			if errors.Is(err, errEmptyCommand) {
				continue
			}
			if err != nil {
				fmt.Fprintln(errOut, err)
				continue
			}
			if c.quit {
				return nil
			}
			if err := s.Send(c.action, c.payload...); err != nil {
				fmt.Fprintln(errOut, "-- not sent:", err)
			}
		}
	}
}

// readLines delivers the lines of in until it ends or ctx is done, then
// closes the channel.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
