package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/tobert/reactmon/internal/aggregate"
	"github.com/tobert/reactmon/internal/calltree"
	"github.com/tobert/reactmon/internal/fetch"
	"github.com/tobert/reactmon/internal/mcpserver"
	"github.com/tobert/reactmon/internal/otlpexport"
	"github.com/tobert/reactmon/internal/poller"
	"github.com/tobert/reactmon/internal/webui"
)

// Version is stamped by the main package so the serve command can hand
// it to the MCP server.
var Version = "dev"

// ServeCommand returns the CLI command definition for the 'serve'
// subcommand: the poll loop, the dashboard, and optionally the MCP
// stdio server and an OTLP span bridge.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Poll a react-instrumented application and serve the latency dashboard",
		Description: `Polls http://<monitored-host>/call_tree on an interval, aggregates
per-action latency quantiles from the returned call trees, and serves
a dashboard with stacked histogram data and representative traces.

Configuration layers: defaults, ~/.config/reactmon/config.json,
.reactmon.json in the project, then --config, then flags.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a JSON or YAML config file",
			},
			&cli.StringFlag{
				Name:  "monitored-host",
				Usage: "host:port of the application to poll",
				Value: "localhost:20000",
			},
			&cli.StringFlag{
				Name:  "poll-interval",
				Usage: "Delay between poll cycles (e.g. 5s)",
				Value: "5s",
			},
			&cli.StringFlag{
				Name:  "fetch-timeout",
				Usage: "HTTP timeout for each /call_tree fetch",
				Value: "5s",
			},
			&cli.IntFlag{
				Name:  "history-size",
				Usage: "Latency samples retained per action",
				Value: 10_000,
			},
			&cli.IntFlag{
				Name:  "snapshot-series-size",
				Usage: "Per-cycle snapshots retained per action",
				Value: 1_000,
			},
			&cli.IntFlag{
				Name:  "registry-size",
				Usage: "Tree ids remembered for dedup (negative for unbounded)",
				Value: 100_000,
			},
			&cli.StringFlag{
				Name:  "http-host",
				Usage: "Dashboard bind address",
				Value: "127.0.0.1",
			},
			&cli.IntFlag{
				Name:  "http-port",
				Usage: "Dashboard port",
				Value: 5000,
			},
			&cli.BoolFlag{
				Name:  "mcp",
				Usage: "Also run an MCP server on stdio",
			},
			&cli.StringFlag{
				Name:  "otlp-endpoint",
				Usage: "OTLP gRPC collector to forward call trees to (empty disables)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable verbose logging",
			},
		},
		Action: runServe,
	}
}

// buildConfig layers config files under explicit flag overrides. Only
// flags the user actually set override the file values.
func buildConfig(cmd *cli.Command) (*Config, error) {
	cfg, err := LoadEffectiveConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("monitored-host") {
		cfg.MonitoredHost = cmd.String("monitored-host")
	}
	if cmd.IsSet("poll-interval") {
		cfg.PollInterval = cmd.String("poll-interval")
	}
	if cmd.IsSet("fetch-timeout") {
		cfg.FetchTimeout = cmd.String("fetch-timeout")
	}
	if cmd.IsSet("history-size") {
		cfg.HistorySize = cmd.Int("history-size")
	}
	if cmd.IsSet("snapshot-series-size") {
		cfg.SnapshotSeries = cmd.Int("snapshot-series-size")
	}
	if cmd.IsSet("registry-size") {
		cfg.RegistrySize = cmd.Int("registry-size")
	}
	if cmd.IsSet("http-host") {
		cfg.HTTPHost = cmd.String("http-host")
	}
	if cmd.IsSet("http-port") {
		cfg.HTTPPort = cmd.Int("http-port")
	}
	if cmd.IsSet("mcp") {
		cfg.MCP = cmd.Bool("mcp")
	}
	if cmd.IsSet("otlp-endpoint") {
		cfg.OTLPEndpoint = cmd.String("otlp-endpoint")
	}
	if cmd.IsSet("verbose") {
		cfg.Verbose = cmd.Bool("verbose")
	}

	return cfg, nil
}

// newLogger builds the process logger. Verbose mode uses the
// development config: human-readable output with debug level enabled.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// runServe wires together all components: target, fetcher, registry,
// aggregator, poller, dashboard, and the optional MCP and OTLP pieces.
func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	target := fetch.NewTarget(cfg.MonitoredHost)
	fetcher := fetch.NewFetcher(cfg.FetchTimeoutDuration())
	registry := calltree.NewRegistry(registryCapacity(cfg.RegistrySize))
	agg := aggregate.New(cfg.HistorySize, cfg.SnapshotSeries)

	var exporter poller.Exporter
	if cfg.OTLPEndpoint != "" {
		otlp, err := otlpexport.NewExporter(cfg.OTLPEndpoint, logger)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		defer otlp.Close()
		exporter = otlp
		logger.Info("forwarding call trees to OTLP collector",
			zap.String("endpoint", cfg.OTLPEndpoint))
	}

	p := poller.New(poller.Config{
		Target:   target,
		Fetcher:  fetcher,
		Registry: registry,
		Agg:      agg,
		Exporter: exporter,
		Interval: cfg.PollIntervalDuration(),
		Logger:   logger,
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Live monitored_host updates when an explicit config file changes.
	if path := cmd.String("config"); path != "" {
		watcher, err := WatchConfig(ctx, path, target, logger)
		if err != nil {
			logger.Warn("config reload disabled", zap.String("path", path), zap.Error(err))
		} else {
			defer watcher.Close()
		}
	}

	go p.Run(ctx)
	logger.Info("poller started",
		zap.String("monitored_host", cfg.MonitoredHost),
		zap.Duration("interval", cfg.PollIntervalDuration()))

	dashboard := webui.New(agg, target, logger)
	addr := fmt.Sprintf("%s:%d", cfg.HTTPHost, cfg.HTTPPort)

	if cfg.MCP {
		// Dashboard in the background, MCP owns stdio in the foreground.
		go func() {
			if err := dashboard.ListenAndServe(ctx, addr); err != nil {
				logger.Error("dashboard server failed", zap.Error(err))
			}
		}()
		logger.Info("dashboard listening", zap.String("addr", addr))

		mcpSrv, err := mcpserver.NewServer(agg, target, Version)
		if err != nil {
			return fmt.Errorf("failed to create MCP server: %w", err)
		}
		logger.Info("MCP server ready on stdio")
		if err := mcpSrv.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	}

	logger.Info("dashboard listening", zap.String("addr", addr))
	if err := dashboard.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("dashboard server error: %w", err)
	}
	return nil
}

// registryCapacity maps the config value onto the registry's
// convention: negative means unbounded, which the registry spells as
// zero.
func registryCapacity(size int) int {
	if size < 0 {
		return 0
	}
	return size
}
