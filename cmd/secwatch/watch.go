package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aleister1102/secwatch/internal/config"
	"github.com/aleister1102/secwatch/internal/fixer"
	"github.com/aleister1102/secwatch/internal/monitor"
	"github.com/aleister1102/secwatch/internal/scanner"
	"github.com/aleister1102/secwatch/internal/transport"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

type watchOptions struct {
	dir      string
	debounce time.Duration
	listen   string
	noReload bool
}

func newWatchCommand(root *rootOptions) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a directory, stream scan results to editors and apply their fixes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, root, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.dir, "dir", "d", "", "Directory to watch (overrides watch_config.watch_dir)")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 0, "Quiet period before a changed file is scanned, e.g. 300ms")
	cmd.Flags().StringVarP(&opts.listen, "listen", "l", "", "WebSocket listen address (overrides transport_config.listen_address)")
	cmd.Flags().BoolVar(&opts.noReload, "no-reload", false, "Do not reload the config file when it changes")
	return cmd
}

func (o *watchOptions) apply(cfg *config.GlobalConfig) {
	if o.dir != "" {
		cfg.WatchConfig.WatchDir = o.dir
	}
	if o.debounce > 0 {
		cfg.WatchConfig.DebounceMs = int(o.debounce / time.Millisecond)
		if cfg.WatchConfig.DebounceMs < 1 {
			cfg.WatchConfig.DebounceMs = 1
		}
	}
	if o.listen != "" {
		cfg.TransportConfig.ListenAddress = o.listen
	}
}

func runWatch(ctx context.Context, cmd *cobra.Command, root *rootOptions, opts *watchOptions) error {
	bootstrap := root.bootstrapLogger(cmd.ErrOrStderr())

	manager, err := config.NewConfigManager(root.configPath, config.ConfigManagerOptions{
		Logger:            bootstrap,
		ValidationEnabled: true,
		HotReloadEnabled:  !opts.noReload,
		ReloadDelay:       config.DefaultConfigManagerOptions().ReloadDelay,
	})
	if err != nil {
		return err
	}
	defer manager.Close()

	cfg := manager.GetConfig()
	root.applyLogLevel(cfg)
	opts.apply(cfg)
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}

	log, err := buildLogger(cfg.LogConfig, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	engine := scanner.NewEngine(log, scanner.EngineOptions{
		ExtraSkipExtensions: cfg.ScanConfig.ExtraSkipExtensions,
		MaxFileSize:         cfg.WatchConfig.MaxFileSizeBytes,
	})
	engine.Reconcile(cfg.ScanConfig.EnabledRules, cfg.ScanConfig.DisabledRules)

	manager.OnReload(func(next *config.GlobalConfig) {
		engine.Reconcile(next.ScanConfig.EnabledRules, next.ScanConfig.DisabledRules)
	})
	manager.StartHotReload(ctx)

	var journal *fixer.Journal
	if cfg.FixConfig.JournalPath != "" {
		journal, err = fixer.OpenJournal(cfg.FixConfig.JournalPath, log)
		if err != nil {
			return err
		}
		defer closeJournal(journal, log)
	}

	applierOpts := fixer.ApplierOptions{Journal: journal}
	if cfg.FixConfig.RestrictToWatchDir {
		applierOpts.Root = cfg.WatchConfig.WatchDir
	}
	applier, err := fixer.NewApplier(log, applierOpts)
	if err != nil {
		return err
	}

	hub := transport.NewHub(log)
	service, err := monitor.NewService(log, engine, applier, hub, monitor.ServiceOptions{
		WatchDir:    cfg.WatchConfig.WatchDir,
		Debounce:    cfg.WatchConfig.Debounce(),
		MaxFileSize: cfg.WatchConfig.MaxFileSizeBytes,
		IgnoreDirs:  cfg.WatchConfig.IgnoreDirs,
		InitialScan: cfg.WatchConfig.InitialScan,
	})
	if err != nil {
		return err
	}

	if cfg.TransportConfig.Enabled {
		server := transport.NewServer(log, hub, service, transport.ServerOptions{
			Address:        cfg.TransportConfig.ListenAddress,
			Path:           cfg.TransportConfig.Path,
			WatchDir:       service.WatchDir(),
			AllowedOrigins: cfg.TransportConfig.AllowedOrigins,
		})
		if err := server.Start(); err != nil {
			return err
		}
		defer shutdownServer(server, log)
	} else {
		log.Warn().Msg("Transport disabled, scan results are only logged")
	}

	if err := service.Start(ctx); err != nil {
		return err
	}
	log.Info().
		Str("watch_dir", service.WatchDir()).
		Int("rules", len(engine.Rules())).
		Msg("secwatch is running, press Ctrl+C to stop")

	<-ctx.Done()
	log.Info().Msg("Shutdown requested")
	service.Stop()
	return nil
}

func shutdownServer(server *transport.Server, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Transport server did not shut down cleanly")
	}
}

func closeJournal(journal *fixer.Journal, log zerolog.Logger) {
	if err := journal.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close fix journal")
	}
}
