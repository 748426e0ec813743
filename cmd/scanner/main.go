package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"CycleScan/internal/checkpoint"
	"CycleScan/internal/config"
	"CycleScan/internal/provider"
	"CycleScan/internal/recorder"
	"CycleScan/internal/report"
	"CycleScan/internal/scan"
	"CycleScan/internal/scheduler"
)

func main() {
	var (
		cfgPath  = flag.String("config", "configs/config.yaml", "path to config file")
		session  = flag.String("session", "", "scan session name (overrides config)")
		resume   = flag.Bool("resume", false, "resume from the session checkpoint")
		clear    = flag.Bool("clear-progress", false, "discard the session checkpoint before scanning")
		testMode = flag.Bool("test-mode", false, "cap the universe for a quick dry run")
		daemon   = flag.Bool("daemon", false, "run on the configured cron schedule instead of once")
	)
	flag.Parse()
	if v := os.Getenv("CONFIG_PATH"); v != "" && *cfgPath == "configs/config.yaml" {
		*cfgPath = v
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}

	setupLogging(cfg)
	log.Info().Str("config", *cfgPath).Msg("CycleScan starting")

	// Data source
	var (
		universe     provider.UniverseProvider
		prices       provider.PriceDataProvider
		fundamentals provider.FundamentalsProvider
	)
	switch cfg.DataSource.Source {
	case "rest":
		rest := provider.NewRESTProvider(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
		universe, prices = rest, rest
		fundamentals = provider.NewBreakerFundamentals(rest)
	case "yahoo":
		universe = provider.NewFileUniverse(cfg.DataSource.UniverseFile)
		prices = provider.NewYahooProvider(cfg.Proxy)
	}
	log.Info().Str("source", prices.Name()).Msg("data source ready")

	store, err := checkpoint.NewFileStore(cfg.Checkpoint.Dir)
	if err != nil {
		log.Fatal().Err(err).Msg("init checkpoint store")
	}

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("sqlite recorder unavailable, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	rateInterval, _ := cfg.RateInterval()
	opts := scan.Options{
		SessionID:     cfg.Scan.Session,
		Resume:        *resume,
		ClearProgress: *clear,
		MinPrice:      cfg.Scan.MinPrice,
		MaxPrice:      cfg.Scan.MaxPrice,
		MinVolume:     cfg.Scan.MinVolume,
		RateInterval:  rateInterval,
		TestMode:      *testMode || cfg.Scan.TestMode,
		TestModeLimit: cfg.Scan.TestModeLimit,
		Workers:       cfg.Scan.Workers,
		SaveInterval:  cfg.Scan.SaveInterval,
		Lookback:      cfg.Scan.Lookback,
		Benchmark:     cfg.Scan.Benchmark,
	}
	if *session != "" {
		opts.SessionID = *session
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First SIGINT pauses the scan through context cancellation; a second
	// one kills the process.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received, pausing scan")
		cancel()
		<-sigCh
		log.Fatal().Msg("second signal, exiting immediately")
	}()

	runScan := func(ctx context.Context) error {
		prevPhases, err := rec.PreviousPhases()
		if err != nil {
			log.Warn().Err(err).Msg("phase history unavailable, transition checks degraded")
			prevPhases = nil
		}
		orch := scan.New(opts, universe, prices, fundamentals, store, prevPhases,
			report.NewConsoleSink(), rec)
		_, err = orch.Run(ctx)
		return err
	}

	if *daemon {
		if cfg.Schedule.ScanCron == "" {
			log.Fatal().Msg("daemon mode needs schedule.scan_cron")
		}
		sched := scheduler.New(ctx, runScan)
		if err := sched.Register(cfg.Schedule.ScanCron); err != nil {
			log.Fatal().Err(err).Msg("register schedule")
		}
		sched.Start()
		<-ctx.Done()
		<-sched.Stop().Done()
		log.Info().Msg("CycleScan stopped")
		return
	}

	if err := runScan(ctx); err != nil {
		log.Fatal().Err(err).Msg("scan failed")
	}
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Logging.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
