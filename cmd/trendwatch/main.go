package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"

	"trendwatch/pkg/config"
	"trendwatch/pkg/fetcher"
	"trendwatch/pkg/llm"
	"trendwatch/pkg/notify"
	"trendwatch/pkg/repository"
	"trendwatch/pkg/scanner"
	"trendwatch/pkg/settings"
	"trendwatch/pkg/trends"
	"trendwatch/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"c" long:"config" env:"CONFIG" default:"config.yml" description:"config file path"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	// load .env if present, config may reference env vars
	if err := godotenv.Load(); err == nil {
		fmt.Println("loaded .env file")
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	setupLog(opts.Debug, opts.NoColor, secrets(cfg)...)

	lgr.Printf("[INFO] starting trendwatch version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		lgr.Printf("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, cfg, opts.Debug); err != nil {
		lgr.Printf("[ERROR] trendwatch failed: %v", err)
		os.Exit(1)
	}

	lgr.Printf("[INFO] shutdown complete")
}

// run wires all components and blocks until the context is canceled
func run(ctx context.Context, cfg *config.Config, debug bool) error {
	repos, err := repository.NewRepositories(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer func() {
		if err := repos.Close(); err != nil {
			lgr.Printf("[WARN] failed to close database: %v", err)
		}
	}()

	timeout := cfg.Server.Timeout
	forum := fetcher.NewForumFetcher(cfg.Sources.Forum, timeout)
	microblog := fetcher.NewMicroblogFetcher(cfg.Sources.Microblog, timeout)
	web := fetcher.NewWebFetcher(cfg.Sources.Web, timeout)
	markets := fetcher.NewMarketClient(cfg.Sources.Markets, timeout)

	var analyzer *llm.Analyzer
	if cfg.LLM.Enabled {
		analyzer = llm.NewAnalyzer(cfg.LLM)
		lgr.Printf("[INFO] llm analysis enabled with model %s", cfg.LLM.Model)
	} else {
		lgr.Printf("[INFO] llm analysis disabled, trends get fallback analyses")
	}

	settingsCache := settings.NewCache(repos.Setting, time.Minute)
	notifier := notify.NewSlack(cfg.Notify.SlackWebhookURL, timeout)

	scannerParams := scanner.Params{
		TrendStore:    repos.Trend,
		AnalysisStore: repos.Analysis,
		MarketStore:   repos.Market,
		MetaStore:     repos.SourceMeta,
		Forum:         forum,
		Microblog:     microblog,
		Web:           web,
		Markets:       markets,
		Notifier:      notifier,
		Settings:      settingsCache,
		Config: scanner.Config{
			ItemDelay:      cfg.Schedule.ItemDelay,
			MarketsKeepTop: cfg.Sources.Markets.KeepTop,
			MaxTrendAge:    cfg.Cleanup.MaxTrendAge,
			WebConcurrency: cfg.Schedule.MaxWorkers,
			Thresholds:     configThresholds(cfg),
		},
	}
	if analyzer != nil {
		scannerParams.Analyzer = analyzer
	}
	scan := scanner.New(scannerParams)

	sched := scanner.NewScheduler(scan, scanner.SchedulerConfig{
		ScanInterval:    cfg.Schedule.ScanInterval,
		SyncInterval:    cfg.Schedule.MarketSyncInterval,
		CleanupInterval: cfg.Schedule.CleanupInterval,
	})
	sched.Start(ctx)
	defer sched.Stop()

	serverParams := server.Params{
		Config:   cfg,
		Trends:   repos.Trend,
		Analyses: repos.Analysis,
		Markets:  repos.Market,
		Meta:     repos.SourceMeta,
		Settings: settingsCache,
		Scanner:  scan,
		Version:  revision,
		Debug:    debug,
	}
	if analyzer != nil {
		serverParams.Marketing = analyzer
	}
	srv := server.New(serverParams)

	return srv.Run(ctx)
}

// configThresholds maps the configured engagement minimums to the
// scanner's baseline gates
func configThresholds(cfg *config.Config) trends.Thresholds {
	return trends.Thresholds{
		Forum: trends.ForumThresholds{
			MinUpvotes:  cfg.Thresholds.Forum.MinUpvotes,
			MinComments: cfg.Thresholds.Forum.MinComments,
			MinRatio:    cfg.Thresholds.Forum.MinRatio,
		},
		Microblog: trends.MicroblogThresholds{
			MinLikes:    cfg.Thresholds.Microblog.MinLikes,
			MinRetweets: cfg.Thresholds.Microblog.MinRetweets,
		},
		Web: trends.WebThresholds{MinScore: cfg.Thresholds.Web.MinScore},
	}
}

// secrets lists config values to mask in logs
func secrets(cfg *config.Config) []string {
	var res []string
	for _, s := range []string{
		cfg.LLM.APIKey,
		cfg.Sources.Microblog.APIToken,
		cfg.Sources.Web.APIKey,
		cfg.Notify.SlackWebhookURL,
		cfg.Server.ScanToken,
	} {
		if s != "" {
			res = append(res, s)
		}
	}
	return res
}

func setupLog(dbg, noColor bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	if dbg {
		logOpts = append(logOpts, lgr.Debug)
	}

	if !noColor {
		colorizer := lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}
		logOpts = append(logOpts, lgr.Map(colorizer))
	}

	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
