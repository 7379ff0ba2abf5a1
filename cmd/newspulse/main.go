package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/umputun/newspulse/pkg/config"
	"github.com/umputun/newspulse/pkg/feed"
	"github.com/umputun/newspulse/pkg/pipeline"
	"github.com/umputun/newspulse/pkg/store"
	"github.com/umputun/newspulse/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"f" long:"config" env:"CONFIG" default:"config.yml" description:"config file path"`

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

	cfg, err := config.Load(opts.Config)
	if err != nil {
		log.Printf("[ERROR] can't load config %s: %v", opts.Config, err)
		os.Exit(1)
	}

	var secrets []string
	if cfg.News.APIKey != "" {
		secrets = append(secrets, cfg.News.APIKey)
	}
	setupLog(opts.Debug, secrets...)

	log.Printf("[INFO] starting newspulse version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, cfg, opts.Debug); err != nil {
		log.Printf("[ERROR] %v", err)
		cancel()
		os.Exit(1)
	}
	cancel()

	log.Print("[INFO] shutdown complete")
}

// run wires the store, fetcher, manager and server together and blocks
// until the context is canceled
func run(ctx context.Context, cfg *config.Config, debug bool) error {
	kv, err := openKV(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if closer, ok := kv.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Printf("[WARN] store close error: %v", err)
			}
		}()
	}
	articleStore := store.NewStore(kv, nil)

	fetcher, err := makeFetcher(cfg.News)
	if err != nil {
		return fmt.Errorf("make fetcher: %w", err)
	}

	manager := pipeline.NewManagerWithParams(fetcher, cfg.Search.Debounce, cfg.News.Country, cfg.News.Category)
	if err := manager.Start(ctx); err != nil {
		// initial fetch failure is not fatal, the set stays empty until a retry
		log.Printf("[WARN] initial fetch failed: %v", err)
	}
	defer manager.Stop()

	srv := server.New(cfg, manager, articleStore, revision, debug)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// openKV opens the configured key-value backend, "memory" keeps everything
// in process
func openKV(ctx context.Context, cfg *config.Config) (store.KV, error) {
	if cfg.Database.DSN == "memory" {
		log.Printf("[INFO] using in-memory store")
		return store.NewMemoryKV(), nil
	}

	log.Printf("[INFO] using sqlite store, dsn: %s", cfg.Database.DSN)
	return store.NewSQLiteKV(ctx, store.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
}

// makeFetcher picks the headline source from the config
func makeFetcher(news config.NewsConfig) (pipeline.Fetcher, error) {
	switch news.Source {
	case "api":
		log.Printf("[INFO] using news api source, endpoint: %s", news.Endpoint)
		return feed.NewClient(news.Endpoint, news.APIKey, news.Timeout), nil
	case "rss":
		log.Printf("[INFO] using rss source, %d categories", len(news.Feeds))
		return feed.NewRSSFetcher(news.Feeds, news.Timeout, news.Workers), nil
	default:
		return nil, fmt.Errorf("unknown news source %q", news.Source)
	}
}

func setupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
