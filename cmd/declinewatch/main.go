package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"DeclineWatch/internal/api"
	"DeclineWatch/internal/collector"
	"DeclineWatch/internal/config"
	"DeclineWatch/internal/notifier"
	"DeclineWatch/internal/recorder"
	"DeclineWatch/internal/report"
	"DeclineWatch/internal/scheduler"
	"DeclineWatch/internal/snapshot"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] DeclineWatch starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}
	buckets, err := cfg.Buckets()
	if err != nil {
		log.Fatalf("[FATAL] buckets: %v", err)
	}

	// Init fetcher
	var fetcher collector.Fetcher
	if cfg.DataSource.BaseURL != "" {
		fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, cfg.FetchTimeout())
	} else {
		fetcher = collector.NewYahooFetcher(cfg.Proxy, cfg.FetchTimeout())
	}
	fetcher = collector.NewRetryFetcher(fetcher, cfg.DataSource.MaxRetries, cfg.RetryDelay())
	if cfg.Cache.RedisAddr != "" {
		cache, err := collector.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			log.Printf("[WARN] redis cache unavailable, fetching directly: %v", err)
		} else {
			defer cache.Close()
			fetcher = collector.NewCachedFetcher(fetcher, cache, cfg.CacheTTL())
		}
	}
	log.Printf("[INFO] data source: %s", fetcher.Name())

	// Init listing
	var listing collector.ListingSource
	if cfg.DataSource.ListingFile != "" {
		listing = &collector.FileListing{Path: cfg.DataSource.ListingFile}
	} else {
		listing = collector.NewKRXListing(cfg.Proxy, cfg.FetchTimeout())
	}
	log.Printf("[INFO] listing source: %s", listing.Name())

	// Init collector
	col := collector.NewCollector(fetcher, listing, collector.Options{
		Selection:  cfg.Selection(),
		PeriodDays: cfg.Analysis.PeriodDays,
		SampleSize: cfg.Analysis.SampleSize,
		Workers:    cfg.Analysis.Workers,
		TopN:       cfg.Analysis.TopN,
		Buckets:    buckets,
		Timeout:    cfg.RunTimeout(),
	})

	// Init snapshot
	snap, err := snapshot.NewManager(cfg.State.SnapshotFile)
	if err != nil {
		log.Fatalf("[FATAL] init snapshot: %v", err)
	}

	// Init Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	if !tn.Enabled() {
		log.Println("[INFO] Telegram not configured, notifications disabled")
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0755); err != nil {
			log.Printf("[WARN] create database dir: %v", err)
		}
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	writer := report.NewWriter(cfg.Output.Dir, cfg.Output.HTMLFile, cfg.Output.ExcelFile, cfg.Output.ChartFile)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.NewScheduler(ctx, col, writer, snap, tn, rec)
	sched.Language = notifier.Language(cfg.Telegram.Language)

	// One-shot mode: analyze, publish and exit
	if once, _ := strconv.ParseBool(os.Getenv("RUN_ONCE")); once {
		result, err := sched.RunNow(ctx)
		if err != nil {
			log.Fatalf("[FATAL] analysis: %v", err)
		}
		log.Printf("[INFO] run %s: %d analyzed, %d excluded, mean %v",
			result.RunID, len(result.Records), len(result.Excluded), result.Stats.Mean)
		return
	}

	if err := sched.Register(cfg.Schedule.AnalysisCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if tn.Enabled() {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	// Start HTTP API
	srv := api.NewServer(snap, rec, sched, cfg.Output.Dir)
	go func() {
		if err := srv.Start(ctx, cfg.Server.Addr); err != nil {
			log.Printf("[ERROR] api server: %v", err)
		}
	}()

	// Optional: run immediately on start
	if cfg.Schedule.RunOnStart {
		log.Println("[INFO] RUN_ON_START enabled, executing analysis now")
		if err := sched.TriggerAsync(); err != nil {
			log.Printf("[WARN] run on start: %v", err)
		}
	}

	log.Println("[INFO] DeclineWatch is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] DeclineWatch stopped")
}
