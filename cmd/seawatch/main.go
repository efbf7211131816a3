package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm/logger"

	"github.com/seawatch/seawatch/internal/config"
	"github.com/seawatch/seawatch/internal/database"
	"github.com/seawatch/seawatch/internal/dedup"
	"github.com/seawatch/seawatch/internal/downstream"
	"github.com/seawatch/seawatch/internal/jobs"
	"github.com/seawatch/seawatch/internal/logging"
	"github.com/seawatch/seawatch/internal/store"
	"github.com/seawatch/seawatch/internal/vocab"
)

func main() {
	once := flag.Bool("once", false, "run a single deduplication pass and exit")
	dryRun := flag.Bool("dry-run", false, "compute merge decisions without writing them")
	flag.Parse()

	// Load .env file if it exists (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fallback := logging.Fallback()
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	log, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fallback := logging.Fallback()
		fallback.Fatal().Err(err).Msg("failed to build logger")
	}

	var recordStore store.Store
	switch cfg.StoreMode {
	case config.StoreModePostgres:
		db, err := database.Connect(cfg.DatabaseURL, logger.Warn)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to record store database")
		}
		if err := database.AutoMigrate(db); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate record store database")
		}
		recordStore = store.NewGormStore(db)
		log.Info().Msg("using local postgres record store")
	case config.StoreModeHTTP:
		recordStore = store.NewHTTPStore(cfg.StoreBaseURL, cfg.StoreAPIToken, cfg.StoreHTTPTimeout)
		log.Info().Str("base_url", cfg.StoreBaseURL).Msg("using remote record store API")
	}

	weights := dedup.DefaultEngineWeights()
	if cfg.WeightsFile != "" {
		weights, err = dedup.LoadEngineWeights(cfg.WeightsFile)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.WeightsFile).Msg("failed to load weights file")
		}
		log.Info().Str("path", cfg.WeightsFile).Msg("loaded weight overrides")
	}

	vocabulary := vocab.Vocabulary(vocab.Default())
	if cfg.WeightsFile != "" {
		// The weights file may also carry a vocabulary section; a file
		// without one keeps the built-in vocabulary.
		if v, err := vocab.LoadStaticVocabulary(cfg.WeightsFile); err == nil {
			vocabulary = v
		}
	}

	var trigger downstream.Trigger = downstream.NoopTrigger{}
	if cfg.DownstreamWebhookURL != "" {
		trigger = downstream.NewWebhookTrigger(cfg.DownstreamWebhookURL, cfg.StoreHTTPTimeout)
	}

	service := dedup.NewService(recordStore, vocabulary, trigger, weights, log)
	opts := dedup.Options{
		DryRun:              cfg.DryRun || *dryRun,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		MaxRecords:          cfg.MaxRecords,
		LookbackDays:        cfg.LookbackDays,
	}

	ctx := context.Background()

	if *once {
		result, err := service.Run(ctx, opts)
		if err != nil {
			log.Fatal().Err(err).Msg("deduplication run failed")
		}
		log.Info().
			Int("records", result.RecordsAnalyzed).
			Int("merges", result.MergesPerformed).
			Int("potential_matches", result.PotentialMatchesFound).
			Msg("deduplication run complete")
		return
	}

	job := jobs.NewDedupJob(service, opts, time.Duration(cfg.RunIntervalMinutes)*time.Minute, log)
	log.Info().Int("interval_minutes", cfg.RunIntervalMinutes).Msg("starting dedup job loop")

	stop := make(chan struct{})
	go job.Start(ctx, stop)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	close(stop)
	log.Info().Msg("shutting down")
}
