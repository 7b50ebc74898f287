package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"indexflow/config"
	"indexflow/internal/model"
	"indexflow/internal/pipeline"
	"indexflow/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		return 1
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		return 1
	}

	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Indexflow.Name,
		"version": cfg.Indexflow.Version,
	}).Info("starting indexflow")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner, err := pipeline.NewRunner(ctx, cfg)
	if err != nil {
		log.WithError(err).Error("Failed to build pipeline")
		return 1
	}
	defer runner.Close()

	summary, err := runner.Run(ctx)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrTransport):
			log.WithError(err).Error("transport failure reaching provider")
		case errors.Is(err, model.ErrAccessDenied):
			log.WithError(err).Error("provider denied access")
		case errors.Is(err, model.ErrMalformedPayload):
			log.WithError(err).Error("provider payload failed validation")
		default:
			log.WithError(err).Error("run failed")
		}
		return 1
	}

	log.WithFields(logger.Fields{
		"run_id":       summary.RunID,
		"rows_written": summary.RowsWritten,
		"duration_ms":  summary.Duration.Milliseconds(),
	}).Info("indexflow run completed")

	logger.ReportRunResources(log, filepath.Dir(cfg.Output.TablePath))

	return 0
}
