// Package pipeline wires the per-run stages: fetch, validate, extract,
// filter, serialize. One Runner performs exactly one run; scheduling is
// external.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"indexflow/config"
	"indexflow/internal/journal"
	"indexflow/internal/pipeline/archive"
	"indexflow/internal/pipeline/extract"
	"indexflow/internal/pipeline/fetcher"
	"indexflow/internal/pipeline/filter"
	"indexflow/internal/pipeline/tablewriter"
	"indexflow/internal/pipeline/validate"
	"indexflow/logger"
)

type payloadFetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

type artifactArchiver interface {
	Upload(ctx context.Context, runTime time.Time, runID string, paths ...string) error
}

// Summary aggregates the counters of one completed run.
type Summary struct {
	RunID        string
	PayloadBytes int
	Extracted    int
	Survived     int
	RowsWritten  int
	Duration     time.Duration
}

type Runner struct {
	cfg       *config.Config
	log       *logger.Log
	jrnl      *journal.Journal
	fetcher   payloadFetcher
	validator *validate.Validator
	extractor extract.Extractor
	filter    *filter.SessionFilter
	table     *tablewriter.CSVWriter
	parquet   *tablewriter.ParquetMirror
	archiver  artifactArchiver
}

// NewRunner builds the full stage chain from configuration. The S3 archiver
// is only constructed when storage is enabled; its construction errors are
// fatal so credential problems surface at startup, not mid-run.
func NewRunner(ctx context.Context, cfg *config.Config) (*Runner, error) {
	sessionFilter, err := filter.NewSession(cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("build session filter: %w", err)
	}

	r := &Runner{
		cfg:       cfg,
		log:       logger.GetLogger(),
		jrnl:      journal.New(cfg.Journal),
		fetcher:   fetcher.New(cfg),
		validator: validate.New(cfg.Source.DenialMarker, cfg.Source.ValidateStructure),
		extractor: extract.ForStrategy(cfg.Extraction.Strategy),
		filter:    sessionFilter,
		table:     tablewriter.NewCSV(cfg.Output.TablePath),
	}

	if cfg.Output.Parquet.Enabled {
		r.parquet = tablewriter.NewParquetMirror(cfg.Output.Parquet)
	}

	if cfg.Storage.S3.Enabled {
		archiver, err := archive.NewS3Archiver(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("build s3 archiver: %w", err)
		}
		r.archiver = archiver
	}

	return r, nil
}

// Close releases the journal file handle.
func (r *Runner) Close() error {
	return r.jrnl.Close()
}

// Run executes one complete pipeline pass. Fatal taxonomy errors come back
// wrapped around the model sentinels for the caller to map to an exit code;
// the raw payload artifact is persisted before any validation verdict.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.New().String()
	start := time.Now()
	log := r.log.WithComponent("pipeline").WithFields(logger.Fields{"run_id": runID})

	log.Info("run started")
	r.jrnl.Event("run %s started", runID)

	raw, err := r.fetcher.Fetch(ctx)
	if err != nil {
		r.jrnl.Event("run %s aborted: fetch failed: %v", runID, err)
		return nil, err
	}
	r.jrnl.Event("fetched %d bytes from provider", len(raw))

	if err := os.WriteFile(r.cfg.Output.RawPath, raw, 0644); err != nil {
		r.jrnl.Event("run %s aborted: raw payload persistence failed: %v", runID, err)
		return nil, fmt.Errorf("persist raw payload: %w", err)
	}
	r.jrnl.Event("raw payload persisted to %s", r.cfg.Output.RawPath)

	if err := r.validator.Check(raw); err != nil {
		r.jrnl.Event("run %s aborted: validation failed: %v", runID, err)
		return nil, err
	}
	r.jrnl.Event("payload validated")

	observations, err := r.extractor.Extract(raw)
	if err != nil {
		r.jrnl.Event("run %s aborted: extraction failed: %v", runID, err)
		return nil, err
	}
	r.jrnl.Event("extracted %d observations", len(observations))
	logger.LogDataFlowEntry(log, "provider_payload", "session_filter", len(observations), "observations")

	records := r.filter.Apply(observations)
	r.jrnl.Event("%d observations inside session window", len(records))

	rows, err := r.table.Write(records)
	if err != nil {
		r.jrnl.Event("run %s aborted: table write failed: %v", runID, err)
		return nil, err
	}
	r.jrnl.Event("output table written to %s (%d rows)", r.cfg.Output.TablePath, rows)
	logger.LogDataFlowEntry(log, "session_filter", "output_table", rows, "rows")

	if r.parquet != nil {
		if n, err := r.parquet.Write(records); err != nil {
			log.WithError(err).Warn("parquet mirror write failed")
			r.jrnl.Event("parquet mirror write failed: %v", err)
		} else {
			r.jrnl.Event("parquet mirror written to %s (%d rows)", r.cfg.Output.Parquet.Path, n)
		}
	}

	if r.archiver != nil {
		if err := r.archiver.Upload(ctx, start, runID, r.cfg.Output.RawPath, r.cfg.Output.TablePath); err != nil {
			log.WithError(err).Warn("artifact archival failed")
			r.jrnl.Event("artifact archival failed: %v", err)
		} else {
			r.jrnl.Event("artifacts archived")
		}
	}

	r.logOutcome(runID, rows)

	summary := &Summary{
		RunID:        runID,
		PayloadBytes: len(raw),
		Extracted:    len(observations),
		Survived:     len(records),
		RowsWritten:  rows,
		Duration:     time.Since(start),
	}

	r.log.LogMetric("pipeline", "observations_extracted", summary.Extracted, "counter", logger.Fields{"run_id": runID})
	r.log.LogMetric("pipeline", "rows_written", summary.RowsWritten, "counter", logger.Fields{"run_id": runID})

	log.WithFields(logger.Fields{
		"payload_bytes": summary.PayloadBytes,
		"extracted":     summary.Extracted,
		"survived":      summary.Survived,
		"rows_written":  summary.RowsWritten,
		"duration_ms":   summary.Duration.Milliseconds(),
	}).Info("run completed")

	return summary, nil
}

// logOutcome records the coarse success signal: only non-emptiness of the
// output table is checked, so a header-only file on a zero-row run still
// counts as success.
func (r *Runner) logOutcome(runID string, rows int) {
	info, err := os.Stat(r.cfg.Output.TablePath)
	if err != nil || info.Size() == 0 {
		r.jrnl.Event("run %s finished: output table missing or empty", runID)
		return
	}
	r.jrnl.Event("run %s finished successfully (%d rows)", runID, rows)
}
