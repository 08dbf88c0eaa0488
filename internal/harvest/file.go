package harvest

import (
	"context"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/tphakala/marcharvest/internal/datastore/entities"
	"github.com/tphakala/marcharvest/internal/datastore/repository"
	"github.com/tphakala/marcharvest/internal/errors"
	"github.com/tphakala/marcharvest/internal/fetch"
	"github.com/tphakala/marcharvest/internal/identity"
	"github.com/tphakala/marcharvest/internal/logger"
	"github.com/tphakala/marcharvest/internal/marc"
	"github.com/tphakala/marcharvest/internal/observability/metrics"
)

// FileStats summarizes one file of a source run.
type FileStats struct {
	Processed    int
	Created      int
	Updated      int
	Touched      int
	ParseErrors  int
	TotalRecords int
	Batches      int
	Status       fetch.Status
	Message      string
	Skipped      bool  // the file contributed nothing
	Err          error // categorized cause of Message, nil on success
}

// Failed reports whether the file could not be harvested or had bad records.
func (s FileStats) Failed() bool {
	return s.Skipped || !s.Status.OK() || s.ParseErrors > 0
}

func (s *FileStats) add(b BatchResult) {
	s.Created += b.Created
	s.Updated += b.Updated
	s.Touched += b.Touched
	s.Batches++
}

// HarvestMetrics is the subset of metrics the harvester records.
type HarvestMetrics interface {
	metrics.Recorder
	AddRecords(source, outcome string, n int)
	IncBatches()
	AddTombstoned(source string, n int64)
	SetLastRun(source string, sessionID int64)
}

// FileHarvester streams one records file into the store.
type FileHarvester struct {
	records  repository.RecordRepository
	resolver Resolver
	metrics  HarvestMetrics
	cfg      Config
	log      logger.Logger
}

// NewFileHarvester creates a FileHarvester. metrics may be nil.
func NewFileHarvester(records repository.RecordRepository, resolver Resolver, m HarvestMetrics, cfg Config) *FileHarvester {
	return &FileHarvester{
		records:  records,
		resolver: resolver,
		metrics:  m,
		cfg:      cfg.withDefaults(),
		log:      GetLogger(),
	}
}

// Harvest reconciles every record of file. Problems with the file itself end
// up in the returned stats; only store errors are returned as errors.
func (h *FileHarvester) Harvest(ctx context.Context, run RunContext, source *entities.Source, file *entities.SourceRecordsFile) (FileStats, error) {
	log := h.log.WithContext(ctx).With(
		logger.String("source", source.Code),
		logger.String("file", file.FileURI))

	start := time.Now()
	stats := FileStats{Status: fetch.StatusOK}

	format, err := marc.ParseFormat(file.Format)
	if err != nil {
		return h.fileError(log, stats, fetch.StatusOK, unsupported("No handler for format "+file.Format, "format", file.Format)), nil
	}
	schema, err := marc.ParseSchema(file.Schema)
	if err != nil {
		return h.fileError(log, stats, fetch.StatusOK, unsupported("No handler for schema "+file.Schema, "schema", file.Schema)), nil
	}

	local, err := h.resolver.Resolve(ctx, file.FileURI)
	if err != nil {
		return h.fileError(log, stats, fetch.StatusUnreachable, errors.FileError(err, file.FileURI, 0)), nil
	}
	defer local.Release()

	if status := fetch.FileStatus(local.Path); !status.OK() {
		err := errors.NewStd(fmt.Sprintf("%s: %s", file.FileURI, status))
		return h.fileError(log, stats, status, errors.FileError(err, local.Path, 0)), nil
	}

	f, err := os.Open(local.Path)
	if err != nil {
		return h.fileError(log, stats, fetch.StatusAccessDenied, errors.FileError(err, local.Path, 0)), nil
	}
	defer func() { _ = f.Close() }()

	reader, err := format.NewReader(f,
		marc.WithEncoding(file.Encoding),
		marc.WithExtendedSubfieldCode(schema.ExtendedSubfieldCode()))
	if err != nil {
		return h.fileError(log, stats, fetch.StatusOK, unsupported(fmt.Sprintf("%s: %v", file.FileURI, err), "encoding", file.Encoding)), nil
	}

	log.Info("start collecting file")
	stats.TotalRecords, err = reader.TotalRecords()
	if err != nil {
		err = fmt.Errorf("%s: %w", file.FileURI, err)
		return h.fileError(log, stats, fetch.StatusOK, errors.FileError(err, local.Path, 0)), nil
	}
	log.Debug("total records calculated", logger.Int("total_records", stats.TotalRecords))

	reconciler := NewReconciler(h.records)
	reset := source.Reset
	batch := make([]repository.Candidate, 0, h.cfg.BatchSize)
	prog := newProgress(log, stats.TotalRecords, h.cfg)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		res, err := reconciler.Apply(ctx, run, reset, batch)
		if err != nil {
			return err
		}
		stats.add(res)
		if h.metrics != nil {
			h.metrics.IncBatches()
		}
		batch = batch[:0]
		return nil
	}

	for rec, readErr := range reader.Records() {
		if readErr != nil {
			stats.Message = fmt.Sprintf("%s: %v", file.FileURI, readErr)
			stats.ParseErrors++
			log.Warn("reading records failed",
				logger.String("category", string(errors.CategoryFileParsing)),
				logger.Error(readErr))
			break
		}
		stats.Processed++
		prog.report(stats.Processed)

		if errs := rec.Errors(); len(errs) > 0 {
			stats.ParseErrors++
			log.Warn("skipping malformed record",
				logger.String("category", string(errors.CategoryFileParsing)),
				logger.Int("index", reader.Index()),
				logger.Int64("offset", reader.Offset()),
				logger.Error(errors.Join(errs...)))
			continue
		}

		c, err := candidate(rec, source, run)
		if err != nil {
			stats.ParseErrors++
			log.Warn("skipping malformed record",
				logger.String("category", string(errors.CategoryFileParsing)),
				logger.Int("index", reader.Index()),
				logger.Int64("offset", reader.Offset()),
				logger.Error(err))
			continue
		}
		batch = append(batch, c)

		if len(batch) >= h.cfg.BatchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return stats, errors.New(err).
			Component("harvest").
			Category(errors.CategoryCancellation).
			Context("processed", stats.Processed).
			Context("run_id", run.RunID).
			Build()
	}
	if err := flush(); err != nil {
		return stats, err
	}

	if stats.ParseErrors > 0 {
		if stats.Message == "" {
			stats.Message = fmt.Sprintf("%s: %d malformed records skipped", file.FileURI, stats.ParseErrors)
		}
		// Reported once per file, not per record.
		ee := errors.New(errors.NewStd(stats.Message)).
			Component("harvest").
			Category(errors.CategoryFileParsing).
			Priority(errors.PriorityLow).
			Context("parse_errors", stats.ParseErrors).
			Context("processed", stats.Processed).
			Build()
		stats.Err = ee
		log.Warn("malformed records skipped",
			logger.String("category", string(ee.Category)),
			logger.Int("parse_errors", stats.ParseErrors),
			logger.Error(ee))
	}

	elapsed := time.Since(start)
	h.record(source.Code, &stats, elapsed)
	log.Info("file collected",
		logger.Int("processed", stats.Processed),
		logger.Int("percent", Percent(stats.Processed, stats.TotalRecords)),
		logger.Int("created", stats.Created),
		logger.Int("updated", stats.Updated),
		logger.Int("parse_errors", stats.ParseErrors),
		logger.Float64("records_per_second", recordsPerSecond(stats.Processed, elapsed)),
		logger.Duration("elapsed", elapsed))

	return stats, nil
}

// candidate builds the store candidate of a well-formed record.
func candidate(rec *marc.Record, source *entities.Source, run RunContext) (repository.Candidate, error) {
	dump, err := rec.Dump()
	if err != nil {
		return repository.Candidate{}, err
	}
	id := identity.Derive(rec, dump)
	if n := utf8.RuneCountInString(id.OriginalID); n > entities.MaxOriginalIDLength {
		return repository.Candidate{}, fmt.Errorf("%s of %d characters exceeds %d",
			identity.OriginalIDTag, n, entities.MaxOriginalIDLength)
	}
	return repository.Candidate{
		ID:         id.ID,
		OriginalID: id.OriginalID,
		Hash:       id.Hash,
		Source:     source.Code,
		Schema:     DumpSchema,
		SessionID:  run.SessionID,
		CreatedAt:  run.Now,
		UpdatedAt:  run.Now,
		Content:    dump,
	}, nil
}

// unsupported reports a file whose format, schema or encoding has no handler.
func unsupported(msg, key, value string) *errors.EnhancedError {
	return errors.New(errors.NewStd(msg)).
		Component("harvest").
		Category(errors.CategoryValidation).
		Context(key, value).
		Build()
}

func (h *FileHarvester) fileError(log logger.Logger, stats FileStats, status fetch.Status, ee *errors.EnhancedError) FileStats {
	stats.Status = status
	stats.Message = ee.Error()
	stats.Err = ee
	stats.Skipped = true
	log.Warn("records file skipped",
		logger.String("status", status.String()),
		logger.String("category", string(ee.Category)),
		logger.Error(ee))
	if h.metrics != nil {
		h.metrics.RecordError(metrics.OpFileHarvest, status.String())
	}
	return stats
}

func (h *FileHarvester) record(source string, stats *FileStats, elapsed time.Duration) {
	if h.metrics == nil {
		return
	}
	h.metrics.AddRecords(source, metrics.OutcomeCreated, stats.Created)
	h.metrics.AddRecords(source, metrics.OutcomeUpdated, stats.Updated)
	h.metrics.AddRecords(source, metrics.OutcomeTouched, stats.Touched)
	h.metrics.AddRecords(source, metrics.OutcomeParseError, stats.ParseErrors)
	h.metrics.RecordDuration(metrics.OpFileHarvest, elapsed.Seconds())
}
