package harvest

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/marcharvest/internal/datastore/entities"
	"github.com/tphakala/marcharvest/internal/datastore/repository"
	"github.com/tphakala/marcharvest/internal/logger"
	"github.com/tphakala/marcharvest/internal/observability/metrics"
)

// Option configures a SourceHarvester or Driver.
type Option func(*options)

type options struct {
	clock     Clock
	metrics   HarvestMetrics
	publisher StatusPublisher
}

// WithClock replaces time.Now.
func WithClock(clock Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithMetrics records run metrics.
func WithMetrics(m HarvestMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithPublisher announces every stored status.
func WithPublisher(p StatusPublisher) Option {
	return func(o *options) { o.publisher = p }
}

func buildOptions(opts []Option) options {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SourceHarvester runs all files of one source under a single RunContext.
type SourceHarvester struct {
	resolver Resolver
	cfg      Config
	opts     options
	log      logger.Logger
}

// NewSourceHarvester creates a SourceHarvester.
func NewSourceHarvester(resolver Resolver, cfg Config, opts ...Option) *SourceHarvester {
	return &SourceHarvester{
		resolver: resolver,
		cfg:      cfg.withDefaults(),
		opts:     buildOptions(opts),
		log:      GetLogger(),
	}
}

// Harvest collects source through db and appends its HarvestingStatus.
// Records not seen by this run are tombstoned when source.Reset is set.
func (h *SourceHarvester) Harvest(ctx context.Context, db *gorm.DB, source *entities.Source) (*entities.HarvestingStatus, error) {
	run := NewRunContext(h.opts.clock())
	ctx = run.Context(ctx)
	log := h.log.WithContext(ctx).With(logger.String("source", source.Code))
	start := time.Now()

	sources := repository.NewSourceRepository(db)
	records := repository.NewRecordRepository(db)
	statuses := repository.NewStatusRepository(db)

	last, err := statuses.LastSessionID(ctx, source.ID)
	if err != nil {
		h.recordRun(metrics.ResultError, start)
		return nil, storeError(err, "last session", run)
	}
	run = run.After(last)

	files, err := sources.Files(ctx, source.ID)
	if err != nil {
		h.recordRun(metrics.ResultError, start)
		return nil, storeError(err, "list files", run)
	}

	log.Info("start collecting source",
		logger.Int64("session_id", run.SessionID),
		logger.Int("files", len(files)),
		logger.Bool("reset", source.Reset))

	status := &entities.HarvestingStatus{
		SourceID:  source.ID,
		RunID:     run.RunID,
		CreatedAt: run.Now,
		SessionID: run.SessionID,
	}
	var messages []string

	fh := NewFileHarvester(records, h.resolver, h.opts.metrics, h.cfg)
	for _, file := range files {
		stats, err := fh.Harvest(ctx, run, source, file)
		if err != nil {
			h.recordRun(metrics.ResultError, start)
			return nil, err
		}
		status.Created += stats.Created
		status.Updated += stats.Updated
		status.Processed += stats.Processed
		status.TotalRecords += stats.TotalRecords
		if stats.Failed() {
			status.Error = true
		}
		if stats.Message != "" {
			messages = append(messages, stats.Message)
		}
	}

	if source.Reset {
		deleted, err := records.TombstoneAbsent(ctx, source.Code, run.SessionID, run.Now)
		if err != nil {
			h.recordRun(metrics.ResultError, start)
			return nil, storeError(err, "tombstone", run)
		}
		status.Deleted = deleted
	}

	status.Message = entities.TruncateMessage(strings.Join(messages, "; "))
	if err := statuses.Append(ctx, status); err != nil {
		h.recordRun(metrics.ResultError, start)
		return nil, storeError(err, "append status", run)
	}

	log.Info("source collected",
		logger.Int64("session_id", run.SessionID),
		logger.Int("total_records", status.TotalRecords),
		logger.Int("processed", status.Processed),
		logger.Int("percent", Percent(status.Processed, status.TotalRecords)),
		logger.Int("created", status.Created),
		logger.Int("updated", status.Updated),
		logger.Int64("for_delete", status.Deleted),
		logger.Bool("error", status.Error),
		logger.Duration("elapsed", time.Since(start)))

	h.recordRun(metrics.ResultSuccess, start)
	if m := h.opts.metrics; m != nil {
		m.AddTombstoned(source.Code, status.Deleted)
		m.SetLastRun(source.Code, run.SessionID)
	}
	h.publish(ctx, log, source, status)

	return status, nil
}

func (h *SourceHarvester) recordRun(result string, start time.Time) {
	if m := h.opts.metrics; m != nil {
		m.RecordOperation(metrics.OpSourceRun, result)
		m.RecordDuration(metrics.OpSourceRun, time.Since(start).Seconds())
	}
}

func (h *SourceHarvester) publish(ctx context.Context, log logger.Logger, source *entities.Source, status *entities.HarvestingStatus) {
	if h.opts.publisher == nil {
		return
	}
	if err := h.opts.publisher.PublishStatus(ctx, source, status); err != nil {
		log.Warn("failed to publish harvesting status", logger.Error(err))
	}
}
