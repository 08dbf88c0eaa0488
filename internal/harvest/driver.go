package harvest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/marcharvest/internal/datastore/entities"
	"github.com/tphakala/marcharvest/internal/datastore/repository"
	"github.com/tphakala/marcharvest/internal/errors"
	"github.com/tphakala/marcharvest/internal/logger"
	"github.com/tphakala/marcharvest/internal/observability/metrics"
)

// Driver runs harvests inside database transactions, one run at a time.
type Driver struct {
	mu      sync.Mutex
	db      *gorm.DB
	sources *SourceHarvester
	metrics HarvestMetrics
	log     logger.Logger
}

// NewDriver creates a Driver over db.
func NewDriver(db *gorm.DB, resolver Resolver, cfg Config, opts ...Option) *Driver {
	o := buildOptions(opts)
	return &Driver{
		db:      db,
		sources: NewSourceHarvester(resolver, cfg, opts...),
		metrics: o.metrics,
		log:     GetLogger(),
	}
}

// Collect harvests every active source, in id order, in one transaction.
// Any store error rolls back the whole run.
func (d *Driver) Collect(ctx context.Context) ([]*entities.HarvestingStatus, error) {
	var statuses []*entities.HarvestingStatus
	err := d.transaction(ctx, metrics.OpCollect, func(tx *gorm.DB) error {
		active, err := repository.NewSourceRepository(tx).GetActive(ctx)
		if err != nil {
			return errors.New(fmt.Errorf("list active sources: %w", err)).
				Component("harvest").
				Category(errors.CategoryDatabase).
				Build()
		}
		d.log.Info("collect started", logger.Int("sources", len(active)))

		for _, source := range active {
			status, err := d.sources.Harvest(ctx, tx, source)
			if err != nil {
				return err
			}
			statuses = append(statuses, status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return statuses, nil
}

// CollectSource harvests the source with code in its own transaction,
// whether or not it is active.
func (d *Driver) CollectSource(ctx context.Context, code string) (*entities.HarvestingStatus, error) {
	var status *entities.HarvestingStatus
	err := d.transaction(ctx, metrics.OpCollectSource, func(tx *gorm.DB) error {
		source, err := repository.NewSourceRepository(tx).GetByCode(ctx, code)
		if err != nil {
			return err
		}
		status, err = d.sources.Harvest(ctx, tx, source)
		return err
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

func (d *Driver) transaction(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	err := d.db.WithContext(ctx).Transaction(fn)

	result := metrics.ResultCommit
	if err != nil {
		result = metrics.ResultRollback
		d.log.Error("harvest rolled back", logger.String("operation", op), logger.Error(err))
	}
	if d.metrics != nil {
		d.metrics.RecordOperation(op, result)
		d.metrics.RecordDuration(op, time.Since(start).Seconds())
	}
	return err
}
