// Package harvest reconciles bibliographic dump files with the record store.
//
// A run walks active sources, then their files, then batches of records:
//
//	Driver.Collect
//	  └─ SourceHarvester.Harvest      one RunContext per source
//	       └─ FileHarvester.Harvest   stream, derive identities, batch
//	            └─ Reconciler.Apply   create, update, touch
//
// The whole Collect run shares one database transaction.
package harvest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/marcharvest/internal/datastore/entities"
	"github.com/tphakala/marcharvest/internal/fetch"
	"github.com/tphakala/marcharvest/internal/logger"
)

// Defaults for Config.
const (
	DefaultBatchSize        = 20
	DefaultProgressEvery    = 100
	DefaultProgressInterval = 5 * time.Second

	// DumpSchema tags the serialization stored in record contents.
	DumpSchema = "junimarc"
)

// GetLogger returns the harvest module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("harvest")
}

// Config tunes batching and progress logging.
type Config struct {
	BatchSize        int
	ProgressEvery    int
	ProgressInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.ProgressEvery <= 0 {
		c.ProgressEvery = DefaultProgressEvery
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = DefaultProgressInterval
	}
	return c
}

// Clock returns the current time.
type Clock func() time.Time

// RunContext identifies one source run. Every record written by the run
// carries its SessionID and Now.
type RunContext struct {
	SessionID int64
	Now       time.Time
	RunID     string
}

// NewRunContext starts a run at now.
func NewRunContext(now time.Time) RunContext {
	return RunContext{
		SessionID: now.Unix(),
		Now:       now,
		RunID:     uuid.NewString(),
	}
}

// After moves the session id past last. Session ids of a source must grow
// strictly, or records dropped between two runs started in the same second
// would count as seen.
func (r RunContext) After(last int64) RunContext {
	if r.SessionID <= last {
		r.SessionID = last + 1
	}
	return r
}

// Context attaches the run id to ctx as the trace id.
func (r RunContext) Context(ctx context.Context) context.Context {
	return logger.WithTraceID(ctx, r.RunID)
}

// Resolver maps a file URI to a readable local file.
type Resolver interface {
	Resolve(ctx context.Context, uri string) (*fetch.Local, error)
}

// StatusPublisher announces finished source runs.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, source *entities.Source, status *entities.HarvestingStatus) error
}
