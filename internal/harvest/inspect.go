package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/tphakala/marcharvest/internal/datastore/entities"
	"github.com/tphakala/marcharvest/internal/errors"
	"github.com/tphakala/marcharvest/internal/fetch"
	"github.com/tphakala/marcharvest/internal/logger"
	"github.com/tphakala/marcharvest/internal/marc"
	"github.com/tphakala/marcharvest/internal/observability/metrics"
)

// Record lookup and rendering parameters.
const (
	PositionIndex  = "index"
	PositionOffset = "offset"
	ViewHTML       = "html"
	ViewText       = "text"

	// RecordUnavailable is returned when no well-formed record sits at the position.
	RecordUnavailable = "record unavaible or contain errors"

	countCacheTTL     = 10 * time.Minute
	countCacheCleanup = 20 * time.Minute
)

// ErrInvalidArgument marks a rejected inspection parameter.
var ErrInvalidArgument = errors.NewStd("invalid argument")

// CountResult is either a record total or the status of an unreadable file.
type CountResult struct {
	Status fetch.Status
	Total  int
}

// Value returns the total for readable files and the status string otherwise.
func (r CountResult) Value() any {
	if !r.Status.OK() {
		return r.Status.String()
	}
	return r.Total
}

func (r CountResult) String() string {
	if !r.Status.OK() {
		return r.Status.String()
	}
	return strconv.Itoa(r.Total)
}

// MarshalJSON encodes the result as {"result": <int or status string>}.
func (r CountResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"result": r.Value()})
}

// Inspector answers read-only questions about records files.
type Inspector struct {
	resolver Resolver
	counts   *cache.Cache
	group    singleflight.Group
	metrics  metrics.Recorder
	log      logger.Logger
}

// NewInspector creates an Inspector. recorder may be nil.
func NewInspector(resolver Resolver, recorder metrics.Recorder) *Inspector {
	return &Inspector{
		resolver: resolver,
		counts:   cache.New(countCacheTTL, countCacheCleanup),
		metrics:  recorder,
		log:      GetLogger(),
	}
}

// CalculateRecordsCount counts the records of file. Unreadable files yield
// their status instead of a total.
func (i *Inspector) CalculateRecordsCount(ctx context.Context, file *entities.SourceRecordsFile) (CountResult, error) {
	format, err := marc.ParseFormat(file.Format)
	if err != nil {
		return CountResult{}, fmt.Errorf("%w: No handler for format %s", ErrInvalidArgument, file.Format)
	}

	local, err := i.resolver.Resolve(ctx, file.FileURI)
	if err != nil {
		i.log.Warn("records file unreachable", logger.String("file", file.FileURI), logger.Error(err))
		return CountResult{Status: fetch.StatusUnreachable}, nil
	}
	defer local.Release()

	if status := fetch.FileStatus(local.Path); !status.OK() {
		return CountResult{Status: status}, nil
	}
	info, err := os.Stat(local.Path)
	if err != nil {
		return CountResult{Status: fetch.StatusNotExists}, nil
	}

	key := fmt.Sprintf("%s|%d|%d", local.Path, info.Size(), info.ModTime().UnixNano())
	if total, ok := i.counts.Get(key); ok {
		i.recordOp(metrics.OpCount, "cache_hit")
		return CountResult{Status: fetch.StatusOK, Total: total.(int)}, nil
	}

	v, err, _ := i.group.Do(key, func() (any, error) {
		f, err := os.Open(local.Path)
		if err != nil {
			return 0, err
		}
		defer func() { _ = f.Close() }()

		reader, err := format.NewReader(f)
		if err != nil {
			return 0, err
		}
		total, err := reader.TotalRecords()
		if err != nil {
			return 0, err
		}
		i.counts.Set(key, total, cache.DefaultExpiration)
		return total, nil
	})
	if err != nil {
		i.recordOp(metrics.OpCount, metrics.ResultError)
		return CountResult{}, errors.New(fmt.Errorf("count records: %w", err)).
			Component("harvest").
			Category(errors.CategoryFileIO).
			FileContext(local.Path, info.Size()).
			Build()
	}

	i.recordOp(metrics.OpCount, metrics.ResultSuccess)
	return CountResult{Status: fetch.StatusOK, Total: v.(int)}, nil
}

// RecordContent renders one record of file. positionType is "index"
// (0-based record number) or "offset" (byte offset of the record start),
// view is "html" or "text". Empty values select index, html.
func (i *Inspector) RecordContent(ctx context.Context, file *entities.SourceRecordsFile, positionType string, position int64, view string) (string, error) {
	if positionType == "" {
		positionType = PositionIndex
	}
	if view == "" {
		view = ViewHTML
	}
	if positionType != PositionIndex && positionType != PositionOffset {
		return "", fmt.Errorf("%w: position type must be %q or %q, got %q", ErrInvalidArgument, PositionIndex, PositionOffset, positionType)
	}
	if view != ViewHTML && view != ViewText {
		return "", fmt.Errorf("%w: view must be %q or %q, got %q", ErrInvalidArgument, ViewHTML, ViewText, view)
	}

	format, err := marc.ParseFormat(file.Format)
	if err != nil {
		return "No handler for format " + file.Format, nil
	}
	schema, err := marc.ParseSchema(file.Schema)
	if err != nil {
		return "No handler for schema " + file.Schema, nil
	}

	local, err := i.resolver.Resolve(ctx, file.FileURI)
	if err != nil {
		return fetch.StatusUnreachable.String(), nil
	}
	defer local.Release()

	if status := fetch.FileStatus(local.Path); !status.OK() {
		return status.String(), nil
	}

	f, err := os.Open(local.Path)
	if err != nil {
		return fetch.StatusAccessDenied.String(), nil
	}
	defer func() { _ = f.Close() }()

	reader, err := format.NewReader(f,
		marc.WithEncoding(file.Encoding),
		marc.WithExtendedSubfieldCode(schema.ExtendedSubfieldCode()))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	target := findRecord(reader, positionType, position)
	i.recordOp(metrics.OpRecordContent, view)
	if target == nil || len(target.Errors()) > 0 {
		return RecordUnavailable, nil
	}
	if view == ViewHTML {
		return target.HTML(), nil
	}
	return "<plaintext>" + target.String() + "</plaintext>", nil
}

// findRecord scans reader until it reaches position or passes it.
func findRecord(reader marc.Reader, positionType string, position int64) *marc.Record {
	for rec, err := range reader.Records() {
		if err != nil {
			return nil
		}
		current := int64(reader.Index())
		if positionType == PositionOffset {
			current = reader.Offset()
		}
		if current == position {
			return rec
		}
		if current > position {
			return nil
		}
	}
	return nil
}

func (i *Inspector) recordOp(op, status string) {
	if i.metrics != nil {
		i.metrics.RecordOperation(op, status)
	}
}
