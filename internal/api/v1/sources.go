package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/marcharvest/internal/datastore/entities"
	"github.com/tphakala/marcharvest/internal/datastore/repository"
	"github.com/tphakala/marcharvest/internal/fetch"
)

// Status listing limits.
const (
	DefaultStatusLimit = 20
	MaxStatusLimit     = 1000
)

// SourceResponse is a source with its newest harvesting status.
type SourceResponse struct {
	*entities.Source
	LatestStatus *entities.HarvestingStatus `json:"latest_status,omitempty"`
}

// FileResponse is a records file with the state of its local copy.
// Remote files are not inspected.
type FileResponse struct {
	*entities.SourceRecordsFile
	Remote bool `json:"remote"`
	*fetch.FileInfo
}

// ListSources handles GET /sources.
func (c *Controller) ListSources(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	sources, err := repository.NewSourceRepository(c.db).GetAll(reqCtx)
	if err != nil {
		return c.HandleError(ctx, err, "failed to list sources", http.StatusInternalServerError)
	}

	statuses := repository.NewStatusRepository(c.db)
	out := make([]SourceResponse, 0, len(sources))
	for _, src := range sources {
		resp := SourceResponse{Source: src}
		if latest, err := statuses.Latest(reqCtx, src.ID); err == nil {
			resp.LatestStatus = latest
		}
		out = append(out, resp)
	}
	return ctx.JSON(http.StatusOK, out)
}

// GetSource handles GET /sources/:code.
func (c *Controller) GetSource(ctx echo.Context) error {
	src, err := c.source(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "source not found", statusCode(err))
	}
	resp := SourceResponse{Source: src}
	if latest, err := repository.NewStatusRepository(c.db).Latest(ctx.Request().Context(), src.ID); err == nil {
		resp.LatestStatus = latest
	}
	return ctx.JSON(http.StatusOK, resp)
}

// ListFiles handles GET /sources/:code/files.
func (c *Controller) ListFiles(ctx echo.Context) error {
	src, err := c.source(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "source not found", statusCode(err))
	}
	files, err := repository.NewSourceRepository(c.db).Files(ctx.Request().Context(), src.ID)
	if err != nil {
		return c.HandleError(ctx, err, "failed to list files", http.StatusInternalServerError)
	}

	out := make([]FileResponse, 0, len(files))
	for _, f := range files {
		resp := FileResponse{SourceRecordsFile: f, Remote: fetch.IsRemote(f.FileURI)}
		if !resp.Remote {
			info := fetch.Describe(fetch.LocalPath(f.FileURI))
			resp.FileInfo = &info
		}
		out = append(out, resp)
	}
	return ctx.JSON(http.StatusOK, out)
}

// ListStatuses handles GET /sources/:code/statuses?limit=N, newest first.
func (c *Controller) ListStatuses(ctx echo.Context) error {
	limit := DefaultStatusLimit
	if raw := ctx.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > MaxStatusLimit {
			return c.HandleError(ctx, err, "limit must be between 1 and "+strconv.Itoa(MaxStatusLimit), http.StatusBadRequest)
		}
		limit = n
	}

	src, err := c.source(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "source not found", statusCode(err))
	}
	statuses, err := repository.NewStatusRepository(c.db).ListBySource(ctx.Request().Context(), src.ID, limit)
	if err != nil {
		return c.HandleError(ctx, err, "failed to list statuses", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, statuses)
}

func (c *Controller) source(ctx echo.Context) (*entities.Source, error) {
	return repository.NewSourceRepository(c.db).GetByCode(ctx.Request().Context(), ctx.Param("code"))
}

// file resolves :id and checks it belongs to :code.
func (c *Controller) file(ctx echo.Context) (*entities.SourceRecordsFile, error) {
	src, err := c.source(ctx)
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, repository.ErrFileNotFound
	}
	file, err := repository.NewSourceRepository(c.db).GetFile(ctx.Request().Context(), uint(id))
	if err != nil {
		return nil, err
	}
	if file.SourceID != src.ID {
		return nil, repository.ErrFileNotFound
	}
	return file, nil
}
