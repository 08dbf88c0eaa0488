package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// ResultResponse wraps an inspection answer.
type ResultResponse struct {
	Result any `json:"result"`
}

// CalculateRecordsCount handles GET /sources/:code/files/:id/calculate_records_count.
// The result is the record total or, for an unreadable file, its status.
func (c *Controller) CalculateRecordsCount(ctx echo.Context) error {
	file, err := c.file(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "records file not found", statusCode(err))
	}

	res, err := c.inspector.CalculateRecordsCount(ctx.Request().Context(), file)
	if err != nil {
		return c.HandleError(ctx, err, "failed to count records", statusCode(err))
	}
	return ctx.JSON(http.StatusOK, res)
}

// RecordContent handles GET /sources/:code/files/:id/testing.
//
// Query parameters: position_type (index|offset, default index), position
// (default 0) and view (html|text, default html).
func (c *Controller) RecordContent(ctx echo.Context) error {
	var position int64
	if raw := ctx.QueryParam("position"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return c.HandleError(ctx, err, "position must be a non-negative integer", http.StatusBadRequest)
		}
		position = n
	}

	file, err := c.file(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "records file not found", statusCode(err))
	}

	out, err := c.inspector.RecordContent(ctx.Request().Context(), file,
		ctx.QueryParam("position_type"), position, ctx.QueryParam("view"))
	if err != nil {
		return c.HandleError(ctx, err, "failed to render record", statusCode(err))
	}
	return ctx.JSON(http.StatusOK, ResultResponse{Result: out})
}
