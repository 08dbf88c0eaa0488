package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Collect handles POST /collect and harvests every active source.
func (c *Controller) Collect(ctx echo.Context) error {
	statuses, err := c.driver.Collect(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "collect failed", statusCode(err))
	}
	return ctx.JSON(http.StatusOK, statuses)
}

// CollectSource handles POST /sources/:code/collect.
func (c *Controller) CollectSource(ctx echo.Context) error {
	code := ctx.Param("code")
	status, err := c.driver.CollectSource(ctx.Request().Context(), code)
	if err != nil {
		return c.HandleError(ctx, err, "collect of source "+code+" failed", statusCode(err))
	}
	return ctx.JSON(http.StatusOK, status)
}
