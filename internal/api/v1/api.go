// Package api implements the /api/v1 JSON endpoints of the harvest server.
package api

import (
	"crypto/rand"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/tphakala/marcharvest/internal/datastore/repository"
	"github.com/tphakala/marcharvest/internal/harvest"
	"github.com/tphakala/marcharvest/internal/logger"
)

// Prefix is the route prefix of the API.
const Prefix = "/api/v1"

// GetLogger returns the api module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Controller manages the API routes and handlers
type Controller struct {
	Echo  *echo.Echo
	Group *echo.Group

	db        *gorm.DB
	driver    *harvest.Driver
	inspector *harvest.Inspector
	log       logger.Logger
}

// New creates the API controller and registers its routes under Prefix.
func New(e *echo.Echo, db *gorm.DB, driver *harvest.Driver, inspector *harvest.Inspector) *Controller {
	c := &Controller{
		Echo:      e,
		Group:     e.Group(Prefix),
		db:        db,
		driver:    driver,
		inspector: inspector,
		log:       GetLogger(),
	}
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.POST("/collect", c.Collect)
	c.Group.POST("/sources/:code/collect", c.CollectSource)

	c.Group.GET("/sources", c.ListSources)
	c.Group.GET("/sources/:code", c.GetSource)
	c.Group.GET("/sources/:code/files", c.ListFiles)
	c.Group.GET("/sources/:code/statuses", c.ListStatuses)
	c.Group.GET("/sources/:code/files/:id/calculate_records_count", c.CalculateRecordsCount)
	c.Group.GET("/sources/:code/files/:id/testing", c.RecordContent)
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

// generateCorrelationID creates a random identifier for error tracking.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError logs err and writes an ErrorResponse with code.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	log := c.log.WithContext(ctx.Request().Context())
	if code >= http.StatusInternalServerError {
		log.Error("API error", fields...)
	} else {
		log.Warn("API error", fields...)
	}

	return ctx.JSON(code, resp)
}

// statusCode maps domain errors onto HTTP status codes.
func statusCode(err error) int {
	switch {
	case errors.Is(err, repository.ErrSourceNotFound),
		errors.Is(err, repository.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, harvest.ErrInvalidArgument),
		errors.Is(err, repository.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
