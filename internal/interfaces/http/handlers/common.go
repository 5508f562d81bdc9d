// internal/interfaces/http/handlers/common.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/bakery-backend/internal/config"
	"github.com/your-org/bakery-backend/internal/domain/catalog"
	"github.com/your-org/bakery-backend/internal/domain/inventory"
	"github.com/your-org/bakery-backend/internal/domain/settlement"
	"github.com/your-org/bakery-backend/internal/pkg/dates"
)

// newLogger builds a logrus logger configured from the application config
func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

// parseUintParam parses a numeric path parameter
func parseUintParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name,
		})
		return 0, false
	}
	return uint(value), true
}

// parseDateQuery reads the optional ?date=YYYY-MM-DD query parameter,
// defaulting to today. Settlement flows take the effective date explicitly so
// late-night entry can still target the trading day being closed.
func parseDateQuery(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return dates.DateOnly(time.Now()), true
	}

	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid date, expected YYYY-MM-DD",
		})
		return time.Time{}, false
	}
	return parsed, true
}

// respondDomainError maps domain sentinel errors onto HTTP status codes
func respondDomainError(c *gin.Context, err error) {
	status := http.StatusBadRequest

	switch {
	case errors.Is(err, settlement.ErrAlreadySettled),
		errors.Is(err, settlement.ErrCountsNotRecorded):
		status = http.StatusConflict
	case errors.Is(err, inventory.ErrInsufficientStock):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, catalog.ErrInvalidLocationRole):
		status = http.StatusBadRequest
	case errors.Is(err, catalog.ErrLocationNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, settlement.ErrSettlementNotFound):
		status = http.StatusNotFound
	}

	c.JSON(status, gin.H{
		"error": err.Error(),
	})
}
