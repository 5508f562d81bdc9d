// internal/interfaces/http/handlers/production.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/bakery-backend/internal/config"
	"github.com/your-org/bakery-backend/internal/domain/catalog"
	"github.com/your-org/bakery-backend/internal/domain/inventory"
	"github.com/your-org/bakery-backend/internal/domain/production"
	"github.com/your-org/bakery-backend/internal/domain/transfer"
	"github.com/your-org/bakery-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// ProductionHandler handles production batch endpoints
type ProductionHandler struct {
	productionService *production.Service
	config            *config.Config
}

// NewProductionHandler creates a new production handler
func NewProductionHandler(db *gorm.DB, cfg *config.Config, redisClient *redis.Client) *ProductionHandler {
	catalogService := catalog.NewService(db, cfg, redisClient)
	ledger := inventory.NewService(db, cfg)
	transferService := transfer.NewService(db, cfg, ledger)

	return &ProductionHandler{
		productionService: production.NewService(db, cfg, catalogService, ledger, transferService),
		config:            cfg,
	}
}

// RecordBatch handles POST /production/batches
func (h *ProductionHandler) RecordBatch(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req production.RecordBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	date, ok := parseDateQuery(c)
	if !ok {
		return
	}

	batch, err := h.productionService.RecordBatch(&req, userID, date)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Production batch recorded successfully",
		"data":    batch,
	})
}

// ListBatches handles GET /production/batches
func (h *ProductionHandler) ListBatches(c *gin.Context) {
	date, ok := parseDateQuery(c)
	if !ok {
		return
	}

	batches, err := h.productionService.ListBatches(date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve production batches",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Production batches retrieved successfully",
		"data":    batches,
	})
}
