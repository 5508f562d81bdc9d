// internal/interfaces/http/handlers/sales.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/bakery-backend/internal/config"
	"github.com/your-org/bakery-backend/internal/domain/catalog"
	"github.com/your-org/bakery-backend/internal/domain/inventory"
	"github.com/your-org/bakery-backend/internal/domain/sales"
	"github.com/your-org/bakery-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// SalesHandler handles point-of-sale endpoints
type SalesHandler struct {
	salesService *sales.Service
	config       *config.Config
}

// NewSalesHandler creates a new sales handler
func NewSalesHandler(db *gorm.DB, cfg *config.Config, redisClient *redis.Client) *SalesHandler {
	catalogService := catalog.NewService(db, cfg, redisClient)
	ledger := inventory.NewService(db, cfg)

	return &SalesHandler{
		salesService: sales.NewService(db, cfg, catalogService, ledger),
		config:       cfg,
	}
}

// RecordSale handles POST /sales
func (h *SalesHandler) RecordSale(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req sales.RecordSaleRequest
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

	sale, err := h.salesService.RecordSale(&req, userID, date)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Sale recorded successfully",
		"data":    sale,
	})
}

// GetSale handles GET /sales/:id
func (h *SalesHandler) GetSale(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	sale, err := h.salesService.GetSale(id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sale retrieved successfully",
		"data":    sale,
	})
}

// ListSales handles GET /sales/locations/:id
func (h *SalesHandler) ListSales(c *gin.Context) {
	locationID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	date, ok := parseDateQuery(c)
	if !ok {
		return
	}

	salesList, err := h.salesService.ListSales(locationID, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve sales",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sales retrieved successfully",
		"data":    salesList,
	})
}
