// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/bakery-backend/internal/config"
	"github.com/your-org/bakery-backend/internal/domain/inventory"
	"github.com/your-org/bakery-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// InventoryHandler handles inventory endpoints
type InventoryHandler struct {
	inventoryService *inventory.Service
	config           *config.Config
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(db *gorm.DB, cfg *config.Config) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventory.NewService(db, cfg),
		config:           cfg,
	}
}

// STOCK ENDPOINTS

// GetStockByLocation handles GET /inventory/locations/:id
func (h *InventoryHandler) GetStockByLocation(c *gin.Context) {
	locationID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	entries, err := h.inventoryService.StockByLocation(locationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve stock",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock retrieved successfully",
		"data":    entries,
	})
}

// GetStockLevel handles GET /inventory/locations/:id/products/:productId
func (h *InventoryHandler) GetStockLevel(c *gin.Context) {
	locationID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	productID, ok := parseUintParam(c, "productId")
	if !ok {
		return
	}

	quantity, err := h.inventoryService.QuantityOf(locationID, productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve stock level",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock level retrieved successfully",
		"data": gin.H{
			"location_id": locationID,
			"product_id":  productID,
			"quantity":    quantity,
		},
	})
}

// WASTAGE ENDPOINTS

// RecordWastage handles POST /inventory/wastage
func (h *InventoryHandler) RecordWastage(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req inventory.RecordWastageRequest
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

	wastage, err := h.inventoryService.RecordWastage(&req, userID, date)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Wastage recorded successfully",
		"data":    wastage,
	})
}

// ListWastage handles GET /inventory/wastage/locations/:id
func (h *InventoryHandler) ListWastage(c *gin.Context) {
	locationID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	date, ok := parseDateQuery(c)
	if !ok {
		return
	}

	entries, err := h.inventoryService.ListWastage(locationID, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve wastage",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Wastage retrieved successfully",
		"data":    entries,
	})
}
