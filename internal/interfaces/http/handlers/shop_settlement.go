// internal/interfaces/http/handlers/shop_settlement.go
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/bakery-backend/internal/config"
	"github.com/your-org/bakery-backend/internal/domain/catalog"
	"github.com/your-org/bakery-backend/internal/domain/inventory"
	"github.com/your-org/bakery-backend/internal/domain/settlement"
	"github.com/your-org/bakery-backend/internal/domain/transfer"
	"github.com/your-org/bakery-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// ShopSettlementHandler handles shop settlement endpoints
type ShopSettlementHandler struct {
	settlementService *settlement.ShopService
	config            *config.Config
}

// NewShopSettlementHandler creates a new shop settlement handler
func NewShopSettlementHandler(db *gorm.DB, cfg *config.Config, redisClient *redis.Client) *ShopSettlementHandler {
	catalogService := catalog.NewService(db, cfg, redisClient)
	ledger := inventory.NewService(db, cfg)
	transferService := transfer.NewService(db, cfg, ledger)

	return &ShopSettlementHandler{
		settlementService: settlement.NewShopService(db, cfg, newLogger(cfg), catalogService, ledger, transferService),
		config:            cfg,
	}
}

// Initiate handles POST /settlements/shop
func (h *ShopSettlementHandler) Initiate(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req settlement.InitiateShopRequest
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

	result, err := h.settlementService.Initiate(&req, userID, date)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shop settlement initiated successfully",
		"data":    result,
	})
}

// RecordCounts handles PUT /settlements/shop/:id/counts
func (h *ShopSettlementHandler) RecordCounts(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req settlement.RecordCountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	result, err := h.settlementService.RecordCounts(id, &req, userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Counts recorded successfully",
		"data":    result,
	})
}

// Settle handles POST /settlements/shop/:id/settle
func (h *ShopSettlementHandler) Settle(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req settlement.SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	result, err := h.settlementService.Settle(id, &req, userID, time.Now())
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shop settlement finalized successfully",
		"data":    result,
	})
}

// Get handles GET /settlements/shop/:id
func (h *ShopSettlementHandler) Get(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	result, err := h.settlementService.GetByID(id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shop settlement retrieved successfully",
		"data": gin.H{
			"settlement": result,
			"items_sold": result.ItemsSold(),
		},
	})
}

// GetByLocationAndDate handles GET /settlements/shop/locations/:id
func (h *ShopSettlementHandler) GetByLocationAndDate(c *gin.Context) {
	locationID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	date, ok := parseDateQuery(c)
	if !ok {
		return
	}

	result, err := h.settlementService.GetByLocationAndDate(locationID, date)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shop settlement retrieved successfully",
		"data": gin.H{
			"settlement": result,
			"items_sold": result.ItemsSold(),
		},
	})
}
