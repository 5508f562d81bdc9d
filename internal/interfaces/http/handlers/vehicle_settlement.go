// internal/interfaces/http/handlers/vehicle_settlement.go
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

// VehicleSettlementHandler handles vehicle settlement endpoints
type VehicleSettlementHandler struct {
	settlementService *settlement.VehicleService
	config            *config.Config
}

// NewVehicleSettlementHandler creates a new vehicle settlement handler
func NewVehicleSettlementHandler(db *gorm.DB, cfg *config.Config, redisClient *redis.Client) *VehicleSettlementHandler {
	catalogService := catalog.NewService(db, cfg, redisClient)
	ledger := inventory.NewService(db, cfg)
	transferService := transfer.NewService(db, cfg, ledger)

	return &VehicleSettlementHandler{
		settlementService: settlement.NewVehicleService(db, cfg, newLogger(cfg), catalogService, ledger, transferService),
		config:            cfg,
	}
}

// Initiate handles POST /settlements/vehicle
func (h *VehicleSettlementHandler) Initiate(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req settlement.InitiateVehicleRequest
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
		"message": "Vehicle settlement initiated successfully",
		"data":    result,
	})
}

// RecordReturns handles PUT /settlements/vehicle/:id/returns
func (h *VehicleSettlementHandler) RecordReturns(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req settlement.RecordReturnsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	result, err := h.settlementService.RecordReturns(id, &req, userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Returns recorded successfully",
		"data":    result,
	})
}

// Settle handles POST /settlements/vehicle/:id/settle
func (h *VehicleSettlementHandler) Settle(c *gin.Context) {
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
		"message": "Vehicle settlement finalized successfully",
		"data":    result,
	})
}

// Get handles GET /settlements/vehicle/:id
func (h *VehicleSettlementHandler) Get(c *gin.Context) {
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
		"message": "Vehicle settlement retrieved successfully",
		"data": gin.H{
			"settlement": result,
			"items_sold": result.ItemsSold(),
		},
	})
}

// GetByLocationAndDate handles GET /settlements/vehicle/locations/:id
func (h *VehicleSettlementHandler) GetByLocationAndDate(c *gin.Context) {
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
		"message": "Vehicle settlement retrieved successfully",
		"data": gin.H{
			"settlement": result,
			"items_sold": result.ItemsSold(),
		},
	})
}
