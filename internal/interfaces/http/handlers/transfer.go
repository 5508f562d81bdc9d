// internal/interfaces/http/handlers/transfer.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/bakery-backend/internal/config"
	"github.com/your-org/bakery-backend/internal/domain/inventory"
	"github.com/your-org/bakery-backend/internal/domain/transfer"
	"github.com/your-org/bakery-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// TransferHandler handles stock transfer endpoints
type TransferHandler struct {
	transferService *transfer.Service
	config          *config.Config
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(db *gorm.DB, cfg *config.Config) *TransferHandler {
	ledger := inventory.NewService(db, cfg)
	return &TransferHandler{
		transferService: transfer.NewService(db, cfg, ledger),
		config:          cfg,
	}
}

// CreateTransfer handles POST /transfers
func (h *TransferHandler) CreateTransfer(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req transfer.ManualTransferRequest
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

	records, err := h.transferService.TransferBetweenLocations(&req, userID, date)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Transfer recorded successfully",
		"data":    records,
	})
}

// ListTransfers handles GET /transfers
func (h *TransferHandler) ListTransfers(c *gin.Context) {
	filter := &transfer.ListFilter{}

	if raw := c.Query("location_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid location_id",
			})
			return
		}
		locationID := uint(id)
		filter.LocationID = &locationID
	}

	if raw := c.Query("product_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid product_id",
			})
			return
		}
		productID := uint(id)
		filter.ProductID = &productID
	}

	if raw := c.Query("type"); raw != "" {
		filter.Types = []transfer.Type{transfer.Type(raw)}
	}

	if date, ok := parseDateQuery(c); ok && c.Query("date") != "" {
		filter.DateFrom = &date
		filter.DateTo = &date
	} else if !ok {
		return
	}

	records, err := h.transferService.List(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve transfers",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Transfers retrieved successfully",
		"data":    records,
	})
}
