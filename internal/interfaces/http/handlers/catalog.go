// internal/interfaces/http/handlers/catalog.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/bakery-backend/internal/config"
	"github.com/your-org/bakery-backend/internal/domain/catalog"
	"gorm.io/gorm"
)

// CatalogHandler handles location and product endpoints
type CatalogHandler struct {
	catalogService *catalog.Service
	config         *config.Config
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(db *gorm.DB, cfg *config.Config, redisClient *redis.Client) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalog.NewService(db, cfg, redisClient),
		config:         cfg,
	}
}

// LOCATION ENDPOINTS

// CreateLocation handles POST /locations
func (h *CatalogHandler) CreateLocation(c *gin.Context) {
	var req catalog.CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	location, err := h.catalogService.CreateLocation(&req)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Location created successfully",
		"data":    location,
	})
}

// GetLocations handles GET /locations
func (h *CatalogHandler) GetLocations(c *gin.Context) {
	var locType *catalog.LocationType
	if raw := c.Query("type"); raw != "" {
		t := catalog.LocationType(raw)
		locType = &t
	}

	locations, err := h.catalogService.GetLocations(locType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve locations",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Locations retrieved successfully",
		"data":    locations,
	})
}

// GetLocation handles GET /locations/:id
func (h *CatalogHandler) GetLocation(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	location, err := h.catalogService.GetLocation(id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Location retrieved successfully",
		"data":    location,
	})
}

// PRODUCT ENDPOINTS

// CreateProduct handles POST /products
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req catalog.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	product, err := h.catalogService.CreateProduct(&req)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"data":    product,
	})
}

// GetProducts handles GET /products
func (h *CatalogHandler) GetProducts(c *gin.Context) {
	products, err := h.catalogService.GetProducts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve products",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Products retrieved successfully",
		"data":    products,
	})
}

// GetProduct handles GET /products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	product, err := h.catalogService.GetProduct(id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product retrieved successfully",
		"data":    product,
	})
}
