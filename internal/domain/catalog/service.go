// internal/domain/catalog/service.go
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/your-org/bakery-backend/internal/config"
	"gorm.io/gorm"
)

var (
	// ErrLocationNotFound indicates a referenced location does not exist
	ErrLocationNotFound = errors.New("location not found")
	// ErrProductNotFound indicates a referenced product does not exist
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidLocationRole indicates a shop was given where a vehicle was expected, or vice versa
	ErrInvalidLocationRole = errors.New("invalid location role")
)

// Service handles catalog business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
	cache  *redis.Client
}

// NewService creates a new catalog service. The cache client may be nil.
func NewService(db *gorm.DB, cfg *config.Config, cache *redis.Client) *Service {
	return &Service{
		db:     db,
		config: cfg,
		cache:  cache,
	}
}

// CreateLocationRequest represents location creation data
type CreateLocationRequest struct {
	Name      string       `json:"name" binding:"required"`
	Code      string       `json:"code" binding:"required"`
	Type      LocationType `json:"type" binding:"required"`
	Address   string       `json:"address"`
	Phone     string       `json:"phone"`
	IsDefault bool         `json:"is_default"`
}

// CreateProductRequest represents product creation data
type CreateProductRequest struct {
	SKU            string   `json:"sku" binding:"required"`
	Name           string   `json:"name" binding:"required"`
	Category       string   `json:"category"`
	SellingPrice   float64  `json:"selling_price" binding:"required"`
	ShopPrice      *float64 `json:"shop_price"`
	ProductionCost float64  `json:"production_cost"`
	ShelfLifeDays  int      `json:"shelf_life_days"`
}

// LOCATIONS

// CreateLocation creates a new location
func (s *Service) CreateLocation(req *CreateLocationRequest) (*Location, error) {
	if req.Type != LocationTypeShop && req.Type != LocationTypeVehicle {
		return nil, fmt.Errorf("%w: unknown location type %q", ErrInvalidLocationRole, req.Type)
	}

	var existing Location
	if err := s.db.Where("code = ?", req.Code).First(&existing).Error; err == nil {
		return nil, fmt.Errorf("location with code '%s' already exists", req.Code)
	}

	// Only one default shop at a time
	if req.IsDefault {
		s.db.Model(&Location{}).Where("is_default = ?", true).Update("is_default", false)
	}

	location := &Location{
		Name:      req.Name,
		Code:      req.Code,
		Type:      req.Type,
		Address:   req.Address,
		Phone:     req.Phone,
		IsDefault: req.IsDefault,
		IsActive:  true,
	}

	if err := s.db.Create(location).Error; err != nil {
		return nil, fmt.Errorf("failed to create location: %w", err)
	}

	return location, nil
}

// GetLocations retrieves all active locations, optionally filtered by type
func (s *Service) GetLocations(locType *LocationType) ([]Location, error) {
	query := s.db.Where("is_active = ?", true)
	if locType != nil {
		query = query.Where("type = ?", *locType)
	}

	var locations []Location
	if err := query.Order("id").Find(&locations).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve locations: %w", err)
	}
	return locations, nil
}

// GetLocation retrieves a single location by ID
func (s *Service) GetLocation(id uint) (*Location, error) {
	var location Location
	if err := s.db.Where("id = ?", id).First(&location).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLocationNotFound
		}
		return nil, fmt.Errorf("failed to retrieve location: %w", err)
	}
	return &location, nil
}

// RequireVehicle loads a location and verifies it is a vehicle
func (s *Service) RequireVehicle(id uint) (*Location, error) {
	location, err := s.GetLocation(id)
	if err != nil {
		return nil, err
	}
	if !location.IsVehicle() {
		return nil, fmt.Errorf("%w: location %d is not a vehicle", ErrInvalidLocationRole, id)
	}
	return location, nil
}

// RequireShop loads a location and verifies it is a shop
func (s *Service) RequireShop(id uint) (*Location, error) {
	location, err := s.GetLocation(id)
	if err != nil {
		return nil, err
	}
	if !location.IsShop() {
		return nil, fmt.Errorf("%w: location %d is not a shop", ErrInvalidLocationRole, id)
	}
	return location, nil
}

// GetDefaultShop returns the shop location marked as default, falling back to
// the first active shop
func (s *Service) GetDefaultShop() (*Location, error) {
	var location Location
	err := s.db.Where("type = ? AND is_default = ? AND is_active = ?", LocationTypeShop, true, true).First(&location).Error
	if err == nil {
		return &location, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to retrieve default shop: %w", err)
	}

	if err := s.db.Where("type = ? AND is_active = ?", LocationTypeShop, true).Order("id").First(&location).Error; err != nil {
		return nil, fmt.Errorf("%w: no active shop configured", ErrLocationNotFound)
	}
	return &location, nil
}

// PRODUCTS

// CreateProduct creates a new product
func (s *Service) CreateProduct(req *CreateProductRequest) (*Product, error) {
	var existing Product
	if err := s.db.Where("sku = ?", req.SKU).First(&existing).Error; err == nil {
		return nil, fmt.Errorf("product with SKU '%s' already exists", req.SKU)
	}

	shelfLife := req.ShelfLifeDays
	if shelfLife <= 0 {
		shelfLife = 1
	}

	product := &Product{
		SKU:            req.SKU,
		Name:           req.Name,
		Category:       req.Category,
		SellingPrice:   decimal.NewFromFloat(req.SellingPrice),
		ProductionCost: decimal.NewFromFloat(req.ProductionCost),
		ShelfLifeDays:  shelfLife,
		IsActive:       true,
	}
	if req.ShopPrice != nil {
		shopPrice := decimal.NewFromFloat(*req.ShopPrice)
		product.ShopPrice = &shopPrice
	}

	if err := s.db.Create(product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.invalidatePriceCache(product.ID)

	return product, nil
}

// GetProducts retrieves all active products
func (s *Service) GetProducts() ([]Product, error) {
	var products []Product
	if err := s.db.Where("is_active = ?", true).Order("name").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}
	return products, nil
}

// GetProduct retrieves a single product by ID
func (s *Service) GetProduct(id uint) (*Product, error) {
	var product Product
	if err := s.db.Where("id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &product, nil
}

// GetProductsByIDs loads products by ID into a map for settlement computations
func (s *Service) GetProductsByIDs(ids []uint) (map[uint]*Product, error) {
	result := make(map[uint]*Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var products []Product
	if err := s.db.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}
	for i := range products {
		result[products[i].ID] = &products[i]
	}
	return result, nil
}

// cachedPrices is the redis payload for a product's price pair
type cachedPrices struct {
	SellingPrice decimal.Decimal  `json:"selling_price"`
	ShopPrice    *decimal.Decimal `json:"shop_price,omitempty"`
}

// GetCurrentPrice returns the effective price for a product at a location,
// served from the redis cache when possible
func (s *Service) GetCurrentPrice(productID uint, loc *Location) (decimal.Decimal, error) {
	if s.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if raw, err := s.cache.Get(ctx, s.priceCacheKey(productID)).Result(); err == nil {
			var prices cachedPrices
			if json.Unmarshal([]byte(raw), &prices) == nil {
				if loc != nil && loc.IsShop() && prices.ShopPrice != nil {
					return *prices.ShopPrice, nil
				}
				return prices.SellingPrice, nil
			}
		}
	}

	product, err := s.GetProduct(productID)
	if err != nil {
		return decimal.Zero, err
	}

	if s.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		payload, err := json.Marshal(cachedPrices{SellingPrice: product.SellingPrice, ShopPrice: product.ShopPrice})
		if err == nil {
			// Cache failures never fail the lookup
			s.cache.Set(ctx, s.priceCacheKey(productID), payload, s.config.Settlement.PriceCacheTTL)
		}
	}

	return product.PriceAt(loc), nil
}

func (s *Service) priceCacheKey(productID uint) string {
	return fmt.Sprintf("price:product:%d", productID)
}

func (s *Service) invalidatePriceCache(productID uint) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	s.cache.Del(ctx, s.priceCacheKey(productID))
}
