// internal/domain/sales/service.go
package sales

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/your-org/bakery-backend/internal/config"
	"github.com/your-org/bakery-backend/internal/domain/catalog"
	"github.com/your-org/bakery-backend/internal/domain/inventory"
	"github.com/your-org/bakery-backend/internal/pkg/dates"
	"gorm.io/gorm"
)

// Service handles point-of-sale business logic
type Service struct {
	db      *gorm.DB
	config  *config.Config
	catalog *catalog.Service
	ledger  *inventory.Service
}

// NewService creates a new sales service
func NewService(db *gorm.DB, cfg *config.Config, cat *catalog.Service, ledger *inventory.Service) *Service {
	return &Service{
		db:      db,
		config:  cfg,
		catalog: cat,
		ledger:  ledger,
	}
}

// SaleItemRequest represents one line of a sale
type SaleItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,gt=0"`
}

// RecordSaleRequest represents sale recording data
type RecordSaleRequest struct {
	LocationID    uint              `json:"location_id" binding:"required"`
	Items         []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
}

// RecordSale records a sale and depletes the ledger FEFO per line. Any line
// exceeding available stock aborts the whole sale with InsufficientStock and
// no partial effect.
func (s *Service) RecordSale(req *RecordSaleRequest, userID uint, date time.Time) (*Sale, error) {
	location, err := s.catalog.GetLocation(req.LocationID)
	if err != nil {
		return nil, err
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = PaymentMethodCash
	}

	sale := &Sale{
		SaleNumber:    s.generateSaleNumber(),
		LocationID:    req.LocationID,
		PaymentMethod: paymentMethod,
		SaleDate:      dates.DateOnly(date),
		SoldBy:        userID,
		TotalAmount:   decimal.Zero,
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	total := decimal.Zero
	items := make([]SaleItem, 0, len(req.Items))
	for _, line := range req.Items {
		// Price resolution goes through the redis-backed cache; POS lines are
		// the hot path for it
		unitPrice, err := s.catalog.GetCurrentPrice(line.ProductID, location)
		if err != nil {
			tx.Rollback()
			return nil, err
		}

		if err := s.ledger.Deplete(tx, req.LocationID, line.ProductID, line.Quantity); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("product %d: %w", line.ProductID, err)
		}

		subtotal := unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		items = append(items, SaleItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: unitPrice,
			Subtotal:  subtotal,
		})
		total = total.Add(subtotal)
	}

	sale.TotalAmount = total
	sale.Items = items

	if err := tx.Create(sale).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to record sale: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit sale: %w", err)
	}

	return sale, nil
}

// GetSale retrieves a sale with its lines
func (s *Service) GetSale(id uint) (*Sale, error) {
	var sale Sale
	err := s.db.Preload("Items").Preload("Items.Product").Preload("Location").
		Where("id = ?", id).First(&sale).Error
	if err != nil {
		return nil, fmt.Errorf("sale not found")
	}
	return &sale, nil
}

// ListSales returns sales for a location and day, newest first
func (s *Service) ListSales(locationID uint, date time.Time) ([]Sale, error) {
	var salesList []Sale
	err := s.db.Preload("Items").
		Where("location_id = ? AND sale_date = ?", locationID, dates.DateOnly(date)).
		Order("id DESC").
		Find(&salesList).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve sales: %w", err)
	}
	return salesList, nil
}

// generateSaleNumber generates a short unique sale number
func (s *Service) generateSaleNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:8]
	return fmt.Sprintf("SALE-%s-%s", time.Now().Format("20060102"), suffix)
}
