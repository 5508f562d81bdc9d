// internal/domain/production/service.go
package production

import (
	"fmt"
	"time"

	"github.com/your-org/bakery-backend/internal/config"
	"github.com/your-org/bakery-backend/internal/domain/catalog"
	"github.com/your-org/bakery-backend/internal/domain/inventory"
	"github.com/your-org/bakery-backend/internal/domain/transfer"
	"github.com/your-org/bakery-backend/internal/pkg/dates"
	"gorm.io/gorm"
)

// Service handles production batch intake
type Service struct {
	db        *gorm.DB
	config    *config.Config
	catalog   *catalog.Service
	ledger    *inventory.Service
	transfers *transfer.Service
}

// NewService creates a new production service
func NewService(db *gorm.DB, cfg *config.Config, cat *catalog.Service, ledger *inventory.Service, transfers *transfer.Service) *Service {
	return &Service{
		db:        db,
		config:    cfg,
		catalog:   cat,
		ledger:    ledger,
		transfers: transfers,
	}
}

// RecordBatchRequest represents production batch intake data
type RecordBatchRequest struct {
	ProductID             uint       `json:"product_id" binding:"required"`
	Quantity              int        `json:"quantity" binding:"required,gt=0"`
	DestinationLocationID uint       `json:"destination_location_id" binding:"required"`
	ExpiryDate            *time.Time `json:"expiry_date"` // defaults from the product's shelf life
	Notes                 string     `json:"notes"`
}

// RecordBatch books a production run into the ledger at the destination and
// appends the production_to_location transfer the settlement engines derive
// "received" quantities from. One transaction: batch row, ledger entry,
// transfer record.
func (s *Service) RecordBatch(req *RecordBatchRequest, userID uint, date time.Time) (*Batch, error) {
	product, err := s.catalog.GetProduct(req.ProductID)
	if err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetLocation(req.DestinationLocationID); err != nil {
		return nil, err
	}

	productionDate := dates.DateOnly(date)
	expiryDate := productionDate.AddDate(0, 0, product.ShelfLifeDays)
	if req.ExpiryDate != nil {
		expiryDate = dates.DateOnly(*req.ExpiryDate)
	}
	if !expiryDate.After(productionDate) {
		return nil, fmt.Errorf("expiry date must be after production date")
	}

	batch := &Batch{
		ProductID:             req.ProductID,
		Quantity:              req.Quantity,
		ProductionDate:        productionDate,
		ExpiryDate:            expiryDate,
		DestinationLocationID: req.DestinationLocationID,
		Notes:                 req.Notes,
		CreatedBy:             userID,
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(batch).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to record production batch: %w", err)
	}

	if err := s.ledger.Replenish(tx, req.DestinationLocationID, req.ProductID, req.Quantity, productionDate, expiryDate); err != nil {
		tx.Rollback()
		return nil, err
	}

	destination := req.DestinationLocationID
	record := transfer.StockTransfer{
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		ToLocationID: &destination,
		Type:         transfer.TypeProductionToLocation,
		TransferDate: productionDate,
		Notes:        req.Notes,
		CreatedBy:    userID,
	}
	if err := s.transfers.Append(tx, &record); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit production batch: %w", err)
	}

	return batch, nil
}

// ListBatches returns production batches for a day, newest first
func (s *Service) ListBatches(date time.Time) ([]Batch, error) {
	var batches []Batch
	err := s.db.Preload("Product").Preload("DestinationLocation").
		Where("production_date = ?", dates.DateOnly(date)).
		Order("id DESC").
		Find(&batches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve production batches: %w", err)
	}
	return batches, nil
}
