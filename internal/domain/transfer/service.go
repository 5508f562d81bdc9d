// internal/domain/transfer/service.go
package transfer

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/your-org/bakery-backend/internal/config"
	"github.com/your-org/bakery-backend/internal/domain/inventory"
	"github.com/your-org/bakery-backend/internal/pkg/dates"
	"gorm.io/gorm"
)

// Service handles the append-only stock transfer log
type Service struct {
	db     *gorm.DB
	config *config.Config
	ledger *inventory.Service
}

// NewService creates a new transfer service
func NewService(db *gorm.DB, cfg *config.Config, ledger *inventory.Service) *Service {
	return &Service{
		db:     db,
		config: cfg,
		ledger: ledger,
	}
}

// ManualTransferRequest represents a location-to-location stock move
type ManualTransferRequest struct {
	ProductID      uint   `json:"product_id" binding:"required"`
	FromLocationID uint   `json:"from_location_id" binding:"required"`
	ToLocationID   uint   `json:"to_location_id" binding:"required"`
	Quantity       int    `json:"quantity" binding:"required,gt=0"`
	Type           Type   `json:"type"`
	Notes          string `json:"notes"`
}

// ListFilter narrows transfer queries for the audit views
type ListFilter struct {
	LocationID *uint
	ProductID  *uint
	Types      []Type
	DateFrom   *time.Time
	DateTo     *time.Time
}

// Append writes one immutable transfer record. A reference is generated when
// the caller did not group the record under an existing one.
func (s *Service) Append(db *gorm.DB, record *StockTransfer) error {
	if record.Reference == "" {
		record.Reference = uuid.New().String()
	}
	record.TransferDate = dates.DateOnly(record.TransferDate)

	if err := db.Create(record).Error; err != nil {
		return fmt.Errorf("failed to append transfer record: %w", err)
	}
	return nil
}

// SumByProduct sums quantities per product moved to or from a location within
// [from, to), counting only the given transfer types.
func (s *Service) SumByProduct(db *gorm.DB, locationID uint, direction Direction, types []Type, from, to time.Time) (map[uint]int, error) {
	query := db.Model(&StockTransfer{}).
		Where("type IN ?", types).
		Where("transfer_date >= ? AND transfer_date < ?", dates.DateOnly(from), dates.DateOnly(to))

	switch direction {
	case DirectionTo:
		query = query.Where("to_location_id = ?", locationID)
	case DirectionFrom:
		query = query.Where("from_location_id = ?", locationID)
	default:
		return nil, fmt.Errorf("unknown transfer direction %q", direction)
	}

	var rows []struct {
		ProductID uint
		Total     int
	}
	if err := query.Select("product_id, SUM(quantity) AS total").Group("product_id").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate transfers: %w", err)
	}

	totals := make(map[uint]int, len(rows))
	for _, row := range rows {
		totals[row.ProductID] = row.Total
	}
	return totals, nil
}

// List returns transfer records matching the filter, newest first
func (s *Service) List(filter *ListFilter) ([]StockTransfer, error) {
	query := s.db.Preload("Product").Preload("FromLocation").Preload("ToLocation")

	if filter != nil {
		if filter.LocationID != nil {
			query = query.Where("from_location_id = ? OR to_location_id = ?", *filter.LocationID, *filter.LocationID)
		}
		if filter.ProductID != nil {
			query = query.Where("product_id = ?", *filter.ProductID)
		}
		if len(filter.Types) > 0 {
			query = query.Where("type IN ?", filter.Types)
		}
		if filter.DateFrom != nil {
			query = query.Where("transfer_date >= ?", dates.DateOnly(*filter.DateFrom))
		}
		if filter.DateTo != nil {
			query = query.Where("transfer_date < ?", dates.DateOnly(*filter.DateTo))
		}
	}

	var records []StockTransfer
	if err := query.Order("id DESC").Limit(500).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve transfers: %w", err)
	}
	return records, nil
}

// TransferBetweenLocations moves stock between two locations: strict FEFO
// depletion at the source, batch-date-preserving replenishment at the
// destination, one record per batch moved. Rejected with InsufficientStock
// when the source cannot cover the quantity; no partial effect.
func (s *Service) TransferBetweenLocations(req *ManualTransferRequest, userID uint, date time.Time) ([]StockTransfer, error) {
	transferType := req.Type
	if transferType == "" {
		transferType = TypeTransferOut
	}

	// Cheap pre-check so the common failure never opens a transaction
	available, err := s.ledger.QuantityOf(req.FromLocationID, req.ProductID)
	if err != nil {
		return nil, err
	}
	if available < req.Quantity {
		return nil, fmt.Errorf("%w: available %d, requested %d", inventory.ErrInsufficientStock, available, req.Quantity)
	}

	reference := uuid.New().String()
	var records []StockTransfer

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	moves, err := s.ledger.MoveBatches(tx, req.FromLocationID, req.ToLocationID, req.ProductID, req.Quantity)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	moved := 0
	for _, move := range moves {
		moved += move.Quantity
	}
	if moved < req.Quantity {
		tx.Rollback()
		return nil, fmt.Errorf("%w: available %d, requested %d", inventory.ErrInsufficientStock, moved, req.Quantity)
	}

	fromID := req.FromLocationID
	toID := req.ToLocationID
	for _, move := range moves {
		record := StockTransfer{
			Reference:      reference,
			ProductID:      req.ProductID,
			Quantity:       move.Quantity,
			FromLocationID: &fromID,
			ToLocationID:   &toID,
			Type:           transferType,
			TransferDate:   date,
			Notes:          req.Notes,
			CreatedBy:      userID,
		}
		if err := s.Append(tx, &record); err != nil {
			tx.Rollback()
			return nil, err
		}
		records = append(records, record)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transfer: %w", err)
	}

	return records, nil
}
