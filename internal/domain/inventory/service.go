// internal/domain/inventory/service.go
package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/your-org/bakery-backend/internal/config"
	"github.com/your-org/bakery-backend/internal/pkg/dates"
	"gorm.io/gorm"
)

// ErrInsufficientStock indicates a depletion request exceeds the available
// ledger quantity. Strict call sites (sales, wastage, manual transfers) reject
// the whole operation; settlement reconciliation uses the clamped entry points
// instead because it reconciles to an observed physical truth.
var ErrInsufficientStock = errors.New("insufficient stock")

// Service handles the batch-level inventory ledger
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// BatchMove describes one batch moved between locations, preserving the
// batch's original production and expiry dates across the move.
type BatchMove struct {
	ProductionDate time.Time `json:"production_date"`
	ExpiryDate     time.Time `json:"expiry_date"`
	Quantity       int       `json:"quantity"`
}

// RecordWastageRequest represents wastage recording data
type RecordWastageRequest struct {
	LocationID uint   `json:"location_id" binding:"required"`
	ProductID  uint   `json:"product_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,gt=0"`
	Reason     string `json:"reason"`
}

// QUERIES

// QuantityOf returns the total quantity for a (location, product) pair,
// summed across all batch entries.
func (s *Service) QuantityOf(locationID, productID uint) (int, error) {
	return s.quantityOf(s.db, locationID, productID)
}

func (s *Service) quantityOf(db *gorm.DB, locationID, productID uint) (int, error) {
	var total int64
	err := db.Model(&InventoryEntry{}).
		Where("location_id = ? AND product_id = ?", locationID, productID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum stock: %w", err)
	}
	return int(total), nil
}

// StockByLocation returns all entries with positive quantity at a location
func (s *Service) StockByLocation(locationID uint) ([]InventoryEntry, error) {
	var entries []InventoryEntry
	err := s.db.Preload("Product").
		Where("location_id = ? AND quantity > 0", locationID).
		Order("product_id, expiry_date").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve stock: %w", err)
	}
	return entries, nil
}

// StockTotalsByProduct returns the per-product quantity totals at a location
func (s *Service) StockTotalsByProduct(db *gorm.DB, locationID uint) (map[uint]int, error) {
	var rows []struct {
		ProductID uint
		Total     int
	}
	err := db.Model(&InventoryEntry{}).
		Where("location_id = ? AND quantity > 0", locationID).
		Select("product_id, SUM(quantity) AS total").
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stock: %w", err)
	}

	totals := make(map[uint]int, len(rows))
	for _, row := range rows {
		totals[row.ProductID] = row.Total
	}
	return totals, nil
}

func (s *Service) entriesFor(db *gorm.DB, locationID, productID uint) ([]InventoryEntry, error) {
	var entries []InventoryEntry
	err := db.Where("location_id = ? AND product_id = ? AND quantity > 0", locationID, productID).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger entries: %w", err)
	}
	return entries, nil
}

// MUTATIONS
//
// Mutating operations take the database handle as a parameter so callers can
// compose them into a larger transaction (settlement finalization spans the
// settlement row, every ledger mutation and every transfer record).

// Deplete removes quantity from the ledger in FEFO order. It fails with
// ErrInsufficientStock, writing nothing, when total available < requested.
func (s *Service) Deplete(db *gorm.DB, locationID, productID uint, quantity int) error {
	entries, err := s.entriesFor(db, locationID, productID)
	if err != nil {
		return err
	}

	plan, short := planDepletion(entries, quantity)
	if short > 0 {
		return fmt.Errorf("%w: available %d, requested %d", ErrInsufficientStock, totalQuantity(entries), quantity)
	}

	return s.applyDeductions(db, plan)
}

// DepleteUpTo removes up to quantity in FEFO order, capping at available
// stock, and returns the quantity actually deducted. The clamped counterpart
// of Deplete, reserved for count reconciliation: the shelf was observed, so
// the ledger follows it as far as it can.
func (s *Service) DepleteUpTo(db *gorm.DB, locationID, productID uint, quantity int) (int, error) {
	entries, err := s.entriesFor(db, locationID, productID)
	if err != nil {
		return 0, err
	}

	plan, short := planDepletion(entries, quantity)
	if err := s.applyDeductions(db, plan); err != nil {
		return 0, err
	}
	return quantity - short, nil
}

func (s *Service) applyDeductions(db *gorm.DB, plan []deduction) error {
	for _, step := range plan {
		// The quantity guard keeps an entry from ever going negative even if
		// a concurrent writer drained it between plan and apply.
		res := db.Model(&InventoryEntry{}).
			Where("id = ? AND quantity >= ?", step.EntryID, step.Quantity).
			Update("quantity", gorm.Expr("quantity - ?", step.Quantity))
		if res.Error != nil {
			return fmt.Errorf("failed to deduct from entry %d: %w", step.EntryID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: entry %d drained concurrently", ErrInsufficientStock, step.EntryID)
		}
	}
	return nil
}

// Replenish adds quantity to the entry keyed by (location, product,
// productionDate, expiryDate), creating it when missing.
func (s *Service) Replenish(db *gorm.DB, locationID, productID uint, quantity int, productionDate, expiryDate time.Time) error {
	if quantity <= 0 {
		return nil
	}

	productionDate = dates.DateOnly(productionDate)
	expiryDate = dates.DateOnly(expiryDate)

	var entry InventoryEntry
	err := db.Where("location_id = ? AND product_id = ? AND production_date = ? AND expiry_date = ?",
		locationID, productID, productionDate, expiryDate).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		entry = InventoryEntry{
			LocationID:     locationID,
			ProductID:      productID,
			ProductionDate: productionDate,
			ExpiryDate:     expiryDate,
			Quantity:       quantity,
		}
		if err := db.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to create ledger entry: %w", err)
		}
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to look up ledger entry: %w", err)
	}

	res := db.Model(&InventoryEntry{}).
		Where("id = ?", entry.ID).
		Update("quantity", gorm.Expr("quantity + ?", quantity))
	if res.Error != nil {
		return fmt.Errorf("failed to replenish entry %d: %w", entry.ID, res.Error)
	}
	return nil
}

// ReconcileToCount adjusts the ledger so the (location, product) total matches
// a physical count. A shortfall is depleted FEFO (inferred unrecorded sales);
// a surplus tops up the latest-expiry entry, synthesizing a batch dated
// today..tomorrow when no entry exists. Returns counted minus ledger total.
func (s *Service) ReconcileToCount(db *gorm.DB, locationID, productID uint, counted int, today time.Time) (int, error) {
	if counted < 0 {
		counted = 0
	}

	entries, err := s.entriesFor(db, locationID, productID)
	if err != nil {
		return 0, err
	}

	difference := counted - totalQuantity(entries)
	switch {
	case difference < 0:
		if _, err := s.DepleteUpTo(db, locationID, productID, -difference); err != nil {
			return 0, err
		}
	case difference > 0:
		target, _ := topUpTarget(entries, today)
		if err := s.Replenish(db, locationID, productID, difference, target.ProductionDate, target.ExpiryDate); err != nil {
			return 0, err
		}
	}

	return difference, nil
}

// MoveBatches transfers up to quantity from one location to another in FEFO
// order, preserving each batch's production and expiry dates. Returns the
// batches moved so the caller can append a transfer record per batch.
func (s *Service) MoveBatches(db *gorm.DB, fromLocationID, toLocationID, productID uint, quantity int) ([]BatchMove, error) {
	entries, err := s.entriesFor(db, fromLocationID, productID)
	if err != nil {
		return nil, err
	}

	plan, _ := planDepletion(entries, quantity)
	if err := s.applyDeductions(db, plan); err != nil {
		return nil, err
	}

	moves := make([]BatchMove, 0, len(plan))
	for _, step := range plan {
		if err := s.Replenish(db, toLocationID, productID, step.Quantity, step.ProductionDate, step.ExpiryDate); err != nil {
			return nil, err
		}
		moves = append(moves, BatchMove{
			ProductionDate: step.ProductionDate,
			ExpiryDate:     step.ExpiryDate,
			Quantity:       step.Quantity,
		})
	}
	return moves, nil
}

// ZeroOutProduct forces every entry for a (location, product) pair to zero.
// Used after a vehicle settlement transfers returns out: whatever was not
// physically returned was sold, so the vehicle must end the day at exactly
// zero regardless of partial-transfer slippage.
func (s *Service) ZeroOutProduct(db *gorm.DB, locationID, productID uint) error {
	err := db.Model(&InventoryEntry{}).
		Where("location_id = ? AND product_id = ? AND quantity <> 0", locationID, productID).
		Update("quantity", 0).Error
	if err != nil {
		return fmt.Errorf("failed to zero out stock: %w", err)
	}
	return nil
}

// WASTAGE

// RecordWastage deducts wasted stock (strict FEFO) and records an audit row
func (s *Service) RecordWastage(req *RecordWastageRequest, userID uint, date time.Time) (*Wastage, error) {
	wastage := &Wastage{
		LocationID:  req.LocationID,
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		Reason:      req.Reason,
		WastageDate: dates.DateOnly(date),
		CreatedBy:   userID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.Deplete(tx, req.LocationID, req.ProductID, req.Quantity); err != nil {
			return err
		}
		if err := tx.Create(wastage).Error; err != nil {
			return fmt.Errorf("failed to record wastage: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return wastage, nil
}

// WastageByProduct sums a location's wastage per product for one day
func (s *Service) WastageByProduct(db *gorm.DB, locationID uint, date time.Time) (map[uint]int, error) {
	var rows []struct {
		ProductID uint
		Total     int
	}
	err := db.Model(&Wastage{}).
		Where("location_id = ? AND wastage_date = ?", locationID, dates.DateOnly(date)).
		Select("product_id, SUM(quantity) AS total").
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate wastage: %w", err)
	}

	totals := make(map[uint]int, len(rows))
	for _, row := range rows {
		totals[row.ProductID] = row.Total
	}
	return totals, nil
}

// ListWastage returns wastage rows for a location and day
func (s *Service) ListWastage(locationID uint, date time.Time) ([]Wastage, error) {
	var rows []Wastage
	err := s.db.Preload("Product").
		Where("location_id = ? AND wastage_date = ?", locationID, dates.DateOnly(date)).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve wastage: %w", err)
	}
	return rows, nil
}
