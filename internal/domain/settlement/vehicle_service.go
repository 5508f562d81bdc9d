// internal/domain/settlement/vehicle_service.go
package settlement

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/bakery-backend/internal/config"
	"github.com/your-org/bakery-backend/internal/domain/catalog"
	"github.com/your-org/bakery-backend/internal/domain/inventory"
	"github.com/your-org/bakery-backend/internal/domain/transfer"
	"github.com/your-org/bakery-backend/internal/pkg/dates"
	"gorm.io/gorm"
)

// VehicleService handles the vehicle settlement workflow
type VehicleService struct {
	db        *gorm.DB
	config    *config.Config
	logger    *logrus.Logger
	catalog   *catalog.Service
	ledger    *inventory.Service
	transfers *transfer.Service
}

// NewVehicleService creates a new vehicle settlement service
func NewVehicleService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger, cat *catalog.Service, ledger *inventory.Service, transfers *transfer.Service) *VehicleService {
	return &VehicleService{
		db:        db,
		config:    cfg,
		logger:    logger,
		catalog:   cat,
		ledger:    ledger,
		transfers: transfers,
	}
}

// InitiateVehicleRequest represents vehicle settlement initiation data
type InitiateVehicleRequest struct {
	LocationID uint     `json:"location_id" binding:"required"`
	FloatCash  *float64 `json:"float_cash"`
}

// ReturnItemRequest represents one product's physical return count
type ReturnItemRequest struct {
	ProductID        uint `json:"product_id" binding:"required"`
	QuantityReturned int  `json:"quantity_returned" binding:"min=0"`
}

// RecordReturnsRequest replaces the full returned-items set of a settlement
type RecordReturnsRequest struct {
	Items []ReturnItemRequest `json:"items" binding:"required,dive"`
}

// SettleRequest finalizes a settlement with the cash physically handed in
type SettleRequest struct {
	ActualCash float64 `json:"actual_cash" binding:"min=0"`
	Notes      string  `json:"notes"`
}

// Initiate creates the settlement for a (vehicle, date), or refreshes the
// pending one in place. Refreshing re-derives sent quantities and current
// prices but never overwrites return counts a human already entered. A
// settled record is returned unchanged.
func (s *VehicleService) Initiate(req *InitiateVehicleRequest, userID uint, date time.Time) (*VehicleSettlement, error) {
	if _, err := s.catalog.RequireVehicle(req.LocationID); err != nil {
		return nil, err
	}
	date = dates.DateOnly(date)

	existing, err := s.findByLocationAndDate(req.LocationID, date)
	if err != nil && !errors.Is(err, ErrSettlementNotFound) {
		return nil, err
	}
	if existing != nil && existing.IsSettled() {
		return existing, nil
	}

	floatCash := decimal.NewFromFloat(s.config.Settlement.DefaultFloatCash)
	if existing != nil {
		floatCash = existing.FloatCash
	}
	if req.FloatCash != nil {
		floatCash = decimal.NewFromFloat(*req.FloatCash)
	}

	items, err := s.buildItems(req.LocationID, date, existing)
	if err != nil {
		return nil, err
	}

	settlement := existing
	if settlement == nil {
		settlement = &VehicleSettlement{
			LocationID:     req.LocationID,
			SettlementDate: date,
			Status:         StatusPending,
			CreatedBy:      userID,
		}
	}
	settlement.FloatCash = floatCash
	s.recompute(settlement, items)

	if err := s.persist(settlement, items); err != nil {
		// A concurrent initiate may have won the (location, date) uniqueness
		// race; surface the row it created.
		if existing == nil {
			if raced, findErr := s.findByLocationAndDate(req.LocationID, date); findErr == nil {
				return raced, nil
			}
		}
		return nil, err
	}

	return s.GetByID(settlement.ID)
}

// buildItems derives the per-product snapshot: quantities sent today from the
// transfer log, default return counts from current vehicle stock, and always
// the product's current price.
func (s *VehicleService) buildItems(locationID uint, date time.Time, existing *VehicleSettlement) ([]VehicleSettlementItem, error) {
	dayStart, dayEnd := dates.DayRange(date)
	sent, err := s.transfers.SumByProduct(s.db, locationID, transfer.DirectionTo,
		[]transfer.Type{transfer.TypeProductionToLocation, transfer.TypeShopToVehicle}, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	var enteredReturns map[uint]int
	if existing != nil && existing.ReturnsRecorded {
		enteredReturns = make(map[uint]int, len(existing.Items))
		for _, item := range existing.Items {
			enteredReturns[item.ProductID] = item.QuantityReturned
		}
	}

	// Union of today's sends and every product a human already counted: a
	// refresh never drops an entered return, even one with no matching send.
	productIDs := make([]uint, 0, len(sent)+len(enteredReturns))
	for productID := range sent {
		productIDs = append(productIDs, productID)
	}
	for productID := range enteredReturns {
		if _, ok := sent[productID]; !ok {
			productIDs = append(productIDs, productID)
		}
	}

	products, err := s.catalog.GetProductsByIDs(productIDs)
	if err != nil {
		return nil, err
	}

	items := make([]VehicleSettlementItem, 0, len(productIDs))
	for _, productID := range productIDs {
		product, ok := products[productID]
		if !ok {
			return nil, fmt.Errorf("%w: product %d", catalog.ErrProductNotFound, productID)
		}

		returned := 0
		if entered, ok := enteredReturns[productID]; ok {
			returned = entered
		} else {
			// Nothing counted yet: assume nothing sold, everything still on
			// the vehicle.
			onHand, err := s.ledger.QuantityOf(locationID, productID)
			if err != nil {
				return nil, err
			}
			returned = onHand
		}

		items = append(items, VehicleSettlementItem{
			ProductID:        productID,
			ProductName:      product.Name,
			UnitPrice:        product.SellingPrice,
			QuantitySent:     sent[productID],
			QuantityReturned: returned,
		})
	}

	return items, nil
}

// recompute derives sold quantities, expected sales value, expected stock
// value and expected cash from the item snapshot. Idempotent over unchanged
// items.
func (s *VehicleService) recompute(settlement *VehicleSettlement, items []VehicleSettlementItem) {
	flows := make([]ProductFlow, 0, len(items))
	for _, item := range items {
		flows = append(flows, ProductFlow{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Inflow:      item.QuantitySent,
			Outflow:     item.QuantityReturned,
			UnitPrice:   item.UnitPrice,
		})
	}

	soldLines, expectedFromSales, overcounted := ExpectedSales(flows)
	for _, productID := range overcounted {
		s.logger.WithFields(logrus.Fields{
			"location_id": settlement.LocationID,
			"product_id":  productID,
			"date":        settlement.SettlementDate.Format("2006-01-02"),
		}).Warn("Vehicle returned more than it was sent; sold quantity clamped to zero")
	}

	soldByProduct := make(map[uint]SoldItem, len(soldLines))
	for _, line := range soldLines {
		soldByProduct[line.ProductID] = line
	}

	expectedFromStock := decimal.Zero
	for i := range items {
		if line, ok := soldByProduct[items[i].ProductID]; ok {
			items[i].QuantitySold = line.Quantity
			items[i].SoldValue = line.TotalPrice
		} else {
			items[i].QuantitySold = 0
			items[i].SoldValue = decimal.Zero
		}
		returnedValue := items[i].UnitPrice.Mul(decimal.NewFromInt(int64(items[i].QuantityReturned)))
		expectedFromStock = expectedFromStock.Add(returnedValue)
	}

	settlement.ExpectedFromSales = expectedFromSales
	settlement.ExpectedFromStock = expectedFromStock
	settlement.ExpectedCash = expectedFromSales.Add(settlement.FloatCash)
	settlement.Items = items
}

// persist saves the settlement and wholesale-replaces its item rows. Updates
// to an existing row are guarded on pending status so a refresh racing a
// concurrent settle cannot write over a finalized record.
func (s *VehicleService) persist(settlement *VehicleSettlement, items []VehicleSettlementItem) error {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	settlement.Items = nil
	if settlement.ID == 0 {
		if err := tx.Create(settlement).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save settlement: %w", err)
		}
	} else {
		res := tx.Model(&VehicleSettlement{}).
			Where("id = ? AND status = ?", settlement.ID, StatusPending).
			Select("*").Omit("id", "created_at").
			Updates(settlement)
		if res.Error != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save settlement: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			tx.Rollback()
			return ErrAlreadySettled
		}
	}

	if err := tx.Where("settlement_id = ?", settlement.ID).Delete(&VehicleSettlementItem{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to replace settlement items: %w", err)
	}
	for i := range items {
		items[i].ID = 0
		items[i].SettlementID = settlement.ID
	}
	if len(items) > 0 {
		if err := tx.Create(&items).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save settlement items: %w", err)
		}
	}
	settlement.Items = items

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit settlement: %w", err)
	}
	return nil
}

// RecordReturns overwrites the returned-items set wholesale with the physical
// counts. There is no partial-item update: the caller resends the full set,
// and any sent product missing from it is treated as fully sold (returned 0).
// Prices are refreshed to the product's current price.
func (s *VehicleService) RecordReturns(settlementID uint, req *RecordReturnsRequest, userID uint) (*VehicleSettlement, error) {
	settlement, err := s.GetByID(settlementID)
	if err != nil {
		return nil, err
	}
	if settlement.IsSettled() {
		return nil, ErrAlreadySettled
	}

	returnedByProduct := make(map[uint]int, len(req.Items))
	for _, item := range req.Items {
		if item.QuantityReturned < 0 {
			return nil, fmt.Errorf("quantity returned must not be negative")
		}
		returnedByProduct[item.ProductID] = item.QuantityReturned
	}

	sentByProduct := make(map[uint]int, len(settlement.Items))
	for _, item := range settlement.Items {
		sentByProduct[item.ProductID] = item.QuantitySent
	}

	// Union of the sent snapshot and the submitted counts: a product returned
	// without a matching send keeps a zero sent quantity.
	productIDs := make([]uint, 0, len(sentByProduct)+len(returnedByProduct))
	seen := make(map[uint]bool)
	for _, item := range settlement.Items {
		productIDs = append(productIDs, item.ProductID)
		seen[item.ProductID] = true
	}
	for productID := range returnedByProduct {
		if !seen[productID] {
			productIDs = append(productIDs, productID)
		}
	}

	products, err := s.catalog.GetProductsByIDs(productIDs)
	if err != nil {
		return nil, err
	}

	items := make([]VehicleSettlementItem, 0, len(productIDs))
	for _, productID := range productIDs {
		product, ok := products[productID]
		if !ok {
			return nil, fmt.Errorf("%w: product %d", catalog.ErrProductNotFound, productID)
		}
		items = append(items, VehicleSettlementItem{
			ProductID:        productID,
			ProductName:      product.Name,
			UnitPrice:        product.SellingPrice,
			QuantitySent:     sentByProduct[productID],
			QuantityReturned: returnedByProduct[productID],
		})
	}

	settlement.ReturnsRecorded = true
	s.recompute(settlement, items)

	if err := s.persist(settlement, items); err != nil {
		return nil, err
	}
	return s.GetByID(settlement.ID)
}

// Settle finalizes the settlement: records actual cash and discrepancy, moves
// every physically returned batch onto the shop ledger (preserving batch
// dates, one vehicle_to_shop record per batch) and zeroes the vehicle's
// remaining stock for the settled products. All of it is one transaction. The
// status flip is guarded so a concurrent second settle observes
// AlreadySettled, and the item snapshot is re-read inside the transaction so
// a returns update landing just before the flip is still settled against.
func (s *VehicleService) Settle(settlementID uint, req *SettleRequest, userID uint, now time.Time) (*VehicleSettlement, error) {
	settlement, err := s.GetByID(settlementID)
	if err != nil {
		return nil, err
	}
	if settlement.IsSettled() {
		return nil, ErrAlreadySettled
	}

	shop, err := s.catalog.GetDefaultShop()
	if err != nil {
		return nil, err
	}

	actualCash := decimal.NewFromFloat(req.ActualCash)
	settledAt := now

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	res := tx.Model(&VehicleSettlement{}).
		Where("id = ? AND status = ?", settlement.ID, StatusPending).
		Update("status", StatusSettled)
	if res.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to finalize settlement: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, ErrAlreadySettled
	}

	// The guarded flip holds the row lock, freezing the item set. Re-read it
	// and derive the expected figures from what is actually stored, not from
	// the snapshot loaded before the transaction began.
	var items []VehicleSettlementItem
	if err := tx.Where("settlement_id = ?", settlement.ID).Order("id").Find(&items).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load settlement items: %w", err)
	}
	s.recompute(settlement, items)
	discrepancy := actualCash.Sub(settlement.ExpectedCash)

	if err := tx.Model(&VehicleSettlement{}).
		Where("id = ?", settlement.ID).
		Updates(map[string]interface{}{
			"expected_from_sales": settlement.ExpectedFromSales,
			"expected_from_stock": settlement.ExpectedFromStock,
			"expected_cash":       settlement.ExpectedCash,
			"actual_cash":         actualCash,
			"discrepancy":         discrepancy,
			"notes":               req.Notes,
			"settled_by":          userID,
			"settled_at":          settledAt,
		}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to finalize settlement: %w", err)
	}

	for _, item := range items {
		if item.QuantityReturned > 0 {
			moves, err := s.ledger.MoveBatches(tx, settlement.LocationID, shop.ID, item.ProductID, item.QuantityReturned)
			if err != nil {
				tx.Rollback()
				return nil, err
			}
			fromID := settlement.LocationID
			toID := shop.ID
			for _, move := range moves {
				record := transfer.StockTransfer{
					ProductID:      item.ProductID,
					Quantity:       move.Quantity,
					FromLocationID: &fromID,
					ToLocationID:   &toID,
					Type:           transfer.TypeVehicleToShop,
					TransferDate:   settlement.SettlementDate,
					Notes:          fmt.Sprintf("vehicle settlement #%d", settlement.ID),
					CreatedBy:      userID,
				}
				if err := s.transfers.Append(tx, &record); err != nil {
					tx.Rollback()
					return nil, err
				}
			}
		}

		// Whatever was not physically returned was sold: the vehicle ends the
		// day at exactly zero for every settled product.
		if err := s.ledger.ZeroOutProduct(tx, settlement.LocationID, item.ProductID); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"settlement_id": settlement.ID,
		"location_id":   settlement.LocationID,
		"date":          settlement.SettlementDate.Format("2006-01-02"),
		"expected_cash": settlement.ExpectedCash.String(),
		"actual_cash":   actualCash.String(),
		"discrepancy":   discrepancy.String(),
		"settled_by":    userID,
	}).Info("Vehicle settlement finalized")

	return s.GetByID(settlement.ID)
}

// GetByID retrieves a settlement with its item snapshot
func (s *VehicleService) GetByID(id uint) (*VehicleSettlement, error) {
	var settlement VehicleSettlement
	err := s.db.Preload("Items").Preload("Location").Where("id = ?", id).First(&settlement).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettlementNotFound
		}
		return nil, fmt.Errorf("failed to retrieve settlement: %w", err)
	}
	return &settlement, nil
}

// GetByLocationAndDate retrieves the settlement for a (vehicle, date)
func (s *VehicleService) GetByLocationAndDate(locationID uint, date time.Time) (*VehicleSettlement, error) {
	return s.findByLocationAndDate(locationID, dates.DateOnly(date))
}

func (s *VehicleService) findByLocationAndDate(locationID uint, date time.Time) (*VehicleSettlement, error) {
	var settlement VehicleSettlement
	err := s.db.Preload("Items").Preload("Location").
		Where("location_id = ? AND settlement_date = ?", locationID, date).
		First(&settlement).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettlementNotFound
		}
		return nil, fmt.Errorf("failed to retrieve settlement: %w", err)
	}
	return &settlement, nil
}
