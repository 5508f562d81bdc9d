// internal/domain/settlement/shop_service.go
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

// ShopService handles the shop settlement workflow
type ShopService struct {
	db        *gorm.DB
	config    *config.Config
	logger    *logrus.Logger
	catalog   *catalog.Service
	ledger    *inventory.Service
	transfers *transfer.Service
}

// NewShopService creates a new shop settlement service
func NewShopService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger, cat *catalog.Service, ledger *inventory.Service, transfers *transfer.Service) *ShopService {
	return &ShopService{
		db:        db,
		config:    cfg,
		logger:    logger,
		catalog:   cat,
		ledger:    ledger,
		transfers: transfers,
	}
}

// InitiateShopRequest represents shop settlement initiation data
type InitiateShopRequest struct {
	LocationID uint `json:"location_id" binding:"required"`
}

// CountItemRequest represents one product's physical shelf count
type CountItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"min=0"`
}

// RecordCountsRequest replaces the counted-items map of a settlement
type RecordCountsRequest struct {
	Items []CountItemRequest `json:"items" binding:"required,dive"`
}

// Initiate creates the settlement for a (shop, date) with its flow snapshots,
// find-or-create style: once a settlement exists for the day, subsequent
// initiate calls return it unchanged. The snapshot maps are computed exactly
// once, at first creation.
func (s *ShopService) Initiate(req *InitiateShopRequest, userID uint, date time.Time) (*ShopSettlement, error) {
	if _, err := s.catalog.RequireShop(req.LocationID); err != nil {
		return nil, err
	}
	date = dates.DateOnly(date)

	existing, err := s.findByLocationAndDate(req.LocationID, date)
	if err != nil && !errors.Is(err, ErrSettlementNotFound) {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	settlement := &ShopSettlement{
		LocationID:     req.LocationID,
		SettlementDate: date,
		Status:         StatusPending,
		CreatedBy:      userID,
	}

	items, openingChained, err := s.buildItems(req.LocationID, date)
	if err != nil {
		return nil, err
	}
	settlement.OpeningChained = openingChained
	s.recompute(settlement, items)

	if err := s.persist(settlement, items); err != nil {
		// Lost the (location, date) uniqueness race to a concurrent initiate
		if raced, findErr := s.findByLocationAndDate(req.LocationID, date); findErr == nil {
			return raced, nil
		}
		return nil, err
	}

	return s.GetByID(settlement.ID)
}

// buildItems computes the day's flow snapshots per product: production
// received, transfers in/out, wastage, and the opening inventory.
func (s *ShopService) buildItems(locationID uint, date time.Time) ([]ShopSettlementItem, bool, error) {
	dayStart, dayEnd := dates.DayRange(date)

	produced, err := s.transfers.SumByProduct(s.db, locationID, transfer.DirectionTo,
		[]transfer.Type{transfer.TypeProductionToLocation}, dayStart, dayEnd)
	if err != nil {
		return nil, false, err
	}
	transfersIn, err := s.transfers.SumByProduct(s.db, locationID, transfer.DirectionTo,
		[]transfer.Type{transfer.TypeVehicleToShop, transfer.TypeTransferIn}, dayStart, dayEnd)
	if err != nil {
		return nil, false, err
	}
	transfersOut, err := s.transfers.SumByProduct(s.db, locationID, transfer.DirectionFrom,
		[]transfer.Type{transfer.TypeShopToVehicle, transfer.TypeTransferOut}, dayStart, dayEnd)
	if err != nil {
		return nil, false, err
	}
	wastage, err := s.ledger.WastageByProduct(s.db, locationID, date)
	if err != nil {
		return nil, false, err
	}

	opening, openingChained, err := s.deriveOpening(locationID, date, produced, transfersIn, transfersOut, wastage)
	if err != nil {
		return nil, false, err
	}

	productIDs := unionKeys(opening, produced, transfersIn, transfersOut, wastage)
	products, err := s.catalog.GetProductsByIDs(productIDs)
	if err != nil {
		return nil, false, err
	}

	items := make([]ShopSettlementItem, 0, len(productIDs))
	for _, productID := range productIDs {
		product, ok := products[productID]
		if !ok {
			return nil, false, fmt.Errorf("%w: product %d", catalog.ErrProductNotFound, productID)
		}
		items = append(items, ShopSettlementItem{
			ProductID:      productID,
			ProductName:    product.Name,
			UnitPrice:      product.PriceAtShop(),
			OpeningQty:     opening[productID],
			ProducedQty:    produced[productID],
			TransferInQty:  transfersIn[productID],
			TransferOutQty: transfersOut[productID],
			WastageQty:     wastage[productID],
		})
	}

	return items, openingChained, nil
}

// deriveOpening chains opening stock from the prior day's physical counts
// when that settlement exists. Otherwise it back-solves from the current
// ledger and today's known movements:
//
//	opening = current - (produced + transfersIn) + (transfersOut + wastage)
//
// which is only as accurate as the movements recorded so far today.
func (s *ShopService) deriveOpening(locationID uint, date time.Time, produced, transfersIn, transfersOut, wastage map[uint]int) (map[uint]int, bool, error) {
	prior, err := s.findByLocationAndDate(locationID, dates.PrevDay(date))
	if err == nil {
		opening := make(map[uint]int, len(prior.Items))
		for _, item := range prior.Items {
			opening[item.ProductID] = item.CountedQty
		}
		return opening, true, nil
	}
	if !errors.Is(err, ErrSettlementNotFound) {
		return nil, false, err
	}

	current, err := s.ledger.StockTotalsByProduct(s.db, locationID)
	if err != nil {
		return nil, false, err
	}

	opening := make(map[uint]int)
	for _, productID := range unionKeys(current, produced, transfersIn, transfersOut, wastage) {
		derived := current[productID] - (produced[productID] + transfersIn[productID]) +
			(transfersOut[productID] + wastage[productID])
		if derived < 0 {
			derived = 0
		}
		opening[productID] = derived
	}
	return opening, false, nil
}

// recompute derives sold quantities and expected cash from the snapshot.
// Idempotent over unchanged items.
func (s *ShopService) recompute(settlement *ShopSettlement, items []ShopSettlementItem) {
	flows := make([]ProductFlow, 0, len(items))
	for _, item := range items {
		flows = append(flows, ProductFlow{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Inflow:      item.OpeningQty + item.ProducedQty + item.TransferInQty,
			Outflow:     item.TransferOutQty + item.WastageQty + item.CountedQty,
			UnitPrice:   item.UnitPrice,
		})
	}

	soldLines, expectedCash, overcounted := ExpectedSales(flows)
	for _, productID := range overcounted {
		s.logger.WithFields(logrus.Fields{
			"location_id": settlement.LocationID,
			"product_id":  productID,
			"date":        settlement.SettlementDate.Format("2006-01-02"),
		}).Warn("Counted more stock than movements predict; sold quantity clamped to zero")
	}

	soldByProduct := make(map[uint]SoldItem, len(soldLines))
	for _, line := range soldLines {
		soldByProduct[line.ProductID] = line
	}
	for i := range items {
		if line, ok := soldByProduct[items[i].ProductID]; ok {
			items[i].QuantitySold = line.Quantity
			items[i].SoldValue = line.TotalPrice
		} else {
			items[i].QuantitySold = 0
			items[i].SoldValue = decimal.Zero
		}
	}

	settlement.ExpectedCash = expectedCash
	settlement.Items = items
}

// persist saves the settlement and wholesale-replaces its item rows. Updates
// to an existing row are guarded on pending status so a counts update racing
// a concurrent settle cannot write over a finalized record.
func (s *ShopService) persist(settlement *ShopSettlement, items []ShopSettlementItem) error {
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
		res := tx.Model(&ShopSettlement{}).
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

	if err := tx.Where("settlement_id = ?", settlement.ID).Delete(&ShopSettlementItem{}).Error; err != nil {
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

// RecordCounts stores the physical shelf counts wholesale and recomputes the
// expected figures so the discrepancy can be previewed before finalizing.
// The ledger is not touched.
func (s *ShopService) RecordCounts(settlementID uint, req *RecordCountsRequest, userID uint) (*ShopSettlement, error) {
	settlement, err := s.GetByID(settlementID)
	if err != nil {
		return nil, err
	}
	if settlement.IsSettled() {
		return nil, ErrAlreadySettled
	}

	counted := make(map[uint]int, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity < 0 {
			return nil, fmt.Errorf("counted quantity must not be negative")
		}
		counted[item.ProductID] = item.Quantity
	}

	items := settlement.Items
	seen := make(map[uint]bool, len(items))
	for i := range items {
		items[i].CountedQty = counted[items[i].ProductID]
		seen[items[i].ProductID] = true
	}

	// Counted products outside the snapshot join with zero flows
	var missing []uint
	for productID := range counted {
		if !seen[productID] {
			missing = append(missing, productID)
		}
	}
	if len(missing) > 0 {
		products, err := s.catalog.GetProductsByIDs(missing)
		if err != nil {
			return nil, err
		}
		for _, productID := range missing {
			product, ok := products[productID]
			if !ok {
				return nil, fmt.Errorf("%w: product %d", catalog.ErrProductNotFound, productID)
			}
			items = append(items, ShopSettlementItem{
				ProductID:   productID,
				ProductName: product.Name,
				UnitPrice:   product.PriceAtShop(),
				CountedQty:  counted[productID],
			})
		}
	}

	settlement.CountsRecorded = true
	s.recompute(settlement, items)

	if err := s.persist(settlement, items); err != nil {
		return nil, err
	}
	return s.GetByID(settlement.ID)
}

// Settle finalizes the settlement: recomputes expected figures from the
// stored snapshot (so a stale preview cannot leak in), records actual cash
// and discrepancy, then reconciles the ledger to the physical counts product
// by product, appending an audit transfer row per adjustment. One
// transaction; the status flip is guarded against concurrent settles, and the
// item snapshot is re-read after the flip so a counts update landing just
// before it is still the one reconciled. Settling before any count has been
// recorded is rejected: it would reconcile every product to zero and drain
// the shop ledger.
func (s *ShopService) Settle(settlementID uint, req *SettleRequest, userID uint, now time.Time) (*ShopSettlement, error) {
	settlement, err := s.GetByID(settlementID)
	if err != nil {
		return nil, err
	}
	if settlement.IsSettled() {
		return nil, ErrAlreadySettled
	}
	if !settlement.CountsRecorded {
		return nil, ErrCountsNotRecorded
	}

	actualCash := decimal.NewFromFloat(req.ActualCash)
	settledAt := now

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	res := tx.Model(&ShopSettlement{}).
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
	// and recompute the expected figures from what is actually stored.
	var items []ShopSettlementItem
	if err := tx.Where("settlement_id = ?", settlement.ID).Order("id").Find(&items).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load settlement items: %w", err)
	}
	s.recompute(settlement, items)
	discrepancy := actualCash.Sub(settlement.ExpectedCash)

	if err := tx.Model(&ShopSettlement{}).
		Where("id = ?", settlement.ID).
		Updates(map[string]interface{}{
			"expected_cash": settlement.ExpectedCash,
			"actual_cash":   actualCash,
			"discrepancy":   discrepancy,
			"notes":         req.Notes,
			"settled_by":    userID,
			"settled_at":    settledAt,
		}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to finalize settlement: %w", err)
	}

	for i := range settlement.Items {
		item := &settlement.Items[i]
		if err := tx.Model(&ShopSettlementItem{}).Where("id = ?", item.ID).
			Updates(map[string]interface{}{
				"quantity_sold": item.QuantitySold,
				"sold_value":    item.SoldValue,
			}).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to update settlement item: %w", err)
		}

		delta, err := s.ledger.ReconcileToCount(tx, settlement.LocationID, item.ProductID, item.CountedQty, settlement.SettlementDate)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if delta == 0 {
			continue
		}

		locationID := settlement.LocationID
		record := transfer.StockTransfer{
			ProductID:    item.ProductID,
			TransferDate: settlement.SettlementDate,
			Notes:        fmt.Sprintf("shop settlement #%d count reconciliation", settlement.ID),
			CreatedBy:    userID,
		}
		if delta < 0 {
			// Ledger had more than the shelf: inferred unrecorded sales
			record.Quantity = -delta
			record.FromLocationID = &locationID
			record.Type = transfer.TypeTransferOut
		} else {
			// Shelf had more than the ledger: inferred missing receipt
			record.Quantity = delta
			record.ToLocationID = &locationID
			record.Type = transfer.TypeTransferIn
		}
		if err := s.transfers.Append(tx, &record); err != nil {
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
	}).Info("Shop settlement finalized")

	return s.GetByID(settlement.ID)
}

// GetByID retrieves a settlement with its item snapshot
func (s *ShopService) GetByID(id uint) (*ShopSettlement, error) {
	var settlement ShopSettlement
	err := s.db.Preload("Items").Preload("Location").Where("id = ?", id).First(&settlement).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettlementNotFound
		}
		return nil, fmt.Errorf("failed to retrieve settlement: %w", err)
	}
	return &settlement, nil
}

// GetByLocationAndDate retrieves the settlement for a (shop, date)
func (s *ShopService) GetByLocationAndDate(locationID uint, date time.Time) (*ShopSettlement, error) {
	return s.findByLocationAndDate(locationID, dates.DateOnly(date))
}

func (s *ShopService) findByLocationAndDate(locationID uint, date time.Time) (*ShopSettlement, error) {
	var settlement ShopSettlement
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

// unionKeys merges the key sets of several product→quantity maps into a
// deterministic, ascending product ID list
func unionKeys(maps ...map[uint]int) []uint {
	seen := make(map[uint]bool)
	var ids []uint
	for _, m := range maps {
		for productID := range m {
			if !seen[productID] {
				seen[productID] = true
				ids = append(ids, productID)
			}
		}
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	return ids
}
