// internal/domain/settlement/entity.go
package settlement

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/bakery-backend/internal/domain/catalog"
)

var (
	// ErrAlreadySettled indicates a mutating call targeted a settlement whose
	// status is already settled. Settled is terminal.
	ErrAlreadySettled = errors.New("settlement already settled")
	// ErrSettlementNotFound indicates the referenced settlement does not exist
	ErrSettlementNotFound = errors.New("settlement not found")
	// ErrCountsNotRecorded indicates a shop settle was attempted before any
	// physical count was recorded; settling would reconcile every product to
	// zero.
	ErrCountsNotRecorded = errors.New("counts not recorded")
)

// Status represents the settlement lifecycle state
type Status string

const (
	StatusPending Status = "pending"
	StatusSettled Status = "settled"
)

// VehicleSettlement reconciles one vehicle's day: what it was sent, what came
// back, and the cash that the difference should have produced. One per
// (vehicle, date). Item snapshots are copied in at computation time, never
// recomputed lazily from the ledger, so a settled record stays auditable as
// the ledger moves on.
type VehicleSettlement struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	LocationID        uint            `gorm:"not null;uniqueIndex:idx_vehicle_settlement_day" json:"location_id"`
	SettlementDate    time.Time       `gorm:"type:date;not null;uniqueIndex:idx_vehicle_settlement_day" json:"settlement_date"`
	FloatCash         decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"float_cash"`
	ExpectedFromSales decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"expected_from_sales"`
	ExpectedFromStock decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"expected_from_stock"`
	ExpectedCash      decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"expected_cash"`
	ActualCash        decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"actual_cash"`
	Discrepancy       decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"discrepancy"`
	Status            Status          `gorm:"not null;size:20;default:'pending';index" json:"status"`
	ReturnsRecorded   bool            `gorm:"default:false" json:"returns_recorded"`
	Notes             string          `gorm:"type:text" json:"notes"`
	CreatedBy         uint            `gorm:"index" json:"created_by"`
	SettledBy         uint            `json:"settled_by"`
	SettledAt         *time.Time      `json:"settled_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	// Relationships
	Location catalog.Location        `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Items    []VehicleSettlementItem `gorm:"foreignKey:SettlementID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// VehicleSettlementItem is the per-product snapshot of a vehicle settlement
type VehicleSettlementItem struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	SettlementID     uint            `gorm:"not null;index" json:"settlement_id"`
	ProductID        uint            `gorm:"not null;index" json:"product_id"`
	ProductName      string          `gorm:"size:255" json:"product_name"`
	UnitPrice        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	QuantitySent     int             `gorm:"not null;default:0" json:"quantity_sent"`
	QuantityReturned int             `gorm:"not null;default:0" json:"quantity_returned"`
	QuantitySold     int             `gorm:"not null;default:0" json:"quantity_sold"`
	SoldValue        decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"sold_value"`
}

// SoldItem is the derived items_sold view: only positive sold quantities
type SoldItem struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// ItemsSold derives the sold-items view from the snapshot: sent minus
// returned, filtered to positive quantities.
func (s *VehicleSettlement) ItemsSold() []SoldItem {
	var sold []SoldItem
	for _, item := range s.Items {
		if item.QuantitySold > 0 {
			sold = append(sold, SoldItem{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Quantity:    item.QuantitySold,
				UnitPrice:   item.UnitPrice,
				TotalPrice:  item.SoldValue,
			})
		}
	}
	return sold
}

// IsSettled reports whether the settlement reached its terminal state
func (s *VehicleSettlement) IsSettled() bool {
	return s.Status == StatusSettled
}

// ShopSettlement reconciles the shop's day: opening stock plus everything that
// arrived, minus everything that left or was counted still on the shelf, is
// what must have been sold. One per (shop, date). The six per-product flow
// snapshots live in the item rows.
type ShopSettlement struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	LocationID     uint            `gorm:"not null;uniqueIndex:idx_shop_settlement_day" json:"location_id"`
	SettlementDate time.Time       `gorm:"type:date;not null;uniqueIndex:idx_shop_settlement_day" json:"settlement_date"`
	ExpectedCash   decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"expected_cash"`
	ActualCash     decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"actual_cash"`
	Discrepancy    decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"discrepancy"`
	Status         Status          `gorm:"not null;size:20;default:'pending';index" json:"status"`
	CountsRecorded bool            `gorm:"default:false" json:"counts_recorded"`
	OpeningChained bool            `gorm:"default:false" json:"opening_chained"` // opening came from the prior day's counts
	Notes          string          `gorm:"type:text" json:"notes"`
	CreatedBy      uint            `gorm:"index" json:"created_by"`
	SettledBy      uint            `json:"settled_by"`
	SettledAt      *time.Time      `json:"settled_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Relationships
	Location catalog.Location     `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Items    []ShopSettlementItem `gorm:"foreignKey:SettlementID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// ShopSettlementItem is the per-product snapshot of a shop settlement
type ShopSettlementItem struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	SettlementID   uint            `gorm:"not null;index" json:"settlement_id"`
	ProductID      uint            `gorm:"not null;index" json:"product_id"`
	ProductName    string          `gorm:"size:255" json:"product_name"`
	UnitPrice      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	OpeningQty     int             `gorm:"not null;default:0" json:"opening_qty"`
	ProducedQty    int             `gorm:"not null;default:0" json:"produced_qty"`
	TransferInQty  int             `gorm:"not null;default:0" json:"transfer_in_qty"`
	TransferOutQty int             `gorm:"not null;default:0" json:"transfer_out_qty"`
	WastageQty     int             `gorm:"not null;default:0" json:"wastage_qty"`
	CountedQty     int             `gorm:"not null;default:0" json:"counted_qty"`
	QuantitySold   int             `gorm:"not null;default:0" json:"quantity_sold"`
	SoldValue      decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"sold_value"`
}

// ItemsSold derives the sold-items view: only positive sold quantities
func (s *ShopSettlement) ItemsSold() []SoldItem {
	var sold []SoldItem
	for _, item := range s.Items {
		if item.QuantitySold > 0 {
			sold = append(sold, SoldItem{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Quantity:    item.QuantitySold,
				UnitPrice:   item.UnitPrice,
				TotalPrice:  item.SoldValue,
			})
		}
	}
	return sold
}

// IsSettled reports whether the settlement reached its terminal state
func (s *ShopSettlement) IsSettled() bool {
	return s.Status == StatusSettled
}
