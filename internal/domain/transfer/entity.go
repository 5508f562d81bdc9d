// internal/domain/transfer/entity.go
package transfer

import (
	"time"

	"github.com/your-org/bakery-backend/internal/domain/catalog"
)

// Type represents the kind of stock movement
type Type string

const (
	TypeProductionToLocation Type = "production_to_location"
	TypeVehicleToShop        Type = "vehicle_to_shop"
	TypeShopToVehicle        Type = "shop_to_vehicle"
	TypeTransferIn           Type = "transfer_in"
	TypeTransferOut          Type = "transfer_out"
)

// Direction selects which side of a movement a query is about
type Direction string

const (
	DirectionTo   Direction = "to"
	DirectionFrom Direction = "from"
)

// StockTransfer is an immutable movement record. The log is append-only:
// rows are never mutated or deleted, and every finalized settlement
// write-back appends its own rows, so this table is the single source of
// truth for movement history.
type StockTransfer struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Reference      string    `gorm:"not null;size:50;index" json:"reference"`
	ProductID      uint      `gorm:"not null;index" json:"product_id"`
	Quantity       int       `gorm:"not null" json:"quantity"`
	FromLocationID *uint     `gorm:"index" json:"from_location_id"` // nil = from production
	ToLocationID   *uint     `gorm:"index" json:"to_location_id"`   // nil = leaves tracked stock
	Type           Type      `gorm:"not null;size:30;index" json:"type"`
	TransferDate   time.Time `gorm:"type:date;not null;index" json:"transfer_date"`
	Notes          string    `gorm:"type:text" json:"notes"`
	CreatedBy      uint      `gorm:"index" json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`

	// Relationships
	Product      catalog.Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	FromLocation *catalog.Location `gorm:"foreignKey:FromLocationID" json:"from_location,omitempty"`
	ToLocation   *catalog.Location `gorm:"foreignKey:ToLocationID" json:"to_location,omitempty"`
}
