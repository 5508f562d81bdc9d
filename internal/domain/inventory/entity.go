// internal/domain/inventory/entity.go
package inventory

import (
	"time"

	"github.com/your-org/bakery-backend/internal/domain/catalog"
)

// InventoryEntry represents the stock of one production batch of a product at
// one location. Multiple entries may exist for the same (location, product)
// pair with different batch dates; the expiry date orders depletion (FEFO).
type InventoryEntry struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	LocationID     uint      `gorm:"not null;uniqueIndex:idx_inventory_batch" json:"location_id"`
	ProductID      uint      `gorm:"not null;uniqueIndex:idx_inventory_batch" json:"product_id"`
	ProductionDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_inventory_batch" json:"production_date"`
	ExpiryDate     time.Time `gorm:"type:date;not null;uniqueIndex:idx_inventory_batch;index" json:"expiry_date"`
	Quantity       int       `gorm:"not null;default:0" json:"quantity"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Relationships
	Location catalog.Location `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Product  catalog.Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// Wastage represents discarded stock: unsold expired goods, damage, spillage.
// Recording wastage depletes the ledger; the rows feed the shop settlement's
// wastage map for the day.
type Wastage struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	LocationID  uint      `gorm:"not null;index" json:"location_id"`
	ProductID   uint      `gorm:"not null;index" json:"product_id"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	Reason      string    `gorm:"size:255" json:"reason"`
	WastageDate time.Time `gorm:"type:date;not null;index" json:"wastage_date"`
	CreatedBy   uint      `gorm:"index" json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`

	// Relationships
	Location catalog.Location `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Product  catalog.Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}
