// internal/domain/catalog/entity.go
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LocationType represents the role a location plays in the operation
type LocationType string

const (
	LocationTypeShop    LocationType = "shop"
	LocationTypeVehicle LocationType = "vehicle"
)

// Location represents a stock-holding location: the shop or a delivery vehicle
type Location struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null;size:100" json:"name"`
	Code      string         `gorm:"uniqueIndex;not null;size:20" json:"code"`
	Type      LocationType   `gorm:"not null;size:20;index" json:"type"`
	Address   string         `gorm:"type:text" json:"address"`
	Phone     string         `gorm:"size:20" json:"phone"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	IsDefault bool           `gorm:"default:false" json:"is_default"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsVehicle reports whether the location is a delivery vehicle
func (l *Location) IsVehicle() bool {
	return l.Type == LocationTypeVehicle
}

// IsShop reports whether the location is the shop
func (l *Location) IsShop() bool {
	return l.Type == LocationTypeShop
}

// Product represents a bakery product
type Product struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	SKU            string           `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name           string           `gorm:"not null;size:255" json:"name"`
	Category       string           `gorm:"size:100;index" json:"category"`
	SellingPrice   decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"selling_price"`
	ShopPrice      *decimal.Decimal `gorm:"type:numeric(12,2)" json:"shop_price,omitempty"`
	ProductionCost decimal.Decimal  `gorm:"type:numeric(12,2);default:0" json:"production_cost"`
	ShelfLifeDays  int              `gorm:"default:1" json:"shelf_life_days"`
	IsActive       bool             `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	DeletedAt      gorm.DeletedAt   `gorm:"index" json:"-"`
}

// PriceAtShop returns the shop counter price, falling back to the selling price
func (p *Product) PriceAtShop() decimal.Decimal {
	if p.ShopPrice != nil {
		return *p.ShopPrice
	}
	return p.SellingPrice
}

// PriceAt returns the effective unit price for a sale at the given location
func (p *Product) PriceAt(loc *Location) decimal.Decimal {
	if loc != nil && loc.IsShop() {
		return p.PriceAtShop()
	}
	return p.SellingPrice
}
