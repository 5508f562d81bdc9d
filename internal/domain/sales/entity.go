// internal/domain/sales/entity.go
package sales

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/bakery-backend/internal/domain/catalog"
)

// PaymentMethod represents how a sale was paid
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodMobile PaymentMethod = "mobile"
	PaymentMethodCard   PaymentMethod = "card"
)

// Sale represents one point-of-sale transaction at a shop or vehicle
type Sale struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	SaleNumber    string          `gorm:"uniqueIndex;not null;size:50" json:"sale_number"`
	LocationID    uint            `gorm:"not null;index" json:"location_id"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	PaymentMethod PaymentMethod   `gorm:"size:20;default:'cash'" json:"payment_method"`
	SaleDate      time.Time       `gorm:"type:date;not null;index" json:"sale_date"`
	SoldBy        uint            `gorm:"index" json:"sold_by"`
	CreatedAt     time.Time       `json:"created_at"`

	// Relationships
	Location catalog.Location `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Items    []SaleItem       `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// SaleItem represents one product line on a sale
type SaleItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	SaleID    uint            `gorm:"not null;index" json:"sale_id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`

	// Relationships
	Product catalog.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}
