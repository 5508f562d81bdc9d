// internal/domain/production/entity.go
package production

import (
	"time"

	"github.com/your-org/bakery-backend/internal/domain/catalog"
)

// Batch represents one production run of a product sent to a location
type Batch struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	ProductID             uint      `gorm:"not null;index" json:"product_id"`
	Quantity              int       `gorm:"not null" json:"quantity"`
	ProductionDate        time.Time `gorm:"type:date;not null;index" json:"production_date"`
	ExpiryDate            time.Time `gorm:"type:date;not null" json:"expiry_date"`
	DestinationLocationID uint      `gorm:"not null;index" json:"destination_location_id"`
	Notes                 string    `gorm:"type:text" json:"notes"`
	CreatedBy             uint      `gorm:"index" json:"created_by"`
	CreatedAt             time.Time `json:"created_at"`

	// Relationships
	Product             catalog.Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	DestinationLocation catalog.Location `gorm:"foreignKey:DestinationLocationID" json:"destination_location,omitempty"`
}

// TableName specifies the table name for Batch
func (Batch) TableName() string {
	return "production_batches"
}
