// internal/domain/inventory/entity.go
package inventory

import (
	"time"
)

// MovementType classifies stock movements
type MovementType string

const (
	MovementTypeSale       MovementType = "sale"       // Order placement
	MovementTypeReturn     MovementType = "return"     // Order cancellation restock
	MovementTypeAdjustment MovementType = "adjustment" // Manual admin correction
	MovementTypeRestock    MovementType = "restock"    // New stock received
)

// InventoryLog is the append-only audit trail of variant stock changes.
// Every mutation of product_variants.stock_quantity writes one row here in
// the same transaction.
type InventoryLog struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	ProductVariantID uint         `gorm:"not null;index" json:"product_variant_id"`
	MovementType     MovementType `gorm:"not null;size:20;index" json:"movement_type"`
	QuantityChange   int          `gorm:"not null" json:"quantity_change"` // Signed delta
	PreviousQuantity int          `gorm:"not null" json:"previous_quantity"`
	NewQuantity      int          `gorm:"not null" json:"new_quantity"`
	OrderID          *uint        `gorm:"index" json:"order_id,omitempty"` // Set for sale and return movements
	PerformedBy      *uint        `json:"performed_by,omitempty"`          // Admin user for manual movements
	Note             string       `gorm:"size:500" json:"note"`
	CreatedAt        time.Time    `json:"created_at"`
}

// TableName overrides the table name
func (InventoryLog) TableName() string {
	return "inventory_logs"
}
