// internal/domain/cart/entity.go
package cart

import (
	"time"
)

// Cart represents a user's shopping cart. Each user has at most one cart,
// created lazily on first use. Checkout empties the cart but keeps the row.
type Cart struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items,omitempty"`
}

// CartItem represents a line in a cart. A cart holds at most one row per
// variant; adding the same variant again increases the quantity instead.
// PriceAtAddition is a snapshot taken when the row is created and never
// changes afterwards, even when the catalog price moves.
type CartItem struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	CartID           uint      `gorm:"not null;index;uniqueIndex:idx_cart_variant" json:"cart_id"`
	ProductID        uint      `gorm:"not null;index" json:"product_id"`
	ProductVariantID uint      `gorm:"not null;uniqueIndex:idx_cart_variant" json:"product_variant_id"`
	Quantity         int       `gorm:"not null;default:1" json:"quantity"`
	PriceAtAddition  int64     `gorm:"not null" json:"price_at_addition"` // In cents
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Cart) TableName() string {
	return "carts"
}

// TableName overrides the table name
func (CartItem) TableName() string {
	return "cart_items"
}

// SessionCart represents a cart for guest users (stored in Redis)
type SessionCart struct {
	SessionID string            `json:"session_id"`
	Items     []SessionCartItem `json:"items"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// SessionCartItem represents a cart item for guest users
type SessionCartItem struct {
	ProductID        uint      `json:"product_id"`
	ProductVariantID uint      `json:"product_variant_id"`
	Quantity         int       `json:"quantity"`
	PriceAtAddition  int64     `json:"price_at_addition"`
	AddedAt          time.Time `json:"added_at"`
}

// CartTotals represents calculated cart totals
type CartTotals struct {
	ItemCount     int   `json:"item_count"`     // Number of unique items
	TotalQuantity int   `json:"total_quantity"` // Sum of all quantities
	SubTotal      int64 `json:"sub_total"`      // Sum of price_at_addition * quantity
}
