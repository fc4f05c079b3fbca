// internal/domain/discount/entity.go
package discount

import (
	"time"

	"gorm.io/gorm"
)

// Discount types
const (
	TypePercentage = "percentage"
	TypeFixed      = "fixed"
)

// Discount represents a discount code. Value holds whole percent for
// percentage discounts and cents for fixed discounts.
type Discount struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Code              string         `gorm:"uniqueIndex;not null;size:50" json:"code"`
	Description       string         `gorm:"size:500" json:"description"`
	Type              string         `gorm:"not null;size:20" json:"type"` // percentage, fixed
	Value             int64          `gorm:"not null" json:"value"`
	MinOrderAmount    int64          `json:"min_order_amount"`    // In cents, 0 means no minimum
	MaxDiscountAmount int64          `json:"max_discount_amount"` // Cap for percentage discounts, 0 means uncapped
	StartsAt          *time.Time     `json:"starts_at"`
	EndsAt            *time.Time     `json:"ends_at"`
	UsageLimit        int            `gorm:"default:0" json:"usage_limit"` // 0 means unlimited
	TimesUsed         int            `gorm:"default:0" json:"times_used"`
	UsageLimitPerUser int            `gorm:"default:0" json:"usage_limit_per_user"` // 0 means unlimited
	IsActive          bool           `gorm:"default:true" json:"is_active"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// DiscountRedemption records one use of a discount by a user. Rows are
// written inside the order transaction so per-user limits hold under
// concurrent checkouts.
type DiscountRedemption struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DiscountID uint      `gorm:"not null;index" json:"discount_id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	OrderID    uint      `gorm:"not null;index" json:"order_id"`
	Amount     int64     `gorm:"not null" json:"amount"` // Discount applied, in cents
	CreatedAt  time.Time `json:"created_at"`
}

// TableName overrides the table name
func (Discount) TableName() string {
	return "discounts"
}

// TableName overrides the table name
func (DiscountRedemption) TableName() string {
	return "discount_redemptions"
}
