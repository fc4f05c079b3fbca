// internal/domain/discount/service.go
package discount

import (
	"errors"
	"strings"
	"time"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/apperr"
	"gorm.io/gorm"
)

// Service handles discount business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new discount service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// DiscountCreateRequest represents discount creation data
type DiscountCreateRequest struct {
	Code              string     `json:"code" binding:"required,max=50"`
	Description       string     `json:"description"`
	Type              string     `json:"type" binding:"required,oneof=percentage fixed"`
	Value             int64      `json:"value" binding:"required,min=1"`
	MinOrderAmount    int64      `json:"min_order_amount" binding:"min=0"`
	MaxDiscountAmount int64      `json:"max_discount_amount" binding:"min=0"`
	StartsAt          *time.Time `json:"starts_at"`
	EndsAt            *time.Time `json:"ends_at"`
	UsageLimit        int        `json:"usage_limit" binding:"min=0"`
	UsageLimitPerUser int        `json:"usage_limit_per_user" binding:"min=0"`
	IsActive          bool       `json:"is_active"`
}

// DiscountUpdateRequest represents discount update data
type DiscountUpdateRequest struct {
	Description       *string    `json:"description"`
	Value             *int64     `json:"value" binding:"omitempty,min=1"`
	MinOrderAmount    *int64     `json:"min_order_amount" binding:"omitempty,min=0"`
	MaxDiscountAmount *int64     `json:"max_discount_amount" binding:"omitempty,min=0"`
	StartsAt          *time.Time `json:"starts_at"`
	EndsAt            *time.Time `json:"ends_at"`
	UsageLimit        *int       `json:"usage_limit" binding:"omitempty,min=0"`
	UsageLimitPerUser *int       `json:"usage_limit_per_user" binding:"omitempty,min=0"`
	IsActive          *bool      `json:"is_active"`
}

// GetDiscounts retrieves all discounts for admin listing
func (s *Service) GetDiscounts(includeInactive bool) ([]Discount, error) {
	var discounts []Discount

	query := s.db.Model(&Discount{})
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Order("created_at DESC").Find(&discounts).Error; err != nil {
		return nil, apperr.Internal("failed to retrieve discounts", err)
	}

	return discounts, nil
}

// GetDiscount retrieves a discount by ID
func (s *Service) GetDiscount(id uint) (*Discount, error) {
	var d Discount
	if err := s.db.First(&d, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("discount not found")
		}
		return nil, apperr.Internal("failed to retrieve discount", err)
	}
	return &d, nil
}

// GetDiscountByCode retrieves a discount by its code, case-insensitively
func (s *Service) GetDiscountByCode(code string) (*Discount, error) {
	var d Discount
	err := s.db.Where("code = ?", NormalizeCode(code)).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("discount not found")
		}
		return nil, apperr.Internal("failed to retrieve discount", err)
	}
	return &d, nil
}

// CreateDiscount creates a new discount code
func (s *Service) CreateDiscount(req *DiscountCreateRequest) (*Discount, error) {
	if req.Type == TypePercentage && req.Value > 100 {
		return nil, apperr.BadRequest("percentage value cannot exceed 100")
	}
	if req.StartsAt != nil && req.EndsAt != nil && req.EndsAt.Before(*req.StartsAt) {
		return nil, apperr.BadRequest("ends_at must be after starts_at")
	}

	code := NormalizeCode(req.Code)

	var existing Discount
	if err := s.db.Where("code = ?", code).First(&existing).Error; err == nil {
		return nil, apperr.Conflict("discount code '%s' already exists", code)
	}

	d := Discount{
		Code:              code,
		Description:       req.Description,
		Type:              req.Type,
		Value:             req.Value,
		MinOrderAmount:    req.MinOrderAmount,
		MaxDiscountAmount: req.MaxDiscountAmount,
		StartsAt:          req.StartsAt,
		EndsAt:            req.EndsAt,
		UsageLimit:        req.UsageLimit,
		UsageLimitPerUser: req.UsageLimitPerUser,
		IsActive:          req.IsActive,
	}

	if err := s.db.Create(&d).Error; err != nil {
		return nil, apperr.Internal("failed to create discount", err)
	}

	return &d, nil
}

// UpdateDiscount updates an existing discount. The code itself is immutable
// so past orders keep pointing at the code they redeemed.
func (s *Service) UpdateDiscount(id uint, req *DiscountUpdateRequest) (*Discount, error) {
	d, err := s.GetDiscount(id)
	if err != nil {
		return nil, err
	}

	if req.Value != nil && d.Type == TypePercentage && *req.Value > 100 {
		return nil, apperr.BadRequest("percentage value cannot exceed 100")
	}

	updates := make(map[string]interface{})
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Value != nil {
		updates["value"] = *req.Value
	}
	if req.MinOrderAmount != nil {
		updates["min_order_amount"] = *req.MinOrderAmount
	}
	if req.MaxDiscountAmount != nil {
		updates["max_discount_amount"] = *req.MaxDiscountAmount
	}
	if req.StartsAt != nil {
		updates["starts_at"] = *req.StartsAt
	}
	if req.EndsAt != nil {
		updates["ends_at"] = *req.EndsAt
	}
	if req.UsageLimit != nil {
		updates["usage_limit"] = *req.UsageLimit
	}
	if req.UsageLimitPerUser != nil {
		updates["usage_limit_per_user"] = *req.UsageLimitPerUser
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(d).Updates(updates).Error; err != nil {
			return nil, apperr.Internal("failed to update discount", err)
		}
	}

	return s.GetDiscount(id)
}

// DeleteDiscount soft-deletes a discount. Redemption history stays intact.
func (s *Service) DeleteDiscount(id uint) error {
	result := s.db.Delete(&Discount{}, id)
	if result.Error != nil {
		return apperr.Internal("failed to delete discount", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("discount not found")
	}
	return nil
}

// EvaluateCode checks a code for a user's order subtotal at the current
// time. A missing or unusable code comes back as an unapplied evaluation
// with a reason, never an error: checkout proceeds at full price.
func (s *Service) EvaluateCode(code string, subtotal int64, userID uint, now time.Time) (Evaluation, error) {
	var d Discount
	err := s.db.Where("code = ?", NormalizeCode(code)).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Evaluation{Reason: ReasonNotFound}, nil
		}
		return Evaluation{}, apperr.Internal("failed to retrieve discount", err)
	}

	userRedemptions, err := s.CountUserRedemptions(s.db, d.ID, userID)
	if err != nil {
		return Evaluation{}, err
	}

	return Evaluate(&d, subtotal, userRedemptions, now), nil
}

// CountUserRedemptions counts how many times a user has redeemed a discount
func (s *Service) CountUserRedemptions(tx *gorm.DB, discountID, userID uint) (int64, error) {
	var count int64
	err := tx.Model(&DiscountRedemption{}).
		Where("discount_id = ? AND user_id = ?", discountID, userID).
		Count(&count).Error
	if err != nil {
		return 0, apperr.Internal("failed to count redemptions", err)
	}
	return count, nil
}

// Redeem records a discount use inside an order transaction. The usage
// counter increments with a guarded update so concurrent checkouts cannot
// push it past the global limit; zero rows affected means the code ran out
// between evaluation and redemption.
func (s *Service) Redeem(tx *gorm.DB, d *Discount, userID, orderID uint, amount int64) error {
	result := tx.Model(&Discount{}).
		Where("id = ? AND (usage_limit = 0 OR times_used < usage_limit)", d.ID).
		Update("times_used", gorm.Expr("times_used + 1"))
	if result.Error != nil {
		return apperr.Internal("failed to increment discount usage", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.Conflict("%s", ReasonExhausted)
	}

	redemption := DiscountRedemption{
		DiscountID: d.ID,
		UserID:     userID,
		OrderID:    orderID,
		Amount:     amount,
	}
	if err := tx.Create(&redemption).Error; err != nil {
		return apperr.Internal("failed to record discount redemption", err)
	}

	return nil
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
