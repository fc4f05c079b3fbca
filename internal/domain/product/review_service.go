// internal/domain/product/review_service.go
package product

import (
	"errors"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/apperr"
	"gorm.io/gorm"
)

// ReviewService handles product review business logic
type ReviewService struct {
	db     *gorm.DB
	config *config.Config
}

// NewReviewService creates a new review service
func NewReviewService(db *gorm.DB, cfg *config.Config) *ReviewService {
	return &ReviewService{
		db:     db,
		config: cfg,
	}
}

// ReviewCreateRequest represents review creation data
type ReviewCreateRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Title   string `json:"title" binding:"max=255"`
	Content string `json:"content"`
}

// ReviewListRequest represents review list query parameters
type ReviewListRequest struct {
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=20"`
}

// ReviewListResponse represents reviews with pagination
type ReviewListResponse struct {
	Reviews    []ProductReview `json:"reviews"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}

// CreateReview creates a review for a product. One review per user per
// product; a delivered order containing the product marks it verified.
func (s *ReviewService) CreateReview(productID, userID uint, req *ReviewCreateRequest) (*ProductReview, error) {
	var prod Product
	if err := s.db.Where("id = ? AND is_active = ?", productID, true).First(&prod).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, apperr.Internal("failed to retrieve product", err)
	}

	var existing ProductReview
	if err := s.db.Where("product_id = ? AND user_id = ?", productID, userID).First(&existing).Error; err == nil {
		return nil, apperr.Conflict("you have already reviewed this product")
	}

	orderID, verified, err := s.findVerifiedPurchase(productID, userID)
	if err != nil {
		return nil, err
	}

	review := ProductReview{
		ProductID:  productID,
		UserID:     userID,
		OrderID:    orderID,
		Rating:     req.Rating,
		Title:      req.Title,
		Content:    req.Content,
		IsVerified: verified,
		IsApproved: false,
	}

	if err := s.db.Create(&review).Error; err != nil {
		return nil, apperr.Internal("failed to create review", err)
	}

	return &review, nil
}

// GetProductReviews lists approved reviews for a product
func (s *ReviewService) GetProductReviews(productID uint, req *ReviewListRequest) (*ReviewListResponse, error) {
	var reviews []ProductReview
	var total int64

	query := s.db.Model(&ProductReview{}).
		Where("product_id = ? AND is_approved = ?", productID, true)

	if err := query.Count(&total).Error; err != nil {
		return nil, apperr.Internal("failed to count reviews", err)
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.Limit).Find(&reviews).Error; err != nil {
		return nil, apperr.Internal("failed to retrieve reviews", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &ReviewListResponse{
		Reviews:    reviews,
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: totalPages,
	}, nil
}

// GetPendingReviews lists reviews awaiting moderation (admin)
func (s *ReviewService) GetPendingReviews(req *ReviewListRequest) (*ReviewListResponse, error) {
	var reviews []ProductReview
	var total int64

	query := s.db.Model(&ProductReview{}).Where("is_approved = ?", false)

	if err := query.Count(&total).Error; err != nil {
		return nil, apperr.Internal("failed to count reviews", err)
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Order("created_at ASC").Offset(offset).Limit(req.Limit).Find(&reviews).Error; err != nil {
		return nil, apperr.Internal("failed to retrieve reviews", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &ReviewListResponse{
		Reviews:    reviews,
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: totalPages,
	}, nil
}

// ModerateReview approves or rejects a review (admin). Rejection deletes it.
func (s *ReviewService) ModerateReview(reviewID uint, approve bool) (*ProductReview, error) {
	var review ProductReview
	if err := s.db.First(&review, reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("review not found")
		}
		return nil, apperr.Internal("failed to retrieve review", err)
	}

	if !approve {
		if err := s.db.Delete(&review).Error; err != nil {
			return nil, apperr.Internal("failed to delete review", err)
		}
		return &review, nil
	}

	if err := s.db.Model(&review).Update("is_approved", true).Error; err != nil {
		return nil, apperr.Internal("failed to approve review", err)
	}
	review.IsApproved = true

	return &review, nil
}

// findVerifiedPurchase looks for a delivered order of this user containing
// the product. The order tables are queried by name to keep the product
// package free of an order package dependency.
func (s *ReviewService) findVerifiedPurchase(productID, userID uint) (*uint, bool, error) {
	var row struct{ OrderID uint }
	err := s.db.Table("order_items").
		Select("order_items.order_id").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND orders.status = ? AND order_items.product_id = ?",
			userID, "delivered", productID).
		Order("order_items.order_id DESC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return nil, false, apperr.Internal("failed to check purchase history", err)
	}
	if row.OrderID == 0 {
		return nil, false, nil
	}
	return &row.OrderID, true, nil
}
