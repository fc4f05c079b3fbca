// internal/interfaces/http/handlers/discount.go
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/discount"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// DiscountHandler handles discount code endpoints
type DiscountHandler struct {
	discountService *discount.Service
	cartService     *cart.Service
	config          *config.Config
}

// NewDiscountHandler creates a new discount handler
func NewDiscountHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *DiscountHandler {
	return &DiscountHandler{
		discountService: discount.NewService(db, cfg),
		cartService:     cart.NewService(db, redisClient, cfg),
		config:          cfg,
	}
}

// ValidateCode handles POST /discounts/validate - previews a code against
// the caller's current cart. The authoritative evaluation happens again
// inside order placement.
func (h *DiscountHandler) ValidateCode(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	cartResponse, err := h.cartService.GetCart(&userID, "")
	if err != nil {
		respondError(c, err)
		return
	}

	eval, err := h.discountService.EvaluateCode(req.Code, cartResponse.Totals.SubTotal, userID, time.Now().UTC())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Discount code evaluated",
		"data":    eval,
	})
}

// GetDiscounts handles GET /admin/discounts
func (h *DiscountHandler) GetDiscounts(c *gin.Context) {
	includeInactive := c.Query("include_inactive") == "true"

	discounts, err := h.discountService.GetDiscounts(includeInactive)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Discounts retrieved successfully",
		"data":    discounts,
	})
}

// GetDiscount handles GET /admin/discounts/:id
func (h *DiscountHandler) GetDiscount(c *gin.Context) {
	discountID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	d, err := h.discountService.GetDiscount(discountID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Discount retrieved successfully",
		"data":    d,
	})
}

// CreateDiscount handles POST /admin/discounts
func (h *DiscountHandler) CreateDiscount(c *gin.Context) {
	var req discount.DiscountCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	d, err := h.discountService.CreateDiscount(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Discount created successfully",
		"data":    d,
	})
}

// UpdateDiscount handles PUT /admin/discounts/:id
func (h *DiscountHandler) UpdateDiscount(c *gin.Context) {
	discountID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req discount.DiscountUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	d, err := h.discountService.UpdateDiscount(discountID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Discount updated successfully",
		"data":    d,
	})
}

// DeleteDiscount handles DELETE /admin/discounts/:id
func (h *DiscountHandler) DeleteDiscount(c *gin.Context) {
	discountID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.discountService.DeleteDiscount(discountID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Discount deleted successfully",
	})
}
