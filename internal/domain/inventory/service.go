// internal/domain/inventory/service.go
package inventory

import (
	"errors"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperr"
	"gorm.io/gorm"
)

// Service handles inventory business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// AdjustStockRequest represents a manual stock adjustment
type AdjustStockRequest struct {
	QuantityChange int    `json:"quantity_change" binding:"required"`
	MovementType   string `json:"movement_type" binding:"required,oneof=adjustment restock"`
	Note           string `json:"note" binding:"max=500"`
}

// LogListRequest represents inventory log query parameters
type LogListRequest struct {
	Page         int    `form:"page,default=1"`
	Limit        int    `form:"limit,default=20"`
	MovementType string `form:"movement_type"`
}

// LogListResponse represents inventory logs with pagination
type LogListResponse struct {
	Logs       []InventoryLog `json:"logs"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}

// AdjustStock applies a manual stock change to a variant and records it.
// Decrements use a guarded update so the stored quantity can never go
// negative, even under concurrent adjustments.
func (s *Service) AdjustStock(variantID uint, adminID uint, req *AdjustStockRequest) (*product.ProductVariant, error) {
	if req.QuantityChange == 0 {
		return nil, apperr.BadRequest("quantity change cannot be zero")
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var variant product.ProductVariant
	if err := tx.First(&variant, variantID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product variant not found")
		}
		return nil, apperr.Internal("failed to retrieve variant", err)
	}

	newQuantity := variant.StockQuantity + req.QuantityChange
	if newQuantity < 0 {
		tx.Rollback()
		return nil, apperr.BadRequest("adjustment would make stock negative: %d available", variant.StockQuantity)
	}

	if req.QuantityChange < 0 {
		result := tx.Model(&product.ProductVariant{}).
			Where("id = ? AND stock_quantity >= ?", variantID, -req.QuantityChange).
			Update("stock_quantity", gorm.Expr("stock_quantity + ?", req.QuantityChange))
		if result.Error != nil {
			tx.Rollback()
			return nil, apperr.Internal("failed to adjust stock", result.Error)
		}
		if result.RowsAffected == 0 {
			tx.Rollback()
			return nil, apperr.Conflict("stock changed concurrently, retry the adjustment")
		}
	} else {
		if err := tx.Model(&product.ProductVariant{}).
			Where("id = ?", variantID).
			Update("stock_quantity", gorm.Expr("stock_quantity + ?", req.QuantityChange)).Error; err != nil {
			tx.Rollback()
			return nil, apperr.Internal("failed to adjust stock", err)
		}
	}

	logEntry := InventoryLog{
		ProductVariantID: variantID,
		MovementType:     MovementType(req.MovementType),
		QuantityChange:   req.QuantityChange,
		PreviousQuantity: variant.StockQuantity,
		NewQuantity:      newQuantity,
		PerformedBy:      &adminID,
		Note:             req.Note,
	}
	if err := tx.Create(&logEntry).Error; err != nil {
		tx.Rollback()
		return nil, apperr.Internal("failed to record inventory movement", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperr.Internal("failed to commit transaction", err)
	}

	variant.StockQuantity = newQuantity
	return &variant, nil
}

// RecordMovement writes a movement row inside an existing transaction.
// Order placement and cancellation use this alongside their own guarded
// stock updates.
func (s *Service) RecordMovement(tx *gorm.DB, logEntry *InventoryLog) error {
	if err := tx.Create(logEntry).Error; err != nil {
		return apperr.Internal("failed to record inventory movement", err)
	}
	return nil
}

// GetVariantLogs retrieves the movement history for a variant
func (s *Service) GetVariantLogs(variantID uint, req *LogListRequest) (*LogListResponse, error) {
	var variant product.ProductVariant
	if err := s.db.First(&variant, variantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product variant not found")
		}
		return nil, apperr.Internal("failed to retrieve variant", err)
	}

	var logs []InventoryLog
	var total int64

	query := s.db.Model(&InventoryLog{}).Where("product_variant_id = ?", variantID)
	if req.MovementType != "" {
		query = query.Where("movement_type = ?", req.MovementType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, apperr.Internal("failed to count inventory logs", err)
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(req.Limit).Find(&logs).Error; err != nil {
		return nil, apperr.Internal("failed to retrieve inventory logs", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &LogListResponse{
		Logs:       logs,
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: totalPages,
	}, nil
}
