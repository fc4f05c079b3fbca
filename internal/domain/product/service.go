// internal/domain/product/service.go
package product

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/apperr"
	"gorm.io/gorm"
)

// Service handles product business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new product service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	Page       int    `form:"page,default=1"`
	Limit      int    `form:"limit,default=20"`
	CategoryID uint   `form:"category_id"`
	Search     string `form:"search"`
	SortBy     string `form:"sort_by,default=created_at"`
	SortOrder  string `form:"sort_order,default=desc"`
	MinPrice   int64  `form:"min_price"`
	MaxPrice   int64  `form:"max_price"`
	IsActive   *bool  `form:"is_active"`
	IsFeatured *bool  `form:"is_featured"`
}

// ProductCreateRequest represents product creation data
type ProductCreateRequest struct {
	SKU            string                 `json:"sku" binding:"required"`
	Name           string                 `json:"name" binding:"required"`
	Description    string                 `json:"description"`
	ShortDesc      string                 `json:"short_description"`
	Price          int64                  `json:"price" binding:"required,min=1"`
	ComparePrice   int64                  `json:"compare_price"`
	CategoryID     uint                   `json:"category_id" binding:"required"`
	IsActive       bool                   `json:"is_active"`
	IsFeatured     bool                   `json:"is_featured"`
	SeoTitle       string                 `json:"seo_title"`
	SeoDescription string                 `json:"seo_description"`
	Tags           string                 `json:"tags"`
	Variants       []VariantCreateRequest `json:"variants" binding:"required,min=1,dive"`
}

// VariantCreateRequest represents variant creation data
type VariantCreateRequest struct {
	SKU           string `json:"sku" binding:"required"`
	Name          string `json:"name" binding:"required"`
	Price         int64  `json:"price"`
	StockQuantity int    `json:"stock_quantity" binding:"min=0"`
	Options       string `json:"options"`
}

// ProductUpdateRequest represents product update data
type ProductUpdateRequest struct {
	Name           *string `json:"name"`
	Description    *string `json:"description"`
	ShortDesc      *string `json:"short_description"`
	Price          *int64  `json:"price"`
	ComparePrice   *int64  `json:"compare_price"`
	CategoryID     *uint   `json:"category_id"`
	IsActive       *bool   `json:"is_active"`
	IsFeatured     *bool   `json:"is_featured"`
	SeoTitle       *string `json:"seo_title"`
	SeoDescription *string `json:"seo_description"`
	Tags           *string `json:"tags"`
}

// VariantUpdateRequest represents variant update data
type VariantUpdateRequest struct {
	Name     *string `json:"name"`
	Price    *int64  `json:"price"`
	Options  *string `json:"options"`
	IsActive *bool   `json:"is_active"`
}

// ProductResponse represents product response with pagination
type ProductResponse struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// GetProducts retrieves products with filtering and pagination
func (s *Service) GetProducts(req *ProductListRequest) (*ProductResponse, error) {
	var products []Product
	var total int64

	query := s.db.Model(&Product{}).
		Preload("Category").
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("id ASC")
		}).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_primary DESC, sort_order ASC, id ASC")
		})

	if req.CategoryID > 0 {
		query = query.Where("category_id = ?", req.CategoryID)
	}

	if req.Search != "" {
		search := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(tags) LIKE ?", search, search, search)
	}

	if req.MinPrice > 0 {
		query = query.Where("price >= ?", req.MinPrice)
	}

	if req.MaxPrice > 0 {
		query = query.Where("price <= ?", req.MaxPrice)
	}

	if req.IsActive != nil {
		query = query.Where("is_active = ?", *req.IsActive)
	}

	if req.IsFeatured != nil {
		query = query.Where("is_featured = ?", *req.IsFeatured)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, apperr.Internal("failed to count products", err)
	}

	query = query.Order(s.buildOrderClause(req.SortBy, req.SortOrder))

	offset := (req.Page - 1) * req.Limit
	if err := query.Offset(offset).Limit(req.Limit).Find(&products).Error; err != nil {
		return nil, apperr.Internal("failed to retrieve products", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &ProductResponse{
		Products: products,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// GetProduct retrieves a single product by ID
func (s *Service) GetProduct(id uint) (*Product, error) {
	var prod Product
	result := s.db.
		Preload("Category").
		Preload("Variants").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_primary DESC, sort_order ASC, id ASC")
		}).
		First(&prod, id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, apperr.Internal("failed to retrieve product", result.Error)
	}

	return &prod, nil
}

// GetProductBySlug retrieves a single product by slug
func (s *Service) GetProductBySlug(slug string) (*Product, error) {
	var prod Product
	result := s.db.
		Preload("Category").
		Preload("Variants").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_primary DESC, sort_order ASC, id ASC")
		}).
		Where("slug = ?", slug).
		First(&prod)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, apperr.Internal("failed to retrieve product", result.Error)
	}

	return &prod, nil
}

// GetVariant retrieves a variant with its parent product
func (s *Service) GetVariant(variantID uint) (*ProductVariant, *Product, error) {
	var variant ProductVariant
	if err := s.db.First(&variant, variantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("product variant not found")
		}
		return nil, nil, apperr.Internal("failed to retrieve variant", err)
	}

	var prod Product
	if err := s.db.First(&prod, variant.ProductID).Error; err != nil {
		return nil, nil, apperr.Internal("failed to retrieve variant product", err)
	}

	return &variant, &prod, nil
}

// CreateProduct creates a new product with its variants
func (s *Service) CreateProduct(req *ProductCreateRequest) (*Product, error) {
	// SKU must be unique
	var existing Product
	if err := s.db.Where("sku = ?", req.SKU).First(&existing).Error; err == nil {
		return nil, apperr.Conflict("product with SKU '%s' already exists", req.SKU)
	}

	var category Category
	if err := s.db.First(&category, req.CategoryID).Error; err != nil {
		return nil, apperr.BadRequest("category %d does not exist", req.CategoryID)
	}

	prod := Product{
		SKU:            req.SKU,
		Name:           req.Name,
		Slug:           generateSlug(req.Name),
		Description:    req.Description,
		ShortDesc:      req.ShortDesc,
		Price:          req.Price,
		ComparePrice:   req.ComparePrice,
		CategoryID:     req.CategoryID,
		IsActive:       req.IsActive,
		IsFeatured:     req.IsFeatured,
		SeoTitle:       req.SeoTitle,
		SeoDescription: req.SeoDescription,
		Tags:           req.Tags,
	}

	for _, v := range req.Variants {
		prod.Variants = append(prod.Variants, ProductVariant{
			SKU:           v.SKU,
			Name:          v.Name,
			Price:         v.Price,
			StockQuantity: v.StockQuantity,
			Options:       v.Options,
			IsActive:      true,
		})
	}

	if err := s.db.Create(&prod).Error; err != nil {
		return nil, apperr.Internal("failed to create product", err)
	}

	return s.GetProduct(prod.ID)
}

// UpdateProduct updates an existing product
func (s *Service) UpdateProduct(id uint, req *ProductUpdateRequest) (*Product, error) {
	prod, err := s.GetProduct(id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if req.Name != nil {
		updates["name"] = *req.Name
		updates["slug"] = generateSlug(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ShortDesc != nil {
		updates["short_desc"] = *req.ShortDesc
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			return nil, apperr.BadRequest("price must be positive")
		}
		updates["price"] = *req.Price
	}
	if req.ComparePrice != nil {
		updates["compare_price"] = *req.ComparePrice
	}
	if req.CategoryID != nil {
		var category Category
		if err := s.db.First(&category, *req.CategoryID).Error; err != nil {
			return nil, apperr.BadRequest("category %d does not exist", *req.CategoryID)
		}
		updates["category_id"] = *req.CategoryID
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.IsFeatured != nil {
		updates["is_featured"] = *req.IsFeatured
	}
	if req.SeoTitle != nil {
		updates["seo_title"] = *req.SeoTitle
	}
	if req.SeoDescription != nil {
		updates["seo_description"] = *req.SeoDescription
	}
	if req.Tags != nil {
		updates["tags"] = *req.Tags
	}

	if len(updates) > 0 {
		if err := s.db.Model(prod).Updates(updates).Error; err != nil {
			return nil, apperr.Internal("failed to update product", err)
		}
	}

	return s.GetProduct(id)
}

// DeleteProduct soft-deletes a product
func (s *Service) DeleteProduct(id uint) error {
	result := s.db.Delete(&Product{}, id)
	if result.Error != nil {
		return apperr.Internal("failed to delete product", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("product not found")
	}
	return nil
}

// AddVariant adds a variant to an existing product
func (s *Service) AddVariant(productID uint, req *VariantCreateRequest) (*ProductVariant, error) {
	if _, err := s.GetProduct(productID); err != nil {
		return nil, err
	}

	var existing ProductVariant
	if err := s.db.Where("sku = ?", req.SKU).First(&existing).Error; err == nil {
		return nil, apperr.Conflict("variant with SKU '%s' already exists", req.SKU)
	}

	variant := ProductVariant{
		ProductID:     productID,
		SKU:           req.SKU,
		Name:          req.Name,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		Options:       req.Options,
		IsActive:      true,
	}

	if err := s.db.Create(&variant).Error; err != nil {
		return nil, apperr.Internal("failed to create variant", err)
	}

	return &variant, nil
}

// UpdateVariant updates a variant. Stock changes go through the inventory
// service so every movement is logged.
func (s *Service) UpdateVariant(productID, variantID uint, req *VariantUpdateRequest) (*ProductVariant, error) {
	var variant ProductVariant
	if err := s.db.Where("id = ? AND product_id = ?", variantID, productID).First(&variant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product variant not found")
		}
		return nil, apperr.Internal("failed to retrieve variant", err)
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Options != nil {
		updates["options"] = *req.Options
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(&variant).Updates(updates).Error; err != nil {
			return nil, apperr.Internal("failed to update variant", err)
		}
	}

	return &variant, nil
}

// Private helper methods

func (s *Service) buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"created_at": true,
		"updated_at": true,
		"price":      true,
		"name":       true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s", sortBy, sortOrder)
}

var slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)

func generateSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugInvalidChars.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
