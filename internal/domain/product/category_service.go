// internal/domain/product/category_service.go
package product

import (
	"errors"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/apperr"
	"gorm.io/gorm"
)

// CategoryService handles category business logic
type CategoryService struct {
	db     *gorm.DB
	config *config.Config
}

// NewCategoryService creates a new category service
func NewCategoryService(db *gorm.DB, cfg *config.Config) *CategoryService {
	return &CategoryService{
		db:     db,
		config: cfg,
	}
}

// CategoryCreateRequest represents category creation data
type CategoryCreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Image       string `json:"image"`
	ParentID    *uint  `json:"parent_id"`
	SortOrder   int    `json:"sort_order"`
	IsActive    bool   `json:"is_active"`
}

// CategoryUpdateRequest represents category update data
type CategoryUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
	ParentID    *uint   `json:"parent_id"`
	SortOrder   *int    `json:"sort_order"`
	IsActive    *bool   `json:"is_active"`
}

// GetCategories retrieves all categories ordered for display
func (s *CategoryService) GetCategories(includeInactive bool) ([]Category, error) {
	var categories []Category

	query := s.db.Model(&Category{})
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Order("sort_order ASC, name ASC").Find(&categories).Error; err != nil {
		return nil, apperr.Internal("failed to retrieve categories", err)
	}

	return categories, nil
}

// GetCategory retrieves a single category with its children
func (s *CategoryService) GetCategory(id uint) (*Category, error) {
	var category Category
	result := s.db.
		Preload("Children", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, name ASC")
		}).
		First(&category, id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("category not found")
		}
		return nil, apperr.Internal("failed to retrieve category", result.Error)
	}

	return &category, nil
}

// GetCategoryBySlug retrieves a single category by slug
func (s *CategoryService) GetCategoryBySlug(slug string) (*Category, error) {
	var category Category
	result := s.db.
		Preload("Children", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, name ASC")
		}).
		Where("slug = ?", slug).
		First(&category)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("category not found")
		}
		return nil, apperr.Internal("failed to retrieve category", result.Error)
	}

	return &category, nil
}

// CreateCategory creates a new category
func (s *CategoryService) CreateCategory(req *CategoryCreateRequest) (*Category, error) {
	slug := generateSlug(req.Name)

	var existing Category
	if err := s.db.Where("slug = ?", slug).First(&existing).Error; err == nil {
		return nil, apperr.Conflict("category '%s' already exists", req.Name)
	}

	if req.ParentID != nil {
		var parent Category
		if err := s.db.First(&parent, *req.ParentID).Error; err != nil {
			return nil, apperr.BadRequest("parent category %d does not exist", *req.ParentID)
		}
	}

	category := Category{
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
		Image:       req.Image,
		ParentID:    req.ParentID,
		SortOrder:   req.SortOrder,
		IsActive:    req.IsActive,
	}

	if err := s.db.Create(&category).Error; err != nil {
		return nil, apperr.Internal("failed to create category", err)
	}

	return &category, nil
}

// UpdateCategory updates an existing category
func (s *CategoryService) UpdateCategory(id uint, req *CategoryUpdateRequest) (*Category, error) {
	category, err := s.GetCategory(id)
	if err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		if *req.ParentID == id || s.isCircularReference(id, *req.ParentID) {
			return nil, apperr.BadRequest("category cannot be its own ancestor")
		}
		var parent Category
		if err := s.db.First(&parent, *req.ParentID).Error; err != nil {
			return nil, apperr.BadRequest("parent category %d does not exist", *req.ParentID)
		}
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
		updates["slug"] = generateSlug(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Image != nil {
		updates["image"] = *req.Image
	}
	if req.ParentID != nil {
		updates["parent_id"] = *req.ParentID
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(category).Updates(updates).Error; err != nil {
			return nil, apperr.Internal("failed to update category", err)
		}
	}

	return s.GetCategory(id)
}

// DeleteCategory soft-deletes a category when it has no products
func (s *CategoryService) DeleteCategory(id uint) error {
	if _, err := s.GetCategory(id); err != nil {
		return err
	}

	var productCount int64
	if err := s.db.Model(&Product{}).Where("category_id = ?", id).Count(&productCount).Error; err != nil {
		return apperr.Internal("failed to count category products", err)
	}
	if productCount > 0 {
		return apperr.BadRequest("category has %d products and cannot be deleted", productCount)
	}

	var childCount int64
	if err := s.db.Model(&Category{}).Where("parent_id = ?", id).Count(&childCount).Error; err != nil {
		return apperr.Internal("failed to count subcategories", err)
	}
	if childCount > 0 {
		return apperr.BadRequest("category has %d subcategories and cannot be deleted", childCount)
	}

	if err := s.db.Delete(&Category{}, id).Error; err != nil {
		return apperr.Internal("failed to delete category", err)
	}

	return nil
}

// isCircularReference walks the ancestor chain of parentID looking for categoryID
func (s *CategoryService) isCircularReference(categoryID, parentID uint) bool {
	current := parentID
	for current != 0 {
		var category Category
		if err := s.db.Select("parent_id").First(&category, current).Error; err != nil {
			return false
		}
		if category.ParentID == nil {
			return false
		}
		if *category.ParentID == categoryID {
			return true
		}
		current = *category.ParentID
	}
	return false
}
