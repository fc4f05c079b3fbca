// internal/domain/cart/service.go
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperr"
	"gorm.io/gorm"
)

// Service handles cart business logic
type Service struct {
	db          *gorm.DB
	redisClient *redis.Client
	config      *config.Config
}

// NewService creates a new cart service
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *Service {
	return &Service{
		db:          db,
		redisClient: redisClient,
		config:      cfg,
	}
}

// CartItemResponse represents a cart item with product details
type CartItemResponse struct {
	ProductID        uint                    `json:"product_id"`
	ProductVariantID uint                    `json:"product_variant_id"`
	Quantity         int                     `json:"quantity"`
	PriceAtAddition  int64                   `json:"price_at_addition"`
	Product          *product.Product        `json:"product,omitempty"`
	ProductVariant   *product.ProductVariant `json:"product_variant,omitempty"`
	AddedAt          time.Time               `json:"added_at"`
}

// CartResponse represents a shopping cart with items and totals
type CartResponse struct {
	SessionID string             `json:"session_id,omitempty"`
	UserID    *uint              `json:"user_id,omitempty"`
	Items     []CartItemResponse `json:"items"`
	Totals    CartTotals         `json:"totals"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// AddToCartRequest represents add to cart request
type AddToCartRequest struct {
	ProductVariantID uint `json:"product_variant_id" binding:"required"`
	Quantity         int  `json:"quantity" binding:"required,min=1"`
}

// UpdateCartItemRequest represents update cart item request
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=1"`
}

// GetOrCreateCart returns the user's cart, creating it on first use
func (s *Service) GetOrCreateCart(userID uint) (*Cart, error) {
	var userCart Cart
	err := s.db.Where("user_id = ?", userID).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		First(&userCart).Error
	if err == nil {
		return &userCart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Internal("failed to retrieve cart", err)
	}

	userCart = Cart{UserID: userID}
	if err := s.db.Create(&userCart).Error; err != nil {
		// Concurrent creation loses the unique index race; reload
		if retryErr := s.db.Where("user_id = ?", userID).First(&userCart).Error; retryErr != nil {
			return nil, apperr.Internal("failed to create cart", err)
		}
	}
	return &userCart, nil
}

// GetCart retrieves the cart for a user or guest session
func (s *Service) GetCart(userID *uint, sessionID string) (*CartResponse, error) {
	var cartItems []CartItemResponse
	var createdAt, updatedAt time.Time

	if userID != nil {
		userCart, err := s.GetOrCreateCart(*userID)
		if err != nil {
			return nil, err
		}

		cartItems = make([]CartItemResponse, len(userCart.Items))
		for i, item := range userCart.Items {
			cartItems[i] = CartItemResponse{
				ProductID:        item.ProductID,
				ProductVariantID: item.ProductVariantID,
				Quantity:         item.Quantity,
				PriceAtAddition:  item.PriceAtAddition,
				AddedAt:          item.CreatedAt,
			}
		}
		createdAt = userCart.CreatedAt
		updatedAt = userCart.UpdatedAt
	} else {
		sessionCart, err := s.getGuestCart(sessionID)
		if err != nil {
			return nil, err
		}

		cartItems = make([]CartItemResponse, len(sessionCart.Items))
		for i, item := range sessionCart.Items {
			cartItems[i] = CartItemResponse{
				ProductID:        item.ProductID,
				ProductVariantID: item.ProductVariantID,
				Quantity:         item.Quantity,
				PriceAtAddition:  item.PriceAtAddition,
				AddedAt:          item.AddedAt,
			}
		}
		createdAt = sessionCart.CreatedAt
		updatedAt = sessionCart.UpdatedAt
	}

	if err := s.loadProductDetails(cartItems); err != nil {
		return nil, err
	}

	return &CartResponse{
		SessionID: sessionID,
		UserID:    userID,
		Items:     cartItems,
		Totals:    CalculateTotals(cartItems),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// AddToCart adds a variant to the cart. Adding a variant that is already in
// the cart increases the quantity on the existing row and keeps its original
// price snapshot.
func (s *Service) AddToCart(userID *uint, sessionID string, req *AddToCartRequest) (*CartResponse, error) {
	variant, prod, err := s.lookupVariant(req.ProductVariantID)
	if err != nil {
		return nil, err
	}

	itemPrice := variant.EffectivePrice(prod)

	if userID != nil {
		err = s.addToUserCart(*userID, variant, prod.ID, req.Quantity, itemPrice)
	} else {
		err = s.addToGuestCart(sessionID, variant, prod.ID, req.Quantity, itemPrice)
	}
	if err != nil {
		return nil, err
	}

	return s.GetCart(userID, sessionID)
}

// UpdateCartItem sets the quantity of a cart line. The quantity must be
// positive; removing a line goes through RemoveFromCart instead.
func (s *Service) UpdateCartItem(userID *uint, sessionID string, variantID uint, quantity int) (*CartResponse, error) {
	if quantity <= 0 {
		return nil, apperr.BadRequest("quantity must be at least 1")
	}

	variant, _, err := s.lookupVariant(variantID)
	if err != nil {
		return nil, err
	}
	if !variant.IsInStock(quantity) {
		return nil, apperr.BadRequest("insufficient stock: %d available", variant.StockQuantity)
	}

	if userID != nil {
		err = s.updateUserCartItem(*userID, variantID, quantity)
	} else {
		err = s.updateGuestCartItem(sessionID, variantID, quantity)
	}
	if err != nil {
		return nil, err
	}

	return s.GetCart(userID, sessionID)
}

// RemoveFromCart removes a variant from the cart
func (s *Service) RemoveFromCart(userID *uint, sessionID string, variantID uint) (*CartResponse, error) {
	var err error
	if userID != nil {
		err = s.updateUserCartItem(*userID, variantID, 0)
	} else {
		err = s.updateGuestCartItem(sessionID, variantID, 0)
	}
	if err != nil {
		return nil, err
	}

	return s.GetCart(userID, sessionID)
}

// ClearCart removes all items from the cart. The cart row itself survives.
func (s *Service) ClearCart(userID *uint, sessionID string) error {
	if userID != nil {
		userCart, err := s.GetOrCreateCart(*userID)
		if err != nil {
			return err
		}
		if err := s.db.Where("cart_id = ?", userCart.ID).Delete(&CartItem{}).Error; err != nil {
			return apperr.Internal("failed to clear cart", err)
		}
		return nil
	}

	ctx := context.Background()
	return s.redisClient.Del(ctx, guestCartKey(sessionID)).Err()
}

// GetCartItemCount returns the total quantity across all cart lines
func (s *Service) GetCartItemCount(userID *uint, sessionID string) (int, error) {
	cartResponse, err := s.GetCart(userID, sessionID)
	if err != nil {
		return 0, err
	}

	totalItems := 0
	for _, item := range cartResponse.Items {
		totalItems += item.Quantity
	}
	return totalItems, nil
}

// MergeGuestCartToUser merges the guest session cart into the user's cart
// on login. Lines for variants already in the user cart add quantities and
// keep the user cart's price snapshot; new lines carry the guest snapshot.
// Merged quantities are capped at the current stock, and lines whose variant
// disappeared or went inactive in the meantime are dropped.
func (s *Service) MergeGuestCartToUser(userID uint, sessionID string) error {
	guestCart, err := s.getGuestCart(sessionID)
	if err != nil {
		return err
	}
	if len(guestCart.Items) == 0 {
		return nil
	}

	userCart, err := s.GetOrCreateCart(userID)
	if err != nil {
		return err
	}

	if err := s.mergeGuestItems(userCart.ID, guestCart.Items); err != nil {
		return err
	}

	return s.ClearCart(nil, sessionID)
}

func (s *Service) mergeGuestItems(cartID uint, guestItems []SessionCartItem) error {
	for _, guestItem := range guestItems {
		variant, _, err := s.lookupVariant(guestItem.ProductVariantID)
		if err != nil {
			if apperr.CodeOf(err) == apperr.CodeNotFound {
				continue
			}
			return err
		}

		var existingItem CartItem
		result := s.db.Where("cart_id = ? AND product_variant_id = ?",
			cartID, guestItem.ProductVariantID).First(&existingItem)

		switch {
		case errors.Is(result.Error, gorm.ErrRecordNotFound):
			quantity := clampToStock(guestItem.Quantity, variant.StockQuantity)
			if quantity == 0 {
				continue
			}
			newItem := CartItem{
				CartID:           cartID,
				ProductID:        guestItem.ProductID,
				ProductVariantID: guestItem.ProductVariantID,
				Quantity:         quantity,
				PriceAtAddition:  guestItem.PriceAtAddition,
			}
			if err := s.db.Create(&newItem).Error; err != nil {
				return apperr.Internal("failed to merge cart item", err)
			}
		case result.Error != nil:
			return apperr.Internal("failed to retrieve cart item", result.Error)
		default:
			merged := clampToStock(existingItem.Quantity+guestItem.Quantity, variant.StockQuantity)
			if merged == existingItem.Quantity {
				continue
			}
			if err := s.db.Model(&existingItem).Update("quantity", merged).Error; err != nil {
				return apperr.Internal("failed to merge cart item", err)
			}
		}
	}

	return nil
}

func clampToStock(quantity, stock int) int {
	if quantity > stock {
		return stock
	}
	return quantity
}

// Private helper methods

// lookupVariant loads an active variant and its active parent product
func (s *Service) lookupVariant(variantID uint) (*product.ProductVariant, *product.Product, error) {
	var variant product.ProductVariant
	result := s.db.Where("id = ? AND is_active = ?", variantID, true).First(&variant)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("product variant not found or inactive")
		}
		return nil, nil, apperr.Internal("failed to retrieve variant", result.Error)
	}

	var prod product.Product
	result = s.db.Where("id = ? AND is_active = ?", variant.ProductID, true).First(&prod)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("product not found or inactive")
		}
		return nil, nil, apperr.Internal("failed to retrieve product", result.Error)
	}

	return &variant, &prod, nil
}

func (s *Service) addToUserCart(userID uint, variant *product.ProductVariant, productID uint, quantity int, price int64) error {
	userCart, err := s.GetOrCreateCart(userID)
	if err != nil {
		return err
	}

	var existingItem CartItem
	result := s.db.Where("cart_id = ? AND product_variant_id = ?", userCart.ID, variant.ID).First(&existingItem)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		if !variant.IsInStock(quantity) {
			return apperr.BadRequest("insufficient stock: %d available", variant.StockQuantity)
		}
		newItem := CartItem{
			CartID:           userCart.ID,
			ProductID:        productID,
			ProductVariantID: variant.ID,
			Quantity:         quantity,
			PriceAtAddition:  price,
		}
		if err := s.db.Create(&newItem).Error; err != nil {
			return apperr.Internal("failed to add cart item", err)
		}
		return nil
	}
	if result.Error != nil {
		return apperr.Internal("failed to retrieve cart item", result.Error)
	}

	newQuantity := existingItem.Quantity + quantity
	if !variant.IsInStock(newQuantity) {
		return apperr.BadRequest("insufficient stock for total quantity: %d available", variant.StockQuantity)
	}

	// Quantity only; the price snapshot from the first add stays
	if err := s.db.Model(&existingItem).Update("quantity", newQuantity).Error; err != nil {
		return apperr.Internal("failed to update cart item", err)
	}
	return nil
}

func (s *Service) addToGuestCart(sessionID string, variant *product.ProductVariant, productID uint, quantity int, price int64) error {
	sessionCart, err := s.getGuestCart(sessionID)
	if err != nil {
		return err
	}

	itemExists := false
	for i := range sessionCart.Items {
		if sessionCart.Items[i].ProductVariantID == variant.ID {
			newQuantity := sessionCart.Items[i].Quantity + quantity
			if !variant.IsInStock(newQuantity) {
				return apperr.BadRequest("insufficient stock for total quantity: %d available", variant.StockQuantity)
			}
			sessionCart.Items[i].Quantity = newQuantity
			itemExists = true
			break
		}
	}

	if !itemExists {
		if !variant.IsInStock(quantity) {
			return apperr.BadRequest("insufficient stock: %d available", variant.StockQuantity)
		}
		sessionCart.Items = append(sessionCart.Items, SessionCartItem{
			ProductID:        productID,
			ProductVariantID: variant.ID,
			Quantity:         quantity,
			PriceAtAddition:  price,
			AddedAt:          time.Now().UTC(),
		})
	}

	sessionCart.UpdatedAt = time.Now().UTC()
	return s.saveGuestCart(sessionID, sessionCart)
}

func (s *Service) updateUserCartItem(userID, variantID uint, quantity int) error {
	userCart, err := s.GetOrCreateCart(userID)
	if err != nil {
		return err
	}

	query := s.db.Where("cart_id = ? AND product_variant_id = ?", userCart.ID, variantID)

	if quantity == 0 {
		result := query.Delete(&CartItem{})
		if result.Error != nil {
			return apperr.Internal("failed to remove cart item", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperr.NotFound("item not found in cart")
		}
		return nil
	}

	result := s.db.Model(&CartItem{}).
		Where("cart_id = ? AND product_variant_id = ?", userCart.ID, variantID).
		Update("quantity", quantity)
	if result.Error != nil {
		return apperr.Internal("failed to update cart item", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("item not found in cart")
	}
	return nil
}

func (s *Service) updateGuestCartItem(sessionID string, variantID uint, quantity int) error {
	sessionCart, err := s.getGuestCart(sessionID)
	if err != nil {
		return err
	}

	itemFound := false
	for i := range sessionCart.Items {
		if sessionCart.Items[i].ProductVariantID == variantID {
			if quantity == 0 {
				sessionCart.Items = append(sessionCart.Items[:i], sessionCart.Items[i+1:]...)
			} else {
				sessionCart.Items[i].Quantity = quantity
			}
			itemFound = true
			break
		}
	}

	if !itemFound {
		return apperr.NotFound("item not found in cart")
	}

	sessionCart.UpdatedAt = time.Now().UTC()
	return s.saveGuestCart(sessionID, sessionCart)
}

func guestCartKey(sessionID string) string {
	return fmt.Sprintf("cart:session:%s", sessionID)
}

func (s *Service) getGuestCart(sessionID string) (*SessionCart, error) {
	if sessionID == "" {
		return nil, apperr.BadRequest("session ID required for guest cart")
	}

	ctx := context.Background()

	cartData, err := s.redisClient.Get(ctx, guestCartKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		now := time.Now().UTC()
		return &SessionCart{
			SessionID: sessionID,
			Items:     []SessionCartItem{},
			CreatedAt: now,
			UpdatedAt: now,
			ExpiresAt: now.Add(s.config.Cart.GuestSessionTTL),
		}, nil
	} else if err != nil {
		return nil, apperr.Internal("failed to retrieve guest cart", err)
	}

	var sessionCart SessionCart
	if err := json.Unmarshal([]byte(cartData), &sessionCart); err != nil {
		return nil, apperr.Internal("failed to decode guest cart", err)
	}

	return &sessionCart, nil
}

func (s *Service) saveGuestCart(sessionID string, sessionCart *SessionCart) error {
	ctx := context.Background()

	cartData, err := json.Marshal(sessionCart)
	if err != nil {
		return apperr.Internal("failed to encode guest cart", err)
	}

	if err := s.redisClient.Set(ctx, guestCartKey(sessionID), cartData, s.config.Cart.GuestSessionTTL).Err(); err != nil {
		return apperr.Internal("failed to save guest cart", err)
	}
	return nil
}

func (s *Service) loadProductDetails(cartItems []CartItemResponse) error {
	for i := range cartItems {
		var prod product.Product
		err := s.db.Preload("Category").
			Where("id = ?", cartItems[i].ProductID).First(&prod).Error
		if err != nil {
			continue // Skip stale lines whose product disappeared
		}
		cartItems[i].Product = &prod

		var variant product.ProductVariant
		if err := s.db.Where("id = ?", cartItems[i].ProductVariantID).First(&variant).Error; err == nil {
			cartItems[i].ProductVariant = &variant
		}
	}

	return nil
}

// CalculateTotals sums cart lines using their price snapshots
func CalculateTotals(cartItems []CartItemResponse) CartTotals {
	var totals CartTotals

	totals.ItemCount = len(cartItems)
	for _, item := range cartItems {
		totals.TotalQuantity += item.Quantity
		totals.SubTotal += item.PriceAtAddition * int64(item.Quantity)
	}

	return totals
}
