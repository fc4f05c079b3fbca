// internal/domain/order/service.go
package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/discount"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/pkg/apperr"
	"gorm.io/gorm"
)

// Service handles order business logic
type Service struct {
	db               *gorm.DB
	config           *config.Config
	cartService      *cart.Service
	discountService  *discount.Service
	inventoryService *inventory.Service
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config, cartService *cart.Service, discountService *discount.Service, inventoryService *inventory.Service) *Service {
	return &Service{
		db:               db,
		config:           cfg,
		cartService:      cartService,
		discountService:  discountService,
		inventoryService: inventoryService,
	}
}

// PlaceOrderRequest represents order placement data
type PlaceOrderRequest struct {
	ShippingAddressID uint   `json:"shipping_address_id" binding:"required"`
	BillingAddressID  *uint  `json:"billing_address_id"` // Defaults to shipping address
	PaymentMethod     string `json:"payment_method" binding:"required"`
	Notes             string `json:"notes"`
	DiscountCode      string `json:"discount_code"`
}

// PlaceOrderResult carries the created order plus the discount outcome.
// A rejected code does not fail the order; Discount.Reason says why the
// order went through at full price.
type PlaceOrderResult struct {
	Order    *Order              `json:"order"`
	Discount discount.Evaluation `json:"discount"`
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page      int         `form:"page,default=1"`
	Limit     int         `form:"limit,default=20"`
	Status    OrderStatus `form:"status"`
	UserID    uint        `form:"user_id"`
	SortBy    string      `form:"sort_by,default=created_at"`
	SortOrder string      `form:"sort_order,default=desc"`
	DateFrom  string      `form:"date_from"`
	DateTo    string      `form:"date_to"`
}

// OrderListResponse represents order response with pagination
type OrderListResponse struct {
	Orders     []Order    `json:"orders"`
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

// UpdateStatusRequest represents an admin status change
type UpdateStatusRequest struct {
	Status  OrderStatus `json:"status" binding:"required"`
	Comment string      `json:"comment"`
}

// PlaceOrder converts the user's cart into an order atomically: stock is
// re-checked and decremented with guarded updates, the discount is redeemed,
// item prices are re-read from the catalog, the cart is emptied and the
// first tracking event is written. Any failure rolls the whole thing back
// and leaves cart and stock untouched.
func (s *Service) PlaceOrder(userID uint, req *PlaceOrderRequest) (*PlaceOrderResult, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	shippingAddr, err := s.loadOwnedAddress(tx, userID, req.ShippingAddressID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	billingAddr := shippingAddr
	if req.BillingAddressID != nil && *req.BillingAddressID != req.ShippingAddressID {
		billingAddr, err = s.loadOwnedAddress(tx, userID, *req.BillingAddressID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	var userCart cart.Cart
	if err := tx.Where("user_id = ?", userID).First(&userCart).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.BadRequest("cart is empty")
		}
		return nil, apperr.Internal("failed to load cart", err)
	}

	var cartItems []cart.CartItem
	if err := tx.Where("cart_id = ?", userCart.ID).Order("created_at ASC, id ASC").Find(&cartItems).Error; err != nil {
		tx.Rollback()
		return nil, apperr.Internal("failed to load cart items", err)
	}
	if len(cartItems) == 0 {
		tx.Rollback()
		return nil, apperr.BadRequest("cart is empty")
	}

	type lineSnapshot struct {
		cartItem cart.CartItem
		variant  product.ProductVariant
		product  product.Product
	}
	lines := make([]lineSnapshot, 0, len(cartItems))

	var subtotal int64
	for _, item := range cartItems {
		var variant product.ProductVariant
		if err := tx.First(&variant, item.ProductVariantID).Error; err != nil {
			tx.Rollback()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.BadRequest("a cart item is no longer available")
			}
			return nil, apperr.Internal("failed to load variant", err)
		}

		var prod product.Product
		if err := tx.First(&prod, variant.ProductID).Error; err != nil {
			tx.Rollback()
			return nil, apperr.Internal("failed to load product", err)
		}

		if !prod.IsActive || !variant.IsActive {
			tx.Rollback()
			return nil, apperr.BadRequest("product '%s' is no longer available", prod.Name)
		}
		if !variant.IsInStock(item.Quantity) {
			tx.Rollback()
			return nil, apperr.BadRequest("insufficient stock for '%s': %d available, %d requested",
				prod.Name, variant.StockQuantity, item.Quantity)
		}

		// Cart snapshots decide what the customer pays
		subtotal += item.PriceAtAddition * int64(item.Quantity)
		lines = append(lines, lineSnapshot{cartItem: item, variant: variant, product: prod})
	}

	// Evaluate the discount code. A rejected code never fails the order.
	var eval discount.Evaluation
	if req.DiscountCode != "" {
		var d discount.Discount
		err := tx.Where("code = ?", discount.NormalizeCode(req.DiscountCode)).First(&d).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			eval = discount.Evaluation{Reason: discount.ReasonNotFound}
		case err != nil:
			tx.Rollback()
			return nil, apperr.Internal("failed to load discount", err)
		default:
			userRedemptions, cerr := s.discountService.CountUserRedemptions(tx, d.ID, userID)
			if cerr != nil {
				tx.Rollback()
				return nil, cerr
			}
			eval = discount.Evaluate(&d, subtotal, userRedemptions, time.Now().UTC())
		}
	}

	discountAmount := int64(0)
	discountCode := ""
	if eval.Applied {
		discountAmount = eval.Amount
		discountCode = eval.Discount.Code
	}
	totalAmount := subtotal - discountAmount

	var orderUser struct{ Email string }
	if err := tx.Table("users").Select("email").Where("id = ?", userID).First(&orderUser).Error; err != nil {
		tx.Rollback()
		return nil, apperr.Internal("failed to load user", err)
	}

	newOrder := Order{
		UserID:          userID,
		Email:           orderUser.Email,
		Status:          OrderStatusPending,
		PaymentStatus:   PaymentStatusPending,
		SubtotalAmount:  subtotal,
		DiscountAmount:  discountAmount,
		TotalAmount:     totalAmount,
		ShippingAddress: copyAddress(shippingAddr),
		BillingAddress:  copyAddress(billingAddr),
		Currency:        "USD",
		Notes:           req.Notes,
		DiscountCode:    discountCode,
	}

	if err := tx.Create(&newOrder).Error; err != nil {
		tx.Rollback()
		return nil, apperr.Internal("failed to create order", err)
	}

	newOrder.OrderNumber = GenerateOrderNumber(newOrder.ID, time.Now().UTC())
	if err := tx.Model(&newOrder).Update("order_number", newOrder.OrderNumber).Error; err != nil {
		tx.Rollback()
		return nil, apperr.Internal("failed to assign order number", err)
	}

	if eval.Applied {
		err := s.discountService.Redeem(tx, eval.Discount, userID, newOrder.ID, eval.Amount)
		if err != nil {
			if apperr.CodeOf(err) == apperr.CodeConflict {
				// Lost the race for the last redemption; proceed at full price
				eval = discount.Evaluation{Discount: eval.Discount, Reason: discount.ReasonExhausted}
				newOrder.DiscountAmount = 0
				newOrder.TotalAmount = subtotal
				newOrder.DiscountCode = ""
				updates := map[string]interface{}{
					"discount_amount": int64(0),
					"total_amount":    subtotal,
					"discount_code":   "",
				}
				if uerr := tx.Model(&newOrder).Updates(updates).Error; uerr != nil {
					tx.Rollback()
					return nil, apperr.Internal("failed to revert discount", uerr)
				}
			} else {
				tx.Rollback()
				return nil, err
			}
		}
	}

	for _, line := range lines {
		orderItem := OrderItem{
			OrderID:          newOrder.ID,
			ProductID:        line.product.ID,
			ProductVariantID: line.variant.ID,
			SKU:              line.variant.SKU,
			Name:             line.product.Name,
			VariantTitle:     line.variant.Name,
			Quantity:         line.cartItem.Quantity,
			PriceAtPurchase:  line.variant.EffectivePrice(&line.product),
			TotalPrice:       line.variant.EffectivePrice(&line.product) * int64(line.cartItem.Quantity),
		}
		if err := tx.Create(&orderItem).Error; err != nil {
			tx.Rollback()
			return nil, apperr.Internal("failed to create order item", err)
		}

		// Guarded decrement: zero rows means another order took the stock
		// between our check and now, so the whole placement aborts.
		result := tx.Model(&product.ProductVariant{}).
			Where("id = ? AND stock_quantity >= ?", line.variant.ID, line.cartItem.Quantity).
			Update("stock_quantity", gorm.Expr("stock_quantity - ?", line.cartItem.Quantity))
		if result.Error != nil {
			tx.Rollback()
			return nil, apperr.Internal("failed to decrement stock", result.Error)
		}
		if result.RowsAffected == 0 {
			tx.Rollback()
			return nil, apperr.Conflict("insufficient stock for '%s'", line.product.Name)
		}

		logEntry := inventory.InventoryLog{
			ProductVariantID: line.variant.ID,
			MovementType:     inventory.MovementTypeSale,
			QuantityChange:   -line.cartItem.Quantity,
			PreviousQuantity: line.variant.StockQuantity,
			NewQuantity:      line.variant.StockQuantity - line.cartItem.Quantity,
			OrderID:          &newOrder.ID,
			PerformedBy:      &userID,
		}
		if err := s.inventoryService.RecordMovement(tx, &logEntry); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	payment := Payment{
		OrderID:       newOrder.ID,
		PaymentMethod: req.PaymentMethod,
		Amount:        newOrder.TotalAmount,
		Currency:      newOrder.Currency,
		Status:        PaymentStatusPending,
	}
	if err := tx.Create(&payment).Error; err != nil {
		tx.Rollback()
		return nil, apperr.Internal("failed to create payment", err)
	}

	// Empty the cart; the cart row itself stays for the next session
	if err := tx.Where("cart_id = ?", userCart.ID).Delete(&cart.CartItem{}).Error; err != nil {
		tx.Rollback()
		return nil, apperr.Internal("failed to clear cart", err)
	}

	event := TrackingEvent{
		OrderID:   newOrder.ID,
		Status:    OrderStatusPending,
		EventType: EventTypePlaced,
		Message:   fmt.Sprintf("Order %s placed", newOrder.OrderNumber),
		CreatedBy: userID,
	}
	if err := tx.Create(&event).Error; err != nil {
		tx.Rollback()
		return nil, apperr.Internal("failed to record tracking event", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperr.Internal("failed to commit order transaction", err)
	}

	placed, err := s.loadOrder(newOrder.ID)
	if err != nil {
		return nil, err
	}

	return &PlaceOrderResult{Order: placed, Discount: eval}, nil
}

// GetOrders retrieves orders with filtering and pagination (admin)
func (s *Service) GetOrders(req *OrderListRequest) (*OrderListResponse, error) {
	var orders []Order
	var total int64

	query := s.db.Model(&Order{}).
		Preload("Items").
		Preload("TrackingEvents", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, id DESC")
		})

	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.UserID > 0 {
		query = query.Where("user_id = ?", req.UserID)
	}
	if req.DateFrom != "" {
		query = query.Where("created_at >= ?", req.DateFrom)
	}
	if req.DateTo != "" {
		query = query.Where("created_at <= ?", req.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, apperr.Internal("failed to count orders", err)
	}

	query = query.Order(buildOrderClause(req.SortBy, req.SortOrder))

	offset := (req.Page - 1) * req.Limit
	if err := query.Offset(offset).Limit(req.Limit).Find(&orders).Error; err != nil {
		return nil, apperr.Internal("failed to retrieve orders", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &OrderListResponse{
		Orders: orders,
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

// GetUserOrders retrieves orders for a specific user
func (s *Service) GetUserOrders(userID uint, page, limit int) (*OrderListResponse, error) {
	return s.GetOrders(&OrderListRequest{
		Page:   page,
		Limit:  limit,
		UserID: userID,
	})
}

// GetOrderByNumber retrieves a single order. Non-admin callers only see
// their own orders; someone else's order comes back Forbidden, not NotFound,
// since the number itself is not secret.
func (s *Service) GetOrderByNumber(orderNumber string, requesterID uint, isAdmin bool) (*Order, error) {
	var o Order
	result := s.db.
		Preload("Items").
		Preload("Payments").
		Preload("TrackingEvents", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, id DESC")
		}).
		Where("order_number = ?", orderNumber).
		First(&o)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, apperr.Internal("failed to retrieve order", result.Error)
	}

	if !isAdmin && o.UserID != requesterID {
		return nil, apperr.Forbidden("order belongs to another user")
	}

	return &o, nil
}

// GetTrackingEvents returns an order's tracking log, newest first
func (s *Service) GetTrackingEvents(orderNumber string, requesterID uint, isAdmin bool) ([]TrackingEvent, error) {
	o, err := s.GetOrderByNumber(orderNumber, requesterID, isAdmin)
	if err != nil {
		return nil, err
	}
	return o.TrackingEvents, nil
}

// UpdateOrderStatus moves an order along the status machine (admin). The
// transition is validated and every change appends a tracking event.
func (s *Service) UpdateOrderStatus(orderNumber string, req *UpdateStatusRequest, updatedBy uint) (*Order, error) {
	var o Order
	if err := s.db.Where("order_number = ?", orderNumber).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, apperr.Internal("failed to retrieve order", err)
	}

	// Cancellation is customer-initiated and restores stock; it only
	// happens through the order cancellation endpoint.
	if req.Status == OrderStatusCancelled {
		return nil, apperr.BadRequest("orders are cancelled through the cancellation endpoint")
	}

	if !IsValidStatusTransition(o.Status, req.Status) {
		return nil, apperr.BadRequest("invalid status transition from %s to %s", o.Status, req.Status)
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{"status": req.Status}
	switch req.Status {
	case OrderStatusShipped:
		updates["shipped_at"] = now
	case OrderStatusDelivered:
		updates["delivered_at"] = now
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Model(&o).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, apperr.Internal("failed to update order status", err)
	}

	message := req.Comment
	if message == "" {
		message = statusMessage(req.Status)
	}
	event := TrackingEvent{
		OrderID:   o.ID,
		Status:    req.Status,
		EventType: EventTypeStatusChange,
		Message:   message,
		CreatedBy: updatedBy,
	}
	if err := tx.Create(&event).Error; err != nil {
		tx.Rollback()
		return nil, apperr.Internal("failed to record tracking event", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperr.Internal("failed to commit status update", err)
	}

	return s.GetOrderByNumber(orderNumber, updatedBy, true)
}

// CancelOrder cancels a user's own pending or confirmed order, restoring
// the stock each item took at placement.
func (s *Service) CancelOrder(orderNumber string, userID uint) (*Order, error) {
	var o Order
	if err := s.db.Where("order_number = ?", orderNumber).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, apperr.Internal("failed to retrieve order", err)
	}

	if o.UserID != userID {
		return nil, apperr.Forbidden("order belongs to another user")
	}
	if !o.CanBeCancelled() {
		return nil, apperr.BadRequest("order cannot be cancelled in status %s", o.Status)
	}

	if err := s.cancelTx(&o, "Cancelled by customer", userID); err != nil {
		return nil, err
	}

	return s.GetOrderByNumber(orderNumber, userID, true)
}

// cancelTx performs the cancellation transaction: status flip, stock
// restoration with return logs, and an exception tracking event.
func (s *Service) cancelTx(o *Order, reason string, actorID uint) error {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var items []OrderItem
	if err := tx.Where("order_id = ?", o.ID).Find(&items).Error; err != nil {
		tx.Rollback()
		return apperr.Internal("failed to load order items", err)
	}

	for _, item := range items {
		var variant product.ProductVariant
		if err := tx.First(&variant, item.ProductVariantID).Error; err != nil {
			tx.Rollback()
			return apperr.Internal("failed to load variant", err)
		}

		if err := tx.Model(&product.ProductVariant{}).
			Where("id = ?", item.ProductVariantID).
			Update("stock_quantity", gorm.Expr("stock_quantity + ?", item.Quantity)).Error; err != nil {
			tx.Rollback()
			return apperr.Internal("failed to restore stock", err)
		}

		logEntry := inventory.InventoryLog{
			ProductVariantID: item.ProductVariantID,
			MovementType:     inventory.MovementTypeReturn,
			QuantityChange:   item.Quantity,
			PreviousQuantity: variant.StockQuantity,
			NewQuantity:      variant.StockQuantity + item.Quantity,
			OrderID:          &o.ID,
			PerformedBy:      &actorID,
		}
		if err := s.inventoryService.RecordMovement(tx, &logEntry); err != nil {
			tx.Rollback()
			return err
		}
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":       OrderStatusCancelled,
		"cancelled_at": now,
	}
	if err := tx.Model(o).Updates(updates).Error; err != nil {
		tx.Rollback()
		return apperr.Internal("failed to update order status", err)
	}

	event := TrackingEvent{
		OrderID:   o.ID,
		Status:    OrderStatusCancelled,
		EventType: EventTypeException,
		Message:   fmt.Sprintf("Order cancelled: %s", reason),
		CreatedBy: actorID,
	}
	if err := tx.Create(&event).Error; err != nil {
		tx.Rollback()
		return apperr.Internal("failed to record tracking event", err)
	}

	if err := tx.Commit().Error; err != nil {
		return apperr.Internal("failed to commit cancellation", err)
	}
	return nil
}

// Private helper methods

func (s *Service) loadOrder(id uint) (*Order, error) {
	var o Order
	err := s.db.
		Preload("Items").
		Preload("Payments").
		Preload("TrackingEvents", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, id DESC")
		}).
		First(&o, id).Error
	if err != nil {
		return nil, apperr.Internal("failed to load order", err)
	}
	return &o, nil
}

func (s *Service) loadOwnedAddress(tx *gorm.DB, userID, addressID uint) (*user.Address, error) {
	var addr user.Address
	err := tx.Where("id = ? AND user_id = ?", addressID, userID).First(&addr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.BadRequest("address %d does not belong to you", addressID)
		}
		return nil, apperr.Internal("failed to load address", err)
	}
	return &addr, nil
}

func copyAddress(a *user.Address) Address {
	return Address{
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Company:      a.Company,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		State:        a.State,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
		Phone:        a.Phone,
	}
}

func statusMessage(status OrderStatus) string {
	switch status {
	case OrderStatusConfirmed:
		return "Order confirmed"
	case OrderStatusShipped:
		return "Order shipped"
	case OrderStatusDelivered:
		return "Order delivered"
	case OrderStatusCancelled:
		return "Order cancelled"
	default:
		return "Order placed"
	}
}

func buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"created_at":   true,
		"updated_at":   true,
		"total_amount": true,
		"status":       true,
		"order_number": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s", sortBy, sortOrder)
}
