package order

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/discount"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/pkg/apperr"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func newTestService(db *gorm.DB) *Service {
	cfg := &config.Config{}
	return NewService(db, cfg,
		cart.NewService(db, nil, cfg),
		discount.NewService(db, cfg),
		inventory.NewService(db, cfg))
}

// expectPlacementReads queues the read sequence PlaceOrder issues before it
// writes anything: shipping address, cart row, cart lines, then the variant
// and product for the single line (variant 20 of product 2, quantity 2 at a
// snapshot price of 1500).
func expectPlacementReads(mock sqlmock.Sqlmock, stockQuantity int) {
	mock.ExpectQuery(`SELECT \* FROM "addresses"`).
		WithArgs(10, 1, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "first_name", "city"}).
			AddRow(10, 1, "Jo", "Lisbon"))
	mock.ExpectQuery(`SELECT \* FROM "carts"`).
		WithArgs(1, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(3, 1))
	mock.ExpectQuery(`SELECT \* FROM "cart_items"`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cart_id", "product_id", "product_variant_id", "quantity", "price_at_addition"}).
			AddRow(5, 3, 2, 20, 2, 1500))
	mock.ExpectQuery(`SELECT \* FROM "product_variants"`).
		WithArgs(20, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "sku", "name", "price", "stock_quantity", "is_active"}).
			AddRow(20, 2, "KB-BLK", "Black", 0, stockQuantity, true))
	mock.ExpectQuery(`SELECT \* FROM "products"`).
		WithArgs(2, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "is_active"}).
			AddRow(2, "Mechanical Keyboard", 1600, true))
}

func TestPlaceOrderRejectsInsufficientStock(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := newTestService(db)

	// One unit in stock against two requested: placement fails before a
	// single write is issued.
	mock.ExpectBegin()
	expectPlacementReads(mock, 1)
	mock.ExpectRollback()

	_, err := svc.PlaceOrder(1, &PlaceOrderRequest{
		ShippingAddressID: 10,
		PaymentMethod:     "card",
	})

	require.Error(t, err)
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderAbortsWhenDecrementLosesRace(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := newTestService(db)

	// Stock looks fine at read time, but the guarded decrement matches no
	// rows because a concurrent order drained it. Everything rolls back.
	mock.ExpectBegin()
	expectPlacementReads(mock, 5)
	mock.ExpectQuery(`SELECT email FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("jo@example.com"))
	mock.ExpectQuery(`INSERT INTO "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectExec(`UPDATE "orders"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "order_items"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(`UPDATE "product_variants"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.PlaceOrder(1, &PlaceOrderRequest{
		ShippingAddressID: 10,
		PaymentMethod:     "card",
	})

	require.Error(t, err)
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderWritesFullStatementSequence(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := newTestService(db)

	mock.ExpectBegin()
	expectPlacementReads(mock, 5)
	mock.ExpectQuery(`SELECT email FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("jo@example.com"))
	mock.ExpectQuery(`INSERT INTO "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectExec(`UPDATE "orders"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "order_items"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(`UPDATE "product_variants"`).
		WithArgs(2, sqlmock.AnyArg(), 20, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "inventory_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(`INSERT INTO "payments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(`DELETE FROM "cart_items"`).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "tracking_events"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	mock.ExpectQuery(`SELECT \* FROM "orders"`).
		WithArgs(42, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_number", "user_id", "status", "subtotal_amount", "discount_amount", "total_amount"}).
			AddRow(42, "ORD-20260901-00042", 1, "pending", 3000, 0, 3000))
	mock.ExpectQuery(`SELECT \* FROM "order_items"`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "quantity", "price_at_purchase"}).
			AddRow(1, 42, 2, 1600))
	mock.ExpectQuery(`SELECT \* FROM "payments"`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "status", "amount"}).
			AddRow(1, 42, "pending", 3000))
	mock.ExpectQuery(`SELECT \* FROM "tracking_events"`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "status", "event_type"}).
			AddRow(1, 42, "pending", "ORDER_PLACED"))

	result, err := svc.PlaceOrder(1, &PlaceOrderRequest{
		ShippingAddressID: 10,
		PaymentMethod:     "card",
	})

	require.NoError(t, err)
	require.NotNil(t, result.Order)
	assert.Equal(t, int64(3000), result.Order.TotalAmount)
	assert.False(t, result.Discount.Applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelOrderNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := newTestService(db)

	mock.ExpectQuery(`SELECT \* FROM "orders"`).
		WithArgs("ORD-20250307-00001", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.CancelOrder("ORD-20250307-00001", 1)

	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelOrderForbiddenForOtherUser(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := newTestService(db)

	rows := sqlmock.NewRows([]string{"id", "order_number", "user_id", "status"}).
		AddRow(7, "ORD-20250307-00007", 2, "pending")
	mock.ExpectQuery(`SELECT \* FROM "orders"`).
		WithArgs("ORD-20250307-00007", 1).
		WillReturnRows(rows)

	_, err := svc.CancelOrder("ORD-20250307-00007", 1)

	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelOrderRejectsShippedOrder(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := newTestService(db)

	rows := sqlmock.NewRows([]string{"id", "order_number", "user_id", "status"}).
		AddRow(7, "ORD-20250307-00007", 1, "shipped")
	mock.ExpectQuery(`SELECT \* FROM "orders"`).
		WithArgs("ORD-20250307-00007", 1).
		WillReturnRows(rows)

	_, err := svc.CancelOrder("ORD-20250307-00007", 1)

	require.Error(t, err)
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusRejectsInvalidTransition(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := newTestService(db)

	rows := sqlmock.NewRows([]string{"id", "order_number", "user_id", "status"}).
		AddRow(7, "ORD-20250307-00007", 1, "pending")
	mock.ExpectQuery(`SELECT \* FROM "orders"`).
		WithArgs("ORD-20250307-00007", 1).
		WillReturnRows(rows)

	_, err := svc.UpdateOrderStatus("ORD-20250307-00007", &UpdateStatusRequest{
		Status: OrderStatusDelivered,
	}, 99)

	require.Error(t, err)
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusRefusesCancellation(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := newTestService(db)

	// Cancellation restores stock and belongs to the customer cancel flow;
	// the admin status endpoint must not reach it.
	rows := sqlmock.NewRows([]string{"id", "order_number", "user_id", "status"}).
		AddRow(7, "ORD-20250307-00007", 1, "pending")
	mock.ExpectQuery(`SELECT \* FROM "orders"`).
		WithArgs("ORD-20250307-00007", 1).
		WillReturnRows(rows)

	_, err := svc.UpdateOrderStatus("ORD-20250307-00007", &UpdateStatusRequest{
		Status: OrderStatusCancelled,
	}, 99)

	require.Error(t, err)
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
