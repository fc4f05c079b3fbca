package cart

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
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
	return NewService(db, nil, &config.Config{})
}

func TestCalculateTotals(t *testing.T) {
	items := []CartItemResponse{
		{ProductVariantID: 1, Quantity: 2, PriceAtAddition: 1999},
		{ProductVariantID: 2, Quantity: 1, PriceAtAddition: 4500},
		{ProductVariantID: 3, Quantity: 3, PriceAtAddition: 250},
	}

	totals := CalculateTotals(items)

	assert.Equal(t, 3, totals.ItemCount)
	assert.Equal(t, 6, totals.TotalQuantity)
	assert.Equal(t, int64(2*1999+4500+3*250), totals.SubTotal)
}

func TestCalculateTotalsEmptyCart(t *testing.T) {
	totals := CalculateTotals(nil)

	assert.Equal(t, 0, totals.ItemCount)
	assert.Equal(t, 0, totals.TotalQuantity)
	assert.Equal(t, int64(0), totals.SubTotal)
}

func TestCalculateTotalsUsesPriceSnapshot(t *testing.T) {
	// The subtotal must come from the snapshot taken at add time, not the
	// current catalog price carried on the preloaded variant.
	items := []CartItemResponse{
		{ProductVariantID: 1, Quantity: 1, PriceAtAddition: 1000},
	}

	totals := CalculateTotals(items)
	assert.Equal(t, int64(1000), totals.SubTotal)
}

func TestUpdateCartItemRejectsZeroQuantity(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := newTestService(db)
	userID := uint(1)

	// A quantity of 0 is not a removal shortcut; it must fail before any
	// statement reaches the database.
	_, err := svc.UpdateCartItem(&userID, "", 10, 0)

	require.Error(t, err)
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCartItemRejectsNegativeQuantity(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := newTestService(db)
	userID := uint(1)

	_, err := svc.UpdateCartItem(&userID, "", 10, -3)

	require.Error(t, err)
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCartItemRejectsQuantityBeyondStock(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := newTestService(db)
	userID := uint(1)

	mock.ExpectQuery(`SELECT \* FROM "product_variants"`).
		WithArgs(10, true, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "stock_quantity", "is_active"}).
			AddRow(10, 2, 2, true))
	mock.ExpectQuery(`SELECT \* FROM "products"`).
		WithArgs(2, true, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_active"}).AddRow(2, true))

	_, err := svc.UpdateCartItem(&userID, "", 10, 5)

	require.Error(t, err)
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCartItemCountPropagatesLoadFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := newTestService(db)
	userID := uint(1)

	mock.ExpectQuery(`SELECT \* FROM "carts"`).
		WithArgs(1, 1).
		WillReturnError(errors.New("connection reset"))

	_, err := svc.GetCartItemCount(&userID, "")

	require.Error(t, err)
	assert.Equal(t, apperr.CodeInternal, apperr.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeGuestItemsCapsQuantityAtStock(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := newTestService(db)

	// Variant has 3 in stock; user already holds 2 and the guest cart
	// brings 5 more. The merged line lands on 3, not 7.
	mock.ExpectQuery(`SELECT \* FROM "product_variants"`).
		WithArgs(10, true, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "stock_quantity", "is_active"}).
			AddRow(10, 2, 3, true))
	mock.ExpectQuery(`SELECT \* FROM "products"`).
		WithArgs(2, true, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_active"}).AddRow(2, true))
	mock.ExpectQuery(`SELECT \* FROM "cart_items"`).
		WithArgs(7, 10, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cart_id", "product_variant_id", "quantity"}).
			AddRow(5, 7, 10, 2))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "cart_items"`).
		WithArgs(3, sqlmock.AnyArg(), 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := svc.mergeGuestItems(7, []SessionCartItem{
		{ProductID: 2, ProductVariantID: 10, Quantity: 5, PriceAtAddition: 1500},
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeGuestItemsSurfacesInsertFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := newTestService(db)

	mock.ExpectQuery(`SELECT \* FROM "product_variants"`).
		WithArgs(10, true, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "stock_quantity", "is_active"}).
			AddRow(10, 2, 8, true))
	mock.ExpectQuery(`SELECT \* FROM "products"`).
		WithArgs(2, true, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_active"}).AddRow(2, true))
	mock.ExpectQuery(`SELECT \* FROM "cart_items"`).
		WithArgs(7, 10, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "cart_items"`).
		WillReturnError(errors.New("duplicate key value"))
	mock.ExpectRollback()

	err := svc.mergeGuestItems(7, []SessionCartItem{
		{ProductID: 2, ProductVariantID: 10, Quantity: 1, PriceAtAddition: 1500},
	})

	require.Error(t, err)
	assert.Equal(t, apperr.CodeInternal, apperr.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeGuestItemsSkipsVanishedVariant(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := newTestService(db)

	mock.ExpectQuery(`SELECT \* FROM "product_variants"`).
		WithArgs(10, true, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := svc.mergeGuestItems(7, []SessionCartItem{
		{ProductID: 2, ProductVariantID: 10, Quantity: 1, PriceAtAddition: 1500},
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
