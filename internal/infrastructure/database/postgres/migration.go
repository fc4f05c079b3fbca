// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/discount"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Define all models that need migration in dependency order
	models := []interface{}{
		// User domain - Base tables
		&user.User{},
		&user.Address{},

		// Product domain - Base tables
		&product.Category{},
		&product.Product{},
		&product.ProductImage{},
		&product.ProductVariant{},
		&product.ProductReview{},

		// Cart domain
		&cart.Cart{},
		&cart.CartItem{},

		// Discount domain
		&discount.Discount{},
		&discount.DiscountRedemption{},

		// Order domain - Dependent tables
		&order.Order{},
		&order.OrderItem{},
		&order.Payment{},
		&order.TrackingEvent{},

		// Inventory domain
		&inventory.InventoryLog{},
	}

	// Run auto-migration for each model
	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email_active ON users(email, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at DESC)",

		// Address indexes
		"CREATE INDEX IF NOT EXISTS idx_addresses_user_type ON addresses(user_id, type)",
		"CREATE INDEX IF NOT EXISTS idx_addresses_user_default ON addresses(user_id, is_default)",

		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_category_active ON products(category_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_featured ON products(is_featured, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_price ON products(price)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",

		// Category indexes
		"CREATE INDEX IF NOT EXISTS idx_categories_parent_active ON categories(parent_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_categories_sort_order ON categories(sort_order)",

		// Product variant indexes
		"CREATE INDEX IF NOT EXISTS idx_product_variants_product_active ON product_variants(product_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_product_variants_stock ON product_variants(stock_quantity)",

		// Product image indexes
		"CREATE INDEX IF NOT EXISTS idx_product_images_product_primary ON product_images(product_id, is_primary)",

		// Product review indexes
		"CREATE INDEX IF NOT EXISTS idx_product_reviews_product_approved ON product_reviews(product_id, is_approved)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_product_reviews_user_product ON product_reviews(product_id, user_id) WHERE deleted_at IS NULL",

		// Cart indexes
		"CREATE INDEX IF NOT EXISTS idx_cart_items_cart ON cart_items(cart_id)",
		"CREATE INDEX IF NOT EXISTS idx_cart_items_variant ON cart_items(product_variant_id)",

		// Discount indexes
		"CREATE INDEX IF NOT EXISTS idx_discounts_code_active ON discounts(code, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_discounts_window ON discounts(starts_at, ends_at)",
		"CREATE INDEX IF NOT EXISTS idx_discount_redemptions_discount_user ON discount_redemptions(discount_id, user_id)",
		"CREATE INDEX IF NOT EXISTS idx_discount_redemptions_order ON discount_redemptions(order_id)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_payment_status ON orders(payment_status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",

		// Order items indexes
		"CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_product ON order_items(product_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_variant ON order_items(product_variant_id)",

		// Payment indexes
		"CREATE INDEX IF NOT EXISTS idx_payments_order_id ON payments(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status)",

		// Tracking event indexes
		"CREATE INDEX IF NOT EXISTS idx_tracking_events_order ON tracking_events(order_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_tracking_events_type ON tracking_events(event_type)",

		// Inventory log indexes
		"CREATE INDEX IF NOT EXISTS idx_inventory_logs_variant ON inventory_logs(product_variant_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_inventory_logs_order ON inventory_logs(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_inventory_logs_type ON inventory_logs(movement_type)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts initial data into the database
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	if err := m.seedCategories(); err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}

	if err := m.seedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := m.seedDemoProducts(); err != nil {
		return fmt.Errorf("failed to seed demo products: %w", err)
	}

	if err := m.seedDemoDiscounts(); err != nil {
		return fmt.Errorf("failed to seed demo discounts: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

// seedCategories creates default product categories
func (m *Migration) seedCategories() error {
	log.Println("🏷️ Seeding categories...")

	categories := []product.Category{
		{
			Name:        "Electronics",
			Slug:        "electronics",
			Description: "Electronic devices, gadgets, and accessories",
			SortOrder:   1,
			IsActive:    true,
		},
		{
			Name:        "Clothing",
			Slug:        "clothing",
			Description: "Fashion, apparel, and accessories",
			SortOrder:   2,
			IsActive:    true,
		},
		{
			Name:        "Books",
			Slug:        "books",
			Description: "Books, eBooks, and educational materials",
			SortOrder:   3,
			IsActive:    true,
		},
		{
			Name:        "Home & Garden",
			Slug:        "home-garden",
			Description: "Home improvement, furniture, and garden supplies",
			SortOrder:   4,
			IsActive:    true,
		},
	}

	for _, category := range categories {
		var existing product.Category
		result := m.db.Where("slug = ?", category.Slug).First(&existing)
		if result.Error != nil {
			if err := m.db.Create(&category).Error; err != nil {
				return err
			}
			log.Printf("✅ Created category: %s", category.Name)
		} else {
			log.Printf("⏭️ Category already exists: %s", category.Name)
		}
	}

	return nil
}

// seedAdminUser creates the default admin account
func (m *Migration) seedAdminUser() error {
	log.Println("👤 Seeding admin user...")

	var existing user.User
	result := m.db.Where("email = ?", "admin@example.com").First(&existing)
	if result.Error == nil {
		log.Printf("⏭️ Admin user already exists with ID: %d", existing.ID)
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), 10)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	adminUser := user.User{
		Email:         "admin@example.com",
		Password:      string(hashedPassword),
		FirstName:     "Admin",
		LastName:      "User",
		IsActive:      true,
		IsAdmin:       true,
		EmailVerified: true,
	}

	if err := m.db.Create(&adminUser).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	log.Println("✅ Created admin user: admin@example.com (password: admin123)")
	return nil
}

// seedDemoProducts creates a couple of products with variants for development
func (m *Migration) seedDemoProducts() error {
	log.Println("🛍️ Seeding demo products...")

	var productCount int64
	m.db.Model(&product.Product{}).Count(&productCount)
	if productCount > 0 {
		log.Println("⏭️ Products already exist")
		return nil
	}

	var electronics product.Category
	if err := m.db.Where("slug = ?", "electronics").First(&electronics).Error; err != nil {
		log.Println("⚠️ Electronics category not found, skipping demo products")
		return nil
	}

	demoProducts := []struct {
		Product  product.Product
		Variants []product.ProductVariant
	}{
		{
			Product: product.Product{
				SKU:         "DEMO-HEADPHONES",
				Name:        "Wireless Noise-Cancelling Headphones",
				Slug:        "wireless-noise-cancelling-headphones",
				Description: "Over-ear wireless headphones with active noise cancellation and 30 hour battery life.",
				ShortDesc:   "Wireless headphones with active noise cancellation",
				Price:       15999,
				CategoryID:  electronics.ID,
				IsActive:    true,
				IsFeatured:  true,
			},
			Variants: []product.ProductVariant{
				{SKU: "DEMO-HEADPHONES-BLK", Name: "Black", StockQuantity: 30, IsActive: true},
				{SKU: "DEMO-HEADPHONES-WHT", Name: "White", StockQuantity: 20, IsActive: true},
			},
		},
		{
			Product: product.Product{
				SKU:         "DEMO-KEYBOARD",
				Name:        "Mechanical Keyboard",
				Slug:        "mechanical-keyboard",
				Description: "Compact mechanical keyboard with hot-swappable switches and USB-C.",
				ShortDesc:   "Compact hot-swappable mechanical keyboard",
				Price:       8999,
				CategoryID:  electronics.ID,
				IsActive:    true,
			},
			Variants: []product.ProductVariant{
				{SKU: "DEMO-KEYBOARD-RED", Name: "Red switches", StockQuantity: 40, IsActive: true},
				{SKU: "DEMO-KEYBOARD-BRN", Name: "Brown switches", Price: 9499, StockQuantity: 25, IsActive: true},
			},
		},
	}

	for _, demo := range demoProducts {
		prod := demo.Product
		if err := m.db.Create(&prod).Error; err != nil {
			log.Printf("⚠️ Failed to create demo product %s: %v", prod.SKU, err)
			continue
		}
		for _, variant := range demo.Variants {
			variant.ProductID = prod.ID
			if err := m.db.Create(&variant).Error; err != nil {
				log.Printf("⚠️ Failed to create variant %s: %v", variant.SKU, err)
			}
		}
		log.Printf("✅ Created demo product: %s", prod.Name)
	}

	return nil
}

// seedDemoDiscounts creates a sample discount code for development
func (m *Migration) seedDemoDiscounts() error {
	log.Println("🎟️ Seeding demo discounts...")

	var existing discount.Discount
	result := m.db.Where("code = ?", "WELCOME10").First(&existing)
	if result.Error == nil {
		log.Println("⏭️ Demo discount already exists")
		return nil
	}

	demo := discount.Discount{
		Code:              "WELCOME10",
		Description:       "10% off your first order",
		Type:              discount.TypePercentage,
		Value:             10,
		MinOrderAmount:    1000,
		MaxDiscountAmount: 5000,
		UsageLimitPerUser: 1,
		IsActive:          true,
	}

	if err := m.db.Create(&demo).Error; err != nil {
		return fmt.Errorf("failed to create demo discount: %w", err)
	}

	log.Println("✅ Created demo discount: WELCOME10")
	return nil
}

// DropAllTables drops all tables (use with extreme caution)
func (m *Migration) DropAllTables() error {
	log.Println("⚠️ WARNING: Dropping all database tables...")

	// Define tables in reverse dependency order
	tables := []string{
		"inventory_logs",
		"tracking_events",
		"payments",
		"order_items",
		"orders",
		"discount_redemptions",
		"discounts",
		"cart_items",
		"carts",
		"product_reviews",
		"product_variants",
		"product_images",
		"products",
		"categories",
		"addresses",
		"users",
	}

	for _, table := range tables {
		if err := m.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			log.Printf("⚠️ Failed to drop table %s: %v", table, err)
		} else {
			log.Printf("🗑️ Dropped table: %s", table)
		}
	}

	log.Println("✅ All tables dropped successfully")
	return nil
}

// GetTableInfo returns information about database tables
func (m *Migration) GetTableInfo() error {
	var tables []string

	if err := m.db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename").Scan(&tables).Error; err != nil {
		return err
	}

	log.Println("📊 Database Tables Information:")
	log.Println("================================")

	totalRecords := int64(0)
	for _, table := range tables {
		var count int64
		m.db.Table(table).Count(&count)
		totalRecords += count

		status := "✅"
		if count == 0 {
			status = "📭"
		}

		log.Printf("%s %-25s | %d records", status, table, count)
	}

	log.Println("================================")
	log.Printf("📈 Total records across all tables: %d", totalRecords)
	log.Printf("🗂️ Total tables: %d", len(tables))

	return nil
}
