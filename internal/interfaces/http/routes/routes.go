// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// SetupRoutes wires all API routes onto the given router group
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(db, cfg)
	profileHandler := handlers.NewProfileHandler(db, cfg)
	addressHandler := handlers.NewAddressHandler(db, cfg)
	userAdminHandler := handlers.NewUserAdminHandler(db, cfg)
	productHandler := handlers.NewProductHandler(db, cfg)
	categoryHandler := handlers.NewCategoryHandler(db, cfg)
	reviewHandler := handlers.NewReviewHandler(db, cfg)
	cartHandler := handlers.NewCartHandler(db, redisClient, cfg)
	orderHandler := handlers.NewOrderHandler(db, redisClient, cfg)
	discountHandler := handlers.NewDiscountHandler(db, redisClient, cfg)
	inventoryHandler := handlers.NewInventoryHandler(db, cfg)

	// Authentication
	auth := rg.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)

		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.POST("/logout", authHandler.Logout)
			protected.POST("/change-password", authHandler.ChangePassword)
			protected.GET("/validate", authHandler.ValidateToken)
		}
	}

	// User profile and addresses
	users := rg.Group("/users")
	users.Use(middleware.AuthMiddleware(cfg))
	{
		users.GET("/me", profileHandler.GetProfile)
		users.PUT("/me", profileHandler.UpdateProfile)

		users.GET("/addresses", addressHandler.GetAddresses)
		users.POST("/addresses", addressHandler.CreateAddress)
		users.GET("/addresses/:id", addressHandler.GetAddress)
		users.PUT("/addresses/:id", addressHandler.UpdateAddress)
		users.DELETE("/addresses/:id", addressHandler.DeleteAddress)
		users.PUT("/addresses/:id/default", addressHandler.SetDefaultAddress)
	}

	// Product catalog (public, optional auth for admin-only filters)
	products := rg.Group("/products")
	products.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/search", productHandler.SearchProducts)
		products.GET("/:id", productHandler.GetProduct)
		products.GET("/slug/:slug", productHandler.GetProductBySlug)
		products.GET("/:id/reviews", reviewHandler.GetProductReviews)
	}

	// Review submission requires authentication
	rg.POST("/products/:id/reviews", middleware.AuthMiddleware(cfg), reviewHandler.CreateReview)

	// Categories (public)
	categories := rg.Group("/categories")
	categories.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		categories.GET("", categoryHandler.GetCategories)
		categories.GET("/:id", categoryHandler.GetCategory)
		categories.GET("/slug/:slug", categoryHandler.GetCategoryBySlug)
	}

	// Cart (works for guests via session cookie and for authenticated users)
	cart := rg.Group("/cart")
	cart.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		cart.GET("", cartHandler.GetCart)
		cart.GET("/count", cartHandler.GetCartCount)
		cart.POST("/items", cartHandler.AddToCart)
		cart.PATCH("/items/:variantId", cartHandler.UpdateCartItem)
		cart.DELETE("/items/:variantId", cartHandler.RemoveFromCart)
		cart.DELETE("", cartHandler.ClearCart)
		cart.POST("/merge", middleware.AuthMiddleware(cfg), cartHandler.MergeGuestCart)
	}

	// Orders (authenticated)
	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(cfg))
	{
		orders.POST("", orderHandler.PlaceOrder)
		orders.GET("", orderHandler.GetMyOrders)
		orders.GET("/:number", orderHandler.GetOrder)
		orders.GET("/:number/tracking", orderHandler.GetTrackingEvents)
		orders.POST("/:number/cancel", orderHandler.CancelOrder)
	}

	// Discount preview (authenticated)
	rg.POST("/discounts/validate", middleware.AuthMiddleware(cfg), discountHandler.ValidateCode)

	// Admin
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	admin.Use(middleware.AdminMiddleware())
	{
		// Product management
		adminProducts := admin.Group("/products")
		{
			adminProducts.POST("", productHandler.CreateProduct)
			adminProducts.PUT("/:id", productHandler.UpdateProduct)
			adminProducts.DELETE("/:id", productHandler.DeleteProduct)
			adminProducts.POST("/:id/variants", productHandler.AddVariant)
			adminProducts.PUT("/:id/variants/:variantId", productHandler.UpdateVariant)
		}

		// Category management
		adminCategories := admin.Group("/categories")
		{
			adminCategories.POST("", categoryHandler.CreateCategory)
			adminCategories.PUT("/:id", categoryHandler.UpdateCategory)
			adminCategories.DELETE("/:id", categoryHandler.DeleteCategory)
		}

		// Order management
		adminOrders := admin.Group("/orders")
		{
			adminOrders.GET("", orderHandler.GetOrders)
			adminOrders.PATCH("/:number/status", orderHandler.UpdateOrderStatus)
		}

		// Discount management
		adminDiscounts := admin.Group("/discounts")
		{
			adminDiscounts.GET("", discountHandler.GetDiscounts)
			adminDiscounts.GET("/:id", discountHandler.GetDiscount)
			adminDiscounts.POST("", discountHandler.CreateDiscount)
			adminDiscounts.PUT("/:id", discountHandler.UpdateDiscount)
			adminDiscounts.DELETE("/:id", discountHandler.DeleteDiscount)
		}

		// Inventory management
		adminInventory := admin.Group("/inventory")
		{
			adminInventory.POST("/variants/:id/adjustments", inventoryHandler.AdjustStock)
			adminInventory.GET("/variants/:id/logs", inventoryHandler.GetVariantLogs)
		}

		// Review moderation
		adminReviews := admin.Group("/reviews")
		{
			adminReviews.GET("/pending", reviewHandler.GetPendingReviews)
			adminReviews.PUT("/:id/moderate", reviewHandler.ModerateReview)
		}

		// User management
		adminUsers := admin.Group("/users")
		{
			adminUsers.GET("", userAdminHandler.GetUsers)
			adminUsers.GET("/:id", userAdminHandler.GetUser)
			adminUsers.PUT("/:id/status", userAdminHandler.UpdateUserStatus)
			adminUsers.PUT("/:id/admin", userAdminHandler.SetAdmin)
		}
	}
}
