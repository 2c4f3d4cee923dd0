// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/sunnyshore/shop-backend/internal/config"
	"github.com/sunnyshore/shop-backend/internal/handlers"
	"github.com/sunnyshore/shop-backend/internal/middleware"
	"github.com/sunnyshore/shop-backend/internal/services"
	"github.com/sunnyshore/shop-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	notificationService := services.NewNotificationService(cfg)
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.WithError(err).Warn("S3 storage unavailable, falling back to local uploads")
		storageService = services.NewLocalStorageService(cfg)
	}

	cartService := services.NewCartService(db, cfg)
	productService := services.NewProductService(db)
	checkoutService := services.NewCheckoutService(db, cartService, notificationService)
	orderService := services.NewOrderService(db, notificationService)
	paymentService := services.NewPaymentService(db, cfg, orderService)
	authService := services.NewAuthService(db, cfg, cartService)
	profileService := services.NewProfileService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(productService, storageService)
	cartHandler := handlers.NewCartHandler(cartService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	orderHandler := handlers.NewOrderHandler(orderService, paymentService)
	adminHandler := handlers.NewAdminHandler(orderService, paymentService)
	profileHandler := handlers.NewProfileHandler(profileService)

	utils.SetJWTSecret(cfg.JWT.SecretKey)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg.Frontend.BaseURL))
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.Me)
		}

		// Catalog routes (public)
		products := v1.Group("/products")
		{
			products.GET("", middleware.OptionalAuth(), productHandler.ListProducts)
			products.GET("/popular", productHandler.GetPopularProducts)
			products.GET("/featured", productHandler.GetFeaturedProducts)
			products.GET("/categories", productHandler.ListCategories)
			products.GET("/sku/:sku", productHandler.GetProductBySKU)
			products.GET("/:id", productHandler.GetProduct)
		}

		// Account self-service routes
		profile := v1.Group("/profile")
		profile.Use(middleware.AuthRequired())
		{
			profile.GET("", profileHandler.GetProfile)
			profile.PUT("", profileHandler.UpdateProfile)
			profile.DELETE("", profileHandler.DeleteAccount)
			profile.GET("/stats", profileHandler.GetStats)
			profile.GET("/preferences", profileHandler.GetPreferences)
			profile.PUT("/preferences", profileHandler.UpdatePreferences)
		}

		// Cart routes: guests via X-Session-ID, members via bearer token
		cart := v1.Group("/cart")
		cart.Use(middleware.OptionalAuth())
		{
			cart.GET("", cartHandler.GetCart)
			cart.GET("/summary", cartHandler.GetSummary)
			cart.GET("/validate", cartHandler.ValidateCart)
			cart.POST("/items", cartHandler.AddItem)
			cart.POST("/merge", middleware.AuthRequired(), cartHandler.MergeCart)
			cart.PUT("/items", cartHandler.UpdateItem)
			cart.DELETE("/items", cartHandler.RemoveItem)
			cart.DELETE("", cartHandler.ClearCart)
		}

		// Checkout routes
		checkout := v1.Group("/checkout")
		checkout.Use(middleware.OptionalAuth())
		{
			checkout.POST("/init", checkoutHandler.InitializeCheckout)
			checkout.GET("/session", checkoutHandler.GetSession)
			checkout.POST("/discount", checkoutHandler.ApplyDiscountCode)
			checkout.PUT("/shipping-method", checkoutHandler.UpdateShippingMethod)
			checkout.POST("", middleware.CheckoutRateLimit(), checkoutHandler.ProcessCheckout)
		}

		// Order routes
		orders := v1.Group("/orders")
		{
			orders.GET("/track/:orderNumber", orderHandler.TrackOrder)

			owned := orders.Group("")
			owned.Use(middleware.OptionalAuth())
			{
				owned.GET("/:id", orderHandler.GetOrder)
				owned.GET("/:id/confirmation", orderHandler.GetOrderConfirmation)
				owned.POST("/:id/cancel", orderHandler.CancelOrder)
				owned.POST("/:id/payment-intent", orderHandler.CreatePaymentIntent)
				owned.POST("/:id/confirm-payment", orderHandler.ConfirmPayment)
			}

			orders.GET("", middleware.AuthRequired(), orderHandler.GetOrderHistory)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/dashboard/stats", adminHandler.GetDashboardStats)

			adminOrders := admin.Group("/orders")
			{
				adminOrders.GET("", adminHandler.ListOrders)
				adminOrders.PUT("/:id/status", adminHandler.UpdateOrderStatus)
				adminOrders.POST("/:id/refund", adminHandler.RefundOrder)
			}

			adminProducts := admin.Group("/products")
			{
				adminProducts.POST("", productHandler.CreateProduct)
				adminProducts.PUT("/:id", productHandler.UpdateProduct)
				adminProducts.DELETE("/:id", productHandler.DeleteProduct)
				adminProducts.POST("/:id/image", middleware.UploadRateLimit(), productHandler.UploadProductImage)
				adminProducts.GET("/low-stock", productHandler.GetLowStockProducts)
			}
		}
	}

	// Static file serving (for development)
	if cfg.Environment == "development" {
		r.Static("/uploads", "./uploads")
	}

	return r
}
