// Package api exposes the canteen over HTTP with gin.
package api

import (
	"net/http" // HTTP status codes
	"time"     // CORS max age

	"canteen_system/internal/domain"     // Importing domain models
	"canteen_system/internal/middleware" // Auth and metrics middleware
	"canteen_system/internal/service"    // Business operations
	"canteen_system/internal/store"      // Generic CRUD repositories
	"canteen_system/internal/upload"     // Image storage

	"github.com/gin-contrib/cors"                             // CORS middleware
	"github.com/gin-gonic/gin"                                // Gin web framework
	"github.com/prometheus/client_golang/prometheus/promhttp" // Metrics endpoint
	"gorm.io/gorm"                                            // GORM ORM library
)

// Deps are the collaborators the HTTP layer needs
type Deps struct {
	Service        *service.Service
	DB             *gorm.DB // Role checks re-read users directly
	Images         *upload.Store
	JWTSecret      string
	JWTTTL         time.Duration
	CORSOrigins    []string
	TrustedProxies []string
}

// NewRouter builds the gin engine with every route mounted under /api
func NewRouter(d Deps) (*gin.Engine, error) {
	r := gin.Default() // Gin router instance with logger and recovery

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, err
	}
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(d.CORSOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = d.CORSOrigins
	}
	r.Use(cors.New(corsConfig))
	r.Use(middleware.MetricsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		if sqlDB, err := d.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if d.Images != nil {
		r.Static(d.Images.URLPrefix, d.Images.Dir) // Product photos
	}

	svc := d.Service
	issuer := TokenIssuer{Secret: d.JWTSecret, TTL: d.JWTTTL}
	auth := middleware.JWTAuthMiddleware(d.JWTSecret)
	active := middleware.RoleMiddleware(d.DB) // Any active account
	cashier := middleware.RoleMiddleware(d.DB, domain.RoleCashier, domain.RoleAdmin)
	admin := middleware.AdminOnlyMiddleware(d.DB)

	api := r.Group("/api")

	// Public routes
	api.POST("/users/register", RegisterHandler(svc))
	api.POST("/users/login", LoginHandler(svc, issuer))
	api.POST("/admin-auth/login", AdminLoginHandler(svc, issuer))
	api.POST("/tokens/password-reset", RequestPasswordResetHandler(svc))
	api.POST("/tokens/password-reset/confirm", ConfirmPasswordResetHandler(svc))
	api.GET("/products", ListProductsHandler(svc, false))
	api.GET("/products/:id", GetProductHandler(svc))

	// Routes for any signed-in, active account
	user := api.Group("", auth, active)
	user.GET("/users/me", MeHandler(svc))
	user.PUT("/users/me/password", ChangePasswordHandler(svc))
	user.PUT("/users/me/pin", SetPINHandler(svc))
	user.POST("/users/me/qr", RegenerateQRHandler(svc))
	user.GET("/users/:id/qr", QRImageHandler(svc))
	user.POST("/purchases/self", SelfPurchaseHandler(svc))
	user.GET("/transactions", GetTransactionHistoryHandler(svc))
	user.GET("/transactions/:id", GetTransactionHandler(svc))
	user.POST("/orders", CreateOrderHandler(svc))
	user.GET("/orders", ListOrdersHandler(svc))
	user.GET("/orders/:id", GetOrderHandler(svc))

	// Counter routes
	counter := api.Group("", auth, cashier)
	counter.POST("/purchases", PurchaseHandler(svc))
	counter.GET("/scan/:code", ScanHandler(svc))

	// Admin routes
	adm := api.Group("", auth, admin)
	adm.GET("/admin/users", ListUsersHandler(svc))
	adm.PATCH("/admin/users/:id/status", SetUserStatusHandler(svc))
	adm.PATCH("/admin/users/:id/role", SetUserRoleHandler(svc))
	adm.POST("/admin/users/:id/recharge", RechargeHandler(svc))
	adm.GET("/admin/transactions", ListTransactionsHandler(svc))
	adm.GET("/admin/products", ListProductsHandler(svc, true))
	adm.POST("/products", CreateProductHandler(svc))
	adm.PUT("/products/:id", UpdateProductHandler(svc))
	adm.DELETE("/products/:id", DeleteProductHandler(svc))
	adm.POST("/products/:id/restock", RestockHandler(svc))
	adm.POST("/products/:id/image", UploadProductImageHandler(svc, d.Images))
	adm.PATCH("/orders/:id/review", ReviewOrderHandler(svc))
	adm.PATCH("/orders/:id/dispatch", DispatchOrderHandler(svc))
	adm.PATCH("/orders/:id/deliver", DeliverOrderHandler(svc))
	adm.GET("/trucks/dashboard", DashboardHandler(svc))

	RegisterCRUD(adm, "/manufacturer-products", store.NewRepository[domain.ManufacturerProduct](d.DB, "Manufacturer product"))
	RegisterCRUD(adm, "/trucks", store.NewRepository[domain.Truck](d.DB, "Truck"))
	RegisterCRUD(adm, "/drivers", store.NewRepository[domain.Driver](d.DB, "Driver"))
	RegisterCRUD(adm, "/employees", store.NewRepository[domain.Employee](d.DB, "Employee"))

	return r, nil
}
