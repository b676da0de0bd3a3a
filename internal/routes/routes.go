package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/tapcart/internal/cache"
	"github.com/example/tapcart/internal/config"
	"github.com/example/tapcart/internal/handlers"
	"github.com/example/tapcart/internal/metrics"
	"github.com/example/tapcart/internal/middleware"
	"github.com/example/tapcart/internal/services"
	"github.com/example/tapcart/internal/utils"
)

// Dependencies are the collaborators shared by handlers.
type Dependencies struct {
	Notifier services.Notifier
	// Throttle is optional; nil disables the OTP send cooldown.
	Throttle cache.Throttle
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, deps Dependencies) error {
	tokens, err := utils.NewTokenService(cfg.SessionSecret)
	if err != nil {
		return err
	}
	hasher := utils.NewPasswordHasher(cfg.PasswordPepper)
	sessions := middleware.NewSessions(tokens, cfg.IsProduction(), cfg.SessionTTL)
	guard := middleware.NewOriginGuard(cfg.AllowedOrigins).Handler()

	accounts := services.NewAccountService(db, hasher, tokens, deps.Metrics, deps.Logger, cfg.SessionTTL,
		services.AdminSetup{
			Token:   cfg.AdminSetupToken,
			Enabled: !cfg.IsProduction() || cfg.AllowAdminSetup,
		})
	engine := services.NewOrderEngine(db, tokens, deps.Notifier, deps.Throttle, deps.Metrics, deps.Logger,
		services.EngineConfig{
			BaseURL:     cfg.BaseURL,
			BillTTL:     cfg.BillTokenTTL,
			OTPCooldown: cfg.OTPSendCooldown,
			ExposeOTP:   cfg.OTPDebug && !cfg.IsProduction(),
		})

	authHandler := handlers.NewAuthHandler(accounts, sessions)
	adminHandler := handlers.NewAdminHandler(accounts)
	productHandler := handlers.NewProductHandler(db)
	couponHandler := handlers.NewCouponHandler(engine)
	orderHandler := handlers.NewOrderHandler(engine, tokens)

	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(c.UserContext()); err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "database unavailable")
		}
		return c.JSON(fiber.Map{"success": true, "status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	requireStore := sessions.RequireStore()
	requireAdmin := sessions.RequireAdmin()

	// Store auth
	storeAuth := api.Group("/store/auth")
	storeAuth.Post("/signup", guard, authHandler.Signup)
	storeAuth.Post("/login", guard, authHandler.StoreLogin)
	storeAuth.Post("/logout", guard, authHandler.StoreLogout)
	storeAuth.Get("/session", requireStore, authHandler.StoreSession)

	// Store operations
	store := api.Group("/store")
	store.Get("/products", requireStore, productHandler.ListProducts)
	store.Post("/products", guard, requireStore, productHandler.CreateProduct)
	store.Patch("/products", guard, requireStore, productHandler.UpdateProduct)
	store.Delete("/products", guard, requireStore, productHandler.DeleteProduct)
	store.Get("/coupons", requireStore, couponHandler.ListCoupons)
	store.Post("/coupons", guard, requireStore, couponHandler.CreateCoupon)
	store.Get("/orders", requireStore, orderHandler.ListOrders)
	store.Post("/orders/approve", guard, requireStore, orderHandler.ApproveOrder)

	// Admin
	admin := api.Group("/admin")
	admin.Post("/setup", guard, adminHandler.Setup)
	admin.Post("/auth/login", guard, authHandler.AdminLogin)
	admin.Post("/auth/logout", guard, authHandler.AdminLogout)
	admin.Get("/session", requireAdmin, authHandler.AdminSession)
	admin.Get("/stores", requireAdmin, adminHandler.ListStores)
	admin.Post("/approve-store", guard, requireAdmin, adminHandler.DecideStore)

	// Customer
	customer := api.Group("/customer")
	customer.Get("/product", productHandler.LookupProduct)
	customer.Post("/coupon/apply", guard, couponHandler.ApplyCoupon)
	customer.Post("/otp/send", guard, orderHandler.SendOTP)
	customer.Post("/otp/verify", guard, orderHandler.VerifyOTP)
	customer.Post("/checkout", guard, orderHandler.Checkout)
	customer.Get("/bill/:orderId", sessions.LoadStore(), orderHandler.Bill)

	return nil
}
