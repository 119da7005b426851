// internal/app/router.go
package app

import (
	poolHandler "sooq-service/internal/handlers/pool"
	pricingHandler "sooq-service/internal/handlers/pricing"
	receiptHandler "sooq-service/internal/handlers/receipt"
	saleHandler "sooq-service/internal/handlers/sale"
	subscriptionHandler "sooq-service/internal/handlers/subscription"
	walletHandler "sooq-service/internal/handlers/wallet"
	"sooq-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	BillingHandler *subscriptionHandler.BillingHandler
	PoolHandler    *poolHandler.PoolHandler
	SaleHandler    *saleHandler.SaleHandler
	PricingHandler *pricingHandler.PricingHandler
	ReceiptHandler *receiptHandler.ReceiptHandler
	WalletHandler  *walletHandler.WalletHandler
	AuthMiddleware *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== Subscription Plans ====================
	plans := api.Group("/plans")
	{
		// Public endpoint - no auth required
		plans.GET("/public", h.BillingHandler.ListPlans)
	}

	// ==================== Subscriptions ====================
	subscriptions := api.Group("/subscriptions")
	subscriptions.Use(h.AuthMiddleware.Auth())
	{
		subscriptions.POST("", h.BillingHandler.CreateSubscription)
		subscriptions.GET("/active", h.BillingHandler.GetActiveSubscription)
	}

	// Billing scheduler / admin endpoints
	billing := api.Group("/subscriptions")
	billing.Use(h.AuthMiddleware.Auth(), h.AuthMiddleware.RequireRole("admin", "super_admin", "scheduler"))
	{
		billing.GET("/due", h.BillingHandler.ListDue)
		billing.GET("/:id", h.BillingHandler.GetSubscription)
		billing.POST("/:id/charge-success", h.BillingHandler.ChargeSucceeded)
		billing.POST("/:id/charge-failure", h.BillingHandler.ChargeFailed)
		billing.POST("/:id/plan-change", h.BillingHandler.QueuePlanChange)
		billing.POST("/:id/cancel", h.BillingHandler.CancelSubscription)
	}

	// ==================== Investment Pools ====================
	pools := api.Group("/pools")
	pools.Use(h.AuthMiddleware.Auth())
	{
		pools.GET("", h.PoolHandler.ListPools)
		pools.GET("/:id", h.PoolHandler.GetPoolDetails)
		pools.POST("/:id/reconcile", h.AuthMiddleware.RequireRole("admin", "super_admin"), h.PoolHandler.ReconcileStatus)
	}

	contributions := api.Group("/contributions")
	contributions.Use(h.AuthMiddleware.Auth(), h.AuthMiddleware.RequireRole("admin", "super_admin"))
	{
		contributions.PATCH("/:id/decision", h.PoolHandler.DecideContribution)
	}

	// ==================== Stock Sales ====================
	sales := api.Group("/sales")
	sales.Use(h.AuthMiddleware.Auth())
	{
		sales.POST("", h.SaleHandler.CreateSale)
		sales.GET("", h.SaleHandler.ListSales)
		sales.GET("/:id", h.SaleHandler.GetSale)
	}

	// ==================== Metal Prices ====================
	prices := api.Group("/prices")
	prices.Use(h.AuthMiddleware.Auth())
	{
		prices.GET("/live", h.PricingHandler.GetLivePrice)
	}

	// ==================== Wallets ====================
	wallets := api.Group("/wallets")
	wallets.Use(h.AuthMiddleware.Auth())
	{
		wallets.GET("/me", h.WalletHandler.GetMyWallet)
	}

	// ==================== Receipts ====================
	receipts := api.Group("/receipts")
	receipts.Use(h.AuthMiddleware.Auth())
	{
		receipts.POST("", h.ReceiptHandler.IssueReceiptNumber)
	}
}
