// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"log"

	"sooq-service/internal/config"
	"sooq-service/internal/db"
	poolHandler "sooq-service/internal/handlers/pool"
	pricingHandler "sooq-service/internal/handlers/pricing"
	receiptHandler "sooq-service/internal/handlers/receipt"
	saleHandler "sooq-service/internal/handlers/sale"
	subscriptionHandler "sooq-service/internal/handlers/subscription"
	walletHandler "sooq-service/internal/handlers/wallet"
	"sooq-service/internal/middleware"
	"sooq-service/internal/pkg/jwt"
	"sooq-service/internal/repository/postgres"
	billingUsecase "sooq-service/internal/service/billing"
	"sooq-service/internal/service/email"
	notifyUsecase "sooq-service/internal/service/notification"
	poolUsecase "sooq-service/internal/service/pool"
	pricingUsecase "sooq-service/internal/service/pricing"
	profitUsecase "sooq-service/internal/service/profit"
	receiptUsecase "sooq-service/internal/service/receipt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.Default()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	// ----- Redis -----
	redisCfg := db.RedisConfig{
		Addresses: []string{s.cfg.RedisAddr},
		Password:  s.cfg.RedisPass,
		DB:        0,
		PoolSize:  10,
	}

	redisClient, err := db.NewRedisClient(redisCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Println("[REDIS] connected successfully")

	// ----- Logger -----
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	s.logger = logger

	// ----- JWT Verifier -----
	verifier, err := jwt.LoadVerifier(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT verifier: %w", err)
	}

	// ----- Email -----
	emailSender := email.NewEmailSender(
		s.cfg.SMTPHost,
		s.cfg.SMTPPort,
		s.cfg.SMTPUser,
		s.cfg.SMTPPass,
		s.cfg.SMTPFromName,
		s.cfg.SMTPSecure,
	)

	// ----- Repositories -----
	dbWrapper := postgres.NewDB(pool)
	subscriptionRepo := postgres.NewBusinessSubscriptionRepository(pool)
	planRepo := postgres.NewSubscriptionPlanRepository(pool)
	poolRepo := postgres.NewPoolRepository(pool)
	contributionRepo := postgres.NewContributionRepository(pool)
	unitRepo := postgres.NewUnitRepository(pool)
	saleRepo := postgres.NewStockSaleRepository(pool)
	manufacturingRepo := postgres.NewManufacturingRepository(pool)
	distributionRepo := postgres.NewProfitDistributionRepository(pool)
	walletRepo := postgres.NewWalletRepository(pool)
	receiptSequenceRepo := postgres.NewReceiptSequenceRepository(pool)
	metalPriceRepo := postgres.NewMetalPriceRepository(pool)
	businessRepo := postgres.NewBusinessRepository(pool)

	// ----- Services (Usecases) -----
	notifyService := notifyUsecase.NewNotificationService(emailSender, businessRepo, logger)
	billingService := billingUsecase.NewService(subscriptionRepo, planRepo, dbWrapper, logger)
	poolService := poolUsecase.NewService(
		poolRepo,
		contributionRepo,
		unitRepo,
		notifyService,
		dbWrapper,
		logger,
	)
	profitService := profitUsecase.NewService(
		saleRepo,
		manufacturingRepo,
		distributionRepo,
		walletRepo,
		dbWrapper,
		logger,
	)
	pricingService := pricingUsecase.NewService(metalPriceRepo, redisClient, logger)
	receiptService := receiptUsecase.NewService(receiptSequenceRepo, dbWrapper, logger)

	// ----- Handlers -----
	billingHandlerInst := subscriptionHandler.NewBillingHandler(billingService)
	poolHandlerInst := poolHandler.NewPoolHandler(poolService)
	saleHandlerInst := saleHandler.NewSaleHandler(profitService)
	pricingHandlerInst := pricingHandler.NewPricingHandler(pricingService, logger)
	receiptHandlerInst := receiptHandler.NewReceiptHandler(receiptService, businessRepo)
	walletHandlerInst := walletHandler.NewWalletHandler(walletRepo)

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(verifier)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
	)

	// ----- Router -----
	handlers := &Handlers{
		BillingHandler: billingHandlerInst,
		PoolHandler:    poolHandlerInst,
		SaleHandler:    saleHandlerInst,
		PricingHandler: pricingHandlerInst,
		ReceiptHandler: receiptHandlerInst,
		WalletHandler:  walletHandlerInst,
		AuthMiddleware: authMiddleware,
	}
	SetupRouter(s.engine, logger, handlers)

	// ----- Start HTTP -----
	log.Printf("server running on %s", s.cfg.HTTPAddr)
	return s.engine.Run(s.cfg.HTTPAddr)
}
