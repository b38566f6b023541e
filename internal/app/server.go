// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"prepcoach-service/internal/config"
	"prepcoach-service/internal/db"
	checkoutHandler "prepcoach-service/internal/handlers/checkout"
	discountHandler "prepcoach-service/internal/handlers/discount"
	feedHandler "prepcoach-service/internal/handlers/feed"
	sessionHandler "prepcoach-service/internal/handlers/session"
	transcriptHandler "prepcoach-service/internal/handlers/transcript"
	"prepcoach-service/internal/middleware"
	"prepcoach-service/internal/pkg/ratelimit"
	"prepcoach-service/internal/repository/postgres"
	"prepcoach-service/internal/sequencer"
	checkoutUsecase "prepcoach-service/internal/service/checkout"
	discountUsecase "prepcoach-service/internal/service/discount"
	pricingUsecase "prepcoach-service/internal/service/pricing"
	sessionUsecase "prepcoach-service/internal/service/session"
	transcriptUsecase "prepcoach-service/internal/service/transcript"
	"prepcoach-service/internal/ws"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	http   *http.Server
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- Logger -----
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	s.logger = logger

	// ----- PostgreSQL -----
	if s.cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	pool, err := db.ConnectDB(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(s.cfg.RedisAddr, s.cfg.RedisPass)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	limiter := ratelimit.NewLimiter(redisClient)

	// ----- Repositories -----
	sessionRepo := postgres.NewCoachingSessionRepository(pool)
	transcriptRepo := postgres.NewTranscriptRepository(pool)
	discountRepo := postgres.NewDiscountRepository(pool)
	subscriptionRepo := postgres.NewSubscriptionRepository(pool)
	eventRepo := postgres.NewSessionEventRepository(pool)

	// ----- Live feed hub -----
	hub := ws.NewHub(logger)

	// ----- Sequencer -----
	seq := sequencer.New(logger)

	// ----- Services (Usecases) -----
	sessionService := sessionUsecase.NewSessionService(
		sessionRepo,
		eventRepo,
		transcriptRepo,
		s.cfg.SessionRetention,
		s.cfg.HistoryLimit,
		logger,
	)
	transcriptService := transcriptUsecase.NewTranscriptService(
		transcriptRepo,
		sessionRepo,
		seq,
		hub,
		s.cfg.HistoryLimit,
		logger,
	)
	discountService := discountUsecase.NewDiscountService(discountRepo, logger)
	pricingService := pricingUsecase.NewPricingService(subscriptionRepo, logger)

	stripeClient := checkoutUsecase.NewStripeClient(
		s.cfg.StripeSecretKey,
		s.cfg.StripeWebhookSecret,
		s.cfg.StripeSuccessURL,
		s.cfg.StripeCancelURL,
	)
	checkoutService := checkoutUsecase.NewCheckoutService(
		sessionRepo,
		sessionService,
		discountService,
		pricingService,
		stripeClient,
		logger,
	)

	// ----- Handlers -----
	sessionHandlerInst := sessionHandler.NewSessionHandler(sessionService)
	transcriptHandlerInst := transcriptHandler.NewTranscriptHandler(transcriptService)
	discountHandlerInst := discountHandler.NewDiscountHandler(discountService)
	checkoutHandlerInst := checkoutHandler.NewCheckoutHandler(checkoutService)
	feedHandlerInst := feedHandler.NewFeedHandler(hub, sessionRepo, logger)

	// ----- Middlewares -----
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
	)

	// ----- Router -----
	handlers := &Handlers{
		SessionHandler:    sessionHandlerInst,
		TranscriptHandler: transcriptHandlerInst,
		DiscountHandler:   discountHandlerInst,
		CheckoutHandler:   checkoutHandlerInst,
		FeedHandler:       feedHandlerInst,
		Limiter:           limiter,
	}
	SetupRouter(s.engine, logger, s.cfg, handlers)

	// ----- Start HTTP -----
	s.http = &http.Server{Addr: s.cfg.HTTPAddr, Handler: s.engine}
	log.Printf("server running on %s", s.cfg.HTTPAddr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting new connections and waits for in-flight requests
// up to ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
