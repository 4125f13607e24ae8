// main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go-bakery/accounting"
	"go-bakery/availability"
	"go-bakery/calendar"
	"go-bakery/config"
	"go-bakery/controllers"
	"go-bakery/middleware"
	"go-bakery/models"
	"go-bakery/orders"
	"go-bakery/reviews"
	"go-bakery/routes"
	"go-bakery/scheduler"
	"go-bakery/store"
	"go-bakery/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := utils.NewLogger(cfg.App.LogLevel, cfg.App.Mode)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	clock := utils.SystemClock{}
	loc := cfg.Location()

	// Connect to MongoDB
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := store.ConnectMongo(connectCtx, cfg.Database.URI, cfg.Database.Name)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			logger.Error("mongo disconnect", zap.Error(err))
		}
	}()

	// Email providers
	emailService := utils.NewEmailService(logger.Named("email"))
	switch cfg.Email.Service {
	case config.EmailSendGrid:
		emailService.Register(config.EmailSendGrid,
			utils.NewSendGridProvider(cfg.Email.SendGridAPIKey, cfg.Email.SendGridHost, cfg.Email.Sender, cfg.Email.SenderName))
	case config.EmailPostmark:
		emailService.Register(config.EmailPostmark,
			utils.NewPostmarkProvider(cfg.Email.PostmarkServerToken, cfg.Email.Sender))
	}

	// Engines
	engine := availability.NewEngine(db, clock, loc, logger.Named("availability"))
	var monthly calendar.Aggregator = calendar.NewMonthlyAggregator(db, calendar.Config{
		Collection: models.CollectionOrders,
		Location:   loc,
		Fallback:   cfg.Calendar.Fallback,
		ScanLimit:  cfg.Calendar.ScanLimit,
	}, logger.Named("calendar"))

	var invalidator orders.CalendarInvalidator
	if cfg.Calendar.RedisAddr != "" {
		cache := calendar.NewRedisCache(cfg.Calendar.RedisAddr, cfg.Calendar.RedisPassword, cfg.Calendar.RedisDB)
		defer cache.Close()
		if err := cache.Ping(ctx); err != nil {
			logger.Warn("calendar cache unreachable, serving from the store", zap.Error(err))
		} else {
			cached := calendar.NewCachedAggregator(monthly, cache, cfg.Calendar.CacheTTL, logger.Named("calendar-cache"))
			monthly, invalidator = cached, cached
		}
	}
	revenue := accounting.NewRevenueAggregator(db, loc, logger.Named("accounting"))

	orderService := orders.NewService(db, engine, emailService, invalidator, clock, loc, orders.Config{
		Availability: cfg.Availability(),
		EmailService: cfg.Email.Service,
		AdminEmail:   cfg.Email.AdminEmail,
		Templates: orders.Templates{
			OrderConfirmation: cfg.Email.TemplateConfirmation,
			AdminNewOrder:     cfg.Email.TemplateAdminNewOrder,
			StatusUpdate:      cfg.Email.TemplateStatusUpdate,
			ReviewRequest:     cfg.Email.TemplateReviewRequest,
		},
		ArchiveAfterDays: cfg.Jobs.ArchiveAfterDays,
	}, logger.Named("orders"))
	reviewService := reviews.NewService(db, clock, logger.Named("reviews"))

	// Background jobs
	limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst, clock)
	tasks := []*scheduler.Task{
		scheduler.New("poll-new-orders", cfg.Jobs.PollInterval, func(ctx context.Context) error {
			_, err := orderService.PollNewOrders(ctx)
			return err
		}, clock, logger),
		scheduler.New("archive-sweep", cfg.Jobs.ArchiveInterval, func(ctx context.Context) error {
			_, err := orderService.SweepArchive(ctx)
			return err
		}, clock, logger),
		scheduler.New("rate-limit-cleanup", time.Minute, limiter.Cleanup, clock, logger),
	}
	for _, t := range tasks {
		t.Start(ctx)
	}
	defer func() {
		for _, t := range tasks {
			t.Stop()
		}
	}()

	// Initialize controllers
	tokens := utils.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, clock)
	orderController := controllers.NewOrderController(orderService, engine, cfg.Availability(), monthly, logger.Named("http"))
	adminController := controllers.NewAdminController(cfg.Auth.AdminPasswordHash, tokens, revenue, logger.Named("http"))
	reviewController := controllers.NewReviewController(reviewService, logger.Named("http"))

	// Set up the router
	router := mux.NewRouter()
	router.Use(middleware.RequestLogger(logger.Named("access")))
	routes.RegisterRoutes(router, middleware.NewAuth(tokens), limiter, orderController, adminController, reviewController)

	server := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server is running", zap.String("port", cfg.HTTP.Port))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
