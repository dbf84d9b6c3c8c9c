package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/rosterhq/oncall-api/internal/clock"
	"github.com/rosterhq/oncall-api/internal/config"
	"github.com/rosterhq/oncall-api/internal/handler"
	auditHandler "github.com/rosterhq/oncall-api/internal/handler/audit"
	authHandler "github.com/rosterhq/oncall-api/internal/handler/auth"
	notifyHandler "github.com/rosterhq/oncall-api/internal/handler/notify"
	rosterHandler "github.com/rosterhq/oncall-api/internal/handler/roster"
	scheduleHandler "github.com/rosterhq/oncall-api/internal/handler/schedule"
	viewHandler "github.com/rosterhq/oncall-api/internal/handler/view"
	"github.com/rosterhq/oncall-api/internal/middleware"
	"github.com/rosterhq/oncall-api/internal/notifier"
	"github.com/rosterhq/oncall-api/internal/repository/kv"
	redisstore "github.com/rosterhq/oncall-api/internal/repository/redis"
	"github.com/rosterhq/oncall-api/internal/router"
	auditService "github.com/rosterhq/oncall-api/internal/service/audit"
	authService "github.com/rosterhq/oncall-api/internal/service/auth"
	dispatchService "github.com/rosterhq/oncall-api/internal/service/dispatch"
	rotationService "github.com/rosterhq/oncall-api/internal/service/rotation"
	scheduleService "github.com/rosterhq/oncall-api/internal/service/schedule"
	"github.com/rosterhq/oncall-api/pkg/logger"
	"github.com/rosterhq/oncall-api/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.NewMetrics("oncall", "api")

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid schedule timezone")
	}
	clk := clock.New(loc)

	// Initialize the key-value store
	store, err := redisstore.NewStore(cfg.Redis, appMetrics)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer store.Close()

	// Initialize repositories
	scheduleRepo := kv.NewScheduleRepository(store)
	rosterRepo := kv.NewRosterRepository(store)
	notifyRepo := kv.NewNotifyStateRepository(store)
	auditRepo := kv.NewAuditRepository(store)

	// Initialize services
	auditSvc := auditService.NewService(auditRepo, clk)
	rotationSvc := rotationService.NewService()
	scheduleSvc := scheduleService.NewService(scheduleRepo, auditSvc, clk, appLogger)
	authSvc := authService.NewService(cfg.JWT, cfg.Admin, clk)
	channel := notifier.NewChannel(cfg.SMTP, cfg.SMS)
	dispatchSvc := dispatchService.NewService(
		scheduleRepo,
		notifyRepo,
		channel,
		auditSvc,
		clk,
		appLogger,
		appMetrics,
		cfg.Admin.NotifyEmails,
		cfg.Schedule.PublicURL,
	)

	// Initialize middleware and handlers
	authMiddleware := middleware.NewAuthMiddleware(authSvc)
	h := handler.NewHandler(auditSvc)

	r := router.NewRouter(
		authMiddleware,
		h,
		authHandler.NewHandler(authSvc),
		viewHandler.NewHandler(scheduleSvc, clk),
		router.Config{RateLimit: rate.Limit(20), RateBurst: 40},
		scheduleHandler.NewHandler(rotationSvc, scheduleSvc, rosterRepo, auditSvc, clk),
		notifyHandler.NewHandler(dispatchSvc),
		rosterHandler.NewHandler(rosterRepo, auditSvc),
		auditHandler.NewHandler(auditSvc),
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
