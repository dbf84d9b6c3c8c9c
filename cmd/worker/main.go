package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/rosterhq/oncall-api/internal/clock"
	"github.com/rosterhq/oncall-api/internal/config"
	"github.com/rosterhq/oncall-api/internal/notifier"
	"github.com/rosterhq/oncall-api/internal/repository/kv"
	redisstore "github.com/rosterhq/oncall-api/internal/repository/redis"
	auditService "github.com/rosterhq/oncall-api/internal/service/audit"
	dispatchService "github.com/rosterhq/oncall-api/internal/service/dispatch"
	"github.com/rosterhq/oncall-api/internal/worker"
	"github.com/rosterhq/oncall-api/pkg/logger"
	"github.com/rosterhq/oncall-api/pkg/metrics"
)

func setupHealthCheck(appLogger *logger.Logger, port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			appLogger.ZL.Error().Err(err).Msg("health check server failed")
		}
	}()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.NewMetrics("oncall", "worker")

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid schedule timezone")
	}
	clk := clock.New(loc)

	store, err := redisstore.NewStore(cfg.Redis, appMetrics)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer store.Close()

	scheduleRepo := kv.NewScheduleRepository(store)
	notifyRepo := kv.NewNotifyStateRepository(store)
	auditRepo := kv.NewAuditRepository(store)

	auditSvc := auditService.NewService(auditRepo, clk)
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

	setupHealthCheck(appLogger, cfg.Server.HealthPort)

	cron := worker.NewCronWorker(dispatchSvc, clk, appLogger, cfg.Schedule.DispatchHour)

	ctx, cancel := context.WithCancel(context.Background())
	go cron.Start(ctx)

	appLogger.Info("dispatch worker started", "hour", cfg.Schedule.DispatchHour)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down worker...")
	cancel()
}
