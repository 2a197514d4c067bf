package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goldenrabbit-press/orders-service/internal/clients"
	"github.com/goldenrabbit-press/orders-service/internal/config"
	"github.com/goldenrabbit-press/orders-service/internal/events"
	"github.com/goldenrabbit-press/orders-service/internal/handlers"
	"github.com/goldenrabbit-press/orders-service/internal/logging"
	"github.com/goldenrabbit-press/orders-service/internal/metrics"
	"github.com/goldenrabbit-press/orders-service/internal/repository"
	"github.com/goldenrabbit-press/orders-service/internal/server"
	"github.com/goldenrabbit-press/orders-service/internal/service"

	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()

	logger := logging.New("orders-service")
	logging.Infof("Starting orders-service on port %d", cfg.Server.Port)

	db, err := initDatabase(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", logging.Fields{"error": err.Error()})
	}
	defer db.Close()

	settlementMetrics := metrics.NewSettlementMetrics()

	orderRepo := repository.NewPostgresOrderRepository(db, logging.New("order-repository"))
	stockAdjuster := repository.NewPostgresStockAdjuster(db, logging.New("stock-adjuster"))
	orderCache := repository.NewRedisOrderCache(cfg.Redis)

	tossClient := clients.NewTossClient(cfg.Toss, logging.New("toss-client"), settlementMetrics)
	adminClient := clients.NewHTTPAdminClient(cfg.Admin, logging.New("admin-client"))

	eventPublisher := events.NewKafkaPublisher(cfg.Kafka, logging.New("order-events"))
	defer eventPublisher.Close()

	orderService := service.NewOrderService(
		orderRepo,
		stockAdjuster,
		orderCache,
		tossClient,
		adminClient,
		eventPublisher,
		settlementMetrics,
		cfg,
	)

	h := handlers.NewHandlers(orderService, cfg)
	srv := server.NewServer(cfg, h)

	go func() {
		logger.Info("Server starting", logging.Fields{
			"port":                 cfg.Server.Port,
			"enable_order_caching": cfg.Features.EnableOrderCaching,
			"enable_order_events":  cfg.Features.EnableOrderEvents,
		})
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", logging.Fields{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", logging.Fields{"error": err.Error()})
	}

	logger.Info("Server exited", nil)
}

func initDatabase(cfg *config.Config, logger *logging.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	logger.Info("Database connected", logging.Fields{
		"host": cfg.Database.Host,
		"name": cfg.Database.Name,
	})

	return db, nil
}
