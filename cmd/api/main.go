package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"table_admin/internal/audit"
	"table_admin/internal/cache"
	"table_admin/internal/config"
	"table_admin/internal/db"
	"table_admin/internal/handler"
	"table_admin/internal/observability"
	"table_admin/internal/queue"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	observability.ConfigureLogging(cfg.IsProduction(), cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	database := db.Init(&cfg.DB)
	defer func() {
		if err := database.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close database connection")
		}
	}()

	schemaCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.EnsureSchema(schemaCtx, database); err != nil {
		cancel()
		logrus.WithError(err).Fatal("Failed to prepare schema")
	}
	cancel()

	rdb := cache.SetupRedis(&cfg.Redis)
	if rdb != nil {
		defer func() {
			if err := rdb.Close(); err != nil {
				logrus.WithError(err).Error("Failed to close redis connection")
			}
		}()
	}

	// Initialize Prometheus metrics
	observability.InitMetrics()
	logrus.Info("Metrics initialized")

	var publisher audit.Publisher = audit.NoopPublisher{}
	if conn := queue.SetupRabbitMQ(&cfg.RabbitMQ); conn != nil {
		defer func() {
			if err := conn.Close(); err != nil {
				logrus.WithError(err).Error("Failed to close RabbitMQ connection")
			}
		}()

		rp, err := audit.NewRabbitPublisher(conn, cfg.RabbitMQ.Queue, observability.GlobalMetrics)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to create audit publisher")
		}
		defer rp.Close()
		publisher = rp
	}

	r := handler.SetupHandler(handler.Dependencies{
		DB:        database,
		Redis:     rdb,
		Publisher: publisher,
		Metrics:   observability.GlobalMetrics,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Infof("Starting %s on :%s", cfg.AppName, cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}
}
