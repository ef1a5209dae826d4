package main

import (
	"context"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"table_admin/internal/audit"
	"table_admin/internal/config"
	"table_admin/internal/db"
	"table_admin/internal/observability"
	"table_admin/internal/queue"
	"table_admin/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	observability.ConfigureLogging(cfg.IsProduction(), cfg.LogLevel)

	if cfg.RabbitMQ.URL == "" {
		logrus.Fatal("RABBITMQ_URL is required for the audit worker")
	}

	database := db.Init(&cfg.DB)
	defer func() {
		if err := database.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close database connection")
		}
	}()

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.EnsureSchema(schemaCtx, database); err != nil {
		cancelSchema()
		logrus.WithError(err).Fatal("Failed to prepare schema")
	}
	cancelSchema()

	conn := queue.SetupRabbitMQ(&cfg.RabbitMQ)
	defer func() {
		if err := conn.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close RabbitMQ connection")
		}
	}()

	// Initialize Prometheus metrics
	observability.InitMetrics()
	logrus.Info("Metrics initialized")

	// Start metrics HTTP server for Prometheus scraping
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              ":" + cfg.Worker.MetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.Infof("Worker metrics server started on :%s", cfg.Worker.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start metrics server")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo := audit.NewAuditRepository()

	var wg sync.WaitGroup
	for i := 1; i <= cfg.Worker.Count; i++ {
		w := &worker.AuditWorker{
			ID:      i,
			DB:      database,
			Repo:    repo,
			Queue:   cfg.RabbitMQ.Queue,
			Metrics: observability.GlobalMetrics,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Start(ctx, conn); err != nil {
				logrus.WithError(err).Errorf("Worker %d exited", w.ID)
			}
		}()
	}

	<-ctx.Done()
	logrus.Info("Shutting down workers...")
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Failed to stop metrics server")
	}
}
