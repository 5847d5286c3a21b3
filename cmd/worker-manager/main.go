// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mf-search-workers/internal/common/camunda"
	"mf-search-workers/internal/common/config"
	"mf-search-workers/internal/common/logger"
	"mf-search-workers/internal/common/observability"
	fundsearch "mf-search-workers/internal/workers/fund-search"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console", "stderr")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"env":     cfg.App.Environment,
	})

	zapLog.Info("Starting fund search worker manager...")

	obs := observability.New(cfg.Observability.ServiceName)
	defer obs.Shutdown()
	if err := obs.EnableTracing(cfg.Observability.JaegerEndpoint); err != nil {
		zapLog.Warn("tracing disabled", zap.Error(err))
	}

	ctx := context.Background()

	// --- Shared clients ---
	svc, err := fundsearch.Connect(cfg, log)
	if err != nil {
		zapLog.Fatal("client setup failed", zap.Error(err))
	}
	defer svc.Close()

	err = retryWithBackoff(func() error {
		return svc.Elasticsearch.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	if err := svc.Store.Ping(ctx); err != nil {
		zapLog.Warn("fund index not ready; run fundctl index",
			zap.String("index", svc.Store.Index()), zap.Error(err))
	}

	if svc.Redis != nil {
		err = retryWithBackoff(func() error {
			return svc.Redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		zapLog.Info("Redis connected successfully")
	} else {
		zapLog.Info("Redis not configured; intent and embedding caches disabled")
	}

	// --- Zeebe ---
	zeebe, err := camunda.NewClient(camunda.ConfigFromApp(cfg.Camunda), log)
	if err != nil {
		zapLog.Fatal("zeebe client failed", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Workers ---
	handlers, err := fundsearch.NewHandlers(cfg, svc, log)
	if err != nil {
		zapLog.Fatal("worker configuration invalid", zap.Error(err))
	}

	var workers []*camunda.Worker
	for _, reg := range handlers.Registrations() {
		if !reg.Enabled {
			zapLog.Info("worker disabled", zap.String("taskType", reg.TaskType))
			continue
		}
		workers = append(workers, camunda.NewWorker(
			zeebe.GetClient(), reg.TaskType, reg.MaxJobsActive, reg.Timeout, reg.Handler, log,
		))
	}
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	server := &http.Server{
		Addr:              cfg.App.HTTPAddress,
		Handler:           healthMux(svc, zeebe),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func healthMux(svc *fundsearch.Services, zeebe *camunda.Client) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := svc.Ping(ctx)
		checks["zeebe"] = zeebe.HealthCheck(ctx)

		status, code := "ready", http.StatusOK
		report := make(map[string]string, len(checks))
		for name, err := range checks {
			if err != nil {
				report[name] = err.Error()
				status, code = "not ready", http.StatusServiceUnavailable
				continue
			}
			report[name] = "ok"
		}
		writeJSON(w, code, map[string]interface{}{
			"status": status,
			"checks": report,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
