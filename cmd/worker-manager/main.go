// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	awsclients "dealflow-workers/internal/common/aws"
	"dealflow-workers/internal/common/camunda"
	"dealflow-workers/internal/common/config"
	"dealflow-workers/internal/common/database"
	"dealflow-workers/internal/common/genai"
	"dealflow-workers/internal/common/logger"
	"dealflow-workers/internal/common/observability"

	// Assessment pipeline workers (6)
	ad "dealflow-workers/internal/workers/assessment/assess-deal"
	cf "dealflow-workers/internal/workers/assessment/calculate-financials"
	gi "dealflow-workers/internal/workers/assessment/generate-insights"
	ia "dealflow-workers/internal/workers/assessment/index-assessment"
	sa "dealflow-workers/internal/workers/assessment/save-assessment"
	vo "dealflow-workers/internal/workers/assessment/validate-opportunity"

	// Notification workers (1)
	sn "dealflow-workers/internal/workers/notification/send-notification"
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
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var camundaClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		camundaClient, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		// Test the connection
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init External Service Clients ---
	insightsClient := genai.NewClient(cfg.APIs.GenAI, log)

	var sesClient sn.EmailSender
	var snsClient sn.SMSSender
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		awsCfg, err := awsclients.LoadConfig(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("aws config load failed", zap.Error(err))
		}
		if cfg.Notifications.Email.Enabled {
			sesClient = awsclients.NewSESClient(awsCfg)
		}
		if cfg.Notifications.SMS.Enabled {
			snsClient = awsclients.NewSNSClient(awsCfg)
		}
	}

	zapLog.Info("All external service clients initialized")

	var workers []*camunda.CamundaWorker
	register := func(taskType string, handler camunda.JobHandler) {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		if !wcfg.Enabled {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			return
		}
		w := camunda.NewWorker(camundaClient.GetClient(), taskType, camunda.WorkerOptions{
			MaxJobsActive: wcfg.MaxJobsActive,
			JobTimeout:    config.GetDuration(wcfg.Timeout),
		}, handler, zapLog)
		w.Start()
		workers = append(workers, w)
	}

	// --- Register Assessment Pipeline Workers ---
	voHandler, err := vo.NewHandler(
		&vo.Config{
			Timeout: config.GetDuration(config.GetWorkerConfig(cfg, vo.TaskType).Timeout),
		},
		log,
	)
	if err != nil {
		zapLog.Fatal("failed to create validate-opportunity handler", zap.Error(err))
	}
	register(vo.TaskType, voHandler)

	register(cf.TaskType, cf.NewHandler(
		&cf.Config{
			Timeout: config.GetDuration(config.GetWorkerConfig(cfg, cf.TaskType).Timeout),
		},
		log,
	))

	criteriaStore := ad.NewCriteriaStore(
		pg.GetDB(),
		redis.GetClient(),
		cfg.Assessment.Criteria(),
		time.Duration(cfg.Assessment.CriteriaCache.TTLSeconds)*time.Second,
		log,
	)
	register(ad.TaskType, ad.NewHandler(
		&ad.Config{
			Timeout:  config.GetDuration(config.GetWorkerConfig(cfg, ad.TaskType).Timeout),
			CacheTTL: time.Duration(cfg.Assessment.CriteriaCache.TTLSeconds) * time.Second,
		},
		criteriaStore, log,
	))

	register(gi.TaskType, gi.NewHandler(
		&gi.Config{
			Timeout: config.GetDuration(config.GetWorkerConfig(cfg, gi.TaskType).Timeout),
		},
		insightsClient, log,
	))

	register(sa.TaskType, sa.NewHandler(
		&sa.Config{
			Timeout: config.GetDuration(config.GetWorkerConfig(cfg, sa.TaskType).Timeout),
		},
		pg.GetDB(), log,
	))

	register(ia.TaskType, ia.NewHandler(
		&ia.Config{
			IndexName: "deal-assessments",
			Timeout:   config.GetDuration(config.GetWorkerConfig(cfg, ia.TaskType).Timeout),
		},
		esClient, log,
	))

	// --- Register Notification Workers ---
	register(sn.TaskType, sn.NewHandler(
		&sn.Config{
			EmailEnabled: cfg.Notifications.Email.Enabled,
			SMSEnabled:   cfg.Notifications.SMS.Enabled,
			FromEmail:    cfg.Notifications.Email.FromEmail,
			AWSRegion:    cfg.Notifications.AWS.Region,
			Timeout:      config.GetDuration(config.GetWorkerConfig(cfg, sn.TaskType).Timeout),
		},
		pg.GetDB(), sesClient, snsClient, log,
	))

	zapLog.Info("All workers registered successfully", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := pg.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
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
		w.Stop(shutdownCtx)
	}

	if err := camundaClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
