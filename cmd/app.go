package main

import (
	"context"
	"fmt"

	"netmon-dashboard/internal/backend"
	"netmon-dashboard/internal/monitoring"
	"netmon-dashboard/internal/notify"
	"netmon-dashboard/internal/realtime"
	"netmon-dashboard/internal/reports"
	"netmon-dashboard/internal/session"
	"netmon-dashboard/internal/storage"
	"netmon-dashboard/pkg/config"
	"netmon-dashboard/pkg/db"
	"netmon-dashboard/pkg/logger"
)

// buildOrchestrator wires the client storage, the backend client and the
// optional report and notification backends
func buildOrchestrator(ctx context.Context, cfg *config.Config) (*monitoring.Orchestrator, error) {
	probes := make(map[string]func(ctx context.Context) error)

	kv, err := openKV(ctx, cfg, probes)
	if err != nil {
		return nil, err
	}

	transports := []notify.Transport{notify.NewLogTransport()}
	if cfg.NotifyEnabled() {
		amqpTransport, err := notify.NewAMQPTransport(cfg.RabbitMQURL, cfg.NotifyExchange)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, notifications are logged only", logger.Err(err))
		} else {
			transports = append(transports, amqpTransport)
			logger.Info("Connected to RabbitMQ", logger.String("exchange", cfg.NotifyExchange))
		}
	}

	var exporter *reports.Exporter
	if cfg.MinioEnabled() {
		minioClient, err := db.NewMinioClient(db.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
			Bucket:    cfg.ReportsBucket,
		})
		if err != nil {
			_ = kv.Close()
			return nil, fmt.Errorf("failed to connect to MinIO: %w", err)
		}
		probes["minio"] = minioClient.HealthCheck
		exporter = reports.NewExporter(db.NewReportStorage(minioClient), reports.Format(cfg.ReportFormat), cfg.ReportRetention)
		logger.Info("Connected to MinIO", logger.String("bucket", cfg.ReportsBucket))
	}

	store := session.NewStore(kv)
	var orchestrator *monitoring.Orchestrator
	client := backend.NewClient(backend.Options{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.APITimeout,
		Tokens:  store,
		OnUnauthorized: func(ctx context.Context) {
			orchestrator.HandleUnauthorized(ctx)
		},
	})

	orchestrator = monitoring.NewOrchestrator(monitoring.Deps{
		Config:   cfg,
		Backend:  client,
		Store:    store,
		KV:       kv,
		Hub:      realtime.NewHub(),
		Notifier: notify.New("netmon-dashboard", transports...),
		Exporter: exporter,
		Probes:   probes,
	})

	if err := orchestrator.Restore(ctx); err != nil {
		logger.Warn("Failed to restore session", logger.Err(err))
	}
	return orchestrator, nil
}

func openKV(ctx context.Context, cfg *config.Config, probes map[string]func(ctx context.Context) error) (storage.KV, error) {
	switch cfg.StorageBackend {
	case config.StorageRedis:
		redisClient, err := db.NewRedisConnection(cfg.RedisURL, cfg.RedisKeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		probes["redis"] = redisClient.HealthCheck
		logger.Info("Connected to Redis")
		return storage.NewRedisKV(redisClient), nil
	default:
		conn, err := db.NewSQLiteConnection(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite: %w", err)
		}
		kv, err := storage.NewSQLiteKV(ctx, conn)
		if err != nil {
			conn.Close()
			return nil, err
		}
		probes["sqlite"] = conn.PingContext
		logger.Info("Opened SQLite store", logger.String("path", cfg.SQLitePath))
		return kv, nil
	}
}
