package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/blogsite/internal/blobstore"
	"github.com/sakif/blogsite/internal/config"
	"github.com/sakif/blogsite/internal/events"
	"github.com/sakif/blogsite/internal/repository"
	"github.com/sakif/blogsite/internal/repository/migrations"
	"github.com/sakif/blogsite/internal/repository/postgres"
	"github.com/sakif/blogsite/internal/repository/sqlite"
)

// migratedStore is what both database backends provide.
type migratedStore interface {
	repository.Store
	MigrationStatus() (migrations.Status, error)
}

var (
	_ migratedStore = (*sqlite.DB)(nil)
	_ migratedStore = (*postgres.DB)(nil)
)

// openStore connects to the configured database. Both backends apply
// pending migrations while opening.
func openStore(ctx context.Context, cfg *config.Config) (migratedStore, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err := sqlite.New(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.DatabaseURL, postgres.Options{MaxConns: cfg.DBMaxConns})
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

func openBlobs(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	switch cfg.BlobDriver {
	case config.BlobGCS:
		gcs, err := blobstore.NewGCS(ctx, cfg.BlobBucket)
		if err != nil {
			return nil, err
		}
		return gcs, nil
	case config.BlobLocal:
		local, err := blobstore.NewLocal(cfg.BlobDir, cfg.PublicBaseURL)
		if err != nil {
			return nil, err
		}
		return local, nil
	default:
		return nil, fmt.Errorf("unknown BLOB_DRIVER %q", cfg.BlobDriver)
	}
}

// openPublisher returns a Kafka publisher when brokers are configured and
// a no-op publisher otherwise.
func openPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	if !cfg.KafkaEnabled() {
		logger.Info("event publishing disabled (KAFKA_BROKERS not set)")
		return events.Nop{}, nil
	}
	k, err := events.NewKafka(events.KafkaConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaTopic,
		WriteTimeout: cfg.KafkaWriteTimeout,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("publishing events to kafka",
		slog.Any("brokers", cfg.KafkaBrokers),
		slog.String("topic", cfg.KafkaTopic),
	)
	return k, nil
}
