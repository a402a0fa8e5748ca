package evolution

import (
	"context"
	"time"

	"github.com/turtacn/ReactEA/internal/config"
	"github.com/turtacn/ReactEA/internal/infrastructure/database/neo4j"
	"github.com/turtacn/ReactEA/internal/infrastructure/database/postgres"
	"github.com/turtacn/ReactEA/internal/infrastructure/database/redis"
	"github.com/turtacn/ReactEA/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ReactEA/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ReactEA/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ReactEA/internal/infrastructure/storage/minio"
	"github.com/turtacn/ReactEA/internal/intelligence/rdkit"
)

const shutdownTimeout = 10 * time.Second

// HealthCheck probes one backend.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Assembly is a Service together with the connections opened for it.
type Assembly struct {
	Service *Service
	// Checks probes every connected backend, for readiness endpoints.
	Checks []HealthCheck

	logger  logging.Logger
	closers []func(context.Context) error
}

// Close releases every connection in reverse order of creation.
func (a *Assembly) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("shutdown failed", logging.Err(err))
		}
	}
	a.closers = nil
}

func (a *Assembly) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

func (a *Assembly) probe(name string, fn func(context.Context) error) {
	a.Checks = append(a.Checks, HealthCheck{Name: name, Check: fn})
}

// Assemble connects the backends enabled in cfg and builds the Service.
// metrics may be nil. On error everything opened so far is released.
func Assemble(ctx context.Context, cfg *config.Config, logger logging.Logger, metrics *prometheus.EvolutionMetrics, extra ...Option) (_ *Assembly, err error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	a := &Assembly{logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var opts []Option
	if metrics != nil {
		opts = append(opts, WithMetrics(metrics))
	}

	if cfg.Reactor.Kind == "rdkit" {
		client, err := rdkit.NewClient(rdkit.Config{Endpoint: cfg.Reactor.Endpoint, Timeout: cfg.Reactor.Timeout}, logger)
		if err != nil {
			return nil, err
		}
		if err := client.Health(ctx); err != nil {
			return nil, err
		}
		a.probe("rdkit", client.Health)
		opts = append(opts, WithReactor(client, "rdkit"), WithStandardizer(client))
	}

	if cfg.Reactor.Cache {
		client, err := redis.NewClient(redis.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { return client.Close() })
		a.probe("redis", client.Ping)
		cache := redis.NewRedisCache(client, logger,
			redis.WithPrefix(cfg.Redis.KeyPrefix),
			redis.WithDefaultTTL(cfg.Reactor.CacheTTL))
		opts = append(opts, WithReactionCache(cache, cfg.Reactor.CacheTTL))
	}

	if cfg.Kafka.Enabled {
		security := kafka.SecurityFromConfig(cfg.Kafka)
		if cfg.Kafka.EnsureTopic {
			tm, err := kafka.NewTopicManager(cfg.Kafka.Brokers, security, logger)
			if err != nil {
				return nil, err
			}
			err = tm.EnsureTopics(ctx, kafka.TransformationTopic(cfg.Kafka.Topic, cfg.Kafka.Partitions, cfg.Kafka.Replication))
			_ = tm.Close()
			if err != nil {
				return nil, err
			}
		}
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:          cfg.Kafka.Brokers,
			Acks:             "all",
			BatchSize:        cfg.Kafka.BatchSize,
			BatchTimeout:     cfg.Kafka.BatchTimeout,
			CompressionCodec: cfg.Kafka.Compression,
			Security:         security,
		}, logger)
		if err != nil {
			return nil, err
		}
		var rec kafka.PublishRecorder
		if metrics != nil {
			rec = metrics
		}
		pub := kafka.NewTransformationPublisher(producer, kafka.PublisherConfig{
			Topic:        cfg.Kafka.Topic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			Buffer:       cfg.Kafka.Buffer,
		}, rec, logger)
		a.onClose(func(context.Context) error { return pub.Close() })
		opts = append(opts, WithTransformationLogger(pub))
	}

	if cfg.Database.Enabled {
		if cfg.Database.AutoMigrate {
			if err := postgres.RunMigrations(postgres.BuildConnString(cfg.Database)); err != nil {
				return nil, err
			}
		}
		pool, err := postgres.NewConnectionPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { postgres.Close(pool); return nil })
		a.probe("postgres", pool.Ping)
		opts = append(opts, WithRunRecorder(postgres.NewRunStore(pool, logger)))
	}

	if cfg.Neo4j.Enabled {
		driver, err := neo4j.NewDriver(ctx, cfg.Neo4j, logger)
		if err != nil {
			return nil, err
		}
		a.onClose(driver.Close)
		a.probe("neo4j", driver.HealthCheck)
		repo := neo4j.NewLineageRepository(driver, logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		opts = append(opts, WithLineageWriter(repo))
	}

	if cfg.MinIO.Enabled {
		client, err := minio.NewMinIOClient(ctx, &minio.MinIOConfig{
			Endpoint:        cfg.MinIO.Endpoint,
			AccessKeyID:     cfg.MinIO.AccessKey,
			SecretAccessKey: cfg.MinIO.SecretKey,
			UseSSL:          cfg.MinIO.UseSSL,
			Region:          cfg.MinIO.Region,
			Bucket:          cfg.MinIO.Bucket,
			Prefix:          cfg.MinIO.Prefix,
			RetentionDays:   cfg.MinIO.RetentionDays,
		}, logger)
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { return client.Close() })
		a.probe("minio", func(ctx context.Context) error {
			_, err := client.HealthCheck(ctx)
			return err
		})
		opts = append(opts, WithArtifactUploader(minio.NewArtifactRepository(client, logger)))
	}

	svc, err := NewService(cfg, logger, append(opts, extra...)...)
	if err != nil {
		return nil, err
	}
	a.Service = svc
	return a, nil
}
