package cli

import (
	"context"
	"time"

	"github.com/turtacn/MetaboScope/internal/config"
	"github.com/turtacn/MetaboScope/internal/infrastructure/database/neo4j"
	"github.com/turtacn/MetaboScope/internal/infrastructure/database/postgres"
	"github.com/turtacn/MetaboScope/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/MetaboScope/internal/infrastructure/database/redis"
	"github.com/turtacn/MetaboScope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MetaboScope/internal/infrastructure/search/opensearch"
	"github.com/turtacn/MetaboScope/internal/infrastructure/storage/minio"
	"github.com/turtacn/MetaboScope/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Config mapping
// ─────────────────────────────────────────────────────────────────────────────

func postgresConfig(c config.DatabaseConfig) postgres.PostgresConfig {
	return postgres.PostgresConfig{
		Host:            c.Host,
		Port:            c.Port,
		Database:        c.DBName,
		Username:        c.User,
		Password:        c.Password,
		SSLMode:         c.SSLMode,
		MaxConns:        int32(c.MaxConns),
		MinConns:        int32(c.MinConns),
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
	}
}

func redisConfig(c config.RedisConfig) *redis.RedisConfig {
	return &redis.RedisConfig{
		Mode:     c.Mode,
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
		PoolSize: c.PoolSize,
	}
}

func neo4jConfig(c config.Neo4jConfig) neo4j.Neo4jConfig {
	return neo4j.Neo4jConfig{
		URI:                          c.URI,
		Username:                     c.User,
		Password:                     c.Password,
		Database:                     c.Database,
		MaxConnectionPoolSize:        c.MaxConnectionPoolSize,
		ConnectionAcquisitionTimeout: c.ConnectionTimeout,
	}
}

func minioConfig(c config.MinIOConfig) *minio.MinIOConfig {
	return &minio.MinIOConfig{
		Endpoint:         c.Endpoint,
		AccessKeyID:      c.AccessKey,
		SecretAccessKey:  c.SecretKey,
		UseSSL:           c.UseSSL,
		Region:           c.Region,
		Bucket:           c.Bucket,
		ExportExpiryDays: c.ExportExpiryDays,
	}
}

func producerConfig(c config.KafkaConfig) kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:    c.Brokers,
		ClientID:   c.ClientID,
		MaxRetries: c.ProducerRetries,
	}
}

func consumerConfig(c config.KafkaConfig, topics []string) kafka.ConsumerConfig {
	return kafka.ConsumerConfig{
		Brokers:         c.Brokers,
		GroupID:         c.GroupID,
		Topics:          topics,
		AutoOffsetReset: c.AutoOffsetReset,
		Retry:           kafka.RetryConfig{DeadLetterTopic: kafka.DeadLetterTopic(c.TopicPrefix)},
	}
}

func openSearchConfig(c config.OpenSearchConfig) opensearch.ClientConfig {
	return opensearch.ClientConfig{
		Addresses:   c.Addresses,
		Username:    c.User,
		Password:    c.Password,
		TLSInsecure: c.InsecureSkipVerify,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Backends
// ─────────────────────────────────────────────────────────────────────────────

// backends holds the optional infrastructure a command connected to. A nil
// field means the section is disabled.
type backends struct {
	cfg    *config.Config
	logger logging.Logger

	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics

	Postgres  *postgres.Connection
	Snapshots *repositories.SnapshotRepository
	Redis     *redis.Client
	Sessions  *redis.SessionStore
	Locker    *redis.SessionLocker
	Neo4j     *neo4j.Driver
	Graph     *neo4j.GraphStore
	MinIO     *minio.MinIOClient
	Archive   *minio.ModelArchive
	Producer  *kafka.Producer
	Publisher *kafka.EventPublisher
	Search    *opensearch.Client
	Indexer   *opensearch.Indexer
	Searcher  *opensearch.Searcher

	closers []func() error
}

func newBackends(cfg *config.Config, logger logging.Logger) *backends {
	return &backends{cfg: cfg, logger: logger}
}

func (b *backends) onClose(fn func() error) {
	b.closers = append(b.closers, fn)
}

// Close releases everything in reverse order of opening.
func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			b.logger.Warn("failed to close backend", logging.Err(err))
		}
	}
	b.closers = nil
}

func disabled(section string) error {
	return errors.New(errors.ErrCodeFeatureDisabled, section+" is not enabled in the configuration")
}

// openMetrics creates the Prometheus registry. Disabled metrics yield nil.
func (b *backends) openMetrics() error {
	if !b.cfg.Metrics.Enabled || b.Metrics != nil {
		return nil
	}
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            b.cfg.Metrics.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, b.logger)
	if err != nil {
		return err
	}
	b.Collector = collector
	b.Metrics = prometheus.NewAppMetrics(collector)
	return nil
}

func (b *backends) openPostgres(ctx context.Context) error {
	if !b.cfg.Database.Enabled {
		return disabled("database")
	}
	conn, err := postgres.NewConnection(ctx, postgresConfig(b.cfg.Database), b.logger)
	if err != nil {
		return err
	}
	b.onClose(conn.Close)
	b.Postgres = conn
	b.Snapshots = repositories.NewSnapshotRepository(conn, b.logger)
	if b.Metrics != nil {
		b.Snapshots.WithMetrics(b.Metrics)
	}
	return nil
}

func (b *backends) openRedis() error {
	if !b.cfg.Redis.Enabled {
		return disabled("redis")
	}
	client, err := redis.NewClient(redisConfig(b.cfg.Redis), b.logger)
	if err != nil {
		return err
	}
	b.onClose(client.Close)
	b.Redis = client
	cache := redis.NewRedisCache(client, b.logger, redis.WithPrefix(b.cfg.Redis.KeyPrefix))
	b.Sessions = redis.NewSessionStore(cache, b.cfg.Redis.SessionTTL, b.logger)
	if b.Metrics != nil {
		b.Sessions.WithMetrics(b.Metrics)
	}
	b.Locker = redis.NewSessionLocker(client, b.logger)
	return nil
}

func (b *backends) openNeo4j(ctx context.Context) error {
	if !b.cfg.Neo4j.Enabled {
		return disabled("neo4j")
	}
	driver, err := neo4j.NewDriver(neo4jConfig(b.cfg.Neo4j), b.logger)
	if err != nil {
		return err
	}
	b.onClose(driver.Close)
	b.Neo4j = driver

	opts := []neo4j.GraphOption{neo4j.WithBatchSize(b.cfg.Neo4j.BatchSize)}
	if b.Metrics != nil {
		opts = append(opts, neo4j.WithGraphMetrics(b.Metrics))
	}
	b.Graph = neo4j.NewGraphStore(driver, b.logger, opts...)
	return b.Graph.EnsureSchema(ctx)
}

func (b *backends) openMinIO() error {
	if !b.cfg.MinIO.Enabled {
		return disabled("minio")
	}
	client, err := minio.NewMinIOClient(minioConfig(b.cfg.MinIO), b.logger)
	if err != nil {
		return err
	}
	b.MinIO = client
	b.Archive = minio.NewModelArchive(client, b.logger)
	return nil
}

func (b *backends) openKafka(ctx context.Context) error {
	if !b.cfg.Kafka.Enabled {
		return disabled("kafka")
	}
	if b.cfg.Kafka.AutoCreateTopics {
		if err := b.ensureTopics(ctx); err != nil {
			return err
		}
	}
	producer, err := kafka.NewProducer(producerConfig(b.cfg.Kafka), b.logger)
	if err != nil {
		return err
	}
	b.onClose(producer.Close)
	b.Producer = producer
	b.Publisher = kafka.NewEventPublisher(producer, b.cfg.Kafka.TopicPrefix, b.logger)
	if b.Metrics != nil {
		b.Publisher.WithMetrics(b.Metrics)
	}
	return nil
}

func (b *backends) ensureTopics(ctx context.Context) error {
	tm, err := kafka.NewTopicManager(b.cfg.Kafka.Brokers, b.logger)
	if err != nil {
		return err
	}
	defer tm.Close()
	return tm.EnsureEventTopics(ctx, b.cfg.Kafka.TopicPrefix, b.cfg.Kafka.NumPartitions, b.cfg.Kafka.ReplicationFactor)
}

func (b *backends) openSearch(ctx context.Context) error {
	if !b.cfg.OpenSearch.Enabled {
		return disabled("opensearch")
	}
	client, err := opensearch.NewClient(openSearchConfig(b.cfg.OpenSearch), b.logger)
	if err != nil {
		return err
	}
	b.onClose(client.Close)
	b.Search = client
	b.Indexer = opensearch.NewIndexer(client, opensearch.IndexerConfig{
		Index:     b.cfg.OpenSearch.Index,
		BatchSize: b.cfg.OpenSearch.BulkBatchSize,
	}, b.logger)
	if b.Metrics != nil {
		b.Indexer.WithMetrics(b.Metrics)
	}
	b.Searcher = opensearch.NewSearcher(client, b.cfg.OpenSearch.Index, b.logger)
	return b.Indexer.EnsureIndex(ctx)
}

// openEnabled connects every enabled section. Used by serve.
func (b *backends) openEnabled(ctx context.Context) error {
	if err := b.openMetrics(); err != nil {
		return err
	}
	steps := []struct {
		enabled bool
		open    func() error
	}{
		{b.cfg.Database.Enabled, func() error { return b.openPostgres(ctx) }},
		{b.cfg.Redis.Enabled, b.openRedis},
		{b.cfg.Neo4j.Enabled, func() error { return b.openNeo4j(ctx) }},
		{b.cfg.MinIO.Enabled, b.openMinIO},
		{b.cfg.Kafka.Enabled, func() error { return b.openKafka(ctx) }},
		{b.cfg.OpenSearch.Enabled, func() error { return b.openSearch(ctx) }},
	}
	for _, s := range steps {
		if !s.enabled {
			continue
		}
		if err := s.open(); err != nil {
			b.Close()
			return err
		}
	}
	return nil
}

// pingTimeout bounds a single readiness check.
const pingTimeout = 2 * time.Second
