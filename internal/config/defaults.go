package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8080
	DefaultServerMode = "release"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "metaboscope"
	DefaultDBMaxConns = 10

	DefaultRedisAddr = "localhost:6379"

	DefaultNeo4jURI = "bolt://localhost:7687"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "metaboscope"

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "metaboscope-indexer"

	DefaultOpenSearchAddress = "http://localhost:9200"
	DefaultOpenSearchIndex   = "metaboscope-entities"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// defaults lists every key with its default. Registering each key with viper
// also lets METABO_* variables override keys that no file sets.
var defaults = map[string]interface{}{
	"log.level":        DefaultLogLevel,
	"log.format":       DefaultLogFormat,
	"log.output_paths": []string{"stdout"},

	"server.host":             DefaultServerHost,
	"server.port":             DefaultServerPort,
	"server.mode":             DefaultServerMode,
	"server.read_timeout":     30 * time.Second,
	"server.write_timeout":    60 * time.Second,
	"server.max_body_size":    int64(64 << 20),
	"server.shutdown_timeout": 15 * time.Second,

	"pipeline.filter":               true,
	"pipeline.compartmentalization": false,
	"pipeline.model_path":           "",
	"pipeline.curation_path":        "",
	"pipeline.watch":                false,
	"pipeline.default_sort_key":     "count",
	"pipeline.default_sort_order":   "desc",

	"database.enabled":            false,
	"database.host":               DefaultDBHost,
	"database.port":               DefaultDBPort,
	"database.user":               "metaboscope",
	"database.password":           "",
	"database.db_name":            DefaultDBName,
	"database.ssl_mode":           "disable",
	"database.max_conns":          DefaultDBMaxConns,
	"database.min_conns":          1,
	"database.conn_max_lifetime":  time.Hour,
	"database.conn_max_idle_time": 30 * time.Minute,

	"redis.enabled":     false,
	"redis.mode":        "standalone",
	"redis.addr":        DefaultRedisAddr,
	"redis.password":    "",
	"redis.db":          0,
	"redis.pool_size":   0,
	"redis.key_prefix":  "metaboscope:",
	"redis.session_ttl": 24 * time.Hour,

	"neo4j.enabled":                  false,
	"neo4j.uri":                      DefaultNeo4jURI,
	"neo4j.user":                     "neo4j",
	"neo4j.password":                 "",
	"neo4j.database":                 "neo4j",
	"neo4j.max_connection_pool_size": 50,
	"neo4j.connection_timeout":       30 * time.Second,
	"neo4j.batch_size":               500,

	"minio.enabled":            false,
	"minio.endpoint":           DefaultMinIOEndpoint,
	"minio.access_key":         "",
	"minio.secret_key":         "",
	"minio.bucket":             DefaultMinIOBucket,
	"minio.region":             "us-east-1",
	"minio.use_ssl":            false,
	"minio.export_expiry_days": 30,

	"kafka.enabled":            false,
	"kafka.brokers":            []string{DefaultKafkaBroker},
	"kafka.topic_prefix":       "metaboscope",
	"kafka.client_id":          "metaboscope",
	"kafka.group_id":           DefaultKafkaGroupID,
	"kafka.auto_offset_reset":  "earliest",
	"kafka.producer_retries":   3,
	"kafka.auto_create_topics": true,
	"kafka.num_partitions":     3,
	"kafka.replication_factor": 1,

	"opensearch.enabled":              false,
	"opensearch.addresses":            []string{DefaultOpenSearchAddress},
	"opensearch.user":                 "",
	"opensearch.password":             "",
	"opensearch.insecure_skip_verify": false,
	"opensearch.index":                DefaultOpenSearchIndex,
	"opensearch.bulk_batch_size":      500,

	"metrics.enabled":   true,
	"metrics.namespace": "metaboscope",
	"metrics.path":      "/metrics",
}

func registerDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// ApplyDefaults fills zero-valued fields of a Config built in code. Booleans
// cannot be told apart from an explicit false and are left alone.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	if cfg.Pipeline.DefaultSortKey == "" {
		cfg.Pipeline.DefaultSortKey = "count"
	}
	if cfg.Pipeline.DefaultSortOrder == "" {
		cfg.Pipeline.DefaultSortOrder = "desc"
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.SessionTTL == 0 {
		cfg.Redis.SessionTTL = 24 * time.Hour
	}

	if cfg.Neo4j.URI == "" {
		cfg.Neo4j.URI = DefaultNeo4jURI
	}

	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}

	if len(cfg.OpenSearch.Addresses) == 0 {
		cfg.OpenSearch.Addresses = []string{DefaultOpenSearchAddress}
	}
	if cfg.OpenSearch.Index == "" {
		cfg.OpenSearch.Index = DefaultOpenSearchIndex
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "metaboscope"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}
