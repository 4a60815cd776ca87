package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
log:
  level: debug
  format: console
server:
  port: 9090
  mode: test
  read_timeout: 5s
pipeline:
  filter: false
  compartmentalization: true
  default_sort_key: name
  default_sort_order: asc
  curation_path: /etc/metaboscope/curation.yaml
redis:
  enabled: true
  addr: redis:6379
  session_ttl: 2h
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
opensearch:
  index: entities-test
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.False(t, cfg.Pipeline.Filter)
	assert.True(t, cfg.Pipeline.Compartmentalization)
	assert.Equal(t, "name", cfg.Pipeline.DefaultSortKey)
	assert.Equal(t, "/etc/metaboscope/curation.yaml", cfg.Pipeline.CurationPath)
	assert.Equal(t, 2*time.Hour, cfg.Redis.SessionTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "entities-test", cfg.OpenSearch.Index)
	assert.Equal(t, DefaultDBName, cfg.Database.DBName)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("METABO_SERVER_PORT", "7070")
	t.Setenv("METABO_REDIS_ADDR", "other:6379")

	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "other:6379", cfg.Redis.Addr)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("METABO_NEO4J_ENABLED", "true")
	t.Setenv("METABO_NEO4J_URI", "neo4j://graph:7687")
	t.Setenv("METABO_PIPELINE_FILTER", "false")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Neo4j.Enabled)
	assert.Equal(t, "neo4j://graph:7687", cfg.Neo4j.URI)
	assert.False(t, cfg.Pipeline.Filter)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = Load(createTempConfigFile(t, "server:\n  mode: prod\n"))
	assert.ErrorContains(t, err, "server.mode")

	_, err = Load(createTempConfigFile(t, "server: [unclosed"))
	assert.Error(t, err)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "missing.yaml")) })
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	var (
		mu     sync.Mutex
		latest *Config
	)
	require.NoError(t, Watch(path, func(c *Config) {
		mu.Lock()
		latest = c
		mu.Unlock()
	}, nil))

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o644))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return latest != nil && latest.Log.Level == "warn"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatch_MissingFile(t *testing.T) {
	assert.Error(t, Watch(filepath.Join(t.TempDir(), "missing.yaml"), func(*Config) {}, nil))
}
