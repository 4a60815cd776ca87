package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: 9000}, Redis: RedisConfig{Addr: "cache:6379"}}
	ApplyDefaults(cfg)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, DefaultServerMode, cfg.Server.Mode)
	assert.Equal(t, []string{DefaultKafkaBroker}, cfg.Kafka.Brokers)
	assert.Equal(t, DefaultOpenSearchIndex, cfg.OpenSearch.Index)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

func TestRegisterDefaults_CoversEveryStructDefault(t *testing.T) {
	v := newViper()
	cfg := &Config{}
	assert.NoError(t, v.Unmarshal(cfg))
	assert.True(t, cfg.Pipeline.Filter)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 500, cfg.Neo4j.BatchSize)
}
