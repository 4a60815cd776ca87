package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/opensearch-project/opensearch-go/v3"
	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"

	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MetaboScope/pkg/errors"
)

var (
	ErrInvalidConfig    = errors.New(errors.ErrCodeValidation, "invalid opensearch configuration")
	ErrConnectionFailed = errors.New(errors.ErrCodeServiceUnavailable, "opensearch connection failed")
)

// ClientConfig holds the connection settings for the search cluster.
type ClientConfig struct {
	Addresses           []string
	Username            string
	Password            string
	TLSEnabled          bool
	TLSInsecure         bool
	MaxRetries          int
	RetryBackoff        time.Duration
	RequestTimeout      time.Duration
	MaxIdleConnsPerHost int
	HealthCheckInterval time.Duration
}

// searchAPI is the subset of the cluster API the indexer and searcher use.
type searchAPI interface {
	Ping(ctx context.Context) error
	IndexExists(ctx context.Context, index string) (bool, error)
	CreateIndex(ctx context.Context, index string, body []byte) error
	DeleteIndex(ctx context.Context, index string) error
	Bulk(ctx context.Context, body []byte, refresh string) (*opensearchapi.BulkResp, error)
	Search(ctx context.Context, index string, body []byte) (*opensearchapi.SearchResp, error)
}

type apiAdapter struct {
	client *opensearchapi.Client
}

func (a apiAdapter) Ping(ctx context.Context) error {
	resp, err := a.client.Ping(ctx, nil)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return errors.Newf(errors.ErrCodeServiceUnavailable, "ping returned status %d", resp.StatusCode)
	}
	return nil
}

func (a apiAdapter) IndexExists(ctx context.Context, index string) (bool, error) {
	resp, err := a.client.Indices.Exists(ctx, opensearchapi.IndicesExistsReq{Indices: []string{index}})
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return resp.StatusCode == http.StatusOK, nil
}

func (a apiAdapter) CreateIndex(ctx context.Context, index string, body []byte) error {
	_, err := a.client.Indices.Create(ctx, opensearchapi.IndicesCreateReq{Index: index, Body: bytes.NewReader(body)})
	return err
}

func (a apiAdapter) DeleteIndex(ctx context.Context, index string) error {
	_, err := a.client.Indices.Delete(ctx, opensearchapi.IndicesDeleteReq{Indices: []string{index}})
	return err
}

func (a apiAdapter) Bulk(ctx context.Context, body []byte, refresh string) (*opensearchapi.BulkResp, error) {
	return a.client.Bulk(ctx, opensearchapi.BulkReq{
		Body:   bytes.NewReader(body),
		Params: opensearchapi.BulkParams{Refresh: refresh},
	})
}

func (a apiAdapter) Search(ctx context.Context, index string, body []byte) (*opensearchapi.SearchResp, error) {
	return a.client.Search(ctx, &opensearchapi.SearchReq{Indices: []string{index}, Body: bytes.NewReader(body)})
}

// Client holds the cluster connection and tracks its health in the
// background.
type Client struct {
	api     searchAPI
	config  ClientConfig
	logger  logging.Logger
	healthy atomic.Bool
	cancel  context.CancelFunc
}

// NewClient connects to the cluster and starts the health check loop.
func NewClient(cfg ClientConfig, logger logging.Logger) (*Client, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	applyClientDefaults(&cfg)

	transport := &http.Transport{MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost}
	if cfg.TLSEnabled {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: cfg.TLSInsecure, MinVersion: tls.VersionTLS12}
	}

	backoff := cfg.RetryBackoff
	api, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{
			Addresses:     cfg.Addresses,
			Username:      cfg.Username,
			Password:      cfg.Password,
			MaxRetries:    cfg.MaxRetries,
			RetryBackoff:  func(int) time.Duration { return backoff },
			RetryOnStatus: []int{429, 502, 503, 504},
			Transport:     transport,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create opensearch client")
	}

	c := newClientWithAPI(apiAdapter{client: api}, cfg, logger)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		return nil, ErrConnectionFailed.WithCause(err)
	}

	hcCtx, hcCancel := context.WithCancel(context.Background())
	c.cancel = hcCancel
	go c.runHealthCheck(hcCtx)

	c.logger.Info("opensearch client connected", logging.Strings("addresses", cfg.Addresses))
	return c, nil
}

func newClientWithAPI(api searchAPI, cfg ClientConfig, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	applyClientDefaults(&cfg)
	return &Client{api: api, config: cfg, logger: logger}
}

func applyClientDefaults(cfg *ClientConfig) {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxIdleConnsPerHost == 0 {
		cfg.MaxIdleConnsPerHost = 10
	}
	if cfg.HealthCheckInterval == 0 {
		cfg.HealthCheckInterval = 30 * time.Second
	}
}

// Ping checks the cluster and records the result for IsHealthy.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.api.Ping(ctx); err != nil {
		c.healthy.Store(false)
		c.logger.Warn("opensearch ping failed", logging.Err(err))
		return err
	}
	c.healthy.Store(true)
	return nil
}

func (c *Client) IsHealthy() bool {
	return c.healthy.Load()
}

func (c *Client) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.logger.Info("opensearch client closed")
	return nil
}

func (c *Client) runHealthCheck(ctx context.Context) {
	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkHealth(ctx)
		}
	}
}

// checkHealth pings once and logs transitions.
func (c *Client) checkHealth(ctx context.Context) {
	prev := c.healthy.Load()
	err := c.Ping(ctx)
	curr := c.healthy.Load()
	switch {
	case prev && !curr:
		c.logger.Error("opensearch cluster became unhealthy", logging.Err(err))
	case !prev && curr:
		c.logger.Info("opensearch cluster recovered")
	}
}

func ValidateConfig(cfg ClientConfig) error {
	if len(cfg.Addresses) == 0 {
		return ErrInvalidConfig.WithDetail("addresses required")
	}
	if cfg.MaxRetries < 0 {
		return errors.New(errors.ErrCodeValidation, "max retries must be >= 0")
	}
	if cfg.RequestTimeout < 0 {
		return errors.New(errors.ErrCodeValidation, "request timeout must be >= 0")
	}
	return nil
}
