package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/MetaboScope/internal/application/explorer"
	"github.com/turtacn/MetaboScope/internal/config"
	"github.com/turtacn/MetaboScope/internal/domain/cardinality"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/MetaboScope/internal/interfaces/http"
	"github.com/turtacn/MetaboScope/internal/interfaces/http/handlers"
	"github.com/turtacn/MetaboScope/internal/interfaces/http/middleware"
	"github.com/turtacn/MetaboScope/pkg/types/common"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// settingsFromConfig turns the pipeline section into the settings new
// sessions start with. The default sort applies to every summary attribute.
func settingsFromConfig(c config.PipelineConfig) explorer.Settings {
	s := explorer.Settings{
		Filter:               c.Filter,
		Compartmentalization: c.Compartmentalization,
	}
	if c.DefaultSortKey == "" {
		return s
	}
	sortBy := cardinality.Sort{Key: cardinality.SortKey(c.DefaultSortKey), Order: common.SortOrder(c.DefaultSortOrder)}
	s.Sorts = explorer.Sorts{}
	for _, e := range []metabolic.Entity{metabolic.EntityMetabolites, metabolic.EntityReactions} {
		byAttr := make(map[metabolic.Attribute]cardinality.Sort, len(metabolic.Attributes))
		for _, a := range metabolic.Attributes {
			byAttr[a] = sortBy
		}
		s.Sorts[e] = byAttr
	}
	return s
}

// buildManager wires whichever backends are connected into a session manager.
// Models loaded through it are curated with pipeline.curation_path.
func buildManager(b *backends, cfg *config.Config, logger logging.Logger) (*explorer.Manager, error) {
	changes, err := explorer.ReadCurationFile(cfg.Pipeline.CurationPath)
	if err != nil {
		return nil, err
	}
	var metrics explorer.Metrics
	if b.Metrics != nil {
		metrics = b.Metrics
	}
	svc := explorer.NewService(logger, metrics, explorer.WithCuration(changes))

	var store explorer.SessionStore = explorer.NewMemoryStore()
	opts := []explorer.ManagerOption{explorer.WithDefaults(settingsFromConfig(cfg.Pipeline))}
	if b.Metrics != nil {
		opts = append(opts, explorer.WithMetrics(b.Metrics))
	}
	if b.Sessions != nil {
		store = b.Sessions
		opts = append(opts, explorer.WithLocker(b.Locker))
	}
	if b.Snapshots != nil {
		opts = append(opts, explorer.WithSnapshots(b.Snapshots))
	}
	if b.Archive != nil {
		opts = append(opts, explorer.WithArchive(b.Archive))
	}
	if b.Publisher != nil {
		opts = append(opts, explorer.WithPublisher(b.Publisher))
	}
	return explorer.NewManager(svc, store, logger, opts...), nil
}

// healthCheckers returns one readiness check per connected backend.
func healthCheckers(b *backends) []handlers.HealthChecker {
	bounded := func(fn func(context.Context) error) func(context.Context) error {
		return func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, pingTimeout)
			defer cancel()
			return fn(ctx)
		}
	}
	var out []handlers.HealthChecker
	if b.Postgres != nil {
		out = append(out, handlers.NewChecker("postgres", bounded(b.Postgres.HealthCheck)))
	}
	if b.Redis != nil {
		out = append(out, handlers.NewChecker("redis", bounded(b.Redis.Ping)))
	}
	if b.Neo4j != nil {
		out = append(out, handlers.NewChecker("neo4j", bounded(b.Neo4j.HealthCheck)))
	}
	if b.MinIO != nil {
		out = append(out, handlers.NewChecker("minio", bounded(b.MinIO.HealthCheck)))
	}
	if b.Search != nil {
		out = append(out, handlers.NewChecker("opensearch", bounded(b.Search.Ping)))
	}
	return out
}

func buildRouter(b *backends, cfg *config.Config, manager *explorer.Manager, logger logging.Logger) *httpserver.RouterConfig {
	rc := &httpserver.RouterConfig{
		Mode:           cfg.Server.Mode,
		MaxBodySize:    cfg.Server.MaxBodySize,
		SessionHandler: handlers.NewSessionHandler(manager, logger),
		HealthHandler:  handlers.NewHealthHandler(Version, healthCheckers(b)...),
		Logging:        middleware.DefaultLoggingConfig(),
		Logger:         logger,
		Collector:      b.Collector,
		Metrics:        b.Metrics,
		MetricsPath:    cfg.Metrics.Path,
	}
	if b.Graph != nil {
		rc.GraphHandler = handlers.NewGraphHandler(manager, b.Graph, logger)
	}
	if b.Indexer != nil {
		rc.SearchHandler = handlers.NewSearchHandler(manager, b.Indexer, b.Searcher, logger)
	}
	return rc
}

// preloadModel creates a session holding the configured model and returns
// its id. The model is reloaded into the same session on every change when
// watch is set.
func preloadModel(ctx context.Context, g *errgroup.Group, manager *explorer.Manager, cfg config.PipelineConfig, logger logging.Logger) (string, error) {
	raw, err := explorer.ReadModelFile(cfg.ModelPath)
	if err != nil {
		return "", err
	}
	id, _, err := manager.Create(ctx)
	if err != nil {
		return "", err
	}
	if _, err := manager.LoadModel(ctx, id, raw); err != nil {
		return "", err
	}
	logger.Info("default session ready", logging.String("session_id", id), logging.String("path", cfg.ModelPath))

	if cfg.Watch {
		w := explorer.NewWatcher(cfg.ModelPath, func(ctx context.Context, raw metabolic.RawModel) {
			if _, err := manager.LoadModel(ctx, id, raw); err != nil {
				logger.Warn("failed to reload model", logging.String("session_id", id), logging.Err(err))
			}
		}, logger)
		g.Go(func() error { return w.Run(ctx) })
	}
	return id, nil
}

// NewServeCmd runs the HTTP session API.
func NewServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP session API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg, logger := cliCtx.Config, cliCtx.Logger
			if port > 0 {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			b := newBackends(cfg, logger)
			if err := b.openEnabled(ctx); err != nil {
				return err
			}
			defer b.Close()

			manager, err := buildManager(b, cfg, logger)
			if err != nil {
				return err
			}
			router := httpserver.NewRouter(*buildRouter(b, cfg, manager, logger))
			srv := httpserver.NewServer(cfg.Server, router, logger)

			g, gctx := errgroup.WithContext(ctx)
			if cfg.Pipeline.ModelPath != "" {
				if _, err := preloadModel(gctx, g, manager, cfg.Pipeline, logger); err != nil {
					return err
				}
			}
			if cliCtx.ConfigPath != "" {
				err := config.Watch(cliCtx.ConfigPath, func(next *config.Config) {
					manager.SetDefaults(settingsFromConfig(next.Pipeline))
					logger.Info("pipeline defaults reloaded", logging.String("path", cliCtx.ConfigPath))
				}, func(err error) {
					logger.Warn("ignoring invalid config revision", logging.Err(err))
				})
				if err != nil {
					return err
				}
			}

			g.Go(srv.Start)
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				return srv.Stop(shutdownCtx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}
