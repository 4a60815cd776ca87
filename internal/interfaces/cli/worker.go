package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/MetaboScope/internal/application/explorer"
	"github.com/turtacn/MetaboScope/internal/config"
	"github.com/turtacn/MetaboScope/internal/domain/network"
	"github.com/turtacn/MetaboScope/internal/infrastructure/database/neo4j"
	"github.com/turtacn/MetaboScope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MetaboScope/internal/infrastructure/search/opensearch"
	httpserver "github.com/turtacn/MetaboScope/internal/interfaces/http"
	"github.com/turtacn/MetaboScope/internal/interfaces/http/handlers"
	"github.com/turtacn/MetaboScope/internal/interfaces/http/middleware"
	"github.com/turtacn/MetaboScope/pkg/errors"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

const defaultHandlerTimeout = 5 * time.Minute

type snapshotSource interface {
	Get(ctx context.Context, id string) (*explorer.SnapshotRecord, error)
}

type snapshotArchiver interface {
	PutSnapshot(ctx context.Context, rec *explorer.SnapshotRecord) (string, error)
}

type modelIndexer interface {
	IndexModel(ctx context.Context, sessionID string, model metabolic.Model) (*opensearch.BulkResult, error)
}

type networkExporter interface {
	Export(ctx context.Context, graphID string, net network.Network) (neo4j.ExportStats, error)
}

// snapshotWorker fans every saved snapshot out to the configured sinks: the
// object archive, the entity index and the graph database. Nil sinks are
// skipped.
type snapshotWorker struct {
	source  snapshotSource
	service explorer.Service
	archive snapshotArchiver
	indexer modelIndexer
	graph   networkExporter
	timeout time.Duration
	logger  logging.Logger
}

// Handle processes one snapshot.saved envelope. Other event types are
// acknowledged without work.
func (w *snapshotWorker) Handle(ctx context.Context, msg *kafka.Message) error {
	env, err := kafka.MessageToEventEnvelope(msg)
	if err != nil {
		return err
	}
	if env.EventType != string(explorer.EventSnapshotSaved) {
		return nil
	}
	var payload explorer.SnapshotSavedPayload
	if err := env.DecodePayload(&payload); err != nil {
		return err
	}
	if payload.SnapshotID == "" {
		return errors.New(errors.ErrCodeValidation, "snapshot.saved event without snapshot id")
	}

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	start := time.Now()

	rec, err := w.source.Get(ctx, payload.SnapshotID)
	if err != nil {
		return err
	}
	st, err := w.service.Restore(rec.Snapshot)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if w.archive != nil {
		g.Go(func() error {
			_, err := w.archive.PutSnapshot(gctx, rec)
			return err
		})
	}
	if w.indexer != nil {
		g.Go(func() error {
			res, err := w.indexer.IndexModel(gctx, rec.SessionID, st.Model)
			if err == nil && res.Failed > 0 {
				w.logger.Warn("some entities were not indexed",
					logging.String("snapshot_id", rec.ID), logging.Int("failed", res.Failed))
			}
			return err
		})
	}
	if w.graph != nil {
		g.Go(func() error {
			_, err := w.graph.Export(gctx, rec.ID, st.Network)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	w.logger.Info("snapshot processed",
		logging.String("snapshot_id", rec.ID),
		logging.String("session_id", rec.SessionID),
		logging.Duration("duration", time.Since(start)))
	return nil
}

// openOptional connects a section when it is enabled and ignores it
// otherwise.
func openOptional(enabled bool, open func() error) error {
	if !enabled {
		return nil
	}
	return open()
}

// NewWorkerCmd consumes snapshot events and propagates every saved snapshot
// to MinIO, OpenSearch and Neo4j.
func NewWorkerCmd() *cobra.Command {
	var healthPort int
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Archive, index and export saved snapshots from the event stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg, logger := cliCtx.Config, cliCtx.Logger.Named("worker")
			if !cfg.Kafka.Enabled {
				return disabled("kafka")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			b := newBackends(cfg, logger)
			defer b.Close()
			if err := b.openMetrics(); err != nil {
				return err
			}
			if err := b.openPostgres(ctx); err != nil {
				return err
			}
			for _, step := range []struct {
				enabled bool
				open    func() error
			}{
				{cfg.MinIO.Enabled, b.openMinIO},
				{cfg.OpenSearch.Enabled, func() error { return b.openSearch(ctx) }},
				{cfg.Neo4j.Enabled, func() error { return b.openNeo4j(ctx) }},
			} {
				if err := openOptional(step.enabled, step.open); err != nil {
					return err
				}
			}

			var metrics explorer.Metrics
			if b.Metrics != nil {
				metrics = b.Metrics
			}
			w := &snapshotWorker{
				source:  b.Snapshots,
				service: explorer.NewService(logger, metrics),
				timeout: timeout,
				logger:  logger,
			}
			if b.Archive != nil {
				w.archive = b.Archive
			}
			if b.Indexer != nil {
				w.indexer = b.Indexer
			}
			if b.Graph != nil {
				w.graph = b.Graph
			}

			topic := kafka.TopicName(cfg.Kafka.TopicPrefix, explorer.EventSnapshotSaved)
			consumer, err := kafka.NewConsumer(consumerConfig(cfg.Kafka, []string{topic}), logger)
			if err != nil {
				return err
			}
			defer consumer.Close()
			consumer.Subscribe(topic, w.Handle)

			g, gctx := errgroup.WithContext(ctx)
			if healthPort > 0 {
				srv := httpserver.NewServer(config.ServerConfig{
					Host:            cfg.Server.Host,
					Port:            healthPort,
					ShutdownTimeout: cfg.Server.ShutdownTimeout,
				}, httpserver.NewRouter(httpserver.RouterConfig{
					Mode:          "release",
					HealthHandler: handlers.NewHealthHandler(Version, healthCheckers(b)...),
					Logging:       middleware.DefaultLoggingConfig(),
					Logger:        logger,
					Collector:     b.Collector,
					MetricsPath:   cfg.Metrics.Path,
				}), logger)
				g.Go(srv.Start)
				g.Go(func() error {
					<-gctx.Done()
					return srv.Stop(context.Background())
				})
			}
			if err := consumer.Start(gctx); err != nil {
				return err
			}
			logger.Info("worker started", logging.String("topic", topic))
			<-gctx.Done()
			err = g.Wait()
			logger.Info("worker stopped",
				logging.Int64("processed", consumer.Processed()),
				logging.Int64("failed", consumer.Failed()),
				logging.Int64("dead_lettered", consumer.DeadLettered()))
			return err
		},
	}
	cmd.Flags().IntVar(&healthPort, "health-port", 8081, "port of the /healthz, /readyz and metrics endpoints (0 disables)")
	cmd.Flags().DurationVar(&timeout, "handler-timeout", defaultHandlerTimeout, "time limit for processing one snapshot")
	return cmd
}
