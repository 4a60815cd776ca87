package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MetaboScope/internal/domain/network"
	"github.com/turtacn/MetaboScope/internal/infrastructure/database/neo4j"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MetaboScope/pkg/errors"
)

// GraphExporter mirrors session networks into a graph database.
type GraphExporter interface {
	Export(ctx context.Context, graphID string, net network.Network) (neo4j.ExportStats, error)
	Ego(ctx context.Context, graphID, center string, depth int, dir network.Direction) (network.Network, error)
}

var _ GraphExporter = (*neo4j.GraphStore)(nil)

type GraphHandler struct {
	sessions SessionService
	graph    GraphExporter
	logger   logging.Logger
}

func NewGraphHandler(sessions SessionService, graph GraphExporter, logger logging.Logger) *GraphHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &GraphHandler{sessions: sessions, graph: graph, logger: logger}
}

// Export handles POST /sessions/:id/graph. The current network of the
// session replaces whatever was exported under its id before.
func (h *GraphHandler) Export(c *gin.Context) {
	id := c.Param("id")
	st, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		respondAppError(c, err)
		return
	}
	if !st.Loaded() {
		respondAppError(c, errors.New(errors.ErrCodeModelNotLoaded, "session has no model loaded"))
		return
	}
	stats, err := h.graph.Export(c.Request.Context(), id, st.Network)
	if err != nil {
		respondAppError(c, err)
		return
	}
	h.logger.Info("network exported",
		logging.String("session_id", id),
		logging.Int("links", stats.Links),
		logging.Duration("duration", stats.Duration))
	RespondOK(c, stats)
}

// Ego handles GET /sessions/:id/graph/ego?center=&depth=&direction=.
func (h *GraphHandler) Ego(c *gin.Context) {
	center := c.Query("center")
	if center == "" {
		respondAppError(c, errors.InvalidParam("center is required"))
		return
	}
	dir := network.Direction(c.DefaultQuery("direction", string(network.DirectionBoth)))
	net, err := h.graph.Ego(c.Request.Context(), c.Param("id"), center, queryInt(c, "depth", 1), dir)
	if err != nil {
		respondAppError(c, err)
		return
	}
	RespondOK(c, net)
}
