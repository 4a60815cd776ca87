package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MetaboScope/internal/infrastructure/search/opensearch"
	"github.com/turtacn/MetaboScope/pkg/errors"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// EntityIndexer pushes a cleaned model into the full-text index.
type EntityIndexer interface {
	IndexModel(ctx context.Context, sessionID string, model metabolic.Model) (*opensearch.BulkResult, error)
}

// EntitySearcher queries the full-text index.
type EntitySearcher interface {
	Search(ctx context.Context, q opensearch.SearchQuery) (*opensearch.SearchResult, error)
}

var (
	_ EntityIndexer  = (*opensearch.Indexer)(nil)
	_ EntitySearcher = (*opensearch.Searcher)(nil)
)

type SearchHandler struct {
	sessions SessionService
	indexer  EntityIndexer
	searcher EntitySearcher
	logger   logging.Logger
}

func NewSearchHandler(sessions SessionService, indexer EntityIndexer, searcher EntitySearcher, logger logging.Logger) *SearchHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SearchHandler{sessions: sessions, indexer: indexer, searcher: searcher, logger: logger}
}

type searchHitView struct {
	opensearch.EntityDocument
	Score float64 `json:"score"`
}

// Index handles POST /sessions/:id/index.
func (h *SearchHandler) Index(c *gin.Context) {
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
	res, err := h.indexer.IndexModel(c.Request.Context(), id, st.Model)
	if err != nil {
		respondAppError(c, err)
		return
	}
	if res.Failed > 0 {
		h.logger.Warn("some documents were not indexed",
			logging.String("session_id", id),
			logging.Int("failed", res.Failed))
	}
	RespondOK(c, gin.H{"indexed": res.Succeeded, "failed": res.Failed})
}

// Search handles GET /sessions/:id/search.
func (h *SearchHandler) Search(c *gin.Context) {
	q := opensearch.SearchQuery{
		SessionID:    c.Param("id"),
		Entity:       metabolic.Entity(c.Query("entity")),
		Text:         c.Query("q"),
		Compartments: c.QueryArray("compartment"),
		Processes:    c.QueryArray("process"),
		References:   c.QueryArray("reference"),
		Size:         queryInt(c, "size", 0),
	}
	if q.Entity != "" && q.Entity != metabolic.EntityMetabolites && q.Entity != metabolic.EntityReactions {
		respondAppError(c, errors.InvalidParam("unknown entity "+string(q.Entity)))
		return
	}
	if v := c.Query("from"); v != "" {
		from, err := strconv.Atoi(v)
		if err != nil || from < 0 {
			respondAppError(c, errors.InvalidParam("from must be a non-negative integer"))
			return
		}
		q.From = from
	}

	res, err := h.searcher.Search(c.Request.Context(), q)
	if err != nil {
		respondAppError(c, err)
		return
	}
	hits := make([]searchHitView, 0, len(res.Hits))
	for _, hit := range res.Hits {
		hits = append(hits, searchHitView{EntityDocument: hit.Document, Score: hit.Score})
	}
	RespondOK(c, gin.H{"total": res.Total, "hits": hits})
}
