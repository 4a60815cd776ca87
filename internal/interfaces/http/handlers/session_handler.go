package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MetaboScope/internal/application/explorer"
	"github.com/turtacn/MetaboScope/internal/domain/cardinality"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MetaboScope/pkg/types/common"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// SessionService is the part of the explorer manager the HTTP API drives.
type SessionService interface {
	Create(ctx context.Context) (string, explorer.State, error)
	Get(ctx context.Context, sessionID string) (explorer.State, error)
	Delete(ctx context.Context, sessionID string) error
	LoadModel(ctx context.Context, sessionID string, raw metabolic.RawModel) (explorer.State, error)
	ToggleSelection(ctx context.Context, sessionID string, sel metabolic.Selection) (explorer.State, error)
	SetFilter(ctx context.Context, sessionID string, enabled bool) (explorer.State, error)
	SetCompartmentalization(ctx context.Context, sessionID string, enabled bool) (explorer.State, error)
	ToggleSimplification(ctx context.Context, sessionID string, entity metabolic.Entity, id, compartment string) (explorer.State, error)
	SetSearch(ctx context.Context, sessionID string, entity metabolic.Entity, attr metabolic.Attribute, query string) (explorer.State, error)
	SetSort(ctx context.Context, sessionID string, entity metabolic.Entity, attr metabolic.Attribute, sortBy cardinality.Sort) (explorer.State, error)
	SaveSnapshot(ctx context.Context, sessionID, name string) (*explorer.SnapshotRecord, error)
	RestoreSnapshot(ctx context.Context, sessionID, snapshotID string) (explorer.State, error)
	ListSnapshots(ctx context.Context, sessionID string, limit int) ([]*explorer.SnapshotRecord, error)
}

var _ SessionService = (*explorer.Manager)(nil)

type SessionHandler struct {
	sessions SessionService
	logger   logging.Logger
}

func NewSessionHandler(sessions SessionService, logger logging.Logger) *SessionHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SessionHandler{sessions: sessions, logger: logger}
}

// ─────────────────────────────────────────────────────────────────────────────
// Views
// ─────────────────────────────────────────────────────────────────────────────

type EntityCounts struct {
	Total    int `json:"total"`
	Filtered int `json:"filtered"`
}

// SummaryResponse is what clients render after every action.
type SummaryResponse struct {
	SessionID   string                                   `json:"session_id"`
	Loaded      bool                                     `json:"loaded"`
	Settings    explorer.Settings                        `json:"settings"`
	Counts      map[metabolic.Entity]EntityCounts        `json:"counts"`
	Summaries   map[metabolic.Entity]cardinality.Summary `json:"summaries"`
	Diagnostics int                                      `json:"diagnostics"`
}

func newSummaryResponse(sessionID string, st explorer.State) SummaryResponse {
	resp := SummaryResponse{
		SessionID:   sessionID,
		Loaded:      st.Loaded(),
		Settings:    st.Settings,
		Counts:      make(map[metabolic.Entity]EntityCounts, 2),
		Summaries:   st.Summaries,
		Diagnostics: st.Diagnostics.Len(),
	}
	for _, entity := range []metabolic.Entity{metabolic.EntityMetabolites, metabolic.EntityReactions} {
		resp.Counts[entity] = EntityCounts{
			Total:    len(st.Sets.Records(entity)),
			Filtered: len(st.Filtered.Records(entity)),
		}
	}
	return resp
}

// ─────────────────────────────────────────────────────────────────────────────
// Requests
// ─────────────────────────────────────────────────────────────────────────────

type toggleSelectionRequest struct {
	Attribute metabolic.Attribute `json:"attribute" binding:"required"`
	Value     string              `json:"value" binding:"required"`
}

type enabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type toggleSimplificationRequest struct {
	Entity      metabolic.Entity `json:"entity" binding:"required"`
	ID          string           `json:"id" binding:"required"`
	Compartment string           `json:"compartment"`
}

type searchRequest struct {
	Entity    metabolic.Entity    `json:"entity" binding:"required"`
	Attribute metabolic.Attribute `json:"attribute" binding:"required"`
	Query     string              `json:"query"`
}

type sortRequest struct {
	Entity    metabolic.Entity    `json:"entity" binding:"required"`
	Attribute metabolic.Attribute `json:"attribute" binding:"required"`
	Key       cardinality.SortKey `json:"key" binding:"required"`
	Order     common.SortOrder    `json:"order" binding:"required"`
}

type snapshotRequest struct {
	Name string `json:"name" binding:"required"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Session lifecycle
// ─────────────────────────────────────────────────────────────────────────────

// Create handles POST /sessions.
func (h *SessionHandler) Create(c *gin.Context) {
	id, st, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		respondAppError(c, err)
		return
	}
	h.logger.Info("session created", logging.String("session_id", id))
	c.JSON(http.StatusCreated, newSummaryResponse(id, st))
}

// Delete handles DELETE /sessions/:id.
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// LoadModel handles POST /sessions/:id/model. The body is the model JSON.
func (h *SessionHandler) LoadModel(c *gin.Context) {
	raw, err := explorer.DecodeModel(c.Request.Body)
	if err != nil {
		respondAppError(c, err)
		return
	}
	h.respondState(c, func(ctx context.Context, id string) (explorer.State, error) {
		return h.sessions.LoadModel(ctx, id, raw)
	})
}

// Summary handles GET /sessions/:id/summary.
func (h *SessionHandler) Summary(c *gin.Context) {
	h.respondState(c, h.sessions.Get)
}

// ─────────────────────────────────────────────────────────────────────────────
// Actions
// ─────────────────────────────────────────────────────────────────────────────

// ToggleSelection handles POST /sessions/:id/selections/toggle.
func (h *SessionHandler) ToggleSelection(c *gin.Context) {
	var req toggleSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	h.respondState(c, func(ctx context.Context, id string) (explorer.State, error) {
		return h.sessions.ToggleSelection(ctx, id, metabolic.Selection{Attribute: req.Attribute, Value: req.Value})
	})
}

// SetFilter handles PUT /sessions/:id/filter.
func (h *SessionHandler) SetFilter(c *gin.Context) {
	var req enabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	h.respondState(c, func(ctx context.Context, id string) (explorer.State, error) {
		return h.sessions.SetFilter(ctx, id, *req.Enabled)
	})
}

// SetCompartmentalization handles PUT /sessions/:id/compartmentalization.
func (h *SessionHandler) SetCompartmentalization(c *gin.Context) {
	var req enabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	h.respondState(c, func(ctx context.Context, id string) (explorer.State, error) {
		return h.sessions.SetCompartmentalization(ctx, id, *req.Enabled)
	})
}

// ToggleSimplification handles POST /sessions/:id/simplifications/toggle.
func (h *SessionHandler) ToggleSimplification(c *gin.Context) {
	var req toggleSimplificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	h.respondState(c, func(ctx context.Context, id string) (explorer.State, error) {
		return h.sessions.ToggleSimplification(ctx, id, req.Entity, req.ID, req.Compartment)
	})
}

// SetSearch handles PUT /sessions/:id/search.
func (h *SessionHandler) SetSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	h.respondState(c, func(ctx context.Context, id string) (explorer.State, error) {
		return h.sessions.SetSearch(ctx, id, req.Entity, req.Attribute, req.Query)
	})
}

// SetSort handles PUT /sessions/:id/sort.
func (h *SessionHandler) SetSort(c *gin.Context) {
	var req sortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	sortBy := cardinality.Sort{Key: req.Key, Order: req.Order}
	h.respondState(c, func(ctx context.Context, id string) (explorer.State, error) {
		return h.sessions.SetSort(ctx, id, req.Entity, req.Attribute, sortBy)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Derived views
// ─────────────────────────────────────────────────────────────────────────────

// Network handles GET /sessions/:id/network.
func (h *SessionHandler) Network(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}
	RespondOK(c, st.Network)
}

// Context handles GET /sessions/:id/context.
func (h *SessionHandler) Context(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}
	RespondOK(c, gin.H{"reactions": st.Context})
}

// Diagnostics handles GET /sessions/:id/diagnostics.
func (h *SessionHandler) Diagnostics(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}
	RespondOK(c, st.Diagnostics)
}

// ─────────────────────────────────────────────────────────────────────────────
// Snapshots
// ─────────────────────────────────────────────────────────────────────────────

// SaveSnapshot handles POST /sessions/:id/snapshots.
func (h *SessionHandler) SaveSnapshot(c *gin.Context) {
	var req snapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	rec, err := h.sessions.SaveSnapshot(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": rec.ID, "name": rec.Name, "created_at": rec.CreatedAt})
}

// ListSnapshots handles GET /sessions/:id/snapshots.
func (h *SessionHandler) ListSnapshots(c *gin.Context) {
	recs, err := h.sessions.ListSnapshots(c.Request.Context(), c.Param("id"), queryInt(c, "limit", 20))
	if err != nil {
		respondAppError(c, err)
		return
	}
	items := make([]gin.H, 0, len(recs))
	for _, rec := range recs {
		items = append(items, gin.H{"id": rec.ID, "name": rec.Name, "created_at": rec.CreatedAt})
	}
	RespondOK(c, gin.H{"snapshots": items})
}

// RestoreSnapshot handles POST /sessions/:id/snapshots/:snapshot/restore.
func (h *SessionHandler) RestoreSnapshot(c *gin.Context) {
	snapshotID := c.Param("snapshot")
	h.respondState(c, func(ctx context.Context, id string) (explorer.State, error) {
		return h.sessions.RestoreSnapshot(ctx, id, snapshotID)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (h *SessionHandler) respondState(c *gin.Context, fn func(ctx context.Context, sessionID string) (explorer.State, error)) {
	id := c.Param("id")
	st, err := fn(c.Request.Context(), id)
	if err != nil {
		respondAppError(c, err)
		return
	}
	RespondOK(c, newSummaryResponse(id, st))
}

func (h *SessionHandler) state(c *gin.Context) (explorer.State, bool) {
	st, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondAppError(c, err)
		return explorer.State{}, false
	}
	return st, true
}
