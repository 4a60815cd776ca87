package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/turtacn/MetaboScope/pkg/errors"
	"github.com/turtacn/MetaboScope/pkg/types/common"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// SessionsClient drives exploration sessions.
type SessionsClient struct {
	client *Client
}

func sessionPath(id string, parts ...string) string {
	p := "/sessions/" + url.PathEscape(id)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func requireID(id string) error {
	if id == "" {
		return errors.InvalidParam("session id is required")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ─────────────────────────────────────────────────────────────────────────────

// Create opens a session with the server's default settings.
func (s *SessionsClient) Create(ctx context.Context) (*Summary, error) {
	var out Summary
	if err := s.client.post(ctx, "/sessions", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SessionsClient) Delete(ctx context.Context, id string) error {
	if err := requireID(id); err != nil {
		return err
	}
	return s.client.delete(ctx, sessionPath(id))
}

// LoadModel uploads a raw model document. The body is sent unchanged.
func (s *SessionsClient) LoadModel(ctx context.Context, id string, model []byte) (*Summary, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	if len(model) == 0 {
		return nil, errors.InvalidParam("model document is empty")
	}
	var out Summary
	if err := s.client.doRaw(ctx, http.MethodPost, sessionPath(id, "model"), model, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SessionsClient) Summary(ctx context.Context, id string) (*Summary, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	var out Summary
	if err := s.client.get(ctx, sessionPath(id, "summary"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Actions
// ─────────────────────────────────────────────────────────────────────────────

func (s *SessionsClient) action(ctx context.Context, method, id, path string, body interface{}) (*Summary, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	var out Summary
	if err := s.client.do(ctx, method, sessionPath(id, path), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleSelection adds the selection, or removes it when already present.
func (s *SessionsClient) ToggleSelection(ctx context.Context, id string, sel metabolic.Selection) (*Summary, error) {
	return s.action(ctx, http.MethodPost, id, "selections/toggle", sel)
}

func (s *SessionsClient) SetFilter(ctx context.Context, id string, enabled bool) (*Summary, error) {
	return s.action(ctx, http.MethodPut, id, "filter", map[string]bool{"enabled": enabled})
}

func (s *SessionsClient) SetCompartmentalization(ctx context.Context, id string, enabled bool) (*Summary, error) {
	return s.action(ctx, http.MethodPut, id, "compartmentalization", map[string]bool{"enabled": enabled})
}

// ToggleSimplification flips a reaction or metabolite simplification. An
// empty compartment simplifies a metabolite everywhere.
func (s *SessionsClient) ToggleSimplification(ctx context.Context, id string, entity metabolic.Entity, entityID, compartment string) (*Summary, error) {
	return s.action(ctx, http.MethodPost, id, "simplifications/toggle", map[string]string{
		"entity":      string(entity),
		"id":          entityID,
		"compartment": compartment,
	})
}

func (s *SessionsClient) SetSearch(ctx context.Context, id string, entity metabolic.Entity, attr metabolic.Attribute, query string) (*Summary, error) {
	return s.action(ctx, http.MethodPut, id, "search", map[string]string{
		"entity":    string(entity),
		"attribute": string(attr),
		"query":     query,
	})
}

func (s *SessionsClient) SetSort(ctx context.Context, id string, entity metabolic.Entity, attr metabolic.Attribute, key string, order common.SortOrder) (*Summary, error) {
	return s.action(ctx, http.MethodPut, id, "sort", map[string]string{
		"entity":    string(entity),
		"attribute": string(attr),
		"key":       key,
		"order":     string(order),
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Views
// ─────────────────────────────────────────────────────────────────────────────

func (s *SessionsClient) Network(ctx context.Context, id string) (*Network, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	var out Network
	if err := s.client.get(ctx, sessionPath(id, "network"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SessionsClient) Context(ctx context.Context, id string) ([]ContextReaction, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	var out struct {
		Reactions []ContextReaction `json:"reactions"`
	}
	if err := s.client.get(ctx, sessionPath(id, "context"), &out); err != nil {
		return nil, err
	}
	return out.Reactions, nil
}

func (s *SessionsClient) Diagnostics(ctx context.Context, id string) ([]Diagnostic, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	var out struct {
		Diagnostics []Diagnostic `json:"diagnostics"`
	}
	if err := s.client.get(ctx, sessionPath(id, "diagnostics"), &out); err != nil {
		return nil, err
	}
	return out.Diagnostics, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Snapshots
// ─────────────────────────────────────────────────────────────────────────────

func (s *SessionsClient) SaveSnapshot(ctx context.Context, id, name string) (*SnapshotInfo, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errors.InvalidParam("snapshot name is required")
	}
	var out SnapshotInfo
	if err := s.client.post(ctx, sessionPath(id, "snapshots"), map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSnapshots returns the newest snapshots first. limit <= 0 uses the
// server default.
func (s *SessionsClient) ListSnapshots(ctx context.Context, id string, limit int) ([]SnapshotInfo, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	path := sessionPath(id, "snapshots")
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Snapshots []SnapshotInfo `json:"snapshots"`
	}
	if err := s.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Snapshots, nil
}

func (s *SessionsClient) RestoreSnapshot(ctx context.Context, id, snapshotID string) (*Summary, error) {
	if snapshotID == "" {
		return nil, errors.InvalidParam("snapshot id is required")
	}
	return s.action(ctx, http.MethodPost, id, "snapshots/"+url.PathEscape(snapshotID)+"/restore", nil)
}

// ─────────────────────────────────────────────────────────────────────────────
// Graph and search
// ─────────────────────────────────────────────────────────────────────────────

// ExportGraph mirrors the session network into the graph database.
func (s *SessionsClient) ExportGraph(ctx context.Context, id string) (*ExportStats, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	var out ExportStats
	if err := s.client.post(ctx, sessionPath(id, "graph"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SessionsClient) Ego(ctx context.Context, id string, opts EgoOptions) (*Network, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	if opts.Center == "" {
		return nil, errors.InvalidParam("center is required")
	}
	q := url.Values{"center": {opts.Center}}
	if opts.Depth > 0 {
		q.Set("depth", strconv.Itoa(opts.Depth))
	}
	if opts.Direction != "" {
		q.Set("direction", opts.Direction)
	}
	var out Network
	if err := s.client.get(ctx, sessionPath(id, "graph", "ego")+"?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Index writes the session model into the search index.
func (s *SessionsClient) Index(ctx context.Context, id string) (*IndexResult, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	var out IndexResult
	if err := s.client.post(ctx, sessionPath(id, "index"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SessionsClient) SearchEntities(ctx context.Context, id string, opts SearchOptions) (*SearchResults, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	q := url.Values{}
	if opts.Text != "" {
		q.Set("q", opts.Text)
	}
	if opts.Entity != "" {
		q.Set("entity", string(opts.Entity))
	}
	for _, c := range opts.Compartments {
		q.Add("compartment", c)
	}
	for _, p := range opts.Processes {
		q.Add("process", p)
	}
	for _, r := range opts.References {
		q.Add("reference", r)
	}
	if opts.From > 0 {
		q.Set("from", strconv.Itoa(opts.From))
	}
	if opts.Size > 0 {
		q.Set("size", strconv.Itoa(opts.Size))
	}
	path := sessionPath(id, "entities")
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out SearchResults
	if err := s.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
