package opensearch

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MetaboScope/pkg/errors"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

const DefaultIndex = "metaboscope-entities"

// EntityDocument is one metabolite or reaction of a session's model as
// stored in the search index.
type EntityDocument struct {
	SessionID    string           `json:"session_id"`
	Entity       metabolic.Entity `json:"entity"`
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Formula      string           `json:"formula,omitempty"`
	Charge       *int             `json:"charge,omitempty"`
	Compartments []string         `json:"compartments,omitempty"`
	Processes    []string         `json:"processes,omitempty"`
	Genes        []string         `json:"genes,omitempty"`
	Reactions    []string         `json:"reactions,omitempty"`
	References   []string         `json:"references,omitempty"` // namespace:identifier
	Reversible   bool             `json:"reversible"`
	Transport    bool             `json:"transport"`
}

// DocumentID is unique per session, entity kind and identifier.
func (d EntityDocument) DocumentID() string {
	return d.SessionID + ":" + string(d.Entity) + ":" + d.ID
}

// DocumentsFromModel flattens a model into documents, metabolites first, each
// kind in identifier order.
func DocumentsFromModel(sessionID string, model metabolic.Model) []EntityDocument {
	docs := make([]EntityDocument, 0, len(model.Metabolites)+len(model.Reactions))
	for _, id := range metabolic.SortedKeys(model.Metabolites) {
		m := model.Metabolites[id]
		docs = append(docs, EntityDocument{
			SessionID:    sessionID,
			Entity:       metabolic.EntityMetabolites,
			ID:           m.ID,
			Name:         m.Name,
			Formula:      m.Formula,
			Charge:       m.Charge,
			Compartments: m.Compartments,
			Reactions:    m.Reactions,
			References:   m.References.Flatten(),
		})
	}
	for _, id := range metabolic.SortedKeys(model.Reactions) {
		r := model.Reactions[id]
		docs = append(docs, EntityDocument{
			SessionID:    sessionID,
			Entity:       metabolic.EntityReactions,
			ID:           r.ID,
			Name:         r.Name,
			Compartments: reactionCompartments(r),
			Processes:    processNames(model, r.Processes),
			Genes:        r.Genes,
			Reversible:   r.Reversibility,
			Transport:    r.Transport,
		})
	}
	return docs
}

func reactionCompartments(r metabolic.Reaction) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range r.Participants {
		if _, ok := seen[p.Compartment]; ok || p.Compartment == "" {
			continue
		}
		seen[p.Compartment] = struct{}{}
		out = append(out, p.Compartment)
	}
	return out
}

func processNames(model metabolic.Model, ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if p, ok := model.Processes[id]; ok && p.Name != "" {
			out = append(out, p.Name)
			continue
		}
		out = append(out, id)
	}
	return out
}

// EntityIndexMapping returns the settings and mappings of the entity index.
func EntityIndexMapping(shards, replicas int) map[string]interface{} {
	keyword := map[string]interface{}{"type": "keyword"}
	return map[string]interface{}{
		"settings": map[string]interface{}{
			"number_of_shards":   shards,
			"number_of_replicas": replicas,
		},
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"session_id": keyword,
				"entity":     keyword,
				"id": map[string]interface{}{
					"type":   "keyword",
					"fields": map[string]interface{}{"text": map[string]interface{}{"type": "text"}},
				},
				"name": map[string]interface{}{
					"type":   "text",
					"fields": map[string]interface{}{"raw": keyword},
				},
				"formula":      keyword,
				"charge":       map[string]interface{}{"type": "integer"},
				"compartments": keyword,
				"processes":    keyword,
				"genes":        keyword,
				"reactions":    keyword,
				"references":   keyword,
				"reversible":   map[string]interface{}{"type": "boolean"},
				"transport":    map[string]interface{}{"type": "boolean"},
			},
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Indexer
// ─────────────────────────────────────────────────────────────────────────────

type IndexerConfig struct {
	Index         string
	BatchSize     int
	RefreshPolicy string
	Shards        int
	Replicas      int
}

// BulkItemError describes one document the cluster rejected.
type BulkItemError struct {
	DocID     string
	ErrorType string
	Reason    string
}

type BulkResult struct {
	Succeeded int
	Failed    int
	Errors    []BulkItemError
}

type Indexer struct {
	client  *Client
	config  IndexerConfig
	logger  logging.Logger
	metrics *prometheus.AppMetrics
}

func NewIndexer(client *Client, cfg IndexerConfig, logger logging.Logger) *Indexer {
	if cfg.Index == "" {
		cfg.Index = DefaultIndex
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.RefreshPolicy == "" {
		cfg.RefreshPolicy = "false"
	}
	if cfg.Shards <= 0 {
		cfg.Shards = 1
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Indexer{client: client, config: cfg, logger: logger}
}

func (i *Indexer) WithMetrics(m *prometheus.AppMetrics) *Indexer {
	i.metrics = m
	return i
}

func (i *Indexer) Index() string { return i.config.Index }

// EnsureIndex creates the entity index unless it already exists.
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	exists, err := i.client.api.IndexExists(ctx, i.config.Index)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexFailed, "failed to check index")
	}
	if exists {
		return nil
	}
	body, err := json.Marshal(EntityIndexMapping(i.config.Shards, i.config.Replicas))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal index mapping")
	}
	if err := i.client.api.CreateIndex(ctx, i.config.Index, body); err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexFailed, "failed to create index").WithDetail("index=" + i.config.Index)
	}
	i.logger.Info("index created", logging.String("index", i.config.Index))
	return nil
}

func (i *Indexer) DeleteIndex(ctx context.Context) error {
	if err := i.client.api.DeleteIndex(ctx, i.config.Index); err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexFailed, "failed to delete index").WithDetail("index=" + i.config.Index)
	}
	i.logger.Warn("index deleted", logging.String("index", i.config.Index))
	return nil
}

// IndexModel writes every metabolite and reaction of model for sessionID.
// Rejected documents are reported in the result; a transport failure aborts.
func (i *Indexer) IndexModel(ctx context.Context, sessionID string, model metabolic.Model) (*BulkResult, error) {
	if sessionID == "" {
		return nil, errors.InvalidParam("session id is required")
	}
	return i.BulkIndex(ctx, DocumentsFromModel(sessionID, model))
}

func (i *Indexer) BulkIndex(ctx context.Context, docs []EntityDocument) (*BulkResult, error) {
	result := &BulkResult{}
	for start := 0; start < len(docs); start += i.config.BatchSize {
		end := start + i.config.BatchSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := i.bulkBatch(ctx, docs[start:end], result); err != nil {
			return result, err
		}
	}

	if i.metrics != nil {
		indexed := make(map[metabolic.Entity]int)
		for _, d := range docs {
			indexed[d.Entity]++
		}
		for entity, n := range indexed {
			prometheus.RecordIndexed(i.metrics, entity, n)
		}
	}
	i.logger.Info("bulk index completed",
		logging.String("index", i.config.Index),
		logging.Int("total", len(docs)),
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", result.Failed))
	return result, nil
}

func (i *Indexer) bulkBatch(ctx context.Context, batch []EntityDocument, result *BulkResult) error {
	var buf bytes.Buffer
	for _, doc := range batch {
		meta, err := json.Marshal(map[string]interface{}{
			"index": map[string]string{"_index": i.config.Index, "_id": doc.DocumentID()},
		})
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal bulk action")
		}
		src, err := json.Marshal(doc)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal document")
		}
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.Write(src)
		buf.WriteByte('\n')
	}

	resp, err := i.client.api.Bulk(ctx, buf.Bytes(), i.config.RefreshPolicy)
	if err != nil {
		if i.metrics != nil {
			prometheus.RecordError(i.metrics, "opensearch", "bulk_error")
		}
		return errors.Wrap(err, errors.ErrCodeIndexFailed, "bulk request failed")
	}
	if !resp.Errors {
		result.Succeeded += len(batch)
		return nil
	}
	for _, item := range resp.Items {
		for _, v := range item {
			if v.Status >= 200 && v.Status < 300 {
				result.Succeeded++
				continue
			}
			result.Failed++
			itemErr := BulkItemError{DocID: v.ID}
			if v.Error != nil {
				itemErr.ErrorType = v.Error.Type
				itemErr.Reason = v.Error.Reason
			}
			result.Errors = append(result.Errors, itemErr)
		}
	}
	return nil
}
