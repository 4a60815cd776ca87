package opensearch

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MetaboScope/pkg/errors"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// SearchQuery finds entities of one session by free text and facets.
type SearchQuery struct {
	SessionID    string
	Entity       metabolic.Entity
	Text         string
	Compartments []string
	Processes    []string
	References   []string // namespace:identifier, for example chebi:15378
	From         int
	Size         int
}

type SearchHit struct {
	Document EntityDocument
	Score    float64
}

type SearchResult struct {
	Total int
	Hits  []SearchHit
}

type Searcher struct {
	client *Client
	index  string
	logger logging.Logger
}

func NewSearcher(client *Client, index string, logger logging.Logger) *Searcher {
	if index == "" {
		index = DefaultIndex
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Searcher{client: client, index: index, logger: logger}
}

// Search runs q against the entity index. Text matches names most strongly,
// then identifiers, then formulas and references; facets only filter.
func (s *Searcher) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal search query")
	}
	resp, err := s.client.api.Search(ctx, s.index, body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "search failed").WithDetail("index=" + s.index)
	}

	out := &SearchResult{Total: int(resp.Hits.Total.Value), Hits: make([]SearchHit, 0, len(resp.Hits.Hits))}
	for _, h := range resp.Hits.Hits {
		var doc EntityDocument
		if err := json.Unmarshal(h.Source, &doc); err != nil {
			s.logger.Warn("skipping undecodable search hit", logging.String("id", h.ID), logging.Err(err))
			continue
		}
		out.Hits = append(out.Hits, SearchHit{Document: doc, Score: float64(h.Score)})
	}
	s.logger.Debug("search completed",
		logging.String("session_id", q.SessionID),
		logging.String("text", q.Text),
		logging.Int("total", out.Total))
	return out, nil
}

func buildQuery(q SearchQuery) map[string]interface{} {
	var filters []interface{}
	if q.SessionID != "" {
		filters = append(filters, term("session_id", q.SessionID))
	}
	if q.Entity != "" {
		filters = append(filters, term("entity", string(q.Entity)))
	}
	if len(q.Compartments) > 0 {
		filters = append(filters, map[string]interface{}{"terms": map[string]interface{}{"compartments": q.Compartments}})
	}
	if len(q.Processes) > 0 {
		filters = append(filters, map[string]interface{}{"terms": map[string]interface{}{"processes": q.Processes}})
	}
	if len(q.References) > 0 {
		filters = append(filters, map[string]interface{}{"terms": map[string]interface{}{"references": q.References}})
	}

	boolQuery := map[string]interface{}{}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}
	if text := strings.TrimSpace(q.Text); text != "" {
		boolQuery["must"] = []interface{}{
			map[string]interface{}{"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"name^3", "id.text^2", "formula", "references"},
				"type":   "best_fields",
			}},
		}
	}

	size := q.Size
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	from := q.From
	if from < 0 {
		from = 0
	}

	return map[string]interface{}{
		"from":  from,
		"size":  size,
		"query": map[string]interface{}{"bool": boolQuery},
		"sort":  []interface{}{"_score", map[string]interface{}{"id": "asc"}},
	}
}

func term(field, value string) map[string]interface{} {
	return map[string]interface{}{"term": map[string]interface{}{field: value}}
}
