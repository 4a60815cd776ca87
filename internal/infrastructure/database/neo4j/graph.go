package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/turtacn/MetaboScope/internal/domain/network"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MetaboScope/pkg/errors"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

const (
	defaultBatchSize = 500
	maxEgoDepth      = 10
)

// Executor runs managed transactions. *Driver implements it.
type Executor interface {
	ExecuteRead(ctx context.Context, work TransactionWork) (any, error)
	ExecuteWrite(ctx context.Context, work TransactionWork) (any, error)
}

// ExportStats counts what an export wrote.
type ExportStats struct {
	Metabolites int           `json:"metabolites"`
	Reactions   int           `json:"reactions"`
	Links       int           `json:"links"`
	Duration    time.Duration `json:"duration"`
}

// GraphStore mirrors metabolic networks into Neo4j. Each exported network
// lives under its own graph identifier, so several sessions or models can
// share one database.
type GraphStore struct {
	exec      Executor
	logger    logging.Logger
	metrics   *prometheus.AppMetrics
	batchSize int
}

type GraphOption func(*GraphStore)

func WithBatchSize(n int) GraphOption {
	return func(g *GraphStore) {
		if n > 0 {
			g.batchSize = n
		}
	}
}

func WithGraphMetrics(m *prometheus.AppMetrics) GraphOption {
	return func(g *GraphStore) { g.metrics = m }
}

func NewGraphStore(exec Executor, log logging.Logger, opts ...GraphOption) *GraphStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	g := &GraphStore{exec: exec, logger: log, batchSize: defaultBatchSize}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ─────────────────────────────────────────────────────────────────────────────
// Cypher
// ─────────────────────────────────────────────────────────────────────────────

const (
	cypherConstraint = `CREATE CONSTRAINT metabo_node_key IF NOT EXISTS
		FOR (n:MetaboNode) REQUIRE (n.graph, n.id) IS UNIQUE`

	cypherDropGraph = `MATCH (n:MetaboNode {graph: $graph}) DETACH DELETE n`

	cypherMergeMetabolites = `UNWIND $rows AS row
		MERGE (n:MetaboNode {graph: $graph, id: row.id})
		SET n:Metabolite, n.kind = row.kind, n.entity = row.entity,
		    n.compartment = row.compartment, n.name = row.name`

	cypherMergeReactions = `UNWIND $rows AS row
		MERGE (n:MetaboNode {graph: $graph, id: row.id})
		SET n:Reaction, n.kind = row.kind, n.entity = row.entity, n.name = row.name`

	cypherMergeLinks = `UNWIND $rows AS row
		MATCH (s:MetaboNode {graph: $graph, id: row.source})
		MATCH (t:MetaboNode {graph: $graph, id: row.target})
		MERGE (s)-[r:PARTICIPATES {reaction: row.reaction, reverse: row.reverse}]->(t)
		SET r.role = row.role`

	cypherEgoNodes = `MATCH (c:MetaboNode {graph: $graph, id: $center})%s(n:MetaboNode)
		RETURN DISTINCT n.id AS id, n.kind AS kind, n.entity AS entity,
		       n.compartment AS compartment, n.name AS name`

	cypherLinksAmong = `MATCH (s:MetaboNode {graph: $graph})-[r:PARTICIPATES]->(t:MetaboNode {graph: $graph})
		WHERE s.id IN $ids AND t.id IN $ids
		RETURN s.id AS source, t.id AS target, r.reaction AS reaction,
		       r.role AS role, r.reverse AS reverse`
)

func egoPattern(depth int, dir network.Direction) string {
	switch dir {
	case network.DirectionOut:
		return fmt.Sprintf("-[:PARTICIPATES*0..%d]->", depth)
	case network.DirectionIn:
		return fmt.Sprintf("<-[:PARTICIPATES*0..%d]-", depth)
	default:
		return fmt.Sprintf("-[:PARTICIPATES*0..%d]-", depth)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Operations
// ─────────────────────────────────────────────────────────────────────────────

// EnsureSchema creates the uniqueness constraint on (graph, id).
func (g *GraphStore) EnsureSchema(ctx context.Context) error {
	_, err := g.exec.ExecuteWrite(ctx, func(tx Transaction) (any, error) {
		return nil, run(ctx, tx, cypherConstraint, nil)
	})
	return err
}

// Export replaces graphID with net. Nodes and links are written in UNWIND
// batches inside one transaction.
func (g *GraphStore) Export(ctx context.Context, graphID string, net network.Network) (ExportStats, error) {
	if graphID == "" {
		return ExportStats{}, errors.InvalidParam("graph id is required")
	}
	start := time.Now()

	var metabolites, reactions []map[string]any
	for _, node := range net.SortedNodes() {
		row := map[string]any{"id": node.ID, "kind": string(node.Kind), "entity": node.Entity, "name": node.Name}
		if node.Kind == network.KindReaction {
			reactions = append(reactions, row)
			continue
		}
		row["compartment"] = node.Compartment
		metabolites = append(metabolites, row)
	}
	links := make([]map[string]any, 0, len(net.Links))
	for _, l := range net.Links {
		links = append(links, map[string]any{
			"source": l.Source, "target": l.Target, "reaction": l.Reaction,
			"role": string(l.Role), "reverse": l.Reverse,
		})
	}

	_, err := g.exec.ExecuteWrite(ctx, func(tx Transaction) (any, error) {
		if err := run(ctx, tx, cypherDropGraph, map[string]any{"graph": graphID}); err != nil {
			return nil, err
		}
		for _, step := range []struct {
			cypher string
			rows   []map[string]any
		}{
			{cypherMergeMetabolites, metabolites},
			{cypherMergeReactions, reactions},
			{cypherMergeLinks, links},
		} {
			if err := g.unwind(ctx, tx, step.cypher, graphID, step.rows); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	stats := ExportStats{Metabolites: len(metabolites), Reactions: len(reactions), Links: len(links), Duration: time.Since(start)}
	if g.metrics != nil {
		prometheus.RecordDBQuery(g.metrics, "neo4j", "export_graph", stats.Duration, err)
	}
	if err != nil {
		return ExportStats{}, errors.Wrap(err, errors.ErrCodeGraphExport, "failed to export graph "+graphID)
	}
	if g.metrics != nil {
		prometheus.RecordGraphExport(g.metrics, stats.Metabolites, stats.Reactions)
	}

	g.logger.Info("exported network graph",
		logging.String("graph", graphID),
		logging.Int("metabolites", stats.Metabolites),
		logging.Int("reactions", stats.Reactions),
		logging.Int("links", stats.Links),
		logging.Duration("duration", stats.Duration))
	return stats, nil
}

func (g *GraphStore) unwind(ctx context.Context, tx Transaction, cypher, graphID string, rows []map[string]any) error {
	for start := 0; start < len(rows); start += g.batchSize {
		end := start + g.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := run(ctx, tx, cypher, map[string]any{"graph": graphID, "rows": rows[start:end]}); err != nil {
			return err
		}
	}
	return nil
}

// Ego reads the neighbourhood of center within depth steps along dir.
// An unknown center yields an empty network.
func (g *GraphStore) Ego(ctx context.Context, graphID, center string, depth int, dir network.Direction) (network.Network, error) {
	if depth < 0 || depth > maxEgoDepth {
		return network.Network{}, errors.InvalidParam(fmt.Sprintf("depth must be between 0 and %d", maxEgoDepth))
	}
	if dir == "" {
		dir = network.DirectionBoth
	}
	if !dir.Valid() {
		return network.Network{}, errors.InvalidParam("unknown direction " + string(dir))
	}

	start := time.Now()
	res, err := g.exec.ExecuteRead(ctx, func(tx Transaction) (any, error) {
		params := map[string]any{"graph": graphID, "center": center}
		result, err := tx.Run(ctx, fmt.Sprintf(cypherEgoNodes, egoPattern(depth, dir)), params)
		if err != nil {
			return nil, err
		}
		nodes, err := CollectRecords(ctx, result, recordNode)
		if err != nil {
			return nil, err
		}
		if len(nodes) == 0 {
			return network.FromParts(nil, nil), nil
		}

		ids := make([]string, len(nodes))
		for i, n := range nodes {
			ids[i] = n.ID
		}
		result, err = tx.Run(ctx, cypherLinksAmong, map[string]any{"graph": graphID, "ids": ids})
		if err != nil {
			return nil, err
		}
		links, err := CollectRecords(ctx, result, recordLink)
		if err != nil {
			return nil, err
		}
		return network.FromParts(nodes, links), nil
	})
	if g.metrics != nil {
		prometheus.RecordDBQuery(g.metrics, "neo4j", "ego", time.Since(start), err)
	}
	if err != nil {
		return network.Network{}, err
	}
	return res.(network.Network), nil
}

// Drop removes every node of graphID.
func (g *GraphStore) Drop(ctx context.Context, graphID string) error {
	_, err := g.exec.ExecuteWrite(ctx, func(tx Transaction) (any, error) {
		return nil, run(ctx, tx, cypherDropGraph, map[string]any{"graph": graphID})
	})
	return err
}

// run executes a write statement and drains it so server errors surface.
func run(ctx context.Context, tx Transaction, cypher string, params map[string]any) error {
	res, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

func recordNode(r *neo4j.Record) (network.Node, error) {
	id := stringValue(r, "id")
	if id == "" {
		return network.Node{}, errors.New(errors.ErrCodeSerialization, "graph node without id")
	}
	return network.Node{
		ID:          id,
		Kind:        network.Kind(stringValue(r, "kind")),
		Entity:      stringValue(r, "entity"),
		Compartment: stringValue(r, "compartment"),
		Name:        stringValue(r, "name"),
	}, nil
}

func recordLink(r *neo4j.Record) (network.Link, error) {
	reverse, _ := valueOf(r, "reverse").(bool)
	return network.Link{
		Source:   stringValue(r, "source"),
		Target:   stringValue(r, "target"),
		Reaction: stringValue(r, "reaction"),
		Role:     metabolic.Role(stringValue(r, "role")),
		Reverse:  reverse,
	}, nil
}

func valueOf(r *neo4j.Record, key string) any {
	v, _ := r.Get(key)
	return v
}

func stringValue(r *neo4j.Record, key string) string {
	s, _ := valueOf(r, key).(string)
	return s
}
