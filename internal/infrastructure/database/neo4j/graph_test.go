package neo4j

import (
	"context"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MetaboScope/internal/domain/network"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MetaboScope/internal/testutil"
	apperrors "github.com/turtacn/MetaboScope/pkg/errors"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

var (
	glc = network.Node{ID: "metabolite:glc", Kind: network.KindMetabolite, Entity: "glc", Name: "D-glucose"}
	g6p = network.Node{ID: "metabolite:g6p", Kind: network.KindMetabolite, Entity: "g6p", Name: "glucose 6-phosphate"}
	hex = network.Node{ID: "reaction:HEX1", Kind: network.KindReaction, Entity: "HEX1", Name: "hexokinase"}
)

func hexokinaseNetwork() network.Network {
	return network.FromParts(
		[]network.Node{glc, g6p, hex},
		[]network.Link{
			{Source: glc.ID, Target: hex.ID, Reaction: "HEX1", Role: metabolic.RoleReactant},
			{Source: hex.ID, Target: g6p.ID, Reaction: "HEX1", Role: metabolic.RoleProduct},
		},
	)
}

func TestGraphStore_ExportBatches(t *testing.T) {
	tx := &fakeTx{}
	log := testutil.NewMockLogger()
	store := NewGraphStore(&fakeExecutor{tx: tx}, log, WithBatchSize(1))

	stats, err := store.Export(context.Background(), "sess-1", hexokinaseNetwork())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Metabolites)
	assert.Equal(t, 1, stats.Reactions)
	assert.Equal(t, 2, stats.Links)

	// drop + 2 metabolite batches + 1 reaction batch + 2 link batches
	require.Len(t, tx.runs, 6)
	assert.Contains(t, tx.runs[0].cypher, "DETACH DELETE")
	assert.Equal(t, "sess-1", tx.runs[0].params["graph"])

	first := tx.runs[1].params["rows"].([]map[string]any)
	assert.Equal(t, "metabolite:g6p", first[0]["id"], "nodes are written in id order")
	assert.Contains(t, tx.runs[3].cypher, "SET n:Reaction")
	assert.Contains(t, tx.runs[4].cypher, "PARTICIPATES")
	assert.True(t, log.HasMessage("info", "exported network graph"))
}

func TestGraphStore_ExportDefaultBatch(t *testing.T) {
	tx := &fakeTx{}
	store := NewGraphStore(&fakeExecutor{tx: tx}, nil)

	_, err := store.Export(context.Background(), "g", hexokinaseNetwork())
	require.NoError(t, err)
	assert.Len(t, tx.runs, 4)
}

func TestGraphStore_ExportErrors(t *testing.T) {
	store := NewGraphStore(&fakeExecutor{tx: &fakeTx{}}, nil)
	_, err := store.Export(context.Background(), "", hexokinaseNetwork())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test"}, nil)
	require.NoError(t, err)
	metrics := prometheus.NewAppMetrics(collector)
	failing := NewGraphStore(&fakeExecutor{tx: &fakeTx{failOn: "UNWIND"}}, nil, WithGraphMetrics(metrics))

	_, err = failing.Export(context.Background(), "g", hexokinaseNetwork())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeGraphExport))
}

func TestGraphStore_Ego(t *testing.T) {
	nodeKeys := []string{"id", "kind", "entity", "compartment", "name"}
	linkKeys := []string{"source", "target", "reaction", "role", "reverse"}
	tx := &fakeTx{results: map[string]*fakeResult{
		"RETURN DISTINCT": {records: []*neo4j.Record{
			record(nodeKeys, hex.ID, "reaction", "HEX1", nil, "hexokinase"),
			record(nodeKeys, g6p.ID, "metabolite", "g6p", "", "glucose 6-phosphate"),
		}},
		"WHERE s.id IN": {records: []*neo4j.Record{
			record(linkKeys, hex.ID, g6p.ID, "HEX1", "product", false),
		}},
	}}
	store := NewGraphStore(&fakeExecutor{tx: tx}, nil)

	sub, err := store.Ego(context.Background(), "g", hex.ID, 1, network.DirectionOut)
	require.NoError(t, err)
	assert.Len(t, sub.Nodes, 2)
	assert.Equal(t, hex, sub.Nodes[hex.ID])
	assert.Equal(t, []string{g6p.ID}, sub.Neighbors(hex.ID, network.DirectionOut))

	require.Len(t, tx.runs, 2)
	assert.Contains(t, tx.runs[0].cypher, "-[:PARTICIPATES*0..1]->")
	assert.ElementsMatch(t, []string{hex.ID, g6p.ID}, tx.runs[1].params["ids"])
}

func TestGraphStore_EgoUnknownCenter(t *testing.T) {
	tx := &fakeTx{}
	store := NewGraphStore(&fakeExecutor{tx: tx}, nil)

	sub, err := store.Ego(context.Background(), "g", "reaction:nope", 2, "")
	require.NoError(t, err)
	assert.Empty(t, sub.Nodes)
	require.Len(t, tx.runs, 1)
	assert.Contains(t, tx.runs[0].cypher, "-[:PARTICIPATES*0..2]-(")
}

func TestGraphStore_EgoValidation(t *testing.T) {
	store := NewGraphStore(&fakeExecutor{tx: &fakeTx{}}, nil)

	_, err := store.Ego(context.Background(), "g", hex.ID, -1, network.DirectionBoth)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))
	_, err = store.Ego(context.Background(), "g", hex.ID, maxEgoDepth+1, network.DirectionBoth)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))
	_, err = store.Ego(context.Background(), "g", hex.ID, 1, network.Direction("sideways"))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))
}

func TestGraphStore_EnsureSchemaAndDrop(t *testing.T) {
	tx := &fakeTx{}
	store := NewGraphStore(&fakeExecutor{tx: tx}, nil)

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, store.Drop(context.Background(), "g"))
	require.Len(t, tx.runs, 2)
	assert.Contains(t, tx.runs[0].cypher, "CREATE CONSTRAINT")
	assert.Contains(t, tx.runs[1].cypher, "DETACH DELETE")
}
