package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MetaboScope/internal/domain/assembly"
	"github.com/turtacn/MetaboScope/internal/domain/cleaning"
	"github.com/turtacn/MetaboScope/internal/testutil"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

func smallModel(t *testing.T) metabolic.Model {
	t.Helper()
	return assembly.Assemble(cleaning.Clean(testutil.SmallModel(), nil), nil)
}

func TestAttributeReaction(t *testing.T) {
	model := smallModel(t)
	rec := AttributeReaction(model.Reactions["ATPtm"])

	assert.Equal(t, "ATPtm", rec.ID)
	assert.Equal(t, []string{"c", "m"}, rec.Values[metabolic.AttributeCompartments])
	assert.Equal(t, []string{"P3", "P5"}, rec.Values[metabolic.AttributeProcesses])
	assert.Equal(t, []string{metabolic.OperationTransport}, rec.Values[metabolic.AttributeOperations])
	assert.Equal(t, []string{metabolic.Reversible}, rec.Values[metabolic.AttributeReversibility])
}

func TestAttributeMetabolite_OwnCompartmentsOnly(t *testing.T) {
	// b is in x; that compartment must not leak into a.
	reactions := map[string]metabolic.Reaction{
		"T": {ID: "T", Processes: []string{"P1"}, Transport: true, Participants: []metabolic.Participant{
			{Metabolite: "a", Compartment: "c", Role: metabolic.RoleReactant},
			{Metabolite: "a", Compartment: "m", Role: metabolic.RoleProduct},
			{Metabolite: "b", Compartment: "x", Role: metabolic.RoleReactant},
			{Metabolite: "b", Compartment: "c", Role: metabolic.RoleProduct},
		}},
	}
	rec := AttributeMetabolite(metabolic.Metabolite{ID: "a", Reactions: []string{"T"}}, reactions)

	assert.Equal(t, []string{"c", "m"}, rec.Values[metabolic.AttributeCompartments])
	assert.NotContains(t, rec.Values[metabolic.AttributeCompartments], "x")
	assert.Equal(t, []string{"P1"}, rec.Values[metabolic.AttributeProcesses])
	assert.Equal(t, []string{metabolic.OperationTransport}, rec.Values[metabolic.AttributeOperations])
	assert.Equal(t, []string{metabolic.Irreversible}, rec.Values[metabolic.AttributeReversibility])
}

func TestAttributeEntities_SmallModel(t *testing.T) {
	model := smallModel(t)
	sets := AttributeEntities(model.Metabolites, model.Reactions)

	require.Len(t, sets.Metabolites, 5)
	require.Len(t, sets.Reactions, 6)

	atp := sets.Metabolites["atp"]
	assert.Equal(t, []string{"c", "m"}, atp.Values[metabolic.AttributeCompartments])
	assert.Equal(t, []string{"P1", "P3", "P5"}, atp.Values[metabolic.AttributeProcesses])
	assert.Equal(t, []string{metabolic.OperationConversion, metabolic.OperationTransport}, atp.Values[metabolic.AttributeOperations])
	assert.Equal(t, []string{metabolic.Irreversible, metabolic.Reversible}, atp.Values[metabolic.AttributeReversibility])

	g6p := sets.Metabolites["g6p"]
	assert.Equal(t, []string{"c"}, g6p.Values[metabolic.AttributeCompartments])
	assert.Equal(t, []string{"P1"}, g6p.Values[metabolic.AttributeProcesses])
}

func TestAttributeEntities_RecomputesAfterReactionRemoval(t *testing.T) {
	model := smallModel(t)
	before := AttributeEntities(model.Metabolites, model.Reactions)
	assert.Contains(t, before.Metabolites["glc"].Values[metabolic.AttributeCompartments], "e")

	reduced := make(map[string]metabolic.Reaction)
	for id, r := range model.Reactions {
		if id != "GLCt" && id != "EX_glc" {
			reduced[id] = r
		}
	}
	after := AttributeEntities(model.Metabolites, reduced)

	assert.Equal(t, []string{"c"}, after.Metabolites["glc"].Values[metabolic.AttributeCompartments])
	assert.Equal(t, []string{"P1"}, after.Metabolites["glc"].Values[metabolic.AttributeProcesses])
}

func TestAttributeMetabolite_NoReactions(t *testing.T) {
	rec := AttributeMetabolite(metabolic.Metabolite{ID: "lonely"}, nil)
	for _, a := range metabolic.Attributes {
		assert.Empty(t, rec.Values[a])
	}
}
