package relevance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MetaboScope/internal/domain/assembly"
	"github.com/turtacn/MetaboScope/internal/domain/cleaning"
	"github.com/turtacn/MetaboScope/internal/testutil"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

func smallReactions(t *testing.T) map[string]metabolic.Reaction {
	t.Helper()
	return assembly.Assemble(cleaning.Clean(testutil.SmallModel(), nil), nil).Reactions
}

func ids(reactions []ContextReaction) []string {
	out := make([]string, len(reactions))
	for i, r := range reactions {
		out[i] = r.ID
	}
	return out
}

func TestTransportRelevance_DependsOnCompartmentalization(t *testing.T) {
	reactions := smallReactions(t)
	atptm := reactions["ATPtm"]

	assert.True(t, IsRelevant(atptm, atptm.Participants, true))
	assert.False(t, IsRelevant(atptm, atptm.Participants, false))
}

func TestConversionRelevance_NeedsBothSides(t *testing.T) {
	reactions := smallReactions(t)

	assert.True(t, IsRelevant(reactions["HEX1"], reactions["HEX1"].Participants, false))
	assert.False(t, IsRelevant(reactions["EX_glc"], reactions["EX_glc"].Participants, true))
}

func TestTransportRelevance_SameCompartmentDoesNotCount(t *testing.T) {
	r := metabolic.Reaction{
		Transport:  true,
		Transports: []metabolic.Transport{{Metabolite: "a", Compartments: []string{"c", "m"}}},
	}
	participants := []metabolic.Participant{
		{Metabolite: "a", Compartment: "c", Role: metabolic.RoleReactant},
		{Metabolite: "a", Compartment: "c", Role: metabolic.RoleProduct},
	}
	assert.False(t, TransportRelevant(r, participants, true))
}

func TestResolveReactionContext_Compartmentalized(t *testing.T) {
	out := ResolveReactionContext(true, Simplifications{}, smallReactions(t))

	assert.Equal(t, []string{"ATPM", "ATPMm", "ATPtm", "GLCt", "HEX1"}, ids(out))
	for _, cr := range out {
		assert.Equal(t, []string{cr.ID}, cr.Members)
	}
}

func TestResolveReactionContext_ReplicatesCollapseWithoutCompartments(t *testing.T) {
	out := ResolveReactionContext(false, Simplifications{}, smallReactions(t))

	require.Equal(t, []string{"ATPM", "HEX1"}, ids(out))
	atpm := out[0]
	assert.Equal(t, []string{"ATPM", "ATPMm"}, atpm.Members)
	assert.Equal(t, "ATP maintenance", atpm.Name)
	assert.Len(t, atpm.Participants, 6)
	assert.Equal(t, []string{"P5"}, atpm.Processes)
	assert.False(t, atpm.Reversibility)
}

func TestResolveReactionContext_Simplifications(t *testing.T) {
	reactions := smallReactions(t)

	out := ResolveReactionContext(true, Simplifications{
		Reactions:   []string{"HEX1"},
		Metabolites: []metabolic.Simplification{{Metabolite: "atp", Compartment: "c"}},
	}, reactions)

	// ATPM loses its only reactant; ATPtm still moves adp.
	assert.Equal(t, []string{"ATPMm", "ATPtm", "GLCt"}, ids(out))
	for _, p := range out[1].Participants {
		assert.False(t, p.Metabolite == "atp" && p.Compartment == "c")
	}
}

func TestResolveReactionContext_SimplificationIgnoresCompartmentWhenOff(t *testing.T) {
	out := ResolveReactionContext(false, Simplifications{
		Metabolites: []metabolic.Simplification{{Metabolite: "atp", Compartment: "c"}},
	}, smallReactions(t))

	// every atp participant is removed, so both ATP maintenance reactions drop
	assert.Equal(t, []string{"HEX1"}, ids(out))
}

func TestResolveReactionContext_DoesNotMutateInput(t *testing.T) {
	reactions := smallReactions(t)
	before := smallReactions(t)

	_ = ResolveReactionContext(false, Simplifications{Metabolites: []metabolic.Simplification{{Metabolite: "h"}}}, reactions)
	assert.Equal(t, before, reactions)
}

func TestResolveReactionContext_IdenticalParticipantsMerge(t *testing.T) {
	participants := []metabolic.Participant{
		{Metabolite: "a", Compartment: "c", Role: metabolic.RoleReactant},
		{Metabolite: "b", Compartment: "c", Role: metabolic.RoleProduct},
	}
	reactions := map[string]metabolic.Reaction{
		"R2": {ID: "R2", Name: "long name", Conversion: true, Participants: participants, Genes: []string{"G2"}},
		"R1": {ID: "R1", Name: "longer name", Conversion: true, Participants: participants, Genes: []string{"G1"}, Reversibility: true},
	}

	out := ResolveReactionContext(true, Simplifications{}, reactions)

	require.Len(t, out, 1)
	assert.Equal(t, "R1", out[0].ID)
	assert.Equal(t, "long name", out[0].Name)
	assert.Equal(t, []string{"G1", "G2"}, out[0].Genes)
	assert.True(t, out[0].Reversibility)
	assert.Equal(t, []string{"R1", "R2"}, out[0].Members)
}

func TestResolveReactionContext_ReplicatesFollowEqualityMerge(t *testing.T) {
	part := func(m, c string, role metabolic.Role) metabolic.Participant {
		return metabolic.Participant{Metabolite: m, Compartment: c, Role: role}
	}
	replicates := []string{"R1", "R3"}
	reactions := map[string]metabolic.Reaction{
		"R0": {ID: "R0", Name: "with cofactor", Conversion: true, Participants: []metabolic.Participant{
			part("a", "c", metabolic.RoleReactant), part("s", "c", metabolic.RoleReactant), part("b", "c", metabolic.RoleProduct),
		}},
		"R1": {ID: "R1", Name: "cytosolic", Conversion: true, Replication: true, Replicates: replicates, Participants: []metabolic.Participant{
			part("a", "c", metabolic.RoleReactant), part("b", "c", metabolic.RoleProduct),
		}},
		"R3": {ID: "R3", Name: "mitochondrial", Conversion: true, Replication: true, Replicates: replicates, Participants: []metabolic.Participant{
			part("a", "m", metabolic.RoleReactant), part("b", "m", metabolic.RoleProduct),
		}},
	}
	simp := Simplifications{Metabolites: []metabolic.Simplification{{Metabolite: "s"}}}

	// R1 merges into R0 by equal participants; its replicate R3 must follow.
	out := ResolveReactionContext(false, simp, reactions)
	require.Equal(t, []string{"R0"}, ids(out))
	assert.Equal(t, []string{"R0", "R1", "R3"}, out[0].Members)

	delete(reactions, "R0")
	out = ResolveReactionContext(false, simp, reactions)
	require.Equal(t, []string{"R1"}, ids(out))
	assert.Equal(t, []string{"R1", "R3"}, out[0].Members)

	out = ResolveReactionContext(true, simp, reactions)
	assert.Equal(t, []string{"R1", "R3"}, ids(out))
}

func TestParticipantsEqual(t *testing.T) {
	a := []metabolic.Participant{
		{Metabolite: "x", Compartment: "c", Role: metabolic.RoleReactant},
		{Metabolite: "y", Compartment: "c", Role: metabolic.RoleProduct},
	}
	b := []metabolic.Participant{a[1], a[0]}
	c := []metabolic.Participant{a[0], {Metabolite: "y", Compartment: "m", Role: metabolic.RoleProduct}}

	assert.True(t, ParticipantsEqual(a, b))
	assert.False(t, ParticipantsEqual(a, c))
	assert.False(t, ParticipantsEqual(a, a[:1]))
}
