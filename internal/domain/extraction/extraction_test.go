package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

var translocase = metabolic.Reaction{
	ID: "ATPtm",
	Participants: []metabolic.Participant{
		{Metabolite: "atp", Compartment: "c", Role: metabolic.RoleReactant, Coefficient: -1},
		{Metabolite: "adp", Compartment: "m", Role: metabolic.RoleReactant, Coefficient: -1},
		{Metabolite: "atp", Compartment: "m", Role: metabolic.RoleProduct, Coefficient: 1},
		{Metabolite: "adp", Compartment: "c", Role: metabolic.RoleProduct, Coefficient: 1},
	},
}

func TestFilterParticipants_AndAcrossOrWithin(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		want     int
	}{
		{"empty accepts all", Criteria{}, 4},
		{"one metabolite", Criteria{Metabolites: []string{"atp"}}, 2},
		{"or within metabolites", Criteria{Metabolites: []string{"atp", "adp"}}, 4},
		{"and across dimensions", Criteria{Metabolites: []string{"atp"}, Compartments: []string{"m"}}, 1},
		{"and with role", Criteria{Metabolites: []string{"atp"}, Roles: []metabolic.Role{metabolic.RoleReactant}}, 1},
		{"no match", Criteria{Compartments: []string{"x"}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, FilterParticipants(tt.criteria, translocase.Participants), tt.want)
		})
	}
}

func TestFilterParticipants_DoesNotMutateInput(t *testing.T) {
	before := append([]metabolic.Participant(nil), translocase.Participants...)
	_ = FilterParticipants(Criteria{Compartments: []string{"c"}}, translocase.Participants)
	assert.Equal(t, before, translocase.Participants)
}

func TestUniqueValues(t *testing.T) {
	assert.Equal(t, []string{"atp", "adp"}, MetaboliteIDs(Criteria{}, translocase.Participants))
	assert.Equal(t, []string{"c", "m"}, ReactionCompartments(translocase))
	assert.Equal(t, []string{"m"}, CompartmentIDs(Criteria{Metabolites: []string{"atp"}, Roles: []metabolic.Role{metabolic.RoleProduct}}, translocase.Participants))
	assert.Equal(t, []string{"atp", "adp"}, Reactants(translocase))
	assert.Equal(t, []string{"atp", "adp"}, Products(translocase))
}

func TestGeneRuleGenes(t *testing.T) {
	assert.Equal(t, []string{"HGNC:10", "HGNC:20"}, GeneRuleGenes("(HGNC:10 or HGNC:20) and HGNC:10"))
	assert.Empty(t, GeneRuleGenes(""))
	assert.Empty(t, GeneRuleGenes("and or"))
}

func TestSplitMetaboliteID(t *testing.T) {
	base, comp := SplitMetaboliteID("glc_D_c")
	assert.Equal(t, "glc_D", base)
	assert.Equal(t, "c", comp)

	base, comp = SplitMetaboliteID("glc")
	assert.Equal(t, "glc", base)
	assert.Empty(t, comp)
}

func TestSameSet(t *testing.T) {
	assert.True(t, SameSet([]string{"a", "b"}, []string{"b", "a", "a"}))
	assert.False(t, SameSet([]string{"a"}, []string{"a", "b"}))
	assert.True(t, SameSet(nil, nil))
}
