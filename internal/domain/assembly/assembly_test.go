package assembly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MetaboScope/internal/domain/cleaning"
	"github.com/turtacn/MetaboScope/internal/domain/diagnostics"
	"github.com/turtacn/MetaboScope/internal/testutil"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

func assembleSmall(t *testing.T) metabolic.Model {
	t.Helper()
	diag := diagnostics.NewCollector(nil)
	return Assemble(cleaning.Clean(testutil.SmallModel(), diag), diag)
}

func TestAssemble_Processes(t *testing.T) {
	model := assembleSmall(t)

	require.Len(t, model.Processes, 5)
	assert.Equal(t, "Glycolysis", model.Processes["P1"].Name)
	assert.Equal(t, "Energy", model.Processes["P5"].Name)
	assert.Equal(t, []string{"P1"}, model.Reactions["HEX1"].Processes)
}

func TestAssemble_GeneralMetabolites(t *testing.T) {
	model := assembleSmall(t)

	require.Len(t, model.Metabolites, 5)
	glc := model.Metabolites["glc"]
	assert.Equal(t, "D-glucose", glc.Name)
	assert.Equal(t, []string{"c", "e"}, glc.Compartments)
	assert.Equal(t, []string{"HEX1", "GLCt", "EX_glc"}, glc.Reactions)
	assert.ElementsMatch(t, []string{"HEX1", "ATPtm", "ATPM", "ATPMm"}, model.Metabolites["atp"].Reactions)
}

func TestAssemble_ParticipantsFromCoefficientSign(t *testing.T) {
	model := assembleSmall(t)

	glct := model.Reactions["GLCt"]
	require.Len(t, glct.Participants, 2)
	assert.Equal(t, metabolic.Participant{Metabolite: "glc", Compartment: "c", Role: metabolic.RoleProduct, Coefficient: 1}, glct.Participants[0])
	assert.Equal(t, metabolic.Participant{Metabolite: "glc", Compartment: "e", Role: metabolic.RoleReactant, Coefficient: -1}, glct.Participants[1])
}

func TestAssemble_OperationFlags(t *testing.T) {
	model := assembleSmall(t)

	tests := []struct {
		id                              string
		conversion, dispersal, transport bool
	}{
		{"HEX1", true, false, false},
		{"GLCt", false, true, true},
		{"ATPtm", false, true, true},
		{"EX_glc", true, false, false},
		{"ATPM", true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			r := model.Reactions[tt.id]
			assert.Equal(t, tt.conversion, r.Conversion, "conversion")
			assert.Equal(t, tt.dispersal, r.Dispersal, "dispersal")
			assert.Equal(t, tt.transport, r.Transport, "transport")
		})
	}
}

func TestAssemble_Transports(t *testing.T) {
	model := assembleSmall(t)

	assert.Equal(t, []metabolic.Transport{{Metabolite: "glc", Compartments: []string{"c", "e"}}}, model.Reactions["GLCt"].Transports)
	assert.ElementsMatch(t, []metabolic.Transport{
		{Metabolite: "adp", Compartments: []string{"c", "m"}},
		{Metabolite: "atp", Compartments: []string{"c", "m"}},
	}, model.Reactions["ATPtm"].Transports)
}

func TestAssemble_TransportProcesses(t *testing.T) {
	model := assembleSmall(t)

	assert.Equal(t, []string{"P3", "P5"}, model.Reactions["ATPtm"].Processes)
	assert.Equal(t, []string{"P2"}, model.Reactions["GLCt"].Processes)
}

func TestAssemble_Replicates(t *testing.T) {
	model := assembleSmall(t)

	assert.True(t, model.Reactions["ATPM"].Replication)
	assert.Equal(t, []string{"ATPM", "ATPMm"}, model.Reactions["ATPM"].Replicates)
	assert.Equal(t, []string{"ATPM", "ATPMm"}, model.Reactions["ATPMm"].Replicates)
	assert.False(t, model.Reactions["HEX1"].Replication)
	assert.Equal(t, []string{"HEX1"}, model.Reactions["HEX1"].Replicates)
}

func TestCollectTransports_SameCompartmentIsNotTransport(t *testing.T) {
	r := metabolic.Reaction{Participants: []metabolic.Participant{
		{Metabolite: "h", Compartment: "c", Role: metabolic.RoleReactant},
		{Metabolite: "h", Compartment: "c", Role: metabolic.RoleProduct},
		{Metabolite: "a", Compartment: "c", Role: metabolic.RoleReactant},
	}}
	assert.Empty(t, CollectTransports(r))
}

func TestAssemble_ZeroCoefficientSkipped(t *testing.T) {
	diag := diagnostics.NewCollector(nil)
	clean := metabolic.CleanModel{
		Metabolites: []metabolic.MetaboliteRecord{{ID: "a_c", BaseID: "a", Compartment: "c"}},
		Reactions:   []metabolic.ReactionRecord{{ID: "R", Metabolites: map[string]float64{"a_c": 0}}},
	}
	model := Assemble(clean, diag)

	assert.Empty(t, model.Reactions["R"].Participants)
	assert.True(t, diag.Report().Has(diagnostics.CodeParticipantZero))
	assert.True(t, diag.Report().Has(diagnostics.CodeProcessUnassigned))
}

func TestBuild_LeavesEnrichmentToEnrich(t *testing.T) {
	model := Build(cleaning.Clean(testutil.SmallModel(), nil), nil)

	assert.Equal(t, []string{"P3"}, model.Reactions["ATPtm"].Processes)
	assert.Empty(t, model.Reactions["ATPM"].Replicates)
	assert.True(t, model.Reactions["ATPtm"].Transport, "operation flags are set by Build")

	Enrich(model)
	assert.Equal(t, []string{"P3", "P5"}, model.Reactions["ATPtm"].Processes)
	assert.Equal(t, []string{"ATPM", "ATPMm"}, model.Reactions["ATPM"].Replicates)
	assert.Equal(t, assembleSmall(t), model)
}

func TestBuild_GeneralMetaboliteReferences(t *testing.T) {
	clean := metabolic.CleanModel{
		Metabolites: []metabolic.MetaboliteRecord{
			{ID: "glc_c", BaseID: "glc", Compartment: "c", References: metabolic.References{"kegg.compound": {"C00031"}}},
			{ID: "glc_e", BaseID: "glc", Compartment: "e", References: metabolic.References{"chebi": {"CHEBI:4167"}}},
		},
	}
	model := Build(clean, nil)

	assert.Equal(t, metabolic.References{"kegg.compound": {"C00031"}, "chebi": {"CHEBI:4167"}}, model.Metabolites["glc"].References)
}
