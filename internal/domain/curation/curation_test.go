package curation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MetaboScope/internal/domain/assembly"
	"github.com/turtacn/MetaboScope/internal/domain/cleaning"
	"github.com/turtacn/MetaboScope/internal/domain/diagnostics"
	"github.com/turtacn/MetaboScope/internal/testutil"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

func buildSmall(t *testing.T) metabolic.Model {
	t.Helper()
	return assembly.Build(cleaning.Clean(testutil.SmallModel(), nil), nil)
}

func TestCurate_EmptyChangesReturnModel(t *testing.T) {
	model := buildSmall(t)
	diag := diagnostics.NewCollector(nil)

	out := Curate(model, Changes{}, diag)

	assert.Equal(t, model, out)
	assert.Empty(t, diag.Report().Diagnostics)
}

func TestCurate_RemoveCompartment(t *testing.T) {
	model := buildSmall(t)
	diag := diagnostics.NewCollector(nil)

	out := Curate(model, Changes{Compartments: []Change{{ID: "m", Remove: true}}}, diag)

	assert.NotContains(t, out.Compartments, "m")
	assert.NotContains(t, out.Reactions, "ATPtm")
	assert.NotContains(t, out.Reactions, "ATPMm")
	assert.Len(t, out.Reactions, 4)
	assert.Equal(t, []string{"c"}, out.Metabolites["atp"].Compartments)
	assert.ElementsMatch(t, []string{"HEX1", "ATPM"}, out.Metabolites["atp"].Reactions)

	report := diag.Report()
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, diagnostics.CodeCurationApplied, report.Diagnostics[0].Code)
	assert.Equal(t, "2", report.Diagnostics[0].Context["reactions_removed"])
}

func TestCurate_CopiesInput(t *testing.T) {
	model := buildSmall(t)

	Curate(model, Changes{
		Compartments: []Change{{ID: "m", Remove: true}},
		Metabolites:  []Change{{ID: "h", ReplaceWith: "adp"}},
	}, nil)

	assert.Contains(t, model.Reactions, "ATPtm")
	assert.Contains(t, model.Metabolites, "h")
	assert.Equal(t, []string{"c", "m"}, model.Metabolites["atp"].Compartments)
	assert.Len(t, model.Reactions["HEX1"].Participants, 5)
}

func TestCurate_Processes(t *testing.T) {
	model := buildSmall(t)
	diag := diagnostics.NewCollector(nil)

	out := Curate(model, Changes{Processes: []Change{
		{ID: "P5", Name: "Energy metabolism"},
		{ID: "Transport, mitochondrial", ReplaceWith: "Transport, extracellular"},
		{ID: "P4", Remove: true},
	}}, diag)

	assert.Equal(t, "Energy metabolism", out.Processes["P5"].Name)
	assert.NotContains(t, out.Processes, "P3")
	assert.NotContains(t, out.Processes, "P4")
	assert.Equal(t, []string{"P2"}, out.Reactions["ATPtm"].Processes)
	assert.Equal(t, []string{"P2"}, out.Reactions["GLCt"].Processes)
	assert.Empty(t, out.Reactions["EX_glc"].Processes)
	assert.Equal(t, map[diagnostics.Code]int{diagnostics.CodeCurationApplied: 3}, diag.Report().Counts())
}

func TestCurate_ReplaceMetabolite(t *testing.T) {
	model := buildSmall(t)
	h := model.Metabolites["h"]
	h.References = metabolic.References{"chebi": {"15378"}}
	model.Metabolites["h"] = h
	adp := model.Metabolites["adp"]
	adp.References = metabolic.References{"chebi": {"16761"}, "kegg": {"C00008"}}
	model.Metabolites["adp"] = adp

	out := Curate(model, Changes{Metabolites: []Change{{ID: "h", ReplaceWith: "adp"}}}, nil)

	assert.NotContains(t, out.Metabolites, "h")
	merged := out.Metabolites["adp"]
	assert.Equal(t, metabolic.References{"chebi": {"16761", "15378"}, "kegg": {"C00008"}}, merged.References)
	assert.ElementsMatch(t, []string{"c", "m"}, merged.Compartments)
	assert.ElementsMatch(t, []string{"HEX1", "ATPtm", "ATPM", "ATPMm"}, merged.Reactions)

	atpm := out.Reactions["ATPM"]
	require.Len(t, atpm.Participants, 2)
	assert.Contains(t, atpm.Participants, metabolic.Participant{Metabolite: "adp", Compartment: "c", Role: metabolic.RoleProduct, Coefficient: 2})
	assert.Len(t, out.Reactions["HEX1"].Participants, 4)
}

func TestCurate_RemoveMetaboliteRederivesFlags(t *testing.T) {
	model := buildSmall(t)
	require.True(t, model.Reactions["GLCt"].Transport)

	out := Curate(model, Changes{Metabolites: []Change{{ID: "glc", Remove: true}}}, nil)

	glct := out.Reactions["GLCt"]
	assert.Empty(t, glct.Participants)
	assert.False(t, glct.Transport)
	assert.False(t, glct.Dispersal)
	assert.Empty(t, glct.Transports)
	assert.NotContains(t, out.Metabolites, "glc")
}

func TestCurate_Reactions(t *testing.T) {
	model := buildSmall(t)

	out := Curate(model, Changes{Reactions: []Change{
		{ID: "GLCt", Remove: true},
		{ID: "HEX1", Name: "hexokinase (D-glucose)"},
	}}, nil)

	assert.NotContains(t, out.Reactions, "GLCt")
	assert.Equal(t, "hexokinase (D-glucose)", out.Reactions["HEX1"].Name)
	assert.Equal(t, []string{"HEX1", "EX_glc"}, out.Metabolites["glc"].Reactions)
}

func TestCurate_SkipsUnusableChanges(t *testing.T) {
	tests := []struct {
		name    string
		changes Changes
	}{
		{"unknown compartment", Changes{Compartments: []Change{{ID: "x", Remove: true}}}},
		{"compartment replacement", Changes{Compartments: []Change{{ID: "m", ReplaceWith: "c"}}}},
		{"unknown process", Changes{Processes: []Change{{ID: "P9", Name: "x"}}}},
		{"unknown process replacement", Changes{Processes: []Change{{ID: "P1", ReplaceWith: "Nowhere"}}}},
		{"unknown metabolite replacement", Changes{Metabolites: []Change{{ID: "h", ReplaceWith: "h2o"}}}},
		{"self replacement", Changes{Metabolites: []Change{{ID: "h", ReplaceWith: "h"}}}},
		{"reaction replacement", Changes{Reactions: []Change{{ID: "ATPM", ReplaceWith: "ATPMm"}}}},
		{"no effect", Changes{Reactions: []Change{{ID: "ATPM"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := buildSmall(t)
			diag := diagnostics.NewCollector(nil)

			out := Curate(model, tt.changes, diag)

			assert.Equal(t, map[diagnostics.Code]int{diagnostics.CodeCurationSkipped: 1}, diag.Report().Counts())
			assert.Equal(t, len(model.Reactions), len(out.Reactions))
			assert.Equal(t, len(model.Metabolites), len(out.Metabolites))
			assert.Equal(t, len(model.Processes), len(out.Processes))
		})
	}
}

func TestCurate_EnrichAfterCuration(t *testing.T) {
	model := buildSmall(t)

	out := Curate(model, Changes{Compartments: []Change{{ID: "m", Remove: true}}}, nil)
	assembly.Enrich(out)

	assert.False(t, out.Reactions["ATPM"].Replication)
	assert.Equal(t, []string{"ATPM"}, out.Reactions["ATPM"].Replicates)
}
