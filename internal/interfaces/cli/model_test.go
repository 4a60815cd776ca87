package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MetaboScope/internal/domain/cardinality"
	"github.com/turtacn/MetaboScope/internal/domain/diagnostics"
	"github.com/turtacn/MetaboScope/pkg/errors"
	"github.com/turtacn/MetaboScope/pkg/types/common"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

func TestCleanCmd(t *testing.T) {
	path := writeModel(t)

	out, err := runCLI(t, "clean", path, "-o", "json")
	require.NoError(t, err)

	var res cleanResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 6, res.Reactions)
	assert.Equal(t, 3, res.Compartments)
	assert.Nil(t, res.Model)

	out, err = runCLI(t, "clean", path, "-o", "json", "--emit-model")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotNil(t, res.Model)
	assert.Contains(t, res.Model.Reactions, "HEX1")
}

func TestCleanCmd_Table(t *testing.T) {
	out, err := runCLI(t, "clean", writeModel(t))
	require.NoError(t, err)
	assert.Contains(t, out, "SEVERITY")
	assert.Contains(t, out, "6 reactions")
}

func TestCleanCmd_Errors(t *testing.T) {
	_, err := runCLI(t, "clean", filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelUnreadable))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
	_, err = runCLI(t, "clean", bad)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelMalformed))

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"compartments":{}}`), 0o600))
	_, err = runCLI(t, "clean", empty)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelEmpty))

	_, err = runCLI(t, "clean")
	assert.Error(t, err)
}

func TestCleanCmd_Curation(t *testing.T) {
	curation := filepath.Join(t.TempDir(), "curation.yaml")
	require.NoError(t, os.WriteFile(curation, []byte("compartments:\n  - id: m\n    remove: true\n"), 0o600))

	out, err := runCLI(t, "clean", writeModel(t), "-o", "json", "--curation", curation)
	require.NoError(t, err)

	var res cleanResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 4, res.Reactions)
	assert.Equal(t, 2, res.Compartments)
	assert.True(t, res.Diagnostics.Has(diagnostics.CodeCurationApplied))

	_, err = runCLI(t, "clean", writeModel(t), "--curation", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestFilterCmd_Curation(t *testing.T) {
	curation := filepath.Join(t.TempDir(), "curation.json")
	require.NoError(t, os.WriteFile(curation, []byte(`{"reactions": [{"id": "ATPMm", "remove": true}]}`), 0o600))

	out, err := runCLI(t, "filter", writeModel(t), "-o", "json", "--curation", curation)
	require.NoError(t, err)

	var res filterResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 5, res.Total)
	assert.NotContains(t, res.Records, "ATPMm")
}

func TestFilterCmd_Selection(t *testing.T) {
	out, err := runCLI(t, "filter", writeModel(t), "-o", "json", "--select", "compartments=m")
	require.NoError(t, err)

	var res filterResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, metabolic.EntityReactions, res.Entity)
	assert.Equal(t, 6, res.Total)
	require.Len(t, res.Records, 1)
	assert.Contains(t, res.Records, "ATPMm")
}

func TestFilterCmd_NoFilterKeepsEverything(t *testing.T) {
	out, err := runCLI(t, "filter", writeModel(t), "-o", "json", "-s", "compartments=m", "--no-filter")
	require.NoError(t, err)

	var res filterResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Len(t, res.Records, 6)
}

func TestFilterCmd_BadArguments(t *testing.T) {
	path := writeModel(t)

	_, err := runCLI(t, "filter", path, "--select", "compartments")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	_, err = runCLI(t, "filter", path, "--entity", "genes")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	_, err = runCLI(t, "filter", path, "--select", "colour=red")
	assert.True(t, errors.IsCode(err, errors.ErrCodeSelectionInvalid))
}

func TestSummarizeCmd_SearchAndSort(t *testing.T) {
	out, err := runCLI(t, "summarize", writeModel(t), "-o", "json",
		"--search", "compartments=mito",
		"--sort", "processes=name:asc")
	require.NoError(t, err)

	var res summaryResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Filtered)

	comps, ok := res.Attribute(metabolic.AttributeCompartments)
	require.True(t, ok)
	require.Len(t, comps.Values, 1)
	assert.Equal(t, "m", comps.Values[0].Value)

	procs, ok := res.Attribute(metabolic.AttributeProcesses)
	require.True(t, ok)
	assert.Equal(t, "Energy", procs.Values[0].Name)
}

func TestSummarizeCmd_BadSort(t *testing.T) {
	_, err := runCLI(t, "summarize", writeModel(t), "--sort", "processes=size:asc")
	assert.True(t, errors.IsCode(err, errors.ErrCodeSortInvalid))
}

func TestContextCmd_Simplify(t *testing.T) {
	path := writeModel(t)

	out, err := runCLI(t, "context", path, "-o", "json")
	require.NoError(t, err)
	var full contextResult
	require.NoError(t, json.Unmarshal([]byte(out), &full))
	require.NotEmpty(t, full.Reactions)

	out, err = runCLI(t, "context", path, "-o", "json", "--simplify", "reaction:HEX1")
	require.NoError(t, err)
	var simplified contextResult
	require.NoError(t, json.Unmarshal([]byte(out), &simplified))
	for _, r := range simplified.Reactions {
		assert.NotEqual(t, "HEX1", r.ID)
	}
	assert.Less(t, simplified.Links, full.Links)
}

func TestParseSimplification(t *testing.T) {
	tests := []struct {
		in          string
		entity      metabolic.Entity
		id, compart string
	}{
		{"reaction:HEX1", metabolic.EntityReactions, "HEX1", ""},
		{"h@m", metabolic.EntityMetabolites, "h", "m"},
		{"h", metabolic.EntityMetabolites, "h", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			e, id, c := parseSimplification(tt.in)
			assert.Equal(t, tt.entity, e)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.compart, c)
		})
	}
}

func TestParseSort(t *testing.T) {
	attr, sortBy, err := parseSort("processes=name:asc")
	require.NoError(t, err)
	assert.Equal(t, metabolic.AttributeProcesses, attr)
	assert.Equal(t, cardinality.Sort{Key: cardinality.SortByName, Order: common.SortAsc}, sortBy)

	_, sortBy, err = parseSort("compartments=count")
	require.NoError(t, err)
	assert.Equal(t, common.SortDesc, sortBy.Order)

	_, _, err = parseSort("=count")
	assert.Error(t, err)
}
