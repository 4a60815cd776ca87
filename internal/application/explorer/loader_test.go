package explorer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MetaboScope/internal/domain/curation"
	"github.com/turtacn/MetaboScope/internal/testutil"
	"github.com/turtacn/MetaboScope/pkg/errors"
)

const glucoseDoc = `{
  "compartments": {"c": "cytosol", "e": "extracellular"},
  "genes": [{"id": "HGNC:HGNC:5", "name": "G"}],
  "metabolites": [
    {"id": "glc_c", "name": "D-glucose", "formula": "C6H12O6", "charge": 0, "compartment": "c"},
    {"id": "glc_e", "name": "D-glucose", "formula": "C6H12O6", "compartment": "e"}
  ],
  "reactions": [
    {"id": "GLCt", "name": "glucose transport", "subsystem": "Transport", "gene_reaction_rule": "HGNC:5",
     "lower_bound": -1000, "upper_bound": 1000, "metabolites": {"glc_e": -1, "glc_c": 1}}
  ]
}`

func TestDecodeModel(t *testing.T) {
	raw, err := DecodeModel(strings.NewReader(glucoseDoc))
	require.NoError(t, err)

	assert.Equal(t, "cytosol", raw.Compartments["c"])
	require.Len(t, raw.Metabolites, 2)
	require.NotNil(t, raw.Metabolites[0].Charge)
	assert.Equal(t, 0, *raw.Metabolites[0].Charge)
	assert.Nil(t, raw.Metabolites[1].Charge)
	assert.Equal(t, -1.0, raw.Reactions[0].Metabolites["glc_e"])
	assert.Equal(t, "HGNC:5", raw.Reactions[0].GeneReactionRule)
}

func TestDecodeModel_Errors(t *testing.T) {
	_, err := DecodeModel(strings.NewReader(`{"reactions": [`))
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelMalformed))

	_, err = DecodeModel(strings.NewReader(`{"compartments": {"c": "cytosol"}}`))
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelEmpty))
}

func TestReadModelFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	data, err := json.Marshal(testutil.SmallModel())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	raw, err := ReadModelFile(path)
	require.NoError(t, err)
	assert.Len(t, raw.Reactions, 6)

	_, err = ReadModelFile(filepath.Join(dir, "missing.json"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelUnreadable))

	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))
	_, err = ReadModelFile(path)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelMalformed))
	assert.Contains(t, err.Error(), "path=")
}

func TestDecodeModel_Annotation(t *testing.T) {
	doc := `{"metabolites": [{"id": "h_c", "name": "proton", "compartment": "c",
	  "annotation": {"chebi": ["15378", "CHEBI:24636"], "kegg.compound": "C00080", "sbo": 7}}]}`

	raw, err := DecodeModel(strings.NewReader(doc))
	require.NoError(t, err)

	require.Len(t, raw.Metabolites, 1)
	assert.Equal(t, []string{"15378", "CHEBI:24636"}, raw.Metabolites[0].Annotation["chebi"])
	assert.Equal(t, []string{"C00080"}, raw.Metabolites[0].Annotation["kegg.compound"])
	assert.NotContains(t, raw.Metabolites[0].Annotation, "sbo")
}

const curationDoc = `compartments:
  - id: x
    remove: true
processes:
  - id: "Transport, mitochondrial"
    replace_with: "Transport, extracellular"
metabolites:
  - id: h
    name: hydron
reactions:
  - id: ATPMm
    remove: true
`

func TestReadCurationFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "curation.yaml")
	require.NoError(t, os.WriteFile(path, []byte(curationDoc), 0o600))

	changes, err := ReadCurationFile(path)
	require.NoError(t, err)

	assert.Equal(t, curation.Changes{
		Compartments: []curation.Change{{ID: "x", Remove: true}},
		Processes:    []curation.Change{{ID: "Transport, mitochondrial", ReplaceWith: "Transport, extracellular"}},
		Metabolites:  []curation.Change{{ID: "h", Name: "hydron"}},
		Reactions:    []curation.Change{{ID: "ATPMm", Remove: true}},
	}, changes)
}

func TestReadCurationFile_Errors(t *testing.T) {
	changes, err := ReadCurationFile("")
	require.NoError(t, err)
	assert.True(t, changes.Empty())

	_, err = ReadCurationFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	assert.Contains(t, err.Error(), "path=")
}
