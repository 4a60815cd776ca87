package explorer

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/viper"

	"github.com/turtacn/MetaboScope/internal/domain/curation"
	"github.com/turtacn/MetaboScope/pkg/errors"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// DecodeModel parses a model document. Syntax and type errors are reported
// as MODEL_002 and a document without metabolites and reactions as MODEL_003.
func DecodeModel(r io.Reader) (metabolic.RawModel, error) {
	var raw metabolic.RawModel
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return metabolic.RawModel{}, errors.Wrap(err, errors.ErrCodeModelMalformed, "failed to decode model")
	}
	if len(raw.Metabolites) == 0 && len(raw.Reactions) == 0 {
		return metabolic.RawModel{}, errors.New(errors.ErrCodeModelEmpty, "model has no metabolites or reactions")
	}
	return raw, nil
}

// ReadModelFile opens path and decodes it.
func ReadModelFile(path string) (metabolic.RawModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return metabolic.RawModel{}, errors.Wrap(err, errors.ErrCodeModelUnreadable, "failed to open model").WithDetail("path=" + path)
	}
	defer f.Close()

	raw, err := DecodeModel(f)
	if err != nil {
		if ae, ok := err.(*errors.AppError); ok {
			return metabolic.RawModel{}, ae.WithDetail("path=" + path)
		}
		return metabolic.RawModel{}, err
	}
	return raw, nil
}

// ReadCurationFile reads curation changes from a YAML or JSON file, chosen by
// extension. An empty path yields no changes.
func ReadCurationFile(path string) (curation.Changes, error) {
	var changes curation.Changes
	if path == "" {
		return changes, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return curation.Changes{}, errors.Wrap(err, errors.ErrCodeValidation, "failed to read curation file").WithDetail("path=" + path)
	}
	if err := v.Unmarshal(&changes); err != nil {
		return curation.Changes{}, errors.Wrap(err, errors.ErrCodeValidation, "failed to decode curation file").WithDetail("path=" + path)
	}
	return changes, nil
}
