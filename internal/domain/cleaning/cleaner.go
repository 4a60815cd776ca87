// Package cleaning normalizes a raw imported model into a CleanModel.
//
// Cleaning never fails. Malformed records pass through with a best-effort
// repair and every anomaly is reported to the diagnostics collector. Names
// and identifiers are corrected; numeric bounds are never rewritten.
package cleaning

import (
	"github.com/turtacn/MetaboScope/internal/domain/diagnostics"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// Clean runs every cleaning step over raw. A nil collector discards
// diagnostics.
func Clean(raw metabolic.RawModel, diag *diagnostics.Collector) metabolic.CleanModel {
	if diag == nil {
		diag = diagnostics.NewCollector(nil)
	}

	compartments := CleanCompartments(raw.Compartments, diag)
	genes := CleanGenes(raw.Genes, raw.Reactions, diag)
	metabolites := CleanMetabolites(raw.Metabolites, compartments, diag)
	reactions := CleanReactions(raw.Reactions, metabolites, genes, diag)

	return metabolic.CleanModel{
		Compartments: compartments,
		Genes:        genes,
		Metabolites:  metabolites,
		Reactions:    reactions,
	}
}
