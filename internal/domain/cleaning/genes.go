package cleaning

import (
	"strings"

	"github.com/turtacn/MetaboScope/internal/domain/diagnostics"
	"github.com/turtacn/MetaboScope/internal/domain/extraction"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

const hgncPrefix = "HGNC:"

// CorrectHGNC collapses repeated "HGNC:" prefixes to a single one.
func CorrectHGNC(s string) string {
	doubled := hgncPrefix + hgncPrefix
	for strings.Contains(s, doubled) {
		s = strings.ReplaceAll(s, doubled, hgncPrefix)
	}
	return s
}

// CleanGenes corrects gene identifiers and reports genes that no reaction's
// gene rule references. Orphaned genes are kept.
func CleanGenes(raw []metabolic.RawGene, reactions []metabolic.RawReaction, diag *diagnostics.Collector) []metabolic.Gene {
	referenced := make(map[string]struct{})
	for _, r := range reactions {
		for _, g := range extraction.GeneRuleGenes(CorrectHGNC(r.GeneReactionRule)) {
			referenced[g] = struct{}{}
		}
	}

	out := make([]metabolic.Gene, 0, len(raw))
	for _, g := range raw {
		id := CorrectHGNC(g.ID)
		if id != g.ID {
			diag.Info(diagnostics.CodeIdentifierRepaired, "gene identifier corrected",
				"gene", g.ID, "corrected", id)
		}
		if _, ok := referenced[id]; !ok {
			diag.Warn(diagnostics.CodeGeneOrphan, "gene not referenced by any reaction", "gene", id)
		}
		out = append(out, metabolic.Gene{ID: id, Name: g.Name})
	}
	return out
}
