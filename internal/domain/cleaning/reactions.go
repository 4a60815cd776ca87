package cleaning

import (
	"strconv"

	"github.com/turtacn/MetaboScope/internal/domain/diagnostics"
	"github.com/turtacn/MetaboScope/internal/domain/extraction"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// BoundMagnitude is the conventional unconstrained flux bound.
const BoundMagnitude = 1000

// IsReversible reports whether bounds allow flux in both directions.
func IsReversible(lower, upper float64) bool {
	return lower < 0 && upper > 0
}

func expectedBound(v float64) bool {
	return v == -BoundMagnitude || v == 0 || v == BoundMagnitude
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CleanReactions corrects gene rules, checks references against the cleaned
// metabolites and genes, checks bounds and derives reversibility. Records are
// kept even when a check fails.
func CleanReactions(
	raw []metabolic.RawReaction,
	metabolites []metabolic.MetaboliteRecord,
	genes []metabolic.Gene,
	diag *diagnostics.Collector,
) []metabolic.ReactionRecord {
	metaboliteIDs := make(map[string]struct{}, len(metabolites))
	for _, m := range metabolites {
		metaboliteIDs[m.ID] = struct{}{}
	}
	geneIDs := make(map[string]struct{}, len(genes))
	for _, g := range genes {
		geneIDs[g.ID] = struct{}{}
	}

	out := make([]metabolic.ReactionRecord, 0, len(raw))
	for _, r := range raw {
		rule := CorrectHGNC(r.GeneReactionRule)

		for _, id := range metabolic.SortedKeys(r.Metabolites) {
			if _, ok := metaboliteIDs[id]; !ok {
				diag.Error(diagnostics.CodeMetaboliteMissing, "reaction references unknown metabolite",
					"reaction", r.ID, "metabolite", id)
			}
		}
		for _, g := range extraction.GeneRuleGenes(rule) {
			if _, ok := geneIDs[g]; !ok {
				diag.Error(diagnostics.CodeGeneMissing, "reaction references unknown gene",
					"reaction", r.ID, "gene", g)
			}
		}
		if len(r.Metabolites) == 0 {
			diag.Warn(diagnostics.CodeReactionEmpty, "reaction has no metabolites", "reaction", r.ID)
		}

		checkBounds(r, diag)

		out = append(out, metabolic.ReactionRecord{
			ID:          r.ID,
			Name:        r.Name,
			Subsystem:   r.Subsystem,
			GeneRule:    rule,
			LowerBound:  r.LowerBound,
			UpperBound:  r.UpperBound,
			Reversible:  IsReversible(r.LowerBound, r.UpperBound),
			Metabolites: copyCoefficients(r.Metabolites),
		})
	}
	return out
}

func checkBounds(r metabolic.RawReaction, diag *diagnostics.Collector) {
	lower, upper := formatBound(r.LowerBound), formatBound(r.UpperBound)
	if !expectedBound(r.LowerBound) || !expectedBound(r.UpperBound) {
		diag.Warn(diagnostics.CodeBoundUnexpected, "reaction bound outside {-1000, 0, 1000}",
			"reaction", r.ID, "lower", lower, "upper", upper)
	}
	if r.LowerBound > 0 || r.UpperBound < 0 {
		diag.Warn(diagnostics.CodeBoundSign, "reaction bounds violate lower <= 0 <= upper",
			"reaction", r.ID, "lower", lower, "upper", upper)
	}
	switch {
	case r.LowerBound == 0 && r.UpperBound == 0:
		diag.Warn(diagnostics.CodeBoundBlocked, "reaction is blocked by zero bounds", "reaction", r.ID)
	case r.UpperBound == 0:
		diag.Warn(diagnostics.CodeBoundUpperZero, "reaction upper bound is zero", "reaction", r.ID,
			"lower", lower)
	}
}

func copyCoefficients(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
