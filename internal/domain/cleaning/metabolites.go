package cleaning

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/turtacn/MetaboScope/internal/domain/diagnostics"
	"github.com/turtacn/MetaboScope/internal/domain/extraction"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// nameCorrections fixes known misspellings before names are compared.
var nameCorrections = map[string]string{
	"pentenoylcoa": "pentaenoylcoa",
}

// stereoReplacer collapses (R) and (S) descriptors to a shared token.
var stereoReplacer = strings.NewReplacer("(R)", "(R-S)", "(S)", "(R-S)")

// consensus holds the reconciled fields of one metabolite group.
type consensus struct {
	name       string
	formula    string
	charge     *int
	references metabolic.References
}

// CleanMetabolites groups compartmental records by base identifier,
// reconciles name, formula and charge across each group and emits one record
// per original occurrence carrying the group consensus. Annotations are
// unioned across the group.
func CleanMetabolites(
	raw []metabolic.RawMetabolite,
	compartments []metabolic.Compartment,
	diag *diagnostics.Collector,
) []metabolic.MetaboliteRecord {
	known := make(map[string]struct{}, len(compartments))
	for _, c := range compartments {
		known[c.ID] = struct{}{}
	}

	var order []string
	groups := make(map[string][]metabolic.RawMetabolite)
	for _, m := range raw {
		base, suffix := extraction.SplitMetaboliteID(m.ID)
		if suffix == "" {
			diag.Warn(diagnostics.CodeIdentifierSuffix, "metabolite identifier lacks compartment suffix",
				"metabolite", m.ID)
		} else if m.Compartment != "" && suffix != m.Compartment {
			diag.Warn(diagnostics.CodeIdentifierSuffix, "metabolite suffix disagrees with compartment",
				"metabolite", m.ID, "compartment", m.Compartment)
		}
		if _, ok := known[m.Compartment]; !ok {
			diag.Warn(diagnostics.CodeCompartmentUnknown, "metabolite in undeclared compartment",
				"metabolite", m.ID, "compartment", m.Compartment)
		}
		if _, ok := groups[base]; !ok {
			order = append(order, base)
		}
		groups[base] = append(groups[base], m)
	}

	agreed := make(map[string]consensus, len(groups))
	for _, base := range order {
		group := groups[base]
		agreed[base] = consensus{
			charge:     ConsensusCharge(base, group, diag),
			formula:    ConsensusFormula(base, group, diag),
			name:       ConsensusName(base, group, diag),
			references: ConsensusReferences(group),
		}
	}

	out := make([]metabolic.MetaboliteRecord, 0, len(raw))
	for _, m := range raw {
		base, _ := extraction.SplitMetaboliteID(m.ID)
		c := agreed[base]
		out = append(out, metabolic.MetaboliteRecord{
			ID:          m.ID,
			BaseID:      base,
			Name:        c.name,
			Formula:     c.formula,
			Charge:      c.charge,
			Compartment: m.Compartment,
			References:  c.references,
		})
	}
	return out
}

// ConsensusReferences unions the annotations of every record in the group.
func ConsensusReferences(group []metabolic.RawMetabolite) metabolic.References {
	var out metabolic.References
	for _, m := range group {
		out = out.Merge(m.Annotation)
	}
	return out
}

// ConsensusCharge picks the group's charge. Missing and zero charges do not
// count as values. When nothing counts, the first record's charge is kept.
func ConsensusCharge(base string, group []metabolic.RawMetabolite, diag *diagnostics.Collector) *int {
	var values []int
	for _, m := range group {
		if m.Charge == nil || *m.Charge == 0 {
			continue
		}
		if !containsInt(values, *m.Charge) {
			values = append(values, *m.Charge)
		}
	}
	switch len(values) {
	case 0:
		if len(group) == 0 || group[0].Charge == nil {
			return nil
		}
		v := *group[0].Charge
		return &v
	case 1:
	default:
		diag.Warn(diagnostics.CodeChargeDiscrepancy, "compartmental charges disagree",
			"metabolite", base, "charges", joinInts(values), "chosen", strconv.Itoa(values[0]))
	}
	v := values[0]
	return &v
}

// HasWildcard reports whether formula contains the generic substituent "R".
// An R followed by a lowercase letter is an element symbol (Rb, Ru, ...).
func HasWildcard(formula string) bool {
	runes := []rune(formula)
	for i, r := range runes {
		if r != 'R' {
			continue
		}
		if i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			continue
		}
		return true
	}
	return false
}

// ConsensusFormula picks the group's formula, preferring specific formulas
// over those with the wildcard atom.
func ConsensusFormula(base string, group []metabolic.RawMetabolite, diag *diagnostics.Collector) string {
	var values []string
	for _, m := range group {
		values = appendUnique(values, m.Formula)
	}
	if len(values) <= 1 {
		return first(values)
	}

	var specific, generic []string
	for _, f := range values {
		if HasWildcard(f) {
			generic = append(generic, f)
		} else {
			specific = append(specific, f)
		}
	}
	switch {
	case len(specific) == 1:
		return specific[0]
	case len(specific) > 1:
		diag.Warn(diagnostics.CodeFormulaDiscrepancy, "compartmental formulas disagree",
			"metabolite", base, "formulas", strings.Join(specific, ","), "chosen", specific[0])
		return specific[0]
	default:
		diag.Warn(diagnostics.CodeFormulaGeneric, "only generic formulas available",
			"metabolite", base, "formulas", strings.Join(generic, ","), "chosen", generic[0])
		return generic[0]
	}
}

// CorrectName applies the misspelling table to name.
func CorrectName(name string) string {
	for wrong, right := range nameCorrections {
		name = strings.ReplaceAll(name, wrong, right)
	}
	return name
}

// StripCompartmentSuffix removes a compartment marker for compartment from
// the end of name: "_c", "[c]" or "(c)", with optional leading space.
func StripCompartmentSuffix(name, compartment string) string {
	if compartment == "" {
		return name
	}
	for _, suffix := range []string{"_" + compartment, "[" + compartment + "]", "(" + compartment + ")"} {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSpace(strings.TrimSuffix(name, suffix))
		}
	}
	return name
}

// NormalizeStereo maps (R) and (S) descriptors to (R-S).
func NormalizeStereo(name string) string {
	return stereoReplacer.Replace(name)
}

// ConsensusName picks the group's name. Differing names are repaired first by
// stripping each record's own compartment marker, then by normalizing
// stereochemistry. If neither yields a single name the first is kept.
func ConsensusName(base string, group []metabolic.RawMetabolite, diag *diagnostics.Collector) string {
	corrected := make([]string, len(group))
	var values []string
	for i, m := range group {
		corrected[i] = CorrectName(m.Name)
		if corrected[i] != m.Name {
			diag.Info(diagnostics.CodeNameCorrected, "metabolite name spelling corrected",
				"metabolite", m.ID, "name", m.Name, "corrected", corrected[i])
		}
		values = appendUnique(values, corrected[i])
	}
	if len(values) <= 1 {
		return first(values)
	}

	var stripped []string
	for i, m := range group {
		stripped = appendUnique(stripped, StripCompartmentSuffix(corrected[i], m.Compartment))
	}
	if len(stripped) == 1 {
		diag.Info(diagnostics.CodeNameRepaired, "names reconciled by removing compartment suffix",
			"metabolite", base, "name", stripped[0])
		return stripped[0]
	}

	var stereo []string
	for _, n := range stripped {
		stereo = appendUnique(stereo, NormalizeStereo(n))
	}
	if len(stereo) == 1 {
		diag.Info(diagnostics.CodeNameRepaired, "names reconciled by stereo normalization",
			"metabolite", base, "name", stereo[0])
		return stereo[0]
	}

	diag.Warn(diagnostics.CodeNameDiscrepancy, "compartmental names disagree",
		"metabolite", base, "names", strings.Join(values, "|"), "chosen", values[0])
	return values[0]
}

func appendUnique(values []string, v string) []string {
	if v == "" {
		return values
	}
	for _, x := range values {
		if x == v {
			return values
		}
	}
	return append(values, v)
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
