// Package metabolic defines the data model of a genome-scale metabolic model
// as it moves through MetaboScope: raw import records, cleaned records,
// assembled canonical entities and the derived attribute sets.
package metabolic

import (
	"encoding/json"
	"sort"
)

// ─────────────────────────────────────────────────────────────────────────────
// Raw import records (COBRA-style JSON)
// ─────────────────────────────────────────────────────────────────────────────

// RawModel is the decoded input file.
type RawModel struct {
	Compartments map[string]string `json:"compartments"`
	Genes        []RawGene         `json:"genes"`
	Metabolites  []RawMetabolite   `json:"metabolites"`
	Reactions    []RawReaction     `json:"reactions"`
}

// RawGene is a gene record as imported.
type RawGene struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RawMetabolite is one compartment-specific metabolite record. Its ID carries
// the compartment as a trailing "_<code>" suffix.
type RawMetabolite struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Formula     string     `json:"formula"`
	Charge      *int       `json:"charge,omitempty"`
	Compartment string     `json:"compartment"`
	Annotation  References `json:"annotation,omitempty"`
}

// RawReaction is a reaction record as imported. Metabolites maps a
// compartment-specific metabolite ID to its stoichiometric coefficient;
// negative coefficients are consumed, positive ones produced.
type RawReaction struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Subsystem        string             `json:"subsystem"`
	GeneReactionRule string             `json:"gene_reaction_rule"`
	LowerBound       float64            `json:"lower_bound"`
	UpperBound       float64            `json:"upper_bound"`
	Metabolites      map[string]float64 `json:"metabolites"`
}

// References maps a database namespace to identifiers, for example
// "kegg.compound" to ["C00031"].
type References map[string][]string

// UnmarshalJSON accepts a single string where a list is expected, as model
// annotations often carry one. Values of any other shape are dropped.
func (r *References) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		*r = nil
		return nil
	}
	out := make(References, len(fields))
	for ns, v := range fields {
		var list []string
		if err := json.Unmarshal(v, &list); err == nil {
			if len(list) > 0 {
				out[ns] = list
			}
			continue
		}
		var one string
		if err := json.Unmarshal(v, &one); err == nil && one != "" {
			out[ns] = []string{one}
		}
	}
	*r = out
	return nil
}

// Merge returns the union of r and other. Identifiers keep first-seen order
// and neither input is modified. The result is nil when both are empty.
func (r References) Merge(other References) References {
	if len(r) == 0 && len(other) == 0 {
		return nil
	}
	out := make(References, len(r)+len(other))
	for _, refs := range []References{r, other} {
		for ns, ids := range refs {
			for _, id := range ids {
				if !containsString(out[ns], id) {
					out[ns] = append(out[ns], id)
				}
			}
		}
	}
	return out
}

// Flatten returns every reference as "namespace:identifier", sorted.
func (r References) Flatten() []string {
	var out []string
	for ns, ids := range r {
		for _, id := range ids {
			out = append(out, ns+":"+id)
		}
	}
	sort.Strings(out)
	return out
}

func containsString(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// IntPtr returns a pointer to v. Handy for building raw charges.
func IntPtr(v int) *int { return &v }
