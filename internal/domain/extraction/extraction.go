// Package extraction holds pure read-side helpers over reaction and
// metabolite records: participant filtering, identifier parsing and
// gene-rule tokenization. Nothing here logs or mutates its inputs.
package extraction

import (
	"strings"

	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// Criteria restricts participants. Dimensions are combined with AND; values
// within one dimension are combined with OR. An empty dimension accepts all.
type Criteria struct {
	Metabolites  []string
	Compartments []string
	Roles        []metabolic.Role
}

func contains[T comparable](values []T, v T) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// Accepts reports whether p satisfies every dimension of c.
func (c Criteria) Accepts(p metabolic.Participant) bool {
	if len(c.Metabolites) > 0 && !contains(c.Metabolites, p.Metabolite) {
		return false
	}
	if len(c.Compartments) > 0 && !contains(c.Compartments, p.Compartment) {
		return false
	}
	if len(c.Roles) > 0 && !contains(c.Roles, p.Role) {
		return false
	}
	return true
}

// FilterParticipants returns the participants accepted by c, in input order.
func FilterParticipants(c Criteria, participants []metabolic.Participant) []metabolic.Participant {
	out := make([]metabolic.Participant, 0, len(participants))
	for _, p := range participants {
		if c.Accepts(p) {
			out = append(out, p)
		}
	}
	return out
}

// MetaboliteIDs returns the unique metabolites of accepted participants in
// first-seen order.
func MetaboliteIDs(c Criteria, participants []metabolic.Participant) []string {
	return uniqueValues(c, participants, func(p metabolic.Participant) string { return p.Metabolite })
}

// CompartmentIDs returns the unique compartments of accepted participants in
// first-seen order.
func CompartmentIDs(c Criteria, participants []metabolic.Participant) []string {
	return uniqueValues(c, participants, func(p metabolic.Participant) string { return p.Compartment })
}

func uniqueValues(c Criteria, participants []metabolic.Participant, key func(metabolic.Participant) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range participants {
		if !c.Accepts(p) {
			continue
		}
		v := key(p)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ReactionCompartments returns the compartments touched by r's participants.
func ReactionCompartments(r metabolic.Reaction) []string {
	return CompartmentIDs(Criteria{}, r.Participants)
}

// Reactants returns the unique reactant metabolites of r.
func Reactants(r metabolic.Reaction) []string {
	return MetaboliteIDs(Criteria{Roles: []metabolic.Role{metabolic.RoleReactant}}, r.Participants)
}

// Products returns the unique product metabolites of r.
func Products(r metabolic.Reaction) []string {
	return MetaboliteIDs(Criteria{Roles: []metabolic.Role{metabolic.RoleProduct}}, r.Participants)
}

// GeneRuleGenes returns the gene identifiers referenced by a gene-reaction
// rule. Parentheses are stripped, the rule is split on whitespace and only
// tokens containing ":" are kept, which drops the "and"/"or" operators.
func GeneRuleGenes(rule string) []string {
	cleaned := strings.NewReplacer("(", " ", ")", " ").Replace(rule)
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range strings.Fields(cleaned) {
		if !strings.Contains(tok, ":") {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// SplitMetaboliteID splits a compartment-specific identifier into its base
// identifier and compartment suffix, at the final underscore. An identifier
// without an underscore is returned whole with an empty suffix.
func SplitMetaboliteID(id string) (base, compartment string) {
	i := strings.LastIndex(id, "_")
	if i < 0 {
		return id, ""
	}
	return id[:i], id[i+1:]
}

// SameSet reports whether a and b hold the same elements, by mutual inclusion.
func SameSet(a, b []string) bool {
	for _, x := range a {
		if !contains(b, x) {
			return false
		}
	}
	for _, x := range b {
		if !contains(a, x) {
			return false
		}
	}
	return true
}
