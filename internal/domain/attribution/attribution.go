// Package attribution derives each entity's attribute sets. Reactions read
// their own fields; metabolites aggregate over the reactions they participate
// in, restricted to the compartments where that metabolite itself appears.
//
// Results are always recomputed from current participation. When a reaction
// disappears from the input, the metabolites that referenced it lose its
// attributes on the next call.
package attribution

import (
	"sort"

	"github.com/turtacn/MetaboScope/internal/domain/extraction"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// AttributeEntities computes the attribute record of every metabolite and
// reaction.
func AttributeEntities(metabolites map[string]metabolic.Metabolite, reactions map[string]metabolic.Reaction) metabolic.AttributeSets {
	sets := metabolic.AttributeSets{
		Metabolites: make(map[string]metabolic.AttributeRecord, len(metabolites)),
		Reactions:   make(map[string]metabolic.AttributeRecord, len(reactions)),
	}
	for id, r := range reactions {
		sets.Reactions[id] = AttributeReaction(r)
	}
	for id, m := range metabolites {
		sets.Metabolites[id] = AttributeMetabolite(m, reactions)
	}
	return sets
}

// Operations returns the operation values of r.
func Operations(r metabolic.Reaction) []string {
	var ops []string
	if r.Conversion {
		ops = append(ops, metabolic.OperationConversion)
	}
	if r.Transport {
		ops = append(ops, metabolic.OperationTransport)
	}
	return ops
}

// Reversibility returns the reversibility value of r.
func Reversibility(r metabolic.Reaction) string {
	if r.Reversibility {
		return metabolic.Reversible
	}
	return metabolic.Irreversible
}

// AttributeReaction derives a reaction's record from its own fields.
func AttributeReaction(r metabolic.Reaction) metabolic.AttributeRecord {
	return metabolic.AttributeRecord{
		ID: r.ID,
		Values: map[metabolic.Attribute][]string{
			metabolic.AttributeCompartments:  sorted(extraction.ReactionCompartments(r)),
			metabolic.AttributeProcesses:     sorted(r.Processes),
			metabolic.AttributeOperations:    sorted(Operations(r)),
			metabolic.AttributeReversibility: {Reversibility(r)},
		},
	}
}

// AttributeMetabolite derives a metabolite's record from the reactions it
// participates in. Reaction identifiers that are absent from reactions, or
// whose participants no longer include the metabolite, contribute nothing.
func AttributeMetabolite(m metabolic.Metabolite, reactions map[string]metabolic.Reaction) metabolic.AttributeRecord {
	own := extraction.Criteria{Metabolites: []string{m.ID}}
	acc := newAccumulator()
	for _, rid := range m.Reactions {
		r, ok := reactions[rid]
		if !ok {
			continue
		}
		compartments := extraction.CompartmentIDs(own, r.Participants)
		if len(compartments) == 0 {
			continue
		}
		acc.add(metabolic.AttributeCompartments, compartments...)
		acc.add(metabolic.AttributeProcesses, r.Processes...)
		acc.add(metabolic.AttributeOperations, Operations(r)...)
		acc.add(metabolic.AttributeReversibility, Reversibility(r))
	}
	return metabolic.AttributeRecord{ID: m.ID, Values: acc.values()}
}

type accumulator map[metabolic.Attribute]map[string]struct{}

func newAccumulator() accumulator {
	acc := make(accumulator, len(metabolic.Attributes))
	for _, a := range metabolic.Attributes {
		acc[a] = make(map[string]struct{})
	}
	return acc
}

func (a accumulator) add(attr metabolic.Attribute, values ...string) {
	for _, v := range values {
		a[attr][v] = struct{}{}
	}
}

func (a accumulator) values() map[metabolic.Attribute][]string {
	out := make(map[metabolic.Attribute][]string, len(a))
	for attr, set := range a {
		list := make([]string, 0, len(set))
		for v := range set {
			list = append(list, v)
		}
		sort.Strings(list)
		out[attr] = list
	}
	return out
}

func sorted(values []string) []string {
	out := append([]string{}, values...)
	sort.Strings(out)
	return out
}
