// Package relevance resolves which reactions belong in the network context
// given the compartmentalization flag and the user's simplifications, and
// collapses replicate reactions to a single consensus representative.
package relevance

import (
	"sort"

	"github.com/turtacn/MetaboScope/internal/domain/extraction"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// Simplifications are entities hidden from the network but kept in the model.
type Simplifications struct {
	Reactions   []string                   `json:"reactions"`
	Metabolites []metabolic.Simplification `json:"metabolites"`
}

// ContextReaction is a reaction as it participates in the network: surviving
// participants only, possibly merged from several replicate reactions.
type ContextReaction struct {
	metabolic.Reaction
	// Members lists the reactions merged into this one, itself first.
	Members []string `json:"members"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Participants
// ─────────────────────────────────────────────────────────────────────────────

// Simplified reports whether p matches a simplification. Without
// compartmentalization only the metabolite is compared.
func Simplified(p metabolic.Participant, simplifications []metabolic.Simplification, compartmentalization bool) bool {
	for _, s := range simplifications {
		if s.Metabolite != p.Metabolite {
			continue
		}
		if !compartmentalization || s.Compartment == "" || s.Compartment == p.Compartment {
			return true
		}
	}
	return false
}

// SurvivingParticipants returns r's participants that are not simplified.
func SurvivingParticipants(r metabolic.Reaction, simplifications []metabolic.Simplification, compartmentalization bool) []metabolic.Participant {
	out := make([]metabolic.Participant, 0, len(r.Participants))
	for _, p := range r.Participants {
		if !Simplified(p, simplifications, compartmentalization) {
			out = append(out, p)
		}
	}
	return out
}

// ParticipantsEqual reports whether every participant of a has a match in b
// with the same metabolite, compartment and role, and vice versa.
func ParticipantsEqual(a, b []metabolic.Participant) bool {
	return includes(a, b) && includes(b, a)
}

func includes(a, b []metabolic.Participant) bool {
	for _, p := range a {
		found := false
		for _, q := range b {
			if p.Metabolite == q.Metabolite && p.Compartment == q.Compartment && p.Role == q.Role {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ─────────────────────────────────────────────────────────────────────────────
// Relevance
// ─────────────────────────────────────────────────────────────────────────────

var (
	reactantsOnly = []metabolic.Role{metabolic.RoleReactant}
	productsOnly  = []metabolic.Role{metabolic.RoleProduct}
)

// ConversionRelevant reports whether participants keep at least one reactant
// and one product.
func ConversionRelevant(participants []metabolic.Participant) bool {
	reactants := extraction.MetaboliteIDs(extraction.Criteria{Roles: reactantsOnly}, participants)
	products := extraction.MetaboliteIDs(extraction.Criteria{Roles: productsOnly}, participants)
	return len(reactants) > 0 && len(products) > 0
}

// TransportRelevant reports whether, with compartmentalization on, one of r's
// transports still has a reactant and a product of its metabolite in
// different compartments among participants.
func TransportRelevant(r metabolic.Reaction, participants []metabolic.Participant, compartmentalization bool) bool {
	if !compartmentalization {
		return false
	}
	for _, t := range r.Transports {
		metabolite := []string{t.Metabolite}
		from := extraction.CompartmentIDs(extraction.Criteria{Metabolites: metabolite, Roles: reactantsOnly}, participants)
		to := extraction.CompartmentIDs(extraction.Criteria{Metabolites: metabolite, Roles: productsOnly}, participants)
		for _, a := range from {
			for _, b := range to {
				if a != b {
					return true
				}
			}
		}
	}
	return false
}

// IsRelevant combines the conversion and transport rules for r.
func IsRelevant(r metabolic.Reaction, participants []metabolic.Participant, compartmentalization bool) bool {
	if r.Conversion && ConversionRelevant(participants) {
		return true
	}
	return r.Transport && TransportRelevant(r, participants, compartmentalization)
}

// ─────────────────────────────────────────────────────────────────────────────
// Context resolution
// ─────────────────────────────────────────────────────────────────────────────

// ResolveReactionContext returns the relevant reactions in identifier order.
//
// Simplified reactions are skipped and simplified participants removed.
// Reactions that are no longer relevant are dropped. Without
// compartmentalization, replicates collapse onto their lowest identifier.
// Any reaction whose participants equal an already accepted one is merged
// into it as well.
func ResolveReactionContext(compartmentalization bool, simp Simplifications, reactions map[string]metabolic.Reaction) []ContextReaction {
	excluded := make(map[string]struct{}, len(simp.Reactions))
	for _, id := range simp.Reactions {
		excluded[id] = struct{}{}
	}

	var accepted []ContextReaction
	groups := make(map[string]int)
	for _, id := range metabolic.SortedKeys(reactions) {
		if _, skip := excluded[id]; skip {
			continue
		}
		r := reactions[id]
		participants := SurvivingParticipants(r, simp.Metabolites, compartmentalization)
		if !IsRelevant(r, participants, compartmentalization) {
			continue
		}
		candidate := newContextReaction(r, participants)

		group := id
		if len(r.Replicates) > 0 {
			group = r.Replicates[0]
		}
		if !compartmentalization {
			if i, ok := groups[group]; ok {
				accepted[i] = Merge(accepted[i], candidate)
				continue
			}
		}
		if i := indexOfEqual(accepted, candidate); i >= 0 {
			accepted[i] = Merge(accepted[i], candidate)
			if _, seen := groups[group]; !seen && !compartmentalization {
				groups[group] = i
			}
			continue
		}
		if !compartmentalization {
			groups[group] = len(accepted)
		}
		accepted = append(accepted, candidate)
	}
	return accepted
}

func indexOfEqual(accepted []ContextReaction, candidate ContextReaction) int {
	for i, cr := range accepted {
		if ParticipantsEqual(cr.Participants, candidate.Participants) {
			return i
		}
	}
	return -1
}

func newContextReaction(r metabolic.Reaction, participants []metabolic.Participant) ContextReaction {
	cr := ContextReaction{Reaction: r, Members: []string{r.ID}}
	cr.Participants = append([]metabolic.Participant(nil), participants...)
	cr.Genes = append([]string(nil), r.Genes...)
	cr.Processes = append([]string(nil), r.Processes...)
	cr.Replicates = append([]string(nil), r.Replicates...)
	cr.Transports = make([]metabolic.Transport, len(r.Transports))
	for i, t := range r.Transports {
		cr.Transports[i] = metabolic.Transport{Metabolite: t.Metabolite, Compartments: append([]string(nil), t.Compartments...)}
	}
	return cr
}

// Merge folds other into rep and returns the consensus. rep keeps its
// identifier. The shortest name wins, with ties kept by rep. Lists are
// unioned and booleans are ORed.
func Merge(rep, other ContextReaction) ContextReaction {
	out := newContextReaction(rep.Reaction, rep.Participants)
	out.Members = append(append([]string(nil), rep.Members...), other.Members...)

	if len(other.Name) < len(out.Name) {
		out.Name = other.Name
	}
	for _, p := range other.Participants {
		if !includes([]metabolic.Participant{p}, out.Participants) {
			out.Participants = append(out.Participants, p)
		}
	}
	out.Genes = union(out.Genes, other.Genes)
	out.Processes = union(out.Processes, other.Processes)
	out.Replicates = union(out.Replicates, other.Replicates)
	out.Transports = mergeTransports(out.Transports, other.Transports)

	if other.LowerBound < out.LowerBound {
		out.LowerBound = other.LowerBound
	}
	if other.UpperBound > out.UpperBound {
		out.UpperBound = other.UpperBound
	}
	out.Reversibility = out.Reversibility || other.Reversibility
	out.Conversion = out.Conversion || other.Conversion
	out.Transport = out.Transport || other.Transport
	out.Dispersal = out.Dispersal || other.Dispersal
	out.Replication = out.Replication || other.Replication
	return out
}

func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func mergeTransports(a, b []metabolic.Transport) []metabolic.Transport {
	out := append([]metabolic.Transport(nil), a...)
	for _, t := range b {
		merged := false
		for i := range out {
			if out[i].Metabolite == t.Metabolite {
				out[i].Compartments = union(out[i].Compartments, t.Compartments)
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, metabolic.Transport{Metabolite: t.Metabolite, Compartments: append([]string(nil), t.Compartments...)})
		}
	}
	return out
}
