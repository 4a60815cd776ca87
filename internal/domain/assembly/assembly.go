// Package assembly turns a CleanModel into canonical entities: processes,
// compartment-independent metabolites and reactions with participants,
// operation flags, transports, transport processes and replicate groups.
package assembly

import (
	"fmt"
	"sort"
	"strings"

	"github.com/turtacn/MetaboScope/internal/domain/diagnostics"
	"github.com/turtacn/MetaboScope/internal/domain/extraction"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// Assemble builds the canonical Model from clean. A nil collector discards
// diagnostics.
func Assemble(clean metabolic.CleanModel, diag *diagnostics.Collector) metabolic.Model {
	model := Build(clean, diag)
	Enrich(model)
	return model
}

// Build creates processes, general metabolites and reactions with their
// operation flags. Transport processes and replicate groups are left to
// Enrich, so edits to the reaction set can happen in between.
func Build(clean metabolic.CleanModel, diag *diagnostics.Collector) metabolic.Model {
	if diag == nil {
		diag = diagnostics.NewCollector(nil)
	}
	model := metabolic.NewModel()

	for _, c := range clean.Compartments {
		model.Compartments[c.ID] = c
	}
	for _, g := range clean.Genes {
		model.Genes[g.ID] = g
	}

	processIDs := AssignProcesses(clean.Reactions)
	for name, id := range processIDs {
		model.Processes[id] = metabolic.Process{ID: id, Name: name}
	}

	records := make(map[string]metabolic.MetaboliteRecord, len(clean.Metabolites))
	for _, m := range clean.Metabolites {
		records[m.ID] = m
		general, ok := model.Metabolites[m.BaseID]
		if !ok {
			general = metabolic.Metabolite{
				ID:      m.BaseID,
				Name:    m.Name,
				Formula: m.Formula,
				Charge:  m.Charge,
			}
		}
		general.Compartments = appendUnique(general.Compartments, m.Compartment)
		general.References = general.References.Merge(m.References)
		model.Metabolites[m.BaseID] = general
	}

	for _, r := range clean.Reactions {
		reaction := buildReaction(r, records, processIDs, diag)
		model.Reactions[reaction.ID] = reaction
		for _, metabolite := range extraction.MetaboliteIDs(extraction.Criteria{}, reaction.Participants) {
			general, ok := model.Metabolites[metabolite]
			if !ok {
				continue
			}
			general.Reactions = appendUnique(general.Reactions, reaction.ID)
			model.Metabolites[metabolite] = general
		}
	}

	return model
}

// Enrich adds transport processes and replicate groups to every reaction of
// model, in place.
func Enrich(model metabolic.Model) {
	IncludeTransportProcesses(model.Reactions)
	IncludeReplicates(model.Reactions)
}

// AssignProcesses gives each distinct non-empty subsystem an identifier
// "P1", "P2", ... in order of first appearance. It returns name → id.
func AssignProcesses(reactions []metabolic.ReactionRecord) map[string]string {
	ids := make(map[string]string)
	for _, r := range reactions {
		name := strings.TrimSpace(r.Subsystem)
		if name == "" {
			continue
		}
		if _, ok := ids[name]; !ok {
			ids[name] = fmt.Sprintf("P%d", len(ids)+1)
		}
	}
	return ids
}

func buildReaction(
	r metabolic.ReactionRecord,
	records map[string]metabolic.MetaboliteRecord,
	processIDs map[string]string,
	diag *diagnostics.Collector,
) metabolic.Reaction {
	reaction := metabolic.Reaction{
		ID:            r.ID,
		Name:          r.Name,
		Genes:         extraction.GeneRuleGenes(r.GeneRule),
		LowerBound:    r.LowerBound,
		UpperBound:    r.UpperBound,
		Reversibility: r.Reversible,
		Processes:     []string{},
	}
	if id, ok := processIDs[strings.TrimSpace(r.Subsystem)]; ok {
		reaction.Processes = append(reaction.Processes, id)
	} else {
		diag.Info(diagnostics.CodeProcessUnassigned, "reaction has no process", "reaction", r.ID)
	}

	for _, id := range metabolic.SortedKeys(r.Metabolites) {
		coefficient := r.Metabolites[id]
		if coefficient == 0 {
			diag.Warn(diagnostics.CodeParticipantZero, "participant with zero coefficient skipped",
				"reaction", r.ID, "metabolite", id)
			continue
		}
		base, compartment := extraction.SplitMetaboliteID(id)
		if rec, ok := records[id]; ok {
			base, compartment = rec.BaseID, rec.Compartment
		}
		role := metabolic.RoleProduct
		if coefficient < 0 {
			role = metabolic.RoleReactant
		}
		reaction.Participants = append(reaction.Participants, metabolic.Participant{
			Metabolite:  base,
			Compartment: compartment,
			Role:        role,
			Coefficient: coefficient,
		})
	}

	return DeriveBehavior(reaction)
}

// DeriveBehavior returns r with conversion, dispersal and transports
// recomputed from its participants.
func DeriveBehavior(r metabolic.Reaction) metabolic.Reaction {
	r.Conversion = DetermineConversion(r)
	r.Dispersal = DetermineDispersal(r)
	r.Transports = CollectTransports(r)
	r.Transport = len(r.Transports) > 0
	return r
}

// DetermineConversion reports whether the reaction changes chemical identity:
// its reactant and product metabolite sets differ.
func DetermineConversion(r metabolic.Reaction) bool {
	return !extraction.SameSet(extraction.Reactants(r), extraction.Products(r))
}

// DetermineDispersal reports whether the reaction's participants span more
// than one compartment.
func DetermineDispersal(r metabolic.Reaction) bool {
	return len(extraction.ReactionCompartments(r)) > 1
}

// CollectTransports finds metabolites that appear as both reactant and
// product in different compartment sets. Each transport lists the union of
// those compartments, sorted.
func CollectTransports(r metabolic.Reaction) []metabolic.Transport {
	reactants := extraction.Reactants(r)
	products := extraction.Products(r)

	var transports []metabolic.Transport
	for _, metabolite := range reactants {
		if !contains(products, metabolite) {
			continue
		}
		from := extraction.CompartmentIDs(extraction.Criteria{
			Metabolites: []string{metabolite},
			Roles:       []metabolic.Role{metabolic.RoleReactant},
		}, r.Participants)
		to := extraction.CompartmentIDs(extraction.Criteria{
			Metabolites: []string{metabolite},
			Roles:       []metabolic.Role{metabolic.RoleProduct},
		}, r.Participants)
		if extraction.SameSet(from, to) {
			continue
		}
		compartments := append([]string(nil), from...)
		for _, c := range to {
			compartments = appendUnique(compartments, c)
		}
		sort.Strings(compartments)
		transports = append(transports, metabolic.Transport{Metabolite: metabolite, Compartments: compartments})
	}
	return transports
}

func appendUnique(values []string, v string) []string {
	if contains(values, v) {
		return values
	}
	return append(values, v)
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
