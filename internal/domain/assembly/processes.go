package assembly

import (
	"sort"

	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// ProcessCompartments maps process → metabolite → compartments in which that
// metabolite participates across the process's reactions.
type ProcessCompartments map[string]map[string][]string

// CollectProcessCompartments gathers, for every process, the compartments of
// each participating metabolite.
func CollectProcessCompartments(reactions map[string]metabolic.Reaction) ProcessCompartments {
	collection := make(ProcessCompartments)
	for _, id := range metabolic.SortedKeys(reactions) {
		r := reactions[id]
		for _, process := range r.Processes {
			metabolites, ok := collection[process]
			if !ok {
				metabolites = make(map[string][]string)
				collection[process] = metabolites
			}
			for _, p := range r.Participants {
				metabolites[p.Metabolite] = appendUnique(metabolites[p.Metabolite], p.Compartment)
			}
		}
	}
	return collection
}

// FilterProcessTransports keeps, per process, the metabolites that occur in
// more than one compartment.
func FilterProcessTransports(dispersal ProcessCompartments) ProcessCompartments {
	out := make(ProcessCompartments, len(dispersal))
	for process, metabolites := range dispersal {
		out[process] = make(map[string][]string)
		for metabolite, compartments := range metabolites {
			if len(compartments) > 1 {
				out[process][metabolite] = append([]string(nil), compartments...)
			}
		}
	}
	return out
}

// TransportProcesses returns the processes a reaction serves by transport: a
// process qualifies when one of the reaction's transports shares at least two
// compartments with the process's compartments for that metabolite.
func TransportProcesses(r metabolic.Reaction, transports ProcessCompartments) []string {
	var out []string
	for process, metabolites := range transports {
		for _, t := range r.Transports {
			compartments, ok := metabolites[t.Metabolite]
			if !ok {
				continue
			}
			if len(common(t.Compartments, compartments)) > 1 {
				out = appendUnique(out, process)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// IncludeTransportProcesses adds transport processes to every reaction in
// place. Only Assemble calls it, on reactions it owns.
func IncludeTransportProcesses(reactions map[string]metabolic.Reaction) {
	transports := FilterProcessTransports(CollectProcessCompartments(reactions))
	for id, r := range reactions {
		extra := TransportProcesses(r, transports)
		if len(extra) == 0 {
			continue
		}
		processes := append([]string(nil), r.Processes...)
		for _, p := range extra {
			processes = appendUnique(processes, p)
		}
		r.Processes = processes
		reactions[id] = r
	}
}

func common(a, b []string) []string {
	var out []string
	for _, x := range a {
		if contains(b, x) {
			out = appendUnique(out, x)
		}
	}
	return out
}
