package assembly

import (
	"sort"
	"strings"

	"github.com/turtacn/MetaboScope/internal/domain/extraction"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// CollectReplicates groups reactions whose reactant metabolite set and product
// metabolite set are identical, ignoring compartments. Each group is sorted by
// identifier and groups are ordered by their first member.
func CollectReplicates(reactions map[string]metabolic.Reaction) [][]string {
	index := make(map[string]int)
	var groups [][]string
	for _, id := range metabolic.SortedKeys(reactions) {
		key := reactionMetaboliteKey(reactions[id])
		if i, ok := index[key]; ok {
			groups[i] = append(groups[i], id)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, []string{id})
	}
	for _, g := range groups {
		sort.Strings(g)
	}
	return groups
}

// IncludeReplicates records every reaction's replicate group and whether it
// is replicated, in place.
func IncludeReplicates(reactions map[string]metabolic.Reaction) {
	for _, group := range CollectReplicates(reactions) {
		for _, id := range group {
			r := reactions[id]
			r.Replicates = append([]string(nil), group...)
			r.Replication = len(group) > 1
			reactions[id] = r
		}
	}
}

// reactionMetaboliteKey identifies a reaction's chemistry independent of
// compartments. Equal keys mean mutually inclusive reactant and product sets.
func reactionMetaboliteKey(r metabolic.Reaction) string {
	reactants := extraction.Reactants(r)
	products := extraction.Products(r)
	sort.Strings(reactants)
	sort.Strings(products)
	return strings.Join(reactants, "+") + "=>" + strings.Join(products, "+")
}
