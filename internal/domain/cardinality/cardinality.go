// Package cardinality tallies attribute values over an entity population and
// prepares sorted, searchable summaries for display.
package cardinality

import (
	"sort"
	"strings"

	"github.com/turtacn/MetaboScope/pkg/types/common"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// SortKey chooses what a value list is ordered by.
type SortKey string

const (
	SortByCount SortKey = "count"
	SortByName  SortKey = "name"
)

// Valid reports whether k is a known sort key.
func (k SortKey) Valid() bool {
	return k == SortByCount || k == SortByName
}

// Sort is the sort specification of one attribute.
type Sort struct {
	Key   SortKey          `json:"key"`
	Order common.SortOrder `json:"order"`
}

// DefaultSort orders by descending count.
var DefaultSort = Sort{Key: SortByCount, Order: common.SortDesc}

// NameFunc resolves the display name of an attribute value.
type NameFunc func(attr metabolic.Attribute, value string) string

// ValueCount is the tally of one attribute value.
type ValueCount struct {
	Value string `json:"value"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// AttributeSummary is the display-ready summary of one attribute.
type AttributeSummary struct {
	Attribute metabolic.Attribute `json:"attribute"`
	Max       int                 `json:"max"`
	Total     int                 `json:"total"`
	Search    string              `json:"search,omitempty"`
	Sort      Sort                `json:"sort"`
	Values    []ValueCount        `json:"values"`
}

// Summary covers every attribute of one entity population.
type Summary struct {
	Entity     metabolic.Entity   `json:"entity"`
	Entities   int                `json:"entities"`
	Attributes []AttributeSummary `json:"attributes"`
}

// Attribute returns the summary of attr, if present.
func (s Summary) Attribute(attr metabolic.Attribute) (AttributeSummary, bool) {
	for _, a := range s.Attributes {
		if a.Attribute == attr {
			return a, true
		}
	}
	return AttributeSummary{}, false
}

// Tally counts, for attr, how many records exhibit each value. A record with
// N values contributes to N tallies.
func Tally(records map[string]metabolic.AttributeRecord, attr metabolic.Attribute) map[string]int {
	counts := make(map[string]int)
	for _, rec := range records {
		for _, v := range rec.Values[attr] {
			counts[v]++
		}
	}
	return counts
}

// Max returns the largest count, or zero.
func Max(counts map[string]int) int {
	max := 0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}
	return max
}

// Search keeps values whose display name contains query, ignoring case. An
// empty query, or one that matches nothing, returns values unchanged.
func Search(values []ValueCount, query string) []ValueCount {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return values
	}
	var out []ValueCount
	for _, v := range values {
		if strings.Contains(strings.ToLower(v.Name), query) {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return values
	}
	return out
}

// SortValues orders values in place according to sortBy. Ties fall back to
// the value identifier.
func SortValues(values []ValueCount, sortBy Sort) {
	desc := sortBy.Order == common.SortDesc
	sort.SliceStable(values, func(i, j int) bool {
		a, b := values[i], values[j]
		switch sortBy.Key {
		case SortByName:
			an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
			if an != bn {
				if desc {
					return an > bn
				}
				return an < bn
			}
		default:
			if a.Count != b.Count {
				if desc {
					return a.Count > b.Count
				}
				return a.Count < b.Count
			}
		}
		return a.Value < b.Value
	})
}

// Summarize builds the summary of records for every attribute. searches and
// sorts are keyed by attribute; missing entries mean no search and
// DefaultSort. A nil names resolves every value to itself.
func Summarize(
	entity metabolic.Entity,
	records map[string]metabolic.AttributeRecord,
	names NameFunc,
	searches map[metabolic.Attribute]string,
	sorts map[metabolic.Attribute]Sort,
) Summary {
	if names == nil {
		names = func(_ metabolic.Attribute, value string) string { return value }
	}
	summary := Summary{Entity: entity, Entities: len(records)}
	for _, attr := range metabolic.Attributes {
		counts := Tally(records, attr)
		values := make([]ValueCount, 0, len(counts))
		total := 0
		for v, c := range counts {
			values = append(values, ValueCount{Value: v, Name: names(attr, v), Count: c})
			total += c
		}
		sortBy, ok := sorts[attr]
		if !ok || !sortBy.Key.Valid() {
			sortBy = DefaultSort
		}
		// map order is random; fix it before the stable sort
		sort.Slice(values, func(i, j int) bool { return values[i].Value < values[j].Value })
		SortValues(values, sortBy)

		summary.Attributes = append(summary.Attributes, AttributeSummary{
			Attribute: attr,
			Max:       Max(counts),
			Total:     total,
			Search:    searches[attr],
			Sort:      sortBy,
			Values:    Search(values, searches[attr]),
		})
	}
	return summary
}

// ModelNames resolves compartment and process identifiers against model.
// Other attributes display their value.
func ModelNames(model metabolic.Model) NameFunc {
	return func(attr metabolic.Attribute, value string) string {
		switch attr {
		case metabolic.AttributeCompartments:
			if c, ok := model.Compartments[value]; ok && c.Name != "" {
				return c.Name
			}
		case metabolic.AttributeProcesses:
			if p, ok := model.Processes[value]; ok && p.Name != "" {
				return p.Name
			}
		}
		return value
	}
}
