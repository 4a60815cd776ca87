// Package filtering applies user selections to entity attribute sets.
//
// Selections sharing an attribute are ORed; different attributes are ANDed.
// Entities that pass keep only the accepted values of each filtered attribute,
// while attributes outside the filter are copied unchanged. Reactions also
// have to stay structurally relevant inside the selected compartments, and
// metabolites are re-derived from the reactions that survive.
package filtering

import (
	"sort"

	"github.com/turtacn/MetaboScope/internal/domain/attribution"
	"github.com/turtacn/MetaboScope/internal/domain/relevance"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// FilterMap maps an attribute to its set of accepted values.
type FilterMap map[metabolic.Attribute]map[string]struct{}

// BuildFilterMap unions selections per attribute.
func BuildFilterMap(selections []metabolic.Selection) FilterMap {
	fm := make(FilterMap)
	for _, s := range selections {
		values, ok := fm[s.Attribute]
		if !ok {
			values = make(map[string]struct{})
			fm[s.Attribute] = values
		}
		values[s.Value] = struct{}{}
	}
	return fm
}

// Accepts reports whether value is accepted for attr. Attributes absent from
// the map accept everything.
func (fm FilterMap) Accepts(attr metabolic.Attribute, value string) bool {
	values, ok := fm[attr]
	if !ok {
		return true
	}
	_, ok = values[value]
	return ok
}

// AcceptedValues returns the sorted accepted values of attr.
func (fm FilterMap) AcceptedValues(attr metabolic.Attribute) []string {
	out := make([]string, 0, len(fm[attr]))
	for v := range fm[attr] {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Match reports whether rec has at least one accepted value for every
// filtered attribute.
func Match(fm FilterMap, rec metabolic.AttributeRecord) bool {
	for attr := range fm {
		found := false
		for _, v := range rec.Values[attr] {
			if fm.Accepts(attr, v) {
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

// Prune returns a copy of rec keeping only accepted values of filtered
// attributes.
func Prune(fm FilterMap, rec metabolic.AttributeRecord) metabolic.AttributeRecord {
	out := metabolic.AttributeRecord{ID: rec.ID, Values: make(map[metabolic.Attribute][]string, len(rec.Values))}
	for attr, values := range rec.Values {
		kept := make([]string, 0, len(values))
		for _, v := range values {
			if fm.Accepts(attr, v) {
				kept = append(kept, v)
			}
		}
		out.Values[attr] = kept
	}
	return out
}

// FilterRecords keeps matching records, pruned.
func FilterRecords(fm FilterMap, records map[string]metabolic.AttributeRecord) map[string]metabolic.AttributeRecord {
	out := make(map[string]metabolic.AttributeRecord)
	for id, rec := range records {
		if Match(fm, rec) {
			out[id] = Prune(fm, rec)
		}
	}
	return out
}

// ToggleSelection adds s when absent and removes every copy of it when
// present. The input slice is not modified.
func ToggleSelection(selections []metabolic.Selection, s metabolic.Selection) []metabolic.Selection {
	out := make([]metabolic.Selection, 0, len(selections)+1)
	removed := false
	for _, existing := range selections {
		if existing == s {
			removed = true
			continue
		}
		out = append(out, existing)
	}
	if !removed {
		out = append(out, s)
	}
	return out
}

// Input gathers everything FilterEntities reads.
type Input struct {
	Enabled     bool
	Selections  []metabolic.Selection
	Sets        metabolic.AttributeSets
	Metabolites map[string]metabolic.Metabolite
	Reactions   map[string]metabolic.Reaction
}

// FilterEntities filters reactions and metabolites jointly.
//
// A reaction passes when its record matches the filter map and, if
// compartments are filtered, it stays relevant using only participants in
// accepted compartments. Compartment filtering names compartments
// explicitly, so transport relevance is always judged as if compartmentalized,
// whatever the session's compartmentalization setting.
// A metabolite passes when the record re-derived from surviving reactions and
// participants matches the filter map. Every surviving record is pruned to
// values that are both accepted and present in its original record.
func FilterEntities(in Input) metabolic.AttributeSets {
	if !in.Enabled || len(in.Selections) == 0 {
		return in.Sets.Clone()
	}
	fm := BuildFilterMap(in.Selections)
	_, compartmentFiltered := fm[metabolic.AttributeCompartments]

	out := metabolic.AttributeSets{
		Metabolites: make(map[string]metabolic.AttributeRecord),
		Reactions:   make(map[string]metabolic.AttributeRecord),
	}

	surviving := make(map[string]metabolic.Reaction)
	for id, rec := range in.Sets.Reactions {
		if !Match(fm, rec) {
			continue
		}
		r, ok := in.Reactions[id]
		if !ok {
			continue
		}
		if compartmentFiltered {
			r.Participants = acceptedParticipants(fm, r.Participants)
			if !relevance.IsRelevant(r, r.Participants, true) {
				continue
			}
		}
		surviving[id] = r
		out.Reactions[id] = Prune(fm, rec)
	}

	for id, rec := range in.Sets.Metabolites {
		m, ok := in.Metabolites[id]
		if !ok {
			continue
		}
		derived := attribution.AttributeMetabolite(m, surviving)
		if len(derived.Values[metabolic.AttributeCompartments]) == 0 || !Match(fm, derived) {
			continue
		}
		out.Metabolites[id] = intersect(Prune(fm, derived), rec)
	}
	return out
}

func acceptedParticipants(fm FilterMap, participants []metabolic.Participant) []metabolic.Participant {
	out := make([]metabolic.Participant, 0, len(participants))
	for _, p := range participants {
		if fm.Accepts(metabolic.AttributeCompartments, p.Compartment) {
			out = append(out, p)
		}
	}
	return out
}

// intersect restricts rec's values to those present in original.
func intersect(rec, original metabolic.AttributeRecord) metabolic.AttributeRecord {
	out := metabolic.AttributeRecord{ID: rec.ID, Values: make(map[metabolic.Attribute][]string, len(rec.Values))}
	for attr, values := range rec.Values {
		allowed := make(map[string]struct{}, len(original.Values[attr]))
		for _, v := range original.Values[attr] {
			allowed[v] = struct{}{}
		}
		kept := make([]string, 0, len(values))
		for _, v := range values {
			if _, ok := allowed[v]; ok {
				kept = append(kept, v)
			}
		}
		out.Values[attr] = kept
	}
	return out
}
