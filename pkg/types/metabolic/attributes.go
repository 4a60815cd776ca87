package metabolic

// Entity names an entity population.
type Entity string

const (
	EntityMetabolites Entity = "metabolites"
	EntityReactions   Entity = "reactions"
)

// Valid reports whether e is a known entity.
func (e Entity) Valid() bool {
	return e == EntityMetabolites || e == EntityReactions
}

// Attribute names an attribute dimension that entities exhibit values for.
type Attribute string

const (
	AttributeCompartments  Attribute = "compartments"
	AttributeProcesses     Attribute = "processes"
	AttributeOperations    Attribute = "operations"
	AttributeReversibility Attribute = "reversibility"
)

// Attributes lists every attribute in display order.
var Attributes = []Attribute{
	AttributeCompartments,
	AttributeProcesses,
	AttributeOperations,
	AttributeReversibility,
}

// Valid reports whether a is a known attribute.
func (a Attribute) Valid() bool {
	for _, known := range Attributes {
		if a == known {
			return true
		}
	}
	return false
}

// Values of the operations and reversibility attributes.
const (
	OperationConversion = "conversion"
	OperationTransport  = "transport"

	Reversible   = "reversible"
	Irreversible = "irreversible"
)

// Selection is one active filter criterion. Selections are toggled: adding
// an existing selection removes it.
type Selection struct {
	Attribute Attribute `json:"attribute"`
	Value     string    `json:"value"`
}

// Simplification excludes a metabolite from the visual network without
// removing it from the model. An empty Compartment matches every compartment.
type Simplification struct {
	Metabolite  string `json:"metabolite"`
	Compartment string `json:"compartment,omitempty"`
}

// AttributeRecord holds the values an entity exhibits per attribute.
type AttributeRecord struct {
	ID     string                 `json:"id"`
	Values map[Attribute][]string `json:"values"`
}

// Clone returns a deep copy of the record.
func (r AttributeRecord) Clone() AttributeRecord {
	out := AttributeRecord{ID: r.ID, Values: make(map[Attribute][]string, len(r.Values))}
	for attr, values := range r.Values {
		if values == nil {
			out.Values[attr] = nil
			continue
		}
		out.Values[attr] = append(make([]string, 0, len(values)), values...)
	}
	return out
}

// AttributeSets maps every metabolite and reaction to its attribute record.
type AttributeSets struct {
	Metabolites map[string]AttributeRecord `json:"metabolites"`
	Reactions   map[string]AttributeRecord `json:"reactions"`
}

// Records returns the record map for entity.
func (s AttributeSets) Records(entity Entity) map[string]AttributeRecord {
	if entity == EntityReactions {
		return s.Reactions
	}
	return s.Metabolites
}

// Clone returns a deep copy of the sets.
func (s AttributeSets) Clone() AttributeSets {
	out := AttributeSets{
		Metabolites: make(map[string]AttributeRecord, len(s.Metabolites)),
		Reactions:   make(map[string]AttributeRecord, len(s.Reactions)),
	}
	for id, rec := range s.Metabolites {
		out.Metabolites[id] = rec.Clone()
	}
	for id, rec := range s.Reactions {
		out.Reactions[id] = rec.Clone()
	}
	return out
}
