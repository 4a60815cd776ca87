package metabolic

import "sort"

// ─────────────────────────────────────────────────────────────────────────────
// Cleaned records
// ─────────────────────────────────────────────────────────────────────────────

// Compartment is a cellular compartment. Name is empty for unknown codes.
type Compartment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Gene is a gene with a normalized identifier.
type Gene struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MetaboliteRecord is a cleaned compartment-specific metabolite. Records that
// share a BaseID carry the same consensus name, formula and charge.
type MetaboliteRecord struct {
	ID          string     `json:"id"`
	BaseID      string     `json:"base_id"`
	Name        string     `json:"name"`
	Formula     string     `json:"formula"`
	Charge      *int       `json:"charge,omitempty"`
	Compartment string     `json:"compartment"`
	References  References `json:"references,omitempty"`
}

// ReactionRecord is a cleaned reaction. Bounds are never rewritten.
type ReactionRecord struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Subsystem   string             `json:"subsystem"`
	GeneRule    string             `json:"gene_rule"`
	LowerBound  float64            `json:"lower_bound"`
	UpperBound  float64            `json:"upper_bound"`
	Reversible  bool               `json:"reversible"`
	Metabolites map[string]float64 `json:"metabolites"`
}

// CleanModel is the output of the cleaner.
type CleanModel struct {
	Compartments []Compartment      `json:"compartments"`
	Genes        []Gene             `json:"genes"`
	Metabolites  []MetaboliteRecord `json:"metabolites"`
	Reactions    []ReactionRecord   `json:"reactions"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Canonical entities
// ─────────────────────────────────────────────────────────────────────────────

// Process is a metabolic process (subsystem).
type Process struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Metabolite is the compartment-independent chemical entity.
type Metabolite struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Formula      string     `json:"formula"`
	Charge       *int       `json:"charge,omitempty"`
	Compartments []string   `json:"compartments"`
	Reactions    []string   `json:"reactions"`
	References   References `json:"references,omitempty"`
}

// Role is the side of a reaction a participant is on.
type Role string

const (
	RoleReactant Role = "reactant"
	RoleProduct  Role = "product"
)

// Participant is one metabolite's involvement in a reaction.
type Participant struct {
	Metabolite  string  `json:"metabolite"`
	Compartment string  `json:"compartment"`
	Role        Role    `json:"role"`
	Coefficient float64 `json:"coefficient"`
}

// Transport describes a metabolite that a reaction moves between compartments.
type Transport struct {
	Metabolite   string   `json:"metabolite"`
	Compartments []string `json:"compartments"`
}

// Reaction is the canonical reaction entity.
type Reaction struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Genes         []string      `json:"genes"`
	Participants  []Participant `json:"participants"`
	LowerBound    float64       `json:"lower_bound"`
	UpperBound    float64       `json:"upper_bound"`
	Reversibility bool          `json:"reversibility"`
	Processes     []string      `json:"processes"`
	Conversion    bool          `json:"conversion"`
	Dispersal     bool          `json:"dispersal"`
	Transport     bool          `json:"transport"`
	Transports    []Transport   `json:"transports,omitempty"`
	Replication   bool          `json:"replication"`
	Replicates    []string      `json:"replicates,omitempty"`
}

// Model is the assembled set of canonical entities keyed by identifier.
type Model struct {
	Compartments map[string]Compartment `json:"compartments"`
	Genes        map[string]Gene        `json:"genes"`
	Processes    map[string]Process     `json:"processes"`
	Metabolites  map[string]Metabolite  `json:"metabolites"`
	Reactions    map[string]Reaction    `json:"reactions"`
}

// NewModel returns a Model with every map allocated.
func NewModel() Model {
	return Model{
		Compartments: make(map[string]Compartment),
		Genes:        make(map[string]Gene),
		Processes:    make(map[string]Process),
		Metabolites:  make(map[string]Metabolite),
		Reactions:    make(map[string]Reaction),
	}
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
