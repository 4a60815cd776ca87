package client

import (
	"time"

	"github.com/turtacn/MetaboScope/pkg/types/common"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// Sort orders the values of one attribute. Key is "count" or "name".
type Sort struct {
	Key   string           `json:"key"`
	Order common.SortOrder `json:"order"`
}

// Simplifications lists the simplified reactions and metabolites.
type Simplifications struct {
	Reactions   []string                   `json:"reactions"`
	Metabolites []metabolic.Simplification `json:"metabolites"`
}

// Settings is the user-controlled part of a session.
type Settings struct {
	Filter               bool                                                `json:"filter"`
	Compartmentalization bool                                                `json:"compartmentalization"`
	Selections           []metabolic.Selection                               `json:"selections"`
	Simplifications      Simplifications                                     `json:"simplifications"`
	Searches             map[metabolic.Entity]map[metabolic.Attribute]string `json:"searches,omitempty"`
	Sorts                map[metabolic.Entity]map[metabolic.Attribute]Sort   `json:"sorts,omitempty"`
}

type ValueCount struct {
	Value string `json:"value"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type AttributeSummary struct {
	Attribute metabolic.Attribute `json:"attribute"`
	Max       int                 `json:"max"`
	Total     int                 `json:"total"`
	Search    string              `json:"search,omitempty"`
	Sort      Sort                `json:"sort"`
	Values    []ValueCount        `json:"values"`
}

type EntitySummary struct {
	Entity     metabolic.Entity   `json:"entity"`
	Entities   int                `json:"entities"`
	Attributes []AttributeSummary `json:"attributes"`
}

// Attribute returns the summary of attr, if present.
func (s EntitySummary) Attribute(attr metabolic.Attribute) (AttributeSummary, bool) {
	for _, a := range s.Attributes {
		if a.Attribute == attr {
			return a, true
		}
	}
	return AttributeSummary{}, false
}

type EntityCounts struct {
	Total    int `json:"total"`
	Filtered int `json:"filtered"`
}

// Summary is returned by every session action.
type Summary struct {
	SessionID   string                             `json:"session_id"`
	Loaded      bool                               `json:"loaded"`
	Settings    Settings                           `json:"settings"`
	Counts      map[metabolic.Entity]EntityCounts  `json:"counts"`
	Summaries   map[metabolic.Entity]EntitySummary `json:"summaries"`
	Diagnostics int                                `json:"diagnostics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Derived views
// ─────────────────────────────────────────────────────────────────────────────

type Node struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Entity      string `json:"entity"`
	Compartment string `json:"compartment,omitempty"`
	Name        string `json:"name"`
}

type Link struct {
	Source   string         `json:"source"`
	Target   string         `json:"target"`
	Reaction string         `json:"reaction"`
	Role     metabolic.Role `json:"role"`
	Reverse  bool           `json:"reverse,omitempty"`
}

// Network is the bipartite reaction/metabolite graph of a session.
type Network struct {
	Nodes map[string]Node `json:"nodes"`
	Links []Link          `json:"links"`
}

// ContextReaction is a surviving reaction with the reactions merged into it.
type ContextReaction struct {
	metabolic.Reaction
	Members []string `json:"members"`
}

type Diagnostic struct {
	Severity string            `json:"severity"`
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Context  map[string]string `json:"context,omitempty"`
}

type SnapshotInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Graph and search
// ─────────────────────────────────────────────────────────────────────────────

type ExportStats struct {
	Metabolites int           `json:"metabolites"`
	Reactions   int           `json:"reactions"`
	Links       int           `json:"links"`
	Duration    time.Duration `json:"duration"`
}

// EgoOptions bounds a neighbourhood query. Direction is "out", "in" or
// "both".
type EgoOptions struct {
	Center    string
	Depth     int
	Direction string
}

type IndexResult struct {
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
}

// SearchOptions filters an entity search. Zero values are omitted.
type SearchOptions struct {
	Text         string
	Entity       metabolic.Entity
	Compartments []string
	Processes    []string
	References   []string
	From         int
	Size         int
}

type SearchHit struct {
	SessionID    string           `json:"session_id"`
	Entity       metabolic.Entity `json:"entity"`
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Formula      string           `json:"formula,omitempty"`
	Charge       *int             `json:"charge,omitempty"`
	Compartments []string         `json:"compartments,omitempty"`
	Processes    []string         `json:"processes,omitempty"`
	Genes        []string         `json:"genes,omitempty"`
	Reactions    []string         `json:"reactions,omitempty"`
	References   []string         `json:"references,omitempty"`
	Reversible   bool             `json:"reversible"`
	Transport    bool             `json:"transport"`
	Score        float64          `json:"score"`
}

type SearchResults struct {
	Total int         `json:"total"`
	Hits  []SearchHit `json:"hits"`
}
