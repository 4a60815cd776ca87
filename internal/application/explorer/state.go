// Package explorer runs the analysis pipeline behind user actions.
//
// Every action takes a State and returns a new one. The stage an action
// touches is recomputed from scratch together with everything downstream of
// it; nothing is patched incrementally and the input State is never
// modified.
package explorer

import (
	"time"

	"github.com/turtacn/MetaboScope/internal/domain/cardinality"
	"github.com/turtacn/MetaboScope/internal/domain/diagnostics"
	"github.com/turtacn/MetaboScope/internal/domain/network"
	"github.com/turtacn/MetaboScope/internal/domain/relevance"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// SnapshotVersion is the current Snapshot layout.
const SnapshotVersion = 1

// Searches holds the summary search query per entity and attribute.
type Searches map[metabolic.Entity]map[metabolic.Attribute]string

// Sorts holds the summary sort per entity and attribute.
type Sorts map[metabolic.Entity]map[metabolic.Attribute]cardinality.Sort

// Settings are the user-controlled inputs of the pipeline.
type Settings struct {
	Filter               bool                      `json:"filter"`
	Compartmentalization bool                      `json:"compartmentalization"`
	Selections           []metabolic.Selection     `json:"selections"`
	Simplifications      relevance.Simplifications `json:"simplifications"`
	Searches             Searches                  `json:"searches,omitempty"`
	Sorts                Sorts                     `json:"sorts,omitempty"`
}

// DefaultSettings enables the filter with compartments collapsed.
func DefaultSettings() Settings {
	return Settings{Filter: true}
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	out := Settings{
		Filter:               s.Filter,
		Compartmentalization: s.Compartmentalization,
		Selections:           append([]metabolic.Selection(nil), s.Selections...),
		Simplifications: relevance.Simplifications{
			Reactions:   append([]string(nil), s.Simplifications.Reactions...),
			Metabolites: append([]metabolic.Simplification(nil), s.Simplifications.Metabolites...),
		},
	}
	if s.Searches != nil {
		out.Searches = make(Searches, len(s.Searches))
		for entity, byAttr := range s.Searches {
			m := make(map[metabolic.Attribute]string, len(byAttr))
			for attr, q := range byAttr {
				m[attr] = q
			}
			out.Searches[entity] = m
		}
	}
	if s.Sorts != nil {
		out.Sorts = make(Sorts, len(s.Sorts))
		for entity, byAttr := range s.Sorts {
			m := make(map[metabolic.Attribute]cardinality.Sort, len(byAttr))
			for attr, sortBy := range byAttr {
				m[attr] = sortBy
			}
			out.Sorts[entity] = m
		}
	}
	return out
}

// State is one immutable snapshot of the explorer. Fields below Settings are
// derived and are replaced as a whole whenever their inputs change.
type State struct {
	Model       metabolic.Model    `json:"model"`
	Diagnostics diagnostics.Report `json:"diagnostics"`
	Settings    Settings           `json:"settings"`
	LoadedAt    time.Time          `json:"loaded_at"`

	Sets      metabolic.AttributeSets                  `json:"sets"`
	Filtered  metabolic.AttributeSets                  `json:"filtered"`
	Summaries map[metabolic.Entity]cardinality.Summary `json:"summaries"`
	Context   []relevance.ContextReaction              `json:"context"`
	Network   network.Network                          `json:"network"`
}

// Loaded reports whether a model has been loaded into the state.
func (s State) Loaded() bool {
	return s.Model.Reactions != nil
}

// Snapshot is the persisted form of a State. Derived fields other than the
// attribute sets are rebuilt on restore.
type Snapshot struct {
	Version     int                     `json:"version"`
	Model       metabolic.Model         `json:"model"`
	Sets        metabolic.AttributeSets `json:"sets"`
	Settings    Settings                `json:"settings"`
	Diagnostics diagnostics.Report      `json:"diagnostics"`
	LoadedAt    time.Time               `json:"loaded_at"`
}

// Snapshot captures s for persistence.
func (s State) Snapshot() Snapshot {
	return Snapshot{
		Version:     SnapshotVersion,
		Model:       s.Model,
		Sets:        s.Sets,
		Settings:    s.Settings.Clone(),
		Diagnostics: s.Diagnostics,
		LoadedAt:    s.LoadedAt,
	}
}
