// Package curation applies hand-maintained corrections to an assembled model
// before attribution: renaming compartments, processes, metabolites and
// reactions, removing them, and folding one process or metabolite into
// another.
package curation

import (
	"sort"
	"strconv"

	"github.com/turtacn/MetaboScope/internal/domain/assembly"
	"github.com/turtacn/MetaboScope/internal/domain/diagnostics"
	"github.com/turtacn/MetaboScope/internal/domain/extraction"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// Change edits one entity. Remove drops it; ReplaceWith drops it and points
// everything that referenced it at another entity of the same kind; Name
// renames it. The first of these that is set wins.
type Change struct {
	ID          string `json:"id" mapstructure:"id"`
	Name        string `json:"name,omitempty" mapstructure:"name"`
	ReplaceWith string `json:"replace_with,omitempty" mapstructure:"replace_with"`
	Remove      bool   `json:"remove,omitempty" mapstructure:"remove"`
}

// Changes lists the edits per entity kind. They apply in field order.
type Changes struct {
	Compartments []Change `json:"compartments,omitempty" mapstructure:"compartments"`
	Processes    []Change `json:"processes,omitempty" mapstructure:"processes"`
	Metabolites  []Change `json:"metabolites,omitempty" mapstructure:"metabolites"`
	Reactions    []Change `json:"reactions,omitempty" mapstructure:"reactions"`
}

// Len counts the changes of every kind.
func (c Changes) Len() int {
	return len(c.Compartments) + len(c.Processes) + len(c.Metabolites) + len(c.Reactions)
}

func (c Changes) Empty() bool { return c.Len() == 0 }

// Curate applies changes to a copy of model and returns it. model is never
// modified.
//
// Removing a compartment also removes every reaction with a participant in
// it. Removing a metabolite removes its participants. Replacing a metabolite
// merges its compartments and references into the target and renames its
// participants; participants that then coincide are combined by summing
// coefficients. Reaction flags and metabolite reaction lists are recomputed
// afterwards. Transport processes and replicates are not: run
// assembly.Enrich on the result.
//
// Changes naming unknown entities, or asking for something the kind does
// not support, are skipped with a CURATION_SKIPPED warning. Processes may be
// named by identifier or by name.
func Curate(model metabolic.Model, changes Changes, diag *diagnostics.Collector) metabolic.Model {
	if diag == nil {
		diag = diagnostics.NewCollector(nil)
	}
	if changes.Empty() {
		return model
	}
	c := &curator{model: cloneModel(model), diag: diag}
	for _, ch := range changes.Compartments {
		c.compartment(ch)
	}
	for _, ch := range changes.Processes {
		c.process(ch)
	}
	for _, ch := range changes.Metabolites {
		c.metabolite(ch)
	}
	for _, ch := range changes.Reactions {
		c.reaction(ch)
	}
	c.rederive()
	return c.model
}

type curator struct {
	model metabolic.Model
	diag  *diagnostics.Collector
}

// ─────────────────────────────────────────────────────────────────────────────
// Per-kind changes
// ─────────────────────────────────────────────────────────────────────────────

func (c *curator) compartment(ch Change) {
	comp, ok := c.model.Compartments[ch.ID]
	if !ok {
		c.skip("compartment", ch.ID, "unknown compartment")
		return
	}
	switch {
	case ch.Remove:
		delete(c.model.Compartments, ch.ID)
		removed := 0
		for _, id := range metabolic.SortedKeys(c.model.Reactions) {
			if contains(extraction.ReactionCompartments(c.model.Reactions[id]), ch.ID) {
				delete(c.model.Reactions, id)
				removed++
			}
		}
		for id, m := range c.model.Metabolites {
			m.Compartments = without(m.Compartments, ch.ID)
			c.model.Metabolites[id] = m
		}
		c.applied("compartment removed", "compartment", ch.ID, "reactions_removed", strconv.Itoa(removed))
	case ch.ReplaceWith != "":
		c.skip("compartment", ch.ID, "compartments cannot be replaced")
	case ch.Name != "":
		comp.Name = ch.Name
		c.model.Compartments[ch.ID] = comp
		c.applied("compartment renamed", "compartment", ch.ID, "name", ch.Name)
	default:
		c.skip("compartment", ch.ID, "change has no effect")
	}
}

func (c *curator) process(ch Change) {
	id, ok := c.processID(ch.ID)
	if !ok {
		c.skip("process", ch.ID, "unknown process")
		return
	}
	switch {
	case ch.Remove:
		delete(c.model.Processes, id)
		c.rewriteProcesses(id, "")
		c.applied("process removed", "process", id)
	case ch.ReplaceWith != "":
		target, ok := c.processID(ch.ReplaceWith)
		if !ok || target == id {
			c.skip("process", ch.ID, "unknown or identical replacement "+ch.ReplaceWith)
			return
		}
		delete(c.model.Processes, id)
		c.rewriteProcesses(id, target)
		c.applied("process replaced", "process", id, "replacement", target)
	case ch.Name != "":
		p := c.model.Processes[id]
		p.Name = ch.Name
		c.model.Processes[id] = p
		c.applied("process renamed", "process", id, "name", ch.Name)
	default:
		c.skip("process", ch.ID, "change has no effect")
	}
}

func (c *curator) metabolite(ch Change) {
	m, ok := c.model.Metabolites[ch.ID]
	if !ok {
		c.skip("metabolite", ch.ID, "unknown metabolite")
		return
	}
	switch {
	case ch.Remove:
		delete(c.model.Metabolites, ch.ID)
		c.rewriteParticipants(ch.ID, "")
		c.applied("metabolite removed", "metabolite", ch.ID)
	case ch.ReplaceWith != "":
		target, ok := c.model.Metabolites[ch.ReplaceWith]
		if !ok || ch.ReplaceWith == ch.ID {
			c.skip("metabolite", ch.ID, "unknown or identical replacement "+ch.ReplaceWith)
			return
		}
		for _, comp := range m.Compartments {
			if !contains(target.Compartments, comp) {
				target.Compartments = append(target.Compartments, comp)
			}
		}
		target.References = target.References.Merge(m.References)
		c.model.Metabolites[ch.ReplaceWith] = target
		delete(c.model.Metabolites, ch.ID)
		c.rewriteParticipants(ch.ID, ch.ReplaceWith)
		c.applied("metabolite replaced", "metabolite", ch.ID, "replacement", ch.ReplaceWith)
	case ch.Name != "":
		m.Name = ch.Name
		c.model.Metabolites[ch.ID] = m
		c.applied("metabolite renamed", "metabolite", ch.ID, "name", ch.Name)
	default:
		c.skip("metabolite", ch.ID, "change has no effect")
	}
}

func (c *curator) reaction(ch Change) {
	r, ok := c.model.Reactions[ch.ID]
	if !ok {
		c.skip("reaction", ch.ID, "unknown reaction")
		return
	}
	switch {
	case ch.Remove:
		delete(c.model.Reactions, ch.ID)
		c.applied("reaction removed", "reaction", ch.ID)
	case ch.ReplaceWith != "":
		c.skip("reaction", ch.ID, "reactions cannot be replaced")
	case ch.Name != "":
		r.Name = ch.Name
		c.model.Reactions[ch.ID] = r
		c.applied("reaction renamed", "reaction", ch.ID, "name", ch.Name)
	default:
		c.skip("reaction", ch.ID, "change has no effect")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Rewrites
// ─────────────────────────────────────────────────────────────────────────────

// processID resolves key as a process identifier, then as a process name.
func (c *curator) processID(key string) (string, bool) {
	if _, ok := c.model.Processes[key]; ok {
		return key, true
	}
	for _, id := range metabolic.SortedKeys(c.model.Processes) {
		if c.model.Processes[id].Name == key {
			return id, true
		}
	}
	return "", false
}

// rewriteProcesses replaces from with to in every reaction, or drops it when
// to is empty.
func (c *curator) rewriteProcesses(from, to string) {
	for id, r := range c.model.Reactions {
		if !contains(r.Processes, from) {
			continue
		}
		out := make([]string, 0, len(r.Processes))
		for _, p := range r.Processes {
			if p == from {
				p = to
			}
			if p != "" && !contains(out, p) {
				out = append(out, p)
			}
		}
		r.Processes = out
		c.model.Reactions[id] = r
	}
}

// rewriteParticipants renames metabolite from to to in every reaction, or
// drops its participants when to is empty.
func (c *curator) rewriteParticipants(from, to string) {
	for id, r := range c.model.Reactions {
		touched := false
		var out []metabolic.Participant
		for _, p := range r.Participants {
			if p.Metabolite != from {
				out = append(out, p)
				continue
			}
			touched = true
			if to == "" {
				continue
			}
			p.Metabolite = to
			out = combine(out, p)
		}
		if touched {
			r.Participants = out
			c.model.Reactions[id] = r
		}
	}
}

// combine adds p to participants, summing its coefficient into an existing
// participant with the same metabolite, compartment and role.
func combine(participants []metabolic.Participant, p metabolic.Participant) []metabolic.Participant {
	for i, q := range participants {
		if q.Metabolite == p.Metabolite && q.Compartment == p.Compartment && q.Role == p.Role {
			participants[i].Coefficient += p.Coefficient
			return participants
		}
	}
	return append(participants, p)
}

// rederive recomputes reaction flags and each metabolite's reaction list.
// Reactions a metabolite still takes part in keep their order; new ones
// follow in identifier order.
func (c *curator) rederive() {
	participation := make(map[string]map[string]struct{})
	for _, id := range metabolic.SortedKeys(c.model.Reactions) {
		r := assembly.DeriveBehavior(c.model.Reactions[id])
		c.model.Reactions[id] = r
		for _, m := range extraction.MetaboliteIDs(extraction.Criteria{}, r.Participants) {
			if participation[m] == nil {
				participation[m] = make(map[string]struct{})
			}
			participation[m][id] = struct{}{}
		}
	}
	for id, m := range c.model.Metabolites {
		current := participation[id]
		var out []string
		for _, r := range m.Reactions {
			if _, ok := current[r]; ok {
				out = append(out, r)
			}
		}
		var added []string
		for r := range current {
			if !contains(out, r) {
				added = append(added, r)
			}
		}
		sort.Strings(added)
		m.Reactions = append(out, added...)
		c.model.Metabolites[id] = m
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (c *curator) applied(msg, kind, id string, kv ...string) {
	c.diag.Info(diagnostics.CodeCurationApplied, msg, append([]string{kind, id}, kv...)...)
}

func (c *curator) skip(kind, id, reason string) {
	c.diag.Warn(diagnostics.CodeCurationSkipped, "curation change skipped", kind, id, "reason", reason)
}

func cloneModel(model metabolic.Model) metabolic.Model {
	out := metabolic.NewModel()
	for id, v := range model.Compartments {
		out.Compartments[id] = v
	}
	for id, v := range model.Genes {
		out.Genes[id] = v
	}
	for id, v := range model.Processes {
		out.Processes[id] = v
	}
	for id, m := range model.Metabolites {
		m.Compartments = append([]string(nil), m.Compartments...)
		m.Reactions = append([]string(nil), m.Reactions...)
		m.References = m.References.Merge(nil)
		out.Metabolites[id] = m
	}
	for id, r := range model.Reactions {
		r.Genes = append([]string(nil), r.Genes...)
		r.Participants = append([]metabolic.Participant(nil), r.Participants...)
		r.Processes = append([]string(nil), r.Processes...)
		r.Replicates = append([]string(nil), r.Replicates...)
		out.Reactions[id] = r
	}
	return out
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func without(values []string, v string) []string {
	var out []string
	for _, x := range values {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
