// Package network derives the bipartite metabolite/reaction graph from the
// context reactions and answers traversal queries over it.
package network

import (
	"sort"

	"github.com/turtacn/MetaboScope/internal/domain/relevance"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// Kind distinguishes the two node populations.
type Kind string

const (
	KindMetabolite Kind = "metabolite"
	KindReaction   Kind = "reaction"
)

// Direction restricts which links a traversal follows.
type Direction string

const (
	DirectionOut  Direction = "out"
	DirectionIn   Direction = "in"
	DirectionBoth Direction = "both"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionOut || d == DirectionIn || d == DirectionBoth
}

// Node is one vertex of the network.
type Node struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"kind"`
	Entity      string `json:"entity"`
	Compartment string `json:"compartment,omitempty"`
	Name        string `json:"name"`
}

// Link is a directed participation edge.
type Link struct {
	Source   string         `json:"source"`
	Target   string         `json:"target"`
	Reaction string         `json:"reaction"`
	Role     metabolic.Role `json:"role"`
	// Reverse marks the extra link added for reversible reactions.
	Reverse bool `json:"reverse,omitempty"`
}

// Network is an immutable graph with adjacency indexes.
type Network struct {
	Nodes map[string]Node `json:"nodes"`
	Links []Link          `json:"links"`

	out map[string][]string
	in  map[string][]string
}

// ReactionNodeID returns the node identifier of reaction id.
func ReactionNodeID(id string) string {
	return "reaction:" + id
}

// MetaboliteNodeID returns the node identifier of a metabolite. The
// compartment is part of the identity only under compartmentalization.
func MetaboliteNodeID(metabolite, compartment string, compartmentalization bool) string {
	if compartmentalization && compartment != "" {
		return "metabolite:" + metabolite + "_" + compartment
	}
	return "metabolite:" + metabolite
}

// Build derives the network from context reactions. Links run from each
// reactant to the reaction and from the reaction to each product; reversible
// reactions also get the opposite links.
func Build(reactions []relevance.ContextReaction, metabolites map[string]metabolic.Metabolite, compartmentalization bool) Network {
	net := Network{
		Nodes: make(map[string]Node),
		out:   make(map[string][]string),
		in:    make(map[string][]string),
	}
	for _, r := range reactions {
		rid := ReactionNodeID(r.ID)
		net.Nodes[rid] = Node{ID: rid, Kind: KindReaction, Entity: r.ID, Name: r.Name}

		for _, p := range r.Participants {
			mid := MetaboliteNodeID(p.Metabolite, p.Compartment, compartmentalization)
			if _, ok := net.Nodes[mid]; !ok {
				node := Node{ID: mid, Kind: KindMetabolite, Entity: p.Metabolite, Name: metabolites[p.Metabolite].Name}
				if compartmentalization {
					node.Compartment = p.Compartment
				}
				net.Nodes[mid] = node
			}
			forward := Link{Source: mid, Target: rid, Reaction: r.ID, Role: p.Role}
			if p.Role == metabolic.RoleProduct {
				forward.Source, forward.Target = rid, mid
			}
			net.addLink(forward)
			if r.Reversibility {
				net.addLink(Link{Source: forward.Target, Target: forward.Source, Reaction: r.ID, Role: p.Role, Reverse: true})
			}
		}
	}
	return net
}

// FromParts rebuilds a Network from stored nodes and links, e.g. one read
// back from a graph database. Links with an unknown endpoint are dropped.
func FromParts(nodes []Node, links []Link) Network {
	net := Network{
		Nodes: make(map[string]Node, len(nodes)),
		out:   make(map[string][]string),
		in:    make(map[string][]string),
	}
	for _, node := range nodes {
		net.Nodes[node.ID] = node
	}
	for _, l := range links {
		_, src := net.Nodes[l.Source]
		_, dst := net.Nodes[l.Target]
		if src && dst {
			net.addLink(l)
		}
	}
	return net
}

func (n *Network) addLink(l Link) {
	for _, existing := range n.out[l.Source] {
		if existing == l.Target {
			return
		}
	}
	n.Links = append(n.Links, l)
	n.out[l.Source] = append(n.out[l.Source], l.Target)
	n.in[l.Target] = append(n.in[l.Target], l.Source)
}

// Neighbors returns the sorted neighbors of id along dir.
func (n Network) Neighbors(id string, dir Direction) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(ids []string) {
		for _, x := range ids {
			if _, ok := seen[x]; ok {
				continue
			}
			seen[x] = struct{}{}
			out = append(out, x)
		}
	}
	if dir != DirectionIn {
		add(n.out[id])
	}
	if dir != DirectionOut {
		add(n.in[id])
	}
	sort.Strings(out)
	return out
}

// Ego returns the subnetwork of nodes within depth steps of center, with the
// links among them. An unknown center yields an empty network.
func Ego(n Network, center string, depth int, dir Direction) Network {
	sub := Network{
		Nodes: make(map[string]Node),
		out:   make(map[string][]string),
		in:    make(map[string][]string),
	}
	if _, ok := n.Nodes[center]; !ok {
		return sub
	}

	type item struct {
		id    string
		level int
	}
	visited := map[string]struct{}{center: {}}
	queue := []item{{center, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.level == depth {
			continue
		}
		for _, next := range n.Neighbors(cur.id, dir) {
			if _, ok := visited[next]; ok {
				continue
			}
			visited[next] = struct{}{}
			queue = append(queue, item{next, cur.level + 1})
		}
	}

	for id := range visited {
		sub.Nodes[id] = n.Nodes[id]
	}
	for _, l := range n.Links {
		_, src := visited[l.Source]
		_, dst := visited[l.Target]
		if src && dst {
			sub.addLink(l)
		}
	}
	return sub
}

// ShortestPath returns the node identifiers of a shortest path from source
// to target following dir, and false when none exists.
func ShortestPath(n Network, source, target string, dir Direction) ([]string, bool) {
	if _, ok := n.Nodes[source]; !ok {
		return nil, false
	}
	if _, ok := n.Nodes[target]; !ok {
		return nil, false
	}
	prev := map[string]string{source: ""}
	queue := []string{source}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == target {
			break
		}
		for _, next := range n.Neighbors(cur, dir) {
			if _, ok := prev[next]; ok {
				continue
			}
			prev[next] = cur
			queue = append(queue, next)
		}
	}
	if _, ok := prev[target]; !ok {
		return nil, false
	}
	var path []string
	for id := target; id != ""; id = prev[id] {
		path = append(path, id)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, true
}

// SortedNodes returns the nodes ordered by identifier.
func (n Network) SortedNodes() []Node {
	out := make([]Node, 0, len(n.Nodes))
	for _, id := range metabolic.SortedKeys(n.Nodes) {
		out = append(out, n.Nodes[id])
	}
	return out
}
