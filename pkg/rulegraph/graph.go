package rulegraph

import (
	"github.com/sentinelsoft/rulegraph/pkg/errors"
)

// RootID is the identifier of the synthetic root node attached to every
// finalized graph. MetaGroup marks the root as infrastructural rather than a
// real ruleset member.
const (
	RootID    = "0"
	MetaGroup = "__meta__"

	rootDescription = "Synthetic root node"
)

// EdgeKind identifies the rule relationship an edge was derived from.
type EdgeKind string

const (
	EdgeIfSID          EdgeKind = "if_sid"
	EdgeIfMatchedSID   EdgeKind = "if_matched_sid"
	EdgeIfGroup        EdgeKind = "if_group"
	EdgeIfMatchedGroup EdgeKind = "if_matched_group"
	EdgeRoot           EdgeKind = "root"
)

// Node is a rule in the dependency graph. A node enters the graph either as
// a base definition carrying full metadata, or as a placeholder created by an
// edge that references a rule never defined in the scanned files.
type Node struct {
	ID          string   `json:"id"`
	Level       string   `json:"level"`
	Description string   `json:"description"`
	Groups      []string `json:"groups"`
	File        string   `json:"file"`
	Maxsize     string   `json:"maxsize,omitempty"`
	Children    []string `json:"children"`

	defined bool
}

// Defined reports whether the node was produced by a base rule definition,
// as opposed to being a placeholder materialized by an edge reference.
func (n *Node) Defined() bool { return n.defined }

// Edge is a directed, typed dependency between two rules. Parallel edges with
// different kinds between the same pair of nodes are allowed and preserved.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind EdgeKind `json:"kind"`
}

// Graph is a directed multigraph of rule dependencies. It is mutable while a
// build is in progress and frozen by Finalize; afterwards it is safe for
// concurrent readers.
type Graph struct {
	nodes    map[string]*Node
	order    []string
	edges    []Edge
	outgoing map[string][]string
	incoming map[string][]string
	groups   map[string][]string
	final    bool
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
		groups:   make(map[string][]string),
	}
}

// ErrFinalized is returned by mutations attempted after Finalize.
var ErrFinalized = errors.New(errors.ErrCodeInvalidInput, "graph is finalized")

// AddRule inserts a base rule definition. If a placeholder for the id already
// exists it is promoted in place, keeping every edge that referenced it. A
// second base definition for the same id is rejected so that callers can
// report it; placeholders never count as base definitions.
func (g *Graph) AddRule(n Node) error {
	if g.final {
		return ErrFinalized
	}
	if n.ID == "" {
		return errors.New(errors.ErrCodeInvalidRule, "rule has empty id")
	}
	existing, ok := g.nodes[n.ID]
	if ok && existing.defined {
		return errors.New(errors.ErrCodeDuplicateRule, "duplicate rule id %s", n.ID)
	}
	n.defined = true
	if ok {
		// Promote the placeholder: adjacency already points at this id.
		*existing = n
	} else {
		g.insert(&n)
	}
	for _, grp := range n.Groups {
		g.groups[grp] = append(g.groups[grp], n.ID)
	}
	return nil
}

// AddEdge inserts a directed edge, materializing placeholder nodes for any
// endpoint not yet in the graph.
func (g *Graph) AddEdge(e Edge) error {
	if g.final {
		return ErrFinalized
	}
	if e.From == "" || e.To == "" {
		return errors.New(errors.ErrCodeInvalidRule, "edge with empty endpoint")
	}
	g.ensure(e.From)
	g.ensure(e.To)
	g.edges = append(g.edges, e)
	g.outgoing[e.From] = append(g.outgoing[e.From], e.To)
	g.incoming[e.To] = append(g.incoming[e.To], e.From)
	return nil
}

func (g *Graph) insert(n *Node) {
	g.nodes[n.ID] = n
	g.order = append(g.order, n.ID)
}

func (g *Graph) ensure(id string) {
	if _, ok := g.nodes[id]; !ok {
		g.insert(&Node{ID: id})
	}
}

// Node returns the node with the given id, or nil if it does not exist.
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// HasNode reports whether the id exists in the graph, placeholder or not.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns a copy of all edges in insertion order, parallel edges
// included.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// NodeCount returns the number of nodes, placeholders included.
func (g *Graph) NodeCount() int { return len(g.order) }

// EdgeCount returns the number of edges, counting parallel edges separately.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// OutDegree returns the number of outgoing edges, counting parallel edges
// separately.
func (g *Graph) OutDegree(id string) int { return len(g.outgoing[id]) }

// InDegree returns the number of incoming edges, counting parallel edges
// separately.
func (g *Graph) InDegree(id string) int { return len(g.incoming[id]) }

// Successors returns the unique direct successors of id in first-encounter
// order.
func (g *Graph) Successors(id string) []string {
	return uniq(g.outgoing[id])
}

// Predecessors returns the unique direct predecessors of id in
// first-encounter order.
func (g *Graph) Predecessors(id string) []string {
	return uniq(g.incoming[id])
}

// EdgesFrom returns every edge whose source is id, parallel edges included.
func (g *Graph) EdgesFrom(id string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// GroupMembers returns the ids of the rules that declared membership in the
// named group so far, in the order they were added. Resolution against this
// index is order-sensitive: a rule referencing a group only links to members
// that preceded it.
func (g *Graph) GroupMembers(name string) []string {
	members := g.groups[name]
	out := make([]string, len(members))
	copy(out, members)
	return out
}

// Finalized reports whether Finalize has run.
func (g *Graph) Finalized() bool { return g.final }

// Finalize attaches the synthetic root to every node that had no incoming
// edges, precomputes per-node children lists and freezes the graph. The set
// of parentless nodes is captured before the root is inserted, so a ruleset
// that genuinely defines rule "0" keeps its own node and gains a root
// self-edge if it is parentless.
func (g *Graph) Finalize() {
	if g.final {
		return
	}
	var parentless []string
	for _, id := range g.order {
		if len(g.incoming[id]) == 0 {
			parentless = append(parentless, id)
		}
	}
	if _, ok := g.nodes[RootID]; !ok {
		g.insert(&Node{
			ID:          RootID,
			Description: rootDescription,
			Groups:      []string{MetaGroup},
			defined:     true,
		})
	}
	for _, id := range parentless {
		g.AddEdge(Edge{From: RootID, To: id, Kind: EdgeRoot})
	}
	for _, id := range g.order {
		ch := g.Successors(id)
		if ch == nil {
			ch = []string{}
		}
		g.nodes[id].Children = ch
	}
	g.final = true
}

func uniq(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
