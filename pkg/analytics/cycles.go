package analytics

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/sentinelsoft/rulegraph/pkg/rulegraph"
)

// cycles enumerates the elementary cycles of the graph, each reported as a
// node sequence whose first id is repeated at the end. Self-loops are
// reported separately by the stats, so single-node cycles and any longer
// cycle passing through a self-looping rule are excluded here.
func cycles(g *rulegraph.Graph) [][]string {
	loops := selfLoopSet(g)
	dg, toID := toDirected(g)

	out := [][]string{}
	for _, cyc := range topo.DirectedCyclesIn(dg) {
		path := make([]string, 0, len(cyc))
		skip := false
		for _, n := range cyc {
			id := toID[n.ID()]
			if _, ok := loops[id]; ok {
				skip = true
				break
			}
			path = append(path, id)
		}
		if skip || len(path) < 2 {
			continue
		}
		if path[0] != path[len(path)-1] {
			path = append(path, path[0])
		}
		out = append(out, path)
	}
	return out
}

// toDirected converts the multigraph to a gonum simple directed graph.
// Parallel edges collapse to one and self-loops are dropped, because cycle
// enumeration cares only about node reachability.
func toDirected(g *rulegraph.Graph) (*simple.DirectedGraph, map[int64]string) {
	dg := simple.NewDirectedGraph()
	fromID := make(map[string]int64, g.NodeCount())
	toID := make(map[int64]string, g.NodeCount())

	var next int64
	for _, n := range g.Nodes() {
		fromID[n.ID] = next
		toID[next] = n.ID
		dg.AddNode(simple.Node(next))
		next++
	}
	for _, e := range g.Edges() {
		if e.From == e.To {
			continue
		}
		dg.SetEdge(simple.Edge{
			F: simple.Node(fromID[e.From]),
			T: simple.Node(fromID[e.To]),
		})
	}
	return dg, toID
}
