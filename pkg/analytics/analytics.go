// Package analytics derives summary statistics and density reports from a
// finalized rule graph.
package analytics

import (
	"sort"

	"github.com/sentinelsoft/rulegraph/pkg/rulegraph"
)

const topN = 5

// Count pairs a rule id with a computed count.
type Count struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// RuleRef names a single rule.
type RuleRef struct {
	ID string `json:"id"`
}

// Stats is the statistics artifact. The synthetic root is excluded from
// every ranking but still contributes to the counts of rules it points at.
type Stats struct {
	TopDirectDescendants   []Count    `json:"top_direct_descendants"`
	TopIndirectDescendants []Count    `json:"top_indirect_descendants"`
	TopDirectAncestors     []Count    `json:"top_direct_ancestors"`
	TopIndirectAncestors   []Count    `json:"top_indirect_ancestors"`
	IsolatedRules          []RuleRef  `json:"isolated_rules"`
	SelfLoops              []RuleRef  `json:"self_loops"`
	Cycles                 [][]string `json:"cycles"`
}

// ComputeStats runs every analysis over the graph. Rankings break ties by
// keeping the rule encountered first in the graph's node order, which makes
// the output stable across runs.
func ComputeStats(g *rulegraph.Graph) *Stats {
	ids := realNodeIDs(g)
	s := &Stats{
		TopDirectDescendants:   topByCount(ids, g.OutDegree),
		TopIndirectDescendants: topByCount(ids, func(id string) int { return len(reachable(id, g.Successors)) }),
		TopDirectAncestors:     topByCount(ids, g.InDegree),
		TopIndirectAncestors:   topByCount(ids, func(id string) int { return len(reachable(id, g.Predecessors)) }),
		IsolatedRules:          isolated(g, ids),
		SelfLoops:              selfLoops(g, ids),
		Cycles:                 cycles(g),
	}
	return s
}

// realNodeIDs returns node ids in encounter order with the root excluded.
func realNodeIDs(g *rulegraph.Graph) []string {
	nodes := g.Nodes()
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.ID == rulegraph.RootID {
			continue
		}
		ids = append(ids, n.ID)
	}
	return ids
}

func topByCount(ids []string, count func(string) int) []Count {
	out := make([]Count, 0, len(ids))
	for _, id := range ids {
		out = append(out, Count{ID: id, Count: count(id)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}

// reachable collects every node reachable from start via step. The start node
// is always excluded, even when a cycle leads back to it.
func reachable(start string, step func(string) []string) map[string]struct{} {
	seen := make(map[string]struct{})
	queue := step(start)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		queue = append(queue, step(id)...)
	}
	delete(seen, start)
	return seen
}

// isolated returns rules with no outgoing edges whose only predecessor is
// the synthetic root.
func isolated(g *rulegraph.Graph, ids []string) []RuleRef {
	out := []RuleRef{}
	for _, id := range ids {
		if g.OutDegree(id) != 0 {
			continue
		}
		preds := g.Predecessors(id)
		if len(preds) == 1 && preds[0] == rulegraph.RootID {
			out = append(out, RuleRef{ID: id})
		}
	}
	return out
}

func selfLoops(g *rulegraph.Graph, ids []string) []RuleRef {
	loops := selfLoopSet(g)
	out := []RuleRef{}
	for _, id := range ids {
		if _, ok := loops[id]; ok {
			out = append(out, RuleRef{ID: id})
		}
	}
	return out
}

func selfLoopSet(g *rulegraph.Graph) map[string]struct{} {
	loops := make(map[string]struct{})
	for _, e := range g.Edges() {
		if e.From == e.To {
			loops[e.From] = struct{}{}
		}
	}
	return loops
}
