package knowledgegraph

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/skillgraph/api/schemas"
)

// Merge unions any number of graphs into a new one. The inputs are not
// modified. Node sets, edge keys and total weights do not depend on the order
// or grouping of the arguments; only conflicting scalar properties do, where
// the earliest graph wins.
func Merge(graphs ...*Graph) *Graph {
	out := New(nil)
	named := false
	for _, g := range graphs {
		if g == nil {
			continue
		}
		if !named {
			out.log, named = g.log, true
		}
		out.Absorb(g)
	}
	return out
}

// Absorb folds other into g: nodes are unioned by id with their properties
// reconciled, edges are unioned by key with their weights summed. other is
// copied before g is locked, so g.Absorb(g) is allowed and doubles every
// edge weight.
func (g *Graph) Absorb(other *Graph) {
	if other == nil {
		return
	}
	nodes, edges := other.Nodes(), other.Edges()

	g.mu.Lock()
	defer g.mu.Unlock()

	g.apply(nodes, edges)
	g.log.Debug("Graph absorbed", zap.Int("Nodes", len(nodes)), zap.Int("Edges", len(edges)))
}

// Ingest builds frag and merges it into g under a single write lock, so the
// fragment is applied all-or-nothing. It returns the raw-to-canonical id table.
func (g *Graph) Ingest(frag schemas.Fragment, source string) map[string]string {
	staged := New(nil)
	remap := staged.build(frag, source)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.apply(staged.Nodes(), staged.Edges())
	g.log.Debug("Fragment ingested",
		zap.Int("RawNodes", len(frag.Nodes)),
		zap.Int("RawEdges", len(frag.Edges)),
		zap.Int("Nodes", len(g.nodes)),
		zap.Int("Edges", len(g.edges)))
	return remap
}
