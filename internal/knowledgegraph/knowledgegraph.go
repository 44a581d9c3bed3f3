package knowledgegraph

import (
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/skillgraph/api/schemas"
	"github.com/xkilldash9x/skillgraph/internal/reconcile"
)

// Graph is the consolidated, in-memory knowledge graph. Nodes are keyed by
// canonical id and edges by (source, target, relation). Insertion order is
// kept for both so queries are deterministic.
//
// All methods are safe for concurrent use. Mutations take the write lock for
// their whole duration, reads take the read lock and return copies.
type Graph struct {
	mu        sync.RWMutex
	nodes     map[string]*schemas.Node
	nodeOrder []string
	edges     map[schemas.EdgeKey]*schemas.Edge
	edgeOrder []schemas.EdgeKey
	outgoing  map[string][]schemas.EdgeKey // Key: source node ID
	log       *zap.Logger
}

// Ensures Graph correctly implements the KnowledgeGraph interface at compile time.
var _ schemas.KnowledgeGraph = (*Graph)(nil)

// New creates a new, empty knowledge graph.
func New(logger *zap.Logger) *Graph {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Graph{log: logger.Named("KnowledgeGraph")}
	g.reset()
	return g
}

// Restore rebuilds a graph from node and edge records, such as those read
// back from a snapshot. Records sharing a key are merged as Absorb would.
func Restore(logger *zap.Logger, nodes []schemas.Node, edges []schemas.Edge) *Graph {
	g := New(logger)
	g.apply(nodes, edges)
	return g
}

// reset empties the graph. Assumes the caller holds the write lock or owns g exclusively.
func (g *Graph) reset() {
	g.nodes = make(map[string]*schemas.Node)
	g.nodeOrder = nil
	g.edges = make(map[schemas.EdgeKey]*schemas.Edge)
	g.edgeOrder = nil
	g.outgoing = make(map[string][]schemas.EdgeKey)
}

// upsertNode inserts n or folds it into the node already stored under n.ID.
// Assumes the caller holds the write lock.
func (g *Graph) upsertNode(n schemas.Node) {
	cur, exists := g.nodes[n.ID]
	if !exists {
		stored := n.Clone()
		g.nodes[n.ID] = &stored
		g.nodeOrder = append(g.nodeOrder, n.ID)
		g.log.Debug("Node added", zap.String("ID", n.ID), zap.String("Type", string(n.Type)))
		return
	}

	cur.Props = reconcile.Merge(cur.Props, n.Props)
	if cur.Label == "" {
		cur.Label = n.Label
	}
	if cur.Type == "" {
		cur.Type = n.Type
	}
	cur.Sources.Union(n.Sources)
	g.log.Debug("Node merged", zap.String("ID", n.ID))
}

// upsertEdge inserts e or adds its weight to the edge already stored under its key.
// Assumes the caller holds the write lock.
func (g *Graph) upsertEdge(e schemas.Edge) {
	key := e.Key()
	cur, exists := g.edges[key]
	if !exists {
		stored := e.Clone()
		g.edges[key] = &stored
		g.edgeOrder = append(g.edgeOrder, key)
		g.outgoing[key.Source] = append(g.outgoing[key.Source], key)
		g.log.Debug("Edge added", zap.String("From", key.Source), zap.String("To", key.Target), zap.String("Relation", key.Relation))
		return
	}

	cur.Weight += e.Weight
	cur.Sources.Union(e.Sources)
	g.log.Debug("Edge weight increased", zap.String("From", key.Source), zap.String("To", key.Target),
		zap.String("Relation", key.Relation), zap.Int("Weight", cur.Weight))
}

// apply folds a set of nodes and edges into g. Assumes the caller holds the write lock.
func (g *Graph) apply(nodes []schemas.Node, edges []schemas.Edge) {
	for _, n := range nodes {
		g.upsertNode(n)
	}
	for _, e := range edges {
		g.upsertEdge(e)
	}
}

// Replace swaps the contents of g for a copy of other's. It is used to install
// a freshly loaded snapshot without handing out a new *Graph.
func (g *Graph) Replace(other *Graph) {
	var nodes []schemas.Node
	var edges []schemas.Edge
	if other != nil {
		nodes, edges = other.Nodes(), other.Edges()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.reset()
	g.apply(nodes, edges)
	g.log.Debug("Graph replaced", zap.Int("Nodes", len(nodes)), zap.Int("Edges", len(edges)))
}

// Clone returns an independent deep copy of the graph.
func (g *Graph) Clone() *Graph {
	out := New(nil)
	out.log = g.log
	out.apply(g.Nodes(), g.Edges())
	return out
}

// Node retrieves a copy of a node by its canonical ID.
func (g *Graph) Node(id string) (schemas.Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return schemas.Node{}, false
	}
	return n.Clone(), true
}

// Edge retrieves a copy of the edge with the given key.
func (g *Graph) Edge(key schemas.EdgeKey) (schemas.Edge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	e, ok := g.edges[key]
	if !ok {
		return schemas.Edge{}, false
	}
	return e.Clone(), true
}

// OutgoingEdges returns the edges leaving a node, in insertion order.
func (g *Graph) OutgoingEdges(nodeID string) []schemas.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := g.outgoing[nodeID]
	out := make([]schemas.Edge, 0, len(keys))
	for _, k := range keys {
		out = append(out, g.edges[k].Clone())
	}
	return out
}

// Nodes returns copies of every node in insertion order.
func (g *Graph) Nodes() []schemas.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]schemas.Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, g.nodes[id].Clone())
	}
	return out
}

// Edges returns copies of every edge in insertion order.
func (g *Graph) Edges() []schemas.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]schemas.Edge, 0, len(g.edgeOrder))
	for _, k := range g.edgeOrder {
		out = append(out, g.edges[k].Clone())
	}
	return out
}

// Stats summarises the graph. Nodes whose type is still unknown are counted
// under the empty type.
func (g *Graph) Stats() schemas.GraphStats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	stats := schemas.GraphStats{
		Nodes:       len(g.nodes),
		Edges:       len(g.edges),
		NodesByType: make(map[schemas.NodeType]int),
	}
	for _, n := range g.nodes {
		stats.NodesByType[n.Type]++
	}
	for _, e := range g.edges {
		stats.TotalWeight += e.Weight
	}
	return stats
}
