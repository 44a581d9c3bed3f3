package schemas

import "iter"

// -- Knowledge Graph Interfaces --

// KnowledgeGraphReader is the read-only query surface of a consolidated
// knowledge graph. Implementations must be safe for concurrent use and must
// never mutate the graph while answering.
//
// Unknown ids are not errors: lookups report false and the other queries
// return empty results.
type KnowledgeGraphReader interface {
	// Node returns a copy of the node with the given canonical id.
	Node(id string) (Node, bool)
	// FindNodes yields nodes matching an optional type and an optional label
	// substring, in insertion order. An empty argument disables that filter.
	FindNodes(nodeType, labelContains string) iter.Seq2[string, Node]
	// Neighbors groups the targets of a node's outgoing edges by relation.
	Neighbors(nodeID string) map[string][]string
	// SkillOverlap scores a candidate's skills against a job's requirements.
	SkillOverlap(candidateID, jobID string) SkillOverlap
	// Stats summarises the graph's size.
	Stats() GraphStats
}

// KnowledgeGraphWriter ingests fragments into a knowledge graph.
type KnowledgeGraphWriter interface {
	// Ingest applies one fragment atomically and returns its raw-to-canonical id table.
	Ingest(frag Fragment, source string) map[string]string
}

// KnowledgeGraph combines the read and write surfaces.
type KnowledgeGraph interface {
	KnowledgeGraphReader
	KnowledgeGraphWriter
}
