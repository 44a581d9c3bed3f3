package schemas

import (
	"sort"
	"strings"
)

// -- Canonical Knowledge Graph Data Model --

// NodeType represents the kind of entity a node stands for.
type NodeType string

const (
	NodeCandidate      NodeType = "candidate"
	NodeJob            NodeType = "job"
	NodeSkill          NodeType = "skill"
	NodeRole           NodeType = "role"
	NodeCompany        NodeType = "company"
	NodeDegree         NodeType = "degree"
	NodeInstitution    NodeType = "institution"
	NodeResponsibility NodeType = "responsibility"
	NodeProject        NodeType = "project"
	NodeCertification  NodeType = "certification"
	NodeOther          NodeType = "other"
)

var knownNodeTypes = map[NodeType]struct{}{
	NodeCandidate: {}, NodeJob: {}, NodeSkill: {}, NodeRole: {}, NodeCompany: {}, NodeDegree: {},
	NodeInstitution: {}, NodeResponsibility: {}, NodeProject: {}, NodeCertification: {}, NodeOther: {},
}

// ParseNodeType maps a raw, free-form type string onto the node type enum.
// Matching is case and whitespace insensitive. An empty input yields the
// empty NodeType (type unknown); anything unrecognised becomes NodeOther.
func ParseNodeType(raw string) NodeType {
	t := NodeType(strings.ToLower(strings.TrimSpace(raw)))
	if t == "" {
		return ""
	}
	if _, ok := knownNodeTypes[t]; ok {
		return t
	}
	return NodeOther
}

// RelationshipType names the semantic type of an edge. The core accepts any
// relation; these are the ones CV and job extraction emit.
type RelationshipType string

const (
	RelationshipHasSkill          RelationshipType = "has_skill"          // candidate -> skill
	RelationshipWorkedAs          RelationshipType = "worked_as"          // candidate -> role
	RelationshipStudied           RelationshipType = "studied"            // candidate -> degree
	RelationshipAchieved          RelationshipType = "achieved"
	RelationshipHasProject        RelationshipType = "has_project"        // candidate -> project
	RelationshipHasCert           RelationshipType = "has_cert"           // candidate -> certification
	RelationshipAtCompany         RelationshipType = "at_company"         // role -> company
	RelationshipAtInstitution     RelationshipType = "at_institution"     // degree -> institution
	RelationshipRequiresSkill     RelationshipType = "requires_skill"     // job -> skill
	RelationshipHasResponsibility RelationshipType = "has_responsibility" // job -> responsibility
	RelationshipRequiresCert      RelationshipType = "requires_cert"      // job -> certification
	RelationshipRelatedTo         RelationshipType = "related_to"         // used when a fragment omits the relation
)

// NormalizeRelation lower-cases and trims a relation label. Empty relations
// become related_to.
func NormalizeRelation(raw string) string {
	rel := strings.ToLower(strings.TrimSpace(raw))
	if rel == "" {
		return string(RelationshipRelatedTo)
	}
	return rel
}

// SourceSet is the set of provenance tags attached to a node or edge.
type SourceSet map[string]struct{}

// NewSourceSet builds a set from the given tags, skipping empty ones.
func NewSourceSet(tags ...string) SourceSet {
	s := make(SourceSet, len(tags))
	for _, t := range tags {
		s.Add(t)
	}
	return s
}

func (s SourceSet) Add(tag string) {
	if tag != "" {
		s[tag] = struct{}{}
	}
}

func (s SourceSet) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

// Union adds every tag of o to s.
func (s SourceSet) Union(o SourceSet) {
	for t := range o {
		s[t] = struct{}{}
	}
}

func (s SourceSet) Clone() SourceSet {
	out := make(SourceSet, len(s))
	out.Union(s)
	return out
}

// Sorted returns the tags in lexical order.
func (s SourceSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON renders the set as a sorted JSON array.
func (s SourceSet) MarshalJSON() ([]byte, error) {
	return jsonAPI.Marshal(s.Sorted())
}

// UnmarshalJSON reads a JSON array of tags.
func (s *SourceSet) UnmarshalJSON(data []byte) error {
	var tags []string
	if err := jsonAPI.Unmarshal(data, &tags); err != nil {
		return err
	}
	*s = NewSourceSet(tags...)
	return nil
}

// Node is a single consolidated entity in the knowledge graph.
type Node struct {
	ID      string    `json:"id"`
	Type    NodeType  `json:"type"`
	Label   string    `json:"label"`
	Props   Props     `json:"props"`
	Sources SourceSet `json:"sources"`
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	n.Props = n.Props.Clone()
	n.Sources = n.Sources.Clone()
	return n
}

// DisplayLabel returns the label, falling back to props.name.
func (n Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.Props.StringField("name")
}

// EdgeKey identifies an edge. Two edges between the same pair of nodes with
// different relations are distinct.
type EdgeKey struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

// Edge is a directed, typed relationship. Weight counts how many times the
// same (source, target, relation) triple was ingested.
type Edge struct {
	Source   string    `json:"source"`
	Target   string    `json:"target"`
	Relation string    `json:"relation"`
	Weight   int       `json:"weight"`
	Sources  SourceSet `json:"sources"`
}

func (e Edge) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Target: e.Target, Relation: e.Relation}
}

func (e Edge) Clone() Edge {
	e.Sources = e.Sources.Clone()
	return e
}

// -- Fragment (ingestion input) Schemas --

// RawNode is a node as emitted by an extraction step. Its ID is local to the
// fragment it came from.
type RawNode struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
	Props Props  `json:"props"`
}

// RawEdge is an edge as emitted by an extraction step; endpoints are
// fragment-local node ids.
type RawEdge struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

// Fragment is one extraction's worth of nodes and edges, not yet merged.
type Fragment struct {
	Nodes []RawNode `json:"nodes"`
	Edges []RawEdge `json:"edges"`
}

// -- Query Result Schemas --

// SkillOverlap compares the skills a candidate has with those a job requires.
// Jaccard here is |overlap| / |job_required_skills|, and 0 when the job lists none.
type SkillOverlap struct {
	CandidateSkills   []string `json:"candidate_skills"`
	JobRequiredSkills []string `json:"job_required_skills"`
	Overlap           []string `json:"overlap"`
	Missing           []string `json:"missing"`
	Jaccard           float64  `json:"jaccard"`
}

// NodeSummary is the compact projection returned by search endpoints.
type NodeSummary struct {
	ID    string   `json:"id"`
	Type  NodeType `json:"type"`
	Label string   `json:"label"`
}

// GraphStats summarises the size of a knowledge graph.
type GraphStats struct {
	Nodes       int              `json:"nodes"`
	Edges       int              `json:"edges"`
	TotalWeight int              `json:"total_weight"`
	NodesByType map[NodeType]int `json:"nodes_by_type"`
}
