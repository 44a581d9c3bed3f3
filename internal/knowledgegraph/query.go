package knowledgegraph

import (
	"iter"
	"slices"
	"sort"
	"strings"

	"github.com/xkilldash9x/skillgraph/api/schemas"
	"github.com/xkilldash9x/skillgraph/internal/identity"
)

// FindNodes yields (id, node) pairs in insertion order. nodeType is matched
// exactly but case-insensitively; labelContains is a normalized substring
// match against the label, or props.name when the label is empty. An empty
// argument disables its filter.
//
// The sequence is lazy and restartable: each range re-reads the node order,
// and the read lock is held per step, never across yield.
func (g *Graph) FindNodes(nodeType, labelContains string) iter.Seq2[string, schemas.Node] {
	wantType := strings.TrimSpace(nodeType)
	needle := identity.NormalizeLabel(labelContains)

	return func(yield func(string, schemas.Node) bool) {
		g.mu.RLock()
		order := slices.Clone(g.nodeOrder)
		g.mu.RUnlock()

		for _, id := range order {
			node, ok := g.Node(id)
			if !ok || !matches(node, wantType, needle) {
				continue
			}
			if !yield(id, node) {
				return
			}
		}
	}
}

func matches(n schemas.Node, wantType, needle string) bool {
	if wantType != "" && !strings.EqualFold(string(n.Type), wantType) {
		return false
	}
	if needle == "" {
		return true
	}
	return strings.Contains(identity.NormalizeLabel(n.DisplayLabel()), needle)
}

// NodeSummaries drains seq into the compact {id, type, label} projection.
// The result is never nil.
func NodeSummaries(seq iter.Seq2[string, schemas.Node]) []schemas.NodeSummary {
	out := []schemas.NodeSummary{}
	for id, n := range seq {
		out = append(out, schemas.NodeSummary{ID: id, Type: n.Type, Label: n.DisplayLabel()})
	}
	return out
}

// Neighbors groups the targets of nodeID's outgoing edges by relation, each
// list in edge insertion order. Unknown ids yield an empty map.
func (g *Graph) Neighbors(nodeID string) map[string][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[string][]string)
	for _, k := range g.outgoing[nodeID] {
		out[k.Relation] = append(out[k.Relation], k.Target)
	}
	return out
}

// SkillOverlap compares the skills linked from candidateID by has_skill with
// those linked from jobID by requires_skill. Only targets typed as skill
// count. Jaccard is |overlap| / |required| and 0 when the job requires
// nothing. All lists are sorted and non-nil.
func (g *Graph) SkillOverlap(candidateID, jobID string) schemas.SkillOverlap {
	g.mu.RLock()
	have := g.skillTargets(candidateID, string(schemas.RelationshipHasSkill))
	need := g.skillTargets(jobID, string(schemas.RelationshipRequiresSkill))
	g.mu.RUnlock()

	res := schemas.SkillOverlap{
		CandidateSkills:   sortedKeys(have),
		JobRequiredSkills: sortedKeys(need),
		Overlap:           []string{},
		Missing:           []string{},
	}
	for _, skill := range res.JobRequiredSkills {
		if _, ok := have[skill]; ok {
			res.Overlap = append(res.Overlap, skill)
		} else {
			res.Missing = append(res.Missing, skill)
		}
	}
	if len(need) > 0 {
		res.Jaccard = float64(len(res.Overlap)) / float64(len(need))
	}
	return res
}

// skillTargets collects the skill-typed targets of from's edges with the given
// relation. Assumes the caller holds the read lock.
func (g *Graph) skillTargets(from, relation string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, k := range g.outgoing[from] {
		if k.Relation != relation {
			continue
		}
		if n, ok := g.nodes[k.Target]; ok && n.Type == schemas.NodeSkill {
			out[k.Target] = struct{}{}
		}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
