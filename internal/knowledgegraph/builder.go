package knowledgegraph

import (
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/skillgraph/api/schemas"
	"github.com/xkilldash9x/skillgraph/internal/identity"
)

// DefaultSource is the provenance tag attached when the caller supplies none.
const DefaultSource = "ingested"

// Build turns a single fragment into a standalone graph and reports how each
// raw node id was resolved. source is the provenance tag recorded on every
// node and edge; an empty string means DefaultSource.
//
// Edge endpoints are resolved through the nodes declared so far in the
// fragment, falling back to the raw string, so edges may point at nodes that
// were never declared. Edges with an empty endpoint are skipped; the fragment
// decoder rejects those before they get here.
func Build(frag schemas.Fragment, source string) (*Graph, map[string]string) {
	g := New(nil)
	remap := g.build(frag, source)
	return g, remap
}

// build populates g from frag. Assumes the caller owns g exclusively.
func (g *Graph) build(frag schemas.Fragment, source string) map[string]string {
	if source == "" {
		source = DefaultSource
	}

	remap := make(map[string]string, len(frag.Nodes))
	for _, raw := range frag.Nodes {
		id := identity.Canonicalize(raw)
		if strings.TrimSpace(raw.ID) != "" {
			remap[raw.ID] = id
		}
		g.upsertNode(schemas.Node{
			ID:      id,
			Type:    schemas.ParseNodeType(raw.Type),
			Label:   raw.Label,
			Props:   raw.Props.Clone(),
			Sources: schemas.NewSourceSet(source),
		})
	}

	for _, raw := range frag.Edges {
		src, tgt := resolve(remap, raw.Source), resolve(remap, raw.Target)
		if src == "" || tgt == "" {
			g.log.Warn("Skipping edge without endpoints", zap.String("Source", raw.Source), zap.String("Target", raw.Target))
			continue
		}
		g.upsertEdge(schemas.Edge{
			Source:   src,
			Target:   tgt,
			Relation: schemas.NormalizeRelation(raw.Relation),
			Weight:   1,
			Sources:  schemas.NewSourceSet(source),
		})
	}
	return remap
}

func resolve(remap map[string]string, raw string) string {
	if id, ok := remap[raw]; ok {
		return id
	}
	return strings.TrimSpace(raw)
}
