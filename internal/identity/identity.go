// Package identity assigns canonical ids to raw fragment nodes so that
// repeated mentions of the same entity collapse into one knowledge graph node.
package identity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/xkilldash9x/skillgraph/api/schemas"
)

// NamespaceSeparator marks a raw id as already canonical ("skill:python").
const NamespaceSeparator = ":"

// HashPrefix prefixes ids synthesised from a content hash.
const HashPrefix = "node"

// coalescible lists the node types deduplicated by label rather than raw id.
var coalescible = map[schemas.NodeType]struct{}{
	schemas.NodeSkill:         {},
	schemas.NodeCompany:       {},
	schemas.NodeInstitution:   {},
	schemas.NodeCertification: {},
	schemas.NodeProject:       {},
	schemas.NodeDegree:        {},
	schemas.NodeRole:          {},
}

// IsCoalescible reports whether nodes of the given raw type are merged by label.
func IsCoalescible(rawType string) bool {
	_, ok := coalescible[schemas.NodeType(normalizeType(rawType))]
	return ok
}

// NormalizeLabel trims, lower-cases and collapses internal whitespace.
func NormalizeLabel(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func normalizeType(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Canonicalize maps a raw node to its canonical id. It is pure and
// deterministic across runs and processes:
//
//  1. a raw id that already contains a namespace separator is kept as is;
//  2. coalescible types with a non-empty label become "type:normalized label";
//  3. everything else gets "node:<hash>" over id, type, label and props.
//
// The label falls back to props.name when empty.
func Canonicalize(raw schemas.RawNode) string {
	id := strings.TrimSpace(raw.ID)
	if id != "" && strings.Contains(id, NamespaceSeparator) {
		return id
	}

	nodeType := normalizeType(raw.Type)
	label := NormalizeLabel(raw.Label)
	if label == "" {
		label = NormalizeLabel(raw.Props.StringField("name"))
	}

	if label != "" {
		if _, ok := coalescible[schemas.NodeType(nodeType)]; ok {
			return nodeType + NamespaceSeparator + label
		}
	}

	return fmt.Sprintf("%s%s%012x", HashPrefix, NamespaceSeparator, fingerprint(id, nodeType, label, raw.Props)>>16)
}

// fingerprint hashes the canonical serialization {"id","label","props","type"}.
func fingerprint(id, nodeType, label string, props schemas.Props) uint64 {
	buf := make([]byte, 0, 128)
	buf = append(buf, `{"id":`...)
	buf = strconv.AppendQuote(buf, id)
	buf = append(buf, `,"label":`...)
	buf = strconv.AppendQuote(buf, label)
	buf = append(buf, `,"props":`...)
	buf = props.AppendCanonical(buf)
	buf = append(buf, `,"type":`...)
	buf = strconv.AppendQuote(buf, nodeType)
	buf = append(buf, '}')
	return xxhash.Sum64(buf)
}
