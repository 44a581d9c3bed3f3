// Package fragment decodes the JSON node/edge documents produced by CV and
// job extraction into schemas.Fragment values, rejecting malformed ones whole.
package fragment

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xkilldash9x/skillgraph/api/schemas"
	"github.com/xkilldash9x/skillgraph/internal/llmutil"
)

// ErrMalformedFragment is matched by every shape error Decode returns.
var ErrMalformedFragment = errors.New("malformed fragment")

// MalformedError describes why a fragment was rejected.
type MalformedError struct {
	Field  string // e.g. "nodes", "edges[3].target"; empty for document-level errors
	Reason string
}

func (e *MalformedError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrMalformedFragment, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrMalformedFragment, e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrMalformedFragment) hold.
func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformedFragment
}

func malformed(field, format string, args ...any) error {
	return &MalformedError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Decode parses one fragment. The document may be wrapped in markdown code
// fences or surrounded by prose. Both "nodes" and "edges" must be present and
// be arrays of objects; every edge needs a source and a target. Numeric ids
// are accepted and kept in their textual form.
func Decode(data []byte) (schemas.Fragment, error) {
	doc, err := llmutil.ParseJSONResponse[map[string]any](string(data))
	if err != nil {
		return schemas.Fragment{}, malformed("", "invalid JSON: %v", err)
	}
	if *doc == nil {
		return schemas.Fragment{}, malformed("", "document must be an object")
	}

	rawNodes, err := array(*doc, "nodes")
	if err != nil {
		return schemas.Fragment{}, err
	}
	rawEdges, err := array(*doc, "edges")
	if err != nil {
		return schemas.Fragment{}, err
	}

	frag := schemas.Fragment{
		Nodes: make([]schemas.RawNode, 0, len(rawNodes)),
		Edges: make([]schemas.RawEdge, 0, len(rawEdges)),
	}
	for i, item := range rawNodes {
		n, err := decodeNode(fmt.Sprintf("nodes[%d]", i), item)
		if err != nil {
			return schemas.Fragment{}, err
		}
		frag.Nodes = append(frag.Nodes, n)
	}
	for i, item := range rawEdges {
		e, err := decodeEdge(fmt.Sprintf("edges[%d]", i), item)
		if err != nil {
			return schemas.Fragment{}, err
		}
		frag.Edges = append(frag.Edges, e)
	}
	return frag, nil
}

// DecodeReader reads r to the end and decodes it.
func DecodeReader(r io.Reader) (schemas.Fragment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return schemas.Fragment{}, fmt.Errorf("failed to read fragment: %w", err)
	}
	return Decode(data)
}

// DecodeFile reads and decodes the fragment stored at path.
func DecodeFile(path string) (schemas.Fragment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schemas.Fragment{}, fmt.Errorf("failed to read fragment %s: %w", path, err)
	}
	frag, err := Decode(data)
	if err != nil {
		return schemas.Fragment{}, fmt.Errorf("%s: %w", path, err)
	}
	return frag, nil
}

func array(doc map[string]any, key string) ([]any, error) {
	v, ok := doc[key]
	if !ok {
		return nil, malformed(key, "missing")
	}
	items, ok := v.([]any)
	if !ok {
		return nil, malformed(key, "must be an array, got %s", describe(v))
	}
	return items, nil
}

func decodeNode(field string, item any) (schemas.RawNode, error) {
	obj, ok := item.(map[string]any)
	if !ok {
		return schemas.RawNode{}, malformed(field, "must be an object, got %s", describe(item))
	}

	var n schemas.RawNode
	var err error
	if n.ID, err = scalar(field, obj, "id"); err != nil {
		return n, err
	}
	if n.Type, err = scalar(field, obj, "type"); err != nil {
		return n, err
	}
	if n.Label, err = scalar(field, obj, "label"); err != nil {
		return n, err
	}

	switch props := obj["props"].(type) {
	case nil:
	case map[string]any:
		if n.Props, err = schemas.PropsFromAny(props); err != nil {
			return n, malformed(field+".props", "%v", err)
		}
	default:
		return n, malformed(field+".props", "must be an object, got %s", describe(props))
	}
	return n, nil
}

func decodeEdge(field string, item any) (schemas.RawEdge, error) {
	obj, ok := item.(map[string]any)
	if !ok {
		return schemas.RawEdge{}, malformed(field, "must be an object, got %s", describe(item))
	}

	var e schemas.RawEdge
	var err error
	if e.Source, err = scalar(field, obj, "source"); err != nil {
		return e, err
	}
	if e.Target, err = scalar(field, obj, "target"); err != nil {
		return e, err
	}
	if e.Relation, err = scalar(field, obj, "relation"); err != nil {
		return e, err
	}
	if strings.TrimSpace(e.Source) == "" {
		return e, malformed(field+".source", "missing")
	}
	if strings.TrimSpace(e.Target) == "" {
		return e, malformed(field+".target", "missing")
	}
	return e, nil
}

// scalar reads an optional string-like field. Numbers and booleans are
// stringified; objects and arrays are rejected.
func scalar(field string, obj map[string]any, key string) (string, error) {
	switch v := obj[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case fmt.Stringer: // json.Number
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", malformed(field+"."+key, "must be a string, got %s", describe(v))
	}
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	default:
		return "number"
	}
}
