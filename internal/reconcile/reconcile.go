// Package reconcile merges the property bags of duplicate mentions of the
// same canonical entity.
package reconcile

import (
	"github.com/xkilldash9x/skillgraph/api/schemas"
)

// Merge folds incoming into existing and returns the result as a new bag.
// Neither argument is modified. For every key of incoming:
//
//   - missing or empty in existing (null, "", [], {}): the incoming value is taken;
//   - list and list: union, existing order first, novel incoming items appended;
//   - map and map: merged recursively with these same rules;
//   - anything else: the existing value is kept.
//
// The last rule means the first fragment to supply a scalar keeps it even when
// a later fragment disagrees (two different "gpa" values on one degree, say).
func Merge(existing, incoming schemas.Props) schemas.Props {
	out := existing.Clone()
	for key, in := range incoming {
		cur, ok := out[key]
		if !ok || cur.IsEmpty() {
			out[key] = in.Clone()
			continue
		}
		out[key] = mergeValue(cur, in)
	}
	return out
}

// mergeValue resolves a key present and non-empty on the existing side.
func mergeValue(cur, in schemas.Value) schemas.Value {
	switch cur.Kind() {
	case schemas.KindList:
		if in.Kind() == schemas.KindList {
			return unionLists(cur.Items(), in.Items())
		}
	case schemas.KindMap:
		if in.Kind() == schemas.KindMap {
			return schemas.Map(Merge(cur.Fields(), in.Fields()))
		}
	case schemas.KindNull, schemas.KindString, schemas.KindNumber, schemas.KindBool:
		// Scalars: existing wins.
	}
	return cur
}

// unionLists appends the items of incoming not already present, comparing by
// canonical encoding.
func unionLists(existing, incoming []schemas.Value) schemas.Value {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]schemas.Value, 0, len(existing)+len(incoming))
	for _, item := range existing {
		seen[string(item.AppendCanonical(nil))] = struct{}{}
		out = append(out, item)
	}
	for _, item := range incoming {
		key := string(item.AppendCanonical(nil))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return schemas.List(out...)
}
