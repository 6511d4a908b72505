// SPDX-License-Identifier: Apache-2.0

package view

import (
	"fmt"
	"sort"

	"github.com/xataio/tanker/pkg/sexpr"
)

// buildFilter turns a View's raw Filter value into the s-expression AST it
// denotes, plus any synthetic `{__filterN}` placeholder bindings a mapping
// introduced along the way. expr is nil (no filter), a string (parsed
// as-is), a []any (each element itself a filter, implicitly ANDed), or a
// map[string]any (each entry becoming an `(= key value)` equality,
// conjoined) — the same string/list/mapping sugar a bare top-level mapping
// gets.
func buildFilter(expr any) (sexpr.Node, map[string]any, error) {
	args := map[string]any{}
	node, err := filterNode(expr, args)
	if err != nil {
		return nil, nil, err
	}
	return node, args, nil
}

func filterNode(expr any, args map[string]any) (sexpr.Node, error) {
	switch e := expr.(type) {
	case nil:
		return nil, nil
	case string:
		if e == "" {
			return nil, nil
		}
		return sexpr.Parse(e)
	case []any:
		return filterListNode(e, args)
	case map[string]any:
		return filterMapNode(e, args)
	default:
		return nil, InvalidFilterError{Value: expr}
	}
}

// filterListNode ANDs the AST of every element together, each resolved
// recursively so a list may nest further lists or mappings.
func filterListNode(items []any, args map[string]any) (sexpr.Node, error) {
	var parts []sexpr.Node
	for _, item := range items {
		n, err := filterNode(item, args)
		if err != nil {
			return nil, err
		}
		if n != nil {
			parts = append(parts, n)
		}
	}
	return conjoinNodes(parts), nil
}

// filterMapNode lowers a mapping into an equality conjunction, one
// `(= key value)` term per entry. Each value is bound as a synthetic
// placeholder rather than inlined as a literal, so arbitrary Go values
// (not just strings/numbers) round-trip the same way an explicit
// `{name}` placeholder binding would. Keys are sorted for a deterministic
// term order.
func filterMapNode(m map[string]any, args map[string]any) (sexpr.Node, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]sexpr.Node, 0, len(keys))
	for _, k := range keys {
		name := fmt.Sprintf("__filter%d", len(args))
		args[name] = m[k]
		parts = append(parts, &sexpr.List{
			Head: "=",
			Args: []sexpr.Node{&sexpr.Symbol{Name: k}, &sexpr.Placeholder{Name: name}},
		})
	}
	return conjoinNodes(parts), nil
}

func conjoinNodes(parts []sexpr.Node) sexpr.Node {
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	default:
		return &sexpr.List{Head: "and", Args: parts}
	}
}

// mergeArgs overlays extra onto base, returning base unchanged when extra
// is empty so callers needn't allocate for the common filter-less case.
func mergeArgs(base, extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return base
	}
	merged := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
