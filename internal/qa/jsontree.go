package qa

import (
	"fmt"
	"sort"
	"strconv"
)

// NodeKind discriminates the snapshot tree union.
type NodeKind int

const (
	ScalarNode NodeKind = iota
	ListNode
	MapNode
)

// TreeNode is a tagged union over the shapes a snapshot field can take:
// a scalar, a list of scalars, or a nested map. Decoded JSON is converted
// once up front so the search below never touches interface{} directly.
type TreeNode struct {
	Kind   NodeKind
	Scalar string
	List   []string
	Map    map[string]TreeNode
}

// NodeFromValue converts a decoded JSON value into a TreeNode. Non-scalar
// list elements are flattened to their string rendering; unknown shapes
// become scalars via fmt.
func NodeFromValue(value interface{}) TreeNode {
	switch v := value.(type) {
	case nil:
		return TreeNode{Kind: ScalarNode, Scalar: ""}
	case string:
		return TreeNode{Kind: ScalarNode, Scalar: v}
	case bool:
		return TreeNode{Kind: ScalarNode, Scalar: strconv.FormatBool(v)}
	case float64:
		return TreeNode{Kind: ScalarNode, Scalar: strconv.FormatFloat(v, 'f', -1, 64)}
	case []interface{}:
		items := make([]string, 0, len(v))
		for _, item := range v {
			node := NodeFromValue(item)
			if node.Kind == ScalarNode {
				items = append(items, node.Scalar)
			} else {
				items = append(items, fmt.Sprintf("%v", item))
			}
		}
		return TreeNode{Kind: ListNode, List: items}
	case []string:
		return TreeNode{Kind: ListNode, List: v}
	case map[string]interface{}:
		m := make(map[string]TreeNode, len(v))
		for key, val := range v {
			m[key] = NodeFromValue(val)
		}
		return TreeNode{Kind: MapNode, Map: m}
	default:
		return TreeNode{Kind: ScalarNode, Scalar: fmt.Sprintf("%v", v)}
	}
}

// TreeMatch is one hit from FindField.
type TreeMatch struct {
	Key   string
	Path  string
	Value TreeNode
}

// FindField walks the tree depth-first and returns the first scalar or list
// whose key bidirectional-substring-matches the normalized field name. Map
// keys are visited in sorted order so the "first hit" is deterministic.
// The walk stops at the first match; it is not globally optimal on purpose.
func FindField(root TreeNode, normalizedField, pathPrefix string) (TreeMatch, bool) {
	if root.Kind != MapNode {
		return TreeMatch{}, false
	}

	keys := make([]string, 0, len(root.Map))
	for key := range root.Map {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		node := root.Map[key]
		path := key
		if pathPrefix != "" {
			path = pathPrefix + "." + key
		}

		if node.Kind != MapNode && ContainsEither(Normalize(key), normalizedField) {
			return TreeMatch{Key: key, Path: path, Value: node}, true
		}

		if node.Kind == MapNode {
			if match, ok := FindField(node, normalizedField, path); ok {
				return match, ok
			}
		}
	}

	return TreeMatch{}, false
}
