// Package hierarchy places an item in the plant structure: it builds the
// ancestor-to-leaf node chain of one item from its discipline's role list,
// and merges many chains into one tree.
package hierarchy

import (
	"fmt"
)

// Role labels with fixed meaning.
const (
	RoleLeaf      = "EQUI"
	RoleStructure = "STRU" // legacy alias of RoleLeaf
	RoleRoot      = "ROOT"
)

// Node is one level of a hierarchy chain or tree.
type Node struct {
	ID        string  `json:"id,omitempty"`
	RoleLabel string  `json:"role"`
	Tag       string  `json:"tag"`
	ParentTag string  `json:"parentTag,omitempty"`
	ParentID  string  `json:"parentId,omitempty"`
	Depth     int     `json:"depth"`
	IsVirtual bool    `json:"isVirtual"`
	Children  []*Node `json:"children,omitempty"`
}

// Leaf returns the single real node of a chain.
func Leaf(chain []*Node) (*Node, bool) {
	for _, n := range chain {
		if !n.IsVirtual {
			return n, true
		}
	}
	return nil, false
}

// VerifyChain checks the chain shape: exactly one real node, depth rising
// by one per level and each ParentTag naming the previous tag.
func VerifyChain(chain []*Node) error {
	real := 0
	for i, n := range chain {
		if !n.IsVirtual {
			real++
		}
		if i == 0 {
			continue
		}
		prev := chain[i-1]
		if n.Depth != prev.Depth+1 {
			return fmt.Errorf("node %d (%s): depth %d after %d", i, n.RoleLabel, n.Depth, prev.Depth)
		}
		if n.ParentTag != prev.Tag {
			return fmt.Errorf("node %d (%s): parent tag %q, previous tag %q", i, n.RoleLabel, n.ParentTag, prev.Tag)
		}
	}
	if real != 1 {
		return fmt.Errorf("chain has %d real nodes, want 1", real)
	}
	return nil
}

// Walk visits n and its descendants depth-first, parents before children.
// Returning false from fn skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}
