package hierarchy

import "strings"

// VirtualIDPrefix starts the id of every merged virtual node.
const VirtualIDPrefix = "V:"

// Consolidate merges chains into one tree under a ROOT node. Virtual nodes
// with the same tag under the same parent collapse into one; real nodes are
// never merged. Children keep first-seen order and depths are recomputed
// from the root. Input chains are not modified.
func Consolidate(chains [][]*Node) *Node {
	root := &Node{ID: RoleRoot, RoleLabel: RoleRoot, IsVirtual: true}
	virtual := make(map[string]*Node)

	for _, chain := range chains {
		parent := root
		path := ""
		for _, n := range chain {
			if n == nil {
				continue
			}
			if n.IsVirtual {
				path = joinPath(path, n.Tag)
				id := VirtualIDPrefix + path
				if existing, ok := virtual[id]; ok {
					parent = existing
					continue
				}
				c := attach(parent, n)
				c.ID = id
				virtual[id] = c
				parent = c
				continue
			}
			// Chains end at their leaf.
			attach(parent, n)
			break
		}
	}
	return root
}

func attach(parent, n *Node) *Node {
	c := &Node{
		ID:        n.ID,
		RoleLabel: n.RoleLabel,
		Tag:       n.Tag,
		ParentTag: parent.Tag,
		ParentID:  parent.ID,
		Depth:     parent.Depth + 1,
		IsVirtual: n.IsVirtual,
	}
	parent.Children = append(parent.Children, c)
	return c
}

func joinPath(path, tag string) string {
	if path == "" {
		return tag
	}
	return strings.Join([]string{path, tag}, "/")
}

// Count returns the number of virtual and real nodes below root.
func Count(root *Node) (virtual, real int) {
	Walk(root, func(n *Node) bool {
		switch {
		case n == root:
		case n.IsVirtual:
			virtual++
		default:
			real++
		}
		return true
	})
	return virtual, real
}
