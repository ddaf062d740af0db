package revdom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Apply replays patches against a copy of tree, producing the tree a real
// client would end up with after applying the same patch sequence to its
// live DOM. It is the receiving half of the §4.4 wire contract and the
// counterpart to Diff: for any old/new pair, Apply(old, Diff(old, new)) must
// be structurally Equal to new (§8's round-trip property). tree itself is
// never mutated.
func Apply(tree *Node, patches []Patch) *Node {
	root := tree.Clone()
	for _, p := range patches {
		applyOne(root, p)
	}
	return root
}

func applyOne(root *Node, p Patch) {
	switch p.Type {
	case PatchSetText:
		if n := nodeAt(root, p.Path); n != nil {
			n.Text = p.Text
		}
	case PatchSetAttr:
		if n := nodeAt(root, p.Path); n != nil {
			if n.Attrs == nil {
				n.Attrs = map[string]string{}
			}
			n.Attrs[p.Key] = p.Value
		}
	case PatchRemoveAttr:
		if n := nodeAt(root, p.Path); n != nil {
			delete(n.Attrs, p.Key)
		}
	case PatchReplace:
		sub, err := parseSubtreeHTML(p.HTML)
		if err != nil {
			return
		}
		setAt(root, p.Path, sub)
	case PatchInsertChild:
		parent := nodeAt(root, p.Path)
		if parent == nil {
			return
		}
		sub, err := parseSubtreeHTML(p.HTML)
		if err != nil {
			return
		}
		parent.Children = insertAt(parent.Children, p.Index, sub)
	case PatchRemoveChild:
		parent := nodeAt(root, p.Path)
		if parent == nil {
			return
		}
		parent.Children = removeAt(parent.Children, p.Index)
	case PatchMoveChild:
		parent := nodeAt(root, p.Path)
		if parent == nil {
			return
		}
		// A live client locates the moving child by its stable_id (already
		// present in the DOM) rather than by From, which is only valid
		// against the pre-diff snapshot and goes stale the moment an
		// earlier move in the sequence runs.
		parent.Children = moveChildByID(parent.Children, p.ChildID, p.Index)
	}
}

// nodeAt walks path from root, returning the node path addresses, or nil if
// the path is out of range.
func nodeAt(root *Node, path []int) *Node {
	n := root
	for _, idx := range path {
		if n == nil || idx < 0 || idx >= len(n.Children) {
			return nil
		}
		n = n.Children[idx]
	}
	return n
}

// setAt replaces the node at path with sub.
func setAt(root *Node, path []int, sub *Node) {
	if len(path) == 0 {
		return
	}
	parent := nodeAt(root, path[:len(path)-1])
	if parent == nil {
		return
	}
	idx := path[len(path)-1]
	if idx < 0 || idx >= len(parent.Children) {
		return
	}
	parent.Children[idx] = sub
}

func insertAt(children []*Node, idx int, n *Node) []*Node {
	if idx < 0 {
		idx = 0
	}
	if idx > len(children) {
		idx = len(children)
	}
	out := make([]*Node, 0, len(children)+1)
	out = append(out, children[:idx]...)
	out = append(out, n)
	out = append(out, children[idx:]...)
	return out
}

func removeAt(children []*Node, idx int) []*Node {
	if idx < 0 || idx >= len(children) {
		return children
	}
	out := make([]*Node, 0, len(children)-1)
	out = append(out, children[:idx]...)
	out = append(out, children[idx+1:]...)
	return out
}

func moveChildByID(children []*Node, id string, to int) []*Node {
	idx := -1
	for i, c := range children {
		if c.StableID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return children
	}
	moved := children[idx]
	rest := removeAt(children, idx)
	return insertAt(rest, to, moved)
}

// parseSubtreeHTML reconstructs the Node a Replace/InsertChild patch's HTML
// field serialized, undoing SerializeHTML's data-dj-id injection (§4.2's
// attribute set never includes it - it is wire metadata, not a real
// attribute) rather than calling Parse, which wraps the result in a
// synthetic root and mints brand-new IDs neither of which an applying
// client wants: it already knows the subtree's shape from the patch itself.
func parseSubtreeHTML(raw string) (*Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(raw), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil, newErr(KindParseError, "parsing patch subtree", err)
	}
	if len(nodes) == 0 {
		return NewText(""), nil
	}
	sub := convert(nodes[0])
	if sub == nil {
		return NewText(""), nil
	}
	stripWireAttrs(sub)
	return sub, nil
}

func stripWireAttrs(n *Node) {
	if n == nil || n.Kind != KindElement {
		return
	}
	if id, ok := n.Attrs[StableIDAttr]; ok {
		n.StableID = id
		delete(n.Attrs, StableIDAttr)
	}
	for _, c := range n.Children {
		stripWireAttrs(c)
	}
}
