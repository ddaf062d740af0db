// Package revdom implements the core of a server-side reactive rendering
// engine: a virtual-DOM differ and patcher that lets a server push minimal,
// ordered DOM mutations to a browser over a persistent channel.
package revdom

import "fmt"

// Kind identifies the variant a Node carries.
type Kind int

const (
	// KindDocument roots a full parse tree.
	KindDocument Kind = iota
	// KindElement is a tagged HTML element.
	KindElement
	// KindText is a run of character data.
	KindText
	// KindComment is an HTML comment. Comments never survive normalization
	// (see Parse) but the Kind exists so intermediate parse stages can
	// represent them before filtering.
	KindComment
	// KindDoctype is a <!DOCTYPE ...> declaration.
	KindDoctype
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindElement:
		return "element"
	case KindText:
		return "text"
	case KindComment:
		return "comment"
	case KindDoctype:
		return "doctype"
	default:
		return "unknown"
	}
}

// KeyAttrs lists the attribute names that activate keyed reconciliation when
// present on an element (§3, §4.3).
var KeyAttrs = []string{"data-key", "dj-key"}

// StableIDAttr is the attribute the server emits into rendered HTML so the
// client can resolve a patch target in O(1) without path traversal.
const StableIDAttr = "data-dj-id"

// IgnoreAttr marks a subtree as externally owned; the diff engine must never
// descend into it (§4.4 opt-out contract).
const IgnoreAttr = "dj-update"

// IgnoreValue is the sentinel value of IgnoreAttr that activates opt-out.
const IgnoreValue = "ignore"

// Node is the single recursive tree variant described in §3. Only Element
// and Text nodes survive normalization; Comment and Doctype values may
// appear transiently during parsing but are filtered before a tree is
// committed as a baseline.
type Node struct {
	Kind Kind

	// Tag is set for Element nodes: a lowercase symbol such as "div".
	Tag string

	// Text is set for Text nodes: the exact, unescaped character content.
	Text string

	// Attrs maps lowercase attribute name to its verbatim string value.
	// Duplicate keys are not permitted; iteration order carries no meaning.
	Attrs map[string]string

	// Children is the ordered list of child nodes. Order is significant
	// and is part of a node's identity.
	Children []*Node

	// Key is the value of a data-key/dj-key attribute, if present. A
	// non-empty Key on any child switches its parent's whole child list to
	// keyed reconciliation; keys are matched without regard to Tag.
	Key string

	// StableID is a compact, opaque identifier minted at parse time and
	// carried across diffs by ID synchronization (§4.3). Only Element
	// nodes receive one.
	StableID string
}

// NewElement builds a bare Element node with an empty attribute map.
func NewElement(tag string) *Node {
	return &Node{Kind: KindElement, Tag: tag, Attrs: map[string]string{}}
}

// NewText builds a Text node. Callers must not construct whitespace-only
// text nodes directly; use Parse, which enforces the filtering discipline.
func NewText(text string) *Node {
	return &Node{Kind: KindText, Text: text}
}

// IsIgnored reports whether n is marked as an externally-owned opt-out
// region (§4.4). The diff engine checks this before descending into a node.
func (n *Node) IsIgnored() bool {
	if n == nil || n.Kind != KindElement {
		return false
	}
	return n.Attrs[IgnoreAttr] == IgnoreValue
}

// Clone performs a deep copy of the subtree rooted at n. StableID and Key
// are preserved; callers that want fresh IDs should mint them explicitly
// (see nextStableID in id.go).
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Kind:     n.Kind,
		Tag:      n.Tag,
		Text:     n.Text,
		Key:      n.Key,
		StableID: n.StableID,
	}
	if n.Attrs != nil {
		out.Attrs = make(map[string]string, len(n.Attrs))
		for k, v := range n.Attrs {
			out.Attrs[k] = v
		}
	}
	if n.Children != nil {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// String renders a short debug representation; it is not the serialization
// format used on the wire (see SerializeHTML in parse.go).
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case KindText:
		return fmt.Sprintf("Text(%q)", n.Text)
	case KindElement:
		return fmt.Sprintf("Element(%s#%s key=%q children=%d)", n.Tag, n.StableID, n.Key, len(n.Children))
	default:
		return n.Kind.String()
	}
}

// Equal reports deep structural equality, ignoring StableID (which is a
// parse-time artifact, not part of tree identity) but not Key or attribute
// values. Used by the round-trip property tests (§8): Apply(old,
// Diff(old, new)) must be Equal to new.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Kind != o.Kind || n.Tag != o.Tag || n.Text != o.Text || n.Key != o.Key {
		return false
	}
	if len(n.Attrs) != len(o.Attrs) {
		return false
	}
	for k, v := range n.Attrs {
		if ov, ok := o.Attrs[k]; !ok || ov != v {
			return false
		}
	}
	if len(n.Children) != len(o.Children) {
		return false
	}
	for i, c := range n.Children {
		if !c.Equal(o.Children[i]) {
			return false
		}
	}
	return true
}
