package revdom

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// voidElements never have a closing tag or children (HTML5 §13.1.2). Used
// when serializing a Node back to HTML for the initial mount payload and
// for Replace/InsertChild subtree payloads.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Parse implements the §4.2 parsing contract: it turns a well-formed HTML5
// fragment into a normalized Node tree. Comment nodes are dropped; text
// nodes consisting solely of Unicode whitespace are dropped; every Element
// receives a process-unique StableID; data-key/dj-key attributes populate
// Key while remaining in the serialized attribute set. A data-dj-id
// attribute already present in the source (as in SerializeHTML output) is
// taken as that element's StableID and removed from its attributes, so
// re-parsing serialized output yields the same attribute set.
//
// Parse operates on the reactive region's fragment source directly: callers
// that have a full document should extract the reactive region's inner HTML
// first (the embedding framework owns how that boundary is marked).
func Parse(source string) (*Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(source), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil, newErr(KindParseError, "parsing HTML fragment", err)
	}

	root := &Node{Kind: KindElement, Tag: "dj-root", Attrs: map[string]string{}}
	for _, n := range nodes {
		if child := convert(n); child != nil {
			stripWireAttrs(child)
			root.Children = append(root.Children, child)
		}
	}
	assignIDs(root)
	return root, nil
}

// convert performs the filtering discipline of §4.2: Comment nodes are
// dropped entirely; Text nodes consisting solely of whitespace are dropped;
// everything else is converted recursively.
func convert(n *html.Node) *Node {
	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return nil
	case html.TextNode:
		if isAllWhitespace(n.Data) {
			return nil
		}
		return &Node{Kind: KindText, Text: n.Data}
	case html.ElementNode:
		el := &Node{Kind: KindElement, Tag: n.Data, Attrs: map[string]string{}}
		for _, a := range n.Attr {
			key := strings.ToLower(a.Key)
			el.Attrs[key] = a.Val
		}
		for _, keyAttr := range KeyAttrs {
			if v, ok := el.Attrs[keyAttr]; ok && v != "" {
				el.Key = v
				break
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if child := convert(c); child != nil {
				el.Children = append(el.Children, child)
			}
		}
		return el
	default:
		return nil
	}
}

func isAllWhitespace(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// SerializeHTML renders n (and its children) back to an HTML string,
// emitting data-dj-id for every Element so the client can index it. This is
// used for the initial mount payload and for Replace/InsertChild subtree
// payloads (§3 Patch table).
func SerializeHTML(n *Node) string {
	var b strings.Builder
	serialize(&b, n)
	return b.String()
}

// SerializeChildren renders only n's children, concatenated, with no
// wrapping element — used for the reactive region's body, since the region
// boundary element itself is owned by the embedding framework.
func SerializeChildren(n *Node) string {
	var b strings.Builder
	if n != nil {
		for _, c := range n.Children {
			serialize(&b, c)
		}
	}
	return b.String()
}

func serialize(b *strings.Builder, n *Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case KindText:
		b.WriteString(html.EscapeString(n.Text))
	case KindElement:
		b.WriteByte('<')
		b.WriteString(n.Tag)
		if n.StableID != "" {
			b.WriteString(" " + StableIDAttr + `="`)
			b.WriteString(n.StableID)
			b.WriteByte('"')
		}
		for k, v := range n.Attrs {
			b.WriteByte(' ')
			b.WriteString(k)
			b.WriteString(`="`)
			b.WriteString(html.EscapeString(v))
			b.WriteByte('"')
		}
		b.WriteByte('>')
		if voidElements[n.Tag] {
			return
		}
		for _, c := range n.Children {
			serialize(b, c)
		}
		b.WriteString("</")
		b.WriteString(n.Tag)
		b.WriteByte('>')
	}
}
