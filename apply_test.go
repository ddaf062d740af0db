package revdom

import "testing"

func TestApplySetText(t *testing.T) {
	tree := withChildren(withID(NewElement("div"), "r"), NewText("old"))
	got := Apply(tree, []Patch{setText([]int{0}, "r", "new")})
	if got.Children[0].Text != "new" {
		t.Fatalf("got %q, want %q", got.Children[0].Text, "new")
	}
	if tree.Children[0].Text != "old" {
		t.Fatalf("Apply mutated its input tree")
	}
}

func TestApplySetAndRemoveAttr(t *testing.T) {
	tree := withID(NewElement("button"), "btn")
	tree.Attrs["class"] = "btn"

	got := Apply(tree, []Patch{
		setAttr(nil, "btn", "class", "btn active"),
		removeAttr(nil, "btn", "disabled"),
	})
	if got.Attrs["class"] != "btn active" {
		t.Fatalf("class = %q, want %q", got.Attrs["class"], "btn active")
	}
}

func TestApplyReplace(t *testing.T) {
	old := withChildren(NewElement("div"), withID(NewElement("p"), "p1"))
	sub := withID(NewElement("span"), "s1")
	sub.Children = []*Node{NewText("hi")}

	got := Apply(old, []Patch{replace([]int{0}, "p1", sub)})
	if got.Children[0].Tag != "span" {
		t.Fatalf("tag = %q, want span", got.Children[0].Tag)
	}
	if len(got.Children[0].Children) != 1 || got.Children[0].Children[0].Text != "hi" {
		t.Fatalf("replaced subtree missing expected text child: %+v", got.Children[0])
	}
}

func TestApplyInsertAndRemoveChild(t *testing.T) {
	tree := withChildren(NewElement("ul"), withID(NewElement("li"), "a"))

	inserted := Apply(tree, []Patch{insertChild(nil, "r", 0, NewElement("li"))})
	if len(inserted.Children) != 2 {
		t.Fatalf("got %d children after insert, want 2", len(inserted.Children))
	}

	removed := Apply(inserted, []Patch{removeChild(nil, "r", 1)})
	if len(removed.Children) != 1 {
		t.Fatalf("got %d children after remove, want 1", len(removed.Children))
	}
}

func TestApplyMoveChildLocatesByStableIDNotFrom(t *testing.T) {
	a := withID(NewElement("li"), "a")
	b := withID(NewElement("li"), "b")
	c := withID(NewElement("li"), "c")
	tree := withChildren(NewElement("ul"), a, b, c)

	// From is deliberately wrong (stale); ChildID must still win.
	got := Apply(tree, []Patch{moveChild(nil, "r", 99, 0, "c")})
	if got.Children[0].StableID != "c" {
		t.Fatalf("got order %v, want c moved to front", stableIDs(got.Children))
	}
}

func TestApplyMultipleMovesMatchFullReverse(t *testing.T) {
	old := keyedList([]string{"a", "b", "c", "d"})
	want := keyedList([]string{"d", "c", "b", "a"})

	patches := Diff(old, want)
	got := Apply(old, patches)
	if !got.Equal(want) {
		t.Fatalf("Apply(old, Diff(old,new)) != new for a full reverse\npatches: %+v", patches)
	}
}

func stableIDs(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.StableID
	}
	return out
}
