package revdom

import "testing"

// withID assigns a stable_id to an element for tests that want to assert
// patches address a specific node (mirrors the ID the Parser would mint).
func withID(n *Node, id string) *Node {
	n.StableID = id
	return n
}

func TestDiffIdenticalTreesProducesNoPatches(t *testing.T) {
	a := withChildren(NewElement("div"), withChildren(NewElement("p"), NewText("hi")))
	b := a.Clone()

	patches := Diff(a, b)
	if len(patches) != 0 {
		t.Fatalf("diff(t, t) = %v, want []", patches)
	}
}

func TestDiffEmptyToEmpty(t *testing.T) {
	old := NewElement("div")
	new := NewElement("div")
	if patches := Diff(old, new); len(patches) != 0 {
		t.Fatalf("got %v, want []", patches)
	}
}

func TestDiffNonEmptyToEmptyRemovesDescending(t *testing.T) {
	old := withChildren(NewElement("ul"),
		withID(NewElement("li"), "1"),
		withID(NewElement("li"), "2"),
		withID(NewElement("li"), "3"),
	)
	new := NewElement("ul")

	patches := Diff(old, new)
	if len(patches) != 3 {
		t.Fatalf("got %d patches, want 3: %+v", len(patches), patches)
	}
	wantIdx := []int{2, 1, 0}
	for i, p := range patches {
		if p.Type != PatchRemoveChild {
			t.Fatalf("patch %d: type = %s, want RemoveChild", i, p.Type)
		}
		if p.Index != wantIdx[i] {
			t.Fatalf("patch %d: index = %d, want %d (descending)", i, p.Index, wantIdx[i])
		}
	}
}

func TestDiffEmptyToNonEmptyInsertsAscending(t *testing.T) {
	old := NewElement("ul")
	new := withChildren(NewElement("ul"),
		NewElement("li"), NewElement("li"), NewElement("li"),
	)

	patches := Diff(old, new)
	if len(patches) != 3 {
		t.Fatalf("got %d patches, want 3: %+v", len(patches), patches)
	}
	wantIdx := []int{0, 1, 2}
	for i, p := range patches {
		if p.Type != PatchInsertChild {
			t.Fatalf("patch %d: type = %s, want InsertChild", i, p.Type)
		}
		if p.Index != wantIdx[i] {
			t.Fatalf("patch %d: index = %d, want %d (ascending)", i, p.Index, wantIdx[i])
		}
	}
}

func TestDiffSingleTextChangeProducesOneSetText(t *testing.T) {
	old := withChildren(withID(NewElement("div"), "r"),
		withChildren(withID(NewElement("p"), "p1"),
			withChildren(withID(NewElement("span"), "s1"), NewText("0"))))
	new := old.Clone()
	new.Children[0].Children[0].Children[0].Text = "1"

	patches := Diff(old, new)
	if len(patches) != 1 {
		t.Fatalf("got %d patches, want 1: %+v", len(patches), patches)
	}
	p := patches[0]
	if p.Type != PatchSetText || p.Text != "1" || p.D != "s1" {
		t.Fatalf("unexpected patch: %+v", p)
	}
	wantPath := []int{0, 0, 0}
	if !intsEqual(p.Path, wantPath) {
		t.Fatalf("path = %v, want %v", p.Path, wantPath)
	}
}

func TestDiffTagChangeEmitsSingleReplaceNoInnerPatches(t *testing.T) {
	old := withChildren(withID(NewElement("div"), "r"),
		withChildren(withID(NewElement("p"), "p1"), NewText("hi")))
	new := withChildren(NewElement("div"),
		withChildren(NewElement("span"), NewText("bye")))
	new.StableID = old.StableID

	patches := Diff(old, new)
	if len(patches) != 1 {
		t.Fatalf("got %d patches, want 1: %+v", len(patches), patches)
	}
	if patches[0].Type != PatchReplace {
		t.Fatalf("type = %s, want Replace", patches[0].Type)
	}
	if patches[0].D != "p1" {
		t.Fatalf("D = %q, want p1 (old node's stable_id)", patches[0].D)
	}
}

func TestDiffAttributeToggle(t *testing.T) {
	old := withID(NewElement("button"), "btn")
	old.Attrs["class"] = "btn"
	new := old.Clone()
	new.Attrs["class"] = "btn btn-active"

	patches := Diff(old, new)
	if len(patches) != 1 {
		t.Fatalf("got %d patches, want 1: %+v", len(patches), patches)
	}
	p := patches[0]
	if p.Type != PatchSetAttr || p.Key != "class" || p.Value != "btn btn-active" || p.D != "btn" {
		t.Fatalf("unexpected patch: %+v", p)
	}
}

func TestDiffAttributeAddAndRemove(t *testing.T) {
	old := withID(NewElement("div"), "r")
	old.Attrs["a"] = "1"
	new := withID(NewElement("div"), "r")
	new.Attrs["b"] = "2"

	patches := Diff(old, new)
	if len(patches) != 2 {
		t.Fatalf("got %d patches, want 2: %+v", len(patches), patches)
	}
	var sawRemove, sawSet bool
	for _, p := range patches {
		switch p.Type {
		case PatchRemoveAttr:
			if p.Key != "a" {
				t.Fatalf("RemoveAttr key = %q, want a", p.Key)
			}
			sawRemove = true
		case PatchSetAttr:
			if p.Key != "b" || p.Value != "2" {
				t.Fatalf("SetAttr = %+v, want b=2", p)
			}
			sawSet = true
		default:
			t.Fatalf("unexpected patch type %s", p.Type)
		}
	}
	if !sawRemove || !sawSet {
		t.Fatalf("missing expected patches: %+v", patches)
	}
}

func TestDiffSiblingAttributeOrderIsInsignificant(t *testing.T) {
	old := withID(NewElement("div"), "r")
	old.Attrs["a"] = "1"
	old.Attrs["b"] = "2"
	new := withID(NewElement("div"), "r")
	new.Attrs["b"] = "2"
	new.Attrs["a"] = "1"

	if patches := Diff(old, new); len(patches) != 0 {
		t.Fatalf("got %v, want no patches for reordered-but-equal attrs", patches)
	}
}

func TestDiffKeyedListReorderProducesOnlyMoves(t *testing.T) {
	li := func(key string) *Node {
		n := withID(NewElement("li"), "id-"+key)
		n.Key = key
		n.Children = []*Node{NewText(key)}
		return n
	}
	old := withChildren(NewElement("ul"), li("1"), li("2"), li("3"))
	new := withChildren(NewElement("ul"), li("3"), li("1"), li("2"))

	patches := Diff(old, new)
	for _, p := range patches {
		if p.Type == PatchReplace {
			t.Fatalf("unexpected Replace in pure reorder: %+v", patches)
		}
		if p.Type != PatchMoveChild {
			t.Fatalf("unexpected non-move patch in pure reorder: %+v", p)
		}
	}
	if len(patches) == 0 {
		t.Fatalf("expected at least one MoveChild for a reorder")
	}
}

func TestDiffKeyedInsertAtHead(t *testing.T) {
	li := func(key string) *Node {
		n := withID(NewElement("li"), "id-"+key)
		n.Key = key
		return n
	}
	old := withChildren(NewElement("ul"), li("1"), li("2"))
	new := withChildren(NewElement("ul"), li("3"), li("1"), li("2"))

	patches := Diff(old, new)
	var inserts, others int
	for _, p := range patches {
		if p.Type == PatchInsertChild {
			inserts++
			if p.Index != 0 {
				t.Fatalf("insert index = %d, want 0", p.Index)
			}
		} else {
			others++
		}
	}
	if inserts != 1 {
		t.Fatalf("got %d InsertChild patches, want 1: %+v", inserts, patches)
	}
	if others != 0 {
		t.Fatalf("expected no other structural patches for a pure head-insert, got %+v", patches)
	}
}

func TestDiffKeyedRemove(t *testing.T) {
	li := func(key string) *Node {
		n := withID(NewElement("li"), "id-"+key)
		n.Key = key
		return n
	}
	old := withChildren(NewElement("ul"), li("1"), li("2"), li("3"))
	new := withChildren(NewElement("ul"), li("1"), li("3"))

	patches := Diff(old, new)
	if len(patches) != 1 || patches[0].Type != PatchRemoveChild {
		t.Fatalf("got %+v, want single RemoveChild", patches)
	}
	if patches[0].Index != 1 {
		t.Fatalf("remove index = %d, want 1 (old position of key 2)", patches[0].Index)
	}
}

func TestDiffOptOutRegionUntouched(t *testing.T) {
	ignoreRegion := func(inner string) *Node {
		div := NewElement("div")
		div.Attrs[IgnoreAttr] = IgnoreValue
		div.Children = []*Node{withChildren(NewElement("canvas"), NewText(inner))}
		return div
	}
	old := withChildren(NewElement("div"), withID(ignoreRegion("a"), "ignore-1"))
	new := withChildren(NewElement("div"), ignoreRegion("completely different"))

	patches := Diff(old, new)
	if len(patches) != 0 {
		t.Fatalf("expected zero patches inside an opt-out region, got %+v", patches)
	}
}

func TestDiffTextVsElementProducesReplace(t *testing.T) {
	old := withChildren(NewElement("div"), NewText("hi"))
	new := withChildren(NewElement("div"), withID(NewElement("span"), ""))

	patches := Diff(old, new)
	if len(patches) != 1 || patches[0].Type != PatchReplace {
		t.Fatalf("got %+v, want single Replace", patches)
	}
}

func TestIDSyncPreservesMatchedIDs(t *testing.T) {
	old := withID(NewElement("div"), "root-id")
	old.Children = []*Node{withID(NewElement("p"), "p-id")}
	new := NewElement("div")
	new.Children = []*Node{NewElement("p")}

	Diff(old, new)

	if new.StableID != "root-id" {
		t.Fatalf("root stable_id = %q, want copied from old", new.StableID)
	}
	if new.Children[0].StableID != "p-id" {
		t.Fatalf("child stable_id = %q, want copied from old", new.Children[0].StableID)
	}
}

func TestIDSyncMintsFreshIDsOnReplace(t *testing.T) {
	old := withID(NewElement("div"), "root-id")
	old.Children = []*Node{withID(NewElement("p"), "p-id")}
	new := NewElement("div")
	new.Children = []*Node{withID(NewElement("span"), "fresh-id")}

	Diff(old, new)

	if new.Children[0].StableID != "fresh-id" {
		t.Fatalf("replaced node's stable_id = %q, want untouched fresh id", new.Children[0].StableID)
	}
}

func TestDiffKeyedMoveAddressesOldStableID(t *testing.T) {
	li := func(key, id string) *Node {
		n := withID(NewElement("li"), id)
		n.Key = key
		return n
	}
	old := withChildren(NewElement("ul"), li("1", "old-1"), li("2", "old-2"))
	new := withChildren(NewElement("ul"), li("2", "new-2"), li("1", "new-1"))

	patches := Diff(old, new)
	var move *Patch
	for i := range patches {
		if patches[i].Type == PatchMoveChild {
			move = &patches[i]
		}
	}
	if move == nil {
		t.Fatalf("expected a MoveChild patch, got %+v", patches)
	}
	if move.ChildID != "old-1" && move.ChildID != "old-2" {
		t.Fatalf("ChildID = %q, want an old-tree stable_id a live client would already recognize", move.ChildID)
	}
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
