package revdom

import "sort"

// Diff implements the §4.3 contract: given two trees rooted at the
// reactive region boundary (both produced by Parse, so both are the
// synthetic "dj-root" element), produce an ordered patch sequence that
// transforms a DOM matching old into one matching new, and perform ID
// synchronization on new as a side effect so it is ready to become the
// next committed baseline. The two roots' attributes and children are
// compared; their tags are not, since the root is always the region
// boundary and is never replaced.
func Diff(old, new *Node) []Patch {
	var out []Patch
	if old == nil || new == nil {
		return out
	}
	new.StableID = old.StableID
	if old.IsIgnored() {
		return out
	}
	diffAttrs(old, new, nil, new.StableID, &out)
	diffChildren(old, new, nil, &out)
	return out
}

// diffPair compares a single matched node position (§4.3 steps 1-3),
// performing ID synchronization inline: a node is only ever "matched" once,
// so copying stable_id here at the moment of matching is equivalent to a
// separate post-diff synchronization pass over the same decisions.
func diffPair(old, new *Node, path, parentPath []int, parentID string, out *[]Patch) {
	switch {
	case old.Kind == KindText && new.Kind == KindText:
		if old.Text != new.Text {
			// Text nodes mint no stable_id of their own, so D anchors the
			// patch to the parent element for O(1) lookup, but Path must
			// still be the text node's own path (not the parent's) - it is
			// the only thing that encodes which child to update.
			*out = append(*out, setText(path, parentID, new.Text))
		}
		return
	case old.Kind == KindText || new.Kind == KindText:
		// A text node and a non-text node never occupy a stable position.
		// D is the old element's stable_id when the old side is an
		// element; when the old side is the text node it has no stable_id,
		// so D is left empty and the patch falls back to path addressing.
		id := ""
		if old.Kind == KindElement {
			id = old.StableID
		}
		*out = append(*out, replace(path, id, new))
		return
	}

	if old.Tag != new.Tag {
		*out = append(*out, replace(path, old.StableID, new))
		return
	}

	new.StableID = old.StableID
	if old.IsIgnored() {
		// Opt-out region: the server must never descend into it once
		// marked, regardless of what changed inside on the new side.
		return
	}

	diffAttrs(old, new, path, new.StableID, out)
	diffChildren(old, new, path, out)
}

func diffAttrs(old, new *Node, path []int, id string, out *[]Patch) {
	keys := make(map[string]bool, len(old.Attrs)+len(new.Attrs))
	for k := range old.Attrs {
		keys[k] = true
	}
	for k := range new.Attrs {
		keys[k] = true
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, k := range sorted {
		ov, oldHas := old.Attrs[k]
		nv, newHas := new.Attrs[k]
		switch {
		case oldHas && !newHas:
			*out = append(*out, removeAttr(path, id, k))
		case !oldHas && newHas:
			*out = append(*out, setAttr(path, id, k, nv))
		case oldHas && newHas && ov != nv:
			*out = append(*out, setAttr(path, id, k, nv))
		}
	}
}

// diffChildren dispatches to indexed or keyed reconciliation depending on
// whether any child on either side carries a key, per §4.3.
func diffChildren(oldParent, newParent *Node, parentPath []int, out *[]Patch) {
	if oldParent.IsIgnored() {
		return
	}
	oldKids, newKids := oldParent.Children, newParent.Children
	parentID := newParent.StableID

	if hasAnyKey(oldKids) || hasAnyKey(newKids) {
		diffKeyedChildren(oldKids, newKids, parentPath, parentID, out)
		return
	}
	diffIndexedChildren(oldKids, newKids, parentPath, parentID, out)
}

func hasAnyKey(kids []*Node) bool {
	for _, c := range kids {
		if c.Key != "" {
			return true
		}
	}
	return false
}

func appendPath(path []int, i int) []int {
	next := make([]int, len(path)+1)
	copy(next, path)
	next[len(path)] = i
	return next
}

// diffIndexedChildren implements positional reconciliation: same-position
// pairs recurse; extra new children insert ascending; extra old children
// remove descending.
func diffIndexedChildren(oldKids, newKids []*Node, parentPath []int, parentID string, out *[]Patch) {
	n := len(oldKids)
	if len(newKids) < n {
		n = len(newKids)
	}

	for i := 0; i < n; i++ {
		diffPair(oldKids[i], newKids[i], appendPath(parentPath, i), parentPath, parentID, out)
	}

	for i := len(oldKids) - 1; i >= n; i-- {
		*out = append(*out, removeChild(parentPath, parentID, i))
	}
	for i := n; i < len(newKids); i++ {
		*out = append(*out, insertChild(parentPath, parentID, i, newKids[i]))
	}
}

// diffKeyedChildren implements keyed reconciliation. Keyed children are
// matched by key; unkeyed children interleaved among them are matched by
// position among themselves, per §4.3's stated convention for mixed
// keyed/unkeyed siblings (§9 Open Question, resolved in SPEC_FULL.md).
func diffKeyedChildren(oldKids, newKids []*Node, parentPath []int, parentID string, out *[]Patch) {
	oldKeyPos := make(map[string]int, len(oldKids))
	var oldUnkeyed []int
	for i, c := range oldKids {
		if c.Key != "" {
			oldKeyPos[c.Key] = i
		} else {
			oldUnkeyed = append(oldUnkeyed, i)
		}
	}

	// pairedOld[newIndex] = matched old index, or -1 if this new child is
	// an insertion with no old counterpart.
	pairedOld := make([]int, len(newKids))
	unkeyedCursor := 0
	matchedOld := make([]bool, len(oldKids))
	for i, c := range newKids {
		if c.Key != "" {
			if oi, ok := oldKeyPos[c.Key]; ok {
				pairedOld[i] = oi
				matchedOld[oi] = true
				continue
			}
			pairedOld[i] = -1
			continue
		}
		if unkeyedCursor < len(oldUnkeyed) {
			oi := oldUnkeyed[unkeyedCursor]
			unkeyedCursor++
			pairedOld[i] = oi
			matchedOld[oi] = true
			continue
		}
		pairedOld[i] = -1
	}

	for i := len(oldKids) - 1; i >= 0; i-- {
		if !matchedOld[i] {
			*out = append(*out, removeChild(parentPath, parentID, i))
		}
	}

	for i, oi := range pairedOld {
		if oi == -1 {
			*out = append(*out, insertChild(parentPath, parentID, i, newKids[i]))
		}
	}

	stay := stationarySet(pairedOld)
	var moves []Patch
	for newIdx, oldIdx := range pairedOld {
		if oldIdx == -1 {
			continue
		}
		if !stay[newIdx] {
			// ChildID must be the id the client's live DOM actually carries
			// - the old element's stable_id - not the new tree's, which is
			// a fresh, server-internal mint the client has never seen until
			// diffPair's sync pass (below) copies it over.
			moves = append(moves, moveChild(parentPath, parentID, oldIdx, newIdx, oldKids[oldIdx].StableID))
		}
	}
	// Sorted ascending by target index: a client applying moves by locating
	// each moving child via ChildID and reinserting it at Index only lands
	// on the right final arrangement if moves run in target-index order -
	// From is the pre-diff old position and goes stale as soon as an
	// earlier move in the sequence has run, so it cannot drive application
	// order itself.
	sort.Slice(moves, func(i, j int) bool { return moves[i].Index < moves[j].Index })
	*out = append(*out, moves...)

	for newIdx, oldIdx := range pairedOld {
		if oldIdx == -1 {
			continue
		}
		diffPair(oldKids[oldIdx], newKids[newIdx], appendPath(parentPath, newIdx), parentPath, parentID, out)
	}
}

// stationarySet returns, for a sequence of old indices appearing in new
// order (with -1 marking insertions), the set of new-index positions whose
// relative order already matches old - the longest increasing subsequence
// of paired old indices. Those need no MoveChild; everything else does.
func stationarySet(pairedOld []int) map[int]bool {
	type entry struct{ newIdx, oldIdx int }
	var seq []entry
	for i, oi := range pairedOld {
		if oi != -1 {
			seq = append(seq, entry{i, oi})
		}
	}

	tails := make([]int, 0, len(seq)) // indices into seq, oldIdx increasing
	prev := make([]int, len(seq))
	for i := range prev {
		prev[i] = -1
	}

	for i, e := range seq {
		lo, hi := 0, len(tails)
		for lo < hi {
			mid := (lo + hi) / 2
			if seq[tails[mid]].oldIdx < e.oldIdx {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo > 0 {
			prev[i] = tails[lo-1]
		}
		if lo == len(tails) {
			tails = append(tails, i)
		} else {
			tails[lo] = i
		}
	}

	stay := make(map[int]bool)
	if len(tails) == 0 {
		return stay
	}
	k := tails[len(tails)-1]
	for k != -1 {
		stay[seq[k].newIdx] = true
		k = prev[k]
	}
	return stay
}
