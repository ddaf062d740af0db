package revdom

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
)

// randomTree builds a shallow, randomly-shaped element tree for the
// property tests below. Grounded on the teacher's own use of gofakeit for
// randomized fixtures in its tree/fuzz test suites.
func randomTree(f *gofakeit.Faker, depth int) *Node {
	n := NewElement(f.RandomString([]string{"div", "span", "p", "li", "section"}))
	attrCount := f.Number(0, 3)
	for i := 0; i < attrCount; i++ {
		n.Attrs[f.Word()] = f.Sentence(3)
	}
	if depth <= 0 {
		return n
	}
	childCount := f.Number(0, 4)
	for i := 0; i < childCount; i++ {
		if f.Bool() {
			n.Children = append(n.Children, NewText(f.Sentence(2)))
			continue
		}
		n.Children = append(n.Children, randomTree(f, depth-1))
	}
	assignIDs(n)
	return n
}

func TestDiffIdempotenceOnRandomTrees(t *testing.T) {
	f := gofakeit.New(42)
	for i := 0; i < 25; i++ {
		tree := randomTree(f, 3)
		clone := tree.Clone()
		if patches := Diff(tree, clone); len(patches) != 0 {
			t.Fatalf("iteration %d: diff(t, t) = %v, want []", i, patches)
		}
	}
}

// TestDiffRoundTripOnRandomTrees checks the round-trip law of §8 directly:
// applying Diff(old, new) to old via Apply must produce a tree structurally
// Equal to new.
func TestDiffRoundTripOnRandomTrees(t *testing.T) {
	f := gofakeit.New(7)
	for i := 0; i < 25; i++ {
		old := randomTree(f, 3)
		want := randomTree(f, 3)

		patches := Diff(old, want)
		got := Apply(old, patches)
		if !got.Equal(want) {
			t.Fatalf("iteration %d: Apply(old, Diff(old, new)) != new\npatches: %+v", i, patches)
		}
	}
}

// shuffledKeys returns a permutation of keys using a deterministic
// Fisher-Yates shuffle driven by f, optionally dropping a few entries and
// appending a brand new key - so a single round exercises MoveChild,
// RemoveChild and InsertChild together.
func shuffledKeys(f *gofakeit.Faker, keys []string) []string {
	out := append([]string(nil), keys...)
	for i := len(out) - 1; i > 0; i-- {
		j := f.Number(0, i)
		out[i], out[j] = out[j], out[i]
	}
	if drop := f.Number(0, 2); drop > 0 && drop < len(out) {
		out = out[drop:]
	}
	if f.Bool() {
		out = append(out, "new-"+f.Word())
	}
	return out
}

func keyedList(keys []string) *Node {
	ul := NewElement("ul")
	for _, k := range keys {
		li := NewElement("li")
		li.Attrs["data-key"] = k
		li.Key = k
		li.Children = []*Node{NewText(k)}
		ul.Children = append(ul.Children, li)
	}
	assignIDs(ul)
	return ul
}

// TestApplyRoundTripOnShuffledKeyedLists specifically stresses
// diffKeyedChildren's multi-MoveChild ordering (§4.3): a purely random tree
// almost never assigns keys, so without this the keyed reconciliation path
// - and the stable_id-addressed, target-index-ordered move sequence it
// produces - would never be exercised end-to-end against a real Apply.
func TestApplyRoundTripOnShuffledKeyedLists(t *testing.T) {
	f := gofakeit.New(99)
	keys := []string{"a", "b", "c", "d", "e", "f", "g"}

	for i := 0; i < 50; i++ {
		old := keyedList(keys)
		want := keyedList(shuffledKeys(f, keys))

		patches := Diff(old, want)
		got := Apply(old, patches)
		if !got.Equal(want) {
			t.Fatalf("iteration %d: round-trip mismatch\npatches: %+v", i, patches)
		}
	}
}
