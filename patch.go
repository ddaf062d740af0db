package revdom

// PatchType enumerates the seven mutation variants of §3.
type PatchType string

const (
	PatchSetText     PatchType = "SetText"
	PatchSetAttr     PatchType = "SetAttr"
	PatchRemoveAttr  PatchType = "RemoveAttr"
	PatchReplace     PatchType = "Replace"
	PatchInsertChild PatchType = "InsertChild"
	PatchRemoveChild PatchType = "RemoveChild"
	PatchMoveChild   PatchType = "MoveChild"
)

// Patch is the §4.4 wire record: a tagged variant carrying both a path
// (child indices from the reactive region's root, counting only surviving
// nodes) and the target's stable_id, plus type-specific payload fields.
// The client prefers `D` for O(1) lookup and falls back to `Path`.
type Patch struct {
	Type PatchType `json:"type"`
	Path []int     `json:"path"`
	D    string    `json:"d,omitempty"`

	// SetText
	Text string `json:"text,omitempty"`
	// SetAttr / RemoveAttr
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
	// Replace / InsertChild: serialized subtree HTML
	HTML string `json:"html,omitempty"`
	// InsertChild / RemoveChild / MoveChild(to)
	Index int `json:"index,omitempty"`
	// MoveChild(from)
	From int `json:"from,omitempty"`
	// MoveChild: the moving child's own stable_id as it already exists in
	// the client's DOM - the old tree's id, not the new tree's - distinct
	// from D (which addresses the parent). A client locates the element by
	// ChildID rather than by From, which only describes a position in the
	// pre-diff snapshot and goes stale after any earlier move runs.
	ChildID string `json:"child_id,omitempty"`
}

func setText(path []int, id, text string) Patch {
	return Patch{Type: PatchSetText, Path: path, D: id, Text: text}
}

func setAttr(path []int, id, key, value string) Patch {
	return Patch{Type: PatchSetAttr, Path: path, D: id, Key: key, Value: value}
}

func removeAttr(path []int, id, key string) Patch {
	return Patch{Type: PatchRemoveAttr, Path: path, D: id, Key: key}
}

func replace(path []int, id string, subtree *Node) Patch {
	return Patch{Type: PatchReplace, Path: path, D: id, HTML: SerializeHTML(subtree)}
}

func insertChild(parentPath []int, parentID string, index int, subtree *Node) Patch {
	return Patch{Type: PatchInsertChild, Path: parentPath, D: parentID, Index: index, HTML: SerializeHTML(subtree)}
}

func removeChild(parentPath []int, parentID string, index int) Patch {
	return Patch{Type: PatchRemoveChild, Path: parentPath, D: parentID, Index: index}
}

func moveChild(parentPath []int, parentID string, from, to int, childID string) Patch {
	return Patch{Type: PatchMoveChild, Path: parentPath, D: parentID, From: from, Index: to, ChildID: childID}
}
