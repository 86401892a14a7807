package knot

import (
	"slices"
)

// RootID is the id of the skein's root knot.
const RootID int64 = 0

// StartLabel is reserved; it always sorts first in the label index.
const StartLabel = "START"

// Knot is one node of the skein tree.
type Knot struct {
	ID        int64   `json:"id"`
	ParentID  *int64  `json:"parent_id"`           // nil only for the root
	Label     string  `json:"label,omitempty"`     // optional, not unique
	Command   string  `json:"command"`             // dialogue input text
	Response  *string `json:"response,omitempty"`  // blessed output
	Unblessed *string `json:"unblessed,omitempty"` // new output awaiting review
	Children  []int64 `json:"children"`            // ordered child ids
	Selected  *int64  `json:"selected"`            // nil or a member of Children
}

// IsRoot reports whether k is the root knot.
func (k Knot) IsRoot() bool {
	return k.ID == RootID && k.ParentID == nil
}

// HasChild reports whether id is one of k's children.
func (k Knot) HasChild(id int64) bool {
	return slices.Contains(k.Children, id)
}

// Clone returns a deep copy of k. Pointer fields and the children slice
// are copied so the result shares no memory with k.
func (k Knot) Clone() Knot {
	out := k
	out.ParentID = cloneInt(k.ParentID)
	out.Selected = cloneInt(k.Selected)
	out.Response = cloneString(k.Response)
	out.Unblessed = cloneString(k.Unblessed)
	if k.Children != nil {
		out.Children = slices.Clone(k.Children)
	} else {
		out.Children = []int64{}
	}
	return out
}

// Knots is the arena: the single owning map from id to knot.
type Knots map[int64]Knot

// Clone deep-copies every knot.
func (ks Knots) Clone() Knots {
	out := make(Knots, len(ks))
	for id, k := range ks {
		out[id] = k.Clone()
	}
	return out
}

// SortedIDs returns the knot ids in ascending order.
func (ks Knots) SortedIDs() []int64 {
	ids := make([]int64, 0, len(ks))
	for id := range ks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Category classifies a knot (or a subtree) by review status.
type Category string

const (
	// CategoryOK means the recorded response is blessed and nothing new was seen.
	CategoryOK Category = "ok"
	// CategoryNew means output was produced but no blessed response exists yet.
	CategoryNew Category = "new"
	// CategoryError means the new output conflicts with the blessed response.
	CategoryError Category = "error"
)

// AllCategories lists categories in increasing severity.
var AllCategories = []Category{CategoryOK, CategoryNew, CategoryError}

// Severity orders categories: ok < new < error. Unknown values rank as ok.
func (c Category) Severity() int {
	switch c {
	case CategoryError:
		return 2
	case CategoryNew:
		return 1
	default:
		return 0
	}
}

// Valid reports whether c is one of the three known categories.
func (c Category) Valid() bool {
	return c == CategoryOK || c == CategoryNew || c == CategoryError
}

// Batch is one update delivered by the network collaborator.
//
// Updates are full knot records (replace-or-insert by id). RemovedIDs names
// knots to delete. The remaining fields mirror the envelope the skein
// service returns with every action and are carried through unchanged.
type Batch struct {
	Updates    []Knot  `json:"updates"`
	RemovedIDs []int64 `json:"removed_ids"`
	EnableUndo bool    `json:"enable_undo,omitempty"`
	EnableRedo bool    `json:"enable_redo,omitempty"`
	NewID      *int64  `json:"new_id,omitempty"` // only for new-command
	Title      string  `json:"title,omitempty"`  // only on the initial load
}

// IsEmpty reports whether the batch carries no knot changes.
func (b Batch) IsEmpty() bool {
	return len(b.Updates) == 0 && len(b.RemovedIDs) == 0
}

// LabelEntry is one row of the label index.
type LabelEntry struct {
	Label string `json:"label"`
	ID    int64  `json:"id"`
}

// Int64 returns a pointer to v. Handy for optional id fields.
func Int64(v int64) *int64 {
	return &v
}

// String returns a pointer to s. Handy for optional text fields.
func String(s string) *string {
	return &s
}

func cloneInt(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
