package skein

import (
	"github.com/roach88/skein/internal/knot"
)

// Child is one entry of a knot's child menu.
type Child struct {
	ID           int64         `json:"id"`
	Command      string        `json:"command"`
	Label        string        `json:"label,omitempty"`
	TreeCategory knot.Category `json:"tree_category"`
	Selected     bool          `json:"selected"`
}

// Children lists the children of id in their stored order, each with the
// tree category from tree. Children missing from the store are skipped.
// Returns nil if id itself is not in the store.
func Children(knots knot.Knots, tree Categories, id int64) []Child {
	parent, ok := knots[id]
	if !ok {
		return nil
	}

	out := make([]Child, 0, len(parent.Children))
	for _, childID := range parent.Children {
		c, ok := knots[childID]
		if !ok {
			continue
		}
		out = append(out, Child{
			ID:           childID,
			Command:      c.Command,
			Label:        c.Label,
			TreeCategory: tree.Of(childID),
			Selected:     parent.Selected != nil && *parent.Selected == childID,
		})
	}
	return out
}
