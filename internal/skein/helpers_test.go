package skein

import (
	"github.com/roach88/skein/internal/knot"
)

// okKnot builds a child knot with a blessed response and no new output.
func okKnot(id, parent int64, command string) knot.Knot {
	return knot.Knot{
		ID:       id,
		ParentID: knot.Int64(parent),
		Command:  command,
		Response: knot.String("ok: " + command),
		Children: []int64{},
	}
}

// newKnot builds a child knot with unblessed output only.
func newKnot(id, parent int64, command string) knot.Knot {
	k := okKnot(id, parent, command)
	k.Response = nil
	k.Unblessed = knot.String("new: " + command)
	return k
}

// errorKnot builds a child knot whose new output conflicts with the blessed one.
func errorKnot(id, parent int64, command string) knot.Knot {
	k := okKnot(id, parent, command)
	k.Unblessed = knot.String("changed: " + command)
	return k
}

func rootKnot(children ...int64) knot.Knot {
	return knot.Knot{ID: knot.RootID, Label: knot.StartLabel, Children: children}
}

// linkChildren fills each knot's Children from the parent ids, in id order.
func linkChildren(ks knot.Knots) knot.Knots {
	for _, id := range ks.SortedIDs() {
		k := ks[id]
		k.Children = []int64{}
		ks[id] = k
	}
	for _, id := range ks.SortedIDs() {
		k := ks[id]
		if k.ParentID == nil {
			continue
		}
		p, ok := ks[*k.ParentID]
		if !ok {
			continue
		}
		p.Children = append(p.Children, id)
		ks[p.ID] = p
	}
	return ks
}

func knotsOf(list ...knot.Knot) knot.Knots {
	ks := knot.Knots{}
	for _, k := range list {
		ks[k.ID] = k
	}
	return ks
}
