package skein

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/skein/internal/knot"
)

// Views holds everything derived from one snapshot of the tree.
type Views struct {
	Self        Categories        // own category of each non-ok knot
	Tree        Categories        // worst category in each non-ok subtree
	DisplayPath []int64           // root-to-leaf ids following selections
	Labels      []knot.LabelEntry // label index, "START" first
	Totals      Totals            // per-category counts

	// Violations collects invariant errors found while deriving.
	// The views are still complete; offending knots count as ok.
	Violations []*InvariantError
}

// ApplyReport describes what one batch did to the tree.
type ApplyReport struct {
	Inserted []int64
	Replaced []int64
	Removed  []int64

	// Issues lists every record skipped or repaired while applying.
	Issues []*InvariantError
}

// Changed reports whether the batch changed any knot.
func (r ApplyReport) Changed() bool {
	return len(r.Inserted)+len(r.Replaced)+len(r.Removed) > 0
}

// Observer is notified after every applied batch, once the new snapshot
// is visible to readers.
type Observer interface {
	ObserveApply(report ApplyReport, views Views)
}

// TreeOption configures a Tree.
type TreeOption func(*Tree)

// WithObserver registers an observer for applied batches.
func WithObserver(o Observer) TreeOption {
	return func(t *Tree) {
		t.observers = append(t.observers, o)
	}
}

// WithLogger sets the logger used to report batch issues.
// Default: slog.Default().
func WithLogger(l *slog.Logger) TreeOption {
	return func(t *Tree) {
		t.logger = l
	}
}

// Tree is the knot store: the single source of truth for skein topology
// and content.
//
// Thread-safety: all methods are safe for concurrent use. Apply holds the
// write lock for the whole batch, so readers see either the old snapshot
// and views or the new ones, never a mix.
type Tree struct {
	mu        sync.RWMutex
	knots     knot.Knots
	views     Views
	observers []Observer
	logger    *slog.Logger
}

// NewTree creates an empty tree.
func NewTree(opts ...TreeOption) *Tree {
	t := &Tree{
		knots:  knot.Knots{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.views = derive(t.knots)
	return t
}

// AddObserver registers o for batches applied from now on.
func (t *Tree) AddObserver(o Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, o)
}

// Len returns the number of knots.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.knots)
}

// Knot returns a copy of the knot with the given id.
func (t *Tree) Knot(id int64) (knot.Knot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	k, ok := t.knots[id]
	if !ok {
		return knot.Knot{}, false
	}
	return k.Clone(), true
}

// Snapshot returns a deep copy of every knot.
func (t *Tree) Snapshot() knot.Knots {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.knots.Clone()
}

// Views returns the views derived from the current snapshot.
// The returned value must be treated as read-only.
func (t *Tree) Views() Views {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.views
}

// Children returns the child menu of id with tree categories.
func (t *Tree) Children(id int64) []Child {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Children(t.knots, t.views.Tree, id)
}

// Apply applies one update batch and recomputes all views.
//
// Steps, all against a private copy that is swapped in at the end:
//  1. Updates replace or insert knots by id. An update whose parent does
//     not resolve (in the store or elsewhere in the batch) is skipped.
//  2. Removed ids are deleted and unlinked from their former parent.
//     Unknown ids are skipped. Descendants are not removed.
//  3. Children entries that are dangling or point at a knot with another
//     parent are dropped; a selection outside the children is cleared.
//
// Every skipped or repaired record is reported in ApplyReport.Issues and
// logged at Warn. Malformed input is never fatal.
func (t *Tree) Apply(batch knot.Batch) ApplyReport {
	t.mu.Lock()

	next := t.knots.Clone()
	var report ApplyReport

	applyUpdates(next, batch.Updates, &report)
	applyRemovals(next, batch.RemovedIDs, &report)
	repair(next, &report)

	t.knots = next
	t.views = derive(next)
	views := t.views
	observers := t.observers
	t.mu.Unlock()

	for _, issue := range report.Issues {
		t.logger.Warn("batch issue",
			"code", string(issue.Code),
			"knot_id", issue.KnotID,
			"message", issue.Message,
		)
	}
	for _, v := range views.Violations {
		t.logger.Debug("derivation violation",
			"code", string(v.Code),
			"knot_id", v.KnotID,
		)
	}
	for _, o := range observers {
		o.ObserveApply(report, views)
	}

	return report
}

// SelectChild builds the batch that makes childID the selected child of
// parentID. Apply the returned batch to change the display path.
func (t *Tree) SelectChild(parentID, childID int64) (knot.Batch, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	parent, ok := t.knots[parentID]
	if !ok {
		return knot.Batch{}, fmt.Errorf("select child: knot %d not found", parentID)
	}
	if !parent.HasChild(childID) {
		return knot.Batch{}, newInvariantError(ErrCodeInvalidSelection, parentID, &childID,
			"knot %d is not a child of knot %d", childID, parentID)
	}

	updated := parent.Clone()
	updated.Selected = knot.Int64(childID)
	return knot.Batch{Updates: []knot.Knot{updated}}, nil
}

// applyUpdates inserts or replaces every update whose parent resolves.
// Acceptance is a fixpoint over the batch so a child may precede its
// parent in the update list. An update that would make a knot its own
// ancestor is rejected with the other records on that loop.
func applyUpdates(next knot.Knots, updates []knot.Knot, report *ApplyReport) {
	pending := make([]knot.Knot, 0, len(updates))
	for _, u := range updates {
		switch {
		case u.ID == knot.RootID && u.ParentID != nil:
			report.Issues = append(report.Issues, newInvariantError(ErrCodeInvalidParent, u.ID, u.ParentID,
				"root knot must not have a parent"))
		case u.ID != knot.RootID && u.ParentID == nil:
			report.Issues = append(report.Issues, newInvariantError(ErrCodeInvalidParent, u.ID, nil,
				"only the root knot may omit its parent"))
		case u.ParentID != nil && *u.ParentID == u.ID:
			report.Issues = append(report.Issues, newInvariantError(ErrCodeInvalidParent, u.ID, u.ParentID,
				"knot cannot be its own parent"))
		default:
			pending = append(pending, u)
		}
	}

	rejected := make(map[int64]bool)
	var accepted map[int64]bool
	for {
		accepted = resolveParents(next, pending, rejected)
		looped := loopingUpdates(next, pending, accepted)
		if len(looped) == 0 {
			break
		}
		for _, u := range looped {
			rejected[u.ID] = true
			report.Issues = append(report.Issues, newInvariantError(ErrCodeInvalidParent, u.ID, u.ParentID,
				"parent chain leads back to the knot"))
		}
	}

	// Apply in batch order so a repeated id resolves to its last record.
	for _, u := range pending {
		if rejected[u.ID] {
			continue
		}
		if !accepted[u.ID] {
			report.Issues = append(report.Issues, newInvariantError(ErrCodeMissingParent, u.ID, u.ParentID,
				"parent not found in store or batch"))
			continue
		}
		if _, exists := next[u.ID]; exists {
			if !slices.Contains(report.Replaced, u.ID) && !slices.Contains(report.Inserted, u.ID) {
				report.Replaced = append(report.Replaced, u.ID)
			}
		} else {
			report.Inserted = append(report.Inserted, u.ID)
		}
		next[u.ID] = u.Clone()
	}
}

// resolveParents returns the ids whose parent is in the store or is itself
// an accepted update.
func resolveParents(next knot.Knots, pending []knot.Knot, rejected map[int64]bool) map[int64]bool {
	accepted := make(map[int64]bool, len(pending))
	for progress := true; progress; {
		progress = false
		for _, u := range pending {
			if accepted[u.ID] || rejected[u.ID] {
				continue
			}
			if u.ParentID != nil {
				pid := *u.ParentID
				if _, inStore := next[pid]; !inStore && !accepted[pid] {
					continue
				}
			}
			accepted[u.ID] = true
			progress = true
		}
	}
	return accepted
}

// loopingUpdates returns, in id order, the last record of every accepted
// update whose parent chain returns to it once the batch is applied.
func loopingUpdates(next knot.Knots, pending []knot.Knot, accepted map[int64]bool) []knot.Knot {
	parentOf := make(map[int64]*int64, len(next)+len(pending))
	for id, k := range next {
		parentOf[id] = k.ParentID
	}
	last := make(map[int64]knot.Knot, len(accepted))
	for _, u := range pending {
		if accepted[u.ID] {
			parentOf[u.ID] = u.ParentID
			last[u.ID] = u
		}
	}

	var looped []knot.Knot
	for _, id := range slices.Sorted(maps.Keys(last)) {
		cur := parentOf[id]
		for steps := 0; cur != nil && steps <= len(parentOf); steps++ {
			if *cur == id {
				looped = append(looped, last[id])
				break
			}
			cur = parentOf[*cur]
		}
	}
	return looped
}

// applyRemovals deletes knots and unlinks them from their former parent.
func applyRemovals(next knot.Knots, removed []int64, report *ApplyReport) {
	for _, id := range removed {
		k, ok := next[id]
		if !ok {
			report.Issues = append(report.Issues, newInvariantError(ErrCodeUnknownRemoval, id, nil,
				"removed id not found in store"))
			continue
		}
		delete(next, id)
		report.Removed = append(report.Removed, id)

		if k.ParentID == nil {
			continue
		}
		parent, ok := next[*k.ParentID]
		if !ok {
			continue
		}
		parent.Children = slices.DeleteFunc(parent.Children, func(c int64) bool { return c == id })
		if parent.Selected != nil && *parent.Selected == id {
			parent.Selected = nil
		}
		next[parent.ID] = parent
	}
}

// repair drops children entries that break the parent/child inverse and
// clears selections that are not children.
func repair(next knot.Knots, report *ApplyReport) {
	for _, id := range next.SortedIDs() {
		k := next[id]
		changed := false

		kept := k.Children[:0:0]
		for _, c := range k.Children {
			child, ok := next[c]
			switch {
			case !ok:
				report.Issues = append(report.Issues, newInvariantError(ErrCodeDanglingChild, id, &c,
					"child not found in store"))
				changed = true
			case child.ParentID == nil || *child.ParentID != id:
				report.Issues = append(report.Issues, newInvariantError(ErrCodeParentMismatch, id, &c,
					"child names a different parent"))
				changed = true
			default:
				kept = append(kept, c)
			}
		}

		if k.Selected != nil && !slices.Contains(kept, *k.Selected) {
			report.Issues = append(report.Issues, newInvariantError(ErrCodeInvalidSelection, id, k.Selected,
				"selected knot is not a child"))
			k.Selected = nil
			changed = true
		}

		if changed {
			k.Children = kept
			next[id] = k
		}
	}
}

// derive recomputes every view from a snapshot.
func derive(knots knot.Knots) Views {
	var errs []error

	self, err := SelfCategories(knots)
	errs = append(errs, err)

	tree, err := Propagate(knots)
	// Classification failures are already in errs via SelfCategories.
	for _, ie := range InvariantErrors(err) {
		if ie.Code != ErrCodeUnexpectedState {
			errs = append(errs, ie)
		}
	}

	path, err := DisplayPath(knots)
	errs = append(errs, err)

	// CountCategories repeats the classification errors; keep only the counts.
	totals, _ := CountCategories(knots)

	return Views{
		Self:        self,
		Tree:        tree,
		DisplayPath: path,
		Labels:      Labels(knots),
		Totals:      totals,
		Violations:  InvariantErrors(errors.Join(errs...)),
	}
}
