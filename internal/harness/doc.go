// Package harness runs skein conformance scenarios.
//
// A scenario is a YAML file naming a sequence of batch steps and the state
// expected once they are applied:
//
//	name: bless-one-branch
//	description: Blessing the only unblessed knot turns the tree ok.
//	batches:
//	  - title: Cloak of Darkness
//	    updates:
//	      - {id: 0, label: START, children: [1], selected: 1}
//	      - {id: 1, parent_id: 0, command: go north, unblessed: You go north.}
//	  - file: batches/bless.json
//	  - select: {parent: 0, child: 1}
//	expect:
//	  display_path: [0, 1]
//	  tree_categories: {0: ok}
//
// A step is one of: an inline batch (any batch fields), a batch file
// (resolved relative to the scenario), or a selection change. Inline batches
// and files go through feed validation exactly as live batches do.
//
// Every scenario runs on a fresh in-memory store with a deterministic clock
// and a fixed session token, so repeated runs produce byte-identical golden
// snapshots. After the last step the harness restores a second session from
// the batch log and fails the scenario if its snapshot differs.
package harness
