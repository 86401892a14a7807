package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/skein/internal/knot"
	"github.com/roach88/skein/internal/skein"
)

func TestViewMissingDatabase(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.db")

	for _, command := range []string{"view", "labels", "replay"} {
		t.Run(command, func(t *testing.T) {
			_, _, err := executeCommand(t, "--db", missing, command)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), "database not found")
		})
	}
}

func TestViewText(t *testing.T) {
	db := seedDatabase(t, false)

	out, _, err := executeCommand(t, "--db", db, "view")
	require.NoError(t, err)

	assert.Contains(t, out, "Cloak of Darkness")
	assert.Contains(t, out, "4 knots, seq 1")
	assert.Contains(t, out, "TREE")
	assert.Contains(t, out, "(start)")
	assert.Contains(t, out, "go north")
	assert.Contains(t, out, "hang cloak")
	assert.NotContains(t, out, "go west", "off the display path")
	assert.Contains(t, out, "cloakroom", "label index lists every labeled knot")
	assert.Contains(t, out, "Totals: 2 ok, 1 new, 1 error")
	assert.NotContains(t, out, "Violations")
}

func TestViewJSONAfterBless(t *testing.T) {
	db := seedDatabase(t, true)

	out, _, err := executeCommand(t, "--db", db, "--format", "json", "view")
	require.NoError(t, err)

	resp, data := decodeResponse[ViewData](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, int64(2), data.Seq)
	require.Len(t, data.DisplayPath, 3)
	// Only the cloakroom branch is still in error.
	assert.Equal(t, knot.CategoryError, data.DisplayPath[0].TreeCategory)
	assert.Equal(t, knot.CategoryOK, data.DisplayPath[1].TreeCategory)
	assert.Equal(t, knot.CategoryOK, data.DisplayPath[2].TreeCategory)
	assert.Equal(t, skein.Totals{OK: 3, Error: 1}, data.Totals)
}

func TestViewKnotChildren(t *testing.T) {
	db := seedDatabase(t, false)

	out, _, err := executeCommand(t, "--db", db, "--format", "json", "view", "--knot", "0")
	require.NoError(t, err)

	_, data := decodeResponse[ChildrenData](t, out)
	assert.Equal(t, int64(0), data.Parent)
	require.Len(t, data.Children, 2)
	assert.Equal(t, skein.Child{ID: 1, Command: "go north", TreeCategory: knot.CategoryNew, Selected: true}, data.Children[0])
	assert.Equal(t, skein.Child{ID: 2, Command: "go west", Label: "cloakroom", TreeCategory: knot.CategoryError}, data.Children[1])

	out, _, err = executeCommand(t, "--db", db, "view", "--knot", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Knot 3 has no children.")
}

func TestViewUnknownKnot(t *testing.T) {
	db := seedDatabase(t, false)

	_, _, err := executeCommand(t, "--db", db, "view", "--knot", "42")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "knot 42 not found")
}

func TestLabels(t *testing.T) {
	db := seedDatabase(t, false)

	out, _, err := executeCommand(t, "--db", db, "labels")
	require.NoError(t, err)
	assert.Contains(t, out, "LABEL")
	assert.Contains(t, out, "START")
	assert.Contains(t, out, "cloakroom")

	out, _, err = executeCommand(t, "--db", db, "--format", "json", "labels")
	require.NoError(t, err)
	_, data := decodeResponse[LabelsData](t, out)
	assert.Equal(t, []knot.LabelEntry{{Label: "START", ID: 0}, {Label: "cloakroom", ID: 2}}, data.Labels)
}

func TestSelect(t *testing.T) {
	db := seedDatabase(t, false)

	out, _, err := executeCommand(t, "--db", db, "--format", "json", "select", "0", "2")
	require.NoError(t, err)

	_, data := decodeResponse[ApplyData](t, out)
	require.Len(t, data.Batches, 1)
	assert.Equal(t, int64(2), data.Batches[0].Seq)
	assert.Equal(t, []int64{0}, data.Batches[0].Replaced)

	// The selection is logged, so a fresh restore follows it.
	out, _, err = executeCommand(t, "--db", db, "--format", "json", "view")
	require.NoError(t, err)
	_, view := decodeResponse[ViewData](t, out)
	require.Len(t, view.DisplayPath, 2)
	assert.Equal(t, int64(2), view.DisplayPath[1].ID)
}

func TestSelectErrors(t *testing.T) {
	db := seedDatabase(t, false)

	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"not a child", []string{"1", "2"}, "invalid selection"},
		{"unknown parent", []string{"42", "1"}, "not found"},
		{"bad id", []string{"x", "1"}, `invalid knot id "x"`},
		{"negative id", []string{"0", "-1"}, `invalid knot id "-1"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--db", db, "select", "--"}, tt.args...)
			_, _, err := executeCommand(t, args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
