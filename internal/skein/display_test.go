package skein

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/skein/internal/knot"
)

func TestDisplayPath_EmptyStore(t *testing.T) {
	path, err := DisplayPath(knot.Knots{})
	require.NoError(t, err)
	assert.NotNil(t, path)
	assert.Empty(t, path)
}

func TestDisplayPath_MissingRoot(t *testing.T) {
	path, err := DisplayPath(knotsOf(okKnot(3, 0, "look")))
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestDisplayPath_RootOnly(t *testing.T) {
	path, err := DisplayPath(knotsOf(rootKnot()))
	require.NoError(t, err)
	assert.Equal(t, []int64{0}, path)
}

func TestDisplayPath_FollowsSelection(t *testing.T) {
	ks := linkChildren(knotsOf(
		rootKnot(),
		okKnot(1, 0, "a"),
		okKnot(2, 0, "b"),
		okKnot(3, 2, "c"),
		okKnot(4, 2, "d"),
	))
	root := ks[0]
	root.Selected = knot.Int64(2)
	ks[0] = root
	two := ks[2]
	two.Selected = knot.Int64(4)
	ks[2] = two

	path, err := DisplayPath(ks)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 2, 4}, path)
}

func TestDisplayPath_StopsAtUnknownSelection(t *testing.T) {
	root := rootKnot(1)
	root.Selected = knot.Int64(9)
	ks := knotsOf(root, okKnot(1, 0, "a"))

	path, err := DisplayPath(ks)
	require.NoError(t, err)
	assert.Equal(t, []int64{0}, path)
}

func TestDisplayPath_SelectionCycleIsBounded(t *testing.T) {
	root := rootKnot(1)
	root.Selected = knot.Int64(1)
	one := okKnot(1, 0, "a")
	one.Selected = knot.Int64(0)

	path, err := DisplayPath(knotsOf(root, one))
	require.Error(t, err)
	assert.True(t, IsCycle(err))
	assert.Equal(t, []int64{0, 1}, path)
}
