package skein

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/skein/internal/knot"
)

func labeled(id int64, label string) knot.Knot {
	k := okKnot(id, 0, "cmd")
	k.Label = label
	return k
}

func TestLabels_StartFirst(t *testing.T) {
	ks := knotsOf(labeled(3, "zeta"), labeled(1, "START"), labeled(2, "alpha"))

	assert.Equal(t, []knot.LabelEntry{
		{Label: "START", ID: 1},
		{Label: "alpha", ID: 2},
		{Label: "zeta", ID: 3},
	}, Labels(ks))
}

func TestLabels_Empty(t *testing.T) {
	labels := Labels(knot.Knots{})
	assert.NotNil(t, labels)
	assert.Empty(t, labels)
}

func TestLabels_SkipsUnlabeled(t *testing.T) {
	ks := knotsOf(labeled(1, "b"), okKnot(2, 0, "x"), labeled(3, "a"))

	assert.Equal(t, []knot.LabelEntry{{Label: "a", ID: 3}, {Label: "b", ID: 1}}, Labels(ks))
}

func TestLabels_StartBeatsLexicallySmaller(t *testing.T) {
	// "A" and "0" sort before "START" byte-wise.
	ks := knotsOf(labeled(1, "A"), labeled(2, "0"), labeled(3, "START"))

	labels := Labels(ks)
	assert.Equal(t, "START", labels[0].Label)
	assert.Equal(t, "0", labels[1].Label)
	assert.Equal(t, "A", labels[2].Label)
}

func TestLabels_ByteOrderIsCaseSensitive(t *testing.T) {
	ks := knotsOf(labeled(1, "b"), labeled(2, "B"), labeled(3, "a"))

	labels := Labels(ks)
	assert.Equal(t, []string{"B", "a", "b"}, []string{labels[0].Label, labels[1].Label, labels[2].Label})
}

func TestLabels_DuplicatesOrderedByID(t *testing.T) {
	ks := knotsOf(labeled(9, "dup"), labeled(4, "dup"), labeled(6, "dup"))

	for i := 0; i < 10; i++ {
		assert.Equal(t, []knot.LabelEntry{
			{Label: "dup", ID: 4},
			{Label: "dup", ID: 6},
			{Label: "dup", ID: 9},
		}, Labels(ks))
	}
}
