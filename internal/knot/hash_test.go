package knot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchDigestDeterministic(t *testing.T) {
	b := Batch{Updates: []Knot{{ID: 0, Children: []int64{}}}}

	d1, err := BatchDigest(b)
	require.NoError(t, err)
	d2, err := BatchDigest(b)
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64)
}

func TestBatchDigestDiffersOnContent(t *testing.T) {
	a := MustBatchDigest(Batch{RemovedIDs: []int64{1}})
	b := MustBatchDigest(Batch{RemovedIDs: []int64{2}})
	assert.NotEqual(t, a, b)
}

func TestDigestDomainSeparation(t *testing.T) {
	// An empty snapshot and an empty id list both canonicalize to "[]";
	// the domain prefix must still keep their digests apart.
	snap, err := SnapshotDigest(Knots{})
	require.NoError(t, err)
	assert.NotEqual(t, hashWithDomain(DomainBatch, []byte("[]")), snap)
	assert.Equal(t, hashWithDomain(DomainSnapshot, []byte("[]")), snap)
}

func TestSnapshotDigestIgnoresMapOrder(t *testing.T) {
	a := Knots{0: {ID: 0, Children: []int64{1}}, 1: {ID: 1, ParentID: Int64(0), Command: "x", Response: String("y")}}
	b := a.Clone()

	da, err := SnapshotDigest(a)
	require.NoError(t, err)
	db, err := SnapshotDigest(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
}
