package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/skein/internal/knot"
)

func TestMarshalChildren(t *testing.T) {
	tests := []struct {
		name     string
		children []int64
		want     string
	}{
		{"nil", nil, "[]"},
		{"empty", []int64{}, "[]"},
		{"ordered", []int64{3, 1, 2}, "[3,1,2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := marshalChildren(tt.children)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnmarshalChildren(t *testing.T) {
	got, err := unmarshalChildren("[3,1,2]")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, got)

	got, err = unmarshalChildren("")
	require.NoError(t, err)
	assert.Equal(t, []int64{}, got)

	got, err = unmarshalChildren("null")
	require.NoError(t, err)
	assert.Equal(t, []int64{}, got)

	_, err = unmarshalChildren("[1,")
	assert.Error(t, err)
}

func TestUnmarshalBatch_NormalizesEmptyLists(t *testing.T) {
	b, err := unmarshalBatch(`{"updates":[{"id":4,"parent_id":0,"command":"x"}]}`)
	require.NoError(t, err)

	assert.Equal(t, []int64{}, b.RemovedIDs)
	require.Len(t, b.Updates, 1)
	assert.Equal(t, []int64{}, b.Updates[0].Children)
	assert.Equal(t, knot.Int64(0), b.Updates[0].ParentID)
	assert.Nil(t, b.Updates[0].Response)
}

func TestUnmarshalBatch_Invalid(t *testing.T) {
	_, err := unmarshalBatch(`{"updates":`)
	assert.Error(t, err)
}
