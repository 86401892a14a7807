package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/skein/internal/knot"
	"github.com/roach88/skein/internal/session"
	"github.com/roach88/skein/internal/testutil"
)

func TestSessionRestore_FromStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "skein.db")
	quiet := session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	s, err := Open(path)
	require.NoError(t, err)

	live := session.New(s, testutil.NewFixedTokenGenerator("live"), quiet)
	_, err = live.Apply(ctx, createTestBatch("go north"))
	require.NoError(t, err)
	_, err = live.Apply(ctx, knot.Batch{Updates: []knot.Knot{
		{ID: 1, ParentID: knot.Int64(0), Command: "go north", Response: knot.String("Output.")},
	}})
	require.NoError(t, err)
	require.NoError(t, live.Checkpoint(ctx))
	want := live.Tree().Snapshot()
	require.NoError(t, s.Close())

	// Reopen and rebuild from the log alone
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	restored, err := session.Restore(ctx, s, testutil.NewFixedTokenGenerator("restored"), quiet)
	require.NoError(t, err)
	assert.Equal(t, want, restored.Tree().Snapshot())
	assert.Equal(t, int64(2), restored.Seq())

	snapshot, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, snapshot)

	wantDigest, err := knot.SnapshotDigest(want)
	require.NoError(t, err)
	gotDigest, err := knot.SnapshotDigest(restored.Tree().Snapshot())
	require.NoError(t, err)
	assert.Equal(t, wantDigest, gotDigest)

	last, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), last)
}

func TestSessionRestore_KeepsDecomposedText(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	quiet := session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	decomposed := "cafe\u0301"
	batch := createTestBatch(decomposed)
	batch.Updates[1].Unblessed = knot.String("un cafe\u0301 noir")

	live := session.New(s, testutil.NewFixedTokenGenerator("live"), quiet)
	_, err := live.Apply(ctx, batch)
	require.NoError(t, err)

	restored, err := session.Restore(ctx, s, testutil.NewFixedTokenGenerator("restored"), quiet)
	require.NoError(t, err)

	k, ok := restored.Tree().Knot(1)
	require.True(t, ok)
	assert.Equal(t, decomposed, k.Command)
	assert.NotEqual(t, "caf\u00e9", k.Command)
	require.NotNil(t, k.Unblessed)
	assert.Equal(t, "un cafe\u0301 noir", *k.Unblessed)
	assert.Equal(t, live.Tree().Snapshot(), restored.Tree().Snapshot())
}
