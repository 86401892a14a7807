package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/skein/internal/knot"
	"github.com/roach88/skein/internal/session"
	"github.com/roach88/skein/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Until int64 // replay only batches with seq <= Until; 0 replays all
}

// SessionStat counts the batches one session wrote.
type SessionStat struct {
	Token   string `json:"token"`
	Batches int    `json:"batches"`
	First   int64  `json:"first_seq"`
	Last    int64  `json:"last_seq"`
}

// ReplayResult holds the replay result.
type ReplayResult struct {
	Batches       int           `json:"batches"`
	Sessions      []SessionStat `json:"sessions"`
	Knots         int           `json:"knots"`
	Digest        string        `json:"digest"`
	Deterministic bool          `json:"deterministic"`

	// SnapshotMatch is nil when no snapshot was compared: none saved, or
	// a partial replay.
	SnapshotMatch *bool `json:"snapshot_match,omitempty"`
}

// OK reports whether replay verified everything it checked.
func (r ReplayResult) OK() bool {
	return r.Deterministic && (r.SnapshotMatch == nil || *r.SnapshotMatch)
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the batch log and verify determinism",
		Long: `Rebuild the knot store from the batch log twice and verify both
rebuilds produce the same snapshot digest. When a saved snapshot exists,
it is checked against the rebuilt state too.

Exit codes:
  0 - Replay is deterministic and matches the saved snapshot
  1 - Verification failed (differences detected)
  2 - Command error (database not found, corrupt log, etc.)

Examples:
  skein replay --db ./skein.db
  skein replay --until 12
  skein replay --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Until, "until", 0, "replay only batches up to this seq")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	if err := requireDatabase(opts.Database); err != nil {
		return err
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var log session.BatchLog = st
	if opts.Until > 0 {
		log = prefixLog{BatchLog: st, until: opts.Until}
	}

	batches, err := log.ReadBatches(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read batch log", err)
	}

	out := opts.formatter(cmd)
	if len(batches) == 0 {
		result := ReplayResult{Sessions: []SessionStat{}, Deterministic: true}
		if opts.Format == "json" {
			return out.Success(result)
		}
		fmt.Fprintln(out.Writer, "No batches found in database.")
		return nil
	}

	result, err := verifyReplay(ctx, st, log, opts.Until == 0)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay", err)
	}
	result.Batches = len(batches)
	result.Sessions = sessionStats(batches)

	if opts.Format == "json" {
		if !result.OK() {
			if err := out.Failure(result, "E_DETERMINISM", "replay verification failed"); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "replay verification failed")
		}
		return out.Success(result)
	}

	return outputReplayText(out.Writer, result, opts.Verbose)
}

// verifyReplay rebuilds the store from log twice and compares digests,
// and against the saved snapshot when checkSnapshot is set.
func verifyReplay(ctx context.Context, st *store.Store, log session.BatchLog, checkSnapshot bool) (ReplayResult, error) {
	quiet := session.WithLogger(slog.New(slog.DiscardHandler))

	first, err := session.Restore(ctx, log, session.UUIDv7Generator{}, quiet)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("first replay failed: %w", err)
	}
	second, err := session.Restore(ctx, log, session.UUIDv7Generator{}, quiet)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("second replay failed: %w", err)
	}

	firstKnots := first.Tree().Snapshot()
	d1, err := knot.SnapshotDigest(firstKnots)
	if err != nil {
		return ReplayResult{}, err
	}
	d2, err := knot.SnapshotDigest(second.Tree().Snapshot())
	if err != nil {
		return ReplayResult{}, err
	}

	result := ReplayResult{
		Knots:         len(firstKnots),
		Digest:        d1,
		Deterministic: d1 == d2,
	}
	if !checkSnapshot {
		return result, nil
	}

	saved, err := st.LoadSnapshot(ctx)
	switch {
	case errors.Is(err, store.ErrDigestMismatch):
		match := false
		result.SnapshotMatch = &match
	case err != nil:
		return ReplayResult{}, err
	case len(saved) > 0:
		ds, err := knot.SnapshotDigest(saved)
		if err != nil {
			return ReplayResult{}, err
		}
		match := ds == d1
		result.SnapshotMatch = &match
	}
	return result, nil
}

// sessionStats groups logged batches by the session that wrote them,
// in order of first appearance.
func sessionStats(batches []session.LoggedBatch) []SessionStat {
	index := map[string]int{}
	stats := []SessionStat{}
	for _, lb := range batches {
		i, ok := index[lb.Session]
		if !ok {
			i = len(stats)
			index[lb.Session] = i
			stats = append(stats, SessionStat{Token: lb.Session, First: lb.Seq})
		}
		stats[i].Batches++
		stats[i].Last = lb.Seq
	}
	return stats
}

// prefixLog exposes the batches of a log up to a seq.
type prefixLog struct {
	session.BatchLog
	until int64
}

func (p prefixLog) ReadBatches(ctx context.Context) ([]session.LoggedBatch, error) {
	all, err := p.BatchLog.ReadBatches(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, lb := range all {
		if lb.Seq <= p.until {
			out = append(out, lb)
		}
	}
	return out, nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(w io.Writer, result ReplayResult, verbose bool) error {
	fmt.Fprintf(w, "Replay Summary: %d batch(es), %d knot(s)\n", result.Batches, result.Knots)
	fmt.Fprintln(w)

	for _, s := range result.Sessions {
		fmt.Fprintf(w, "  Session: %s\n", s.Token)
		fmt.Fprintf(w, "    Batches: %d (seq %d-%d)\n", s.Batches, s.First, s.Last)
	}
	if verbose {
		fmt.Fprintf(w, "  Digest: %s\n", result.Digest)
	}
	fmt.Fprintln(w)

	if !result.Deterministic {
		fmt.Fprintln(w, "Warning: Non-deterministic replay detected!")
	}
	if result.SnapshotMatch != nil && !*result.SnapshotMatch {
		fmt.Fprintln(w, "Warning: Saved snapshot does not match the batch log!")
	}

	if result.OK() {
		fmt.Fprintf(w, "%s Replay verified deterministic\n", checkMark)
		return nil
	}

	fmt.Fprintf(w, "%s Replay verification failed\n", crossMark)
	return NewExitError(ExitFailure, "replay verification failed")
}
