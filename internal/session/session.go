package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/skein/internal/knot"
	"github.com/roach88/skein/internal/skein"
)

// LoggedBatch is one entry of the batch log.
type LoggedBatch struct {
	Seq     int64
	Session string
	Digest  string
	Batch   knot.Batch
}

// BatchLog persists applied batches. Implemented by store.Store.
type BatchLog interface {
	WriteBatch(ctx context.Context, session string, seq int64, batch knot.Batch) error
	ReadBatches(ctx context.Context) ([]LoggedBatch, error)
	SaveSnapshot(ctx context.Context, knots knot.Knots) error
}

// Envelope is the non-knot state carried by the most recent batches.
type Envelope struct {
	Title      string `json:"title,omitempty"`
	EnableUndo bool   `json:"enable_undo"`
	EnableRedo bool   `json:"enable_redo"`
	NewID      *int64 `json:"new_id,omitempty"`
}

// Result is the outcome of applying one batch.
type Result struct {
	Seq    int64
	Report skein.ApplyReport
	Views  skein.Views
}

// Option configures a Session.
type Option func(*config)

type config struct {
	logger    *slog.Logger
	observers []skein.Observer
	clock     Sequencer
}

// WithLogger sets the logger for the session and its tree.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithObserver registers a tree observer (e.g. metrics).
func WithObserver(o skein.Observer) Option {
	return func(c *config) {
		c.observers = append(c.observers, o)
	}
}

// WithClock sets a pre-configured sequencer.
func WithClock(clock Sequencer) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// Session is the single writer for one skein.
type Session struct {
	mu       sync.Mutex
	tree     *skein.Tree
	log      BatchLog // nil: in-memory only
	clock    Sequencer
	token    string
	envelope Envelope
	logger   *slog.Logger
}

// New creates a session over an empty tree.
// log may be nil for a purely in-memory session.
func New(log BatchLog, gen TokenGenerator, opts ...Option) *Session {
	s, cfg := newSession(log, gen, opts)
	s.attachObservers(cfg)
	return s
}

func newSession(log BatchLog, gen TokenGenerator, opts []Option) (*Session, *config) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.clock == nil {
		cfg.clock = NewClock()
	}

	return &Session{
		tree:   skein.NewTree(skein.WithLogger(cfg.logger)),
		log:    log,
		clock:  cfg.clock,
		token:  gen.Generate(),
		logger: cfg.logger,
	}, cfg
}

func (s *Session) attachObservers(cfg *config) {
	for _, o := range cfg.observers {
		s.tree.AddObserver(o)
	}
}

// Restore rebuilds a session from its batch log.
//
// Every logged batch is re-applied in seq order; the clock resumes at the
// last logged seq. The returned session writes new batches under a fresh
// token from gen. Observers see only batches applied after Restore returns.
func Restore(ctx context.Context, log BatchLog, gen TokenGenerator, opts ...Option) (*Session, error) {
	if log == nil {
		return nil, fmt.Errorf("restore: batch log is required")
	}

	batches, err := log.ReadBatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}

	var last int64
	if n := len(batches); n > 0 {
		last = batches[n-1].Seq
	}
	opts = append(opts, WithClock(NewClockAt(last)))
	s, cfg := newSession(log, gen, opts)

	for _, lb := range batches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.tree.Apply(lb.Batch)
		s.recordEnvelope(lb.Batch)
	}
	s.attachObservers(cfg)

	s.logger.Info("session restored",
		"batches", len(batches),
		"last_seq", last,
		"knots", s.tree.Len(),
	)
	return s, nil
}

// Token returns this session's token.
func (s *Session) Token() string {
	return s.token
}

// Tree returns the session's knot store for reading.
func (s *Session) Tree() *skein.Tree {
	return s.tree
}

// Seq returns the seq of the last applied batch.
func (s *Session) Seq() int64 {
	return s.clock.Current()
}

// Envelope returns the title and undo/redo state from the latest batches.
func (s *Session) Envelope() Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.envelope
}

// Apply stamps, logs, and applies one batch.
//
// The batch is written to the log before it touches the tree; if the write
// fails the tree is unchanged and the seq is not reused.
func (s *Session) Apply(ctx context.Context, batch knot.Batch) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(ctx, batch)
}

func (s *Session) applyLocked(ctx context.Context, batch knot.Batch) (Result, error) {
	seq := s.clock.Next()

	if s.log != nil {
		if err := s.log.WriteBatch(ctx, s.token, seq, batch); err != nil {
			return Result{}, fmt.Errorf("apply batch %d: %w", seq, err)
		}
	}

	report := s.tree.Apply(batch)
	s.recordEnvelopeLocked(batch)

	s.logger.Debug("batch applied",
		"seq", seq,
		"inserted", len(report.Inserted),
		"replaced", len(report.Replaced),
		"removed", len(report.Removed),
		"issues", len(report.Issues),
	)

	return Result{Seq: seq, Report: report, Views: s.tree.Views()}, nil
}

// Select changes the selected child of parentID and applies the change as
// a logged batch. The parent is read and written under one lock so a
// concurrent Apply cannot be overwritten.
func (s *Session) Select(ctx context.Context, parentID, childID int64) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, err := s.tree.SelectChild(parentID, childID)
	if err != nil {
		return Result{}, err
	}
	return s.applyLocked(ctx, batch)
}

// Checkpoint writes the current snapshot to the log's knots table.
func (s *Session) Checkpoint(ctx context.Context) error {
	if s.log == nil {
		return nil
	}
	if err := s.log.SaveSnapshot(ctx, s.tree.Snapshot()); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

func (s *Session) recordEnvelope(b knot.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordEnvelopeLocked(b)
}

// recordEnvelopeLocked keeps the last title seen; undo/redo flags and the
// new id always reflect the latest batch.
func (s *Session) recordEnvelopeLocked(b knot.Batch) {
	if b.Title != "" {
		s.envelope.Title = b.Title
	}
	s.envelope.EnableUndo = b.EnableUndo
	s.envelope.EnableRedo = b.EnableRedo
	s.envelope.NewID = b.NewID
}
