package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/roach88/skein/internal/session"
	"github.com/roach88/skein/internal/store"
)

// requireDatabase fails with ExitCommandError when path does not exist.
// Commands that only read the log use it so a typo does not create an
// empty database.
func requireDatabase(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	return nil
}

// openSession opens the batch log at opts.Database and restores the
// session from it. The caller closes the returned store.
func openSession(ctx context.Context, opts *RootOptions, sessionOpts ...session.Option) (*store.Store, *session.Session, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	sessionOpts = append([]session.Option{session.WithLogger(slog.Default())}, sessionOpts...)
	s, err := session.Restore(ctx, st, session.UUIDv7Generator{}, sessionOpts...)
	if err != nil {
		st.Close()
		return nil, nil, WrapExitError(ExitCommandError, "failed to restore session", err)
	}
	return st, s, nil
}
