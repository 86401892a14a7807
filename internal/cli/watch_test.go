package cli

import (
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/skein/internal/metrics"
	"github.com/roach88/skein/internal/store"
)

func TestWatchMissingDirectory(t *testing.T) {
	dir := t.TempDir()
	_, _, err := executeCommand(t, "--db", filepath.Join(dir, "skein.db"), "watch", filepath.Join(dir, "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "batch directory not found")
}

func TestWatchAppliesBatchFiles(t *testing.T) {
	dir := t.TempDir()
	feedDir := filepath.Join(dir, "batches")
	db := filepath.Join(dir, "skein.db")
	writeFile(t, feedDir, "001-cloak.json", cloakBatch)

	stdout := &syncBuffer{}
	stderr := &syncBuffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{"--db", db, "watch", feedDir, "--existing", "--settle", "10ms"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "001-cloak.json (seq 1)")
	}, 5*time.Second, 10*time.Millisecond, "existing file applied; output: %s", stdout.String())

	writeFile(t, feedDir, "002-bless.yaml", blessBatch)
	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "002-bless.yaml (seq 2)")
	}, 5*time.Second, 10*time.Millisecond, "new file applied")

	writeFile(t, feedDir, "003-bad.json", `{"updates": "nope"}`)
	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "✗ "+filepath.Join(feedDir, "003-bad.json"))
	}, 5*time.Second, 10*time.Millisecond, "bad file reported")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
	assert.Contains(t, stderr.String(), "batch file rejected")

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	batches, err := st.ReadBatches(context.Background())
	require.NoError(t, err)
	assert.Len(t, batches, 2, "rejected files are not logged")

	snapshot, err := st.LoadSnapshot(context.Background())
	require.NoError(t, err)
	require.Contains(t, snapshot, int64(3))
	assert.NotNil(t, snapshot[3].Response, "snapshot saved after every batch")
}

func TestServeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.BatchesApplied.Inc()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	stop := serveMetrics(ln, reg)
	defer stop()

	resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "skein_batches_applied_total 1")
}
