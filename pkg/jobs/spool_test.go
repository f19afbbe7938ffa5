package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	n := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) == spoolExt {
			n++
		}
	}
	return n
}

func TestNewSpoolManager_CreatesLayout(t *testing.T) {
	dir := t.TempDir()

	mgr, err := NewSpoolManager(dir, Options{})
	require.NoError(t, err)
	require.Equal(t, dir, mgr.Dir())

	for _, sub := range []string{spoolReady, spoolClaimed, spoolFailed} {
		info, err := os.Stat(filepath.Join(dir, sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestNewSpoolManager_RequiresDir(t *testing.T) {
	_, err := NewSpoolManager("", Options{})
	require.Error(t, err)
}

func TestSpoolManager_EnqueueWritesRecord(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewSpoolManager(dir, Options{})
	require.NoError(t, err)

	receipt, err := mgr.Enqueue(context.Background(), Job{
		Type:     "bot.AsyncJob",
		ClientID: "mybot",
		Args:     []any{"sendMessage", map[string]any{"chat_id": "42", "text": "hi"}},
	})
	require.NoError(t, err)
	require.Equal(t, "spool", receipt.Backend)
	require.Equal(t, 1, countFiles(t, filepath.Join(dir, spoolReady)))
	require.Equal(t, 1, mgr.Status().QueueDepth)
}

func TestSpoolManager_DrainAcrossManagers(t *testing.T) {
	dir := t.TempDir()

	producer, err := NewSpoolManager(dir, Options{})
	require.NoError(t, err)
	consumer, err := NewSpoolManager(dir, Options{})
	require.NoError(t, err)

	var got []Job
	consumer.Handle("bot.AsyncJob", HandlerFunc(func(_ context.Context, j Job) error {
		got = append(got, j)
		return nil
	}))

	_, err = producer.Enqueue(context.Background(), Job{
		Type:     "bot.AsyncJob",
		ClientID: "mybot",
		Args:     []any{"sendMessage", map[string]any{"text": "hi"}},
	})
	require.NoError(t, err)

	n, err := consumer.Drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.Len(t, got, 1)
	require.Equal(t, "mybot", got[0].ClientID)
	require.Equal(t, 1, got[0].Attempt)
	require.Len(t, got[0].Args, 2)
	require.Equal(t, "sendMessage", got[0].Args[0])
	require.Equal(t, map[string]any{"text": "hi"}, got[0].Args[1])

	require.Zero(t, countFiles(t, filepath.Join(dir, spoolReady)))
	require.Zero(t, countFiles(t, filepath.Join(dir, spoolClaimed)))
	require.Equal(t, int64(1), consumer.Status().Processed)
}

func TestSpoolManager_FailedJobMovesToFailed(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewSpoolManager(dir, Options{MaxAttempts: 2, RetryDelay: time.Hour})
	require.NoError(t, err)

	mgr.Handle("flaky", HandlerFunc(func(context.Context, Job) error {
		return errors.New("boom")
	}))

	_, err = mgr.Enqueue(context.Background(), Job{Type: "flaky"})
	require.NoError(t, err)

	// First attempt fails and is respooled an hour out, so it is not due.
	n, err := mgr.Drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 1, countFiles(t, filepath.Join(dir, spoolReady)))
	require.Equal(t, int64(1), mgr.Status().Retried)

	n, err = mgr.Drain(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)

	// Claim as if the hour had passed.
	job, path, ok, err := mgr.claim(time.Now().Add(2 * time.Hour))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, job.Attempt)
	mgr.process(context.Background(), job, path)

	require.Zero(t, countFiles(t, filepath.Join(dir, spoolReady)))
	require.Equal(t, 1, countFiles(t, filepath.Join(dir, spoolFailed)))
	require.Equal(t, int64(1), mgr.Status().Failed)
}

func TestSpoolManager_RefileFallsBackToClaimedRecord(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts int
		sub         string
	}{
		{name: "respool", maxAttempts: 2, sub: spoolReady},
		{name: "failed", maxAttempts: 1, sub: spoolFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			mgr, err := NewSpoolManager(dir, Options{MaxAttempts: tt.maxAttempts, RetryDelay: time.Hour})
			require.NoError(t, err)
			mgr.Handle("flaky", HandlerFunc(func(context.Context, Job) error {
				return errors.New("boom")
			}))

			receipt, err := mgr.Enqueue(context.Background(), Job{Type: "flaky"})
			require.NoError(t, err)

			// A directory where the temp record goes makes the rewrite fail.
			require.NoError(t, os.Mkdir(filepath.Join(dir, tt.sub, "."+receipt.JobID+".tmp"), 0o700))

			n, err := mgr.Drain(context.Background())
			require.NoError(t, err)
			require.Equal(t, 1, n)

			require.Equal(t, 1, countFiles(t, filepath.Join(dir, tt.sub)), "job must survive")
			require.Zero(t, countFiles(t, filepath.Join(dir, spoolClaimed)))
		})
	}
}

func TestSpoolManager_RequeuesStaleClaims(t *testing.T) {
	dir := t.TempDir()

	crashed, err := NewSpoolManager(dir, Options{})
	require.NoError(t, err)
	_, err = crashed.Enqueue(context.Background(), Job{Type: "bot.AsyncJob", ClientID: "mybot"})
	require.NoError(t, err)

	// Claimed and never processed, as if the worker died mid-job.
	_, path, ok, err := crashed.claim(time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	survivor, err := NewSpoolManager(dir, Options{ClaimLease: time.Minute})
	require.NoError(t, err)
	var runs int
	survivor.Handle("bot.AsyncJob", HandlerFunc(func(context.Context, Job) error {
		runs++
		return nil
	}))

	// Within the lease the claim is left alone.
	n, err := survivor.Drain(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, 1, countFiles(t, filepath.Join(dir, spoolClaimed)))

	old := time.Now().Add(-2 * time.Minute)
	require.NoError(t, os.Chtimes(path, old, old))

	n, err = survivor.Drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 1, runs)
	require.Zero(t, countFiles(t, filepath.Join(dir, spoolClaimed)))
	require.Zero(t, countFiles(t, filepath.Join(dir, spoolReady)))
}

func TestSpoolManager_CorruptRecordIsQuarantined(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewSpoolManager(dir, Options{})
	require.NoError(t, err)

	name := spoolName(time.Now().Add(-time.Second), "corrupt")
	require.NoError(t, os.WriteFile(filepath.Join(dir, spoolReady, name), []byte{0xff, 0x00}, 0o600))

	n, err := mgr.Drain(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, 1, countFiles(t, filepath.Join(dir, spoolFailed)))
}

func TestSpoolManager_WorkersPickUpNewRecords(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewSpoolManager(dir, Options{Concurrency: 2, PollInterval: 20 * time.Millisecond})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(3)
	mgr.Handle("t", HandlerFunc(func(context.Context, Job) error {
		wg.Done()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, mgr.Start(ctx))

	for i := 0; i < 3; i++ {
		_, err := mgr.Enqueue(context.Background(), Job{Type: "t"})
		require.NoError(t, err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("spool workers did not process jobs")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, mgr.Stop(stopCtx))

	_, err = mgr.Enqueue(context.Background(), Job{Type: "t"})
	require.ErrorIs(t, err, ErrClosed)
}

func TestSpoolName_RoundTrip(t *testing.T) {
	at := time.Unix(1700000000, 123)
	name := spoolName(at, "abc-def")

	got, ok := parseRunAt(name)
	require.True(t, ok)
	require.True(t, at.Equal(got))

	_, ok = parseRunAt("garbage.job")
	require.False(t, ok)
}
