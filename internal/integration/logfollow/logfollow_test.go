package logfollow

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFollow_StreamsAppendedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.log")
	require.NoError(t, os.WriteFile(path, []byte("existing line\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lines := make(chan string, 16)
	errCh := make(chan error, 1)
	go func() { errCh <- Follow(ctx, path, lines) }()

	// give the watcher a moment to start before appending
	time.Sleep(50 * time.Millisecond)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("new line one\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case line := <-lines:
		require.Equal(t, "new line one\n", line)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for appended line")
	}

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Follow did not return after cancellation")
	}
}

func TestFollow_DoesNotReplayExistingContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.log")
	require.NoError(t, os.WriteFile(path, []byte("old line\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lines := make(chan string, 16)
	go func() { _ = Follow(ctx, path, lines) }()

	select {
	case line := <-lines:
		t.Fatalf("unexpected replay of existing content: %q", line)
	case <-time.After(150 * time.Millisecond):
	}
}
