// Package logfollow tails an agent's session log file (no harness client
// command calls it), using fsnotify to wake on writes instead of polling, the
// same watcher library used elsewhere in the example pack for directory
// change notification. Falls back to polling when the platform fsnotify
// backend cannot be started (e.g. inotify instance limits exhausted).
package logfollow

import (
	"bufio"
	"context"
	"io"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// PollInterval is the fallback tick rate when fsnotify is unavailable.
const PollInterval = 250 * time.Millisecond

// Follow streams newly appended lines of path to out, starting from the
// file's current end, until ctx is cancelled. It never reads lines that
// existed before Follow was called.
func Follow(ctx context.Context, path string, out chan<- string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	reader := bufio.NewReader(f)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return pollFollow(ctx, f, reader, out)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return pollFollow(ctx, f, reader, out)
	}

	drain := func() {
		for {
			line, readErr := reader.ReadString('\n')
			if line != "" {
				select {
				case out <- line:
				case <-ctx.Done():
					return
				}
			}
			if readErr != nil {
				return
			}
		}
	}

	drain()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				drain()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				return err
			}
		}
	}
}

// pollFollow is the degraded-mode fallback: it reads whatever new bytes
// have been appended to f every PollInterval.
func pollFollow(ctx context.Context, f *os.File, reader *bufio.Reader, out chan<- string) error {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for {
				line, err := reader.ReadString('\n')
				if line != "" {
					select {
					case out <- line:
					case <-ctx.Done():
						return nil
					}
				}
				if err != nil {
					break
				}
			}
		}
	}
}
