package orchestrator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/speckit/harness/internal/logging"
	"github.com/speckit/harness/internal/store"
)

// SessionCommand describes the AI subprocess to launch for one session,
// rendered by the caller from the phase, workspace info, and milestone
// state (§4.3's "session body").
type SessionCommand struct {
	Binary  string
	Args    []string
	Dir     string
	Env     []string
	PTYMode bool
}

// processResult is the outcome of running one subprocess to completion.
type processResult struct {
	Events   []Event
	ExitCode int
	Err      error
}

// runSubprocess spawns cmd, streams stdout/stderr line-by-line into the
// session log via ws.AppendLog, and collects any sentinel-prefixed events
// (§4.3). It blocks until the subprocess exits, ctx is canceled, or the
// caller's stop deadline elapses. onStart, if non-nil, is called with the
// subprocess's pid as soon as it is known, so a supervisor can record a
// live pid before the session otherwise has anything to report.
//
// Cancellation mirrors the teacher's E2E agent driver: a process group via
// Setpgid so a single signal reaches every descendant, SIGTERM first, then
// SIGKILL once ctx's grace deadline is exceeded (cmd.WaitDelay).
func runSubprocess(ctx context.Context, sc SessionCommand, ws *store.Store, logPath string, graceDelay time.Duration, onStart func(pid int)) processResult {
	cmd := exec.CommandContext(ctx, sc.Binary, sc.Args...)
	cmd.Dir = sc.Dir
	cmd.Env = sc.Env
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = graceDelay
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}

	var (
		mu     sync.Mutex
		events []Event
	)
	appendLine := func(line string) {
		if ev, ok := parseEventLine(line); ok {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		}
		if err := ws.AppendLog(logPath, line); err != nil {
			logging.Warn(ctx, "append session log failed", "error", err.Error())
		}
	}

	if sc.PTYMode {
		f, err := pty.Start(cmd)
		if err != nil {
			return processResult{Err: fmt.Errorf("start pty subprocess: %w", err)}
		}
		defer f.Close()
		if onStart != nil {
			onStart(cmd.Process.Pid)
		}
		pumpLines(f, appendLine)
		err = cmd.Wait()
		return processResult{Events: events, ExitCode: exitCodeOf(err), Err: err}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return processResult{Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return processResult{Err: fmt.Errorf("stderr pipe: %w", err)}
	}
	if err := cmd.Start(); err != nil {
		return processResult{Err: fmt.Errorf("start subprocess: %w", err)}
	}
	if onStart != nil {
		onStart(cmd.Process.Pid)
	}

	done := make(chan struct{}, 2)
	go func() { pumpLines(stdout, appendLine); done <- struct{}{} }()
	go func() { pumpLines(stderr, appendLine); done <- struct{}{} }()
	<-done
	<-done

	err = cmd.Wait()
	return processResult{Events: events, ExitCode: exitCodeOf(err), Err: err}
}

// pumpLines reads r line-by-line, handing each to onLine as it arrives
// (§4.3: "not buffered to completion"). Scanner read errors (other than
// EOF) are swallowed since the subprocess closing its pipe is the normal
// termination path.
func pumpLines(r io.Reader, onLine func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		onLine(scanner.Text())
	}
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
