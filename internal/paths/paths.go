// Package paths resolves the on-disk layout of a workspace under a project
// root, and guards against path traversal outside of it.
package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WorkspaceDirName is the directory, relative to a project root, that holds
// all per-SpecRun durable state.
const WorkspaceDirName = ".claude-agent"

// ErrOutsideRoot is returned when a candidate path resolves outside the
// project root.
var ErrOutsideRoot = errors.New("path escapes project root")

// SpecRunDir returns the directory for a SpecRun's workspace:
// P/.claude-agent/<spec_slug>-<spec_hash>/.
func SpecRunDir(projectRoot, specSlug, specHash string) string {
	return filepath.Join(projectRoot, WorkspaceDirName, specSlug+"-"+specHash)
}

// WorkspaceInfoFile, MilestoneFile, CheckpointLogFile, AppSpecFile, and
// LogsDir are the fixed filenames within a SpecRun directory (§4.1).
func WorkspaceInfoFile(specRunDir string) string { return filepath.Join(specRunDir, "workspace_info") }
func MilestoneFile(specRunDir string) string     { return filepath.Join(specRunDir, "milestone") }
func CheckpointLogFile(specRunDir string) string {
	return filepath.Join(specRunDir, "checkpoint_log")
}
func AppSpecFile(specRunDir string) string { return filepath.Join(specRunDir, "app_spec") }
func LogsDir(specRunDir string) string     { return filepath.Join(specRunDir, "logs") }

// VerificationStateFile holds the current session's observed
// verification_result events, read by the orchestrator's verification gate
// (SPEC_FULL.md §4.3) when the session reports a terminal checkpoint.
func VerificationStateFile(specRunDir string) string {
	return filepath.Join(specRunDir, "verification_state")
}

// DaemonDataDir returns the directory the daemon uses for its own
// process-wide state (registry file, config file), independent of any single
// SpecRun's workspace.
func DaemonDataDir() (string, error) {
	if dir := os.Getenv("HARNESS_DATA_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".harness"), nil
}

// RuntimeDir returns the directory that should hold the daemon's control
// socket: $XDG_RUNTIME_DIR/harness when set, otherwise ~/.harness/run.
func RuntimeDir() (string, error) {
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		return filepath.Join(xdg, "harness"), nil
	}
	dataDir, err := DaemonDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "run"), nil
}

// SocketPath returns the well-known path of the daemon's control socket.
func SocketPath() (string, error) {
	dir, err := RuntimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "harness.sock"), nil
}

// EnsureWithinRoot verifies that candidate, once made absolute and cleaned,
// lies within root. It guards C4's "no path traversal via .." rule and I4's
// file-ownership enforcement (a tracked path must resolve inside the
// project root before anything is pushed).
func EnsureWithinRoot(root, candidate string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve project root: %w", err)
	}
	var absCandidate string
	if filepath.IsAbs(candidate) {
		absCandidate = filepath.Clean(candidate)
	} else {
		absCandidate = filepath.Clean(filepath.Join(absRoot, candidate))
	}

	rel, err := filepath.Rel(absRoot, absCandidate)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, candidate)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, candidate)
	}
	return absCandidate, nil
}
