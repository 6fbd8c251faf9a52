package store

import (
	"fmt"
	"os"
	"time"

	"github.com/speckit/harness/internal/paths"
)

// Store is the C1 Workspace Store contract (§4.1) bound to one SpecRun
// directory. All reads and writes for a SpecRun go through a Store value;
// no other package touches workspace files directly.
type Store struct {
	ProjectRoot string
	SpecSlug    string
	SpecHash    string
	dir         string
}

// Open returns a Store for the SpecRun (specSlug, specHash) under
// projectRoot, ensuring the SpecRun directory exists.
func Open(projectRoot, specSlug, specHash string) (*Store, error) {
	dir := paths.SpecRunDir(projectRoot, specSlug, specHash)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create spec run dir %s: %w", dir, err)
	}
	return &Store{ProjectRoot: projectRoot, SpecSlug: specSlug, SpecHash: specHash, dir: dir}, nil
}

// Dir returns the SpecRun directory this Store is bound to.
func (s *Store) Dir() string { return s.dir }

// ReadWorkspaceInfo loads WorkspaceInfo for this SpecRun.
func (s *Store) ReadWorkspaceInfo() (*WorkspaceInfo, error) {
	return ReadWorkspaceInfo(paths.WorkspaceInfoFile(s.dir))
}

// WriteWorkspaceInfo persists WorkspaceInfo for this SpecRun.
func (s *Store) WriteWorkspaceInfo(w *WorkspaceInfo) error {
	return WriteWorkspaceInfo(paths.WorkspaceInfoFile(s.dir), w)
}

// ReadMilestone loads the Milestone for this SpecRun.
func (s *Store) ReadMilestone() (*Milestone, error) {
	return ReadMilestone(paths.MilestoneFile(s.dir))
}

// WriteMilestone persists the Milestone for this SpecRun.
func (s *Store) WriteMilestone(m *Milestone) error {
	return WriteMilestone(paths.MilestoneFile(s.dir), m)
}

// WriteAppSpec stores a verbatim copy of the input spec the client used to
// start this agent.
func (s *Store) WriteAppSpec(data []byte) error {
	return AtomicWrite(paths.AppSpecFile(s.dir), data)
}

// ReadAppSpec returns the verbatim input spec.
func (s *Store) ReadAppSpec() ([]byte, error) {
	return Read(paths.AppSpecFile(s.dir))
}

// LogPath returns the path of the rotating per-session log file for
// agentID, timestamped with the session's start time.
func (s *Store) LogPath(agentID int64, sessionStart time.Time) string {
	ts := sessionStart.UTC().Format("20060102T150405Z")
	return fmt.Sprintf("%s/%d-%s.log", paths.LogsDir(s.dir), agentID, ts)
}

// AppendLog appends one line to the session log at logPath.
func (s *Store) AppendLog(logPath, line string) error {
	return AppendLogLine(logPath, line)
}
