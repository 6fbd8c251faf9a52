// Package integration defines the abstract external-collaborator
// contracts SPEC_FULL.md §6 names (issue/MR host, local git operations,
// quality-check runner), kept free of any third-party import so
// internal/orchestrator, internal/checkpoint, and internal/daemon can
// depend on the interfaces without pulling in a concrete backend.
// Concrete, swappable implementations live in subpackages
// (githubhost, fileonly, gitrepo, qualitycheck, retry).
package integration

import (
	"context"
	"time"
)

// MilestoneRef is the host-assigned identity of a created milestone.
type MilestoneRef struct {
	ID  string
	URL string
}

// IssueRef is the host-assigned identity and current state of one issue.
type IssueRef struct {
	IID        int
	ExternalID string
	Title      string
	State      string
	Labels     []string
	UpdatedAt  time.Time
}

// MergeRequestRef is the host's notion of a merge/pull request.
type MergeRequestRef struct {
	IID     string
	URL     string
	State   string // "open" | "merged" | "closed"
	HeadSHA string
}

// Commit is one entry returned by ListCommits.
type Commit struct {
	SHA     string
	Message string
	Author  string
	When    time.Time
}

// FileChange is one file to write (or delete, when Delete is true) as part
// of a PushFiles call.
type FileChange struct {
	Path    string
	Content []byte
	Delete  bool
}

// IssueHost is the abstract contract for an external issue/MR tracker
// (§6's "Issue/MR host"). `internal/integration/githubhost` implements it
// against GitHub; `internal/integration/fileonly` implements the same
// shape directly against C1's JSON store for file_only_mode.
type IssueHost interface {
	CreateMilestone(ctx context.Context, title string) (MilestoneRef, error)
	CreateIssue(ctx context.Context, milestone MilestoneRef, title, description string, labels []string) (IssueRef, error)
	UpdateIssue(ctx context.Context, issue IssueRef, description string, labels []string) (IssueRef, error)
	AddNote(ctx context.Context, issue IssueRef, note string) error

	CreateBranch(ctx context.Context, name, fromBranch string) error
	PushFiles(ctx context.Context, branch, message string, changes []FileChange) (Commit, error)
	ListCommits(ctx context.Context, branch string, since time.Time) ([]Commit, error)

	CreateMergeRequest(ctx context.Context, sourceBranch, targetBranch, title, description string) (MergeRequestRef, error)
	GetMergeRequest(ctx context.Context, ref MergeRequestRef) (MergeRequestRef, error)

	ListMilestoneIssues(ctx context.Context, milestone MilestoneRef) ([]IssueRef, error)
}
