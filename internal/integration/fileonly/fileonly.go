// Package fileonly implements integration.IssueHost directly against C1's
// workspace store, for file_only_mode sessions that never talk to an
// external issue tracker. Milestone/issue identity lives entirely in the
// Milestone JSON record; local git operations still delegate to gitrepo so
// I4 enforcement is identical to the githubhost path.
package fileonly

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/speckit/harness/internal/integration"
	"github.com/speckit/harness/internal/integration/gitrepo"
	"github.com/speckit/harness/internal/store"
)

// Host implements integration.IssueHost by reading and writing the
// Milestone record in a Store, with no network calls.
type Host struct {
	mu    sync.Mutex
	store *store.Store
	git   *gitrepo.Repo
}

// New returns a Host bound to s, delegating branch/push/log operations to
// git (nil is allowed when a session has no backing git repository).
func New(s *store.Store, git *gitrepo.Repo) *Host {
	return &Host{store: s, git: git}
}

var _ integration.IssueHost = (*Host)(nil)

func (h *Host) loadMilestone() (*store.Milestone, error) {
	m, err := h.store.ReadMilestone()
	if err != nil {
		return nil, fmt.Errorf("fileonly: read milestone: %w", err)
	}
	return m, nil
}

// CreateMilestone sets the milestone's identity fields on the existing
// Milestone record. file_only_mode creates exactly one Milestone per
// SpecRun (C1 §4.1), so this updates rather than appends.
func (h *Host) CreateMilestone(ctx context.Context, title string) (integration.MilestoneRef, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, err := h.loadMilestone()
	if err != nil {
		return integration.MilestoneRef{}, err
	}
	m.Title = title
	if m.MilestoneID == "" {
		m.MilestoneID = title
	}
	if err := h.store.WriteMilestone(m); err != nil {
		return integration.MilestoneRef{}, fmt.Errorf("fileonly: write milestone: %w", err)
	}
	return integration.MilestoneRef{ID: m.MilestoneID}, nil
}

func (h *Host) CreateIssue(ctx context.Context, milestone integration.MilestoneRef, title, description string, labels []string) (integration.IssueRef, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, err := h.loadMilestone()
	if err != nil {
		return integration.IssueRef{}, err
	}
	iid := nextIID(m)
	m.Issues = append(m.Issues, store.Issue{
		IID: iid, State: store.IssueOpen, Title: title, Description: description, Labels: labels,
	})
	m.RecomputeAllIssuesClosed()
	if err := h.store.WriteMilestone(m); err != nil {
		return integration.IssueRef{}, fmt.Errorf("fileonly: write milestone: %w", err)
	}
	return issueToRef(m.IssueByIID(iid)), nil
}

func (h *Host) UpdateIssue(ctx context.Context, issue integration.IssueRef, description string, labels []string) (integration.IssueRef, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, err := h.loadMilestone()
	if err != nil {
		return integration.IssueRef{}, err
	}
	iss := m.IssueByIID(issue.IID)
	if iss == nil {
		return integration.IssueRef{}, fmt.Errorf("fileonly: no issue with iid %d", issue.IID)
	}
	iss.Description = description
	iss.Labels = labels
	if err := h.store.WriteMilestone(m); err != nil {
		return integration.IssueRef{}, fmt.Errorf("fileonly: write milestone: %w", err)
	}
	return issueToRef(iss), nil
}

// AddNote is a no-op for file_only_mode: there is no external thread to
// post a note on, so the note is dropped. Callers that need a durable
// record should write to the issue's Description via UpdateIssue instead.
func (h *Host) AddNote(ctx context.Context, issue integration.IssueRef, note string) error {
	return nil
}

func (h *Host) CreateBranch(ctx context.Context, name, fromBranch string) error {
	if h.git == nil {
		return fmt.Errorf("fileonly: no local git repo configured")
	}
	return h.git.CreateBranch(ctx, name, fromBranch)
}

func (h *Host) PushFiles(ctx context.Context, branch, message string, changes []integration.FileChange) (integration.Commit, error) {
	if h.git == nil {
		return integration.Commit{}, fmt.Errorf("fileonly: no local git repo configured")
	}
	m, err := h.loadMilestone()
	if err != nil {
		return integration.Commit{}, err
	}
	return h.git.PushFiles(ctx, branch, message, changes, m.SessionFiles.Tracked)
}

func (h *Host) ListCommits(ctx context.Context, branch string, since time.Time) ([]integration.Commit, error) {
	if h.git == nil {
		return nil, fmt.Errorf("fileonly: no local git repo configured")
	}
	return h.git.ListCommits(ctx, branch, since)
}

// CreateMergeRequest and GetMergeRequest have no file_only_mode analogue:
// there is no host to open a merge request against. Callers route around
// this by checking file_only_mode before invoking the MR phase.
func (h *Host) CreateMergeRequest(ctx context.Context, sourceBranch, targetBranch, title, description string) (integration.MergeRequestRef, error) {
	return integration.MergeRequestRef{}, fmt.Errorf("fileonly: merge requests are not supported in file_only_mode")
}

func (h *Host) GetMergeRequest(ctx context.Context, ref integration.MergeRequestRef) (integration.MergeRequestRef, error) {
	return integration.MergeRequestRef{}, fmt.Errorf("fileonly: merge requests are not supported in file_only_mode")
}

// ListMilestoneIssues filters the Milestone's in-memory issue slice by
// milestone ID. This is implemented with a plain Go loop rather than a
// third-party library: filtering a slice already held in memory is not a
// concern any example-pack dependency (query builders, ORMs, search
// clients) addresses, so introducing one here would add an import with no
// real job to do.
func (h *Host) ListMilestoneIssues(ctx context.Context, milestone integration.MilestoneRef) ([]integration.IssueRef, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, err := h.loadMilestone()
	if err != nil {
		return nil, err
	}
	if milestone.ID != "" && m.MilestoneID != milestone.ID {
		return nil, nil
	}
	out := make([]integration.IssueRef, 0, len(m.Issues))
	for i := range m.Issues {
		out = append(out, issueToRef(&m.Issues[i]))
	}
	return out, nil
}

func nextIID(m *store.Milestone) int {
	max := 0
	for _, iss := range m.Issues {
		if iss.IID > max {
			max = iss.IID
		}
	}
	return max + 1
}

func issueToRef(iss *store.Issue) integration.IssueRef {
	if iss == nil {
		return integration.IssueRef{}
	}
	return integration.IssueRef{
		IID:        iss.IID,
		ExternalID: iss.ExternalID,
		Title:      iss.Title,
		State:      string(iss.State),
		Labels:     iss.Labels,
	}
}
