// Package githubhost implements the integration.IssueHost contract
// against GitHub, the same go-github client construction the pack's
// ghclient package uses (github.NewClient(nil).WithAuthToken(token)),
// generalized from a PR-review helper to the full milestone/issue/PR
// surface SPEC_FULL.md §6 names. Milestones map to GitHub milestones,
// issues to GitHub issues, and merge requests to GitHub pull requests.
package githubhost

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/go-github/v68/github"

	"github.com/speckit/harness/internal/integration"
	"github.com/speckit/harness/internal/integration/gitrepo"
	"github.com/speckit/harness/internal/integration/retry"
)

// Host implements integration.IssueHost against one GitHub repository for
// the issue/milestone/PR surface, delegating branch/commit/push to a local
// gitrepo.Repo — GitHub's contents API is not used for pushes so that a
// checkout's own remote credentials and I4 enforcement stay in one place.
type Host struct {
	gh      *github.Client
	Owner   string
	Repo    string
	git     *gitrepo.Repo
	Tracked func() []string
}

// New returns a Host authenticated with token, talking to owner/repo, with
// local git operations delegated to git (tracked reports the current
// session's file-ownership whitelist for PushFiles' I4 check).
func New(token, owner, repo string, git *gitrepo.Repo, tracked func() []string) *Host {
	return &Host{gh: github.NewClient(nil).WithAuthToken(token), Owner: owner, Repo: repo, git: git, Tracked: tracked}
}

// NewWithClient builds a Host from an existing *github.Client, for tests
// pointed at an httptest server.
func NewWithClient(gh *github.Client, owner, repo string, git *gitrepo.Repo, tracked func() []string) *Host {
	return &Host{gh: gh, Owner: owner, Repo: repo, git: git, Tracked: tracked}
}

// IsTransient classifies a go-github error as retryable: rate limits and
// abuse-detection backoffs, and 5xx server errors, per §7's "transient"
// error class. Everything else (401/403/404, validation errors) is
// permanent.
func IsTransient(err error) bool {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode >= 500
	}
	return false
}

func (h *Host) retryDo(ctx context.Context, label string, fn func() error) error {
	return retry.Do(ctx, "githubhost."+label, IsTransient, fn)
}

func (h *Host) CreateMilestone(ctx context.Context, title string) (integration.MilestoneRef, error) {
	var ref integration.MilestoneRef
	err := h.retryDo(ctx, "create_milestone", func() error {
		m, _, err := h.gh.Issues.CreateMilestone(ctx, h.Owner, h.Repo, &github.Milestone{Title: &title})
		if err != nil {
			return err
		}
		ref = integration.MilestoneRef{ID: fmt.Sprintf("%d", m.GetNumber()), URL: m.GetHTMLURL()}
		return nil
	})
	return ref, err
}

func (h *Host) CreateIssue(ctx context.Context, milestone integration.MilestoneRef, title, description string, labels []string) (integration.IssueRef, error) {
	var ref integration.IssueRef
	err := h.retryDo(ctx, "create_issue", func() error {
		req := &github.IssueRequest{Title: &title, Body: &description, Labels: &labels}
		if milestone.ID != "" {
			num := milestoneNumber(milestone.ID)
			req.Milestone = &num
		}
		iss, _, err := h.gh.Issues.Create(ctx, h.Owner, h.Repo, req)
		if err != nil {
			return err
		}
		ref = issueToRef(iss)
		return nil
	})
	return ref, err
}

func (h *Host) UpdateIssue(ctx context.Context, issue integration.IssueRef, description string, labels []string) (integration.IssueRef, error) {
	var ref integration.IssueRef
	err := h.retryDo(ctx, "update_issue", func() error {
		iss, _, err := h.gh.Issues.Edit(ctx, h.Owner, h.Repo, issue.IID, &github.IssueRequest{
			Body: &description, Labels: &labels,
		})
		if err != nil {
			return err
		}
		ref = issueToRef(iss)
		return nil
	})
	return ref, err
}

func (h *Host) AddNote(ctx context.Context, issue integration.IssueRef, note string) error {
	return h.retryDo(ctx, "add_note", func() error {
		_, _, err := h.gh.Issues.CreateComment(ctx, h.Owner, h.Repo, issue.IID, &github.IssueComment{Body: &note})
		return err
	})
}

// CreateBranch, PushFiles, and ListCommits delegate to the local working
// tree via gitrepo rather than GitHub's contents API, so a single push
// goes through one code path (and one I4 check) regardless of host.
func (h *Host) CreateBranch(ctx context.Context, name, fromBranch string) error {
	if h.git == nil {
		return fmt.Errorf("githubhost: no local git repo configured")
	}
	return h.git.CreateBranch(ctx, name, fromBranch)
}

func (h *Host) PushFiles(ctx context.Context, branch, message string, changes []integration.FileChange) (integration.Commit, error) {
	if h.git == nil {
		return integration.Commit{}, fmt.Errorf("githubhost: no local git repo configured")
	}
	var tracked []string
	if h.Tracked != nil {
		tracked = h.Tracked()
	}
	return h.git.PushFiles(ctx, branch, message, changes, tracked)
}

func (h *Host) ListCommits(ctx context.Context, branch string, since time.Time) ([]integration.Commit, error) {
	if h.git == nil {
		return nil, fmt.Errorf("githubhost: no local git repo configured")
	}
	return h.git.ListCommits(ctx, branch, since)
}

func (h *Host) CreateMergeRequest(ctx context.Context, sourceBranch, targetBranch, title, description string) (integration.MergeRequestRef, error) {
	var ref integration.MergeRequestRef
	err := h.retryDo(ctx, "create_merge_request", func() error {
		pr, _, err := h.gh.PullRequests.Create(ctx, h.Owner, h.Repo, &github.NewPullRequest{
			Title: &title, Body: &description, Head: &sourceBranch, Base: &targetBranch,
		})
		if err != nil {
			return err
		}
		ref = prToRef(pr)
		return nil
	})
	return ref, err
}

func (h *Host) GetMergeRequest(ctx context.Context, ref integration.MergeRequestRef) (integration.MergeRequestRef, error) {
	var result integration.MergeRequestRef
	err := h.retryDo(ctx, "get_merge_request", func() error {
		pr, _, err := h.gh.PullRequests.Get(ctx, h.Owner, h.Repo, prNumber(ref.IID))
		if err != nil {
			return err
		}
		result = prToRef(pr)
		return nil
	})
	return result, err
}

func (h *Host) ListMilestoneIssues(ctx context.Context, milestone integration.MilestoneRef) ([]integration.IssueRef, error) {
	var out []integration.IssueRef
	err := h.retryDo(ctx, "list_milestone_issues", func() error {
		opts := &github.IssueListByRepoOptions{
			Milestone:   milestone.ID,
			State:       "all",
			ListOptions: github.ListOptions{PerPage: 100},
		}
		for {
			issues, resp, err := h.gh.Issues.ListByRepo(ctx, h.Owner, h.Repo, opts)
			if err != nil {
				return err
			}
			for _, iss := range issues {
				if iss.IsPullRequest() {
					continue
				}
				out = append(out, issueToRef(iss))
			}
			if resp.NextPage == 0 {
				return nil
			}
			opts.Page = resp.NextPage
		}
	})
	return out, err
}

func issueToRef(iss *github.Issue) integration.IssueRef {
	labels := make([]string, 0, len(iss.Labels))
	for _, l := range iss.Labels {
		labels = append(labels, l.GetName())
	}
	return integration.IssueRef{
		IID:        iss.GetNumber(),
		ExternalID: fmt.Sprintf("%d", iss.GetID()),
		Title:      iss.GetTitle(),
		State:      iss.GetState(),
		Labels:     labels,
		UpdatedAt:  iss.GetUpdatedAt().Time,
	}
}

func prToRef(pr *github.PullRequest) integration.MergeRequestRef {
	state := pr.GetState()
	if pr.GetMerged() {
		state = "merged"
	}
	return integration.MergeRequestRef{
		IID:     fmt.Sprintf("%d", pr.GetNumber()),
		URL:     pr.GetHTMLURL(),
		State:   state,
		HeadSHA: pr.GetHead().GetSHA(),
	}
}

func milestoneNumber(id string) int {
	var n int
	fmt.Sscanf(id, "%d", &n)
	return n
}

func prNumber(iid string) int {
	var n int
	fmt.Sscanf(iid, "%d", &n)
	return n
}

var _ integration.IssueHost = (*Host)(nil)
