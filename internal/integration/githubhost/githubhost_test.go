package githubhost

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speckit/harness/internal/integration"
)

const baseURLPath = "/api-v3"

// setup creates a test HTTP server and a Host configured to talk to it,
// the same mux/httptest fixture the pack's ghclient package uses.
func setup(t *testing.T) (*Host, *http.ServeMux) {
	t.Helper()

	mux := http.NewServeMux()
	apiHandler := http.NewServeMux()
	apiHandler.Handle(baseURLPath+"/", http.StripPrefix(baseURLPath, mux))

	server := httptest.NewServer(apiHandler)
	t.Cleanup(server.Close)

	ghClient := github.NewClient(nil)
	u, _ := url.Parse(server.URL + baseURLPath + "/")
	ghClient.BaseURL = u

	return NewWithClient(ghClient, "owner", "repo", nil, nil), mux
}

func TestHost_CreateMilestone(t *testing.T) {
	h, mux := setup(t)

	mux.HandleFunc("/repos/owner/repo/milestones", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		fmt.Fprint(w, `{"number":7,"html_url":"https://github.com/owner/repo/milestone/7"}`)
	})

	ref, err := h.CreateMilestone(context.Background(), "M1")
	require.NoError(t, err)
	assert.Equal(t, "7", ref.ID)
	assert.Equal(t, "https://github.com/owner/repo/milestone/7", ref.URL)
}

func TestHost_CreateIssue(t *testing.T) {
	h, mux := setup(t)

	mux.HandleFunc("/repos/owner/repo/issues", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"number":42,"id":99,"title":"do the thing","state":"open","labels":[{"name":"bug"}]}`)
	})

	ref, err := h.CreateIssue(context.Background(), integration.MilestoneRef{ID: "7"}, "do the thing", "body", []string{"bug"})
	require.NoError(t, err)
	assert.Equal(t, 42, ref.IID)
	assert.Equal(t, "99", ref.ExternalID)
	assert.Equal(t, "open", ref.State)
	assert.Equal(t, []string{"bug"}, ref.Labels)
}

func TestHost_AddNote(t *testing.T) {
	h, mux := setup(t)

	mux.HandleFunc("/repos/owner/repo/issues/42/comments", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		fmt.Fprint(w, `{}`)
	})

	err := h.AddNote(context.Background(), integration.IssueRef{IID: 42}, "hello")
	require.NoError(t, err)
}

func TestHost_ListMilestoneIssues_FiltersPullRequests(t *testing.T) {
	h, mux := setup(t)

	mux.HandleFunc("/repos/owner/repo/issues", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("milestone"))
		fmt.Fprint(w, `[
			{"number":1,"id":1,"title":"a real issue","state":"open"},
			{"number":2,"id":2,"title":"a pr","state":"open","pull_request":{"url":"x"}}
		]`)
	})

	issues, err := h.ListMilestoneIssues(context.Background(), integration.MilestoneRef{ID: "7"})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, 1, issues[0].IID)
}

func TestHost_CreateMergeRequest(t *testing.T) {
	h, mux := setup(t)

	mux.HandleFunc("/repos/owner/repo/pulls", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"number":5,"html_url":"https://github.com/owner/repo/pull/5","state":"open","head":{"sha":"abc123"}}`)
	})

	ref, err := h.CreateMergeRequest(context.Background(), "feature/x", "main", "title", "desc")
	require.NoError(t, err)
	assert.Equal(t, "5", ref.IID)
	assert.Equal(t, "open", ref.State)
	assert.Equal(t, "abc123", ref.HeadSHA)
}

func TestHost_GetMergeRequest_ReportsMerged(t *testing.T) {
	h, mux := setup(t)

	mux.HandleFunc("/repos/owner/repo/pulls/5", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"number":5,"merged":true,"state":"closed"}`)
	})

	ref, err := h.GetMergeRequest(context.Background(), integration.MergeRequestRef{IID: "5"})
	require.NoError(t, err)
	assert.Equal(t, "merged", ref.State)
}

func TestIsTransient(t *testing.T) {
	h, mux := setup(t)

	mux.HandleFunc("/repos/owner/repo/milestones", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"message":"boom"}`)
	})

	_, err := h.CreateMilestone(context.Background(), "M1")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestHost_PushFiles_RequiresGitRepo(t *testing.T) {
	h, _ := setup(t)
	_, err := h.PushFiles(context.Background(), "feature/x", "msg", nil)
	require.Error(t, err)
}
