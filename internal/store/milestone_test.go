package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecomputeAllIssuesClosed_ZeroIssuesNeverClosed(t *testing.T) {
	m := &Milestone{Title: "M", Issues: nil}
	m.RecomputeAllIssuesClosed()
	assert.False(t, m.AllIssuesClosed)
}

func TestRecomputeAllIssuesClosed_AllClosed(t *testing.T) {
	m := &Milestone{
		Title: "M",
		Issues: []Issue{
			{IID: 1, State: IssueClosed},
			{IID: 2, State: IssueClosed},
		},
	}
	m.RecomputeAllIssuesClosed()
	assert.True(t, m.AllIssuesClosed)
}

func TestRecomputeAllIssuesClosed_OneOpen(t *testing.T) {
	m := &Milestone{
		Title: "M",
		Issues: []Issue{
			{IID: 1, State: IssueClosed},
			{IID: 2, State: IssueOpen},
		},
	}
	m.RecomputeAllIssuesClosed()
	assert.False(t, m.AllIssuesClosed)
}

func TestSessionFiles_TrackAndContains(t *testing.T) {
	sf := NewSessionFiles()
	assert.Empty(t, sf.Tracked)

	sf.Track("a.go")
	sf.Track("b.go")
	sf.Track("a.go") // idempotent

	assert.Len(t, sf.Tracked, 2)
	assert.True(t, sf.Contains("a.go"))
	assert.False(t, sf.Contains("c.go"))
}

func TestWorkspaceInfo_ValidateRequiredFields(t *testing.T) {
	w := &WorkspaceInfo{}
	err := w.Validate("workspace_info")
	var schemaErr *SchemaError
	assert.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "spec_slug", schemaErr.Field)
}
