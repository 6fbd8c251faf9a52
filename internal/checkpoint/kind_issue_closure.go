package checkpoint

import "encoding/json"

// IssueClosureContext carries the implementation summary, test results,
// and commit reference for an issue_closure checkpoint (§4.2). Scope is
// the issue's iid.
type IssueClosureContext struct {
	IssueIID           int      `json:"issue_iid"`
	ImplementationNote string   `json:"implementation_note"`
	TestResults        string   `json:"test_results"`
	CommitReference    string   `json:"commit_reference"`
	FilesChanged       []string `json:"files_changed"`
}

// issue_closure has no modifications shape (§4.2 only describes approve ->
// close, reject -> address human_notes and re-create).
type issueClosureSpec struct{}

func (issueClosureSpec) Kind() Kind { return KindIssueClosure }

func (issueClosureSpec) ValidateModifications(modifications json.RawMessage) error {
	return errNoModificationsSupported(KindIssueClosure, modifications)
}

func (issueClosureSpec) AutoVerdict(json.RawMessage) (Status, json.RawMessage, error) {
	return StatusApproved, nil, nil
}

func init() { Register(issueClosureSpec{}) }
