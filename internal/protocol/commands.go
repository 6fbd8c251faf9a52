package protocol

// StartArgs is the `args` payload of a `start` request (§4.4, §6).
type StartArgs struct {
	ProjectDir    string `json:"project_dir"`
	SpecSlug      string `json:"spec_slug"`
	SpecHash      string `json:"spec_hash"`
	AppSpec       string `json:"app_spec"`
	FeatureBranch string `json:"feature_branch"`
	TargetBranch  string `json:"target_branch"`
	AutoAccept    bool   `json:"auto_accept"`

	FileOnlyMode          bool `json:"file_only_mode"`
	SkipMRCreation        bool `json:"skip_mr_creation"`
	SkipPuppeteer         bool `json:"skip_puppeteer"`
	SkipTestSuite         bool `json:"skip_test_suite"`
	SkipRegressionTesting bool `json:"skip_regression_testing"`
	PTYMode               bool `json:"pty_mode"`
}

// AgentIDArgs is the `args` payload shared by stop/status/remove, and the
// optional filter for subscribe.
type AgentIDArgs struct {
	AgentID int64 `json:"agent_id"`
}

// ResolveCheckpointArgs is the `args` payload of `resolve_checkpoint`
// (§4.4): a thin wrapper around C2.resolve scoped to one agent's workspace.
type ResolveCheckpointArgs struct {
	AgentID       int64  `json:"agent_id"`
	CheckpointID  string `json:"checkpoint_id"`
	Verdict       string `json:"verdict"`
	Modifications any    `json:"modifications,omitempty"`
	HumanNotes    string `json:"human_notes,omitempty"`
}
