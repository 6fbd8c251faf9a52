package store

import (
	"fmt"
	"time"
)

// WorkspaceInfo is per-SpecRun configuration (§3). Created once by the
// client when starting an agent; read fresh by every subsequent session.
type WorkspaceInfo struct {
	SpecSlug      string `json:"spec_slug"`
	SpecHash      string `json:"spec_hash"`
	FeatureBranch string `json:"feature_branch"`
	TargetBranch  string `json:"target_branch"`
	AutoAccept    bool   `json:"auto_accept"`

	FileOnlyMode          bool `json:"file_only_mode"`
	SkipMRCreation        bool `json:"skip_mr_creation"`
	SkipPuppeteer         bool `json:"skip_puppeteer"`
	SkipTestSuite         bool `json:"skip_test_suite"`
	SkipRegressionTesting bool `json:"skip_regression_testing"`

	// PTYMode spawns the AI subprocess over a pseudo-terminal instead of
	// plain pipes, for agent binaries that refuse to run with a non-tty
	// stdin (SPEC_FULL.md §6 expansion).
	PTYMode bool `json:"pty_mode"`

	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the required-field rule from §4.1: WorkspaceInfo must
// have non-empty spec_slug, spec_hash, feature_branch, target_branch.
func (w *WorkspaceInfo) Validate(path string) error {
	switch {
	case w.SpecSlug == "":
		return &SchemaError{Path: path, Field: "spec_slug"}
	case w.SpecHash == "":
		return &SchemaError{Path: path, Field: "spec_hash"}
	case w.FeatureBranch == "":
		return &SchemaError{Path: path, Field: "feature_branch"}
	case w.TargetBranch == "":
		return &SchemaError{Path: path, Field: "target_branch"}
	}
	return nil
}

// ReadWorkspaceInfo loads and validates WorkspaceInfo from path.
func ReadWorkspaceInfo(path string) (*WorkspaceInfo, error) {
	var w WorkspaceInfo
	if err := ReadJSON(path, &w); err != nil {
		return nil, err
	}
	if err := w.Validate(path); err != nil {
		return nil, err
	}
	return &w, nil
}

// WriteWorkspaceInfo atomically persists w to path.
func WriteWorkspaceInfo(path string, w *WorkspaceInfo) error {
	if err := w.Validate(path); err != nil {
		return err
	}
	return AtomicWriteJSON(path, w)
}

// SpecRunID formats the (spec_slug, spec_hash) identity as it appears on
// disk: "<spec_slug>-<spec_hash>".
func (w *WorkspaceInfo) SpecRunID() string {
	return fmt.Sprintf("%s-%s", w.SpecSlug, w.SpecHash)
}
