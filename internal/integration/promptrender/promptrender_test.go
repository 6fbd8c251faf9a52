package promptrender

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speckit/harness/internal/orchestrator"
	"github.com/speckit/harness/internal/store"
)

func fixedProjectDir(dir string) func(string, string) (string, bool) {
	return func(specSlug, specHash string) (string, bool) { return dir, true }
}

func TestRenderer_Render_Initializer(t *testing.T) {
	r := New(Config{Binary: "claude", Model: "sonnet"}, fixedProjectDir("/tmp/project"))

	sc, err := r.Render(orchestrator.PhaseInitializer, &store.WorkspaceInfo{
		SpecSlug: "demo", SpecHash: "ab12", FeatureBranch: "feature/demo", TargetBranch: "main",
	}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "claude", sc.Binary)
	assert.Equal(t, "/tmp/project", sc.Dir)
	require.Len(t, sc.Args, 5)
	assert.Equal(t, "-p", sc.Args[0])
	assert.Contains(t, sc.Args[1], "demo")
	assert.Equal(t, "--model", sc.Args[2])
	assert.Equal(t, "sonnet", sc.Args[3])
}

func TestRenderer_Render_IncludesResumptionHint(t *testing.T) {
	r := New(DefaultConfig(), fixedProjectDir("/tmp/project"))

	sc, err := r.Render(orchestrator.PhaseCoding, &store.WorkspaceInfo{
		SpecSlug: "demo", SpecHash: "ab12", FeatureBranch: "feature/demo", TargetBranch: "main",
	}, nil, &orchestrator.ResumptionHint{CheckpointID: "cp-1", Status: "rejected"})
	require.NoError(t, err)
	assert.Contains(t, sc.Args[1], "cp-1")
}

func TestRenderer_Render_UnknownPhase(t *testing.T) {
	r := New(DefaultConfig(), fixedProjectDir("/tmp/project"))
	_, err := r.Render(orchestrator.Phase("bogus"), &store.WorkspaceInfo{SpecSlug: "demo", SpecHash: "ab12"}, nil, nil)
	require.ErrorIs(t, err, orchestrator.ErrUnknownPhase)
}

func TestRenderer_Render_MissingProjectDir(t *testing.T) {
	r := New(DefaultConfig(), func(string, string) (string, bool) { return "", false })
	_, err := r.Render(orchestrator.PhaseInitializer, &store.WorkspaceInfo{SpecSlug: "demo", SpecHash: "ab12"}, nil, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "demo-ab12"))
}
