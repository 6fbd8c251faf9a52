package daemon

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.json")
	reg, err := OpenRegistry(path)
	require.NoError(t, err)
	return reg
}

func TestRegistry_CreateAssignsMonotonicIDs(t *testing.T) {
	reg := newTestRegistry(t)

	first, err := reg.Create(AgentRecord{SpecSlug: "demo"})
	require.NoError(t, err)
	second, err := reg.Create(AgentRecord{SpecSlug: "demo"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.AgentID)
	assert.Equal(t, int64(2), second.AgentID)
}

func TestRegistry_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	reg, err := OpenRegistry(path)
	require.NoError(t, err)
	rec, err := reg.Create(AgentRecord{SpecSlug: "demo", Status: StatusIdle})
	require.NoError(t, err)

	reopened, err := OpenRegistry(path)
	require.NoError(t, err)
	got, ok := reopened.Get(rec.AgentID)
	require.True(t, ok)
	assert.Equal(t, "demo", got.SpecSlug)
}

func TestRegistry_DeleteRefusesRunningAgent(t *testing.T) {
	reg := newTestRegistry(t)
	rec, err := reg.Create(AgentRecord{SpecSlug: "demo", Status: StatusRunning, PID: os.Getpid()})
	require.NoError(t, err)

	err = reg.Delete(rec.AgentID)
	require.ErrorIs(t, err, ErrAgentRunning)
}

func TestRegistry_DeleteSucceedsForStoppedAgent(t *testing.T) {
	reg := newTestRegistry(t)
	rec, err := reg.Create(AgentRecord{SpecSlug: "demo", Status: StatusStopped})
	require.NoError(t, err)

	require.NoError(t, reg.Delete(rec.AgentID))
	_, ok := reg.Get(rec.AgentID)
	assert.False(t, ok)
}

func TestRegistry_DeleteUnknownAgentFails(t *testing.T) {
	reg := newTestRegistry(t)
	err := reg.Delete(999)
	require.ErrorIs(t, err, ErrAgentNotFound)
}

func TestOpenRegistry_ReconcilesDeadPIDToStopped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	reg, err := OpenRegistry(path)
	require.NoError(t, err)

	// Spawn and immediately reap a subprocess to obtain a pid that is
	// guaranteed not to be live, then record the agent as running against it.
	cmd := exec.Command("/bin/sh", "-c", "exit 0")
	require.NoError(t, cmd.Run())
	deadPID := cmd.Process.Pid

	_, err = reg.Create(AgentRecord{SpecSlug: "demo", Status: StatusRunning, PID: deadPID})
	require.NoError(t, err)

	reopened, err := OpenRegistry(path)
	require.NoError(t, err)
	recs := reopened.List()
	require.Len(t, recs, 1)
	assert.Equal(t, StatusStopped, recs[0].Status)
	assert.Equal(t, 0, recs[0].PID)
}

func TestOpenRegistry_LeavesWaitingCheckpointUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	reg, err := OpenRegistry(path)
	require.NoError(t, err)

	rec, err := reg.Create(AgentRecord{SpecSlug: "demo", Status: StatusWaitingCheckpoint})
	require.NoError(t, err)

	reopened, err := OpenRegistry(path)
	require.NoError(t, err)
	got, ok := reopened.Get(rec.AgentID)
	require.True(t, ok)
	assert.Equal(t, StatusWaitingCheckpoint, got.Status)
}

func TestRegistry_UpdateUnknownAgentFails(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.Update(999, func(a *AgentRecord) {})
	require.ErrorIs(t, err, ErrAgentNotFound)
}
