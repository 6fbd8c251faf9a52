package daemon

import "errors"

var (
	// ErrAgentNotFound is returned by Registry/handler lookups for an
	// unknown agent_id.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrAgentRunning is returned by Delete/remove for a still-running agent.
	ErrAgentRunning = errors.New("agent is running")

	// ErrConflictingAgent is returned by Start when an AgentRecord for the
	// same (project_dir, spec_slug, spec_hash) is already running or
	// parked at waiting_checkpoint (§5 ordering guarantees: two agents on
	// the same project root are not supported).
	ErrConflictingAgent = errors.New("an agent is already running for this project_dir, spec_slug, and spec_hash")

	// ErrSpecTooSmall is returned by Start when app_spec is non-empty but
	// smaller than the minimum the initializer accepts (§8 boundary
	// behavior: "Spec file smaller than 50 bytes: initializer refuses
	// before creating a milestone").
	ErrSpecTooSmall = errors.New("app_spec is smaller than the minimum 50 bytes")

	// ErrSocketInUse is returned at startup when an existing daemon is
	// already listening on the configured socket path.
	ErrSocketInUse = errors.New("daemon socket already in use")

	// ErrInsecureSocketDir is returned when the socket's parent directory
	// is group- or world-writable (§4.4's socket security note).
	ErrInsecureSocketDir = errors.New("socket directory permissions are too permissive")
)
