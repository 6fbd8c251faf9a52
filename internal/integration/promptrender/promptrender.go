// Package promptrender is the concrete orchestrator.PromptRenderer wired
// into cmd/harnessd: it turns one session's phase/workspace/milestone/hint
// into a CLI invocation of an AI coding agent binary, the way the
// teacher's e2e/agents.Claude driver shapes a one-shot `claude -p <prompt>`
// call.
package promptrender

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/speckit/harness/internal/orchestrator"
	"github.com/speckit/harness/internal/store"
)

// Config names the agent binary and model a Renderer invokes.
type Config struct {
	// Binary is the AI coding agent executable, resolved via PATH (e.g.
	// "claude").
	Binary string
	// Model is passed as --model.
	Model string
}

// DefaultConfig returns the Renderer configuration used when none is set
// explicitly: the "claude" binary on the default model tier.
func DefaultConfig() Config {
	return Config{Binary: "claude", Model: "sonnet"}
}

// Renderer implements orchestrator.PromptRenderer against one of the
// templates below, selected by phase.
type Renderer struct {
	Config Config

	// ProjectDir resolves a SpecRun's project root from its identity.
	// Render receives the WorkspaceInfo, milestone and hint but not the
	// Session's *store.Store (which holds ProjectRoot), so the renderer
	// needs this to know where to run the subprocess; cmd/harnessd wires
	// it to the daemon's Registry.
	ProjectDir func(specSlug, specHash string) (string, bool)
}

// New returns a Renderer using cfg and projectDir.
func New(cfg Config, projectDir func(specSlug, specHash string) (string, bool)) *Renderer {
	return &Renderer{Config: cfg, ProjectDir: projectDir}
}

var _ orchestrator.PromptRenderer = (*Renderer)(nil)

type templateData struct {
	SpecSlug      string
	FeatureBranch string
	TargetBranch  string
	FileOnlyMode  bool
	Milestone     *store.Milestone
	Hint          *orchestrator.ResumptionHint
}

var phaseTemplates = map[orchestrator.Phase]*template.Template{
	orchestrator.PhaseInitializer: template.Must(template.New("initializer").Parse(initializerPrompt)),
	orchestrator.PhaseCoding:      template.Must(template.New("coding").Parse(codingPrompt)),
	orchestrator.PhaseMR:          template.Must(template.New("mr").Parse(mrPrompt)),
}

const initializerPrompt = `You are driving the initializer phase for spec "{{.SpecSlug}}".
Feature branch: {{.FeatureBranch}}, target branch: {{.TargetBranch}}.
Create the milestone and its issue breakdown for this spec, then emit a
checkpoint for the proposed milestone/issue plan. Emit "phase_done" once the
milestone has been created.
{{if .Hint}}
Resuming after checkpoint {{.Hint.CheckpointID}} ({{.Hint.Status}}): treat its
modifications/human_notes as authoritative for anything they cover.
{{end}}`

const codingPrompt = `You are driving the coding phase for spec "{{.SpecSlug}}" on
branch {{.FeatureBranch}} (target {{.TargetBranch}}).
{{if .Milestone}}Work the next open issue in milestone "{{.Milestone.Title}}".{{end}}
{{if .FileOnlyMode}}No remote issue host is configured; track issue state in
the local files only.{{end}}
Commit only files you were asked to touch. Emit "phase_done" once every
issue in the milestone is closed.
{{if .Hint}}
Resuming after checkpoint {{.Hint.CheckpointID}} ({{.Hint.Status}}): treat its
modifications/human_notes as authoritative for anything they cover.
{{end}}`

const mrPrompt = `You are driving the merge-request phase for spec "{{.SpecSlug}}":
open a merge/pull request from {{.FeatureBranch}} into {{.TargetBranch}} and
run the project's verification suite. Emit "phase_done" once the MR is open
and verification has run.
{{if .Hint}}
Resuming after checkpoint {{.Hint.CheckpointID}} ({{.Hint.Status}}): treat its
modifications/human_notes as authoritative for anything they cover.
{{end}}`

// Render implements orchestrator.PromptRenderer.
func (r *Renderer) Render(phase orchestrator.Phase, ws *store.WorkspaceInfo, m *store.Milestone, hint *orchestrator.ResumptionHint) (orchestrator.SessionCommand, error) {
	tmpl, ok := phaseTemplates[phase]
	if !ok {
		return orchestrator.SessionCommand{}, fmt.Errorf("%w: %s", orchestrator.ErrUnknownPhase, phase)
	}

	dir, ok := r.ProjectDir(ws.SpecSlug, ws.SpecHash)
	if !ok {
		return orchestrator.SessionCommand{}, fmt.Errorf("no project directory registered for spec run %s", ws.SpecRunID())
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, templateData{
		SpecSlug:      ws.SpecSlug,
		FeatureBranch: ws.FeatureBranch,
		TargetBranch:  ws.TargetBranch,
		FileOnlyMode:  ws.FileOnlyMode,
		Milestone:     m,
		Hint:          hint,
	}); err != nil {
		return orchestrator.SessionCommand{}, fmt.Errorf("render prompt template: %w", err)
	}

	cfg := r.Config
	if cfg.Binary == "" {
		cfg = DefaultConfig()
	}

	return orchestrator.SessionCommand{
		Binary:  cfg.Binary,
		Args:    []string{"-p", buf.String(), "--model", cfg.Model, "--dangerously-skip-permissions"},
		Dir:     dir,
		Env:     subprocessEnv(),
		PTYMode: ws.PTYMode,
	}, nil
}

// subprocessEnv strips CLAUDECODE (so the agent binary doesn't refuse to
// start when harnessd itself is run from inside a Claude Code session) and
// disables the agent's own background network calls for the duration of
// the session.
func subprocessEnv() []string {
	env := make([]string, 0, len(os.Environ())+1)
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, "CLAUDECODE=") {
			continue
		}
		env = append(env, e)
	}
	return append(env, "CLAUDE_CODE_DISABLE_NONESSENTIAL_TRAFFIC=1")
}
