package cli

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/speckit/harness/internal/daemon"
	"github.com/speckit/harness/internal/protocol"
)

func newStartCmd() *cobra.Command {
	var (
		specSlug              string
		specHash              string
		specFile              string
		featureBranch         string
		targetBranch          string
		autoAccept            bool
		fileOnlyMode          bool
		skipMRCreation        bool
		skipPuppeteer         bool
		skipTestSuite         bool
		skipRegressionTesting bool
		ptyMode               bool
	)

	cmd := &cobra.Command{
		Use:   "start <project-dir>",
		Short: "Start a new agent against a project directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if specSlug == "" {
				return exitCodeError{exitOperationalError, fmt.Errorf("--spec-slug is required")}
			}
			if featureBranch == "" || targetBranch == "" {
				return exitCodeError{exitOperationalError, fmt.Errorf("--feature-branch and --target-branch are required")}
			}
			if specHash == "" {
				var err error
				specHash, err = randomSpecHash()
				if err != nil {
					return exitCodeError{exitOperationalError, err}
				}
			}

			var appSpec string
			if specFile != "" {
				data, err := os.ReadFile(specFile)
				if err != nil {
					return exitCodeError{exitOperationalError, fmt.Errorf("read spec file: %w", err)}
				}
				appSpec = string(data)
			}

			startArgs := protocol.StartArgs{
				ProjectDir:            args[0],
				SpecSlug:              specSlug,
				SpecHash:              specHash,
				AppSpec:               appSpec,
				FeatureBranch:         featureBranch,
				TargetBranch:          targetBranch,
				AutoAccept:            autoAccept,
				FileOnlyMode:          fileOnlyMode,
				SkipMRCreation:        skipMRCreation,
				SkipPuppeteer:         skipPuppeteer,
				SkipTestSuite:         skipTestSuite,
				SkipRegressionTesting: skipRegressionTesting,
				PTYMode:               ptyMode,
			}

			value, err := roundTrip(protocol.OpStart, startArgs)
			if err != nil {
				return exitCodeError{exitOperationalError, err}
			}
			var rec daemon.AgentRecord
			if err := json.Unmarshal(value, &rec); err != nil {
				return exitCodeError{exitOperationalError, fmt.Errorf("decode response: %w", err)}
			}
			fmt.Printf("started agent %d (spec_hash=%s)\n", rec.AgentID, specHash)
			return nil
		},
	}

	cmd.Flags().StringVar(&specSlug, "spec-slug", "", "human-chosen name identifying this SpecRun")
	cmd.Flags().StringVar(&specHash, "spec-hash", "", "short tag distinguishing concurrent runs of the same spec (random if omitted)")
	cmd.Flags().StringVar(&specFile, "spec-file", "", "path to the specification file to hand the agent")
	cmd.Flags().StringVar(&featureBranch, "feature-branch", "", "branch the agent commits to")
	cmd.Flags().StringVar(&targetBranch, "target-branch", "", "branch the feature branch merges into")
	cmd.Flags().BoolVar(&autoAccept, "auto-accept", false, "auto-resolve pending checkpoints instead of waiting on a human")
	cmd.Flags().BoolVar(&fileOnlyMode, "file-only-mode", false, "track issues/milestones in local files instead of a remote host")
	cmd.Flags().BoolVar(&skipMRCreation, "skip-mr-creation", false, "skip opening a merge/pull request at the end of a run")
	cmd.Flags().BoolVar(&skipPuppeteer, "skip-puppeteer", false, "skip browser-driven verification")
	cmd.Flags().BoolVar(&skipTestSuite, "skip-test-suite", false, "skip running the project test suite")
	cmd.Flags().BoolVar(&skipRegressionTesting, "skip-regression-testing", false, "skip regression verification against the target branch")
	cmd.Flags().BoolVar(&ptyMode, "pty-mode", false, "run the child session attached to a pty")

	return cmd
}

// randomSpecHash generates the "short random tag" that, combined with
// spec_slug, identifies a SpecRun (§2).
func randomSpecHash() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate spec hash: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
