// Package qualitycheck defines the lint/format/types/tests result shape
// (SPEC_FULL.md §4.3's verification_result event) and runs one check of its
// own: a pre-push secret scan over a session's tracked files using
// zricethezav/gitleaks/v8, the secret-scanning library the teacher's own
// go.mod already declares.
package qualitycheck

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zricethezav/gitleaks/v8/detect"
	"github.com/zricethezav/gitleaks/v8/report"
)

// Category names a verification_result check class (SPEC_FULL.md §4.3).
type Category string

const (
	CategoryLint   Category = "lint"
	CategoryFormat Category = "format"
	CategoryTypes  Category = "types"
	CategoryTests  Category = "tests"
)

// Result is one category's pass/fail outcome. The orchestrator does not use
// this type; its verification_state is built from verification_result
// events.
type Result struct {
	Category Category
	Passed   bool
	Detail   string
}

// SecretFinding is one gitleaks hit against a tracked file.
type SecretFinding struct {
	Path      string
	RuleID    string
	StartLine int
	Match     string
}

// Scanner runs a pre-push secret scan against a working tree's tracked
// files.
type Scanner struct {
	dir      string
	detector *detect.Detector
}

// NewScanner builds a Scanner rooted at dir using gitleaks' default rule
// set.
func NewScanner(dir string) (*Scanner, error) {
	d, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("qualitycheck: build gitleaks detector: %w", err)
	}
	return &Scanner{dir: dir, detector: d}, nil
}

// ScanTrackedFiles scans every path in tracked for secrets, returning one
// SecretFinding per hit. A non-empty result should be reported as a
// CategoryTests verification_result failure (SPEC_FULL.md §6: "reported as
// a verification-gate failure in the tests category").
func (s *Scanner) ScanTrackedFiles(ctx context.Context, tracked []string) ([]SecretFinding, error) {
	var findings []SecretFinding
	for _, rel := range tracked {
		abs := filepath.Join(s.dir, rel)
		data, err := os.ReadFile(abs)
		if err != nil {
			if os.IsNotExist(err) {
				// deleted files carry nothing to scan
				continue
			}
			return nil, fmt.Errorf("qualitycheck: read %s: %w", rel, err)
		}
		for _, f := range s.detector.DetectBytes(data) {
			findings = append(findings, toSecretFinding(rel, f))
		}
	}
	return findings, nil
}

// AsVerificationResult folds findings into the tests-category Result the
// verification gate expects.
func AsVerificationResult(findings []SecretFinding) Result {
	if len(findings) == 0 {
		return Result{Category: CategoryTests, Passed: true}
	}
	return Result{
		Category: CategoryTests,
		Passed:   false,
		Detail:   fmt.Sprintf("%d potential secret(s) detected before push", len(findings)),
	}
}

func toSecretFinding(path string, f report.Finding) SecretFinding {
	return SecretFinding{Path: path, RuleID: f.RuleID, StartLine: f.StartLine, Match: f.Match}
}
