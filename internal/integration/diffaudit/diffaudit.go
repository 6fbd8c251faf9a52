// Package diffaudit renders a human-readable diff between a checkpoint's
// original context and a human's modifications, using sergi/go-diff — the
// diff library the teacher's own go.mod already declares. The daemon
// appends the rendered diff to a resolved checkpoint's human_notes when
// the resolution verdict is "modified" (SPEC_FULL.md §6).
package diffaudit

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Render returns an inline text diff between original and modified (go-diff's
// DiffPrettyText: inserted and deleted runs are marked with ANSI colour codes),
// both expected to be JSON payloads (a checkpoint's Context and
// Modifications). Both are re-marshaled with indentation first so the diff
// highlights field-level changes instead of single-line noise.
func Render(original, modified json.RawMessage) (string, error) {
	origText, err := prettyJSON(original)
	if err != nil {
		return "", fmt.Errorf("diffaudit: format original: %w", err)
	}
	modText, err := prettyJSON(modified)
	if err != nil {
		return "", fmt.Errorf("diffaudit: format modifications: %w", err)
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(origText, modText, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	return dmp.DiffPrettyText(diffs), nil
}

func prettyJSON(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
