package diffaudit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRender_HighlightsChangedField(t *testing.T) {
	original := json.RawMessage(`{"title":"M1","target_branch":"main"}`)
	modified := json.RawMessage(`{"title":"M1 revised","target_branch":"main"}`)

	out, err := Render(original, modified)
	require.NoError(t, err)
	require.Contains(t, out, "revised")
}

func TestRender_EmptyOriginalProducesInsertOnly(t *testing.T) {
	modified := json.RawMessage(`{"title":"M1"}`)

	out, err := Render(nil, modified)
	require.NoError(t, err)
	require.Contains(t, out, "title")
}

func TestRender_IdenticalPayloadsProduceNoDiffMarkers(t *testing.T) {
	same := json.RawMessage(`{"title":"M1"}`)

	out, err := Render(same, same)
	require.NoError(t, err)
	require.NotContains(t, out, "\x1b[")
	require.Contains(t, out, "title")
}
