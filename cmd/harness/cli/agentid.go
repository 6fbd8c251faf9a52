package cli

import (
	"fmt"
	"strconv"
)

// parseAgentID parses a CLI positional argument as an agent_id.
func parseAgentID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid agent id %q: %w", s, err)
	}
	return id, nil
}
