package checkpoint

import (
	"encoding/json"
	"fmt"
)

// errNoModificationsSupported is the shared ValidateModifications body for
// kinds whose §4.2 semantics describe no modifications shape at all: any
// non-nil payload is rejected outright.
func errNoModificationsSupported(kind Kind, modifications json.RawMessage) error {
	if len(modifications) == 0 {
		return nil
	}
	return fmt.Errorf("kind %s does not accept modifications", kind)
}

// marshalContext converts an arbitrary context/modifications argument into
// json.RawMessage. A nil input (no modifications supplied) yields nil, a
// json.RawMessage passes through unchanged, and any other value is
// marshaled with encoding/json.
func marshalContext(value any) (json.RawMessage, error) {
	if value == nil {
		return nil, nil
	}
	if raw, ok := value.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return data, nil
}

// unmarshalOrError is a small convenience for ValidateModifications
// implementations that only need to confirm the payload decodes into the
// kind's modifications shape.
func unmarshalOrError(kind Kind, modifications json.RawMessage, into any) error {
	if len(modifications) == 0 {
		return nil
	}
	if err := json.Unmarshal(modifications, into); err != nil {
		return fmt.Errorf("kind %s: invalid modifications payload: %w", kind, err)
	}
	return nil
}
