package checkpoint

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// KindSpec is the tagged-variant handler for one Checkpoint Kind (§9's
// design note: "model this as a tagged variant with an exhaustive handler
// registry keyed on kind"). Each kind's file registers exactly one KindSpec
// from an init() function, the same way the teacher's strategy package
// registers named strategies.
type KindSpec interface {
	// Kind returns the kind this spec handles.
	Kind() Kind

	// ValidateModifications checks that a modifications payload is legal
	// for this kind (§4.2's per-kind modifications shape). Called by
	// Log.Resolve before a modified verdict is accepted.
	ValidateModifications(modifications json.RawMessage) error

	// AutoVerdict computes the auto-accept resolution for this kind given
	// its context payload (§4.2's auto-verdict table). Returns the verdict
	// status and, where the kind specifies one, the modifications payload
	// that verdict carries (e.g. issue_enrichment's recommended order).
	AutoVerdict(context json.RawMessage) (Status, json.RawMessage, error)
}

// ApprovalValidator is an optional KindSpec extension for kinds whose
// §4.2 semantics constrain a bare "approved" verdict too, not just
// "modified" (e.g. regression_approval: "Approval without a decision is
// invalid"). Log.Resolve calls ValidateApproval with whatever
// modifications payload (possibly nil) accompanies an approved verdict.
type ApprovalValidator interface {
	ValidateApproval(modifications json.RawMessage) error
}

var (
	registryMu sync.RWMutex
	registry   = make(map[Kind]KindSpec)
)

// Register adds a KindSpec to the registry. Typically called from a kind
// implementation's init() function. Panics on a duplicate registration —
// that is a programmer error, not a runtime condition (§7).
func Register(spec KindSpec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	k := spec.Kind()
	if _, exists := registry[k]; exists {
		panic(fmt.Sprintf("checkpoint: kind %s already registered", k))
	}
	registry[k] = spec
}

// Lookup returns the KindSpec registered for kind, if any.
func Lookup(kind Kind) (KindSpec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	spec, ok := registry[kind]
	return spec, ok
}

// RegisteredKinds returns all registered kinds in sorted order, for
// diagnostics and tests asserting the catalogue is complete.
func RegisteredKinds() []Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
