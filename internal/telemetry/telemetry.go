// Package telemetry sends anonymous lifecycle events for the daemon
// process itself (started, stopped) — never anything about a spec's
// content or an agent's code changes. Distinct installs are told apart by
// a salted, per-machine id, never a user identity.
package telemetry

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/posthog/posthog-go"
)

// appIDSalt scopes the protected machine id to this application, so it
// cannot be correlated with other tools' use of the same machine id
// mechanism.
const appIDSalt = "harness"

// eventsAPIKey is the write-only PostHog project key for harness's own
// telemetry project. A daemon built without one (the common case outside
// an official release build) runs with telemetry disabled.
var eventsAPIKey = os.Getenv("HARNESS_TELEMETRY_KEY")

// Client emits anonymous daemon lifecycle events. The zero value (returned
// when telemetry is disabled or misconfigured) is a harmless no-op.
type Client struct {
	ph         posthog.Client
	distinctID string
}

// New returns a Client. Telemetry is a no-op when HARNESS_TELEMETRY_KEY is
// unset or HARNESS_TELEMETRY_DISABLE is set, and a broken machine-id lookup
// degrades to no-op rather than blocking daemon startup.
func New() *Client {
	if eventsAPIKey == "" || os.Getenv("HARNESS_TELEMETRY_DISABLE") != "" {
		return &Client{}
	}
	id, err := machineid.ProtectedID(appIDSalt)
	if err != nil {
		return &Client{}
	}
	ph, err := posthog.NewWithConfig(eventsAPIKey, posthog.Config{})
	if err != nil {
		return &Client{}
	}
	return &Client{ph: ph, distinctID: id}
}

// Capture records a named event with the given properties, if telemetry is
// enabled.
func (c *Client) Capture(event string, properties map[string]any) {
	if c == nil || c.ph == nil {
		return
	}
	props := posthog.NewProperties()
	for k, v := range properties {
		props.Set(k, v)
	}
	_ = c.ph.Enqueue(posthog.Capture{
		DistinctId: c.distinctID,
		Event:      event,
		Properties: props,
	})
}

// Close flushes any queued events and releases the underlying client.
func (c *Client) Close() error {
	if c == nil || c.ph == nil {
		return nil
	}
	return c.ph.Close()
}
