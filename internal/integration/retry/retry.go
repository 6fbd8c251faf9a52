// Package retry wraps a collaborator call in bounded exponential backoff
// (SPEC_FULL.md §6: "All with exponential-backoff retry (3 attempts) on
// transient errors"), with the transient/permanent classification left to
// the caller since each collaborator (GitHub, a local git remote, ...)
// reports transience differently (§7's six-kind error taxonomy).
package retry

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"

	"github.com/speckit/harness/internal/logging"
)

// MaxAttempts bounds every retried call to 3 attempts total, matching §6.
const MaxAttempts = 3

// IsTransient classifies err as worth retrying. Callers pass a
// collaborator-specific classifier (e.g. githubhost's 429/5xx detector);
// the zero value here treats nothing as transient, so a caller that
// forgets to supply one fails fast rather than silently retrying forever.
type IsTransient func(error) bool

// Do calls fn up to MaxAttempts times, backing off exponentially between
// attempts, stopping as soon as fn succeeds or returns a non-transient
// error (per isTransient). The last error is returned wrapped (%w) with the
// component name and the number of attempts made.
func Do(ctx context.Context, component string, isTransient IsTransient, fn func() error) error {
	attempt := 0
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), MaxAttempts-1), ctx)

	op := func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if isTransient == nil || !isTransient(err) {
			return backoff.Permanent(err)
		}
		logging.Warn(ctx, "transient error, retrying", "component", component, "attempt", attempt, "error", err.Error())
		return err
	}

	if err := backoff.Retry(op, policy); err != nil {
		return fmt.Errorf("%s: %d attempt(s) failed: %w", component, attempt, unwrapPermanent(err))
	}
	return nil
}

func unwrapPermanent(err error) error {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}
