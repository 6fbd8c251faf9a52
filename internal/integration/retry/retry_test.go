package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")
var errPermanent = errors.New("permanent")

func alwaysTransient(err error) bool { return errors.Is(err, errTransient) }

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), "test", alwaysTransient, func() error {
		attempts++
		if attempts < MaxAttempts {
			return errTransient
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, MaxAttempts, attempts)
}

func TestDo_StopsImmediatelyOnPermanentError(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), "test", alwaysTransient, func() error {
		attempts++
		return errPermanent
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, attempts)
}

func TestDo_ExhaustsRetriesOnPersistentTransientError(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), "test", alwaysTransient, func() error {
		attempts++
		return errTransient
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, MaxAttempts, attempts)
}
