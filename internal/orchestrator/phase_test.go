package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhase_Next(t *testing.T) {
	next, err := PhaseInitializer.Next()
	require.NoError(t, err)
	assert.Equal(t, PhaseCoding, next)

	next, err = PhaseCoding.Next()
	require.NoError(t, err)
	assert.Equal(t, PhaseMR, next)

	next, err = PhaseMR.Next()
	require.NoError(t, err)
	assert.Equal(t, PhaseDone, next)

	next, err = PhaseDone.Next()
	require.NoError(t, err)
	assert.Equal(t, PhaseDone, next)
}

func TestPhase_Next_UnknownPhase(t *testing.T) {
	_, err := Phase("bogus").Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownPhase)
}

func TestPhase_Valid(t *testing.T) {
	assert.True(t, PhaseInitializer.Valid())
	assert.True(t, PhaseCoding.Valid())
	assert.True(t, PhaseMR.Valid())
	assert.True(t, PhaseDone.Valid())
	assert.False(t, Phase("nonsense").Valid())
}
