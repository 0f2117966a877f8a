package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaEnforcer_AllowsUpToLimit(t *testing.T) {
	q := NewQuotaEnforcer(3)

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Check("flow-1"))
	}
	assert.Equal(t, 3, q.Current())

	err := q.Check("flow-1")
	require.Error(t, err)
	assert.True(t, IsStepsExceededError(err))
	assert.Contains(t, err.Error(), "4 steps > 3 limit")
}

func TestQuotaEnforcer_Reset(t *testing.T) {
	q := NewQuotaEnforcer(1)
	require.NoError(t, q.Check("flow-1"))
	require.Error(t, q.Check("flow-1"))

	q.Reset()
	assert.Equal(t, 0, q.Current())
	assert.NoError(t, q.Check("flow-2"))
}

func TestQuotaEnforcer_DefaultLimit(t *testing.T) {
	q := NewQuotaEnforcer(0)
	assert.Equal(t, DefaultMaxSteps, q.MaxSteps())
}

func TestIsStepsExceededError_Wrapped(t *testing.T) {
	err := fmt.Errorf("sync url: %w", &StepsExceededError{FlowToken: "f", Steps: 2, Limit: 1})
	assert.True(t, IsStepsExceededError(err))
	assert.False(t, IsStepsExceededError(fmt.Errorf("other")))
}
