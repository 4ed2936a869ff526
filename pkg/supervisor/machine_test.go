package supervisor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_SuccessPath(t *testing.T) {
	setupLogger(t)
	ctx := context.Background()
	m := newMachine()

	require.Equal(t, StateIdle, m.Current())
	for _, ev := range []string{EventRestart, EventRestarted, EventRunning, EventListening} {
		require.NoError(t, fire(ctx, m, ev), ev)
	}
	assert.Equal(t, StateSucceeded, m.Current())
}

func TestMachine_RetryReturnsToRestarting(t *testing.T) {
	setupLogger(t)
	ctx := context.Background()

	for _, failFrom := range [][]string{
		{EventRestart},
		{EventRestart, EventRestarted},
		{EventRestart, EventRestarted, EventRunning},
	} {
		m := newMachine()
		for _, ev := range failFrom {
			require.NoError(t, fire(ctx, m, ev))
		}
		require.NoError(t, fire(ctx, m, EventRetry))
		assert.Equal(t, StateRetryPending, m.Current())

		require.NoError(t, fire(ctx, m, EventRestart))
		assert.Equal(t, StateRestarting, m.Current())
	}
}

func TestMachine_TerminalStates(t *testing.T) {
	setupLogger(t)
	ctx := context.Background()

	m := newMachine()
	require.NoError(t, fire(ctx, m, EventRestart))
	require.NoError(t, fire(ctx, m, EventEscalate))
	assert.Equal(t, StateEscalated, m.Current())

	for _, ev := range []string{EventRestart, EventRetry, EventEscalate, EventListening} {
		assert.Error(t, fire(ctx, m, ev), ev)
	}
}

func TestMachine_PortCheckNeedsRunning(t *testing.T) {
	setupLogger(t)
	ctx := context.Background()

	m := newMachine()
	require.NoError(t, fire(ctx, m, EventRestart))
	assert.Error(t, fire(ctx, m, EventListening))
	assert.Error(t, fire(ctx, m, EventRunning))
	assert.Equal(t, StateRestarting, m.Current())
}
