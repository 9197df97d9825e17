package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachineTransitions(t *testing.T) {
	m := NewMachine()
	assert.ErrorIs(t, m.Transition(StateStreaming), ErrIllegalTransition)
	require.NoError(t, m.Transition(StateClassifying))
	require.NoError(t, m.Transition(StateStreaming))
	require.NoError(t, m.Transition(StateCompleted))
	assert.True(t, m.State().Terminal())
	assert.ErrorIs(t, m.Transition(StateStreaming), ErrIllegalTransition)
	assert.ErrorIs(t, m.Transition(StateCancelled), ErrIllegalTransition)
}

func TestGateRejectsSecondTurn(t *testing.T) {
	g := NewGate()
	ctx, release, err := g.Begin(context.Background(), "s1")
	require.NoError(t, err)

	_, _, err = g.Begin(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrTurnInProgress)

	// 其他会话不受影响
	_, releaseOther, err := g.Begin(context.Background(), "s2")
	require.NoError(t, err)
	releaseOther()

	assert.True(t, g.Cancel("s1"))
	assert.Error(t, ctx.Err())
	assert.True(t, g.Busy("s1"))

	release()
	assert.False(t, g.Busy("s1"))
	assert.False(t, g.Cancel("s1"))

	_, release, err = g.Begin(context.Background(), "s1")
	require.NoError(t, err)
	release()
}
