package engine

import (
	"errors"
	"fmt"
	"sync"
)

// ErrIllegalTransition is returned when a turn tries to move between states that are not connected.
var ErrIllegalTransition = errors.New("illegal turn state transition")

// State is the lifecycle state of a single turn.
type State string

const (
	StateIdle            State = "idle"
	StateClassifying     State = "classifying"
	StateGeneratingImage State = "generating_image"
	StateStreaming       State = "streaming"
	StateCompleted       State = "completed"
	StateCancelled       State = "cancelled"
	StateFailed          State = "failed"
)

var transitions = map[State][]State{
	StateIdle:            {StateClassifying},
	StateClassifying:     {StateGeneratingImage, StateStreaming, StateFailed, StateCancelled},
	StateGeneratingImage: {StateCompleted, StateCancelled, StateFailed},
	StateStreaming:       {StateCompleted, StateCancelled, StateFailed},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Machine tracks one turn. A new turn always gets a new Machine.
type Machine struct {
	mu    sync.Mutex
	state State
}

// NewMachine returns a machine in the Idle state.
func NewMachine() *Machine {
	return &Machine{state: StateIdle}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Transition moves to the given state if the edge exists.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, allowed := range transitions[m.state] {
		if allowed == to {
			m.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, m.state, to)
}
