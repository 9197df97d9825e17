package engine

import (
	"context"
	"errors"
	"sync"
)

// ErrTurnInProgress is returned when a session already has a turn in flight.
var ErrTurnInProgress = errors.New("a turn is already in progress for this session")

type flight struct {
	cancel context.CancelFunc
}

// Gate allows at most one in-flight turn per session. Extra submissions are rejected, not queued.
type Gate struct {
	mu       sync.Mutex
	inflight map[string]*flight
}

// NewGate creates an empty gate.
func NewGate() *Gate {
	return &Gate{inflight: make(map[string]*flight)}
}

// Begin claims the session. The returned context is cancelled by Cancel or by release;
// release must be called when the turn ends.
func (g *Gate) Begin(parent context.Context, sessionID string) (context.Context, func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inflight[sessionID]; busy {
		return nil, nil, ErrTurnInProgress
	}
	ctx, cancel := context.WithCancel(parent)
	f := &flight{cancel: cancel}
	g.inflight[sessionID] = f

	release := func() {
		cancel()
		g.mu.Lock()
		if g.inflight[sessionID] == f {
			delete(g.inflight, sessionID)
		}
		g.mu.Unlock()
	}
	return ctx, release, nil
}

// Cancel cancels the in-flight turn of a session and reports whether there was one.
func (g *Gate) Cancel(sessionID string) bool {
	g.mu.Lock()
	f, ok := g.inflight[sessionID]
	g.mu.Unlock()
	if ok {
		f.cancel()
	}
	return ok
}

// Busy reports whether the session has a turn in flight.
func (g *Gate) Busy(sessionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inflight[sessionID]
	return ok
}
