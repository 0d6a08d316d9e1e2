package handler

import (
	"context"
	"sync/atomic"
)

// State is the session state of a handler.
type State int32

const (
	// Idle means no session is open.
	Idle State = iota
	// Active means a session is open and accepting events.
	Active
	// Closing means End is in progress.
	Closing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Closing:
		return "closing"
	default:
		return "unknown"
	}
}

// Guard enforces one open session per handler instance. Transitions are
// atomic so that State may be read from another goroutine; the guard is
// not a lock and does not make a handler safe for concurrent sessions.
type Guard struct {
	name  string
	state atomic.Int32
}

// Begin moves Idle to Active.
func (g *Guard) Begin() error {
	if !g.state.CompareAndSwap(int32(Idle), int32(Active)) {
		return protocolError(g.name, "start", "session already "+g.State().String())
	}
	return nil
}

// Check fails unless a session is Active.
func (g *Guard) Check(op string) error {
	if s := g.State(); s != Active {
		return protocolError(g.name, op, "session is "+s.String())
	}
	return nil
}

// Close moves Active to Closing. Call Release when End has finished.
func (g *Guard) Close() error {
	if !g.state.CompareAndSwap(int32(Active), int32(Closing)) {
		return protocolError(g.name, "end", "session is "+g.State().String())
	}
	return nil
}

// Release returns the guard to Idle.
func (g *Guard) Release() {
	g.state.Store(int32(Idle))
}

// Finish is Close followed by Release, for handlers with nothing to do in between.
func (g *Guard) Finish() error {
	if err := g.Close(); err != nil {
		return err
	}
	g.Release()
	return nil
}

// State returns the current session state.
func (g *Guard) State() State { return State(g.state.Load()) }

// Active reports whether a session is open.
func (g *Guard) Active() bool { return g.State() == Active }

// Base supplies the guard and the default pass-through behaviour for
// namespace and base IRI events. Embed it in terminal handlers.
type Base struct {
	Guard
}

func newBase(name string) Base {
	return Base{Guard: Guard{name: name}}
}

// HandleNamespace accepts the declaration.
func (b *Base) HandleNamespace(_ context.Context, _, _ string) (bool, error) {
	if err := b.Check("namespace"); err != nil {
		return false, err
	}
	return true, nil
}

// HandleBaseURI accepts the base IRI.
func (b *Base) HandleBaseURI(_ context.Context, _ string) (bool, error) {
	if err := b.Check("base"); err != nil {
		return false, err
	}
	return true, nil
}

// AcceptsAll reports true.
func (b *Base) AcceptsAll() bool { return true }
