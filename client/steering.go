// Package client implements the debug client: it connects to a
// streaming server, parses frames via proto, renders them with
// lpx.Renderer, and steers the scan center with the frame-synchronized
// command discipline from spec §4.H.
package client

import "sync"

// sendResult reports what attempt did with a steering command.
type sendResult int

const (
	// sent means the command went out on the wire immediately.
	sent sendResult = iota
	// queued means the command overwrote the pending slot because no
	// credit was available; it will be sent once the next frame
	// arrives.
	queued
)

// steeringGate implements the one-command-per-frame rule (spec §4.H):
// a credit flag, initially false, and a single "most-recent-wins"
// pending slot. Safe for concurrent use by the UI/input goroutine and
// the receive task.
type steeringGate struct {
	mu          sync.Mutex
	canSend     bool
	hasPending  bool
	pendingCmd  command
	send        func(command) error
}

type command struct {
	DeltaX, DeltaY, StepSize float32
}

func newSteeringGate(send func(command) error) *steeringGate {
	return &steeringGate{send: send}
}

// attempt implements the client-side steering attempt: send now if
// credited, otherwise overwrite the pending slot.
func (g *steeringGate) attempt(c command) (sendResult, error) {
	g.mu.Lock()
	if g.canSend {
		g.canSend = false
		g.mu.Unlock()
		if err := g.send(c); err != nil {
			return sent, err
		}
		return sent, nil
	}
	g.pendingCmd = c
	g.hasPending = true
	g.mu.Unlock()
	return queued, nil
}

// onFrameReceived is called by the receive task after every delivered
// frame: it grants one credit and, if a command is pending, spends it
// immediately, matching the server-visible 1:1 frame/command ratio.
func (g *steeringGate) onFrameReceived() error {
	g.mu.Lock()
	if !g.hasPending {
		g.canSend = true
		g.mu.Unlock()
		return nil
	}
	c := g.pendingCmd
	g.hasPending = false
	g.canSend = false
	g.mu.Unlock()
	return g.send(c)
}
