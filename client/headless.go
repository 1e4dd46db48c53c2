//go:build headless

package client

import (
	"bufio"
	"os"
	"time"

	"golang.org/x/term"
)

// HeadlessSteerer reads raw keystrokes from stdin and translates arrow
// keys into steering attempts, for environments with no display (the
// ebiten-backed renderWindow is unavailable in a headless build).
type HeadlessSteerer struct {
	client   *Client
	stepSize float32
	throttle *keyThrottle
	oldState *term.State
}

// NewHeadlessSteerer puts stdin into raw mode (so arrow-key escape
// sequences arrive byte-by-byte instead of line-buffered) and returns
// a steerer ready to Run.
func NewHeadlessSteerer(client *Client, stepSize float32, throttleInterval time.Duration) (*HeadlessSteerer, error) {
	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return nil, err
	}
	return &HeadlessSteerer{
		client:   client,
		stepSize: stepSize,
		throttle: newKeyThrottle(throttleInterval),
		oldState: oldState,
	}, nil
}

// Close restores the terminal to its prior mode.
func (h *HeadlessSteerer) Close() error {
	return term.Restore(int(os.Stdin.Fd()), h.oldState)
}

// Run reads from stdin until a read fails (io.EOF included),
// translating ANSI arrow-key escape sequences (ESC [ A/B/C/D) into
// steering attempts, throttled the same as the windowed client. It
// does not watch the connection: once the Client is closed, steering
// attempts fail and Run keeps reading.
func (h *HeadlessSteerer) Run() error {
	r := bufio.NewReader(os.Stdin)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		if b != 0x1B {
			continue
		}
		b1, err := r.ReadByte()
		if err != nil || b1 != '[' {
			continue
		}
		b2, err := r.ReadByte()
		if err != nil {
			continue
		}
		dx, dy, ok := arrowDelta(b2)
		if !ok {
			continue
		}
		if !h.throttle.allow(time.Now()) {
			continue
		}
		h.client.Steer(dx, dy, h.stepSize)
	}
}

func arrowDelta(code byte) (dx, dy float32, ok bool) {
	switch code {
	case 'A':
		return 0, -1, true
	case 'B':
		return 0, 1, true
	case 'C':
		return 1, 0, true
	case 'D':
		return -1, 0, true
	default:
		return 0, 0, false
	}
}
