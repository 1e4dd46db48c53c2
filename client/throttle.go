package client

import "time"

// keyThrottle rate-limits raw user input to at most one steering
// attempt per interval (spec §4.H, default ~16ms), independent of the
// frame-synchronized credit gate.
type keyThrottle struct {
	interval time.Duration
	last     time.Time
}

func newKeyThrottle(interval time.Duration) *keyThrottle {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &keyThrottle{interval: interval}
}

// allow reports whether enough time has passed since the last allowed
// attempt, and if so records now as the new baseline.
func (k *keyThrottle) allow(now time.Time) bool {
	if now.Sub(k.last) < k.interval {
		return false
	}
	k.last = now
	return true
}

// reset records now as the throttle's baseline without checking it,
// for callers that just let an attempt through some other way (an
// edge-triggered key press) and want the next held-key repeat to wait
// a full interval from that attempt rather than from whenever the
// throttle last happened to fire.
func (k *keyThrottle) reset(now time.Time) {
	k.last = now
}
