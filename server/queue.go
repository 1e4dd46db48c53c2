package server

import "github.com/rascol/lpximage/lpx"

// frameQueue is the capture→processing handoff: bounded, drop-oldest
// on full, because the freshest frame matters more than any backlog
// (spec §4.F).
type frameQueue struct {
	ch chan Frame
}

func newFrameQueue(capacity int) *frameQueue {
	return &frameQueue{ch: make(chan Frame, capacity)}
}

// push never blocks: if the queue is full it drops the oldest queued
// frame to make room.
func (q *frameQueue) push(f Frame) {
	for {
		select {
		case q.ch <- f:
			return
		default:
		}
		select {
		case <-q.ch:
		default:
		}
	}
}

func (q *frameQueue) pop() <-chan Frame { return q.ch }

// lpxQueue is the processing→broadcast handoff: bounded, blocking send,
// because a finished LPXImage is never dropped (spec §4.F).
type lpxQueue struct {
	ch chan *lpx.LPXImage
}

func newLPXQueue(capacity int) *lpxQueue {
	return &lpxQueue{ch: make(chan *lpx.LPXImage, capacity)}
}

func (q *lpxQueue) pop() <-chan *lpx.LPXImage { return q.ch }
