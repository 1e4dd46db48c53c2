// Package server implements the four-task streaming pipeline: capture,
// transform, accept, and broadcast, fanning a log-polar scan out to any
// number of TCP clients with adaptive frame skipping and coalesced
// steering commands (spec §4.F).
package server

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rascol/lpximage/lpx"
)

// Frame is the raw raster shape a FrameSource hands to the capture
// task. Decoding/acquisition that produces one is out of scope here.
type Frame = *lpx.Raster

// FrameSource is the pull interface the capture task drains. Both
// camera and file variants implement it; neither touches real
// hardware or codecs, which stay out of scope (spec's Non-goals).
type FrameSource interface {
	NextFrame(ctx context.Context) (Frame, error)
	Close() error
}

// ErrSourceClosed is returned by a FrameSource that has already been
// closed.
var ErrSourceClosed = errors.New("server: frame source closed")

// cameraSource wraps a caller-supplied raw-frame puller. Real camera
// I/O is a host/OS concern outside this repository; callers provide
// the pull function, cameraSource only sequences calls to it.
type cameraSource struct {
	pull  func(ctx context.Context) (Frame, error)
	close func() error
}

// NewCameraSource builds a FrameSource around a caller-supplied pull
// function, pulling monotonically and unpaced (spec §4.F.1).
func NewCameraSource(pull func(ctx context.Context) (Frame, error), closeFn func() error) FrameSource {
	return &cameraSource{pull: pull, close: closeFn}
}

func (c *cameraSource) NextFrame(ctx context.Context) (Frame, error) {
	return c.pull(ctx)
}

func (c *cameraSource) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

// fileSource wraps an in-memory, pre-decoded frame list and paces
// delivery to a configured FPS, optionally looping.
type fileSource struct {
	frames []Frame
	fps    float64
	loop   bool
	idx    int
	closed bool
}

// NewFileSource builds a FrameSource over frames, delivering one every
// 1/fps seconds, restarting from the beginning when loop is true.
func NewFileSource(frames []Frame, fps float64, loop bool) FrameSource {
	return &fileSource{frames: frames, fps: fps, loop: loop}
}

func (f *fileSource) NextFrame(ctx context.Context) (Frame, error) {
	if f.closed {
		return nil, ErrSourceClosed
	}
	if len(f.frames) == 0 {
		return nil, io.EOF
	}
	if f.idx >= len(f.frames) {
		if !f.loop {
			return nil, io.EOF
		}
		f.idx = 0
	}
	frame := f.frames[f.idx]
	f.idx++

	interval := time.Duration(float64(time.Second) / f.fps)
	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	return frame, nil
}

func (f *fileSource) Close() error {
	f.closed = true
	return nil
}
