// Package server ties FrameSource, lpx.Scan, and proto together into
// the four-task streaming pipeline from spec §4.F: capture,
// processing, accept, and broadcast, plus one command reader per
// connected client.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rascol/lpximage/lpx"
	"github.com/rascol/lpximage/proto"
)

// Config bundles the tunables spec §6's server CLI surface exposes.
type Config struct {
	Addr             string
	Workers          int
	MinSkipRate      int
	MaxSkipRate      int
	MotionThreshold  float64
	TargetFrameTime  time.Duration
	FrameQueueDepth  int
	LPXQueueDepth    int
	Logger           *slog.Logger
}

func (c *Config) setDefaults() {
	if c.Workers <= 0 {
		c.Workers = 0 // Scan interprets <=0 as GOMAXPROCS
	}
	if c.MaxSkipRate < c.MinSkipRate {
		c.MaxSkipRate = c.MinSkipRate
	}
	if c.TargetFrameTime <= 0 {
		c.TargetFrameTime = 33 * time.Millisecond
	}
	if c.FrameQueueDepth <= 0 {
		c.FrameQueueDepth = 2
	}
	if c.LPXQueueDepth <= 0 {
		c.LPXQueueDepth = 4
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Server runs the capture/processing/accept/broadcast pipeline against
// one FrameSource and fans transformed frames out to any number of TCP
// clients (spec §4.F).
type Server struct {
	cfg    Config
	handle *lpx.TableHandle
	source FrameSource

	listener net.Listener
	clients  *clientSet
	frameQ   *frameQueue
	lpxQ     *lpxQueue
	skip     *skipController

	centerMu sync.Mutex
	centerX  float64
	centerY  float64

	running atomic.Bool
	stopped atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a Server ready to Start against source, scanning with
// handle's tables. The scan center starts at the raster's midpoint on
// the first captured frame's dimensions and is steered from there.
func New(handle *lpx.TableHandle, source FrameSource, cfg Config) (*Server, error) {
	if handle == nil || !handle.Tables().IsInitialized() {
		return nil, lpx.ErrInvalidTables
	}
	cfg.setDefaults()
	return &Server{
		cfg:     cfg,
		handle:  handle,
		source:  source,
		clients: newClientSet(),
		frameQ:  newFrameQueue(cfg.FrameQueueDepth),
		lpxQ:    newLPXQueue(cfg.LPXQueueDepth),
		skip:    newSkipController(cfg.MinSkipRate, cfg.MaxSkipRate, cfg.TargetFrameTime, cfg.MotionThreshold),
	}, nil
}

// Start transitions the server Stopped -> Running: binds the listener
// and launches the four long-lived tasks. Returns ErrAlreadyRunning on
// a second call without an intervening Stop, and ErrShuttingDown if
// Stop has already been called on this Server: Stopped is a terminal
// state (spec §4.F) and a stopped Server cannot be restarted.
func (s *Server) Start(ctx context.Context) error {
	if s.stopped.Load() {
		return ErrShuttingDown
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	s.listener = ln

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(3)
	go s.captureTask(runCtx)
	go s.processingTask(runCtx)
	go s.broadcastTask(runCtx)
	s.wg.Add(1)
	go s.acceptTask()

	return nil
}

// Stop transitions Running -> Stopped: flips the running flag, closes
// the listener and all client sockets to unblock readers, and joins
// every task. Idempotent: a second call is a no-op. Stopped is
// terminal: a subsequent Start returns ErrShuttingDown.
func (s *Server) Stop() error {
	s.stopped.Store(true)
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.listener != nil {
		s.listener.Close()
	}
	s.clients.closeAll()
	s.source.Close()
	s.wg.Wait()
	return nil
}

// ClientCount reports the number of currently enrolled clients.
func (s *Server) ClientCount() int { return s.clients.count() }

// Addr returns the listener's bound address, valid after Start
// returns successfully. Useful for tests that bind to port 0.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) captureTask(ctx context.Context) {
	defer s.wg.Done()
	for s.running.Load() {
		frame, err := s.source.NextFrame(ctx)
		if err != nil {
			if !s.running.Load() {
				return
			}
			s.cfg.Logger.Warn("capture: source error", "err", err)
			continue
		}
		s.frameQ.push(frame)
	}
}

func (s *Server) processingTask(ctx context.Context) {
	defer s.wg.Done()
	counter := 0
	for s.running.Load() {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-s.frameQ.pop():
			if !ok {
				return
			}
			counter++
			if s.skip.shouldSkip(counter) {
				continue
			}
			s.centerInit(frame)
			cx, cy := s.center()

			start := time.Now()
			img, err := lpx.Scan(ctx, s.handle, frame, cx, cy, s.cfg.Workers)
			elapsed := time.Since(start)
			if err != nil {
				s.cfg.Logger.Warn("processing: scan failed, dropping frame", "err", err)
				continue
			}
			s.skip.observe(frame, elapsed)
			select {
			case s.lpxQ.ch <- img:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *Server) broadcastTask(ctx context.Context) {
	defer s.wg.Done()
	for s.running.Load() {
		select {
		case <-ctx.Done():
			return
		case img, ok := <-s.lpxQ.pop():
			if !ok {
				return
			}
			wire := proto.FrameFromImage(img)
			for _, c := range s.clients.snapshot() {
				if err := c.writeFrame(wire); err != nil {
					s.cfg.Logger.Info("broadcast: evicting client", "err", err)
					s.clients.remove(c)
					c.close()
				}
			}
		}
	}
}

func (s *Server) acceptTask() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		if !s.running.Load() {
			conn.Close()
			return
		}
		c := newClientConn(conn)
		s.clients.add(c)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.clients.remove(c)
			c.readCommands(&s.running, s.applySteering)
		}()
	}
}

// applySteering implements the per-command update from spec §4.F:
// (centerXOffset, centerYOffset) moves by (deltaX*stepSize,
// deltaY*stepSize), clamped to the raster, visible starting with the
// next frame entering the processing task.
func (s *Server) applySteering(cmd proto.Command) {
	s.centerMu.Lock()
	defer s.centerMu.Unlock()
	s.centerX += float64(cmd.DeltaX * cmd.StepSize)
	s.centerY += float64(cmd.DeltaY * cmd.StepSize)
}

func (s *Server) center() (float64, float64) {
	s.centerMu.Lock()
	defer s.centerMu.Unlock()
	return s.centerX, s.centerY
}

func (s *Server) centerInit(frame *lpx.Raster) {
	s.centerMu.Lock()
	defer s.centerMu.Unlock()
	if s.centerX == 0 && s.centerY == 0 {
		s.centerX = float64(frame.Width) / 2
		s.centerY = float64(frame.Height) / 2
	}
	clampf := func(v, lo, hi float64) float64 {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	s.centerX = clampf(s.centerX, 0, float64(frame.Width))
	s.centerY = clampf(s.centerY, 0, float64(frame.Height))
}
