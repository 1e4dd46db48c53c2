package client

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/rascol/lpximage/lpx"
	"github.com/rascol/lpximage/proto"
)

// Client owns one TCP connection to a streaming server: a receive task
// parsing frames via proto, a renderer turning each into a raster, and
// the frame-synchronized steering gate from spec §4.H.
type Client struct {
	conn   net.Conn
	wmu    sync.Mutex
	gate   *steeringGate
	render *lpx.Renderer
	logger *slog.Logger

	windowW, windowH int
	magnify          int

	frameMu sync.Mutex
	onFrame func(*lpx.Raster)

	closed atomic.Bool
	done   chan struct{}
}

// Options configures Dial. WindowWidth/WindowHeight give the rendered
// raster's pixel dimensions (the client's --window-size flag);
// Magnify, if > 1, additionally blocks up the rendered raster by that
// integer factor with nearest-neighbor scaling before handing it to
// onFrame, for a crisper per-cell debug view distinct from the
// renderer's own scale parameter.
type Options struct {
	WindowWidth  int
	WindowHeight int
	Scale        float64
	Magnify      int
}

// Dial connects to addr and starts the receive task. onFrame is called
// from the receive goroutine with each newly rendered raster; it must
// not block for long, since it runs inline with frame delivery and the
// steering credit grant that follows it.
func Dial(addr string, opts Options, onFrame func(*lpx.Raster), logger *slog.Logger) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", proto.ErrNetworkFailure, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.WindowWidth <= 0 {
		opts.WindowWidth = 640
	}
	if opts.WindowHeight <= 0 {
		opts.WindowHeight = 480
	}
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	c := &Client{
		conn:    conn,
		render:  lpx.NewRenderer(),
		logger:  logger,
		windowW: opts.WindowWidth,
		windowH: opts.WindowHeight,
		magnify: opts.Magnify,
		onFrame: onFrame,
		done:    make(chan struct{}),
	}
	c.gate = newSteeringGate(c.writeCommand)
	go c.receiveLoop(opts.Scale)
	return c, nil
}

// SetOnFrame installs the callback invoked from the receive goroutine
// with each newly rendered raster, replacing whatever was passed to
// Dial (or a prior SetOnFrame call). Safe to call concurrently with
// the receive loop; takes effect starting with the next delivered
// frame, avoiding the unsynchronized access that a direct field
// assignment from another goroutine would be.
func (c *Client) SetOnFrame(fn func(*lpx.Raster)) {
	c.frameMu.Lock()
	c.onFrame = fn
	c.frameMu.Unlock()
}

func (c *Client) getOnFrame() func(*lpx.Raster) {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()
	return c.onFrame
}

// Steer attempts a steering command under the one-per-frame rule.
// Callers don't need to distinguish "sent" from "queued": both are
// valid outcomes and the gate guarantees eventual delivery on the next
// frame.
func (c *Client) Steer(deltaX, deltaY, stepSize float32) error {
	if c.closed.Load() {
		return ErrNotConnected
	}
	_, err := c.gate.attempt(command{DeltaX: deltaX, DeltaY: deltaY, StepSize: stepSize})
	return err
}

// Close shuts down the connection and waits for the receive task to
// exit.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := c.conn.Close()
	<-c.done
	return err
}

func (c *Client) writeCommand(cmd command) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return proto.WriteCommand(c.conn, proto.Command{DeltaX: cmd.DeltaX, DeltaY: cmd.DeltaY, StepSize: cmd.StepSize})
}

func (c *Client) receiveLoop(scale float64) {
	defer close(c.done)
	for {
		cmdType, err := proto.ReadCmdType(c.conn)
		if err != nil {
			if !c.closed.Load() {
				c.logger.Info("client: connection closed", "err", err)
			}
			return
		}
		if !proto.IsFrameType(cmdType) {
			c.logger.Warn("client: unexpected cmdType, closing", "cmdType", cmdType)
			c.conn.Close()
			return
		}
		wire, err := proto.ReadFrame(c.conn)
		if err != nil {
			c.logger.Warn("client: frame read failed, closing", "err", err)
			return
		}
		img, err := wire.ToImage()
		if err != nil {
			c.logger.Warn("client: bad frame, closing", "err", err)
			return
		}
		if fn := c.getOnFrame(); fn != nil {
			raster := c.render.Render(img, c.windowW, c.windowH, scale)
			if c.magnify > 1 {
				raster = magnifyRaster(raster, c.magnify)
			}
			fn(raster)
		}
		if err := c.gate.onFrameReceived(); err != nil {
			c.logger.Warn("client: pending command send failed", "err", err)
		}
	}
}
