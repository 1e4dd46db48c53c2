//go:build !headless

package client

import (
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/rascol/lpximage/lpx"
)

// renderWindow is the debug client's ebiten.Game implementation: it
// displays the most recently rendered raster and translates arrow-key
// input into steering attempts, in the same single-Game-struct shape
// as the teacher's EbitenOutput.
type renderWindow struct {
	mu     sync.Mutex
	width  int
	height int
	pix    []byte

	img      *ebiten.Image
	client   *Client
	stepSize float32
	throttle *keyThrottle
}

// NewWindow builds an ebiten-backed window sized to client's
// configured window dimensions (scaled up by its magnify factor, if
// any), with steering step size stepSize and the given keyboard
// throttle interval (0 uses the spec default of ~16ms).
func NewWindow(client *Client, stepSize float32, throttleInterval time.Duration) *renderWindow {
	factor := client.magnify
	if factor < 1 {
		factor = 1
	}
	w, h := client.windowW*factor, client.windowH*factor
	rw := &renderWindow{
		width:    w,
		height:   h,
		pix:      make([]byte, w*h*4),
		client:   client,
		stepSize: stepSize,
		throttle: newKeyThrottle(throttleInterval),
	}
	client.SetOnFrame(rw.update)
	return rw
}

// update is the Client.onFrame callback: it copies the rendered raster
// into the window's display buffer under its own lock, decoupled from
// ebiten's Draw cadence.
func (rw *renderWindow) update(raster *lpx.Raster) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if raster.Width != rw.width || raster.Height != rw.height {
		return
	}
	copy(rw.pix, raster.Pix)
}

// Run starts the ebiten game loop; it blocks until the window closes.
func (rw *renderWindow) Run(title string) error {
	ebiten.SetWindowSize(rw.width, rw.height)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizable(true)
	return ebiten.RunGame(rw)
}

func (rw *renderWindow) Update() error {
	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}
	rw.handleArrowKeys()
	return nil
}

func (rw *renderWindow) handleArrowKeys() {
	now := time.Now()
	type dir struct {
		key          ebiten.Key
		dx, dy float32
	}
	dirs := []dir{
		{ebiten.KeyArrowLeft, -1, 0},
		{ebiten.KeyArrowRight, 1, 0},
		{ebiten.KeyArrowUp, 0, -1},
		{ebiten.KeyArrowDown, 0, 1},
	}
	for _, d := range dirs {
		if inpututil.IsKeyJustPressed(d.key) {
			// A fresh press always steers immediately, edge-triggered,
			// so the first tap of a direction never waits out a
			// throttle window left over from a previous key.
			rw.throttle.reset(now)
			rw.client.Steer(d.dx, d.dy, rw.stepSize)
			break
		}
		if !ebiten.IsKeyPressed(d.key) {
			continue
		}
		if !rw.throttle.allow(now) {
			break
		}
		rw.client.Steer(d.dx, d.dy, rw.stepSize)
		break
	}
}

func (rw *renderWindow) Draw(screen *ebiten.Image) {
	rw.mu.Lock()
	if rw.img == nil {
		rw.img = ebiten.NewImage(rw.width, rw.height)
	}
	rw.img.WritePixels(rw.pix)
	rw.mu.Unlock()
	screen.DrawImage(rw.img, nil)
}

func (rw *renderWindow) Layout(_, _ int) (int, int) {
	return rw.width, rw.height
}

// toNRGBA returns a standard image.Image view of the last rendered
// raster without going through ebiten.
func (rw *renderWindow) toNRGBA() *image.NRGBA {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	out := image.NewNRGBA(image.Rect(0, 0, rw.width, rw.height))
	for i := 0; i < len(rw.pix); i += 4 {
		out.Set((i/4)%rw.width, (i/4)/rw.width, color.NRGBA{R: rw.pix[i], G: rw.pix[i+1], B: rw.pix[i+2], A: rw.pix[i+3]})
	}
	return out
}
