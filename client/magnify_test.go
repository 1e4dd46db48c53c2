package client

import (
	"testing"

	"github.com/rascol/lpximage/lpx"
)

func TestMagnifyRasterScalesDimensions(t *testing.T) {
	src := &lpx.Raster{Width: 2, Height: 2, Stride: 8, Pix: []byte{
		255, 0, 0, 255, 0, 255, 0, 255,
		0, 0, 255, 255, 255, 255, 0, 255,
	}}
	got := magnifyRaster(src, 3)
	if got.Width != 6 || got.Height != 6 {
		t.Fatalf("magnifyRaster size = %dx%d, want 6x6", got.Width, got.Height)
	}
	// Nearest-neighbor: the top-left 3x3 block must all equal the
	// source's top-left pixel.
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			i := y*got.Stride + x*4
			if got.Pix[i] != 255 || got.Pix[i+1] != 0 || got.Pix[i+2] != 0 {
				t.Fatalf("pixel (%d,%d) = %v, want red", x, y, got.Pix[i:i+4])
			}
		}
	}
}
