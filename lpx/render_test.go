package lpx

import "testing"

// TestRenderFoveaRoundTrip checks that rendering at scale 1 reproduces
// the fovea cell's color at the image center pixel.
func TestRenderFoveaRoundTrip(t *testing.T) {
	handle := synthHandle(41, 63)
	cells := make([]uint32, handle.Tables().NumCells())
	cells[0] = packColor(200, 100, 50)
	img, err := NewDecodedLPXImage(len(cells), handle.Tables().SpiralPer(), 41, 41, 0, 0, cells)
	if err != nil {
		t.Fatalf("NewDecodedLPXImage: %v", err)
	}

	rd := NewRenderer()
	rd.RegisterTables(handle)
	out := rd.Render(img, 41, 41, 1)

	cx, cy := 41/2, 41/2
	i := cy*out.Stride + cx*4
	r, g, b := out.Pix[i], out.Pix[i+1], out.Pix[i+2]
	if r != 200 || g != 100 || b != 50 {
		t.Fatalf("center pixel = (%d,%d,%d), want (200,100,50)", r, g, b)
	}
}

// TestRenderPartialBlacksOutOfRange verifies RenderPartial paints
// pixels mapping to cells outside [cellOffset, cellOffset+cellRange)
// black, even when the full image has non-zero data there.
func TestRenderPartialBlacksOutOfRange(t *testing.T) {
	handle := synthHandle(41, 63)
	length := handle.Tables().NumCells()
	cells := make([]uint32, length)
	for i := range cells {
		cells[i] = packColor(255, 255, 255)
	}
	img, err := NewDecodedLPXImage(length, handle.Tables().SpiralPer(), 41, 41, 0, 0, cells)
	if err != nil {
		t.Fatalf("NewDecodedLPXImage: %v", err)
	}

	rd := NewRenderer()
	rd.RegisterTables(handle)
	out := rd.RenderPartial(img, 41, 41, 1, 0, 0)

	for p := 0; p < len(out.Pix); p += 4 {
		if out.Pix[p] != 0 || out.Pix[p+1] != 0 || out.Pix[p+2] != 0 {
			t.Fatalf("pixel at byte %d not black with an empty cell range", p)
		}
	}
}

func TestRenderNilImageProducesBlackRaster(t *testing.T) {
	rd := NewRenderer()
	out := rd.Render(nil, 8, 8, 1)
	if out.Width != 8 || out.Height != 8 {
		t.Fatalf("unexpected raster size: %dx%d", out.Width, out.Height)
	}
	for _, v := range out.Pix {
		if v != 0 {
			t.Fatal("expected all-zero raster for nil image")
		}
	}
}
