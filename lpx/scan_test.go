package lpx

import (
	"context"
	"testing"
)

func solidRaster(w, h int, r, g, b uint8) *Raster {
	ras := &Raster{Width: w, Height: h, Stride: w * 4, Pix: make([]uint8, w*h*4)}
	for i := 0; i < w*h; i++ {
		ras.Pix[i*4] = r
		ras.Pix[i*4+1] = g
		ras.Pix[i*4+2] = b
		ras.Pix[i*4+3] = 255
	}
	return ras
}

// TestScanAllGraySolidColor is scenario S1: scanning a uniform raster
// must produce a uniform cell array (every non-fovea, in-range cell
// equal to the source color).
func TestScanAllGraySolidColor(t *testing.T) {
	handle := synthHandle(41, 63)
	raster := solidRaster(41, 41, 128, 128, 128)

	img, err := Scan(context.Background(), handle, raster, 20, 20, 0)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	lastFovea := handle.Tables().LastFoveaIndex()
	for i := lastFovea + 1; i < img.Length(); i++ {
		r, g, b, err := img.GetCellValue(i)
		if err != nil {
			t.Fatalf("GetCellValue(%d): %v", i, err)
		}
		if r != 128 || g != 128 || b != 128 {
			// Cells whose source pixels never fell inside the raster
			// are legitimately left black; anything else must match.
			if r != 0 || g != 0 || b != 0 {
				t.Fatalf("cell %d = (%d,%d,%d), want (128,128,128) or (0,0,0)", i, r, g, b)
			}
		}
	}
}

// TestScanFoveaDirectCopy is scenario S2: the single-pixel fovea cell
// scans without averaging, a direct pixel copy at the scan center.
func TestScanFoveaDirectCopy(t *testing.T) {
	handle := synthHandle(41, 63)
	raster := solidRaster(41, 41, 0, 0, 0)
	cx, cy := 20, 20
	// Paint the center pixel a distinct color; the fovea cell covering
	// offset (0,0) must reproduce it exactly, unaveraged.
	i := cy*raster.Stride + cx*4
	raster.Pix[i], raster.Pix[i+1], raster.Pix[i+2] = 200, 100, 50

	img, err := Scan(context.Background(), handle, raster, float64(cx), float64(cy), 0)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	r, g, b, err := img.GetCellValue(0)
	if err != nil {
		t.Fatalf("GetCellValue(0): %v", err)
	}
	if r != 200 || g != 100 || b != 50 {
		t.Fatalf("fovea cell 0 = (%d,%d,%d), want (200,100,50)", r, g, b)
	}
}

// TestScanDeterministic is testable property 1: repeated scans of the
// same raster and center produce identical cell arrays, regardless of
// worker count.
func TestScanDeterministic(t *testing.T) {
	handle := synthHandle(41, 63)
	raster := solidRaster(41, 41, 77, 88, 99)

	a, err := Scan(context.Background(), handle, raster, 20, 20, 1)
	if err != nil {
		t.Fatalf("Scan(1 worker): %v", err)
	}
	b, err := Scan(context.Background(), handle, raster, 20, 20, 4)
	if err != nil {
		t.Fatalf("Scan(4 workers): %v", err)
	}
	if a.Length() != b.Length() {
		t.Fatalf("length mismatch: %d vs %d", a.Length(), b.Length())
	}
	for i := 0; i < a.Length(); i++ {
		if a.CellArray()[i] != b.CellArray()[i] {
			t.Fatalf("cell %d differs across worker counts: %#x vs %#x", i, a.CellArray()[i], b.CellArray()[i])
		}
	}
}

func TestScanRejectsEmptyRaster(t *testing.T) {
	handle := synthHandle(41, 63)
	if _, err := Scan(context.Background(), handle, &Raster{}, 0, 0, 0); err != ErrEmptyInput {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestScanRejectsInvalidTables(t *testing.T) {
	handle := &TableHandle{tables: &ScanTables{}}
	raster := solidRaster(4, 4, 1, 2, 3)
	if _, err := Scan(context.Background(), handle, raster, 2, 2, 0); err != ErrInvalidTables {
		t.Fatalf("expected ErrInvalidTables, got %v", err)
	}
}

// TestScanCenterOffRaster exercises the out-of-bounds early return: a
// scan center far enough outside the raster produces a zero-filled,
// error-free image rather than a failure.
func TestScanCenterOffRaster(t *testing.T) {
	handle := synthHandle(41, 63)
	raster := solidRaster(10, 10, 9, 9, 9)

	img, err := Scan(context.Background(), handle, raster, -10000, -10000, 0)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	for i, v := range img.CellArray() {
		if v != 0 {
			t.Fatalf("cell %d = %#x, want 0 for far-off-raster center", i, v)
		}
	}
}
