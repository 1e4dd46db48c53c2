// render.go - inverts the transform to a raster at arbitrary scale,
// for visualization by the debug client (or any other consumer).

package lpx

import "sync"

// Renderer inverts an LPXImage back to a raster. A caller that has a
// loaded TableHandle for a given spiralPer can register it via
// RegisterTables; at scale 1 the renderer then uses that handle's
// ScanCache instead of the closed-form math, matching spec §4.E's
// "reused scan cache when scale=1" note.
type Renderer struct {
	mu     sync.Mutex
	caches map[float32]*ScanCache
}

// NewRenderer returns a renderer with an empty per-spiralPer cache.
func NewRenderer() *Renderer {
	return &Renderer{caches: make(map[float32]*ScanCache)}
}

// RegisterTables lets the renderer reuse handle's ScanCache for any
// image whose SpiralPer matches the tables' spiralPer, at scale 1.
func (rd *Renderer) RegisterTables(handle *TableHandle) {
	if handle == nil || !handle.Tables().IsInitialized() {
		return
	}
	rd.mu.Lock()
	defer rd.mu.Unlock()
	rd.caches[handle.Tables().SpiralPer()] = handle.Cache()
}

func (rd *Renderer) cacheFor(spiralPer float32) *ScanCache {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	return rd.caches[spiralPer]
}

// cellFor maps a source-space offset to a cell index, preferring a
// registered ScanCache at scale 1 and falling back to the closed-form
// derivation everywhere else.
func (rd *Renderer) cellFor(sx, sy float64, spiralPer float32, scale float64) int {
	if scale == 1 {
		if cache := rd.cacheFor(spiralPer); cache != nil {
			if idx, ok := cache.Lookup(int(sx), int(sy)); ok {
				return idx
			}
		}
	}
	return CellIndex(sx, sy, float64(spiralPer))
}

// Render writes an output raster of size w×h from img, zoomed by
// scale, mapping each output pixel back to a source cell. Pixels that
// land on a cell index >= img.Length() are painted black.
func (rd *Renderer) Render(img *LPXImage, w, h int, scale float64) *Raster {
	return rd.RenderPartial(img, w, h, scale, 0, img.safeLength())
}

// RenderPartial renders only cells in [cellOffset, cellOffset+cellRange)
// and leaves every other pixel black, for progressive/partial display.
func (rd *Renderer) RenderPartial(img *LPXImage, w, h int, scale float64, cellOffset, cellRange int) *Raster {
	out := &Raster{Width: w, Height: h, Stride: w * 4, Pix: make([]uint8, w*h*4)}
	if img == nil || scale <= 0 {
		return out
	}
	lo, hi := cellOffset, cellOffset+cellRange
	spiralPer := img.SpiralPer()
	cx := w / 2
	cy := h / 2
	xOfs := float64(img.XOfs())
	yOfs := float64(img.YOfs())

	for v := 0; v < h; v++ {
		for u := 0; u < w; u++ {
			sx := (float64(u-cx))/scale - xOfs
			sy := (float64(v-cy))/scale - yOfs
			cellIdx := rd.cellFor(sx, sy, spiralPer, scale)
			i := v*out.Stride + u*4
			out.Pix[i+3] = 255
			if cellIdx < lo || cellIdx >= hi || cellIdx >= img.Length() {
				continue
			}
			r, g, b, _ := img.GetCellValue(cellIdx)
			out.Pix[i], out.Pix[i+1], out.Pix[i+2] = r, g, b
		}
	}
	return out
}

func (img *LPXImage) safeLength() int {
	if img == nil {
		return 0
	}
	return img.Length()
}
