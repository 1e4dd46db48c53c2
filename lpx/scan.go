// scan.go - the multi-threaded pixel-accumulation scan: the
// performance-critical path that turns a raster into an LPXImage.

package lpx

import (
	"context"
	"math"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Raster is a raw RGB(A) pixel buffer handed in by a caller. Decoding
// and acquisition are out of scope for this repository; this is the
// only shape the scan engine needs to know about.
type Raster struct {
	Width, Height int
	// Stride is the byte distance between the start of one row and
	// the next; it may exceed Width*4 for a sub-image view.
	Stride int
	// Pix holds interleaved R,G,B,A bytes, row-major, Height*Stride
	// long (alpha is present but never read).
	Pix []uint8
}

func (r *Raster) at(x, y int) (uint8, uint8, uint8) {
	i := y*r.Stride + x*4
	return r.Pix[i], r.Pix[i+1], r.Pix[i+2]
}

func (r *Raster) empty() bool {
	return r == nil || r.Width <= 0 || r.Height <= 0 || len(r.Pix) == 0
}

// shard is one worker's private accumulator set, merged into the
// image's accumulators once the worker's strip is done. Keeping these
// per-goroutine (rather than atomic per-cell counters) avoids false
// sharing on the hot pixel loop, at the cost of one merge pass per
// worker.
type shard struct {
	accR, accG, accB []uint64
	count            []uint32
}

func newShard(length int) *shard {
	return &shard{
		accR:  make([]uint64, length),
		accG:  make([]uint64, length),
		accB:  make([]uint64, length),
		count: make([]uint32, length),
	}
}

// Scan performs §4.D's bounding-box, strip-partitioned, multi-threaded
// pixel accumulation, populating and returning a new LPXImage. workers
// <= 0 means "use runtime.GOMAXPROCS(0)". The scan center (cx, cy) is
// in raster pixel coordinates.
func Scan(ctx context.Context, handle *TableHandle, raster *Raster, cx, cy float64, workers int) (*LPXImage, error) {
	if handle == nil || !handle.Tables().IsInitialized() {
		return nil, ErrInvalidTables
	}
	if raster.empty() {
		return nil, ErrEmptyInput
	}

	tables := handle.Tables()
	img, err := NewLPXImage(handle, raster.Width, raster.Height)
	if err != nil {
		return nil, err
	}
	img.SetPosition(float32(cx), float32(cy))

	xmin, ymin, xmax, ymax := boundingBox(tables, raster, cx, cy)
	if xmin > xmax || ymin > ymax {
		// Center is far enough outside the raster that the scan
		// radius never touches it: zero-filled output, not an error.
		return img, nil
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > ymax-ymin+1 {
		workers = ymax - ymin + 1
	}
	if workers < 1 {
		workers = 1
	}

	cache := handle.Cache()
	spiralPer := float64(tables.SpiralPer())
	lastFovea := tables.LastFoveaIndex()
	length := img.length

	rows := ymax - ymin + 1
	rowsPerWorker := (rows + workers - 1) / workers

	var mergeMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		y0 := ymin + w*rowsPerWorker
		y1 := y0 + rowsPerWorker - 1
		if y1 > ymax {
			y1 = ymax
		}
		if y0 > y1 {
			continue
		}
		g.Go(func() error {
			sh := newShard(length)
			for y := y0; y <= y1; y++ {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				sy := float64(y) - cy
				for x := xmin; x <= xmax; x++ {
					sx := float64(x) - cx
					cellIdx, ok := cache.Lookup(int(math.Round(sx)), int(math.Round(sy)))
					if !ok {
						cellIdx = CellIndex(sx, sy, spiralPer)
					}
					if cellIdx <= lastFovea || cellIdx >= length {
						continue
					}
					r, gr, b := raster.at(x, y)
					sh.accR[cellIdx] += uint64(r)
					sh.accG[cellIdx] += uint64(gr)
					sh.accB[cellIdx] += uint64(b)
					sh.count[cellIdx]++
				}
			}
			mergeShard(img, sh, &mergeMu)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scanFovea(img, raster, tables, cx, cy)
	finalize(img, tables)

	return img, nil
}

func mergeShard(img *LPXImage, sh *shard, mu *sync.Mutex) {
	mu.Lock()
	defer mu.Unlock()
	for i := range sh.count {
		if sh.count[i] == 0 {
			continue
		}
		img.accR[i] += sh.accR[i]
		img.accG[i] += sh.accG[i]
		img.accB[i] += sh.accB[i]
		img.count[i] += sh.count[i]
	}
}

// boundingBox clips the closed-form scan radius to the raster.
func boundingBox(tables *ScanTables, raster *Raster, cx, cy float64) (xmin, ymin, xmax, ymax int) {
	r := boundingRadius(tables.NumCells(), float64(tables.SpiralPer()))
	xmin = int(math.Floor(cx - r))
	xmax = int(math.Ceil(cx + r))
	ymin = int(math.Floor(cy - r))
	ymax = int(math.Ceil(cy + r))
	if xmin < 0 {
		xmin = 0
	}
	if ymin < 0 {
		ymin = 0
	}
	if xmax > raster.Width-1 {
		xmax = raster.Width - 1
	}
	if ymax > raster.Height-1 {
		ymax = raster.Height - 1
	}
	return
}

// scanFovea handles the innermost cells directly: they map 1:1 to
// pixel coordinates, so no averaging is needed or performed.
func scanFovea(img *LPXImage, raster *Raster, tables *ScanTables, cx, cy float64) {
	cells := tables.InnerCells()
	for i, p := range cells {
		if i >= len(img.cellArray) {
			break
		}
		px := int(cx) + int(p.X)
		py := int(cy) + int(p.Y)
		if px < 0 || px >= raster.Width || py < 0 || py >= raster.Height {
			continue
		}
		r, g, b := raster.at(px, py)
		img.cellArray[i] = packColor(r, g, b)
	}
}

// finalize folds accumulators into the packed cell array. Cells with
// zero samples are left as all-zero (black), per spec §4.D/§9.
func finalize(img *LPXImage, tables *ScanTables) {
	lastFovea := tables.LastFoveaIndex()
	for i := 0; i < img.length; i++ {
		if i <= lastFovea {
			continue
		}
		c := img.count[i]
		if c == 0 {
			img.cellArray[i] = 0
			continue
		}
		r := uint8(img.accR[i] / uint64(c))
		g := uint8(img.accG[i] / uint64(c))
		b := uint8(img.accB[i] / uint64(c))
		img.cellArray[i] = packColor(r, g, b)
	}
	img.accR, img.accG, img.accB, img.count = nil, nil, nil, nil
}
