// scancache.go - derived flat pixel-to-cell lookup table, built once
// per process from ScanTables and thereafter read-only.

package lpx

// ScanCache is a direct flat lookup from a pixel offset (rooted at the
// scan-map center) to the cell index that pixel belongs to. It is
// derived from ScanTables by expanding the outerPixelIndex /
// outerPixelCellIdx run-length pairs, and is immutable after
// NewScanCache returns.
type ScanCache struct {
	mapWidth int
	lut      []int32 // -1 marks an offset outside any declared run
}

// NewScanCache builds the flat LUT for the given tables. Returns
// ErrInvalidTables if tables is not initialized.
func NewScanCache(tables *ScanTables) (*ScanCache, error) {
	if !tables.IsInitialized() {
		return nil, ErrInvalidTables
	}

	mw := tables.MapWidth()
	lut := make([]int32, mw*mw)
	for i := range lut {
		lut[i] = -1
	}

	idx := tables.OuterPixelIndex()
	cellIdx := tables.OuterPixelCellIdx()
	for i := range idx {
		start := int(idx[i])
		end := len(lut)
		if i+1 < len(idx) {
			end = int(idx[i+1])
		}
		if start < 0 {
			start = 0
		}
		if end > len(lut) {
			end = len(lut)
		}
		for off := start; off < end; off++ {
			lut[off] = cellIdx[i]
		}
	}

	return &ScanCache{mapWidth: mw, lut: lut}, nil
}

// Lookup returns the cell index for a pixel at signed offset (sx, sy)
// from the scan center, and whether that offset falls within the
// scan-map range at all.
func (c *ScanCache) Lookup(sx, sy int) (int, bool) {
	half := c.mapWidth / 2
	mx := sx + half
	my := sy + half
	if mx < 0 || mx >= c.mapWidth || my < 0 || my >= c.mapWidth {
		return 0, false
	}
	v := c.lut[my*c.mapWidth+mx]
	if v < 0 {
		return 0, false
	}
	return int(v), true
}

// MapWidth returns the edge length of the square lookup grid this
// cache was built from.
func (c *ScanCache) MapWidth() int { return c.mapWidth }
