package lpx

// buildSyntheticTables constructs a small, internally-consistent
// ScanTables purely from the closed-form cell-index math, so the LUT
// it produces is guaranteed to agree with CellIndex (testable
// property 2) by construction. mapWidth must be odd so the map has a
// true center pixel. Cell 0 is pinned to the fovea and maps 1:1 to
// pixel offset (0,0), matching CellIndex(0,0,_) == 0.
func buildSyntheticTables(mapWidth int, spiralPer float32) *ScanTables {
	half := mapWidth / 2
	raw := make([]int32, mapWidth*mapWidth)
	maxCell := int32(0)
	for y := -half; y <= half; y++ {
		for x := -half; x <= half; x++ {
			idx := int32(CellIndex(float64(x), float64(y), float64(spiralPer)))
			raw[(y+half)*mapWidth+(x+half)] = idx
			if idx > maxCell {
				maxCell = idx
			}
		}
	}

	var outerIdx, outerCell []int32
	for i := 0; i < len(raw); i++ {
		if i == 0 || raw[i] != raw[i-1] {
			outerIdx = append(outerIdx, int32(i))
			outerCell = append(outerCell, raw[i])
		}
	}

	return &ScanTables{
		mapWidth:          mapWidth,
		spiralPer:         spiralPer,
		length:            len(outerIdx),
		innerLength:       1,
		lastFoveaIndex:    0,
		lastCellIndex:     int(maxCell),
		outerPixelIndex:   outerIdx,
		outerPixelCellIdx: outerCell,
		innerCells:        []Point{{X: 0, Y: 0}},
		initialized:       true,
	}
}

func synthHandle(mapWidth int, spiralPer float32) *TableHandle {
	st := buildSyntheticTables(mapWidth, spiralPer)
	cache, err := NewScanCache(st)
	if err != nil {
		panic(err)
	}
	h := &TableHandle{tables: st, cache: cache}
	h.refs.Store(1)
	return h
}
