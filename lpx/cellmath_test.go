package lpx

import "testing"

func TestCellIndexOriginIsZero(t *testing.T) {
	if got := CellIndex(0, 0, 63); got != 0 {
		t.Fatalf("CellIndex(0,0,63) = %d, want 0", got)
	}
}

func TestCellIndexDeterministic(t *testing.T) {
	pts := [][2]float64{{3, 4}, {-5, 2}, {10, -10}, {0.5, 0.5}, {-1, -1}}
	for _, p := range pts {
		a := CellIndex(p[0], p[1], 63)
		b := CellIndex(p[0], p[1], 63)
		if a != b {
			t.Fatalf("CellIndex(%v) not deterministic: %d vs %d", p, a, b)
		}
	}
}

// TestCellIndexAgreesWithLUT is testable property 2: for all (x,y)
// inside the scan-map range, the closed-form math matches the
// pixel-to-cell LUT built from the same generating function.
func TestCellIndexAgreesWithLUT(t *testing.T) {
	const mapWidth = 41
	const spiralPer = 63
	handle := synthHandle(mapWidth, spiralPer)
	half := mapWidth / 2

	for y := -half; y <= half; y++ {
		for x := -half; x <= half; x++ {
			want := CellIndex(float64(x), float64(y), spiralPer)
			got, ok := handle.Cache().Lookup(x, y)
			if !ok {
				t.Fatalf("LUT miss at (%d,%d), want cell %d", x, y, want)
			}
			if got != want {
				t.Fatalf("LUT/closed-form disagree at (%d,%d): lut=%d closed-form=%d", x, y, got, want)
			}
		}
	}
}

func TestBoundingRadiusGrowsWithLength(t *testing.T) {
	r1 := boundingRadius(100, 63)
	r2 := boundingRadius(200, 63)
	if r2 <= r1 {
		t.Fatalf("expected boundingRadius to grow with cell count: r1=%f r2=%f", r1, r2)
	}
}
