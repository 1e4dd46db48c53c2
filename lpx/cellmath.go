// cellmath.go - closed-form hexagonal log-polar cell-index derivation
//
// This is the numeric heart of the transform: given a point (x,y)
// relative to the scan center and a spiral period, it returns the
// same cell index a pixel-to-cell LUT built from ScanTables would
// return, without ever touching a table. The epsilons below are not
// tuning knobs - they bias which side of a half-cell boundary a pixel
// exactly on the seam falls on, and must stay bit-identical to the
// ones used by whatever built the ScanTables, so that the LUT
// scancache.go expands from them agrees with this function.

package lpx

import "math"

const (
	// r0 is the radius to cell zero in the hex spiral construction.
	r0 = 0.455
	// svA is the hex spiral construction constant, pi*sqrt(3).
	svA = math.Pi * 1.7320508075688772

	// cellEpsilon absorbs round-off in the per-revolution angle so a
	// pixel landing exactly on the last half-cell of a revolution
	// doesn't alias into the next revolution.
	cellEpsilon = 1e-8
	// halfCellBias nudges the lower half-cell edge to be inclusive.
	halfCellBias = 1e-7
)

// CellIndex returns the cell index a pixel at offset (x,y) from the
// scan center maps to, for a table built with the given spiral
// period. It is deterministic and side-effect free: the same (x,y,P)
// always yields the same result regardless of caller or goroutine.
func CellIndex(x, y float64, spiralPer float64) int {
	if x == 0 && y == 0 {
		return 0
	}

	p := math.Floor(spiralPer + 0.5)
	pitch := 1.0 / p
	pitchAng := 2 * math.Pi * pitch * (1 - cellEpsilon)
	k := svA*pitch + 1

	r := math.Hypot(x, y)
	theta := math.Atan2(y, x)
	if theta < 0 {
		theta += 2 * math.Pi
	}

	arg := theta / pitchAng
	j := 2*arg - halfCellBias

	iPer := math.Floor(((4 * math.Pi * math.Log(r/r0) / math.Log(k)) / pitchAng - j) * pitch / 2)

	iCell2 := iPer*2*p + math.Floor(j)
	iCell := math.Floor(iCell2 / 2)

	absAng := 0.5 * (iPer*2*p + j) * pitchAng
	r1 := r0 * math.Pow(k, absAng/(2*math.Pi))
	s2 := (r1*k - r1) / 3

	dr := r - r1
	da := absAng - 0.5*iCell2*pitchAng

	floorP := math.Floor(p)
	odd := math.Mod(iCell2, 2) != 0

	switch {
	case dr < s2:
		return int(iCell)
	case dr < 2*s2:
		w := math.Pi * pitch
		b := w * (dr - s2) / s2
		if odd {
			if da >= w-b {
				return int(iCell + floorP + 1)
			}
			return int(iCell)
		}
		if da < b {
			return int(iCell + floorP)
		}
		return int(iCell)
	default:
		if odd {
			return int(iCell + floorP + 1)
		}
		return int(iCell + floorP)
	}
}

// boundingRadius returns the closed-form radius of the scan rectangle
// that encloses cells [0, length) for a table with the given spiral
// period: R = r0 * k^(length/P).
func boundingRadius(length int, spiralPer float64) float64 {
	p := math.Floor(spiralPer + 0.5)
	pitch := 1.0 / p
	k := svA*pitch + 1
	return r0 * math.Pow(k, float64(length)/spiralPer)
}
