package server

import (
	"time"

	"github.com/rascol/lpximage/lpx"
)

// skipController tracks the adaptive frame-skip rate described in
// spec §4.F: every processed (non-skipped) frame feeds its processing
// duration and a motion estimate back in; the rate moves by one step
// per decision, biased down when motion is high and up when
// processing is too slow.
type skipController struct {
	min, max, current int
	targetDuration     time.Duration
	motionThreshold    float64
	prevGray           []uint8
}

func newSkipController(min, max int, targetDuration time.Duration, motionThreshold float64) *skipController {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	return &skipController{min: min, max: max, current: min, targetDuration: targetDuration, motionThreshold: motionThreshold}
}

// shouldSkip reports whether the frame numbered counter (a running
// count kept by the caller) should be skipped without consuming a
// decision slot, so that of every currentSkipRate+1 frames exactly one
// is processed.
func (s *skipController) shouldSkip(counter int) bool {
	return s.current > 0 && counter%(s.current+1) != 0
}

// observe feeds one processed frame's measurements back into the
// controller and adjusts currentSkipRate by at most one step.
func (s *skipController) observe(raster *lpx.Raster, elapsed time.Duration) {
	motion := s.motionEstimate(raster)
	switch {
	case elapsed > s.targetDuration && s.current < s.max:
		s.current++
	case motion > s.motionThreshold && s.current > s.min:
		s.current--
	}
}

// motionEstimate is the mean absolute difference of grayscale values
// versus the previous observed frame.
func (s *skipController) motionEstimate(raster *lpx.Raster) float64 {
	gray := toGrayscale(raster)
	defer func() { s.prevGray = gray }()
	if s.prevGray == nil || len(s.prevGray) != len(gray) {
		return 0
	}
	var sum float64
	for i := range gray {
		d := int(gray[i]) - int(s.prevGray[i])
		if d < 0 {
			d = -d
		}
		sum += float64(d)
	}
	return sum / float64(len(gray))
}

func toGrayscale(raster *lpx.Raster) []uint8 {
	out := make([]uint8, raster.Width*raster.Height)
	for y := 0; y < raster.Height; y++ {
		row := y * raster.Stride
		for x := 0; x < raster.Width; x++ {
			i := row + x*4
			r, g, b := raster.Pix[i], raster.Pix[i+1], raster.Pix[i+2]
			out[y*raster.Width+x] = uint8((299*int(r) + 587*int(g) + 114*int(b)) / 1000)
		}
	}
	return out
}

func (s *skipController) rate() int { return s.current }
