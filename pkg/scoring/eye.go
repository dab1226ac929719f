package scoring

import "math"

// EyeAspectRatio computes (|p1-p5| + |p2-p4|) / (2|p0-p3|) over the six landmarks
// of one eye in pixel space. Degenerate geometry yields 0.
func EyeAspectRatio(lm *LandmarkSet, idx [6]int, width, height int) float64 {
	var pts [6][2]float64
	for i, li := range idx {
		x, y, ok := lm.Pixel(li, width, height)
		if !ok {
			return 0
		}
		pts[i] = [2]float64{x, y}
	}

	v1 := distance(pts[1], pts[5])
	v2 := distance(pts[2], pts[4])
	h := distance(pts[0], pts[3])
	if h <= 0 {
		return 0
	}
	return (v1 + v2) / (2.0 * h)
}

func MeasureEyes(lm *LandmarkSet, cfg Config, width, height int) EyeMetrics {
	left := EyeAspectRatio(lm, cfg.LeftEye, width, height)
	right := EyeAspectRatio(lm, cfg.RightEye, width, height)
	return EyeMetrics{
		Left:    left,
		Right:   right,
		Average: (left + right) / 2.0,
	}
}

// EyeOpenness maps an average EAR onto [0,100] with a four band piecewise linear curve:
//
//	closed     ear <  Closed           10
//	drowsy     Closed <= ear < Drowsy  10..45
//	normal     Drowsy <= ear < Normal  45..85
//	wide_open  ear >= Normal           85..100, saturating at Wide
func EyeOpenness(ear float64, t EyeThresholds) (float64, EyeState) {
	switch {
	case ear < t.Closed:
		return 10, EyeClosed
	case ear < t.Drowsy:
		return lerp(10, 45, fraction(ear, t.Closed, t.Drowsy)), EyeDrowsy
	case ear < t.Normal:
		return lerp(45, 85, fraction(ear, t.Drowsy, t.Normal)), EyeNormal
	default:
		return lerp(85, 100, math.Min(fraction(ear, t.Normal, t.Wide), 1.0)), EyeWideOpen
	}
}

func distance(a, b [2]float64) float64 {
	return math.Hypot(a[0]-b[0], a[1]-b[1])
}

func fraction(v, lo, hi float64) float64 {
	if hi <= lo {
		return 1
	}
	return (v - lo) / (hi - lo)
}

func lerp(lo, hi, f float64) float64 {
	return lo + (hi-lo)*f
}
