package headpose

import (
	"errors"
	"fmt"
	"math"

	"classlens/pkg/scoring"

	"gonum.org/v1/gonum/mat"
)

var ErrPoseUnavailable = errors.New("head pose unavailable")

type Estimator interface {
	Estimate(lm *scoring.LandmarkSet, width, height int) (*scoring.Pose, error)
}

// ModelPoint pairs a mesh index with its position on a generic 3D head, in
// millimetre-ish units with x toward image right, y up and z toward the camera.
type ModelPoint struct {
	Index int
	X     float64
	Y     float64
	Z     float64
}

// DefaultModel is the six point face: nose tip, chin, outer eye corners, mouth corners.
var DefaultModel = []ModelPoint{
	{Index: 1, X: 0, Y: 0, Z: 0},
	{Index: 152, X: 0, Y: -330, Z: -65},
	{Index: 263, X: 225, Y: 170, Z: -135},
	{Index: 33, X: -225, Y: 170, Z: -135},
	{Index: 287, X: 150, Y: -150, Z: -125},
	{Index: 57, X: -150, Y: -150, Z: -125},
}

const (
	maxIterations = 50
	tolerance     = 1e-12
)

// Geometric solves the pose from 2D-3D correspondences with a pinhole camera
// whose principal point is the image centre, whose focal length is the frame
// width in pixels and whose lens has no distortion. It starts from a scaled
// orthographic solve and refines it for perspective (POSIT).
type Geometric struct {
	model   []ModelPoint
	offsets *mat.Dense
}

func NewGeometric(model []ModelPoint) (*Geometric, error) {
	if len(model) < 4 {
		return nil, fmt.Errorf("head model needs at least 4 points, got %d", len(model))
	}

	// Offsets are taken from the first point, which anchors the head in depth.
	ref := model[0]
	offsets := mat.NewDense(len(model)-1, 3, nil)
	for i, p := range model[1:] {
		offsets.SetRow(i, []float64{p.X - ref.X, p.Y - ref.Y, p.Z - ref.Z})
	}

	var svd mat.SVD
	if ok := svd.Factorize(offsets, mat.SVDNone); !ok {
		return nil, errors.New("head model svd did not converge")
	}
	if vals := svd.Values(nil); vals[2] < 1e-9*vals[0] {
		return nil, errors.New("head model points are coplanar")
	}

	return &Geometric{model: model, offsets: offsets}, nil
}

func (g *Geometric) Estimate(lm *scoring.LandmarkSet, width, height int) (*scoring.Pose, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid frame size %dx%d", ErrPoseUnavailable, width, height)
	}

	n := len(g.model)
	u := make([]float64, n)
	v := make([]float64, n)
	cx, cy := float64(width)/2, float64(height)/2
	focal := float64(width)

	for i, p := range g.model {
		pt, ok := lm.At(p.Index)
		if !ok {
			return nil, fmt.Errorf("%w: landmark %d missing", ErrPoseUnavailable, p.Index)
		}
		u[i] = pt.X*float64(width) - cx
		v[i] = cy - pt.Y*float64(height)
	}

	// eps[i] is the relative depth of point i behind the reference point. Zero
	// everywhere is the scaled orthographic camera.
	eps := make([]float64, n)
	xp := mat.NewVecDense(n-1, nil)
	yp := mat.NewVecDense(n-1, nil)

	var rot *mat.Dense
	for iter := 0; iter < maxIterations; iter++ {
		for i := 1; i < n; i++ {
			xp.SetVec(i-1, u[i]*(1+eps[i])-u[0])
			yp.SetVec(i-1, v[i]*(1+eps[i])-v[0])
		}

		var r1, r2 mat.VecDense
		if err := r1.SolveVec(g.offsets, xp); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPoseUnavailable, err)
		}
		if err := r2.SolveVec(g.offsets, yp); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPoseUnavailable, err)
		}

		s1, s2 := mat.Norm(&r1, 2), mat.Norm(&r2, 2)
		if s1 < 1e-9 || s2 < 1e-9 {
			return nil, fmt.Errorf("%w: degenerate projection", ErrPoseUnavailable)
		}
		r1.ScaleVec(1/s1, &r1)
		r2.ScaleVec(1/s2, &r2)
		r3 := cross(r1.RawVector().Data, r2.RawVector().Data)

		rough := mat.NewDense(3, 3, nil)
		rough.SetRow(0, r1.RawVector().Data)
		rough.SetRow(1, r2.RawVector().Data)
		rough.SetRow(2, r3)

		var err error
		rot, err = nearestRotation(rough)
		if err != nil {
			return nil, err
		}

		// The scale is focal / depth of the reference point.
		depth := focal / ((s1 + s2) / 2)
		var change float64
		for i := 1; i < n; i++ {
			toward := rot.At(2, 0)*g.offsets.At(i-1, 0) + rot.At(2, 1)*g.offsets.At(i-1, 1) + rot.At(2, 2)*g.offsets.At(i-1, 2)
			next := -toward / depth
			change = math.Max(change, math.Abs(next-eps[i]))
			eps[i] = next
		}
		if change < tolerance {
			break
		}
	}

	return eulerDegrees(rot), nil
}

// nearestRotation projects m onto SO(3) in the Frobenius sense.
func nearestRotation(m *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDFull); !ok {
		return nil, fmt.Errorf("%w: svd did not converge", ErrPoseUnavailable)
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var rot mat.Dense
	rot.Mul(&u, v.T())
	if mat.Det(&rot) < 0 {
		for i := 0; i < 3; i++ {
			u.Set(i, 2, -u.At(i, 2))
		}
		rot.Mul(&u, v.T())
	}
	return &rot, nil
}

// eulerDegrees decomposes R = Rz(roll) Ry(yaw) Rx(-pitch). Pitch is reported
// negative when the face tilts down toward the desk.
func eulerDegrees(r mat.Matrix) *scoring.Pose {
	pitch := -math.Atan2(r.At(2, 1), r.At(2, 2))
	yaw := math.Atan2(-r.At(2, 0), math.Hypot(r.At(2, 1), r.At(2, 2)))
	roll := math.Atan2(r.At(1, 0), r.At(0, 0))

	return &scoring.Pose{
		Pitch: pitch * 180 / math.Pi,
		Yaw:   yaw * 180 / math.Pi,
		Roll:  roll * 180 / math.Pi,
	}
}

func cross(a, b []float64) []float64 {
	return []float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
