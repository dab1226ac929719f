package landmark

import (
	"context"
	"errors"
	"fmt"

	"classlens/pkg/scoring"
)

// MinPoints is the size of the face mesh topology the scoring indices address.
const MinPoints = 468

var (
	ErrUnavailable = errors.New("landmark provider unavailable")
	ErrRejected    = errors.New("landmark provider rejected frame")
	ErrTopology    = errors.New("landmark set does not match face mesh topology")
)

// Detection is one provider answer. Nil Landmarks means no face was found, which
// is a normal outcome and not an error.
type Detection struct {
	Landmarks *scoring.LandmarkSet
	Pose      *scoring.Pose
}

type Provider interface {
	Detect(ctx context.Context, image []byte) (*Detection, error)
	Health(ctx context.Context) error
}

type detectRequest struct {
	Image string `json:"image"`
}

type poseResponse struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

type detectResponse struct {
	FacePresent bool          `json:"face_present"`
	Landmarks   [][]float64   `json:"landmarks"`
	Pose        *poseResponse `json:"pose"`
	Error       string        `json:"error,omitempty"`
}

func (r detectResponse) toDetection() (*Detection, error) {
	if !r.FacePresent {
		return &Detection{}, nil
	}
	if len(r.Landmarks) < MinPoints {
		return nil, fmt.Errorf("%w: got %d points, need %d", ErrTopology, len(r.Landmarks), MinPoints)
	}

	points := make([]scoring.Point, len(r.Landmarks))
	for i, p := range r.Landmarks {
		switch len(p) {
		case 2:
			points[i] = scoring.Point{X: p[0], Y: p[1]}
		case 3:
			points[i] = scoring.Point{X: p[0], Y: p[1], Z: p[2]}
		default:
			return nil, fmt.Errorf("%w: point %d has %d coordinates", ErrTopology, i, len(p))
		}
	}

	d := &Detection{Landmarks: scoring.NewLandmarkSet(points)}
	if r.Pose != nil {
		d.Pose = &scoring.Pose{Pitch: r.Pose.Pitch, Yaw: r.Pose.Yaw, Roll: r.Pose.Roll}
	}
	return d, nil
}
