package scoring

// Point is a normalized landmark coordinate as produced by the face mesh.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// LandmarkSet holds one face's landmarks, indexed by the provider topology.
type LandmarkSet struct {
	Points []Point `json:"points"`
}

func NewLandmarkSet(points []Point) *LandmarkSet {
	return &LandmarkSet{Points: points}
}

func (l *LandmarkSet) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Points)
}

func (l *LandmarkSet) At(i int) (Point, bool) {
	if l == nil || i < 0 || i >= len(l.Points) {
		return Point{}, false
	}
	return l.Points[i], true
}

// Pixel returns landmark i scaled to integer pixel coordinates of a w x h frame.
func (l *LandmarkSet) Pixel(i, w, h int) (float64, float64, bool) {
	p, ok := l.At(i)
	if !ok {
		return 0, 0, false
	}
	return float64(int(p.X * float64(w))), float64(int(p.Y * float64(h))), true
}

type Pose struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

// Frame is one webcam frame after the external collaborators ran on it.
// A nil Landmarks means no face was found, a nil Pose means the pose solve failed.
type Frame struct {
	Width     int
	Height    int
	Landmarks *LandmarkSet
	Pose      *Pose
}

type EyeMetrics struct {
	Left    float64 `json:"left"`
	Right   float64 `json:"right"`
	Average float64 `json:"average"`
}

type EyeState string

const (
	EyeClosed   EyeState = "closed"
	EyeDrowsy   EyeState = "drowsy"
	EyeNormal   EyeState = "normal"
	EyeWideOpen EyeState = "wide_open"
)

// AttentionState is the cross-frame memory of one video stream.
type AttentionState struct {
	LastEyeAspectRatio float64 `json:"last_eye_aspect_ratio"`
	LastHeadYaw        float64 `json:"last_head_yaw"`
	LastHeadPitch      float64 `json:"last_head_pitch"`
}

// NewAttentionState returns the neutral baseline a fresh stream starts from.
func NewAttentionState(cfg Config) AttentionState {
	return AttentionState{
		LastEyeAspectRatio: cfg.BaselineEAR,
	}
}

type Details struct {
	FacePresent             bool     `json:"face_present"`
	EyeContactScore         int      `json:"eye_contact_score"`
	HeadPoseScore           int      `json:"head_pose_score"`
	AttentionStabilityScore int      `json:"attention_stability_score"`
	Pitch                   float64  `json:"pitch"`
	Yaw                     float64  `json:"yaw"`
	EyeState                EyeState `json:"eye_state"`
}

type Result struct {
	Score   int     `json:"score"`
	Details Details `json:"details"`
}

// NoFaceResult is the fixed outcome for a frame without a detectable face.
func NoFaceResult() Result {
	return Result{
		Score: 0,
		Details: Details{
			FacePresent: false,
			EyeState:    EyeClosed,
		},
	}
}
