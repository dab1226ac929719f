package scoring

import "math"

type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

func (s *Scorer) Config() Config {
	return s.cfg
}

// Score composes the engagement result for one frame. It never mutates prev; the
// state for the next frame of the same stream is returned alongside the result.
// Frames without a face leave the state untouched.
func (s *Scorer) Score(f Frame, prev AttentionState) (Result, AttentionState) {
	if f.Landmarks == nil || f.Landmarks.Len() == 0 {
		return NoFaceResult(), prev
	}

	eyes := MeasureEyes(f.Landmarks, s.cfg, f.Width, f.Height)
	eyeScore, eyeState := EyeOpenness(eyes.Average, s.cfg.EyeThresholds)

	headScore := s.cfg.HeadPose.NeutralScore
	var pitch, yaw float64
	if f.Pose != nil {
		headScore = HeadPoseScore(*f.Pose, s.cfg.HeadPose)
		pitch, yaw = f.Pose.Pitch, f.Pose.Yaw
	}

	stability, next := Stability(eyes.Average, f.Pose, prev, s.cfg.Stability)

	w := s.cfg.Weights
	composite := w.FacePresent*s.cfg.FacePresenceScore +
		w.EyeOpenness*eyeScore +
		w.HeadPose*headScore +
		w.AttentionStability*stability
	composite = s.rescale(clamp(composite, 0, 100))

	return Result{
		Score: roundScore(composite),
		Details: Details{
			FacePresent:             true,
			EyeContactScore:         roundScore(eyeScore),
			HeadPoseScore:           roundScore(headScore),
			AttentionStabilityScore: roundScore(stability),
			Pitch:                   roundTenth(pitch),
			Yaw:                     roundTenth(yaw),
			EyeState:                eyeState,
		},
	}, next
}

func (s *Scorer) rescale(score float64) float64 {
	if s.cfg.Rescale != RescaleBoost || score <= 50 {
		return score
	}
	return clamp(50+50*math.Pow((score-50)/50, s.cfg.RescaleGamma), 0, 100)
}

func roundScore(v float64) int {
	return int(math.RoundToEven(clamp(v, 0, 100)))
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
