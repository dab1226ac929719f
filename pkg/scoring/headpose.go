package scoring

import "math"

// HeadPoseScore rates how close a pose is to an attentive screen-facing posture.
// Each angle contributes a Gaussian closeness term around its ideal value.
func HeadPoseScore(p Pose, cfg HeadPoseConfig) float64 {
	yawTerm := gaussian(p.Yaw-cfg.IdealYaw, cfg.SigmaYaw)
	pitchTerm := gaussian(p.Pitch-cfg.IdealPitch, cfg.SigmaPitch)
	rollTerm := gaussian(p.Roll-cfg.IdealRoll, cfg.SigmaRoll)

	score := 100 * (cfg.WeightYaw*yawTerm + cfg.WeightPitch*pitchTerm + cfg.WeightRoll*rollTerm)
	return clamp(score, 0, 100)
}

func gaussian(delta, sigma float64) float64 {
	return math.Exp(-(delta * delta) / (2 * sigma * sigma))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
