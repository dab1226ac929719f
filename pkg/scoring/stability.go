package scoring

import "math"

// Stability scores frame-to-frame smoothness against the previous state and returns
// the state to carry into the next frame. Head angles are only carried forward when
// this frame had a pose; without one the head delta counts as zero.
func Stability(ear float64, pose *Pose, prev AttentionState, cfg StabilityConfig) (float64, AttentionState) {
	earPenalty := math.Min(math.Abs(ear-prev.LastEyeAspectRatio)*cfg.EARScale, cfg.EARPenaltyCap)

	var movement float64
	if pose != nil {
		movement = math.Hypot(pose.Yaw-prev.LastHeadYaw, pose.Pitch-prev.LastHeadPitch)
	}
	headPenalty := math.Min(math.Pow(movement/cfg.HeadReference, cfg.HeadExponent)*cfg.HeadPenaltyScale, cfg.HeadPenaltyCap)

	next := prev
	next.LastEyeAspectRatio = ear
	if pose != nil {
		next.LastHeadYaw = pose.Yaw
		next.LastHeadPitch = pose.Pitch
	}

	return clamp(100-earPenalty-headPenalty, 0, 100), next
}
