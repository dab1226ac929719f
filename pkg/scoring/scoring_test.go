package scoring

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFrameSize = 1024

// eyeFace builds a mesh whose two eyes both have the given EAR. Pixel coordinates
// are integers over a 1024 frame so normalization round-trips exactly.
func eyeFace(t *testing.T, cfg Config, halfHeightPx int) *LandmarkSet {
	t.Helper()

	points := make([]Point, 478)
	place := func(idx [6]int, cx, cy int) {
		const halfWidth = 64
		px := [6][2]int{
			{cx - halfWidth, cy},
			{cx - 16, cy - halfHeightPx},
			{cx + 16, cy - halfHeightPx},
			{cx + halfWidth, cy},
			{cx + 16, cy + halfHeightPx},
			{cx - 16, cy + halfHeightPx},
		}
		for i, li := range idx {
			points[li] = Point{
				X: float64(px[i][0]) / testFrameSize,
				Y: float64(px[i][1]) / testFrameSize,
			}
		}
	}
	place(cfg.LeftEye, 640, 400)
	place(cfg.RightEye, 384, 400)

	return NewLandmarkSet(points)
}

func TestEyeAspectRatio(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()

	t.Run("ratio of vertical to horizontal distance", func(t *testing.T) {
		t.Parallel()
		lm := eyeFace(t, cfg, 16)
		assert.InDelta(t, 0.25, EyeAspectRatio(lm, cfg.LeftEye, testFrameSize, testFrameSize), 1e-12)

		eyes := MeasureEyes(lm, cfg, testFrameSize, testFrameSize)
		assert.InDelta(t, 0.25, eyes.Average, 1e-12)
		assert.InDelta(t, eyes.Left, eyes.Right, 1e-12)
	})

	t.Run("zero horizontal distance yields zero", func(t *testing.T) {
		t.Parallel()
		lm := NewLandmarkSet(make([]Point, 478))
		assert.Zero(t, EyeAspectRatio(lm, cfg.LeftEye, testFrameSize, testFrameSize))
	})

	t.Run("missing index yields zero", func(t *testing.T) {
		t.Parallel()
		lm := NewLandmarkSet(make([]Point, 10))
		assert.Zero(t, EyeAspectRatio(lm, cfg.LeftEye, testFrameSize, testFrameSize))
	})
}

func TestEyeOpenness(t *testing.T) {
	t.Parallel()
	th := DefaultConfig().EyeThresholds

	tests := []struct {
		name  string
		ear   float64
		score float64
		state EyeState
	}{
		{"closed", 0.05, 10, EyeClosed},
		{"closed threshold starts drowsy", 0.12, 10, EyeDrowsy},
		{"mid drowsy", 0.145, 27.5, EyeDrowsy},
		{"drowsy threshold starts normal", 0.17, 45, EyeNormal},
		{"mid normal", 0.195, 65, EyeNormal},
		{"normal threshold starts wide", 0.22, 85, EyeWideOpen},
		{"wide threshold", 0.30, 100, EyeWideOpen},
		{"saturates above wide", 0.45, 100, EyeWideOpen},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			score, state := EyeOpenness(tt.ear, th)
			assert.InDelta(t, tt.score, score, 1e-9)
			assert.Equal(t, tt.state, state)
		})
	}

	t.Run("continuous across band boundaries", func(t *testing.T) {
		t.Parallel()
		const eps = 1e-9
		for _, boundary := range []float64{th.Closed, th.Drowsy, th.Normal} {
			below, _ := EyeOpenness(boundary-eps, th)
			above, _ := EyeOpenness(boundary+eps, th)
			assert.InDelta(t, below, above, 1e-3, "boundary %v", boundary)
		}
	})

	t.Run("monotonic in ear", func(t *testing.T) {
		t.Parallel()
		prev := -1.0
		for ear := 0.0; ear <= 0.5; ear += 0.001 {
			score, _ := EyeOpenness(ear, th)
			require.GreaterOrEqual(t, score, prev, "ear %v", ear)
			prev = score
		}
	})
}

func TestHeadPoseScore(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig().HeadPose

	t.Run("maximal at ideal pose", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 100, HeadPoseScore(Pose{Pitch: -15}, cfg), 1e-9)
	})

	t.Run("strictly decreasing in absolute yaw", func(t *testing.T) {
		t.Parallel()
		prev := HeadPoseScore(Pose{Pitch: -15}, cfg)
		for yaw := 5.0; yaw <= 90; yaw += 5 {
			left := HeadPoseScore(Pose{Pitch: -15, Yaw: -yaw}, cfg)
			right := HeadPoseScore(Pose{Pitch: -15, Yaw: yaw}, cfg)
			assert.InDelta(t, left, right, 1e-9)
			require.Less(t, right, prev, "yaw %v", yaw)
			prev = right
		}
	})

	t.Run("bounded", func(t *testing.T) {
		t.Parallel()
		score := HeadPoseScore(Pose{Pitch: 180, Yaw: 180, Roll: 180}, cfg)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.Less(t, score, 1.0)
	})
}

func TestStability(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig().Stability
	prev := AttentionState{LastEyeAspectRatio: 0.25, LastHeadYaw: 3, LastHeadPitch: -10}

	t.Run("zero deltas score 100", func(t *testing.T) {
		t.Parallel()
		score, next := Stability(0.25, &Pose{Yaw: 3, Pitch: -10, Roll: 40}, prev, cfg)
		assert.Equal(t, 100.0, score)
		assert.Equal(t, prev, next)
	})

	t.Run("decreasing in ear delta", func(t *testing.T) {
		t.Parallel()
		last := 101.0
		for d := 0.0; d <= 0.4; d += 0.02 {
			score, _ := Stability(0.25+d, &Pose{Yaw: 3, Pitch: -10}, prev, cfg)
			if d < 0.3 {
				require.Less(t, score, last, "delta %v", d)
			}
			last = score
		}
	})

	t.Run("decreasing in head movement", func(t *testing.T) {
		t.Parallel()
		last := 101.0
		for m := 0.0; m <= 15; m++ {
			score, _ := Stability(0.25, &Pose{Yaw: 3 + m, Pitch: -10}, prev, cfg)
			require.Less(t, score, last, "movement %v", m)
			last = score
		}
	})

	t.Run("floors at 30 when both penalties cap", func(t *testing.T) {
		t.Parallel()
		score, _ := Stability(0.9, &Pose{Yaw: 90, Pitch: 60}, prev, cfg)
		assert.Equal(t, 30.0, score)
	})

	t.Run("never below zero with aggressive config", func(t *testing.T) {
		t.Parallel()
		harsh := cfg
		harsh.EARPenaltyCap = 80
		harsh.HeadPenaltyCap = 80
		score, _ := Stability(0.9, &Pose{Yaw: 90, Pitch: 60}, prev, harsh)
		assert.Equal(t, 0.0, score)
	})

	t.Run("missing pose keeps head angles", func(t *testing.T) {
		t.Parallel()
		score, next := Stability(0.2, nil, prev, cfg)
		assert.InDelta(t, 95, score, 1e-9)
		assert.Equal(t, AttentionState{LastEyeAspectRatio: 0.2, LastHeadYaw: 3, LastHeadPitch: -10}, next)
	})
}

func TestScorer(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	scorer, err := NewScorer(cfg)
	require.NoError(t, err)

	t.Run("no face", func(t *testing.T) {
		t.Parallel()
		prev := AttentionState{LastEyeAspectRatio: 0.3, LastHeadYaw: 12, LastHeadPitch: 4}
		result, next := scorer.Score(Frame{Width: 640, Height: 480}, prev)

		want := Result{Details: Details{EyeState: EyeClosed}}
		if diff := cmp.Diff(want, result); diff != "" {
			t.Fatalf("unexpected result (-want +got):\n%s", diff)
		}
		assert.Equal(t, prev, next)
	})

	t.Run("attentive frame with steady history", func(t *testing.T) {
		t.Parallel()
		prev := AttentionState{LastEyeAspectRatio: 0.25, LastHeadYaw: 0, LastHeadPitch: -15}
		frame := Frame{
			Width:     testFrameSize,
			Height:    testFrameSize,
			Landmarks: eyeFace(t, cfg, 16),
			Pose:      &Pose{Pitch: -15},
		}

		result, next := scorer.Score(frame, prev)

		want := Result{
			Score: 96,
			Details: Details{
				FacePresent:             true,
				EyeContactScore:         91,
				HeadPoseScore:           100,
				AttentionStabilityScore: 100,
				Pitch:                   -15,
				Yaw:                     0,
				EyeState:                EyeWideOpen,
			},
		}
		if diff := cmp.Diff(want, result); diff != "" {
			t.Fatalf("unexpected result (-want +got):\n%s", diff)
		}
		assert.Equal(t, prev, next)
	})

	t.Run("pose unavailable uses neutral head score", func(t *testing.T) {
		t.Parallel()
		prev := AttentionState{LastEyeAspectRatio: 0.25, LastHeadYaw: 7, LastHeadPitch: 2}
		frame := Frame{Width: testFrameSize, Height: testFrameSize, Landmarks: eyeFace(t, cfg, 16)}

		result, next := scorer.Score(frame, prev)
		assert.Equal(t, 50, result.Details.HeadPoseScore)
		assert.Equal(t, 100, result.Details.AttentionStabilityScore)
		assert.Zero(t, result.Details.Pitch)
		assert.Zero(t, result.Details.Yaw)
		// 0.2*95 + 0.3*90.625 + 0.35*50 + 0.15*100
		assert.Equal(t, 79, result.Score)
		assert.Equal(t, 7.0, next.LastHeadYaw)
		assert.Equal(t, 2.0, next.LastHeadPitch)
	})

	t.Run("idempotent for identical input state", func(t *testing.T) {
		t.Parallel()
		prev := NewAttentionState(cfg)
		frame := Frame{
			Width:     testFrameSize,
			Height:    testFrameSize,
			Landmarks: eyeFace(t, cfg, 8),
			Pose:      &Pose{Pitch: 4.26, Yaw: -22.34, Roll: 3},
		}

		first, firstNext := scorer.Score(frame, prev)
		second, secondNext := scorer.Score(frame, prev)
		assert.Equal(t, first, second)
		assert.Equal(t, firstNext, secondNext)
		assert.Equal(t, 4.3, first.Details.Pitch)
		assert.Equal(t, -22.3, first.Details.Yaw)
	})

	t.Run("scores stay bounded", func(t *testing.T) {
		t.Parallel()
		state := NewAttentionState(cfg)
		for _, half := range []int{0, 4, 8, 16, 32, 64} {
			for _, yaw := range []float64{-170, -45, 0, 45, 170} {
				frame := Frame{
					Width:     testFrameSize,
					Height:    testFrameSize,
					Landmarks: eyeFace(t, cfg, half),
					Pose:      &Pose{Yaw: yaw, Pitch: yaw / 2, Roll: -yaw},
				}
				var result Result
				result, state = scorer.Score(frame, state)
				for _, v := range []int{result.Score, result.Details.EyeContactScore,
					result.Details.HeadPoseScore, result.Details.AttentionStabilityScore} {
					require.GreaterOrEqual(t, v, 0)
					require.LessOrEqual(t, v, 100)
				}
			}
		}
	})
}

func TestScorerRescale(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Rescale = RescaleBoost
	scorer, err := NewScorer(cfg)
	require.NoError(t, err)

	assert.Equal(t, 40.0, scorer.rescale(40))
	assert.Equal(t, 50.0, scorer.rescale(50))
	assert.Greater(t, scorer.rescale(75), 75.0)
	assert.Equal(t, 100.0, scorer.rescale(100))
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"defaults", func(*Config) {}, nil},
		{"weights off", func(c *Config) { c.Weights.HeadPose = 0.5 }, ErrInvalidWeights},
		{"thresholds out of order", func(c *Config) { c.EyeThresholds.Drowsy = 0.25 }, ErrInvalidThresholds},
		{"zero sigma", func(c *Config) { c.HeadPose.SigmaRoll = 0 }, ErrInvalidSigma},
		{"unknown rescale", func(c *Config) { c.Rescale = "sigmoid" }, ErrInvalidRescale},
		{"negative eye index", func(c *Config) { c.RightEye[2] = -1 }, ErrInvalidEyeIndex},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
