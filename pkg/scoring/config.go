package scoring

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

type RescalePolicy string

const (
	RescaleNone  RescalePolicy = "none"
	RescaleBoost RescalePolicy = "boost"
)

var (
	ErrInvalidWeights    = errors.New("scoring weights must be non-negative and sum to 1")
	ErrInvalidThresholds = errors.New("eye thresholds must be positive and strictly ascending")
	ErrInvalidSigma      = errors.New("head pose sigmas must be positive")
	ErrInvalidRescale    = errors.New("unknown rescale policy")
	ErrInvalidEyeIndex   = errors.New("eye landmark indices must be non-negative")
)

type Weights struct {
	FacePresent        float64 `yaml:"face_present"`
	EyeOpenness        float64 `yaml:"eye_openness"`
	HeadPose           float64 `yaml:"head_pose"`
	AttentionStability float64 `yaml:"attention_stability"`
}

func (w Weights) sum() float64 {
	return w.FacePresent + w.EyeOpenness + w.HeadPose + w.AttentionStability
}

type EyeThresholds struct {
	Closed float64 `yaml:"closed"`
	Drowsy float64 `yaml:"drowsy"`
	Normal float64 `yaml:"normal"`
	Wide   float64 `yaml:"wide"`
}

type HeadPoseConfig struct {
	IdealYaw     float64 `yaml:"ideal_yaw"`
	IdealPitch   float64 `yaml:"ideal_pitch"`
	IdealRoll    float64 `yaml:"ideal_roll"`
	SigmaYaw     float64 `yaml:"sigma_yaw"`
	SigmaPitch   float64 `yaml:"sigma_pitch"`
	SigmaRoll    float64 `yaml:"sigma_roll"`
	WeightYaw    float64 `yaml:"weight_yaw"`
	WeightPitch  float64 `yaml:"weight_pitch"`
	WeightRoll   float64 `yaml:"weight_roll"`
	NeutralScore float64 `yaml:"neutral_score"`
}

type StabilityConfig struct {
	EARScale         float64 `yaml:"ear_scale"`
	EARPenaltyCap    float64 `yaml:"ear_penalty_cap"`
	HeadReference    float64 `yaml:"head_reference"`
	HeadExponent     float64 `yaml:"head_exponent"`
	HeadPenaltyScale float64 `yaml:"head_penalty_scale"`
	HeadPenaltyCap   float64 `yaml:"head_penalty_cap"`
}

// Config carries every tunable constant of the engagement heuristic.
type Config struct {
	Weights           Weights         `yaml:"weights"`
	EyeThresholds     EyeThresholds   `yaml:"eye_thresholds"`
	HeadPose          HeadPoseConfig  `yaml:"head_pose"`
	Stability         StabilityConfig `yaml:"stability"`
	FacePresenceScore float64         `yaml:"face_presence_score"`
	BaselineEAR       float64         `yaml:"baseline_ear"`
	LeftEye           [6]int          `yaml:"left_eye"`
	RightEye          [6]int          `yaml:"right_eye"`
	Rescale           RescalePolicy   `yaml:"rescale"`
	RescaleGamma      float64         `yaml:"rescale_gamma"`
}

func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			FacePresent:        0.20,
			EyeOpenness:        0.30,
			HeadPose:           0.35,
			AttentionStability: 0.15,
		},
		EyeThresholds: EyeThresholds{
			Closed: 0.12,
			Drowsy: 0.17,
			Normal: 0.22,
			Wide:   0.30,
		},
		HeadPose: HeadPoseConfig{
			IdealYaw:     0,
			IdealPitch:   -15,
			IdealRoll:    0,
			SigmaYaw:     25,
			SigmaPitch:   30,
			SigmaRoll:    35,
			WeightYaw:    0.50,
			WeightPitch:  0.35,
			WeightRoll:   0.15,
			NeutralScore: 50,
		},
		Stability: StabilityConfig{
			EARScale:         100,
			EARPenaltyCap:    30,
			HeadReference:    15,
			HeadExponent:     1.5,
			HeadPenaltyScale: 40,
			HeadPenaltyCap:   40,
		},
		FacePresenceScore: 95,
		BaselineEAR:       0.25,
		LeftEye:           [6]int{362, 385, 387, 263, 373, 380},
		RightEye:          [6]int{33, 160, 158, 133, 153, 144},
		Rescale:           RescaleNone,
		RescaleGamma:      0.8,
	}
}

// LoadConfig overlays the YAML file at path on top of DefaultConfig.
// An empty path yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open scoring config: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode scoring config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	w := c.Weights
	if w.FacePresent < 0 || w.EyeOpenness < 0 || w.HeadPose < 0 || w.AttentionStability < 0 ||
		math.Abs(w.sum()-1) > 1e-6 {
		return fmt.Errorf("%w: got %.4f", ErrInvalidWeights, w.sum())
	}

	t := c.EyeThresholds
	if !(t.Closed > 0 && t.Closed < t.Drowsy && t.Drowsy < t.Normal && t.Normal < t.Wide) {
		return fmt.Errorf("%w: %+v", ErrInvalidThresholds, t)
	}

	hp := c.HeadPose
	if hp.SigmaYaw <= 0 || hp.SigmaPitch <= 0 || hp.SigmaRoll <= 0 {
		return ErrInvalidSigma
	}

	if c.Stability.HeadReference <= 0 {
		return fmt.Errorf("stability head reference must be positive, got %v", c.Stability.HeadReference)
	}

	for _, idx := range append(c.LeftEye[:], c.RightEye[:]...) {
		if idx < 0 {
			return ErrInvalidEyeIndex
		}
	}

	switch c.Rescale {
	case RescaleNone, "":
	case RescaleBoost:
		if c.RescaleGamma <= 0 {
			return fmt.Errorf("%w: boost needs a positive gamma", ErrInvalidRescale)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRescale, c.Rescale)
	}

	return nil
}
