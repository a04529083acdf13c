package main

import (
	"github.com/ayusman/posecoach/internal/advisor"
	"github.com/ayusman/posecoach/internal/evaluator"
)

// Config is read from the "config" object of the plugin manifest.
type Config struct {
	// MaxAvgDistance rejects good verdicts whose average distance exceeds
	// it. Zero disables the check.
	MaxAvgDistance float64 `json:"max_avg_distance"`
	// RequireLowerBody rejects frames where hips, knees or ankles are hidden.
	RequireLowerBody bool `json:"require_lower_body"`
}

func defaultConfig() Config {
	return Config{MaxAvgDistance: 0.25}
}

const (
	reasonTooClose      = "step back from the camera"
	reasonTooFar        = "move closer to the camera"
	reasonLowerBody     = "make sure your legs are in view"
	reasonOverThreshold = "adjust your position"
)

// advise checks framing first, then the distance ceiling, and otherwise
// confirms the evaluator's verdict with its own reason.
func advise(cfg Config, in advisor.Input) advisor.Verdict {
	switch in.Metrics.DistanceQuality {
	case evaluator.QualityNear:
		return advisor.Verdict{IsGood: false, Reason: reasonTooClose}
	case evaluator.QualityFar:
		return advisor.Verdict{IsGood: false, Reason: reasonTooFar}
	}

	if cfg.RequireLowerBody && !in.Metrics.VisibleLowerBody {
		return advisor.Verdict{IsGood: false, Reason: reasonLowerBody}
	}

	if cfg.MaxAvgDistance > 0 && in.Metrics.AvgDistance != nil && *in.Metrics.AvgDistance > cfg.MaxAvgDistance {
		return advisor.Verdict{IsGood: false, Reason: reasonOverThreshold}
	}

	return advisor.Verdict{IsGood: in.Feedback == evaluator.Good}
}
