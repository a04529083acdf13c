// Package advisor lets an external strategy revise a verdict after the
// evaluator has produced it. Advisors only see the metrics and may only
// change the feedback and reason.
package advisor

import (
	"context"
	"errors"

	"github.com/ayusman/posecoach/internal/evaluator"
)

// ErrNoVerdict is returned when an advisor answers without a usable verdict.
var ErrNoVerdict = errors.New("advisor returned no verdict")

// ErrNotApplicable is returned by an advisor that does not handle the input's
// condition. The verdict is kept and the miss is not a failure.
var ErrNotApplicable = errors.New("advisor does not handle this condition")

// Metrics is the summary of a result an advisor decides on.
type Metrics struct {
	AvgDistance      *float64                  `json:"avg_distance"`
	MaxDistance      *float64                  `json:"max_distance"`
	DistanceQuality  evaluator.DistanceQuality `json:"distance_quality,omitempty"`
	VisibleLowerBody bool                      `json:"visible_lower_body"`
	PoseSize         *float64                  `json:"pose_size"`
}

// Input is what an advisor is asked about.
type Input struct {
	Condition string             `json:"condition,omitempty"`
	Feedback  evaluator.Feedback `json:"feedback"`
	Reason    string             `json:"reason"`
	Metrics   Metrics            `json:"metrics"`
}

// NewInput summarizes a result for an advisor.
func NewInput(r evaluator.Result) Input {
	return Input{
		Condition: r.Condition,
		Feedback:  r.Feedback,
		Reason:    r.Reason,
		Metrics: Metrics{
			AvgDistance:      r.Metrics.AvgDistance,
			MaxDistance:      r.Metrics.MaxDistance,
			DistanceQuality:  r.DistanceQuality,
			VisibleLowerBody: r.Metrics.VisibleLowerBody,
			PoseSize:         r.Metrics.TorsoDistance,
		},
	}
}

// Verdict is an advisor's answer. An empty Reason keeps the evaluator's reason.
type Verdict struct {
	IsGood bool   `json:"is_good"`
	Reason string `json:"reason"`
}

// Advisor decides whether a measured movement is good.
type Advisor interface {
	Advise(ctx context.Context, in Input) (Verdict, error)
}

// Func adapts a function to the Advisor interface.
type Func func(ctx context.Context, in Input) (Verdict, error)

// Advise calls f.
func (f Func) Advise(ctx context.Context, in Input) (Verdict, error) {
	return f(ctx, in)
}

// Refine asks a for a verdict on r and applies it. Results without an
// evaluation are returned unchanged, as is r when a is nil or fails; the error
// is returned for logging only.
func Refine(ctx context.Context, a Advisor, r evaluator.Result) (evaluator.Result, error) {
	if a == nil || r.Feedback == evaluator.NoEvaluation {
		return r, nil
	}

	v, err := a.Advise(ctx, NewInput(r))
	if err != nil {
		return r, err
	}

	if v.IsGood {
		r.Feedback = evaluator.Good
	} else {
		r.Feedback = evaluator.Bad
	}
	if v.Reason != "" {
		r.Reason = v.Reason
	}
	r.Finalize()
	return r, nil
}
