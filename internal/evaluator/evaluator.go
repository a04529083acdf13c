// Package evaluator turns user keypoints, a condition label and an optional
// reference motion into a three-way posture verdict.
package evaluator

import (
	"math"

	"github.com/ayusman/posecoach/internal/motion"
	"github.com/ayusman/posecoach/internal/pose"
)

// Feedback is the verdict tag of an evaluation.
type Feedback string

const (
	Good         Feedback = "good"
	Bad          Feedback = "bad"
	NoEvaluation Feedback = "no_evaluation"
)

// Reasons reported with a verdict.
const (
	ReasonInsufficientData = "insufficient data"
	ReasonIncompleteFrame  = "incomplete landmarks"
	ReasonNoSequenceMatch  = "could not compare with the reference sequence"
	ReasonNoReferenceMatch = "could not compare with the reference"
	ReasonWithinParameters = "posture within expected parameters"
	ReasonAdjustPosition   = "adjust your position"
	ReasonCorrectPosture   = "correct posture"
	ReasonWellDone         = "well done"
	ReasonMovementDetected = "movement detected correctly"
	ReasonGoodMovement     = "good movement"
)

// DefaultTolerance is used when a request carries no tolerance.
const DefaultTolerance = 1.0

const confidenceSaturation = 0.1

// Metrics are the measurements behind a verdict. Values that could not be
// computed are nil and serialize as null.
type Metrics struct {
	AvgDistance *float64      `json:"avg_distance"`
	MaxDistance *float64      `json:"max_distance"`
	PathLength  int           `json:"path_length,omitempty"`
	TotalCost   *float64      `json:"total_cost,omitempty"`
	Method      motion.Method `json:"method,omitempty"`

	TorsoDistance    *float64 `json:"torso_distance"`
	VisibleLowerBody bool     `json:"visible_lower_body"`
	LowerBodySpan    *float64 `json:"lower_body_span"`
}

// Result is the outcome of one evaluation.
type Result struct {
	Feedback        Feedback        `json:"feedback"`
	Reason          string          `json:"reason"`
	Condition       string          `json:"condition,omitempty"`
	Metrics         Metrics         `json:"metrics"`
	DistanceStatus  DistanceStatus  `json:"distance_status,omitempty"`
	DistanceQuality DistanceQuality `json:"distance_quality,omitempty"`
	IsGood          bool            `json:"is_good"`
	Confidence      *float64        `json:"confidence"`
}

// Finalize derives IsGood and Confidence from the verdict and metrics. It is
// called again after an advisor overrides the feedback.
func (r *Result) Finalize() {
	r.IsGood = r.Feedback == Good
	r.Confidence = nil
	if r.Metrics.AvgDistance != nil {
		r.Confidence = floatPtr(Confidence(*r.Metrics.AvgDistance))
	}
}

// Confidence maps an average distance to [0, 1]: 1 for a perfect match,
// approaching 0 as the distance grows.
func Confidence(avg float64) float64 {
	c := 1 - avg/(avg+confidenceSaturation)
	return math.Max(0, math.Min(1, c))
}

// Request carries everything needed for one evaluation.
type Request struct {
	// Keypoints is the latest user frame.
	Keypoints pose.Landmarks
	// Condition is the classifier label for the user frame.
	Condition string
	// History is the recent user buffer, oldest first. It normally ends with Keypoints.
	History []pose.Landmarks
	// Reference is nil when no reference motion is loaded.
	Reference *motion.Reference
	// Index is the synchronized reference frame index.
	Index int
	// Tolerance scales every distance threshold; <= 0 means DefaultTolerance.
	Tolerance float64
}

// Evaluate rates the user frame. It never fails: missing input, unusable
// frames and empty comparisons yield a NoEvaluation result with a reason.
func Evaluate(req Request) Result {
	var r Result
	switch {
	case len(req.Keypoints) == 0 || req.Condition == "":
		r = Result{Feedback: NoEvaluation, Reason: ReasonInsufficientData}
	case req.Reference.IsSequence() && len(req.History) > 1:
		r = evaluateSequence(req)
	case req.Reference.Len() > 0:
		r = evaluateFrame(req)
	default:
		r = evaluateHeuristic(req.Keypoints, req.Condition)
	}

	r.Condition = req.Condition
	if len(req.Keypoints) > 0 {
		AnalyzeFraming(req.Keypoints).apply(&r)
	}
	r.Finalize()
	return r
}

func tolerance(t float64) float64 {
	if t <= 0 {
		return DefaultTolerance
	}
	return t
}

func evaluateSequence(req Request) Result {
	window := req.Reference.Window(req.Index, len(req.History))
	al := motion.DTW(req.History, window, motion.MeanDistance)
	if !al.Comparable() || math.IsInf(al.AvgDistance, 0) || math.IsNaN(al.AvgDistance) {
		return Result{Feedback: NoEvaluation, Reason: ReasonNoSequenceMatch}
	}

	fb, reason := SequenceThresholds.Classify(al.AvgDistance, al.MaxDistance, tolerance(req.Tolerance))
	m := Metrics{
		AvgDistance: floatPtr(al.AvgDistance),
		MaxDistance: floatPtr(al.MaxDistance),
		PathLength:  al.PathLength,
	}
	if !math.IsInf(al.TotalCost, 0) {
		m.TotalCost = floatPtr(al.TotalCost)
	}
	return Result{Feedback: fb, Reason: reason, Metrics: m}
}

func evaluateFrame(req Request) Result {
	idx := req.Index
	if !req.Reference.IsSequence() {
		idx = 0
	}
	ref := req.Reference.FrameAt(idx)

	user := req.Keypoints
	if len(req.History) > 0 {
		user = motion.Smooth(req.History)
	}

	d := motion.Distance(user, ref)
	avg, okAvg := d.Mean()
	mx, okMax := d.Max()
	if !okAvg || !okMax {
		return Result{
			Feedback: NoEvaluation,
			Reason:   ReasonNoReferenceMatch,
			Metrics:  Metrics{Method: d.Method},
		}
	}

	fb, reason := PoseThresholds.Classify(avg, mx, tolerance(req.Tolerance))
	return Result{
		Feedback: fb,
		Reason:   reason,
		Metrics: Metrics{
			AvgDistance: floatPtr(avg),
			MaxDistance: floatPtr(mx),
			Method:      d.Method,
		},
	}
}

func floatPtr(v float64) *float64 {
	return &v
}
