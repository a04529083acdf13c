package evaluator

// Thresholds is a two-tier calibration: a comparison is good in the first tier
// when both the average and the maximum distance are under the strict limits,
// good in the second tier under the loose limits, and bad otherwise. All
// limits scale linearly with the tolerance.
type Thresholds struct {
	StrictAvg, StrictMax float64
	LooseAvg, LooseMax   float64

	StrictReason string
	LooseReason  string
	FailReason   string
}

// PoseThresholds apply to single-frame comparisons.
var PoseThresholds = Thresholds{
	StrictAvg:    0.17,
	StrictMax:    0.38,
	LooseAvg:     0.28,
	LooseMax:     0.52,
	StrictReason: ReasonCorrectPosture,
	LooseReason:  ReasonWellDone,
	FailReason:   ReasonAdjustPosition,
}

// SequenceThresholds apply to DTW comparisons. They are calibrated separately
// from PoseThresholds and deliberately not unified with them.
var SequenceThresholds = Thresholds{
	StrictAvg:    0.20,
	StrictMax:    0.42,
	LooseAvg:     0.30,
	LooseMax:     0.55,
	StrictReason: ReasonMovementDetected,
	LooseReason:  ReasonGoodMovement,
	FailReason:   ReasonAdjustPosition,
}

// Classify rates an average and maximum distance at tolerance t.
func (th Thresholds) Classify(avg, max, t float64) (Feedback, string) {
	switch {
	case avg < th.StrictAvg*t && max < th.StrictMax*t:
		return Good, th.StrictReason
	case avg < th.LooseAvg*t && max < th.LooseMax*t:
		return Good, th.LooseReason
	default:
		return Bad, th.FailReason
	}
}
