package evaluator

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ayusman/posecoach/internal/pose"
)

// Measures are trunk measurements taken on a pelvis-normalized frame.
type Measures struct {
	TrunkTiltY   float64 `json:"trunk_tilt_y"`
	TrunkTiltX   float64 `json:"trunk_tilt_x"`
	ShoulderDiff float64 `json:"shoulder_diff"`
	HipDiff      float64 `json:"hip_diff"`
}

// Measure computes the trunk measures of lm. ok is false when the frame is
// too short to hold the hip landmarks.
func Measure(lm pose.Landmarks) (m Measures, ok bool) {
	if !lm.Has(pose.RightHip) {
		return Measures{}, false
	}
	n := lm.Normalize()

	ls, rs := n[pose.LeftShoulder], n[pose.RightShoulder]
	lh, rh := n[pose.LeftHip], n[pose.RightHip]

	shoulderY := (ls.Y + rs.Y) / 2
	hipY := (lh.Y + rh.Y) / 2
	shoulderX := (ls.X + rs.X) / 2
	hipX := (lh.X + rh.X) / 2

	return Measures{
		TrunkTiltY:   math.Abs(hipY - shoulderY),
		TrunkTiltX:   math.Abs(hipX - shoulderX),
		ShoulderDiff: math.Abs(ls.Y - rs.Y),
		HipDiff:      math.Abs(lh.Y - rh.Y),
	}, true
}

// heuristic is the rule applied to one condition when no reference is loaded.
// Every rule rates the posture good; the rule only picks the reason.
type heuristic struct {
	pass       func(Measures) bool
	passReason string
	failReason string
}

// heuristics is keyed by NormalizeLabel of the condition.
var heuristics = map[string]heuristic{
	"espondilolisis": {
		pass:       func(m Measures) bool { return m.TrunkTiltY > 0.02 || m.TrunkTiltX > 0.03 },
		passReason: "posture detected correctly",
		failReason: "posture in progress",
	},
	"lumbalgia mecanica inespecifica": {
		pass:       func(m Measures) bool { return m.TrunkTiltY < 0.08 && m.TrunkTiltX < 0.07 },
		passReason: "good alignment",
		failReason: "posture detected",
	},
	"escoliosis lumbar": {
		pass:       func(m Measures) bool { return m.ShoulderDiff < 0.04 && m.HipDiff < 0.04 },
		passReason: "good posture",
		failReason: "posture detected",
	},
	"hernia de disco lumbar": {
		pass:       func(m Measures) bool { return m.TrunkTiltY < 0.12 && m.TrunkTiltX < 0.10 },
		passReason: "correct posture",
		failReason: "posture in progress",
	},
}

// KnownConditions returns the condition labels that have a dedicated rule.
func KnownConditions() []string {
	return []string{
		"espondilolisis",
		"lumbalgia mecánica inespecífica",
		"escoliosis lumbar",
		"hernia de disco lumbar",
	}
}

// NormalizeLabel folds a condition label for lookup: accents removed,
// lower-cased, with runs of whitespace collapsed.
func NormalizeLabel(label string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, label)
	if err != nil {
		folded = label
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

func evaluateHeuristic(lm pose.Landmarks, condition string) Result {
	m, ok := Measure(lm)
	if !ok {
		return Result{Feedback: NoEvaluation, Reason: ReasonIncompleteFrame}
	}

	h, known := heuristics[NormalizeLabel(condition)]
	if !known {
		return Result{Feedback: Good, Reason: ReasonWithinParameters}
	}
	if h.pass(m) {
		return Result{Feedback: Good, Reason: h.passReason}
	}
	return Result{Feedback: Good, Reason: h.failReason}
}
