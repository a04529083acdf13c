package evaluator

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/posecoach/internal/motion"
	"github.com/ayusman/posecoach/internal/pose"
)

func poseRef(t *testing.T, lm pose.Landmarks) *motion.Reference {
	t.Helper()
	ref, err := motion.NewPoseReference(lm)
	require.NoError(t, err)
	return ref
}

func raiseSequence(t *testing.T, n int) *motion.Reference {
	t.Helper()
	standing, raised := pose.StandingLandmarks(), pose.ArmsRaisedLandmarks()
	frames := make([]pose.Landmarks, n)
	for i := range frames {
		frames[i] = pose.Interpolate(standing, raised, float64(i)/float64(n-1))
	}
	ref, err := motion.NewSequenceReference(frames, 3)
	require.NoError(t, err)
	return ref
}

func TestEvaluate_MissingInput(t *testing.T) {
	t.Run("no keypoints", func(t *testing.T) {
		got := Evaluate(Request{Condition: "escoliosis lumbar"})

		want := Result{
			Feedback:  NoEvaluation,
			Reason:    ReasonInsufficientData,
			Condition: "escoliosis lumbar",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Evaluate() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("no condition", func(t *testing.T) {
		got := Evaluate(Request{
			Keypoints: pose.StandingLandmarks(),
			Reference: poseRef(t, pose.StandingLandmarks()),
		})

		assert.Equal(t, NoEvaluation, got.Feedback)
		assert.Equal(t, ReasonInsufficientData, got.Reason)
		assert.Nil(t, got.Metrics.AvgDistance)
		assert.Nil(t, got.Metrics.MaxDistance)
		assert.Nil(t, got.Confidence)
		assert.False(t, got.IsGood)
	})

	t.Run("metrics serialize as null", func(t *testing.T) {
		data, err := json.Marshal(Evaluate(Request{}))
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		metrics := decoded["metrics"].(map[string]any)
		assert.Contains(t, metrics, "avg_distance")
		assert.Nil(t, metrics["avg_distance"])
		assert.Nil(t, metrics["max_distance"])
		assert.Equal(t, "no_evaluation", decoded["feedback"])
	})
}

func TestEvaluate_SingleFrameReference(t *testing.T) {
	t.Run("identical frame is correct posture", func(t *testing.T) {
		lm := pose.StandingLandmarks()

		got := Evaluate(Request{
			Keypoints: lm,
			Condition: "escoliosis lumbar",
			Reference: poseRef(t, lm),
			Tolerance: 1.0,
		})

		assert.Equal(t, Good, got.Feedback)
		assert.Equal(t, ReasonCorrectPosture, got.Reason)
		require.NotNil(t, got.Metrics.AvgDistance)
		assert.InDelta(t, 0.0, *got.Metrics.AvgDistance, 1e-9)
		assert.Equal(t, motion.MethodAligned, got.Metrics.Method)
		assert.True(t, got.IsGood)
		require.NotNil(t, got.Confidence)
		assert.InDelta(t, 1.0, *got.Confidence, 1e-6)
	})

	t.Run("compares against the smoothed buffer", func(t *testing.T) {
		standing := pose.StandingLandmarks()
		raised := pose.ArmsRaisedLandmarks()

		// The latest frame alone differs from the reference; the buffer mean
		// of raised, standing, standing is closer.
		got := Evaluate(Request{
			Keypoints: standing,
			Condition: "escoliosis lumbar",
			History:   []pose.Landmarks{raised, raised, standing},
			Reference: poseRef(t, raised),
		})

		require.NotNil(t, got.Metrics.AvgDistance)
		assert.Greater(t, *got.Metrics.AvgDistance, 0.0)
		assert.Less(t, *got.Metrics.AvgDistance, motion.MeanDistance(standing, raised))
	})

	t.Run("tolerance is monotonic", func(t *testing.T) {
		rank := map[string]int{
			ReasonAdjustPosition: 0,
			ReasonWellDone:       1,
			ReasonCorrectPosture: 2,
		}
		ref := poseRef(t, pose.StandingLandmarks())

		prev := -1
		var seen []string
		for _, tol := range []float64{0.3, 0.45, 0.6, 0.8, 1.0, 1.5, 3.0} {
			got := Evaluate(Request{
				Keypoints: pose.ArmsRaisedLandmarks(),
				Condition: "escoliosis lumbar",
				Reference: ref,
				Tolerance: tol,
			})
			r, ok := rank[got.Reason]
			require.True(t, ok, "unexpected reason %q", got.Reason)
			assert.GreaterOrEqual(t, r, prev, "tolerance %.2f made the verdict stricter", tol)
			prev = r
			seen = append(seen, got.Reason)
		}

		assert.Equal(t, ReasonAdjustPosition, seen[0])
		assert.Contains(t, seen, ReasonWellDone)
		assert.Equal(t, ReasonCorrectPosture, seen[len(seen)-1])
	})

	t.Run("empty user frame cannot be compared", func(t *testing.T) {
		got := Evaluate(Request{
			Keypoints: pose.StandingLandmarks(),
			Condition: "escoliosis lumbar",
			History:   []pose.Landmarks{nil},
			Reference: poseRef(t, pose.StandingLandmarks()),
		})

		assert.Equal(t, NoEvaluation, got.Feedback)
		assert.Equal(t, ReasonNoReferenceMatch, got.Reason)
		assert.Nil(t, got.Metrics.AvgDistance)
	})
}

func TestEvaluate_SequenceReference(t *testing.T) {
	ref := raiseSequence(t, 30)

	t.Run("matching movement", func(t *testing.T) {
		history := []pose.Landmarks{ref.Frames[14], ref.Frames[15], ref.Frames[16]}

		got := Evaluate(Request{
			Keypoints: ref.Frames[16],
			Condition: "hernia de disco lumbar",
			History:   history,
			Reference: ref,
			Index:     15,
			Tolerance: 1.0,
		})

		assert.Equal(t, Good, got.Feedback)
		assert.Equal(t, ReasonMovementDetected, got.Reason)
		assert.GreaterOrEqual(t, got.Metrics.PathLength, 9)
		require.NotNil(t, got.Metrics.TotalCost)
	})

	t.Run("single buffered frame uses the synchronized frame", func(t *testing.T) {
		got := Evaluate(Request{
			Keypoints: ref.Frames[20],
			Condition: "hernia de disco lumbar",
			History:   []pose.Landmarks{ref.Frames[20]},
			Reference: ref,
			Index:     20,
		})

		assert.Equal(t, ReasonCorrectPosture, got.Reason)
		assert.Zero(t, got.Metrics.PathLength)
		require.NotNil(t, got.Metrics.AvgDistance)
		assert.InDelta(t, 0.0, *got.Metrics.AvgDistance, 1e-9)
	})

	t.Run("index past the end is clamped", func(t *testing.T) {
		got := Evaluate(Request{
			Keypoints: ref.Frames[29],
			Condition: "hernia de disco lumbar",
			History:   []pose.Landmarks{ref.Frames[29]},
			Reference: ref,
			Index:     500,
		})

		assert.Equal(t, ReasonCorrectPosture, got.Reason)
	})

	t.Run("tolerance is monotonic", func(t *testing.T) {
		rank := map[string]int{
			ReasonAdjustPosition:   0,
			ReasonGoodMovement:     1,
			ReasonMovementDetected: 2,
		}
		bent := pose.SideBendLandmarks()
		history := []pose.Landmarks{bent, bent, bent}

		prev := -1
		for _, tol := range []float64{0.3, 0.45, 0.6, 0.8, 1.0, 1.5, 3.0} {
			got := Evaluate(Request{
				Keypoints: bent,
				Condition: "escoliosis lumbar",
				History:   history,
				Reference: ref,
				Index:     15,
				Tolerance: tol,
			})
			r, ok := rank[got.Reason]
			require.True(t, ok, "unexpected reason %q", got.Reason)
			assert.GreaterOrEqual(t, r, prev, "tolerance %.2f made the verdict stricter", tol)
			prev = r
		}
	})

	t.Run("empty reference frames are skipped", func(t *testing.T) {
		gappy, err := motion.NewSequenceReference([]pose.Landmarks{
			ref.Frames[0], nil, ref.Frames[1], {}, ref.Frames[2], ref.Frames[3],
		}, 2)
		require.NoError(t, err)
		require.Equal(t, 4, gappy.Len())

		got := Evaluate(Request{
			Keypoints: ref.Frames[2],
			Condition: "hernia de disco lumbar",
			History:   []pose.Landmarks{ref.Frames[0], ref.Frames[1], ref.Frames[2]},
			Reference: gappy,
			Index:     1,
		})

		assert.Equal(t, Good, got.Feedback)
		require.NotNil(t, got.Metrics.AvgDistance)
		assert.False(t, math.IsInf(*got.Metrics.AvgDistance, 0))
	})

	t.Run("uncomparable buffer", func(t *testing.T) {
		got := Evaluate(Request{
			Keypoints: pose.StandingLandmarks(),
			Condition: "hernia de disco lumbar",
			History:   []pose.Landmarks{nil, nil},
			Reference: ref,
		})

		assert.Equal(t, NoEvaluation, got.Feedback)
		assert.Equal(t, ReasonNoSequenceMatch, got.Reason)
		assert.Nil(t, got.Metrics.AvgDistance)
		assert.Nil(t, got.Metrics.MaxDistance)
	})
}

func TestThresholds_Classify(t *testing.T) {
	tests := []struct {
		name     string
		th       Thresholds
		avg, max float64
		tol      float64
		feedback Feedback
		reason   string
	}{
		{"pose first tier", PoseThresholds, 0.10, 0.30, 1, Good, ReasonCorrectPosture},
		{"pose second tier", PoseThresholds, 0.25, 0.45, 1, Good, ReasonWellDone},
		{"pose avg on second boundary", PoseThresholds, 0.28, 0.45, 1, Bad, ReasonAdjustPosition},
		{"pose avg on first boundary", PoseThresholds, 0.17, 0.30, 1, Good, ReasonWellDone},
		{"pose max too large", PoseThresholds, 0.05, 0.52, 1, Bad, ReasonAdjustPosition},
		{"pose loosened by tolerance", PoseThresholds, 0.25, 0.45, 2, Good, ReasonCorrectPosture},
		{"pose tightened by tolerance", PoseThresholds, 0.10, 0.30, 0.5, Bad, ReasonAdjustPosition},
		{"sequence first tier", SequenceThresholds, 0.19, 0.41, 1, Good, ReasonMovementDetected},
		{"sequence second tier", SequenceThresholds, 0.25, 0.50, 1, Good, ReasonGoodMovement},
		{"sequence fails", SequenceThresholds, 0.30, 0.50, 1, Bad, ReasonAdjustPosition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb, reason := tt.th.Classify(tt.avg, tt.max, tt.tol)
			assert.Equal(t, tt.feedback, fb)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestThresholds_ToleranceMonotonic(t *testing.T) {
	tables := map[string]Thresholds{
		"pose":     PoseThresholds,
		"sequence": SequenceThresholds,
	}
	tolerances := []float64{0.3, 0.5, 0.75, 1.0, 1.25, 1.5, 2.0, 3.0}

	for name, th := range tables {
		t.Run(name, func(t *testing.T) {
			rank := map[string]int{
				th.FailReason:   0,
				th.LooseReason:  1,
				th.StrictReason: 2,
			}
			for avg := 0.0; avg <= 0.8; avg += 0.05 {
				for mx := avg; mx <= 1.5; mx += 0.1 {
					prev := -1
					for _, tol := range tolerances {
						fb, reason := th.Classify(avg, mx, tol)
						r := rank[reason]
						if r < prev {
							t.Fatalf("avg %.2f max %.2f: tolerance %.2f gave %s (%s) after a better verdict",
								avg, mx, tol, fb, reason)
						}
						prev = r
					}
				}
			}
		})
	}
}

func TestResult_Finalize(t *testing.T) {
	avg := 0.1
	r := Result{Feedback: Bad, Metrics: Metrics{AvgDistance: &avg}}

	r.Finalize()
	assert.False(t, r.IsGood)
	require.NotNil(t, r.Confidence)
	assert.InDelta(t, 0.5, *r.Confidence, 1e-12)

	r.Feedback = Good
	r.Finalize()
	assert.True(t, r.IsGood)
}

func TestConfidence(t *testing.T) {
	assert.InDelta(t, 1.0, Confidence(0), 1e-12)
	assert.InDelta(t, 0.5, Confidence(0.1), 1e-12)
	assert.Less(t, Confidence(1.0), Confidence(0.2))
	assert.GreaterOrEqual(t, Confidence(1e9), 0.0)
}
