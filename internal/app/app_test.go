package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/posecoach/internal/advisor"
	"github.com/ayusman/posecoach/internal/evaluator"
	"github.com/ayusman/posecoach/internal/pose"
	"github.com/ayusman/posecoach/internal/session"
	"github.com/ayusman/posecoach/internal/store"
)

func TestMain(m *testing.M) {
	SetLogger(nil)
	m.Run()
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func standingSamples(n int, label string) []pose.Sample {
	samples := make([]pose.Sample, n)
	for i := range samples {
		samples[i] = pose.Sample{
			Elapsed:   time.Duration(i) * 500 * time.Millisecond,
			Landmarks: pose.StandingLandmarks(),
			Label:     label,
		}
	}
	return samples
}

// blockingSource never yields a sample; Next returns when ctx is done.
type blockingSource struct{}

func (blockingSource) Next(ctx context.Context) (pose.Sample, error) {
	<-ctx.Done()
	return pose.Sample{}, ctx.Err()
}

func (blockingSource) Close() error { return nil }

func TestApp_Run_RecordsHistory(t *testing.T) {
	st := newTestStore(t)
	sess := session.New()
	_, err := sess.SetReference(pose.StandingLandmarks())
	require.NoError(t, err)

	samples := standingSamples(3, "hernia de disco lumbar")
	samples = append(samples, pose.Sample{Elapsed: 2 * time.Second})

	var updates []Update
	a := New(Config{
		Source:     pose.NewMockSource(samples),
		Store:      st,
		Session:    sess,
		SourceName: "unit",
		Sink:       func(u Update) { updates = append(updates, u) },
	})

	require.NoError(t, a.Run(context.Background()))
	assert.False(t, a.Running())

	require.Len(t, updates, 4)
	for _, u := range updates[:3] {
		assert.Equal(t, evaluator.Good, u.Result.Feedback)
		assert.Equal(t, evaluator.ReasonCorrectPosture, u.Result.Reason)
		assert.False(t, u.Advised)
	}
	assert.Equal(t, evaluator.NoEvaluation, updates[3].Result.Feedback)

	stats := a.Stats()
	assert.Equal(t, Stats{Frames: 4, Good: 3, NoEvaluation: 1}, stats)

	historyID := a.HistoryID()
	require.Equal(t, sess.ID, historyID)

	rec, err := st.Sessions().GetByID(historyID)
	require.NoError(t, err)
	assert.Equal(t, "unit", rec.Source)
	assert.Equal(t, "pose", rec.ReferenceKind)
	assert.Equal(t, sess.Reference().ID, rec.ReferenceID)
	assert.False(t, rec.EndedAt.IsZero())

	evals, err := st.Evaluations().ListBySession(historyID)
	require.NoError(t, err)
	require.Len(t, evals, 4)
	assert.Equal(t, "hernia de disco lumbar", evals[0].Condition)
	assert.Equal(t, "aligned", evals[0].Method)
	require.NotNil(t, evals[0].Confidence)
	assert.InDelta(t, 1.0, *evals[0].Confidence, 1e-9)
	assert.Equal(t, time.Second, evals[2].Elapsed)
	assert.Equal(t, 2*time.Second, evals[3].Elapsed)

	sum, err := st.Evaluations().Summary(historyID)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Good)
	assert.Equal(t, 1, sum.NoEvaluation)
}

func TestApp_Run_SecondRunGetsNewHistory(t *testing.T) {
	st := newTestStore(t)
	sess := session.New()

	first := New(Config{Source: pose.NewMockSource(standingSamples(1, "x")), Store: st, Session: sess})
	require.NoError(t, first.Run(context.Background()))

	second := New(Config{Source: pose.NewMockSource(standingSamples(1, "x")), Store: st, Session: sess})
	require.NoError(t, second.Run(context.Background()))

	assert.Equal(t, sess.ID, first.HistoryID())
	assert.NotEqual(t, first.HistoryID(), second.HistoryID())

	all, err := st.Sessions().List(0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestApp_Run_ClassifiesUnlabeledFrames(t *testing.T) {
	classifier := &pose.MockClassifier{Label: "Escoliosis Lumbar"}
	samples := standingSamples(2, "")
	samples[1].Label = "lumbalgia mecánica inespecífica"

	var updates []Update
	a := New(Config{
		Source:     pose.NewMockSource(samples),
		Classifier: classifier,
		Sink:       func(u Update) { updates = append(updates, u) },
	})

	require.NoError(t, a.Run(context.Background()))

	assert.Equal(t, 1, classifier.Calls)
	require.Len(t, updates, 2)
	assert.Equal(t, "Escoliosis Lumbar", updates[0].Result.Condition)
	assert.Equal(t, "lumbalgia mecánica inespecífica", updates[1].Result.Condition)
	assert.Equal(t, evaluator.Good, updates[0].Result.Feedback)
	assert.Empty(t, a.HistoryID())
}

func TestApp_Run_ClassifierFailure(t *testing.T) {
	classifier := &pose.MockClassifier{Err: errors.New("model crashed")}

	var updates []Update
	a := New(Config{
		Source:     pose.NewMockSource(standingSamples(1, "")),
		Classifier: classifier,
		Sink:       func(u Update) { updates = append(updates, u) },
	})

	require.NoError(t, a.Run(context.Background()))

	require.Len(t, updates, 1)
	assert.Equal(t, evaluator.NoEvaluation, updates[0].Result.Feedback)
	assert.Equal(t, evaluator.ReasonInsufficientData, updates[0].Result.Reason)
	assert.Equal(t, 1, a.Stats().ClassifierErrors)
}

func TestApp_Run_AutoSync(t *testing.T) {
	frames := make([]pose.Landmarks, 10)
	for i := range frames {
		frames[i] = pose.Interpolate(pose.StandingLandmarks(), pose.ArmsRaisedLandmarks(), float64(i)/9)
	}
	sess := session.New()
	_, err := sess.SetReferenceSequence(frames, 2)
	require.NoError(t, err)

	samples := []pose.Sample{
		{Elapsed: 0, Landmarks: frames[0], Label: "x"},
		{Elapsed: time.Second, Landmarks: frames[2], Label: "x"},
		{Elapsed: 2 * time.Second, Landmarks: frames[4], Label: "x"},
	}

	var indices []int
	a := New(Config{
		Source:   pose.NewMockSource(samples),
		Session:  sess,
		AutoSync: true,
		Sink:     func(u Update) { indices = append(indices, u.Index) },
	})

	require.NoError(t, a.Run(context.Background()))

	assert.Equal(t, []int{0, 2, 4}, indices)
	assert.Equal(t, 4, sess.Index())
}

func TestApp_Run_Advisor(t *testing.T) {
	t.Run("override is recorded", func(t *testing.T) {
		st := newTestStore(t)
		calls := 0
		a := New(Config{
			Source: pose.NewMockSource(append(standingSamples(2, "x"), pose.Sample{})),
			Store:  st,
			Advisor: advisor.Func(func(_ context.Context, in advisor.Input) (advisor.Verdict, error) {
				calls++
				return advisor.Verdict{IsGood: false, Reason: "knees bent"}, nil
			}),
		})

		require.NoError(t, a.Run(context.Background()))

		// The frame without keypoints is never advised.
		assert.Equal(t, 2, calls)
		assert.Equal(t, Stats{Frames: 3, Bad: 2, NoEvaluation: 1}, a.Stats())

		evals, err := st.Evaluations().ListBySession(a.HistoryID())
		require.NoError(t, err)
		require.Len(t, evals, 3)
		assert.True(t, evals[0].Advised)
		assert.Equal(t, "bad", evals[0].Feedback)
		assert.Equal(t, "knees bent", evals[0].Reason)
		assert.False(t, evals[2].Advised)
	})

	t.Run("failure keeps the verdict", func(t *testing.T) {
		var updates []Update
		a := New(Config{
			Source: pose.NewMockSource(standingSamples(1, "x")),
			Advisor: advisor.Func(func(context.Context, advisor.Input) (advisor.Verdict, error) {
				return advisor.Verdict{}, errors.New("upstream down")
			}),
			Sink: func(u Update) { updates = append(updates, u) },
		})

		require.NoError(t, a.Run(context.Background()))

		require.Len(t, updates, 1)
		assert.False(t, updates[0].Advised)
		assert.Equal(t, evaluator.Good, updates[0].Result.Feedback)
		assert.Equal(t, 1, a.Stats().AdvisorErrors)
	})
}

func TestApp_Run_AdvisorNotApplicable(t *testing.T) {
	a := New(Config{
		Source: pose.NewMockSource(standingSamples(2, "x")),
		Advisor: advisor.Func(func(context.Context, advisor.Input) (advisor.Verdict, error) {
			return advisor.Verdict{}, advisor.ErrNotApplicable
		}),
	})

	require.NoError(t, a.Run(context.Background()))

	assert.Equal(t, Stats{Frames: 2, Good: 2}, a.Stats())
}

func TestApp_Run_Errors(t *testing.T) {
	t.Run("no source", func(t *testing.T) {
		assert.Error(t, New(Config{}).Run(context.Background()))
	})

	t.Run("source failure", func(t *testing.T) {
		src := pose.NewMockSource(nil)
		src.SetError(errors.New("camera unplugged"))

		err := New(Config{Source: src}).Run(context.Background())
		assert.ErrorContains(t, err, "camera unplugged")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := New(Config{Source: pose.NewMockSource(standingSamples(3, "x"))}).Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestApp_StartStop(t *testing.T) {
	a := New(Config{Source: blockingSource{}})

	require.NoError(t, a.Start(context.Background()))
	assert.True(t, a.Running())
	assert.ErrorIs(t, a.Start(context.Background()), ErrRunning)
	assert.ErrorIs(t, a.Run(context.Background()), ErrRunning)

	assert.NoError(t, a.Stop())
	assert.False(t, a.Running())

	// Stop without a running pipeline is a no-op.
	assert.NoError(t, a.Stop())
}

func TestApp_StartWait(t *testing.T) {
	var frames int
	a := New(Config{
		Source: pose.NewMockSource(standingSamples(5, "x")),
		Sink:   func(Update) { frames++ },
	})

	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, a.Wait())

	assert.Equal(t, 5, frames)
	assert.Equal(t, 5, a.Stats().Frames)
}

func TestApp_Close(t *testing.T) {
	src := pose.NewMockSource(nil)
	a := New(Config{Source: src, Classifier: &pose.MockClassifier{}})

	require.NoError(t, a.Close())
	assert.True(t, src.Closed())
}

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) { got = format })
	Logf("hello %d", 1)
	assert.Equal(t, "hello %d", got)

	SetLogger(nil)
	assert.NotPanics(t, func() { Logf("silenced") })
}
