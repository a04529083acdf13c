package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/ayusman/posecoach/internal/evaluator"
	"github.com/ayusman/posecoach/internal/motion"
	"github.com/ayusman/posecoach/internal/pose"
)

func raiseFrames(n int) []pose.Landmarks {
	standing, raised := pose.StandingLandmarks(), pose.ArmsRaisedLandmarks()
	frames := make([]pose.Landmarks, n)
	for i := range frames {
		frames[i] = pose.Interpolate(standing, raised, float64(i)/float64(n-1))
	}
	return frames
}

func TestNew(t *testing.T) {
	s := New()

	if s.ID == "" {
		t.Error("expected session ID")
	}
	if s.Reference() != nil {
		t.Error("expected no reference")
	}
	if s.Tolerance() != 1.0 {
		t.Errorf("expected default tolerance 1.0, got %f", s.Tolerance())
	}
	if s.CurrentReferenceFrame() != nil {
		t.Error("expected no reference frame")
	}
}

func TestSession_SetTolerance(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		want     float64
		accepted bool
	}{
		{"in range", 1.5, 1.5, true},
		{"clamped low", 0.1, MinTolerance, true},
		{"clamped high", 10, MaxTolerance, true},
		{"zero rejected", 0, 1.0, false},
		{"negative rejected", -2, 1.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()

			got, ok := s.SetTolerance(tt.input)

			if ok != tt.accepted {
				t.Errorf("expected accepted=%v, got %v", tt.accepted, ok)
			}
			if got != tt.want || s.Tolerance() != tt.want {
				t.Errorf("expected tolerance %f, got %f (stored %f)", tt.want, got, s.Tolerance())
			}
		})
	}
}

func TestSession_SetReferenceSequence(t *testing.T) {
	s := New()

	if _, ok := s.SetSyncTime(2); ok {
		t.Error("sync without a reference should be a no-op")
	}

	ref, err := s.SetReferenceSequence(raiseFrames(10), 2)
	if err != nil {
		t.Fatalf("SetReferenceSequence() failed: %v", err)
	}
	if !ref.IsSequence() || s.Reference() != ref {
		t.Fatal("expected the sequence reference to be loaded")
	}

	idx, ok := s.SetSyncTime(2.2)
	if !ok || idx != 4 || s.Index() != 4 {
		t.Errorf("expected index 4, got %d (ok=%v, stored %d)", idx, ok, s.Index())
	}

	if idx, _ := s.SetSyncTime(-1); idx != 0 {
		t.Errorf("expected negative time to clamp to 0, got %d", idx)
	}

	s.SetSyncTime(100)
	if s.Index() != 200 {
		t.Errorf("expected unclamped index 200, got %d", s.Index())
	}
	last := ref.Frames[9]
	if got := s.CurrentReferenceFrame(); &got[0] != &last[0] {
		t.Error("expected the current frame to clamp to the last frame")
	}

	// Loading a new reference resets the index.
	if _, err := s.SetReference(pose.StandingLandmarks()); err != nil {
		t.Fatalf("SetReference() failed: %v", err)
	}
	if s.Index() != 0 {
		t.Errorf("expected index reset to 0, got %d", s.Index())
	}
	if s.Reference().IsSequence() {
		t.Error("expected a pose reference")
	}
}

func TestSession_SetReference_Empty(t *testing.T) {
	s := New()
	s.SetReference(pose.StandingLandmarks())

	_, err := s.SetReferenceSequence(nil, 2)
	if !errors.Is(err, motion.ErrEmptyReference) {
		t.Errorf("expected ErrEmptyReference, got %v", err)
	}
	if s.Reference() == nil {
		t.Error("a failed load must keep the previous reference")
	}

	s.ClearReference()
	if s.Reference() != nil {
		t.Error("expected reference cleared")
	}
}

func TestSession_Evaluate(t *testing.T) {
	t.Run("heuristics without reference", func(t *testing.T) {
		s := New()

		got := s.Evaluate(ChannelLive, pose.StandingLandmarks(), "escoliosis lumbar")

		if got.Feedback != evaluator.Good || got.Reason != "good posture" {
			t.Errorf("unexpected result %s/%q", got.Feedback, got.Reason)
		}
	})

	t.Run("missing keypoints are not buffered", func(t *testing.T) {
		s := New()

		got := s.Evaluate(ChannelLive, nil, "escoliosis lumbar")

		if got.Feedback != evaluator.NoEvaluation {
			t.Errorf("expected no_evaluation, got %s", got.Feedback)
		}
		if s.Buffer(ChannelLive).Len() != 0 {
			t.Error("expected empty buffer")
		}
	})

	t.Run("sequence path after two frames", func(t *testing.T) {
		s := New()
		frames := raiseFrames(30)
		if _, err := s.SetReferenceSequence(frames, 3); err != nil {
			t.Fatalf("SetReferenceSequence() failed: %v", err)
		}
		s.SetSyncTime(5) // index 15

		first := s.Evaluate(ChannelLive, frames[14], "hernia de disco lumbar")
		if first.Metrics.PathLength != 0 {
			t.Error("a single buffered frame should use the frame comparison")
		}
		if first.Reason != evaluator.ReasonCorrectPosture && first.Reason != evaluator.ReasonWellDone {
			t.Errorf("unexpected first reason %q", first.Reason)
		}

		second := s.Evaluate(ChannelLive, frames[15], "hernia de disco lumbar")
		if second.Metrics.PathLength == 0 {
			t.Error("expected DTW comparison once the buffer holds two frames")
		}
		if second.Reason != evaluator.ReasonMovementDetected {
			t.Errorf("expected %q, got %q", evaluator.ReasonMovementDetected, second.Reason)
		}
	})

	t.Run("channels keep separate buffers", func(t *testing.T) {
		s := New()

		s.Evaluate(ChannelLive, pose.StandingLandmarks(), "x")
		s.Evaluate(ChannelLive, pose.StandingLandmarks(), "x")
		s.Evaluate(ChannelRequest, pose.StandingLandmarks(), "x")

		if s.Buffer(ChannelLive).Len() != 2 || s.Buffer(ChannelRequest).Len() != 1 {
			t.Errorf("unexpected buffer sizes live=%d request=%d",
				s.Buffer(ChannelLive).Len(), s.Buffer(ChannelRequest).Len())
		}

		s.ResetBuffers()
		if s.Buffer(ChannelLive).Len() != 0 || s.Buffer(ChannelRequest).Len() != 0 {
			t.Error("expected buffers reset")
		}
	})
}

func TestSession_Concurrent(t *testing.T) {
	s := New()
	frames := raiseFrames(20)
	if _, err := s.SetReferenceSequence(frames, 2); err != nil {
		t.Fatalf("SetReferenceSequence() failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				r := s.Evaluate(ChannelLive, frames[(i+j)%len(frames)], "espondilolisis")
				switch r.Feedback {
				case evaluator.Good, evaluator.Bad, evaluator.NoEvaluation:
				default:
					t.Errorf("invalid feedback %q", r.Feedback)
				}
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s.SetSyncTime(float64(j) / 2)
				s.SetTolerance(0.5 + float64(i)/4)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				s.SetReferenceSequence(frames, 2)
				_ = s.CurrentReferenceFrame()
			}
		}()
	}
	wg.Wait()

	if tol := s.Tolerance(); tol < MinTolerance || tol > MaxTolerance {
		t.Errorf("tolerance out of range: %f", tol)
	}
	if s.Buffer(ChannelLive).Len() != motion.BufferCapacity {
		t.Errorf("expected full buffer, got %d", s.Buffer(ChannelLive).Len())
	}
}
