package motion

import (
	"errors"
	"math"

	"github.com/google/uuid"

	"github.com/ayusman/posecoach/internal/pose"
)

// ErrEmptyReference is returned when a reference is built from no frames.
var ErrEmptyReference = errors.New("reference has no frames")

const (
	// DefaultSampleRate is used for sequence references loaded without a rate.
	DefaultSampleRate = 2
	// DefaultTargetRate is the rate recordings are subsampled to.
	DefaultTargetRate = 3
	// DefaultSourceRate is assumed for recordings of unknown rate.
	DefaultSourceRate = 30
	// MaxReferenceFrames caps the length of a subsampled reference.
	MaxReferenceFrames = 600
)

// Kind distinguishes single-pose from sequence references.
type Kind string

const (
	KindPose     Kind = "pose"
	KindSequence Kind = "sequence"
)

// Reference is the target motion the user is compared against. It is
// immutable once built and safe to share between goroutines.
type Reference struct {
	ID         string
	Kind       Kind
	Frames     []pose.Landmarks
	SampleRate int
}

// NewPoseReference builds a single-pose reference.
func NewPoseReference(frame pose.Landmarks) (*Reference, error) {
	if len(frame) == 0 {
		return nil, ErrEmptyReference
	}
	return &Reference{
		ID:         uuid.New().String(),
		Kind:       KindPose,
		Frames:     []pose.Landmarks{frame.Clone()},
		SampleRate: DefaultSampleRate,
	}, nil
}

// NewSequenceReference builds a sequence reference sampled at rate frames per
// second. A rate <= 0 selects DefaultSampleRate. Frames without landmarks are
// dropped; ErrEmptyReference is returned when none remain.
func NewSequenceReference(frames []pose.Landmarks, rate int) (*Reference, error) {
	if rate <= 0 {
		rate = DefaultSampleRate
	}

	copied := make([]pose.Landmarks, 0, len(frames))
	for _, f := range frames {
		if len(f) == 0 {
			continue
		}
		copied = append(copied, f.Clone())
	}
	if len(copied) == 0 {
		return nil, ErrEmptyReference
	}

	return &Reference{
		ID:         uuid.New().String(),
		Kind:       KindSequence,
		Frames:     copied,
		SampleRate: rate,
	}, nil
}

// IsSequence reports whether the reference is a motion sequence.
func (r *Reference) IsSequence() bool {
	return r != nil && r.Kind == KindSequence
}

// Len returns the number of frames.
func (r *Reference) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Frames)
}

// FrameAt returns the frame at idx, clamped to the valid range.
func (r *Reference) FrameAt(idx int) pose.Landmarks {
	if r.Len() == 0 {
		return nil
	}
	idx = max(0, min(idx, len(r.Frames)-1))
	return r.Frames[idx]
}

// IndexAt returns the frame index for a playback time in seconds.
func (r *Reference) IndexAt(seconds float64) int {
	if r == nil {
		return 0
	}
	idx := int(math.Round(seconds * float64(r.SampleRate)))
	return max(0, idx)
}

// Window returns the frames to compare m buffered user frames against,
// centered on idx. See SelectWindow.
func (r *Reference) Window(idx, m int) []pose.Landmarks {
	start, end := SelectWindow(r.Len(), idx, m)
	if start == end {
		return nil
	}
	return r.Frames[start:end]
}

// Subsample keeps every round(sourceRate/targetRate)-th frame, up to
// maxFrames, and returns the kept frames and their rate. Non-positive
// arguments select DefaultSourceRate, DefaultTargetRate and MaxReferenceFrames.
func Subsample(frames []pose.Landmarks, sourceRate, targetRate float64, maxFrames int) ([]pose.Landmarks, int, error) {
	if len(frames) == 0 {
		return nil, 0, ErrEmptyReference
	}
	if sourceRate <= 0 {
		sourceRate = DefaultSourceRate
	}
	if targetRate <= 0 {
		targetRate = DefaultTargetRate
	}
	if maxFrames <= 0 {
		maxFrames = MaxReferenceFrames
	}

	step := max(1, int(math.Round(sourceRate/targetRate)))
	rate := max(1, int(targetRate))

	kept := make([]pose.Landmarks, 0, min(maxFrames, len(frames)/step+1))
	for i := 0; i < len(frames) && len(kept) < maxFrames; i += step {
		if len(frames[i]) == 0 {
			continue
		}
		kept = append(kept, frames[i])
	}
	if len(kept) == 0 {
		return nil, 0, ErrEmptyReference
	}
	return kept, rate, nil
}

// Average returns the mean pose of several captured frames, skipping frames
// with no landmarks.
func Average(frames []pose.Landmarks) (pose.Landmarks, error) {
	valid := make([]pose.Landmarks, 0, len(frames))
	for _, f := range frames {
		if len(f) > 0 {
			valid = append(valid, f)
		}
	}
	if len(valid) == 0 {
		return nil, ErrEmptyReference
	}
	return pose.Mean(valid).Clone(), nil
}
