// Package session holds the per-user state shared by concurrent evaluations:
// the loaded reference motion, its synchronized index, the tolerance scale
// and the recent-frame buffers.
package session

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/posecoach/internal/evaluator"
	"github.com/ayusman/posecoach/internal/motion"
	"github.com/ayusman/posecoach/internal/pose"
)

// Tolerance bounds.
const (
	MinTolerance = 0.3
	MaxTolerance = 3.0
)

// Channel identifies an independent stream of user frames. Each channel
// smooths over its own buffer.
type Channel int

const (
	// ChannelLive is the continuous camera stream.
	ChannelLive Channel = iota
	// ChannelRequest is ad-hoc single-frame evaluation.
	ChannelRequest
)

func (c Channel) String() string {
	switch c {
	case ChannelLive:
		return "live"
	case ChannelRequest:
		return "request"
	default:
		return "unknown"
	}
}

// referenceState is swapped as a whole so readers never observe a reference
// paired with another reference's index.
type referenceState struct {
	ref   *motion.Reference
	index int
}

// Session is safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	state     atomic.Pointer[referenceState]
	tolerance atomic.Uint64
	buffers   [2]*motion.Buffer
}

// New creates a session with no reference and the default tolerance.
func New() *Session {
	s := &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		buffers:   [2]*motion.Buffer{motion.NewBuffer(), motion.NewBuffer()},
	}
	s.state.Store(&referenceState{})
	s.tolerance.Store(math.Float64bits(evaluator.DefaultTolerance))
	return s
}

// SetReference loads a single-pose reference, replacing any prior reference
// and resetting the synchronized index.
func (s *Session) SetReference(frame pose.Landmarks) (*motion.Reference, error) {
	ref, err := motion.NewPoseReference(frame)
	if err != nil {
		return nil, err
	}
	s.LoadReference(ref)
	return ref, nil
}

// SetReferenceSequence loads a sequence reference sampled at rate frames per
// second, replacing any prior reference and resetting the synchronized index.
func (s *Session) SetReferenceSequence(frames []pose.Landmarks, rate int) (*motion.Reference, error) {
	ref, err := motion.NewSequenceReference(frames, rate)
	if err != nil {
		return nil, err
	}
	s.LoadReference(ref)
	return ref, nil
}

// LoadReference installs an already built reference. A nil reference clears it.
func (s *Session) LoadReference(ref *motion.Reference) {
	s.state.Store(&referenceState{ref: ref})
}

// ClearReference removes the reference; evaluations fall back to the
// condition heuristics.
func (s *Session) ClearReference() {
	s.LoadReference(nil)
}

// Reference returns the loaded reference, or nil.
func (s *Session) Reference() *motion.Reference {
	return s.state.Load().ref
}

// Index returns the synchronized reference index.
func (s *Session) Index() int {
	return s.state.Load().index
}

// SetSyncTime points the synchronized index at the reference frame shown at
// the given playback time. It returns the new index, or false when no
// reference is loaded.
func (s *Session) SetSyncTime(seconds float64) (int, bool) {
	for {
		cur := s.state.Load()
		if cur.ref == nil {
			return 0, false
		}
		next := &referenceState{ref: cur.ref, index: cur.ref.IndexAt(seconds)}
		if s.state.CompareAndSwap(cur, next) {
			return next.index, true
		}
	}
}

// CurrentReferenceFrame returns the reference frame at the synchronized
// index, or nil when no reference is loaded.
func (s *Session) CurrentReferenceFrame() pose.Landmarks {
	st := s.state.Load()
	return st.ref.FrameAt(st.index)
}

// SetTolerance sets the tolerance scale, clamped to [MinTolerance,
// MaxTolerance]. Non-positive values are rejected and leave it unchanged.
func (s *Session) SetTolerance(v float64) (float64, bool) {
	if v <= 0 || math.IsNaN(v) {
		return s.Tolerance(), false
	}
	v = math.Max(MinTolerance, math.Min(MaxTolerance, v))
	s.tolerance.Store(math.Float64bits(v))
	return v, true
}

// Tolerance returns the current tolerance scale.
func (s *Session) Tolerance() float64 {
	return math.Float64frombits(s.tolerance.Load())
}

// Buffer returns the buffer of a channel.
func (s *Session) Buffer(ch Channel) *motion.Buffer {
	if ch == ChannelRequest {
		return s.buffers[1]
	}
	return s.buffers[0]
}

// ResetBuffers empties every channel buffer.
func (s *Session) ResetBuffers() {
	for _, b := range s.buffers {
		b.Reset()
	}
}

// Evaluate pushes keypoints onto the channel buffer and rates them against
// the current reference state. Frames without keypoints are not buffered.
func (s *Session) Evaluate(ch Channel, keypoints pose.Landmarks, condition string) evaluator.Result {
	buf := s.Buffer(ch)

	var history []pose.Landmarks
	if len(keypoints) > 0 {
		history = buf.Push(keypoints)
	} else {
		history = buf.Snapshot()
	}

	st := s.state.Load()
	return evaluator.Evaluate(evaluator.Request{
		Keypoints: keypoints,
		Condition: condition,
		History:   history,
		Reference: st.ref,
		Index:     st.index,
		Tolerance: s.Tolerance(),
	})
}
