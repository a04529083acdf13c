package motion

import (
	"sync"

	"github.com/ayusman/posecoach/internal/pose"
)

// BufferCapacity is the number of recent frames kept for smoothing and
// temporal comparison.
const BufferCapacity = 3

// Buffer is a bounded FIFO of recent user frames. It is safe for concurrent use.
type Buffer struct {
	mu     sync.Mutex
	frames []pose.Landmarks
}

// NewBuffer creates an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{frames: make([]pose.Landmarks, 0, BufferCapacity)}
}

// Push appends frame, evicting the oldest entry once the buffer is full, and
// returns a snapshot of the contents taken under the same lock.
func (b *Buffer) Push(frame pose.Landmarks) []pose.Landmarks {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.frames) == BufferCapacity {
		copy(b.frames, b.frames[1:])
		b.frames = b.frames[:BufferCapacity-1]
	}
	b.frames = append(b.frames, frame)

	return b.snapshotLocked()
}

// Snapshot returns the current contents, oldest first.
func (b *Buffer) Snapshot() []pose.Landmarks {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

// Smoothed returns the elementwise mean of the buffered frames.
func (b *Buffer) Smoothed() pose.Landmarks {
	return Smooth(b.Snapshot())
}

// Len returns the number of buffered frames.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

// Reset empties the buffer.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = b.frames[:0]
}

func (b *Buffer) snapshotLocked() []pose.Landmarks {
	out := make([]pose.Landmarks, len(b.frames))
	copy(out, b.frames)
	return out
}

// Smooth returns the elementwise mean of frames, truncated to the shortest
// frame. A single frame is returned as is.
func Smooth(frames []pose.Landmarks) pose.Landmarks {
	return pose.Mean(frames)
}
