package motion

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/posecoach/internal/pose"
)

func marker(v float64) pose.Landmarks {
	return pose.Landmarks{{X: v, Y: v, Z: v}}
}

func TestBuffer_FIFOEviction(t *testing.T) {
	b := NewBuffer()
	f1, f2, f3, f4 := marker(1), marker(2), marker(3), marker(4)

	b.Push(f1)
	b.Push(f2)
	snap := b.Push(f3)
	require.Len(t, snap, 3)

	snap = b.Push(f4)

	require.Len(t, snap, BufferCapacity)
	assert.Equal(t, []pose.Landmarks{f2, f3, f4}, snap)
	assert.Equal(t, 3, b.Len())
}

func TestBuffer_SnapshotIsIndependent(t *testing.T) {
	b := NewBuffer()
	b.Push(marker(1))

	snap := b.Snapshot()
	b.Push(marker(2))

	assert.Len(t, snap, 1)
	assert.Len(t, b.Snapshot(), 2)
}

func TestBuffer_Smoothed(t *testing.T) {
	b := NewBuffer()

	assert.Nil(t, b.Smoothed())

	single := marker(0.4)
	b.Push(single)
	assert.Equal(t, single, b.Smoothed())

	b.Push(marker(0.6))
	b.Push(pose.Landmarks{{X: 0.8, Y: 0.8, Z: 0.8}, {X: 5, Y: 5, Z: 5}})

	s := b.Smoothed()
	require.Len(t, s, 1)
	assert.InDelta(t, 0.6, s[0].X, 1e-12)
}

func TestBuffer_Reset(t *testing.T) {
	b := NewBuffer()
	b.Push(marker(1))
	b.Push(marker(2))

	b.Reset()

	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Snapshot())
}

func TestBuffer_ConcurrentPush(t *testing.T) {
	b := NewBuffer()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(v float64) {
			defer wg.Done()
			snap := b.Push(marker(v))
			assert.LessOrEqual(t, len(snap), BufferCapacity)
			assert.NotEmpty(t, snap)
		}(float64(i))
	}
	wg.Wait()

	assert.Equal(t, BufferCapacity, b.Len())
}

func TestSelectWindow(t *testing.T) {
	tests := []struct {
		name       string
		n, idx, m  int
		start, end int
	}{
		{"centered", 20, 10, 3, 6, 15},
		{"minimum size", 20, 10, 1, 8, 12},
		{"clamped at start", 20, 1, 3, 0, 9},
		{"shifted back at end", 20, 19, 3, 11, 20},
		{"index past end", 20, 50, 2, 14, 20},
		{"short reference", 3, 1, 3, 0, 3},
		{"negative index", 10, -5, 2, 0, 6},
		{"empty reference", 0, 0, 3, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := SelectWindow(tt.n, tt.idx, tt.m)
			assert.Equal(t, tt.start, start, "start")
			assert.Equal(t, tt.end, end, "end")
		})
	}
}
