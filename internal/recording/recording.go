// Package recording reads keypoint recordings and reference files.
//
// A recording is JSON Lines, one frame per line:
//
//	{"t": 0.033, "landmarks": [x0, y0, z0, x1, ...], "label": "escoliosis lumbar"}
//
// "t" is seconds since the start of the recording. "label" is optional.
// Landmarks may also be written as an array of {"x","y","z"} objects.
package recording

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ayusman/posecoach/internal/pose"
)

// maxLineSize bounds one recorded frame.
const maxLineSize = 1 << 20

// ErrNotMonotonic is returned when timestamps go backwards.
var ErrNotMonotonic = errors.New("recording timestamps are not monotonic")

// Frame is the on-disk form of one recorded sample.
type Frame struct {
	T         float64        `json:"t"`
	Landmarks pose.Landmarks `json:"landmarks"`
	Label     string         `json:"label,omitempty"`
}

// Sample converts the frame to a pose.Sample.
func (f Frame) Sample() pose.Sample {
	return pose.Sample{
		Elapsed:   time.Duration(f.T * float64(time.Second)),
		Landmarks: f.Landmarks,
		Label:     f.Label,
	}
}

// Reader plays back a recording as a pose.Source.
type Reader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
	last    float64
}

// NewReader reads a recording from r. If r is an io.Closer it is closed by
// Close.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	rd := &Reader{scanner: scanner, last: -1}
	if c, ok := r.(io.Closer); ok {
		rd.closer = c
	}
	return rd
}

// Open opens a recording file.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	return NewReader(f), nil
}

// Next returns the next frame, skipping blank lines. It returns io.EOF at the
// end of the recording.
func (r *Reader) Next(ctx context.Context) (pose.Sample, error) {
	if err := ctx.Err(); err != nil {
		return pose.Sample{}, err
	}

	for r.scanner.Scan() {
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var f Frame
		if err := json.Unmarshal(line, &f); err != nil {
			return pose.Sample{}, fmt.Errorf("recording line %d: %w", r.line, err)
		}
		if f.T < r.last {
			return pose.Sample{}, fmt.Errorf("recording line %d: %w", r.line, ErrNotMonotonic)
		}
		r.last = f.T
		return f.Sample(), nil
	}

	if err := r.scanner.Err(); err != nil {
		return pose.Sample{}, fmt.Errorf("read recording: %w", err)
	}
	return pose.Sample{}, io.EOF
}

// Close closes the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// ReadAll drains src and returns every sample.
func ReadAll(ctx context.Context, src pose.Source) ([]pose.Sample, error) {
	var samples []pose.Sample
	for {
		s, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return samples, nil
		}
		if err != nil {
			return samples, err
		}
		samples = append(samples, s)
	}
}

// Writer appends frames to a recording.
type Writer struct {
	enc *json.Encoder
}

// NewWriter creates a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// Write appends one sample in the flat landmark form.
func (w *Writer) Write(s pose.Sample) error {
	return w.enc.Encode(struct {
		T         float64   `json:"t"`
		Landmarks []float64 `json:"landmarks"`
		Label     string    `json:"label,omitempty"`
	}{
		T:         s.Elapsed.Seconds(),
		Landmarks: s.Landmarks.Flat(),
		Label:     s.Label,
	})
}

// FrameRate estimates the frame rate of samples from their timestamps.
// It returns 0 when fewer than two samples are present or no time elapses.
func FrameRate(samples []pose.Sample) float64 {
	if len(samples) < 2 {
		return 0
	}
	span := samples[len(samples)-1].Elapsed - samples[0].Elapsed
	if span <= 0 {
		return 0
	}
	return float64(len(samples)-1) / span.Seconds()
}
