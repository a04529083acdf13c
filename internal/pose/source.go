package pose

import (
	"context"
	"time"
)

// Sample is one observation delivered by a Source.
type Sample struct {
	// Elapsed is the time since the start of the stream.
	Elapsed time.Duration `json:"elapsed"`
	// Landmarks is nil when no body was detected in the frame.
	Landmarks Landmarks `json:"landmarks"`
	// Label is the condition label if the source already classified the frame.
	Label string `json:"label,omitempty"`
}

// Source defines the interface for pose estimation implementations.
type Source interface {
	// Next returns the next sample. It returns io.EOF once the stream is exhausted.
	Next(ctx context.Context) (Sample, error)

	// Close releases any resources held by the source.
	Close() error
}

// Classifier assigns a condition label to a keypoint set.
type Classifier interface {
	// Classify returns the condition label for the landmarks, or "" if none applies.
	Classify(ctx context.Context, lm Landmarks) (string, error)

	// Close releases any resources held by the classifier.
	Close() error
}

// StaticClassifier labels every frame with the same condition.
type StaticClassifier struct {
	Label string
}

// Classify returns the configured label.
func (c StaticClassifier) Classify(_ context.Context, lm Landmarks) (string, error) {
	if len(lm) == 0 {
		return "", nil
	}
	return c.Label, nil
}

// Close is a no-op.
func (c StaticClassifier) Close() error {
	return nil
}
