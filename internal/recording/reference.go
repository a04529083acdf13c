package recording

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ayusman/posecoach/internal/motion"
	"github.com/ayusman/posecoach/internal/pose"
)

// ReferenceFile is the JSON form of a reference. A file with Frames is a
// sequence reference; a file with only Landmarks is a pose reference.
type ReferenceFile struct {
	SampleRate int              `json:"sample_rate,omitempty"`
	Frames     []pose.Landmarks `json:"frames,omitempty"`
	Landmarks  pose.Landmarks   `json:"landmarks,omitempty"`
}

// ReferenceOptions controls how recordings become references.
type ReferenceOptions struct {
	// SampleRate applies to reference files that do not declare one.
	SampleRate int
	TargetRate float64
	MaxFrames  int
}

// LoadReference reads a reference from path. A .jsonl file is treated as a
// recording and subsampled to opts.TargetRate; any other file is parsed as a
// ReferenceFile.
func LoadReference(path string, opts ReferenceOptions) (*motion.Reference, error) {
	if filepath.Ext(path) == ".jsonl" {
		return loadRecordingReference(path, opts)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference: %w", err)
	}

	ref, err := ParseReference(data, opts)
	if err != nil {
		return nil, fmt.Errorf("reference %s: %w", path, err)
	}
	return ref, nil
}

// ParseReference decodes a ReferenceFile.
func ParseReference(data []byte, opts ReferenceOptions) (*motion.Reference, error) {
	var file ReferenceFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse reference: %w", err)
	}

	if len(file.Frames) > 0 {
		rate := file.SampleRate
		if rate <= 0 {
			rate = opts.SampleRate
		}
		return motion.NewSequenceReference(file.Frames, rate)
	}
	if len(file.Landmarks) > 0 {
		return motion.NewPoseReference(file.Landmarks)
	}
	return nil, motion.ErrEmptyReference
}

func loadRecordingReference(path string, opts ReferenceOptions) (*motion.Reference, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	samples, err := ReadAll(context.Background(), r)
	if err != nil {
		return nil, err
	}
	return ReferenceFromSamples(samples, opts)
}

// ReferenceFromSamples subsamples a recording into a sequence reference. The
// source rate is estimated from the timestamps.
func ReferenceFromSamples(samples []pose.Sample, opts ReferenceOptions) (*motion.Reference, error) {
	frames := make([]pose.Landmarks, len(samples))
	for i, s := range samples {
		frames[i] = s.Landmarks
	}

	kept, rate, err := motion.Subsample(frames, FrameRate(samples), opts.TargetRate, opts.MaxFrames)
	if err != nil {
		return nil, err
	}
	return motion.NewSequenceReference(kept, rate)
}

// SaveReference writes ref to path in the ReferenceFile form.
func SaveReference(path string, ref *motion.Reference) error {
	var file ReferenceFile
	if ref.IsSequence() {
		file.SampleRate = ref.SampleRate
		file.Frames = ref.Frames
	} else {
		file.Landmarks = ref.FrameAt(0)
	}

	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshal reference: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write reference: %w", err)
	}
	return nil
}
