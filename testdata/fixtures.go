package testdata

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/ayusman/posecoach/internal/motion"
	"github.com/ayusman/posecoach/internal/pose"
	"github.com/ayusman/posecoach/internal/recording"
)

//go:embed recordings/*.jsonl references/*.json
var fixturesFS embed.FS

// OpenRecording opens an embedded recording by name, without extension.
func OpenRecording(name string) (*recording.Reader, error) {
	f, err := fixturesFS.Open("recordings/" + name + ".jsonl")
	if err != nil {
		return nil, fmt.Errorf("load recording %s: %w", name, err)
	}
	return recording.NewReader(f), nil
}

// LoadRecording reads every sample of an embedded recording.
func LoadRecording(name string) ([]pose.Sample, error) {
	r, err := OpenRecording(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	samples, err := recording.ReadAll(context.Background(), r)
	if err != nil {
		return nil, fmt.Errorf("read recording %s: %w", name, err)
	}
	return samples, nil
}

// LoadReference loads an embedded reference file by name, without extension.
func LoadReference(name string) (*motion.Reference, error) {
	data, err := fixturesFS.ReadFile("references/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("load reference %s: %w", name, err)
	}

	ref, err := recording.ParseReference(data, recording.ReferenceOptions{SampleRate: motion.DefaultSampleRate})
	if err != nil {
		return nil, fmt.Errorf("reference %s: %w", name, err)
	}
	return ref, nil
}

// Recordings lists the embedded recording names.
func Recordings() ([]string, error) {
	entries, err := fixturesFS.ReadDir("recordings")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".jsonl"))
	}
	return names, nil
}
