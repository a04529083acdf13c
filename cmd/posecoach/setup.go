package main

import (
	"fmt"

	"github.com/ayusman/posecoach/internal/advisor"
	"github.com/ayusman/posecoach/internal/config"
	"github.com/ayusman/posecoach/internal/motion"
	"github.com/ayusman/posecoach/internal/pose"
	"github.com/ayusman/posecoach/internal/recording"
)

func referenceOptions(c *config.Config) recording.ReferenceOptions {
	return recording.ReferenceOptions{
		SampleRate: c.Reference.SampleRate,
		TargetRate: c.Reference.TargetRate,
		MaxFrames:  c.Reference.MaxFrames,
	}
}

func loadReference(c *config.Config, path string) (*motion.Reference, error) {
	if path == "" {
		return nil, nil
	}
	return recording.LoadReference(path, referenceOptions(c))
}

// newClassifier returns nil when frames are expected to carry their own label.
func newClassifier(c *config.Config, label string) (pose.Classifier, error) {
	if label == "" {
		label = c.Classifier.Label
	}
	if label != "" {
		return pose.StaticClassifier{Label: label}, nil
	}
	if c.Classifier.Command == "" {
		return nil, nil
	}
	pc, err := pose.NewProcessClassifier(pose.ProcessConfig{
		Command:     c.Classifier.Command,
		Args:        c.Classifier.Args,
		IdleTimeout: c.IdleTimeout(),
	})
	if err != nil {
		return nil, err
	}
	return pc, nil
}

// newAdvisor returns nil when no advisory strategy is configured.
func newAdvisor(c *config.Config) (advisor.Advisor, error) {
	switch {
	case c.Advisor.Plugin != "":
		manager := advisor.NewManager(c.Advisor.PluginDir)
		if err := manager.Discover(); err != nil {
			return nil, fmt.Errorf("discover advisor plugins: %w", err)
		}
		p, err := manager.Get(c.Advisor.Plugin)
		if err != nil {
			return nil, fmt.Errorf("advisor %q in %s: %w", c.Advisor.Plugin, manager.PluginDir(), err)
		}
		return advisor.NewExecAdvisor(p, c.AdvisorTimeout()), nil

	case c.Advisor.HTTP.URL != "":
		h, err := advisor.NewHTTPAdvisor(advisor.HTTPConfig{
			URL:     c.Advisor.HTTP.URL,
			Model:   c.Advisor.HTTP.Model,
			APIKey:  advisor.APIKeyFromEnv(c.Advisor.HTTP.APIKeyEnv),
			Timeout: c.AdvisorTimeout(),
		})
		if err != nil {
			return nil, err
		}
		return h, nil
	}
	return nil, nil
}
