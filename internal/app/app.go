// Package app wires a pose source, the coaching session, an optional advisor
// and the history store into one pipeline.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ayusman/posecoach/internal/advisor"
	"github.com/ayusman/posecoach/internal/evaluator"
	"github.com/ayusman/posecoach/internal/pose"
	"github.com/ayusman/posecoach/internal/session"
	"github.com/ayusman/posecoach/internal/store"
)

// ErrRunning is returned by Start and Run when the pipeline is already running.
var ErrRunning = errors.New("pipeline already running")

// Config holds the collaborators of an App. Only Source is required.
type Config struct {
	Source pose.Source
	// Classifier labels frames whose sample carries no label.
	Classifier pose.Classifier
	Advisor    advisor.Advisor
	// Store records every verdict when set.
	Store *store.Store
	// Session defaults to a fresh session.
	Session *session.Session
	// AutoSync moves the reference index along with sample timestamps.
	AutoSync bool
	// SourceName is recorded with the history session.
	SourceName string
	// Sink receives every update after it is recorded.
	Sink func(Update)
}

// Update is the pipeline output for one sample.
type Update struct {
	Frame   int
	Elapsed time.Duration
	// Index is the synchronized reference index the frame was rated against.
	Index   int
	Result  evaluator.Result
	Advised bool
}

// Stats counts what a run has processed.
type Stats struct {
	Frames           int
	Good             int
	Bad              int
	NoEvaluation     int
	ClassifierErrors int
	AdvisorErrors    int
}

func (s *Stats) add(r evaluator.Result) {
	s.Frames++
	switch r.Feedback {
	case evaluator.Good:
		s.Good++
	case evaluator.Bad:
		s.Bad++
	default:
		s.NoEvaluation++
	}
}

// App runs the coaching pipeline.
type App struct {
	config  Config
	session *session.Session

	mu        sync.RWMutex
	running   bool
	historyID string
	stats     Stats
	cancel    context.CancelFunc
	done      chan struct{}
	err       error
}

// New creates an App with the given configuration.
func New(config Config) *App {
	sess := config.Session
	if sess == nil {
		sess = session.New()
	}
	return &App{
		config:  config,
		session: sess,
	}
}

// Session returns the coaching session the pipeline evaluates against.
func (a *App) Session() *session.Session {
	return a.session
}

// Running reports whether the pipeline is running.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// Stats returns the counters of the current or last run.
func (a *App) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}

// HistoryID returns the store session ID of the current or last run, or ""
// when no store is configured.
func (a *App) HistoryID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.historyID
}

// Start runs the pipeline in the background until the source is exhausted,
// ctx is cancelled or Stop is called.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	a.running = true
	a.cancel = cancel
	a.done = make(chan struct{})
	done := a.done
	a.mu.Unlock()

	go func() {
		defer close(done)
		err := a.run(ctx)
		a.mu.Lock()
		a.err = err
		a.mu.Unlock()
	}()

	Logf("Coaching pipeline started")
	return nil
}

// Stop cancels a pipeline started with Start and waits for it to finish. It
// returns the error the run ended with, ignoring the cancellation itself.
func (a *App) Stop() error {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel = nil
	a.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	a.mu.RLock()
	defer a.mu.RUnlock()
	if errors.Is(a.err, context.Canceled) {
		return nil
	}
	return a.err
}

// Wait blocks until a pipeline started with Start finishes and returns its
// error.
func (a *App) Wait() error {
	a.mu.RLock()
	done := a.done
	a.mu.RUnlock()

	if done == nil {
		return nil
	}
	<-done

	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.err
}

// Close releases the source and the classifier.
func (a *App) Close() error {
	var errs []error
	if a.config.Source != nil {
		if err := a.config.Source.Close(); err != nil {
			Logf("Error closing source: %v", err)
			errs = append(errs, err)
		}
	}
	if a.config.Classifier != nil {
		if err := a.config.Classifier.Close(); err != nil {
			Logf("Error closing classifier: %v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
