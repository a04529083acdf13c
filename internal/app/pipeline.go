package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ayusman/posecoach/internal/advisor"
	"github.com/ayusman/posecoach/internal/evaluator"
	"github.com/ayusman/posecoach/internal/pose"
	"github.com/ayusman/posecoach/internal/session"
	"github.com/ayusman/posecoach/internal/store"
)

// Run processes samples until the source returns io.EOF, which ends the run
// cleanly, or ctx is cancelled, which returns ctx.Err().
//
// Per sample:
// 1. Classify the frame if the source did not label it
// 2. Move the reference index to the sample time (AutoSync)
// 3. Evaluate on the live channel
// 4. Let the advisor override the verdict; failures are logged and ignored
// 5. Record to the history store
// 6. Deliver to the sink
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrRunning
	}
	a.running = true
	a.mu.Unlock()

	return a.run(ctx)
}

func (a *App) run(ctx context.Context) error {
	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	if a.config.Source == nil {
		return errors.New("no pose source configured")
	}

	a.mu.Lock()
	a.stats = Stats{}
	a.historyID = ""
	a.mu.Unlock()

	historyID, err := a.openHistory()
	if err != nil {
		return err
	}
	if historyID != "" {
		defer a.closeHistory(historyID)
	}

	Logf("Pipeline running (source %q, autosync %v)", a.config.SourceName, a.config.AutoSync)

	for frame := 0; ; frame++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		sample, err := a.config.Source.Next(ctx)
		if errors.Is(err, io.EOF) {
			stats := a.Stats()
			Logf("Pipeline finished after %d frames (%d good, %d bad, %d not evaluated)",
				stats.Frames, stats.Good, stats.Bad, stats.NoEvaluation)
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read sample %d: %w", frame, err)
		}

		update := a.process(ctx, frame, sample)

		if historyID != "" {
			if err := a.record(historyID, update); err != nil {
				return fmt.Errorf("record frame %d: %w", frame, err)
			}
		}

		if a.config.Sink != nil {
			a.config.Sink(update)
		}
	}
}

func (a *App) process(ctx context.Context, frame int, sample pose.Sample) Update {
	condition := sample.Label
	if condition == "" && a.config.Classifier != nil && len(sample.Landmarks) > 0 {
		label, err := a.config.Classifier.Classify(ctx, sample.Landmarks)
		if err != nil {
			Logf("Error classifying frame %d: %v", frame, err)
			a.mu.Lock()
			a.stats.ClassifierErrors++
			a.mu.Unlock()
		} else {
			condition = label
		}
	}

	if a.config.AutoSync {
		a.session.SetSyncTime(sample.Elapsed.Seconds())
	}
	index := a.session.Index()

	result := a.session.Evaluate(session.ChannelLive, sample.Landmarks, condition)

	advised := false
	if a.config.Advisor != nil && result.Feedback != evaluator.NoEvaluation {
		refined, err := advisor.Refine(ctx, a.config.Advisor, result)
		switch {
		case errors.Is(err, advisor.ErrNotApplicable):
		case err != nil:
			Logf("Advisor failed on frame %d, keeping evaluator verdict: %v", frame, err)
			a.mu.Lock()
			a.stats.AdvisorErrors++
			a.mu.Unlock()
		default:
			result = refined
			advised = true
		}
	}

	a.mu.Lock()
	a.stats.add(result)
	a.mu.Unlock()

	return Update{
		Frame:   frame,
		Elapsed: sample.Elapsed,
		Index:   index,
		Result:  result,
		Advised: advised,
	}
}

func (a *App) openHistory() (string, error) {
	if a.config.Store == nil {
		return "", nil
	}

	rec := &store.Session{
		ID:        a.session.ID,
		Source:    a.config.SourceName,
		Tolerance: a.session.Tolerance(),
	}
	if ref := a.session.Reference(); ref != nil {
		rec.ReferenceID = ref.ID
		rec.ReferenceKind = string(ref.Kind)
	}

	// A session ID is reused across runs; later runs get their own row.
	if _, err := a.config.Store.Sessions().GetByID(rec.ID); err == nil {
		rec.ID = ""
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("open history: %w", err)
	}

	if err := a.config.Store.Sessions().Create(rec); err != nil {
		return "", fmt.Errorf("open history: %w", err)
	}

	a.mu.Lock()
	a.historyID = rec.ID
	a.mu.Unlock()
	return rec.ID, nil
}

func (a *App) closeHistory(id string) {
	if err := a.config.Store.Sessions().End(id, time.Now()); err != nil {
		Logf("Error closing history session %s: %v", id, err)
	}
}

func (a *App) record(historyID string, u Update) error {
	return a.config.Store.Evaluations().Create(NewEvaluation(historyID, u))
}

// NewEvaluation converts a pipeline update to its history row.
func NewEvaluation(historyID string, u Update) *store.Evaluation {
	r := u.Result
	return &store.Evaluation{
		SessionID:       historyID,
		Frame:           u.Frame,
		Elapsed:         u.Elapsed,
		ReferenceIndex:  u.Index,
		Condition:       r.Condition,
		Feedback:        string(r.Feedback),
		Reason:          r.Reason,
		Method:          string(r.Metrics.Method),
		AvgDistance:     r.Metrics.AvgDistance,
		MaxDistance:     r.Metrics.MaxDistance,
		DistanceQuality: string(r.DistanceQuality),
		Confidence:      r.Confidence,
		Advised:         u.Advised,
	}
}
