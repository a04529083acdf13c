package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ayusman/posecoach/internal/app"
	"github.com/ayusman/posecoach/internal/recording"
	"github.com/ayusman/posecoach/internal/session"
)

type replayOptions struct {
	Reference string
	Condition string
	Tolerance float64
	NoSync    bool
	Verbose   bool
}

var replayOpts replayOptions

var replayCmd = &cobra.Command{
	Use:   "replay <recording.jsonl>",
	Short: "Run a keypoint recording through the coaching pipeline",
	Long: `Replays a JSON Lines keypoint recording as if it were a live camera feed.
Every frame is rated against the reference (or the condition heuristics when
no reference is given) and recorded in the history.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReplay(cmd, args[0], replayOpts)
	},
}

func init() {
	replayCmd.Flags().StringVarP(&replayOpts.Reference, "reference", "r", "", "reference file (.json) or recording (.jsonl)")
	replayCmd.Flags().StringVarP(&replayOpts.Condition, "condition", "c", "", "condition label for frames without one")
	replayCmd.Flags().Float64VarP(&replayOpts.Tolerance, "tolerance", "t", 0, "tolerance scale in [0.3, 3.0] (default from config)")
	replayCmd.Flags().BoolVar(&replayOpts.NoSync, "no-sync", false, "do not follow the reference along with frame timestamps")
	replayCmd.Flags().BoolVarP(&replayOpts.Verbose, "verbose", "v", false, "print every verdict")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, path string, opts replayOptions) error {
	total, err := countFrames(path)
	if err != nil {
		return err
	}

	sess := session.New()
	tolerance := cfg.Tolerance
	if opts.Tolerance != 0 {
		tolerance = opts.Tolerance
	}
	if _, ok := sess.SetTolerance(tolerance); !ok {
		return fmt.Errorf("invalid tolerance %v", tolerance)
	}

	ref, err := loadReference(cfg, opts.Reference)
	if err != nil {
		return err
	}
	sess.LoadReference(ref)

	classifier, err := newClassifier(cfg, opts.Condition)
	if err != nil {
		return err
	}
	adv, err := newAdvisor(cfg)
	if err != nil {
		return err
	}

	src, err := recording.Open(path)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Replaying"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	out := cmd.OutOrStdout()
	pipeline := app.New(app.Config{
		Source:     src,
		Classifier: classifier,
		Advisor:    adv,
		Store:      history,
		Session:    sess,
		AutoSync:   !opts.NoSync,
		SourceName: path,
		Sink: func(u app.Update) {
			bar.Add(1)
			if opts.Verbose {
				bar.Clear()
				fmt.Fprintf(out, "%6d  %8.2fs  ref %-4d %-13s %s\n",
					u.Frame, u.Elapsed.Seconds(), u.Index, u.Result.Feedback, u.Result.Reason)
			}
		},
	})
	defer pipeline.Close()

	runErr := pipeline.Run(cmd.Context())
	bar.Finish()
	if runErr != nil && !errors.Is(runErr, cmd.Context().Err()) {
		return runErr
	}

	stats := pipeline.Stats()
	fmt.Fprintf(out, "Session %s: %d frames, %d good, %d bad, %d not evaluated\n",
		pipeline.HistoryID(), stats.Frames, stats.Good, stats.Bad, stats.NoEvaluation)
	if stats.AdvisorErrors > 0 || stats.ClassifierErrors > 0 {
		fmt.Fprintf(out, "Advisor errors: %d, classifier errors: %d\n", stats.AdvisorErrors, stats.ClassifierErrors)
	}
	if history != nil && pipeline.HistoryID() != "" {
		sum, err := history.Evaluations().Summary(pipeline.HistoryID())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Good ratio: %.0f%%", 100*sum.GoodRatio())
		if sum.MeanAvgDistance != nil {
			fmt.Fprintf(out, ", mean distance %.3f", *sum.MeanAvgDistance)
		}
		fmt.Fprintln(out)
	}
	return runErr
}

// countFrames counts the non-blank lines of a recording.
func countFrames(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) > 0 {
			n++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read recording: %w", err)
	}
	return n, nil
}
