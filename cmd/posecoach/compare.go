package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/posecoach/internal/evaluator"
	"github.com/ayusman/posecoach/internal/motion"
	"github.com/ayusman/posecoach/internal/pose"
	"github.com/ayusman/posecoach/internal/recording"
)

var (
	compareCostOnly  bool
	compareTolerance float64
)

var compareCmd = &cobra.Command{
	Use:   "compare <a.jsonl> <b.jsonl>",
	Short: "Align two recordings with DTW and rate the match",
	Args:  cobra.ExactArgs(2),
	Annotations: map[string]string{
		noStore: "true",
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := readFrames(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		b, err := readFrames(cmd.Context(), args[1])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if compareCostOnly {
			fmt.Fprintf(out, "total cost %.4f\n", motion.DTWCost(a, b, motion.MeanDistance))
			return nil
		}

		al := motion.DTW(a, b, motion.MeanDistance)
		if !al.Comparable() {
			return fmt.Errorf("recordings have no comparable frames")
		}

		tolerance := cfg.Tolerance
		if compareTolerance > 0 {
			tolerance = compareTolerance
		}
		fb, reason := evaluator.SequenceThresholds.Classify(al.AvgDistance, al.MaxDistance, tolerance)

		fmt.Fprintf(out, "frames      %d x %d\n", len(a), len(b))
		fmt.Fprintf(out, "path        %d steps\n", al.PathLength)
		fmt.Fprintf(out, "total cost  %.4f\n", al.TotalCost)
		fmt.Fprintf(out, "avg         %.4f\n", al.AvgDistance)
		fmt.Fprintf(out, "max         %.4f\n", al.MaxDistance)
		fmt.Fprintf(out, "verdict     %s (%s)\n", fb, reason)
		return nil
	},
}

func init() {
	compareCmd.Flags().BoolVar(&compareCostOnly, "cost-only", false, "print only the total DTW cost (low-memory)")
	compareCmd.Flags().Float64VarP(&compareTolerance, "tolerance", "t", 0, "tolerance scale (default from config)")
	rootCmd.AddCommand(compareCmd)
}

// readFrames loads the non-empty frames of a recording.
func readFrames(ctx context.Context, path string) ([]pose.Landmarks, error) {
	r, err := recording.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	samples, err := recording.ReadAll(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	frames := make([]pose.Landmarks, 0, len(samples))
	for _, s := range samples {
		if len(s.Landmarks) > 0 {
			frames = append(frames, s.Landmarks)
		}
	}
	return frames, nil
}
