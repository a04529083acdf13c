package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/posecoach/internal/motion"
	"github.com/ayusman/posecoach/internal/recording"
)

var (
	referenceOutput string
	referencePose   bool
)

var referenceCmd = &cobra.Command{
	Use:   "reference <recording.jsonl>",
	Short: "Build a reference file from a recording",
	Long: `Subsamples a recording into a sequence reference, or with --pose averages
its frames into a single-pose reference, and writes it as JSON.`,
	Args: cobra.ExactArgs(1),
	Annotations: map[string]string{
		noStore: "true",
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		var ref *motion.Reference
		if referencePose {
			frames, err := readFrames(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			mean, err := motion.Average(frames)
			if err != nil {
				return err
			}
			if ref, err = motion.NewPoseReference(mean); err != nil {
				return err
			}
		} else {
			var err error
			if ref, err = recording.LoadReference(args[0], referenceOptions(cfg)); err != nil {
				return err
			}
		}

		if err := recording.SaveReference(referenceOutput, ref); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s reference with %d frames to %s\n", ref.Kind, ref.Len(), referenceOutput)
		return nil
	},
}

func init() {
	referenceCmd.Flags().StringVarP(&referenceOutput, "output", "o", "reference.json", "output file")
	referenceCmd.Flags().BoolVar(&referencePose, "pose", false, "average all frames into a single pose")
	rootCmd.AddCommand(referenceCmd)
}
