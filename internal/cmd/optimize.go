package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ocr-provenance/workers/internal/optimize"
	"github.com/ocr-provenance/workers/internal/worker"
)

var (
	optimizeResize  string
	optimizeAnalyze string
	optimizeOutput  string
	optimizeMaxDim  int
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Resize or relevance-score images for the vision pipeline",
	Long: `optimize prepares extracted images for vision-model processing.
--resize bounds the longer side (default 2048px) to control token
usage; --analyze scores an image's relevance and classifies it
(photo, chart, document, logo, icon, decorative) so logos and
decorative graphics can be filtered out before any model call.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		opt := optimize.New(rt.logger)
		var result any
		if optimizeAnalyze != "" {
			result, err = opt.Analyze(optimizeAnalyze)
		} else {
			result, err = opt.Resize(optimizeResize, optimizeOutput, optimizeMaxDim)
		}
		if err != nil {
			worker.Fail(os.Stdout, err)
			return err
		}
		return worker.Emit(os.Stdout, result)
	},
}

func init() {
	optimizeCmd.Flags().StringVar(&optimizeResize, "resize", "", "image to resize for the vision model")
	optimizeCmd.Flags().StringVar(&optimizeAnalyze, "analyze", "", "image to score for vision-model relevance")
	optimizeCmd.Flags().StringVar(&optimizeOutput, "output", "", "output path for the resized image")
	optimizeCmd.Flags().IntVar(&optimizeMaxDim, "max-dimension", optimize.MaxDimension, "bound for the longer image side")
	optimizeCmd.MarkFlagsMutuallyExclusive("resize", "analyze")
	optimizeCmd.MarkFlagsOneRequired("resize", "analyze")
	rootCmd.AddCommand(optimizeCmd)
}
