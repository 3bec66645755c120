package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ocr-provenance/workers/internal/extract"
	"github.com/ocr-provenance/workers/internal/worker"
)

var extractOpts extract.Options

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract embedded images from a PDF or DOCX document",
	Long: `extract pulls the raster images embedded in a document into the
output directory and writes a manifest of the kept images to stdout.
Images smaller than --min-size on either side are skipped.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		result, err := extract.New(rt.logger).Run(extractOpts)
		if err != nil {
			worker.Fail(os.Stdout, err)
			return err
		}
		return worker.Emit(os.Stdout, result)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractOpts.Input, "input", "", "document to extract from (.pdf or .docx)")
	extractCmd.Flags().StringVar(&extractOpts.Output, "output", "", "directory for extracted images")
	extractCmd.Flags().IntVar(&extractOpts.MinSize, "min-size", 0, "skip images smaller than this on either side")
	extractCmd.Flags().IntVar(&extractOpts.MaxImages, "max-images", 0, "stop after this many images (0: no limit)")
	_ = extractCmd.MarkFlagRequired("input")
	_ = extractCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(extractCmd)
}
