package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ocr-provenance/workers/internal/formfill"
	"github.com/ocr-provenance/workers/internal/worker"
)

var (
	formfillInput  string
	formfillData   string
	formfillOutput string
	formfillList   bool
)

var formfillCmd = &cobra.Command{
	Use:   "formfill",
	Short: "Fill or inspect PDF form fields",
	Long: `formfill writes field values from a JSON file into a PDF form.
The data file is either a flat {"field": value} object or a native
pdfcpu form document; flat values map strings to text fields and
booleans to checkboxes. With --list the form's fields are reported
instead and no output file is written.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		filler := formfill.New(rt.logger)
		var result *formfill.Result
		if formfillList {
			result, err = filler.List(formfillInput)
		} else {
			result, err = filler.Fill(formfillInput, formfillData, formfillOutput)
		}
		if err != nil {
			worker.Fail(os.Stdout, err)
			return err
		}
		return worker.Emit(os.Stdout, result)
	},
}

func init() {
	formfillCmd.Flags().StringVar(&formfillInput, "input", "", "PDF form to fill or inspect")
	formfillCmd.Flags().StringVar(&formfillData, "data", "", "JSON file with field values")
	formfillCmd.Flags().StringVar(&formfillOutput, "output", "", "path for the filled PDF")
	formfillCmd.Flags().BoolVar(&formfillList, "list", false, "list form fields instead of filling")
	_ = formfillCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(formfillCmd)
}
