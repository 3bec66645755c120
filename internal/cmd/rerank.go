package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ocr-provenance/workers/internal/rerank"
	"github.com/ocr-provenance/workers/internal/worker"
)

var rerankModelPath string

var rerankCmd = &cobra.Command{
	Use:   "rerank",
	Short: "Rerank search passages against a query",
	Long: `rerank reads a query and candidate passages as JSON from stdin,
scores each passage against the query with the embedding model, and
writes the passages back as a JSON array sorted by relevance.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		var req rerank.Request
		if err := worker.ReadJSON(os.Stdin, &req); err != nil {
			worker.Fail(os.Stdout, err)
			return err
		}

		pipeline, cleanup, err := rt.newPipeline(rerankModelPath)
		if err != nil {
			worker.Fail(os.Stdout, err)
			return err
		}
		defer cleanup()

		scored, err := rerank.New(pipeline, rt.logger).Rerank(cmd.Context(), &req)
		if err != nil {
			worker.Fail(os.Stdout, err)
			return err
		}
		return worker.Emit(os.Stdout, scored)
	},
}

func init() {
	rerankCmd.Flags().StringVar(&rerankModelPath, "model-path", "", "embedding model directory (default: config or $EMBEDDING_MODEL_PATH)")
	rootCmd.AddCommand(rerankCmd)
}
