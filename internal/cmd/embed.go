package cmd

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ocr-provenance/workers/internal/worker"
)

var (
	flagChunks    []string
	flagQuery     string
	flagStdin     bool
	flagBatchSize int
	flagDevice    string
	flagModelPath string
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Generate embeddings for document chunks or a search query",
	Long: `embed runs texts through the embedding model and writes the result
record to stdout. Document chunks come from --chunks or, with --stdin,
a JSON array of strings on stdin; --query embeds a single search query
with the query task prefix instead.

Model failures still produce a result record carrying success=false
and the error message, but the process then exits 1 so callers can
branch on the exit status alone.`,
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().StringArrayVar(&flagChunks, "chunks", nil, "texts to embed (repeatable)")
	embedCmd.Flags().StringVar(&flagQuery, "query", "", "search query to embed")
	embedCmd.Flags().BoolVar(&flagStdin, "stdin", false, "read a JSON array of texts from stdin")
	embedCmd.Flags().IntVar(&flagBatchSize, "batch-size", 0, "initial batch size (default: config)")
	embedCmd.Flags().StringVar(&flagDevice, "device", "", "device request: auto, cuda, cuda:N, mps, cpu (default: config)")
	embedCmd.Flags().StringVar(&flagModelPath, "model-path", "", "embedding model directory (default: config or $EMBEDDING_MODEL_PATH)")
	embedCmd.MarkFlagsMutuallyExclusive("chunks", "query", "stdin")
	embedCmd.MarkFlagsOneRequired("chunks", "query", "stdin")
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	pipeline, cleanup, err := rt.newPipeline(flagModelPath)
	if err != nil {
		worker.Fail(os.Stdout, err)
		return err
	}
	defer cleanup()

	dev := flagDevice
	if dev == "" {
		dev = rt.cfg.Embedding.Device
	}

	if flagQuery != "" {
		result := pipeline.GenerateQuery(cmd.Context(), flagQuery, dev)
		return emitRecord(os.Stdout, result, result.Success, result.Error)
	}

	chunks := flagChunks
	if flagStdin {
		if err := worker.ReadJSON(os.Stdin, &chunks); err != nil {
			worker.Fail(os.Stdout, err)
			return err
		}
	}

	batch := flagBatchSize
	if batch <= 0 {
		batch = rt.cfg.Embedding.BatchSize
	}

	result := pipeline.Generate(cmd.Context(), chunks, batch, dev)
	return emitRecord(os.Stdout, result, result.Success, result.Error)
}

// emitRecord writes the result document and surfaces a failed record as a
// command error, so the exit status tracks the record's success flag even
// though the document itself was emitted.
func emitRecord(w io.Writer, v any, success bool, errMsg *string) error {
	if err := worker.Emit(w, v); err != nil {
		return err
	}
	if success {
		return nil
	}
	if errMsg != nil && *errMsg != "" {
		return errors.New(*errMsg)
	}
	return errors.New("embedding failed")
}
