package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ocr-provenance/workers/internal/httpapi"
)

var serveModelPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the embedding HTTP service",
	Long: `serve keeps the embedding model resident and exposes it over HTTP:
POST /v1/embed for document chunks, POST /v1/query for search queries,
plus /healthz and Prometheus /metrics. The server shuts down gracefully
on SIGINT or SIGTERM.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		pipeline, cleanup, err := rt.newPipeline(serveModelPath)
		if err != nil {
			return err
		}
		defer cleanup()

		return httpapi.NewServer(pipeline, rt.logger).Serve(rt.cfg.HTTP)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveModelPath, "model-path", "", "embedding model directory (default: config or $EMBEDDING_MODEL_PATH)")
	rootCmd.AddCommand(serveCmd)
}
