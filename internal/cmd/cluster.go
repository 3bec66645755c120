package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ocr-provenance/workers/internal/cluster"
	"github.com/ocr-provenance/workers/internal/worker"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Cluster document embeddings",
	Long: `cluster reads a clustering request as JSON from stdin and writes
the labeled result to stdout. The request selects the algorithm
(hdbscan, agglomerative, kmeans) and carries either embedding vectors
or a precomputed distance matrix.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		var req cluster.Request
		if err := worker.ReadJSON(os.Stdin, &req); err != nil {
			worker.Fail(os.Stdout, err)
			return err
		}

		result, err := cluster.New(rt.logger).Run(&req)
		if err != nil {
			worker.Fail(os.Stdout, err)
			return err
		}
		return worker.Emit(os.Stdout, result)
	},
}

func init() {
	rootCmd.AddCommand(clusterCmd)
}
