package embed

import "math"

// EmbeddingResult is the wire record of a batch embedding invocation.
// Field names and types are a cross-process contract; consumers parse them
// by name.
type EmbeddingResult struct {
	Success      bool        `json:"success"`
	Embeddings   [][]float32 `json:"embeddings"`
	Count        int         `json:"count"`
	ElapsedMs    float64     `json:"elapsed_ms"`
	MsPerChunk   float64     `json:"ms_per_chunk"`
	Device       string      `json:"device"`
	BatchSize    int         `json:"batch_size"`
	Model        string      `json:"model"`
	ModelVersion string      `json:"model_version"`
	VRAMUsedGB   float64     `json:"vram_used_gb"`
	Error        *string     `json:"error"`
}

// QueryEmbeddingResult is the wire record of a single query embedding.
type QueryEmbeddingResult struct {
	Success   bool      `json:"success"`
	Embedding []float32 `json:"embedding"`
	ElapsedMs float64   `json:"elapsed_ms"`
	Device    string    `json:"device"`
	Model     string    `json:"model"`
	Error     *string   `json:"error"`
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

func errString(err error) *string {
	if err == nil {
		return nil
	}
	s := err.Error()
	return &s
}
