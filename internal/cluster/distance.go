package cluster

import "math"

// cosineDistances builds the full pairwise cosine distance matrix.
func cosineDistances(embeddings [][]float32) [][]float64 {
	n := len(embeddings)
	norms := make([]float64, n)
	for i, e := range embeddings {
		var sum float64
		for _, x := range e {
			sum += float64(x) * float64(x)
		}
		norms[i] = math.Sqrt(sum)
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := 1.0 - cosineSim(embeddings[i], embeddings[j], norms[i], norms[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}

func cosineSim(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }
