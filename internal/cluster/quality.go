package cluster

import (
	"math"
	"sort"
)

// centroids computes the L2-normalized mean vector of every cluster,
// ordered by cluster label. Noise points contribute to no centroid.
func centroids(embeddings [][]float32, labels []int) [][]float64 {
	dim := len(embeddings[0])
	byLabel := clusterIndices(labels)

	out := make([][]float64, 0, len(byLabel))
	for _, c := range byLabel {
		centroid := make([]float64, dim)
		for _, i := range c.idxs {
			for j, x := range embeddings[i] {
				centroid[j] += float64(x)
			}
		}
		var norm float64
		for j := range centroid {
			centroid[j] /= float64(len(c.idxs))
			norm += centroid[j] * centroid[j]
		}
		norm = math.Sqrt(norm)
		if norm > 0 {
			for j := range centroid {
				centroid[j] /= norm
			}
		}
		out = append(out, centroid)
	}
	return out
}

// coherenceScores computes the mean pairwise cosine similarity inside each
// cluster, ordered by cluster label. A single-member cluster is perfectly
// coherent.
func coherenceScores(embeddings [][]float32, labels []int) []float64 {
	byLabel := clusterIndices(labels)
	norms := vectorNorms(embeddings)

	scores := make([]float64, 0, len(byLabel))
	for _, c := range byLabel {
		if len(c.idxs) < 2 {
			scores = append(scores, 1.0)
			continue
		}
		var sum float64
		pairs := 0
		for x := 0; x < len(c.idxs); x++ {
			for y := x + 1; y < len(c.idxs); y++ {
				i, j := c.idxs[x], c.idxs[y]
				sum += cosineSim(embeddings[i], embeddings[j], norms[i], norms[j])
				pairs++
			}
		}
		scores = append(scores, round6(sum/float64(pairs)))
	}
	return scores
}

// silhouette computes the mean silhouette coefficient over non-noise points
// with the cosine metric. Degenerates to 0 with fewer than 2 clusters.
func silhouette(embeddings [][]float32, labels []int) float64 {
	byLabel := clusterIndices(labels)
	if len(byLabel) < 2 {
		return 0.0
	}
	norms := vectorNorms(embeddings)

	dist := func(i, j int) float64 {
		return 1.0 - cosineSim(embeddings[i], embeddings[j], norms[i], norms[j])
	}

	var total float64
	count := 0
	for _, own := range byLabel {
		for _, i := range own.idxs {
			// Mean distance within own cluster; singletons score 0.
			if len(own.idxs) < 2 {
				count++
				continue
			}
			var a float64
			for _, j := range own.idxs {
				if j != i {
					a += dist(i, j)
				}
			}
			a /= float64(len(own.idxs) - 1)

			b := math.Inf(1)
			for _, other := range byLabel {
				if other.label == own.label {
					continue
				}
				var sum float64
				for _, j := range other.idxs {
					sum += dist(i, j)
				}
				if mean := sum / float64(len(other.idxs)); mean < b {
					b = mean
				}
			}

			if max := math.Max(a, b); max > 0 {
				total += (b - a) / max
			}
			count++
		}
	}
	if count < 2 {
		return 0.0
	}
	return round6(total / float64(count))
}

type labelGroup struct {
	label int
	idxs  []int
}

// clusterIndices groups point indices by label, sorted by label, noise
// excluded.
func clusterIndices(labels []int) []labelGroup {
	byLabel := map[int][]int{}
	for i, l := range labels {
		if l == Noise {
			continue
		}
		byLabel[l] = append(byLabel[l], i)
	}
	out := make([]labelGroup, 0, len(byLabel))
	for l, idxs := range byLabel {
		out = append(out, labelGroup{label: l, idxs: idxs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].label < out[j].label })
	return out
}

func vectorNorms(embeddings [][]float32) []float64 {
	norms := make([]float64, len(embeddings))
	for i, e := range embeddings {
		var sum float64
		for _, x := range e {
			sum += float64(x) * float64(x)
		}
		norms[i] = math.Sqrt(sum)
	}
	return norms
}
