package cluster

import (
	"math"
	"math/rand"
)

// clusteringSeed fixes initialization so repeated runs over the same input
// produce the same partition.
const clusteringSeed = 42

const kmeansMaxIterations = 100

// defaultK is the sqrt(N) heuristic clamped to [2, N-1].
func defaultK(n int) int {
	k := int(math.Sqrt(float64(n)))
	if k < 2 {
		k = 2
	}
	if k > n-1 {
		k = n - 1
	}
	return k
}

// kMeans runs Lloyd's algorithm with k-means++ seeding over raw embeddings.
func kMeans(embeddings [][]float32, k int) []int {
	n := len(embeddings)
	if k <= 0 {
		k = defaultK(n)
	}
	if k > n {
		k = n
	}
	dim := len(embeddings[0])

	points := make([][]float64, n)
	for i, e := range embeddings {
		points[i] = make([]float64, dim)
		for j, x := range e {
			points[i][j] = float64(x)
		}
	}

	rng := rand.New(rand.NewSource(clusteringSeed))
	centers := seedPlusPlus(points, k, rng)

	labels := make([]int, n)
	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i, p := range points {
			best, bestDist := 0, math.Inf(1)
			for c, center := range centers {
				if d := sqEuclidean(p, center); d < bestDist {
					best, bestDist = c, d
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		counts := make([]int, k)
		next := make([][]float64, k)
		for c := range next {
			next[c] = make([]float64, dim)
		}
		for i, p := range points {
			c := labels[i]
			counts[c]++
			for j, x := range p {
				next[c][j] += x
			}
		}
		for c := range next {
			if counts[c] == 0 {
				// Re-seed an emptied center on the farthest point.
				next[c] = append([]float64(nil), points[farthestPoint(points, centers)]...)
				continue
			}
			for j := range next[c] {
				next[c][j] /= float64(counts[c])
			}
		}
		centers = next
	}
	return labels
}

// seedPlusPlus picks initial centers with k-means++ weighting.
func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	centers := make([][]float64, 0, k)
	centers = append(centers, append([]float64(nil), points[rng.Intn(n)]...))

	minDist := make([]float64, n)
	for len(centers) < k {
		var total float64
		for i, p := range points {
			d := math.Inf(1)
			for _, c := range centers {
				if sq := sqEuclidean(p, c); sq < d {
					d = sq
				}
			}
			minDist[i] = d
			total += d
		}
		if total == 0 {
			// All remaining points coincide with a center.
			centers = append(centers, append([]float64(nil), points[rng.Intn(n)]...))
			continue
		}
		target := rng.Float64() * total
		idx := 0
		for i, d := range minDist {
			target -= d
			if target <= 0 {
				idx = i
				break
			}
		}
		centers = append(centers, append([]float64(nil), points[idx]...))
	}
	return centers
}

func farthestPoint(points, centers [][]float64) int {
	best, bestDist := 0, -1.0
	for i, p := range points {
		d := math.Inf(1)
		for _, c := range centers {
			if sq := sqEuclidean(p, c); sq < d {
				d = sq
			}
		}
		if d > bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func sqEuclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// kMedoids partitions points given only a distance matrix, used when the
// request carries precomputed distances that k-means cannot consume.
func kMedoids(dist [][]float64, k int) []int {
	n := len(dist)
	if k <= 0 {
		k = defaultK(n)
	}
	if k > n {
		k = n
	}

	// Deterministic farthest-first medoid seeding.
	medoids := []int{0}
	for len(medoids) < k {
		best, bestDist := -1, -1.0
		for i := 0; i < n; i++ {
			d := math.Inf(1)
			for _, m := range medoids {
				if dist[i][m] < d {
					d = dist[i][m]
				}
			}
			if d > bestDist {
				best, bestDist = i, d
			}
		}
		medoids = append(medoids, best)
	}

	labels := make([]int, n)
	for iter := 0; iter < kmeansMaxIterations; iter++ {
		for i := 0; i < n; i++ {
			best, bestDist := 0, math.Inf(1)
			for c, m := range medoids {
				if dist[i][m] < bestDist {
					best, bestDist = c, dist[i][m]
				}
			}
			labels[i] = best
		}

		changed := false
		for c := range medoids {
			best, bestCost := medoids[c], math.Inf(1)
			for i := 0; i < n; i++ {
				if labels[i] != c {
					continue
				}
				var cost float64
				for j := 0; j < n; j++ {
					if labels[j] == c {
						cost += dist[i][j]
					}
				}
				if cost < bestCost {
					best, bestCost = i, cost
				}
			}
			if medoids[c] != best {
				medoids[c] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return labels
}
