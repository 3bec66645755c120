package cluster

import (
	"math"
	"sort"
)

// densityCluster is a density-based clustering over the mutual-reachability
// graph: core distances soften the metric around sparse points, a minimum
// spanning tree captures the density structure, and the largest weight gap
// in the tree picks the cut level. Components smaller than minClusterSize
// are noise (label -1, membership 0). Points in clusters receive a
// membership strength in (0, 1] from the edge that attached them, so border
// points score lower than core points.
func densityCluster(dist [][]float64, minClusterSize int) ([]int, []float64) {
	n := len(dist)
	if minClusterSize < 2 {
		minClusterSize = 2
	}

	core := coreDistances(dist, minClusterSize)
	mreach := func(i, j int) float64 {
		return math.Max(dist[i][j], math.Max(core[i], core[j]))
	}

	edges := minimumSpanningTree(n, mreach)
	cut := cutWeight(edges)

	// Union components over edges below the cut.
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	attach := make([]float64, n) // weight of the edge that joined each point
	for _, e := range edges {
		if e.weight > cut {
			continue
		}
		ra, rb := find(e.a), find(e.b)
		if ra != rb {
			parent[ra] = rb
		}
		if e.weight > attach[e.a] {
			attach[e.a] = e.weight
		}
		if e.weight > attach[e.b] {
			attach[e.b] = e.weight
		}
	}

	sizes := map[int]int{}
	for i := 0; i < n; i++ {
		sizes[find(i)]++
	}

	labels := make([]int, n)
	nextLabel := 0
	rootLabel := map[int]int{}
	for i := 0; i < n; i++ {
		root := find(i)
		if sizes[root] < minClusterSize {
			labels[i] = Noise
			continue
		}
		l, ok := rootLabel[root]
		if !ok {
			l = nextLabel
			rootLabel[root] = l
			nextLabel++
		}
		labels[i] = l
	}

	return labels, membershipStrengths(labels, attach)
}

// coreDistances returns each point's distance to its k-th nearest neighbor
// (k = minClusterSize, self excluded).
func coreDistances(dist [][]float64, minClusterSize int) []float64 {
	n := len(dist)
	k := minClusterSize
	if k > n-1 {
		k = n - 1
	}
	core := make([]float64, n)
	row := make([]float64, 0, n-1)
	for i := 0; i < n; i++ {
		row = row[:0]
		for j := 0; j < n; j++ {
			if j != i {
				row = append(row, dist[i][j])
			}
		}
		sort.Float64s(row)
		core[i] = row[k-1]
	}
	return core
}

type mstEdge struct {
	a, b   int
	weight float64
}

// minimumSpanningTree runs Prim's algorithm over the implicit complete
// graph defined by weight.
func minimumSpanningTree(n int, weight func(i, j int) float64) []mstEdge {
	inTree := make([]bool, n)
	bestDist := make([]float64, n)
	bestFrom := make([]int, n)
	for i := range bestDist {
		bestDist[i] = math.Inf(1)
	}

	inTree[0] = true
	for j := 1; j < n; j++ {
		bestDist[j] = weight(0, j)
		bestFrom[j] = 0
	}

	edges := make([]mstEdge, 0, n-1)
	for len(edges) < n-1 {
		next, nextDist := -1, math.Inf(1)
		for j := 0; j < n; j++ {
			if !inTree[j] && bestDist[j] < nextDist {
				next, nextDist = j, bestDist[j]
			}
		}
		edges = append(edges, mstEdge{a: bestFrom[next], b: next, weight: nextDist})
		inTree[next] = true
		for j := 0; j < n; j++ {
			if !inTree[j] {
				if w := weight(next, j); w < bestDist[j] {
					bestDist[j] = w
					bestFrom[j] = next
				}
			}
		}
	}
	return edges
}

// cutWeight finds the level separating intra-cluster edges from bridge
// edges: the largest relative gap in the upper half of the sorted tree
// weights. A tree with no meaningful gap keeps all edges (single cluster).
func cutWeight(edges []mstEdge) float64 {
	weights := make([]float64, len(edges))
	for i, e := range edges {
		weights[i] = e.weight
	}
	sort.Float64s(weights)

	top := weights[len(weights)-1]
	if len(weights) < 2 {
		return top
	}

	gapAt, gap := -1, 0.0
	for i := len(weights) / 2; i < len(weights)-1; i++ {
		if d := weights[i+1] - weights[i]; d > gap {
			gapAt, gap = i, d
		}
	}

	// Require the gap to dominate the weight spread, otherwise the tree is
	// one density regime and should stay connected.
	spread := top - weights[0]
	if gapAt < 0 || spread == 0 || gap < spread/4 {
		return top
	}
	return weights[gapAt]
}

// membershipStrengths scales each clustered point's attachment edge into a
// strength in (0, 1]: points joined by short edges sit deep in the cluster.
func membershipStrengths(labels []int, attach []float64) []float64 {
	maxAttach := map[int]float64{}
	for i, l := range labels {
		if l == Noise {
			continue
		}
		if attach[i] > maxAttach[l] {
			maxAttach[l] = attach[i]
		}
	}

	probs := make([]float64, len(labels))
	for i, l := range labels {
		if l == Noise {
			continue
		}
		if m := maxAttach[l]; m > 0 {
			probs[i] = 1.0 - attach[i]/(2*m)
		} else {
			probs[i] = 1.0
		}
	}
	return probs
}
