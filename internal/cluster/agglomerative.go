package cluster

import (
	"fmt"
	"math"

	"github.com/ocr-provenance/workers/internal/domain"
)

// Linkage criteria for agglomerative clustering.
const (
	LinkageAverage  = "average"
	LinkageComplete = "complete"
	LinkageSingle   = "single"
	linkageWard     = "ward"
)

// agglomerate merges clusters bottom-up over the distance matrix until
// nClusters remain, or, when nClusters is zero, until the next merge would
// exceed threshold. Ward linkage requires euclidean feature geometry and is
// rejected for cosine or precomputed distances.
func agglomerate(dist [][]float64, nClusters int, threshold float64, linkage string) ([]int, error) {
	switch linkage {
	case LinkageAverage, LinkageComplete, LinkageSingle:
	case linkageWard:
		return nil, fmt.Errorf("%w: ward linkage is incompatible with cosine distance, use 'average', 'complete' or 'single'",
			domain.ErrInvalidInput)
	default:
		return nil, fmt.Errorf("%w: unknown linkage %q", domain.ErrInvalidInput, linkage)
	}

	n := len(dist)
	if nClusters > n {
		nClusters = n
	}

	members := make(map[int][]int, n)
	link := make(map[int]map[int]float64, n)
	for i := 0; i < n; i++ {
		members[i] = []int{i}
		link[i] = make(map[int]float64, n-1)
		for j := 0; j < n; j++ {
			if i != j {
				link[i][j] = dist[i][j]
			}
		}
	}

	next := n
	for len(members) > 1 {
		if nClusters > 0 && len(members) <= nClusters {
			break
		}

		a, b, best := -1, -1, math.Inf(1)
		for i, row := range link {
			for j, d := range row {
				if i < j && d < best {
					a, b, best = i, j, d
				}
			}
		}
		if nClusters == 0 && best > threshold {
			break
		}

		na := float64(len(members[a]))
		nb := float64(len(members[b]))
		merged := append(append([]int{}, members[a]...), members[b]...)
		delete(members, a)
		delete(members, b)

		newLink := make(map[int]float64, len(members))
		for c := range members {
			da := link[a][c]
			db := link[b][c]
			switch linkage {
			case LinkageSingle:
				newLink[c] = math.Min(da, db)
			case LinkageComplete:
				newLink[c] = math.Max(da, db)
			default:
				newLink[c] = (na*da + nb*db) / (na + nb)
			}
		}
		delete(link, a)
		delete(link, b)

		members[next] = merged
		for c := range newLink {
			delete(link[c], a)
			delete(link[c], b)
			link[c][next] = newLink[c]
		}
		link[next] = newLink
		next++
	}

	return relabel(members, n), nil
}

// relabel assigns dense labels ordered by each cluster's smallest member
// index, so output labels are deterministic.
func relabel(members map[int][]int, n int) []int {
	type group struct {
		min  int
		idxs []int
	}
	groups := make([]group, 0, len(members))
	for _, idxs := range members {
		g := group{min: idxs[0], idxs: idxs}
		for _, i := range idxs {
			if i < g.min {
				g.min = i
			}
		}
		groups = append(groups, g)
	}
	for i := 1; i < len(groups); i++ {
		for j := i; j > 0 && groups[j-1].min > groups[j].min; j-- {
			groups[j-1], groups[j] = groups[j], groups[j-1]
		}
	}

	labels := make([]int, n)
	for label, g := range groups {
		for _, i := range g.idxs {
			labels[i] = label
		}
	}
	return labels
}
