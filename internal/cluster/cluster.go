// Package cluster groups document embeddings into topical clusters. Three
// algorithms are supported: density clustering with noise detection,
// agglomerative linkage clustering, and k-means.
package cluster

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ocr-provenance/workers/internal/domain"
)

// Algorithm names accepted in requests.
const (
	AlgorithmHDBSCAN       = "hdbscan"
	AlgorithmAgglomerative = "agglomerative"
	AlgorithmKMeans        = "kmeans"
)

// Defaults applied when a request leaves parameters unset.
const (
	DefaultMinClusterSize    = 3
	DefaultDistanceThreshold = 1.0
	DefaultLinkage           = LinkageAverage
)

// Noise is the label assigned to points no cluster claims.
const Noise = -1

// Request is the clustering input document.
type Request struct {
	Embeddings        [][]float32 `json:"embeddings"`
	DocumentIDs       []string    `json:"document_ids,omitempty"`
	Algorithm         string      `json:"algorithm,omitempty"`
	NClusters         int         `json:"n_clusters,omitempty"`
	MinClusterSize    int         `json:"min_cluster_size,omitempty"`
	DistanceThreshold float64     `json:"distance_threshold,omitempty"`
	Linkage           string      `json:"linkage,omitempty"`
	DistanceMatrix    [][]float64 `json:"distance_matrix,omitempty"`
}

// Result is the clustering output document.
type Result struct {
	Success         bool        `json:"success"`
	Labels          []int       `json:"labels"`
	Probabilities   []float64   `json:"probabilities"`
	Centroids       [][]float64 `json:"centroids"`
	NClusters       int         `json:"n_clusters"`
	NoiseCount      int         `json:"noise_count"`
	NoiseIndices    []int       `json:"noise_indices"`
	SilhouetteScore float64     `json:"silhouette_score"`
	CoherenceScores []float64   `json:"coherence_scores"`
	ElapsedMs       float64     `json:"elapsed_ms"`
}

// Clusterer runs clustering requests.
type Clusterer struct {
	logger *zap.Logger
}

// New creates a clusterer.
func New(logger *zap.Logger) *Clusterer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Clusterer{logger: logger}
}

// validate checks the request shape and applies defaults in place.
func (c *Clusterer) validate(req *Request) error {
	n := len(req.Embeddings)
	if n == 0 {
		return fmt.Errorf("%w: missing required field 'embeddings'", domain.ErrInvalidInput)
	}
	if n < 2 {
		return fmt.Errorf("%w: at least 2 documents required for clustering, got %d", domain.ErrInvalidInput, n)
	}
	dim := len(req.Embeddings[0])
	if dim == 0 {
		return fmt.Errorf("%w: embeddings must be non-empty vectors", domain.ErrInvalidInput)
	}
	for i, e := range req.Embeddings {
		if len(e) != dim {
			return fmt.Errorf("%w: embedding %d has %d dimensions, expected %d", domain.ErrInvalidInput, i, len(e), dim)
		}
	}
	if len(req.DocumentIDs) > 0 && len(req.DocumentIDs) != n {
		return fmt.Errorf("%w: document_ids length (%d) does not match embeddings count (%d)",
			domain.ErrInvalidInput, len(req.DocumentIDs), n)
	}

	if req.Algorithm == "" {
		req.Algorithm = AlgorithmHDBSCAN
	}
	switch req.Algorithm {
	case AlgorithmHDBSCAN, AlgorithmAgglomerative, AlgorithmKMeans:
	default:
		return fmt.Errorf("%w: unknown algorithm %q, must be one of: hdbscan, agglomerative, kmeans",
			domain.ErrInvalidInput, req.Algorithm)
	}

	if req.MinClusterSize <= 0 {
		req.MinClusterSize = DefaultMinClusterSize
	}
	if req.DistanceThreshold <= 0 {
		req.DistanceThreshold = DefaultDistanceThreshold
	}
	if req.Linkage == "" {
		req.Linkage = DefaultLinkage
	}

	if req.DistanceMatrix != nil {
		if len(req.DistanceMatrix) != n {
			return fmt.Errorf("%w: distance_matrix has %d rows, expected %d", domain.ErrInvalidInput, len(req.DistanceMatrix), n)
		}
		for i, row := range req.DistanceMatrix {
			if len(row) != n {
				return fmt.Errorf("%w: distance_matrix row %d has %d columns, expected %d", domain.ErrInvalidInput, i, len(row), n)
			}
		}
	}
	return nil
}

// Run validates the request, dispatches the algorithm and assembles the
// full result document with quality metrics.
func (c *Clusterer) Run(req *Request) (*Result, error) {
	start := time.Now()

	if err := c.validate(req); err != nil {
		return nil, err
	}

	dist := req.DistanceMatrix
	if dist == nil {
		dist = cosineDistances(req.Embeddings)
	}

	var (
		labels []int
		probs  []float64
		err    error
	)
	switch req.Algorithm {
	case AlgorithmHDBSCAN:
		labels, probs = densityCluster(dist, req.MinClusterSize)
	case AlgorithmAgglomerative:
		labels, err = agglomerate(dist, req.NClusters, req.DistanceThreshold, req.Linkage)
		probs = onesVector(len(labels))
	case AlgorithmKMeans:
		if req.DistanceMatrix != nil {
			labels = kMedoids(req.DistanceMatrix, req.NClusters)
		} else {
			labels = kMeans(req.Embeddings, req.NClusters)
		}
		probs = onesVector(len(labels))
	}
	if err != nil {
		return nil, err
	}

	noiseIndices := []int{}
	clusterSet := map[int]struct{}{}
	for i, l := range labels {
		if l == Noise {
			noiseIndices = append(noiseIndices, i)
			continue
		}
		clusterSet[l] = struct{}{}
	}

	rounded := make([]float64, len(probs))
	for i, p := range probs {
		rounded[i] = round6(p)
	}

	c.logger.Info("Clustering complete",
		zap.String("algorithm", req.Algorithm),
		zap.Int("documents", len(req.Embeddings)),
		zap.Int("clusters", len(clusterSet)),
		zap.Int("noise", len(noiseIndices)))

	return &Result{
		Success:         true,
		Labels:          labels,
		Probabilities:   rounded,
		Centroids:       centroids(req.Embeddings, labels),
		NClusters:       len(clusterSet),
		NoiseCount:      len(noiseIndices),
		NoiseIndices:    noiseIndices,
		SilhouetteScore: silhouette(req.Embeddings, labels),
		CoherenceScores: coherenceScores(req.Embeddings, labels),
		ElapsedMs:       round2(float64(time.Since(start).Microseconds()) / 1000),
	}, nil
}

func onesVector(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1.0
	}
	return out
}
