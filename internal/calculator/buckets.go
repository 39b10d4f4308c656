package calculator

import (
	"errors"
	"fmt"
	"math"
)

// Buckets classifies drawdown percentages into labelled half-open ranges.
// Edges are cut points: [-inf, e0) -> labels[0], [e0, e1) -> labels[1], ...,
// [eN, +inf) -> labels[N+1]. Every value falls into exactly one bucket.
type Buckets struct {
	edges  []float64
	labels []string
}

// DefaultBuckets is the standard 7-level drawdown table.
var DefaultBuckets = Buckets{
	edges:  []float64{-30, -20, -10, -5, 0, 10},
	labels: []string{"extreme", "severe", "substantial", "moderate", "mild", "gain", "strong gain"},
}

// NewBuckets validates the cut points and labels.
func NewBuckets(edges []float64, labels []string) (Buckets, error) {
	if len(labels) != len(edges)+1 {
		return Buckets{}, fmt.Errorf("buckets: need %d labels for %d edges, got %d", len(edges)+1, len(edges), len(labels))
	}
	for i, e := range edges {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			return Buckets{}, fmt.Errorf("buckets: edge %d is not finite", i)
		}
		if i > 0 && e <= edges[i-1] {
			return Buckets{}, errors.New("buckets: edges must be strictly increasing")
		}
	}
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if l == "" {
			return Buckets{}, errors.New("buckets: empty label")
		}
		if seen[l] {
			return Buckets{}, fmt.Errorf("buckets: duplicate label %q", l)
		}
		seen[l] = true
	}
	return Buckets{
		edges:  append([]float64(nil), edges...),
		labels: append([]string(nil), labels...),
	}, nil
}

// Labels returns the bucket labels in order.
func (b Buckets) Labels() []string {
	return append([]string(nil), b.labels...)
}

// Classify returns the label of the first bucket whose upper edge exceeds pct.
func (b Buckets) Classify(pct float64) string {
	for i, e := range b.edges {
		if pct < e {
			return b.labels[i]
		}
	}
	return b.labels[len(b.labels)-1]
}

// Range returns the [lower, upper) bounds of the labelled bucket.
func (b Buckets) Range(label string) (lower, upper float64, ok bool) {
	for i, l := range b.labels {
		if l != label {
			continue
		}
		lower, upper = math.Inf(-1), math.Inf(1)
		if i > 0 {
			lower = b.edges[i-1]
		}
		if i < len(b.edges) {
			upper = b.edges[i]
		}
		return lower, upper, true
	}
	return 0, 0, false
}
