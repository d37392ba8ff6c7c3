package segment

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/alwiharda/BusinessIntelligence/internal/dataset"
)

// ErrInsufficientData is returned when there are fewer usable rows, or fewer
// distinct points, than requested clusters. Callers skip segmentation.
var ErrInsufficientData = errors.New("insufficient data for clustering")

// Options configures Cluster.
type Options struct {
	// Features are the numeric columns clustered on.
	Features []string
	K        int
	Seed     int64
	MaxIter  int
	// Column is the name of the appended label column.
	Column string
}

// DefaultOptions returns the dashboard's fixed three-cluster setup.
func DefaultOptions(features ...string) Options {
	return Options{Features: features, K: 3, Seed: 42, MaxIter: 300, Column: "cluster"}
}

// Result holds the labeled table and the fitted model.
type Result struct {
	// Table is the input with the label column appended. Rows excluded for a
	// missing feature carry a missing label.
	Table      *dataset.Table
	Labels     []int // -1 for excluded rows
	Features   []string
	Centroids  [][]float64 // per cluster, in original feature units
	Sizes      []int
	Iterations int
	Inertia    float64 // on standardized features
}

// Cluster standardizes the feature columns and partitions rows into opt.K
// clusters. Cluster indices carry no order; use RankLabels for stable names.
func Cluster(t *dataset.Table, opt Options) (*Result, error) {
	if opt.K <= 0 {
		return nil, fmt.Errorf("cluster: k must be positive, got %d", opt.K)
	}
	if len(opt.Features) == 0 {
		return nil, errors.New("cluster: no feature columns")
	}
	if opt.MaxIter <= 0 {
		opt.MaxIter = 300
	}
	if opt.Column == "" {
		opt.Column = "cluster"
	}
	for _, f := range opt.Features {
		c, ok := t.Column(f)
		if !ok {
			return nil, fmt.Errorf("cluster on column %q: %w", f, dataset.ErrSchemaMismatch)
		}
		if c.Kind != dataset.Int && c.Kind != dataset.Float {
			return nil, fmt.Errorf("cluster: column %q is %s, not numeric", f, c.Kind)
		}
	}

	var raw [][]float64
	var rowIdx []int
	for i := 0; i < t.Len(); i++ {
		pt := make([]float64, len(opt.Features))
		ok := true
		for j, f := range opt.Features {
			v, present := t.Value(i, f).Number()
			if !present {
				ok = false
				break
			}
			pt[j] = v
		}
		if ok {
			raw = append(raw, pt)
			rowIdx = append(rowIdx, i)
		}
	}
	if len(raw) < opt.K {
		return nil, fmt.Errorf("%w: %d usable rows for k=%d", ErrInsufficientData, len(raw), opt.K)
	}
	if d := distinctPoints(raw); d < opt.K {
		return nil, fmt.Errorf("%w: %d distinct points for k=%d", ErrInsufficientData, d, opt.K)
	}

	X := Standardize(raw)
	m := newKMeans(opt.K, opt.MaxIter, opt.Seed)
	assign := m.fit(X)

	labels := make([]int, t.Len())
	values := make([]dataset.Value, t.Len())
	for i := range labels {
		labels[i] = -1
		values[i] = dataset.MissingValue(dataset.Int)
	}
	sizes := make([]int, opt.K)
	sums := make([][]float64, opt.K)
	for c := range sums {
		sums[c] = make([]float64, len(opt.Features))
	}
	for n, i := range rowIdx {
		c := assign[n]
		labels[i] = c
		values[i] = dataset.IntValue(int64(c))
		sizes[c]++
		for j, v := range raw[n] {
			sums[c][j] += v
		}
	}
	centroids := make([][]float64, opt.K)
	for c := range centroids {
		centroids[c] = make([]float64, len(opt.Features))
		if sizes[c] == 0 {
			continue
		}
		for j := range centroids[c] {
			centroids[c][j] = sums[c][j] / float64(sizes[c])
		}
	}

	labeled, err := t.WithColumn(dataset.Column{Name: opt.Column, Kind: dataset.Int}, values)
	if err != nil {
		return nil, fmt.Errorf("cluster: %w", err)
	}
	return &Result{
		Table:      labeled,
		Labels:     labels,
		Features:   append([]string(nil), opt.Features...),
		Centroids:  centroids,
		Sizes:      sizes,
		Iterations: m.iter,
		Inertia:    m.inertia,
	}, nil
}

// Standardize rescales each column to zero mean and unit population variance.
// A constant column becomes all zeros.
func Standardize(X [][]float64) [][]float64 {
	if len(X) == 0 {
		return nil
	}
	rows, cols := len(X), len(X[0])
	means := make([]float64, cols)
	stds := make([]float64, cols)
	for j := 0; j < cols; j++ {
		sum := 0.0
		for i := 0; i < rows; i++ {
			sum += X[i][j]
		}
		means[j] = sum / float64(rows)
		ss := 0.0
		for i := 0; i < rows; i++ {
			d := X[i][j] - means[j]
			ss += d * d
		}
		stds[j] = math.Sqrt(ss / float64(rows))
	}
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			if stds[j] != 0 {
				out[i][j] = (X[i][j] - means[j]) / stds[j]
			}
		}
	}
	return out
}

func distinctPoints(X [][]float64) int {
	seen := map[string]struct{}{}
	for _, p := range X {
		seen[fmt.Sprint(p)] = struct{}{}
	}
	return len(seen)
}

// RankLabels names clusters by ascending centroid value of feature, so names
// follow a property of the cluster rather than its index. names must have one
// entry per cluster; the lowest centroid gets names[0].
func RankLabels(res *Result, feature string, names []string) (map[int]string, error) {
	j := -1
	for i, f := range res.Features {
		if f == feature {
			j = i
			break
		}
	}
	if j < 0 {
		return nil, fmt.Errorf("rank labels: %q is not a clustered feature", feature)
	}
	if len(names) != len(res.Centroids) {
		return nil, fmt.Errorf("rank labels: %d names for %d clusters", len(names), len(res.Centroids))
	}
	order := make([]int, len(res.Centroids))
	for c := range order {
		order[c] = c
	}
	sort.SliceStable(order, func(a, b int) bool {
		return res.Centroids[order[a]][j] < res.Centroids[order[b]][j]
	})
	out := make(map[int]string, len(order))
	for rank, c := range order {
		out[c] = names[rank]
	}
	return out, nil
}
