package segment

import (
	"math"
	"math/rand"
)

// kmeans partitions points into k clusters with Lloyd iterations from a
// seeded k-means++ start. Identical input, k and seed give identical output.
type kmeans struct {
	k         int
	maxIter   int
	rng       *rand.Rand
	centroids [][]float64
	inertia   float64
	iter      int
}

func newKMeans(k, maxIter int, seed int64) *kmeans {
	return &kmeans{k: k, maxIter: maxIter, rng: rand.New(rand.NewSource(seed))}
}

// fit returns each point's cluster index. Callers guarantee at least k distinct points.
func (m *kmeans) fit(X [][]float64) []int {
	n, p := len(X), len(X[0])
	m.initCenters(X)

	assign := make([]int, n)
	for i := range assign {
		assign[i] = -1
	}
	for m.iter = 1; m.iter <= m.maxIter; m.iter++ {
		changed := false
		for i := 0; i < n; i++ {
			best := nearest(X[i], m.centroids)
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float64, m.k)
		counts := make([]int, m.k)
		for c := range sums {
			sums[c] = make([]float64, p)
		}
		for i := 0; i < n; i++ {
			c := assign[i]
			counts[c]++
			for j := 0; j < p; j++ {
				sums[c][j] += X[i][j]
			}
		}
		for c := 0; c < m.k; c++ {
			// an empty cluster keeps its previous centroid
			if counts[c] == 0 {
				continue
			}
			for j := 0; j < p; j++ {
				m.centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}
	if m.iter > m.maxIter {
		m.iter = m.maxIter
	}

	m.inertia = 0
	for i := 0; i < n; i++ {
		m.inertia += euclidSquared(X[i], m.centroids[assign[i]])
	}
	return assign
}

// initCenters picks the first centroid uniformly and each next one with
// probability proportional to its squared distance from the chosen set.
func (m *kmeans) initCenters(X [][]float64) {
	n := len(X)
	m.centroids = make([][]float64, 0, m.k)
	first := m.rng.Intn(n)
	m.centroids = append(m.centroids, append([]float64(nil), X[first]...))

	distSq := make([]float64, n)
	for len(m.centroids) < m.k {
		total := 0.0
		for i, x := range X {
			d := math.MaxFloat64
			for _, c := range m.centroids {
				if v := euclidSquared(x, c); v < d {
					d = v
				}
			}
			distSq[i] = d
			total += d
		}
		r := m.rng.Float64() * total
		pick := -1
		cumulative := 0.0
		for i, d := range distSq {
			if d == 0 {
				continue
			}
			pick = i
			cumulative += d
			if cumulative >= r {
				break
			}
		}
		m.centroids = append(m.centroids, append([]float64(nil), X[pick]...))
	}
}

func nearest(x []float64, centroids [][]float64) int {
	best, bestD := 0, math.MaxFloat64
	for c, ctr := range centroids {
		if d := euclidSquared(x, ctr); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

func euclidSquared(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}
