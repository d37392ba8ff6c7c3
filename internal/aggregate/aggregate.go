package aggregate

import (
	"math"

	"github.com/alwiharda/BusinessIntelligence/internal/dataset"
	"github.com/shopspring/decimal"
)

// Predicate tests row i of a table.
type Predicate func(t *dataset.Table, i int) bool

// Equals matches rows whose column renders as value.
func Equals(col, value string) Predicate {
	return func(t *dataset.Table, i int) bool {
		return t.Value(i, col).String() == value
	}
}

// In matches rows whose column renders as any of values.
func In(col string, values ...string) Predicate {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return func(t *dataset.Table, i int) bool {
		_, ok := set[t.Value(i, col).String()]
		return ok
	}
}

// Count is the number of rows.
func Count(t *dataset.Table) int { return t.Len() }

// Rate is the fraction of rows satisfying p, 0 for an empty table.
func Rate(t *dataset.Table, p Predicate) float64 {
	n := t.Len()
	if n == 0 {
		return 0
	}
	hits := 0
	for i := 0; i < n; i++ {
		if p(t, i) {
			hits++
		}
	}
	return float64(hits) / float64(n)
}

// Percent is Rate scaled to 0..100.
func Percent(t *dataset.Table, p Predicate) float64 {
	return Rate(t, p) * 100
}

// Sum adds the present numeric values of col. Values are accumulated as
// decimals so money columns total exactly.
func Sum(t *dataset.Table, col string) float64 {
	s, _ := sumCount(t, col)
	f, _ := s.Float64()
	return f
}

// Mean averages the present numeric values of col, 0 when there are none.
func Mean(t *dataset.Table, col string) float64 {
	s, n := sumCount(t, col)
	if n == 0 {
		return 0
	}
	f, _ := s.Div(decimal.NewFromInt(int64(n))).Float64()
	return f
}

// Max is the largest present value of col, 0 when there are none.
func Max(t *dataset.Table, col string) float64 {
	m := math.Inf(-1)
	found := false
	for i := 0; i < t.Len(); i++ {
		if v, ok := t.Value(i, col).Number(); ok && v > m {
			m = v
			found = true
		}
	}
	if !found {
		return 0
	}
	return m
}

// Ratio divides a by b, returning 0 when b is 0 so an empty slice reads as 0%.
func Ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func sumCount(t *dataset.Table, col string) (decimal.Decimal, int) {
	total := decimal.Zero
	n := 0
	for i := 0; i < t.Len(); i++ {
		if v, ok := t.Value(i, col).Number(); ok {
			total = total.Add(decimal.NewFromFloat(v))
			n++
		}
	}
	return total, n
}
