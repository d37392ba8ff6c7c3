package aggregate

import (
	"sort"
	"strconv"

	"github.com/alwiharda/BusinessIntelligence/internal/dataset"
	"github.com/shopspring/decimal"
)

// Group is one entry of a rollup.
type Group struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

// Breakdown is a group with counts split by a second column, e.g. contract × churn.
type Breakdown struct {
	Key    string  `json:"key"`
	Counts []Group `json:"counts"`
}

// Period buckets dates for PeriodSum.
type Period int

const (
	Month Period = iota
	Year
)

type groupAcc struct {
	key     string
	sum     decimal.Decimal
	count   int
	present int
}

// GroupSum totals valueCol per distinct groupCol value. Groups appear in the
// order their key first occurs; rows with a missing key are skipped.
func GroupSum(t *dataset.Table, groupCol, valueCol string) []Group {
	return groupBy(t, func(i int) (string, bool) {
		v := t.Value(i, groupCol)
		return v.String(), !v.Missing
	}, valueCol)
}

// GroupMean averages the present values of valueCol per distinct groupCol
// value, in first-appearance order. A group without present values has mean 0.
func GroupMean(t *dataset.Table, groupCol, valueCol string) []Group {
	accs := accumulate(t, func(i int) (string, bool) {
		v := t.Value(i, groupCol)
		return v.String(), !v.Missing
	}, valueCol)
	out := make([]Group, 0, len(accs))
	for _, a := range accs {
		g := Group{Key: a.key, Count: a.count}
		if a.present > 0 {
			g.Value, _ = a.sum.Div(decimal.NewFromInt(int64(a.present))).Float64()
		}
		out = append(out, g)
	}
	return out
}

// GroupCount counts rows per distinct value of col, in first-appearance order.
func GroupCount(t *dataset.Table, col string) []Group {
	groups := groupBy(t, func(i int) (string, bool) {
		v := t.Value(i, col)
		return v.String(), !v.Missing
	}, "")
	for i := range groups {
		groups[i].Value = float64(groups[i].Count)
	}
	return groups
}

// CrossCount counts rows per value of col, split by the values of by. Every
// breakdown lists the same sub-keys in first-appearance order, with zero
// counts where a combination does not occur.
func CrossCount(t *dataset.Table, col, by string) []Breakdown {
	var subKeys []string
	seenSub := map[string]bool{}
	for i := 0; i < t.Len(); i++ {
		v := t.Value(i, by)
		if v.Missing || seenSub[v.String()] {
			continue
		}
		seenSub[v.String()] = true
		subKeys = append(subKeys, v.String())
	}

	var out []Breakdown
	pos := map[string]int{}
	for i := 0; i < t.Len(); i++ {
		k, s := t.Value(i, col), t.Value(i, by)
		if k.Missing || s.Missing {
			continue
		}
		p, ok := pos[k.String()]
		if !ok {
			counts := make([]Group, len(subKeys))
			for j, sk := range subKeys {
				counts[j] = Group{Key: sk}
			}
			out = append(out, Breakdown{Key: k.String(), Counts: counts})
			p = len(out) - 1
			pos[k.String()] = p
		}
		for j := range out[p].Counts {
			if out[p].Counts[j].Key == s.String() {
				out[p].Counts[j].Count++
				out[p].Counts[j].Value++
				break
			}
		}
	}
	return out
}

// PeriodSum totals valueCol per calendar bucket of dateCol, ordered by period.
// Month keys look like "2014-01", year keys like "2014".
func PeriodSum(t *dataset.Table, dateCol, valueCol string, p Period) []Group {
	groups := groupBy(t, func(i int) (string, bool) {
		v := t.Value(i, dateCol)
		if v.Missing || v.Kind != dataset.Date {
			return "", false
		}
		if p == Year {
			return strconv.Itoa(v.Time.Year()), true
		}
		return v.Time.Format("2006-01"), true
	}, valueCol)
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

// SortByValue returns a copy ordered by descending value, ties broken by key.
func SortByValue(groups []Group) []Group {
	out := make([]Group, len(groups))
	copy(out, groups)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value == out[j].Value {
			return out[i].Key < out[j].Key
		}
		return out[i].Value > out[j].Value
	})
	return out
}

func groupBy(t *dataset.Table, key func(i int) (string, bool), valueCol string) []Group {
	accs := accumulate(t, key, valueCol)
	out := make([]Group, 0, len(accs))
	for _, a := range accs {
		f, _ := a.sum.Float64()
		out = append(out, Group{Key: a.key, Value: f, Count: a.count})
	}
	return out
}

func accumulate(t *dataset.Table, key func(i int) (string, bool), valueCol string) []*groupAcc {
	var accs []*groupAcc
	pos := map[string]*groupAcc{}
	for i := 0; i < t.Len(); i++ {
		k, ok := key(i)
		if !ok {
			continue
		}
		a := pos[k]
		if a == nil {
			a = &groupAcc{key: k, sum: decimal.Zero}
			pos[k] = a
			accs = append(accs, a)
		}
		a.count++
		if valueCol == "" {
			continue
		}
		if v, ok := t.Value(i, valueCol).Number(); ok {
			a.sum = a.sum.Add(decimal.NewFromFloat(v))
			a.present++
		}
	}
	return accs
}
