package filter

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/alwiharda/BusinessIntelligence/internal/dataset"
	"gopkg.in/yaml.v3"
)

// Spec maps a column to its allowed values. Columns are AND-combined and the
// values within a column are OR-combined. A column listed with no values
// admits no rows.
type Spec map[string][]string

// Normalize returns a copy keyed by canonical column names. Values listed
// under two spellings of the same column are merged.
func (s Spec) Normalize() Spec {
	out := make(Spec, len(s))
	for col, vals := range s {
		name := dataset.ColumnName(col)
		merged := append(out[name], vals...)
		if merged == nil {
			merged = []string{}
		}
		out[name] = merged
	}
	return out
}

// Columns returns the constrained columns in sorted order.
func (s Spec) Columns() []string {
	cols := make([]string, 0, len(s))
	for c := range s {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// EmptyColumns lists columns whose allowed set is empty. Applying such a spec
// always yields zero rows, which callers usually want to warn about.
func (s Spec) EmptyColumns() []string {
	var out []string
	for _, c := range s.Columns() {
		if len(s[c]) == 0 {
			out = append(out, c)
		}
	}
	return out
}

// Apply returns the rows of t that satisfy every constraint in spec. The input
// table is not modified. A spec naming a column t does not have is an error
// matching dataset.ErrSchemaMismatch.
func Apply(t *dataset.Table, spec Spec) (*dataset.Table, error) {
	spec = spec.Normalize()
	sets := make(map[string]map[string]struct{}, len(spec))
	for col, allowed := range spec {
		if !t.Has(col) {
			return nil, fmt.Errorf("filter on column %q: %w", col, dataset.ErrSchemaMismatch)
		}
		set := make(map[string]struct{}, len(allowed))
		for _, v := range allowed {
			set[v] = struct{}{}
		}
		sets[col] = set
	}
	n := t.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		pass := true
		for col, set := range sets {
			if _, ok := set[t.Value(i, col).String()]; !ok {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, i)
		}
	}
	return t.Subset(indices), nil
}

// Distinct returns the values present in a column in first-appearance order.
// Missing cells are skipped.
func Distinct(t *dataset.Table, col string) []string {
	seen := map[string]struct{}{}
	var out []string
	for i := 0; i < t.Len(); i++ {
		v := t.Value(i, col)
		if v.Missing {
			continue
		}
		s := v.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// All builds a "select all" spec: every listed column allows its full domain.
// Missing cells render as "", so "" is included when a column has any, and
// applying the spec keeps every row.
func All(t *dataset.Table, cols ...string) Spec {
	spec := make(Spec, len(cols))
	for _, c := range cols {
		name := dataset.ColumnName(c)
		vals := Distinct(t, name)
		if vals == nil {
			vals = []string{}
		}
		if hasMissing(t, name) {
			vals = append(vals, "")
		}
		spec[name] = vals
	}
	return spec
}

func hasMissing(t *dataset.Table, col string) bool {
	for i := 0; i < t.Len(); i++ {
		if t.Value(i, col).Missing {
			return true
		}
	}
	return false
}

// Merge overlays other onto s; columns in other replace those in s.
func (s Spec) Merge(other Spec) Spec {
	out := make(Spec, len(s)+len(other))
	for k, v := range s.Normalize() {
		out[k] = v
	}
	for k, v := range other.Normalize() {
		out[k] = v
	}
	return out
}

// ParseFlags reads "column=value" pairs. Repeating a column adds values to its set;
// "column=" declares the column with an empty set.
func ParseFlags(pairs []string) (Spec, error) {
	spec := Spec{}
	for _, p := range pairs {
		col, val, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(col) == "" {
			return nil, fmt.Errorf("invalid filter %q (use column=value)", p)
		}
		name := dataset.ColumnName(col)
		if _, exists := spec[name]; !exists {
			spec[name] = []string{}
		}
		if val = strings.TrimSpace(val); val != "" {
			spec[name] = append(spec[name], val)
		}
	}
	return spec, nil
}

// LoadFile reads a YAML document mapping columns to allowed values, e.g.
//
//	contract: [Month-to-month, One year]
//	churn: ["Yes"]
func LoadFile(path string) (Spec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read filters: %w", err)
	}
	var raw map[string][]string
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse filters: %w", err)
	}
	spec := Spec{}
	for k, v := range raw {
		if v == nil {
			v = []string{}
		}
		spec[k] = v
	}
	return spec.Normalize(), nil
}
