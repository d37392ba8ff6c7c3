package dataset

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Kind is the normalized type of a column.
type Kind int

const (
	String Kind = iota
	Int
	Float
	Date
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Float:
		return "float"
	case Date:
		return "date"
	default:
		return "string"
	}
}

// Value is a single typed cell. Missing marks a cell that failed normalization
// or was empty; missing values are skipped by every aggregate.
type Value struct {
	Kind    Kind
	Str     string
	Int     int64
	Float   float64
	Time    time.Time
	Missing bool
}

// Number returns the numeric value of Int and Float cells.
func (v Value) Number() (float64, bool) {
	if v.Missing {
		return 0, false
	}
	switch v.Kind {
	case Int:
		return float64(v.Int), true
	case Float:
		return v.Float, true
	}
	return 0, false
}

// String renders the value the way filters and group keys compare it.
func (v Value) String() string {
	if v.Missing {
		return ""
	}
	switch v.Kind {
	case Int:
		return strconv.FormatInt(v.Int, 10)
	case Float:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case Date:
		return v.Time.Format("2006-01-02")
	default:
		return v.Str
	}
}

// StringValue, IntValue, FloatValue and DateValue build present cells.
func StringValue(s string) Value { return Value{Kind: String, Str: s} }
func IntValue(i int64) Value { return Value{Kind: Int, Int: i} }
func FloatValue(f float64) Value { return Value{Kind: Float, Float: f} }
func DateValue(t time.Time) Value { return Value{Kind: Date, Time: t} }
func MissingValue(k Kind) Value { return Value{Kind: k, Missing: true} }

// Column describes one column of a Table.
type Column struct {
	Name string
	Kind Kind
}

// Row holds one value per table column, in column order.
type Row []Value

// Table is an immutable in-memory dataset. Subsets and derived tables share
// rows with their parent; nothing writes to a Row once the table is built.
type Table struct {
	id      string
	source  string
	dataset string
	cols    []Column
	index   map[string]int
	rows    []Row
	dropped int
}

// NewTable builds a table from columns and rows. Every row must have one value per column.
func NewTable(dataset, source string, cols []Column, rows []Row) *Table {
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[c.Name] = i
	}
	return &Table{
		id:      uuid.NewString(),
		source:  source,
		dataset: dataset,
		cols:    cols,
		index:   idx,
		rows:    rows,
	}
}

// ID identifies the load that produced the table. Subsets keep their parent's ID.
func (t *Table) ID() string { return t.id }

// Source is the path the table was loaded from.
func (t *Table) Source() string { return t.source }

// Dataset is the schema name used at load time.
func (t *Table) Dataset() string { return t.dataset }

// Dropped is the number of rows removed at load because a required value failed to parse.
func (t *Table) Dropped() int { return t.dropped }

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Columns returns a copy of the schema.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.cols))
	copy(out, t.cols)
	return out
}

// Index returns the position of a column, or -1.
func (t *Table) Index(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the column descriptor by name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.cols[i], true
}

// Value returns the cell at row i for the named column. Unknown columns yield a missing string.
func (t *Table) Value(i int, name string) Value {
	j, ok := t.index[name]
	if !ok {
		return MissingValue(String)
	}
	return t.rows[i][j]
}

// Row returns a copy of row i.
func (t *Table) Row(i int) Row {
	out := make(Row, len(t.rows[i]))
	copy(out, t.rows[i])
	return out
}

// Subset returns a table holding the rows at the given indices, in that order.
func (t *Table) Subset(indices []int) *Table {
	rows := make([]Row, 0, len(indices))
	for _, i := range indices {
		rows = append(rows, t.rows[i])
	}
	return t.derive(t.cols, t.index, rows)
}

// WithColumn returns a new table with col appended. values must have one entry
// per row, and col must not shadow an existing column.
func (t *Table) WithColumn(col Column, values []Value) (*Table, error) {
	if t.Has(col.Name) {
		return nil, fmt.Errorf("column %q already exists", col.Name)
	}
	if len(values) != len(t.rows) {
		return nil, fmt.Errorf("column %q: %d values for %d rows", col.Name, len(values), len(t.rows))
	}
	cols := make([]Column, 0, len(t.cols)+1)
	cols = append(cols, t.cols...)
	cols = append(cols, col)
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[c.Name] = i
	}
	rows := make([]Row, len(t.rows))
	for i, r := range t.rows {
		nr := make(Row, 0, len(cols))
		nr = append(nr, r...)
		nr = append(nr, values[i])
		rows[i] = nr
	}
	return t.derive(cols, idx, rows), nil
}

func (t *Table) derive(cols []Column, idx map[string]int, rows []Row) *Table {
	return &Table{
		id:      t.id,
		source:  t.source,
		dataset: t.dataset,
		cols:    cols,
		index:   idx,
		rows:    rows,
		dropped: t.dropped,
	}
}
