package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"
)

// Loader reads dataset sources into normalized Tables.
type Loader struct {
	Options ReadOptions
	// Cache is optional; nil disables memoization.
	Cache  *Cache
	Logger *zap.Logger
}

// NewLoader returns a Loader. A nil logger is replaced by a no-op logger.
func NewLoader(opt ReadOptions, cache *Cache, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{Options: opt, Cache: cache, Logger: logger}
}

// Load reads path with the given schema. A missing or unreadable file yields an
// error matching ErrSourceNotFound; a header without the schema's required
// columns yields a *SchemaError.
func (l *Loader) Load(path string, schema Schema) (*Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s: %w", ErrSourceNotFound, path, err)
		}
		return nil, fmt.Errorf("stat dataset: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrSourceNotFound, path)
	}
	if l.Cache == nil {
		return l.parse(path, schema)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	key := cacheKey(abs, schema.Name, l.Options)
	sig := signature{size: info.Size(), mod: info.ModTime()}
	t, hit, err := l.Cache.get(key, sig, func() (*Table, error) { return l.parse(path, schema) })
	if err != nil {
		return nil, err
	}
	if hit {
		l.Logger.Debug("dataset cache hit", zap.String("path", path), zap.String("dataset", schema.Name))
	}
	return t, nil
}

func (l *Loader) parse(path string, schema Schema) (*Table, error) {
	r, err := readerFor(path)
	if err != nil {
		return nil, err
	}
	header, records, err := r.Read(path, l.Options)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s: %w", ErrSourceNotFound, path, err)
		}
		return nil, err
	}

	cols, specs := buildColumns(header, schema)
	present := make(map[string]bool, len(cols))
	for _, c := range cols {
		present[c.Name] = true
	}
	var missing []string
	for _, name := range schema.RequiredColumns() {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Dataset: schema.Name, Source: filepath.Base(path), Missing: missing}
	}

	rows := make([]Row, 0, len(records))
	dropped := 0
	for _, rec := range records {
		row := make(Row, len(cols))
		keep := true
		for j, c := range cols {
			raw := rec[j]
			sp := specs[j]
			if sp.Transform != nil {
				raw = sp.Transform(raw)
			}
			v := normalizeCell(raw, c.Kind)
			if v.Missing && sp.DropInvalid {
				keep = false
				break
			}
			row[j] = v
		}
		if !keep {
			dropped++
			continue
		}
		rows = append(rows, row)
	}

	t := NewTable(schema.Name, path, cols, rows)
	t.dropped = dropped
	l.Logger.Info("dataset loaded",
		zap.String("path", path),
		zap.String("dataset", schema.Name),
		zap.String("load_id", t.ID()),
		zap.Int("rows", len(rows)),
		zap.Int("dropped", dropped))
	return t, nil
}

// buildColumns normalizes headers and assigns kinds from the schema. Repeated
// header names get a numeric suffix so every column stays addressable.
func buildColumns(header []string, schema Schema) ([]Column, []ColumnSpec) {
	cols := make([]Column, len(header))
	specs := make([]ColumnSpec, len(header))
	seen := map[string]int{}
	for i, h := range header {
		name := ColumnName(h)
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = name + "_" + strconv.Itoa(n)
		}
		sp, ok := schema.spec(name)
		if !ok {
			sp = ColumnSpec{Name: name, Kind: String}
		}
		cols[i] = Column{Name: name, Kind: sp.Kind}
		specs[i] = sp
	}
	return cols, specs
}
