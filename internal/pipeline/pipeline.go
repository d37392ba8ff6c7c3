package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alwiharda/BusinessIntelligence/internal/aggregate"
	"github.com/alwiharda/BusinessIntelligence/internal/dataset"
	"github.com/alwiharda/BusinessIntelligence/internal/filter"
	"github.com/alwiharda/BusinessIntelligence/internal/segment"
	"go.uber.org/zap"
)

// DefaultSampleRows matches the dashboard's detail table.
const DefaultSampleRows = 100

// SegmentColumn holds each row's segment name. It is distinct from the
// financial dataset's own "segment" column.
const SegmentColumn = "segment_label"

// Request names one pipeline run.
type Request struct {
	Source  string
	Dataset string
	Filters filter.Spec
	// SkipSegments runs load, filter and aggregation only.
	SkipSegments bool
}

// Pipeline composes Loader -> Filter -> {Aggregator, Segmenter}. A Pipeline
// holds no per-run state and may serve concurrent Run calls when its Loader
// does.
type Pipeline struct {
	Loader *dataset.Loader
	Logger *zap.Logger
	// SegmentOptions supplies K, Seed and MaxIter. Features and Column come
	// from the dataset definition when empty.
	SegmentOptions segment.Options
	SampleRows     int
}

// New returns a Pipeline with default segmentation and sample settings.
func New(loader *dataset.Loader, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		Loader:         loader,
		Logger:         logger,
		SegmentOptions: segment.DefaultOptions(),
		SampleRows:     DefaultSampleRows,
	}
}

// KPIValue is a computed KPI with its display form.
type KPIValue struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

// RollupResult holds one computed rollup. Breakdowns is set for CrossBy,
// Groups for every other kind.
type RollupResult struct {
	Name       string                `json:"name"`
	Column     string                `json:"column"`
	By         string                `json:"by,omitempty"`
	Groups     []aggregate.Group     `json:"groups,omitempty"`
	Breakdowns []aggregate.Breakdown `json:"breakdowns,omitempty"`
}

// Segment summarizes one cluster.
type Segment struct {
	Cluster  int                `json:"cluster"`
	Label    string             `json:"label"`
	Size     int                `json:"size"`
	Centroid map[string]float64 `json:"centroid"`
}

// Segments is the segmentation outcome, ordered by label rank.
type Segments struct {
	Features   []string  `json:"features"`
	K          int       `json:"k"`
	Seed       int64     `json:"seed"`
	Iterations int       `json:"iterations"`
	Inertia    float64   `json:"inertia"`
	Groups     []Segment `json:"groups"`
}

// Result is everything a presentation layer needs from one run.
type Result struct {
	Dataset Dataset
	Source  string
	LoadID  string
	Loaded  int
	Dropped int
	Filters filter.Spec
	// Table is the filtered table, with cluster and SegmentColumn columns
	// when segmentation ran.
	Table    *dataset.Table
	KPIs     []KPIValue
	Rollups  []RollupResult
	Segments *Segments
	// SegmentError is set when segmentation was skipped, e.g. for
	// segment.ErrInsufficientData. The rest of the result stays valid.
	SegmentError error
	SampleRows   int
	Warnings     []string
}

// Rows is the number of rows left after filtering.
func (r *Result) Rows() int { return r.Table.Len() }

// Run loads, filters, aggregates and segments one source.
func (p *Pipeline) Run(req Request) (*Result, error) {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ds, err := LookupDataset(req.Dataset)
	if err != nil {
		return nil, err
	}
	loader := p.Loader
	if loader == nil {
		loader = dataset.NewLoader(dataset.ReadOptions{}, nil, log)
	}

	tbl, err := loader.Load(req.Source, ds.Schema)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Dataset:    ds,
		Source:     req.Source,
		LoadID:     tbl.ID(),
		Loaded:     tbl.Len(),
		Dropped:    tbl.Dropped(),
		Filters:    req.Filters.Normalize(),
		SampleRows: p.SampleRows,
	}
	if tbl.Dropped() > 0 {
		res.warn(log, fmt.Sprintf("dropped %d rows with invalid required values", tbl.Dropped()))
	}

	empty := res.Filters.EmptyColumns()
	for _, col := range empty {
		res.warn(log, fmt.Sprintf("filter on %s selects no values; result is empty", col))
	}
	filtered, err := filter.Apply(tbl, res.Filters)
	if err != nil {
		return nil, err
	}
	if filtered.Len() == 0 && tbl.Len() > 0 && len(empty) == 0 {
		res.warn(log, "no rows match the current filters")
	}
	res.Table = filtered

	for _, k := range ds.KPIs {
		v := k.Compute(filtered)
		res.KPIs = append(res.KPIs, KPIValue{Name: k.Name, Value: v, Display: formatKPI(k, v)})
	}
	for _, r := range ds.Rollups {
		res.Rollups = append(res.Rollups, runRollup(filtered, r))
	}

	if !req.SkipSegments {
		p.segment(res, log)
	}
	log.Debug("pipeline run complete",
		zap.String("dataset", ds.Name),
		zap.String("source", filepath.Base(req.Source)),
		zap.Int("rows", filtered.Len()),
		zap.Bool("segmented", res.Segments != nil),
	)
	return res, nil
}

func (p *Pipeline) segment(res *Result, log *zap.Logger) {
	ds := res.Dataset
	opt := p.SegmentOptions
	if len(opt.Features) == 0 {
		opt.Features = ds.Features
	}
	if opt.K <= 0 {
		opt.K = 3
	}
	if opt.Column == "" {
		opt.Column = "cluster"
	}
	sr, err := segment.Cluster(res.Table, opt)
	if err != nil {
		res.SegmentError = err
		if errors.Is(err, segment.ErrInsufficientData) {
			res.warn(log, fmt.Sprintf("segmentation skipped: %v", err))
		} else {
			log.Warn("segmentation failed", zap.Error(err))
			res.Warnings = append(res.Warnings, fmt.Sprintf("segmentation failed: %v", err))
		}
		return
	}

	names := ds.SegmentNames
	if len(names) != opt.K {
		names = make([]string, opt.K)
		for i := range names {
			names[i] = fmt.Sprintf("Segment %d", i+1)
		}
	}
	labels, err := segment.RankLabels(sr, rankFeature(ds, opt.Features), names)
	if err != nil {
		res.SegmentError = err
		res.warn(log, fmt.Sprintf("segment labels: %v", err))
		return
	}

	segCol := make([]dataset.Value, sr.Table.Len())
	for i, c := range sr.Labels {
		if c < 0 {
			segCol[i] = dataset.MissingValue(dataset.String)
			continue
		}
		segCol[i] = dataset.StringValue(labels[c])
	}
	labeled, err := sr.Table.WithColumn(dataset.Column{Name: SegmentColumn, Kind: dataset.String}, segCol)
	if err != nil {
		res.SegmentError = err
		res.warn(log, fmt.Sprintf("segment labels: %v", err))
		return
	}
	res.Table = labeled

	out := &Segments{
		Features:   sr.Features,
		K:          opt.K,
		Seed:       opt.Seed,
		Iterations: sr.Iterations,
		Inertia:    sr.Inertia,
	}
	rank := make(map[string]int, len(names))
	for i, n := range names {
		rank[n] = i
	}
	out.Groups = make([]Segment, len(sr.Centroids))
	for c, ctr := range sr.Centroids {
		centroid := make(map[string]float64, len(ctr))
		for j, f := range sr.Features {
			centroid[f] = ctr[j]
		}
		out.Groups[rank[labels[c]]] = Segment{Cluster: c, Label: labels[c], Size: sr.Sizes[c], Centroid: centroid}
	}
	res.Segments = out
}

// rankFeature picks the dataset's ranking column when it is clustered on,
// falling back to the first feature.
func rankFeature(ds Dataset, features []string) string {
	for _, f := range features {
		if f == ds.RankBy {
			return f
		}
	}
	return features[0]
}

func (r *Result) warn(log *zap.Logger, msg string) {
	log.Warn(msg, zap.String("dataset", r.Dataset.Name), zap.String("source", filepath.Base(r.Source)))
	r.Warnings = append(r.Warnings, msg)
}

func runRollup(t *dataset.Table, r Rollup) RollupResult {
	out := RollupResult{Name: r.Name, Column: r.Column, By: r.By}
	switch r.Kind {
	case SumBy:
		out.Groups = aggregate.GroupSum(t, r.Column, r.Value)
	case CountBy:
		out.Groups = aggregate.GroupCount(t, r.Column)
	case CrossBy:
		out.Breakdowns = aggregate.CrossCount(t, r.Column, r.By)
	case MonthlySum:
		out.Groups = aggregate.PeriodSum(t, r.Column, r.Value, aggregate.Month)
	case MeanBy:
		out.Groups = aggregate.GroupMean(t, r.Column, r.Value)
	}
	if r.Sorted {
		out.Groups = aggregate.SortByValue(out.Groups)
	}
	return out
}

// FilterOption is one selectable value of a filter dimension.
type FilterOption struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// FilterOptions lists the values of every filterable column present in t,
// in first-appearance order, with their row counts.
func FilterOptions(ds Dataset, t *dataset.Table) map[string][]FilterOption {
	out := make(map[string][]FilterOption, len(ds.Filterable))
	for _, col := range ds.Filterable {
		if !t.Has(col) {
			continue
		}
		var opts []FilterOption
		for _, g := range aggregate.GroupCount(t, col) {
			opts = append(opts, FilterOption{Value: g.Key, Count: g.Count})
		}
		out[col] = opts
	}
	return out
}

func describeFilters(s filter.Spec) string {
	if len(s) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(s))
	for _, c := range s.Columns() {
		parts = append(parts, fmt.Sprintf("%s=%s", c, strings.Join(s[c], "|")))
	}
	return strings.Join(parts, ", ")
}
