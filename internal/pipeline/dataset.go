package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alwiharda/BusinessIntelligence/internal/aggregate"
	"github.com/alwiharda/BusinessIntelligence/internal/dataset"
)

// KPI is one headline metric of a dashboard.
type KPI struct {
	Name      string
	Prefix    string
	Suffix    string
	Precision int
	Compute   func(t *dataset.Table) float64
}

// RollupKind selects the aggregation a Rollup runs.
type RollupKind int

const (
	SumBy RollupKind = iota
	CountBy
	CrossBy
	MonthlySum
	MeanBy
)

// Rollup is a grouped view of the filtered table.
type Rollup struct {
	Name   string
	Kind   RollupKind
	Column string // group column, or the date column for MonthlySum
	By     string // second column for CrossBy
	Value  string // summed or averaged column for SumBy, MeanBy and MonthlySum
	// Sorted orders groups by descending value instead of first appearance.
	Sorted bool
}

// Dataset ties a schema to the metrics, rollups and segmentation run on it.
type Dataset struct {
	Name    string
	Title   string
	Schema  dataset.Schema
	KPIs    []KPI
	Rollups []Rollup
	// Features are the numeric columns segmented on.
	Features []string
	// RankBy orders clusters for SegmentNames, lowest centroid first.
	RankBy       string
	SegmentNames []string
	// Filterable columns are offered as filter dimensions.
	Filterable []string
}

var yes = aggregate.Equals("churn", "Yes")

// Churn is the telecom customer churn dashboard.
var Churn = Dataset{
	Name:   "churn",
	Title:  "Customer Churn",
	Schema: dataset.ChurnSchema,
	KPIs: []KPI{
		{Name: "Total Customers", Compute: func(t *dataset.Table) float64 { return float64(aggregate.Count(t)) }},
		{Name: "Churn Rate", Suffix: "%", Precision: 1, Compute: func(t *dataset.Table) float64 { return aggregate.Percent(t, yes) }},
		{Name: "Average Tenure", Suffix: " months", Precision: 1, Compute: func(t *dataset.Table) float64 { return aggregate.Mean(t, "tenure") }},
		{Name: "Total Revenue", Prefix: "$", Suffix: "K", Precision: 1, Compute: func(t *dataset.Table) float64 { return aggregate.Sum(t, "totalcharges") / 1e3 }},
		{Name: "Max Total Charges", Prefix: "$", Precision: 2, Compute: func(t *dataset.Table) float64 { return aggregate.Max(t, "totalcharges") }},
	},
	Rollups: []Rollup{
		{Name: "Internet service by churn", Kind: CrossBy, Column: "internetservice", By: "churn"},
		{Name: "Contract by churn", Kind: CrossBy, Column: "contract", By: "churn"},
		{Name: "Payment method", Kind: CountBy, Column: "paymentmethod", Sorted: true},
		{Name: "Contract", Kind: CountBy, Column: "contract"},
	},
	Features:     []string{"tenure", "monthlycharges"},
	RankBy:       "tenure",
	SegmentNames: []string{"New", "Established", "Loyal"},
	Filterable:   []string{"contract", "internetservice", "paymentmethod", "churn"},
}

// Financial is the sales and profit dashboard.
var Financial = Dataset{
	Name:   "financial",
	Title:  "Financial Performance",
	Schema: dataset.FinancialSchema,
	KPIs: []KPI{
		{Name: "Total Sales", Prefix: "$", Precision: 2, Compute: func(t *dataset.Table) float64 { return aggregate.Sum(t, "sales") }},
		{Name: "Total Profit", Prefix: "$", Precision: 2, Compute: func(t *dataset.Table) float64 { return aggregate.Sum(t, "profit") }},
		{Name: "Profit Margin", Suffix: "%", Precision: 1, Compute: func(t *dataset.Table) float64 {
			return aggregate.Ratio(aggregate.Sum(t, "profit"), aggregate.Sum(t, "sales")) * 100
		}},
		{Name: "Units Sold", Compute: func(t *dataset.Table) float64 { return aggregate.Sum(t, "units_sold") }},
		{Name: "Average Sale", Prefix: "$", Precision: 2, Compute: func(t *dataset.Table) float64 { return aggregate.Mean(t, "sales") }},
	},
	Rollups: []Rollup{
		{Name: "Sales by country", Kind: SumBy, Column: "country", Value: "sales", Sorted: true},
		{Name: "Profit by segment", Kind: SumBy, Column: "segment", Value: "profit", Sorted: true},
		{Name: "Sales by product", Kind: SumBy, Column: "product", Value: "sales", Sorted: true},
		{Name: "Sales by month", Kind: MonthlySum, Column: "date", Value: "sales"},
		{Name: "Average sale by segment", Kind: MeanBy, Column: "segment", Value: "sales"},
	},
	Features:     []string{"sales", "profit"},
	RankBy:       "profit",
	SegmentNames: []string{"Low Performance", "Mid Performance", "High Performance"},
	Filterable:   []string{"segment", "country", "product", "discount_band"},
}

var datasets = map[string]Dataset{
	Churn.Name:     Churn,
	Financial.Name: Financial,
}

// LookupDataset resolves a dataset by name, case-insensitively.
func LookupDataset(name string) (Dataset, error) {
	d, ok := datasets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Dataset{}, fmt.Errorf("unknown dataset %q (available: %s)", name, strings.Join(DatasetNames(), ", "))
	}
	return d, nil
}

// DatasetNames lists the known datasets in sorted order.
func DatasetNames() []string {
	names := make([]string, 0, len(datasets))
	for n := range datasets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
