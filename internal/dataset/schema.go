package dataset

import "strings"

// ColumnSpec declares how a known column is normalized at load time.
type ColumnSpec struct {
	Name string
	Kind Kind
	// Required columns must be present in the header.
	Required bool
	// DropInvalid removes rows whose value is missing after normalization.
	DropInvalid bool
	// Transform rewrites the raw cell before normalization.
	Transform func(string) string
}

// Schema describes a dataset's known columns. Columns not listed load as strings.
type Schema struct {
	Name    string
	Columns []ColumnSpec
}

func (s Schema) spec(name string) (ColumnSpec, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

// RequiredColumns lists the columns that must be present.
func (s Schema) RequiredColumns() []string {
	var out []string
	for _, c := range s.Columns {
		if c.Required {
			out = append(out, c.Name)
		}
	}
	return out
}

// ChurnSchema is the telecom customer churn export.
var ChurnSchema = Schema{
	Name: "churn",
	Columns: []ColumnSpec{
		{Name: "customerid", Kind: String},
		{Name: "seniorcitizen", Kind: Int},
		{Name: "tenure", Kind: Int, Required: true},
		{Name: "internetservice", Kind: String},
		{Name: "contract", Kind: String, Required: true},
		{Name: "paymentmethod", Kind: String, Required: true, Transform: stripAutomatic},
		{Name: "monthlycharges", Kind: Float, Required: true},
		{Name: "totalcharges", Kind: Float, Required: true, DropInvalid: true},
		{Name: "churn", Kind: String, Required: true},
	},
}

// FinancialSchema is the sales sample with accounting-formatted money columns.
var FinancialSchema = Schema{
	Name: "financial",
	Columns: []ColumnSpec{
		{Name: "segment", Kind: String, Required: true},
		{Name: "country", Kind: String, Required: true},
		{Name: "product", Kind: String, Required: true},
		{Name: "discount_band", Kind: String},
		{Name: "units_sold", Kind: Float, Required: true},
		{Name: "manufacturing_price", Kind: Float},
		{Name: "sale_price", Kind: Float},
		{Name: "gross_sales", Kind: Float},
		{Name: "discounts", Kind: Float},
		{Name: "sales", Kind: Float, Required: true, DropInvalid: true},
		{Name: "cogs", Kind: Float},
		{Name: "profit", Kind: Float, Required: true, DropInvalid: true},
		{Name: "date", Kind: Date, Required: true},
		{Name: "month_number", Kind: Int},
		{Name: "year", Kind: Int},
	},
}

func stripAutomatic(s string) string {
	return strings.Replace(s, " (automatic)", "", 1)
}
