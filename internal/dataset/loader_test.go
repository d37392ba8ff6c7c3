package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var churnRows = []string{
	"customerID,gender,SeniorCitizen,tenure,InternetService,Contract,PaymentMethod,MonthlyCharges,TotalCharges,Churn",
	"7590-VHVEG,Female,0,1,DSL,Month-to-month,Electronic check,29.85,29.85,No",
	"5575-GNVDE,Male,0,34,DSL,One year,Mailed check,56.95,1889.5,No",
	"3668-QPYBK,Male,0,2,DSL,Month-to-month,Mailed check,53.85,108.15,Yes",
	"4472-LVYGI,Female,0,0,DSL,Two year,Bank transfer (automatic),52.55, ,No",
	"9305-CDSKC,Female,0,8,Fiber optic,Month-to-month,Credit card (automatic),99.65,820.5,Yes",
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadChurnCSV(t *testing.T) {
	path := writeFile(t, "churn.csv", strings.Join(churnRows, "\n"))
	l := NewLoader(ReadOptions{}, nil, nil)

	tbl, err := l.Load(path, ChurnSchema)
	require.NoError(t, err)

	assert.Equal(t, 4, tbl.Len(), "row with blank TotalCharges is dropped")
	assert.Equal(t, 1, tbl.Dropped())
	assert.Equal(t, "churn", tbl.Dataset())
	assert.NotEmpty(t, tbl.ID())

	for _, name := range []string{"customerid", "seniorcitizen", "tenure", "internetservice", "contract", "paymentmethod", "monthlycharges", "totalcharges", "churn"} {
		assert.True(t, tbl.Has(name), name)
	}
	col, ok := tbl.Column("tenure")
	require.True(t, ok)
	assert.Equal(t, Int, col.Kind)

	assert.Equal(t, IntValue(34), tbl.Value(1, "tenure"))
	assert.Equal(t, FloatValue(1889.5), tbl.Value(1, "totalcharges"))
	assert.Equal(t, "Credit card", tbl.Value(3, "paymentmethod").Str)
	assert.Equal(t, StringValue("Female"), tbl.Value(0, "gender"))
}

func TestLoadFinancialParsesAccountingNegatives(t *testing.T) {
	body := strings.Join([]string{
		"Segment,Country, Product ,Units Sold,Sales,Profit,Date",
		`Government,Canada,Carretera,"1,618.5"," $32,370.00 "," $16,185.00 ",01/01/2014`,
		`Midmarket,France,Paseo,921,"$13,815.00","($1,500.00)",2014-06-01`,
		`Enterprise,Germany,Velo,"2,470","$1,000.00",oops,2014-06-01`,
	}, "\n")
	path := writeFile(t, "financial.csv", body)

	tbl, err := NewLoader(ReadOptions{}, nil, nil).Load(path, FinancialSchema)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, 1, tbl.Dropped())

	assert.Equal(t, -1500.0, tbl.Value(1, "profit").Float)
	assert.Equal(t, 1618.5, tbl.Value(0, "units_sold").Float)
	assert.Equal(t, "Carretera", tbl.Value(0, "product").Str)
	d := tbl.Value(0, "date")
	require.Equal(t, Date, d.Kind)
	assert.True(t, d.Time.Equal(time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestLoadMissingSource(t *testing.T) {
	_, err := NewLoader(ReadOptions{}, nil, nil).Load(filepath.Join(t.TempDir(), "nope.csv"), ChurnSchema)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceNotFound))
}

func TestLoadSchemaMismatch(t *testing.T) {
	path := writeFile(t, "partial.csv", "customerID,tenure,Churn\nA,1,No\n")
	_, err := NewLoader(ReadOptions{}, nil, nil).Load(path, ChurnSchema)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))

	var se *SchemaError
	require.True(t, errors.As(err, &se))
	want := []string{"contract", "paymentmethod", "monthlycharges", "totalcharges"}
	if diff := cmp.Diff(want, se.Missing); diff != "" {
		t.Fatalf("missing columns mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := writeFile(t, "data.json", "{}")
	_, err := NewLoader(ReadOptions{}, nil, nil).Load(path, ChurnSchema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported dataset format")
}

func TestLoadIsIdempotent(t *testing.T) {
	path := writeFile(t, "churn.csv", strings.Join(churnRows, "\n"))
	l := NewLoader(ReadOptions{}, nil, nil)
	a, err := l.Load(path, ChurnSchema)
	require.NoError(t, err)
	b, err := l.Load(path, ChurnSchema)
	require.NoError(t, err)

	require.Equal(t, a.Len(), b.Len())
	for i := 0; i < a.Len(); i++ {
		assert.Equal(t, a.Row(i), b.Row(i))
	}
	assert.NotEqual(t, a.ID(), b.ID(), "uncached loads are distinct loads")
}

func TestLoadMaxRowsAndTSV(t *testing.T) {
	body := strings.ReplaceAll(strings.Join(churnRows, "\n"), ",", "\t")
	path := writeFile(t, "churn.tsv", body)
	tbl, err := NewLoader(ReadOptions{MaxRows: 2}, nil, nil).Load(path, ChurnSchema)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
}

func TestLoadSniffsSemicolonDelimiter(t *testing.T) {
	body := strings.ReplaceAll(strings.Join(churnRows, "\n"), ",", ";")
	path := writeFile(t, "churn.csv", body)
	tbl, err := NewLoader(ReadOptions{}, nil, nil).Load(path, ChurnSchema)
	require.NoError(t, err)
	assert.Equal(t, 4, tbl.Len())
	assert.Equal(t, "Mailed check", tbl.Value(1, "paymentmethod").Str)
}

func writeFinancialXLSX(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Notes"))
	_, err := f.NewSheet("Sales")
	require.NoError(t, err)
	rows := [][]any{
		{"Segment", "Country", "Product", "Units Sold", "Sales", "Profit", "Date"},
		{"Government", "Canada", "Carretera", 1618.5, 32370.0, 16185.0, 41640},
		{"Midmarket", "France", "Paseo", 921, 13815.0, "($1,500.00)", 41791},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sales", cell, &r))
	}
	path := filepath.Join(t.TempDir(), "financial.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadXLSXBySheetNameAndIndex(t *testing.T) {
	path := writeFinancialXLSX(t)

	byName, err := NewLoader(ReadOptions{SheetName: "sales"}, nil, nil).Load(path, FinancialSchema)
	require.NoError(t, err)
	require.Equal(t, 2, byName.Len())
	assert.Equal(t, -1500.0, byName.Value(1, "profit").Float)
	assert.Equal(t, 32370.0, byName.Value(0, "sales").Float)
	d := byName.Value(0, "date")
	require.False(t, d.Missing)
	assert.Equal(t, 2014, d.Time.Year())

	byIndex, err := NewLoader(ReadOptions{SheetIndex: 2}, nil, nil).Load(path, FinancialSchema)
	require.NoError(t, err)
	assert.Equal(t, byName.Len(), byIndex.Len())

	_, err = NewLoader(ReadOptions{SheetName: "Missing"}, nil, nil).Load(path, FinancialSchema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Available sheets: Notes, Sales")

	_, err = NewLoader(ReadOptions{}, nil, nil).Load(path, FinancialSchema)
	assert.True(t, errors.Is(err, ErrSchemaMismatch), "first sheet has no header")
}
