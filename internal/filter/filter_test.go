package filter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alwiharda/BusinessIntelligence/internal/dataset"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// churnTable has 3 Month-to-month and 7 Two year contracts; 4 customers churned.
func churnTable() *dataset.Table {
	cols := []dataset.Column{
		{Name: "contract", Kind: dataset.String},
		{Name: "churn", Kind: dataset.String},
		{Name: "tenure", Kind: dataset.Int},
	}
	spec := []struct {
		contract, churn string
		tenure          int64
	}{
		{"Month-to-month", "Yes", 1},
		{"Two year", "No", 60},
		{"Month-to-month", "Yes", 3},
		{"Two year", "No", 48},
		{"Two year", "Yes", 70},
		{"Two year", "No", 12},
		{"Month-to-month", "No", 5},
		{"Two year", "Yes", 24},
		{"Two year", "No", 36},
		{"Two year", "No", 72},
	}
	rows := make([]dataset.Row, 0, len(spec))
	for _, r := range spec {
		rows = append(rows, dataset.Row{dataset.StringValue(r.contract), dataset.StringValue(r.churn), dataset.IntValue(r.tenure)})
	}
	return dataset.NewTable("churn", "memory", cols, rows)
}

func TestApplySingleColumn(t *testing.T) {
	tbl := churnTable()
	out, err := Apply(tbl, Spec{"Contract": {"Month-to-month"}})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Len())
	assert.Equal(t, 10, tbl.Len(), "input is not modified")
	for i := 0; i < out.Len(); i++ {
		assert.Equal(t, "Month-to-month", out.Value(i, "contract").Str)
	}
}

func TestApplyConjunction(t *testing.T) {
	out, err := Apply(churnTable(), Spec{
		"contract": {"Two year"},
		"churn":    {"Yes"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
}

func TestApplyNonStringColumn(t *testing.T) {
	out, err := Apply(churnTable(), Spec{"tenure": {"1", "72"}})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
}

func TestApplyFullDomainKeepsEveryRow(t *testing.T) {
	tbl := churnTable()
	spec := All(tbl, "contract", "churn", "tenure")
	out, err := Apply(tbl, spec)
	require.NoError(t, err)
	assert.Equal(t, tbl.Len(), out.Len())
}

func TestApplyFullDomainKeepsMissingCells(t *testing.T) {
	cols := []dataset.Column{{Name: "contract", Kind: dataset.String}, {Name: "tenure", Kind: dataset.Int}}
	tbl := dataset.NewTable("churn", "memory", cols, []dataset.Row{
		{dataset.StringValue("Month-to-month"), dataset.IntValue(1)},
		{dataset.MissingValue(dataset.String), dataset.IntValue(5)},
		{dataset.StringValue("Two year"), dataset.MissingValue(dataset.Int)},
	})
	spec := All(tbl, "contract", "tenure")
	assert.Equal(t, []string{"Month-to-month", "Two year", ""}, spec["contract"])

	out, err := Apply(tbl, spec)
	require.NoError(t, err)
	assert.Equal(t, tbl.Len(), out.Len())
}

func TestApplyEmptySetExcludesAll(t *testing.T) {
	spec := Spec{"contract": {}}
	assert.Equal(t, []string{"contract"}, spec.EmptyColumns())
	out, err := Apply(churnTable(), spec)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
}

func TestApplyNoMatchIsEmptyNotError(t *testing.T) {
	out, err := Apply(churnTable(), Spec{"contract": {"One year"}})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
}

func TestApplyUnknownColumn(t *testing.T) {
	_, err := Apply(churnTable(), Spec{"country": {"Canada"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, dataset.ErrSchemaMismatch))
}

func TestDistinctFirstAppearance(t *testing.T) {
	if diff := cmp.Diff([]string{"Month-to-month", "Two year"}, Distinct(churnTable(), "contract")); diff != "" {
		t.Fatalf("distinct mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFlags(t *testing.T) {
	spec, err := ParseFlags([]string{"Contract=Month-to-month", "contract=Two year", "Payment Method="})
	require.NoError(t, err)
	want := Spec{
		"contract":       {"Month-to-month", "Two year"},
		"payment_method": {},
	}
	if diff := cmp.Diff(want, spec); diff != "" {
		t.Fatalf("spec mismatch (-want +got):\n%s", diff)
	}

	_, err = ParseFlags([]string{"contract"})
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "filters.yaml")
	body := "Contract:\n  - Month-to-month\nchurn: [\"Yes\"]\ncountry: []\n"
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))

	spec, err := LoadFile(p)
	require.NoError(t, err)
	want := Spec{
		"contract": {"Month-to-month"},
		"churn":    {"Yes"},
		"country":  {},
	}
	if diff := cmp.Diff(want, spec); diff != "" {
		t.Fatalf("spec mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeOverrides(t *testing.T) {
	base := Spec{"contract": {"Two year"}, "churn": {"No"}}
	got := base.Merge(Spec{"Contract": {"Month-to-month"}})
	assert.Equal(t, []string{"Month-to-month"}, got["contract"])
	assert.Equal(t, []string{"No"}, got["churn"])
}
