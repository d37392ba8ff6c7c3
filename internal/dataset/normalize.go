package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ParseAmount converts a monetary or count cell to a number. Currency symbols,
// grouping commas and whitespace are ignored, and an accounting-style
// "(1,500.00)" is read as -1500. It reports false for anything it cannot parse,
// including the empty string.
func ParseAmount(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}
	raw = strings.ReplaceAll(raw, "$", "")
	raw = strings.ReplaceAll(raw, ",", "")
	raw = strings.Join(strings.Fields(raw), "")
	if len(raw) >= 2 && strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		inner := raw[1 : len(raw)-1]
		if inner == "" || inner == "-" {
			return 0, false
		}
		raw = "-" + inner
	}
	switch raw {
	case "":
		return 0, false
	case "-":
		// accounting zero, e.g. " $-   "
		return 0, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// NormalizeAmount accepts either an already-numeric value, which passes through
// unchanged, or a string handled by ParseAmount.
func NormalizeAmount(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return x, true
	case float32:
		return NormalizeAmount(float64(x))
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case decimal.Decimal:
		f, _ := x.Float64()
		return f, true
	case string:
		return ParseAmount(x)
	case []byte:
		return ParseAmount(string(x))
	}
	return 0, false
}

// ParseInt parses an integral count such as tenure. "12.0" is accepted, "12.5" is not.
func ParseInt(s string) (int64, bool) {
	f, ok := ParseAmount(s)
	if !ok || f != math.Trunc(f) || math.Abs(f) >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// ColumnName canonicalizes a header: trimmed, internal whitespace runs become
// a single underscore, lowercased. "Units Sold" becomes "units_sold".
func ColumnName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), "_"))
}

var dateLayouts = []string{
	"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04",
	"2006/01/02", "01/02/2006", "1/2/2006", "02/01/2006", "02-Jan-2006", "Jan 2, 2006", "January 2, 2006",
	"1/2/2006 15:04", "1/2/2006 15:04:05",
}

// ParseDate parses a date cell. Plain numbers are treated as spreadsheet serial dates.
// Slash dates are read month-first: "05/03/2014" is May 3. Day-first is only
// used when the first field cannot be a month, as in "13/03/2014".
func ParseDate(s string) (time.Time, bool) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, v); err == nil {
			return t, true
		}
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalizeCell converts a raw cell to a Value of the requested kind.
func normalizeCell(raw string, kind Kind) Value {
	switch kind {
	case Int:
		if i, ok := ParseInt(raw); ok {
			return IntValue(i)
		}
	case Float:
		if f, ok := ParseAmount(raw); ok {
			return FloatValue(f)
		}
	case Date:
		if t, ok := ParseDate(raw); ok {
			return DateValue(t)
		}
	default:
		if v := strings.TrimSpace(raw); v != "" {
			return StringValue(v)
		}
	}
	return MissingValue(kind)
}
