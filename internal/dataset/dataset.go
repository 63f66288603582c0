package dataset

import (
	"strconv"
	"strings"
	"time"
)

// Kind is the inferred semantic type of a column.
type Kind string

const (
	KindInt      Kind = "int"
	KindFloat    Kind = "float"
	KindBool     Kind = "bool"
	KindDatetime Kind = "datetime"
	KindString   Kind = "string"
)

// Numeric reports whether values of this kind are int64 or float64.
func (k Kind) Numeric() bool { return k == KindInt || k == KindFloat }

// Dtype returns the dataframe-style dtype name used in Info output.
func (k Kind) Dtype() string {
	switch k {
	case KindInt:
		return "int64"
	case KindFloat:
		return "float64"
	case KindBool:
		return "bool"
	case KindDatetime:
		return "datetime64[ns]"
	default:
		return "object"
	}
}

// Column is a named, typed sequence of cells. A nil cell is missing; other
// cells hold int64, float64, bool, time.Time or string according to Kind.
type Column struct {
	Name   string
	Kind   Kind
	Values []any
}

// NewColumn builds a column from already-typed values. Plain int values are
// widened to int64 so callers can write literals.
func NewColumn(name string, kind Kind, values ...any) *Column {
	vals := make([]any, len(values))
	for i, v := range values {
		if n, ok := v.(int); ok {
			v = int64(n)
		}
		vals[i] = v
	}
	return &Column{Name: name, Kind: kind, Values: vals}
}

// Missing returns the number of nil cells.
func (c *Column) Missing() int {
	n := 0
	for _, v := range c.Values {
		if v == nil {
			n++
		}
	}
	return n
}

// Floats returns non-missing numeric cells as float64. Non-numeric columns yield nil.
func (c *Column) Floats() []float64 {
	if !c.Kind.Numeric() {
		return nil
	}
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if f, ok := AsFloat(v); ok {
			out = append(out, f)
		}
	}
	return out
}

// Dataset is an ordered set of equally long columns loaded from one file.
// Loaders never hand out shared slices; use Clone before mutating.
type Dataset struct {
	Name     string
	Columns  []*Column
	Warnings []string
}

// New assembles a dataset from columns.
func New(name string, cols ...*Column) *Dataset {
	return &Dataset{Name: name, Columns: cols}
}

// Rows returns the row count.
func (d *Dataset) Rows() int {
	if d == nil || len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0].Values)
}

// Header returns column names in order.
func (d *Dataset) Header() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// Index returns the position of the named column or -1.
func (d *Dataset) Index(name string) int {
	for i, c := range d.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the named column or nil.
func (d *Dataset) Column(name string) *Column {
	if i := d.Index(name); i >= 0 {
		return d.Columns[i]
	}
	return nil
}

// Row returns the cells of row i across all columns.
func (d *Dataset) Row(i int) []any {
	out := make([]any, len(d.Columns))
	for j, c := range d.Columns {
		out[j] = c.Values[i]
	}
	return out
}

// Clone returns a deep copy whose cell slices can be modified freely.
func (d *Dataset) Clone() *Dataset {
	cp := &Dataset{Name: d.Name, Columns: make([]*Column, len(d.Columns))}
	cp.Warnings = append(cp.Warnings, d.Warnings...)
	for i, c := range d.Columns {
		vals := make([]any, len(c.Values))
		copy(vals, c.Values)
		cp.Columns[i] = &Column{Name: c.Name, Kind: c.Kind, Values: vals}
	}
	return cp
}

// Take returns a new dataset holding only the given rows, in the given order.
func (d *Dataset) Take(rows []int) *Dataset {
	out := &Dataset{Name: d.Name, Columns: make([]*Column, len(d.Columns))}
	for i, c := range d.Columns {
		vals := make([]any, len(rows))
		for j, r := range rows {
			vals[j] = c.Values[r]
		}
		out.Columns[i] = &Column{Name: c.Name, Kind: c.Kind, Values: vals}
	}
	return out
}

// RowKey renders row i as a comparable key. Missing cells compare equal to
// each other but never to an empty string.
func (d *Dataset) RowKey(i int) string {
	var b strings.Builder
	for j, c := range d.Columns {
		if j > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(CellKey(c.Values[i]))
	}
	return b.String()
}

// CellKey renders a single cell for equality checks.
func CellKey(v any) string {
	if v == nil {
		return "\x00"
	}
	return Format(v)
}

// AsFloat converts numeric cells to float64.
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case int:
		return float64(x), true
	}
	return 0, false
}

// Format renders a cell for display and CSV output. Missing cells are empty.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "True"
		}
		return "False"
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05")
	}
	return ""
}

// Info is a compact shape summary of a dataset.
type Info struct {
	Rows    int               `json:"rows"`
	Cols    int               `json:"cols"`
	Columns []string          `json:"columns"`
	Dtypes  map[string]string `json:"dtypes"`
}

// Describe returns row/column counts and dtypes.
func Describe(d *Dataset) Info {
	info := Info{Rows: d.Rows(), Cols: len(d.Columns), Columns: d.Header(), Dtypes: map[string]string{}}
	for _, c := range d.Columns {
		info.Dtypes[c.Name] = c.Kind.Dtype()
	}
	return info
}
