package dataset

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestLoadCSVInfersKinds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "customers.csv")
	body := "\ufeffCustomerID,Email,Age,Score,Active,Joined,Country\n" +
		"1,a@x.com,10,1.5,true,2024-01-02,USA\n" +
		"2,,20,NA,false,2024-02-03,USA\n" +
		"2,b@x.com,30,2.5,True,2024-03-04,India\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	ds, err := Load(path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "customers.csv", ds.Name)
	assert.Equal(t, 3, ds.Rows())
	assert.Equal(t, []string{"CustomerID", "Email", "Age", "Score", "Active", "Joined", "Country"}, ds.Header())

	kinds := map[string]Kind{}
	for _, c := range ds.Columns {
		kinds[c.Name] = c.Kind
	}
	assert.Equal(t, KindInt, kinds["CustomerID"])
	assert.Equal(t, KindString, kinds["Email"])
	assert.Equal(t, KindInt, kinds["Age"])
	assert.Equal(t, KindFloat, kinds["Score"])
	assert.Equal(t, KindBool, kinds["Active"])
	assert.Equal(t, KindDatetime, kinds["Joined"])
	assert.Equal(t, KindString, kinds["Country"])

	assert.Nil(t, ds.Column("Email").Values[1])
	assert.Equal(t, 1, ds.Column("Email").Missing())
	assert.Equal(t, int64(20), ds.Column("Age").Values[1])
	assert.Equal(t, true, ds.Column("Active").Values[2])
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), ds.Column("Joined").Values[2])
}

func TestIntColumnWithGapsBecomesFloat(t *testing.T) {
	ds := FromRecords("t", []string{"n", "empty"}, [][]string{{"1", ""}, {"", ""}, {"3", "null"}}, DefaultOptions())
	assert.Equal(t, KindFloat, ds.Column("n").Kind)
	assert.Equal(t, []any{1.0, nil, 3.0}, ds.Column("n").Values)
	assert.Equal(t, KindFloat, ds.Column("empty").Kind)
	assert.Equal(t, 3, ds.Column("empty").Missing())
}

func TestSniffDelimiterAndDecimalComma(t *testing.T) {
	in := "Group;Amount\nA;1.000,5\nB;2,25\n"
	opt := DefaultOptions()
	opt.DecimalSeparator = ','
	ds, err := ReadCSV(strings.NewReader(in), "amounts.csv", opt)
	require.NoError(t, err)
	require.Len(t, ds.Columns, 2)
	assert.Equal(t, KindFloat, ds.Column("Amount").Kind)
	assert.InDelta(t, 1000.5, ds.Column("Amount").Values[0], 1e-9)
	assert.InDelta(t, 2.25, ds.Column("Amount").Values[1], 1e-9)

	assert.Equal(t, '\t', sniffDelimiter("x.tsv", []byte("a,b")))
	assert.Equal(t, ',', sniffDelimiter("x.csv", []byte("a,b;c,d\n1;2;3;4;5")))
}

func TestDuplicateAndBlankHeaders(t *testing.T) {
	ds := FromRecords("t", []string{"a", "a", " ", "a"}, [][]string{{"1", "2", "3", "4"}}, DefaultOptions())
	assert.Equal(t, []string{"a", "a.1", "Unnamed: 2", "a.2"}, ds.Header())
}

func TestRaggedRowsArePaddedAndWarned(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader("a,b\n1\n2,3,4\n"), "r.csv", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Rows())
	assert.Nil(t, ds.Column("b").Values[0])
	require.Len(t, ds.Warnings, 1)
	assert.Contains(t, ds.Warnings[0], "more fields")
}

func TestMaxRowsTruncates(t *testing.T) {
	opt := DefaultOptions()
	opt.MaxRows = 2
	ds, err := ReadCSV(strings.NewReader("a\n1\n2\n3\n"), "m.csv", opt)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Rows())
	assert.Contains(t, ds.Warnings, "read limited to 2 rows")
}

func TestEmptyAndMissingFiles(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), "empty.csv", DefaultOptions())
	var re *ReadError
	require.True(t, errors.As(err, &re))
	assert.True(t, errors.Is(err, ErrNoHeader))

	_, err = Load(filepath.Join(t.TempDir(), "nope.csv"), DefaultOptions())
	require.True(t, errors.As(err, &re))
	assert.Contains(t, err.Error(), "nope.csv")

	_, err = Load("data.parquet", DefaultOptions())
	var ue *UnsupportedFormatError
	assert.True(t, errors.As(err, &ue))
}

func TestLoadXLSXSheetSelection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"ignored"}))
	_, err := f.NewSheet("Orders")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Orders", "A1", &[]any{"OrderID", "Status"}))
	require.NoError(t, f.SetSheetRow("Orders", "A2", &[]any{1, "open"}))
	require.NoError(t, f.SetSheetRow("Orders", "A3", &[]any{2, "closed"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	opt := DefaultOptions()
	opt.SheetName = "Orders"
	ds, err := Load(path, opt)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Rows())
	assert.Equal(t, KindInt, ds.Column("OrderID").Kind)
	assert.Equal(t, "closed", ds.Column("Status").Values[1])

	opt = DefaultOptions()
	opt.SheetIndex = 2
	ds, err = Load(path, opt)
	require.NoError(t, err)
	assert.Equal(t, []string{"OrderID", "Status"}, ds.Header())

	opt.SheetIndex = 5
	_, err = Load(path, opt)
	assert.Error(t, err)
}

func TestCloneTakeAndWriteCSV(t *testing.T) {
	ds := New("t",
		NewColumn("id", KindInt, 1, 2, 3),
		NewColumn("name", KindString, "a", nil, "c"),
	)
	cp := ds.Clone()
	cp.Columns[1].Values[1] = "filled"
	assert.Nil(t, ds.Columns[1].Values[1])

	sub := ds.Take([]int{2, 0})
	assert.Equal(t, []any{int64(3), int64(1)}, sub.Column("id").Values)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ds))
	assert.Equal(t, "id,name\n1,a\n2,\n3,c\n", buf.String())

	info := Describe(ds)
	assert.Equal(t, 3, info.Rows)
	assert.Equal(t, "int64", info.Dtypes["id"])
	assert.Equal(t, "object", info.Dtypes["name"])
}

func TestRowKeyTreatsMissingAsDistinctFromEmpty(t *testing.T) {
	ds := New("t", NewColumn("s", KindString, "", nil, nil))
	assert.NotEqual(t, ds.RowKey(0), ds.RowKey(1))
	assert.Equal(t, ds.RowKey(1), ds.RowKey(2))
}

func TestNonFiniteNumbersStayText(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader("amount,n,ratio\n1,1,0.5\n2,2,-Infinity\ninf,3,0.25\n4,4,1\n"), "a.csv", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, KindString, ds.Column("amount").Kind)
	assert.Equal(t, KindString, ds.Column("ratio").Kind)
	assert.Equal(t, KindInt, ds.Column("n").Kind)
	assert.Equal(t, "inf", ds.Column("amount").Values[2])
}
