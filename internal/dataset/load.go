package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Options controls how files are read.
type Options struct {
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, sniffs among ',', ';' and '\t'.
	Delimiter rune
	// DecimalSeparator set to ',' reads "1.234,5" style numbers. 0 means '.'.
	DecimalSeparator rune
	// XLSX sheet selection. SheetName wins over SheetIndex (1-based).
	SheetName  string
	SheetIndex int
}

// DefaultOptions returns reasonable defaults for loading.
func DefaultOptions() Options {
	return Options{SheetIndex: 1}
}

// Load reads a CSV, TSV or XLSX file chosen by extension.
func Load(path string, opt Options) (*Dataset, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		return LoadXLSX(path, opt)
	case ".csv", ".tsv", ".txt", "":
		return LoadCSV(path, opt)
	default:
		return nil, &UnsupportedFormatError{Ext: ext}
	}
}

// Read is Load for an already open stream; name supplies the extension.
func Read(r io.Reader, name string, opt Options) (*Dataset, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r, name, opt)
	case ".csv", ".tsv", ".txt", "":
		return ReadCSV(r, name, opt)
	default:
		return nil, &UnsupportedFormatError{Ext: ext}
	}
}

// LoadCSV reads a delimited text file.
func LoadCSV(path string, opt Options) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	defer f.Close()
	return ReadCSV(f, path, opt)
}

// ReadCSV parses delimited text from r.
func ReadCSV(r io.Reader, name string, opt Options) (*Dataset, error) {
	br := bufio.NewReader(r)
	delim := opt.Delimiter
	if delim == 0 {
		head, _ := br.Peek(4096)
		delim = sniffDelimiter(name, head)
	}
	cr := csv.NewReader(br)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ReadError{Path: name, Err: ErrNoHeader}
		}
		return nil, &ReadError{Path: name, Err: fmt.Errorf("read header: %w", err)}
	}
	header = append([]string(nil), header...)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows [][]string
	truncated := false
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ReadError{Path: name, Err: fmt.Errorf("read row %d: %w", len(rows)+2, err)}
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" && len(header) > 1 {
			continue
		}
		if opt.MaxRows > 0 && len(rows) >= opt.MaxRows {
			truncated = true
			break
		}
		rows = append(rows, append([]string(nil), rec...))
	}
	ds := FromRecords(filepath.Base(name), header, rows, opt)
	if truncated {
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("read limited to %d rows", opt.MaxRows))
	}
	return ds, nil
}

// FromRecords builds a typed dataset from a header and raw string rows.
// Ragged rows are padded with missing cells or truncated.
func FromRecords(name string, header []string, rows [][]string, opt Options) *Dataset {
	names := uniqueNames(header)
	ds := &Dataset{Name: name, Columns: make([]*Column, len(names))}
	long := 0
	raw := make([][]string, len(names))
	for j := range raw {
		raw[j] = make([]string, len(rows))
	}
	for i, rec := range rows {
		if len(rec) > len(names) {
			long++
		}
		for j := range names {
			if j < len(rec) {
				raw[j][i] = rec[j]
			}
		}
	}
	if long > 0 {
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("%d rows had more fields than the header; extra fields were dropped", long))
	}
	for j, n := range names {
		ds.Columns[j] = inferColumn(n, raw[j], opt)
	}
	return ds
}

// uniqueNames fills blank headers and suffixes repeats with ".N".
func uniqueNames(header []string) []string {
	out := make([]string, len(header))
	seen := map[string]int{}
	for i, h := range header {
		n := strings.TrimSpace(h)
		if n == "" {
			n = fmt.Sprintf("Unnamed: %d", i)
		}
		if c, ok := seen[n]; ok {
			seen[n] = c + 1
			n = fmt.Sprintf("%s.%d", n, c+1)
		}
		seen[n] = 0
		out[i] = n
	}
	return out
}

var missingTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"null": {}, "NULL": {}, "None": {}, "#N/A": {}, "<NA>": {},
}

// IsMissing reports whether a raw cell is one of the recognised missing tokens.
func IsMissing(s string) bool {
	_, ok := missingTokens[strings.TrimSpace(s)]
	return ok
}

// inferColumn applies int, float, bool, datetime, string precedence over the
// non-missing cells. Int and bool require a column without missing cells;
// an int column with gaps becomes float.
func inferColumn(name string, raw []string, opt Options) *Column {
	present := make([]string, 0, len(raw))
	for _, s := range raw {
		if !IsMissing(s) {
			present = append(present, strings.TrimSpace(s))
		}
	}
	complete := len(present) == len(raw)
	kind := KindString
	switch {
	case len(present) == 0:
		kind = KindFloat
	case complete && all(present, func(s string) bool { _, err := strconv.ParseInt(s, 10, 64); return err == nil }):
		kind = KindInt
	case all(present, func(s string) bool { _, ok := parseNumeric(s, opt); return ok }):
		kind = KindFloat
	case complete && all(present, isBool):
		kind = KindBool
	case all(present, func(s string) bool { _, ok := parseTimeMaybe(s); return ok }):
		kind = KindDatetime
	}

	col := &Column{Name: name, Kind: kind, Values: make([]any, len(raw))}
	for i, s := range raw {
		if IsMissing(s) {
			continue
		}
		s = strings.TrimSpace(s)
		switch kind {
		case KindInt:
			n, _ := strconv.ParseInt(s, 10, 64)
			col.Values[i] = n
		case KindFloat:
			f, _ := parseNumeric(s, opt)
			col.Values[i] = f
		case KindBool:
			col.Values[i] = strings.EqualFold(s, "true")
		case KindDatetime:
			t, _ := parseTimeMaybe(s)
			col.Values[i] = t
		default:
			col.Values[i] = raw[i]
		}
	}
	return col
}

func all(vals []string, pred func(string) bool) bool {
	for _, v := range vals {
		if !pred(v) {
			return false
		}
	}
	return true
}

func isBool(s string) bool {
	switch s {
	case "true", "false", "True", "False", "TRUE", "FALSE":
		return true
	}
	return false
}

// sniffDelimiter picks tab for .tsv files, otherwise the most frequent of
// ',', ';' and '\t' on the first line.
func sniffDelimiter(name string, head []byte) rune {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := strings.Count(string(head), string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
		"2006-01-02T15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumeric parses a finite float. With a ',' decimal separator, '.' and
// spaces are treated as thousands separators. inf and nan spellings are not
// numbers here, so such a column stays text.
func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	if opt.DecimalSeparator == ',' {
		raw = strings.ReplaceAll(raw, "\u00a0", "")
		raw = strings.ReplaceAll(raw, " ", "")
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.Replace(raw, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
