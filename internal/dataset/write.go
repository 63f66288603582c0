package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes the dataset with a header row. Missing cells are empty.
func WriteCSV(w io.Writer, d *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(d.Columns))
	for i := 0; i < d.Rows(); i++ {
		for j, c := range d.Columns {
			rec[j] = Format(c.Values[i])
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
