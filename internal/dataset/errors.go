package dataset

import (
	"errors"
	"fmt"
)

// ErrNoHeader is returned for inputs without a header row.
var ErrNoHeader = errors.New("no header row")

// ReadError indicates an input file could not be opened or parsed.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	if e == nil {
		return "read failed"
	}
	if e.Path != "" {
		return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("failed to read dataset: %v", e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// UnsupportedFormatError indicates a file extension no loader handles.
type UnsupportedFormatError struct{ Ext string }

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file type %q (use .csv, .tsv or .xlsx)", e.Ext)
}
