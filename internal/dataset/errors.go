package dataset

import "fmt"

// NotFoundError reports a missing input file. Path is the resolved absolute
// path so the user can see exactly where the loader looked.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("dataset not found at %s", e.Path)
}

// FormatError reports a file that is present but not parseable as the expected
// table. Row is the 1-based row number when the failure is row-scoped, 0
// otherwise.
type FormatError struct {
	Row int
	Err error
}

func (e *FormatError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("malformed dataset at row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("malformed dataset: %v", e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }
