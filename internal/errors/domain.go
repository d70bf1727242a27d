package errors

import "fmt"

// MissingColumnError reports a requested column that the dataset schema
// does not contain.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %q", e.Column)
}

// MalformedValueError reports a value that failed load-time parsing. Row is
// the 1-based data row, excluding the header.
type MalformedValueError struct {
	Row    int
	Column string
	Value  string
	Reason string
}

func (e *MalformedValueError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("row %d: malformed %s value %q: %s", e.Row, e.Column, e.Value, e.Reason)
	}
	return fmt.Sprintf("row %d: malformed %s value %q", e.Row, e.Column, e.Value)
}
