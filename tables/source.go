package tables

import (
	"context"
	"fmt"
	"strings"
)

// Source retrieves the raw text of a named delimited resource.
type Source interface {
	Fetch(ctx context.Context, name string) (string, error)
}

// RowUpdater rewrites a row in place. It returns the new fields and true
// when the row changed; line is the 1-based line number in the file.
type RowUpdater func(line int, fields []string) ([]string, bool)

// Writer is implemented by sources that can be modified.
type Writer interface {
	AppendRow(ctx context.Context, name string, fields []string) error
	UpdateRows(ctx context.Context, name string, update RowUpdater) (int, error)
}

// ReadWriter is a Source that is also a Writer.
type ReadWriter interface {
	Source
	Writer
}

// HistoryName is the resource name of a vehicle's trip history.
func HistoryName(vehicleID string) string {
	return vehicleID + ".csv"
}

func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
