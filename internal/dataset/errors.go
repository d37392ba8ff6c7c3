package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSourceNotFound reports a dataset file that does not exist. Callers are
// expected to surface it as a "file missing" message rather than fail hard.
var ErrSourceNotFound = errors.New("dataset source not found")

// ErrSchemaMismatch reports a required column absent after header normalization.
var ErrSchemaMismatch = errors.New("schema mismatch")

// SchemaError lists the required columns a source is missing.
type SchemaError struct {
	Dataset string
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: dataset %q is missing required columns: %s", e.Source, e.Dataset, strings.Join(e.Missing, ", "))
}

// Is lets errors.Is(err, ErrSchemaMismatch) match a *SchemaError.
func (e *SchemaError) Is(target error) bool { return target == ErrSchemaMismatch }
