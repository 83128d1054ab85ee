package aggregate

import (
	"errors"
	"fmt"
)

// ErrStoreQuery is matched by every QueryError.
var ErrStoreQuery = errors.New("store query failed")

// Stage names the query that failed.
type Stage string

// Aggregation stages, in execution order.
const (
	StageRowCount     Stage = "row_count"
	StageBasicStats   Stage = "basic_stats"
	StageCategories   Stage = "categories"
	StageNumericStats Stage = "numeric_stats"
	StageHistogram    Stage = "histogram"
)

// QueryError wraps a store failure with the column and stage it hit.
type QueryError struct {
	Stage  Stage
	Table  string
	Column string
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("failed to aggregate %s.%s (%s): %v", e.Table, e.Column, e.Stage, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStoreQuery) hold.
func (e *QueryError) Is(target error) bool {
	return target == ErrStoreQuery
}
