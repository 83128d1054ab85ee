package core

// DisplayType selects how a column is summarised and rendered.
type DisplayType string

// Display types.
const (
	DisplayCategorical DisplayType = "categorical"
	DisplayNumeric     DisplayType = "numeric"
	DisplayID          DisplayType = "id"
)

// Valid reports whether d is one of the known display types.
func (d DisplayType) Valid() bool {
	switch d {
	case DisplayCategorical, DisplayNumeric, DisplayID:
		return true
	}
	return false
}

// Category is one bucket of a categorical summary.
type Category struct {
	Value        string  `json:"value"`
	DisplayValue string  `json:"displayValue"`
	Count        int64   `json:"count"`
	Percentage   float64 `json:"percentage"`
}

// NumericStats summarises the non-null values of a numeric column.
type NumericStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stddev"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`
}

// HistogramBin is one equal-width bucket of a histogram.
type HistogramBin struct {
	BinStart   float64 `json:"binStart"`
	BinEnd     float64 `json:"binEnd"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ColumnAggregation is the per-column summary consistent with the active filters.
type ColumnAggregation struct {
	ColumnName   string         `json:"columnName"`
	DisplayType  DisplayType    `json:"displayType"`
	TotalRows    int64          `json:"totalRows"`
	NullCount    int64          `json:"nullCount"`
	UniqueCount  int64          `json:"uniqueCount"`
	Categories   []Category     `json:"categories,omitempty"`
	NumericStats *NumericStats  `json:"numericStats,omitempty"`
	Histogram    []HistogramBin `json:"histogram,omitempty"`
}
