package core

import "time"

// Relationship is a declared foreign key from one table to another.
// Relationships are declared child -> parent; Kind is a cardinality label
// and does not affect compilation.
type Relationship struct {
	ForeignKeyColumn string `json:"foreignKey"`
	ReferencedTable  string `json:"referencedTable"`
	ReferencedColumn string `json:"referencedColumn"`
	Kind             string `json:"kind,omitempty"`
}

// TableDescriptor describes one table of a dataset.
type TableDescriptor struct {
	Name          string         `json:"name"`
	RowCount      int64          `json:"rowCount"`
	Relationships []Relationship `json:"relationships,omitempty"`
}

// Dataset groups tables that can cross-filter each other.
type Dataset struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ColumnInfo is the metadata-service view of a column.
type ColumnInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Nullable    bool        `json:"nullable"`
	DisplayType DisplayType `json:"displayType,omitempty"`
}
