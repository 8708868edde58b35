package core

// Column represents a column in a warehouse table.
type Column struct {
	// Name is the column name
	Name string
	// Type is the warehouse-reported data type
	Type string
	// Nullable indicates whether the column allows NULL values
	Nullable bool
	// Position is the ordinal position of the column in the table
	Position int
}

// TableRef identifies a table within a schema.
type TableRef struct {
	Schema string
	Table  string
}

// String returns the qualified schema.table form.
func (t TableRef) String() string {
	if t.Schema == "" {
		return t.Table
	}
	return t.Schema + "." + t.Table
}
