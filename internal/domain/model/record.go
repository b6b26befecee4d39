package model

// TransactionRecord maps field names to raw values as received from a caller.
// Values are usually float64 (decoded JSON numbers) but may be strings or any
// other type; coercion happens during vectorization. Unknown keys are ignored.
type TransactionRecord map[string]any

// FeatureVector is a dense, schema-ordered feature row.
type FeatureVector [FieldCount]float64

// Get returns the value for a schema field, or 0 when name is not in the schema.
func (v FeatureVector) Get(name string) float64 {
	i := FieldIndex(name)
	if i < 0 {
		return 0
	}
	return v[i]
}

// Row returns the vector as a freshly allocated slice.
func (v FeatureVector) Row() []float64 {
	row := make([]float64, FieldCount)
	copy(row, v[:])
	return row
}
